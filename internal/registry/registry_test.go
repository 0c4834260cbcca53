package registry

import "testing"

func TestRegisterAndList(t *testing.T) {
	Register("zz-test", []byte("id: zz-test\nname: Test Loop\n"))
	Register("aa-test", []byte("id: aa-test\n"))

	if !Exists("zz-test") || !Exists("aa-test") {
		t.Fatal("registered tracks not found")
	}

	list := List()
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Errorf("list not sorted: %s >= %s", list[i-1].ID, list[i].ID)
		}
	}

	titles := map[string]string{}
	for _, info := range list {
		titles[info.ID] = info.Title
	}
	if titles["zz-test"] != "Test Loop" {
		t.Errorf("title = %q", titles["zz-test"])
	}
	if titles["aa-test"] != "aa-test" {
		t.Errorf("missing name should fall back to id, got %q", titles["aa-test"])
	}
}

func TestDuplicatePanics(t *testing.T) {
	Register("dup-test", []byte("id: dup-test\n"))
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("dup-test", []byte("id: dup-test\n"))
}

func TestUnknownSource(t *testing.T) {
	if _, err := Source("no-such-track"); err == nil {
		t.Error("expected error for unknown track")
	}
}
