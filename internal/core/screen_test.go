package core

import (
	"strings"
	"testing"
)

func TestScreenStartsBlank(t *testing.T) {
	s := NewScreen(6, 3)
	if s.Width() != 6 || s.Height() != 3 {
		t.Fatalf("size %dx%d, want 6x3", s.Width(), s.Height())
	}
	want := strings.Repeat("      \n", 2) + "      "
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestScreenClipsWrites(t *testing.T) {
	s := NewScreen(4, 2)
	for _, p := range [][2]int{{-1, 0}, {4, 0}, {0, -1}, {0, 2}} {
		s.SetColored(p[0], p[1], 'X', ColorRed)
	}
	if strings.ContainsRune(s.String(), 'X') {
		t.Errorf("off-screen write landed:\n%s", s.String())
	}
	if c := s.GetCell(9, 9); c != (Cell{Rune: ' '}) {
		t.Errorf("off-screen cell = %+v, want blank", c)
	}

	s.DrawTextColored(2, 1, "kart", ColorGreen)
	if got := s.String(); got != "    \n  ka" {
		t.Errorf("clipped text:\n%q", got)
	}
	if c := s.GetCell(3, 1); c.Rune != 'a' || c.Color != ColorGreen {
		t.Errorf("cell (3,1) = %+v", c)
	}
}

func TestScreenClear(t *testing.T) {
	s := NewScreen(3, 3)
	s.DrawTextColored(0, 1, "###", ColorGray)
	s.Clear()
	for y := range 3 {
		for x := range 3 {
			if c := s.GetCell(x, y); c.Rune != ' ' || c.Color != ColorDefault {
				t.Fatalf("cell (%d,%d) = %+v after Clear", x, y, c)
			}
		}
	}
}

func TestScreenDrawBox(t *testing.T) {
	s := NewScreen(5, 4)
	s.DrawBox(NewRect(0, 0, 5, 3))
	want := "┌───┐\n" +
		"│   │\n" +
		"└───┘\n" +
		"     "
	if got := s.String(); got != want {
		t.Errorf("box:\n%s\nwant:\n%s", got, want)
	}
}

func TestScreenResizeBlanks(t *testing.T) {
	s := NewScreen(4, 4)
	s.SetColored(1, 1, '@', ColorOrange)
	s.Resize(2, 3)
	if s.Width() != 2 || s.Height() != 3 {
		t.Fatalf("size %dx%d after Resize", s.Width(), s.Height())
	}
	if got := s.String(); got != "  \n  \n  " {
		t.Errorf("resized screen = %q", got)
	}

	s.Resize(-3, 2)
	if s.Width() != 0 || s.String() != "\n" {
		t.Errorf("negative width: %d %q", s.Width(), s.String())
	}
}

func TestKartColorWraps(t *testing.T) {
	if KartColor(0) != KartColor(len(kartPalette)) {
		t.Error("palette should wrap")
	}
	seen := map[Color]bool{}
	for i := range len(kartPalette) {
		seen[KartColor(i)] = true
	}
	if len(seen) != len(kartPalette) {
		t.Errorf("%d distinct kart colours, want %d", len(seen), len(kartPalette))
	}
}
