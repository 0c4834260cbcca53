package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
)

func TestEmbeddedDefaultsLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	b, err := Load(Paths{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b.Race != DefaultRace() {
		t.Errorf("race = %+v, want %+v", b.Race, DefaultRace())
	}
	if len(b.Karts) != 8 {
		t.Errorf("expected 8 kart types, got %d", len(b.Karts))
	}
	if b.Karts[0].Acceleration != fixed.One/8 {
		t.Errorf("standard acceleration = %d, want %d", b.Karts[0].Acceleration, fixed.One/8)
	}
	if b.Tuning != DefaultTuning() {
		t.Errorf("tuning = %+v, want %+v", b.Tuning, DefaultTuning())
	}
}

func TestCustomPathErrors(t *testing.T) {
	if _, err := LoadRace(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing custom file")
	}
}

func TestLocalConfigOverridesEmbedded(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.MkdirAll("configs", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join("configs", "race.yaml"), []byte("laps: 5\ndifficulty: hard\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRace("")
	if err != nil {
		t.Fatalf("LoadRace failed: %v", err)
	}
	if cfg.Laps != 5 || cfg.Difficulty != DifficultyHard {
		t.Errorf("got laps=%d difficulty=%s", cfg.Laps, cfg.Difficulty)
	}
	if cfg.Karts != MaxKarts {
		t.Errorf("unset fields should keep defaults, karts=%d", cfg.Karts)
	}
}

func TestInvalidKartTableFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "karts.yaml")
	data := []byte(`karts:
  - name: broken
    acceleration: 0.1
    deceleration: 8
    steer_gain: 384
    mass: 4
    min_speed: -1
    max_speed: 2
    max_corner_speed: 3
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadKarts(path)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Code != "INVALID_KART" {
		t.Errorf("code = %s", verr.Code)
	}
}

func TestRaceValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Race)
		code   string
	}{
		{"zero laps", func(r *Race) { r.Laps = 0 }, "BAD_LAPS"},
		{"too many karts", func(r *Race) { r.Karts = 9 }, "BAD_KARTS"},
		{"negative countdown", func(r *Race) { r.CountdownTicks = -1 }, "BAD_COUNTDOWN"},
		{"unknown difficulty", func(r *Race) { r.Difficulty = "insane" }, "BAD_DIFFICULTY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRace()
			tt.mutate(&r)
			var verr ValidationError
			if err := r.Validate(); !errors.As(err, &verr) || verr.Code != tt.code {
				t.Errorf("got %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestTuningValidate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	tune := DefaultTuning()
	tune.ReelInterval = 24
	if err := tune.Validate(); err == nil {
		t.Error("reel stops beyond the payout window should fail")
	}
}

func TestPresetsTighten(t *testing.T) {
	easy, normal, hard := AITuning(DifficultyEasy), AITuning(DifficultyNormal), AITuning(DifficultyHard)
	if !(easy.CorrectR > normal.CorrectR && normal.CorrectR > hard.CorrectR) {
		t.Errorf("correction thresholds should tighten: %d %d %d", easy.CorrectR, normal.CorrectR, hard.CorrectR)
	}
	if AITuning("unknown") != normal {
		t.Error("unknown preset should fall back to normal")
	}
}

func TestApplyPreset(t *testing.T) {
	r := DefaultRace()
	ApplyPreset(&r, DifficultyEasy)
	if r.Difficulty != DifficultyEasy {
		t.Errorf("difficulty = %s", r.Difficulty)
	}
	ApplyPreset(&r, "bogus")
	if r.Difficulty != DifficultyEasy {
		t.Error("unknown preset should be ignored")
	}
}

func TestDefaultKartTableIsEmbeddedRoster(t *testing.T) {
	props := DefaultKartTable()
	if len(props) != MaxKarts {
		t.Fatalf("expected %d kart types, got %d", MaxKarts, len(props))
	}
	if props[0] != kart.DefaultProperties() {
		t.Errorf("first row %+v differs from the stock kart", props[0])
	}
}
