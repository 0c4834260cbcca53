package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/snapshot"
)

func TestLoadBundleOverrides(t *testing.T) {
	t.Cleanup(func() { flagTPS, flagSeed, flagDifficulty = 0, 0, "" })

	flagTPS, flagSeed, flagDifficulty = 30, 99, "hard"
	b, err := loadBundle()
	if err != nil {
		t.Fatalf("loadBundle failed: %v", err)
	}
	if b.Race.TickRate != 30 || b.Race.Seed != 99 || b.Race.Difficulty != config.DifficultyHard {
		t.Errorf("overrides not applied: %+v", b.Race)
	}

	flagDifficulty = "nightmare"
	if _, err := loadBundle(); err == nil {
		t.Error("expected an error for an unknown difficulty")
	}
}

func TestDirectorFactory(t *testing.T) {
	b := config.DefaultBundle()
	factory := directorFactory(b, nil)

	d, err := factory("oval", 2)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if !d.Kart(0).Human || !d.Kart(1).Human || d.Kart(2).Human {
		t.Error("expected exactly the first two karts to be seated players")
	}

	if _, err := factory("nowhere", 1); err == nil {
		t.Error("expected an error for an unknown track")
	}
	if _, err := factory("oval", config.MaxKarts+1); err == nil {
		t.Error("expected an error when players outnumber the grid")
	}
}

func TestSimSaveAndResume(t *testing.T) {
	dir := t.TempDir()
	save := filepath.Join(dir, "race.sav")
	t.Cleanup(func() {
		flagSimTicks, flagSimSave, flagSimResume = 0, "", ""
		flagLogLevel = "info"
	})
	flagLogLevel = "error"

	flagSimTicks, flagSimSave = 40, save
	if err := runSim(simCmd, []string{"oval"}); err != nil {
		t.Fatalf("sim failed: %v", err)
	}
	data, err := os.ReadFile(save)
	if err != nil {
		t.Fatalf("save not written: %v", err)
	}
	s, err := snapshot.NewCodec().DecodeSave(data)
	if err != nil {
		t.Fatalf("DecodeSave failed: %v", err)
	}
	if s.Tick != 40 || s.Track != "oval" {
		t.Errorf("save holds tick %d on %q, want tick 40 on oval", s.Tick, s.Track)
	}

	flagSimSave, flagSimResume = "", save
	if err := runSim(simCmd, []string{"oval"}); err != nil {
		t.Fatalf("resumed sim failed: %v", err)
	}
}
