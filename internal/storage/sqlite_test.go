package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/tui-kart/internal/ghost"
	"github.com/vovakirdan/tui-kart/internal/multiplayer"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenNestedPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestStoreBestLaps(t *testing.T) {
	store := openTest(t)

	for _, ticks := range []int{310, 295, 402, 295} {
		if _, err := store.SaveLap(LapTime{Track: "oval", Kart: "standard", Player: "p1", Ticks: ticks}); err != nil {
			t.Fatalf("SaveLap() failed: %v", err)
		}
	}
	if _, err := store.SaveLap(LapTime{Track: "speedway", Kart: "rocket", Ticks: 100}); err != nil {
		t.Fatalf("SaveLap() failed: %v", err)
	}

	laps, err := store.BestLaps("oval", 3)
	if err != nil {
		t.Fatalf("BestLaps() failed: %v", err)
	}
	if len(laps) != 3 {
		t.Fatalf("Expected 3 laps with limit, got %d", len(laps))
	}
	if laps[0].Ticks != 295 || laps[1].Ticks != 295 || laps[2].Ticks != 310 {
		t.Errorf("Laps not in expected order: %v", laps)
	}
	if laps[0].ID > laps[1].ID {
		t.Errorf("Equal laps should keep insertion order")
	}

	best, err := store.BestLap("oval")
	if err != nil || best != 295 {
		t.Errorf("BestLap() = %d, %v; want 295", best, err)
	}
	best, err = store.BestLap("nowhere")
	if err != nil || best != 0 {
		t.Errorf("BestLap() on empty track = %d, %v; want 0", best, err)
	}

	tracks, err := store.Tracks()
	if err != nil || len(tracks) != 2 || tracks[0] != "oval" {
		t.Errorf("Tracks() = %v, %v", tracks, err)
	}
}

func TestStoreRejectsEmptyLap(t *testing.T) {
	store := openTest(t)
	if _, err := store.SaveLap(LapTime{Track: "oval", Ticks: 0}); err == nil {
		t.Error("Expected an error for a zero-tick lap")
	}
}

func TestStoreClearLaps(t *testing.T) {
	store := openTest(t)
	store.SaveLap(LapTime{Track: "oval", Ticks: 300})
	store.SaveLap(LapTime{Track: "speedway", Ticks: 200})

	if err := store.ClearLaps("oval"); err != nil {
		t.Fatalf("ClearLaps() failed: %v", err)
	}
	if laps, _ := store.BestLaps("oval", 10); len(laps) != 0 {
		t.Errorf("Expected no oval laps after clear, got %d", len(laps))
	}
	if laps, _ := store.BestLaps("speedway", 10); len(laps) != 1 {
		t.Errorf("Speedway laps should not be affected by clearing oval")
	}
}

func TestStoreRaceResults(t *testing.T) {
	store := openTest(t)

	data := multiplayer.ResultData{
		RaceID:       string(multiplayer.NewRaceID()),
		Track:        "oval",
		Laps:         3,
		EndReason:    "completed",
		DurationSecs: 95,
		Standings: []multiplayer.Standing{
			{Seat: 1, Session: "guest", Place: 0, Ticks: 1500, BestLap: 480, Human: true},
			{Seat: 0, Session: "host", Place: 1, Ticks: 1530, BestLap: 490, Human: true},
			{Seat: 2, Place: 2, Ticks: 1600},
		},
	}
	if err := store.SaveRaceResult(data); err != nil {
		t.Fatalf("SaveRaceResult() failed: %v", err)
	}

	r, err := store.RaceByID(data.RaceID)
	if err != nil || r == nil {
		t.Fatalf("RaceByID() = %v, %v", r, err)
	}
	if r.Winner != "guest" || r.Laps != 3 || r.EndReason != "completed" || r.DurationSecs != 95 {
		t.Errorf("Unexpected race record: %+v", r)
	}
	if len(r.Standings) != 3 || r.Standings[1] != data.Standings[1] {
		t.Errorf("Standings not preserved: %+v", r.Standings)
	}

	if err := store.SaveRaceResult(data); err == nil {
		t.Error("Expected duplicate race id to fail")
	}

	missing, err := store.RaceByID("missing")
	if err != nil || missing != nil {
		t.Errorf("RaceByID(missing) = %v, %v", missing, err)
	}
}

func TestStoreAutomatedWinnerLeavesWinnerEmpty(t *testing.T) {
	store := openTest(t)
	data := multiplayer.ResultData{
		RaceID:    "r1",
		Track:     "oval",
		Laps:      1,
		EndReason: "timeout",
		Standings: []multiplayer.Standing{{Seat: 3, Place: 0}, {Seat: 0, Session: "host", Place: 1, Human: true}},
	}
	if err := store.SaveRaceResult(data); err != nil {
		t.Fatalf("SaveRaceResult() failed: %v", err)
	}
	r, _ := store.RaceByID("r1")
	if r.Winner != "" {
		t.Errorf("Winner = %q, want empty", r.Winner)
	}
}

func TestStoreRecentRaces(t *testing.T) {
	store := openTest(t)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.SaveRace(RaceRecord{RaceID: id, Track: "oval", Laps: 1, EndReason: "completed"}); err != nil {
			t.Fatalf("SaveRace() failed: %v", err)
		}
	}

	races, err := store.RecentRaces(2)
	if err != nil {
		t.Fatalf("RecentRaces() failed: %v", err)
	}
	if len(races) != 2 || races[0].RaceID != "c" || races[1].RaceID != "b" {
		t.Errorf("RecentRaces() = %+v", races)
	}
}

func testGhost(ticks int) *ghost.Ghost {
	return &ghost.Ghost{
		Version: ghost.Version,
		Track:   "oval",
		Slot:    0,
		Laps:    3,
		Ticks:   ticks,
		Inputs:  []byte{1, 1, 5, 9, 1},
	}
}

func TestStoreKeepsFastestGhost(t *testing.T) {
	store := openTest(t)

	if g, err := store.BestGhost("oval", 3); err != nil || g != nil {
		t.Fatalf("BestGhost() on empty store = %v, %v", g, err)
	}

	steps := []struct {
		ticks int
		kept  bool
	}{
		{0, false}, // unfinished
		{900, true},
		{950, false},
		{870, true},
		{870, false},
	}
	for _, s := range steps {
		kept, err := store.SaveGhost(testGhost(s.ticks))
		if err != nil {
			t.Fatalf("SaveGhost(%d) failed: %v", s.ticks, err)
		}
		if kept != s.kept {
			t.Errorf("SaveGhost(%d) kept = %v, want %v", s.ticks, kept, s.kept)
		}
	}

	g, err := store.BestGhost("oval", 3)
	if err != nil || g == nil {
		t.Fatalf("BestGhost() = %v, %v", g, err)
	}
	if g.Ticks != 870 || g.Len() != 5 {
		t.Errorf("BestGhost() = %+v", g)
	}
	if other, _ := store.BestGhost("oval", 1); other != nil {
		t.Error("Ghosts of different race lengths must not mix")
	}
}

func TestStoreTrackStats(t *testing.T) {
	store := openTest(t)

	stats, err := store.GetTrackStats("oval")
	if err != nil {
		t.Fatalf("GetTrackStats() failed: %v", err)
	}
	if stats.Laps != 0 || stats.BestLap != 0 || stats.Races != 0 || !stats.LastRaced.IsZero() {
		t.Errorf("Expected empty stats, got %+v", stats)
	}

	store.SaveLap(LapTime{Track: "oval", Ticks: 300})
	store.SaveLap(LapTime{Track: "oval", Ticks: 400})
	store.SaveRace(RaceRecord{RaceID: "x", Track: "oval", Laps: 2, EndReason: "completed"})
	store.SaveGhost(testGhost(700))

	stats, err = store.GetTrackStats("oval")
	if err != nil {
		t.Fatalf("GetTrackStats() failed: %v", err)
	}
	if stats.Laps != 2 || stats.BestLap != 300 || stats.AvgLap != 350 || stats.Races != 1 || stats.GhostTicks != 700 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
