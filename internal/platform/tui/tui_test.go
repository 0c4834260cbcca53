package tui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/ghost"
	"github.com/vovakirdan/tui-kart/internal/multiplayer"
	"github.com/vovakirdan/tui-kart/internal/race"
	"github.com/vovakirdan/tui-kart/internal/storage"
	"github.com/vovakirdan/tui-kart/internal/track"
	_ "github.com/vovakirdan/tui-kart/internal/track/builtin"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testBundle() config.Bundle {
	b := config.DefaultBundle()
	b.Race.CountdownTicks = 0
	b.Race.Karts = 4
	return b
}

func loadTrack(t *testing.T, id string) *track.Track {
	t.Helper()
	tr, err := track.NewLoader(nil).LoadBuiltin(id)
	if err != nil {
		t.Fatalf("LoadBuiltin(%q) failed: %v", id, err)
	}
	return tr
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "kart.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestControlLatchHoldsAndDecays(t *testing.T) {
	var l ControlLatch
	l.Press(core.ActionThrottle)
	for i := range throttleHoldTicks {
		if c := l.Tick(); c&core.ControlUp == 0 {
			t.Fatalf("tick %d: throttle released early (%08b)", i, c)
		}
	}
	if c := l.Tick(); c != 0 {
		t.Errorf("throttle still held after %d ticks: %08b", throttleHoldTicks, c)
	}

	l.Press(core.ActionSteerLeft)
	l.Press(core.ActionSteerRight)
	c := l.Tick()
	if c&core.ControlLeft != 0 || c&core.ControlRight == 0 {
		t.Errorf("opposite steering should cancel, got %08b", c)
	}

	l.Press(core.ActionBrake)
	l.Release()
	if c := l.Tick(); c != 0 {
		t.Errorf("Release left %08b held", c)
	}
}

func TestArrow(t *testing.T) {
	tests := []struct {
		heading fixed.Angle
		want    rune
	}{
		{0, '>'},
		{0x2000, '\\'},
		{0x4000, 'v'},
		{0x8000, '<'},
		{0xC000, '^'},
		{0xFFFF, '>'},
	}
	for _, tt := range tests {
		if got := arrow(tt.heading); got != tt.want {
			t.Errorf("arrow(%#x) = %q, want %q", uint16(tt.heading), got, tt.want)
		}
	}
}

func TestFormatTicks(t *testing.T) {
	tests := []struct {
		ticks, rate int
		want        string
	}{
		{0, 16, "--.--"},
		{-3, 16, "--.--"},
		{16, 16, "1.00"},
		{24, 16, "1.50"},
		{33, 16, "2.06"},
		{5, 0, "5.00"},
	}
	for _, tt := range tests {
		if got := FormatTicks(tt.ticks, tt.rate); got != tt.want {
			t.Errorf("FormatTicks(%d, %d) = %q, want %q", tt.ticks, tt.rate, got, tt.want)
		}
	}
}

func TestRendererCameraDistance(t *testing.T) {
	r := NewRenderer(80, 26)
	if got := r.CameraDistance(); got != fixed.FromInt(12) {
		t.Errorf("80x26 camera distance = %d tiles, want 12", got.Int())
	}
	r.Resize(2, 2)
	if got := r.CameraDistance(); got != fixed.FromInt(1) {
		t.Errorf("tiny terminal camera distance = %d tiles, want 1", got.Int())
	}
	if r.Perspective() {
		t.Error("top-down renderer must not report perspective")
	}
}

func TestRendererDrawsPlayer(t *testing.T) {
	tr := loadTrack(t, "oval")
	b := testBundle()
	r := NewRenderer(80, 26)
	d := race.NewDirector(b.Race, b.Karts, b.Tuning, nil)
	d.SetViewport(r)
	if err := d.Init(d.QuickSetup(tr, 1)); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	r.Draw(d)

	s := r.Screen()
	found := false
	for y := range s.Height() {
		for x := range s.Width() {
			if s.GetCell(x, y).Rune == '1' {
				found = true
			}
		}
	}
	if !found {
		t.Error("player kart not drawn")
	}
	if hud := HUD(d, b.Race.TickRate, 80); hud == "" {
		t.Error("empty HUD")
	}
}

func TestRaceModelTimeTrialRecords(t *testing.T) {
	model, err := NewRaceModel(RaceOptions{
		Track:     loadTrack(t, "oval"),
		Config:    testBundle(),
		Store:     openStore(t),
		TimeTrial: true,
		Width:     80,
		Height:    26,
	})
	if err != nil {
		t.Fatalf("NewRaceModel failed: %v", err)
	}
	if n := model.Director().KartCount(); n != 1 {
		t.Fatalf("time trial has %d karts, want 1", n)
	}

	var m tea.Model = model
	m, _ = m.Update(runes("w"))
	for range 10 {
		m, _ = m.Update(TickMsg(time.Now()))
	}
	rm := m.(RaceModel)
	rec := rm.Recording()
	if rec == nil || rec.Len() != 10 {
		t.Fatalf("expected 10 recorded ticks, got %+v", rec)
	}
	if core.Controls(rec.Inputs[0])&core.ControlUp == 0 {
		t.Error("throttle press not recorded")
	}
	if rm.Director().Kart(0).Speed <= 0 {
		t.Error("kart did not move under throttle")
	}
}

func TestRaceModelReplaysGhost(t *testing.T) {
	b := testBundle()
	g := &ghost.Ghost{
		Version: ghost.Version,
		Track:   "oval",
		Slot:    1,
		Laps:    b.Race.Laps,
		Ticks:   500,
		Inputs:  []byte{byte(core.ControlUp), byte(core.ControlUp)},
	}
	opts := RaceOptions{Track: loadTrack(t, "oval"), Config: b, TimeTrial: true, Ghost: g, Width: 80, Height: 26}

	model, err := NewRaceModel(opts)
	if err != nil {
		t.Fatalf("NewRaceModel failed: %v", err)
	}
	d := model.Director()
	if d.KartCount() != 2 || !d.Kart(1).Ghost {
		t.Fatalf("expected the ghost as a second kart, got %d karts", d.KartCount())
	}

	opts.Ghost = &ghost.Ghost{Version: ghost.Version, Track: "speedway", Laps: b.Race.Laps, Ticks: 1, Inputs: []byte{0}}
	model, err = NewRaceModel(opts)
	if err != nil {
		t.Fatalf("NewRaceModel failed: %v", err)
	}
	if n := model.Director().KartCount(); n != 1 {
		t.Errorf("ghost from another track joined the race (%d karts)", n)
	}
}

func TestRaceModelPauseFreezesRace(t *testing.T) {
	model, err := NewRaceModel(RaceOptions{Track: loadTrack(t, "oval"), Config: testBundle(), Width: 80, Height: 26})
	if err != nil {
		t.Fatalf("NewRaceModel failed: %v", err)
	}
	var m tea.Model = model
	m, _ = m.Update(TickMsg(time.Now()))
	before := m.(RaceModel).Director().Tick()

	m, _ = m.Update(runes("p"))
	m, _ = m.Update(TickMsg(time.Now()))
	if got := m.(RaceModel).Director().Tick(); got != before {
		t.Errorf("paused race advanced from tick %d to %d", before, got)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !m.(RaceModel).BackToMenu() {
		t.Error("back from the pause screen should return to the menu")
	}
}

func TestPrepareRaceLoadsGhost(t *testing.T) {
	store := openStore(t)
	b := testBundle()
	rec := ghost.NewRecorder("oval", 0, 0, b.Race.Laps)
	rec.Record(core.ControlUp)
	rec.Finish(900)
	if _, err := store.SaveGhost(rec.Ghost()); err != nil {
		t.Fatalf("SaveGhost failed: %v", err)
	}

	res := MenuResult{TrackID: "oval", Mode: ModeTimeTrial, Difficulty: config.DifficultyHard,
		Config: core.RuntimeConfig{ScreenW: 80, ScreenH: 26}}
	opts, err := PrepareRace(res, b, store, "tester", nil)
	if err != nil {
		t.Fatalf("PrepareRace failed: %v", err)
	}
	if !opts.TimeTrial || opts.Ghost == nil || opts.Ghost.Ticks != 900 {
		t.Errorf("expected a time trial against the stored ghost, got %+v", opts)
	}
	if opts.Config.Race.Difficulty != config.DifficultyHard {
		t.Errorf("difficulty = %q, want hard", opts.Config.Race.Difficulty)
	}

	if _, err := PrepareRace(MenuResult{TrackID: "nowhere"}, b, nil, "", nil); err == nil {
		t.Error("expected an error for an unknown track")
	}
}

func TestMenuChoices(t *testing.T) {
	var m tea.Model = NewMenuModel(core.RuntimeConfig{ScreenW: 80, ScreenH: 24}, config.DifficultyNormal, false)
	m, _ = m.Update(runes("t"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m, _ = m.Update(runes("o"))

	menu := m.(MenuModel)
	if menu.Mode() != ModeTimeTrial {
		t.Errorf("mode = %v, want time trial", menu.Mode())
	}
	if menu.Difficulty() != config.DifficultyHard {
		t.Errorf("difficulty = %q, want hard", menu.Difficulty())
	}
	if menu.WantsOnline() {
		t.Error("online offered while disabled")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if sel := m.(MenuModel).Selected(); sel == nil || sel.TrackID == "" {
		t.Errorf("enter selected %+v", sel)
	}
}

func TestSessionModelScreens(t *testing.T) {
	var m tea.Model = NewSessionModel(SessionOptions{
		Bundle:  testBundle(),
		Runtime: core.RuntimeConfig{ScreenW: 80, ScreenH: 26, TickRate: 16},
	})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if s := m.(SessionModel).Screen(); s != ScreenTimes {
		t.Fatalf("tab opened screen %d, want times", s)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if s := m.(SessionModel).Screen(); s != ScreenMenu {
		t.Fatalf("esc from times left screen %d", s)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if s := m.(SessionModel).Screen(); s != ScreenRace {
		t.Fatalf("enter opened screen %d, want race", s)
	}
	m, _ = m.Update(runes("p"))
	m, _ = m.Update(runes("b"))
	if s := m.(SessionModel).Screen(); s != ScreenMenu {
		t.Fatalf("back from a paused race left screen %d", s)
	}
}

// awaitEvent reads the next event of the wanted type, skipping others.
func awaitEvent[T multiplayer.SessionEvent](t *testing.T, s *multiplayer.ChannelSession) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-s.Events():
			if e, ok := evt.(T); ok {
				return e
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func TestOnlineModelHostsRace(t *testing.T) {
	b := testBundle()
	factory := func(id string, humans int) (*race.Director, error) {
		tr, err := track.NewLoader(nil).LoadBuiltin(id)
		if err != nil {
			return nil, err
		}
		d := race.NewDirector(b.Race, b.Karts, b.Tuning, nil)
		return d, d.Init(d.QuickSetup(tr, humans))
	}
	reg := multiplayer.NewSessionRegistry()
	coord := multiplayer.NewCoordinator(multiplayer.DefaultCoordinatorConfig(), factory, reg, nil)
	coord.Start()
	t.Cleanup(coord.Stop)

	session := multiplayer.NewChannelSession(multiplayer.NewSessionID(), 256)
	reg.Register(session)

	var m tea.Model = NewOnlineModel(OnlineOptions{
		Link:   NewLocalLink(coord, session),
		Track:  "oval",
		Config: b,
		Width:  80,
		Height: 26,
	})
	m, _ = m.Update(runes("h"))
	if s := m.(OnlineModel).State(); s != OnlineStateConnecting {
		t.Fatalf("state after host = %d, want connecting", s)
	}

	m, _ = m.Update(awaitEvent[multiplayer.LobbyCreatedEvent](t, session))
	om := m.(OnlineModel)
	if om.State() != OnlineStateLobby || len(om.Code()) != 6 {
		t.Fatalf("expected a lobby, got state %d code %q", om.State(), om.Code())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(awaitEvent[multiplayer.RaceStartedEvent](t, session))
	om = m.(OnlineModel)
	if om.State() != OnlineStateRacing || om.Mirror() == nil {
		t.Fatalf("expected to be racing, got state %d", om.State())
	}

	m, _ = m.Update(awaitEvent[multiplayer.PacketEvent](t, session))
	if m.(OnlineModel).Mirror().Director().Tick() == 0 {
		t.Error("packet did not advance the mirror")
	}

	m, _ = m.Update(runes("b"))
	if !m.(OnlineModel).BackToMenu() {
		t.Error("leaving the race should return to the menu")
	}
	ended := awaitEvent[multiplayer.RaceEndedEvent](t, session)
	if ended.Reason != multiplayer.EndAbandoned {
		t.Errorf("race ended with %v, want abandoned", ended.Reason)
	}
}
