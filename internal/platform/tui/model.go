package tui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/ghost"
	"github.com/vovakirdan/tui-kart/internal/race"
	"github.com/vovakirdan/tui-kart/internal/storage"
	"github.com/vovakirdan/tui-kart/internal/track"
)

// RaceOptions configures a local race.
type RaceOptions struct {
	Track  *track.Track
	Config config.Bundle
	Store  *storage.Store // optional
	Player string         // name stored with lap times
	Logger *log.Logger

	// TimeTrial races a single kart with no powerups and no kart
	// collisions, and records a ghost of the run.
	TimeTrial bool
	// Ghost is replayed alongside a time trial when it matches the track
	// and race length.
	Ghost *ghost.Ghost

	Width  int
	Height int
}

// PrepareRace turns a menu choice into race options: it loads the track,
// applies the difficulty and, for a time trial, fetches the ghost to beat.
func PrepareRace(res MenuResult, b config.Bundle, store *storage.Store, player string, logger *log.Logger) (RaceOptions, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	tr, err := track.NewLoader(logger).LoadBuiltin(res.TrackID)
	if err != nil {
		return RaceOptions{}, err
	}
	if res.Difficulty != "" {
		b.Race.Difficulty = res.Difficulty
	}
	opts := RaceOptions{
		Track:     tr,
		Config:    b,
		Store:     store,
		Player:    player,
		Logger:    logger,
		TimeTrial: res.Mode == ModeTimeTrial,
		Width:     res.Config.ScreenW,
		Height:    res.Config.ScreenH,
	}
	if opts.TimeTrial && store != nil {
		g, err := store.BestGhost(tr.ID, b.Race.Laps)
		if err != nil {
			logger.Warn("cannot load ghost", "track", tr.ID, "err", err)
		}
		opts.Ghost = g
	}
	return opts, nil
}

// RaceModel is the Bubble Tea model for one local race.
type RaceModel struct {
	opts      RaceOptions
	director  *race.Director
	renderer  *Renderer
	keyMapper *KeyMapper
	latch     *ControlLatch
	inputs    []core.Controls

	recorder    *ghost.Recorder
	ghostPlayer *ghost.Player
	ghostIndex  int // roster index of the replayed ghost, -1 for none

	lapsSaved  int
	results    []race.KartStats
	ghostKept  bool
	finished   bool
	paused     bool
	quitting   bool
	backToMenu bool
}

// NewRaceModel sets up a race on the options' track.
func NewRaceModel(opts RaceOptions) (RaceModel, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Player == "" {
		opts.Player = "player"
	}
	b := opts.Config
	d := race.NewDirector(b.Race, b.Karts, b.Tuning, opts.Logger)
	renderer := NewRenderer(opts.Width, opts.Height)
	d.SetViewport(renderer)

	s := d.QuickSetup(opts.Track, 1)
	m := RaceModel{
		opts:       opts,
		director:   d,
		renderer:   renderer,
		keyMapper:  NewKeyMapper(),
		latch:      &ControlLatch{},
		ghostIndex: -1,
	}
	if opts.TimeTrial {
		s.Karts = s.Karts[:1]
		s.Powerups = false
		m.recorder = ghost.NewRecorder(opts.Track.ID, s.Karts[0].Type, 0, s.Laps)
		if g := opts.Ghost; g != nil && g.Track == opts.Track.ID && g.Laps == s.Laps && g.KartType < len(b.Karts) {
			m.ghostIndex = len(s.Karts)
			m.ghostPlayer = ghost.NewPlayer(g)
			s.Karts = append(s.Karts, race.Entrant{Type: g.KartType, Ghost: true, Slot: g.Slot})
		}
	}
	if err := d.Init(s); err != nil {
		return RaceModel{}, err
	}
	m.inputs = make([]core.Controls, d.KartCount())
	return m, nil
}

// Init starts the tick loop.
func (m RaceModel) Init() tea.Cmd {
	return tickCmd(m.opts.Config.Race.TickRate)
}

// Update handles messages and updates the model state.
func (m RaceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.opts.Width, m.opts.Height = msg.Width, msg.Height
		m.renderer.Resize(msg.Width, msg.Height)
		return m, nil
	case TickMsg:
		return m.handleTick()
	}
	return m, nil
}

func (m RaceModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, isQuit := m.keyMapper.MapKey(msg)
	if isQuit {
		m.quitting = true
		return m, tea.Quit
	}

	switch action {
	case core.ActionPause:
		if !m.finished {
			m.paused = !m.paused
			m.latch.Release()
		}
	case core.ActionBack:
		if m.finished || m.paused {
			m.backToMenu = true
			return m, tea.Quit
		}
	case core.ActionRestart:
		if m.finished {
			next, err := NewRaceModel(m.opts)
			if err != nil {
				return m, nil
			}
			return next, next.Init()
		}
	default:
		if !m.paused {
			m.latch.Press(action)
		}
	}
	return m, nil
}

func (m RaceModel) handleTick() (tea.Model, tea.Cmd) {
	if m.finished {
		return m, nil
	}
	if m.paused {
		return m, tickCmd(m.opts.Config.Race.TickRate)
	}
	m.step()
	if m.finished {
		return m, nil
	}
	return m, tickCmd(m.opts.Config.Race.TickRate)
}

// step runs one tick of the race and its bookkeeping.
func (m *RaceModel) step() {
	d := m.director
	player := d.Player()

	m.inputs[player] = m.latch.Tick()
	if m.recorder != nil {
		m.recorder.Record(m.inputs[player])
	}
	if m.ghostPlayer != nil {
		m.inputs[m.ghostIndex] = m.ghostPlayer.Next()
	}
	d.Loop(m.inputs, !m.opts.TimeTrial)

	k := d.Kart(player)
	if k.LapCount > m.lapsSaved {
		m.lapsSaved = k.LapCount
		m.saveLap(k.Props.Name, k.LastLapTicks)
	}
	if d.HumansDone() {
		m.finish()
	}
}

func (m *RaceModel) saveLap(kartName string, ticks int) {
	if m.opts.Store == nil {
		return
	}
	_, err := m.opts.Store.SaveLap(storage.LapTime{
		Track:  m.opts.Track.ID,
		Kart:   kartName,
		Player: m.opts.Player,
		Ticks:  ticks,
	})
	if err != nil {
		m.opts.Logger.Warn("cannot save lap", "err", err)
	}
}

func (m *RaceModel) finish() {
	m.finished = true
	m.latch.Release()
	m.results = m.director.Estimate()

	if m.recorder == nil {
		return
	}
	m.recorder.Finish(m.director.Kart(m.director.Player()).FinishTick)
	if m.opts.Store == nil {
		return
	}
	kept, err := m.opts.Store.SaveGhost(m.recorder.Ghost())
	if err != nil {
		m.opts.Logger.Warn("cannot save ghost", "err", err)
	}
	m.ghostKept = kept
}

// Director exposes the race for tests and callers.
func (m RaceModel) Director() *race.Director { return m.director }

// Finished reports whether the local player has taken the flag.
func (m RaceModel) Finished() bool { return m.finished }

// Results returns the classification once the race is over.
func (m RaceModel) Results() []race.KartStats { return m.results }

// Recording returns the ghost recorded so far, or nil outside a time trial.
func (m RaceModel) Recording() *ghost.Ghost {
	if m.recorder == nil {
		return nil
	}
	return m.recorder.Ghost()
}

// IsQuitting returns true if user requested to quit entirely.
func (m RaceModel) IsQuitting() bool { return m.quitting }

// BackToMenu returns true if user requested to go back to menu.
func (m RaceModel) BackToMenu() bool { return m.backToMenu }

var (
	resultTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).MarginBottom(1)
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 3)
	playerRowStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View renders the current state to a string for display.
func (m RaceModel) View() string {
	if m.quitting {
		return ""
	}
	if m.finished {
		return m.resultsView()
	}

	m.renderer.Draw(m.director)
	view := RenderScreen(m.renderer.Screen()) + "\n" + HUD(m.director, m.opts.Config.Race.TickRate, m.opts.Width)
	if m.paused {
		pause := resultBoxStyle.Render("PAUSED\n\n" + dimStyle.Render("p resume  b menu  q quit"))
		return lipgloss.Place(m.opts.Width, m.opts.Height, lipgloss.Center, lipgloss.Center, pause)
	}
	return view
}

func (m RaceModel) resultsView() string {
	var b strings.Builder
	b.WriteString(resultTitleStyle.Render("RESULTS - " + m.opts.Track.Name))
	b.WriteString("\n")
	rate := m.opts.Config.Race.TickRate
	for _, s := range m.results {
		line := fmt.Sprintf("%d. %-10s %8s  best lap %s", s.FinishOrder+1, s.Name, FormatTicks(s.FinishTick, rate), FormatTicks(s.BestLap, rate))
		switch {
		case s.Index == m.director.Player():
			line = playerRowStyle.Render(line + "  <")
		case s.Ghost:
			line = dimStyle.Render(line + "  ghost")
		}
		b.WriteString(line + "\n")
	}
	if m.ghostKept {
		b.WriteString("\nNew best run saved as ghost.\n")
	}
	b.WriteString("\n" + dimStyle.Render("r race again  b menu  q quit"))
	return lipgloss.Place(m.opts.Width, m.opts.Height, lipgloss.Center, lipgloss.Center, resultBoxStyle.Render(b.String()))
}

// RunRace runs a local race in the terminal. It reports whether the user
// asked to go back to the menu.
func RunRace(opts RaceOptions) (backToMenu bool, err error) {
	model, err := NewRaceModel(opts)
	if err != nil {
		return false, err
	}
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(RaceModel)
	return ok && m.BackToMenu(), nil
}
