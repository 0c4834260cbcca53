package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/registry"
)

// RaceMode selects how a local race is run.
type RaceMode int

const (
	ModeRace      RaceMode = iota // against the automated field
	ModeTimeTrial                 // alone against the best ghost
)

func (m RaceMode) String() string {
	if m == ModeTimeTrial {
		return "Time trial"
	}
	return "Race"
}

// MenuItem represents a selectable track in the menu.
type MenuItem struct {
	TrackID string
	Title   string
}

// MenuModel is the Bubble Tea model for the track picker.
type MenuModel struct {
	items       []MenuItem
	cursor      int
	mode        RaceMode
	difficulty  int // index into config.Presets
	config      core.RuntimeConfig
	keyMapper   *KeyMapper
	allowOnline bool

	quitting   bool
	selected   *MenuItem
	openTimes  bool
	openOnline bool
}

// NewMenuModel creates a new menu model. The online entry is offered only
// when allowOnline is set.
func NewMenuModel(cfg core.RuntimeConfig, difficulty config.DifficultyPreset, allowOnline bool) MenuModel {
	tracks := registry.List()
	items := make([]MenuItem, 0, len(tracks))
	for _, t := range tracks {
		items = append(items, MenuItem{TrackID: t.ID, Title: t.Title})
	}
	return MenuModel{
		items:       items,
		difficulty:  max(slices.Index(config.Presets(), difficulty), 0),
		config:      cfg,
		keyMapper:   NewKeyMapper(),
		allowOnline: allowOnline,
	}
}

// Init initializes the menu model.
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu.
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.config.ScreenW = msg.Width
		m.config.ScreenH = msg.Height
	}
	return m, nil
}

func (m MenuModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.openTimes = true
		return m, tea.Quit
	case "o":
		if m.allowOnline {
			m.openOnline = true
			return m, tea.Quit
		}
	case "t":
		m.mode = 1 - m.mode
		return m, nil
	}

	presets := config.Presets()
	switch m.keyMapper.MapKeyToMenuAction(msg) {
	case MenuActionQuit:
		m.quitting = true
		return m, tea.Quit
	case MenuActionUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case MenuActionDown:
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case MenuActionLeft:
		m.difficulty = (m.difficulty - 1 + len(presets)) % len(presets)
	case MenuActionRight:
		m.difficulty = (m.difficulty + 1) % len(presets)
	case MenuActionSelect:
		if len(m.items) > 0 {
			selected := m.items[m.cursor]
			m.selected = &selected
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the menu.
func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}
	w := m.config.ScreenW

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(resultTitleStyle.Render(centerText("  T U I   K A R T  ", w)))
	b.WriteString("\n\n")
	b.WriteString(centerText("Select a track", w))
	b.WriteString("\n\n")

	for i, item := range m.items {
		line := "  " + item.Title
		if i == m.cursor {
			line = playerRowStyle.Render("> " + item.Title)
		}
		b.WriteString(centerText(line, w))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	settings := fmt.Sprintf("Mode: %s   Difficulty: < %s >", m.mode, m.Difficulty())
	b.WriteString(centerText(settings, w))
	b.WriteString("\n\n")

	controls := "Up/Down: Track  |  Left/Right: Difficulty  |  T: Mode  |  Enter: Race  |  Tab: Times"
	if m.allowOnline {
		controls += "  |  O: Online"
	}
	b.WriteString(dimStyle.Render(centerText(controls+"  |  Q: Quit", w)))
	b.WriteString("\n")
	return b.String()
}

// Selected returns the selected menu item, or nil if none selected.
func (m MenuModel) Selected() *MenuItem { return m.selected }

// Current returns the track under the cursor.
func (m MenuModel) Current() MenuItem {
	if len(m.items) == 0 {
		return MenuItem{}
	}
	return m.items[m.cursor]
}

// Mode returns the chosen race mode.
func (m MenuModel) Mode() RaceMode { return m.mode }

// Difficulty returns the chosen difficulty preset.
func (m MenuModel) Difficulty() config.DifficultyPreset {
	return config.Presets()[m.difficulty]
}

// IsQuitting returns true if user requested to quit.
func (m MenuModel) IsQuitting() bool { return m.quitting }

// WantsTimes returns true if user requested the times board.
func (m MenuModel) WantsTimes() bool { return m.openTimes }

// WantsOnline returns true if user requested an online race.
func (m MenuModel) WantsOnline() bool { return m.openOnline }

// Config returns the current runtime config (may have been updated by resize).
func (m MenuModel) Config() core.RuntimeConfig { return m.config }

// MenuResult holds the result of running the menu.
type MenuResult struct {
	TrackID    string
	Mode       RaceMode
	Difficulty config.DifficultyPreset
	Config     core.RuntimeConfig
	WantsTimes bool
	Quit       bool
}

// RunMenu runs the menu and returns the selection result.
func RunMenu(cfg core.RuntimeConfig, difficulty config.DifficultyPreset) (MenuResult, error) {
	final, err := tea.NewProgram(NewMenuModel(cfg, difficulty, false), tea.WithAltScreen()).Run()
	if err != nil {
		return MenuResult{Config: cfg}, err
	}
	m, ok := final.(MenuModel)
	if !ok {
		return MenuResult{Config: cfg, Quit: true}, nil
	}

	result := MenuResult{Config: m.Config(), Mode: m.Mode(), Difficulty: m.Difficulty()}
	switch {
	case m.WantsTimes():
		result.WantsTimes = true
	case m.IsQuitting() || m.Selected() == nil:
		result.Quit = true
	default:
		result.TrackID = m.Selected().TrackID
	}
	return result, nil
}
