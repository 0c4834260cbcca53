package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-kart/internal/registry"
	"github.com/vovakirdan/tui-kart/internal/storage"
)

// Times board layout constants
const (
	minWidthForSidebar = 80  // Minimum width to show the track sidebar
	sidebarWidth       = 20  // Width of track list sidebar
	maxLaps            = 100 // Max laps to load
)

// TimesKeyMap defines the key bindings for the times board.
type TimesKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	NextTrack key.Binding
	PrevTrack key.Binding
	Back      key.Binding
	Quit      key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k TimesKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextTrack, k.PrevTrack, k.Back}
}

// FullHelp returns key bindings for the full help view.
func (k TimesKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextTrack, k.PrevTrack},
		{k.Back, k.Quit},
	}
}

// DefaultTimesKeyMap returns default key bindings.
func DefaultTimesKeyMap() TimesKeyMap {
	return TimesKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		NextTrack: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next track"),
		),
		PrevTrack: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("S-tab", "prev track"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc/b", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// TimesModel is the Bubble Tea model for the lap-times board.
type TimesModel struct {
	tracks      []string
	cursor      int
	store       *storage.Store
	laps        []storage.LapTime
	stats       *storage.TrackStats
	tickRate    int
	table       table.Model
	help        help.Model
	keys        TimesKeyMap
	width       int
	height      int
	quitting    bool
	goingBack   bool
	showSidebar bool
}

// timesTracks lists built-in tracks followed by any other track with
// recorded laps.
func timesTracks(store *storage.Store) []string {
	var ids []string
	for _, t := range registry.List() {
		ids = append(ids, t.ID)
	}
	if store != nil {
		if extra, err := store.Tracks(); err == nil {
			for _, id := range extra {
				if !slices.Contains(ids, id) {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// NewTimesModel creates a new times board.
func NewTimesModel(store *storage.Store, tickRate, width, height int) TimesModel {
	h := help.New()
	h.ShowAll = false

	m := TimesModel{
		tracks:      timesTracks(store),
		store:       store,
		tickRate:    tickRate,
		keys:        DefaultTimesKeyMap(),
		help:        h,
		width:       width,
		height:      height,
		showSidebar: width >= minWidthForSidebar,
	}
	m.table = m.createTable()
	if len(m.tracks) > 0 {
		m.load(m.tracks[0])
	}
	return m
}

func (m *TimesModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Lap", Width: 8},
		{Title: "Kart", Width: 10},
		{Title: "Player", Width: 12},
		{Title: "Date", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-10, 3)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

// load reads the board for one track.
func (m *TimesModel) load(trackID string) {
	m.laps, m.stats = nil, nil
	if m.store != nil {
		if laps, err := m.store.BestLaps(trackID, maxLaps); err == nil {
			m.laps = laps
		}
		if stats, err := m.store.GetTrackStats(trackID); err == nil {
			m.stats = stats
		}
	}

	rows := make([]table.Row, len(m.laps))
	for i, l := range m.laps {
		rows[i] = table.Row{
			fmt.Sprintf("%d", i+1),
			FormatTicks(l.Ticks, m.tickRate),
			l.Kart,
			l.Player,
			l.CreatedAt.Format("Jan 02 15:04"),
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the times board.
func (m TimesModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the times board.
func (m TimesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			m.goingBack = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.NextTrack):
			if len(m.tracks) > 0 {
				m.cursor = (m.cursor + 1) % len(m.tracks)
				m.load(m.tracks[m.cursor])
			}
			return m, nil
		case key.Matches(msg, m.keys.PrevTrack):
			if len(m.tracks) > 0 {
				m.cursor = (m.cursor - 1 + len(m.tracks)) % len(m.tracks)
				m.load(m.tracks[m.cursor])
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = m.width >= minWidthForSidebar
		m.table = m.createTable()
		if len(m.tracks) > 0 {
			m.load(m.tracks[m.cursor])
		}
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the times board.
func (m TimesModel) View() string {
	if m.quitting || m.goingBack {
		return ""
	}

	var b strings.Builder
	title := "LAP TIMES"
	if len(m.tracks) > 0 {
		title = "LAP TIMES - " + m.tracks[m.cursor]
	}
	b.WriteString(resultTitleStyle.Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	body := panel.Render(m.summary() + "\n\n" + m.tableContent())

	if m.showSidebar {
		var side strings.Builder
		side.WriteString("Tracks\n" + strings.Repeat("-", sidebarWidth-4) + "\n")
		for i, id := range m.tracks {
			if i == m.cursor {
				side.WriteString(playerRowStyle.Render("> "+id) + "\n")
			} else {
				side.WriteString("  " + id + "\n")
			}
		}
		sidebar := panel.Width(sidebarWidth).Render(side.String())
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, sidebar, "  ", body))
	} else {
		b.WriteString(body)
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m TimesModel) summary() string {
	if m.stats == nil || m.stats.Laps == 0 {
		return dimStyle.Render("No laps yet")
	}
	s := fmt.Sprintf("%d laps  best %s  avg %s  %d races",
		m.stats.Laps,
		FormatTicks(m.stats.BestLap, m.tickRate),
		FormatTicks(int(m.stats.AvgLap), m.tickRate),
		m.stats.Races)
	if m.stats.GhostTicks > 0 {
		s += "  ghost " + FormatTicks(m.stats.GhostTicks, m.tickRate)
	}
	return s
}

func (m TimesModel) tableContent() string {
	if len(m.laps) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(1, 4).
			Render("No lap times recorded yet.\nFinish a lap to set one!")
	}
	return m.table.View()
}

// IsGoingBack returns true if user wants to go back to menu.
func (m TimesModel) IsGoingBack() bool { return m.goingBack }

// IsQuitting returns true if user wants to quit entirely.
func (m TimesModel) IsQuitting() bool { return m.quitting }

// RunTimes runs the times board. Returns true if the user wants to go
// back to the menu.
func RunTimes(store *storage.Store, tickRate, width, height int) (goBack bool, err error) {
	final, err := tea.NewProgram(NewTimesModel(store, tickRate, width, height), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(TimesModel)
	return ok && m.IsGoingBack(), nil
}

// centerText pads text to be centered within width.
func centerText(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	return strings.Repeat(" ", (width-w)/2) + text
}
