package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/multiplayer"
	"github.com/vovakirdan/tui-kart/internal/track"
)

// Link carries lobby and race traffic between a terminal and the
// coordinator, in process or over a websocket.
type Link interface {
	Send(msg multiplayer.CoordinatorMessage) error
	Events() <-chan multiplayer.SessionEvent
}

// localLink talks to an in-process coordinator.
type localLink struct {
	coord   *multiplayer.Coordinator
	session *multiplayer.ChannelSession
}

// NewLocalLink links a registered session to a coordinator running in the
// same process.
func NewLocalLink(coord *multiplayer.Coordinator, session *multiplayer.ChannelSession) Link {
	return localLink{coord: coord, session: session}
}

func (l localLink) Send(msg multiplayer.CoordinatorMessage) error {
	id := l.session.ID()
	switch m := msg.(type) {
	case multiplayer.CreateLobbyMsg:
		m.SessionID = id
		msg = m
	case multiplayer.JoinLobbyMsg:
		m.SessionID = id
		msg = m
	case multiplayer.LeaveLobbyMsg:
		m.SessionID = id
		msg = m
	case multiplayer.StartRaceMsg:
		m.SessionID = id
		msg = m
	case multiplayer.LeaveRaceMsg:
		m.SessionID = id
		msg = m
	case multiplayer.InputMsg:
		m.SessionID = id
		msg = m
	}
	l.coord.Send(msg)
	return nil
}

func (l localLink) Events() <-chan multiplayer.SessionEvent {
	return l.session.Events()
}

// linkClosedMsg reports that the link stopped delivering events.
type linkClosedMsg struct{}

// OnlineState represents the current state of the online flow.
type OnlineState int

const (
	OnlineStateChooseMode    OnlineState = iota // host or join
	OnlineStateJoinEnterCode                    // typing a join code
	OnlineStateConnecting                       // waiting for the coordinator
	OnlineStateLobby                            // seated, waiting for the start
	OnlineStateRacing                           // mirroring the host's race
	OnlineStateEnded                            // standings shown
)

// OnlineOptions configures the online flow.
type OnlineOptions struct {
	Link   Link
	Track  string // track offered when hosting
	Config config.Bundle
	Logger *log.Logger

	// LoadTrack resolves the track a started race runs on. Built-in tracks
	// are used when nil.
	LoadTrack func(id string) (*track.Track, error)

	// Note is shown to the host under the lobby code.
	Note string

	Width  int
	Height int
}

// OnlineModel walks a player through hosting or joining a lobby and then
// renders the mirrored race.
type OnlineModel struct {
	opts      OnlineOptions
	state     OnlineState
	keyMapper *KeyMapper
	latch     *ControlLatch
	renderer  *Renderer

	code      string
	codeInput string
	seat      int
	players   []multiplayer.SessionID
	host      bool
	errMsg    string

	mirror     *multiplayer.Mirror
	sent       core.Controls
	ended      *multiplayer.RaceEndedEvent
	quitting   bool
	backToMenu bool
}

// NewOnlineModel creates the online flow.
func NewOnlineModel(opts OnlineOptions) OnlineModel {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.LoadTrack == nil {
		opts.LoadTrack = track.NewLoader(opts.Logger).LoadBuiltin
	}
	return OnlineModel{
		opts:      opts,
		keyMapper: NewKeyMapper(),
		latch:     &ControlLatch{},
		renderer:  NewRenderer(opts.Width, opts.Height),
	}
}

// Init starts listening on the link.
func (m OnlineModel) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m OnlineModel) waitForEvent() tea.Cmd {
	events := m.opts.Link.Events()
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return linkClosedMsg{}
		}
		return evt
	}
}

// Update handles messages.
func (m OnlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.opts.Width, m.opts.Height = msg.Width, msg.Height
		m.renderer.Resize(msg.Width, msg.Height)
		return m, nil
	case TickMsg:
		return m.handleTick()
	case linkClosedMsg:
		if m.state != OnlineStateEnded {
			m.errMsg = "Connection lost"
			m.state = OnlineStateEnded
		}
		return m, nil
	case multiplayer.SessionEvent:
		m.handleEvent(msg)
		cmds := []tea.Cmd{m.waitForEvent()}
		if _, ok := msg.(multiplayer.RaceStartedEvent); ok && m.mirror != nil {
			cmds = append(cmds, tickCmd(m.opts.Config.Race.TickRate))
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *OnlineModel) handleEvent(evt multiplayer.SessionEvent) {
	switch evt := evt.(type) {
	case multiplayer.LobbyCreatedEvent:
		m.code = evt.Code
		m.host = true
		m.state = OnlineStateLobby
	case multiplayer.LobbyUpdatedEvent:
		m.code = evt.Code
		m.seat = evt.Seat
		m.players = evt.Players
		m.host = evt.Seat == 0
		m.state = OnlineStateLobby
	case multiplayer.LobbyErrorEvent:
		m.errMsg = evt.Message
		if m.state == OnlineStateConnecting {
			if m.codeInput != "" {
				m.state = OnlineStateJoinEnterCode
			} else {
				m.state = OnlineStateChooseMode
			}
		}
	case multiplayer.RaceStartedEvent:
		m.startMirror(evt)
	case multiplayer.PacketEvent:
		if m.mirror == nil {
			return
		}
		if _, err := m.mirror.Apply(evt.Data); err != nil {
			m.opts.Logger.Debug("bad packet", "err", err)
		}
	case multiplayer.RaceEndedEvent:
		m.ended = &evt
		m.latch.Release()
		m.state = OnlineStateEnded
	}
}

func (m *OnlineModel) startMirror(evt multiplayer.RaceStartedEvent) {
	tr, err := m.opts.LoadTrack(evt.Track)
	if err == nil {
		b := m.opts.Config
		m.mirror, err = multiplayer.NewMirror(evt, tr, b.Race, b.Karts, b.Tuning, m.opts.Logger)
	}
	if err != nil {
		m.opts.Logger.Error("cannot mirror race", "race", evt.RaceID, "err", err)
		m.errMsg = err.Error()
		_ = m.opts.Link.Send(multiplayer.LeaveRaceMsg{})
		m.state = OnlineStateEnded
		return
	}
	m.seat = evt.Seat
	m.mirror.Director().SetViewport(m.renderer)
	m.sent = 0
	m.state = OnlineStateRacing
}

// handleTick forwards the latched controls whenever they change.
func (m OnlineModel) handleTick() (tea.Model, tea.Cmd) {
	if m.state != OnlineStateRacing {
		return m, nil
	}
	c := m.latch.Tick()
	if c != m.sent {
		if err := m.opts.Link.Send(multiplayer.InputMsg{Controls: c}); err != nil {
			m.opts.Logger.Debug("cannot send input", "err", err)
		}
		m.sent = c
	}
	return m, tickCmd(m.opts.Config.Race.TickRate)
}

func (m OnlineModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.leave()
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state {
	case OnlineStateChooseMode:
		return m.handleChooseModeKey(msg)
	case OnlineStateJoinEnterCode:
		return m.handleJoinCodeKey(msg)
	case OnlineStateConnecting, OnlineStateLobby:
		return m.handleLobbyKey(msg)
	case OnlineStateRacing:
		return m.handleRacingKey(msg)
	case OnlineStateEnded:
		switch m.keyMapper.MapKeyToMenuAction(msg) {
		case MenuActionQuit:
			m.quitting = true
			return m, tea.Quit
		case MenuActionBack, MenuActionSelect:
			m.backToMenu = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m OnlineModel) handleChooseModeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "H", "1":
		m.errMsg = ""
		m.codeInput = ""
		m.state = OnlineStateConnecting
		m.send(multiplayer.CreateLobbyMsg{Track: m.opts.Track})
	case "j", "J", "2":
		m.state = OnlineStateJoinEnterCode
		m.codeInput = ""
		m.errMsg = ""
	case "esc", "b":
		m.backToMenu = true
		return m, tea.Quit
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m OnlineModel) handleJoinCodeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc":
		m.state = OnlineStateChooseMode
	case "enter":
		if m.codeInput != "" {
			m.errMsg = ""
			m.state = OnlineStateConnecting
			m.send(multiplayer.JoinLobbyMsg{Code: m.codeInput})
		}
	case "backspace":
		if m.codeInput != "" {
			m.codeInput = m.codeInput[:len(m.codeInput)-1]
		}
	default:
		if len(key) == 1 && len(m.codeInput) < 6 {
			c := strings.ToUpper(key)
			if (c[0] >= 'A' && c[0] <= 'Z') || (c[0] >= '0' && c[0] <= '9') {
				m.codeInput += c
			}
		}
	}
	return m, nil
}

func (m OnlineModel) handleLobbyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "s":
		if m.host && m.state == OnlineStateLobby {
			m.send(multiplayer.StartRaceMsg{Code: m.code})
		}
	case "esc", "b":
		m.leave()
		m.code = ""
		m.players = nil
		m.host = false
		m.state = OnlineStateChooseMode
	}
	return m, nil
}

func (m OnlineModel) handleRacingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, isQuit := m.keyMapper.MapKey(msg)
	if isQuit {
		m.leave()
		m.quitting = true
		return m, tea.Quit
	}
	switch action {
	case core.ActionBack:
		m.leave()
		m.backToMenu = true
		return m, tea.Quit
	default:
		m.latch.Press(action)
	}
	return m, nil
}

// leave tells the coordinator this player is gone from whatever it is in.
func (m *OnlineModel) leave() {
	switch m.state {
	case OnlineStateLobby, OnlineStateConnecting:
		if m.code != "" {
			m.send(multiplayer.LeaveLobbyMsg{Code: m.code})
		}
	case OnlineStateRacing:
		m.send(multiplayer.LeaveRaceMsg{})
	}
}

func (m *OnlineModel) send(msg multiplayer.CoordinatorMessage) {
	if err := m.opts.Link.Send(msg); err != nil {
		if errors.Is(err, multiplayer.ErrClosed) {
			m.errMsg = "Connection lost"
			m.state = OnlineStateEnded
			return
		}
		m.errMsg = err.Error()
	}
}

// View renders the current state.
func (m OnlineModel) View() string {
	if m.quitting {
		return ""
	}
	w := m.opts.Width

	if m.state == OnlineStateRacing {
		d := m.mirror.Director()
		m.renderer.Draw(d)
		return RenderScreen(m.renderer.Screen()) + "\n" + HUD(d, m.opts.Config.Race.TickRate, w)
	}

	var b strings.Builder
	b.WriteString("\n")
	switch m.state {
	case OnlineStateChooseMode:
		b.WriteString(resultTitleStyle.Render(centerText("ONLINE RACE", w)))
		b.WriteString("\n\n")
		b.WriteString(centerText("[H] Host a race on "+m.opts.Track, w))
		b.WriteString("\n")
		b.WriteString(centerText("[J] Join a race", w))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render(centerText("Esc: Back  |  Q: Quit", w)))
	case OnlineStateJoinEnterCode:
		b.WriteString(resultTitleStyle.Render(centerText("JOIN RACE", w)))
		b.WriteString("\n\n")
		code := m.codeInput
		if len(code) < 6 {
			code += "_" + strings.Repeat(" ", 5-len(m.codeInput))
		}
		b.WriteString(centerText(fmt.Sprintf("[ %s ]", code), w))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render(centerText("Enter: Connect  |  Esc: Back", w)))
	case OnlineStateConnecting:
		b.WriteString(centerText("Connecting...", w))
	case OnlineStateLobby:
		b.WriteString(m.lobbyView())
	case OnlineStateEnded:
		return m.endedView()
	}
	if m.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(centerText("Error: "+m.errMsg, w))
	}
	return b.String()
}

func (m OnlineModel) lobbyView() string {
	w := m.opts.Width
	var b strings.Builder
	b.WriteString(resultTitleStyle.Render(centerText("LOBBY", w)))
	b.WriteString("\n\n")
	b.WriteString(centerText("Share this code:", w))
	b.WriteString("\n")
	b.WriteString(playerRowStyle.Render(centerText(fmt.Sprintf("[ %s ]", m.code), w)))
	b.WriteString("\n\n")
	if m.host && m.opts.Note != "" {
		b.WriteString(dimStyle.Render(centerText(m.opts.Note, w)))
		b.WriteString("\n\n")
	}
	for i := range max(len(m.players), 1) {
		label := fmt.Sprintf("Seat %d", i+1)
		if i == 0 {
			label += " (host)"
		}
		if i == m.seat {
			label += "  < you"
		}
		b.WriteString(centerText(label, w))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.host {
		b.WriteString(dimStyle.Render(centerText("Enter: Start  |  Esc: Close lobby", w)))
	} else {
		b.WriteString(dimStyle.Render(centerText("Waiting for the host to start  |  Esc: Leave", w)))
	}
	return b.String()
}

func (m OnlineModel) endedView() string {
	var b strings.Builder
	if m.ended == nil {
		b.WriteString(resultTitleStyle.Render("DISCONNECTED"))
		b.WriteString("\n" + m.errMsg + "\n")
	} else {
		b.WriteString(resultTitleStyle.Render("RACE OVER - " + m.ended.Reason.String()))
		b.WriteString("\n")
		rate := m.opts.Config.Race.TickRate
		for _, s := range m.ended.Standings {
			who := "cpu"
			if s.Human {
				who = "player"
			}
			line := fmt.Sprintf("%d. kart %d  %-6s %8s  best lap %s", s.Place+1, s.Seat+1, who,
				FormatTicks(s.Ticks, rate), FormatTicks(s.BestLap, rate))
			if s.Seat == m.seat {
				line = playerRowStyle.Render(line + "  <")
			}
			b.WriteString(line + "\n")
		}
	}
	b.WriteString("\n" + dimStyle.Render("enter menu  q quit"))
	return lipgloss.Place(m.opts.Width, m.opts.Height, lipgloss.Center, lipgloss.Center, resultBoxStyle.Render(b.String()))
}

// State returns the current online state.
func (m OnlineModel) State() OnlineState { return m.state }

// Code returns the lobby code once seated.
func (m OnlineModel) Code() string { return m.code }

// Mirror returns the mirrored race while racing.
func (m OnlineModel) Mirror() *multiplayer.Mirror { return m.mirror }

// Ended returns the final event, nil until the race is over.
func (m OnlineModel) Ended() *multiplayer.RaceEndedEvent { return m.ended }

// BackToMenu returns true if user wants to go back to menu.
func (m OnlineModel) BackToMenu() bool { return m.backToMenu }

// IsQuitting returns true if user wants to quit entirely.
func (m OnlineModel) IsQuitting() bool { return m.quitting }

// RunOnline runs the online flow in the terminal over a link.
func RunOnline(opts OnlineOptions) (backToMenu bool, err error) {
	final, err := tea.NewProgram(NewOnlineModel(opts), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(OnlineModel)
	return ok && m.BackToMenu(), nil
}
