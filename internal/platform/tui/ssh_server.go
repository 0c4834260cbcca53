package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/multiplayer"
	"github.com/vovakirdan/tui-kart/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.kart/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Bundle is the race configuration every session races with.
	Bundle config.Bundle
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
		Bundle:      config.DefaultBundle(),
	}
}

// SSHServer serves the kart menu, local races and online lobbies over SSH.
// Online races go through the shared coordinator, so SSH players and
// websocket peers can meet in the same lobby.
type SSHServer struct {
	config   SSHServerConfig
	server   *ssh.Server
	store    *storage.Store
	coord    *multiplayer.Coordinator
	sessions *multiplayer.SessionRegistry
	logger   *log.Logger
}

// NewSSHServer creates a new SSH server. The store may be nil.
func NewSSHServer(cfg SSHServerConfig, store *storage.Store, coord *multiplayer.Coordinator,
	sessions *multiplayer.SessionRegistry, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	srv := &SSHServer{
		config:   cfg,
		store:    store,
		coord:    coord,
		sessions: sessions,
		logger:   logger.WithPrefix("ssh"),
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".kart", "host_key")
	}
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}
	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	cfg := core.RuntimeConfig{
		ScreenW:  pty.Window.Width,
		ScreenH:  pty.Window.Height,
		TickRate: s.config.Bundle.Race.TickRate,
		Seed:     time.Now().UnixNano(),
	}

	var link Link
	if s.coord != nil {
		session := multiplayer.NewChannelSession(multiplayer.NewSessionID(), 0)
		s.sessions.Register(session)
		link = NewLocalLink(s.coord, session)
		go func() {
			<-sshSession.Context().Done()
			session.Close()
			s.sessions.Unregister(session.ID())
			s.coord.Send(multiplayer.SessionDisconnectedMsg{SessionID: session.ID()})
		}()
	}

	model := NewSessionModel(SessionOptions{
		Store:    s.store,
		Bundle:   s.config.Bundle,
		Runtime:  cfg,
		Username: sshSession.User(),
		Link:     link,
		Logger:   s.logger.With("user", sshSession.User()),
	})
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *SSHServer) Run(ctx context.Context) error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	errc := make(chan error, 1)
	go func() {
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, ssh.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

// SessionScreen is the part of a session currently shown.
type SessionScreen int

const (
	ScreenMenu SessionScreen = iota
	ScreenRace
	ScreenTimes
	ScreenOnline
)

// SessionOptions configures a SessionModel.
type SessionOptions struct {
	Store    *storage.Store
	Bundle   config.Bundle
	Runtime  core.RuntimeConfig
	Username string
	Link     Link // nil disables online races
	Logger   *log.Logger
}

// SessionModel manages the full session flow: menu, then a race, the
// times board or an online lobby, then back to the menu.
type SessionModel struct {
	opts       SessionOptions
	screen     SessionScreen
	difficulty config.DifficultyPreset

	menu   MenuModel
	race   RaceModel
	times  TimesModel
	online OnlineModel

	errMsg   string
	quitting bool
}

// NewSessionModel creates a new session model.
func NewSessionModel(opts SessionOptions) SessionModel {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	difficulty := opts.Bundle.Race.Difficulty
	return SessionModel{
		opts:       opts,
		difficulty: difficulty,
		menu:       NewMenuModel(opts.Runtime, difficulty, opts.Link != nil),
	}
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	return m.menu.Init()
}

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.opts.Runtime.ScreenW = wsm.Width
		m.opts.Runtime.ScreenH = wsm.Height
	}

	switch m.screen {
	case ScreenRace:
		return m.updateRace(msg)
	case ScreenTimes:
		return m.updateTimes(msg)
	case ScreenOnline:
		return m.updateOnline(msg)
	}
	return m.updateMenu(msg)
}

// updateMenu handles updates when in menu mode. The menu quits its own
// program when a choice is made; here the choice switches screens instead.
func (m SessionModel) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.menu.Update(msg)
	if menu, ok := next.(MenuModel); ok {
		m.menu = menu
	}
	rt := m.opts.Runtime

	switch {
	case m.menu.IsQuitting():
		m.quitting = true
		return m, tea.Quit

	case m.menu.WantsTimes():
		m.times = NewTimesModel(m.opts.Store, m.opts.Bundle.Race.TickRate, rt.ScreenW, rt.ScreenH)
		m.screen = ScreenTimes
		return m, m.times.Init()

	case m.menu.WantsOnline():
		m.online = NewOnlineModel(OnlineOptions{
			Link:   m.opts.Link,
			Track:  m.menu.Current().TrackID,
			Config: m.opts.Bundle,
			Logger: m.opts.Logger,
			Width:  rt.ScreenW,
			Height: rt.ScreenH,
		})
		m.screen = ScreenOnline
		return m, m.online.Init()

	case m.menu.Selected() != nil:
		m.difficulty = m.menu.Difficulty()
		res := MenuResult{
			TrackID:    m.menu.Selected().TrackID,
			Mode:       m.menu.Mode(),
			Difficulty: m.difficulty,
			Config:     rt,
		}
		opts, err := PrepareRace(res, m.opts.Bundle, m.opts.Store, m.opts.Username, m.opts.Logger)
		if err == nil {
			m.race, err = NewRaceModel(opts)
		}
		if err != nil {
			m.opts.Logger.Error("cannot start race", "track", res.TrackID, "err", err)
			m.errMsg = err.Error()
			return m.backToMenu()
		}
		m.errMsg = ""
		m.screen = ScreenRace
		return m, m.race.Init()
	}
	return m, cmd
}

func (m SessionModel) updateRace(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.race.Update(msg)
	if race, ok := next.(RaceModel); ok {
		m.race = race
	}
	switch {
	case m.race.IsQuitting():
		m.quitting = true
		return m, tea.Quit
	case m.race.BackToMenu():
		return m.backToMenu()
	}
	return m, cmd
}

func (m SessionModel) updateTimes(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.times.Update(msg)
	if times, ok := next.(TimesModel); ok {
		m.times = times
	}
	switch {
	case m.times.IsQuitting():
		m.quitting = true
		return m, tea.Quit
	case m.times.IsGoingBack():
		return m.backToMenu()
	}
	return m, cmd
}

func (m SessionModel) updateOnline(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.online.Update(msg)
	if online, ok := next.(OnlineModel); ok {
		m.online = online
	}
	switch {
	case m.online.IsQuitting():
		m.quitting = true
		return m, tea.Quit
	case m.online.BackToMenu():
		return m.backToMenu()
	}
	return m, cmd
}

func (m SessionModel) backToMenu() (tea.Model, tea.Cmd) {
	m.screen = ScreenMenu
	m.menu = NewMenuModel(m.opts.Runtime, m.difficulty, m.opts.Link != nil)
	return m, m.menu.Init()
}

// Screen reports which part of the session is shown.
func (m SessionModel) Screen() SessionScreen { return m.screen }

// View renders the current view.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}
	switch m.screen {
	case ScreenRace:
		return m.race.View()
	case ScreenTimes:
		return m.times.View()
	case ScreenOnline:
		return m.online.View()
	}
	view := m.menu.View()
	if m.errMsg != "" {
		view += "\n" + centerText("Error: "+m.errMsg, m.opts.Runtime.ScreenW)
	}
	return view
}
