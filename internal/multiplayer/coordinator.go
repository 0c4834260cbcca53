package multiplayer

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-kart/internal/race"
)

// Lobby is a waiting room. The host holds seat 0; guests take the
// following seats in join order.
type Lobby struct {
	Code      string
	Track     string
	Host      SessionHandle
	Guests    []SessionHandle
	CreatedAt time.Time
}

// Seats returns everyone in the lobby in seat order.
func (l *Lobby) Seats() []SessionHandle {
	return append([]SessionHandle{l.Host}, l.Guests...)
}

func (l *Lobby) players() []SessionID {
	var ids []SessionID
	for _, s := range l.Seats() {
		ids = append(ids, s.ID())
	}
	return ids
}

// CoordinatorConfig holds coordinator settings.
type CoordinatorConfig struct {
	LobbyTimeout  time.Duration // how long a lobby with no guests lives
	CleanupPeriod time.Duration
	TickRate      int // race ticks per second
	MaxSeats      int // humans per race, at most race.MaxKarts
	MaxRaceTicks  int // zero means no limit
}

// DefaultCoordinatorConfig returns the stock settings.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		LobbyTimeout:  2 * time.Minute,
		CleanupPeriod: 30 * time.Second,
		TickRate:      16,
		MaxSeats:      4,
		MaxRaceTicks:  16 * 60 * 10,
	}
}

// DirectorFactory builds an initialized director for a race on track with
// the given number of human seats.
type DirectorFactory func(track string, humans int) (*race.Director, error)

// ResultSaver persists finished races. It lets the coordinator record
// results without depending on a storage backend.
type ResultSaver interface {
	SaveRaceResult(result ResultData) error
}

// ResultData is a finished race ready for persistence.
type ResultData struct {
	RaceID       string
	Track        string
	Laps         int
	EndReason    string
	DurationSecs int
	Standings    []Standing
}

// Coordinator manages lobbies and running races.
type Coordinator struct {
	config      CoordinatorConfig
	factory     DirectorFactory
	sessions    *SessionRegistry
	resultSaver ResultSaver
	logger      *log.Logger

	mu      sync.RWMutex
	lobbies map[string]*Lobby
	races   map[RaceID]*RaceMatch

	sessionLobby map[SessionID]string
	sessionRace  map[SessionID]RaceID

	msgChan chan CoordinatorMessage
	done    chan struct{}
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg CoordinatorConfig, factory DirectorFactory, sessions *SessionRegistry, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg.MaxSeats = min(max(cfg.MaxSeats, 1), race.MaxKarts)
	return &Coordinator{
		config:       cfg,
		factory:      factory,
		sessions:     sessions,
		logger:       logger,
		lobbies:      make(map[string]*Lobby),
		races:        make(map[RaceID]*RaceMatch),
		sessionLobby: make(map[SessionID]string),
		sessionRace:  make(map[SessionID]RaceID),
		msgChan:      make(chan CoordinatorMessage, 256),
		done:         make(chan struct{}),
	}
}

// SetResultSaver installs an optional result saver.
func (c *Coordinator) SetResultSaver(saver ResultSaver) {
	c.resultSaver = saver
}

// Start begins background processing.
func (c *Coordinator) Start() {
	go c.processMessages()
	go c.cleanupLoop()
}

// Stop shuts the coordinator down and stops every running race.
func (c *Coordinator) Stop() {
	close(c.done)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.races {
		m.Stop()
	}
}

// Send queues a message for the coordinator.
func (c *Coordinator) Send(msg CoordinatorMessage) {
	select {
	case c.msgChan <- msg:
	case <-c.done:
	}
}

func (c *Coordinator) processMessages() {
	for {
		select {
		case msg := <-c.msgChan:
			c.handleMessage(msg)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) handleMessage(msg CoordinatorMessage) {
	switch m := msg.(type) {
	case CreateLobbyMsg:
		c.handleCreateLobby(m)
	case JoinLobbyMsg:
		c.handleJoinLobby(m)
	case LeaveLobbyMsg:
		c.handleLeaveLobby(m)
	case StartRaceMsg:
		c.handleStartRace(m)
	case LeaveRaceMsg:
		c.handleLeaveRace(m.SessionID)
	case InputMsg:
		c.handleInput(m)
	case SessionDisconnectedMsg:
		c.handleSessionDisconnected(m)
	}
}

func (c *Coordinator) handleCreateLobby(msg CreateLobbyMsg) {
	session, ok := c.sessions.Get(msg.SessionID)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy(msg.SessionID) {
		session.Send(LobbyErrorEvent{Message: "Already in a lobby or race"})
		return
	}

	code := c.generateUniqueCode()
	c.lobbies[code] = &Lobby{
		Code:      code,
		Track:     msg.Track,
		Host:      session,
		CreatedAt: time.Now(),
	}
	c.sessionLobby[msg.SessionID] = code
	c.logger.Debug("lobby created", "code", code, "track", msg.Track)

	session.Send(LobbyCreatedEvent{Code: code, Track: msg.Track})
}

func (c *Coordinator) handleJoinLobby(msg JoinLobbyMsg) {
	session, ok := c.sessions.Get(msg.SessionID)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy(msg.SessionID) {
		session.Send(LobbyErrorEvent{Message: "Already in a lobby or race"})
		return
	}
	lobby, exists := c.lobbies[strings.ToUpper(msg.Code)]
	switch {
	case !exists:
		session.Send(LobbyErrorEvent{Message: "Lobby not found"})
		return
	case len(lobby.Guests)+1 >= c.config.MaxSeats:
		session.Send(LobbyErrorEvent{Message: "Lobby is full"})
		return
	}

	lobby.Guests = append(lobby.Guests, session)
	c.sessionLobby[msg.SessionID] = lobby.Code
	c.broadcastLobby(lobby)
}

func (c *Coordinator) broadcastLobby(l *Lobby) {
	players := l.players()
	for seat, s := range l.Seats() {
		s.Send(LobbyUpdatedEvent{Code: l.Code, Track: l.Track, Seat: seat, Players: players})
	}
}

func (c *Coordinator) handleLeaveLobby(msg LeaveLobbyMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lobby, exists := c.lobbies[strings.ToUpper(msg.Code)]
	if !exists {
		return
	}
	c.dropFromLobby(lobby, msg.SessionID)
}

// dropFromLobby removes a session. A host leaving closes the lobby. Must be
// called with the lock held.
func (c *Coordinator) dropFromLobby(lobby *Lobby, id SessionID) {
	delete(c.sessionLobby, id)
	if lobby.Host.ID() == id {
		for _, g := range lobby.Guests {
			g.Send(RaceEndedEvent{Reason: EndHostLeft})
			delete(c.sessionLobby, g.ID())
		}
		delete(c.lobbies, lobby.Code)
		return
	}
	i := slices.IndexFunc(lobby.Guests, func(s SessionHandle) bool { return s.ID() == id })
	if i < 0 {
		return
	}
	lobby.Guests = slices.Delete(lobby.Guests, i, i+1)
	c.broadcastLobby(lobby)
}

func (c *Coordinator) handleStartRace(msg StartRaceMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lobby, exists := c.lobbies[strings.ToUpper(msg.Code)]
	if !exists || lobby.Host.ID() != msg.SessionID {
		return
	}
	seats := lobby.Seats()

	d, err := c.factory(lobby.Track, len(seats))
	if err != nil {
		c.logger.Error("cannot create race", "track", lobby.Track, "err", err)
		for _, s := range seats {
			s.Send(LobbyErrorEvent{Message: "Failed to create race"})
		}
		return
	}

	id := NewRaceID()
	m := NewRaceMatch(id, lobby.Code, lobby.Track, d, seats, c.config.TickRate, c.config.MaxRaceTicks, c.logger)
	c.races[id] = m
	for _, s := range seats {
		delete(c.sessionLobby, s.ID())
		c.sessionRace[s.ID()] = id
	}
	delete(c.lobbies, lobby.Code)

	for seat, s := range seats {
		s.Send(m.Started(seat))
	}
	c.logger.Info("race started", "race", id, "track", lobby.Track, "seats", len(seats))

	go m.Run(func(result RaceResult) {
		c.handleRaceEnded(id, result)
	})
}

func (c *Coordinator) handleRaceEnded(id RaceID, result RaceResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, exists := c.races[id]
	if !exists {
		return
	}

	if c.resultSaver != nil {
		data := ResultData{
			RaceID:       string(id),
			Track:        m.Track(),
			Laps:         m.director.Laps(),
			EndReason:    result.Reason.String(),
			DurationSecs: result.Ticks / max(1, c.config.TickRate),
			Standings:    result.Standings,
		}
		go func() {
			if err := c.resultSaver.SaveRaceResult(data); err != nil {
				c.logger.Warn("cannot save race result", "race", id, "err", err)
			}
		}()
	}

	evt := RaceEndedEvent{RaceID: id, Reason: result.Reason, Standings: result.Standings}
	for _, s := range m.seats {
		delete(c.sessionRace, s.ID())
		s.Send(evt)
	}
	delete(c.races, id)
}

func (c *Coordinator) handleLeaveRace(id SessionID) {
	c.mu.RLock()
	m, exists := c.races[c.sessionRace[id]]
	c.mu.RUnlock()
	if exists {
		m.PlayerDisconnected(id)
	}
}

func (c *Coordinator) handleInput(msg InputMsg) {
	c.mu.RLock()
	m, exists := c.races[c.sessionRace[msg.SessionID]]
	c.mu.RUnlock()
	if !exists {
		return
	}
	if seat := m.Seat(msg.SessionID); seat >= 0 {
		m.SendInput(seat, msg.Controls)
	}
}

func (c *Coordinator) handleSessionDisconnected(msg SessionDisconnectedMsg) {
	c.mu.Lock()
	if code, ok := c.sessionLobby[msg.SessionID]; ok {
		if lobby, exists := c.lobbies[code]; exists {
			c.dropFromLobby(lobby, msg.SessionID)
		}
		delete(c.sessionLobby, msg.SessionID)
	}
	c.mu.Unlock()

	c.handleLeaveRace(msg.SessionID)
}

// busy reports whether a session is already in a lobby or race. Must be
// called with the lock held.
func (c *Coordinator) busy(id SessionID) bool {
	_, inLobby := c.sessionLobby[id]
	_, inRace := c.sessionRace[id]
	return inLobby || inRace
}

func (c *Coordinator) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanupExpiredLobbies(time.Now())
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) cleanupExpiredLobbies(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for code, lobby := range c.lobbies {
		if len(lobby.Guests) == 0 && now.Sub(lobby.CreatedAt) > c.config.LobbyTimeout {
			lobby.Host.Send(LobbyErrorEvent{Message: "Lobby expired"})
			delete(c.sessionLobby, lobby.Host.ID())
			delete(c.lobbies, code)
		}
	}
}

func (c *Coordinator) generateUniqueCode() string {
	for {
		code := generateJoinCode()
		if _, exists := c.lobbies[code]; !exists {
			return code
		}
	}
}

// generateJoinCode creates a 6-character code from the base32 alphabet.
func generateJoinCode() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%06X", time.Now().UnixNano()&0xFFFFFF)
	}
	return base32.StdEncoding.EncodeToString(b)[:6]
}

// Lobby returns a lobby by code.
func (c *Coordinator) Lobby(code string) (*Lobby, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lobbies[strings.ToUpper(code)]
	return l, ok
}

// LobbyCount returns the number of open lobbies.
func (c *Coordinator) LobbyCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lobbies)
}

// RaceCount returns the number of running races.
func (c *Coordinator) RaceCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.races)
}
