package multiplayer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/tui-kart/internal/core"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameSize   = 4096
	sendBufferSize = 64
)

// wsSession is a websocket peer. Events are queued by Send and written by
// a dedicated goroutine.
type wsSession struct {
	*ChannelSession
	conn   *websocket.Conn
	logger *log.Logger
}

// Handler upgrades HTTP requests to websocket peers and feeds their frames
// to the coordinator.
type Handler struct {
	coord    *Coordinator
	sessions *SessionRegistry
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler.
func NewHandler(coord *Coordinator, sessions *SessionRegistry, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{
		coord:    coord,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	s := &wsSession{
		ChannelSession: NewChannelSession(NewSessionID(), sendBufferSize),
		conn:           conn,
		logger:         h.logger,
	}
	h.sessions.Register(s)
	h.logger.Info("peer connected", "session", s.ID(), "remote", r.RemoteAddr)

	go s.writeLoop()
	s.readLoop(h.coord)

	s.Close()
	h.sessions.Unregister(s.ID())
	h.coord.Send(SessionDisconnectedMsg{SessionID: s.ID()})
	h.logger.Info("peer disconnected", "session", s.ID())
}

func (s *wsSession) readLoop(coord *Coordinator) {
	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		typ, frame, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		msg, err := DecodeMessage(frame, s.ID())
		if err != nil {
			s.logger.Debug("discarding frame", "session", s.ID(), "err", err)
			continue
		}
		coord.Send(msg)
	}
}

func (s *wsSession) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case evt := <-s.Events():
			frame, err := EncodeEvent(evt)
			if err != nil {
				s.logger.Error("cannot frame event", "session", s.ID(), "err", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// ErrClosed is returned by a client after its connection has ended.
var ErrClosed = errors.New("multiplayer: connection closed")

// Client is a peer's connection to a race server.
type Client struct {
	conn   *websocket.Conn
	events chan SessionEvent
	logger *log.Logger

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
	err     error
}

// Dial connects to a server at a ws:// or wss:// url.
func Dial(ctx context.Context, url string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:   conn,
		events: make(chan SessionEvent, sendBufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		evt, err := DecodeEvent(frame)
		if err != nil {
			c.logger.Debug("discarding frame", "err", err)
			continue
		}
		select {
		case c.events <- evt:
		case <-c.done:
			return
		}
	}
}

// Events delivers server events until the connection ends.
func (c *Client) Events() <-chan SessionEvent { return c.events }

// Err reports why the connection ended.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Send forwards a message to the server. The session id is stamped by the
// server.
func (c *Client) Send(msg CoordinatorMessage) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	frame, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Create opens a lobby on a track.
func (c *Client) Create(track string) error { return c.Send(CreateLobbyMsg{Track: track}) }

// Join takes a seat in a lobby.
func (c *Client) Join(code string) error { return c.Send(JoinLobbyMsg{Code: code}) }

// Leave leaves a lobby.
func (c *Client) Leave(code string) error { return c.Send(LeaveLobbyMsg{Code: code}) }

// Start starts the race in a lobby the client hosts.
func (c *Client) Start(code string) error { return c.Send(StartRaceMsg{Code: code}) }

// Quit leaves the running race.
func (c *Client) Quit() error { return c.Send(LeaveRaceMsg{}) }

// SendInput sends the current controls.
func (c *Client) SendInput(in core.Controls) error { return c.Send(InputMsg{Controls: in}) }

// Close ends the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	c.shutdown(ErrClosed)
	return c.conn.Close()
}

func (c *Client) shutdown(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}
