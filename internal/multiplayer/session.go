package multiplayer

import (
	"slices"
	"sync"
)

// SessionHandle is how the coordinator and race matches reach a session,
// whatever carries it.
type SessionHandle interface {
	ID() SessionID

	// Send queues an event. It must not block.
	Send(evt SessionEvent)

	// Done closes when the session ends.
	Done() <-chan struct{}
}

// ChannelSession is an in-process session backed by a buffered channel.
// SSH sessions and tests use it directly.
type ChannelSession struct {
	id       SessionID
	sendMu   sync.Mutex
	events   chan SessionEvent
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSession creates a session whose queue holds buffer events.
func NewChannelSession(id SessionID, buffer int) *ChannelSession {
	if buffer < 1 {
		buffer = 64
	}
	return &ChannelSession{
		id:     id,
		events: make(chan SessionEvent, buffer),
		done:   make(chan struct{}),
	}
}

// ID returns the session id.
func (s *ChannelSession) ID() SessionID {
	return s.id
}

// Send queues an event. A full queue sheds a race packet before anything
// else: each packet carries the whole race, so the next one replaces it.
// Lobby and race events only go when the queue holds nothing but them.
func (s *ChannelSession) Send(evt SessionEvent) {
	select {
	case <-s.done:
		return
	default:
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	select {
	case s.events <- evt:
		return
	default:
	}

	// Only Send writes, so while sendMu is held the drained queue can be
	// pushed back in order without blocking.
	queued := make([]SessionEvent, 0, cap(s.events)+1)
	for drained := false; !drained; {
		select {
		case e := <-s.events:
			queued = append(queued, e)
		default:
			drained = true
		}
	}
	queued = append(queued, evt)
	if len(queued) > cap(s.events) {
		queued = shed(queued)
	}
	for _, e := range queued {
		s.events <- e
	}
}

// shed drops one event: the oldest packet if there is one, else the oldest
// event.
func shed(queued []SessionEvent) []SessionEvent {
	for i, e := range queued {
		if _, ok := e.(PacketEvent); ok {
			return slices.Delete(queued, i, i+1)
		}
	}
	return queued[1:]
}

// Events is read by the session's owner.
func (s *ChannelSession) Events() <-chan SessionEvent {
	return s.events
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close ends the session. Safe to call more than once.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// SessionRegistry tracks connected sessions. Safe for concurrent use.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[SessionID]SessionHandle
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[SessionID]SessionHandle)}
}

// Register adds a session.
func (r *SessionRegistry) Register(s SessionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Unregister removes a session.
func (r *SessionRegistry) Unregister(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get looks a session up.
func (r *SessionRegistry) Get(id SessionID) (SessionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
