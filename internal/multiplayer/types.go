// Package multiplayer runs networked races. A coordinator gathers sessions
// into lobbies; when the host starts, a race match runs the authoritative
// director on a fixed ticker and broadcasts the per-tick packet to every
// seat. Peers mirror the race by applying those packets.
package multiplayer

import "github.com/google/uuid"

// SessionID uniquely identifies a connected player (an SSH session or a
// websocket peer).
type SessionID string

// RaceID uniquely identifies one networked race.
type RaceID string

// NewSessionID returns a fresh random session id.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// NewRaceID returns a fresh random race id.
func NewRaceID() RaceID {
	return RaceID(uuid.NewString())
}

// EndReason describes why a race ended.
type EndReason int

const (
	EndCompleted EndReason = iota // every human crossed the line
	EndAbandoned                  // every human left
	EndTimeout                    // the race ran past its tick limit
	EndCancelled                  // the lobby closed before the start
	EndHostLeft                   // the host left the lobby
)

func (r EndReason) String() string {
	switch r {
	case EndCompleted:
		return "completed"
	case EndAbandoned:
		return "abandoned"
	case EndTimeout:
		return "timeout"
	case EndCancelled:
		return "cancelled"
	case EndHostLeft:
		return "host left"
	default:
		return "unknown"
	}
}

// Standing is one kart's line in the final classification.
type Standing struct {
	Seat    int       `msgpack:"seat"` // kart index
	Session SessionID `msgpack:"session,omitempty"`
	Place   int       `msgpack:"place"` // 0 is the winner
	Ticks   int       `msgpack:"ticks"`
	BestLap int       `msgpack:"best"`
	Human   bool      `msgpack:"human"`
}
