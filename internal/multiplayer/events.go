package multiplayer

import "github.com/vovakirdan/tui-kart/internal/core"

// SessionEvent is sent from the coordinator to a session.
type SessionEvent interface {
	sessionEvent()
}

// LobbyCreatedEvent confirms a new lobby to its host.
type LobbyCreatedEvent struct {
	Code  string `msgpack:"code"`
	Track string `msgpack:"track"`
}

func (LobbyCreatedEvent) sessionEvent() {}

// LobbyErrorEvent reports a failed lobby operation.
type LobbyErrorEvent struct {
	Message string `msgpack:"msg"`
}

func (LobbyErrorEvent) sessionEvent() {}

// LobbyUpdatedEvent is sent to everyone in a lobby when a player joins or
// leaves. Players are listed in seat order, host first.
type LobbyUpdatedEvent struct {
	Code    string      `msgpack:"code"`
	Track   string      `msgpack:"track"`
	Seat    int         `msgpack:"seat"` // the receiver's seat
	Players []SessionID `msgpack:"players"`
}

func (LobbyUpdatedEvent) sessionEvent() {}

// RaceStartedEvent carries what a peer needs to build its mirror.
type RaceStartedEvent struct {
	RaceID    RaceID `msgpack:"race"`
	Code      string `msgpack:"code"`
	Seat      int    `msgpack:"seat"`
	Track     string `msgpack:"track"`
	Laps      int    `msgpack:"laps"`
	KartTypes []int  `msgpack:"types"`
}

func (RaceStartedEvent) sessionEvent() {}

// RaceEndedEvent closes a race, or a lobby that never started.
type RaceEndedEvent struct {
	RaceID    RaceID     `msgpack:"race"`
	Reason    EndReason  `msgpack:"reason"`
	Standings []Standing `msgpack:"standings"`
}

func (RaceEndedEvent) sessionEvent() {}

// PacketEvent carries one encoded per-tick packet.
type PacketEvent struct {
	RaceID RaceID
	Data   []byte
}

func (PacketEvent) sessionEvent() {}

// CoordinatorMessage is sent from a session to the coordinator.
type CoordinatorMessage interface {
	coordinatorMessage()
}

// CreateLobbyMsg opens a lobby on a track.
type CreateLobbyMsg struct {
	SessionID SessionID `msgpack:"-"`
	Track     string    `msgpack:"track"`
}

func (CreateLobbyMsg) coordinatorMessage() {}

// JoinLobbyMsg takes the next free seat in a lobby.
type JoinLobbyMsg struct {
	SessionID SessionID `msgpack:"-"`
	Code      string    `msgpack:"code"`
}

func (JoinLobbyMsg) coordinatorMessage() {}

// LeaveLobbyMsg leaves a lobby. A leaving host closes it.
type LeaveLobbyMsg struct {
	SessionID SessionID `msgpack:"-"`
	Code      string    `msgpack:"code"`
}

func (LeaveLobbyMsg) coordinatorMessage() {}

// StartRaceMsg is sent by the host to start the race.
type StartRaceMsg struct {
	SessionID SessionID `msgpack:"-"`
	Code      string    `msgpack:"code"`
}

func (StartRaceMsg) coordinatorMessage() {}

// LeaveRaceMsg leaves a running race; the kart is handed to the automated
// driver.
type LeaveRaceMsg struct {
	SessionID SessionID `msgpack:"-"`
}

func (LeaveRaceMsg) coordinatorMessage() {}

// InputMsg carries a session's current controls. They are held until the
// next InputMsg from the same session.
type InputMsg struct {
	SessionID SessionID
	Controls  core.Controls
}

func (InputMsg) coordinatorMessage() {}

// SessionDisconnectedMsg is sent when a session's connection ends.
type SessionDisconnectedMsg struct {
	SessionID SessionID
}

func (SessionDisconnectedMsg) coordinatorMessage() {}
