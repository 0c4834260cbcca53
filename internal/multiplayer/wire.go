package multiplayer

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vovakirdan/tui-kart/internal/core"
)

// Websocket frames are binary. The first byte selects the frame kind:
// packets and inputs are sent raw to keep the per-tick traffic small,
// everything else is a msgpack envelope.
const (
	framePacket  byte = 'P'
	frameInput   byte = 'I'
	frameMessage byte = 'M'
)

// ErrBadFrame is returned for frames that cannot be decoded.
var ErrBadFrame = errors.New("multiplayer: bad frame")

type envelope struct {
	Kind string             `msgpack:"k"`
	Body msgpack.RawMessage `msgpack:"b"`
}

const (
	kindCreate  = "create"
	kindJoin    = "join"
	kindLeave   = "leave"
	kindStart   = "start"
	kindQuit    = "quit"
	kindCreated = "created"
	kindError   = "error"
	kindLobby   = "lobby"
	kindStarted = "started"
	kindEnded   = "ended"
)

func encodeEnvelope(kind string, body any) ([]byte, error) {
	b, err := msgpack.Marshal(body)
	if err != nil {
		return nil, err
	}
	e, err := msgpack.Marshal(envelope{Kind: kind, Body: b})
	if err != nil {
		return nil, err
	}
	return append([]byte{frameMessage}, e...), nil
}

// EncodeEvent frames an event for a peer.
func EncodeEvent(evt SessionEvent) ([]byte, error) {
	switch e := evt.(type) {
	case PacketEvent:
		return append([]byte{framePacket}, e.Data...), nil
	case LobbyCreatedEvent:
		return encodeEnvelope(kindCreated, e)
	case LobbyErrorEvent:
		return encodeEnvelope(kindError, e)
	case LobbyUpdatedEvent:
		return encodeEnvelope(kindLobby, e)
	case RaceStartedEvent:
		return encodeEnvelope(kindStarted, e)
	case RaceEndedEvent:
		return encodeEnvelope(kindEnded, e)
	}
	return nil, fmt.Errorf("multiplayer: cannot frame %T", evt)
}

// DecodeEvent parses a frame sent by the server. Packet events carry no
// race id on the wire.
func DecodeEvent(frame []byte) (SessionEvent, error) {
	if len(frame) == 0 {
		return nil, ErrBadFrame
	}
	switch frame[0] {
	case framePacket:
		return PacketEvent{Data: append([]byte(nil), frame[1:]...)}, nil
	case frameMessage:
	default:
		return nil, ErrBadFrame
	}

	var env envelope
	if err := msgpack.Unmarshal(frame[1:], &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	var (
		evt SessionEvent
		err error
	)
	switch env.Kind {
	case kindCreated:
		var e LobbyCreatedEvent
		err = msgpack.Unmarshal(env.Body, &e)
		evt = e
	case kindError:
		var e LobbyErrorEvent
		err = msgpack.Unmarshal(env.Body, &e)
		evt = e
	case kindLobby:
		var e LobbyUpdatedEvent
		err = msgpack.Unmarshal(env.Body, &e)
		evt = e
	case kindStarted:
		var e RaceStartedEvent
		err = msgpack.Unmarshal(env.Body, &e)
		evt = e
	case kindEnded:
		var e RaceEndedEvent
		err = msgpack.Unmarshal(env.Body, &e)
		evt = e
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadFrame, env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return evt, nil
}

// EncodeMessage frames a peer request. The session id is never sent; the
// server stamps it.
func EncodeMessage(msg CoordinatorMessage) ([]byte, error) {
	switch m := msg.(type) {
	case InputMsg:
		return []byte{frameInput, byte(m.Controls)}, nil
	case CreateLobbyMsg:
		return encodeEnvelope(kindCreate, m)
	case JoinLobbyMsg:
		return encodeEnvelope(kindJoin, m)
	case LeaveLobbyMsg:
		return encodeEnvelope(kindLeave, m)
	case StartRaceMsg:
		return encodeEnvelope(kindStart, m)
	case LeaveRaceMsg:
		return encodeEnvelope(kindQuit, m)
	}
	return nil, fmt.Errorf("multiplayer: cannot frame %T", msg)
}

// DecodeMessage parses a peer frame and stamps it with the sender.
func DecodeMessage(frame []byte, from SessionID) (CoordinatorMessage, error) {
	if len(frame) == 0 {
		return nil, ErrBadFrame
	}
	switch frame[0] {
	case frameInput:
		if len(frame) != 2 {
			return nil, ErrBadFrame
		}
		return InputMsg{SessionID: from, Controls: core.Controls(frame[1]) & core.ControlMask}, nil
	case frameMessage:
	default:
		return nil, ErrBadFrame
	}

	var env envelope
	if err := msgpack.Unmarshal(frame[1:], &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	var (
		msg CoordinatorMessage
		err error
	)
	switch env.Kind {
	case kindCreate:
		var m CreateLobbyMsg
		err = msgpack.Unmarshal(env.Body, &m)
		m.SessionID = from
		msg = m
	case kindJoin:
		var m JoinLobbyMsg
		err = msgpack.Unmarshal(env.Body, &m)
		m.SessionID = from
		msg = m
	case kindLeave:
		var m LeaveLobbyMsg
		err = msgpack.Unmarshal(env.Body, &m)
		m.SessionID = from
		msg = m
	case kindStart:
		var m StartRaceMsg
		err = msgpack.Unmarshal(env.Body, &m)
		m.SessionID = from
		msg = m
	case kindQuit:
		msg = LeaveRaceMsg{SessionID: from}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadFrame, env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return msg, nil
}
