package multiplayer

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/race"
	"github.com/vovakirdan/tui-kart/internal/snapshot"
)

// RaceResult is the outcome of a race match.
type RaceResult struct {
	RaceID    RaceID
	Reason    EndReason
	Standings []Standing
	Ticks     int
}

// RaceMatch is one authoritative networked race. Seat i drives kart i;
// karts past the last seat are automated.
type RaceMatch struct {
	id       RaceID
	code     string
	track    string
	director *race.Director
	codec    *snapshot.Codec
	seats    []SessionHandle
	logger   *log.Logger

	inputMu   sync.Mutex
	controls  []core.Controls
	inputChan chan seatInput

	tickRate int
	maxTicks int
	left     []bool
	done     chan struct{}
	doneOnce sync.Once

	disconnectChan chan SessionID
}

type seatInput struct {
	seat     int
	controls core.Controls
}

// NewRaceMatch wraps an initialized director. maxTicks bounds the race;
// zero means no limit.
func NewRaceMatch(id RaceID, code, trackID string, d *race.Director, seats []SessionHandle, tickRate, maxTicks int, logger *log.Logger) *RaceMatch {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RaceMatch{
		id:             id,
		code:           code,
		track:          trackID,
		director:       d,
		codec:          snapshot.NewCodec(),
		seats:          seats,
		logger:         logger,
		controls:       make([]core.Controls, d.KartCount()),
		inputChan:      make(chan seatInput, 64),
		tickRate:       tickRate,
		maxTicks:       maxTicks,
		left:           make([]bool, len(seats)),
		done:           make(chan struct{}),
		disconnectChan: make(chan SessionID, len(seats)),
	}
}

// ID returns the race id.
func (m *RaceMatch) ID() RaceID { return m.id }

// Track returns the track id.
func (m *RaceMatch) Track() string { return m.track }

// Seat returns the seat of a session, or -1.
func (m *RaceMatch) Seat(id SessionID) int {
	for i, s := range m.seats {
		if s.ID() == id {
			return i
		}
	}
	return -1
}

// Started describes the race to the session in seat.
func (m *RaceMatch) Started(seat int) RaceStartedEvent {
	types := make([]int, m.director.KartCount())
	for i := range types {
		types[i] = m.director.Kart(i).Type
	}
	return RaceStartedEvent{
		RaceID:    m.id,
		Code:      m.code,
		Seat:      seat,
		Track:     m.track,
		Laps:      m.director.Laps(),
		KartTypes: types,
	}
}

// SendInput records a seat's controls. It never blocks; if the queue is
// full the update is dropped and the previous controls stay held.
func (m *RaceMatch) SendInput(seat int, c core.Controls) {
	select {
	case m.inputChan <- seatInput{seat: seat, controls: c}:
	default:
	}
}

// PlayerDisconnected hands a session's kart to the automated driver.
func (m *RaceMatch) PlayerDisconnected(id SessionID) {
	select {
	case m.disconnectChan <- id:
	default:
	}
}

// Run drives the race on a ticker until it ends or Stop is called.
func (m *RaceMatch) Run(onComplete func(RaceResult)) {
	defer m.Stop()

	ticker := time.NewTicker(time.Second / time.Duration(max(m.tickRate, 1)))
	defer ticker.Stop()

	go m.monitorSessions()

	for {
		select {
		case <-ticker.C:
			if result, done := m.Step(); done {
				if onComplete != nil {
					onComplete(result)
				}
				return
			}
		case id := <-m.disconnectChan:
			if result, done := m.leave(id); done {
				if onComplete != nil {
					onComplete(result)
				}
				return
			}
		case <-m.done:
			return
		}
	}
}

// Step runs one tick and broadcasts its packet. It reports the result once
// the race is over.
func (m *RaceMatch) Step() (RaceResult, bool) {
	m.drainInputs()

	m.inputMu.Lock()
	inputs := append([]core.Controls(nil), m.controls...)
	m.inputMu.Unlock()

	d := m.director
	d.Loop(inputs, true)

	p := d.NextPacket()
	evt := PacketEvent{RaceID: m.id, Data: m.codec.EncodePacket(&p)}
	for i, s := range m.seats {
		if !m.left[i] {
			s.Send(evt)
		}
	}

	switch {
	case d.HumansDone():
		return m.finish(EndCompleted), true
	case m.maxTicks > 0 && d.Tick() >= m.maxTicks:
		return m.finish(EndTimeout), true
	}
	return RaceResult{}, false
}

func (m *RaceMatch) drainInputs() {
	m.inputMu.Lock()
	defer m.inputMu.Unlock()
	for {
		select {
		case in := <-m.inputChan:
			if in.seat >= 0 && in.seat < len(m.controls) {
				m.controls[in.seat] = in.controls
			}
		default:
			return
		}
	}
}

func (m *RaceMatch) leave(id SessionID) (RaceResult, bool) {
	seat := m.Seat(id)
	if seat < 0 || m.left[seat] {
		return RaceResult{}, false
	}
	m.left[seat] = true
	m.director.Kart(seat).Human = false
	m.logger.Info("player left race", "race", m.id, "seat", seat)

	for _, gone := range m.left {
		if !gone {
			return RaceResult{}, false
		}
	}
	return m.finish(EndAbandoned), true
}

// finish extrapolates anyone still racing and builds the classification.
func (m *RaceMatch) finish(reason EndReason) RaceResult {
	stats := m.director.Estimate()
	out := RaceResult{
		RaceID:    m.id,
		Reason:    reason,
		Standings: make([]Standing, len(stats)),
		Ticks:     m.director.RaceTicks(),
	}
	for i, s := range stats {
		st := Standing{Seat: s.Index, Place: s.FinishOrder, Ticks: s.FinishTick, BestLap: s.BestLap}
		if s.Index < len(m.seats) {
			st.Session = m.seats[s.Index].ID()
			st.Human = !m.left[s.Index]
		}
		out.Standings[i] = st
	}
	m.logger.Info("race over", "race", m.id, "reason", reason, "ticks", out.Ticks)
	return out
}

func (m *RaceMatch) monitorSessions() {
	for _, s := range m.seats {
		go func() {
			select {
			case <-s.Done():
				m.PlayerDisconnected(s.ID())
			case <-m.done:
			}
		}()
	}
}

// Stop ends the match loop.
func (m *RaceMatch) Stop() {
	m.doneOnce.Do(func() {
		close(m.done)
	})
}
