// Package ghost records a driver's controls one byte per tick so a run can
// be replayed later as a ghost kart.
package ghost

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vovakirdan/tui-kart/internal/core"
)

// Version is bumped whenever the encoded form changes.
const Version = 1

// ErrEmpty is returned when decoding a ghost that holds no input.
var ErrEmpty = errors.New("ghost: no input recorded")

// Ghost is a recorded run. Inputs start at the first tick of the race,
// countdown included, so replaying them through the same track, kart type
// and grid slot reproduces the run exactly.
type Ghost struct {
	Version  int    `msgpack:"v"`
	Track    string `msgpack:"track"`
	KartType int    `msgpack:"kart"`
	Slot     int    `msgpack:"slot"`
	Laps     int    `msgpack:"laps"`
	Ticks    int    `msgpack:"ticks"` // race ticks to the finish, 0 if unfinished
	Inputs   []byte `msgpack:"inputs"`
}

// Finished reports whether the run reached the flag.
func (g *Ghost) Finished() bool {
	return g.Ticks > 0
}

// Len returns the number of recorded ticks.
func (g *Ghost) Len() int {
	return len(g.Inputs)
}

// Marshal encodes a ghost.
func Marshal(g *Ghost) ([]byte, error) {
	data, err := msgpack.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("ghost: encode: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a ghost.
func Unmarshal(data []byte) (*Ghost, error) {
	var g Ghost
	if err := msgpack.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("ghost: decode: %w", err)
	}
	if g.Version != Version {
		return nil, fmt.Errorf("ghost: version %d, want %d", g.Version, Version)
	}
	if len(g.Inputs) == 0 {
		return nil, ErrEmpty
	}
	return &g, nil
}

// Recorder captures one kart's controls.
type Recorder struct {
	g Ghost
}

// NewRecorder starts a recording.
func NewRecorder(trackID string, kartType, slot, laps int) *Recorder {
	return &Recorder{g: Ghost{
		Version:  Version,
		Track:    trackID,
		KartType: kartType,
		Slot:     slot,
		Laps:     laps,
	}}
}

// Record appends the controls used on one tick.
func (r *Recorder) Record(c core.Controls) {
	r.g.Inputs = append(r.g.Inputs, byte(c&core.ControlMask))
}

// Finish marks the run as finished after ticks race ticks.
func (r *Recorder) Finish(ticks int) {
	r.g.Ticks = ticks
}

// Ghost returns a copy of the recording so far.
func (r *Recorder) Ghost() *Ghost {
	g := r.g
	g.Inputs = append([]byte(nil), r.g.Inputs...)
	return &g
}

// Player replays a ghost tick by tick.
type Player struct {
	g   *Ghost
	pos int
}

// NewPlayer starts a replay from the first tick.
func NewPlayer(g *Ghost) *Player {
	return &Player{g: g}
}

// Next returns the controls for the next tick. Once the recording runs out
// the ghost coasts with no input.
func (p *Player) Next() core.Controls {
	if p.pos >= len(p.g.Inputs) {
		return 0
	}
	c := core.Controls(p.g.Inputs[p.pos])
	p.pos++
	return c
}

// Done reports whether every recorded tick has been replayed.
func (p *Player) Done() bool {
	return p.pos >= len(p.g.Inputs)
}

// Rewind restarts the replay.
func (p *Player) Rewind() {
	p.pos = 0
}
