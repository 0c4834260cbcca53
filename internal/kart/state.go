package kart

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/rng"
)

// State is the complete saved form of a kart. Handling properties are not
// stored; they are looked up again from the kart type on restore.
type State struct {
	Type   int  `msgpack:"type"`
	Human  bool `msgpack:"human"`
	Remote bool `msgpack:"remote"`
	Ghost  bool `msgpack:"ghost"`

	PosX     int32  `msgpack:"px"`
	PosY     int32  `msgpack:"py"`
	PrevX    int32  `msgpack:"ppx"`
	PrevY    int32  `msgpack:"ppy"`
	Heading  uint16 `msgpack:"hdg"`
	VelX     int32  `msgpack:"vx"`
	VelY     int32  `msgpack:"vy"`
	Speed    int32  `msgpack:"spd"`
	Traction int32  `msgpack:"trc"`
	Friction int32  `msgpack:"frc"`
	Boost    bool   `msgpack:"bst"`

	LapCount          int    `msgpack:"lap"`
	DistanceThisLap   int32  `msgpack:"dist"`
	FinishOrder       int    `msgpack:"fin"`
	RaceRank          int    `msgpack:"rank"`
	RacingLine        int    `msgpack:"line"`
	NextWaypoint      int    `msgpack:"wp"`
	SegmentDwellTicks int    `msgpack:"dwell"`
	BumpTimer         int    `msgpack:"bump"`
	PickupCount       int    `msgpack:"pick"`
	Powerup           uint8  `msgpack:"pu"`
	PowerupTimer      int    `msgpack:"put"`
	LastSegment       int    `msgpack:"seg"`
	ValidLap          bool   `msgpack:"valid"`
	SpinSide          int    `msgpack:"spin"`
	ReverseTicks      int    `msgpack:"rev"`
	ReverseSide       int    `msgpack:"revs"`
	Events            uint8  `msgpack:"ev"`
	Effect            uint8  `msgpack:"fx"`
	JumpedGun         bool   `msgpack:"jump"`
	RNG               uint64 `msgpack:"rng"`

	LapStartTick int `msgpack:"lst"`
	LastLapTicks int `msgpack:"llt"`
	BestLapTicks int `msgpack:"blt"`
	FinishTick   int `msgpack:"ft"`
}

// State captures every per-race field of the kart.
func (k *Kart) State() State {
	return State{
		Type:              k.Type,
		Human:             k.Human,
		Remote:            k.Remote,
		Ghost:             k.Ghost,
		PosX:              int32(k.Position.X),
		PosY:              int32(k.Position.Y),
		PrevX:             int32(k.PreviousPosition.X),
		PrevY:             int32(k.PreviousPosition.Y),
		Heading:           uint16(k.Heading),
		VelX:              int32(k.Velocity.X),
		VelY:              int32(k.Velocity.Y),
		Speed:             int32(k.Speed),
		Traction:          k.Surface.Traction,
		Friction:          k.Surface.Friction,
		Boost:             k.Surface.Boost,
		LapCount:          k.LapCount,
		DistanceThisLap:   int32(k.DistanceThisLap),
		FinishOrder:       k.FinishOrder,
		RaceRank:          k.RaceRank,
		RacingLine:        k.RacingLine,
		NextWaypoint:      k.NextWaypoint,
		SegmentDwellTicks: k.SegmentDwellTicks,
		BumpTimer:         k.BumpTimer,
		PickupCount:       k.PickupCount,
		Powerup:           uint8(k.Powerup),
		PowerupTimer:      k.PowerupTimer,
		LastSegment:       k.LastSegment,
		ValidLap:          k.ValidLap,
		SpinSide:          k.SpinSide,
		ReverseTicks:      k.ReverseTicks,
		ReverseSide:       k.ReverseSide,
		Events:            uint8(k.Events),
		Effect:            uint8(k.Effect),
		JumpedGun:         k.JumpedGun,
		RNG:               k.RNG.State,
		LapStartTick:      k.LapStartTick,
		LastLapTicks:      k.LastLapTicks,
		BestLapTicks:      k.BestLapTicks,
		FinishTick:        k.FinishTick,
	}
}

// Restore overwrites the kart with a saved state. props must be the
// property set of s.Type.
func (k *Kart) Restore(s State, props Properties) {
	idx, tune := k.Index, k.tune
	*k = Kart{
		Index:             idx,
		Type:              s.Type,
		Props:             props,
		Human:             s.Human,
		Remote:            s.Remote,
		Ghost:             s.Ghost,
		Position:          fixed.Vec{X: fixed.Fixed(s.PosX), Y: fixed.Fixed(s.PosY)},
		PreviousPosition:  fixed.Vec{X: fixed.Fixed(s.PrevX), Y: fixed.Fixed(s.PrevY)},
		Heading:           fixed.Angle(s.Heading),
		Velocity:          fixed.Vec{X: fixed.Fixed(s.VelX), Y: fixed.Fixed(s.VelY)},
		Speed:             fixed.Fixed(s.Speed),
		LapCount:          s.LapCount,
		DistanceThisLap:   fixed.Fixed(s.DistanceThisLap),
		FinishOrder:       s.FinishOrder,
		RaceRank:          s.RaceRank,
		RacingLine:        s.RacingLine,
		NextWaypoint:      s.NextWaypoint,
		SegmentDwellTicks: s.SegmentDwellTicks,
		BumpTimer:         s.BumpTimer,
		PickupCount:       s.PickupCount,
		Powerup:           Powerup(s.Powerup),
		PowerupTimer:      s.PowerupTimer,
		LastSegment:       s.LastSegment,
		ValidLap:          s.ValidLap,
		Surface:           Surface{Traction: s.Traction, Friction: s.Friction, Boost: s.Boost},
		SpinSide:          s.SpinSide,
		ReverseTicks:      s.ReverseTicks,
		ReverseSide:       s.ReverseSide,
		Events:            Events(s.Events),
		Effect:            Effect(s.Effect),
		JumpedGun:         s.JumpedGun,
		RNG:               rng.Source{State: s.RNG},
		LapStartTick:      s.LapStartTick,
		LastLapTicks:      s.LastLapTicks,
		BestLapTicks:      s.BestLapTicks,
		FinishTick:        s.FinishTick,
		tune:              tune,
	}
}
