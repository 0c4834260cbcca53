// Package kart implements per-racer physics: the integration step, steering
// for human and automated drivers, the circle collision primitives, and
// save/restore of a kart's full state.
package kart

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/rng"
)

// Powerup identifies a fruit-machine payout. Zero is reserved for "none".
type Powerup uint8

const (
	PowerupNone Powerup = iota
	PowerupNitrous
	PowerupMisfire
	PowerupPickup
	PowerupSpinout
	PowerupCount // Sentinel for counting types
)

// String returns the payout name.
func (p Powerup) String() string {
	switch p {
	case PowerupNone:
		return "none"
	case PowerupNitrous:
		return "nitrous"
	case PowerupMisfire:
		return "misfire"
	case PowerupPickup:
		return "pickup"
	case PowerupSpinout:
		return "spinout"
	default:
		return "?"
	}
}

// Events are transient per-tick flags raised by the collision resolver.
// The low nibble travels in network packets.
type Events uint8

const (
	EventKartHit Events = 1 << iota
	EventObjectHit
	EventWallHit
	EventPickup
	EventPowerup
	EventBump
)

// Effect is the visual effect id shown under or around a kart.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectMud
	EffectDust
	EffectSpark
	EffectNitrous
	EffectSmoke
	EffectSpin
)

// Kart is the state of one racer.
type Kart struct {
	Index  int
	Type   int
	Props  Properties
	Human  bool
	Remote bool // mirrored from packets, never simulated locally
	Ghost  bool // replays recorded input, never collects pickups

	Position         fixed.Vec
	PreviousPosition fixed.Vec
	Heading          fixed.Angle
	Velocity         fixed.Vec
	Speed            fixed.Fixed

	LapCount          int
	DistanceThisLap   fixed.Fixed
	FinishOrder       int // -1 until finished
	RaceRank          int
	RacingLine        int
	NextWaypoint      int
	SegmentDwellTicks int
	BumpTimer         int
	PickupCount       int
	Powerup           Powerup
	PowerupTimer      int
	LastSegment       int
	ValidLap          bool

	Surface      Surface
	SpinSide     int
	ReverseTicks int
	ReverseSide  int
	Events       Events
	Effect       Effect
	JumpedGun    bool
	RNG          rng.Source

	LapStartTick int
	LastLapTicks int
	BestLapTicks int
	FinishTick   int

	tune *Tuning
}

// New constructs a roster slot. Karts are built once and reset per race.
func New(index int, tune *Tuning) *Kart {
	k := &Kart{Index: index, tune: tune}
	k.FinishOrder = -1
	return k
}

// Reset re-initializes all per-race fields.
func (k *Kart) Reset(typ int, props Properties, pos fixed.Vec, heading fixed.Angle, human bool, seed rng.Source) {
	idx, tune := k.Index, k.tune
	*k = Kart{Index: idx, tune: tune}

	k.Type = typ
	k.Props = props
	k.Human = human
	k.Position = pos
	k.PreviousPosition = pos
	k.Heading = heading
	k.FinishOrder = -1
	k.LastSegment = -1
	k.Surface = DefaultSurface()
	k.ReverseSide = 1
	k.SpinSide = 1
	k.RNG = seed
}

// Finished reports whether the kart has been assigned a finish order.
func (k *Kart) Finished() bool {
	return k.FinishOrder >= 0
}

// Bumped reports whether the kart is airborne from a bump tile.
func (k *Kart) Bumped() bool {
	return k.BumpTimer > 0
}

// MaxSpeed returns the speed cap including an active nitrous.
func (k *Kart) MaxSpeed() fixed.Fixed {
	if k.Powerup == PowerupNitrous {
		return k.Props.MaxSpeed + k.Props.MaxSpeed/2
	}
	return k.Props.MaxSpeed
}

// ApplyPowerup starts a timed effect on the kart. Pickup payouts are
// instant and handled by the caller; none does nothing.
func (k *Kart) ApplyPowerup(p Powerup, ticks int) {
	switch p {
	case PowerupNitrous, PowerupMisfire:
		k.Powerup = p
		k.PowerupTimer = ticks
	case PowerupSpinout:
		k.Powerup = p
		k.PowerupTimer = ticks
		k.SpinSide = k.RNG.Side()
	}
}

// PowerupEffect returns the visual effect of the active power-up, if any.
func (k *Kart) PowerupEffect() Effect {
	switch k.Powerup {
	case PowerupNitrous:
		return EffectNitrous
	case PowerupMisfire:
		return EffectSmoke
	case PowerupSpinout:
		return EffectSpin
	default:
		return EffectNone
	}
}

// Warp places the kart on a point at rest, facing heading.
func (k *Kart) Warp(pos fixed.Vec, heading fixed.Angle) {
	k.Position = pos
	k.PreviousPosition = pos
	k.Heading = heading
	k.Velocity = fixed.Vec{}
	k.Speed = 0
	k.ReverseTicks = 0
	k.SegmentDwellTicks = 0
}
