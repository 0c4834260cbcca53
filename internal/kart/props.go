package kart

import (
	"fmt"

	"github.com/vovakirdan/tui-kart/internal/fixed"
)

// MaxTypes is the size of the kart roster.
const MaxTypes = 10

// Properties are the handling characteristics of one kart type.
type Properties struct {
	Name           string
	Acceleration   fixed.Fixed // speed gained per tick of throttle
	Deceleration   int32       // divisor applied to speed when over the cornering cap
	SteerGain      int32       // heading units per tick per unit of speed
	Mass           int32
	MinSpeed       fixed.Fixed // reverse limit, <= 0
	MaxSpeed       fixed.Fixed
	MaxCornerSpeed fixed.Fixed
}

// Validate checks a property set. Tables are validated once at load time;
// the physics step assumes valid properties.
func (p Properties) Validate() error {
	switch {
	case p.Acceleration <= 0:
		return fmt.Errorf("kart %q: acceleration must be positive", p.Name)
	case p.Deceleration < 2:
		return fmt.Errorf("kart %q: deceleration divisor must be at least 2", p.Name)
	case p.SteerGain <= 0:
		return fmt.Errorf("kart %q: steer gain must be positive", p.Name)
	case p.Mass <= 0:
		return fmt.Errorf("kart %q: mass must be positive", p.Name)
	case p.MinSpeed > 0:
		return fmt.Errorf("kart %q: min speed must not be positive", p.Name)
	case p.MaxSpeed <= 0:
		return fmt.Errorf("kart %q: max speed must be positive", p.Name)
	case p.MaxCornerSpeed <= 0 || p.MaxCornerSpeed > p.MaxSpeed:
		return fmt.Errorf("kart %q: max corner speed must be in (0, max speed]", p.Name)
	}
	return nil
}

// Tuning holds the physics constants shared by every kart.
type Tuning struct {
	AirResistance     int32       // speed divisor while bumped
	SpinTraction      int32       // traction divisor multiplier during a spinout
	CollisionDiameter fixed.Fixed // body diameter for circle tests
	CollisionStrength fixed.Fixed // impulse scale; One is perfectly inelastic, 2*One elastic
	ReverseTicks      int         // length of the AI unstick manoeuvre

	sep         *[separationDirs]fixed.Vec
	sepDiameter fixed.Fixed
}

// DefaultTuning returns the stock physics constants.
func DefaultTuning() Tuning {
	return Tuning{
		AirResistance:     64,
		SpinTraction:      8,
		CollisionDiameter: fixed.One * 3 / 4,
		CollisionStrength: fixed.One * 3 / 2,
		ReverseTicks:      8,
	}
}

// AITuning controls how an automated kart follows its target.
// Values come from named difficulty presets.
type AITuning struct {
	CorrectR   int32 // heading error (angle units) tolerated before steering right
	CorrectL   int32 // heading error tolerated before steering left
	BrakeAngle int32 // heading error above which the AI lifts off over corner speed
	FarLineSq  int64 // squared line deviation (Q16.16) that halves the tolerances
}

// Surface is the floor response applied to the next physics step.
type Surface struct {
	Traction int32 // velocity blend divisor, larger slides more
	Friction int32 // speed divisor per grounded tick
	Boost    bool  // 1.5x acceleration
}

// DefaultSurface is plain tarmac.
func DefaultSurface() Surface {
	return Surface{Traction: 2, Friction: 32}
}

// DefaultProperties is the handling of the stock kart, used when no
// property table is configured.
func DefaultProperties() Properties {
	return Properties{
		Name:           "standard",
		Acceleration:   fixed.One / 8,
		Deceleration:   8,
		SteerGain:      384,
		Mass:           4,
		MinSpeed:       -fixed.One,
		MaxSpeed:       fixed.FromInt(4),
		MaxCornerSpeed: fixed.FromInt(3),
	}
}
