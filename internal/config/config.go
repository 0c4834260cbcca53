// Package config provides YAML-based race configuration: the race rules,
// the kart property table, shared physics tuning and difficulty presets.
package config

import (
	"fmt"
	"math"

	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
)

// ValidationError contains details about a configuration that failed
// load-time validation.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Race holds the rules of a single race.
type Race struct {
	Track          string           `yaml:"track"`
	Laps           int              `yaml:"laps"`
	Karts          int              `yaml:"karts"` // active racers, 1..8
	Pickups        bool             `yaml:"pickups"`
	Powerups       bool             `yaml:"powerups"`
	CountdownTicks int              `yaml:"countdown_ticks"`
	TickRate       int              `yaml:"tick_rate"`
	Seed           uint64           `yaml:"seed"`
	Difficulty     DifficultyPreset `yaml:"difficulty"`
}

// MaxKarts is the number of racers that can be on track at once.
const MaxKarts = 8

// Validate checks race rules.
func (r Race) Validate() error {
	switch {
	case r.Laps < 1 || r.Laps > 15:
		return ValidationError{Code: "BAD_LAPS", Message: fmt.Sprintf("laps %d outside 1..15", r.Laps)}
	case r.Karts < 1 || r.Karts > MaxKarts:
		return ValidationError{Code: "BAD_KARTS", Message: fmt.Sprintf("karts %d outside 1..%d", r.Karts, MaxKarts)}
	case r.CountdownTicks < 0:
		return ValidationError{Code: "BAD_COUNTDOWN", Message: "countdown must not be negative"}
	case r.TickRate <= 0:
		return ValidationError{Code: "BAD_TICK_RATE", Message: "tick rate must be positive"}
	}
	if _, ok := presets[r.Difficulty]; !ok {
		return ValidationError{Code: "BAD_DIFFICULTY", Message: fmt.Sprintf("unknown difficulty %q", r.Difficulty)}
	}
	return nil
}

// KartSpec is one row of karts.yaml. Speeds are in tiles per tick.
type KartSpec struct {
	Name           string  `yaml:"name"`
	Acceleration   float64 `yaml:"acceleration"`
	Deceleration   int32   `yaml:"deceleration"`
	SteerGain      int32   `yaml:"steer_gain"`
	Mass           int32   `yaml:"mass"`
	MinSpeed       float64 `yaml:"min_speed"`
	MaxSpeed       float64 `yaml:"max_speed"`
	MaxCornerSpeed float64 `yaml:"max_corner_speed"`
}

// Properties converts the row to fixed point.
func (s KartSpec) Properties() kart.Properties {
	return kart.Properties{
		Name:           s.Name,
		Acceleration:   toFixed(s.Acceleration),
		Deceleration:   s.Deceleration,
		SteerGain:      s.SteerGain,
		Mass:           s.Mass,
		MinSpeed:       toFixed(s.MinSpeed),
		MaxSpeed:       toFixed(s.MaxSpeed),
		MaxCornerSpeed: toFixed(s.MaxCornerSpeed),
	}
}

// KartTable is the contents of karts.yaml.
type KartTable struct {
	Karts []KartSpec `yaml:"karts"`
}

// Properties converts and validates the whole table.
func (t KartTable) Properties() ([]kart.Properties, error) {
	if len(t.Karts) == 0 {
		return nil, ValidationError{Code: "NO_KARTS", Message: "kart table is empty"}
	}
	if len(t.Karts) > kart.MaxTypes {
		return nil, ValidationError{
			Code:    "TOO_MANY_KARTS",
			Message: fmt.Sprintf("%d kart types, at most %d allowed", len(t.Karts), kart.MaxTypes),
		}
	}
	props := make([]kart.Properties, len(t.Karts))
	for i, spec := range t.Karts {
		props[i] = spec.Properties()
		if err := props[i].Validate(); err != nil {
			return nil, ValidationError{Code: "INVALID_KART", Message: err.Error()}
		}
	}
	return props, nil
}

// TuningFile is the contents of tuning.yaml.
type TuningFile struct {
	Physics  PhysicsTuning  `yaml:"physics"`
	Powerups PowerupTuning  `yaml:"powerups"`
	Race     DirectorTuning `yaml:"race"`
}

// PhysicsTuning holds the constants shared by every kart.
type PhysicsTuning struct {
	AirResistance     int32   `yaml:"air_resistance"`
	SpinTraction      int32   `yaml:"spin_traction"`
	CollisionDiameter float64 `yaml:"collision_diameter"`
	CollisionStrength float64 `yaml:"collision_strength"`
	ReverseTicks      int     `yaml:"reverse_ticks"`
	BumpTicks         int     `yaml:"bump_ticks"`
}

// PowerupTuning configures the fruit machine.
type PowerupTuning struct {
	NitrousTicks int `yaml:"nitrous_ticks"`
	MisfireTicks int `yaml:"misfire_ticks"`
	SpinoutTicks int `yaml:"spinout_ticks"`
	PickupPayout int `yaml:"pickup_payout"`
	PayoutSteps  int `yaml:"payout_steps"`
	ReelInterval int `yaml:"reel_interval"`
	ForceChance  int `yaml:"force_chance"` // percent
}

// DirectorTuning configures race bookkeeping.
type DirectorTuning struct {
	DwellTicks       int     `yaml:"dwell_ticks"`
	CameraDistance   float64 `yaml:"camera_distance"`
	RankInterval     int     `yaml:"rank_interval"`
	LapRetransmits   int     `yaml:"lap_retransmits"`
	JumpPenaltyTicks int     `yaml:"jump_penalty_ticks"`
}

// Tuning is the fixed-point form of TuningFile used by the simulation.
type Tuning struct {
	Kart kart.Tuning

	BumpTicks    int
	NitrousTicks int
	MisfireTicks int
	SpinoutTicks int
	PickupPayout int
	PayoutSteps  int
	ReelInterval int
	ForceChance  int

	DwellTicks       int
	CameraDistance   fixed.Fixed
	RankInterval     int
	LapRetransmits   int
	JumpPenaltyTicks int
}

// Tuning converts and validates the file.
func (f TuningFile) Tuning() (Tuning, error) {
	t := Tuning{
		Kart: kart.Tuning{
			AirResistance:     f.Physics.AirResistance,
			SpinTraction:      f.Physics.SpinTraction,
			CollisionDiameter: toFixed(f.Physics.CollisionDiameter),
			CollisionStrength: toFixed(f.Physics.CollisionStrength),
			ReverseTicks:      f.Physics.ReverseTicks,
		},
		BumpTicks:        f.Physics.BumpTicks,
		NitrousTicks:     f.Powerups.NitrousTicks,
		MisfireTicks:     f.Powerups.MisfireTicks,
		SpinoutTicks:     f.Powerups.SpinoutTicks,
		PickupPayout:     f.Powerups.PickupPayout,
		PayoutSteps:      f.Powerups.PayoutSteps,
		ReelInterval:     f.Powerups.ReelInterval,
		ForceChance:      f.Powerups.ForceChance,
		DwellTicks:       f.Race.DwellTicks,
		CameraDistance:   toFixed(f.Race.CameraDistance),
		RankInterval:     f.Race.RankInterval,
		LapRetransmits:   f.Race.LapRetransmits,
		JumpPenaltyTicks: f.Race.JumpPenaltyTicks,
	}
	return t, t.Validate()
}

// Validate checks that every divisor and duration is usable.
func (t Tuning) Validate() error {
	bad := func(code, msg string) error { return ValidationError{Code: code, Message: msg} }
	switch {
	case t.Kart.AirResistance < 1:
		return bad("BAD_AIR", "air resistance must be at least 1")
	case t.Kart.SpinTraction < 1:
		return bad("BAD_SPIN", "spin traction must be at least 1")
	case t.Kart.CollisionDiameter <= 0:
		return bad("BAD_DIAMETER", "collision diameter must be positive")
	case t.Kart.CollisionStrength < 0 || t.Kart.CollisionStrength > 2*fixed.One:
		return bad("BAD_STRENGTH", "collision strength must be in [0, 2]")
	case t.Kart.ReverseTicks < 1:
		return bad("BAD_REVERSE", "reverse ticks must be positive")
	case t.PayoutSteps < 3 || t.ReelInterval < 1 || t.ReelInterval*2 >= t.PayoutSteps:
		return bad("BAD_PAYOUT", "payout steps must leave room for three reel stops")
	case t.ForceChance < 0 || t.ForceChance > 100:
		return bad("BAD_FORCE", "force chance is a percentage")
	case t.DwellTicks < 1 || t.RankInterval < 1:
		return bad("BAD_INTERVAL", "dwell and rank intervals must be positive")
	case t.LapRetransmits < 1:
		return bad("BAD_RETRANSMITS", "lap retransmits must be positive")
	}
	return nil
}

// toFixed converts a configured decimal to Q16.16, once, at load time.
func toFixed(v float64) fixed.Fixed {
	return fixed.Fixed(math.Round(v * float64(fixed.One)))
}
