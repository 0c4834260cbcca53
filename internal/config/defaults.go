package config

import (
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
)

//go:embed defaults/race.yaml
var defaultRaceYAML []byte

//go:embed defaults/karts.yaml
var defaultKartsYAML []byte

//go:embed defaults/tuning.yaml
var defaultTuningYAML []byte

// DefaultRace returns the default race rules.
func DefaultRace() Race {
	return Race{
		Track:          "oval",
		Laps:           3,
		Karts:          MaxKarts,
		Pickups:        true,
		Powerups:       true,
		CountdownTicks: 48,
		TickRate:       16,
		Seed:           1,
		Difficulty:     DifficultyNormal,
	}
}

// DefaultKartTable returns the embedded kart roster, or the stock kart
// alone if the embedded table cannot be read.
func DefaultKartTable() []kart.Properties {
	var table KartTable
	if err := yaml.Unmarshal(defaultKartsYAML, &table); err != nil {
		return []kart.Properties{kart.DefaultProperties()}
	}
	props, err := table.Properties()
	if err != nil {
		return []kart.Properties{kart.DefaultProperties()}
	}
	return props
}

// DefaultTuning returns the default tuning.
func DefaultTuning() Tuning {
	return Tuning{
		Kart:             kart.DefaultTuning(),
		BumpTicks:        8,
		NitrousTicks:     48,
		MisfireTicks:     32,
		SpinoutTicks:     24,
		PickupPayout:     3,
		PayoutSteps:      48,
		ReelInterval:     16,
		ForceChance:      50,
		DwellTicks:       96,
		CameraDistance:   fixed.FromInt(12),
		RankInterval:     16,
		LapRetransmits:   3,
		JumpPenaltyTicks: 4,
	}
}

// GetDefaultYAML returns the embedded default YAML for a config file name.
func GetDefaultYAML(name string) []byte {
	switch name {
	case "race":
		return defaultRaceYAML
	case "karts":
		return defaultKartsYAML
	case "tuning":
		return defaultTuningYAML
	default:
		return nil
	}
}
