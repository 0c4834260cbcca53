package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/tui-kart/internal/kart"
)

// readLayered decodes the first config found for name into out.
// Search order: customPath -> ~/.kart/configs/<name>.yaml -> ./configs/<name>.yaml -> embedded default.
// It returns false when even the embedded default could not be decoded.
func readLayered(name, customPath string, out any) (bool, error) {
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return false, fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			return false, fmt.Errorf("config: failed to parse %s: %w", customPath, err)
		}
		return true, nil
	}

	file := name + ".yaml"

	// Try user config directory
	if userCfgPath := userConfigPath(file); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if err := yaml.Unmarshal(data, out); err == nil {
				return true, nil
			}
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", file)); err == nil {
		if err := yaml.Unmarshal(data, out); err == nil {
			return true, nil
		}
	}

	// Use embedded default YAML
	if err := yaml.Unmarshal(GetDefaultYAML(name), out); err != nil {
		return false, nil
	}
	return true, nil
}

// LoadRace loads and validates the race rules.
func LoadRace(customPath string) (Race, error) {
	cfg := DefaultRace()
	ok, err := readLayered("race", customPath, &cfg)
	if err != nil {
		return Race{}, err
	}
	if !ok {
		return DefaultRace(), nil // Fallback to hardcoded if embed fails
	}
	if err := cfg.Validate(); err != nil {
		return Race{}, fmt.Errorf("config: race: %w", err)
	}
	return cfg, nil
}

// LoadKarts loads and validates the kart property table. An invalid table
// fails the load; there is no partial table.
func LoadKarts(customPath string) ([]kart.Properties, error) {
	var table KartTable
	ok, err := readLayered("karts", customPath, &table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return DefaultKartTable(), nil
	}
	props, err := table.Properties()
	if err != nil {
		return nil, fmt.Errorf("config: karts: %w", err)
	}
	return props, nil
}

// LoadTuning loads and validates the physics and race tuning.
func LoadTuning(customPath string) (Tuning, error) {
	var file TuningFile
	ok, err := readLayered("tuning", customPath, &file)
	if err != nil {
		return Tuning{}, err
	}
	if !ok {
		return DefaultTuning(), nil
	}
	t, err := file.Tuning()
	if err != nil {
		return Tuning{}, fmt.Errorf("config: tuning: %w", err)
	}
	return t, nil
}

// Bundle groups everything needed to start a race.
type Bundle struct {
	Race   Race
	Karts  []kart.Properties
	Tuning Tuning
}

// DefaultBundle returns the built-in configuration without reading any file.
func DefaultBundle() Bundle {
	return Bundle{Race: DefaultRace(), Karts: DefaultKartTable(), Tuning: DefaultTuning()}
}

// Paths are optional explicit config files; empty entries use the search order.
type Paths struct {
	Race   string
	Karts  string
	Tuning string
}

// Load loads all three configuration files.
func Load(p Paths) (Bundle, error) {
	race, err := LoadRace(p.Race)
	if err != nil {
		return Bundle{}, err
	}
	karts, err := LoadKarts(p.Karts)
	if err != nil {
		return Bundle{}, err
	}
	tuning, err := LoadTuning(p.Tuning)
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{Race: race, Karts: karts, Tuning: tuning}, nil
}

// ApplyPreset sets the race difficulty.
func ApplyPreset(cfg *Race, preset DifficultyPreset) {
	if _, ok := presets[preset]; ok {
		cfg.Difficulty = preset
	}
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kart", "configs", filename)
}
