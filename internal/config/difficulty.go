package config

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
)

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
)

// presets maps difficulty names to AI steering discipline. Easy karts
// tolerate a wide heading error and lift late; hard karts correct early.
var presets = map[DifficultyPreset]kart.AITuning{
	DifficultyEasy: {
		CorrectR:   4096,
		CorrectL:   4096,
		BrakeAngle: 12288,
		FarLineSq:  int64(fixed.One) * 9,
	},
	DifficultyNormal: {
		CorrectR:   2048,
		CorrectL:   2048,
		BrakeAngle: 10240,
		FarLineSq:  int64(fixed.One) * 4,
	},
	DifficultyHard: {
		CorrectR:   1024,
		CorrectL:   1024,
		BrakeAngle: 8192,
		FarLineSq:  int64(fixed.One) * 2,
	},
}

// AITuning returns the steering thresholds of a preset, falling back to normal.
func AITuning(preset DifficultyPreset) kart.AITuning {
	if t, ok := presets[preset]; ok {
		return t
	}
	return presets[DifficultyNormal]
}

// Presets lists the known difficulty names in increasing order.
func Presets() []DifficultyPreset {
	return []DifficultyPreset{DifficultyEasy, DifficultyNormal, DifficultyHard}
}
