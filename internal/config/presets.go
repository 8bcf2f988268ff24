package config

import (
	"time"

	"github.com/arcadelab/paddle-arena/internal/ai"
)

// Preset names an AI opponent difficulty.
type Preset string

const (
	PresetEasy   Preset = "easy"
	PresetNormal Preset = "normal"
	PresetHard   Preset = "hard"
)

// ForPreset returns the AI tuning for a named preset. Unknown presets
// fall back to normal.
func ForPreset(preset Preset) ai.Config {
	switch preset {
	case PresetEasy:
		// Wide timing misjudgement and a sluggish world model.
		return ai.Config{
			SkillDeviation: 0.6,
			RecalcInterval: 1500 * time.Millisecond,
			InputInterval:  80 * time.Millisecond,
		}
	case PresetHard:
		return ai.Config{
			SkillDeviation: 0.05,
			RecalcInterval: 500 * time.Millisecond,
			InputInterval:  30 * time.Millisecond,
		}
	default:
		return ai.DefaultConfig()
	}
}
