package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.SSHAddr != ":2222" {
		t.Errorf("unexpected ssh addr: %s", cfg.Server.SSHAddr)
	}
	if cfg.Simulation.TickRate != 60 {
		t.Errorf("unexpected tick rate: %d", cfg.Simulation.TickRate)
	}
	if cfg.AI.Preset != PresetNormal {
		t.Errorf("unexpected preset: %s", cfg.AI.Preset)
	}
}

func TestLoadCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	body := []byte("server:\n  ssh_addr: \":2022\"\nsimulation:\n  max_score: 11\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.SSHAddr != ":2022" {
		t.Errorf("custom ssh addr not applied: %s", cfg.Server.SSHAddr)
	}
	if cfg.Simulation.MaxScore != 11 {
		t.Errorf("custom max score not applied: %d", cfg.Simulation.MaxScore)
	}
	// Untouched fields keep their defaults.
	if cfg.Simulation.TickRate != 60 {
		t.Errorf("default tick rate lost: %d", cfg.Simulation.TickRate)
	}
}

func TestLoadMissingCustomFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config path")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ARENA_SSH_ADDR", ":2200")
	t.Setenv("ARENA_AI_PRESET", "hard")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.SSHAddr != ":2200" {
		t.Errorf("env override not applied: %s", cfg.Server.SSHAddr)
	}
	if cfg.AI.Preset != PresetHard {
		t.Errorf("env preset override not applied: %s", cfg.AI.Preset)
	}
}

func TestSimulationToParams(t *testing.T) {
	cfg := Default()
	p := cfg.Simulation.ToParams()

	if p.ArenaWidth != 300 || p.ArenaHeight != 150 {
		t.Errorf("unexpected arena: %vx%v", p.ArenaWidth, p.ArenaHeight)
	}
	if p.TickInterval() != 1.0/60 {
		t.Errorf("unexpected tick interval: %v", p.TickInterval())
	}
}

func TestMatchmakingToQueueConfig(t *testing.T) {
	cfg := Default().Matchmaking.ToQueueConfig()

	if cfg.ScanInterval != 500*time.Millisecond {
		t.Errorf("unexpected scan interval: %v", cfg.ScanInterval)
	}
	if cfg.TimeUntilAI != 10*time.Second {
		t.Errorf("unexpected ai timeout: %v", cfg.TimeUntilAI)
	}
}

func TestAIPresets(t *testing.T) {
	easy := ForPreset(PresetEasy)
	hard := ForPreset(PresetHard)
	if easy.SkillDeviation <= hard.SkillDeviation {
		t.Error("easy should misjudge more than hard")
	}
	if easy.InputInterval <= hard.InputInterval {
		t.Error("easy should react slower than hard")
	}

	// Unknown presets degrade to normal.
	unknown := ForPreset("nightmare")
	if unknown != ForPreset(PresetNormal) {
		t.Errorf("unknown preset should fall back to normal, got %+v", unknown)
	}
}

func TestAIConfigRawFields(t *testing.T) {
	c := AIConfig{SkillDeviation: 0.4, RecalcIntervalMS: 700, InputIntervalMS: 40}
	cfg := c.ToOpponentConfig()

	if cfg.SkillDeviation != 0.4 {
		t.Errorf("deviation not applied: %v", cfg.SkillDeviation)
	}
	if cfg.RecalcInterval != 700*time.Millisecond || cfg.InputInterval != 40*time.Millisecond {
		t.Errorf("intervals not applied: %+v", cfg)
	}
}
