// Package config provides YAML-based server configuration with
// environment-variable overrides and AI difficulty presets.
package config

import (
	"time"

	"github.com/arcadelab/paddle-arena/internal/ai"
	"github.com/arcadelab/paddle-arena/internal/matchmaking"
	"github.com/arcadelab/paddle-arena/internal/sim"
)

// Config is the full server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Matchmaking MatchmakingConfig `yaml:"matchmaking"`
	Lobby       LobbyConfig       `yaml:"lobby"`
	Tournament  TournamentConfig  `yaml:"tournament"`
	AI          AIConfig          `yaml:"ai"`
}

// ServerConfig defines the listening addresses.
type ServerConfig struct {
	SSHAddr     string `yaml:"ssh_addr" env:"ARENA_SSH_ADDR"`
	WSAddr      string `yaml:"ws_addr" env:"ARENA_WS_ADDR"`
	MetricsAddr string `yaml:"metrics_addr" env:"ARENA_METRICS_ADDR"`
	HostKeyPath string `yaml:"host_key_path" env:"ARENA_HOST_KEY"`
}

// DatabaseConfig defines where match history lives.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"ARENA_DB_PATH"`
}

// SimulationConfig defines the match physics tuning.
type SimulationConfig struct {
	ArenaWidth  float64 `yaml:"arena_width"`
	ArenaHeight float64 `yaml:"arena_height"`

	PaddleWidth    float64 `yaml:"paddle_width"`
	PaddleHeight   float64 `yaml:"paddle_height"`
	PaddleGap      float64 `yaml:"paddle_gap"`
	PaddleAccel    float64 `yaml:"paddle_accel"`
	PaddleMaxSpeed float64 `yaml:"paddle_max_speed"`

	BallRadius   float64 `yaml:"ball_radius"`
	BallMinSpeed float64 `yaml:"ball_min_speed"`
	BallMaxSpeed float64 `yaml:"ball_max_speed"`

	MaxScore int `yaml:"max_score"`
	TickRate int `yaml:"tick_rate"`

	CountdownSeconds float64 `yaml:"countdown_seconds"`
	GoalPauseSeconds float64 `yaml:"goal_pause_seconds"`
}

// ToParams converts the config into immutable simulation parameters.
func (c SimulationConfig) ToParams() sim.Params {
	return sim.Params{
		ArenaWidth:       c.ArenaWidth,
		ArenaHeight:      c.ArenaHeight,
		PaddleWidth:      c.PaddleWidth,
		PaddleHeight:     c.PaddleHeight,
		PaddleGap:        c.PaddleGap,
		PaddleAccel:      c.PaddleAccel,
		PaddleMaxSpeed:   c.PaddleMaxSpeed,
		BallRadius:       c.BallRadius,
		BallMinSpeed:     c.BallMinSpeed,
		BallMaxSpeed:     c.BallMaxSpeed,
		MaxScore:         c.MaxScore,
		TickRate:         c.TickRate,
		CountdownSeconds: c.CountdownSeconds,
		GoalPauseSeconds: c.GoalPauseSeconds,
	}
}

// MatchmakingConfig defines the rating-queue pairing policy.
type MatchmakingConfig struct {
	MinWindow      float64 `yaml:"min_window"`
	MaxWindow      float64 `yaml:"max_window"`
	WindowGrowth   float64 `yaml:"window_growth"`
	ScanIntervalMS int     `yaml:"scan_interval_ms"`
	TimeUntilAISec int     `yaml:"time_until_ai_s" env:"ARENA_TIME_UNTIL_AI_S"`
}

// ToQueueConfig converts into the matchmaking package's tuning.
func (c MatchmakingConfig) ToQueueConfig() matchmaking.Config {
	return matchmaking.Config{
		MinWindow:    c.MinWindow,
		MaxWindow:    c.MaxWindow,
		WindowGrowth: c.WindowGrowth,
		ScanInterval: time.Duration(c.ScanIntervalMS) * time.Millisecond,
		TimeUntilAI:  time.Duration(c.TimeUntilAISec) * time.Second,
	}
}

// LobbyConfig defines invite-lobby lifetimes.
type LobbyConfig struct {
	ExpirySec        int `yaml:"expiry_s"`
	SweepIntervalSec int `yaml:"sweep_interval_s"`
}

// Expiry returns the lobby lifetime.
func (c LobbyConfig) Expiry() time.Duration {
	return time.Duration(c.ExpirySec) * time.Second
}

// SweepInterval returns how often expired lobbies are collected.
func (c LobbyConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// TournamentConfig defines bracket pacing.
type TournamentConfig struct {
	SettleDelaySec int `yaml:"settle_delay_s"`
}

// SettleDelay returns the pause between a decided match and bracket
// advancement.
func (c TournamentConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySec) * time.Second
}

// AIConfig selects the fallback opponent's behavior.
type AIConfig struct {
	Preset           Preset  `yaml:"preset" env:"ARENA_AI_PRESET"`
	SkillDeviation   float64 `yaml:"skill_deviation"`
	RecalcIntervalMS int     `yaml:"recalc_interval_ms"`
	InputIntervalMS  int     `yaml:"input_interval_ms"`
}

// ToOpponentConfig converts into the ai package's tuning. A named
// preset wins over the raw fields.
func (c AIConfig) ToOpponentConfig() ai.Config {
	if c.Preset != "" {
		return ForPreset(c.Preset)
	}
	cfg := ai.DefaultConfig()
	if c.SkillDeviation > 0 {
		cfg.SkillDeviation = c.SkillDeviation
	}
	if c.RecalcIntervalMS > 0 {
		cfg.RecalcInterval = time.Duration(c.RecalcIntervalMS) * time.Millisecond
	}
	if c.InputIntervalMS > 0 {
		cfg.InputInterval = time.Duration(c.InputIntervalMS) * time.Millisecond
	}
	return cfg
}

// Default returns the stock server configuration.
func Default() Config {
	p := sim.DefaultParams()
	return Config{
		Server: ServerConfig{
			SSHAddr:     ":2222",
			WSAddr:      ":8080",
			MetricsAddr: ":9090",
			HostKeyPath: "~/.paddle-arena/host_key",
		},
		Database: DatabaseConfig{
			Path: "~/.paddle-arena/arena.db",
		},
		Simulation: SimulationConfig{
			ArenaWidth:       p.ArenaWidth,
			ArenaHeight:      p.ArenaHeight,
			PaddleWidth:      p.PaddleWidth,
			PaddleHeight:     p.PaddleHeight,
			PaddleGap:        p.PaddleGap,
			PaddleAccel:      p.PaddleAccel,
			PaddleMaxSpeed:   p.PaddleMaxSpeed,
			BallRadius:       p.BallRadius,
			BallMinSpeed:     p.BallMinSpeed,
			BallMaxSpeed:     p.BallMaxSpeed,
			MaxScore:         p.MaxScore,
			TickRate:         p.TickRate,
			CountdownSeconds: p.CountdownSeconds,
			GoalPauseSeconds: p.GoalPauseSeconds,
		},
		Matchmaking: MatchmakingConfig{
			MinWindow:      25,
			MaxWindow:      500,
			WindowGrowth:   20,
			ScanIntervalMS: 500,
			TimeUntilAISec: 10,
		},
		Lobby: LobbyConfig{
			ExpirySec:        120,
			SweepIntervalSec: 5,
		},
		Tournament: TournamentConfig{
			SettleDelaySec: 2,
		},
		AI: AIConfig{
			Preset: PresetNormal,
		},
	}
}
