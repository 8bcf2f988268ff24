package main

import (
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/arcadelab/paddle-arena/internal/ai"
	"github.com/arcadelab/paddle-arena/internal/config"
	"github.com/arcadelab/paddle-arena/internal/match"
)

var (
	flagSimPreset   string
	flagSimSeed     int64
	flagSimMaxScore int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a headless AI-vs-AI match",
	Long: `Run one match between two AI opponents without any network
transports. Useful for exercising the simulation and AI tuning.

Examples:
  arena simulate
  arena simulate --preset hard --max-score 3
  arena simulate --seed 42`,
	Run: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&flagSimPreset, "preset", "normal", "AI difficulty preset (easy, normal, hard)")
	simulateCmd.Flags().Int64Var(&flagSimSeed, "seed", 0, "RNG seed (0 = random based on time)")
	simulateCmd.Flags().IntVar(&flagSimMaxScore, "max-score", 0, "Points needed to win (overrides config)")
}

func runSimulate(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	params := cfg.Simulation.ToParams()
	if flagSimMaxScore > 0 {
		params.MaxScore = flagSimMaxScore
	}
	seed := flagSimSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "arena-sim",
	})

	clk := clock.New()
	aiCfg := config.ForPreset(config.Preset(flagSimPreset))
	left := ai.New(aiCfg, params, clk, seed)
	right := ai.New(aiCfg, params, clk, seed+1)
	left.Start()
	right.Start()

	recorder := match.NewMemoryRecorder()
	registry := match.NewRegistry(recorder, logger, nil)

	done := make(chan match.Result, 1)
	_, err = registry.Create(left, right, match.Options{
		Params: params,
		Clock:  clk,
		Seed:   seed,
		OnComplete: func(res match.Result) {
			done <- res
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting match: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Simulating %s vs %s (preset %s, seed %d, first to %d)\n",
		left.ID(), right.ID(), flagSimPreset, seed, params.MaxScore)

	res := <-done

	fmt.Println()
	fmt.Printf("Final score: %d - %d\n", res.LeftScore, res.RightScore)
	fmt.Printf("Winner: %s\n", res.WinnerID)
}
