// arena is a real-time two-player paddle-ball match server.
//
// Usage:
//
//	arena serve              - Start the match server (SSH + WebSocket)
//	arena simulate           - Run a headless AI-vs-AI match
//	arena matches            - Show recent match results
//
// Global flags:
//
//	--config <path>  - Path to a YAML config file
//	--db <path>      - Override the database path
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcadelab/paddle-arena/internal/config"
)

var (
	// Global flags
	flagConfig string
	flagDBPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "arena",
	Version: "0.1.0",
	Short:   "Paddle Arena - real-time paddle-ball matches over SSH and WebSocket",
	Long: `Paddle Arena runs authoritative two-player paddle-ball matches.
Players connect over SSH or WebSocket, queue for ranked games, meet
friends in private lobbies, or fight through single-elimination
tournaments.

Available commands:
  serve     - Start the match server
  simulate  - Run a headless AI-vs-AI match
  matches   - View recent match results

Examples:
  arena serve
  arena serve --config ./configs/arena.yaml
  arena simulate --preset hard
  arena matches --player alice`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default: search order)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to database (overrides config)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(matchesCmd)
}

// loadConfig resolves the configuration honoring the global flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDBPath != "" {
		cfg.Database.Path = flagDBPath
	}
	return cfg, nil
}
