package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcadelab/paddle-arena/internal/match"
	"github.com/arcadelab/paddle-arena/internal/storage"
)

var (
	flagMatchesLimit  int
	flagMatchesPlayer string
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Show recent match results",
	Long: `Display recently finished matches, newest first.

Examples:
  arena matches
  arena matches --limit 50
  arena matches --player alice`,
	Run: runMatches,
}

func init() {
	matchesCmd.Flags().IntVar(&flagMatchesLimit, "limit", 20, "Maximum number of matches to show")
	matchesCmd.Flags().StringVar(&flagMatchesPlayer, "player", "", "Only show matches involving this player")
}

func runMatches(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var records []match.Record
	if flagMatchesPlayer != "" {
		records, err = store.PlayerMatchHistory(flagMatchesPlayer, flagMatchesLimit)
	} else {
		records, err = store.RecentMatches(flagMatchesLimit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving matches: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println("No matches recorded yet.")
		return
	}

	// Print header
	fmt.Printf("  %-22s  %-22s  %-7s  %-10s  %-8s  %s\n", "Player 1", "Player 2", "Score", "Winner", "Status", "Date")
	fmt.Printf("  %-22s  %-22s  %-7s  %-10s  %-8s  %s\n", "--------", "--------", "-----", "------", "------", "----")

	for _, rec := range records {
		score := fmt.Sprintf("%d - %d", rec.Score1, rec.Score2)
		winner := rec.WinnerID
		if winner == "" {
			winner = "-"
		}
		dateStr := rec.CreatedAt.Format("2006-01-02 15:04")
		fmt.Printf("  %-22s  %-22s  %-7s  %-10s  %-8s  %s\n",
			rec.Player1, rec.Player2, score, winner, rec.Status, dateStr)
	}
}
