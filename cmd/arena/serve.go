package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/arcadelab/paddle-arena/internal/gateway"
	"github.com/arcadelab/paddle-arena/internal/lobby"
	"github.com/arcadelab/paddle-arena/internal/match"
	"github.com/arcadelab/paddle-arena/internal/matchmaking"
	"github.com/arcadelab/paddle-arena/internal/metrics"
	"github.com/arcadelab/paddle-arena/internal/storage"
	"github.com/arcadelab/paddle-arena/internal/tournament"
)

var (
	flagSSHAddr     string
	flagWSAddr      string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the paddle arena match server",
	Long: `Start the match server. Players connect over SSH or WebSocket and
speak a line-delimited JSON protocol: queue for ranked play, create or
join lobbies, or enter tournaments.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.paddle-arena/host_key

Examples:
  arena serve                           # Defaults from config
  arena serve --ssh :2222 --ws :8080    # Explicit listen addresses
  arena serve --host-key ./my_host_key  # Use specific host key

Users can connect with:
  ssh ranked@localhost -p 2222`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagWSAddr, "ws", "", "WebSocket listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if flagSSHAddr != "" {
		cfg.Server.SSHAddr = flagSSHAddr
	}
	if flagWSAddr != "" {
		cfg.Server.WSAddr = flagWSAddr
	}
	if flagHostKey != "" {
		cfg.Server.HostKeyPath = flagHostKey
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "arena",
	})

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("could not open database", "path", cfg.Database.Path, "err", err)
	}
	defer store.Close()

	promRegistry := prometheus.NewRegistry()
	obs := metrics.New(promRegistry)

	params := cfg.Simulation.ToParams()
	matches := match.NewRegistry(store, logger, obs)

	queue := matchmaking.New(matchmaking.Options{
		Config:   cfg.Matchmaking.ToQueueConfig(),
		Params:   params,
		AIConfig: cfg.AI.ToOpponentConfig(),
		Registry: matches,
		Status:   store,
		Logger:   logger,
		Metrics:  obs,
	})
	queue.Run()
	defer queue.Close()

	lobbies := lobby.New(lobby.Options{
		MatchRegistry: matches,
		Params:        params,
		Logger:        logger,
		SweepInterval: cfg.Lobby.SweepInterval(),
	})
	lobbies.Run()
	defer lobbies.Close()

	tournaments := tournament.New(tournament.Options{
		Matches:     matches,
		Recorder:    store,
		Store:       store,
		Params:      params,
		Logger:      logger,
		Seed:        time.Now().UnixNano(),
		SettleDelay: cfg.Tournament.SettleDelay(),
	})
	watchTournaments(store, obs, logger)

	services := gateway.Services{
		Queue:       queue,
		Lobbies:     lobbies,
		Tournaments: tournaments,
		LobbyExpiry: cfg.Lobby.Expiry(),
		Logger:      logger,
		Metrics:     obs,
	}

	sshServer, err := gateway.NewSSHServer(gateway.SSHConfig{
		Addr:        cfg.Server.SSHAddr,
		HostKeyPath: cfg.Server.HostKeyPath,
		IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
	}, services)
	if err != nil {
		logger.Fatal("could not create SSH gateway", "err", err)
	}
	wsServer := gateway.NewWSServer(cfg.Server.WSAddr, services)
	metricsServer := newMetricsServer(cfg.Server.MetricsAddr, promRegistry)

	go func() {
		if err := sshServer.ListenAndServe(); err != nil {
			logger.Error("ssh gateway failed", "err", err)
		}
	}()
	go func() {
		if err := wsServer.ListenAndServe(); err != nil {
			logger.Error("ws gateway failed", "err", err)
		}
	}()
	go func() {
		logger.Info("starting metrics endpoint", "address", cfg.Server.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics endpoint failed", "err", err)
		}
	}()

	fmt.Printf("Paddle arena listening on %s (ssh) and %s (ws)\n", cfg.Server.SSHAddr, cfg.Server.WSAddr)
	fmt.Println("Press Ctrl+C to stop")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sshServer.Shutdown(ctx); err != nil {
		logger.Error("ssh shutdown failed", "err", err)
	}
	if err := wsServer.Shutdown(ctx); err != nil {
		logger.Error("ws shutdown failed", "err", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("metrics shutdown failed", "err", err)
	}
	matches.StopAll()
}

// watchTournaments reports tournaments that survived a restart and
// keeps the live-tournament gauge current by polling the store.
func watchTournaments(store *storage.Store, obs *metrics.Metrics, logger *log.Logger) {
	rows, err := store.LiveTournaments()
	if err != nil {
		logger.Warn("could not list live tournaments", "err", err)
		return
	}
	for _, row := range rows {
		logger.Info("unfinished tournament on record",
			"tournament_id", row.ID,
			"capacity", row.Capacity,
			"status", row.Status,
		)
	}
	obs.SetLiveTournaments(len(rows))

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			rows, err := store.LiveTournaments()
			if err != nil {
				continue
			}
			obs.SetLiveTournaments(len(rows))
		}
	}()
}

func newMetricsServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux}
}
