// Package metrics exposes Prometheus collectors for the arena server.
// A single Metrics value satisfies the observation interfaces declared
// by the match and matchmaking packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arcadelab/paddle-arena/internal/match"
	"github.com/arcadelab/paddle-arena/internal/matchmaking"
)

// Metrics holds every collector registered by the server.
type Metrics struct {
	activeMatches    prometheus.Gauge
	finishedMatches  prometheus.Counter
	queueDepth       prometheus.Gauge
	aiFallbacks      prometheus.Counter
	liveTournaments  prometheus.Gauge
	connectedPlayers prometheus.Gauge
}

// New registers the arena collectors on the given registry.
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		activeMatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arena_active_matches",
			Help: "Number of currently running match sessions",
		}),
		finishedMatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_finished_matches_total",
			Help: "Total number of match sessions that reached a terminal state",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arena_matchmaking_queue_depth",
			Help: "Number of players currently waiting in the matchmaking queue",
		}),
		aiFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_ai_fallbacks_total",
			Help: "Total number of matches started against an AI opponent after the wait timeout",
		}),
		liveTournaments: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arena_live_tournaments",
			Help: "Number of tournaments that are pending or ongoing",
		}),
		connectedPlayers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arena_connected_players",
			Help: "Number of currently connected player transports",
		}),
	}
}

// MatchStarted increments the running-match gauge.
func (m *Metrics) MatchStarted() {
	m.activeMatches.Inc()
}

// MatchFinished decrements the running-match gauge and counts the
// completion.
func (m *Metrics) MatchFinished() {
	m.activeMatches.Dec()
	m.finishedMatches.Inc()
}

// QueueDepth records the current matchmaking queue length.
func (m *Metrics) QueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// AIFallback counts a match handed to an AI opponent.
func (m *Metrics) AIFallback() {
	m.aiFallbacks.Inc()
}

// SetLiveTournaments records the number of unfinished tournaments.
func (m *Metrics) SetLiveTournaments(n int) {
	m.liveTournaments.Set(float64(n))
}

// PlayerConnected tracks one transport attaching.
func (m *Metrics) PlayerConnected() {
	m.connectedPlayers.Inc()
}

// PlayerDisconnected tracks one transport detaching.
func (m *Metrics) PlayerDisconnected() {
	m.connectedPlayers.Dec()
}

var (
	_ match.Metrics       = (*Metrics)(nil)
	_ matchmaking.Metrics = (*Metrics)(nil)
)
