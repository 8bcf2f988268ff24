// Package matchmaking pairs queued players by rating proximity. Each
// waiting player has an acceptance window that widens with time in
// queue, and players who wait long enough are matched against an AI
// opponent instead.
package matchmaking

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"github.com/elliotchance/pie/v2"

	"github.com/arcadelab/paddle-arena/internal/ai"
	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/match"
	"github.com/arcadelab/paddle-arena/internal/sim"
)

// User presence states written through the StatusSetter.
const (
	StatusOffline = "offline"
	StatusInGame  = "in-game"
)

// StatusSetter records player presence transitions. Failures are
// logged, not fatal: presence is advisory.
type StatusSetter interface {
	SetUserStatus(userID, status string) error
}

// Metrics observes queue behavior.
type Metrics interface {
	QueueDepth(n int)
	AIFallback()
}

// Config tunes the pairing policy.
type Config struct {
	// MinWindow and MaxWindow bound the rating acceptance window, in
	// rating points.
	MinWindow float64 `yaml:"min_window"`
	MaxWindow float64 `yaml:"max_window"`

	// WindowGrowth is how many rating points the window widens per
	// second of waiting.
	WindowGrowth float64 `yaml:"window_growth"`

	// ScanInterval is how often the queue attempts pairing.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// TimeUntilAI is how long a player waits before being handed an AI
	// opponent.
	TimeUntilAI time.Duration `yaml:"time_until_ai"`
}

// DefaultConfig returns the stock pairing policy.
func DefaultConfig() Config {
	return Config{
		MinWindow:    25,
		MaxWindow:    500,
		WindowGrowth: 20,
		ScanInterval: 500 * time.Millisecond,
		TimeUntilAI:  10 * time.Second,
	}
}

// entry is one waiting player, in join order.
type entry struct {
	ep       endpoint.Endpoint
	rating   float64
	joinedAt time.Time
}

// Queue is the matchmaking queue. One Scan pass runs at a time; entries
// are only mutated under the queue lock.
type Queue struct {
	cfg      Config
	params   sim.Params
	aiCfg    ai.Config
	registry *match.Registry
	status   StatusSetter
	clk      clock.Clock
	logger   *log.Logger
	metrics  Metrics

	mu      sync.Mutex
	entries []*entry
	seed    int64

	done     chan struct{}
	doneOnce sync.Once
}

// Options wires the queue's collaborators. Registry is required; the
// rest have working defaults (metrics and status may be nil).
type Options struct {
	Config   Config
	Params   sim.Params
	AIConfig ai.Config
	Registry *match.Registry
	Status   StatusSetter
	Clock    clock.Clock
	Logger   *log.Logger
	Metrics  Metrics
}

// New creates a queue. Call Run to start the scan loop.
func New(opts Options) *Queue {
	cfg := opts.Config
	if cfg.ScanInterval <= 0 {
		cfg = DefaultConfig()
	}
	if opts.Params.TickRate == 0 {
		opts.Params = sim.DefaultParams()
	}
	if opts.AIConfig.InputInterval == 0 {
		opts.AIConfig = ai.DefaultConfig()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Queue{
		cfg:      cfg,
		params:   opts.Params,
		aiCfg:    opts.AIConfig,
		registry: opts.Registry,
		status:   opts.Status,
		clk:      opts.Clock,
		logger:   opts.Logger.With("component", "matchmaking"),
		metrics:  opts.Metrics,
		done:     make(chan struct{}),
	}
}

// Run starts the periodic scan loop. It returns immediately.
func (q *Queue) Run() {
	ticker := q.clk.Ticker(q.cfg.ScanInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				q.Scan()
			case <-q.done:
				return
			}
		}
	}()
}

// Close stops the scan loop. Queued players are left untouched.
func (q *Queue) Close() {
	q.doneOnce.Do(func() {
		close(q.done)
	})
}

// Enqueue adds a player to the queue. A player already waiting cannot
// join twice.
func (q *Queue) Enqueue(ep endpoint.Endpoint, rating float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.ep.ID() == ep.ID() {
			return fmt.Errorf("matchmaking: %s already queued", ep.ID())
		}
	}

	q.entries = append(q.entries, &entry{
		ep:       ep,
		rating:   rating,
		joinedAt: q.clk.Now(),
	})
	q.observeDepthLocked()
	q.logger.Info("player queued", "user", ep.ID(), "rating", rating)
	return nil
}

// Dequeue removes a waiting player, typically on cancel or disconnect.
// It reports whether the player was queued.
func (q *Queue) Dequeue(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	before := len(q.entries)
	q.entries = pie.Filter(q.entries, func(e *entry) bool {
		return e.ep.ID() != userID
	})
	removed := len(q.entries) < before
	if removed {
		q.observeDepthLocked()
		q.logger.Info("player dequeued", "user", userID)
	}
	return removed
}

// Len returns the number of waiting players.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// window returns the rating acceptance window for a player who has
// waited the given duration.
func (q *Queue) window(waited time.Duration) float64 {
	w := q.cfg.MinWindow + q.cfg.WindowGrowth*waited.Seconds()
	return math.Min(w, q.cfg.MaxWindow)
}

// Scan runs one pairing pass: drop disconnected players, pair the
// earliest-joined compatible players first, then hand at most one
// long-waiting player an AI opponent.
func (q *Queue) Scan() {
	now := q.clk.Now()

	q.mu.Lock()
	q.entries = pie.Filter(q.entries, func(e *entry) bool {
		select {
		case <-e.ep.Done():
			q.logger.Info("dropping disconnected player", "user", e.ep.ID())
			return false
		default:
			return true
		}
	})

	var pairs [][2]*entry
	matched := make(map[*entry]bool)
	for i, a := range q.entries {
		if matched[a] {
			continue
		}
		wa := q.window(now.Sub(a.joinedAt))
		for _, b := range q.entries[i+1:] {
			if matched[b] {
				continue
			}
			wb := q.window(now.Sub(b.joinedAt))
			if diff := math.Abs(a.rating - b.rating); diff <= math.Min(wa, wb) {
				pairs = append(pairs, [2]*entry{a, b})
				matched[a], matched[b] = true, true
				break
			}
		}
	}

	var aiCandidate *entry
	for _, e := range q.entries {
		if !matched[e] && now.Sub(e.joinedAt) >= q.cfg.TimeUntilAI {
			aiCandidate = e
			matched[e] = true
			break
		}
	}

	q.entries = pie.Filter(q.entries, func(e *entry) bool {
		return !matched[e]
	})
	q.observeDepthLocked()
	q.mu.Unlock()

	for _, pair := range pairs {
		q.startMatch(pair[0].ep, pair[1].ep, false)
	}
	if aiCandidate != nil {
		q.startAIMatch(aiCandidate.ep)
	}
}

// startMatch marks both players in-game and hands them to the match
// registry. On failure the endpoints are told and released.
func (q *Queue) startMatch(left, right endpoint.Endpoint, vsAI bool) {
	q.setStatus(left.ID(), StatusInGame)
	if !vsAI {
		q.setStatus(right.ID(), StatusInGame)
	}

	humanLeft, humanRight := left.ID(), right.ID()
	_, err := q.registry.Create(left, right, match.Options{
		Params: q.params,
		Clock:  q.clk,
		Seed:   q.nextSeed(),
		OnComplete: func(match.Result) {
			q.setStatus(humanLeft, StatusOffline)
			if !vsAI {
				q.setStatus(humanRight, StatusOffline)
			}
		},
	})
	if err != nil {
		q.logger.Error("match creation failed", "left", left.ID(), "right", right.ID(), "err", err)
		evt := endpoint.ErrorEvent{Message: "failed to start match"}
		left.Send(evt)
		right.Send(evt)
		left.Close()
		right.Close()
		return
	}

	q.logger.Info("match created", "left", left.ID(), "right", right.ID(), "vs_ai", vsAI)
}

// startAIMatch spins up an AI opponent for a player who waited too
// long for a human.
func (q *Queue) startAIMatch(human endpoint.Endpoint) {
	opp := ai.New(q.aiCfg, q.params, q.clk, q.nextSeed())
	opp.Start()
	if q.metrics != nil {
		q.metrics.AIFallback()
	}
	q.logger.Info("ai fallback", "user", human.ID(), "opponent", opp.ID())
	q.startMatch(human, opp, true)
}

func (q *Queue) setStatus(userID, status string) {
	if q.status == nil {
		return
	}
	if err := q.status.SetUserStatus(userID, status); err != nil {
		q.logger.Error("status update failed", "user", userID, "status", status, "err", err)
	}
}

func (q *Queue) nextSeed() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seed++
	return q.seed + q.clk.Now().UnixNano()
}

// observeDepthLocked reports queue depth; callers hold q.mu.
func (q *Queue) observeDepthLocked() {
	if q.metrics != nil {
		q.metrics.QueueDepth(len(q.entries))
	}
}
