// Package lobby implements invite-scoped pairing: a named waiting room
// that starts a match the moment a second player arrives. Lobbies are
// independent of rating matchmaking and expire if never filled.
package lobby

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"

	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/match"
	"github.com/arcadelab/paddle-arena/internal/sim"
)

var (
	// ErrNotFound is returned for unknown or expired lobby ids.
	ErrNotFound = errors.New("lobby: not found")

	// ErrExists is returned when creating a lobby whose id is taken.
	ErrExists = errors.New("lobby: already exists")
)

// lobby is one waiting room. waiting is nil until the first joiner.
type lobby struct {
	id        string
	expiresAt time.Time
	waiting   endpoint.Endpoint
}

// Registry owns all open lobbies and their expiry sweep.
type Registry struct {
	registry *match.Registry
	params   sim.Params
	clk      clock.Clock
	logger   *log.Logger
	sweep    time.Duration

	mu      sync.Mutex
	lobbies map[string]*lobby

	done     chan struct{}
	doneOnce sync.Once
}

// Options wires the registry's collaborators. MatchRegistry is
// required; the rest default sensibly.
type Options struct {
	MatchRegistry *match.Registry
	Params        sim.Params
	Clock         clock.Clock
	Logger        *log.Logger

	// SweepInterval is how often expired lobbies are collected.
	SweepInterval time.Duration
}

// New creates an empty lobby registry. Call Run to start the sweep.
func New(opts Options) *Registry {
	if opts.Params.TickRate == 0 {
		opts.Params = sim.DefaultParams()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Second
	}
	return &Registry{
		registry: opts.MatchRegistry,
		params:   opts.Params,
		clk:      opts.Clock,
		logger:   opts.Logger.With("component", "lobby"),
		sweep:    opts.SweepInterval,
		lobbies:  make(map[string]*lobby),
		done:     make(chan struct{}),
	}
}

// Run starts the periodic expiry sweep.
func (r *Registry) Run() {
	ticker := r.clk.Ticker(r.sweep)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Cleanup()
			case <-r.done:
				return
			}
		}
	}()
}

// Close stops the sweep loop. Open lobbies are left for the caller.
func (r *Registry) Close() {
	r.doneOnce.Do(func() {
		close(r.done)
	})
}

// Create opens a lobby under the given id with the given lifetime.
func (r *Registry) Create(id string, expiry time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lobbies[id]; ok {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	r.lobbies[id] = &lobby{
		id:        id,
		expiresAt: r.clk.Now().Add(expiry),
	}
	r.logger.Info("lobby created", "lobby_id", id, "expiry", expiry)
	return nil
}

// Join adds a player to a lobby. The second joiner fills the lobby:
// the lobby is torn down and a match between the two players starts
// immediately.
func (r *Registry) Join(id string, ep endpoint.Endpoint) error {
	r.mu.Lock()

	lb, ok := r.lobbies[id]
	if !ok || r.clk.Now().After(lb.expiresAt) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if lb.waiting == nil {
		lb.waiting = ep
		r.mu.Unlock()
		r.logger.Info("player waiting in lobby", "lobby_id", id, "user", ep.ID())
		return nil
	}

	if lb.waiting.ID() == ep.ID() {
		r.mu.Unlock()
		return fmt.Errorf("lobby: %s already waiting in %s", ep.ID(), id)
	}

	host := lb.waiting
	delete(r.lobbies, id)
	r.mu.Unlock()

	_, err := r.registry.Create(host, ep, match.Options{
		Params: r.params,
		Clock:  r.clk,
		Seed:   r.clk.Now().UnixNano(),
	})
	if err != nil {
		evt := endpoint.ErrorEvent{Message: "failed to start match"}
		host.Send(evt)
		ep.Send(evt)
		host.Close()
		ep.Close()
		return fmt.Errorf("lobby: fill %s: %w", id, err)
	}

	r.logger.Info("lobby filled", "lobby_id", id, "host", host.ID(), "guest", ep.ID())
	return nil
}

// Cleanup discards expired lobbies and lobbies whose waiting player
// disconnected; a still-connected waiting player is told and closed.
func (r *Registry) Cleanup() {
	now := r.clk.Now()

	r.mu.Lock()
	var expired []*lobby
	for id, lb := range r.lobbies {
		drop := now.After(lb.expiresAt)
		if !drop && lb.waiting != nil {
			select {
			case <-lb.waiting.Done():
				drop = true
			default:
			}
		}
		if drop {
			expired = append(expired, lb)
			delete(r.lobbies, id)
		}
	}
	r.mu.Unlock()

	for _, lb := range expired {
		r.logger.Info("lobby discarded", "lobby_id", lb.id)
		if lb.waiting != nil {
			lb.waiting.Send(endpoint.ErrorEvent{Message: "lobby expired"})
			lb.waiting.Close()
		}
	}
}

// Count returns the number of open lobbies.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lobbies)
}
