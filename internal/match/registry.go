package match

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/arcadelab/paddle-arena/internal/endpoint"
)

// Metrics observes the running-match population. Implementations must
// be safe for concurrent use.
type Metrics interface {
	MatchStarted()
	MatchFinished()
}

// Registry owns every running session. It hands out persistent match
// ids via the Recorder and removes sessions as they complete.
type Registry struct {
	recorder Recorder
	logger   *log.Logger
	metrics  Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(recorder Recorder, logger *log.Logger, metrics Metrics) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create persists a new match record, starts a session for it, and
// tracks the session until completion. The caller's OnComplete runs
// after the registry's own bookkeeping.
func (r *Registry) Create(left, right endpoint.Endpoint, opts Options) (*Session, error) {
	id, err := r.recorder.CreateMatch(left.ID(), right.ID())
	if err != nil {
		return nil, fmt.Errorf("registry: create match: %w", err)
	}

	opts.Recorder = r.recorder
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	callerDone := opts.OnComplete
	opts.OnComplete = func(res Result) {
		r.remove(res.MatchID)
		if r.metrics != nil {
			r.metrics.MatchFinished()
		}
		if callerDone != nil {
			callerDone(res)
		}
	}

	sess := NewSession(id, left, right, opts)

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.MatchStarted()
	}

	sess.Run()
	return sess, nil
}

// Get returns a running session by match id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Count returns the number of running sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StopAll tears down every running session. Used on server shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	active := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		active = append(active, sess)
	}
	r.mu.Unlock()

	for _, sess := range active {
		sess.Stop()
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
