// Package match runs live paddle-ball sessions: the tick loop that
// drives the simulation, broadcasts state to both endpoints, and
// reports results to persistence. Sessions are created through the
// Registry, which owns the set of running matches.
package match

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"

	"github.com/arcadelab/paddle-arena/internal/core"
	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/sim"
)

// Status is the lifecycle phase of a running session.
type Status int

const (
	StatusCountdown Status = iota
	StatusActive
	StatusGoalPause
	StatusFinished
	StatusAborted
)

// String returns a human-readable phase name.
func (s Status) String() string {
	switch s {
	case StatusCountdown:
		return "countdown"
	case StatusActive:
		return "active"
	case StatusGoalPause:
		return "goal_pause"
	case StatusFinished:
		return "finished"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome delivered to the completion callback.
type Result struct {
	MatchID    string
	LeftID     string
	RightID    string
	WinnerID   string
	LeftScore  int
	RightScore int
	Aborted    bool
}

// Options configures a session beyond its two endpoints.
type Options struct {
	Params   sim.Params
	Recorder Recorder

	// Clock is injectable for tests; defaults to the wall clock.
	Clock  clock.Clock
	Logger *log.Logger
	Seed   int64

	// OnComplete is invoked exactly once, after the result has been
	// persisted. It must not block.
	OnComplete func(Result)

	// TournamentID and Round annotate log output when the match is
	// embedded in a tournament.
	TournamentID string
	Round        int
}

// Session is one live match between two endpoints. All mutation of the
// simulation happens on the tick loop; endpoint input handlers only
// store intent.
type Session struct {
	id    string
	left  endpoint.Endpoint
	right endpoint.Endpoint

	params   sim.Params
	recorder Recorder
	clk      clock.Clock
	logger   *log.Logger
	onDone   func(Result)

	mu          sync.Mutex
	state       *sim.State
	status      Status
	tick        uint64
	inputs      sim.Inputs
	pauseTicks  int
	serveToward sim.Side
	rng         *rand.Rand

	done       chan struct{}
	finishOnce sync.Once
}

// NewSession wires a session around two endpoints. The caller is
// expected to have created the persistent match record already; id is
// that record's id.
func NewSession(id string, left, right endpoint.Endpoint, opts Options) *Session {
	if opts.Params.TickRate == 0 {
		opts.Params = sim.DefaultParams()
	}
	if opts.Recorder == nil {
		opts.Recorder = NewMemoryRecorder()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	logger := opts.Logger.With("match_id", id)
	if opts.TournamentID != "" {
		logger = logger.With("tournament_id", opts.TournamentID, "round", opts.Round)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	toward := sim.SideLeft
	if rng.Intn(2) == 0 {
		toward = sim.SideRight
	}

	return &Session{
		id:          id,
		left:        left,
		right:       right,
		params:      opts.Params,
		recorder:    opts.Recorder,
		clk:         opts.Clock,
		logger:      logger,
		onDone:      opts.OnComplete,
		state:       sim.NewState(opts.Params),
		status:      StatusCountdown,
		serveToward: toward,
		rng:         rng,
		done:        make(chan struct{}),
	}
}

// ID returns the persistent match id.
func (s *Session) ID() string {
	return s.id
}

// Status returns the current lifecycle phase.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done closes when the session has reached a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run attaches the endpoints and starts the tick loop. The loop exits
// when the match finishes, a participant disconnects, or the session is
// stopped.
func (s *Session) Run() {
	s.attach()

	interval := time.Duration(s.params.TickInterval() * float64(time.Second))
	ticker := s.clk.Ticker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.step()
			case <-s.left.Done():
				s.abort(s.left, s.right)
				return
			case <-s.right.Done():
				s.abort(s.right, s.left)
				return
			case <-s.done:
				return
			}
		}
	}()
}

// Stop tears the session down administratively. Neither player wins.
func (s *Session) Stop() {
	s.mu.Lock()
	res := Result{
		MatchID:    s.id,
		LeftID:     s.left.ID(),
		RightID:    s.right.ID(),
		LeftScore:  s.state.LeftScore,
		RightScore: s.state.RightScore,
		Aborted:    true,
	}
	s.mu.Unlock()
	s.finish(res, RecordForfeit)
}

// attach registers input handlers and announces the pairing. Input is
// last-write-wins: only the most recent value per side is applied on
// the next tick.
func (s *Session) attach() {
	s.left.OnInput(func(v float64) {
		s.mu.Lock()
		s.inputs.Left = core.ClampF(v, -1, 1)
		s.mu.Unlock()
	})
	s.right.OnInput(func(v float64) {
		s.mu.Lock()
		s.inputs.Right = core.ClampF(v, -1, 1)
		s.mu.Unlock()
	})

	s.left.Send(endpoint.GameFoundEvent{MatchID: s.id, Side: sim.SideLeft, OpponentID: s.right.ID()})
	s.right.Send(endpoint.GameFoundEvent{MatchID: s.id, Side: sim.SideRight, OpponentID: s.left.ID()})

	s.mu.Lock()
	s.pauseTicks = int(s.params.CountdownSeconds * float64(s.params.TickRate))
	s.mu.Unlock()
	s.broadcast(endpoint.CountdownEvent{MatchID: s.id, Seconds: s.params.CountdownSeconds})

	s.logger.Info("match started",
		"left", s.left.ID(),
		"right", s.right.ID(),
	)
}

// step advances the session by one tick. It is the only place the
// simulation state mutates.
func (s *Session) step() {
	s.mu.Lock()

	switch s.status {
	case StatusCountdown, StatusGoalPause:
		s.pauseTicks--
		if s.pauseTicks <= 0 {
			sim.LaunchBall(s.state, s.params, sim.ServeDirection(s.rng, s.serveToward))
			s.status = StatusActive
		}
	case StatusActive:
		res := sim.Update(s.state, s.params, s.inputs, 1)
		s.tick++
		if res.Goal {
			s.handleGoalLocked(res)
			if res.GameOver {
				final := Result{
					MatchID:    s.id,
					LeftID:     s.left.ID(),
					RightID:    s.right.ID(),
					WinnerID:   s.endpointFor(res.Winner).ID(),
					LeftScore:  s.state.LeftScore,
					RightScore: s.state.RightScore,
				}
				s.mu.Unlock()
				s.finish(final, RecordFinished)
				return
			}
		}
	default:
		s.mu.Unlock()
		return
	}

	snapshot := endpoint.StateEvent{MatchID: s.id, Tick: s.tick, State: s.state.Clone()}
	s.mu.Unlock()

	s.broadcast(snapshot)
}

// handleGoalLocked reacts to a scored goal: announce it, persist the
// running score off the tick loop, and schedule the next serve toward
// the side that conceded. Callers hold s.mu.
func (s *Session) handleGoalLocked(res sim.Result) {
	goal := endpoint.GoalEvent{
		MatchID:    s.id,
		Scorer:     res.Scorer,
		LeftScore:  s.state.LeftScore,
		RightScore: s.state.RightScore,
	}
	s.left.Send(goal)
	s.right.Send(goal)

	go func(l, r int) {
		if err := s.recorder.UpdateMatchScore(s.id, l, r); err != nil {
			s.logger.Error("score update failed", "err", err)
		}
	}(s.state.LeftScore, s.state.RightScore)

	if !res.GameOver {
		s.status = StatusGoalPause
		s.pauseTicks = int(s.params.GoalPauseSeconds * float64(s.params.TickRate))
		s.serveToward = res.Scorer.Opposite()
		s.left.Send(endpoint.CountdownEvent{MatchID: s.id, Seconds: s.params.GoalPauseSeconds})
		s.right.Send(endpoint.CountdownEvent{MatchID: s.id, Seconds: s.params.GoalPauseSeconds})
	}
}

// abort ends the match because quitter disconnected; the survivor wins
// by forfeit.
func (s *Session) abort(quitter, survivor endpoint.Endpoint) {
	survivor.Send(endpoint.ErrorEvent{
		Message: fmt.Sprintf("opponent %s disconnected", quitter.ID()),
	})

	s.mu.Lock()
	res := Result{
		MatchID:    s.id,
		LeftID:     s.left.ID(),
		RightID:    s.right.ID(),
		WinnerID:   survivor.ID(),
		LeftScore:  s.state.LeftScore,
		RightScore: s.state.RightScore,
		Aborted:    true,
	}
	s.mu.Unlock()

	s.finish(res, RecordForfeit)
}

// finish reaches the terminal state exactly once: persist the outcome,
// notify both endpoints, run the completion callback, and release the
// endpoints. Persistence happens before the callback so downstream
// consumers (tournament advancement) can read the record immediately.
func (s *Session) finish(res Result, status RecordStatus) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		if res.Aborted {
			s.status = StatusAborted
		} else {
			s.status = StatusFinished
		}
		s.mu.Unlock()

		if err := s.recorder.FinishMatch(s.id, res.LeftScore, res.RightScore, res.WinnerID, status); err != nil {
			s.logger.Error("result persistence failed", "err", err)
		}

		over := endpoint.GameOverEvent{
			MatchID:  s.id,
			WinnerID: res.WinnerID,
			Forfeit:  res.Aborted,
		}
		s.broadcast(over)

		close(s.done)

		s.logger.Info("match finished",
			"winner", res.WinnerID,
			"score", fmt.Sprintf("%d:%d", res.LeftScore, res.RightScore),
			"forfeit", res.Aborted,
		)

		if s.onDone != nil {
			s.onDone(res)
		}

		s.left.Close()
		s.right.Close()
	})
}

// broadcast sends an event to both participants.
func (s *Session) broadcast(evt endpoint.Event) {
	s.left.Send(evt)
	s.right.Send(evt)
}

// endpointFor maps a simulation side to its endpoint.
func (s *Session) endpointFor(side sim.Side) endpoint.Endpoint {
	if side == sim.SideLeft {
		return s.left
	}
	return s.right
}
