// Package ai implements the computer-controlled match participant. It
// stands in for an absent human opponent and is indistinguishable from
// one at the protocol boundary: it receives the same events and emits
// the same paddle input.
package ai

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/arcadelab/paddle-arena/internal/core"
	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/sim"
)

// Config tunes one AI opponent.
type Config struct {
	// SkillDeviation widens the random timing misjudgement. 0 means
	// the opponent judges arrival time perfectly.
	SkillDeviation float64 `yaml:"skill_deviation"`

	// RecalcInterval is how often the trajectory prediction is
	// re-derived. It is deliberately slower than InputInterval.
	RecalcInterval time.Duration `yaml:"recalc_interval"`

	// InputInterval is how often paddle input is emitted.
	InputInterval time.Duration `yaml:"input_interval"`
}

// DefaultConfig returns a mid-skill opponent.
func DefaultConfig() Config {
	return Config{
		SkillDeviation: 0.25,
		RecalcInterval: time.Second,
		InputInterval:  50 * time.Millisecond,
	}
}

// timingScaleBase is the factor the physical flight time is multiplied
// by when committing to a prediction; deviation spreads around it.
const timingScaleBase = 3.0

// prediction is one committed movement plan: reach hitY, starting from
// startY, over hitTime seconds.
type prediction struct {
	hitY      float64
	hitTime   float64
	startY    float64
	startedAt time.Time
}

// Opponent predicts the ball trajectory and emits eased paddle input.
// It implements endpoint.Endpoint.
type Opponent struct {
	id     string
	cfg    Config
	params sim.Params
	clk    clock.Clock

	mu      sync.Mutex
	rng     *rand.Rand
	handler endpoint.InputFunc
	side    sim.Side
	last    sim.State
	tracked bool
	pred    *prediction

	done     chan struct{}
	doneOnce sync.Once
}

// New creates an AI opponent. The clock is injected so tests can drive
// time deterministically.
func New(cfg Config, params sim.Params, clk clock.Clock, seed int64) *Opponent {
	if cfg.RecalcInterval <= 0 {
		cfg.RecalcInterval = time.Second
	}
	if cfg.InputInterval <= 0 {
		cfg.InputInterval = 50 * time.Millisecond
	}
	return &Opponent{
		id:     fmt.Sprintf("ai-%s", uuid.NewString()[:8]),
		cfg:    cfg,
		params: params,
		clk:    clk,
		rng:    rand.New(rand.NewSource(seed)),
		done:   make(chan struct{}),
	}
}

// Start launches the recalculation and input loops. They run until the
// opponent is closed.
func (o *Opponent) Start() {
	recalc := o.clk.Ticker(o.cfg.RecalcInterval)
	input := o.clk.Ticker(o.cfg.InputInterval)
	go func() {
		defer recalc.Stop()
		defer input.Stop()
		for {
			select {
			case <-recalc.C:
				o.recalculate()
			case <-input.C:
				o.emitInput()
			case <-o.done:
				return
			}
		}
	}()
}

// ID returns the synthetic participant id.
func (o *Opponent) ID() string {
	return o.id
}

// Send feeds match events into the opponent's world model. A goal or
// countdown discards the current plan and re-derives one on the spot
// from the last known state.
func (o *Opponent) Send(evt endpoint.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch e := evt.(type) {
	case endpoint.StateEvent:
		o.last = e.State
		o.tracked = true
	case endpoint.GameFoundEvent:
		o.side = e.Side
	case endpoint.GoalEvent, endpoint.CountdownEvent:
		o.pred = nil
		o.recalculateLocked()
	case endpoint.GameOverEvent:
		// Nothing to do; the owner closes us.
	}
}

// OnInput registers the input sink; the session calls this once.
func (o *Opponent) OnInput(fn endpoint.InputFunc) {
	o.mu.Lock()
	o.handler = fn
	o.mu.Unlock()
}

// Done returns the lifecycle channel.
func (o *Opponent) Done() <-chan struct{} {
	return o.done
}

// Close stops the loops. Safe to call repeatedly.
func (o *Opponent) Close() {
	o.doneOnce.Do(func() {
		close(o.done)
	})
}

var _ endpoint.Endpoint = (*Opponent)(nil)

// recalculate re-derives the movement plan from the last known ball
// state.
func (o *Opponent) recalculate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recalculateLocked()
}

// recalculateLocked is recalculate for callers already holding o.mu.
func (o *Opponent) recalculateLocked() {
	if !o.tracked {
		return
	}

	paddle := o.last.Paddle(o.side)
	hitY, hitTicks, ok := PredictImpact(o.last.Ball, o.params, paddle.Pos.X)
	seconds := 1.0
	if ok {
		// Velocities are in units per tick, so the predicted flight
		// time comes back in ticks.
		seconds = hitTicks * o.params.TickInterval() * o.timingScale()
	} else {
		// Ball heading away or at rest: drift back to center over a
		// nominal window.
		hitY = o.params.ArenaHeight / 2
	}

	o.pred = &prediction{
		hitY:      hitY,
		hitTime:   seconds,
		startY:    paddle.Pos.Y,
		startedAt: o.clk.Now(),
	}
}

// timingScale draws the misjudgement factor from
// [base-deviation, base+deviation]. Zero deviation collapses it to
// exactly the base. Callers must hold o.mu.
func (o *Opponent) timingScale() float64 {
	dev := o.cfg.SkillDeviation
	if dev == 0 {
		return timingScaleBase
	}
	return timingScaleBase - dev + o.rng.Float64()*2*dev
}

// emitInput produces one paddle input sample from the current plan:
// an eased ramp toward the predicted impact point that goes quiet once
// the planned time has elapsed.
func (o *Opponent) emitInput() {
	o.mu.Lock()
	fn := o.handler
	value := o.currentInput()
	o.mu.Unlock()

	if fn != nil {
		fn(value)
	}
}

// currentInput computes the input sample. Callers must hold o.mu.
func (o *Opponent) currentInput() float64 {
	p := o.pred
	if p == nil || p.hitTime <= 0 {
		return 0
	}
	elapsed := o.clk.Now().Sub(p.startedAt).Seconds()
	if elapsed >= p.hitTime {
		return 0
	}

	eased := core.EaseInOutCos(elapsed / p.hitTime)
	delta := p.hitY - p.startY
	// Largest distance the paddle can cover in one tick.
	maxFrameMove := o.params.PaddleMaxSpeed
	if maxFrameMove <= 0 {
		return 0
	}
	return core.ClampF(delta*eased/maxFrameMove, -1, 1)
}

// PredictImpact simulates the ball forward from its current state and
// returns where and when it crosses the given paddle plane. Wall hits
// reflect the vertical component and the walk continues; ok is false
// when the ball is moving away from the plane or not moving
// horizontally at all.
func PredictImpact(ball sim.Ball, p sim.Params, paddleX float64) (hitY, hitTime float64, ok bool) {
	pos, vel := ball.Pos, ball.Vel
	if vel.X == 0 {
		return 0, 0, false
	}
	if (paddleX-pos.X)/vel.X < 0 {
		return 0, 0, false
	}

	var total float64
	for range 64 {
		tPaddle := (paddleX - pos.X) / vel.X

		tWall := math.Inf(1)
		switch {
		case vel.Y < 0:
			tWall = (p.BallRadius - pos.Y) / vel.Y
		case vel.Y > 0:
			tWall = (p.ArenaHeight - p.BallRadius - pos.Y) / vel.Y
		}

		if tPaddle <= tWall {
			return pos.Y + vel.Y*tPaddle, total + tPaddle, true
		}

		pos = pos.Add(vel.Scale(tWall))
		vel.Y = -vel.Y
		total += tWall
	}

	// Degenerate near-vertical trajectory: give up on bouncing and
	// extrapolate straight to the plane.
	tPaddle := (paddleX - pos.X) / vel.X
	return pos.Y + vel.Y*tPaddle, total + tPaddle, true
}
