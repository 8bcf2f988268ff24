package ai

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/arcadelab/paddle-arena/internal/core"
	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/sim"
)

func testParams() sim.Params {
	p := sim.DefaultParams()
	p.ArenaWidth = 300
	p.ArenaHeight = 150
	p.BallRadius = 4
	return p
}

func TestPredictImpactStraightLine(t *testing.T) {
	p := testParams()
	ball := sim.Ball{
		Pos: core.Vec(150, 75),
		Vel: core.Vec(-2, 0),
	}

	hitY, hitTime, ok := PredictImpact(ball, p, 10)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if hitY != 75 {
		t.Errorf("expected hitY 75, got %v", hitY)
	}
	if want := 70.0; hitTime != want { // 140 units at speed 2
		t.Errorf("expected hitTime %v, got %v", want, hitTime)
	}
}

func TestPredictImpactWithWallBounces(t *testing.T) {
	p := testParams()
	ball := sim.Ball{
		Pos: core.Vec(150, 75),
		Vel: core.Vec(-1, -2),
	}

	// Top wall at y=4 after 35.5s (x=114.5), bounce down; bottom wall
	// at y=146 after another 71s (x=43.5), bounce up; paddle plane
	// x=10 after another 33.5s at y=146-67=79.
	hitY, hitTime, ok := PredictImpact(ball, p, 10)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if math.Abs(hitY-79) > 1e-9 {
		t.Errorf("expected hitY 79, got %v", hitY)
	}
	if math.Abs(hitTime-140) > 1e-9 {
		t.Errorf("expected hitTime 140, got %v", hitTime)
	}
}

func TestPredictImpactMovingAway(t *testing.T) {
	p := testParams()
	ball := sim.Ball{Pos: core.Vec(150, 75), Vel: core.Vec(2, 1)}

	if _, _, ok := PredictImpact(ball, p, 10); ok {
		t.Error("ball moving away from the plane should not predict")
	}

	ball.Vel = core.Vector2{}
	if _, _, ok := PredictImpact(ball, p, 10); ok {
		t.Error("resting ball should not predict")
	}
}

func TestPredictImpactHorizontalBall(t *testing.T) {
	// No vertical velocity: the paddle plane is always hit first.
	p := testParams()
	ball := sim.Ball{Pos: core.Vec(100, 30), Vel: core.Vec(1.5, 0)}

	hitY, hitTime, ok := PredictImpact(ball, p, 290)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if hitY != 30 {
		t.Errorf("expected hitY 30, got %v", hitY)
	}
	if math.Abs(hitTime-(190/1.5)) > 1e-9 {
		t.Errorf("unexpected hitTime %v", hitTime)
	}
}

func TestTimingScaleDeterministicAtZeroDeviation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillDeviation = 0
	o := New(cfg, testParams(), clock.NewMock(), 1)

	for range 20 {
		if s := o.timingScale(); s != timingScaleBase {
			t.Fatalf("expected scale exactly %v, got %v", timingScaleBase, s)
		}
	}
}

func TestTimingScaleSpreadsWithDeviation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillDeviation = 0.5
	o := New(cfg, testParams(), clock.NewMock(), 42)

	seen := map[float64]bool{}
	for range 100 {
		s := o.timingScale()
		if s < timingScaleBase-0.5 || s > timingScaleBase+0.5 {
			t.Fatalf("scale %v outside deviation band", s)
		}
		seen[s] = true
	}
	if len(seen) < 2 {
		t.Error("expected randomized scales with nonzero deviation")
	}
}

func TestOpponentRampsTowardPredictedImpact(t *testing.T) {
	p := testParams()
	cfg := DefaultConfig()
	cfg.SkillDeviation = 0
	mock := clock.NewMock()
	o := New(cfg, p, mock, 1)

	var inputs []float64
	o.OnInput(func(v float64) { inputs = append(inputs, v) })

	// Right-side AI watching a ball inbound below its paddle.
	o.Send(endpoint.GameFoundEvent{Side: sim.SideRight, OpponentID: "human"})
	state := *sim.NewState(p)
	state.Ball.Pos = core.Vec(150, 120)
	state.Ball.Vel = core.Vec(2, 0)
	o.Send(endpoint.StateEvent{State: state})

	o.recalculate()
	if o.pred == nil {
		t.Fatal("expected a committed prediction")
	}
	if o.pred.hitY != 120 {
		t.Errorf("expected hitY 120, got %v", o.pred.hitY)
	}

	// Mid-plan the paddle should be pushed downward (positive input)
	// toward y=120 from its start at center.
	mock.Add(time.Duration(o.pred.hitTime / 2 * float64(time.Second)))
	o.emitInput()
	if len(inputs) == 0 || inputs[len(inputs)-1] <= 0 {
		t.Fatalf("expected positive input mid-plan, got %v", inputs)
	}

	// Once the planned time has fully elapsed the input goes quiet.
	mock.Add(time.Duration(o.pred.hitTime*float64(time.Second)) + time.Second)
	o.emitInput()
	if last := inputs[len(inputs)-1]; last != 0 {
		t.Errorf("expected zero input after plan elapsed, got %v", last)
	}
}

func TestOpponentReplansImmediatelyOnGoal(t *testing.T) {
	p := testParams()
	cfg := DefaultConfig()
	cfg.SkillDeviation = 0
	o := New(cfg, p, clock.NewMock(), 1)

	o.Send(endpoint.GameFoundEvent{Side: sim.SideLeft})
	state := *sim.NewState(p)
	state.Ball.Vel = core.Vec(-1, 0)
	o.Send(endpoint.StateEvent{State: state})

	o.recalculate()
	first := o.pred
	if first == nil {
		t.Fatal("expected a prediction")
	}

	// A goal re-derives the plan on the spot, without waiting for the
	// next recalculation tick.
	state.Ball.Pos = core.Vec(100, 40)
	o.Send(endpoint.StateEvent{State: state})
	o.Send(endpoint.GoalEvent{Scorer: sim.SideLeft})
	if o.pred == nil {
		t.Fatal("goal should commit a fresh prediction immediately")
	}
	if o.pred == first {
		t.Error("goal should replace the previous plan")
	}
}

func TestOpponentStaysIdleOnCountdownBeforeFirstState(t *testing.T) {
	o := New(DefaultConfig(), testParams(), clock.NewMock(), 1)

	// No world model yet: the countdown cannot produce a plan.
	o.Send(endpoint.CountdownEvent{Seconds: 3})
	if o.pred != nil {
		t.Error("expected no plan before the first state snapshot")
	}
	if v := o.currentInput(); v != 0 {
		t.Errorf("expected neutral input without a plan, got %v", v)
	}
}

func TestOpponentFallsBackToCenterWhenBallMovesAway(t *testing.T) {
	p := testParams()
	o := New(DefaultConfig(), p, clock.NewMock(), 1)

	o.Send(endpoint.GameFoundEvent{Side: sim.SideLeft})
	state := *sim.NewState(p)
	state.Ball.Vel = core.Vec(2, 0) // heading to the right side
	o.Send(endpoint.StateEvent{State: state})

	o.recalculate()
	if o.pred == nil {
		t.Fatal("expected a fallback plan")
	}
	if o.pred.hitY != p.ArenaHeight/2 {
		t.Errorf("expected center target, got %v", o.pred.hitY)
	}
}

func TestOpponentLifecycle(t *testing.T) {
	o := New(DefaultConfig(), testParams(), clock.New(), 1)
	o.Start()

	if o.ID() == "" {
		t.Error("expected a synthetic id")
	}

	o.Close()
	o.Close() // idempotent

	select {
	case <-o.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
}
