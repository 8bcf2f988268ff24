package sim

import (
	"math"
	"math/rand"

	"github.com/arcadelab/paddle-arena/internal/core"
)

// Inputs carries the per-tick movement intent for both paddles.
// Values are clamped to [-1, 1]; -1 is full speed up, +1 full speed
// down (screen coordinates).
type Inputs struct {
	Left  float64
	Right float64
}

// Result reports what happened during one tick.
type Result struct {
	// Goal is true when the ball crossed an arena edge this tick.
	Goal   bool
	Scorer Side

	// GameOver is true when the goal brought the scorer to MaxScore.
	GameOver bool
	Winner   Side
}

// repositionEpsilon keeps the ball strictly outside a paddle after a
// collision so the next tick cannot re-detect the same hit.
const repositionEpsilon = 0.01

// Update advances the simulation by dt seconds. It mutates state
// deterministically: paddle integration first, then ball integration,
// then collision resolution and scoring.
func Update(s *State, p Params, in Inputs, dt float64) Result {
	updatePaddle(&s.Left, in.Left, p, dt)
	updatePaddle(&s.Right, in.Right, p, dt)

	s.Ball.Pos = s.Ball.Pos.Add(s.Ball.Vel.Scale(dt))

	checkCollisions(s, p)

	return checkGoal(s, p)
}

// updatePaddle integrates one paddle: acceleration from input,
// velocity clamp, position step, then exponential damping so the
// paddle coasts to a stop when input ceases.
func updatePaddle(pd *Paddle, input float64, p Params, dt float64) {
	pd.Acc.Y = p.PaddleAccel * core.ClampF(input, -1, 1)
	pd.Vel.Y += pd.Acc.Y * dt
	pd.Vel.Y = core.ClampF(pd.Vel.Y, -p.PaddleMaxSpeed, p.PaddleMaxSpeed)
	pd.Pos.Y += pd.Vel.Y * dt
	pd.Vel.Y *= 0.5

	minY, maxY := p.PaddleMinY(), p.PaddleMaxY()
	if pd.Pos.Y < minY {
		pd.Pos.Y = minY
		pd.Vel.Y = 0
	} else if pd.Pos.Y > maxY {
		pd.Pos.Y = maxY
		pd.Vel.Y = 0
	}
}

// checkCollisions resolves ball/wall and ball/paddle interaction.
func checkCollisions(s *State, p Params) {
	r := p.BallRadius

	// Top and bottom walls invert the vertical component and
	// reposition the ball onto the boundary.
	if s.Ball.Pos.Y-r <= 0 && s.Ball.Vel.Y < 0 {
		s.Ball.Pos.Y = r
		s.Ball.Vel.Y = -s.Ball.Vel.Y
	}
	if s.Ball.Pos.Y+r >= p.ArenaHeight && s.Ball.Vel.Y > 0 {
		s.Ball.Pos.Y = p.ArenaHeight - r
		s.Ball.Vel.Y = -s.Ball.Vel.Y
	}

	collidePaddle(s, &s.Left, p)
	collidePaddle(s, &s.Right, p)
}

// collidePaddle runs a closest-point-on-rectangle test of the paddle
// against the ball's circle. On contact the ball velocity is reflected
// about the hit face's normal, the paddle's own velocity is added as
// spin, the ball is pushed just outside the paddle, and its speed is
// re-clamped to [BallMinSpeed, BallMaxSpeed].
func collidePaddle(s *State, pd *Paddle, p Params) {
	halfW, halfH := p.PaddleWidth/2, p.PaddleHeight/2
	r := p.BallRadius

	closest := core.Vec(
		core.ClampF(s.Ball.Pos.X, pd.Pos.X-halfW, pd.Pos.X+halfW),
		core.ClampF(s.Ball.Pos.Y, pd.Pos.Y-halfH, pd.Pos.Y+halfH),
	)
	if s.Ball.Pos.Sub(closest).Length() > r {
		return
	}

	// The face normal comes from the sign of the dominant axis of the
	// center-to-center offset, normalized by the expanded half-extents.
	offset := s.Ball.Pos.Sub(pd.Pos)
	nx := offset.X / (halfW + r)
	ny := offset.Y / (halfH + r)

	var normal core.Vector2
	if math.Abs(nx) >= math.Abs(ny) {
		normal = core.Vec(math.Copysign(1, nx), 0)
	} else {
		normal = core.Vec(0, math.Copysign(1, ny))
	}

	// Only resolve when the ball is actually moving into the paddle,
	// otherwise a slow separation would re-trigger the same hit.
	if s.Ball.Vel.Dot(normal) < 0 {
		s.Ball.Vel = s.Ball.Vel.Reflect(normal)
	}
	s.Ball.Vel = s.Ball.Vel.Add(pd.Vel)

	if normal.X != 0 {
		s.Ball.Pos.X = pd.Pos.X + normal.X*(halfW+r+repositionEpsilon)
	} else {
		s.Ball.Pos.Y = pd.Pos.Y + normal.Y*(halfH+r+repositionEpsilon)
	}

	s.Ball.Vel = core.ClampLength(s.Ball.Vel, p.BallMinSpeed, p.BallMaxSpeed)
}

// checkGoal scores a goal when the ball has passed fully beyond either
// vertical arena edge. The scorer is the opposite side. Positions are
// reset for the next serve unless the goal decided the match.
func checkGoal(s *State, p Params) Result {
	var scorer Side
	switch {
	case s.Ball.Pos.X+p.BallRadius < 0:
		scorer = SideRight
	case s.Ball.Pos.X-p.BallRadius > p.ArenaWidth:
		scorer = SideLeft
	default:
		return Result{}
	}

	if scorer == SideLeft {
		s.LeftScore++
	} else {
		s.RightScore++
	}

	res := Result{Goal: true, Scorer: scorer}
	if s.Score(scorer) >= p.MaxScore {
		res.GameOver = true
		res.Winner = scorer
		return res
	}

	s.ResetPositions(p)
	return res
}

// LaunchBall sets the ball moving in the given direction at the
// minimum ball speed. Direction magnitude is ignored.
func LaunchBall(s *State, p Params, dir core.Vector2) {
	s.Ball.Vel = dir.WithLength(p.BallMinSpeed)
}

// ServeDirection picks a serve direction toward the given side with a
// small random vertical angle, mirroring how the previous point ended.
func ServeDirection(rng *rand.Rand, toward Side) core.Vector2 {
	dx := 1.0
	if toward == SideLeft {
		dx = -1.0
	}
	return core.Vec(dx, (rng.Float64()-0.5)*0.6)
}
