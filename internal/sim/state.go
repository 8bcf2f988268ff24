package sim

import "github.com/arcadelab/paddle-arena/internal/core"

// Side identifies one half of the arena.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// String returns a human-readable side name.
func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Paddle is the kinematic state of one paddle. Pos is the paddle
// center; only the Y components of Vel and Acc are ever nonzero.
type Paddle struct {
	Pos core.Vector2 `json:"pos"`
	Vel core.Vector2 `json:"vel"`
	Acc core.Vector2 `json:"acc"`
}

// Ball is the kinematic state of the ball. Pos is the ball center.
type Ball struct {
	Pos core.Vector2 `json:"pos"`
	Vel core.Vector2 `json:"vel"`
	Acc core.Vector2 `json:"acc"`
}

// State is the mutable per-tick simulation snapshot for one match.
// It is created at match start, mutated every tick by Update, and
// discarded when the match ends. Only the owning session may write it.
type State struct {
	Left  Paddle `json:"left"`
	Right Paddle `json:"right"`
	Ball  Ball   `json:"ball"`

	LeftScore  int `json:"left_score"`
	RightScore int `json:"right_score"`
}

// NewState returns a state with paddles and ball centered and at rest.
func NewState(p Params) *State {
	s := &State{}
	s.ResetPositions(p)
	return s
}

// ResetPositions re-centers both paddles and the ball and zeroes all
// velocities. Scores are preserved.
func (s *State) ResetPositions(p Params) {
	midY := p.ArenaHeight / 2
	s.Left.Pos = core.Vec(p.PaddleGap, midY)
	s.Left.Vel = core.Vector2{}
	s.Left.Acc = core.Vector2{}
	s.Right.Pos = core.Vec(p.ArenaWidth-p.PaddleGap, midY)
	s.Right.Vel = core.Vector2{}
	s.Right.Acc = core.Vector2{}
	s.Ball.Pos = core.Vec(p.ArenaWidth/2, midY)
	s.Ball.Vel = core.Vector2{}
	s.Ball.Acc = core.Vector2{}
}

// Score returns the score for the given side.
func (s *State) Score(side Side) int {
	if side == SideLeft {
		return s.LeftScore
	}
	return s.RightScore
}

// Paddle returns a pointer to the paddle on the given side.
func (s *State) Paddle(side Side) *Paddle {
	if side == SideLeft {
		return &s.Left
	}
	return &s.Right
}

// Clone returns a copy of the state, safe to hand to other goroutines.
func (s *State) Clone() State {
	return *s
}
