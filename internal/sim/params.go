// Package sim implements the authoritative paddle-ball simulation: a
// deterministic fixed-timestep state transition for paddles, ball,
// collisions and scoring. It contains pure logic with no timers or I/O
// so that matches can be stepped from tests tick by tick.
package sim

// Params holds the immutable tuning for one match. A single Params
// value is shared by reference across all concurrently running
// sessions and must never be mutated after creation.
type Params struct {
	ArenaWidth  float64
	ArenaHeight float64

	PaddleWidth  float64
	PaddleHeight float64
	// PaddleGap is the distance between a paddle's center and its own
	// wall, and also the margin kept between paddle edges and the
	// top/bottom walls.
	PaddleGap      float64
	PaddleAccel    float64
	PaddleMaxSpeed float64

	BallRadius   float64
	BallMinSpeed float64
	BallMaxSpeed float64

	// MaxScore is the goal count that ends the match.
	MaxScore int

	// TickRate is simulation ticks per second.
	TickRate int

	CountdownSeconds float64
	GoalPauseSeconds float64
}

// DefaultParams returns the stock match tuning.
func DefaultParams() Params {
	return Params{
		ArenaWidth:       300,
		ArenaHeight:      150,
		PaddleWidth:      5,
		PaddleHeight:     50,
		PaddleGap:        10,
		PaddleAccel:      3.5,
		PaddleMaxSpeed:   2.5,
		BallRadius:       4,
		BallMinSpeed:     1.2,
		BallMaxSpeed:     4.5,
		MaxScore:         5,
		TickRate:         60,
		CountdownSeconds: 3,
		GoalPauseSeconds: 2,
	}
}

// TickInterval returns the duration of one tick in seconds.
func (p Params) TickInterval() float64 {
	if p.TickRate <= 0 {
		return 1.0 / 60
	}
	return 1.0 / float64(p.TickRate)
}

// PaddleMinY returns the lowest allowed paddle center y.
func (p Params) PaddleMinY() float64 {
	return p.PaddleGap + p.PaddleHeight/2
}

// PaddleMaxY returns the highest allowed paddle center y.
func (p Params) PaddleMaxY() float64 {
	return p.ArenaHeight - p.PaddleGap - p.PaddleHeight/2
}
