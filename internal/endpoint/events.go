// Package endpoint defines the participant abstraction for matches:
// anything that can receive simulation events and supply paddle input.
// Concrete variants are the channel-backed endpoint used by network
// transports, the filtering relay used for tournament-embedded
// matches, and the AI opponent in the ai package.
package endpoint

import "github.com/arcadelab/paddle-arena/internal/sim"

// Event is a message delivered to an endpoint.
type Event interface {
	event()
}

// Kind classifies events for filtering.
type Kind int

const (
	KindState Kind = iota
	KindGameFound
	KindCountdown
	KindGoal
	KindGameOver
	KindError
)

// String returns the wire-level name of the event kind.
func (k Kind) String() string {
	switch k {
	case KindState:
		return "game_state"
	case KindGameFound:
		return "game_found"
	case KindCountdown:
		return "start_countdown"
	case KindGoal:
		return "goal"
	case KindGameOver:
		return "game_over"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// StateEvent carries the full simulation snapshot, broadcast every
// tick while a match runs.
type StateEvent struct {
	MatchID string
	Tick    uint64
	State   sim.State
}

func (StateEvent) event() {}

// GameFoundEvent tells a participant which side it plays and who the
// opponent is.
type GameFoundEvent struct {
	MatchID    string
	Side       sim.Side
	OpponentID string
}

func (GameFoundEvent) event() {}

// CountdownEvent announces the delay before the next ball launch.
type CountdownEvent struct {
	MatchID string
	Seconds float64
}

func (CountdownEvent) event() {}

// GoalEvent is sent after a goal, before the pause that follows it.
type GoalEvent struct {
	MatchID    string
	Scorer     sim.Side
	LeftScore  int
	RightScore int
}

func (GoalEvent) event() {}

// GameOverEvent ends a match. WinnerID is empty only if the match was
// torn down administratively.
type GameOverEvent struct {
	MatchID  string
	WinnerID string
	Forfeit  bool
}

func (GameOverEvent) event() {}

// ErrorEvent notifies the surviving peer of abnormal termination.
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) event() {}

// KindOf returns the kind of an event.
func KindOf(evt Event) Kind {
	switch evt.(type) {
	case StateEvent:
		return KindState
	case GameFoundEvent:
		return KindGameFound
	case CountdownEvent:
		return KindCountdown
	case GoalEvent:
		return KindGoal
	case GameOverEvent:
		return KindGameOver
	case ErrorEvent:
		return KindError
	default:
		return Kind(-1)
	}
}
