package endpoint

import (
	"testing"
	"time"

	"github.com/arcadelab/paddle-arena/internal/sim"
)

func timeoutC(t *testing.T) <-chan time.Time {
	t.Helper()
	return time.After(time.Second)
}

func TestChannelEndpointDelivery(t *testing.T) {
	ep := NewChannelEndpoint("alice", 4)

	ep.Send(GoalEvent{Scorer: sim.SideLeft, LeftScore: 1})

	select {
	case evt := <-ep.Events():
		goal, ok := evt.(GoalEvent)
		if !ok {
			t.Fatalf("expected GoalEvent, got %T", evt)
		}
		if goal.LeftScore != 1 {
			t.Errorf("unexpected payload: %+v", goal)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestChannelEndpointDropsOldestWhenFull(t *testing.T) {
	ep := NewChannelEndpoint("bob", 2)

	ep.Send(StateEvent{Tick: 1})
	ep.Send(StateEvent{Tick: 2})
	ep.Send(StateEvent{Tick: 3}) // overflows, tick 1 is dropped

	first := <-ep.Events()
	if first.(StateEvent).Tick != 2 {
		t.Errorf("expected oldest surviving event to be tick 2, got %v", first)
	}
	second := <-ep.Events()
	if second.(StateEvent).Tick != 3 {
		t.Errorf("expected tick 3, got %v", second)
	}
}

func TestChannelEndpointInputHandler(t *testing.T) {
	ep := NewChannelEndpoint("carol", 4)

	var got []float64
	ep.OnInput(func(v float64) { got = append(got, v) })

	ep.SubmitInput(0.5)
	ep.SubmitInput(-1)

	if len(got) != 2 || got[0] != 0.5 || got[1] != -1 {
		t.Errorf("handler saw %v", got)
	}

	// Input before any handler is registered is silently discarded.
	fresh := NewChannelEndpoint("dave", 4)
	fresh.SubmitInput(1) // must not panic
}

func TestChannelEndpointClose(t *testing.T) {
	ep := NewChannelEndpoint("erin", 4)
	ep.Close()
	ep.Close() // idempotent

	select {
	case <-ep.Done():
	default:
		t.Fatal("Done should be closed")
	}

	// Sends after close are discarded.
	ep.Send(StateEvent{Tick: 9})
	select {
	case <-ep.Events():
		t.Fatal("event delivered after close")
	default:
	}
}

func TestFilterForwardsOnlyAllowedKinds(t *testing.T) {
	inner := NewChannelEndpoint("frank", 8)
	f := NewFilter(inner, KindGoal, KindGameOver)

	f.Send(StateEvent{Tick: 1})
	f.Send(GoalEvent{Scorer: sim.SideRight})
	f.Send(GameOverEvent{WinnerID: "frank"})

	if n := len(inner.events); n != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", n)
	}
	if _, ok := (<-inner.Events()).(GoalEvent); !ok {
		t.Error("expected GoalEvent first")
	}
	if _, ok := (<-inner.Events()).(GameOverEvent); !ok {
		t.Error("expected GameOverEvent second")
	}
}

func TestFilterCloseKeepsInnerOpen(t *testing.T) {
	inner := NewChannelEndpoint("grace", 8)
	f := NewFilter(inner, KindState)

	f.Close()

	select {
	case <-f.Done():
	default:
		t.Fatal("filter Done should be closed")
	}
	select {
	case <-inner.Done():
		t.Fatal("inner endpoint must survive filter close")
	default:
	}

	// Events stop flowing through a closed filter.
	f.Send(StateEvent{Tick: 4})
	select {
	case <-inner.Events():
		t.Fatal("closed filter forwarded an event")
	default:
	}
}

func TestFilterClosesWithInner(t *testing.T) {
	inner := NewChannelEndpoint("heidi", 8)
	f := NewFilter(inner, KindState)

	inner.Close()

	select {
	case <-f.Done():
	case <-timeoutC(t):
		t.Fatal("filter did not observe inner close")
	}
}

func TestFilterDetachesInput(t *testing.T) {
	inner := NewChannelEndpoint("ivan", 8)
	f := NewFilter(inner, KindState)

	var calls int
	f.OnInput(func(float64) { calls++ })

	inner.SubmitInput(1)
	f.Close()
	inner.SubmitInput(1)

	if calls != 1 {
		t.Errorf("expected 1 call before close, got %d", calls)
	}
}

func TestKindOf(t *testing.T) {
	cases := map[Kind]Event{
		KindState:     StateEvent{},
		KindGameFound: GameFoundEvent{},
		KindCountdown: CountdownEvent{},
		KindGoal:      GoalEvent{},
		KindGameOver:  GameOverEvent{},
		KindError:     ErrorEvent{},
	}
	for want, evt := range cases {
		if got := KindOf(evt); got != want {
			t.Errorf("KindOf(%T) = %v, want %v", evt, got, want)
		}
	}
}
