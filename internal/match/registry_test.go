package match

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/arcadelab/paddle-arena/internal/endpoint"
)

type countingMetrics struct {
	started  atomic.Int64
	finished atomic.Int64
}

func (c *countingMetrics) MatchStarted()  { c.started.Add(1) }
func (c *countingMetrics) MatchFinished() { c.finished.Add(1) }

func TestRegistryCreateTracksSession(t *testing.T) {
	metrics := &countingMetrics{}
	reg := NewRegistry(NewMemoryRecorder(), nil, metrics)

	left := endpoint.NewChannelEndpoint("alice", 64)
	right := endpoint.NewChannelEndpoint("bob", 64)

	sess, err := reg.Create(left, right, Options{Params: testParams(), Clock: clock.NewMock()})
	if err != nil {
		t.Fatal(err)
	}

	if reg.Count() != 1 {
		t.Errorf("expected 1 running session, got %d", reg.Count())
	}
	got, ok := reg.Get(sess.ID())
	if !ok || got != sess {
		t.Error("session not retrievable by id")
	}
	if metrics.started.Load() != 1 {
		t.Errorf("expected 1 start observation, got %d", metrics.started.Load())
	}
}

func TestRegistryRemovesSessionOnCompletion(t *testing.T) {
	metrics := &countingMetrics{}
	reg := NewRegistry(NewMemoryRecorder(), nil, metrics)

	var completions atomic.Int64
	left := endpoint.NewChannelEndpoint("alice", 64)
	right := endpoint.NewChannelEndpoint("bob", 64)

	sess, err := reg.Create(left, right, Options{
		Params:     testParams(),
		Clock:      clock.NewMock(),
		OnComplete: func(Result) { completions.Add(1) },
	})
	if err != nil {
		t.Fatal(err)
	}

	// Disconnect ends the match; registry bookkeeping runs before the
	// caller's callback.
	left.Close()
	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("session never completed")
	}

	deadline := time.Now().Add(time.Second)
	for reg.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("completed session still tracked")
		}
		time.Sleep(time.Millisecond)
	}
	if completions.Load() != 1 {
		t.Errorf("expected exactly one completion, got %d", completions.Load())
	}
	if metrics.finished.Load() != 1 {
		t.Errorf("expected 1 finish observation, got %d", metrics.finished.Load())
	}
}

func TestRegistryStopAll(t *testing.T) {
	reg := NewRegistry(NewMemoryRecorder(), nil, nil)

	var sessions []*Session
	for _, pair := range [][2]string{{"a", "b"}, {"c", "d"}, {"e", "f"}} {
		left := endpoint.NewChannelEndpoint(pair[0], 64)
		right := endpoint.NewChannelEndpoint(pair[1], 64)
		sess, err := reg.Create(left, right, Options{Params: testParams(), Clock: clock.NewMock()})
		if err != nil {
			t.Fatal(err)
		}
		sessions = append(sessions, sess)
	}

	reg.StopAll()

	for _, sess := range sessions {
		select {
		case <-sess.Done():
		case <-time.After(time.Second):
			t.Fatalf("session %s survived StopAll", sess.ID())
		}
	}

	deadline := time.Now().Add(time.Second)
	for reg.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("registry not empty after StopAll")
		}
		time.Sleep(time.Millisecond)
	}
}

type failingRecorder struct{ Recorder }

func (failingRecorder) CreateMatch(string, string) (string, error) {
	return "", ErrNotFound
}

func TestRegistryCreateSurfacesRecorderError(t *testing.T) {
	reg := NewRegistry(failingRecorder{NewMemoryRecorder()}, nil, nil)

	left := endpoint.NewChannelEndpoint("alice", 64)
	right := endpoint.NewChannelEndpoint("bob", 64)

	if _, err := reg.Create(left, right, Options{Params: testParams()}); err == nil {
		t.Fatal("expected an error from the recorder")
	}
	if reg.Count() != 0 {
		t.Errorf("failed create must not track a session, got %d", reg.Count())
	}
}
