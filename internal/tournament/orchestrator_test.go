package tournament

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/match"
)

type memoryStore struct {
	mu   sync.Mutex
	rows map[string]*Row
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]*Row)}
}

func (s *memoryStore) CreateTournament(id string, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = &Row{ID: id, Capacity: capacity, Status: StatusPending, CreatedAt: time.Now()}
	return nil
}

func (s *memoryStore) UpdateTournament(id string, bracket []byte, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Bracket = bracket
	row.Status = status
	row.UpdatedAt = time.Now()
	return nil
}

func (s *memoryStore) LiveTournaments() ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var live []Row
	for _, row := range s.rows {
		if row.Status != StatusFinished {
			live = append(live, *row)
		}
	}
	return live, nil
}

func (s *memoryStore) row(id string) Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.rows[id]
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(evt Event) {
	l.mu.Lock()
	l.events = append(l.events, evt)
	l.mu.Unlock()
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, evt := range l.events {
		if evt.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) lastSetup() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == EventSetupMatch {
			return l.events[i], true
		}
	}
	return Event{}, false
}

type fixture struct {
	orch    *Orchestrator
	clock   *clock.Mock
	store   *memoryStore
	matches *match.Registry
	events  *eventLog
	players map[string]*endpoint.ChannelEndpoint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := clock.NewMock()
	recorder := match.NewMemoryRecorder()
	matches := match.NewRegistry(recorder, nil, nil)
	store := newMemoryStore()

	orch := New(Options{
		Matches:     matches,
		Recorder:    recorder,
		Store:       store,
		Clock:       mock,
		Seed:        1,
		SettleDelay: time.Second,
	})

	events := &eventLog{}
	orch.Subscribe(events.record)

	t.Cleanup(matches.StopAll)
	return &fixture{
		orch:    orch,
		clock:   mock,
		store:   store,
		matches: matches,
		events:  events,
		players: make(map[string]*endpoint.ChannelEndpoint),
	}
}

// joinAll creates n connected players and admits them.
func (f *fixture) joinAll(t *testing.T, id string, n int) {
	t.Helper()
	for i := range n {
		name := fmt.Sprintf("p%d", i)
		ep := endpoint.NewChannelEndpoint(name, 256)
		f.players[name] = ep
		require.NoError(t, f.orch.Join(id, ep))
	}
}

// playAnnouncedMatch readies both announced players, then decides the
// match by disconnecting the second one; the first advances by forfeit.
func (f *fixture) playAnnouncedMatch(t *testing.T, id string) string {
	t.Helper()

	setup, ok := f.events.lastSetup()
	require.True(t, ok, "no match announced")
	winner, loser := setup.Players[0], setup.Players[1]

	require.NoError(t, f.orch.Ready(id, winner))
	require.NoError(t, f.orch.Ready(id, loser))

	f.players[loser].Close()

	require.Eventually(t, func() bool {
		f.orch.mu.Lock()
		defer f.orch.mu.Unlock()
		slot := f.orch.tournaments[id].bracket.Rounds[setup.Round].Slots
		for _, s := range slot {
			if s.Has(winner) && s.State == SlotDecided {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond, "match between %s and %s never decided", winner, loser)

	// Let the settle delay elapse so the bracket advances.
	f.clock.Add(2 * time.Second)
	return winner
}

func TestCreateRejectsTinyCapacity(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Create(1)
	assert.Error(t, err)
}

func TestJoinAndLeaveWhilePending(t *testing.T) {
	f := newFixture(t)
	id, err := f.orch.Create(4)
	require.NoError(t, err)

	ep := endpoint.NewChannelEndpoint("alice", 64)
	require.NoError(t, f.orch.Join(id, ep))
	assert.Error(t, f.orch.Join(id, ep), "double join must fail")

	require.NoError(t, f.orch.Leave(id, "alice"))
	assert.Error(t, f.orch.Leave(id, "alice"), "leaving twice must fail")

	assert.Equal(t, 1, f.events.count(EventJoined))
	assert.Equal(t, 1, f.events.count(EventLeft))
}

func TestJoinUnknownTournament(t *testing.T) {
	f := newFixture(t)
	err := f.orch.Join("nope", endpoint.NewChannelEndpoint("alice", 64))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFillingCapacityStartsBracket(t *testing.T) {
	f := newFixture(t)
	id, err := f.orch.Create(4)
	require.NoError(t, err)

	f.joinAll(t, id, 4)

	status, err := f.orch.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusOngoing, status)

	setup, ok := f.events.lastSetup()
	require.True(t, ok, "first match should be announced")
	assert.Equal(t, 0, setup.Round)

	// Roster is frozen once ongoing.
	late := endpoint.NewChannelEndpoint("late", 64)
	assert.ErrorIs(t, f.orch.Join(id, late), ErrNotPending)
	assert.ErrorIs(t, f.orch.Leave(id, "p0"), ErrNotPending)

	assert.Equal(t, StatusOngoing, f.store.row(id).Status)
	assert.NotEmpty(t, f.store.row(id).Bracket)
}

func TestReadyBarrier(t *testing.T) {
	f := newFixture(t)
	id, err := f.orch.Create(2)
	require.NoError(t, err)
	f.joinAll(t, id, 2)

	setup, ok := f.events.lastSetup()
	require.True(t, ok)

	// One ready signal is not enough.
	require.NoError(t, f.orch.Ready(id, setup.Players[0]))
	assert.Equal(t, 0, f.matches.Count())

	// An outsider cannot ready up for this match.
	assert.ErrorIs(t, f.orch.Ready(id, "stranger"), ErrNotInMatch)

	require.NoError(t, f.orch.Ready(id, setup.Players[1]))
	assert.Equal(t, 1, f.matches.Count())

	// A late ready for the already-started match is a quiet no-op.
	assert.NoError(t, f.orch.Ready(id, setup.Players[0]))
}

func TestReadyRequiresOngoing(t *testing.T) {
	f := newFixture(t)
	id, err := f.orch.Create(4)
	require.NoError(t, err)

	ep := endpoint.NewChannelEndpoint("alice", 64)
	require.NoError(t, f.orch.Join(id, ep))
	assert.ErrorIs(t, f.orch.Ready(id, "alice"), ErrNotOngoing)
}

func TestEightPlayersProduceThreeRounds(t *testing.T) {
	f := newFixture(t)
	id, err := f.orch.Create(8)
	require.NoError(t, err)
	f.joinAll(t, id, 8)

	// 4 + 2 + 1 matches decide the bracket.
	var lastWinner string
	for range 7 {
		lastWinner = f.playAnnouncedMatch(t, id)
	}

	status, err := f.orch.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, status)

	f.orch.mu.Lock()
	rounds := len(f.orch.tournaments[id].bracket.Rounds)
	f.orch.mu.Unlock()
	assert.Equal(t, 3, rounds)

	assert.Equal(t, 1, f.events.count(EventFinished), "finish must fire exactly once")

	var finished Event
	f.events.mu.Lock()
	for _, evt := range f.events.events {
		if evt.Kind == EventFinished {
			finished = evt
		}
	}
	f.events.mu.Unlock()
	assert.Equal(t, lastWinner, finished.WinnerID)
	assert.Equal(t, StatusFinished, f.store.row(id).Status)

	// The champion's connection survived every embedded match.
	select {
	case <-f.players[lastWinner].Done():
		t.Error("winner's tournament connection must stay open")
	default:
	}
}

func TestOddWinnersGetABye(t *testing.T) {
	f := newFixture(t)
	id, err := f.orch.Create(3)
	require.NoError(t, err)
	f.joinAll(t, id, 3)

	// Round one: a single real match plus a bye.
	winner := f.playAnnouncedMatch(t, id)

	f.orch.mu.Lock()
	rounds := len(f.orch.tournaments[id].bracket.Rounds)
	f.orch.mu.Unlock()
	require.Equal(t, 2, rounds, "bye and match winner should meet in round two")

	// Round two: the match winner against the bye recipient.
	setup, ok := f.events.lastSetup()
	require.True(t, ok)
	assert.Equal(t, 1, setup.Round)
	assert.True(t, setup.Players[0] == winner || setup.Players[1] == winner)

	f.playAnnouncedMatch(t, id)

	status, err := f.orch.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, status)
	assert.Equal(t, 1, f.events.count(EventFinished))
}

func TestEmbeddedMatchFlowsThroughRelay(t *testing.T) {
	f := newFixture(t)
	id, err := f.orch.Create(2)
	require.NoError(t, err)
	f.joinAll(t, id, 2)

	setup, _ := f.events.lastSetup()
	require.NoError(t, f.orch.Ready(id, setup.Players[0]))
	require.NoError(t, f.orch.Ready(id, setup.Players[1]))

	// The pairing announcement is the tournament's to make: the match's
	// own game_found must not leak through the relay.
	deadline := time.After(time.Second)
	for {
		select {
		case evt := <-f.players[setup.Players[0]].Events():
			require.NotEqual(t, endpoint.KindGameFound, endpoint.KindOf(evt))
			if endpoint.KindOf(evt) == endpoint.KindCountdown {
				return
			}
		case <-deadline:
			t.Fatal("no countdown reached the player connection")
		}
	}
}

func TestLiveTournaments(t *testing.T) {
	f := newFixture(t)
	id1, err := f.orch.Create(2)
	require.NoError(t, err)
	_, err = f.orch.Create(4)
	require.NoError(t, err)

	f.joinAll(t, id1, 2)
	f.playAnnouncedMatch(t, id1)

	live, err := f.store.LiveTournaments()
	require.NoError(t, err)
	assert.Len(t, live, 1, "finished tournaments drop out of the live set")
}
