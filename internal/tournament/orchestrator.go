package tournament

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/match"
	"github.com/arcadelab/paddle-arena/internal/sim"
)

// Status is a tournament's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusOngoing  Status = "ongoing"
	StatusFinished Status = "finished"
)

var (
	// ErrNotFound is returned for unknown tournament ids.
	ErrNotFound = errors.New("tournament: not found")

	// ErrNotPending is returned when joining or leaving after the
	// bracket was generated.
	ErrNotPending = errors.New("tournament: not accepting roster changes")

	// ErrNotOngoing is returned for match operations outside the
	// ongoing state.
	ErrNotOngoing = errors.New("tournament: not ongoing")

	// ErrNotInMatch is returned when a player readies up for a match
	// they are not part of.
	ErrNotInMatch = errors.New("tournament: player not in the next match")

	// ErrNoPendingMatch is returned when readying up while no match is
	// waiting to be scheduled.
	ErrNoPendingMatch = errors.New("tournament: no match waiting")
)

// Row is the persisted view of one tournament.
type Row struct {
	ID        string
	Capacity  int
	Status    Status
	Bracket   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence collaborator for tournaments.
type Store interface {
	CreateTournament(id string, capacity int) error
	UpdateTournament(id string, bracket []byte, status Status) error
	LiveTournaments() ([]Row, error)
}

// EventKind classifies listener notifications.
type EventKind string

const (
	EventJoined        EventKind = "joined"
	EventLeft          EventKind = "left"
	EventBracketUpdate EventKind = "bracket_update"
	EventSetupMatch    EventKind = "setup_match"
	EventFinished      EventKind = "finished"
)

// Event is a bracket-mutation notification delivered to subscribers,
// typically a relay that fans state out to spectators.
type Event struct {
	Kind         EventKind
	TournamentID string
	UserID       string
	Round        int
	Players      [2]string
	WinnerID     string
}

// tournament is one bracket and its roster. All access goes through
// the orchestrator's lock.
type tournament struct {
	id       string
	capacity int
	status   Status
	players  map[string]endpoint.Endpoint
	order    []string
	bracket  *Bracket
	ready    map[string]bool

	// announced is the slot last published via setup_match, so repeated
	// advancement attempts do not spam subscribers.
	announced *Slot
}

// Options wires the orchestrator's collaborators. Matches, Recorder
// and Store are required.
type Options struct {
	Matches  *match.Registry
	Recorder match.Recorder
	Store    Store
	Params   sim.Params
	Clock    clock.Clock
	Logger   *log.Logger
	Seed     int64

	// SettleDelay is the pause between a match being decided and the
	// bracket advancing.
	SettleDelay time.Duration
}

// Orchestrator runs every live tournament. A single lock serializes
// bracket mutation; completion callbacks from concurrent matches in
// the same round queue up behind it.
type Orchestrator struct {
	matches  *match.Registry
	recorder match.Recorder
	store    Store
	params   sim.Params
	clk      clock.Clock
	logger   *log.Logger
	settle   time.Duration

	mu           sync.Mutex
	tournaments  map[string]*tournament
	listeners    map[int]func(Event)
	nextListener int
	rng          *rand.Rand
}

// New creates an orchestrator with no tournaments.
func New(opts Options) *Orchestrator {
	if opts.Params.TickRate == 0 {
		opts.Params = sim.DefaultParams()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	return &Orchestrator{
		matches:     opts.Matches,
		recorder:    opts.Recorder,
		store:       opts.Store,
		params:      opts.Params,
		clk:         opts.Clock,
		logger:      opts.Logger.With("component", "tournament"),
		settle:      opts.SettleDelay,
		tournaments: make(map[string]*tournament),
		listeners:   make(map[int]func(Event)),
		rng:         rand.New(rand.NewSource(opts.Seed)),
	}
}

// Subscribe registers a listener for bracket events. Listeners run
// outside the orchestrator lock and must not block. The returned
// function removes the listener again.
func (o *Orchestrator) Subscribe(fn func(Event)) (cancel func()) {
	o.mu.Lock()
	id := o.nextListener
	o.nextListener++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// Create opens a pending tournament for the given player capacity.
func (o *Orchestrator) Create(capacity int) (string, error) {
	if capacity < 2 {
		return "", fmt.Errorf("tournament: capacity %d too small", capacity)
	}

	id := uuid.NewString()
	if err := o.store.CreateTournament(id, capacity); err != nil {
		return "", fmt.Errorf("tournament: create: %w", err)
	}

	o.mu.Lock()
	o.tournaments[id] = &tournament{
		id:       id,
		capacity: capacity,
		status:   StatusPending,
		players:  make(map[string]endpoint.Endpoint),
		ready:    make(map[string]bool),
	}
	o.mu.Unlock()

	o.logger.Info("tournament created", "tournament_id", id, "capacity", capacity)
	return id, nil
}

// Join admits a player while the tournament is pending. Reaching
// capacity generates the first round and transitions to ongoing.
func (o *Orchestrator) Join(id string, ep endpoint.Endpoint) error {
	o.mu.Lock()
	t, ok := o.tournaments[id]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.status != StatusPending {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotPending, id, t.status)
	}
	if _, joined := t.players[ep.ID()]; joined {
		o.mu.Unlock()
		return fmt.Errorf("tournament: %s already joined %s", ep.ID(), id)
	}

	t.players[ep.ID()] = ep
	t.order = append(t.order, ep.ID())
	events := []Event{{Kind: EventJoined, TournamentID: id, UserID: ep.ID()}}

	if len(t.order) == t.capacity {
		events = append(events, o.startLocked(t)...)
	}
	o.mu.Unlock()

	o.emit(events...)
	return nil
}

// Leave withdraws a player. Withdrawal is permitted only while the
// tournament is pending.
func (o *Orchestrator) Leave(id, userID string) error {
	o.mu.Lock()
	t, ok := o.tournaments[id]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.status != StatusPending {
		o.mu.Unlock()
		return fmt.Errorf("%w: cannot leave %s tournament", ErrNotPending, t.status)
	}
	if _, joined := t.players[userID]; !joined {
		o.mu.Unlock()
		return fmt.Errorf("tournament: %s not in %s", userID, id)
	}

	delete(t.players, userID)
	for i, uid := range t.order {
		if uid == userID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	o.mu.Unlock()

	o.emit(Event{Kind: EventLeft, TournamentID: id, UserID: userID})
	return nil
}

// Ready marks a player ready for the next unscheduled match. The match
// starts only once both of its players have readied up; readying again
// after the match started is a no-op.
func (o *Orchestrator) Ready(id, userID string) error {
	o.mu.Lock()
	t, ok := o.tournaments[id]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.status != StatusOngoing {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotOngoing, id, t.status)
	}

	slot := t.bracket.CurrentRound().NextUnscheduled()
	if slot == nil {
		// Late ready signal for a match that already started.
		if sched := t.bracket.CurrentRound(); sched != nil {
			for _, s := range sched.Slots {
				if s.State == SlotScheduled && s.Has(userID) {
					o.mu.Unlock()
					return nil
				}
			}
		}
		o.mu.Unlock()
		return ErrNoPendingMatch
	}
	if !slot.Has(userID) {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotInMatch, userID)
	}

	t.ready[userID] = true
	var events []Event
	var err error
	if t.ready[slot.Players[0]] && t.ready[slot.Players[1]] {
		events, err = o.scheduleLocked(t, slot)
	}
	o.mu.Unlock()

	o.emit(events...)
	return err
}

// Status returns a tournament's lifecycle state.
func (o *Orchestrator) Status(id string) (Status, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tournaments[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.status, nil
}

// startLocked generates round one and transitions to ongoing. Callers
// hold o.mu.
func (o *Orchestrator) startLocked(t *tournament) []Event {
	t.status = StatusOngoing
	t.bracket = &Bracket{Rounds: []*Round{newRound(t.order, o.rng)}}
	o.persistLocked(t)

	o.logger.Info("tournament started", "tournament_id", t.id, "players", len(t.order))

	events := []Event{{Kind: EventBracketUpdate, TournamentID: t.id}}
	if evt, ok := o.announceNextLocked(t); ok {
		events = append(events, evt)
	}
	return events
}

// announceNextLocked publishes the next unscheduled slot once and
// resets the ready barrier for it. Callers hold o.mu.
func (o *Orchestrator) announceNextLocked(t *tournament) (Event, bool) {
	slot := t.bracket.CurrentRound().NextUnscheduled()
	if slot == nil || slot == t.announced {
		return Event{}, false
	}
	t.announced = slot
	t.ready = make(map[string]bool)
	return Event{
		Kind:         EventSetupMatch,
		TournamentID: t.id,
		Round:        len(t.bracket.Rounds) - 1,
		Players:      slot.Players,
	}, true
}

// scheduleLocked starts the match for a slot whose players are both
// ready. Each player's persistent connection is wrapped in a filtering
// relay so match traffic flows through it without the match owning it.
// Callers hold o.mu.
func (o *Orchestrator) scheduleLocked(t *tournament, slot *Slot) ([]Event, error) {
	left := o.relayFor(t, slot.Players[0])
	right := o.relayFor(t, slot.Players[1])
	round := len(t.bracket.Rounds) - 1

	tid := t.id
	sess, err := o.matches.Create(left, right, match.Options{
		Params:       o.params,
		Clock:        o.clk,
		Seed:         o.rng.Int63(),
		TournamentID: tid,
		Round:        round,
		OnComplete: func(res match.Result) {
			o.handleResult(tid, res)
		},
	})
	if err != nil {
		left.Close()
		right.Close()
		return nil, fmt.Errorf("tournament: schedule match: %w", err)
	}

	slot.State = SlotScheduled
	slot.MatchID = sess.ID()
	o.persistLocked(t)

	o.logger.Info("tournament match started",
		"tournament_id", t.id,
		"round", round,
		"match_id", sess.ID(),
		"players", fmt.Sprintf("%s vs %s", slot.Players[0], slot.Players[1]),
	)
	return []Event{{Kind: EventBracketUpdate, TournamentID: t.id}}, nil
}

// relayFor wraps a player's tournament connection for one embedded
// match. The pairing announcement is dropped: the tournament already
// published it through setup_match.
func (o *Orchestrator) relayFor(t *tournament, userID string) endpoint.Endpoint {
	return endpoint.NewFilter(t.players[userID],
		endpoint.KindState,
		endpoint.KindCountdown,
		endpoint.KindGoal,
		endpoint.KindGameOver,
		endpoint.KindError,
	)
}

// handleResult records a finished match on its bracket slot and
// schedules advancement after the settle delay.
func (o *Orchestrator) handleResult(id string, res match.Result) {
	o.mu.Lock()
	t, ok := o.tournaments[id]
	if !ok {
		o.mu.Unlock()
		return
	}

	slot, round := t.bracket.SlotByMatchID(res.MatchID)
	if slot == nil {
		o.mu.Unlock()
		o.logger.Warn("completion for unknown bracket slot", "tournament_id", id, "match_id", res.MatchID)
		return
	}

	// The persisted record is authoritative for the winner.
	winner := res.WinnerID
	if rec, err := o.recorder.MatchByID(res.MatchID); err == nil && rec.WinnerID != "" {
		winner = rec.WinnerID
	}

	var events []Event
	if winner == "" {
		// Administrative teardown decided nothing: the slot goes back
		// to waiting and the pairing is announced again.
		slot.State = SlotUnscheduled
		slot.MatchID = ""
		t.announced = nil
		o.persistLocked(t)
		if evt, ok := o.announceNextLocked(t); ok {
			events = append(events, evt)
		}
	} else {
		slot.State = SlotDecided
		slot.WinnerID = winner
		o.persistLocked(t)
		events = append(events, Event{Kind: EventBracketUpdate, TournamentID: id})

		o.logger.Info("tournament match decided",
			"tournament_id", id,
			"round", round,
			"match_id", res.MatchID,
			"winner", winner,
		)
		o.clk.AfterFunc(o.settle, func() {
			o.advance(id)
		})
	}
	o.mu.Unlock()

	o.emit(events...)
}

// advance moves the bracket forward after a settle delay: announce the
// next match in the round, generate the next round from the winners,
// or finish the tournament.
func (o *Orchestrator) advance(id string) {
	o.mu.Lock()
	t, ok := o.tournaments[id]
	if !ok || t.status != StatusOngoing {
		o.mu.Unlock()
		return
	}

	var events []Event
	round := t.bracket.CurrentRound()
	switch {
	case !round.Complete():
		if evt, ok := o.announceNextLocked(t); ok {
			events = append(events, evt)
		}

	default:
		winners := round.Winners()
		if len(winners) <= 1 {
			t.status = StatusFinished
			o.persistLocked(t)
			var champion string
			if len(winners) == 1 {
				champion = winners[0]
			}
			events = append(events, Event{Kind: EventFinished, TournamentID: id, WinnerID: champion})
			o.logger.Info("tournament finished", "tournament_id", id, "winner", champion)
			break
		}

		t.bracket.Rounds = append(t.bracket.Rounds, newRound(winners, o.rng))
		t.announced = nil
		o.persistLocked(t)
		events = append(events, Event{Kind: EventBracketUpdate, TournamentID: id})
		if evt, ok := o.announceNextLocked(t); ok {
			events = append(events, evt)
		}
		o.logger.Info("tournament round generated",
			"tournament_id", id,
			"round", len(t.bracket.Rounds)-1,
			"players", len(winners),
		)
	}
	o.mu.Unlock()

	o.emit(events...)
}

// persistLocked writes the bracket snapshot through the store; storage
// failures are logged and the tournament carries on in memory. Callers
// hold o.mu.
func (o *Orchestrator) persistLocked(t *tournament) {
	raw, err := json.Marshal(t.bracket)
	if err != nil {
		o.logger.Error("bracket encode failed", "tournament_id", t.id, "err", err)
		return
	}
	if err := o.store.UpdateTournament(t.id, raw, t.status); err != nil {
		o.logger.Error("tournament persistence failed", "tournament_id", t.id, "err", err)
	}
}

// emit delivers events to all subscribers outside the lock.
func (o *Orchestrator) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	o.mu.Lock()
	listeners := make([]func(Event), 0, len(o.listeners))
	for _, fn := range o.listeners {
		listeners = append(listeners, fn)
	}
	o.mu.Unlock()

	for _, evt := range events {
		for _, fn := range listeners {
			fn(evt)
		}
	}
}
