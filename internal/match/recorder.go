package match

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for lookups of unknown match ids.
var ErrNotFound = errors.New("match: not found")

// RecordStatus is the persisted lifecycle state of a match row.
type RecordStatus string

const (
	RecordOngoing  RecordStatus = "ongoing"
	RecordFinished RecordStatus = "finished"
	RecordForfeit  RecordStatus = "forfeit"
)

// Record is the persisted view of one match.
type Record struct {
	ID        string
	Player1   string
	Player2   string
	Score1    int
	Score2    int
	WinnerID  string
	Status    RecordStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recorder is the persistence collaborator for match results. The
// session reports scores as they happen and the terminal outcome once;
// it never reads its own simulation state back.
type Recorder interface {
	// CreateMatch allocates a persistent match id for the two players.
	CreateMatch(player1, player2 string) (string, error)

	// UpdateMatchScore records an intermediate score.
	UpdateMatchScore(id string, score1, score2 int) error

	// FinishMatch records the terminal score, winner and status.
	FinishMatch(id string, score1, score2 int, winnerID string, status RecordStatus) error

	// MatchByID returns the stored record, or ErrNotFound.
	MatchByID(id string) (Record, error)
}

// MemoryRecorder is an in-memory Recorder used by tests and the
// headless simulate command.
type MemoryRecorder struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{records: make(map[string]Record)}
}

// CreateMatch allocates a fresh uuid-backed record.
func (m *MemoryRecorder) CreateMatch(player1, player2 string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	now := time.Now()
	m.records[id] = Record{
		ID:        id,
		Player1:   player1,
		Player2:   player2,
		Status:    RecordOngoing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

// UpdateMatchScore records an intermediate score.
func (m *MemoryRecorder) UpdateMatchScore(id string, score1, score2 int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Score1, rec.Score2 = score1, score2
	rec.UpdatedAt = time.Now()
	m.records[id] = rec
	return nil
}

// FinishMatch records the terminal outcome.
func (m *MemoryRecorder) FinishMatch(id string, score1, score2 int, winnerID string, status RecordStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Score1, rec.Score2 = score1, score2
	rec.WinnerID = winnerID
	rec.Status = status
	rec.UpdatedAt = time.Now()
	m.records[id] = rec
	return nil
}

// MatchByID returns the stored record.
func (m *MemoryRecorder) MatchByID(id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

var _ Recorder = (*MemoryRecorder)(nil)
