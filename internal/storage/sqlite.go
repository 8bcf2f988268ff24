// Package storage provides SQLite-based persistence for match results,
// tournaments and player presence. Uses the pure-Go modernc.org/sqlite
// driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/arcadelab/paddle-arena/internal/match"
	"github.com/arcadelab/paddle-arena/internal/matchmaking"
	"github.com/arcadelab/paddle-arena/internal/tournament"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			player1 TEXT NOT NULL,
			player2 TEXT NOT NULL,
			score1 INTEGER NOT NULL DEFAULT 0,
			score2 INTEGER NOT NULL DEFAULT 0,
			winner_id TEXT,
			status TEXT NOT NULL DEFAULT 'ongoing',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_matches_player1 ON matches(player1);
		CREATE INDEX IF NOT EXISTS idx_matches_player2 ON matches(player2);
		CREATE INDEX IF NOT EXISTS idx_matches_recent ON matches(created_at DESC);

		CREATE TABLE IF NOT EXISTS tournaments (
			id TEXT PRIMARY KEY,
			capacity INTEGER NOT NULL,
			bracket TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tournaments_status ON tournaments(status);

		CREATE TABLE IF NOT EXISTS user_status (
			user_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// parseTime normalizes a scanned datetime column - the driver may hand
// back either time.Time or a string.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// CreateMatch inserts a new ongoing match row and returns its id.
func (s *Store) CreateMatch(player1, player2 string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO matches (id, player1, player2) VALUES (?, ?, ?)",
		id, player1, player2,
	)
	if err != nil {
		return "", fmt.Errorf("storage: cannot create match: %w", err)
	}
	return id, nil
}

// UpdateMatchScore records an intermediate score for a running match.
func (s *Store) UpdateMatchScore(id string, score1, score2 int) error {
	res, err := s.db.Exec(
		`UPDATE matches
		 SET score1 = ?, score2 = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		score1, score2, id,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot update match score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return match.ErrNotFound
	}
	return nil
}

// FinishMatch records the terminal score, winner and status.
func (s *Store) FinishMatch(id string, score1, score2 int, winnerID string, status match.RecordStatus) error {
	res, err := s.db.Exec(
		`UPDATE matches
		 SET score1 = ?, score2 = ?, winner_id = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		score1, score2, winnerID, string(status), id,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return match.ErrNotFound
	}
	return nil
}

// MatchByID retrieves a match record by its id.
func (s *Store) MatchByID(id string) (match.Record, error) {
	var rec match.Record
	var winner sql.NullString
	var status string
	var createdAt, updatedAt any

	err := s.db.QueryRow(
		`SELECT id, player1, player2, score1, score2, winner_id, status, created_at, updated_at
		 FROM matches
		 WHERE id = ?`,
		id,
	).Scan(
		&rec.ID,
		&rec.Player1,
		&rec.Player2,
		&rec.Score1,
		&rec.Score2,
		&winner,
		&status,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return match.Record{}, match.ErrNotFound
	}
	if err != nil {
		return match.Record{}, fmt.Errorf("storage: cannot query match: %w", err)
	}

	if winner.Valid {
		rec.WinnerID = winner.String
	}
	rec.Status = match.RecordStatus(status)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)

	return rec, nil
}

// RecentMatches retrieves the most recently created matches.
func (s *Store) RecentMatches(limit int) ([]match.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, player1, player2, score1, score2, winner_id, status, created_at, updated_at
		 FROM matches
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// PlayerMatchHistory retrieves match history for a specific player.
func (s *Store) PlayerMatchHistory(userID string, limit int) ([]match.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, player1, player2, score1, score2, winner_id, status, created_at, updated_at
		 FROM matches
		 WHERE player1 = ? OR player2 = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		userID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query player matches: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]match.Record, error) {
	var records []match.Record
	for rows.Next() {
		var rec match.Record
		var winner sql.NullString
		var status string
		var createdAt, updatedAt any

		if err := rows.Scan(
			&rec.ID,
			&rec.Player1,
			&rec.Player2,
			&rec.Score1,
			&rec.Score2,
			&winner,
			&status,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan match row: %w", err)
		}

		if winner.Valid {
			rec.WinnerID = winner.String
		}
		rec.Status = match.RecordStatus(status)
		rec.CreatedAt = parseTime(createdAt)
		rec.UpdatedAt = parseTime(updatedAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return records, nil
}

// CreateTournament inserts a pending tournament row.
func (s *Store) CreateTournament(id string, capacity int) error {
	_, err := s.db.Exec(
		"INSERT INTO tournaments (id, capacity) VALUES (?, ?)",
		id, capacity,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot create tournament: %w", err)
	}
	return nil
}

// UpdateTournament stores the current bracket snapshot and status.
func (s *Store) UpdateTournament(id string, bracket []byte, status tournament.Status) error {
	res, err := s.db.Exec(
		`UPDATE tournaments
		 SET bracket = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		string(bracket), string(status), id,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot update tournament: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tournament.ErrNotFound
	}
	return nil
}

// LiveTournaments retrieves every tournament that has not finished.
func (s *Store) LiveTournaments() ([]tournament.Row, error) {
	rows, err := s.db.Query(
		`SELECT id, capacity, bracket, status, created_at, updated_at
		 FROM tournaments
		 WHERE status != ?
		 ORDER BY created_at`,
		string(tournament.StatusFinished),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query tournaments: %w", err)
	}
	defer rows.Close()

	var results []tournament.Row
	for rows.Next() {
		var row tournament.Row
		var bracket sql.NullString
		var status string
		var createdAt, updatedAt any

		if err := rows.Scan(&row.ID, &row.Capacity, &bracket, &status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan tournament row: %w", err)
		}

		if bracket.Valid {
			row.Bracket = []byte(bracket.String)
		}
		row.Status = tournament.Status(status)
		row.CreatedAt = parseTime(createdAt)
		row.UpdatedAt = parseTime(updatedAt)
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return results, nil
}

// SetUserStatus upserts a player's presence state.
func (s *Store) SetUserStatus(userID, status string) error {
	_, err := s.db.Exec(
		`INSERT INTO user_status (user_id, status, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET status = excluded.status, updated_at = CURRENT_TIMESTAMP`,
		userID, status,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot set user status: %w", err)
	}
	return nil
}

// UserStatus returns a player's presence state, or "offline" when the
// player has never been seen.
func (s *Store) UserStatus(userID string) (string, error) {
	var status string
	err := s.db.QueryRow(
		"SELECT status FROM user_status WHERE user_id = ?",
		userID,
	).Scan(&status)

	if err == sql.ErrNoRows {
		return "offline", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: cannot query user status: %w", err)
	}
	return status, nil
}

// The store backs every persistence collaborator in the core.
var (
	_ match.Recorder           = (*Store)(nil)
	_ tournament.Store         = (*Store)(nil)
	_ matchmaking.StatusSetter = (*Store)(nil)
)
