package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/sentinel/internal/model"
)

// Store is the operational security-event store, backed by SQLite.
// Inserts are idempotent on event id; queries filter by actor, time
// range, and minimum level.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS security_events (
	event_id    TEXT PRIMARY KEY,
	actor_id    TEXT NOT NULL,
	action_type TEXT NOT NULL,
	level       TEXT NOT NULL,
	level_rank  INTEGER NOT NULL,
	score       REAL NOT NULL,
	decision    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_actor_time ON security_events (actor_id, created_at);
CREATE INDEX IF NOT EXISTS idx_events_level ON security_events (level_rank);
`

// storeTimeFormat is fixed-width, unlike RFC3339Nano which trims
// trailing zeros, so lexicographic comparison in SQL matches
// chronological order.
const storeTimeFormat = "2006-01-02T15:04:05.000000000Z"

// OpenStore opens (or creates) the SQLite event store at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open store: %w", err)
	}

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Append inserts one event. A duplicate event id is a no-op success.
func (s *Store) Append(event model.SecurityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ledger: marshal event: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO security_events
			(event_id, actor_id, action_type, level, level_rank, score, decision, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		event.ID,
		event.ActorID,
		event.ActionType,
		string(event.Threat.Level),
		event.Threat.Level.Rank(),
		event.Threat.Score,
		string(event.Decision),
		event.Timestamp.UTC().Format(storeTimeFormat),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("ledger: insert event: %w", err)
	}
	return nil
}

// Query filters the operational store. Zero values mean "no constraint".
type Query struct {
	ActorID  string
	Since    time.Time
	Until    time.Time
	MinLevel model.Level
	Limit    int
}

// Events returns stored events matching the query, newest first.
func (s *Store) Events(q Query) ([]model.SecurityEvent, error) {
	where := "1=1"
	args := []any{}

	if q.ActorID != "" {
		where += " AND actor_id = ?"
		args = append(args, q.ActorID)
	}
	if !q.Since.IsZero() {
		where += " AND created_at >= ?"
		args = append(args, q.Since.UTC().Format(storeTimeFormat))
	}
	if !q.Until.IsZero() {
		where += " AND created_at <= ?"
		args = append(args, q.Until.UTC().Format(storeTimeFormat))
	}
	if q.MinLevel != "" {
		where += " AND level_rank >= ?"
		args = append(args, q.MinLevel.Rank())
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.Query(
		"SELECT payload FROM security_events WHERE "+where+" ORDER BY created_at DESC LIMIT ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: query events: %w", err)
	}
	defer rows.Close()

	var events []model.SecurityEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("ledger: scan row: %w", err)
		}
		var event model.SecurityEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("ledger: decode event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate rows: %w", err)
	}

	return events, nil
}

// Count returns the number of stored events.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM security_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: count events: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
