package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema is executed on first open; IF NOT EXISTS makes it safe on every
// startup, same as internal/board's sqlite schema.
const schema = `
CREATE TABLE IF NOT EXISTS session_snapshots (
    session_id  TEXT PRIMARY KEY,
    scenario    TEXT NOT NULL,
    histogram   TEXT NOT NULL,
    missed      INTEGER NOT NULL,
    total_ms    INTEGER NOT NULL,
    avg_ms      REAL NOT NULL,
    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store persists SessionMetricsSnapshots so a restart can still report the
// last reporting window, grounded on internal/board/sqlite.go's
// single-connection WAL setup.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the sqlite database at dbPath and ensures
// the schema exists.
func OpenStore(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("metrics: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// SaveSnapshot upserts snap keyed by its SessionID.
func (s *Store) SaveSnapshot(ctx context.Context, snap SessionMetricsSnapshot) error {
	histJSON, err := json.Marshal(snap.Histogram)
	if err != nil {
		return fmt.Errorf("metrics: marshal histogram: %w", err)
	}

	const q = `
		INSERT INTO session_snapshots (session_id, scenario, histogram, missed, total_ms, avg_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
			scenario   = excluded.scenario,
			histogram  = excluded.histogram,
			missed     = excluded.missed,
			total_ms   = excluded.total_ms,
			avg_ms     = excluded.avg_ms,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, q, snap.SessionID, snap.ScenarioType, string(histJSON), snap.MissedCadence, snap.TotalFrameTimeMS, snap.AvgFrameTimeMS); err != nil {
		return fmt.Errorf("metrics: save snapshot %q: %w", snap.SessionID, err)
	}
	return nil
}

// LoadSnapshot returns the last persisted snapshot for sessionID, or the
// zero value and false if none exists.
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) (SessionMetricsSnapshot, bool, error) {
	const q = `SELECT scenario, histogram, missed, total_ms, avg_ms FROM session_snapshots WHERE session_id = ?`
	row := s.db.QueryRowContext(ctx, q, sessionID)

	var snap SessionMetricsSnapshot
	var histJSON string
	if err := row.Scan(&snap.ScenarioType, &histJSON, &snap.MissedCadence, &snap.TotalFrameTimeMS, &snap.AvgFrameTimeMS); err != nil {
		if err == sql.ErrNoRows {
			return SessionMetricsSnapshot{}, false, nil
		}
		return SessionMetricsSnapshot{}, false, fmt.Errorf("metrics: load snapshot %q: %w", sessionID, err)
	}
	snap.SessionID = sessionID
	if err := json.Unmarshal([]byte(histJSON), &snap.Histogram); err != nil {
		return SessionMetricsSnapshot{}, false, fmt.Errorf("metrics: unmarshal histogram: %w", err)
	}
	return snap, true, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
