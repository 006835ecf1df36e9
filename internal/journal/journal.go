// Package journal keeps a SQLite record of every injection attempt made
// by the agent.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vinput/internal/input"
)

// FileName is the database file created inside the config directory
// when no explicit path is configured.
const FileName = "journal.db"

type DB struct {
	conn *sql.DB
}

// Entry is one recorded injection attempt
type Entry struct {
	ID       int64         `json:"id"`
	Time     time.Time     `json:"time"`
	Backend  string        `json:"backend"`
	Kind     string        `json:"kind"`
	Event    string        `json:"event"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Open opens the database at path and initializes the schema
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// WAL lets /api/journal read while the injectors write
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS injections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_ms INTEGER NOT NULL,
		backend TEXT NOT NULL,
		kind TEXT NOT NULL,
		event TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		error_message TEXT,
		duration_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_injections_timestamp ON injections(timestamp_ms);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Record stores the outcome of one Simulate call
func (db *DB) Record(o input.Outcome) error {
	var errMsg sql.NullString
	if o.Err != nil {
		errMsg = sql.NullString{String: rootCause(o.Err).Error(), Valid: true}
	}
	_, err := db.conn.Exec(`
		INSERT INTO injections (timestamp_ms, backend, kind, event, success, error_message, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), o.Backend, o.Event.Kind.String(), o.Event.String(),
		o.Err == nil, errMsg, int64(o.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to record injection: %w", err)
	}
	return nil
}

// Observer returns a callback for input.WithObserver that records every
// outcome. Write failures are logged and otherwise ignored.
func (db *DB) Observer() func(input.Outcome) {
	return func(o input.Outcome) {
		if err := db.Record(o); err != nil {
			log.Printf("Journal: %v", err)
		}
	}
}

// Recent returns up to limit entries, newest first
func (db *DB) Recent(limit int) ([]Entry, error) {
	rows, err := db.conn.Query(`
		SELECT id, timestamp_ms, backend, kind, event, success, error_message, duration_ns
		FROM injections
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query injections: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e      Entry
			ms     int64
			ns     int64
			errMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &ms, &e.Backend, &e.Kind, &e.Event, &e.Success, &errMsg, &ns); err != nil {
			return nil, fmt.Errorf("failed to scan injection: %w", err)
		}
		e.Time = time.UnixMilli(ms)
		e.Duration = time.Duration(ns)
		if errMsg.Valid {
			e.Error = errMsg.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of successful and failed injections
func (db *DB) Counts() (ok, failed int, err error) {
	err = db.conn.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM injections`).Scan(&ok, &failed)
	return ok, failed, err
}

// rootCause strips the "could not simulate" wrapper so the stored message
// names the failing step.
func rootCause(err error) error {
	var se *input.SimulateError
	if errors.As(err, &se) {
		if inner := errors.Unwrap(se); inner != nil {
			return inner
		}
	}
	return err
}
