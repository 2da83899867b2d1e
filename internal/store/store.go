// Package store provides SQLite persistence for the decoder: per-modality
// emotion history, user emotion profiles, decode logs and feedback.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex // Protects all database operations
	now func() time.Time
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, now: time.Now}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
// Timestamps are unix milliseconds.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS emotion_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		modality TEXT NOT NULL,
		emotion TEXT NOT NULL,
		confidence REAL NOT NULL,
		intensity REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_user ON emotion_history(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		trigger_words TEXT NOT NULL DEFAULT '[]',
		sensitivity REAL NOT NULL DEFAULT 0.5,
		risk_threshold REAL NOT NULL DEFAULT 0.7,
		recent_trend TEXT NOT NULL DEFAULT 'stable',
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decode_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		text TEXT NOT NULL,
		final_scene TEXT NOT NULL,
		confidence REAL NOT NULL,
		risk_level TEXT,
		result TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decode_created ON decode_logs(created_at DESC);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		decode_id TEXT NOT NULL REFERENCES decode_logs(id),
		kind TEXT NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_decode ON feedback(decode_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }
