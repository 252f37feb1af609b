package repository

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite connection shared by the repositories.
type DB struct {
	*sql.DB
}

// Open creates a SQLite connection with WAL journaling and performance
// pragmas applied.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &DB{DB: db}, nil
}

// Migrate creates the schema. It is idempotent.
func (db *DB) Migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			grade      TEXT,
			notes      TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tracking_entries (
			id                 TEXT PRIMARY KEY,
			student_id         TEXT NOT NULL,
			timestamp          DATETIME NOT NULL,
			environmental_data TEXT,
			notes              TEXT,
			general_notes      TEXT,
			created_at         DATETIME NOT NULL,
			updated_at         DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_student_ts
			ON tracking_entries(student_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS emotion_entries (
			id         TEXT PRIMARY KEY,
			entry_id   TEXT REFERENCES tracking_entries(id) ON DELETE CASCADE,
			student_id TEXT,
			emotion    TEXT NOT NULL,
			intensity  REAL NOT NULL,
			timestamp  DATETIME NOT NULL,
			triggers   TEXT,
			notes      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emotions_student_ts
			ON emotion_entries(student_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS sensory_entries (
			id           TEXT PRIMARY KEY,
			entry_id     TEXT REFERENCES tracking_entries(id) ON DELETE CASCADE,
			student_id   TEXT,
			sensory_type TEXT,
			response     TEXT NOT NULL,
			intensity    REAL,
			timestamp    DATETIME NOT NULL,
			location     TEXT,
			notes        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sensory_student_ts
			ON sensory_entries(student_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS goals (
			id           TEXT PRIMARY KEY,
			student_id   TEXT NOT NULL,
			title        TEXT NOT NULL,
			description  TEXT,
			target_value REAL NOT NULL,
			data_points  TEXT,
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
