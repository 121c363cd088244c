// Package history provides the SQLite-backed run-history and preset store.
// Run records are append-only: one per completed conversion run, cleared
// only wholesale. This is the only state that survives process restarts.
package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	batch_hash TEXT NOT NULL,
	file_count INTEGER NOT NULL,
	naming     TEXT,
	formatting TEXT
);

CREATE TABLE IF NOT EXISTS run_notes (
	run_id    INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	note_hash TEXT NOT NULL,
	UNIQUE(run_id, note_hash)
);

CREATE INDEX IF NOT EXISTS idx_run_notes_hash ON run_notes(note_hash);
CREATE INDEX IF NOT EXISTS idx_runs_batch_hash ON runs(batch_hash);

CREATE TABLE IF NOT EXISTS presets (
	kind    TEXT NOT NULL,
	name    TEXT NOT NULL,
	options TEXT NOT NULL,
	UNIQUE(kind, name)
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with history-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
