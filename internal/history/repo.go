package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// RunRecord is one persisted conversion run.
type RunRecord struct {
	ID         int64                     `json:"id"`
	CreatedAt  time.Time                 `json:"created_at"`
	BatchHash  string                    `json:"batch_hash"`
	FileCount  int                       `json:"file_count"`
	NoteHashes []string                  `json:"note_hashes,omitempty"`
	Naming     *models.NamingOptions     `json:"naming,omitempty"`
	Formatting *models.FormattingOptions `json:"formatting,omitempty"`
}

// AppendRun inserts a run and its note fingerprints within a transaction
// and returns the new run id. Records are never updated afterwards.
func (db *DB) AppendRun(rec RunRecord) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	namingJSON := marshalOrNull(rec.Naming)
	formattingJSON := marshalOrNull(rec.Formatting)

	res, err := tx.Exec(`
		INSERT INTO runs (created_at, batch_hash, file_count, naming, formatting)
		VALUES (?, ?, ?, ?, ?)
	`, createdAt, rec.BatchHash, rec.FileCount, namingJSON, formattingJSON)
	if err != nil {
		return 0, fmt.Errorf("history: insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: run id: %w", err)
	}

	if len(rec.NoteHashes) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO run_notes (run_id, note_hash) VALUES (?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("history: prepare note insert: %w", err)
		}
		defer stmt.Close()
		for _, h := range rec.NoteHashes {
			if _, err := stmt.Exec(id, h); err != nil {
				return 0, fmt.Errorf("history: insert note hash: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return id, nil
}

// ListRuns returns all runs, newest first, with their note fingerprints.
func (db *DB) ListRuns() ([]RunRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, created_at, batch_hash, file_count, naming, formatting
		FROM runs ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		hashes, err := db.noteHashes(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].NoteHashes = hashes
	}
	return out, nil
}

// FindRunByBatchHash returns the most recent run whose batch fingerprint
// equals hash, or apperr.ErrNotFound.
func (db *DB) FindRunByBatchHash(hash string) (*RunRecord, error) {
	row := db.conn.QueryRow(`
		SELECT id, created_at, batch_hash, file_count, naming, formatting
		FROM runs WHERE batch_hash = ? ORDER BY id DESC LIMIT 1
	`, hash)
	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	rec.NoteHashes, err = db.noteHashes(rec.ID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClearRuns removes the entire run history.
func (db *DB) ClearRuns() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM run_notes`); err != nil {
		return fmt.Errorf("history: clear run notes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM runs`); err != nil {
		return fmt.Errorf("history: clear runs: %w", err)
	}
	return tx.Commit()
}

// KnownNoteHashes returns the union of note fingerprints across all runs.
func (db *DB) KnownNoteHashes() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT note_hash FROM run_notes`)
	if err != nil {
		return nil, fmt.Errorf("history: known hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}

func (db *DB) noteHashes(runID int64) ([]string, error) {
	rows, err := db.conn.Query(`SELECT note_hash FROM run_notes WHERE run_id = ? ORDER BY note_hash`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: note hashes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var naming, formatting sql.NullString
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.BatchHash, &rec.FileCount, &naming, &formatting); err != nil {
		return rec, err
	}
	if naming.Valid && naming.String != "" {
		var n models.NamingOptions
		if err := json.Unmarshal([]byte(naming.String), &n); err == nil {
			rec.Naming = &n
		}
	}
	if formatting.Valid && formatting.String != "" {
		var f models.FormattingOptions
		if err := json.Unmarshal([]byte(formatting.String), &f); err == nil {
			rec.Formatting = &f
		}
	}
	return rec, nil
}

func marshalOrNull(v any) any {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case *models.NamingOptions:
		if t == nil {
			return nil
		}
	case *models.FormattingOptions:
		if t == nil {
			return nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}
