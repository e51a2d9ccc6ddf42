package pipeline

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// History persists job outcomes to a SQLite database so repeated batch runs
// can be compared over time.
type History struct {
	db *sql.DB
}

const historySchema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id               TEXT PRIMARY KEY,
	job              TEXT NOT NULL,
	input            TEXT,
	output           TEXT,
	success          INTEGER NOT NULL,
	error            TEXT,
	original_size    INTEGER NOT NULL,
	transformed_size INTEGER NOT NULL,
	duration_ms      INTEGER NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_job ON outcomes(job);
`

// OpenHistory opens (creating if needed) the outcome database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, err
	}
	return &History{db: db}, nil
}

// Close releases the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores one outcome.
func (h *History) Record(o Outcome) error {
	errText := ""
	if o.Err != nil {
		errText = o.Err.String()
	}
	_, err := h.db.Exec(
		`INSERT INTO outcomes (id, job, input, output, success, error,
			original_size, transformed_size, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID.String(), o.Job, o.Input, o.Output, boolToInt(o.Success), errText,
		o.OriginalSize, o.TransformedSize, o.Duration.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// RecordBatch stores every outcome of a batch.
func (h *History) RecordBatch(outcomes []Outcome) error {
	for _, o := range outcomes {
		if err := h.Record(o); err != nil {
			return err
		}
	}
	return nil
}

// HistoryEntry is one stored outcome row.
type HistoryEntry struct {
	ID              string
	Job             string
	Input           string
	Output          string
	Success         bool
	Error           string
	OriginalSize    int
	TransformedSize int
	DurationMS      int64
	CreatedAt       string
}

// Recent returns up to limit stored outcomes, newest first.
func (h *History) Recent(limit int) ([]HistoryEntry, error) {
	rows, err := h.db.Query(
		`SELECT id, job, input, output, success, error,
			original_size, transformed_size, duration_ms, created_at
		 FROM outcomes ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var success int
		if err := rows.Scan(&e.ID, &e.Job, &e.Input, &e.Output, &success, &e.Error,
			&e.OriginalSize, &e.TransformedSize, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Success = success != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
