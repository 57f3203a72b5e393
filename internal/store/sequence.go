package store

// Attempt sequence infrastructure.
//
// Attempts are keyed by (student, item, timestamp), which says nothing about
// commit order across students or items. The shared counter below assigns
// every committed attempt a single increasing sequence so the log can be
// read back in the order it was written.

import (
	"context"
	"database/sql"
	"fmt"
)

// sequenceCounter manages the global monotonic sequence number.
type sequenceCounter struct{}

// newSequenceCounter ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{}, nil
}

// Next atomically returns the next sequence number and increments the
// counter. Running it inside the caller's transaction means a rolled-back
// commit does not consume a number.
func (sc *sequenceCounter) Next(ctx context.Context, q querier) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
