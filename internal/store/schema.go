package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied on every open; statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS mastery_records (
		student_id      TEXT NOT NULL,
		topic_id        TEXT NOT NULL,
		score           REAL NOT NULL,
		confidence      REAL NOT NULL,
		attempts        INTEGER NOT NULL,
		correct         INTEGER NOT NULL,
		streak          INTEGER NOT NULL,
		last_attempt_at TEXT NOT NULL DEFAULT '',
		next_review_at  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (student_id, topic_id)
	)`,
	`CREATE TABLE IF NOT EXISTS review_schedules (
		student_id       TEXT NOT NULL,
		item_id          TEXT NOT NULL,
		interval_days    INTEGER NOT NULL,
		repetition_count INTEGER NOT NULL,
		lapses           INTEGER NOT NULL,
		due_at           TEXT NOT NULL,
		last_review_at   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (student_id, item_id)
	)`,
	`CREATE INDEX IF NOT EXISTS review_schedules_due ON review_schedules (student_id, due_at)`,
	`CREATE TABLE IF NOT EXISTS quiz_attempts (
		sequence              INTEGER NOT NULL UNIQUE,
		student_id            TEXT NOT NULL,
		item_id               TEXT NOT NULL,
		selected_index        INTEGER NOT NULL,
		correct               INTEGER NOT NULL,
		response_time_seconds REAL NOT NULL,
		timestamp             TEXT NOT NULL,
		PRIMARY KEY (student_id, item_id, timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS exam_plans (
		student_id   TEXT NOT NULL,
		exam_id      TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		plan         TEXT NOT NULL,
		PRIMARY KEY (student_id, exam_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		type       TEXT NOT NULL,
		message    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		read       INTEGER NOT NULL DEFAULT 0,
		payload    TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_student ON notifications (student_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS intervention_events (
		id               TEXT PRIMARY KEY,
		student_id       TEXT NOT NULL,
		session_id       TEXT NOT NULL,
		topic_id         TEXT NOT NULL DEFAULT '',
		reason           TEXT NOT NULL,
		signals          TEXT NOT NULL,
		suggested_action TEXT NOT NULL,
		timestamp        TEXT NOT NULL,
		resolved         INTEGER NOT NULL DEFAULT 0,
		accepted         INTEGER NOT NULL DEFAULT 0,
		resolved_at      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS intervention_events_student ON intervention_events (student_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS intervention_sessions (
		student_id     TEXT NOT NULL,
		session_id     TEXT NOT NULL,
		state          TEXT NOT NULL,
		signals        TEXT NOT NULL,
		last_at        TEXT NOT NULL DEFAULT '',
		suppress_until TEXT NOT NULL DEFAULT '',
		event_id       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (student_id, session_id)
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
