package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/spacedrep"
)

func (s *Store) CommitAttempt(ctx context.Context, a mastery.Attempt, rec *mastery.Record, sched *spacedrep.Schedule) error {
	ts := formatTime(a.Timestamp)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query, args := builder().Select(entsql.Count("*")).
			From(entsql.Table("quiz_attempts")).
			Where(entsql.And(
				entsql.EQ("student_id", a.StudentID),
				entsql.EQ("item_id", a.ItemID),
				entsql.EQ("timestamp", ts),
			)).
			Query()
		var n int
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return fmt.Errorf("check attempt: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %s/%s at %s", ErrDuplicateAttempt, a.StudentID, a.ItemID, ts)
		}

		seq, err := s.seq.Next(ctx, tx)
		if err != nil {
			return err
		}
		query, args = builder().Insert("quiz_attempts").
			Columns("sequence", "student_id", "item_id", "selected_index", "correct",
				"response_time_seconds", "timestamp").
			Values(seq, a.StudentID, a.ItemID, a.SelectedIndex, a.Correct,
				a.ResponseTimeSeconds, ts).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		if rec != nil {
			if err := saveMastery(ctx, tx, rec); err != nil {
				return err
			}
		}
		if sched != nil {
			if err := saveSchedule(ctx, tx, sched); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListAttempts(ctx context.Context, studentID string, opts QueryOpts) ([]mastery.Attempt, error) {
	preds := []*entsql.Predicate{entsql.EQ("student_id", studentID)}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", formatTime(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", formatTime(opts.To)))
	}
	sel := builder().Select("student_id", "item_id", "selected_index", "correct",
		"response_time_seconds", "timestamp").
		From(entsql.Table("quiz_attempts")).
		Where(entsql.And(preds...)).
		OrderBy("sequence")
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []mastery.Attempt
	for rows.Next() {
		var (
			a  mastery.Attempt
			ts string
		)
		if err := rows.Scan(&a.StudentID, &a.ItemID, &a.SelectedIndex, &a.Correct,
			&a.ResponseTimeSeconds, &ts); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if a.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
