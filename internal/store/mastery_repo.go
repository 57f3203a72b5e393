package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/spacedrep"
)

var masteryColumns = []string{
	"student_id", "topic_id", "score", "confidence", "attempts",
	"correct", "streak", "last_attempt_at", "next_review_at",
}

var scheduleColumns = []string{
	"student_id", "item_id", "interval_days", "repetition_count",
	"lapses", "due_at", "last_review_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMastery(row rowScanner) (*mastery.Record, error) {
	var (
		r          mastery.Record
		last, next string
	)
	if err := row.Scan(&r.StudentID, &r.TopicID, &r.Score, &r.Confidence, &r.Attempts,
		&r.Correct, &r.Streak, &last, &next); err != nil {
		return nil, err
	}
	var err error
	if r.LastAttemptAt, err = parseTime(last); err != nil {
		return nil, err
	}
	if r.NextReviewAt, err = parseTime(next); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanSchedule(row rowScanner) (*spacedrep.Schedule, error) {
	var (
		s         spacedrep.Schedule
		due, last string
	)
	if err := row.Scan(&s.StudentID, &s.ItemID, &s.IntervalDays, &s.RepetitionCount,
		&s.Lapses, &due, &last); err != nil {
		return nil, err
	}
	var err error
	if s.DueAt, err = parseTime(due); err != nil {
		return nil, err
	}
	if s.LastReviewAt, err = parseTime(last); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Store) LoadMastery(ctx context.Context, studentID, topicID string) (*mastery.Record, error) {
	query, args := builder().Select(masteryColumns...).
		From(entsql.Table("mastery_records")).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("topic_id", topicID),
		)).
		Query()
	rec, err := scanMastery(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load mastery %s/%s: %w", studentID, topicID, err)
	}
	return rec, nil
}

func (s *Store) ListMastery(ctx context.Context, studentID string) ([]*mastery.Record, error) {
	query, args := builder().Select(masteryColumns...).
		From(entsql.Table("mastery_records")).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("topic_id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	defer rows.Close()

	var out []*mastery.Record
	for rows.Next() {
		rec, err := scanMastery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) SaveMastery(ctx context.Context, rec *mastery.Record) error {
	return saveMastery(ctx, s.db, rec)
}

func saveMastery(ctx context.Context, q querier, rec *mastery.Record) error {
	query, args := builder().Insert("mastery_records").
		Columns(masteryColumns...).
		Values(rec.StudentID, rec.TopicID, rec.Score, rec.Confidence, rec.Attempts,
			rec.Correct, rec.Streak, formatTime(rec.LastAttemptAt), formatTime(rec.NextReviewAt)).
		OnConflict(
			entsql.ConflictColumns("student_id", "topic_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save mastery %s/%s: %w", rec.StudentID, rec.TopicID, err)
	}
	return nil
}

func (s *Store) LoadSchedule(ctx context.Context, studentID, itemID string) (*spacedrep.Schedule, error) {
	query, args := builder().Select(scheduleColumns...).
		From(entsql.Table("review_schedules")).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("item_id", itemID),
		)).
		Query()
	sched, err := scanSchedule(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule %s/%s: %w", studentID, itemID, err)
	}
	return sched, nil
}

func (s *Store) ListSchedules(ctx context.Context, studentID string) ([]*spacedrep.Schedule, error) {
	query, args := builder().Select(scheduleColumns...).
		From(entsql.Table("review_schedules")).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("item_id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []*spacedrep.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func (s *Store) SaveSchedule(ctx context.Context, sched *spacedrep.Schedule) error {
	return saveSchedule(ctx, s.db, sched)
}

func saveSchedule(ctx context.Context, q querier, sched *spacedrep.Schedule) error {
	query, args := builder().Insert("review_schedules").
		Columns(scheduleColumns...).
		Values(sched.StudentID, sched.ItemID, sched.IntervalDays, sched.RepetitionCount,
			sched.Lapses, formatTime(sched.DueAt), formatTime(sched.LastReviewAt)).
		OnConflict(
			entsql.ConflictColumns("student_id", "item_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save schedule %s/%s: %w", sched.StudentID, sched.ItemID, err)
	}
	return nil
}
