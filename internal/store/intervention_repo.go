package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/openta/adaptive/internal/intervention"
)

var interventionColumns = []string{
	"id", "student_id", "session_id", "topic_id", "reason", "signals",
	"suggested_action", "timestamp", "resolved", "accepted", "resolved_at",
}

func scanIntervention(row rowScanner) (*intervention.Event, error) {
	var (
		ev         intervention.Event
		signals    string
		ts         string
		resolvedAt sql.NullString
	)
	if err := row.Scan(&ev.ID, &ev.StudentID, &ev.SessionID, &ev.Topic, &ev.Reason, &signals,
		&ev.SuggestedAction, &ts, &ev.Resolved, &ev.Accepted, &resolvedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(signals), &ev.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal signals: %w", err)
	}
	var err error
	if ev.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	if resolvedAt.Valid && resolvedAt.String != "" {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return nil, err
		}
		ev.ResolvedAt = &t
	}
	return &ev, nil
}

func (s *Store) SaveIntervention(ctx context.Context, ev *intervention.Event) error {
	return saveIntervention(ctx, s.db, ev)
}

func saveIntervention(ctx context.Context, q querier, ev *intervention.Event) error {
	signals, err := json.Marshal(ev.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	var resolvedAt any
	if ev.ResolvedAt != nil {
		resolvedAt = formatTime(*ev.ResolvedAt)
	}
	query, args := builder().Insert("intervention_events").
		Columns(interventionColumns...).
		Values(ev.ID, ev.StudentID, ev.SessionID, ev.Topic, ev.Reason, string(signals),
			ev.SuggestedAction, formatTime(ev.Timestamp), ev.Resolved, ev.Accepted, resolvedAt).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save intervention %s: %w", ev.ID, err)
	}
	return nil
}

func (s *Store) LoadIntervention(ctx context.Context, id string) (*intervention.Event, error) {
	query, args := builder().Select(interventionColumns...).
		From(entsql.Table("intervention_events")).
		Where(entsql.EQ("id", id)).
		Query()
	ev, err := scanIntervention(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("intervention %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load intervention: %w", err)
	}
	return ev, nil
}

func (s *Store) ListInterventions(ctx context.Context, studentID string, unresolvedOnly bool) ([]*intervention.Event, error) {
	pred := entsql.EQ("student_id", studentID)
	if unresolvedOnly {
		pred = entsql.And(pred, entsql.EQ("resolved", false))
	}
	query, args := builder().Select(interventionColumns...).
		From(entsql.Table("intervention_events")).
		Where(pred).
		OrderBy(entsql.Desc("timestamp"), "id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	defer rows.Close()

	var out []*intervention.Event
	for rows.Next() {
		ev, err := scanIntervention(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
