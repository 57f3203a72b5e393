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

var sessionColumns = []string{
	"student_id", "session_id", "state", "signals", "last_at", "suppress_until", "event_id",
}

func (s *Store) LoadSession(ctx context.Context, studentID, sessionID string) (*intervention.Session, error) {
	query, args := builder().Select(sessionColumns...).
		From(entsql.Table("intervention_sessions")).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("session_id", sessionID),
		)).
		Query()

	var (
		sess                  intervention.Session
		state, signals        string
		lastAt, suppressUntil string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&sess.StudentID, &sess.SessionID,
		&state, &signals, &lastAt, &suppressUntil, &sess.EventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.State = intervention.State(state)
	if err := json.Unmarshal([]byte(signals), &sess.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal session signals: %w", err)
	}
	if sess.LastAt, err = parseTime(lastAt); err != nil {
		return nil, err
	}
	if sess.SuppressUntil, err = parseTime(suppressUntil); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) CommitSession(ctx context.Context, sess *intervention.Session, ev *intervention.Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if ev != nil {
			if err := saveIntervention(ctx, tx, ev); err != nil {
				return err
			}
		}
		if sess == nil {
			return nil
		}
		signals, err := json.Marshal(sess.Signals)
		if err != nil {
			return fmt.Errorf("marshal session signals: %w", err)
		}
		query, args := builder().Insert("intervention_sessions").
			Columns(sessionColumns...).
			Values(sess.StudentID, sess.SessionID, string(sess.State), string(signals),
				formatTime(sess.LastAt), formatTime(sess.SuppressUntil), sess.EventID).
			OnConflict(
				entsql.ConflictColumns("student_id", "session_id"),
				entsql.ResolveWithNewValues(),
			).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save session %s/%s: %w", sess.StudentID, sess.SessionID, err)
		}
		return nil
	})
}

func (s *Store) DeleteSession(ctx context.Context, studentID, sessionID string) error {
	query, args := builder().Delete("intervention_sessions").
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("session_id", sessionID),
		)).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
