package store

import (
	"context"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/openta/adaptive/internal/notify"
)

func (s *Store) SaveNotification(ctx context.Context, n *notify.Record) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	query, args := builder().Insert("notifications").
		Columns("id", "student_id", "type", "message", "created_at", "read", "payload").
		Values(n.ID, n.StudentID, string(n.Type), n.Message, formatTime(n.CreatedAt), n.Read, string(payload)).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, studentID string, unreadOnly bool) ([]*notify.Record, error) {
	pred := entsql.EQ("student_id", studentID)
	if unreadOnly {
		pred = entsql.And(pred, entsql.EQ("read", false))
	}
	query, args := builder().Select("id", "student_id", "type", "message", "created_at", "read", "payload").
		From(entsql.Table("notifications")).
		Where(pred).
		OrderBy(entsql.Desc("created_at"), "id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*notify.Record
	for rows.Next() {
		var (
			n                  notify.Record
			typ, created, body string
		)
		if err := rows.Scan(&n.ID, &n.StudentID, &typ, &n.Message, &created, &n.Read, &body); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = notify.Type(typ)
		if n.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &n.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *Store) MarkRead(ctx context.Context, studentID, id string) error {
	query, args := builder().Update("notifications").
		Set("read", true).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("student_id", studentID),
		)).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}
