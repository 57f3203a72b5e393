package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/openta/adaptive/internal/runway"
)

// Plans are derived artifacts; the whole plan is stored as one JSON
// document and replaced on every save.
func (s *Store) SavePlan(ctx context.Context, p *runway.Plan) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	query, args := builder().Insert("exam_plans").
		Columns("student_id", "exam_id", "generated_at", "plan").
		Values(p.StudentID, p.ExamID, formatTime(p.GeneratedAt), string(b)).
		OnConflict(
			entsql.ConflictColumns("student_id", "exam_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save plan %s/%s: %w", p.StudentID, p.ExamID, err)
	}
	return nil
}

func (s *Store) LoadPlan(ctx context.Context, studentID, examID string) (*runway.Plan, error) {
	query, args := builder().Select("plan").
		From(entsql.Table("exam_plans")).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("exam_id", examID),
		)).
		Query()
	var raw string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan %s/%s: %w", studentID, examID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	var p runway.Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &p, nil
}
