package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/openta/adaptive/internal/notify"
	"github.com/openta/adaptive/internal/quiz"
	"github.com/openta/adaptive/internal/runway"
)

// ExamRunway builds and stores a study plan for an upcoming exam, replacing
// any earlier plan for the same exam. Invalid dates or hours return
// runway.ErrInvalidExamDate and store nothing.
func (e *Engine) ExamRunway(ctx context.Context, req runway.Request) (*runway.Plan, error) {
	if req.StudentID == "" || req.ExamID == "" {
		return nil, fmt.Errorf("exam runway: student and exam IDs are required")
	}
	snap, err := e.loadSnapshot(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	plan, err := e.planner.BuildPlan(req, snap.Mastery, now)
	if err != nil {
		return nil, err
	}
	if err := e.repo.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	e.log.Info("plan generated",
		"student", req.StudentID,
		"exam", req.ExamID,
		"days", len(plan.Days),
		"days_until_exam", plan.DaysUntilExam,
		"overflow", plan.Overflow,
	)
	e.deliver(ctx, e.notifier.RunwayMilestone(plan, now))
	return plan, nil
}

// ExamPlan returns the stored plan for an exam, or store.ErrNotFound.
func (e *Engine) ExamPlan(ctx context.Context, studentID, examID string) (*runway.Plan, error) {
	return e.repo.LoadPlan(ctx, studentID, examID)
}

// GapCheck returns the gap-check questions of one day of a stored exam plan:
// due and weak items from the day's focus topics, sized by the day's
// intensity. Days without a gap check return an empty quiz. The first
// request for a day is announced with a notification.
func (e *Engine) GapCheck(ctx context.Context, studentID, examID string, day int) (*quiz.Quiz, error) {
	plan, err := e.repo.LoadPlan(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	if day < 1 || day > len(plan.Days) {
		return nil, fmt.Errorf("gap check: day %d outside the %d-day plan for %s", day, len(plan.Days), examID)
	}
	target := plan.Days[day-1]

	snap, err := e.loadSnapshot(ctx, studentID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	q := e.selector.GapCheck(snap, target.FocusTopics, target.GapCheckItems, now)

	e.log.Info("gap check served",
		"student", studentID,
		"exam", examID,
		"day", day,
		"count", len(q.Items),
	)
	dayKey := strconv.Itoa(day)
	e.announceOnce(ctx, studentID,
		func(n *notify.Record) bool {
			return n.Type == notify.TypeGapCheck && n.Payload["exam_id"] == examID &&
				fmt.Sprint(n.Payload["day_number"]) == dayKey
		},
		func() *notify.Record { return e.notifier.GapCheckReady(plan, day, q, now) },
	)
	return q, nil
}
