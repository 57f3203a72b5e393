package engine

import (
	"context"
	"fmt"

	"github.com/openta/adaptive/internal/notify"
	"github.com/openta/adaptive/internal/quiz"
)

// DailyQuiz returns today's quiz for the student. count 0 uses the
// configured default length. Concurrent calls for the same student, day and
// count share one result. The first quiz of a day is announced with a
// notification; later calls that day, from any process sharing the
// repository, announce nothing.
func (e *Engine) DailyQuiz(ctx context.Context, studentID string, count int) (*quiz.Quiz, error) {
	if studentID == "" {
		return nil, fmt.Errorf("daily quiz: empty student ID")
	}
	if count < 0 {
		return nil, fmt.Errorf("daily quiz: negative count %d", count)
	}
	if count == 0 {
		count = e.cfg.Quiz.DefaultCount
	}

	now := e.now()
	key := fmt.Sprintf("%s|%s|%d", studentID, now.Format("2006-01-02"), count)
	v, err, _ := e.quizzes.Do(key, func() (any, error) {
		snap, err := e.loadSnapshot(ctx, studentID)
		if err != nil {
			return nil, err
		}
		q := e.selector.Select(snap, count, now)
		e.log.Info("quiz served",
			"student", studentID,
			"date", q.Date,
			"count", len(q.Items),
			"short", q.Short,
		)
		e.announceOnce(ctx, studentID,
			func(n *notify.Record) bool {
				return n.Type == notify.TypeDailyQuiz && n.Payload["date"] == q.Date
			},
			func() *notify.Record { return e.notifier.QuizReady(q, now) },
		)
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*quiz.Quiz), nil
}

// ConceptCheck returns the IDs of the n easiest items of a topic.
func (e *Engine) ConceptCheck(topicID string, n int) []string {
	items := e.selector.ConceptCheck(topicID, n)
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// announceOnce stores the notification build returns unless a stored
// notification of the student already matches seen.
func (e *Engine) announceOnce(ctx context.Context, studentID string, seen func(*notify.Record) bool, build func() *notify.Record) {
	mu := e.locks.get(studentID)
	mu.Lock()
	defer mu.Unlock()

	ns, err := e.repo.ListNotifications(ctx, studentID, false)
	if err != nil {
		e.log.Warn("load notifications failed", "student", studentID, "error", err)
		return
	}
	for _, n := range ns {
		if seen(n) {
			return
		}
	}
	e.deliver(ctx, build())
}
