package engine

import (
	"context"

	"github.com/openta/adaptive/internal/notify"
)

// Notifications lists a student's notifications, newest first.
func (e *Engine) Notifications(ctx context.Context, studentID string, unreadOnly bool) ([]*notify.Record, error) {
	return e.repo.ListNotifications(ctx, studentID, unreadOnly)
}

// AckNotification marks a notification read. Acknowledging twice is a
// no-op; unknown IDs return store.ErrNotFound.
func (e *Engine) AckNotification(ctx context.Context, studentID, id string) error {
	return e.repo.MarkRead(ctx, studentID, id)
}
