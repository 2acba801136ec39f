package notification

import (
	"context"
	"time"
)

// Repository defines data access methods for notifications.
type Repository interface {
	// CreateBatch persists a batch of notifications
	CreateBatch(ctx context.Context, notifications []*Notification) error

	// ListByRecipient retrieves notifications, newest first
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int, unreadOnly bool) ([]Notification, int64, error)

	// MarkRead marks one notification as read
	MarkRead(ctx context.Context, recipientID, id string) error

	// ExistsSince reports whether a notification of the given type was
	// already sent to the recipient after the cutoff. Used to keep the
	// absence escalation alerts from repeating.
	ExistsSince(ctx context.Context, recipientID string, typ NotificationType, since time.Time) (bool, error)
}
