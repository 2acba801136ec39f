package notification

import (
	"context"

	"github.com/workstream-hr/attendance-engine-go/internal/pkg/sse"
)

// Service is the injected notification sink. Delivery is best-effort:
// implementations log failures and never propagate them, so a failed
// notification can never fail the state transition that produced it.
type Service interface {
	// Notify queues one notification for a recipient
	Notify(ctx context.Context, recipientID string, typ NotificationType, title, message string)

	// NotifyMany queues the same notification for several recipients
	NotifyMany(ctx context.Context, recipientIDs []string, typ NotificationType, title, message string)

	// List retrieves a recipient's notifications
	List(ctx context.Context, recipientID string, page, limit int, unreadOnly bool) ([]Notification, int64, error)

	// MarkRead marks a notification read
	MarkRead(ctx context.Context, recipientID, id string) error

	// Subscribe returns a live event channel for the recipient
	Subscribe(recipientID string) (chan sse.Event, func())

	// Stop flushes pending notifications and stops background workers
	Stop()
}
