package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/database"
)

type notificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

// CreateBatch implements notification.Repository.
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO notifications (id, recipient_id, sender_id, notification_type, title, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, n := range notifications {
		if _, err := q.Exec(ctx, query,
			n.ID, n.RecipientID, n.SenderID, n.Type, n.Title, n.Message, n.IsRead, n.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	return nil
}

// ListByRecipient implements notification.Repository.
func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int, unreadOnly bool) ([]notification.Notification, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "recipient_id = $1"
	if unreadOnly {
		where += " AND is_read = false"
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, recipientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, recipient_id, sender_id, notification_type, title, message, is_read, read_at, created_at
		FROM notifications
		WHERE ` + where + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, total, rows.Err()
}

// MarkRead implements notification.Repository.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE notifications SET is_read = true, read_at = NOW()
		WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}

	return nil
}

// ExistsSince implements notification.Repository.
func (r *notificationRepository) ExistsSince(ctx context.Context, recipientID string, typ notification.NotificationType, since time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE recipient_id = $1 AND notification_type = $2 AND created_at >= $3
		)
	`, recipientID, typ, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing notification: %w", err)
	}

	return exists, nil
}
