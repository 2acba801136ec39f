package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/sse"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo   notification.Repository
	hub    *sse.Hub
	config Config

	queue  chan notification.Notification
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewService creates a notification service backed by background workers
// that batch-insert queued notifications and push them over SSE. Delivery
// is best-effort: a full queue or a failed insert is logged and dropped,
// never surfaced to the caller.
func NewService(repo notification.Repository, hub *sse.Hub, cfg Config) notification.Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}

	s := &service{
		repo:   repo,
		hub:    hub,
		config: cfg,
		queue:  make(chan notification.Notification, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	return s
}

// worker drains the queue, flushing a batch when it fills or when the
// flush interval elapses.
func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]*notification.Notification, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.repo.CreateBatch(context.Background(), batch); err != nil {
			slog.Error("failed to persist notification batch", "worker", id, "count", len(batch), "error", err)
		} else {
			for _, n := range batch {
				s.hub.Publish(n.RecipientID, sse.Event{
					EmployeeID: n.RecipientID,
					Name:       "notification",
					Data:       n,
				})
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case n := <-s.queue:
			batch = append(batch, &n)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case n := <-s.queue:
					batch = append(batch, &n)
					if len(batch) >= s.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Notify implements notification.Service.
func (s *service) Notify(ctx context.Context, recipientID string, typ notification.NotificationType, title, message string) {
	s.enqueue(notification.Notification{
		RecipientID: recipientID,
		Type:        typ,
		Title:       title,
		Message:     message,
	})
}

// NotifyMany implements notification.Service.
func (s *service) NotifyMany(ctx context.Context, recipientIDs []string, typ notification.NotificationType, title, message string) {
	for _, id := range recipientIDs {
		s.enqueue(notification.Notification{
			RecipientID: id,
			Type:        typ,
			Title:       title,
			Message:     message,
		})
	}
}

func (s *service) enqueue(n notification.Notification) {
	select {
	case s.queue <- n:
	default:
		slog.Warn("notification queue full, dropping",
			"recipient_id", n.RecipientID,
			"type", n.Type,
		)
	}
}

// List implements notification.Service.
func (s *service) List(ctx context.Context, recipientID string, page, limit int, unreadOnly bool) ([]notification.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByRecipient(ctx, recipientID, limit, (page-1)*limit, unreadOnly)
}

// MarkRead implements notification.Service.
func (s *service) MarkRead(ctx context.Context, recipientID, id string) error {
	return s.repo.MarkRead(ctx, recipientID, id)
}

// Subscribe implements notification.Service.
func (s *service) Subscribe(recipientID string) (chan sse.Event, func()) {
	return s.hub.Subscribe(recipientID)
}

// Stop implements notification.Service.
func (s *service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
