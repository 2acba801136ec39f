package punch

import (
	"context"
	"time"
)

// RawPunchRepository defines data access methods for raw punches and the
// ingestion watermark.
type RawPunchRepository interface {
	// InsertBatch inserts punches, silently skipping rows that already
	// exist (unique key on employee_id, date, punch_time). Returns the
	// number of rows actually inserted.
	InsertBatch(ctx context.Context, punches []RawPunch) (int, error)

	// ListUnprocessed retrieves unprocessed punches for one employee/day,
	// ordered by punch time.
	ListUnprocessed(ctx context.Context, employeeID string, date time.Time) ([]RawPunch, error)

	// ListUnprocessedDays retrieves the distinct (employee, day) pairs
	// that still have unprocessed punches.
	ListUnprocessedDays(ctx context.Context) ([]EmployeeDay, error)

	// HasPunches reports whether any punch (processed or not) exists for
	// the employee on the given day.
	HasPunches(ctx context.Context, employeeID string, date time.Time) (bool, error)

	// MarkProcessed flags the given punches as folded into attendance.
	MarkProcessed(ctx context.Context, ids []string) error

	// DeleteProcessedBefore purges processed punches older than the cutoff.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Watermark returns the last successfully synced instant.
	Watermark(ctx context.Context) (time.Time, error)

	// SetWatermark advances the sync watermark. Only called after a fully
	// successful ingestion run.
	SetWatermark(ctx context.Context, t time.Time) error
}
