package audit

import "context"

// Repository appends lifecycle events to the audit trail.
type Repository interface {
	Record(ctx context.Context, entry Entry) error
	ListByEmployee(ctx context.Context, employeeID string, limit int) ([]Entry, error)
}
