package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// Upsert writes the record, replacing any existing row for the same
	// (employee, day). Re-derivation supersedes, never duplicates.
	Upsert(ctx context.Context, att Attendance) (Attendance, error)

	// CreateIfAbsent inserts only when no record exists for the
	// (employee, day); reports whether a row was created. Used by the
	// absent-backfill job so reruns are no-ops.
	CreateIfAbsent(ctx context.Context, att Attendance) (bool, error)

	// GetByEmployeeAndDate retrieves the record for one employee/day.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (Attendance, error)

	// Update updates an existing attendance record.
	Update(ctx context.Context, att Attendance) error

	// ListByEmployeeRange retrieves an employee's records in [from, to],
	// ordered by date ascending.
	ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]Attendance, error)

	// ListForSettlement retrieves records on the given day carrying at
	// least minOvertime minutes.
	ListForSettlement(ctx context.Context, date time.Time, minOvertime int) ([]Attendance, error)

	// CountLateArrivals counts days in [from, to] whose time-in falls
	// inside the late window (inclusive bounds, HH:MM:SS strings).
	CountLateArrivals(ctx context.Context, employeeID string, from, to time.Time, windowStart, windowEnd string) (int, error)

	// List retrieves attendance records with filters and pagination.
	List(ctx context.Context, filter Filter) ([]Attendance, int64, error)
}
