package audit

import "time"

// Entry is one audit-trail record for an employee lifecycle event.
type Entry struct {
	ID         string
	EmployeeID string
	Event      string
	Detail     string
	CreatedAt  time.Time
}
