package punch

import (
	"time"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// RawPunch is one normalized punch event awaiting attendance derivation.
// Uniqueness on (employee_id, date, punch_time) is enforced by the store,
// because ingestion windows overlap between runs.
type RawPunch struct {
	ID         string
	EmployeeID string
	Date       time.Time
	PunchTime  string // canonical HH:MM:SS in the configured zone
	Direction  Direction
	Processed  bool
	CreatedAt  time.Time
}

// Key returns the composite identity used for in-batch deduplication.
func (p RawPunch) Key() string {
	return p.EmployeeID + "|" + p.Date.Format("2006-01-02") + "|" + p.PunchTime
}

// EmployeeDay identifies one unit of derivation work.
type EmployeeDay struct {
	EmployeeID string
	Date       time.Time
}
