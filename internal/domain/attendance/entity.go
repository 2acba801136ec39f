package attendance

import (
	"time"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusHalfDay Status = "half_day"
)

type HalfDayPortion string

const (
	FirstHalf  HalfDayPortion = "first_half"
	SecondHalf HalfDayPortion = "second_half"
)

// Attendance is the derived record for one employee on one calendar day.
// Uniqueness on (employee_id, date) is enforced by the store.
type Attendance struct {
	ID              string
	EmployeeID      string
	Date            time.Time
	TimeIn          *time.Time
	TimeOut         *time.Time
	Status          Status
	HalfDayPortion  *HalfDayPortion
	OvertimeMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// DTO
	EmployeeName *string
}

// WorkedMinutes returns the span between time-in and time-out, or 0 when
// the day has no closed session.
func (a Attendance) WorkedMinutes() int {
	if a.TimeIn == nil || a.TimeOut == nil {
		return 0
	}
	return int(a.TimeOut.Sub(*a.TimeIn).Minutes())
}
