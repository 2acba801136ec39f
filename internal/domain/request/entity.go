package request

import (
	"time"
)

type Type string

const (
	TypeLeave           Type = "leave"
	TypeBusinessTrip    Type = "business_trip"
	TypeOvertimeClaim   Type = "overtime_claim"
	TypePunchCorrection Type = "punch_correction"
)

type StageState string

const (
	StagePending      StageState = "pending"
	StageApproved     StageState = "approved"
	StageRejected     StageState = "rejected"
	StageSubmitted    StageState = "submitted" // pre-approved by self-submission
	StageAcknowledged StageState = "acknowledged"
)

// LeaveKind distinguishes which balance a leave request draws from.
type LeaveKind string

const (
	LeaveCasual       LeaveKind = "casual"
	LeaveMedical      LeaveKind = "medical"
	LeaveRestricted   LeaveKind = "restricted_holiday"
	LeaveCompensatory LeaveKind = "compensatory"
	LeaveMaternity    LeaveKind = "maternity"
	LeavePaternity    LeaveKind = "paternity"
	LeaveEmergency    LeaveKind = "emergency"
	LeaveUnpaid       LeaveKind = "unpaid"
)

// Payload carries the type-specific portion of a request. Only the fields
// relevant to the declared Type are set.
type Payload struct {
	// leave / business trip
	FromDate  *time.Time `json:"from_date,omitempty"`
	ToDate    *time.Time `json:"to_date,omitempty"`
	HalfDay   bool       `json:"half_day,omitempty"`
	Forenoon  bool       `json:"forenoon,omitempty"` // which half a half-day covers
	LeaveKind LeaveKind  `json:"leave_kind,omitempty"`
	Reason    string     `json:"reason,omitempty"`

	// overtime claim
	OvertimeDate    *time.Time `json:"overtime_date,omitempty"`
	OvertimeMinutes int        `json:"overtime_minutes,omitempty"`

	// punch correction
	CorrectionDate *time.Time `json:"correction_date,omitempty"`
	TimeIn         *string    `json:"time_in,omitempty"`
	TimeOut        *string    `json:"time_out,omitempty"`
}

// ApprovableRequest is the single shape shared by leave, business-trip,
// overtime-claim and punch-correction requests. Stage ordering invariant:
// B stays pending until A is approved, C stays pending until B is approved,
// and any rejection is terminal for the whole request.
type ApprovableRequest struct {
	ID          string
	Type        Type
	RequestorID string
	Payload     Payload
	StageA      StageState
	StageB      StageState
	StageC      StageState
	Remarks     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// DTO
	RequestorName *string
}

// IsTerminal reports whether no further transition is possible.
func (r *ApprovableRequest) IsTerminal() bool {
	return r.IsRejected() || r.StageC == StageAcknowledged
}

// IsRejected reports whether any stage rejected the request.
func (r *ApprovableRequest) IsRejected() bool {
	return r.StageA == StageRejected || r.StageB == StageRejected
}

// IsApproved reports whether the request passed the executive stage.
// Attendance derivation treats these requests as covering their dates.
func (r *ApprovableRequest) IsApproved() bool {
	return r.StageB == StageApproved || r.StageB == StageSubmitted
}

// DateRange is an inclusive day range taken from an approved leave or
// business-trip request. HalfDay/Forenoon carry the session a half-day
// leave covers.
type DateRange struct {
	From     time.Time
	To       time.Time
	HalfDay  bool
	Forenoon bool
}

// Days returns the number of leave days the range covers; a half-day
// range counts as 0.5.
func (d DateRange) Days() float64 {
	if d.HalfDay {
		return 0.5
	}
	from := time.Date(d.From.Year(), d.From.Month(), d.From.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(d.To.Year(), d.To.Month(), d.To.Day(), 0, 0, 0, 0, time.UTC)
	return to.Sub(from).Hours()/24 + 1
}

// Contains reports whether day falls inside the range, comparing calendar
// days rather than instants.
func (d DateRange) Contains(day time.Time) bool {
	y, m, dd := day.Date()
	day = time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	from := time.Date(d.From.Year(), d.From.Month(), d.From.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(d.To.Year(), d.To.Month(), d.To.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(from) && !day.After(to)
}
