package request

import (
	"context"
	"time"
)

// RequestRepository defines data access methods for approvable requests.
type RequestRepository interface {
	// Create persists a newly submitted request
	Create(ctx context.Context, req ApprovableRequest) (ApprovableRequest, error)

	// GetByID retrieves a request by id
	GetByID(ctx context.Context, id string) (ApprovableRequest, error)

	// UpdateStages persists the stage triplet and remarks. The write is
	// conditional on the current value of the stage being advanced, so
	// two racing approvers cannot both win; reports whether a row changed.
	UpdateStages(ctx context.Context, req ApprovableRequest, stage Stage, expect StageState) (bool, error)

	// List retrieves requests with filters and pagination
	List(ctx context.Context, filter Filter) ([]ApprovableRequest, int64, error)

	// ListApprovedRanges returns date ranges of approved leave and
	// business-trip requests overlapping [from, to] for the employee.
	ListApprovedRanges(ctx context.Context, employeeID string, from, to time.Time) ([]DateRange, error)

	// HasClaimForDate reports whether any overtime claim exists for the
	// employee covering the given overtime day, in any non-rejected state.
	HasClaimForDate(ctx context.Context, employeeID string, date time.Time) (bool, error)

	// ListApprovedLeaveByKind returns the date ranges of approved leave of
	// one kind overlapping [from, to]. Resignation reconciliation uses it
	// to total the casual leave actually taken during the year.
	ListApprovedLeaveByKind(ctx context.Context, employeeID string, kind LeaveKind, from, to time.Time) ([]DateRange, error)
}

// Stage identifies which of the three approval stages is being advanced.
type Stage string

const (
	StageAName Stage = "stage_a"
	StageBName Stage = "stage_b"
	StageCName Stage = "stage_c"
)

type Filter struct {
	RequestorID string
	Type        string
	Pending     bool // only requests with any stage still open
	Page        int
	Limit       int
}

func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}
