package employee

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeProbation   Type = "probation"
	TypeConfirmed   Type = "confirmed"
	TypeContractual Type = "contractual"
	TypeIntern      Type = "intern"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusResigned Status = "resigned"
)

type Role string

const (
	RoleSubordinate    Role = "subordinate"
	RoleDepartmentHead Role = "department_head"
	RoleExecutive      Role = "executive"
	RoleAdmin          Role = "admin"
)

type CompGrantStatus string

const (
	CompGrantAvailable CompGrantStatus = "available"
	CompGrantClaimed   CompGrantStatus = "claimed"
)

// CompGrant is one compensatory-leave grant earned by working a weekly off.
type CompGrant struct {
	ID          string
	AmountHours int
	Status      CompGrantStatus
	GrantDate   time.Time
}

// ResetMarkers record the last month/year each accrual step ran for, so each
// step is idempotent when the lifecycle reconciliation is re-invoked.
type ResetMarkers struct {
	Leave             time.Time
	Medical           time.Time
	RestrictedHoliday time.Time
	Compensatory      time.Time
}

type Employee struct {
	ID               string
	ExternalID       string
	Name             string
	Email            string
	Department       string
	Designation      string
	Type             Type
	Status           Status
	Role             Role
	DepartmentHeadID *string
	JoinDate         time.Time
	ConfirmationDate *time.Time
	ResignationDate  *time.Time

	PaidLeaveBalance         float64
	MedicalLeaveBalance      float64
	RestrictedHolidayBalance float64
	MaternityClaimsUsed      int
	PaternityClaimsUsed      int
	UnpaidLeaveTaken         float64
	CompGrants               []CompGrant

	EmergencyLeaveGranted   bool
	EmergencyLeaveGrantedAt *time.Time

	// ResignationSettled guards the one-time over-and-above reconciliation
	// performed when the employee resigns.
	ResignationSettled bool

	Markers ResetMarkers

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsConfirmed reports whether the employee is past probation.
func (e *Employee) IsConfirmed() bool {
	return e.Type == TypeConfirmed
}

// GrantComp records a new compensatory-leave grant earned on day.
func (e *Employee) GrantComp(hours int, day time.Time) CompGrant {
	grant := CompGrant{
		ID:          uuid.NewString(),
		AmountHours: hours,
		Status:      CompGrantAvailable,
		GrantDate:   day,
	}
	e.CompGrants = append(e.CompGrants, grant)
	return grant
}

// AvailableCompHours sums unexpired, unclaimed compensatory grants.
func (e *Employee) AvailableCompHours() int {
	total := 0
	for _, g := range e.CompGrants {
		if g.Status == CompGrantAvailable {
			total += g.AmountHours
		}
	}
	return total
}
