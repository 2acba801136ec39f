package response

import (
	"errors"
	"net/http"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeResigned):
		Forbidden(w, "Employee has resigned")
	case errors.Is(err, employee.ErrInsufficientLeave):
		BadRequest(w, "Insufficient leave balance", nil)
	case errors.Is(err, employee.ErrNoCompGrant):
		BadRequest(w, "No available compensatory grant", nil)
	case errors.Is(err, employee.ErrMaternityExhausted):
		BadRequest(w, "Maternity claims exhausted", nil)
	case errors.Is(err, employee.ErrPaternityExhausted):
		BadRequest(w, "Paternity claims exhausted", nil)

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")

	// Approval workflow errors
	case errors.Is(err, request.ErrRequestNotFound):
		NotFound(w, "Request not found")
	case errors.Is(err, request.ErrRequestTerminal):
		Conflict(w, "Request is already in a terminal state")
	case errors.Is(err, request.ErrStageNotPending):
		Conflict(w, "Stage has already been decided")
	case errors.Is(err, request.ErrPriorStagePending):
		Conflict(w, "Prior stage has not been approved yet")
	case errors.Is(err, request.ErrAlreadyAcknowledged):
		Conflict(w, "Request has already been acknowledged")
	case errors.Is(err, request.ErrWrongRole):
		Forbidden(w, "Caller role cannot act on this stage")
	case errors.Is(err, request.ErrRemarkRequired):
		BadRequest(w, "A remark is mandatory when rejecting", nil)
	case errors.Is(err, request.ErrDuplicateClaim):
		Conflict(w, "An overtime claim already exists for this day")
	case errors.Is(err, request.ErrClaimNotEligible):
		Forbidden(w, "Not eligible to claim overtime")
	case errors.Is(err, request.ErrClaimDeadlinePassed):
		BadRequest(w, "The overtime claim deadline has passed", nil)
	case errors.Is(err, request.ErrInvalidPayload):
		BadRequest(w, "Request payload is invalid for its type", nil)

	// Notification errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
