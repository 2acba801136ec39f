package employee

import "errors"

// Employee domain errors
var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmployeeResigned   = errors.New("employee has resigned")
	ErrUnknownExternalID  = errors.New("no employee mapped to this badge number")
	ErrInsufficientLeave  = errors.New("insufficient leave balance")
	ErrNoCompGrant        = errors.New("no available compensatory grant")
	ErrMaternityExhausted = errors.New("maternity claims exhausted")
	ErrPaternityExhausted = errors.New("paternity claims exhausted")
)
