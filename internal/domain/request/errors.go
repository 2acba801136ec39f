package request

import "errors"

// Approval workflow domain errors
var (
	ErrRequestNotFound     = errors.New("request not found")
	ErrRequestTerminal     = errors.New("request is already in a terminal state")
	ErrStageNotPending     = errors.New("stage has already been decided")
	ErrPriorStagePending   = errors.New("prior stage has not been approved yet")
	ErrWrongRole           = errors.New("caller role cannot act on this stage")
	ErrRemarkRequired      = errors.New("a remark is mandatory when rejecting")
	ErrAlreadyAcknowledged = errors.New("request has already been acknowledged")
	ErrDuplicateClaim      = errors.New("an overtime claim already exists for this day")
	ErrClaimNotEligible    = errors.New("employee is not eligible to claim overtime")
	ErrClaimDeadlinePassed = errors.New("the overtime claim deadline has passed")
	ErrInvalidPayload      = errors.New("request payload is invalid for its type")
)
