package punch

import "errors"

// Punch domain errors
var (
	ErrUnparsableTime    = errors.New("punch time is unparsable")
	ErrUnparsableDate    = errors.New("punch date is unparsable")
	ErrSourceUnreachable = errors.New("time-clock source unreachable")
)
