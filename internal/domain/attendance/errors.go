package attendance

import "errors"

var (
	ErrMissingShiftWindow = errors.New("attendance day has no shift window")
	ErrInvalidShiftWindow = errors.New("invalid shift window")
	ErrInvalidTimeLog     = errors.New("time out is before time in")
)
