package calendar

import "errors"

var (
	ErrDuplicateCalendarEvent = errors.New("more than one calendar event on the same date")
	ErrInvalidCalendarEvent   = errors.New("invalid calendar event day type")
)
