package attendance

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// ShiftWindow is the scheduled working window for an employee-day.
// Start and end are minutes after local midnight of the attendance date.
type ShiftWindow struct {
	ID           string
	Name         string
	StartMinute  int
	EndMinute    int
	EndsNextDay  bool
	BreakMinutes int
}

// Validate reports ErrInvalidShiftWindow when the window cannot describe a real shift.
func (w ShiftWindow) Validate() error {
	if w.StartMinute < 0 || w.StartMinute >= minutesPerDay || w.EndMinute < 0 || w.EndMinute >= minutesPerDay {
		return fmt.Errorf("%w: minute of day out of range", ErrInvalidShiftWindow)
	}
	if w.BreakMinutes < 0 {
		return fmt.Errorf("%w: negative break", ErrInvalidShiftWindow)
	}
	d := w.DurationMinutes()
	if d <= 0 {
		return fmt.Errorf("%w: scheduled end is not after scheduled start", ErrInvalidShiftWindow)
	}
	if w.BreakMinutes >= d {
		return fmt.Errorf("%w: break of %d minutes does not fit a %d minute shift", ErrInvalidShiftWindow, w.BreakMinutes, d)
	}
	return nil
}

// DurationMinutes is the length of the window including the unpaid break.
func (w ShiftWindow) DurationMinutes() int {
	end := w.EndMinute
	if w.EndsNextDay {
		end += minutesPerDay
	}
	return end - w.StartMinute
}

// Bounds returns the scheduled start and end instants for the given civil date in loc.
func (w ShiftWindow) Bounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	start := midnight.Add(time.Duration(w.StartMinute) * time.Minute)
	endDay := midnight
	if w.EndsNextDay {
		endDay = midnight.AddDate(0, 0, 1)
	}
	end := endDay.Add(time.Duration(w.EndMinute) * time.Minute)
	return start, end
}

// AttendanceDay is one employee's raw time log for one civil date.
// It is produced by the import pipeline and is never mutated here.
type AttendanceDay struct {
	EmployeeID string
	Date       time.Time
	ActualIn   *time.Time
	ActualOut  *time.Time

	LateInApproved   bool
	EarlyOutApproved bool
	EarlyInApproved  bool
	LateOutApproved  bool

	Shift *ShiftWindow
}

// HasCompleteLog reports whether both time stamps are present.
func (d AttendanceDay) HasCompleteLog() bool {
	return d.ActualIn != nil && d.ActualOut != nil
}

// Span is a half-open interval of wall time.
type Span struct {
	Start time.Time
	End   time.Time
}

func (s Span) Minutes() int {
	if !s.End.After(s.Start) {
		return 0
	}
	return int(s.End.Sub(s.Start) / time.Minute)
}

// Intersect returns the overlap of two spans and whether it is non-empty.
func (s Span) Intersect(o Span) (Span, bool) {
	start := s.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := s.End
	if o.End.Before(end) {
		end = o.End
	}
	if !end.After(start) {
		return Span{}, false
	}
	return Span{Start: start, End: end}, true
}

// ResolvedDay holds the derived minute counts for one AttendanceDay.
type ResolvedDay struct {
	EmployeeID       string
	Date             time.Time
	WorkedMinutes    int
	LateMinutes      int
	UndertimeMinutes int
	EarlyOTMinutes   int
	LateOTMinutes    int

	// WorkedSpan is the in-shift part of the log before break removal.
	WorkedSpan *Span
	OTSpans    []Span
}

func (d ResolvedDay) OTMinutes() int {
	return d.EarlyOTMinutes + d.LateOTMinutes
}

func (d ResolvedDay) LateUndertimeMinutes() int {
	return d.LateMinutes + d.UndertimeMinutes
}
