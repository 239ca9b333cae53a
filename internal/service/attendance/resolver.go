package attendance

import (
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
)

// Resolver derives worked, late, undertime and overtime minutes from raw time logs.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a resolver that places shift windows in loc.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Resolve computes the ResolvedDay of one attendance day.
// Shift window problems are returned as errors, a missing log is not.
func (r *Resolver) Resolve(day attendance.AttendanceDay) (attendance.ResolvedDay, error) {
	resolved := attendance.ResolvedDay{
		EmployeeID: day.EmployeeID,
		Date:       day.Date,
	}

	if day.Shift == nil {
		return resolved, attendance.ErrMissingShiftWindow
	}
	if err := day.Shift.Validate(); err != nil {
		return resolved, err
	}

	// No premiums are ever granted without both logs.
	if !day.HasCompleteLog() {
		return resolved, nil
	}

	in, out := *day.ActualIn, *day.ActualOut
	if out.Before(in) {
		return resolved, fmt.Errorf("%w: in %s, out %s", attendance.ErrInvalidTimeLog, in.Format(time.RFC3339), out.Format(time.RFC3339))
	}

	start, end := day.Shift.Bounds(day.Date, r.loc)

	// Late and undertime are measured inside the shift and together never
	// exceed its paid minutes.
	if !day.LateInApproved {
		resolved.LateMinutes = minutesBetween(start, earliest(in, end))
	}
	if !day.EarlyOutApproved {
		resolved.UndertimeMinutes = minutesBetween(latest(out, start), end)
	}
	paid := max(minutesBetween(start, end)-day.Shift.BreakMinutes, 0)
	if excess := resolved.LateMinutes + resolved.UndertimeMinutes - paid; excess > 0 {
		cut := min(excess, resolved.UndertimeMinutes)
		resolved.UndertimeMinutes -= cut
		resolved.LateMinutes -= excess - cut
	}

	if day.EarlyInApproved && in.Before(start) {
		span := attendance.Span{Start: in, End: start}
		if out.Before(start) {
			span.End = out
		}
		resolved.EarlyOTMinutes = span.Minutes()
		if resolved.EarlyOTMinutes > 0 {
			resolved.OTSpans = append(resolved.OTSpans, span)
		}
	}
	if day.LateOutApproved && out.After(end) {
		span := attendance.Span{Start: end, End: out}
		if in.After(end) {
			span.Start = in
		}
		resolved.LateOTMinutes = span.Minutes()
		if resolved.LateOTMinutes > 0 {
			resolved.OTSpans = append(resolved.OTSpans, span)
		}
	}

	log := attendance.Span{Start: in, End: out}
	if overlap, ok := log.Intersect(attendance.Span{Start: start, End: end}); ok {
		minutes := overlap.Minutes()
		resolved.WorkedMinutes = minutes - min(day.Shift.BreakMinutes, minutes)
		resolved.WorkedSpan = &overlap
	}

	return resolved, nil
}

// minutesBetween returns the whole minutes from a to b, or zero when b is not after a.
func minutesBetween(a, b time.Time) int {
	if !b.After(a) {
		return 0
	}
	return int(b.Sub(a) / time.Minute)
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
