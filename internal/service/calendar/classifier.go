package calendar

import (
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
)

// Classifier assigns a legal day type to civil dates from a company calendar.
type Classifier struct {
	events map[string]calendar.CalendarEvent
}

// NewClassifier indexes events by date. Two events on one date, or an event
// tagged with an unknown day type, make the calendar unusable.
func NewClassifier(events []calendar.CalendarEvent) (*Classifier, error) {
	index := make(map[string]calendar.CalendarEvent, len(events))
	for _, ev := range events {
		switch ev.DayType {
		case calendar.DayTypeRegularHoliday, calendar.DayTypeSpecialHoliday, calendar.DayTypeRestDay:
		default:
			return nil, fmt.Errorf("%w: %q on %s", calendar.ErrInvalidCalendarEvent, ev.DayType, calendar.DateKey(ev.Date))
		}

		key := calendar.DateKey(ev.Date)
		if prev, ok := index[key]; ok {
			return nil, fmt.Errorf("%w: %s has %q and %q", calendar.ErrDuplicateCalendarEvent, key, prev.Name, ev.Name)
		}
		index[key] = ev
	}
	return &Classifier{events: index}, nil
}

// Classify returns the day type of date. A holiday event decides the day type
// while the weekly rest-day flag is computed on its own and combined with it.
func (c *Classifier) Classify(date time.Time, restDays []time.Weekday) calendar.Classification {
	result := calendar.Classification{
		Date:      date,
		DayType:   calendar.DayTypeWorkday,
		IsRestDay: isRestDay(date.Weekday(), restDays),
	}

	if ev, ok := c.events[calendar.DateKey(date)]; ok {
		result.EventName = ev.Name
		if ev.DayType == calendar.DayTypeRestDay {
			result.IsRestDay = true
		} else {
			result.DayType = ev.DayType
		}
	}

	if result.DayType == calendar.DayTypeWorkday && result.IsRestDay {
		result.DayType = calendar.DayTypeRestDay
	}
	return result
}

func isRestDay(day time.Weekday, restDays []time.Weekday) bool {
	for _, d := range restDays {
		if d == day {
			return true
		}
	}
	return false
}
