package calendar

import (
	"testing"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weekend = []time.Weekday{time.Saturday, time.Sunday}

func date(month time.Month, day int) time.Time {
	return time.Date(2025, month, day, 0, 0, 0, 0, time.UTC)
}

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	events := []calendar.CalendarEvent{
		// Monday
		{Date: date(time.December, 1), DayType: calendar.DayTypeSpecialHoliday, Name: "Company Foundation Day"},
		// Thursday
		{Date: date(time.December, 25), DayType: calendar.DayTypeRegularHoliday, Name: "Christmas Day"},
		// Sunday
		{Date: date(time.November, 30), DayType: calendar.DayTypeRegularHoliday, Name: "Bonifacio Day"},
		// Saturday
		{Date: date(time.December, 6), DayType: calendar.DayTypeSpecialHoliday, Name: "Local Holiday"},
		// Wednesday
		{Date: date(time.December, 3), DayType: calendar.DayTypeRestDay, Name: "Company Rest Day"},
	}
	classifier, err := NewClassifier(events)
	require.NoError(t, err)

	tests := []struct {
		name      string
		date      time.Time
		wantType  calendar.DayType
		wantRest  bool
		wantEvent string
	}{
		{"plain weekday", date(time.December, 2), calendar.DayTypeWorkday, false, ""},
		{"weekly rest day", date(time.December, 7), calendar.DayTypeRestDay, true, ""},
		{"special holiday on workday", date(time.December, 1), calendar.DayTypeSpecialHoliday, false, "Company Foundation Day"},
		{"regular holiday on workday", date(time.December, 25), calendar.DayTypeRegularHoliday, false, "Christmas Day"},
		{"regular holiday on rest day", date(time.November, 30), calendar.DayTypeRegularHoliday, true, "Bonifacio Day"},
		{"special holiday on rest day", date(time.December, 6), calendar.DayTypeSpecialHoliday, true, "Local Holiday"},
		{"declared rest day", date(time.December, 3), calendar.DayTypeRestDay, true, "Company Rest Day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(tt.date, weekend)
			assert.Equal(t, tt.wantType, got.DayType)
			assert.Equal(t, tt.wantRest, got.IsRestDay)
			assert.Equal(t, tt.wantEvent, got.EventName)
		})
	}
}

func TestClassifier_EmployeeRestDays(t *testing.T) {
	t.Parallel()
	classifier, err := NewClassifier(nil)
	require.NoError(t, err)

	// Sunday and Monday off.
	restDays := []time.Weekday{time.Sunday, time.Monday}

	assert.Equal(t, calendar.DayTypeWorkday, classifier.Classify(date(time.December, 6), restDays).DayType)
	assert.Equal(t, calendar.DayTypeRestDay, classifier.Classify(date(time.December, 8), restDays).DayType)
}

func TestNewClassifier_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewClassifier([]calendar.CalendarEvent{
		{Date: date(time.December, 25), DayType: calendar.DayTypeRegularHoliday, Name: "Christmas Day"},
		{Date: date(time.December, 25), DayType: calendar.DayTypeSpecialHoliday, Name: "Duplicate"},
	})
	assert.ErrorIs(t, err, calendar.ErrDuplicateCalendarEvent)

	_, err = NewClassifier([]calendar.CalendarEvent{
		{Date: date(time.December, 2), DayType: calendar.DayTypeWorkday, Name: "Make-up day"},
	})
	assert.ErrorIs(t, err, calendar.ErrInvalidCalendarEvent)
}
