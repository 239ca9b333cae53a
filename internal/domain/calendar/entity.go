package calendar

import (
	"time"
)

type DayType string

const (
	DayTypeWorkday        DayType = "WORKDAY"
	DayTypeRestDay        DayType = "REST_DAY"
	DayTypeRegularHoliday DayType = "REGULAR_HOLIDAY"
	DayTypeSpecialHoliday DayType = "SPECIAL_HOLIDAY"
)

var DayTypeValues = []string{
	string(DayTypeWorkday),
	string(DayTypeRestDay),
	string(DayTypeRegularHoliday),
	string(DayTypeSpecialHoliday),
}

func (d DayType) IsHoliday() bool {
	return d == DayTypeRegularHoliday || d == DayTypeSpecialHoliday
}

// CalendarEvent tags a single date for a company.
type CalendarEvent struct {
	ID        string
	CompanyID string
	Date      time.Time
	DayType   DayType
	Name      string
}

// Classification is the legal day type of a date plus the independent rest-day flag.
type Classification struct {
	Date      time.Time
	DayType   DayType
	IsRestDay bool
	EventName string
}

// DateKey formats a civil date for map lookups.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
