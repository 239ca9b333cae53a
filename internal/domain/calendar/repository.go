package calendar

import (
	"context"
	"time"
)

type CalendarRepository interface {
	// ListEvents returns the company's events whose date falls in [start, end].
	ListEvents(ctx context.Context, companyID string, start, end time.Time) ([]CalendarEvent, error)
}
