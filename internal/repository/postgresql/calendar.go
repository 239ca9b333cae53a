package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/database"
)

type calendarRepository struct {
	db *database.DB
}

func NewCalendarRepository(db *database.DB) calendar.CalendarRepository {
	return &calendarRepository{db: db}
}

func (r *calendarRepository) ListEvents(ctx context.Context, companyID string, start, end time.Time) ([]calendar.CalendarEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, event_date, day_type, name
		FROM calendar_events
		WHERE company_id = $1 AND event_date BETWEEN $2 AND $3
		ORDER BY event_date
	`

	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	defer rows.Close()

	var events []calendar.CalendarEvent
	for rows.Next() {
		var e calendar.CalendarEvent
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Date, &e.DayType, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
