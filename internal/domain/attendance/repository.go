package attendance

import (
	"context"
	"time"
)

// AttendanceRepository reads imported attendance. All methods are company scoped.
type AttendanceRepository interface {
	// ListDays returns attendance days keyed by employee ID, ordered by date.
	ListDays(ctx context.Context, companyID string, employeeIDs []string, start, end time.Time) (map[string][]AttendanceDay, error)
}
