package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// ListDays returns the attendance days of the given employees in [start, end], keyed by employee ID.
func (r *attendanceRepository) ListDays(ctx context.Context, companyID string, employeeIDs []string, start, end time.Time) (map[string][]attendance.AttendanceDay, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			a.employee_id, a.work_date, a.actual_in, a.actual_out,
			a.late_in_approved, a.early_out_approved, a.early_in_approved, a.late_out_approved,
			s.id, s.name, s.start_minute, s.end_minute, s.ends_next_day, s.break_minutes
		FROM attendance_days a
		LEFT JOIN shift_windows s ON s.id = a.shift_window_id
		WHERE a.company_id = $1
			AND a.employee_id = ANY($2::uuid[])
			AND a.work_date BETWEEN $3 AND $4
		ORDER BY a.employee_id, a.work_date
	`

	rows, err := q.Query(ctx, query, companyID, employeeIDs, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance days: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]attendance.AttendanceDay, len(employeeIDs))
	for rows.Next() {
		var day attendance.AttendanceDay
		var (
			shiftID, shiftName          *string
			startMinute, endMinute, brk *int
			endsNextDay                 *bool
		)
		if err := rows.Scan(
			&day.EmployeeID, &day.Date, &day.ActualIn, &day.ActualOut,
			&day.LateInApproved, &day.EarlyOutApproved, &day.EarlyInApproved, &day.LateOutApproved,
			&shiftID, &shiftName, &startMinute, &endMinute, &endsNextDay, &brk,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance day: %w", err)
		}
		if shiftID != nil {
			day.Shift = &attendance.ShiftWindow{
				ID:           *shiftID,
				Name:         *shiftName,
				StartMinute:  *startMinute,
				EndMinute:    *endMinute,
				EndsNextDay:  *endsNextDay,
				BreakMinutes: *brk,
			}
		}
		result[day.EmployeeID] = append(result[day.EmployeeID], day)
	}

	return result, rows.Err()
}
