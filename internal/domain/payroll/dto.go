package payroll

import (
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== RUN DTOs ==========

type CreateRunRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	PayDate     string `json:"pay_date"`
	Frequency   string `json:"frequency"`
}

func (r *CreateRunRequest) Validate() error {
	var errs validator.ValidationErrors

	start, okStart := validator.IsValidDate(r.PeriodStart)
	if !okStart {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be a date in YYYY-MM-DD format"})
	}
	end, okEnd := validator.IsValidDate(r.PeriodEnd)
	if !okEnd {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be a date in YYYY-MM-DD format"})
	}
	if okStart && okEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must not be before period_start"})
	}
	if _, ok := validator.IsValidDate(r.PayDate); !ok {
		errs = append(errs, validator.ValidationError{Field: "pay_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	if !validator.IsInSlice(r.Frequency, RunFrequencyValues) {
		errs = append(errs, validator.ValidationError{Field: "frequency", Message: "must be SEMI_MONTHLY or MONTHLY"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Period converts a validated request into a PayPeriod.
func (r *CreateRunRequest) Period() PayPeriod {
	start, _ := validator.IsValidDate(r.PeriodStart)
	end, _ := validator.IsValidDate(r.PeriodEnd)
	payDate, _ := validator.IsValidDate(r.PayDate)
	return PayPeriod{Start: start, End: end, PayDate: payDate, Frequency: PayFrequency(r.Frequency)}
}

type RunFilter struct {
	Status *string `json:"status,omitempty"`
	Year   *int    `json:"year,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

func (f *RunFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil && !validator.IsInSlice(*f.Status, RunStatusValues) {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "unknown run status"})
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RunResponse struct {
	ID               string     `json:"id"`
	CompanyID        string     `json:"company_id"`
	PeriodStart      string     `json:"period_start"`
	PeriodEnd        string     `json:"period_end"`
	PayDate          string     `json:"pay_date"`
	Frequency        string     `json:"frequency"`
	Status           string     `json:"status"`
	RuleSetVersion   *string    `json:"rule_set_version,omitempty"`
	StatutoryVersion *string    `json:"statutory_version,omitempty"`
	EmployeeCount    int        `json:"employee_count"`
	ComputedCount    int        `json:"computed_count"`
	FailedCount      int        `json:"failed_count"`
	ApprovedBy       *string    `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ListRunResponse struct {
	Runs       []RunResponse `json:"runs"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
}

// ========== PAYSLIP DTOs ==========

type PayslipResponse struct {
	ID           string `json:"id"`
	RunID        string `json:"run_id"`
	EmployeeCode string `json:"employee_code"`
	FullName     string `json:"full_name"`
	PayslipResult
}

// ========== ADJUSTMENT DTOs ==========

type CreateAdjustmentRequest struct {
	EmployeeID  string          `json:"employee_id"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Taxable     bool            `json:"taxable"`
}

func (r *CreateAdjustmentRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.Kind != string(LineKindEarning) && r.Kind != string(LineKindDeduction) {
		errs = append(errs, validator.ValidationError{Field: "kind", Message: "must be EARNING or DEDUCTION"})
	}
	if validator.IsEmpty(r.Description) {
		errs = append(errs, validator.ValidationError{Field: "description", Message: "is required"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AdjustmentResponse struct {
	ID          string          `json:"id"`
	RunID       string          `json:"run_id"`
	EmployeeID  string          `json:"employee_id"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Taxable     bool            `json:"taxable"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ========== PREVIEW DTOs ==========

type PreviewPayslipRequest struct {
	Employee    PreviewEmployee     `json:"employee"`
	PeriodStart string              `json:"period_start"`
	PeriodEnd   string              `json:"period_end"`
	PayDate     string              `json:"pay_date"`
	Frequency   string              `json:"frequency"`
	Attendance  []PreviewAttendance `json:"attendance"`
	Events      []PreviewEvent      `json:"events"`
	Adjustments []PreviewAdjustment `json:"adjustments"`
	PriorYTD    *YearToDate         `json:"prior_ytd,omitempty"`
}

type PreviewEmployee struct {
	EmployeeID         string          `json:"employee_id"`
	WageType           string          `json:"wage_type"`
	BaseRate           decimal.Decimal `json:"base_rate"`
	RegularizationDate *string         `json:"regularization_date,omitempty"`
	RestDays           []string        `json:"rest_days,omitempty"`
}

type PreviewShift struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	EndsNextDay  bool   `json:"ends_next_day"`
	BreakMinutes int    `json:"break_minutes"`
}

type PreviewAttendance struct {
	Date             string        `json:"date"`
	ActualIn         *string       `json:"actual_in,omitempty"`
	ActualOut        *string       `json:"actual_out,omitempty"`
	LateInApproved   bool          `json:"late_in_approved"`
	EarlyOutApproved bool          `json:"early_out_approved"`
	EarlyInApproved  bool          `json:"early_in_approved"`
	LateOutApproved  bool          `json:"late_out_approved"`
	Shift            *PreviewShift `json:"shift,omitempty"`
}

type PreviewEvent struct {
	Date    string `json:"date"`
	DayType string `json:"day_type"`
	Name    string `json:"name"`
}

type PreviewAdjustment struct {
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Taxable     bool            `json:"taxable"`
}

func (r *PreviewPayslipRequest) Validate() error {
	var errs validator.ValidationErrors

	period := CreateRunRequest{PeriodStart: r.PeriodStart, PeriodEnd: r.PeriodEnd, PayDate: r.PayDate, Frequency: r.Frequency}
	if err := period.Validate(); err != nil {
		errs = append(errs, err.(validator.ValidationErrors)...)
	}

	if validator.IsEmpty(r.Employee.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee.employee_id", Message: "is required"})
	}
	if !validator.IsInSlice(r.Employee.WageType, employee.WageTypeValues) {
		errs = append(errs, validator.ValidationError{Field: "employee.wage_type", Message: "must be MONTHLY, DAILY or HOURLY"})
	}
	if !r.Employee.BaseRate.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "employee.base_rate", Message: "must be positive"})
	}
	if r.Employee.RegularizationDate != nil {
		if _, ok := validator.IsValidDate(*r.Employee.RegularizationDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "employee.regularization_date", Message: "must be a date in YYYY-MM-DD format"})
		}
	}
	for _, d := range r.Employee.RestDays {
		if _, ok := validator.ParseWeekday(d); !ok {
			errs = append(errs, validator.ValidationError{Field: "employee.rest_days", Message: fmt.Sprintf("unknown weekday %q", d)})
		}
	}

	for i, a := range r.Attendance {
		field := fmt.Sprintf("attendance[%d]", i)
		if _, ok := validator.IsValidDate(a.Date); !ok {
			errs = append(errs, validator.ValidationError{Field: field + ".date", Message: "must be a date in YYYY-MM-DD format"})
		}
		if a.ActualIn != nil {
			if _, ok := validator.IsValidDateTime(*a.ActualIn); !ok {
				errs = append(errs, validator.ValidationError{Field: field + ".actual_in", Message: "must be an RFC3339 timestamp"})
			}
		}
		if a.ActualOut != nil {
			if _, ok := validator.IsValidDateTime(*a.ActualOut); !ok {
				errs = append(errs, validator.ValidationError{Field: field + ".actual_out", Message: "must be an RFC3339 timestamp"})
			}
		}
		if a.Shift != nil {
			if _, ok := validator.ParseClock(a.Shift.Start); !ok {
				errs = append(errs, validator.ValidationError{Field: field + ".shift.start", Message: "must be HH:MM"})
			}
			if _, ok := validator.ParseClock(a.Shift.End); !ok {
				errs = append(errs, validator.ValidationError{Field: field + ".shift.end", Message: "must be HH:MM"})
			}
		}
	}

	for i, e := range r.Events {
		field := fmt.Sprintf("events[%d]", i)
		if _, ok := validator.IsValidDate(e.Date); !ok {
			errs = append(errs, validator.ValidationError{Field: field + ".date", Message: "must be a date in YYYY-MM-DD format"})
		}
		if !validator.IsInSlice(e.DayType, calendar.DayTypeValues) {
			errs = append(errs, validator.ValidationError{Field: field + ".day_type", Message: "unknown day type"})
		}
	}

	for i, a := range r.Adjustments {
		field := fmt.Sprintf("adjustments[%d]", i)
		if a.Kind != string(LineKindEarning) && a.Kind != string(LineKindDeduction) {
			errs = append(errs, validator.ValidationError{Field: field + ".kind", Message: "must be EARNING or DEDUCTION"})
		}
		if !a.Amount.IsPositive() {
			errs = append(errs, validator.ValidationError{Field: field + ".amount", Message: "must be positive"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToComputeInput converts a validated preview request. Civil dates are placed in loc.
func (r *PreviewPayslipRequest) ToComputeInput(loc *time.Location) ComputeInput {
	inLoc := func(s string) time.Time {
		d, _ := validator.IsValidDate(s)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}

	profile := employee.WageProfile{
		EmployeeID: r.Employee.EmployeeID,
		WageType:   employee.WageType(r.Employee.WageType),
		BaseRate:   r.Employee.BaseRate,
	}
	if r.Employee.RegularizationDate != nil {
		d := inLoc(*r.Employee.RegularizationDate)
		profile.RegularizationDate = &d
	}
	for _, name := range r.Employee.RestDays {
		wd, _ := validator.ParseWeekday(name)
		profile.RestDays = append(profile.RestDays, wd)
	}

	input := ComputeInput{
		Profile: profile,
		Period: PayPeriod{
			Start:     inLoc(r.PeriodStart),
			End:       inLoc(r.PeriodEnd),
			PayDate:   inLoc(r.PayDate),
			Frequency: PayFrequency(r.Frequency),
		},
		PriorYTD: r.PriorYTD,
	}

	for _, a := range r.Attendance {
		day := attendance.AttendanceDay{
			EmployeeID:       profile.EmployeeID,
			Date:             inLoc(a.Date),
			LateInApproved:   a.LateInApproved,
			EarlyOutApproved: a.EarlyOutApproved,
			EarlyInApproved:  a.EarlyInApproved,
			LateOutApproved:  a.LateOutApproved,
		}
		if a.ActualIn != nil {
			t, _ := validator.IsValidDateTime(*a.ActualIn)
			day.ActualIn = &t
		}
		if a.ActualOut != nil {
			t, _ := validator.IsValidDateTime(*a.ActualOut)
			day.ActualOut = &t
		}
		if a.Shift != nil {
			start, _ := validator.ParseClock(a.Shift.Start)
			end, _ := validator.ParseClock(a.Shift.End)
			day.Shift = &attendance.ShiftWindow{
				StartMinute:  start,
				EndMinute:    end,
				EndsNextDay:  a.Shift.EndsNextDay,
				BreakMinutes: a.Shift.BreakMinutes,
			}
		}
		input.Days = append(input.Days, day)
	}

	for _, e := range r.Events {
		input.Events = append(input.Events, calendar.CalendarEvent{
			Date:    inLoc(e.Date),
			DayType: calendar.DayType(e.DayType),
			Name:    e.Name,
		})
	}

	for _, a := range r.Adjustments {
		input.Adjustments = append(input.Adjustments, ManualAdjustment{
			EmployeeID:  profile.EmployeeID,
			Kind:        LineKind(a.Kind),
			Description: a.Description,
			Amount:      a.Amount,
			Taxable:     a.Taxable,
		})
	}

	return input
}

// ========== CONFIGURATION DTOs ==========

type ConfigurationCheckResponse struct {
	AsOf             string `json:"as_of"`
	RuleSetVersion   string `json:"rule_set_version"`
	StatutoryVersion string `json:"statutory_version"`
	Valid            bool   `json:"valid"`
}
