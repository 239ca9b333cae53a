package payroll

import (
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// PayFrequency enum
type PayFrequency string

const (
	PayFrequencySemiMonthly PayFrequency = "SEMI_MONTHLY"
	PayFrequencyMonthly     PayFrequency = "MONTHLY"
	// PayFrequencyAnnual is only used to select the annual tax table.
	PayFrequencyAnnual PayFrequency = "ANNUAL"
)

var RunFrequencyValues = []string{
	string(PayFrequencySemiMonthly),
	string(PayFrequencyMonthly),
}

// PayPeriod is an inclusive civil date range and the date it is paid out.
type PayPeriod struct {
	Start     time.Time    `json:"start"`
	End       time.Time    `json:"end"`
	PayDate   time.Time    `json:"pay_date"`
	Frequency PayFrequency `json:"frequency"`
}

func (p PayPeriod) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidPeriod, p.End.Format("2006-01-02"), p.Start.Format("2006-01-02"))
	}
	if p.Frequency != PayFrequencySemiMonthly && p.Frequency != PayFrequencyMonthly {
		return fmt.Errorf("%w: unsupported frequency %q", ErrInvalidPeriod, p.Frequency)
	}
	return nil
}

// IsSecondCutoff reports whether a semi-monthly period is the month's second half.
func (p PayPeriod) IsSecondCutoff() bool {
	return p.Frequency == PayFrequencySemiMonthly && p.Start.Day() > 15
}

// ClosesYear reports whether this is the last period of the pay date's calendar year.
func (p PayPeriod) ClosesYear() bool {
	if p.End.Month() != time.December {
		return false
	}
	return p.Frequency == PayFrequencyMonthly || p.IsSecondCutoff()
}

// Dates lists every civil date of the period in order.
func (p PayPeriod) Dates() []time.Time {
	var dates []time.Time
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// PayrollRun owns the payslips computed for one company and one pay period.
type PayrollRun struct {
	ID               string
	CompanyID        string
	Period           PayPeriod
	Status           RunStatus
	RuleSetVersion   *string
	StatutoryVersion *string
	EmployeeCount    int
	ComputedCount    int
	FailedCount      int
	CreatedBy        *string
	ApprovedBy       *string
	ApprovedAt       *time.Time
	ReleasedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LineKind enum
type LineKind string

const (
	LineKindEarning   LineKind = "EARNING"
	LineKindDeduction LineKind = "DEDUCTION"
)

// LineCategory tags a payslip line for registers and exports.
type LineCategory string

const (
	CategoryBasicPay          LineCategory = "BASIC_PAY"
	CategoryOTRegularDay      LineCategory = "OT_REGULAR_DAY"
	CategoryOTRestDay         LineCategory = "OT_REST_DAY"
	CategoryOTSpecialHoliday  LineCategory = "OT_SPECIAL_HOLIDAY"
	CategoryOTRegularHoliday  LineCategory = "OT_REGULAR_HOLIDAY"
	CategoryNightDifferential LineCategory = "NIGHT_DIFFERENTIAL"
	CategoryLateUndertime     LineCategory = "LATE_UT_DEDUCTION"
	CategorySSS               LineCategory = "SSS_CONTRIBUTION"
	CategorySSSProvidentFund  LineCategory = "SSS_MPF_CONTRIBUTION"
	CategorySSSEC             LineCategory = "SSS_EC_CONTRIBUTION"
	CategoryPhilHealth        LineCategory = "PHILHEALTH_CONTRIBUTION"
	CategoryPagIbig           LineCategory = "PAGIBIG_CONTRIBUTION"
	CategoryWithholdingTax    LineCategory = "WITHHOLDING_TAX"
	CategoryManualAdjustment  LineCategory = "MANUAL_ADJUSTMENT"
)

// IsStatutory reports whether the category is a government contribution or tax line.
func (c LineCategory) IsStatutory() bool {
	switch c {
	case CategorySSS, CategorySSSProvidentFund, CategorySSSEC, CategoryPhilHealth, CategoryPagIbig, CategoryWithholdingTax:
		return true
	}
	return false
}

// PayslipLine is one itemized amount on a payslip. Quantity is in minutes for time based lines.
type PayslipLine struct {
	Kind        LineKind         `json:"kind"`
	Category    LineCategory     `json:"category"`
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	Multiplier  *decimal.Decimal `json:"multiplier,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
	Taxable     bool             `json:"taxable"`
}

// ManualAdjustment is an externally sourced line attached to an employee for a run.
type ManualAdjustment struct {
	ID          string
	RunID       string
	EmployeeID  string
	Kind        LineKind
	Description string
	Amount      decimal.Decimal
	Taxable     bool
	CreatedAt   time.Time
}

// YearToDate carries running totals across the periods of one calendar year.
type YearToDate struct {
	Year          int             `json:"year"`
	GrossPay      decimal.Decimal `json:"gross_pay"`
	TaxableIncome decimal.Decimal `json:"taxable_income"`
	TaxWithheld   decimal.Decimal `json:"tax_withheld"`
}

// AttendanceTotals summarises the resolved minutes behind a payslip.
type AttendanceTotals struct {
	DaysPresent      int `json:"days_present"`
	WorkedMinutes    int `json:"worked_minutes"`
	LateMinutes      int `json:"late_minutes"`
	UndertimeMinutes int `json:"undertime_minutes"`
	OTMinutes        int `json:"ot_minutes"`
	NightMinutes     int `json:"night_minutes"`
}

// PayslipResult is the pure output of a payslip computation.
type PayslipResult struct {
	EmployeeID            string                  `json:"employee_id"`
	Period                PayPeriod               `json:"period"`
	Lines                 []PayslipLine           `json:"lines"`
	GrossPay              decimal.Decimal         `json:"gross_pay"`
	TotalDeductions       decimal.Decimal         `json:"total_deductions"`
	NetPay                decimal.Decimal         `json:"net_pay"`
	TaxableIncome         decimal.Decimal         `json:"taxable_income"`
	Contributions         []ContributionComponent `json:"contributions"`
	YTD                   YearToDate              `json:"ytd"`
	Attendance            AttendanceTotals        `json:"attendance"`
	AnnualizedTaxVariance *decimal.Decimal        `json:"annualized_tax_variance,omitempty"`
	RuleSetVersion        string                  `json:"rule_set_version"`
	StatutoryVersion      string                  `json:"statutory_version"`
	Warnings              []RunIssue              `json:"warnings,omitempty"`
}

// Payslip is a persisted PayslipResult for one employee in one run.
type Payslip struct {
	ID                string
	RunID             string
	CompanyID         string
	EmployeeCode      string
	FullName          string
	BankName          string
	BankAccountNumber string
	Result            PayslipResult
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IssueKind names the cause of a per-employee problem in a run.
type IssueKind string

const (
	IssueMissingShiftWindow   IssueKind = "MISSING_SHIFT_WINDOW"
	IssueInvalidShiftWindow   IssueKind = "INVALID_SHIFT_WINDOW"
	IssueInvalidTimeLog       IssueKind = "INVALID_TIME_LOG"
	IssueInvalidCalendar      IssueKind = "INVALID_CALENDAR"
	IssueUnresolvedMultiplier IssueKind = "UNRESOLVED_MULTIPLIER"
	IssueBracketLookupFailure IssueKind = "BRACKET_LOOKUP_FAILURE"
	IssueNegativeNetPay       IssueKind = "NEGATIVE_NET_PAY"
	IssueInvalidWageProfile   IssueKind = "INVALID_WAGE_PROFILE"
	IssueInvalidSettings      IssueKind = "INVALID_SETTINGS"
	IssueInternal             IssueKind = "INTERNAL"
)

// RunIssue is one entry of the per-employee error list shown to HR.
// Blocking issues prevent approval until the employee is recomputed cleanly.
type RunIssue struct {
	ID         string     `json:"id,omitempty"`
	RunID      string     `json:"run_id,omitempty"`
	EmployeeID string     `json:"employee_id"`
	Date       *time.Time `json:"date,omitempty"`
	Kind       IssueKind  `json:"kind"`
	Detail     string     `json:"detail"`
	Blocking   bool       `json:"blocking"`
	CreatedAt  time.Time  `json:"created_at,omitzero"`
}

// EngineSettings are the company level knobs of the computation.
type EngineSettings struct {
	Location            *time.Location
	WorkingDaysPerMonth decimal.Decimal
	DefaultRestDays     []time.Weekday
	NightStartMinute    int
	NightEndMinute      int
	LateDeductionRule   LateDeductionRule
	NegativeNetPolicy   NegativeNetPolicy
	MinimumNetPay       decimal.Decimal
}

// LateDeductionRule selects how late and undertime minutes are priced.
type LateDeductionRule string

const (
	// LateDeductionFlat prices every late or undertime minute at 1.0 times the minute rate.
	LateDeductionFlat LateDeductionRule = "flat"
	// LateDeductionDayBaseMultiplier prices them at the base multiplier of the day they occur on.
	LateDeductionDayBaseMultiplier LateDeductionRule = "day_base_multiplier"
)

// NegativeNetPolicy selects what happens when net pay falls below the minimum.
type NegativeNetPolicy string

const (
	NegativeNetFlag   NegativeNetPolicy = "flag"
	NegativeNetReject NegativeNetPolicy = "reject"
)

// ComputeInput bundles everything one employee-period computation reads.
type ComputeInput struct {
	Profile     employee.WageProfile
	Period      PayPeriod
	Days        []attendance.AttendanceDay
	Events      []calendar.CalendarEvent
	Adjustments []ManualAdjustment
	PriorYTD    *YearToDate
}
