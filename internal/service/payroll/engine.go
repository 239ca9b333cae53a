package payroll

import (
	"fmt"
	"sort"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	attendanceService "github.com/cc-visionary/payroll-os-sub004/internal/service/attendance"
	calendarService "github.com/cc-visionary/payroll-os-sub004/internal/service/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/service/statutory"
)

// Engine computes payslips against one validated configuration. It holds no
// mutable state and is safe for concurrent use by many workers.
type Engine struct {
	settings payroll.EngineSettings
	rules    *MultiplierResolver
	tables   payroll.StatutoryTables
	resolver *attendanceService.Resolver
}

// NewEngine validates the rule set, statutory tables and settings.
func NewEngine(settings payroll.EngineSettings, rules payroll.MultiplierRuleSet, tables payroll.StatutoryTables) (*Engine, error) {
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	resolver, err := NewMultiplierResolver(rules)
	if err != nil {
		return nil, err
	}
	if err := statutory.ValidateTables(tables); err != nil {
		return nil, err
	}
	return &Engine{
		settings: settings,
		rules:    resolver,
		tables:   tables,
		resolver: attendanceService.NewResolver(settings.Location),
	}, nil
}

// ValidateSettings checks the engine knobs that do not depend on a configuration version.
func ValidateSettings(s payroll.EngineSettings) error {
	if !s.WorkingDaysPerMonth.IsPositive() {
		return fmt.Errorf("%w: working days per month must be positive", payroll.ErrInvalidEngineSettings)
	}
	if s.NightStartMinute < 0 || s.NightStartMinute >= 24*60 || s.NightEndMinute < 0 || s.NightEndMinute >= 24*60 {
		return fmt.Errorf("%w: night window must be within the day", payroll.ErrInvalidEngineSettings)
	}
	switch s.LateDeductionRule {
	case payroll.LateDeductionFlat, payroll.LateDeductionDayBaseMultiplier:
	default:
		return fmt.Errorf("%w: unknown late deduction rule %q", payroll.ErrInvalidEngineSettings, s.LateDeductionRule)
	}
	switch s.NegativeNetPolicy {
	case payroll.NegativeNetFlag, payroll.NegativeNetReject:
	default:
		return fmt.Errorf("%w: unknown negative net pay policy %q", payroll.ErrInvalidEngineSettings, s.NegativeNetPolicy)
	}
	return nil
}

func (e *Engine) RuleSetVersion() string {
	return e.rules.Version()
}

func (e *Engine) StatutoryVersion() string {
	return e.tables.Version
}

// ComputePayslip is a pure function of its input: identical inputs yield an identical result.
func (e *Engine) ComputePayslip(input payroll.ComputeInput) (payroll.PayslipResult, error) {
	employeeID := input.Profile.EmployeeID
	if err := input.Period.Validate(); err != nil {
		return payroll.PayslipResult{}, err
	}

	minuteRate, err := MinuteRate(input.Profile, e.settings.WorkingDaysPerMonth)
	if err != nil {
		return payroll.PayslipResult{}, payroll.NewComputationError(employeeID, nil, err)
	}

	classifier, err := calendarService.NewClassifier(input.Events)
	if err != nil {
		return payroll.PayslipResult{}, payroll.NewComputationError(employeeID, nil, err)
	}

	restDays := input.Profile.RestDays
	if len(restDays) == 0 {
		restDays = e.settings.DefaultRestDays
	}

	days := make([]DayResult, 0, len(input.Days))
	from, to := calendar.DateKey(input.Period.Start), calendar.DateKey(input.Period.End)
	for _, day := range sortedDays(input) {
		key := calendar.DateKey(day.Date)
		if key < from || key > to {
			continue
		}
		date := day.Date
		resolved, err := e.resolver.Resolve(day)
		if err != nil {
			return payroll.PayslipResult{}, payroll.NewComputationError(employeeID, &date, err)
		}
		resolved.EmployeeID = employeeID
		days = append(days, DayResult{
			Resolved:       resolved,
			Classification: classifier.Classify(day.Date, restDays),
		})
	}

	earnings, err := CalculateEarnings(days, minuteRate, e.rules, e.settings)
	if err != nil {
		return payroll.PayslipResult{}, err
	}

	result, err := AssemblePayslip(AssembleInput{
		Profile:     input.Profile,
		Period:      input.Period,
		Earnings:    earnings,
		Adjustments: input.Adjustments,
		PriorYTD:    input.PriorYTD,
		Tables:      e.tables,
		Settings:    e.settings,
	})
	if err != nil {
		return payroll.PayslipResult{}, err
	}
	result.RuleSetVersion = e.rules.Version()
	return result, nil
}

// ComputePayslip builds a one-off engine and computes a single payslip.
func ComputePayslip(settings payroll.EngineSettings, rules payroll.MultiplierRuleSet, tables payroll.StatutoryTables, input payroll.ComputeInput) (payroll.PayslipResult, error) {
	engine, err := NewEngine(settings, rules, tables)
	if err != nil {
		return payroll.PayslipResult{}, err
	}
	return engine.ComputePayslip(input)
}

func sortedDays(input payroll.ComputeInput) []attendance.AttendanceDay {
	days := make([]attendance.AttendanceDay, len(input.Days))
	copy(days, input.Days)
	sort.SliceStable(days, func(i, j int) bool {
		return calendar.DateKey(days[i].Date) < calendar.DateKey(days[j].Date)
	})
	return days
}
