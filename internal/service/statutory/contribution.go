package statutory

import (
	"fmt"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

var (
	two        = decimal.NewFromInt(2)
	hoursInDay = decimal.NewFromInt(8)
)

// MonthlyBasicSalary converts a wage profile into the monthly salary the contribution tables use.
func MonthlyBasicSalary(profile employee.WageProfile, workingDaysPerMonth decimal.Decimal) (decimal.Decimal, error) {
	if !profile.BaseRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", employee.ErrInvalidBaseRate, profile.BaseRate.String())
	}
	switch profile.WageType {
	case employee.WageTypeMonthly:
		return profile.BaseRate, nil
	case employee.WageTypeDaily:
		return profile.BaseRate.Mul(workingDaysPerMonth).Round(2), nil
	case employee.WageTypeHourly:
		return profile.BaseRate.Mul(hoursInDay).Mul(workingDaysPerMonth).Round(2), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", employee.ErrInvalidWageType, profile.WageType)
	}
}

// SSS returns the SS, EC and MPF components of the bracket holding monthlySalary.
func SSS(table payroll.SSSTable, monthlySalary decimal.Decimal) ([]payroll.ContributionComponent, error) {
	b, err := findBracket(table.Brackets, monthlySalary)
	if err != nil {
		return nil, fmt.Errorf("sss: %w", err)
	}
	components := make([]payroll.ContributionComponent, len(b.Components))
	copy(components, b.Components)
	return components, nil
}

// PhilHealth computes the premium on the salary clamped to the floor and ceiling, split evenly.
func PhilHealth(table payroll.PhilHealthTable, monthlySalary decimal.Decimal) (payroll.ContributionComponent, error) {
	if monthlySalary.IsNegative() {
		return payroll.ContributionComponent{}, fmt.Errorf("philhealth: %w: negative salary", payroll.ErrBracketLookupFailure)
	}
	base := decimal.Min(decimal.Max(monthlySalary, table.Floor), table.Ceiling)
	total := base.Mul(table.Rate).Round(2)
	ee := total.Div(two).Round(2)
	return payroll.ContributionComponent{
		Kind:          payroll.ContributionPhilHealth,
		EmployeeShare: ee,
		EmployerShare: total.Sub(ee),
	}, nil
}

// PagIbig applies the bracket rates to the salary capped at the maximum fund salary.
func PagIbig(table payroll.PagIbigTable, monthlySalary decimal.Decimal) (payroll.ContributionComponent, error) {
	b, err := findBracket(table.Brackets, monthlySalary)
	if err != nil {
		return payroll.ContributionComponent{}, fmt.Errorf("pag-ibig: %w", err)
	}
	base := decimal.Min(monthlySalary, table.MaxFundSalary)
	return payroll.ContributionComponent{
		Kind:          payroll.ContributionPagIbig,
		EmployeeShare: decimal.Min(base.Mul(b.EmployeeRate).Round(2), table.EmployeeCap),
		EmployerShare: decimal.Min(base.Mul(b.EmployerRate).Round(2), table.EmployerCap),
	}, nil
}

// MonthlyContributions returns every monthly contribution component for a salary.
func MonthlyContributions(tables payroll.StatutoryTables, monthlySalary decimal.Decimal) ([]payroll.ContributionComponent, error) {
	components, err := SSS(tables.SSS, monthlySalary)
	if err != nil {
		return nil, err
	}
	ph, err := PhilHealth(tables.PhilHealth, monthlySalary)
	if err != nil {
		return nil, err
	}
	hdmf, err := PagIbig(tables.PagIbig, monthlySalary)
	if err != nil {
		return nil, err
	}
	return append(components, ph, hdmf), nil
}

// PeriodShare returns the part of monthly contributions deducted in period.
// Semi-monthly runs split each share; the first cut-off takes the rounded
// half and the second the remainder so a month always sums exactly.
func PeriodShare(monthly []payroll.ContributionComponent, period payroll.PayPeriod) []payroll.ContributionComponent {
	shares := make([]payroll.ContributionComponent, len(monthly))
	for i, c := range monthly {
		shares[i] = payroll.ContributionComponent{
			Kind:          c.Kind,
			EmployeeShare: splitShare(c.EmployeeShare, period),
			EmployerShare: splitShare(c.EmployerShare, period),
		}
	}
	return shares
}

func splitShare(amount decimal.Decimal, period payroll.PayPeriod) decimal.Decimal {
	if period.Frequency != payroll.PayFrequencySemiMonthly {
		return amount
	}
	first := amount.Div(two).Round(2)
	if period.IsSecondCutoff() {
		return amount.Sub(first)
	}
	return first
}
