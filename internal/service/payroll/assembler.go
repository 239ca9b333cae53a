package payroll

import (
	"fmt"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/service/statutory"
	"github.com/shopspring/decimal"
)

// AssembleInput is everything the assembler merges into one payslip.
type AssembleInput struct {
	Profile     employee.WageProfile
	Period      payroll.PayPeriod
	Earnings    Earnings
	Adjustments []payroll.ManualAdjustment
	PriorYTD    *payroll.YearToDate
	Tables      payroll.StatutoryTables
	Settings    payroll.EngineSettings
}

var statutoryLabels = map[payroll.ContributionKind]struct {
	category    payroll.LineCategory
	description string
}{
	payroll.ContributionSS:         {payroll.CategorySSS, "SSS regular contribution"},
	payroll.ContributionEC:         {payroll.CategorySSSEC, "SSS employees' compensation"},
	payroll.ContributionMPF:        {payroll.CategorySSSProvidentFund, "SSS provident fund"},
	payroll.ContributionPhilHealth: {payroll.CategoryPhilHealth, "PhilHealth premium"},
	payroll.ContributionPagIbig:    {payroll.CategoryPagIbig, "Pag-IBIG contribution"},
}

// AssemblePayslip merges earnings, statutory deductions and manual adjustments
// and derives the payslip totals. netPay is always grossPay - totalDeductions.
func AssemblePayslip(in AssembleInput) (payroll.PayslipResult, error) {
	employeeID := in.Profile.EmployeeID
	fail := func(err error) (payroll.PayslipResult, error) {
		return payroll.PayslipResult{}, payroll.NewComputationError(employeeID, nil, err)
	}

	var earnings, deductions, adjustmentEarnings, adjustmentDeductions []payroll.PayslipLine
	for _, line := range in.Earnings.Lines {
		if line.Kind == payroll.LineKindEarning {
			earnings = append(earnings, line)
		} else {
			deductions = append(deductions, line)
		}
	}

	nonTaxable := decimal.Zero
	for _, adj := range in.Adjustments {
		if !adj.Amount.IsPositive() || (adj.Kind != payroll.LineKindEarning && adj.Kind != payroll.LineKindDeduction) {
			return fail(fmt.Errorf("%w: %q", payroll.ErrInvalidAdjustment, adj.Description))
		}
		line := payroll.PayslipLine{
			Kind:        adj.Kind,
			Category:    payroll.CategoryManualAdjustment,
			Description: adj.Description,
			Amount:      adj.Amount.Round(2),
			Taxable:     adj.Taxable,
		}
		if adj.Kind == payroll.LineKindEarning {
			adjustmentEarnings = append(adjustmentEarnings, line)
			if !adj.Taxable {
				nonTaxable = nonTaxable.Add(line.Amount)
			}
		} else {
			adjustmentDeductions = append(adjustmentDeductions, line)
		}
	}

	gross := sumLines(earnings).Add(sumLines(adjustmentEarnings))

	contributions := make([]payroll.ContributionComponent, 0)
	var statutoryLines []payroll.PayslipLine
	employeeShares := decimal.Zero
	eligible := in.Profile.IsRegularOn(in.Period.PayDate)

	if eligible {
		salary, err := statutory.MonthlyBasicSalary(in.Profile, in.Settings.WorkingDaysPerMonth)
		if err != nil {
			return fail(err)
		}
		monthly, err := statutory.MonthlyContributions(in.Tables, salary)
		if err != nil {
			return fail(err)
		}
		contributions = statutory.PeriodShare(monthly, in.Period)

		for _, c := range contributions {
			if c.EmployeeShare.IsZero() {
				continue
			}
			label, ok := statutoryLabels[c.Kind]
			if !ok {
				return fail(fmt.Errorf("%w: no payslip line for contribution %s", payroll.ErrInvalidStatutoryTable, c.Kind))
			}
			statutoryLines = append(statutoryLines, payroll.PayslipLine{
				Kind:        payroll.LineKindDeduction,
				Category:    label.category,
				Description: label.description,
				Amount:      c.EmployeeShare,
			})
			employeeShares = employeeShares.Add(c.EmployeeShare)
		}
	}

	taxable := gross.Sub(nonTaxable).Sub(in.Earnings.LateUndertime).Sub(employeeShares)

	tax := decimal.Zero
	if eligible {
		var err error
		tax, err = statutory.WithholdingTax(in.Tables, in.Period.Frequency, taxable)
		if err != nil {
			return fail(err)
		}
		if tax.IsPositive() {
			statutoryLines = append(statutoryLines, payroll.PayslipLine{
				Kind:        payroll.LineKindDeduction,
				Category:    payroll.CategoryWithholdingTax,
				Description: "Withholding tax",
				Amount:      tax,
			})
		}
	}

	lines := make([]payroll.PayslipLine, 0, len(earnings)+len(adjustmentEarnings)+len(deductions)+len(statutoryLines)+len(adjustmentDeductions))
	lines = append(lines, earnings...)
	lines = append(lines, adjustmentEarnings...)
	lines = append(lines, deductions...)
	lines = append(lines, statutoryLines...)
	lines = append(lines, adjustmentDeductions...)

	totalDeductions := decimal.Zero
	for _, line := range lines {
		if line.Kind == payroll.LineKindDeduction {
			totalDeductions = totalDeductions.Add(line.Amount)
		}
	}
	net := gross.Sub(totalDeductions)

	year := in.Period.PayDate.Year()
	ytd := payroll.YearToDate{Year: year, GrossPay: decimal.Zero, TaxableIncome: decimal.Zero, TaxWithheld: decimal.Zero}
	if in.PriorYTD != nil && in.PriorYTD.Year == year {
		ytd = *in.PriorYTD
	}
	ytd.GrossPay = ytd.GrossPay.Add(gross)
	ytd.TaxableIncome = ytd.TaxableIncome.Add(taxable)
	ytd.TaxWithheld = ytd.TaxWithheld.Add(tax)

	result := payroll.PayslipResult{
		EmployeeID:       employeeID,
		Period:           in.Period,
		Lines:            lines,
		GrossPay:         gross,
		TotalDeductions:  totalDeductions,
		NetPay:           net,
		TaxableIncome:    taxable,
		Contributions:    contributions,
		YTD:              ytd,
		Attendance:       in.Earnings.Totals,
		StatutoryVersion: in.Tables.Version,
	}

	if eligible && in.Period.ClosesYear() {
		variance, err := statutory.AnnualTaxVariance(in.Tables, ytd)
		if err != nil {
			return fail(err)
		}
		result.AnnualizedTaxVariance = &variance
	}

	if net.LessThan(in.Settings.MinimumNetPay) {
		err := fmt.Errorf("%w: net pay %s is below %s", payroll.ErrNegativeNetPay, net.StringFixed(2), in.Settings.MinimumNetPay.StringFixed(2))
		if in.Settings.NegativeNetPolicy == payroll.NegativeNetReject {
			return fail(err)
		}
		result.Warnings = append(result.Warnings, payroll.RunIssue{
			EmployeeID: employeeID,
			Kind:       payroll.IssueNegativeNetPay,
			Detail:     err.Error(),
		})
	}

	return result, nil
}

func sumLines(lines []payroll.PayslipLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	return total
}
