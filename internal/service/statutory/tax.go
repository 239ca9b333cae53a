package statutory

import (
	"fmt"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// WithholdingTax looks up taxable income in the table of the given pay frequency.
func WithholdingTax(tables payroll.StatutoryTables, freq payroll.PayFrequency, taxable decimal.Decimal) (decimal.Decimal, error) {
	table, ok := tables.TaxTableFor(freq)
	if !ok {
		return decimal.Zero, fmt.Errorf("withholding tax: %w: no %s table", payroll.ErrInvalidStatutoryTable, freq)
	}
	return taxFromTable(table, taxable)
}

func taxFromTable(table payroll.TaxTable, taxable decimal.Decimal) (decimal.Decimal, error) {
	b, err := findBracket(table.Brackets, taxable)
	if err != nil {
		return decimal.Zero, fmt.Errorf("withholding tax: %w", err)
	}
	return b.BaseTax.Add(taxable.Sub(b.Min).Mul(b.Rate)).Round(2), nil
}

// AnnualTaxVariance returns the annual tax due on year-to-date taxable income
// minus the tax already withheld. A positive value is still owed.
func AnnualTaxVariance(tables payroll.StatutoryTables, ytd payroll.YearToDate) (decimal.Decimal, error) {
	due, err := WithholdingTax(tables, payroll.PayFrequencyAnnual, ytd.TaxableIncome)
	if err != nil {
		return decimal.Zero, err
	}
	return due.Sub(ytd.TaxWithheld), nil
}
