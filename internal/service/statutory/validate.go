package statutory

import (
	"fmt"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
)

// ValidateTables is the self-check run before any payroll run uses a table version.
func ValidateTables(tables payroll.StatutoryTables) error {
	if err := validateBrackets("sss", tables.SSS.Brackets); err != nil {
		return err
	}
	for i, b := range tables.SSS.Brackets {
		if len(b.Components) == 0 {
			return fmt.Errorf("%w: sss bracket %d has no components", payroll.ErrInvalidStatutoryTable, i)
		}
		for _, c := range b.Components {
			switch c.Kind {
			case payroll.ContributionSS, payroll.ContributionEC, payroll.ContributionMPF:
			default:
				return fmt.Errorf("%w: sss bracket %d has component %q", payroll.ErrInvalidStatutoryTable, i, c.Kind)
			}
			if c.EmployeeShare.IsNegative() || c.EmployerShare.IsNegative() {
				return fmt.Errorf("%w: sss bracket %d has a negative %s share", payroll.ErrInvalidStatutoryTable, i, c.Kind)
			}
		}
	}

	ph := tables.PhilHealth
	if !ph.Rate.IsPositive() || ph.Floor.IsNegative() || ph.Ceiling.LessThan(ph.Floor) {
		return fmt.Errorf("%w: philhealth rate, floor or ceiling", payroll.ErrInvalidStatutoryTable)
	}

	if err := validateBrackets("pag-ibig", tables.PagIbig.Brackets); err != nil {
		return err
	}
	if !tables.PagIbig.MaxFundSalary.IsPositive() {
		return fmt.Errorf("%w: pag-ibig max fund salary", payroll.ErrInvalidStatutoryTable)
	}

	for _, freq := range []payroll.PayFrequency{payroll.PayFrequencySemiMonthly, payroll.PayFrequencyMonthly, payroll.PayFrequencyAnnual} {
		table, ok := tables.TaxTableFor(freq)
		if !ok {
			return fmt.Errorf("%w: missing %s withholding table", payroll.ErrInvalidStatutoryTable, freq)
		}
		if err := validateBrackets("tax "+string(freq), table.Brackets); err != nil {
			return err
		}
	}
	return nil
}
