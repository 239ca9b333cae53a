package statutory

import (
	"fmt"
	"sort"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type bracket interface {
	Bounds() (decimal.Decimal, *decimal.Decimal)
}

// findBracket returns the bracket whose [Min, Max) range holds amount.
// Brackets must be sorted by Min.
func findBracket[B bracket](brackets []B, amount decimal.Decimal) (B, error) {
	var zero B
	if amount.IsNegative() {
		return zero, fmt.Errorf("%w: negative amount %s", payroll.ErrBracketLookupFailure, amount.StringFixed(2))
	}

	i := sort.Search(len(brackets), func(i int) bool {
		_, upper := brackets[i].Bounds()
		return upper == nil || amount.LessThan(*upper)
	})
	if i == len(brackets) {
		return zero, fmt.Errorf("%w: %s is above the last bracket", payroll.ErrBracketLookupFailure, amount.StringFixed(2))
	}

	lower, _ := brackets[i].Bounds()
	if amount.LessThan(lower) {
		return zero, fmt.Errorf("%w: %s falls in a gap below %s", payroll.ErrBracketLookupFailure, amount.StringFixed(2), lower.StringFixed(2))
	}
	return brackets[i], nil
}

// validateBrackets checks that brackets start at zero, are contiguous and end open.
func validateBrackets[B bracket](name string, brackets []B) error {
	if len(brackets) == 0 {
		return fmt.Errorf("%w: %s has no brackets", payroll.ErrInvalidStatutoryTable, name)
	}

	first, _ := brackets[0].Bounds()
	if !first.IsZero() {
		return fmt.Errorf("%w: %s starts at %s instead of 0", payroll.ErrInvalidStatutoryTable, name, first.String())
	}

	for i, b := range brackets {
		lower, upper := b.Bounds()
		last := i == len(brackets)-1

		if upper == nil {
			if !last {
				return fmt.Errorf("%w: %s bracket %d is open but not last", payroll.ErrInvalidStatutoryTable, name, i)
			}
			continue
		}
		if last {
			return fmt.Errorf("%w: %s does not cover incomes from %s up", payroll.ErrInvalidStatutoryTable, name, upper.String())
		}
		if !upper.GreaterThan(lower) {
			return fmt.Errorf("%w: %s bracket %d is empty", payroll.ErrInvalidStatutoryTable, name, i)
		}

		next, _ := brackets[i+1].Bounds()
		switch next.Cmp(*upper) {
		case 1:
			return fmt.Errorf("%w: %s has a gap between %s and %s", payroll.ErrInvalidStatutoryTable, name, upper.String(), next.String())
		case -1:
			return fmt.Errorf("%w: %s brackets %d and %d overlap", payroll.ErrInvalidStatutoryTable, name, i, i+1)
		}
	}
	return nil
}
