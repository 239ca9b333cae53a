package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionKind enum
type ContributionKind string

const (
	ContributionSS         ContributionKind = "SS"
	ContributionEC         ContributionKind = "EC"
	ContributionMPF        ContributionKind = "MPF"
	ContributionPhilHealth ContributionKind = "PHILHEALTH"
	ContributionPagIbig    ContributionKind = "PAGIBIG"
)

// ContributionComponent is one employee/employer pair of a statutory contribution.
type ContributionComponent struct {
	Kind          ContributionKind `json:"kind"`
	EmployeeShare decimal.Decimal  `json:"employee_share"`
	EmployerShare decimal.Decimal  `json:"employer_share"`
}

// Brackets are half-open [Min, Max) ranges. A nil Max is the open top bracket.

type SSSBracket struct {
	Min                 decimal.Decimal         `json:"min"`
	Max                 *decimal.Decimal        `json:"max,omitempty"`
	MonthlySalaryCredit decimal.Decimal         `json:"monthly_salary_credit"`
	Components          []ContributionComponent `json:"components"`
}

func (b SSSBracket) Bounds() (decimal.Decimal, *decimal.Decimal) { return b.Min, b.Max }

type SSSTable struct {
	Brackets []SSSBracket `json:"brackets"`
}

type PhilHealthTable struct {
	Rate    decimal.Decimal `json:"rate"`
	Floor   decimal.Decimal `json:"floor"`
	Ceiling decimal.Decimal `json:"ceiling"`
}

type PagIbigBracket struct {
	Min          decimal.Decimal  `json:"min"`
	Max          *decimal.Decimal `json:"max,omitempty"`
	EmployeeRate decimal.Decimal  `json:"employee_rate"`
	EmployerRate decimal.Decimal  `json:"employer_rate"`
}

func (b PagIbigBracket) Bounds() (decimal.Decimal, *decimal.Decimal) { return b.Min, b.Max }

type PagIbigTable struct {
	Brackets      []PagIbigBracket `json:"brackets"`
	MaxFundSalary decimal.Decimal  `json:"max_fund_salary"`
	EmployeeCap   decimal.Decimal  `json:"employee_cap"`
	EmployerCap   decimal.Decimal  `json:"employer_cap"`
}

type TaxBracket struct {
	Min     decimal.Decimal  `json:"min"`
	Max     *decimal.Decimal `json:"max,omitempty"`
	BaseTax decimal.Decimal  `json:"base_tax"`
	Rate    decimal.Decimal  `json:"rate"`
}

func (b TaxBracket) Bounds() (decimal.Decimal, *decimal.Decimal) { return b.Min, b.Max }

type TaxTable struct {
	Frequency PayFrequency `json:"frequency"`
	Brackets  []TaxBracket `json:"brackets"`
}

// StatutoryTables is an immutable, effective-dated bundle of every contribution and tax table.
type StatutoryTables struct {
	Version       string          `json:"version"`
	EffectiveDate time.Time       `json:"effective_date"`
	SSS           SSSTable        `json:"sss"`
	PhilHealth    PhilHealthTable `json:"philhealth"`
	PagIbig       PagIbigTable    `json:"pagibig"`
	Tax           []TaxTable      `json:"tax"`
}

// TaxTableFor returns the withholding table of a pay frequency.
func (t StatutoryTables) TaxTableFor(freq PayFrequency) (TaxTable, bool) {
	for _, table := range t.Tax {
		if table.Frequency == freq {
			return table, true
		}
	}
	return TaxTable{}, false
}
