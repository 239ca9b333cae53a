package fixtures

import (
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// ==========================================
// MULTIPLIER RULES
// ==========================================

const (
	DefaultRuleSetVersion   = "PH-LABOR-2025.1"
	DefaultStatutoryVersion = "PH-STATUTORY-2025.1"
)

var defaultEffectiveDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// multiplierRow holds base, OT, ND and OT+ND multipliers of one day family.
type multiplierRow struct {
	dayType   calendar.DayType
	isRestDay bool
	values    [4]string
}

var defaultMultipliers = []multiplierRow{
	{calendar.DayTypeWorkday, false, [4]string{"1.00", "1.25", "1.10", "1.375"}},
	{calendar.DayTypeRestDay, true, [4]string{"1.30", "1.69", "1.43", "1.859"}},
	{calendar.DayTypeSpecialHoliday, false, [4]string{"1.30", "1.69", "1.43", "1.859"}},
	{calendar.DayTypeSpecialHoliday, true, [4]string{"1.50", "1.95", "1.65", "2.145"}},
	{calendar.DayTypeRegularHoliday, false, [4]string{"2.00", "2.60", "2.20", "2.86"}},
	{calendar.DayTypeRegularHoliday, true, [4]string{"2.60", "3.38", "2.86", "3.718"}},
}

// DefaultMultiplierRuleSet returns the Labor Code premium table covering all 24 keys.
func DefaultMultiplierRuleSet() payroll.MultiplierRuleSet {
	set := payroll.MultiplierRuleSet{
		Version:       DefaultRuleSetVersion,
		EffectiveDate: defaultEffectiveDate,
	}
	priority := 1
	for _, row := range defaultMultipliers {
		for i, flags := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
			set.Rules = append(set.Rules, payroll.MultiplierRule{
				DayType:     row.dayType,
				IsOvertime:  flags[0],
				IsNightDiff: flags[1],
				IsRestDay:   row.isRestDay,
				Multiplier:  d(row.values[i]),
				Priority:    priority,
			})
			priority++
		}
	}
	return set
}

// ==========================================
// STATUTORY TABLES
// ==========================================

// DefaultStatutoryTables returns the 2025 SSS, PhilHealth, Pag-IBIG and TRAIN withholding tables.
func DefaultStatutoryTables() payroll.StatutoryTables {
	return payroll.StatutoryTables{
		Version:       DefaultStatutoryVersion,
		EffectiveDate: defaultEffectiveDate,
		SSS:           defaultSSSTable(),
		PhilHealth: payroll.PhilHealthTable{
			Rate:    d("0.05"),
			Floor:   d("10000"),
			Ceiling: d("100000"),
		},
		PagIbig: payroll.PagIbigTable{
			Brackets: []payroll.PagIbigBracket{
				{Min: d("0"), Max: decPtr("1500.01"), EmployeeRate: d("0.01"), EmployerRate: d("0.02")},
				{Min: d("1500.01"), EmployeeRate: d("0.02"), EmployerRate: d("0.02")},
			},
			MaxFundSalary: d("10000"),
			EmployeeCap:   d("200"),
			EmployerCap:   d("200"),
		},
		Tax: []payroll.TaxTable{
			{
				Frequency: payroll.PayFrequencySemiMonthly,
				Brackets: []payroll.TaxBracket{
					{Min: d("0"), Max: decPtr("10417"), BaseTax: d("0"), Rate: d("0")},
					{Min: d("10417"), Max: decPtr("16667"), BaseTax: d("0"), Rate: d("0.15")},
					{Min: d("16667"), Max: decPtr("33333"), BaseTax: d("937.50"), Rate: d("0.20")},
					{Min: d("33333"), Max: decPtr("83333"), BaseTax: d("4270.70"), Rate: d("0.25")},
					{Min: d("83333"), Max: decPtr("333333"), BaseTax: d("16770.70"), Rate: d("0.30")},
					{Min: d("333333"), BaseTax: d("91770.70"), Rate: d("0.35")},
				},
			},
			{
				Frequency: payroll.PayFrequencyMonthly,
				Brackets: []payroll.TaxBracket{
					{Min: d("0"), Max: decPtr("20833"), BaseTax: d("0"), Rate: d("0")},
					{Min: d("20833"), Max: decPtr("33333"), BaseTax: d("0"), Rate: d("0.15")},
					{Min: d("33333"), Max: decPtr("66667"), BaseTax: d("1875"), Rate: d("0.20")},
					{Min: d("66667"), Max: decPtr("166667"), BaseTax: d("8541.80"), Rate: d("0.25")},
					{Min: d("166667"), Max: decPtr("666667"), BaseTax: d("33541.80"), Rate: d("0.30")},
					{Min: d("666667"), BaseTax: d("183541.80"), Rate: d("0.35")},
				},
			},
			{
				Frequency: payroll.PayFrequencyAnnual,
				Brackets: []payroll.TaxBracket{
					{Min: d("0"), Max: decPtr("250000"), BaseTax: d("0"), Rate: d("0")},
					{Min: d("250000"), Max: decPtr("400000"), BaseTax: d("0"), Rate: d("0.15")},
					{Min: d("400000"), Max: decPtr("800000"), BaseTax: d("22500"), Rate: d("0.20")},
					{Min: d("800000"), Max: decPtr("2000000"), BaseTax: d("102500"), Rate: d("0.25")},
					{Min: d("2000000"), Max: decPtr("8000000"), BaseTax: d("402500"), Rate: d("0.30")},
					{Min: d("8000000"), BaseTax: d("2202500"), Rate: d("0.35")},
				},
			},
		},
	}
}

// SSS 2025 schedule: MSC from 5,000 to 35,000 in steps of 500. The regular
// SS share is capped at MSC 20,000 and the excess goes to the provident fund.
func defaultSSSTable() payroll.SSSTable {
	var (
		minMSC      = d("5000")
		maxMSC      = d("35000")
		step        = d("500")
		half        = d("250")
		regularCap  = d("20000")
		ecThreshold = d("15000")
		eeRate      = d("0.05")
		erRate      = d("0.10")
	)

	var table payroll.SSSTable
	for msc := minMSC; msc.LessThanOrEqual(maxMSC); msc = msc.Add(step) {
		bracket := payroll.SSSBracket{MonthlySalaryCredit: msc}

		if msc.Equal(minMSC) {
			bracket.Min = decimal.Zero
		} else {
			bracket.Min = msc.Sub(half)
		}
		if !msc.Equal(maxMSC) {
			upper := msc.Add(half)
			bracket.Max = &upper
		}

		regular := decimal.Min(msc, regularCap)
		excess := decimal.Max(msc.Sub(regularCap), decimal.Zero)
		ec := d("30")
		if msc.LessThan(ecThreshold) {
			ec = d("10")
		}

		bracket.Components = []payroll.ContributionComponent{
			{Kind: payroll.ContributionSS, EmployeeShare: regular.Mul(eeRate).Round(2), EmployerShare: regular.Mul(erRate).Round(2)},
			{Kind: payroll.ContributionEC, EmployeeShare: decimal.Zero, EmployerShare: ec},
			{Kind: payroll.ContributionMPF, EmployeeShare: excess.Mul(eeRate).Round(2), EmployerShare: excess.Mul(erRate).Round(2)},
		}
		table.Brackets = append(table.Brackets, bracket)
	}
	return table
}
