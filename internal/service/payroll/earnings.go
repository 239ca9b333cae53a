package payroll

import (
	"fmt"
	"sort"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

var (
	minutesPerHour = decimal.NewFromInt(60)
	hoursPerDay    = decimal.NewFromInt(8)
	one            = decimal.NewFromInt(1)
)

// DayResult pairs the resolved minutes of a date with its classification.
type DayResult struct {
	Resolved       attendance.ResolvedDay
	Classification calendar.Classification
}

// Earnings is the output of the earnings calculator for one employee-period.
type Earnings struct {
	// Lines holds earning lines followed by the late/undertime deduction, if any.
	Lines         []payroll.PayslipLine
	LateUndertime decimal.Decimal
	Totals        payroll.AttendanceTotals
}

// MinuteRate converts a wage profile into a per-minute rate. It is not rounded.
func MinuteRate(profile employee.WageProfile, workingDaysPerMonth decimal.Decimal) (decimal.Decimal, error) {
	if !profile.BaseRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", employee.ErrInvalidBaseRate, profile.BaseRate.String())
	}
	switch profile.WageType {
	case employee.WageTypeMonthly:
		if !workingDaysPerMonth.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: working days per month must be positive, got %s", payroll.ErrInvalidEngineSettings, workingDaysPerMonth.String())
		}
		return profile.BaseRate.Div(workingDaysPerMonth).Div(hoursPerDay).Div(minutesPerHour), nil
	case employee.WageTypeDaily:
		return profile.BaseRate.Div(hoursPerDay).Div(minutesPerHour), nil
	case employee.WageTypeHourly:
		return profile.BaseRate.Div(minutesPerHour), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", employee.ErrInvalidWageType, profile.WageType)
	}
}

type family struct {
	dayType   calendar.DayType
	isRestDay bool
}

func (f family) rank() int {
	switch {
	case f.dayType == calendar.DayTypeWorkday:
		return 0
	case f.dayType == calendar.DayTypeRestDay:
		return 1
	case f.dayType == calendar.DayTypeSpecialHoliday && !f.isRestDay:
		return 2
	case f.dayType == calendar.DayTypeSpecialHoliday:
		return 3
	case f.dayType == calendar.DayTypeRegularHoliday && !f.isRestDay:
		return 4
	default:
		return 5
	}
}

func (f family) String() string {
	switch f.dayType {
	case calendar.DayTypeWorkday:
		return "workday"
	case calendar.DayTypeRestDay:
		return "rest day"
	case calendar.DayTypeSpecialHoliday:
		if f.isRestDay {
			return "special holiday on rest day"
		}
		return "special holiday"
	default:
		if f.isRestDay {
			return "regular holiday on rest day"
		}
		return "regular holiday"
	}
}

func (f family) key(overtime, nightDiff bool) payroll.MultiplierKey {
	return payroll.MultiplierKey{
		DayType:     f.dayType,
		IsOvertime:  overtime,
		IsNightDiff: nightDiff,
		IsRestDay:   f.isRestDay,
	}
}

// otCategory maps a day type to its legal overtime bucket. Holidays keep
// their own bucket when they fall on a rest day.
func otCategory(dayType calendar.DayType) payroll.LineCategory {
	switch dayType {
	case calendar.DayTypeRegularHoliday:
		return payroll.CategoryOTRegularHoliday
	case calendar.DayTypeSpecialHoliday:
		return payroll.CategoryOTSpecialHoliday
	case calendar.DayTypeRestDay:
		return payroll.CategoryOTRestDay
	default:
		return payroll.CategoryOTRegularDay
	}
}

var categoryRank = map[payroll.LineCategory]int{
	payroll.CategoryBasicPay:          0,
	payroll.CategoryOTRegularDay:      1,
	payroll.CategoryOTRestDay:         2,
	payroll.CategoryOTSpecialHoliday:  3,
	payroll.CategoryOTRegularHoliday:  4,
	payroll.CategoryNightDifferential: 5,
}

type bucketKey struct {
	category payroll.LineCategory
	family   family
	overtime bool
}

type bucket struct {
	bucketKey
	minutes    int
	multiplier decimal.Decimal
	amount     decimal.Decimal
}

// accumulator sums unrounded amounts per line until finalization.
type accumulator struct {
	buckets map[bucketKey]*bucket
}

func newAccumulator() *accumulator {
	return &accumulator{buckets: make(map[bucketKey]*bucket)}
}

func (a *accumulator) add(key bucketKey, minutes int, multiplier, minuteRate decimal.Decimal) {
	b, ok := a.buckets[key]
	if !ok {
		b = &bucket{bucketKey: key, multiplier: multiplier, amount: decimal.Zero}
		a.buckets[key] = b
	}
	b.minutes += minutes
	b.amount = b.amount.Add(decimal.NewFromInt(int64(minutes)).Mul(minuteRate).Mul(multiplier))
}

func (a *accumulator) lines(displayRate decimal.Decimal) []payroll.PayslipLine {
	buckets := make([]*bucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		bi, bj := buckets[i], buckets[j]
		if categoryRank[bi.category] != categoryRank[bj.category] {
			return categoryRank[bi.category] < categoryRank[bj.category]
		}
		if bi.family.rank() != bj.family.rank() {
			return bi.family.rank() < bj.family.rank()
		}
		return !bi.overtime && bj.overtime
	})

	lines := make([]payroll.PayslipLine, 0, len(buckets))
	for _, b := range buckets {
		quantity := decimal.NewFromInt(int64(b.minutes))
		rate := displayRate
		multiplier := b.multiplier
		lines = append(lines, payroll.PayslipLine{
			Kind:        payroll.LineKindEarning,
			Category:    b.category,
			Description: describe(b.bucketKey),
			Quantity:    &quantity,
			Rate:        &rate,
			Multiplier:  &multiplier,
			Amount:      b.amount.Round(2),
			Taxable:     true,
		})
	}
	return lines
}

func describe(k bucketKey) string {
	switch k.category {
	case payroll.CategoryBasicPay:
		return "Basic pay, " + k.family.String()
	case payroll.CategoryNightDifferential:
		if k.overtime {
			return "Night differential on overtime, " + k.family.String()
		}
		return "Night differential, " + k.family.String()
	default:
		return "Overtime, " + k.family.String()
	}
}

// CalculateEarnings prices resolved minutes with the day's multipliers.
// Amounts are summed unrounded and rounded half-up once per line.
func CalculateEarnings(days []DayResult, minuteRate decimal.Decimal, rules *MultiplierResolver, settings payroll.EngineSettings) (Earnings, error) {
	acc := newAccumulator()
	lateAmount := decimal.Zero
	lateMinutes := 0
	var totals payroll.AttendanceTotals

	for _, day := range days {
		r := day.Resolved
		fam := family{dayType: day.Classification.DayType, isRestDay: day.Classification.IsRestDay}
		date := r.Date

		fail := func(err error) (Earnings, error) {
			return Earnings{}, payroll.NewComputationError(r.EmployeeID, &date, err)
		}

		base, err := rules.Resolve(fam.key(false, false))
		if err != nil {
			return fail(err)
		}

		if r.WorkedSpan != nil || r.OTMinutes() > 0 {
			totals.DaysPresent++
		}
		totals.WorkedMinutes += r.WorkedMinutes
		totals.LateMinutes += r.LateMinutes
		totals.UndertimeMinutes += r.UndertimeMinutes
		totals.OTMinutes += r.OTMinutes()

		if r.WorkedMinutes > 0 {
			acc.add(bucketKey{category: payroll.CategoryBasicPay, family: fam}, r.WorkedMinutes, base, minuteRate)
		}

		if lum := r.LateUndertimeMinutes(); lum > 0 {
			multiplier := one
			if settings.LateDeductionRule == payroll.LateDeductionDayBaseMultiplier {
				multiplier = base
			}
			lateMinutes += lum
			lateAmount = lateAmount.Add(decimal.NewFromInt(int64(lum)).Mul(minuteRate).Mul(multiplier))
		}

		otMultiplier := decimal.Zero
		if ot := r.OTMinutes(); ot > 0 {
			otMultiplier, err = rules.Resolve(fam.key(true, false))
			if err != nil {
				return fail(err)
			}
			acc.add(bucketKey{category: otCategory(fam.dayType), family: fam, overtime: true}, ot, otMultiplier, minuteRate)
		}

		regularNight := 0
		if r.WorkedSpan != nil {
			regularNight = min(nightMinutes(*r.WorkedSpan, settings), r.WorkedMinutes)
		}
		otNight := 0
		for _, span := range r.OTSpans {
			otNight += nightMinutes(span, settings)
		}
		otNight = min(otNight, r.OTMinutes())

		if regularNight > 0 {
			nd, err := rules.Resolve(fam.key(false, true))
			if err != nil {
				return fail(err)
			}
			acc.add(bucketKey{category: payroll.CategoryNightDifferential, family: fam}, regularNight, nd.Sub(base), minuteRate)
		}
		if otNight > 0 {
			otND, err := rules.Resolve(fam.key(true, true))
			if err != nil {
				return fail(err)
			}
			acc.add(bucketKey{category: payroll.CategoryNightDifferential, family: fam, overtime: true}, otNight, otND.Sub(otMultiplier), minuteRate)
		}
		totals.NightMinutes += regularNight + otNight
	}

	displayRate := minuteRate.Round(4)
	lines := acc.lines(displayRate)

	lateAmount = lateAmount.Round(2)
	if lateMinutes > 0 {
		quantity := decimal.NewFromInt(int64(lateMinutes))
		line := payroll.PayslipLine{
			Kind:        payroll.LineKindDeduction,
			Category:    payroll.CategoryLateUndertime,
			Description: "Late and undertime",
			Quantity:    &quantity,
			Rate:        &displayRate,
			Amount:      lateAmount,
		}
		if settings.LateDeductionRule != payroll.LateDeductionDayBaseMultiplier {
			flat := one
			line.Multiplier = &flat
		}
		lines = append(lines, line)
	}

	return Earnings{Lines: lines, LateUndertime: lateAmount, Totals: totals}, nil
}

// nightMinutes returns how many minutes of span fall inside the night window.
func nightMinutes(span attendance.Span, settings payroll.EngineSettings) int {
	start, end := settings.NightStartMinute, settings.NightEndMinute
	if start == end {
		return 0
	}
	loc := settings.Location
	if loc == nil {
		loc = time.UTC
	}

	s := span.Start.In(loc)
	total := 0
	for day := time.Date(s.Year(), s.Month(), s.Day()-1, 0, 0, 0, 0, loc); day.Before(span.End); day = day.AddDate(0, 0, 1) {
		windowEnd := day
		if end < start {
			windowEnd = day.AddDate(0, 0, 1)
		}
		window := attendance.Span{
			Start: day.Add(time.Duration(start) * time.Minute),
			End:   windowEnd.Add(time.Duration(end) * time.Minute),
		}
		if overlap, ok := span.Intersect(window); ok {
			total += overlap.Minutes()
		}
	}
	return total
}
