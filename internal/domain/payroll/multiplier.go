package payroll

import (
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/shopspring/decimal"
)

// MultiplierKey is the exact-match key of a multiplier rule.
type MultiplierKey struct {
	DayType     calendar.DayType
	IsOvertime  bool
	IsNightDiff bool
	IsRestDay   bool
}

func (k MultiplierKey) String() string {
	return fmt.Sprintf("%s(ot=%t,nd=%t,rest=%t)", k.DayType, k.IsOvertime, k.IsNightDiff, k.IsRestDay)
}

// MultiplierRule maps one key to a pay multiplier.
type MultiplierRule struct {
	DayType     calendar.DayType `json:"day_type"`
	IsOvertime  bool             `json:"is_overtime"`
	IsNightDiff bool             `json:"is_night_diff"`
	IsRestDay   bool             `json:"is_rest_day"`
	Multiplier  decimal.Decimal  `json:"multiplier"`
	Priority    int              `json:"priority"`
}

func (r MultiplierRule) Key() MultiplierKey {
	return MultiplierKey{
		DayType:     r.DayType,
		IsOvertime:  r.IsOvertime,
		IsNightDiff: r.IsNightDiff,
		IsRestDay:   r.IsRestDay,
	}
}

// MultiplierRuleSet is an immutable, effective-dated version of the multiplier table.
type MultiplierRuleSet struct {
	Version       string           `json:"version"`
	EffectiveDate time.Time        `json:"effective_date"`
	Rules         []MultiplierRule `json:"rules"`
}

// dayFamily is one of the six legal day families a classification maps to.
type dayFamily struct {
	dayType   calendar.DayType
	isRestDay bool
}

var dayFamilies = []dayFamily{
	{calendar.DayTypeWorkday, false},
	{calendar.DayTypeRestDay, true},
	{calendar.DayTypeSpecialHoliday, false},
	{calendar.DayTypeSpecialHoliday, true},
	{calendar.DayTypeRegularHoliday, false},
	{calendar.DayTypeRegularHoliday, true},
}

// CanonicalMultiplierKeys lists the 24 keys every rule set must resolve.
func CanonicalMultiplierKeys() []MultiplierKey {
	keys := make([]MultiplierKey, 0, len(dayFamilies)*4)
	for _, f := range dayFamilies {
		for _, flags := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
			keys = append(keys, MultiplierKey{
				DayType:     f.dayType,
				IsOvertime:  flags[0],
				IsNightDiff: flags[1],
				IsRestDay:   f.isRestDay,
			})
		}
	}
	return keys
}
