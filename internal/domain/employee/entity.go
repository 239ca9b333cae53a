package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type WageType string

const (
	WageTypeMonthly WageType = "MONTHLY"
	WageTypeDaily   WageType = "DAILY"
	WageTypeHourly  WageType = "HOURLY"
)

var WageTypeValues = []string{
	string(WageTypeMonthly),
	string(WageTypeDaily),
	string(WageTypeHourly),
}

// WageProfile is the pay configuration of one employee as supplied by the employee directory.
type WageProfile struct {
	EmployeeID   string
	CompanyID    string
	EmployeeCode string
	FullName     string

	WageType WageType
	BaseRate decimal.Decimal

	// RegularizationDate gates statutory contributions. Nil means not yet regular.
	RegularizationDate *time.Time

	// RestDays overrides the company's weekly rest days when non-empty.
	RestDays []time.Weekday

	BankName          string
	BankAccountNumber string
}

// IsRegularOn reports whether statutory contributions apply to a period paid on payDate.
func (p WageProfile) IsRegularOn(payDate time.Time) bool {
	if p.RegularizationDate == nil {
		return false
	}
	return payDate.Format("2006-01-02") >= p.RegularizationDate.Format("2006-01-02")
}
