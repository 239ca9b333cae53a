package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
)

var (
	ErrUnresolvedMultiplier    = errors.New("no multiplier rule matches key")
	ErrDuplicateMultiplierRule = errors.New("duplicate multiplier rule key")
	ErrInvalidMultiplierRule   = errors.New("invalid multiplier rule")
	ErrBracketLookupFailure    = errors.New("income falls outside every bracket")
	ErrInvalidStatutoryTable   = errors.New("invalid statutory table")
	ErrNegativeNetPay          = errors.New("net pay is below the allowed minimum")
	ErrStaleConfiguration      = errors.New("payslips of an approved or released run cannot be recomputed")
	ErrInvalidEngineSettings   = errors.New("invalid payroll engine settings")

	ErrRunNotFound           = errors.New("payroll run not found")
	ErrRunAlreadyExists      = errors.New("payroll run already exists for this period")
	ErrInvalidRunTransition  = errors.New("invalid payroll run status transition")
	ErrRunNotEditable        = errors.New("payroll run does not accept changes in its current status")
	ErrRunHasBlockingIssues  = errors.New("payroll run has unresolved employee errors")
	ErrRunNotFinalized       = errors.New("payroll run is not approved or released")
	ErrPayslipNotFound       = errors.New("payslip not found")
	ErrConfigurationNotFound = errors.New("no effective payroll configuration")
	ErrConfigurationExists   = errors.New("configuration version already published")
	ErrInvalidPeriod         = errors.New("invalid payroll period")
	ErrInvalidAdjustment     = errors.New("invalid manual adjustment")
	ErrEmployeeNotInRun      = errors.New("employee is not part of this payroll run")
)

// ComputationError is a per-employee failure. It unwraps to the sentinel that caused it.
type ComputationError struct {
	EmployeeID string
	Date       *time.Time
	Kind       IssueKind
	Detail     string
	Err        error
}

func (e *ComputationError) Error() string {
	if e.Date != nil {
		return fmt.Sprintf("employee %s on %s: %s", e.EmployeeID, e.Date.Format("2006-01-02"), e.Detail)
	}
	return fmt.Sprintf("employee %s: %s", e.EmployeeID, e.Detail)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// Issue converts the error into a blocking run issue.
func (e *ComputationError) Issue() RunIssue {
	return RunIssue{
		EmployeeID: e.EmployeeID,
		Date:       e.Date,
		Kind:       e.Kind,
		Detail:     e.Detail,
		Blocking:   true,
	}
}

// NewComputationError wraps err with the employee and date it occurred on.
func NewComputationError(employeeID string, date *time.Time, err error) *ComputationError {
	var ce *ComputationError
	if errors.As(err, &ce) {
		return ce
	}
	return &ComputationError{
		EmployeeID: employeeID,
		Date:       date,
		Kind:       IssueKindOf(err),
		Detail:     err.Error(),
		Err:        err,
	}
}

// IssueKindOf classifies an error by the sentinel it wraps.
func IssueKindOf(err error) IssueKind {
	switch {
	case errors.Is(err, attendance.ErrMissingShiftWindow):
		return IssueMissingShiftWindow
	case errors.Is(err, attendance.ErrInvalidShiftWindow):
		return IssueInvalidShiftWindow
	case errors.Is(err, attendance.ErrInvalidTimeLog):
		return IssueInvalidTimeLog
	case errors.Is(err, calendar.ErrDuplicateCalendarEvent), errors.Is(err, calendar.ErrInvalidCalendarEvent):
		return IssueInvalidCalendar
	case errors.Is(err, ErrUnresolvedMultiplier):
		return IssueUnresolvedMultiplier
	case errors.Is(err, ErrBracketLookupFailure), errors.Is(err, ErrInvalidStatutoryTable):
		return IssueBracketLookupFailure
	case errors.Is(err, ErrNegativeNetPay):
		return IssueNegativeNetPay
	case errors.Is(err, employee.ErrInvalidWageType), errors.Is(err, employee.ErrInvalidBaseRate):
		return IssueInvalidWageProfile
	case errors.Is(err, ErrInvalidEngineSettings):
		return IssueInvalidSettings
	default:
		return IssueInternal
	}
}
