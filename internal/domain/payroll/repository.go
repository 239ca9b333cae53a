package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll runs.
// All methods include companyID parameter to prevent cross-company data access attacks.
type PayrollRepository interface {
	// Runs
	CreateRun(ctx context.Context, run PayrollRun) (PayrollRun, error)
	GetRunByID(ctx context.Context, id string, companyID string) (PayrollRun, error)
	ListRuns(ctx context.Context, companyID string, filter RunFilter) ([]PayrollRun, int64, error)
	// TransitionRun moves a run from one status to another atomically.
	// It returns ErrInvalidRunTransition when the run is no longer in from.
	TransitionRun(ctx context.Context, id string, companyID string, from, to RunStatus, actorID *string) (PayrollRun, error)
	UpdateRunProgress(ctx context.Context, id string, ruleSetVersion, statutoryVersion string, employeeCount, computedCount, failedCount int) error
	ListRunsInStatusSince(ctx context.Context, status RunStatus, updatedBefore time.Time) ([]PayrollRun, error)

	// Payslips
	// SavePayslip replaces the employee's payslip in the run. It returns
	// ErrStaleConfiguration when the run is approved or released.
	SavePayslip(ctx context.Context, payslip Payslip) (Payslip, error)
	DeletePayslip(ctx context.Context, runID string, employeeID string, companyID string) error
	GetPayslip(ctx context.Context, runID string, employeeID string, companyID string) (Payslip, error)
	ListPayslips(ctx context.Context, runID string, companyID string) ([]Payslip, error)
	// GetPriorYTD returns the year-to-date totals of the employee's latest finalized
	// payslip in year whose period ended before the given date, or nil.
	GetPriorYTD(ctx context.Context, companyID string, employeeID string, year int, before time.Time) (*YearToDate, error)

	// Issues
	ReplaceIssues(ctx context.Context, runID string, employeeID string, issues []RunIssue) error
	ListIssues(ctx context.Context, runID string) ([]RunIssue, error)
	CountBlockingIssues(ctx context.Context, runID string) (int, error)

	// Adjustments
	CreateAdjustment(ctx context.Context, adjustment ManualAdjustment) (ManualAdjustment, error)
	ListAdjustments(ctx context.Context, runID string) (map[string][]ManualAdjustment, error)
}

// ConfigurationRepository stores published, effective-dated configuration versions.
type ConfigurationRepository interface {
	GetEffectiveRuleSet(ctx context.Context, asOf time.Time) (MultiplierRuleSet, error)
	GetEffectiveStatutoryTables(ctx context.Context, asOf time.Time) (StatutoryTables, error)
	PublishRuleSet(ctx context.Context, set MultiplierRuleSet) error
	PublishStatutoryTables(ctx context.Context, tables StatutoryTables) error
}
