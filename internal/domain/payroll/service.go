package payroll

import (
	"context"
	"io"
	"time"
)

type PayrollService interface {
	// Runs
	CreateRun(ctx context.Context, req CreateRunRequest) (RunResponse, error)
	GetRun(ctx context.Context, id string) (RunResponse, error)
	ListRuns(ctx context.Context, filter RunFilter) (ListRunResponse, error)
	ComputeRun(ctx context.Context, id string) (RunResponse, error)
	StartComputeRun(ctx context.Context, id string) (RunResponse, error)
	RecomputeEmployee(ctx context.Context, runID string, employeeID string) (PayslipResponse, error)
	ApproveRun(ctx context.Context, id string) (RunResponse, error)
	ReleaseRun(ctx context.Context, id string) (RunResponse, error)
	CancelRun(ctx context.Context, id string) (RunResponse, error)
	ReopenRun(ctx context.Context, id string) (RunResponse, error)

	// Payslips
	ListPayslips(ctx context.Context, runID string) ([]PayslipResponse, error)
	GetPayslip(ctx context.Context, runID string, employeeID string) (PayslipResponse, error)
	ListIssues(ctx context.Context, runID string) ([]RunIssue, error)
	AddAdjustment(ctx context.Context, runID string, req CreateAdjustmentRequest) (AdjustmentResponse, error)
	PreviewPayslip(ctx context.Context, req PreviewPayslipRequest) (PayslipResult, error)

	// Configuration
	ValidateConfiguration(ctx context.Context, asOf time.Time) (ConfigurationCheckResponse, error)

	// Maintenance
	RecoverStaleRuns(ctx context.Context, staleAfter time.Duration) (int, error)
}

// ExportService renders finalized payslips for downstream collaborators.
type ExportService interface {
	WriteBankFile(ctx context.Context, runID string, w io.Writer) error
	WriteContributionReport(ctx context.Context, runID string, w io.Writer) error
	WritePayslipPDF(ctx context.Context, runID string, employeeID string, w io.Writer) error
}
