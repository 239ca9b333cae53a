package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/fixtures"
	appJWT "github.com/cc-visionary/payroll-os-sub004/internal/pkg/jwt"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/sse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc        payroll.PayrollService
	repo       *fakePayrollRepo
	config     *fakeConfigRepo
	attendance *fakeAttendanceRepo
	employees  *fakeEmployeeRepo
	hub        *sse.Hub
	ctx        context.Context
}

func workWeek(employeeID string, shift *attendance.ShiftWindow) []attendance.AttendanceDay {
	var days []attendance.AttendanceDay
	for d := 3; d <= 7; d++ {
		day := date(2025, time.March, d)
		days = append(days, attendance.AttendanceDay{
			EmployeeID: employeeID, Date: day, ActualIn: at(day, 8, 0), ActualOut: at(day, 17, 0), Shift: shift,
		})
	}
	return days
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	profile := func(id, code string) employee.WageProfile {
		p := monthlyProfile()
		p.EmployeeID = id
		p.EmployeeCode = code
		return p
	}

	f := &serviceFixture{
		repo:   newFakePayrollRepo(),
		config: &fakeConfigRepo{rules: fixtures.DefaultMultiplierRuleSet(), tables: fixtures.DefaultStatutoryTables()},
		attendance: &fakeAttendanceRepo{days: map[string][]attendance.AttendanceDay{
			"emp-1": workWeek("emp-1", dayShift),
			"emp-2": workWeek("emp-2", nil),
			"emp-3": workWeek("emp-3", dayShift),
		}},
		hub: sse.NewHub(),
		ctx: claimsContext("company-1", "user-1"),
	}
	f.employees = &fakeEmployeeRepo{profiles: []employee.WageProfile{
		profile("emp-1", "E-001"),
		profile("emp-2", "E-002"),
		profile("emp-3", "E-003"),
	}}

	f.svc = f.serviceWith(f.repo)
	return f
}

func (f *serviceFixture) serviceWith(repo payroll.PayrollRepository) payroll.PayrollService {
	return NewPayrollService(nil, repo, f.config, f.employees, f.attendance, &fakeCalendarRepo{}, f.hub, testSettings(), 2)
}

// failingSaveRepo fails every payslip write of one employee.
type failingSaveRepo struct {
	*fakePayrollRepo
	employeeID string
}

func (r *failingSaveRepo) SavePayslip(ctx context.Context, payslip payroll.Payslip) (payroll.Payslip, error) {
	if payslip.Result.EmployeeID == r.employeeID {
		return payroll.Payslip{}, errors.New("connection reset by peer")
	}
	return r.fakePayrollRepo.SavePayslip(ctx, payslip)
}

func (f *serviceFixture) createRun(t *testing.T) payroll.RunResponse {
	t.Helper()
	run, err := f.svc.CreateRun(f.ctx, payroll.CreateRunRequest{
		PeriodStart: "2025-03-01",
		PeriodEnd:   "2025-03-15",
		PayDate:     "2025-03-15",
		Frequency:   "SEMI_MONTHLY",
	})
	require.NoError(t, err)
	return run
}

func TestPayrollService_CreateRun(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	run := f.createRun(t)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "DRAFT", run.Status)
	assert.Equal(t, "2025-03-01", run.PeriodStart)
	assert.Equal(t, "company-1", run.CompanyID)

	_, err := f.svc.CreateRun(f.ctx, payroll.CreateRunRequest{PeriodStart: "2025-03-01", PeriodEnd: "2025-03-15", PayDate: "2025-03-15", Frequency: "SEMI_MONTHLY"})
	assert.ErrorIs(t, err, payroll.ErrRunAlreadyExists)

	_, err = f.svc.CreateRun(f.ctx, payroll.CreateRunRequest{PeriodStart: "2025-03-15", PeriodEnd: "2025-03-01", PayDate: "2025-03-15", Frequency: "WEEKLY"})
	assert.Error(t, err)

	_, err = f.svc.GetRun(claimsContext("company-2", "user-9"), run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)
}

func TestPayrollService_ComputeRun(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	run := f.createRun(t)

	events, cleanup := f.hub.Subscribe(run.ID)
	defer cleanup()

	computed, err := f.svc.ComputeRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "REVIEW", computed.Status)
	assert.Equal(t, 3, computed.EmployeeCount)
	assert.Equal(t, 2, computed.ComputedCount)
	assert.Equal(t, 1, computed.FailedCount)
	require.NotNil(t, computed.RuleSetVersion)
	assert.Equal(t, fixtures.DefaultRuleSetVersion, *computed.RuleSetVersion)

	payslips, err := f.svc.ListPayslips(f.ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, payslips, 2)
	assert.Equal(t, "E-001", payslips[0].EmployeeCode)
	assert.True(t, payslips[0].NetPay.Equal(decimal.RequireFromString("6000")))

	issues, err := f.svc.ListIssues(f.ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "emp-2", issues[0].EmployeeID)
	assert.Equal(t, payroll.IssueMissingShiftWindow, issues[0].Kind)
	assert.True(t, issues[0].Blocking)

	var names []string
	for len(events) > 0 {
		names = append(names, (<-events).Event)
	}
	assert.Contains(t, names, "run.status")
	assert.Contains(t, names, "payslip.computed")
	assert.Contains(t, names, "payslip.failed")

	_, err = f.svc.ComputeRun(f.ctx, run.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidRunTransition)
}

func TestPayrollService_ComputeRunRefusesInvalidConfiguration(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	run := f.createRun(t)

	f.config.rules.Rules = f.config.rules.Rules[1:]

	_, err := f.svc.ComputeRun(f.ctx, run.ID)
	assert.ErrorIs(t, err, payroll.ErrUnresolvedMultiplier)

	current, err := f.svc.GetRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", current.Status)
}

func TestPayrollService_ReviewLifecycle(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	run := f.createRun(t)

	_, err := f.svc.ComputeRun(f.ctx, run.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveRun(f.ctx, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunHasBlockingIssues)

	_, err = f.svc.RecomputeEmployee(f.ctx, run.ID, "emp-2")
	assert.ErrorIs(t, err, payroll.ErrRunNotEditable)

	reopened, err := f.svc.ReopenRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", reopened.Status)

	f.attendance.days["emp-2"] = workWeek("emp-2", dayShift)
	payslip, err := f.svc.RecomputeEmployee(f.ctx, run.ID, "emp-2")
	require.NoError(t, err)
	assert.Equal(t, "E-002", payslip.EmployeeCode)

	issues, err := f.svc.ListIssues(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)

	_, err = f.svc.ComputeRun(f.ctx, run.ID)
	require.NoError(t, err)

	approved, err := f.svc.ApproveRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "user-1", *approved.ApprovedBy)

	before, err := f.svc.GetPayslip(f.ctx, run.ID, "emp-1")
	require.NoError(t, err)

	f.attendance.days["emp-1"] = nil
	_, err = f.svc.RecomputeEmployee(f.ctx, run.ID, "emp-1")
	assert.ErrorIs(t, err, payroll.ErrStaleConfiguration)

	released, err := f.svc.ReleaseRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "RELEASED", released.Status)

	_, err = f.svc.RecomputeEmployee(f.ctx, run.ID, "emp-1")
	assert.ErrorIs(t, err, payroll.ErrStaleConfiguration)

	after, err := f.svc.GetPayslip(f.ctx, run.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, before.Lines, after.Lines)
	assert.True(t, before.NetPay.Equal(after.NetPay))

	_, err = f.svc.CancelRun(f.ctx, run.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidRunTransition)
}

func TestPayrollService_CancelRun(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	run := f.createRun(t)

	cancelled, err := f.svc.CancelRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)

	_, err = f.svc.ComputeRun(f.ctx, run.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidRunTransition)
	_, err = f.svc.ApproveRun(f.ctx, run.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidRunTransition)
}

func TestPayrollService_StartComputeRun(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	run := f.createRun(t)

	started, err := f.svc.StartComputeRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPUTING", started.Status)

	require.Eventually(t, func() bool {
		current, err := f.svc.GetRun(f.ctx, run.ID)
		return err == nil && current.Status == "REVIEW"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPayrollService_AddAdjustment(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	run := f.createRun(t)

	adj, err := f.svc.AddAdjustment(f.ctx, run.ID, payroll.CreateAdjustmentRequest{
		EmployeeID: "emp-1", Kind: "EARNING", Description: "Rice allowance", Amount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, adj.ID)

	_, err = f.svc.AddAdjustment(f.ctx, run.ID, payroll.CreateAdjustmentRequest{
		EmployeeID: "emp-404", Kind: "EARNING", Description: "Bonus", Amount: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotInRun)

	_, err = f.svc.ComputeRun(f.ctx, run.ID)
	require.NoError(t, err)

	payslip, err := f.svc.GetPayslip(f.ctx, run.ID, "emp-1")
	require.NoError(t, err)
	assert.True(t, payslip.GrossPay.Equal(decimal.RequireFromString("7000")), payslip.GrossPay.String())

	_, err = f.svc.AddAdjustment(f.ctx, run.ID, payroll.CreateAdjustmentRequest{
		EmployeeID: "emp-1", Kind: "DEDUCTION", Description: "Late filing", Amount: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, payroll.ErrRunNotEditable)
}

func TestPayrollService_PreviewPayslip(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	in, out := "2025-03-04T08:30:00+08:00", "2025-03-04T17:00:00+08:00"
	result, err := f.svc.PreviewPayslip(f.ctx, payroll.PreviewPayslipRequest{
		Employee: payroll.PreviewEmployee{
			EmployeeID: "preview-1",
			WageType:   "MONTHLY",
			BaseRate:   decimal.NewFromInt(26400),
		},
		PeriodStart: "2025-03-01",
		PeriodEnd:   "2025-03-15",
		PayDate:     "2025-03-15",
		Frequency:   "SEMI_MONTHLY",
		Attendance: []payroll.PreviewAttendance{
			{Date: "2025-03-04", ActualIn: &in, ActualOut: &out, Shift: &payroll.PreviewShift{Start: "08:00", End: "17:00", BreakMinutes: 60}},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.GrossPay.Equal(decimal.RequireFromString("1125")), result.GrossPay.String())
	assert.True(t, result.NetPay.Equal(decimal.RequireFromString("1050")), result.NetPay.String())

	runs, err := f.svc.ListRuns(f.ctx, payroll.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs.Runs)
}

func TestPayrollService_ValidateConfiguration(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	check, err := f.svc.ValidateConfiguration(context.Background(), date(2025, time.June, 1))
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, fixtures.DefaultStatutoryVersion, check.StatutoryVersion)

	f.config.tables = payroll.StatutoryTables{}
	_, err = f.svc.ValidateConfiguration(context.Background(), date(2025, time.June, 1))
	assert.ErrorIs(t, err, payroll.ErrConfigurationNotFound)
}

func TestPayrollService_RecoverStaleRuns(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	run := f.createRun(t)

	f.repo.mu.Lock()
	stale := f.repo.runs[run.ID]
	stale.Status = payroll.RunStatusComputing
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	f.repo.runs[run.ID] = stale
	f.repo.mu.Unlock()

	recovered, err := f.svc.RecoverStaleRuns(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	current, err := f.svc.GetRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", current.Status)

	recovered, err = f.svc.RecoverStaleRuns(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, recovered)
}

func TestPayrollService_PersistenceFailureBlocksApproval(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.attendance.days["emp-2"] = workWeek("emp-2", dayShift)
	f.svc = f.serviceWith(&failingSaveRepo{fakePayrollRepo: f.repo, employeeID: "emp-3"})
	run := f.createRun(t)

	computed, err := f.svc.ComputeRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "REVIEW", computed.Status)
	assert.Equal(t, 1, computed.FailedCount)

	issues, err := f.svc.ListIssues(f.ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "emp-3", issues[0].EmployeeID)
	assert.Equal(t, payroll.IssueInternal, issues[0].Kind)
	assert.True(t, issues[0].Blocking)

	_, err = f.svc.ApproveRun(f.ctx, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunHasBlockingIssues)
}

func TestPayrollService_ApproveRefusesIncompleteRun(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.attendance.days["emp-2"] = workWeek("emp-2", dayShift)
	run := f.createRun(t)

	_, err := f.svc.ComputeRun(f.ctx, run.ID)
	require.NoError(t, err)

	// A failure whose issue could not be stored still shows in the counters.
	require.NoError(t, f.repo.UpdateRunProgress(f.ctx, run.ID, "rules", "tables", 3, 2, 1))

	_, err = f.svc.ApproveRun(f.ctx, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunHasBlockingIssues)
}

func TestPayrollService_FailedRecomputeKeepsFinalizedPayslip(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.attendance.days["emp-2"] = workWeek("emp-2", dayShift)
	run := f.createRun(t)

	_, err := f.svc.ComputeRun(f.ctx, run.ID)
	require.NoError(t, err)
	_, err = f.svc.ApproveRun(f.ctx, run.ID)
	require.NoError(t, err)

	// The run was approved after the recompute passed its status check.
	current, err := f.repo.GetRunByID(f.ctx, run.ID, "company-1")
	require.NoError(t, err)
	impl := f.svc.(*PayrollServiceImpl)
	engine := newTestEngine(t, testSettings())
	profile := monthlyProfile()
	profile.EmployeeID = "emp-1"
	_, err = impl.computeEmployee(f.ctx, current, engine, payroll.ComputeInput{
		Profile: profile,
		Period:  current.Period,
		Days:    workWeek("emp-1", nil),
	})
	assert.ErrorIs(t, err, payroll.ErrStaleConfiguration)

	_, err = f.svc.GetPayslip(f.ctx, run.ID, "emp-1")
	require.NoError(t, err)
	issues, err := f.svc.ListIssues(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestPayrollService_RequiresCompanyClaim(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	_, err := f.svc.GetRun(claimsContext("", "user-1"), "run-1")
	assert.ErrorIs(t, err, appJWT.ErrMissingCompany)
}

// progressCountingRepo counts run progress writes.
type progressCountingRepo struct {
	*fakePayrollRepo
	updates atomic.Int64
}

func (r *progressCountingRepo) UpdateRunProgress(ctx context.Context, id string, ruleSetVersion, statutoryVersion string, employeeCount, computedCount, failedCount int) error {
	r.updates.Add(1)
	return r.fakePayrollRepo.UpdateRunProgress(ctx, id, ruleSetVersion, statutoryVersion, employeeCount, computedCount, failedCount)
}

func TestPayrollService_ProgressIsReportedOncePerBatch(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.employees.profiles = nil
	for i := 1; i <= 2*progressEvery; i++ {
		p := monthlyProfile()
		p.EmployeeID = fmt.Sprintf("bulk-%d", i)
		p.EmployeeCode = fmt.Sprintf("B-%03d", i)
		f.employees.profiles = append(f.employees.profiles, p)
	}
	repo := &progressCountingRepo{fakePayrollRepo: f.repo}
	f.svc = f.serviceWith(repo)
	run := f.createRun(t)

	computed, err := f.svc.ComputeRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*progressEvery, computed.ComputedCount)

	// Start, one per batch, and the final tally.
	assert.Equal(t, int64(4), repo.updates.Load())
}
