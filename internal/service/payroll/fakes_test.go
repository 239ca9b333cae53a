package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func claimsContext(companyID, userID string) context.Context {
	token := jwt.New()
	_ = token.Set("company_id", companyID)
	_ = token.Set("user_id", userID)
	return jwtauth.NewContext(context.Background(), token, nil)
}

// ========== PAYROLL REPOSITORY ==========

type fakePayrollRepo struct {
	mu          sync.Mutex
	runs        map[string]payroll.PayrollRun
	payslips    map[string]payroll.Payslip
	issues      map[string][]payroll.RunIssue
	adjustments map[string][]payroll.ManualAdjustment
	ytd         map[string]*payroll.YearToDate
	seq         int
}

func newFakePayrollRepo() *fakePayrollRepo {
	return &fakePayrollRepo{
		runs:        make(map[string]payroll.PayrollRun),
		payslips:    make(map[string]payroll.Payslip),
		issues:      make(map[string][]payroll.RunIssue),
		adjustments: make(map[string][]payroll.ManualAdjustment),
		ytd:         make(map[string]*payroll.YearToDate),
	}
}

func slipKey(runID, employeeID string) string { return runID + "/" + employeeID }

func (r *fakePayrollRepo) CreateRun(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.runs {
		if existing.CompanyID == run.CompanyID && existing.Status != payroll.RunStatusCancelled &&
			existing.Period.Start.Equal(run.Period.Start) && existing.Period.End.Equal(run.Period.End) {
			return payroll.PayrollRun{}, payroll.ErrRunAlreadyExists
		}
	}
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	r.runs[run.ID] = run
	return run, nil
}

func (r *fakePayrollRepo) GetRunByID(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	return run, nil
}

func (r *fakePayrollRepo) ListRuns(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var runs []payroll.PayrollRun
	for _, run := range r.runs {
		if run.CompanyID == companyID {
			runs = append(runs, run)
		}
	}
	return runs, int64(len(runs)), nil
}

func (r *fakePayrollRepo) TransitionRun(ctx context.Context, id string, companyID string, from, to payroll.RunStatus, actorID *string) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	if run.Status != from {
		return payroll.PayrollRun{}, fmt.Errorf("%w: run is %s", payroll.ErrInvalidRunTransition, run.Status)
	}
	run.Status = to
	now := time.Now()
	switch to {
	case payroll.RunStatusApproved:
		run.ApprovedBy = actorID
		run.ApprovedAt = &now
	case payroll.RunStatusReleased:
		run.ReleasedAt = &now
	}
	run.UpdatedAt = now
	r.runs[id] = run
	return run, nil
}

func (r *fakePayrollRepo) UpdateRunProgress(ctx context.Context, id string, ruleSetVersion, statutoryVersion string, employeeCount, computedCount, failedCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.runs[id]
	run.RuleSetVersion = &ruleSetVersion
	run.StatutoryVersion = &statutoryVersion
	run.EmployeeCount = employeeCount
	run.ComputedCount = computedCount
	run.FailedCount = failedCount
	run.UpdatedAt = time.Now()
	r.runs[id] = run
	return nil
}

func (r *fakePayrollRepo) ListRunsInStatusSince(ctx context.Context, status payroll.RunStatus, updatedBefore time.Time) ([]payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var runs []payroll.PayrollRun
	for _, run := range r.runs {
		if run.Status == status && run.UpdatedAt.Before(updatedBefore) {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func (r *fakePayrollRepo) SavePayslip(ctx context.Context, payslip payroll.Payslip) (payroll.Payslip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs[payslip.RunID].Status.IsLocked() {
		return payroll.Payslip{}, payroll.ErrStaleConfiguration
	}
	key := slipKey(payslip.RunID, payslip.Result.EmployeeID)
	if existing, ok := r.payslips[key]; ok {
		payslip.ID = existing.ID
	} else {
		r.seq++
		payslip.ID = fmt.Sprintf("payslip-%d", r.seq)
	}
	r.payslips[key] = payslip
	return payslip, nil
}

func (r *fakePayrollRepo) DeletePayslip(ctx context.Context, runID string, employeeID string, companyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs[runID].Status.IsLocked() {
		return payroll.ErrStaleConfiguration
	}
	delete(r.payslips, slipKey(runID, employeeID))
	return nil
}

func (r *fakePayrollRepo) GetPayslip(ctx context.Context, runID string, employeeID string, companyID string) (payroll.Payslip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payslips[slipKey(runID, employeeID)]
	if !ok || p.CompanyID != companyID {
		return payroll.Payslip{}, payroll.ErrPayslipNotFound
	}
	return p, nil
}

func (r *fakePayrollRepo) ListPayslips(ctx context.Context, runID string, companyID string) ([]payroll.Payslip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []payroll.Payslip
	for _, p := range r.payslips {
		if p.RunID == runID && p.CompanyID == companyID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeCode < result[j].EmployeeCode })
	return result, nil
}

func (r *fakePayrollRepo) GetPriorYTD(ctx context.Context, companyID string, employeeID string, year int, before time.Time) (*payroll.YearToDate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ytd[employeeID], nil
}

func (r *fakePayrollRepo) ReplaceIssues(ctx context.Context, runID string, employeeID string, issues []payroll.RunIssue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []payroll.RunIssue
	for _, issue := range r.issues[runID] {
		if issue.EmployeeID != employeeID {
			kept = append(kept, issue)
		}
	}
	r.issues[runID] = append(kept, issues...)
	return nil
}

func (r *fakePayrollRepo) ListIssues(ctx context.Context, runID string) ([]payroll.RunIssue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]payroll.RunIssue(nil), r.issues[runID]...), nil
}

func (r *fakePayrollRepo) CountBlockingIssues(ctx context.Context, runID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, issue := range r.issues[runID] {
		if issue.Blocking {
			n++
		}
	}
	return n, nil
}

func (r *fakePayrollRepo) CreateAdjustment(ctx context.Context, adjustment payroll.ManualAdjustment) (payroll.ManualAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	adjustment.ID = fmt.Sprintf("adjustment-%d", r.seq)
	adjustment.CreatedAt = time.Now()
	r.adjustments[adjustment.RunID] = append(r.adjustments[adjustment.RunID], adjustment)
	return adjustment, nil
}

func (r *fakePayrollRepo) ListAdjustments(ctx context.Context, runID string) (map[string][]payroll.ManualAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[string][]payroll.ManualAdjustment)
	for _, adj := range r.adjustments[runID] {
		result[adj.EmployeeID] = append(result[adj.EmployeeID], adj)
	}
	return result, nil
}

// ========== CONFIGURATION REPOSITORY ==========

type fakeConfigRepo struct {
	rules  payroll.MultiplierRuleSet
	tables payroll.StatutoryTables
}

func (r *fakeConfigRepo) GetEffectiveRuleSet(ctx context.Context, asOf time.Time) (payroll.MultiplierRuleSet, error) {
	if r.rules.Version == "" {
		return payroll.MultiplierRuleSet{}, payroll.ErrConfigurationNotFound
	}
	return r.rules, nil
}

func (r *fakeConfigRepo) GetEffectiveStatutoryTables(ctx context.Context, asOf time.Time) (payroll.StatutoryTables, error) {
	if r.tables.Version == "" {
		return payroll.StatutoryTables{}, payroll.ErrConfigurationNotFound
	}
	return r.tables, nil
}

func (r *fakeConfigRepo) PublishRuleSet(ctx context.Context, set payroll.MultiplierRuleSet) error {
	r.rules = set
	return nil
}

func (r *fakeConfigRepo) PublishStatutoryTables(ctx context.Context, tables payroll.StatutoryTables) error {
	r.tables = tables
	return nil
}

// ========== DIRECTORY, ATTENDANCE AND CALENDAR ==========

type fakeEmployeeRepo struct {
	profiles []employee.WageProfile
}

func (r *fakeEmployeeRepo) ListWageProfiles(ctx context.Context, companyID string) ([]employee.WageProfile, error) {
	var result []employee.WageProfile
	for _, p := range r.profiles {
		if p.CompanyID == companyID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeEmployeeRepo) GetWageProfile(ctx context.Context, companyID string, employeeID string) (employee.WageProfile, error) {
	for _, p := range r.profiles {
		if p.CompanyID == companyID && p.EmployeeID == employeeID {
			return p, nil
		}
	}
	return employee.WageProfile{}, employee.ErrEmployeeNotFound
}

type fakeAttendanceRepo struct {
	days map[string][]attendance.AttendanceDay
}

func (r *fakeAttendanceRepo) ListDays(ctx context.Context, companyID string, employeeIDs []string, start, end time.Time) (map[string][]attendance.AttendanceDay, error) {
	result := make(map[string][]attendance.AttendanceDay)
	for _, id := range employeeIDs {
		if days, ok := r.days[id]; ok {
			result[id] = days
		}
	}
	return result, nil
}

type fakeCalendarRepo struct {
	events []calendar.CalendarEvent
}

func (r *fakeCalendarRepo) ListEvents(ctx context.Context, companyID string, start, end time.Time) ([]calendar.CalendarEvent, error) {
	return r.events, nil
}
