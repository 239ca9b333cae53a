package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/attendance"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/calendar"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/database"
	appJWT "github.com/cc-visionary/payroll-os-sub004/internal/pkg/jwt"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/sse"
	"github.com/cc-visionary/payroll-os-sub004/internal/repository/postgresql"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const progressEvery = 25

type PayrollServiceImpl struct {
	db             *database.DB
	payrollRepo    payroll.PayrollRepository
	configRepo     payroll.ConfigurationRepository
	employeeRepo   employee.EmployeeRepository
	attendanceRepo attendance.AttendanceRepository
	calendarRepo   calendar.CalendarRepository
	hub            *sse.Hub
	settings       payroll.EngineSettings
	workers        int

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewPayrollService(
	db *database.DB,
	payrollRepo payroll.PayrollRepository,
	configRepo payroll.ConfigurationRepository,
	employeeRepo employee.EmployeeRepository,
	attendanceRepo attendance.AttendanceRepository,
	calendarRepo calendar.CalendarRepository,
	hub *sse.Hub,
	settings payroll.EngineSettings,
	workers int,
) payroll.PayrollService {
	if workers < 1 {
		workers = 1
	}
	return &PayrollServiceImpl{
		db:             db,
		payrollRepo:    payrollRepo,
		configRepo:     configRepo,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		calendarRepo:   calendarRepo,
		hub:            hub,
		settings:       settings,
		workers:        workers,
		running:        make(map[string]context.CancelFunc),
	}
}

// Helper to get company_id and user_id from JWT context
func getClaimsFromContext(ctx context.Context) (companyID, userID string, err error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", appJWT.ErrInvalidToken, err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", "", appJWT.ErrMissingCompany
	}

	userID, _ = claims["user_id"].(string)

	return companyID, userID, nil
}

// withTransaction runs fn inside a database transaction carried by the context.
// Without a database (tests) fn runs directly.
func (s *PayrollServiceImpl) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}
	return postgresql.WithTransaction(ctx, s.db, fn)
}

func (s *PayrollServiceImpl) publish(runID, event string, data interface{}) {
	s.hub.Publish(runID, sse.Event{Event: event, Data: data})
}

// loadEngine builds an engine from the configuration in effect on asOf.
func (s *PayrollServiceImpl) loadEngine(ctx context.Context, asOf time.Time) (*Engine, error) {
	rules, err := s.configRepo.GetEffectiveRuleSet(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load multiplier rule set: %w", err)
	}
	tables, err := s.configRepo.GetEffectiveStatutoryTables(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load statutory tables: %w", err)
	}
	return NewEngine(s.settings, rules, tables)
}

// ========== RUNS ==========

func (s *PayrollServiceImpl) CreateRun(ctx context.Context, req payroll.CreateRunRequest) (payroll.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResponse{}, err
	}

	companyID, userID, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("generate run id: %w", err)
	}

	run := payroll.PayrollRun{
		ID:        id.String(),
		CompanyID: companyID,
		Period:    s.periodInLocation(req.Period()),
		Status:    payroll.RunStatusDraft,
	}
	if userID != "" {
		run.CreatedBy = &userID
	}

	created, err := s.payrollRepo.CreateRun(ctx, run)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	return toRunResponse(created), nil
}

func (s *PayrollServiceImpl) GetRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, id, companyID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	return toRunResponse(run), nil
}

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, filter payroll.RunFilter) (payroll.ListRunResponse, error) {
	if err := filter.Validate(); err != nil {
		return payroll.ListRunResponse{}, err
	}

	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ListRunResponse{}, err
	}

	runs, total, err := s.payrollRepo.ListRuns(ctx, companyID, filter)
	if err != nil {
		return payroll.ListRunResponse{}, err
	}

	result := payroll.ListRunResponse{
		Runs:       make([]payroll.RunResponse, 0, len(runs)),
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	for _, run := range runs {
		result.Runs = append(result.Runs, toRunResponse(run))
	}
	return result, nil
}

// ComputeRun computes every employee of a DRAFT run and moves it to REVIEW.
// Per-employee failures are recorded as run issues and never abort the run.
func (s *PayrollServiceImpl) ComputeRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	run, engine, err := s.beginCompute(ctx, id)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	return s.executeRun(ctx, run, engine)
}

// StartComputeRun moves the run to COMPUTING and computes it in the background.
func (s *PayrollServiceImpl) StartComputeRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	run, engine, err := s.beginCompute(ctx, id)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.executeRun(bg, run, engine); err != nil {
			slog.Error("payroll run failed", "run_id", run.ID, "error", err)
		}
	}()

	return toRunResponse(run), nil
}

func (s *PayrollServiceImpl) beginCompute(ctx context.Context, id string) (payroll.PayrollRun, *Engine, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollRun{}, nil, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, id, companyID)
	if err != nil {
		return payroll.PayrollRun{}, nil, err
	}
	if run.Status != payroll.RunStatusDraft {
		return payroll.PayrollRun{}, nil, fmt.Errorf("%w: %s -> %s", payroll.ErrInvalidRunTransition, run.Status, payroll.RunStatusComputing)
	}

	// Refuse to start on a configuration that fails its self-check.
	engine, err := s.loadEngine(ctx, run.Period.End)
	if err != nil {
		return payroll.PayrollRun{}, nil, err
	}

	run, err = s.payrollRepo.TransitionRun(ctx, run.ID, companyID, payroll.RunStatusDraft, payroll.RunStatusComputing, nil)
	if err != nil {
		return payroll.PayrollRun{}, nil, err
	}
	s.publish(run.ID, "run.status", toRunResponse(run))

	return run, engine, nil
}

func (s *PayrollServiceImpl) executeRun(ctx context.Context, run payroll.PayrollRun, engine *Engine) (payroll.RunResponse, error) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.running[run.ID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, run.ID)
		s.mu.Unlock()
		cancel()
	}()

	ref, err := s.loadReferenceData(ctx, run)
	if err != nil {
		slog.Error("failed to load payroll reference data", "run_id", run.ID, "error", err)
		if _, rbErr := s.payrollRepo.TransitionRun(ctx, run.ID, run.CompanyID, payroll.RunStatusComputing, payroll.RunStatusDraft, nil); rbErr != nil {
			slog.Error("failed to return run to draft", "run_id", run.ID, "error", rbErr)
		}
		return payroll.RunResponse{}, err
	}

	ruleSetVersion, statutoryVersion := engine.RuleSetVersion(), engine.StatutoryVersion()
	employeeCount := len(ref.profiles)
	if err := s.payrollRepo.UpdateRunProgress(ctx, run.ID, ruleSetVersion, statutoryVersion, employeeCount, 0, 0); err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("computing payroll run", "run_id", run.ID, "employees", employeeCount, "workers", s.workers)

	// In-flight employees finish and persist even after cancellation.
	persistCtx := context.WithoutCancel(ctx)
	var computed, failed, done atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, profile := range ref.profiles {
		if runCtx.Err() != nil {
			break
		}
		profile := profile
		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			input := payroll.ComputeInput{
				Profile:     profile,
				Period:      run.Period,
				Days:        ref.days[profile.EmployeeID],
				Events:      ref.events,
				Adjustments: ref.adjustments[profile.EmployeeID],
			}
			if _, err := s.computeEmployee(persistCtx, run, engine, input); err != nil {
				failed.Add(1)
			} else {
				computed.Add(1)
			}
			if n := done.Add(1); n%progressEvery == 0 {
				if err := s.payrollRepo.UpdateRunProgress(persistCtx, run.ID, ruleSetVersion, statutoryVersion, employeeCount, int(computed.Load()), int(failed.Load())); err != nil {
					slog.Warn("failed to update run progress", "run_id", run.ID, "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := s.payrollRepo.UpdateRunProgress(persistCtx, run.ID, ruleSetVersion, statutoryVersion, employeeCount, int(computed.Load()), int(failed.Load())); err != nil {
		return payroll.RunResponse{}, err
	}

	if runCtx.Err() != nil {
		slog.Info("payroll run cancelled", "run_id", run.ID, "computed", computed.Load(), "failed", failed.Load())
		current, err := s.payrollRepo.GetRunByID(persistCtx, run.ID, run.CompanyID)
		if err != nil {
			return payroll.RunResponse{}, err
		}
		return toRunResponse(current), nil
	}

	updated, err := s.payrollRepo.TransitionRun(persistCtx, run.ID, run.CompanyID, payroll.RunStatusComputing, payroll.RunStatusReview, nil)
	if errors.Is(err, payroll.ErrInvalidRunTransition) {
		// Cancelled after the last employee finished
		updated, err = s.payrollRepo.GetRunByID(persistCtx, run.ID, run.CompanyID)
	}
	if err != nil {
		return payroll.RunResponse{}, err
	}
	slog.Info("payroll run computed", "run_id", run.ID, "computed", computed.Load(), "failed", failed.Load())
	s.publish(run.ID, "run.status", toRunResponse(updated))

	return toRunResponse(updated), nil
}

type referenceData struct {
	profiles    []employee.WageProfile
	days        map[string][]attendance.AttendanceDay
	events      []calendar.CalendarEvent
	adjustments map[string][]payroll.ManualAdjustment
}

// loadReferenceData reads everything a run needs once. Workers share it read-only.
func (s *PayrollServiceImpl) loadReferenceData(ctx context.Context, run payroll.PayrollRun) (referenceData, error) {
	var ref referenceData

	profiles, err := s.employeeRepo.ListWageProfiles(ctx, run.CompanyID)
	if err != nil {
		return ref, fmt.Errorf("list wage profiles: %w", err)
	}
	ref.profiles = profiles

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.EmployeeID)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		days, err := s.attendanceRepo.ListDays(gCtx, run.CompanyID, ids, run.Period.Start, run.Period.End)
		if err != nil {
			return fmt.Errorf("list attendance: %w", err)
		}
		ref.days = days
		return nil
	})
	g.Go(func() error {
		events, err := s.calendarRepo.ListEvents(gCtx, run.CompanyID, run.Period.Start, run.Period.End)
		if err != nil {
			return fmt.Errorf("list calendar events: %w", err)
		}
		ref.events = events
		return nil
	})
	g.Go(func() error {
		adjustments, err := s.payrollRepo.ListAdjustments(gCtx, run.ID)
		if err != nil {
			return fmt.Errorf("list adjustments: %w", err)
		}
		ref.adjustments = adjustments
		return nil
	})
	if err := g.Wait(); err != nil {
		return referenceData{}, err
	}

	return ref, nil
}

// computeEmployee computes and persists one payslip. A computation or persistence
// failure removes any previous payslip of the employee and records a blocking issue
// instead. Payslips of finalized runs are left untouched.
func (s *PayrollServiceImpl) computeEmployee(ctx context.Context, run payroll.PayrollRun, engine *Engine, input payroll.ComputeInput) (payroll.Payslip, error) {
	employeeID := input.Profile.EmployeeID

	ytd, err := s.payrollRepo.GetPriorYTD(ctx, run.CompanyID, employeeID, run.Period.PayDate.Year(), run.Period.Start)
	if err == nil {
		input.PriorYTD = ytd
		var result payroll.PayslipResult
		result, err = engine.ComputePayslip(input)
		if err == nil {
			saved, saveErr := s.savePayslip(ctx, run, input.Profile, result)
			if saveErr == nil || errors.Is(saveErr, payroll.ErrStaleConfiguration) {
				return saved, saveErr
			}
			err = fmt.Errorf("save payslip: %w", saveErr)
		}
	}

	ce := payroll.NewComputationError(employeeID, nil, err)
	issue := ce.Issue()
	issue.RunID = run.ID

	slog.Warn("payslip computation failed", "run_id", run.ID, "employee_id", employeeID, "kind", ce.Kind, "error", ce.Detail)

	if txErr := s.withTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payrollRepo.DeletePayslip(txCtx, run.ID, employeeID, run.CompanyID); err != nil {
			return err
		}
		return s.payrollRepo.ReplaceIssues(txCtx, run.ID, employeeID, []payroll.RunIssue{issue})
	}); txErr != nil {
		if errors.Is(txErr, payroll.ErrStaleConfiguration) {
			return payroll.Payslip{}, txErr
		}
		slog.Error("failed to record payslip issue", "run_id", run.ID, "employee_id", employeeID, "error", txErr)
	}

	s.publish(run.ID, "payslip.failed", issue)
	return payroll.Payslip{}, ce
}

func (s *PayrollServiceImpl) savePayslip(ctx context.Context, run payroll.PayrollRun, profile employee.WageProfile, result payroll.PayslipResult) (payroll.Payslip, error) {
	payslip := payroll.Payslip{
		RunID:             run.ID,
		CompanyID:         run.CompanyID,
		EmployeeCode:      profile.EmployeeCode,
		FullName:          profile.FullName,
		BankName:          profile.BankName,
		BankAccountNumber: profile.BankAccountNumber,
		Result:            result,
	}

	warnings := make([]payroll.RunIssue, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		w.RunID = run.ID
		warnings = append(warnings, w)
	}

	var saved payroll.Payslip
	err := s.withTransaction(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.payrollRepo.SavePayslip(txCtx, payslip)
		if err != nil {
			return err
		}
		return s.payrollRepo.ReplaceIssues(txCtx, run.ID, profile.EmployeeID, warnings)
	})
	if err != nil {
		if !errors.Is(err, payroll.ErrStaleConfiguration) {
			slog.Error("failed to persist payslip", "run_id", run.ID, "employee_id", profile.EmployeeID, "error", err)
		}
		return payroll.Payslip{}, err
	}

	s.publish(run.ID, "payslip.computed", map[string]interface{}{
		"employee_id": profile.EmployeeID,
		"net_pay":     result.NetPay,
	})
	return saved, nil
}

// RecomputeEmployee recomputes a single payslip of a run that is still open.
func (s *PayrollServiceImpl) RecomputeEmployee(ctx context.Context, runID string, employeeID string) (payroll.PayslipResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, runID, companyID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	if run.Status.IsLocked() {
		return payroll.PayslipResponse{}, fmt.Errorf("%w: run %s is %s", payroll.ErrStaleConfiguration, run.ID, run.Status)
	}
	if !run.Status.AllowsRecompute() {
		return payroll.PayslipResponse{}, fmt.Errorf("%w: run %s is %s", payroll.ErrRunNotEditable, run.ID, run.Status)
	}

	engine, err := s.loadEngine(ctx, run.Period.End)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	profile, err := s.employeeRepo.GetWageProfile(ctx, companyID, employeeID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	days, err := s.attendanceRepo.ListDays(ctx, companyID, []string{employeeID}, run.Period.Start, run.Period.End)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	events, err := s.calendarRepo.ListEvents(ctx, companyID, run.Period.Start, run.Period.End)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	adjustments, err := s.payrollRepo.ListAdjustments(ctx, run.ID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	payslip, err := s.computeEmployee(ctx, run, engine, payroll.ComputeInput{
		Profile:     profile,
		Period:      run.Period,
		Days:        days[employeeID],
		Events:      events,
		Adjustments: adjustments[employeeID],
	})
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	return toPayslipResponse(payslip), nil
}

func (s *PayrollServiceImpl) ApproveRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, id, companyID)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	if run.Status == payroll.RunStatusReview {
		blocking, err := s.payrollRepo.CountBlockingIssues(ctx, run.ID)
		if err != nil {
			return payroll.RunResponse{}, err
		}
		if blocking > 0 {
			return payroll.RunResponse{}, fmt.Errorf("%w: %d employee(s) failed", payroll.ErrRunHasBlockingIssues, blocking)
		}
		// Covers employees whose failure could not be recorded as an issue.
		if run.FailedCount > 0 || run.ComputedCount < run.EmployeeCount {
			return payroll.RunResponse{}, fmt.Errorf("%w: %d of %d employee(s) computed", payroll.ErrRunHasBlockingIssues, run.ComputedCount, run.EmployeeCount)
		}
	}

	return s.transition(ctx, run, payroll.RunStatusApproved)
}

func (s *PayrollServiceImpl) ReleaseRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	return s.transitionByID(ctx, id, payroll.RunStatusReleased)
}

func (s *PayrollServiceImpl) ReopenRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	return s.transitionByID(ctx, id, payroll.RunStatusDraft)
}

// CancelRun cancels a run. A computing run stops issuing new employees; those
// already in flight finish and persist whole payslips.
func (s *PayrollServiceImpl) CancelRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, id, companyID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	resp, err := s.transition(ctx, run, payroll.RunStatusCancelled)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.mu.Lock()
	if cancel, ok := s.running[run.ID]; ok {
		cancel()
	}
	s.mu.Unlock()

	return resp, nil
}

func (s *PayrollServiceImpl) transitionByID(ctx context.Context, id string, to payroll.RunStatus) (payroll.RunResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, id, companyID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	return s.transition(ctx, run, to)
}

func (s *PayrollServiceImpl) transition(ctx context.Context, run payroll.PayrollRun, to payroll.RunStatus) (payroll.RunResponse, error) {
	if !payroll.CanTransition(run.Status, to) {
		return payroll.RunResponse{}, fmt.Errorf("%w: %s -> %s", payroll.ErrInvalidRunTransition, run.Status, to)
	}

	_, userID, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	var actor *string
	if userID != "" {
		actor = &userID
	}

	updated, err := s.payrollRepo.TransitionRun(ctx, run.ID, run.CompanyID, run.Status, to, actor)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("payroll run transitioned", "run_id", run.ID, "from", run.Status, "to", to)
	s.publish(run.ID, "run.status", toRunResponse(updated))

	return toRunResponse(updated), nil
}

// ========== PAYSLIPS ==========

func (s *PayrollServiceImpl) ListPayslips(ctx context.Context, runID string) ([]payroll.PayslipResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	payslips, err := s.payrollRepo.ListPayslips(ctx, runID, companyID)
	if err != nil {
		return nil, err
	}

	result := make([]payroll.PayslipResponse, 0, len(payslips))
	for _, p := range payslips {
		result = append(result, toPayslipResponse(p))
	}
	return result, nil
}

func (s *PayrollServiceImpl) GetPayslip(ctx context.Context, runID string, employeeID string) (payroll.PayslipResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	payslip, err := s.payrollRepo.GetPayslip(ctx, runID, employeeID, companyID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	return toPayslipResponse(payslip), nil
}

func (s *PayrollServiceImpl) ListIssues(ctx context.Context, runID string) ([]payroll.RunIssue, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	// Scope check, issues carry no company
	if _, err := s.payrollRepo.GetRunByID(ctx, runID, companyID); err != nil {
		return nil, err
	}

	issues, err := s.payrollRepo.ListIssues(ctx, runID)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []payroll.RunIssue{}
	}
	return issues, nil
}

func (s *PayrollServiceImpl) AddAdjustment(ctx context.Context, runID string, req payroll.CreateAdjustmentRequest) (payroll.AdjustmentResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.AdjustmentResponse{}, err
	}

	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.AdjustmentResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, runID, companyID)
	if err != nil {
		return payroll.AdjustmentResponse{}, err
	}
	if run.Status != payroll.RunStatusDraft {
		return payroll.AdjustmentResponse{}, fmt.Errorf("%w: run %s is %s", payroll.ErrRunNotEditable, run.ID, run.Status)
	}

	if _, err := s.employeeRepo.GetWageProfile(ctx, companyID, req.EmployeeID); err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return payroll.AdjustmentResponse{}, payroll.ErrEmployeeNotInRun
		}
		return payroll.AdjustmentResponse{}, err
	}

	created, err := s.payrollRepo.CreateAdjustment(ctx, payroll.ManualAdjustment{
		RunID:       run.ID,
		EmployeeID:  req.EmployeeID,
		Kind:        payroll.LineKind(req.Kind),
		Description: req.Description,
		Amount:      req.Amount,
		Taxable:     req.Taxable,
	})
	if err != nil {
		return payroll.AdjustmentResponse{}, err
	}

	return payroll.AdjustmentResponse{
		ID:          created.ID,
		RunID:       created.RunID,
		EmployeeID:  created.EmployeeID,
		Kind:        string(created.Kind),
		Description: created.Description,
		Amount:      created.Amount,
		Taxable:     created.Taxable,
		CreatedAt:   created.CreatedAt,
	}, nil
}

// PreviewPayslip computes a payslip from request-supplied inputs without persisting anything.
func (s *PayrollServiceImpl) PreviewPayslip(ctx context.Context, req payroll.PreviewPayslipRequest) (payroll.PayslipResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayslipResult{}, err
	}

	input := req.ToComputeInput(s.location())
	engine, err := s.loadEngine(ctx, input.Period.End)
	if err != nil {
		return payroll.PayslipResult{}, err
	}

	return engine.ComputePayslip(input)
}

// ========== CONFIGURATION ==========

func (s *PayrollServiceImpl) ValidateConfiguration(ctx context.Context, asOf time.Time) (payroll.ConfigurationCheckResponse, error) {
	engine, err := s.loadEngine(ctx, asOf)
	if err != nil {
		return payroll.ConfigurationCheckResponse{}, err
	}

	return payroll.ConfigurationCheckResponse{
		AsOf:             asOf.Format("2006-01-02"),
		RuleSetVersion:   engine.RuleSetVersion(),
		StatutoryVersion: engine.StatutoryVersion(),
		Valid:            true,
	}, nil
}

// ========== MAINTENANCE ==========

// RecoverStaleRuns returns runs stuck in COMPUTING without a live worker in this
// process to DRAFT so they can be computed again.
func (s *PayrollServiceImpl) RecoverStaleRuns(ctx context.Context, staleAfter time.Duration) (int, error) {
	runs, err := s.payrollRepo.ListRunsInStatusSince(ctx, payroll.RunStatusComputing, time.Now().Add(-staleAfter))
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, run := range runs {
		s.mu.Lock()
		_, live := s.running[run.ID]
		s.mu.Unlock()
		if live {
			continue
		}

		if _, err := s.payrollRepo.TransitionRun(ctx, run.ID, run.CompanyID, payroll.RunStatusComputing, payroll.RunStatusDraft, nil); err != nil {
			if errors.Is(err, payroll.ErrInvalidRunTransition) {
				continue
			}
			return recovered, err
		}
		slog.Warn("recovered stale payroll run", "run_id", run.ID, "company_id", run.CompanyID, "last_update", run.UpdatedAt)
		recovered++
	}
	return recovered, nil
}

// ========== HELPERS ==========

func (s *PayrollServiceImpl) location() *time.Location {
	if s.settings.Location != nil {
		return s.settings.Location
	}
	return time.UTC
}

func (s *PayrollServiceImpl) periodInLocation(p payroll.PayPeriod) payroll.PayPeriod {
	loc := s.location()
	civil := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
	return payroll.PayPeriod{
		Start:     civil(p.Start),
		End:       civil(p.End),
		PayDate:   civil(p.PayDate),
		Frequency: p.Frequency,
	}
}

func toRunResponse(run payroll.PayrollRun) payroll.RunResponse {
	return payroll.RunResponse{
		ID:               run.ID,
		CompanyID:        run.CompanyID,
		PeriodStart:      run.Period.Start.Format("2006-01-02"),
		PeriodEnd:        run.Period.End.Format("2006-01-02"),
		PayDate:          run.Period.PayDate.Format("2006-01-02"),
		Frequency:        string(run.Period.Frequency),
		Status:           string(run.Status),
		RuleSetVersion:   run.RuleSetVersion,
		StatutoryVersion: run.StatutoryVersion,
		EmployeeCount:    run.EmployeeCount,
		ComputedCount:    run.ComputedCount,
		FailedCount:      run.FailedCount,
		ApprovedBy:       run.ApprovedBy,
		ApprovedAt:       run.ApprovedAt,
		ReleasedAt:       run.ReleasedAt,
		CreatedAt:        run.CreatedAt,
		UpdatedAt:        run.UpdatedAt,
	}
}

func toPayslipResponse(p payroll.Payslip) payroll.PayslipResponse {
	return payroll.PayslipResponse{
		ID:            p.ID,
		RunID:         p.RunID,
		EmployeeCode:  p.EmployeeCode,
		FullName:      p.FullName,
		PayslipResult: p.Result,
	}
}
