package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
)

type PayrollJobs struct {
	payrollService payroll.PayrollService
	staleAfter     time.Duration
	lookahead      time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewPayrollJobs builds the maintenance jobs of the run controller. Runs stuck in
// COMPUTING for longer than staleAfter are returned to DRAFT.
func NewPayrollJobs(payrollService payroll.PayrollService, staleAfter time.Duration, logger *slog.Logger) *PayrollJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollJobs{
		payrollService: payrollService,
		staleAfter:     staleAfter,
		lookahead:      31 * 24 * time.Hour,
		logger:         logger,
		now:            time.Now,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) error {
	if err := scheduler.AddJob(Job{
		Name:     "validate_payroll_configuration",
		Interval: 6 * time.Hour,
		Timeout:  time.Minute,
		Fn:       j.ValidateConfiguration,
	}); err != nil {
		return err
	}
	return scheduler.AddJob(Job{
		Name:     "recover_stale_computing_runs",
		Interval: j.staleAfter / 2,
		Timeout:  time.Minute,
		Fn:       j.RecoverStaleRuns,
	})
}

// ValidateConfiguration checks that a complete rule set and statutory tables are
// effective today and one month ahead.
func (j *PayrollJobs) ValidateConfiguration(ctx context.Context) error {
	now := j.now()
	for _, asOf := range []time.Time{now, now.Add(j.lookahead)} {
		result, err := j.payrollService.ValidateConfiguration(ctx, asOf)
		if err != nil {
			j.logger.Error("payroll configuration check failed", "as_of", asOf.Format("2006-01-02"), "error", err)
			return err
		}
		j.logger.Debug("payroll configuration valid",
			"as_of", result.AsOf,
			"rule_set_version", result.RuleSetVersion,
			"statutory_version", result.StatutoryVersion,
		)
	}
	return nil
}

func (j *PayrollJobs) RecoverStaleRuns(ctx context.Context) error {
	recovered, err := j.payrollService.RecoverStaleRuns(ctx, j.staleAfter)
	if err != nil {
		return err
	}
	if recovered > 0 {
		j.logger.Warn("returned stale computing runs to draft", "count", recovered)
	}
	return nil
}
