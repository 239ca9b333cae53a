package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_AddJobValidation(t *testing.T) {
	s := NewScheduler(quietLogger())
	assert.Error(t, s.AddJob(Job{Name: "zero", Fn: func(ctx context.Context) error { return nil }}))
	assert.Error(t, s.AddJob(Job{Name: "nil", Interval: time.Second}))

	require.NoError(t, s.AddJob(Job{Name: "ok", Interval: time.Hour, Fn: func(ctx context.Context) error { return nil }}))
	s.Start()
	defer s.Stop()
	assert.Error(t, s.AddJob(Job{Name: "late", Interval: time.Hour, Fn: func(ctx context.Context) error { return nil }}))
}

func TestScheduler_RunsImmediatelyAndOnInterval(t *testing.T) {
	s := NewScheduler(quietLogger())
	var calls atomic.Int32
	require.NoError(t, s.AddJob(Job{Name: "tick", Interval: 20 * time.Millisecond, Fn: func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}}))

	s.Start()
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestScheduler_RunOnceRecoversPanics(t *testing.T) {
	s := NewScheduler(quietLogger())
	boom := errors.New("boom")
	var ran bool
	require.NoError(t, s.AddJob(Job{Name: "panics", Interval: time.Hour, Fn: func(ctx context.Context) error { panic("unexpected") }}))
	require.NoError(t, s.AddJob(Job{Name: "fails", Interval: time.Hour, Fn: func(ctx context.Context) error { return boom }}))
	require.NoError(t, s.AddJob(Job{Name: "runs", Interval: time.Hour, Fn: func(ctx context.Context) error { ran = true; return nil }}))

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.True(t, ran)
}

func TestScheduler_Timeout(t *testing.T) {
	s := NewScheduler(quietLogger())
	require.NoError(t, s.AddJob(Job{Name: "slow", Interval: time.Hour, Timeout: 10 * time.Millisecond, Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	assert.ErrorIs(t, s.RunOnce(context.Background()), context.DeadlineExceeded)
}

type stubPayrollService struct {
	payroll.PayrollService
	asOf       []time.Time
	configErr  error
	staleAfter time.Duration
	recovered  int
}

func (s *stubPayrollService) ValidateConfiguration(ctx context.Context, asOf time.Time) (payroll.ConfigurationCheckResponse, error) {
	s.asOf = append(s.asOf, asOf)
	if s.configErr != nil {
		return payroll.ConfigurationCheckResponse{}, s.configErr
	}
	return payroll.ConfigurationCheckResponse{AsOf: asOf.Format("2006-01-02"), Valid: true}, nil
}

func (s *stubPayrollService) RecoverStaleRuns(ctx context.Context, staleAfter time.Duration) (int, error) {
	s.staleAfter = staleAfter
	return s.recovered, nil
}

func TestPayrollJobs(t *testing.T) {
	svc := &stubPayrollService{recovered: 2}
	jobs := NewPayrollJobs(svc, 30*time.Minute, quietLogger())
	jobs.now = func() time.Time { return time.Date(2025, time.December, 20, 9, 0, 0, 0, time.UTC) }

	s := NewScheduler(quietLogger())
	require.NoError(t, jobs.RegisterJobs(s))
	require.NoError(t, s.RunOnce(context.Background()))

	require.Len(t, svc.asOf, 2)
	assert.Equal(t, "2026-01-20", svc.asOf[1].Format("2006-01-02"))
	assert.Equal(t, 30*time.Minute, svc.staleAfter)

	svc.configErr = payroll.ErrConfigurationNotFound
	assert.ErrorIs(t, jobs.ValidateConfiguration(context.Background()), payroll.ErrConfigurationNotFound)
}
