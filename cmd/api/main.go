package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/config"
	"github.com/cc-visionary/payroll-os-sub004/internal/fixtures"
	appHTTP "github.com/cc-visionary/payroll-os-sub004/internal/handler/http"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/cron"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/database"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/jwt"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/sse"
	"github.com/cc-visionary/payroll-os-sub004/internal/repository/postgresql"
	exportService "github.com/cc-visionary/payroll-os-sub004/internal/service/export"
	payrollService "github.com/cc-visionary/payroll-os-sub004/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("payroll api stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.App.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env == "development")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("env", cfg.App.Env),
	)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	settings, err := cfg.EngineSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: int32(cfg.Payroll.Workers) + 10,
		MinConns: 2,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	payrollRepo := postgresql.NewPayrollRepository(db)
	configRepo := postgresql.NewConfigurationRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	calendarRepo := postgresql.NewCalendarRepository(db)

	if cfg.Payroll.SeedDefaults {
		if err := fixtures.SeedDefaults(ctx, configRepo); err != nil {
			return fmt.Errorf("seed payroll configuration: %w", err)
		}
	}

	hub := sse.NewHub()
	JWTService := jwt.NewJWTService(cfg.JWT.Secret)

	payrollSvc := payrollService.NewPayrollService(
		db,
		payrollRepo,
		configRepo,
		employeeRepo,
		attendanceRepo,
		calendarRepo,
		hub,
		settings,
		cfg.Payroll.Workers,
	)
	exportSvc := exportService.NewExportService(payrollRepo)

	scheduler := cron.NewScheduler(logger)
	if err := cron.NewPayrollJobs(payrollSvc, cfg.Payroll.StaleRunAfter, logger).RegisterJobs(scheduler); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc, exportSvc, hub)
	router := appHTTP.NewRouter(JWTService, payrollHandler, appHTTP.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "sse_subscribers", hub.TotalSubscribers())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
