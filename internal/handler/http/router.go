package http

import (
	"log/slog"

	"github.com/cc-visionary/payroll-os-sub004/internal/handler/http/middleware"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(JWTService jwt.Service, payrollHandler PayrollHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication. The ?jwt= query token is for EventSource clients.
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired(JWTService))
			r.Use(middleware.RequireOperator(JWTService))
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Route("/payroll", func(r chi.Router) {
				r.Get("/configuration/check", payrollHandler.CheckConfiguration)
				r.Post("/preview", payrollHandler.PreviewPayslip)

				r.Route("/runs", func(r chi.Router) {
					r.Get("/", payrollHandler.ListRuns)
					r.Post("/", payrollHandler.CreateRun)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", payrollHandler.GetRun)
						r.Get("/events", payrollHandler.StreamRunEvents)
						r.Post("/compute", payrollHandler.ComputeRun)
						r.Post("/cancel", payrollHandler.CancelRun)
						r.Post("/reopen", payrollHandler.ReopenRun)

						// Approver only
						r.Group(func(r chi.Router) {
							r.Use(middleware.RequireApprover(JWTService))
							r.Post("/approve", payrollHandler.ApproveRun)
							r.Post("/release", payrollHandler.ReleaseRun)
						})

						r.Get("/issues", payrollHandler.ListIssues)
						r.Post("/adjustments", payrollHandler.AddAdjustment)

						r.Route("/payslips", func(r chi.Router) {
							r.Get("/", payrollHandler.ListPayslips)
							r.Get("/{employeeID}", payrollHandler.GetPayslip)
							r.Post("/{employeeID}/recompute", payrollHandler.RecomputeEmployee)
							r.Get("/{employeeID}/pdf", payrollHandler.ExportPayslipPDF)
						})

						r.Route("/exports", func(r chi.Router) {
							r.Get("/bank", payrollHandler.ExportBankFile)
							r.Get("/contributions", payrollHandler.ExportContributionReport)
						})
					})
				})
			})
		})
	})

	return r
}
