package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/jwt"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Per-employee computation failures, e.g. from a payslip preview
	var computationErr *payroll.ComputationError
	if errors.As(err, &computationErr) {
		UnprocessableEntity(w, string(computationErr.Kind), computationErr.Error())
		return
	}

	switch {
	// Token errors
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid or missing access token")
	case errors.Is(err, jwt.ErrMissingCompany):
		Forbidden(w, "Company scope required")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Run lifecycle errors
	case errors.Is(err, payroll.ErrRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, payroll.ErrPayslipNotFound):
		NotFound(w, "Payslip not found")
	case errors.Is(err, payroll.ErrEmployeeNotInRun):
		NotFound(w, "Employee is not part of this payroll run")
	case errors.Is(err, payroll.ErrRunAlreadyExists):
		Conflict(w, "A payroll run already exists for this period")
	case errors.Is(err, payroll.ErrInvalidRunTransition):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrRunNotEditable):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrStaleConfiguration):
		Conflict(w, "Payslips of an approved or released run cannot be recomputed")
	case errors.Is(err, payroll.ErrRunHasBlockingIssues):
		Conflict(w, "Resolve employee errors before approving this run")
	case errors.Is(err, payroll.ErrRunNotFinalized):
		Conflict(w, "Exports are available once the run is approved")

	// Configuration errors
	case errors.Is(err, payroll.ErrConfigurationNotFound):
		UnprocessableEntity(w, CodeConfigNotFound, err.Error())
	case errors.Is(err, payroll.ErrConfigurationExists):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrDuplicateMultiplierRule),
		errors.Is(err, payroll.ErrInvalidMultiplierRule),
		errors.Is(err, payroll.ErrUnresolvedMultiplier),
		errors.Is(err, payroll.ErrInvalidStatutoryTable),
		errors.Is(err, payroll.ErrInvalidEngineSettings):
		UnprocessableEntity(w, CodeInvalidConfiguration, err.Error())
	case errors.Is(err, payroll.ErrInvalidPeriod), errors.Is(err, payroll.ErrInvalidAdjustment):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
