package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/handler/http/response"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/sse"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Runs
	CreateRun(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)
	ComputeRun(w http.ResponseWriter, r *http.Request)
	ApproveRun(w http.ResponseWriter, r *http.Request)
	ReleaseRun(w http.ResponseWriter, r *http.Request)
	CancelRun(w http.ResponseWriter, r *http.Request)
	ReopenRun(w http.ResponseWriter, r *http.Request)
	StreamRunEvents(w http.ResponseWriter, r *http.Request)

	// Payslips
	ListPayslips(w http.ResponseWriter, r *http.Request)
	GetPayslip(w http.ResponseWriter, r *http.Request)
	RecomputeEmployee(w http.ResponseWriter, r *http.Request)
	ListIssues(w http.ResponseWriter, r *http.Request)
	AddAdjustment(w http.ResponseWriter, r *http.Request)
	PreviewPayslip(w http.ResponseWriter, r *http.Request)

	// Configuration
	CheckConfiguration(w http.ResponseWriter, r *http.Request)

	// Exports
	ExportBankFile(w http.ResponseWriter, r *http.Request)
	ExportContributionReport(w http.ResponseWriter, r *http.Request)
	ExportPayslipPDF(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
	exportService  payroll.ExportService
	hub            *sse.Hub
}

func NewPayrollHandler(payrollService payroll.PayrollService, exportService payroll.ExportService, hub *sse.Hub) PayrollHandler {
	return &payrollHandlerImpl{
		payrollService: payrollService,
		exportService:  exportService,
		hub:            hub,
	}
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run created", result)
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	result, err := h.payrollService.GetRun(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	var filter payroll.RunFilter

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		if year, err := strconv.Atoi(yearStr); err == nil {
			filter.Year = &year
		}
	}
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	result, err := h.payrollService.ListRuns(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Runs, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}

// ComputeRun computes synchronously, or in the background with ?async=true.
func (h *payrollHandlerImpl) ComputeRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		result, err := h.payrollService.StartComputeRun(r.Context(), id)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Accepted(w, "Payroll computation started", result)
		return
	}

	result, err := h.payrollService.ComputeRun(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll computed", result)
}

func (h *payrollHandlerImpl) ApproveRun(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.payrollService.ApproveRun, "Payroll run approved")
}

func (h *payrollHandlerImpl) ReleaseRun(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.payrollService.ReleaseRun, "Payroll run released")
}

func (h *payrollHandlerImpl) CancelRun(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.payrollService.CancelRun, "Payroll run cancelled")
}

func (h *payrollHandlerImpl) ReopenRun(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.payrollService.ReopenRun, "Payroll run reopened")
}

func (h *payrollHandlerImpl) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (payroll.RunResponse, error), message string) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	result, err := fn(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, result)
}

// StreamRunEvents streams run progress as server-sent events until the client disconnects.
func (h *payrollHandlerImpl) StreamRunEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	// Scope check before subscribing
	run, err := h.payrollService.GetRun(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(run.ID)
	defer cleanup()

	writeEvent(w, "connected", run)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, event.Event, event.Data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

// ========== PAYSLIPS ==========

func (h *payrollHandlerImpl) ListPayslips(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	result, err := h.payrollService.ListPayslips(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetPayslip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	employeeID := chi.URLParam(r, "employeeID")
	if id == "" || employeeID == "" {
		response.BadRequest(w, "Run ID and employee ID are required", nil)
		return
	}

	result, err := h.payrollService.GetPayslip(r.Context(), id, employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) RecomputeEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	employeeID := chi.URLParam(r, "employeeID")
	if id == "" || employeeID == "" {
		response.BadRequest(w, "Run ID and employee ID are required", nil)
		return
	}

	result, err := h.payrollService.RecomputeEmployee(r.Context(), id, employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payslip recomputed", result)
}

func (h *payrollHandlerImpl) ListIssues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	result, err := h.payrollService.ListIssues(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) AddAdjustment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	var req payroll.CreateAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.AddAdjustment(r.Context(), id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Adjustment added", result)
}

// PreviewPayslip computes a payslip from inline inputs without persisting anything.
func (h *payrollHandlerImpl) PreviewPayslip(w http.ResponseWriter, r *http.Request) {
	var req payroll.PreviewPayslipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.PreviewPayslip(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== CONFIGURATION ==========

func (h *payrollHandlerImpl) CheckConfiguration(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if asOfStr := r.URL.Query().Get("as_of"); asOfStr != "" {
		parsed, ok := validator.IsValidDate(asOfStr)
		if !ok {
			response.BadRequest(w, "as_of must be a date in YYYY-MM-DD format", nil)
			return
		}
		asOf = parsed
	}

	result, err := h.payrollService.ValidateConfiguration(r.Context(), asOf)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== EXPORTS ==========

// Exports buffer the whole file before any header is written.
func (h *payrollHandlerImpl) ExportBankFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := h.exportService.WriteBankFile(r.Context(), id, &buf); err != nil {
		response.HandleError(w, err)
		return
	}
	writeAttachment(w, "text/csv", fmt.Sprintf("bank-%s.csv", id), buf.Bytes())
}

func (h *payrollHandlerImpl) ExportContributionReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := h.exportService.WriteContributionReport(r.Context(), id, &buf); err != nil {
		response.HandleError(w, err)
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fmt.Sprintf("contributions-%s.xlsx", id), buf.Bytes())
}

func (h *payrollHandlerImpl) ExportPayslipPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	employeeID := chi.URLParam(r, "employeeID")
	var buf bytes.Buffer
	if err := h.exportService.WritePayslipPDF(r.Context(), id, employeeID, &buf); err != nil {
		response.HandleError(w, err)
		return
	}
	writeAttachment(w, "application/pdf", fmt.Sprintf("payslip-%s-%s.pdf", id, employeeID), buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
