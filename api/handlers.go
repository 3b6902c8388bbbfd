/*
handlers.go - HTTP API handlers for the wage engine

PURPOSE:
  Exposes the wage pipeline via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the report service and the pure
  computation packages.

ENDPOINTS:
  Tiers:
    GET    /api/tiers                  Tier table as a schedule document
    POST   /api/tiers                  Replace schedules from JSON
    POST   /api/tiers/import           Replace schedules from an XLSX sheet
    GET    /api/tiers/export           Tier table as XLSX
    GET    /api/tiers/{store}          One store's validated schedule

  Reference data:
    POST   /api/activity               Upsert daily activity
    POST   /api/employee-hours         Upsert monthly employee hours
    POST   /api/shift-scores           Upsert rated marketplace shifts

  Computation:
    POST   /api/wages/compute          Wage for one store and TC
    POST   /api/reports/run            Full report over a window
    POST   /api/reports/export         Full report as XLSX

  Month close:
    GET    /api/runs                   Month-close history
    POST   /api/runs/close             Close a month by hand

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Reference tables and run log
  - Reports: Memoized report service (invalidated on every write)
  - Schedules / Sheets: JSON and XLSX tier table readers
  - Exporter: XLSX writer

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, invalid schedules, bad windows
  - 404: Store without tier data (single-store endpoints only)
  - 500: Storage errors
  A report whose individual stores or cost-center-months fail is still a
  200; the failures are listed in its body.

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warp/wage-engine/export"
	"github.com/warp/wage-engine/factory"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/report"
	"github.com/warp/wage-engine/tier"
	"github.com/warp/wage-engine/wage"
)

// maxUpload bounds request bodies, XLSX uploads included.
const maxUpload = 16 << 20

// Store is everything the API reads and writes.
type Store interface {
	generic.Store
	generic.RunLog
	Reset(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Store
	Reports   *report.Service
	Schedules *factory.ScheduleFactory
	Sheets    *factory.TierSheetReader
	Exporter  *export.Exporter

	logger *zap.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over store and the report service.
func NewHandler(store Store, reports *report.Service, logger ...*zap.Logger) *Handler {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	days := reports.Options().ActivityDays
	return &Handler{
		Store:     store,
		Reports:   reports,
		Schedules: &factory.ScheduleFactory{ActivityDays: days},
		Sheets:    &factory.TierSheetReader{ActivityDays: days},
		Exporter:  export.NewExporter(),
		logger:    l.Named("api"),
	}
}

// log returns the handler logger tagged with the request ID.
func (h *Handler) log(r *http.Request) *zap.Logger {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return h.logger.With(zap.String("request_id", id))
	}
	return h.logger
}

// =============================================================================
// TIER HANDLERS
// =============================================================================

// ListTiers returns the whole tier table as a schedule document.
// GET /api/tiers
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.LoadTierRows(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tiers", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(rows, h.Reports.Options().ActivityDays))
}

// GetSchedule returns one store's validated schedule with monthly bounds.
// GET /api/tiers/{store}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	store := generic.StoreID(chi.URLParam(r, "store"))
	rows, err := h.Store.LoadTierRows(r.Context(), []generic.StoreID{store})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tiers", err)
		return
	}
	s, err := tier.NewResolver(rows, h.Reports.Options().ActivityDays).Schedule(store)
	if err != nil {
		writeDomainError(w, "Schedule unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(s))
}

// SaveTiers replaces the schedules of every store in a JSON document.
// POST /api/tiers
func (h *Handler) SaveTiers(w http.ResponseWriter, r *http.Request) {
	var doc factory.ScheduleJSON
	if err := decodeBody(w, r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	table, err := h.Schedules.FromJSON(doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tier schedule", err)
		return
	}
	if table.Weights != nil {
		if err := table.Weights.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid category weights", err)
			return
		}
	}
	if err := h.Store.SaveTierRows(r.Context(), table.Rows); err != nil {
		writeDomainError(w, "Failed to save tiers", err)
		return
	}
	// Weights are applied only once the rows are stored.
	if table.Weights != nil {
		if err := h.Reports.SetWeights(table.Weights); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid category weights", err)
			return
		}
	}
	h.tiersSaved(w, r, table.Rows)
}

// ImportTiers replaces schedules from an XLSX tier sheet, sent either as
// multipart field "file" or as the raw request body.
// POST /api/tiers/import
func (h *Handler) ImportTiers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	var in io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing file field", err)
			return
		}
		defer file.Close()
		in = file
	}

	reader := *h.Sheets
	reader.Sheet = r.URL.Query().Get("sheet")
	rows, err := reader.ReadTierSheet(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tier sheet", err)
		return
	}
	if err := h.Store.SaveTierRows(r.Context(), rows); err != nil {
		writeDomainError(w, "Failed to save tiers", err)
		return
	}
	h.tiersSaved(w, r, rows)
}

func (h *Handler) tiersSaved(w http.ResponseWriter, r *http.Request, rows []generic.TierRow) {
	h.Reports.Invalidate()

	stores := make(map[generic.StoreID]bool)
	for _, row := range rows {
		stores[row.Store] = true
	}
	h.log(r).Info("tier schedules saved", zap.Int("stores", len(stores)), zap.Int("rows", len(rows)))
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "saved",
		"stores": len(stores),
		"rows":   len(rows),
	})
}

// ExportTiers returns the tier table as an XLSX workbook.
// GET /api/tiers/export
func (h *Handler) ExportTiers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.LoadTierRows(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tiers", err)
		return
	}
	f, err := h.Exporter.TierWorkbook(rows, h.Reports.Options().ActivityDays)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	defer f.Close()
	writeWorkbook(w, "tiers.xlsx", f)
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// SaveActivity upserts daily activity records.
// POST /api/activity
func (h *Handler) SaveActivity(w http.ResponseWriter, r *http.Request) {
	var req []ActivityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	records := make([]generic.ActivityRecord, 0, len(req))
	for i, a := range req {
		rec, err := a.toRecord()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid activity record %d", i), err)
			return
		}
		records = append(records, rec)
	}

	if err := h.Store.SaveActivity(r.Context(), records); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save activity", err)
		return
	}
	h.Reports.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "records": len(records)})
}

// SaveEmployeeHours upserts monthly employee hours.
// POST /api/employee-hours
func (h *Handler) SaveEmployeeHours(w http.ResponseWriter, r *http.Request) {
	var req []EmployeeHoursRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rows := make([]generic.EmployeeHours, 0, len(req))
	for i, e := range req {
		row, err := e.toRecord()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid hours record %d", i), err)
			return
		}
		rows = append(rows, row)
	}

	if err := h.Store.SaveEmployeeHours(r.Context(), rows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee hours", err)
		return
	}
	h.Reports.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "records": len(rows)})
}

// SaveShiftScores upserts rated marketplace shifts.
// POST /api/shift-scores
func (h *Handler) SaveShiftScores(w http.ResponseWriter, r *http.Request) {
	var req []ShiftScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	scores := make([]generic.ShiftScore, 0, len(req))
	for i, s := range req {
		rec, err := s.toRecord()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid shift score %d", i), err)
			return
		}
		scores = append(scores, rec)
	}

	if err := h.Store.SaveShiftScores(r.Context(), scores); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift scores", err)
		return
	}
	h.Reports.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "records": len(scores)})
}

// =============================================================================
// COMPUTATION HANDLERS
// =============================================================================

// ComputeWage evaluates the wage formula for one store.
// POST /api/wages/compute
func (h *Handler) ComputeWage(w http.ResponseWriter, r *http.Request) {
	var req ComputeWageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	g, err := generic.ParseGranularity(req.Granularity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid granularity", err)
		return
	}

	store := generic.StoreID(req.Store)
	rows, err := h.Store.LoadTierRows(r.Context(), []generic.StoreID{store})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tiers", err)
		return
	}
	calc := wage.NewCalculator(tier.NewResolver(rows, h.Reports.Options().ActivityDays))
	c, err := calc.Compute(store, req.TC, g)
	if err != nil {
		writeDomainError(w, "Wage computation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toComputedDTO(c))
}

// RunReport computes (or returns the memoized) report of a window.
// POST /api/reports/run
func (h *Handler) RunReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.runReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// ExportReport returns the report of a window as an XLSX workbook.
// POST /api/reports/export
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.runReport(w, r)
	if !ok {
		return
	}
	f, err := h.Exporter.Workbook(rep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	defer f.Close()
	writeWorkbook(w, fmt.Sprintf("wage-report-%s-%s.xlsx", rep.Query.From, rep.Query.To), f)
}

func (h *Handler) runReport(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	var req QueryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	q, err := req.toQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return nil, false
	}
	rep, err := h.Reports.Run(r.Context(), q)
	if err != nil {
		h.log(r).Error("report failed", zap.Error(err))
		writeDomainError(w, "Report failed", err)
		return nil, false
	}
	return rep, true
}

// =============================================================================
// MONTH CLOSE HANDLERS
// =============================================================================

// ListRuns returns month-close history, most recent first.
// GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// CloseMonth closes one month regardless of the scheduler.
// POST /api/runs/close
func (h *Handler) CloseMonth(w http.ResponseWriter, r *http.Request) {
	var req CloseMonthRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month, err := generic.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}
	run, _, err := h.Reports.CloseMonth(r.Context(), month, h.Store)
	if err != nil {
		writeDomainError(w, "Month close failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run))
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.Reports.Invalidate()
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case generic.IsNotFound(err):
		status = http.StatusNotFound
	case generic.IsClientError(err):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, message, err)
}

func writeWorkbook(w http.ResponseWriter, name string, f *excelize.File) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	f.Write(w)
}
