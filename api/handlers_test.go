/*
handlers_test.go - Tests for API handlers

Tests for:
- Tier schedule save, lookup, XLSX export and import
- Single wage computation and error statuses
- Report runs, invalidation after writes and XLSX export
- Manual month close and run history
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/generic/store"
	"github.com/warp/wage-engine/report"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func setupTestHandler(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	mem := store.NewMemory()
	h := NewHandler(mem, report.NewService(mem, report.DefaultOptions()))
	return h, NewRouter(h)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var march2025 = QueryRequest{From: "2025-03-01", To: "2025-03-31"}

// =============================================================================
// TIERS
// =============================================================================

func TestSaveTiers_ThenGetSchedule(t *testing.T) {
	// GIVEN
	_, router := setupTestHandler(t)

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/tiers", gogiTiers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: monthly bounds and base are derived from the daily table
	rec = do(t, router, http.MethodGet, "/api/tiers/GG-LTT", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decode[ScheduleDTO](t, rec)
	require.Len(t, s.Tiers, 3)
	assert.Equal(t, "PC-GG-LTT", s.CostCenter)
	assert.Equal(t, 54_000_000.0, s.BaseMonthly)
	assert.Equal(t, int64(1501), s.Tiers[1].TCMonthFrom)
	require.NotNil(t, s.Tiers[1].TCMonthTo)
	assert.Equal(t, int64(4200), *s.Tiers[1].TCMonthTo)
	assert.Nil(t, s.Tiers[2].TCDayTo)
	// tier2 restarts its marginal count at 141
	assert.Contains(t, s.Warning, "tc 141")

	rec = do(t, router, http.MethodGet, "/api/tiers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"GG-LTT"`)
}

func TestGetSchedule_UnknownStoreIsNotFound(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodGet, "/api/tiers/NOPE", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveTiers_RejectsGap(t *testing.T) {
	// GIVEN: tier1 starts at 52, leaving 51 uncovered
	doc := strings.Replace(gogiTiers, `"tc_from": 51`, `"tc_from": 52`, 1)
	h, router := setupTestHandler(t)

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/tiers", doc)

	// THEN: nothing is stored
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rows, err := h.Store.LoadTierRows(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSaveTiers_WeightsReplaceServiceWeights(t *testing.T) {
	h, router := setupTestHandler(t)
	doc := strings.Replace(gogiTiers, `"stores"`, `"category_weights": {"1.1": 3, "1.2": 1}, "stores"`, 1)

	rec := do(t, router, http.MethodPost, "/api/tiers", doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	w, err := h.Reports.Options().Weights.Lookup("1.1")
	require.NoError(t, err)
	assert.Equal(t, "3", w.String())
	_, err = h.Reports.Options().Weights.Lookup("2")
	assert.Error(t, err)
}

// failingTierStore refuses every tier write.
type failingTierStore struct {
	*store.Memory
}

func (failingTierStore) SaveTierRows(context.Context, []generic.TierRow) error {
	return errors.New("disk full")
}

func TestSaveTiers_FailedSaveKeepsWeights(t *testing.T) {
	// GIVEN: a store that cannot save tiers
	h, router := setupTestHandler(t)
	h.Store = failingTierStore{Memory: store.NewMemory()}
	doc := strings.Replace(gogiTiers, `"stores"`, `"category_weights": {"1.1": 3, "1.2": 1}, "stores"`, 1)

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/tiers", doc)

	// THEN: the request fails and the default weights are untouched
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	w, err := h.Reports.Options().Weights.Lookup("1.1")
	require.NoError(t, err)
	assert.Equal(t, "2", w.String())
	_, err = h.Reports.Options().Weights.Lookup("2")
	assert.NoError(t, err)
}

func TestTiers_ExportThenImport(t *testing.T) {
	// GIVEN: a saved schedule exported as XLSX
	h, router := setupTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/tiers", gogiTiers).Code)

	rec := do(t, router, http.MethodGet, "/api/tiers/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tiers.xlsx")
	sheet := rec.Body.Bytes()

	// WHEN: the workbook is imported into an empty store
	require.NoError(t, h.Store.Reset(context.Background()))
	req := httptest.NewRequest(http.MethodPost, "/api/tiers/import", bytes.NewReader(sheet))
	req.Header.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows, err := h.Store.LoadTierRows(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "45000", rows[2].MarginalRate.Value.String())
}

func TestImportTiers_RejectsGarbage(t *testing.T) {
	_, router := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tiers/import", strings.NewReader("not a workbook"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// WAGES
// =============================================================================

func TestComputeWage(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/tiers", gogiTiers).Code)

	tests := []struct {
		name        string
		tc          int64
		granularity string
		tier        string
		total       float64
	}{
		{"tier0 daily", 30, "daily", "tier0", 1_800_000},
		{"tier1 daily", 100, "daily", "tier1", 3_800_000},
		{"tier2 daily", 160, "daily", "tier2", 2_700_000},
		// 54,000,000 + (3000 - 1501 + 1) x 40,000
		{"tier1 monthly", 3000, "monthly", "tier1", 114_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/wages/compute",
				ComputeWageRequest{Store: "GG-LTT", TC: tt.tc, Granularity: tt.granularity})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			got := decode[ComputedDTO](t, rec)
			assert.Equal(t, tt.tier, got.Tier)
			assert.Equal(t, tt.total, got.Total)
		})
	}
}

func TestComputeWage_Errors(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/tiers", gogiTiers).Code)

	tests := []struct {
		name   string
		req    ComputeWageRequest
		status int
	}{
		{"negative tc", ComputeWageRequest{Store: "GG-LTT", TC: -1, Granularity: "daily"}, http.StatusBadRequest},
		{"bad granularity", ComputeWageRequest{Store: "GG-LTT", TC: 1, Granularity: "weekly"}, http.StatusBadRequest},
		{"missing tiers", ComputeWageRequest{Store: "KC-Q7", TC: 1, Granularity: "daily"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/wages/compute", tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// REPORTS
// =============================================================================

func TestRunReport_SingleStore(t *testing.T) {
	// GIVEN
	_, router := setupTestHandler(t)
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "single-store"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN
	rec = do(t, router, http.MethodPost, "/api/reports/run", march2025)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rep := decode[ReportDTO](t, rec)

	// THEN: 31 days of 800,000 surplus, fully allocated
	assert.Len(t, rep.Daily, 31)
	assert.Equal(t, "actual", rep.Basis)
	assert.InDelta(t, 24_800_000, rep.Totals.Surplus, 0.5)
	assert.InDelta(t, 24_800_000, rep.Totals.Allocated, 0.5)
	assert.Zero(t, rep.Totals.Unallocated)
	require.Len(t, rep.Allocations, 3)

	var sum float64
	for _, a := range rep.Allocations {
		sum += a.Bonus
	}
	assert.InDelta(t, 24_800_000, sum, 0.5)
	assert.Empty(t, rep.Failures)
}

func TestRunReport_WritesInvalidateMemo(t *testing.T) {
	// GIVEN: a memoized report
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "single-store"}).Code)
	before := decode[ReportDTO](t, do(t, router, http.MethodPost, "/api/reports/run", march2025))

	// WHEN: one day is repaid at the full tier wage
	rec := do(t, router, http.MethodPost, "/api/activity", []ActivityRequest{{
		Brand: "GG", Store: "GG-LTT", CostCenter: "PC-GG-LTT", Date: "2025-03-01",
		TCActual: 100, ActualWagePaid: decimal.RequireFromString("3800000"),
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN
	after := decode[ReportDTO](t, do(t, router, http.MethodPost, "/api/reports/run", march2025))
	assert.InDelta(t, before.Totals.Surplus-800_000, after.Totals.Surplus, 0.5)
}

func TestSaveShiftScores_ReachReport(t *testing.T) {
	// GIVEN
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "single-store"}).Code)
	before := decode[ReportDTO](t, do(t, router, http.MethodPost, "/api/reports/run", march2025))

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/shift-scores", []ShiftScoreRequest{
		{CandidateID: "C1", Name: "Lan", Segment: "Freelancer", Store: "GG-LTT", Date: "2025-03-03",
			WeightedScore: decimal.RequireFromString("9"), Weight: decimal.RequireFromString("2"), Hours: decimal.RequireFromString("8")},
		{CandidateID: "C1", Name: "Lan", Segment: "Freelancer", Store: "GG-LTT", Date: "2025-03-10",
			WeightedScore: decimal.RequireFromString("3"), Weight: decimal.RequireFromString("1"), Hours: decimal.RequireFromString("4")},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: the memo was dropped and the ratings show up
	after := decode[ReportDTO](t, do(t, router, http.MethodPost, "/api/reports/run", march2025))
	assert.Empty(t, before.Scores)
	require.Len(t, after.Scores, 1)
	require.NotNil(t, after.Scores[0].Average)
	assert.InDelta(t, 4.0, *after.Scores[0].Average, 1e-9)
	assert.Len(t, after.WeeklyScores, 2)

	// AND: one rollup row per day
	require.Len(t, after.ByDate, 31)
	assert.Equal(t, "2025-03-01", after.ByDate[0].Date)
	assert.Equal(t, 1, after.ByDate[0].Stores)
}

func TestSaveShiftScores_RejectsBadRows(t *testing.T) {
	_, router := setupTestHandler(t)

	tests := []struct {
		name string
		req  ShiftScoreRequest
	}{
		{"no candidate", ShiftScoreRequest{Store: "S1", Date: "2025-03-01"}},
		{"bad date", ShiftScoreRequest{CandidateID: "C1", Store: "S1", Date: "March 1"}},
		{"negative weight", ShiftScoreRequest{CandidateID: "C1", Store: "S1", Date: "2025-03-01", Weight: decimal.RequireFromString("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/shift-scores", []ShiftScoreRequest{tt.req})
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestRunReport_RejectsBadWindow(t *testing.T) {
	_, router := setupTestHandler(t)

	tests := []struct {
		name string
		req  QueryRequest
	}{
		{"reversed", QueryRequest{From: "2025-03-31", To: "2025-03-01"}},
		{"malformed date", QueryRequest{From: "03/01/2025", To: "2025-03-31"}},
		{"bad weekday", QueryRequest{From: "2025-03-01", To: "2025-03-31", Weekdays: []string{"funday"}}},
		{"bad basis", QueryRequest{From: "2025-03-01", To: "2025-03-31", Basis: "median"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/reports/run", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestExportReport(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "single-store"}).Code)

	rec := do(t, router, http.MethodPost, "/api/reports/export", march2025)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "wage-report-2025-03-01-2025-03-31.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Allocation")
}

// =============================================================================
// MONTH CLOSE
// =============================================================================

func TestCloseMonth_ThenListRuns(t *testing.T) {
	// GIVEN
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "single-store"}).Code)

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/runs/close", CloseMonthRequest{Month: "2025-03"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[RunDTO](t, rec)

	// THEN
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, "2025-03", run.Month)
	assert.InDelta(t, 24_800_000, run.TotalSurplus, 0.5)
	assert.NotEmpty(t, run.CompletedAt)

	rec = do(t, router, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[struct {
		Runs []RunDTO `json:"runs"`
	}](t, rec)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, run.ID, runs.Runs[0].ID)
}

func TestCloseMonth_RejectsBadMonth(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodPost, "/api/runs/close", CloseMonthRequest{Month: "March"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
