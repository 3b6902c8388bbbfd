/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates tier schedules, a
	month of daily activity and employee hours that exercise one part of
	the pipeline.

AVAILABLE SCENARIOS:

	single-store:  One store, steady traffic, paid below the tier wage
	multi-store:   Two stores share a cost center; KC-Q7 has no tiers;
	               PC-KC-D2 has surplus but no employee hours
	over-budget:   Paid above the tier wage, nothing to allocate

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create tier schedules via factory
 3. Add daily activity for March 2025
 4. Add monthly employee hours
 5. Invalidate memoized reports

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "multi-store"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to scenarioLoaders

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase handler
  - factory/schedule.go: Tier table JSON definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// scenarioMonth is the month every scenario fills.
var scenarioMonth = generic.NewMonth(2025, time.March)

var scenarios = []ScenarioDTO{
	{
		ID:          "single-store",
		Name:        "Single Store",
		Description: "One GoGi store at 100 TC/day paid 3,000,000/day; surplus split across three categories",
	},
	{
		ID:          "multi-store",
		Name:        "Multi-Store",
		Description: "Two stores share a cost center, one store has no tiers, one cost center has no hours",
	},
	{
		ID:          "over-budget",
		Name:        "Over Budget",
		Description: "Actual wages above the tier wage; no surplus to allocate",
	},
}

var scenarioLoaders = map[string]func(h *Handler, ctx context.Context) error{
	"single-store": (*Handler).loadSingleStoreScenario,
	"multi-store":  (*Handler).loadMultiStoreScenario,
	"over-budget":  (*Handler).loadOverBudgetScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("%w: scenario %q", generic.ErrInvalidInput, req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	err := load(h, ctx)
	h.Reports.Invalidate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.log(r).Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

const gogiTiers = `{
  "stores": [
    {
      "brand": "GG", "cost_center": "PC-GG-LTT", "store": "GG-LTT",
      "base_wage_tier0_daily": 1800000,
      "tiers": [
        {"level": 0, "tc_from": 0,   "tc_to": 50},
        {"level": 1, "tc_from": 51,  "tc_to": 140, "rate": 40000},
        {"level": 2, "tc_from": 141,               "rate": 45000}
      ]
    }
  ]
}`

func (h *Handler) loadSingleStoreScenario(ctx context.Context) error {
	if err := h.createTiersFromJSON(ctx, gogiTiers); err != nil {
		return err
	}

	// 1,800,000 + (100 - 51 + 1) x 40,000 = 3,800,000 per day
	if err := h.Store.SaveActivity(ctx, monthActivity(activityPlan{
		brand: "GG", store: "GG-LTT", costCenter: "PC-GG-LTT",
		tc:   func(generic.TimePoint) int64 { return 100 },
		paid: 3_000_000,
		scheduled: 50, actual: 48, marketplace: 12, baseline: 64,
	})); err != nil {
		return err
	}

	return h.Store.SaveEmployeeHours(ctx, []generic.EmployeeHours{
		hours("NV001", "Nguyễn Văn An", "Bếp trưởng", "PC-GG-LTT", "GG-LTT", "1.1", 160),
		hours("NV002", "Trần Thị Bình", "Phục vụ", "PC-GG-LTT", "GG-LTT", "1.2", 180),
		hours("NV003", "Lê Văn Cường", "Phục vụ bán thời gian", "PC-GG-LTT", "GG-LTT", "2", 120),
	})
}

const multiStoreTiers = `{
  "stores": [
    {
      "brand": "GG", "cost_center": "PC-GG-HCM", "store": "GG-Q1",
      "base_wage_tier0_daily": 1800000,
      "tiers": [
        {"level": 0, "tc_from": 0,   "tc_to": 50},
        {"level": 1, "tc_from": 51,  "tc_to": 140, "rate": 40000},
        {"level": 2, "tc_from": 141,               "rate": 45000}
      ]
    },
    {
      "brand": "GG", "cost_center": "PC-GG-HCM", "store": "GG-Q3",
      "base_wage_tier0_daily": 1500000,
      "tiers": [
        {"level": 0, "tc_from": 0,  "tc_to": 40},
        {"level": 1, "tc_from": 41, "rate": 35000}
      ]
    },
    {
      "brand": "KC", "cost_center": "PC-KC-D2", "store": "KC-D2",
      "base_wage_tier0_daily": 2000000,
      "tiers": [
        {"level": 0, "tc_from": 0,  "tc_to": 60},
        {"level": 1, "tc_from": 61, "rate": 30000}
      ]
    }
  ]
}`

func weekendPeak(weekday, weekend int64) func(generic.TimePoint) int64 {
	return func(d generic.TimePoint) int64 {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return weekend
		}
		return weekday
	}
}

func (h *Handler) loadMultiStoreScenario(ctx context.Context) error {
	if err := h.createTiersFromJSON(ctx, multiStoreTiers); err != nil {
		return err
	}

	plans := []activityPlan{
		{brand: "GG", store: "GG-Q1", costCenter: "PC-GG-HCM", tc: weekendPeak(90, 160), paid: 3_200_000,
			scheduled: 60, actual: 66, marketplace: 8, baseline: 70},
		{brand: "GG", store: "GG-Q3", costCenter: "PC-GG-HCM", tc: weekendPeak(45, 70), paid: 1_700_000,
			scheduled: 30, actual: 28, marketplace: 16, baseline: 40},
		{brand: "KC", store: "KC-D2", costCenter: "PC-KC-D2", tc: weekendPeak(70, 110), paid: 2_100_000,
			scheduled: 40, actual: 40, marketplace: 4, baseline: 44},
		// No tier rows: reported as a failure, other stores still compute.
		{brand: "KC", store: "KC-Q7", costCenter: "PC-KC-Q7", tc: weekendPeak(80, 100), paid: 2_500_000,
			scheduled: 40, actual: 42, marketplace: 6, baseline: 45},
	}
	var records []generic.ActivityRecord
	for _, p := range plans {
		records = append(records, monthActivity(p)...)
	}
	if err := h.Store.SaveActivity(ctx, records); err != nil {
		return err
	}

	// PC-KC-D2 has a surplus but nobody logged hours there.
	return h.Store.SaveEmployeeHours(ctx, []generic.EmployeeHours{
		hours("NV101", "Phạm Minh Đức", "Bếp trưởng", "PC-GG-HCM", "GG-Q1", "1.1", 200),
		hours("NV102", "Võ Thị Hoa", "Thu ngân", "PC-GG-HCM", "GG-Q1", "1.2", 176),
		hours("NV103", "Đặng Quốc Huy", "Phục vụ", "PC-GG-HCM", "GG-Q3", "1.2", 150),
		hours("NV104", "Bùi Thu Lan", "Phục vụ bán thời gian", "PC-GG-HCM", "GG-Q3", "2", 96),
		hours("NV105", "Hồ Văn Minh", "Phục vụ bán thời gian", "PC-GG-HCM", "GG-Q1", "2", 80),
	})
}

func (h *Handler) loadOverBudgetScenario(ctx context.Context) error {
	if err := h.createTiersFromJSON(ctx, gogiTiers); err != nil {
		return err
	}
	if err := h.Store.SaveActivity(ctx, monthActivity(activityPlan{
		brand: "GG", store: "GG-LTT", costCenter: "PC-GG-LTT",
		tc:   weekendPeak(60, 90),
		paid: 4_500_000,
		scheduled: 70, actual: 80, marketplace: 30, baseline: 75,
	})); err != nil {
		return err
	}
	return h.Store.SaveEmployeeHours(ctx, []generic.EmployeeHours{
		hours("NV001", "Nguyễn Văn An", "Bếp trưởng", "PC-GG-LTT", "GG-LTT", "1.1", 208),
		hours("NV002", "Trần Thị Bình", "Phục vụ", "PC-GG-LTT", "GG-LTT", "1.2", 190),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createTiersFromJSON(ctx context.Context, jsonStr string) error {
	table, err := h.Schedules.ParseSchedule(jsonStr)
	if err != nil {
		return err
	}
	return h.Store.SaveTierRows(ctx, table.Rows)
}

// activityPlan describes one store's month; the same day shape repeats
// with TC varying by date.
type activityPlan struct {
	brand, store, costCenter string
	tc                       func(generic.TimePoint) int64
	paid                     int64
	// hours per day
	scheduled, actual, marketplace, baseline int64
}

func monthActivity(p activityPlan) []generic.ActivityRecord {
	out := make([]generic.ActivityRecord, 0, scenarioMonth.Days())
	for _, d := range scenarioMonth.Period().Days() {
		tc := p.tc(d)
		out = append(out, generic.ActivityRecord{
			Brand:                 p.brand,
			Store:                 generic.StoreID(p.store),
			CostCenter:            generic.CostCenterID(p.costCenter),
			Date:                  d,
			TCActual:              tc,
			TCForecast:            tc + tc/10,
			ActualWagePaid:        generic.NewMoneyFromInt(p.paid),
			HoursScheduled:        decimal.NewFromInt(p.scheduled),
			HoursActual:           decimal.NewFromInt(p.actual),
			HoursMarketplace:      decimal.NewFromInt(p.marketplace),
			BaselineHoursActual:   decimal.NewFromInt(p.baseline),
			BaselineHoursForecast: decimal.NewFromInt(p.baseline + p.baseline/10),
		})
	}
	return out
}

func hours(id, name, title, costCenter, store, category string, h int64) generic.EmployeeHours {
	return generic.EmployeeHours{
		EmployeeID: generic.EmployeeID(id),
		Name:       name,
		Title:      title,
		CostCenter: generic.CostCenterID(costCenter),
		Store:      generic.StoreID(store),
		Month:      scenarioMonth,
		Category:   category,
		Hours:      decimal.NewFromInt(h),
	}
}
