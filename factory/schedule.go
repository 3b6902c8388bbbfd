/*
Package factory converts external tier tables into generic.TierRow values.

PURPOSE:
  Tier schedules and category weights are reference data maintained by
  payroll, not code. The factory reads them from JSON (API bodies, seed
  files) or from the XLSX tier sheet payroll already keeps, validates every
  store's schedule, and hands back plain rows for the store layer.

JSON SCHEMA:
  {
    "activity_days": 30,
    "stores": [
      {
        "brand": "GG",
        "cost_center": "PC-GG-LTT",
        "store": "GG-LTT",
        "base_wage_tier0_daily": 1800000,
        "tiers": [
          {"level": 0, "tc_from": 0,   "tc_to": 50},
          {"level": 1, "tc_from": 51,  "tc_to": 140, "rate": 40000},
          {"level": 2, "tc_from": 141,               "rate": 45000}
        ]
      }
    ],
    "category_weights": {"1.1": 2.0, "1.2": 1.0, "2": 0.7}
  }

  A tier without "tc_to" is open-ended. "tc_month_from" / "tc_month_to"
  override the derived monthly bounds. Amounts may be numbers or strings.

USAGE:
  f := factory.NewScheduleFactory()
  table, err := f.ParseSchedule(jsonString)
  store.SaveTierRows(ctx, table.Rows)

SEE ALSO:
  - xlsx.go: Tier sheet import
  - tier/schedule.go: Validation rules
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/allocation"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/tier"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the JSON representation of a tier table.
type ScheduleJSON struct {
	ActivityDays    int64                      `json:"activity_days,omitempty"`
	Stores          []StoreJSON                `json:"stores"`
	CategoryWeights map[string]decimal.Decimal `json:"category_weights,omitempty"`
}

// StoreJSON is one store's schedule.
type StoreJSON struct {
	Brand      string          `json:"brand"`
	CostCenter string          `json:"cost_center"`
	Store      string          `json:"store"`
	BaseDaily  decimal.Decimal `json:"base_wage_tier0_daily"`
	Tiers      []TierJSON      `json:"tiers"`
}

// TierJSON is one band.
type TierJSON struct {
	Level       int              `json:"level"`
	TCFrom      int64            `json:"tc_from"`
	TCTo        *int64           `json:"tc_to,omitempty"`
	TCMonthFrom *int64           `json:"tc_month_from,omitempty"`
	TCMonthTo   *int64           `json:"tc_month_to,omitempty"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
}

// Table is a parsed, validated tier table.
type Table struct {
	ActivityDays int64
	Rows         []generic.TierRow
	// Weights is nil when the document carries no category weights.
	Weights allocation.Weights
}

// =============================================================================
// SCHEDULE FACTORY
// =============================================================================

// ScheduleFactory converts JSON tier tables to rows.
type ScheduleFactory struct {
	// ActivityDays is used when the document does not set one.
	ActivityDays int64
}

func NewScheduleFactory() *ScheduleFactory {
	return &ScheduleFactory{ActivityDays: tier.DefaultActivityDays}
}

// ParseSchedule parses and validates a JSON tier table.
func (f *ScheduleFactory) ParseSchedule(jsonStr string) (*Table, error) {
	var sj ScheduleJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return nil, fmt.Errorf("%w: failed to parse schedule JSON: %v", generic.ErrInvalidInput, err)
	}
	return f.FromJSON(sj)
}

// FromJSON converts and validates an already decoded document. Every store
// must form a valid schedule; the first invalid store fails the document.
func (f *ScheduleFactory) FromJSON(sj ScheduleJSON) (*Table, error) {
	if len(sj.Stores) == 0 {
		return nil, fmt.Errorf("%w: schedule has no stores", generic.ErrInvalidSchedule)
	}

	days := sj.ActivityDays
	if days <= 0 {
		days = f.ActivityDays
	}
	if days <= 0 {
		days = tier.DefaultActivityDays
	}

	t := &Table{ActivityDays: days}
	seen := make(map[string]bool)
	for _, st := range sj.Stores {
		if st.Store == "" {
			return nil, fmt.Errorf("%w: store without id", generic.ErrInvalidSchedule)
		}
		if seen[st.Store] {
			return nil, fmt.Errorf("%w: store %q listed twice", generic.ErrInvalidSchedule, st.Store)
		}
		seen[st.Store] = true

		rows := storeRows(st)
		if _, err := tier.NewSchedule(rows, days); err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, rows...)
	}

	if len(sj.CategoryWeights) > 0 {
		w := make(allocation.Weights, len(sj.CategoryWeights))
		for k, v := range sj.CategoryWeights {
			w[allocation.NormalizeCategory(k)] = v
		}
		if err := w.Validate(); err != nil {
			return nil, err
		}
		t.Weights = w
	}
	return t, nil
}

func storeRows(st StoreJSON) []generic.TierRow {
	rows := make([]generic.TierRow, 0, len(st.Tiers))
	for _, tj := range st.Tiers {
		r := generic.TierRow{
			Brand:        st.Brand,
			CostCenter:   generic.CostCenterID(st.CostCenter),
			Store:        generic.StoreID(st.Store),
			Level:        generic.Level(tj.Level),
			DailyLower:   tj.TCFrom,
			DailyUpper:   tj.TCTo,
			MonthlyLower: tj.TCMonthFrom,
			MonthlyUpper: tj.TCMonthTo,
			MarginalRate: generic.ZeroMoney(),
		}
		if tj.Rate != nil {
			r.MarginalRate = generic.NewMoney(*tj.Rate)
		}
		if tj.Level == 0 {
			r.BaseWageTier0Daily = generic.NewMoney(st.BaseDaily)
		}
		rows = append(rows, r)
	}
	return rows
}

// =============================================================================
// ROWS -> JSON
// =============================================================================

// ToJSON renders rows in the document format, stores sorted by id and tiers
// by level.
func ToJSON(rows []generic.TierRow, activityDays int64) ScheduleJSON {
	byStore := make(map[generic.StoreID][]generic.TierRow)
	for _, r := range rows {
		byStore[r.Store] = append(byStore[r.Store], r)
	}
	ids := make([]generic.StoreID, 0, len(byStore))
	for id := range byStore {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := ScheduleJSON{ActivityDays: activityDays}
	for _, id := range ids {
		rs := byStore[id]
		sort.Slice(rs, func(i, j int) bool { return rs[i].Level < rs[j].Level })
		sj := StoreJSON{
			Brand:      rs[0].Brand,
			CostCenter: string(rs[0].CostCenter),
			Store:      string(id),
		}
		for _, r := range rs {
			if r.Level == 0 {
				sj.BaseDaily = r.BaseWageTier0Daily.Value
			}
			tj := TierJSON{
				Level:       int(r.Level),
				TCFrom:      r.DailyLower,
				TCTo:        r.DailyUpper,
				TCMonthFrom: r.MonthlyLower,
				TCMonthTo:   r.MonthlyUpper,
			}
			if !r.MarginalRate.IsZero() {
				rate := r.MarginalRate.Value
				tj.Rate = &rate
			}
			sj.Tiers = append(sj.Tiers, tj)
		}
		out.Stores = append(out.Stores, sj)
	}
	return out
}
