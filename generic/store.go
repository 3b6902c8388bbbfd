/*
store.go - Persistence interface for the reference tables

PURPOSE:
  Defines the interface between the engine and whatever holds its inputs.
  The engine itself never queries storage; the report service loads a
  window of reference data through these interfaces and hands immutable
  slices to the pure computation packages.

KEY INTERFACES:
  TierStore:     Tier schedule rows (one row per store and level)
  ActivityStore: Daily activity records (one row per store and date)
  HoursStore:    Employee hours (one row per employee, cost center, month)
  ScoreStore:    Marketplace shift ratings (one row per candidate, store, date)
  RunLog:        Month-close run records (audit only, never an input)

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  store, _ := sqlite.New("./wage.db")
  rows, err := store.LoadTierRows(ctx, []generic.StoreID{"GG-LTT"})

SEE ALSO:
  - report/service.go: Loads windows through these interfaces
*/
package generic

import "context"

// TierStore persists the tier reference table.
type TierStore interface {
	// SaveTierRows replaces the schedules of every store present in rows.
	SaveTierRows(ctx context.Context, rows []TierRow) error

	// LoadTierRows returns rows for the given stores; nil means all stores.
	// Rows are ordered by store, then level.
	LoadTierRows(ctx context.Context, stores []StoreID) ([]TierRow, error)
}

// ActivityStore persists daily activity.
type ActivityStore interface {
	// SaveActivity upserts by (store, date).
	SaveActivity(ctx context.Context, records []ActivityRecord) error

	// LoadActivity returns records with Date in [from, to] for the given
	// stores (nil = all), ordered by store, then date.
	LoadActivity(ctx context.Context, from, to TimePoint, stores []StoreID) ([]ActivityRecord, error)
}

// HoursStore persists monthly employee hours.
type HoursStore interface {
	// SaveEmployeeHours upserts by (employee, cost center, month).
	SaveEmployeeHours(ctx context.Context, rows []EmployeeHours) error

	// LoadEmployeeHours returns rows with Month in [from, to] for the given
	// cost centers (nil = all).
	LoadEmployeeHours(ctx context.Context, from, to Month, costCenters []CostCenterID) ([]EmployeeHours, error)
}

// ScoreStore persists marketplace shift ratings.
type ScoreStore interface {
	// SaveShiftScores upserts by (candidate, store, date).
	SaveShiftScores(ctx context.Context, scores []ShiftScore) error

	// LoadShiftScores returns scores with Date in [from, to] for the given
	// stores (nil = all), ordered by candidate, then date, then store.
	LoadShiftScores(ctx context.Context, from, to TimePoint, stores []StoreID) ([]ShiftScore, error)
}

// Store is everything the report service reads.
type Store interface {
	TierStore
	ActivityStore
	HoursStore
	ScoreStore
}

// RunLog records month-close runs. Append-style: a run is created, then
// completed or failed.
type RunLog interface {
	SaveRun(ctx context.Context, run ReportRun) error
	ListRuns(ctx context.Context) ([]ReportRun, error)
	IsMonthClosed(ctx context.Context, month Month) (bool, error)
}
