/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the reference tables the wage pipeline reads (tier schedules,
  daily activity, employee hours, shift scores) and the month-close run log. The engine
  never queries the database directly; the report service loads one window
  at a time through generic.Store.

INTERFACES IMPLEMENTED:
  generic.Store:  Tier rows, activity, employee hours and shift scores
  generic.RunLog: Month-close run records

KEY TABLES:
  tier_rows:      One row per (store, level)
  activity:       One row per (store, date)
  employee_hours: One row per (employee, cost center, month)
  shift_scores:   One row per (candidate, store, date)
  report_runs:    One row per month-close run

MONEY AND HOURS:
  Amounts and hours are stored as TEXT decimal strings and parsed back with
  shopspring/decimal, so no value ever passes through a float.

DATES:
  Days are stored as YYYY-MM-DD and months as YYYY-MM; both sort
  lexicographically, so range filters are plain string comparisons.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

USAGE:
  store, err := sqlite.New("./data/wage.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := report.NewService(store, report.DefaultOptions())

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/wage-engine/generic"
)

// timeLayout is fixed-width so run timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ generic.Store  = (*Store)(nil)
	_ generic.RunLog = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Tier reference table
	CREATE TABLE IF NOT EXISTS tier_rows (
		store TEXT NOT NULL,
		level INTEGER NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		cost_center TEXT NOT NULL DEFAULT '',
		daily_lower INTEGER NOT NULL,
		daily_upper INTEGER,
		monthly_lower INTEGER,
		monthly_upper INTEGER,
		base_wage_tier0_daily TEXT NOT NULL DEFAULT '0',
		marginal_rate TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (store, level)
	);

	-- Daily activity
	CREATE TABLE IF NOT EXISTS activity (
		store TEXT NOT NULL,
		date TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		cost_center TEXT NOT NULL DEFAULT '',
		tc_actual INTEGER NOT NULL DEFAULT 0,
		tc_forecast INTEGER NOT NULL DEFAULT 0,
		actual_wage_paid TEXT NOT NULL DEFAULT '0',
		hours_scheduled TEXT NOT NULL DEFAULT '0',
		hours_actual TEXT NOT NULL DEFAULT '0',
		hours_marketplace TEXT NOT NULL DEFAULT '0',
		baseline_hours_actual TEXT NOT NULL DEFAULT '0',
		baseline_hours_forecast TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (store, date)
	);

	-- Window loads filter by date first
	CREATE INDEX IF NOT EXISTS idx_activity_date
		ON activity(date, store);

	-- Monthly employee hours
	CREATE TABLE IF NOT EXISTS employee_hours (
		employee_id TEXT NOT NULL,
		cost_center TEXT NOT NULL,
		month TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		store TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		hours TEXT NOT NULL,
		PRIMARY KEY (employee_id, cost_center, month)
	);

	CREATE INDEX IF NOT EXISTS idx_employee_hours_month
		ON employee_hours(month, cost_center);

	-- Marketplace shift ratings
	CREATE TABLE IF NOT EXISTS shift_scores (
		candidate_id TEXT NOT NULL,
		store TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		segment TEXT NOT NULL DEFAULT '',
		weighted_score TEXT NOT NULL DEFAULT '0',
		weight TEXT NOT NULL DEFAULT '0',
		hours TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (candidate_id, store, date)
	);

	CREATE INDEX IF NOT EXISTS idx_shift_scores_date
		ON shift_scores(date, store);

	-- Month-close runs (audit only)
	CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		month TEXT NOT NULL,
		status TEXT NOT NULL,
		total_computed TEXT NOT NULL DEFAULT '0',
		total_actual TEXT NOT NULL DEFAULT '0',
		total_surplus TEXT NOT NULL DEFAULT '0',
		total_allocated TEXT NOT NULL DEFAULT '0',
		total_unallocated TEXT NOT NULL DEFAULT '0',
		failure_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_report_runs_month_status
		ON report_runs(month, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// TIER STORE
// =============================================================================

// SaveTierRows replaces the schedules of every store present in rows.
func (s *Store) SaveTierRows(ctx context.Context, rows []generic.TierRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	replaced := make(map[generic.StoreID]bool)
	for _, r := range rows {
		if replaced[r.Store] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tier_rows WHERE store = ?", r.Store); err != nil {
			return fmt.Errorf("failed to clear tiers of %s: %w", r.Store, err)
		}
		replaced[r.Store] = true
	}

	query := `
		INSERT INTO tier_rows
		(store, level, brand, cost_center, daily_lower, daily_upper, monthly_lower, monthly_upper,
		 base_wage_tier0_daily, marginal_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range rows {
		_, err := tx.ExecContext(ctx, query,
			r.Store, int(r.Level), r.Brand, r.CostCenter,
			r.DailyLower, nullInt(r.DailyUpper), nullInt(r.MonthlyLower), nullInt(r.MonthlyUpper),
			r.BaseWageTier0Daily.Value.String(), r.MarginalRate.Value.String(),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: store %s has level %d twice", generic.ErrInvalidSchedule, r.Store, r.Level)
			}
			return fmt.Errorf("failed to save tier row: %w", err)
		}
	}

	return tx.Commit()
}

// LoadTierRows returns rows for the given stores (nil = all), ordered by
// store, then level.
func (s *Store) LoadTierRows(ctx context.Context, stores []generic.StoreID) ([]generic.TierRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT store, level, brand, cost_center, daily_lower, daily_upper, monthly_lower, monthly_upper,
		       base_wage_tier0_daily, marginal_rate
		FROM tier_rows
	`
	where, args := inClause("store", stores)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY store ASC, level ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tier rows: %w", err)
	}
	defer rows.Close()

	var result []generic.TierRow
	for rows.Next() {
		var (
			r                          generic.TierRow
			level                      int
			dailyUpper, mLower, mUpper sql.NullInt64
			base, rate                 string
		)
		if err := rows.Scan(&r.Store, &level, &r.Brand, &r.CostCenter, &r.DailyLower,
			&dailyUpper, &mLower, &mUpper, &base, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan tier row: %w", err)
		}
		r.Level = generic.Level(level)
		r.DailyUpper = intPtr(dailyUpper)
		r.MonthlyLower = intPtr(mLower)
		r.MonthlyUpper = intPtr(mUpper)
		r.BaseWageTier0Daily = money(base)
		r.MarginalRate = money(rate)
		result = append(result, r)
	}

	return result, rows.Err()
}

// =============================================================================
// ACTIVITY STORE
// =============================================================================

// SaveActivity upserts records by (store, date).
func (s *Store) SaveActivity(ctx context.Context, records []generic.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := saveActivity(ctx, tx, r); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func saveActivity(ctx context.Context, db execer, r generic.ActivityRecord) error {
	query := `
		INSERT INTO activity
		(store, date, brand, cost_center, tc_actual, tc_forecast, actual_wage_paid,
		 hours_scheduled, hours_actual, hours_marketplace, baseline_hours_actual, baseline_hours_forecast)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store, date) DO UPDATE SET
			brand = excluded.brand,
			cost_center = excluded.cost_center,
			tc_actual = excluded.tc_actual,
			tc_forecast = excluded.tc_forecast,
			actual_wage_paid = excluded.actual_wage_paid,
			hours_scheduled = excluded.hours_scheduled,
			hours_actual = excluded.hours_actual,
			hours_marketplace = excluded.hours_marketplace,
			baseline_hours_actual = excluded.baseline_hours_actual,
			baseline_hours_forecast = excluded.baseline_hours_forecast
	`
	_, err := db.ExecContext(ctx, query,
		r.Store, r.Date.String(), r.Brand, r.CostCenter, r.TCActual, r.TCForecast,
		r.ActualWagePaid.Value.String(),
		r.HoursScheduled.String(), r.HoursActual.String(), r.HoursMarketplace.String(),
		r.BaselineHoursActual.String(), r.BaselineHoursForecast.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save activity %s/%s: %w", r.Store, r.Date, err)
	}
	return nil
}

// LoadActivity returns records with Date in [from, to] for the given stores
// (nil = all), ordered by store, then date.
func (s *Store) LoadActivity(ctx context.Context, from, to generic.TimePoint, stores []generic.StoreID) ([]generic.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT store, date, brand, cost_center, tc_actual, tc_forecast, actual_wage_paid,
		       hours_scheduled, hours_actual, hours_marketplace, baseline_hours_actual, baseline_hours_forecast
		FROM activity
		WHERE date >= ? AND date <= ?
	`
	args := []any{from.String(), to.String()}
	if where, in := inClause("store", stores); where != "" {
		query += " AND " + where
		args = append(args, in...)
	}
	query += " ORDER BY store ASC, date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var result []generic.ActivityRecord
	for rows.Next() {
		var (
			r                                generic.ActivityRecord
			date, paid                       string
			scheduled, actual, marketplace   string
			baselineActual, baselineForecast string
		)
		if err := rows.Scan(&r.Store, &date, &r.Brand, &r.CostCenter, &r.TCActual, &r.TCForecast, &paid,
			&scheduled, &actual, &marketplace, &baselineActual, &baselineForecast); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if r.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		r.ActualWagePaid = money(paid)
		r.HoursScheduled = generic.MustParseDecimal(scheduled)
		r.HoursActual = generic.MustParseDecimal(actual)
		r.HoursMarketplace = generic.MustParseDecimal(marketplace)
		r.BaselineHoursActual = generic.MustParseDecimal(baselineActual)
		r.BaselineHoursForecast = generic.MustParseDecimal(baselineForecast)
		result = append(result, r)
	}

	return result, rows.Err()
}

// =============================================================================
// HOURS STORE
// =============================================================================

// SaveEmployeeHours upserts rows by (employee, cost center, month).
func (s *Store) SaveEmployeeHours(ctx context.Context, hours []generic.EmployeeHours) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO employee_hours (employee_id, cost_center, month, name, title, store, category, hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, cost_center, month) DO UPDATE SET
			name = excluded.name,
			title = excluded.title,
			store = excluded.store,
			category = excluded.category,
			hours = excluded.hours
	`
	for _, h := range hours {
		_, err := tx.ExecContext(ctx, query,
			h.EmployeeID, h.CostCenter, h.Month.String(), h.Name, h.Title, h.Store, h.Category, h.Hours.String())
		if err != nil {
			return fmt.Errorf("failed to save hours of %s: %w", h.EmployeeID, err)
		}
	}

	return tx.Commit()
}

// LoadEmployeeHours returns rows with Month in [from, to] for the given cost
// centers (nil = all), ordered by month, cost center, then employee.
func (s *Store) LoadEmployeeHours(ctx context.Context, from, to generic.Month, costCenters []generic.CostCenterID) ([]generic.EmployeeHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, cost_center, month, name, title, store, category, hours
		FROM employee_hours
		WHERE month >= ? AND month <= ?
	`
	args := []any{from.String(), to.String()}
	if where, in := inClause("cost_center", costCenters); where != "" {
		query += " AND " + where
		args = append(args, in...)
	}
	query += " ORDER BY month ASC, cost_center ASC, employee_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee hours: %w", err)
	}
	defer rows.Close()

	var result []generic.EmployeeHours
	for rows.Next() {
		var h generic.EmployeeHours
		var month, hours string
		if err := rows.Scan(&h.EmployeeID, &h.CostCenter, &month, &h.Name, &h.Title, &h.Store, &h.Category, &hours); err != nil {
			return nil, fmt.Errorf("failed to scan employee hours: %w", err)
		}
		if h.Month, err = generic.ParseMonth(month); err != nil {
			return nil, err
		}
		h.Hours = generic.MustParseDecimal(hours)
		result = append(result, h)
	}

	return result, rows.Err()
}

// =============================================================================
// SCORE STORE
// =============================================================================

// SaveShiftScores upserts scores by (candidate, store, date).
func (s *Store) SaveShiftScores(ctx context.Context, scores []generic.ShiftScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO shift_scores (candidate_id, store, date, name, segment, weighted_score, weight, hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(candidate_id, store, date) DO UPDATE SET
			name = excluded.name,
			segment = excluded.segment,
			weighted_score = excluded.weighted_score,
			weight = excluded.weight,
			hours = excluded.hours
	`
	for _, r := range scores {
		_, err := tx.ExecContext(ctx, query,
			r.CandidateID, r.Store, r.Date.String(), r.Name, r.Segment,
			r.WeightedScore.String(), r.Weight.String(), r.Hours.String())
		if err != nil {
			return fmt.Errorf("failed to save score of %s/%s: %w", r.CandidateID, r.Date, err)
		}
	}

	return tx.Commit()
}

// LoadShiftScores returns scores with Date in [from, to] for the given
// stores (nil = all), ordered by candidate, date, then store.
func (s *Store) LoadShiftScores(ctx context.Context, from, to generic.TimePoint, stores []generic.StoreID) ([]generic.ShiftScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT candidate_id, store, date, name, segment, weighted_score, weight, hours
		FROM shift_scores
		WHERE date >= ? AND date <= ?
	`
	args := []any{from.String(), to.String()}
	if where, in := inClause("store", stores); where != "" {
		query += " AND " + where
		args = append(args, in...)
	}
	query += " ORDER BY candidate_id ASC, date ASC, store ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift scores: %w", err)
	}
	defer rows.Close()

	var result []generic.ShiftScore
	for rows.Next() {
		var r generic.ShiftScore
		var date, score, weight, hours string
		if err := rows.Scan(&r.CandidateID, &r.Store, &date, &r.Name, &r.Segment, &score, &weight, &hours); err != nil {
			return nil, fmt.Errorf("failed to scan shift score: %w", err)
		}
		if r.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		r.WeightedScore = generic.MustParseDecimal(score)
		r.Weight = generic.MustParseDecimal(weight)
		r.Hours = generic.MustParseDecimal(hours)
		result = append(result, r)
	}

	return result, rows.Err()
}

// =============================================================================
// RUN LOG
// =============================================================================

// SaveRun inserts a run or updates the one with the same ID.
func (s *Store) SaveRun(ctx context.Context, r generic.ReportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO report_runs (id, month, status, total_computed, total_actual, total_surplus,
			total_allocated, total_unallocated, failure_count, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total_computed = excluded.total_computed,
			total_actual = excluded.total_actual,
			total_surplus = excluded.total_surplus,
			total_allocated = excluded.total_allocated,
			total_unallocated = excluded.total_unallocated,
			failure_count = excluded.failure_count,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if !r.CompletedAt.IsZero() {
		c := r.CompletedAt.UTC().Format(timeLayout)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Month.String(), r.Status,
		r.TotalComputed.Value.String(), r.TotalActual.Value.String(), r.TotalSurplus.Value.String(),
		r.TotalAllocated.Value.String(), r.TotalUnallocated.Value.String(),
		r.FailureCount, nullString(r.Error),
		r.StartedAt.UTC().Format(timeLayout), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns every run, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]generic.ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, month, status, total_computed, total_actual, total_surplus,
			total_allocated, total_unallocated, failure_count, error, started_at, completed_at
		FROM report_runs
		ORDER BY started_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []generic.ReportRun
	for rows.Next() {
		var (
			r                                         generic.ReportRun
			month, startedAt                          string
			computed, actual, surplus, alloc, unalloc string
			runErr, completedAt                       sql.NullString
		)
		if err := rows.Scan(&r.ID, &month, &r.Status, &computed, &actual, &surplus,
			&alloc, &unalloc, &r.FailureCount, &runErr, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Month, _ = generic.ParseMonth(month)
		r.TotalComputed = money(computed)
		r.TotalActual = money(actual)
		r.TotalSurplus = money(surplus)
		r.TotalAllocated = money(alloc)
		r.TotalUnallocated = money(unalloc)
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if completedAt.Valid {
			r.CompletedAt, _ = time.Parse(timeLayout, completedAt.String)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// IsMonthClosed reports whether month has a completed run.
func (s *Store) IsMonthClosed(ctx context.Context, month generic.Month) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM report_runs WHERE month = ? AND status = ?",
		month.String(), generic.RunStatusCompleted,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"tier_rows", "activity", "employee_hours", "shift_scores", "report_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func inClause[T ~string](column string, values []T) (string, []any) {
	if len(values) == 0 {
		return "", nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = string(v)
	}
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(values)), ",") + ")", args
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func money(value string) generic.Amount {
	return generic.NewMoney(generic.MustParseDecimal(value))
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
