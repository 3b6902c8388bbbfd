package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER ROW - One band of a store's tier schedule (reference table)
// =============================================================================

// TierRow is one row of the tier reference table. Daily bounds are the
// source of truth; monthly bounds are derived from them unless the row
// carries explicit monthly bounds. A nil upper bound marks the open-ended
// top tier.
type TierRow struct {
	Brand      string
	CostCenter CostCenterID
	Store      StoreID
	Level      Level

	DailyLower int64
	DailyUpper *int64

	MonthlyLower *int64
	MonthlyUpper *int64

	// BaseWageTier0Daily is only meaningful on the tier0 row; it is the
	// base wage of the whole store.
	BaseWageTier0Daily Amount
	// MarginalRate is the wage per TC above the row's lower bound.
	MarginalRate Amount
}

// Level is the ordinal tier label. Level 0 is the base tier.
type Level int

func (l Level) String() string { return "tier" + strconv.Itoa(int(l)) }

// ParseLevel accepts "tier1", "Tier 1" or "1".
func ParseLevel(s string) (Level, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSpace(strings.TrimPrefix(v, "tier"))
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid tier level %q", s)
	}
	return Level(n), nil
}

// Int64Ptr is a helper for optional bounds.
func Int64Ptr(v int64) *int64 { return &v }

// =============================================================================
// ACTIVITY RECORD - One store-day of activity (immutable input)
// =============================================================================

type ActivityRecord struct {
	Brand      string
	Store      StoreID
	CostCenter CostCenterID
	Date       TimePoint

	TCActual   int64
	TCForecast int64

	// ActualWagePaid is the direct wage actually recorded for the day,
	// including marketplace workers.
	ActualWagePaid Amount

	HoursScheduled   decimal.Decimal
	HoursActual      decimal.Decimal
	HoursMarketplace decimal.Decimal

	// Baselines are the labour-hour targets the scheduling system derives
	// from actual and forecast TC. Zero when unknown.
	BaselineHoursActual   decimal.Decimal
	BaselineHoursForecast decimal.Decimal
}

// TotalHours is actual staff hours plus marketplace hours.
func (r ActivityRecord) TotalHours() decimal.Decimal {
	return r.HoursActual.Add(r.HoursMarketplace)
}

// =============================================================================
// EMPLOYEE HOURS - One employee's hours in one cost-center-month
// =============================================================================

type EmployeeHours struct {
	EmployeeID EmployeeID
	Name       string
	Title      string
	CostCenter CostCenterID
	Store      StoreID
	Month      Month
	Category   string
	Hours      decimal.Decimal
}

// =============================================================================
// SHIFT SCORE - Rating of one marketplace shift
// =============================================================================

// ShiftScore rates one marketplace worker's shift at a store. WeightedScore
// is already multiplied by Weight, so a candidate's average is
// sum(WeightedScore) / sum(Weight).
type ShiftScore struct {
	CandidateID string
	Name        string
	// Segment is the worker pool, e.g. "GGG" or "Freelancer".
	Segment string
	Store   StoreID
	Date    TimePoint

	WeightedScore decimal.Decimal
	Weight        decimal.Decimal
	Hours         decimal.Decimal
}

// =============================================================================
// REPORT RUN - Audit record of a month-close computation
// =============================================================================

type ReportRun struct {
	ID               string
	Month            Month
	Status           string
	TotalComputed    Amount
	TotalActual      Amount
	TotalSurplus     Amount
	TotalAllocated   Amount
	TotalUnallocated Amount
	FailureCount     int
	StartedAt        time.Time
	CompletedAt      time.Time
	Error            string
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
