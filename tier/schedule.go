/*
Package tier resolves a store's TC count to the tier band that contains it.

PURPOSE:
  Every store has a tier schedule: ordered bands over the TC axis, each with
  a marginal wage rate per TC. Level 0 is the base band; its row carries the
  store's base wage. The schedule exists at two granularities:

    daily:   bounds as recorded in the reference table (e.g., 51..140 TC/day)
    monthly: daily bounds scaled by the activity-day multiplier (30):
             lower = (daily lower - 1) * 30 + 1, upper = daily upper * 30
             e.g., 51..140/day -> 1,501..4,200/month

BOUNDARY POLICY:
  Bands are closed on both ends: lower <= tc <= upper. Consecutive bands
  touch (next lower = previous upper + 1), so every non-negative TC matches
  exactly one band. A TC above the last closed upper bound resolves to the
  top band.

VALIDATION:
  NewSchedule rejects schedules that do not partition [0, inf): missing
  tier0, tier0 not starting at 0, gaps, overlaps, descending bounds, an
  open-ended band that is not the last, a non-zero tier0 rate.

SEE ALSO:
  - resolver.go: Store-keyed lookup
  - wage/calculator.go: Uses the matched band to compute wages
*/
package tier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/warp/wage-engine/generic"
)

// DefaultActivityDays is the number of activity days in a month used to
// scale daily bounds and the daily base wage to monthly values.
const DefaultActivityDays int64 = 30

// ErrNonMonotone is reported by CheckMonotone. It is a warning about the
// schedule's shape, not a validation failure.
var ErrNonMonotone = errors.New("wage decreases at a band boundary")

// =============================================================================
// BOUNDS
// =============================================================================

// Bounds is an inclusive TC interval. A nil Upper means no upper limit.
type Bounds struct {
	Lower int64
	Upper *int64
}

func (b Bounds) Contains(tc int64) bool {
	if tc < b.Lower {
		return false
	}
	return b.Upper == nil || tc <= *b.Upper
}

func (b Bounds) IsOpen() bool { return b.Upper == nil }

func (b Bounds) String() string {
	if b.Upper == nil {
		return fmt.Sprintf("[%d, +inf)", b.Lower)
	}
	return fmt.Sprintf("[%d, %d]", b.Lower, *b.Upper)
}

// =============================================================================
// ROW - One band with both bound sets materialized
// =============================================================================

type Row struct {
	Brand      string
	CostCenter generic.CostCenterID
	Store      generic.StoreID
	Level      generic.Level

	Daily   Bounds
	Monthly Bounds

	// Rate is the wage per TC above Lower (same for both granularities).
	Rate generic.Amount
}

// Bounds returns the bound set for the granularity.
func (r Row) Bounds(g generic.Granularity) Bounds {
	if g == generic.GranularityMonthly {
		return r.Monthly
	}
	return r.Daily
}

// =============================================================================
// SCHEDULE - A store's validated band list
// =============================================================================

type Schedule struct {
	Store      generic.StoreID
	CostCenter generic.CostCenterID
	Brand      string

	// Rows ascend by level and by bounds. Rows[0] is tier0.
	Rows []Row

	BaseDaily   generic.Amount
	BaseMonthly generic.Amount

	ActivityDays int64
}

// ScheduleError names the store and level whose rows break the partition.
type ScheduleError struct {
	Store  generic.StoreID
	Level  generic.Level
	Reason string
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("invalid tier schedule for store %q at %s: %s", e.Store, e.Level, e.Reason)
}

func (e *ScheduleError) Unwrap() error { return generic.ErrInvalidSchedule }

// NewSchedule validates the rows of ONE store and derives monthly bounds.
// activityDays <= 0 selects DefaultActivityDays.
func NewSchedule(rows []generic.TierRow, activityDays int64) (*Schedule, error) {
	if len(rows) == 0 {
		return nil, &generic.MissingTierDataError{}
	}
	if activityDays <= 0 {
		activityDays = DefaultActivityDays
	}

	sorted := append([]generic.TierRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	store := sorted[0].Store
	fail := func(level generic.Level, format string, args ...any) error {
		return &ScheduleError{Store: store, Level: level, Reason: fmt.Sprintf(format, args...)}
	}

	base := sorted[0]
	if base.Level != 0 {
		return nil, fail(base.Level, "no tier0 row")
	}
	if base.DailyLower != 0 {
		return nil, fail(0, "tier0 must start at 0, starts at %d", base.DailyLower)
	}
	if !base.MarginalRate.IsZero() {
		return nil, fail(0, "tier0 must have zero marginal rate, has %v", base.MarginalRate.Value)
	}
	if base.BaseWageTier0Daily.IsNegative() {
		return nil, fail(0, "negative base wage")
	}
	if base.BaseWageTier0Daily.Unit == "" {
		base.BaseWageTier0Daily.Unit = generic.UnitVND
	}

	s := &Schedule{
		Store:        store,
		CostCenter:   base.CostCenter,
		Brand:        base.Brand,
		BaseDaily:    base.BaseWageTier0Daily,
		BaseMonthly:  base.BaseWageTier0Daily.Mul(decimalInt(activityDays)),
		ActivityDays: activityDays,
		Rows:         make([]Row, 0, len(sorted)),
	}

	for i, tr := range sorted {
		if tr.Store != store {
			return nil, fail(tr.Level, "row belongs to store %q", tr.Store)
		}
		if i > 0 && tr.Level == sorted[i-1].Level {
			return nil, fail(tr.Level, "duplicate level")
		}
		if tr.MarginalRate.IsNegative() {
			return nil, fail(tr.Level, "negative marginal rate")
		}

		row := Row{
			Brand:      tr.Brand,
			CostCenter: tr.CostCenter,
			Store:      tr.Store,
			Level:      tr.Level,
			Daily:      Bounds{Lower: tr.DailyLower, Upper: tr.DailyUpper},
			Monthly:    monthlyBounds(tr, activityDays),
			Rate:       tr.MarginalRate,
		}
		if row.CostCenter == "" {
			row.CostCenter = s.CostCenter
		}
		if row.Rate.Unit == "" {
			row.Rate.Unit = generic.UnitVND
		}

		if i > 0 {
			prev := s.Rows[i-1]
			if err := checkAdjacent(prev.Daily, row.Daily); err != "" {
				return nil, fail(tr.Level, "daily bounds %s", err)
			}
			if err := checkAdjacent(prev.Monthly, row.Monthly); err != "" {
				return nil, fail(tr.Level, "monthly bounds %s", err)
			}
		}
		if b := row.Daily; b.Upper != nil && *b.Upper < b.Lower {
			return nil, fail(tr.Level, "daily upper %d below lower %d", *b.Upper, b.Lower)
		}
		if b := row.Monthly; b.Upper != nil && *b.Upper < b.Lower {
			return nil, fail(tr.Level, "monthly upper %d below lower %d", *b.Upper, b.Lower)
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// monthlyBounds uses explicit monthly bounds when present, otherwise scales
// the daily ones.
func monthlyBounds(tr generic.TierRow, days int64) Bounds {
	var b Bounds
	switch {
	case tr.MonthlyLower != nil:
		b.Lower = *tr.MonthlyLower
	case tr.DailyLower > 0:
		b.Lower = (tr.DailyLower-1)*days + 1
	}
	switch {
	case tr.MonthlyUpper != nil:
		b.Upper = generic.Int64Ptr(*tr.MonthlyUpper)
	case tr.DailyUpper != nil:
		b.Upper = generic.Int64Ptr(*tr.DailyUpper * days)
	}
	return b
}

// checkAdjacent returns a reason when next does not start right after prev.
func checkAdjacent(prev, next Bounds) string {
	if prev.Upper == nil {
		return "follow an open-ended band"
	}
	if next.Lower != *prev.Upper+1 {
		if next.Lower <= *prev.Upper {
			return fmt.Sprintf("overlap: lower %d <= previous upper %d", next.Lower, *prev.Upper)
		}
		return fmt.Sprintf("gap: lower %d after previous upper %d", next.Lower, *prev.Upper)
	}
	return ""
}

// Tier0 returns the base band.
func (s *Schedule) Tier0() Row { return s.Rows[0] }

// Base returns the tier0 base wage for the granularity.
func (s *Schedule) Base(g generic.Granularity) generic.Amount {
	if g == generic.GranularityMonthly {
		return s.BaseMonthly
	}
	return s.BaseDaily
}

// Top returns the highest band.
func (s *Schedule) Top() Row { return s.Rows[len(s.Rows)-1] }

// Match returns the band containing tc. Above the last closed upper bound
// the top band is returned.
func (s *Schedule) Match(tc int64, g generic.Granularity) (Row, error) {
	if !g.Valid() {
		return Row{}, &generic.GranularityMismatchError{Got: g, Reason: fmt.Sprintf("unknown granularity %q", g)}
	}
	if tc < 0 {
		return Row{}, fmt.Errorf("%w: store %s tc %d", generic.ErrNegativeTC, s.Store, tc)
	}

	i := sort.Search(len(s.Rows), func(i int) bool {
		up := s.Rows[i].Bounds(g).Upper
		return up == nil || *up >= tc
	})
	if i == len(s.Rows) {
		return s.Top(), nil
	}
	return s.Rows[i], nil
}

// CheckMonotone reports the first band boundary at which the wage drops:
// the marginal count restarts at every band, so a band whose first TC earns
// less than the previous band's last TC makes the wage non-monotone there.
// It returns nil for schedules whose wage never decreases as TC grows.
func (s *Schedule) CheckMonotone(g generic.Granularity) error {
	for i := 1; i < len(s.Rows); i++ {
		prev, next := s.Rows[i-1], s.Rows[i]
		pb := prev.Bounds(g)
		if pb.Upper == nil {
			break
		}
		atUpper := marginalAt(prev, *pb.Upper, g)
		atNext := marginalAt(next, *pb.Upper+1, g)
		if atNext.LessThan(atUpper) {
			return fmt.Errorf("%w: store %s %s: %v at tc %d, %v at tc %d", ErrNonMonotone,
				s.Store, next.Level, atUpper.Value, *pb.Upper, atNext.Value, *pb.Upper+1)
		}
	}
	return nil
}

// Marginal returns the marginal component for tc inside band r.
func (r Row) Marginal(tc int64, g generic.Granularity) generic.Amount {
	return marginalAt(r, tc, g)
}

func marginalAt(r Row, tc int64, g generic.Granularity) generic.Amount {
	if r.Level == 0 {
		return r.Rate.Zero()
	}
	units := tc - r.Bounds(g).Lower + 1
	return r.Rate.Mul(decimalInt(units))
}
