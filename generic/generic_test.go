package generic_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func vnd(n int64) generic.Amount { return generic.NewMoneyFromInt(n) }

func day(d int) generic.TimePoint { return generic.NewTimePoint(2025, time.March, d) }

// =============================================================================
// AMOUNT
// =============================================================================

func TestAmount_Arithmetic(t *testing.T) {
	base := vnd(1_800_000)
	rate := vnd(40_000)

	total := base.Add(rate.Mul(decimal.NewFromInt(50)))

	assert.True(t, total.Equal(vnd(3_800_000)))
	assert.Equal(t, generic.UnitVND, total.Unit)
	assert.True(t, total.Sub(vnd(4_000_000)).IsNegative())
	assert.True(t, total.Sub(vnd(4_000_000)).ClampZero().IsZero())
	assert.True(t, vnd(-5).Abs().Equal(vnd(5)))
	assert.True(t, vnd(3).Min(vnd(2)).Equal(vnd(2)))
	assert.Equal(t, 3_800_000.0, total.Float64())
}

func TestAmount_ZeroValueTakesUnitOfOperand(t *testing.T) {
	var sum generic.Amount
	for _, a := range []generic.Amount{vnd(1), vnd(2)} {
		sum = sum.Add(a)
	}
	assert.Equal(t, generic.UnitVND, sum.Unit)
	assert.Equal(t, "3 VND", sum.String())
}

func TestMustParseDecimal(t *testing.T) {
	assert.True(t, generic.MustParseDecimal("12.5").Equal(decimal.RequireFromString("12.5")))
	assert.True(t, generic.MustParseDecimal("").IsZero())
	assert.True(t, generic.MustParseDecimal("n/a").IsZero())
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestMonth_Bounds(t *testing.T) {
	tests := []struct {
		month generic.Month
		days  int
		end   string
	}{
		{generic.NewMonth(2025, time.February), 28, "2025-02-28"},
		{generic.NewMonth(2024, time.February), 29, "2024-02-29"},
		{generic.NewMonth(2025, time.December), 31, "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.days, tt.month.Days())
			assert.Equal(t, tt.end, tt.month.End().String())
			assert.Len(t, tt.month.Period().Days(), tt.days)
		})
	}

	dec := generic.NewMonth(2025, time.December)
	assert.Equal(t, "2026-01", dec.Next().String())
	assert.Equal(t, "2025-11", dec.Prev().String())
	assert.Equal(t, "12/2025", dec.Label())
	assert.True(t, dec.Prev().Before(dec))
	assert.True(t, dec.Contains(generic.NewTimePoint(2025, time.December, 31)))
	assert.False(t, dec.Contains(generic.NewTimePoint(2026, time.January, 1)))
}

func TestParseDateAndMonth(t *testing.T) {
	d, err := generic.ParseDate("2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d.Weekday())
	assert.Equal(t, "2025-03", d.CalendarMonth().String())

	_, err = generic.ParseDate("09/03/2025")
	assert.Error(t, err)

	m, err := generic.ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, generic.NewMonth(2025, time.March), m)

	_, err = generic.ParseMonth("2025-13")
	assert.Error(t, err)
}

func TestTimePoint_IgnoresTimeOfDay(t *testing.T) {
	morning := generic.TimePoint{Time: time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)}
	evening := generic.TimePoint{Time: time.Date(2025, time.March, 1, 22, 0, 0, 0, time.UTC)}

	assert.True(t, morning.Equal(evening))
	assert.False(t, morning.Before(evening))
	assert.True(t, generic.DateOf(evening.Time).Equal(day(1)))
}

func TestPeriod(t *testing.T) {
	p := generic.Period{Start: generic.NewTimePoint(2025, time.January, 30), End: generic.NewTimePoint(2025, time.March, 2)}

	require.NoError(t, p.Validate())
	assert.Len(t, p.Days(), 32)
	assert.Equal(t, []generic.Month{
		generic.NewMonth(2025, time.January),
		generic.NewMonth(2025, time.February),
		generic.NewMonth(2025, time.March),
	}, p.Months())
	assert.True(t, p.Contains(generic.NewTimePoint(2025, time.February, 14)))
	assert.False(t, p.Contains(generic.NewTimePoint(2025, time.March, 3)))
	assert.Equal(t, "[2025-01-30, 2025-03-02]", p.String())

	reversed := generic.Period{Start: p.End, End: p.Start}
	assert.ErrorIs(t, reversed.Validate(), generic.ErrInvalidPeriod)
	assert.Empty(t, reversed.Months())
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseGranularity(t *testing.T) {
	for in, want := range map[string]generic.Granularity{
		"":        generic.GranularityDaily,
		"Daily":   generic.GranularityDaily,
		"day":     generic.GranularityDaily,
		"monthly": generic.GranularityMonthly,
		" month ": generic.GranularityMonthly,
	} {
		got, err := generic.ParseGranularity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := generic.ParseGranularity("weekly")
	assert.ErrorIs(t, err, generic.ErrGranularityMismatch)
	assert.True(t, generic.IsClientError(err))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]generic.Level{"tier1": 1, "Tier 2": 2, "0": 0} {
		got, err := generic.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := generic.ParseLevel("tier-1")
	assert.Error(t, err)
	assert.Equal(t, "tier3", generic.Level(3).String())
}

// =============================================================================
// ERRORS
// =============================================================================

func TestErrorClassification(t *testing.T) {
	missing := fmt.Errorf("compute: %w", &generic.MissingTierDataError{Store: "S9"})
	noBase := &generic.NoAllocationBaseError{CostCenter: "PC1", Month: generic.NewMonth(2025, time.March), Surplus: vnd(10)}

	var m *generic.MissingTierDataError
	require.True(t, errors.As(missing, &m))
	assert.Equal(t, generic.StoreID("S9"), m.Store)
	assert.True(t, generic.IsNotFound(missing))
	assert.True(t, generic.IsUnitFailure(missing))
	assert.False(t, generic.IsClientError(missing))

	assert.ErrorIs(t, noBase, generic.ErrNoAllocationBase)
	assert.Contains(t, noBase.Error(), "PC1")
	assert.True(t, generic.IsUnitFailure(noBase))

	assert.True(t, generic.IsClientError(fmt.Errorf("%w: bad basis", generic.ErrInvalidInput)))
	assert.False(t, generic.IsUnitFailure(context.Canceled))
}

// =============================================================================
// BATCH
// =============================================================================

func TestRunUnits_CollectsFailuresInUnitOrder(t *testing.T) {
	// GIVEN: ten units, every third one fails
	units := make([]int, 10)
	for i := range units {
		units[i] = i
	}

	// WHEN
	b, err := generic.RunUnits(context.Background(), 3, units,
		func(u int) string { return fmt.Sprintf("unit-%d", u) },
		func(_ context.Context, u int) ([]int, error) {
			if u%3 == 0 {
				return nil, &generic.MissingTierDataError{Store: generic.StoreID(fmt.Sprint(u))}
			}
			return []int{u * 10}, nil
		})

	// THEN: order is independent of scheduling
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 40, 50, 70, 80}, b.Results)
	require.Len(t, b.Failures, 4)
	assert.Equal(t, "unit-0", b.Failures[0].Unit)
	assert.Equal(t, "unit-9", b.Failures[3].Unit)
	assert.ErrorIs(t, b.Failures[1], generic.ErrMissingTierData)
	assert.False(t, b.OK())
}

func TestRunBatches_RespectsWorkerLimit(t *testing.T) {
	var running, peak atomic.Int32
	units := make([]int, 20)

	_, err := generic.RunBatches(context.Background(), 2, units, func(_ context.Context, _ int) generic.Batch[int] {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return generic.Batch[int]{Results: []int{1}}
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunBatches_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := generic.RunBatches(ctx, 1, []int{1, 2, 3}, func(_ context.Context, u int) generic.Batch[int] {
		return generic.Batch[int]{Results: []int{u}}
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatch_MergeAndFail(t *testing.T) {
	var b generic.Batch[string]
	b.Merge(generic.Batch[string]{Results: []string{"a"}})
	assert.True(t, b.OK())

	b.Fail("S1", generic.ErrMissingTierData)
	assert.Equal(t, []string{"a"}, b.Results)
	assert.Equal(t, "S1: missing tier data", b.Failures[0].Error())
}
