package report_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/generic/store"
	"github.com/warp/wage-engine/report"
	"github.com/warp/wage-engine/wage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var march = generic.NewMonth(2025, time.March)

func vnd(n int64) generic.Amount { return generic.NewMoneyFromInt(n) }

func tiers(s generic.StoreID, cc generic.CostCenterID) []generic.TierRow {
	return []generic.TierRow{
		{Brand: "GG", CostCenter: cc, Store: s, Level: 0, DailyUpper: generic.Int64Ptr(50), BaseWageTier0Daily: vnd(1_800_000)},
		{Brand: "GG", CostCenter: cc, Store: s, Level: 1, DailyLower: 51, DailyUpper: generic.Int64Ptr(140), MarginalRate: vnd(40_000)},
		{Brand: "GG", CostCenter: cc, Store: s, Level: 2, DailyLower: 141, MarginalRate: vnd(45_000)},
	}
}

// seed: S1 (PC1) runs 100 TC every day of March and is paid 3,000,000/day;
// S2 (PC2) has activity but no tiers.
func seed(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveTierRows(ctx, tiers("S1", "PC1")))

	var activity []generic.ActivityRecord
	for d := 1; d <= 31; d++ {
		date := generic.NewTimePoint(2025, time.March, d)
		activity = append(activity,
			generic.ActivityRecord{Brand: "GG", Store: "S1", CostCenter: "PC1", Date: date, TCActual: 100, TCForecast: 110,
				ActualWagePaid: vnd(3_000_000), HoursActual: decimal.NewFromInt(60), BaselineHoursActual: decimal.NewFromInt(80)},
			generic.ActivityRecord{Brand: "GG", Store: "S2", CostCenter: "PC2", Date: date, TCActual: 100, ActualWagePaid: vnd(1)},
		)
	}
	require.NoError(t, m.SaveActivity(ctx, activity))

	require.NoError(t, m.SaveEmployeeHours(ctx, []generic.EmployeeHours{
		{EmployeeID: "E1", CostCenter: "PC1", Store: "S1", Month: march, Category: "1.1", Hours: decimal.NewFromInt(100)},
		{EmployeeID: "E2", CostCenter: "PC1", Store: "S1", Month: march, Category: "1.2", Hours: decimal.NewFromInt(100)},
	}))
	return m
}

// =============================================================================
// RUN
// =============================================================================

func TestRun_FullPipeline(t *testing.T) {
	// GIVEN
	svc := report.NewService(seed(t), report.DefaultOptions())

	// WHEN: the first 30 days of March
	rep, err := svc.Run(context.Background(), report.Query{
		From: generic.NewTimePoint(2025, time.March, 1),
		To:   generic.NewTimePoint(2025, time.March, 30),
	})
	require.NoError(t, err)

	// THEN: the daily view holds 30 daily wages of 3,800,000
	require.Len(t, rep.Daily, 30)
	assert.True(t, rep.Daily[0].Total.Equal(vnd(3_800_000)))
	assert.True(t, rep.Totals.Computed.Equal(vnd(114_000_000)))
	assert.True(t, rep.Totals.Actual.Equal(vnd(90_000_000)))
	require.Len(t, rep.Summaries, 1)
	assert.Equal(t, 30, rep.Summaries[0].Days)

	// AND: March is reconciled as a whole, 31 x 800,000
	require.Len(t, rep.Variances, 1)
	assert.True(t, rep.Variances[0].Surplus.Equal(vnd(24_800_000)), "surplus = %s", rep.Variances[0].Surplus)
	require.Len(t, rep.Monthly, 1)
	assert.Equal(t, 31, rep.Monthly[0].Days)

	// AND: 2:1 split of the surplus
	require.Len(t, rep.Allocations, 2)
	assert.InDelta(t, 16_533_333.33, rep.Allocations[0].Bonus.Float64(), 0.01)
	assert.InDelta(t, 8_266_666.67, rep.Allocations[1].Bonus.Float64(), 0.01)
	assert.True(t, rep.Totals.Allocated.Equal(vnd(24_800_000)))
	assert.True(t, rep.Totals.Unallocated.IsZero())

	// AND: S2 is reported as missing tier data, not guessed
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "S2", rep.Failures[0].Unit)
	assert.ErrorIs(t, rep.Failures[0], generic.ErrMissingTierData)
}

func TestRun_PayoutIsIndependentOfTheView(t *testing.T) {
	// GIVEN: the whole of March
	svc := report.NewService(seed(t), report.DefaultOptions())
	ctx := context.Background()
	whole, err := svc.Run(ctx, report.MonthQuery(march))
	require.NoError(t, err)
	require.True(t, whole.Totals.Surplus.Equal(vnd(24_800_000)))

	views := map[string]report.Query{
		"first ten days": {
			From: generic.NewTimePoint(2025, time.March, 1),
			To:   generic.NewTimePoint(2025, time.March, 10),
		},
		"weekends only": {
			From:     march.Start(),
			To:       march.End(),
			Weekdays: []time.Weekday{time.Saturday, time.Sunday},
		},
		"one store, one day": {
			From:   generic.NewTimePoint(2025, time.March, 5),
			To:     generic.NewTimePoint(2025, time.March, 5),
			Stores: []generic.StoreID{"S1"},
		},
	}
	for name, q := range views {
		t.Run(name, func(t *testing.T) {
			// WHEN
			rep, err := svc.Run(ctx, q)
			require.NoError(t, err)

			// THEN: the view is narrower, the payout is the same
			assert.Less(t, len(rep.Daily), len(whole.Daily))
			assert.Equal(t, whole.Variances, rep.Variances)
			assert.Equal(t, whole.Allocations, rep.Allocations)
			assert.True(t, rep.Totals.Surplus.Equal(whole.Totals.Surplus))
			assert.True(t, rep.Totals.Allocated.Equal(whole.Totals.Allocated))
		})
	}
}

func TestRun_MonthlyGranularity(t *testing.T) {
	svc := report.NewService(seed(t), report.DefaultOptions())

	rep, err := svc.Run(context.Background(), report.Query{
		From:        generic.NewTimePoint(2025, time.March, 1),
		To:          generic.NewTimePoint(2025, time.March, 30),
		Granularity: generic.GranularityMonthly,
	})
	require.NoError(t, err)

	// 3,100 TC over March in the monthly tier1 (1,501..4,200):
	// 54,000,000 + 1,600 * 40,000 against 31 * 3,000,000 paid
	require.Len(t, rep.Variances, 1)
	assert.Equal(t, generic.GranularityMonthly, rep.Variances[0].Granularity)
	assert.True(t, rep.Variances[0].TotalComputed.Equal(vnd(118_000_000)))
	assert.True(t, rep.Variances[0].TotalActual.Equal(vnd(93_000_000)))
	assert.True(t, rep.Variances[0].Surplus.Equal(vnd(25_000_000)))
}

func TestRun_WeekdayFilterOnlyNarrowsDailyView(t *testing.T) {
	svc := report.NewService(seed(t), report.DefaultOptions())

	rep, err := svc.Run(context.Background(), report.Query{
		From:     generic.NewTimePoint(2025, time.March, 1),
		To:       generic.NewTimePoint(2025, time.March, 31),
		Weekdays: []time.Weekday{time.Saturday, time.Sunday},
	})
	require.NoError(t, err)

	// March 2025 has 5 Saturdays and 5 Sundays
	assert.Len(t, rep.Daily, 10)
	for _, w := range rep.Daily {
		wd := w.Date.Weekday()
		assert.True(t, wd == time.Saturday || wd == time.Sunday)
	}
	require.Len(t, rep.Monthly, 1)
	assert.Equal(t, 31, rep.Monthly[0].Days)
}

func TestRun_StoreAndCostCenterFilters(t *testing.T) {
	svc := report.NewService(seed(t), report.DefaultOptions())

	rep, err := svc.Run(context.Background(), report.Query{
		From:        generic.NewTimePoint(2025, time.March, 1),
		To:          generic.NewTimePoint(2025, time.March, 2),
		CostCenters: []generic.CostCenterID{"PC2"},
	})
	require.NoError(t, err)
	assert.Empty(t, rep.Daily)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "S2", rep.Failures[0].Unit)

	rep, err = svc.Run(context.Background(), report.Query{
		From:   generic.NewTimePoint(2025, time.March, 1),
		To:     generic.NewTimePoint(2025, time.March, 2),
		Stores: []generic.StoreID{"S1"},
	})
	require.NoError(t, err)
	assert.Len(t, rep.Daily, 2)
	assert.Empty(t, rep.Failures)
}

func TestRun_DateRollupAndShiftScores(t *testing.T) {
	// GIVEN: ratings in both cost centers, one of them outside the window
	m := seed(t)
	rate := func(id string, st generic.StoreID, day int, weighted, weight int64) generic.ShiftScore {
		return generic.ShiftScore{
			CandidateID: id, Name: "Candidate " + id, Segment: "Freelancer", Store: st,
			Date:          generic.NewTimePoint(2025, time.March, day),
			WeightedScore: decimal.NewFromInt(weighted), Weight: decimal.NewFromInt(weight), Hours: decimal.NewFromInt(8),
		}
	}
	require.NoError(t, m.SaveShiftScores(context.Background(), []generic.ShiftScore{
		rate("C1", "S1", 3, 4, 1),
		rate("C1", "S1", 5, 10, 2),
		rate("C1", "S1", 12, 1, 1),
		rate("C2", "S2", 4, 5, 1),
	}))
	svc := report.NewService(m, report.DefaultOptions())

	// WHEN: the first week of PC1
	rep, err := svc.Run(context.Background(), report.Query{
		From:        generic.NewTimePoint(2025, time.March, 1),
		To:          generic.NewTimePoint(2025, time.March, 7),
		CostCenters: []generic.CostCenterID{"PC1"},
	})
	require.NoError(t, err)

	// THEN: one rollup row per day of the view
	require.Len(t, rep.ByDate, 7)
	for _, d := range rep.ByDate {
		assert.Equal(t, 1, d.Stores)
		assert.True(t, d.Computed.Equal(vnd(3_800_000)))
		assert.True(t, d.Actual.Equal(vnd(3_000_000)))
	}

	// AND: only C1's ratings inside the window, averaged by weight
	require.Len(t, rep.Scores, 1)
	c1 := rep.Scores[0]
	assert.Equal(t, "C1", c1.ID)
	assert.Equal(t, 2, c1.Shifts)
	require.NotNil(t, c1.Average)
	// (4 + 10) / (1 + 2)
	assert.InDelta(t, 4.666667, c1.Average.InexactFloat64(), 1e-6)

	// AND: both shifts fall in ISO week 10
	require.Len(t, rep.WeeklyScores, 1)
	assert.Equal(t, "2025-W10", rep.WeeklyScores[0].Week)
}

func TestRun_RejectsBadQueries(t *testing.T) {
	svc := report.NewService(store.NewMemory(), report.DefaultOptions())
	ctx := context.Background()

	_, err := svc.Run(ctx, report.Query{
		From: generic.NewTimePoint(2025, time.March, 2),
		To:   generic.NewTimePoint(2025, time.March, 1),
	})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = svc.Run(ctx, report.Query{})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = svc.Run(ctx, report.Query{
		From:        generic.NewTimePoint(2025, time.March, 1),
		To:          generic.NewTimePoint(2025, time.March, 1),
		Granularity: "weekly",
	})
	assert.ErrorIs(t, err, generic.ErrGranularityMismatch)

	_, err = svc.Run(ctx, report.Query{
		From:  generic.NewTimePoint(2025, time.March, 1),
		To:    generic.NewTimePoint(2025, time.March, 1),
		Basis: wage.TCBasis("median"),
	})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// MEMOIZATION
// =============================================================================

func TestRun_MemoizesByNormalizedQuery(t *testing.T) {
	svc := report.NewService(seed(t), report.DefaultOptions())
	ctx := context.Background()
	q := report.Query{
		From:   generic.NewTimePoint(2025, time.March, 1),
		To:     generic.NewTimePoint(2025, time.March, 5),
		Stores: []generic.StoreID{"S2", "S1", "S1"},
	}

	a, err := svc.Run(ctx, q)
	require.NoError(t, err)

	// Same selection, different spelling
	q.Stores = []generic.StoreID{"S1", "S2"}
	q.Basis = wage.BasisActual
	b, err := svc.Run(ctx, q)
	require.NoError(t, err)
	assert.Same(t, a, b)

	// Invalidate forces a fresh computation with equal results
	svc.Invalidate()
	c, err := svc.Run(ctx, q)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, a.Variances, c.Variances)
}

// pausingStore holds the first LoadTierRows after it has read the rows,
// so a write can land while a report is being computed.
type pausingStore struct {
	generic.Store
	once    sync.Once
	paused  chan struct{}
	release chan struct{}
}

func (p *pausingStore) LoadTierRows(ctx context.Context, stores []generic.StoreID) ([]generic.TierRow, error) {
	rows, err := p.Store.LoadTierRows(ctx, stores)
	p.once.Do(func() {
		close(p.paused)
		<-p.release
	})
	return rows, err
}

func TestRun_InvalidateDuringComputeIsNotMemoized(t *testing.T) {
	// GIVEN: a report computation that has already read the tiers
	m := seed(t)
	ps := &pausingStore{Store: m, paused: make(chan struct{}), release: make(chan struct{})}
	svc := report.NewService(ps, report.DefaultOptions())
	ctx := context.Background()
	q := report.MonthQuery(march)

	done := make(chan *report.Report)
	go func() {
		r, err := svc.Run(ctx, q)
		assert.NoError(t, err)
		done <- r
	}()
	<-ps.paused

	// WHEN: tier1 is repriced to 80,000/TC and the memo invalidated
	repriced := tiers("S1", "PC1")
	repriced[1].MarginalRate = vnd(80_000)
	require.NoError(t, m.SaveTierRows(ctx, repriced))
	svc.Invalidate()
	close(ps.release)
	stale := <-done
	require.NotNil(t, stale)

	// THEN: the next run sees the new rate, 1,800,000 + 50 x 80,000
	rep, err := svc.Run(ctx, q)
	require.NoError(t, err)
	assert.NotSame(t, stale, rep)
	require.NotEmpty(t, rep.Daily)
	assert.True(t, rep.Daily[0].Total.Equal(vnd(5_800_000)), "daily total = %s", rep.Daily[0].Total)
}

func TestRun_ConcurrentCallsAgree(t *testing.T) {
	svc := report.NewService(seed(t), report.DefaultOptions())
	q := report.MonthQuery(march)

	var wg sync.WaitGroup
	results := make([]*report.Report, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.Run(context.Background(), q)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Totals, r.Totals)
	}
}

// =============================================================================
// MONTH CLOSE
// =============================================================================

func TestCloseMonth_RecordsRun(t *testing.T) {
	m := seed(t)
	svc := report.NewService(m, report.DefaultOptions())
	ctx := context.Background()

	closed, err := m.IsMonthClosed(ctx, march)
	require.NoError(t, err)
	require.False(t, closed)

	run, rep, err := svc.CloseMonth(ctx, march, m)
	require.NoError(t, err)
	require.NotNil(t, rep)

	// 31 days: 31 * 800,000 surplus
	assert.Equal(t, generic.RunStatusCompleted, run.Status)
	assert.NotEmpty(t, run.ID)
	assert.True(t, run.TotalSurplus.Equal(vnd(24_800_000)))
	assert.True(t, run.TotalAllocated.Equal(run.TotalSurplus))
	assert.Equal(t, 1, run.FailureCount)

	runs, err := m.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	closed, err = m.IsMonthClosed(ctx, march)
	require.NoError(t, err)
	assert.True(t, closed)
}
