package variance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/variance"
	"github.com/warp/wage-engine/wage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var march = generic.NewMonth(2025, time.March)

func vnd(n int64) generic.Amount { return generic.NewMoneyFromInt(n) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) generic.TimePoint { return generic.NewTimePoint(2025, time.March, d) }

func dailyWage(store generic.StoreID, cc generic.CostCenterID, date generic.TimePoint, total int64) wage.Computed {
	return wage.Computed{
		Store:       store,
		CostCenter:  cc,
		Date:        date,
		Month:       date.CalendarMonth(),
		Granularity: generic.GranularityDaily,
		Total:       vnd(total),
	}
}

func monthlyWage(store generic.StoreID, cc generic.CostCenterID, m generic.Month, total int64) wage.Computed {
	return wage.Computed{
		Store:       store,
		CostCenter:  cc,
		Month:       m,
		Granularity: generic.GranularityMonthly,
		Total:       vnd(total),
	}
}

func paid(store generic.StoreID, cc generic.CostCenterID, date generic.TimePoint, amount int64) generic.ActivityRecord {
	return generic.ActivityRecord{Store: store, CostCenter: cc, Date: date, ActualWagePaid: vnd(amount)}
}

// =============================================================================
// COMPUTE
// =============================================================================

func TestCompute_ClampsNegativeVariance(t *testing.T) {
	// GIVEN: computed 100,000,000 vs actual 120,000,000
	e := &variance.Engine{}
	computed := []wage.Computed{monthlyWage("S1", "PC1", march, 100_000_000)}
	actual := []generic.ActivityRecord{
		paid("S1", "PC1", day(1), 60_000_000),
		paid("S1", "PC1", day(2), 60_000_000),
	}

	// WHEN
	rec, err := e.Compute("PC1", march, computed, actual)
	require.NoError(t, err)

	// THEN: surplus is zero, not negative
	assert.True(t, rec.Surplus.IsZero(), "surplus = %s", rec.Surplus)
	assert.True(t, rec.Difference.Equal(vnd(-20_000_000)))
	assert.True(t, rec.TotalComputed.Equal(vnd(100_000_000)))
	assert.True(t, rec.TotalActual.Equal(vnd(120_000_000)))
	assert.Equal(t, generic.GranularityMonthly, rec.Granularity)
}

func TestCompute_PositiveSurplus(t *testing.T) {
	e := &variance.Engine{}
	computed := []wage.Computed{
		dailyWage("S1", "PC1", day(1), 3_800_000),
		dailyWage("S1", "PC1", day(2), 4_000_000),
	}
	actual := []generic.ActivityRecord{
		paid("S1", "PC1", day(1), 3_000_000),
		paid("S1", "PC1", day(2), 3_500_000),
	}

	rec, err := e.Compute("PC1", march, computed, actual)
	require.NoError(t, err)
	assert.True(t, rec.Surplus.Equal(vnd(1_300_000)))
	assert.Equal(t, []generic.StoreID{"S1"}, rec.Stores)
}

func TestCompute_RejectsMixedGranularity(t *testing.T) {
	e := &variance.Engine{}
	computed := []wage.Computed{
		dailyWage("S1", "PC1", day(1), 1),
		monthlyWage("S1", "PC1", march, 1),
	}

	_, err := e.Compute("PC1", march, computed, nil)
	assert.ErrorIs(t, err, generic.ErrGranularityMismatch)

	var gm *generic.GranularityMismatchError
	require.ErrorAs(t, err, &gm)
	assert.Equal(t, generic.GranularityDaily, gm.Expected)
	assert.Equal(t, generic.GranularityMonthly, gm.Got)
}

func TestCompute_RejectsCrossMonth(t *testing.T) {
	e := &variance.Engine{}

	_, err := e.Compute("PC1", march,
		[]wage.Computed{dailyWage("S1", "PC1", generic.NewTimePoint(2025, time.April, 1), 1)}, nil)
	assert.ErrorIs(t, err, generic.ErrCrossMonth)

	_, err = e.Compute("PC1", march, nil,
		[]generic.ActivityRecord{paid("S1", "PC1", generic.NewTimePoint(2025, time.February, 28), 1)})
	assert.ErrorIs(t, err, generic.ErrCrossMonth)
}

func TestCompute_RejectsOtherCostCenter(t *testing.T) {
	e := &variance.Engine{}

	_, err := e.Compute("PC1", march, []wage.Computed{dailyWage("S2", "PC2", day(1), 1)}, nil)
	assert.ErrorIs(t, err, generic.ErrCostCenterMismatch)
}

// =============================================================================
// COMPUTE ALL
// =============================================================================

func TestComputeAll_GroupsByCostCenterMonth(t *testing.T) {
	// GIVEN: two cost centers in March, one also in April, and an actual
	// row of a store that has no computed wage (its tiers were missing)
	e := &variance.Engine{Workers: 2}
	april := generic.NewTimePoint(2025, time.April, 1)
	computed := []wage.Computed{
		dailyWage("S2", "PC2", day(1), 5_000_000),
		dailyWage("S1", "PC1", day(1), 4_000_000),
		dailyWage("S1", "PC1", april, 2_000_000),
	}
	actual := []generic.ActivityRecord{
		paid("S1", "PC1", day(1), 3_000_000),
		paid("S1", "PC1", april, 2_500_000),
		paid("S2", "PC2", day(1), 1_000_000),
		paid("S9", "PC2", day(1), 9_000_000),
	}

	// WHEN
	batch, err := e.ComputeAll(context.Background(), computed, actual)
	require.NoError(t, err)
	require.True(t, batch.OK())

	// THEN: ordered by month, then cost center
	require.Len(t, batch.Results, 3)
	assert.Equal(t, generic.CostCenterID("PC1"), batch.Results[0].CostCenter)
	assert.Equal(t, march, batch.Results[0].Month)
	assert.True(t, batch.Results[0].Surplus.Equal(vnd(1_000_000)))

	assert.Equal(t, generic.CostCenterID("PC2"), batch.Results[1].CostCenter)
	// S9 has no computed wage and is excluded from the actual total
	assert.True(t, batch.Results[1].TotalActual.Equal(vnd(1_000_000)))
	assert.True(t, batch.Results[1].Surplus.Equal(vnd(4_000_000)))

	assert.Equal(t, generic.NewMonth(2025, time.April), batch.Results[2].Month)
	assert.True(t, batch.Results[2].Surplus.IsZero())

	assert.True(t, variance.SumSurplus(batch.Results).Equal(vnd(5_000_000)))
}

func TestComputeAll_FailsOnlyTheBrokenUnit(t *testing.T) {
	e := &variance.Engine{}
	computed := []wage.Computed{
		dailyWage("S1", "PC1", day(1), 1),
		monthlyWage("S1", "PC1", march, 1),
		dailyWage("S2", "PC2", day(1), 10),
	}

	batch, err := e.ComputeAll(context.Background(), computed, nil)
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, generic.CostCenterID("PC2"), batch.Results[0].CostCenter)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "PC1/2025-03", batch.Failures[0].Unit)
	assert.ErrorIs(t, batch.Failures[0], generic.ErrGranularityMismatch)
}

// =============================================================================
// DAILY
// =============================================================================

func TestDaily_SignedDifferenceAndFloor(t *testing.T) {
	computed := []wage.Computed{
		dailyWage("S1", "PC1", day(2), 3_000_000),
		dailyWage("S1", "PC1", day(1), 3_800_000),
	}
	activity := []generic.ActivityRecord{
		paid("S1", "PC1", day(1), 3_000_000),
		paid("S1", "PC1", day(2), 3_500_000),
		paid("S1", "PC1", day(3), 3_500_000), // no computed wage
	}

	rows := variance.Daily(computed, activity, variance.DefaultCaps())
	require.Len(t, rows, 2)

	assert.Equal(t, day(1), rows[0].Date)
	assert.True(t, rows[0].Difference.Equal(vnd(800_000)))
	assert.True(t, rows[0].Floor.Equal(vnd(3_000_000)))

	assert.True(t, rows[1].Difference.Equal(vnd(-500_000)))
	assert.True(t, rows[1].AbsDifference.Equal(vnd(500_000)))
	assert.True(t, rows[1].Floor.Equal(vnd(3_000_000)))
}

func TestCaps_Check(t *testing.T) {
	caps := variance.DefaultCaps()

	// GIVEN: baseline forecast 100h, scheduled 75h, actual 80h, marketplace 31h
	a := generic.ActivityRecord{
		BaselineHoursForecast: dec("100"),
		HoursScheduled:        dec("75"),
		HoursActual:           dec("80"),
		HoursMarketplace:      dec("31"),
	}
	f := caps.Check(a)
	assert.True(t, f.ScheduledOverCap)
	assert.True(t, f.ActualOverScheduled)
	assert.True(t, f.MarketplaceOverCap)

	// AND: exactly at the caps is allowed
	a.HoursScheduled, a.HoursActual, a.HoursMarketplace = dec("70"), dec("70"), dec("30")
	assert.False(t, caps.Check(a).Any())

	// AND: no baseline, no baseline flags
	a.BaselineHoursForecast = decimal.Zero
	a.HoursMarketplace = dec("500")
	assert.False(t, caps.Check(a).MarketplaceOverCap)
}

func TestSummarize(t *testing.T) {
	computed := []wage.Computed{
		dailyWage("S1", "PC1", day(1), 4_000_000),
		dailyWage("S1", "PC1", day(2), 2_000_000),
	}
	activity := []generic.ActivityRecord{
		{Store: "S1", CostCenter: "PC1", Date: day(1), TCActual: 100, ActualWagePaid: vnd(3_000_000),
			HoursActual: dec("60"), HoursMarketplace: dec("20"), BaselineHoursActual: dec("100"), BaselineHoursForecast: dec("100")},
		{Store: "S1", CostCenter: "PC1", Date: day(2), TCActual: 50, ActualWagePaid: vnd(2_000_000),
			HoursActual: dec("40"), HoursMarketplace: dec("0"), BaselineHoursActual: dec("100"), BaselineHoursForecast: dec("100")},
	}

	rows := variance.Daily(computed, activity, variance.DefaultCaps())
	sums := variance.Summarize(rows)
	require.Len(t, sums, 1)
	s := sums[0]

	assert.Equal(t, 2, s.Days)
	assert.True(t, s.Sum.TCActual.Equal(dec("150")))
	assert.True(t, s.Sum.Difference.Equal(vnd(1_000_000)))
	assert.True(t, s.Sum.TotalHours.Equal(dec("120")))
	assert.True(t, s.Average.Computed.Equal(vnd(3_000_000)))
	assert.True(t, s.Average.TCActual.Equal(dec("75")))

	// 120h against a 200h baseline is 40% under
	require.NotNil(t, s.Sum.HoursVsBaselinePct)
	assert.True(t, s.Sum.HoursVsBaselinePct.Equal(dec("-40")), "got %s", s.Sum.HoursVsBaselinePct)
	require.NotNil(t, s.Average.HoursVsBaselinePct)
	assert.True(t, s.Average.HoursVsBaselinePct.Equal(dec("-40")))

	require.NotNil(t, s.Sum.MarketplaceVsBaselinePct)
	assert.True(t, s.Sum.MarketplaceVsBaselinePct.Equal(dec("10")))
}

func TestByDate_SumsStoresPerDay(t *testing.T) {
	// GIVEN: S1 overpaid and S2 underpaid on the 1st, S1 alone on the 2nd
	computed := []wage.Computed{
		dailyWage("S1", "PC1", day(1), 4_000_000),
		dailyWage("S2", "PC1", day(1), 2_000_000),
		dailyWage("S1", "PC1", day(2), 3_000_000),
	}
	activity := []generic.ActivityRecord{
		{Store: "S1", CostCenter: "PC1", Date: day(1), TCActual: 100, TCForecast: 90,
			ActualWagePaid: vnd(3_000_000), HoursActual: dec("60"), HoursMarketplace: dec("10")},
		{Store: "S2", CostCenter: "PC1", Date: day(1), TCActual: 50, TCForecast: 60,
			ActualWagePaid: vnd(2_500_000), HoursActual: dec("40"), HoursMarketplace: dec("5")},
		paid("S1", "PC1", day(2), 3_000_000),
	}

	// WHEN
	dates := variance.ByDate(variance.Daily(computed, activity, variance.DefaultCaps()))

	// THEN: one row per day, in date order
	require.Len(t, dates, 2)
	first := dates[0]
	assert.Equal(t, day(1), first.Date)
	assert.Equal(t, 2, first.Stores)
	assert.Equal(t, int64(150), first.TCActual)
	assert.Equal(t, int64(150), first.TCForecast)
	assert.True(t, first.Computed.Equal(vnd(6_000_000)))
	assert.True(t, first.Actual.Equal(vnd(5_500_000)))
	// +1.0M and -0.5M net to +0.5M but the gaps add up to 1.5M
	assert.True(t, first.Difference.Equal(vnd(500_000)))
	assert.True(t, first.AbsDifference.Equal(vnd(1_500_000)))
	assert.True(t, first.Floor.Equal(vnd(5_000_000)))
	assert.True(t, first.TotalHours.Equal(dec("115")))

	assert.Equal(t, day(2), dates[1].Date)
	assert.Equal(t, 1, dates[1].Stores)
	assert.True(t, dates[1].Difference.IsZero())
}

func TestWindowTotals(t *testing.T) {
	rows := []variance.DailyRow{
		{Computed: vnd(5), Actual: vnd(3)},
		{Computed: vnd(1), Actual: vnd(4)},
	}
	records := []variance.Record{{Surplus: vnd(2)}, {Surplus: vnd(0)}}

	tot := variance.WindowTotals(rows, records)
	assert.True(t, tot.Computed.Equal(vnd(6)))
	assert.True(t, tot.Actual.Equal(vnd(7)))
	assert.True(t, tot.Difference.Equal(vnd(-1)))
	assert.True(t, tot.Surplus.Equal(vnd(2)))
}
