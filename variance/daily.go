package variance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/wage"
)

// =============================================================================
// DAILY ROWS - Signed per store-day reconciliation
// =============================================================================

// DailyRow joins one store-day of activity with its computed daily wage.
// Unlike Record, Difference here is NOT clamped: the daily table shows
// days the store was underpaid and days it was overpaid.
type DailyRow struct {
	Brand      string
	Store      generic.StoreID
	CostCenter generic.CostCenterID
	Date       generic.TimePoint

	TCActual   int64
	TCForecast int64
	Tier       generic.Level

	Computed generic.Amount
	Actual   generic.Amount
	// Difference = Computed - Actual.
	Difference generic.Amount
	// Floor is the smaller of Computed and Actual; Floor + AbsDifference is
	// the larger. Charts stack the two.
	Floor         generic.Amount
	AbsDifference generic.Amount

	HoursScheduled        decimal.Decimal
	HoursActual           decimal.Decimal
	HoursMarketplace      decimal.Decimal
	TotalHours            decimal.Decimal
	BaselineHoursActual   decimal.Decimal
	BaselineHoursForecast decimal.Decimal

	Flags HourFlags
}

// Daily joins daily computed rows to their activity records by store and
// date. Activity without a computed row (failed store or day) is skipped;
// so are monthly rows. Output is ordered by store, then date.
func Daily(computed []wage.Computed, activity []generic.ActivityRecord, caps Caps) []DailyRow {
	type storeDay struct {
		store generic.StoreID
		date  string
	}
	byDay := make(map[storeDay]wage.Computed, len(computed))
	for _, c := range computed {
		if c.Granularity != generic.GranularityDaily {
			continue
		}
		byDay[storeDay{c.Store, c.Date.String()}] = c
	}

	rows := make([]DailyRow, 0, len(byDay))
	for _, a := range activity {
		c, ok := byDay[storeDay{a.Store, a.Date.String()}]
		if !ok {
			continue
		}
		diff := c.Total.Sub(a.ActualWagePaid)
		rows = append(rows, DailyRow{
			Brand:                 firstNonEmpty(a.Brand, c.Brand),
			Store:                 a.Store,
			CostCenter:            c.CostCenter,
			Date:                  a.Date,
			TCActual:              a.TCActual,
			TCForecast:            a.TCForecast,
			Tier:                  c.Tier,
			Computed:              c.Total,
			Actual:                a.ActualWagePaid,
			Difference:            diff,
			Floor:                 c.Total.Min(a.ActualWagePaid),
			AbsDifference:         diff.Abs(),
			HoursScheduled:        a.HoursScheduled,
			HoursActual:           a.HoursActual,
			HoursMarketplace:      a.HoursMarketplace,
			TotalHours:            a.TotalHours(),
			BaselineHoursActual:   a.BaselineHoursActual,
			BaselineHoursForecast: a.BaselineHoursForecast,
			Flags:                 caps.Check(a),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Store != rows[j].Store {
			return rows[i].Store < rows[j].Store
		}
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

// =============================================================================
// HOUR CAPS
// =============================================================================

// Caps are the scheduling limits relative to the forecast baseline hours:
// scheduled hours may be at most Scheduled * baseline, marketplace hours at
// most Marketplace * baseline, and actual hours at most the scheduled hours.
type Caps struct {
	Scheduled   decimal.Decimal
	Marketplace decimal.Decimal
}

// DefaultCaps are 70% scheduled and 30% marketplace.
func DefaultCaps() Caps {
	return Caps{
		Scheduled:   decimal.RequireFromString("0.7"),
		Marketplace: decimal.RequireFromString("0.3"),
	}
}

// HourFlags marks store-days that break a cap. Days without a forecast
// baseline are never flagged against it.
type HourFlags struct {
	ScheduledOverCap    bool
	ActualOverScheduled bool
	MarketplaceOverCap  bool
}

func (f HourFlags) Any() bool {
	return f.ScheduledOverCap || f.ActualOverScheduled || f.MarketplaceOverCap
}

func (c Caps) Check(a generic.ActivityRecord) HourFlags {
	var f HourFlags
	if base := a.BaselineHoursForecast; base.IsPositive() {
		f.ScheduledOverCap = a.HoursScheduled.GreaterThan(base.Mul(c.Scheduled))
		f.MarketplaceOverCap = a.HoursMarketplace.GreaterThan(base.Mul(c.Marketplace))
	}
	f.ActualOverScheduled = a.HoursScheduled.IsPositive() && a.HoursActual.GreaterThan(a.HoursScheduled)
	return f
}

// =============================================================================
// STORE SUMMARY
// =============================================================================

// Aggregate holds the sums (or the means) of the daily columns of a store.
type Aggregate struct {
	TCActual              decimal.Decimal
	TCForecast            decimal.Decimal
	Computed              generic.Amount
	Actual                generic.Amount
	Difference            generic.Amount
	HoursScheduled        decimal.Decimal
	HoursActual           decimal.Decimal
	HoursMarketplace      decimal.Decimal
	TotalHours            decimal.Decimal
	BaselineHoursActual   decimal.Decimal
	BaselineHoursForecast decimal.Decimal

	// HoursVsBaselinePct = TotalHours / BaselineHoursActual * 100 - 100.
	// Nil when the baseline is zero.
	HoursVsBaselinePct *decimal.Decimal
	// MarketplaceSharePct = HoursMarketplace / TotalHours * 100.
	MarketplaceSharePct *decimal.Decimal
	// MarketplaceVsBaselinePct = HoursMarketplace / BaselineHoursForecast * 100.
	MarketplaceVsBaselinePct *decimal.Decimal
}

// Summary is one store's window in sum and mean form.
type Summary struct {
	Brand       string
	Store       generic.StoreID
	CostCenter  generic.CostCenterID
	Days        int
	FlaggedDays int

	Sum     Aggregate
	Average Aggregate
}

// Summarize rolls daily rows up per store. Rows must come from Daily.
func Summarize(rows []DailyRow) []Summary {
	var order []generic.StoreID
	byStore := make(map[generic.StoreID]*Summary)
	for _, r := range rows {
		s, ok := byStore[r.Store]
		if !ok {
			s = &Summary{Brand: r.Brand, Store: r.Store, CostCenter: r.CostCenter, Sum: zeroAggregate()}
			byStore[r.Store] = s
			order = append(order, r.Store)
		}
		s.Days++
		if r.Flags.Any() {
			s.FlaggedDays++
		}
		a := &s.Sum
		a.TCActual = a.TCActual.Add(decimal.NewFromInt(r.TCActual))
		a.TCForecast = a.TCForecast.Add(decimal.NewFromInt(r.TCForecast))
		a.Computed = a.Computed.Add(r.Computed)
		a.Actual = a.Actual.Add(r.Actual)
		a.Difference = a.Difference.Add(r.Difference)
		a.HoursScheduled = a.HoursScheduled.Add(r.HoursScheduled)
		a.HoursActual = a.HoursActual.Add(r.HoursActual)
		a.HoursMarketplace = a.HoursMarketplace.Add(r.HoursMarketplace)
		a.TotalHours = a.TotalHours.Add(r.TotalHours)
		a.BaselineHoursActual = a.BaselineHoursActual.Add(r.BaselineHoursActual)
		a.BaselineHoursForecast = a.BaselineHoursForecast.Add(r.BaselineHoursForecast)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]Summary, 0, len(order))
	for _, store := range order {
		s := byStore[store]
		s.Sum.ratios()
		s.Average = s.Sum.mean(s.Days)
		s.Average.ratios()
		out = append(out, *s)
	}
	return out
}

func zeroAggregate() Aggregate {
	return Aggregate{
		Computed:   generic.ZeroMoney(),
		Actual:     generic.ZeroMoney(),
		Difference: generic.ZeroMoney(),
	}
}

func (a Aggregate) mean(days int) Aggregate {
	if days == 0 {
		return zeroAggregate()
	}
	n := decimal.NewFromInt(int64(days))
	return Aggregate{
		TCActual:              a.TCActual.Div(n),
		TCForecast:            a.TCForecast.Div(n),
		Computed:              a.Computed.Div(n),
		Actual:                a.Actual.Div(n),
		Difference:            a.Difference.Div(n),
		HoursScheduled:        a.HoursScheduled.Div(n),
		HoursActual:           a.HoursActual.Div(n),
		HoursMarketplace:      a.HoursMarketplace.Div(n),
		TotalHours:            a.TotalHours.Div(n),
		BaselineHoursActual:   a.BaselineHoursActual.Div(n),
		BaselineHoursForecast: a.BaselineHoursForecast.Div(n),
	}
}

var hundred = decimal.NewFromInt(100)

func (a *Aggregate) ratios() {
	a.HoursVsBaselinePct = nil
	a.MarketplaceSharePct = nil
	a.MarketplaceVsBaselinePct = nil
	if a.BaselineHoursActual.IsPositive() {
		v := a.TotalHours.Div(a.BaselineHoursActual).Mul(hundred).Sub(hundred)
		a.HoursVsBaselinePct = &v
	}
	if a.TotalHours.IsPositive() {
		v := a.HoursMarketplace.Div(a.TotalHours).Mul(hundred)
		a.MarketplaceSharePct = &v
	}
	if a.BaselineHoursForecast.IsPositive() {
		v := a.HoursMarketplace.Div(a.BaselineHoursForecast).Mul(hundred)
		a.MarketplaceVsBaselinePct = &v
	}
}

// =============================================================================
// DATE ROLLUP - All stores of a day
// =============================================================================

// DateRow sums every store of one day. Floor and AbsDifference are sums of
// the per-store values, so a chart stacking them shows each store's gap.
type DateRow struct {
	Date   generic.TimePoint
	Stores int

	TCActual      int64
	TCForecast    int64
	Computed      generic.Amount
	Actual        generic.Amount
	Difference    generic.Amount
	Floor         generic.Amount
	AbsDifference generic.Amount

	HoursActual           decimal.Decimal
	HoursMarketplace      decimal.Decimal
	TotalHours            decimal.Decimal
	BaselineHoursActual   decimal.Decimal
	BaselineHoursForecast decimal.Decimal
}

// ByDate rolls daily rows up across stores, ordered by date.
func ByDate(rows []DailyRow) []DateRow {
	byDay := make(map[string]*DateRow)
	for _, r := range rows {
		d, ok := byDay[r.Date.String()]
		if !ok {
			zero := generic.ZeroMoney()
			d = &DateRow{Date: r.Date, Computed: zero, Actual: zero, Difference: zero, Floor: zero, AbsDifference: zero}
			byDay[r.Date.String()] = d
		}
		d.Stores++
		d.TCActual += r.TCActual
		d.TCForecast += r.TCForecast
		d.Computed = d.Computed.Add(r.Computed)
		d.Actual = d.Actual.Add(r.Actual)
		d.Difference = d.Difference.Add(r.Difference)
		d.Floor = d.Floor.Add(r.Floor)
		d.AbsDifference = d.AbsDifference.Add(r.AbsDifference)
		d.HoursActual = d.HoursActual.Add(r.HoursActual)
		d.HoursMarketplace = d.HoursMarketplace.Add(r.HoursMarketplace)
		d.TotalHours = d.TotalHours.Add(r.TotalHours)
		d.BaselineHoursActual = d.BaselineHoursActual.Add(r.BaselineHoursActual)
		d.BaselineHoursForecast = d.BaselineHoursForecast.Add(r.BaselineHoursForecast)
	}

	out := make([]DateRow, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// =============================================================================
// TOTALS - Window headline
// =============================================================================

// Totals is the headline of a window: what was computed, what was paid.
type Totals struct {
	Computed   generic.Amount
	Actual     generic.Amount
	Difference generic.Amount
	Surplus    generic.Amount
}

// WindowTotals sums the daily rows and the cost-center-month surpluses.
func WindowTotals(rows []DailyRow, records []Record) Totals {
	t := Totals{Computed: generic.ZeroMoney(), Actual: generic.ZeroMoney()}
	for _, r := range rows {
		t.Computed = t.Computed.Add(r.Computed)
		t.Actual = t.Actual.Add(r.Actual)
	}
	t.Difference = t.Computed.Sub(t.Actual)
	t.Surplus = SumSurplus(records)
	return t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
