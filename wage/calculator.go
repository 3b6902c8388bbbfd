/*
Package wage computes the tiered ("khoán") wage of a store for a day or a
month.

PURPOSE:
  The computed wage is what a store earns for its activity volume:

    total    = base + marginal
    base     = the store's tier0 base wage (ALWAYS tier0, whatever band TC hits)
    marginal = (tc - band.lower + 1) * band.rate   when band.level > 0
             = 0                                   when band.level = 0

  The "+1" counts the TC that lands exactly on the lower bound as the first
  unit above baseline: tier1 51..140 at 40,000/TC with tc = 100 gives
  50 units, 2,000,000 marginal, 3,800,000 total on a 1,800,000 base.

GRANULARITY:
  Daily wages use daily TC against the daily bound set and the daily base.
  Monthly wages use the month's TC total against the monthly bound set and
  the monthly base (daily base * 30). The two are never mixed: a monthly
  wage is NOT the sum of daily wages.

TC BASIS:
  The TC fed into the formula can be preprocessed (see basis.go). The
  formula itself never changes.

SEE ALSO:
  - tier/schedule.go: Band lookup and bound derivation
  - variance/engine.go: Consumes Computed rows
*/
package wage

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/tier"
)

// =============================================================================
// COMPUTED - One derived wage row
// =============================================================================

// Computed is the wage of one store for one day (daily) or one calendar
// month (monthly). Date is zero for monthly rows.
type Computed struct {
	Brand       string
	Store       generic.StoreID
	CostCenter  generic.CostCenterID
	Date        generic.TimePoint
	Month       generic.Month
	Granularity generic.Granularity

	// TC is the value that was matched against the bands, after basis
	// preprocessing. Days is the number of activity days behind it.
	TC   int64
	Days int

	Tier      generic.Level
	TierLower int64
	Rate      generic.Amount

	Base     generic.Amount
	Marginal generic.Amount
	Total    generic.Amount
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator applies the wage formula. It holds no mutable state: the same
// inputs always produce the same rows.
type Calculator struct {
	Resolver *tier.Resolver
	Basis    TCBasis
	// Workers bounds how many stores are computed at once (0 = GOMAXPROCS).
	Workers int
}

func NewCalculator(resolver *tier.Resolver) *Calculator {
	return &Calculator{Resolver: resolver, Basis: BasisActual}
}

// Compute returns the wage of store for tc at granularity g.
func (c *Calculator) Compute(store generic.StoreID, tc int64, g generic.Granularity) (Computed, error) {
	s, err := c.Resolver.Schedule(store)
	if err != nil {
		return Computed{}, err
	}
	return computeWith(s, tc, g)
}

func computeWith(s *tier.Schedule, tc int64, g generic.Granularity) (Computed, error) {
	row, err := s.Match(tc, g)
	if err != nil {
		return Computed{}, err
	}

	base := s.Base(g)
	marginal := row.Marginal(tc, g)
	return Computed{
		Brand:       s.Brand,
		Store:       s.Store,
		CostCenter:  s.CostCenter,
		Granularity: g,
		TC:          tc,
		Tier:        row.Level,
		TierLower:   row.Bounds(g).Lower,
		Rate:        row.Rate,
		Base:        base,
		Marginal:    marginal,
		Total:       base.Add(marginal),
	}, nil
}

// =============================================================================
// BATCHES - One unit per store, stores computed concurrently
// =============================================================================

// ComputeDaily returns one row per store-day. A store without a valid
// schedule fails as a whole; a single bad day fails only that day.
func (c *Calculator) ComputeDaily(ctx context.Context, records []generic.ActivityRecord) (generic.Batch[Computed], error) {
	return generic.RunBatches(ctx, c.Workers, groupByStore(records), func(_ context.Context, in storeRecords) generic.Batch[Computed] {
		var out generic.Batch[Computed]
		s, err := c.Resolver.Schedule(in.store)
		if err != nil {
			out.Fail(string(in.store), err)
			return out
		}

		tcs, err := c.Basis.Apply(in.records)
		if err != nil {
			out.Fail(string(in.store), err)
			return out
		}
		for i, r := range in.records {
			w, err := computeWith(s, tcs[i], generic.GranularityDaily)
			if err != nil {
				out.Fail(fmt.Sprintf("%s/%s", r.Store, r.Date), err)
				continue
			}
			w.Date = r.Date
			w.Month = r.Date.CalendarMonth()
			w.Days = 1
			withRecordIDs(&w, r)
			out.Results = append(out.Results, w)
		}
		return out
	})
}

// ComputeMonthly sums the (basis-adjusted) daily TC of each store per
// calendar month and computes one monthly row per store-month.
func (c *Calculator) ComputeMonthly(ctx context.Context, records []generic.ActivityRecord) (generic.Batch[Computed], error) {
	return generic.RunBatches(ctx, c.Workers, groupByStore(records), func(_ context.Context, in storeRecords) generic.Batch[Computed] {
		var out generic.Batch[Computed]
		s, err := c.Resolver.Schedule(in.store)
		if err != nil {
			out.Fail(string(in.store), err)
			return out
		}

		tcs, err := c.Basis.Apply(in.records)
		if err != nil {
			out.Fail(string(in.store), err)
			return out
		}

		type acc struct {
			tc   int64
			days int
			rec  generic.ActivityRecord
		}
		var months []generic.Month
		byMonth := make(map[generic.Month]*acc)
		for i, r := range in.records {
			m := r.Date.CalendarMonth()
			a, ok := byMonth[m]
			if !ok {
				a = &acc{rec: r}
				byMonth[m] = a
				months = append(months, m)
			}
			a.tc += tcs[i]
			a.days++
		}

		for _, m := range months {
			a := byMonth[m]
			w, err := computeWith(s, a.tc, generic.GranularityMonthly)
			if err != nil {
				out.Fail(fmt.Sprintf("%s/%s", in.store, m), err)
				continue
			}
			w.Month = m
			w.Days = a.days
			withRecordIDs(&w, a.rec)
			out.Results = append(out.Results, w)
		}
		return out
	})
}

// withRecordIDs prefers the identifiers carried by the activity record over
// the schedule's.
func withRecordIDs(w *Computed, r generic.ActivityRecord) {
	if r.CostCenter != "" {
		w.CostCenter = r.CostCenter
	}
	if r.Brand != "" {
		w.Brand = r.Brand
	}
}

type storeRecords struct {
	store   generic.StoreID
	records []generic.ActivityRecord
}

// groupByStore returns stores in ascending order, each with its records
// sorted by date. The input slice is not modified.
func groupByStore(records []generic.ActivityRecord) []storeRecords {
	byStore := make(map[generic.StoreID][]generic.ActivityRecord)
	for _, r := range records {
		byStore[r.Store] = append(byStore[r.Store], r)
	}
	out := make([]storeRecords, 0, len(byStore))
	for s, rs := range byStore {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Date.Before(rs[j].Date) })
		out = append(out, storeRecords{store: s, records: rs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].store < out[j].store })
	return out
}

// SumTotals adds up the Total of rows.
func SumTotals(rows []Computed) generic.Amount {
	sum := generic.ZeroMoney()
	for _, r := range rows {
		sum = sum.Add(r.Total)
	}
	return sum
}
