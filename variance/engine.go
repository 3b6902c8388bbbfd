/*
Package variance reconciles computed wages against actual wages.

PURPOSE:
  For each cost-center-month the engine sums the computed ("khoán") wage
  and the actual direct wage paid. The difference, when positive, is the
  surplus that the allocation engine distributes to employees:

    surplus = max(0, total_computed - total_actual)

  A negative difference is clamped to zero. There is no claw-back and
  nothing is carried into the next month: every cost-center-month stands
  alone.

GUARDS:
  A record is only meaningful over ONE granularity and ONE calendar month
  of ONE cost center. Mixing daily and monthly computed rows, rows from
  another month, or rows from another cost center fails that unit.

SEE ALSO:
  - daily.go: Signed per store-day differences and store summaries
  - allocation/engine.go: Consumes Record.Surplus
*/
package variance

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/wage"
)

// =============================================================================
// RECORD
// =============================================================================

// Record is the reconciliation of one cost-center-month.
type Record struct {
	CostCenter  generic.CostCenterID
	Month       generic.Month
	Granularity generic.Granularity

	TotalComputed generic.Amount
	TotalActual   generic.Amount
	// Difference is computed - actual, signed.
	Difference generic.Amount
	// Surplus is Difference clamped at zero.
	Surplus generic.Amount

	Stores []generic.StoreID
}

// Key identifies a cost-center-month.
type Key struct {
	CostCenter generic.CostCenterID
	Month      generic.Month
}

func (k Key) String() string { return fmt.Sprintf("%s/%s", k.CostCenter, k.Month) }

func (k Key) less(o Key) bool {
	if k.Month != o.Month {
		return k.Month.Before(o.Month)
	}
	return k.CostCenter < o.CostCenter
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	// Workers bounds concurrent cost-center-months in ComputeAll.
	Workers int
}

// Compute reconciles one cost-center-month. computed rows must all share one
// granularity; computed and actual rows must all belong to costCenter and
// month.
func (e *Engine) Compute(costCenter generic.CostCenterID, month generic.Month, computed []wage.Computed, actual []generic.ActivityRecord) (Record, error) {
	rec := Record{
		CostCenter:    costCenter,
		Month:         month,
		TotalComputed: generic.ZeroMoney(),
		TotalActual:   generic.ZeroMoney(),
	}

	stores := make(map[generic.StoreID]bool)
	for i, c := range computed {
		if i == 0 {
			rec.Granularity = c.Granularity
		} else if c.Granularity != rec.Granularity {
			return Record{}, &generic.GranularityMismatchError{
				Expected: rec.Granularity,
				Got:      c.Granularity,
				Reason:   fmt.Sprintf("%s mixes %s and %s computed rows", Key{costCenter, month}, rec.Granularity, c.Granularity),
			}
		}
		if c.CostCenter != costCenter {
			return Record{}, fmt.Errorf("%w: computed row of store %s is in %s, not %s",
				generic.ErrCostCenterMismatch, c.Store, c.CostCenter, costCenter)
		}
		if rowMonth(c) != month {
			return Record{}, fmt.Errorf("%w: computed row of store %s for %s in %s",
				generic.ErrCrossMonth, c.Store, rowMonth(c), month)
		}
		rec.TotalComputed = rec.TotalComputed.Add(c.Total)
		stores[c.Store] = true
	}

	for _, a := range actual {
		if a.CostCenter != costCenter {
			return Record{}, fmt.Errorf("%w: activity of store %s is in %s, not %s",
				generic.ErrCostCenterMismatch, a.Store, a.CostCenter, costCenter)
		}
		if !month.Contains(a.Date) {
			return Record{}, fmt.Errorf("%w: activity of store %s on %s in %s",
				generic.ErrCrossMonth, a.Store, a.Date, month)
		}
		rec.TotalActual = rec.TotalActual.Add(a.ActualWagePaid)
		stores[a.Store] = true
	}

	rec.Difference = rec.TotalComputed.Sub(rec.TotalActual)
	rec.Surplus = rec.Difference.ClampZero()
	rec.Stores = sortedStores(stores)
	return rec, nil
}

// rowMonth is the calendar month a computed row belongs to.
func rowMonth(c wage.Computed) generic.Month {
	if c.Granularity == generic.GranularityDaily && !c.Date.IsZero() {
		return c.Date.CalendarMonth()
	}
	return c.Month
}

// ComputeAll groups computed rows by cost-center-month and reconciles each
// group. Actual wages are only counted for stores that have computed rows
// in the group: a store that failed wage computation would otherwise show
// its whole actual wage as an unexplained deficit.
//
// Records are ordered by month, then cost center.
func (e *Engine) ComputeAll(ctx context.Context, computed []wage.Computed, actual []generic.ActivityRecord) (generic.Batch[Record], error) {
	type unit struct {
		key      Key
		computed []wage.Computed
		actual   []generic.ActivityRecord
	}

	byKey := make(map[Key]*unit)
	for _, c := range computed {
		k := Key{CostCenter: c.CostCenter, Month: rowMonth(c)}
		u, ok := byKey[k]
		if !ok {
			u = &unit{key: k}
			byKey[k] = u
		}
		u.computed = append(u.computed, c)
	}

	type storeMonth struct {
		store generic.StoreID
		month generic.Month
	}
	covered := make(map[storeMonth]Key)
	for k, u := range byKey {
		for _, c := range u.computed {
			covered[storeMonth{c.Store, k.Month}] = k
		}
	}
	for _, a := range actual {
		k, ok := covered[storeMonth{a.Store, a.Date.CalendarMonth()}]
		if !ok {
			continue
		}
		// Keyed by the computed row's cost center; a disagreeing activity
		// row is rejected by Compute.
		byKey[k].actual = append(byKey[k].actual, a)
	}

	units := make([]*unit, 0, len(byKey))
	for _, u := range byKey {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].key.less(units[j].key) })

	return generic.RunUnits(ctx, e.Workers, units,
		func(u *unit) string { return u.key.String() },
		func(_ context.Context, u *unit) ([]Record, error) {
			rec, err := e.Compute(u.key.CostCenter, u.key.Month, u.computed, u.actual)
			if err != nil {
				return nil, err
			}
			return []Record{rec}, nil
		})
}

// SumSurplus adds up the surplus of records.
func SumSurplus(records []Record) generic.Amount {
	sum := generic.ZeroMoney()
	for _, r := range records {
		sum = sum.Add(r.Surplus)
	}
	return sum
}

func sortedStores(set map[generic.StoreID]bool) []generic.StoreID {
	out := make([]generic.StoreID, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
