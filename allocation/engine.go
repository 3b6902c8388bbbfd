/*
Package allocation distributes a cost-center-month's surplus to its
employees.

PURPOSE:
  Each employee's share is proportional to their weighted hours:

    weighted = hours * category weight
    ratio    = weighted / sum(weighted over the cost-center-month)
    bonus    = ratio * surplus

  Category weights come from a table (default: 1.1 -> 2.0, 1.2 -> 1.0,
  2 -> 0.7). An employee in a category the table does not know fails the
  whole cost-center-month: dropping them would silently enlarge everyone
  else's share.

CONSERVATION:
  Bonuses keep full decimal precision; rounding to currency units is a
  display concern (api/dto.go, export/workbook.go). The division residual,
  a few units in the 16th decimal place, goes to the employee with the
  most weighted hours, so the bonuses of a cost-center-month add up to
  its surplus exactly and every bonus stays within 1e-6 of
  ratio * surplus.

NO BASE:
  Surplus > 0 with zero total weighted hours cannot be distributed. It is
  returned as NoAllocationBaseError and reported as unallocated, never
  dropped.

SEE ALSO:
  - variance/engine.go: Produces the surplus
  - weights.go: Category weight table
*/
package allocation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/variance"
)

// =============================================================================
// ALLOCATION
// =============================================================================

// Allocation is one employee's share of a cost-center-month's surplus.
type Allocation struct {
	EmployeeID generic.EmployeeID
	Name       string
	Title      string
	CostCenter generic.CostCenterID
	Store      generic.StoreID
	Month      generic.Month
	Category   string

	CategoryWeight decimal.Decimal
	Hours          decimal.Decimal
	WeightedHours  decimal.Decimal
	Ratio          decimal.Decimal
	Bonus          generic.Amount
}

// Unallocated is surplus that could not be distributed, with the reason.
type Unallocated struct {
	CostCenter generic.CostCenterID
	Month      generic.Month
	Surplus    generic.Amount
	Reason     string
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Weights Weights
	// Workers bounds concurrent cost-center-months in AllocateAll.
	Workers int
}

func NewEngine(weights Weights) *Engine {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Engine{Weights: weights}
}

// Allocate splits surplus over the employees of costCenter in month.
// The result is sorted by employee id. A negative surplus is treated as
// zero.
func (e *Engine) Allocate(costCenter generic.CostCenterID, month generic.Month, surplus generic.Amount, employees []generic.EmployeeHours) ([]Allocation, error) {
	surplus = surplus.ClampZero()
	if surplus.Unit == "" {
		surplus.Unit = generic.UnitVND
	}

	out := make([]Allocation, 0, len(employees))
	total := decimal.Zero
	for _, emp := range employees {
		if emp.CostCenter != costCenter {
			return nil, fmt.Errorf("%w: employee %s is in %s, not %s",
				generic.ErrCostCenterMismatch, emp.EmployeeID, emp.CostCenter, costCenter)
		}
		if emp.Month != month {
			return nil, fmt.Errorf("%w: hours of employee %s are for %s, not %s",
				generic.ErrCrossMonth, emp.EmployeeID, emp.Month, month)
		}
		if emp.Hours.IsNegative() {
			return nil, fmt.Errorf("%w: employee %s has %s hours", generic.ErrNegativeHours, emp.EmployeeID, emp.Hours)
		}
		w, err := e.Weights.Lookup(emp.Category)
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", emp.EmployeeID, err)
		}

		weighted := emp.Hours.Mul(w)
		total = total.Add(weighted)
		out = append(out, Allocation{
			EmployeeID:     emp.EmployeeID,
			Name:           emp.Name,
			Title:          emp.Title,
			CostCenter:     costCenter,
			Store:          emp.Store,
			Month:          month,
			Category:       emp.Category,
			CategoryWeight: w,
			Hours:          emp.Hours,
			WeightedHours:  weighted,
			Ratio:          decimal.Zero,
			Bonus:          surplus.Zero(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })

	if total.IsZero() {
		if surplus.IsPositive() {
			return nil, &generic.NoAllocationBaseError{CostCenter: costCenter, Month: month, Surplus: surplus}
		}
		return out, nil
	}

	largest := 0
	distributed := surplus.Zero()
	for i := range out {
		a := &out[i]
		a.Ratio = a.WeightedHours.Div(total)
		a.Bonus = surplus.Mul(a.WeightedHours).Div(total)
		distributed = distributed.Add(a.Bonus)
		if a.WeightedHours.GreaterThan(out[largest].WeightedHours) {
			largest = i
		}
	}
	if residual := surplus.Sub(distributed); !residual.IsZero() {
		out[largest].Bonus = out[largest].Bonus.Add(residual)
	}
	return out, nil
}

// =============================================================================
// BATCH
// =============================================================================

// Result is the allocation of a whole window.
type Result struct {
	// Allocations are sorted by month, cost center, employee id.
	Allocations []Allocation
	Unallocated []Unallocated
	Failures    []generic.Failure
}

// TotalAllocated sums every bonus.
func (r Result) TotalAllocated() generic.Amount {
	sum := generic.ZeroMoney()
	for _, a := range r.Allocations {
		sum = sum.Add(a.Bonus)
	}
	return sum
}

// TotalUnallocated sums the surplus that could not be distributed.
func (r Result) TotalUnallocated() generic.Amount {
	sum := generic.ZeroMoney()
	for _, u := range r.Unallocated {
		sum = sum.Add(u.Surplus)
	}
	return sum
}

type outcome struct {
	allocations []Allocation
	unallocated *Unallocated
}

// AllocateAll allocates every variance record to the employees of its
// cost-center-month. A unit that fails leaves its whole surplus
// unallocated; the other units are unaffected.
func (e *Engine) AllocateAll(ctx context.Context, records []variance.Record, employees []generic.EmployeeHours) (Result, error) {
	byKey := make(map[variance.Key][]generic.EmployeeHours)
	for _, emp := range employees {
		k := variance.Key{CostCenter: emp.CostCenter, Month: emp.Month}
		byKey[k] = append(byKey[k], emp)
	}

	units := append([]variance.Record(nil), records...)
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Month != units[j].Month {
			return units[i].Month.Before(units[j].Month)
		}
		return units[i].CostCenter < units[j].CostCenter
	})

	batch, err := generic.RunBatches(ctx, e.Workers, units, func(_ context.Context, rec variance.Record) generic.Batch[outcome] {
		var b generic.Batch[outcome]
		key := variance.Key{CostCenter: rec.CostCenter, Month: rec.Month}
		allocs, err := e.Allocate(rec.CostCenter, rec.Month, rec.Surplus, byKey[key])
		if err == nil {
			b.Results = append(b.Results, outcome{allocations: allocs})
			return b
		}
		b.Fail(key.String(), err)
		if rec.Surplus.IsPositive() {
			b.Results = append(b.Results, outcome{unallocated: &Unallocated{
				CostCenter: rec.CostCenter,
				Month:      rec.Month,
				Surplus:    rec.Surplus,
				Reason:     err.Error(),
			}})
		}
		return b
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Failures: batch.Failures}
	for _, o := range batch.Results {
		res.Allocations = append(res.Allocations, o.allocations...)
		if o.unallocated != nil {
			res.Unallocated = append(res.Unallocated, *o.unallocated)
		}
	}
	return res, nil
}
