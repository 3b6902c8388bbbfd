package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/wage"
)

// Query selects the window and the stores a report covers.
//
// The window, Stores and Weekdays narrow the daily view only (daily rows,
// daily variance, store summaries). Reconciliation and allocation always
// cover whole calendar months: every month the window touches, over every
// store of every cost center the selection touches.
type Query struct {
	From generic.TimePoint
	To   generic.TimePoint

	// Empty filters select everything.
	Stores      []generic.StoreID
	CostCenters []generic.CostCenterID
	Weekdays    []time.Weekday

	Basis wage.TCBasis
	// Granularity of the computed rows that are reconciled against actual
	// wages. Empty selects daily.
	Granularity generic.Granularity
}

// MonthQuery covers one whole calendar month.
func MonthQuery(m generic.Month) Query {
	return Query{From: m.Start(), To: m.End()}
}

// Normalize validates q and returns it with sorted, de-duplicated filters
// and defaults filled in. Two queries selecting the same data normalize to
// the same value.
func (q Query) Normalize() (Query, error) {
	if q.From.IsZero() || q.To.IsZero() {
		return Query{}, fmt.Errorf("%w: from and to are required", generic.ErrInvalidPeriod)
	}
	if err := (generic.Period{Start: q.From, End: q.To}).Validate(); err != nil {
		return Query{}, err
	}

	if q.Basis == "" {
		q.Basis = wage.BasisActual
	}
	if !q.Basis.Valid() {
		return Query{}, fmt.Errorf("%w: unknown tc basis %q", generic.ErrInvalidInput, q.Basis)
	}
	g, err := generic.ParseGranularity(string(q.Granularity))
	if err != nil {
		return Query{}, err
	}
	q.Granularity = g

	q.Stores = uniqueSorted(q.Stores)
	q.CostCenters = uniqueSorted(q.CostCenters)
	q.Weekdays = uniqueSorted(q.Weekdays)
	if len(q.Weekdays) == 7 {
		q.Weekdays = nil
	}
	return q, nil
}

// Key identifies a normalized query for memoization.
func (q Query) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s..%s|%s|%s|", q.From, q.To, q.Basis, q.Granularity)
	for _, s := range q.Stores {
		b.WriteString(string(s))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, c := range q.CostCenters {
		b.WriteString(string(c))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, d := range q.Weekdays {
		fmt.Fprintf(&b, "%d,", d)
	}
	return b.String()
}

// Months lists the calendar months the window touches.
func (q Query) Months() []generic.Month {
	return generic.Period{Start: q.From, End: q.To}.Months()
}

// Span is the whole calendar months the window touches.
func (q Query) Span() generic.Period {
	months := q.Months()
	if len(months) == 0 {
		return generic.Period{Start: q.From, End: q.To}
	}
	return generic.Period{Start: months[0].Start(), End: months[len(months)-1].End()}
}

// inView reports whether a row of store on date belongs to the daily view.
func (q Query) inView(store generic.StoreID, date generic.TimePoint) bool {
	return q.keepStore(store) &&
		!date.Before(q.From) && !date.After(q.To) &&
		q.keepWeekday(date.Weekday())
}

func (q Query) keepStore(s generic.StoreID) bool {
	if q.Stores == nil {
		return true
	}
	i := sort.Search(len(q.Stores), func(i int) bool { return q.Stores[i] >= s })
	return i < len(q.Stores) && q.Stores[i] == s
}

func (q Query) keepWeekday(d time.Weekday) bool {
	if q.Weekdays == nil {
		return true
	}
	for _, w := range q.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

func (q Query) keepCostCenter(cc generic.CostCenterID) bool {
	if q.CostCenters == nil {
		return true
	}
	i := sort.Search(len(q.CostCenters), func(i int) bool { return q.CostCenters[i] >= cc })
	return i < len(q.CostCenters) && q.CostCenters[i] == cc
}

func uniqueSorted[T ~string | ~int](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := append([]T(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
