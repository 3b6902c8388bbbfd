package tier

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/generic"
)

// Resolver looks up bands by store. It is built once per computation from
// the reference rows and is read-only afterwards, so it is safe to share
// across goroutines.
type Resolver struct {
	schedules map[generic.StoreID]*Schedule
	// invalid keeps the validation error of stores whose rows were rejected,
	// so that resolving them fails the store instead of the whole batch.
	invalid map[generic.StoreID]error
}

// NewResolver groups rows by store and validates each schedule.
func NewResolver(rows []generic.TierRow, activityDays int64) *Resolver {
	r := &Resolver{
		schedules: make(map[generic.StoreID]*Schedule),
		invalid:   make(map[generic.StoreID]error),
	}

	byStore := make(map[generic.StoreID][]generic.TierRow)
	for _, row := range rows {
		byStore[row.Store] = append(byStore[row.Store], row)
	}
	for store, rs := range byStore {
		s, err := NewSchedule(rs, activityDays)
		if err != nil {
			r.invalid[store] = err
			continue
		}
		r.schedules[store] = s
	}
	return r
}

// Schedule returns the validated schedule of a store.
func (r *Resolver) Schedule(store generic.StoreID) (*Schedule, error) {
	if err, ok := r.invalid[store]; ok {
		return nil, err
	}
	s, ok := r.schedules[store]
	if !ok {
		return nil, &generic.MissingTierDataError{Store: store}
	}
	return s, nil
}

// Resolve returns the band of store that contains tc at granularity g.
func (r *Resolver) Resolve(store generic.StoreID, tc int64, g generic.Granularity) (Row, error) {
	s, err := r.Schedule(store)
	if err != nil {
		return Row{}, err
	}
	return s.Match(tc, g)
}

// Tier0 returns the base band of store and its base wage at granularity g.
func (r *Resolver) Tier0(store generic.StoreID, g generic.Granularity) (Row, generic.Amount, error) {
	s, err := r.Schedule(store)
	if err != nil {
		return Row{}, generic.Amount{}, err
	}
	if !g.Valid() {
		return Row{}, generic.Amount{}, &generic.GranularityMismatchError{Got: g, Reason: "unknown granularity " + string(g)}
	}
	return s.Tier0(), s.Base(g), nil
}

// Stores lists the stores with a valid schedule, sorted.
func (r *Resolver) Stores() []generic.StoreID {
	out := make([]generic.StoreID, 0, len(r.schedules))
	for s := range r.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Invalid returns one failure per store whose rows did not validate.
func (r *Resolver) Invalid() []generic.Failure {
	stores := make([]generic.StoreID, 0, len(r.invalid))
	for s := range r.invalid {
		stores = append(stores, s)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i] < stores[j] })

	out := make([]generic.Failure, 0, len(stores))
	for _, s := range stores {
		out = append(out, generic.Failure{Unit: string(s), Err: r.invalid[s]})
	}
	return out
}

func decimalInt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
