// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	tiers    map[generic.StoreID][]generic.TierRow
	activity map[activityKey]generic.ActivityRecord
	hours    map[hoursKey]generic.EmployeeHours
	scores   map[scoreKey]generic.ShiftScore
	runs     []generic.ReportRun
}

type activityKey struct {
	Store generic.StoreID
	Date  string
}

type scoreKey struct {
	Candidate string
	Store     generic.StoreID
	Date      string
}

type hoursKey struct {
	Employee   generic.EmployeeID
	CostCenter generic.CostCenterID
	Month      generic.Month
}

func NewMemory() *Memory {
	return &Memory{
		tiers:    make(map[generic.StoreID][]generic.TierRow),
		activity: make(map[activityKey]generic.ActivityRecord),
		hours:    make(map[hoursKey]generic.EmployeeHours),
		scores:   make(map[scoreKey]generic.ShiftScore),
	}
}

var (
	_ generic.Store  = (*Memory)(nil)
	_ generic.RunLog = (*Memory)(nil)
)

func (m *Memory) SaveTierRows(_ context.Context, rows []generic.TierRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStore := make(map[generic.StoreID][]generic.TierRow)
	for _, r := range rows {
		byStore[r.Store] = append(byStore[r.Store], r)
	}
	for s, rs := range byStore {
		sort.Slice(rs, func(i, j int) bool { return rs[i].Level < rs[j].Level })
		m.tiers[s] = rs
	}
	return nil
}

func (m *Memory) LoadTierRows(_ context.Context, stores []generic.StoreID) ([]generic.TierRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := stores
	if keys == nil {
		for s := range m.tiers {
			keys = append(keys, s)
		}
	}
	keys = append([]generic.StoreID(nil), keys...)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var result []generic.TierRow
	for _, s := range keys {
		result = append(result, m.tiers[s]...)
	}
	return result, nil
}

func (m *Memory) SaveActivity(_ context.Context, records []generic.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.activity[activityKey{Store: r.Store, Date: r.Date.String()}] = r
	}
	return nil
}

func (m *Memory) LoadActivity(_ context.Context, from, to generic.TimePoint, stores []generic.StoreID) ([]generic.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := storeSet(stores)
	window := generic.Period{Start: from, End: to}
	var result []generic.ActivityRecord
	for _, r := range m.activity {
		if want != nil && !want[r.Store] {
			continue
		}
		if window.Contains(r.Date) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Store != result[j].Store {
			return result[i].Store < result[j].Store
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (m *Memory) SaveEmployeeHours(_ context.Context, rows []generic.EmployeeHours) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.hours[hoursKey{Employee: r.EmployeeID, CostCenter: r.CostCenter, Month: r.Month}] = r
	}
	return nil
}

func (m *Memory) LoadEmployeeHours(_ context.Context, from, to generic.Month, costCenters []generic.CostCenterID) ([]generic.EmployeeHours, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var want map[generic.CostCenterID]bool
	if costCenters != nil {
		want = make(map[generic.CostCenterID]bool, len(costCenters))
		for _, c := range costCenters {
			want[c] = true
		}
	}

	var result []generic.EmployeeHours
	for _, r := range m.hours {
		if want != nil && !want[r.CostCenter] {
			continue
		}
		if r.Month.Before(from) || to.Before(r.Month) {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Month != b.Month {
			return a.Month.Before(b.Month)
		}
		if a.CostCenter != b.CostCenter {
			return a.CostCenter < b.CostCenter
		}
		return a.EmployeeID < b.EmployeeID
	})
	return result, nil
}

func (m *Memory) SaveShiftScores(_ context.Context, scores []generic.ShiftScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range scores {
		m.scores[scoreKey{Candidate: r.CandidateID, Store: r.Store, Date: r.Date.String()}] = r
	}
	return nil
}

func (m *Memory) LoadShiftScores(_ context.Context, from, to generic.TimePoint, stores []generic.StoreID) ([]generic.ShiftScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := storeSet(stores)
	window := generic.Period{Start: from, End: to}
	var result []generic.ShiftScore
	for _, r := range m.scores {
		if want != nil && !want[r.Store] {
			continue
		}
		if window.Contains(r.Date) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.CandidateID != b.CandidateID {
			return a.CandidateID < b.CandidateID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Store < b.Store
	})
	return result, nil
}

// SaveRun inserts a run or replaces one with the same ID.
func (m *Memory) SaveRun(_ context.Context, run generic.ReportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) ListRuns(_ context.Context) ([]generic.ReportRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]generic.ReportRun, len(m.runs))
	copy(result, m.runs)
	sort.SliceStable(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	return result, nil
}

func (m *Memory) IsMonthClosed(_ context.Context, month generic.Month) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.runs {
		if r.Month == month && r.Status == generic.RunStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func storeSet(stores []generic.StoreID) map[generic.StoreID]bool {
	if stores == nil {
		return nil
	}
	set := make(map[generic.StoreID]bool, len(stores))
	for _, s := range stores {
		set[s] = true
	}
	return set
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers = make(map[generic.StoreID][]generic.TierRow)
	m.activity = make(map[activityKey]generic.ActivityRecord)
	m.hours = make(map[hoursKey]generic.EmployeeHours)
	m.scores = make(map[scoreKey]generic.ShiftScore)
	m.runs = nil
	return nil
}
