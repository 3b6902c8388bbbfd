/*
Package report runs the whole wage pipeline over a query window.

PURPOSE:
  The four computation packages are pure and know nothing about storage.
  The report service is the one place that loads reference data, feeds it
  through them and assembles the output tables:

    tier rows ─┐
               ├─> wage (daily + monthly) ─> variance ─> allocation
    activity ──┘                                  ▲
    employee hours ───────────────────────────────┘
    shift scores ─> score (per candidate, per candidate-week)

  Per-unit failures (a store without tiers, a cost-center-month without
  allocation base) are collected into Report.Failures; only storage errors
  and cancellation fail a run.

WINDOWS:
  The query window and its store and weekday filters shape the daily view
  only: daily rows, the per-date rollup and the shift scores. Wage reconciliation and allocation run over whole calendar months
  of whole cost centers, so a narrower view never changes a payout.

MEMOIZATION:
  Reports are memoized by normalized query. Concurrent runs of the same
  query share one computation (singleflight). Any write to the reference
  tables must call Invalidate. A computation that was running when
  Invalidate was called is returned to its callers but never memoized.

MONTH CLOSE:
  CloseMonth runs a whole calendar month and records the outcome in a
  RunLog. The run log is an audit trail; nothing ever reads it back as an
  input, so closing a month twice yields the same figures.

SEE ALSO:
  - query.go: Query normalization
  - score/aggregate.go: Candidate averages
  - api/scheduler.go: Triggers CloseMonth
*/
package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/warp/wage-engine/allocation"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/score"
	"github.com/warp/wage-engine/tier"
	"github.com/warp/wage-engine/variance"
	"github.com/warp/wage-engine/wage"
)

// =============================================================================
// REPORT
// =============================================================================

// Report holds every output table of one query.
type Report struct {
	Query Query

	Daily   []wage.Computed
	Monthly []wage.Computed

	DailyVariance []variance.DailyRow
	Summaries     []variance.Summary
	ByDate        []variance.DateRow
	Variances     []variance.Record

	Scores       []score.Candidate
	WeeklyScores []score.Candidate

	Allocations []allocation.Allocation
	Unallocated []allocation.Unallocated

	Failures []generic.Failure
	Totals   Totals
	// Places is the display precision of bonuses.
	Places int32

	GeneratedAt time.Time
}

// Totals is the report headline. Computed and Actual cover the daily
// view; Surplus, Allocated and Unallocated cover the whole months.
type Totals struct {
	variance.Totals
	Allocated   generic.Amount
	Unallocated generic.Amount
}

// =============================================================================
// SERVICE
// =============================================================================

// Options configure the pipeline.
type Options struct {
	ActivityDays int64
	Workers      int
	Weights      allocation.Weights
	Caps         variance.Caps
	// Places bonuses are rounded to for display. Allocation itself keeps
	// full precision.
	Places int32
	// Basis applies to queries that leave Basis empty.
	Basis wage.TCBasis
}

// DefaultOptions matches the payroll defaults.
func DefaultOptions() Options {
	return Options{
		ActivityDays: tier.DefaultActivityDays,
		Weights:      allocation.DefaultWeights(),
		Caps:         variance.DefaultCaps(),
	}
}

type Service struct {
	store  generic.Store
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	sf   singleflight.Group
	mu   sync.RWMutex
	memo map[string]*Report
	// gen counts invalidations; guarded by mu.
	gen uint64
}

func NewService(store generic.Store, opts Options, logger ...*zap.Logger) *Service {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	if opts.ActivityDays <= 0 {
		opts.ActivityDays = tier.DefaultActivityDays
	}
	if opts.Weights == nil {
		opts.Weights = allocation.DefaultWeights()
	}
	if opts.Caps.Scheduled.IsZero() && opts.Caps.Marketplace.IsZero() {
		opts.Caps = variance.DefaultCaps()
	}
	return &Service{
		store:  store,
		opts:   opts,
		logger: l.Named("report.service"),
		now:    time.Now,
		memo:   make(map[string]*Report),
	}
}

// Options returns the pipeline configuration.
func (s *Service) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// SetWeights replaces the category weights and drops memoized reports.
func (s *Service) SetWeights(w allocation.Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.opts.Weights = w
	s.memo = make(map[string]*Report)
	s.gen++
	s.mu.Unlock()
	s.logger.Info("category weights replaced", zap.Strings("categories", w.Categories()))
	return nil
}

// Invalidate drops every memoized report.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.memo = make(map[string]*Report)
	s.gen++
	s.mu.Unlock()
	s.logger.Debug("report memo invalidated")
}

// Run returns the report of q, computing it at most once per normalized
// query until the next Invalidate.
func (s *Service) Run(ctx context.Context, q Query) (*Report, error) {
	if q.Basis == "" {
		q.Basis = s.Options().Basis
	}
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	key := q.Key()

	s.mu.RLock()
	r, ok := s.memo[key]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		s.logger.Debug("report memo hit", zap.String("query", key))
		return r, nil
	}

	// Callers arriving after an Invalidate never join a flight that
	// started before it.
	v, err, shared := s.sf.Do(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		r, err := s.compute(ctx, q)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gen == gen {
			s.memo[key] = r
		} else {
			s.logger.Debug("report computed over stale data, not memoized", zap.String("query", key))
		}
		s.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("report computation shared", zap.String("query", key))
	}
	return v.(*Report), nil
}

func (s *Service) compute(ctx context.Context, q Query) (*Report, error) {
	start := s.now()
	opts := s.Options()
	log := s.logger.With(
		zap.String("from", q.From.String()),
		zap.String("to", q.To.String()),
		zap.String("basis", string(q.Basis)),
		zap.String("granularity", string(q.Granularity)),
	)

	in, err := s.load(ctx, q)
	if err != nil {
		log.Error("report load failed", zap.Error(err))
		return nil, err
	}

	resolver := tier.NewResolver(in.tiers, opts.ActivityDays)
	for _, store := range resolver.Stores() {
		sched, _ := resolver.Schedule(store)
		if err := sched.CheckMonotone(generic.GranularityDaily); err != nil {
			log.Warn("tier schedule not monotone", zap.String("store", string(store)), zap.Error(err))
		}
	}

	calc := &wage.Calculator{Resolver: resolver, Basis: q.Basis, Workers: opts.Workers}
	rep := &Report{Query: q, Places: opts.Places}

	daily, err := calc.ComputeDaily(ctx, in.activity)
	if err != nil {
		return nil, err
	}
	monthly, err := calc.ComputeMonthly(ctx, in.activity)
	if err != nil {
		return nil, err
	}
	rep.Failures = append(rep.Failures, daily.Failures...)
	for _, w := range monthly.Results {
		if q.keepStore(w.Store) {
			rep.Monthly = append(rep.Monthly, w)
		}
	}

	// Daily view: the window and the store and weekday filters apply here
	// and only here.
	var viewActivity []generic.ActivityRecord
	for _, a := range in.activity {
		if q.inView(a.Store, a.Date) {
			viewActivity = append(viewActivity, a)
		}
	}
	for _, w := range daily.Results {
		if q.inView(w.Store, w.Date) {
			rep.Daily = append(rep.Daily, w)
		}
	}
	rep.DailyVariance = variance.Daily(rep.Daily, viewActivity, opts.Caps)
	rep.Summaries = variance.Summarize(rep.DailyVariance)
	rep.ByDate = variance.ByDate(rep.DailyVariance)
	rep.Scores = score.ByCandidate(in.scores)
	rep.WeeklyScores = score.ByCandidateWeek(in.scores)

	// Reconciliation: whole calendar months, unfiltered.
	ve := &variance.Engine{Workers: opts.Workers}
	var vb generic.Batch[variance.Record]
	if q.Granularity == generic.GranularityMonthly {
		// Monthly failures are reported here: the daily batch already
		// reported the stores that fail both ways.
		rep.Failures = append(rep.Failures, monthlyOnly(monthly.Failures, daily.Failures)...)
		vb, err = ve.ComputeAll(ctx, monthly.Results, in.activity)
	} else {
		vb, err = ve.ComputeAll(ctx, daily.Results, in.activity)
	}
	if err != nil {
		return nil, err
	}
	rep.Variances = vb.Results
	rep.Failures = append(rep.Failures, vb.Failures...)

	ae := &allocation.Engine{Weights: opts.Weights, Workers: opts.Workers}
	alloc, err := ae.AllocateAll(ctx, rep.Variances, in.hours)
	if err != nil {
		return nil, err
	}
	rep.Allocations = alloc.Allocations
	rep.Unallocated = alloc.Unallocated
	rep.Failures = append(rep.Failures, alloc.Failures...)

	rep.Totals = Totals{
		Totals:      variance.WindowTotals(rep.DailyVariance, rep.Variances),
		Allocated:   alloc.TotalAllocated(),
		Unallocated: alloc.TotalUnallocated(),
	}
	rep.GeneratedAt = s.now()

	log.Info("report computed",
		zap.Int("stores", len(rep.Summaries)),
		zap.Int("daily_rows", len(rep.Daily)),
		zap.Int("variances", len(rep.Variances)),
		zap.Int("allocations", len(rep.Allocations)),
		zap.Int("candidates", len(rep.Scores)),
		zap.Int("failures", len(rep.Failures)),
		zap.String("surplus", rep.Totals.Surplus.Value.String()),
		zap.Duration("elapsed", s.now().Sub(start)),
	)
	for _, f := range rep.Failures {
		log.Warn("unit failed", zap.String("unit", f.Unit), zap.Error(f.Err))
	}
	return rep, nil
}

// monthlyOnly drops monthly failures whose store already failed daily.
func monthlyOnly(monthly, daily []generic.Failure) []generic.Failure {
	seen := make(map[string]bool, len(daily))
	for _, f := range daily {
		seen[f.Unit] = true
	}
	var out []generic.Failure
	for _, f := range monthly {
		if !seen[f.Unit] {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// LOADING
// =============================================================================

type inputs struct {
	tiers    []generic.TierRow
	activity []generic.ActivityRecord
	hours    []generic.EmployeeHours
	scores   []generic.ShiftScore
}

// load reads the whole months of every cost center the query selects.
// A store filter selects the cost centers of its stores.
func (s *Service) load(ctx context.Context, q Query) (inputs, error) {
	var in inputs
	var err error

	in.tiers, err = s.store.LoadTierRows(ctx, nil)
	if err != nil {
		return in, fmt.Errorf("load tier rows: %w", err)
	}

	span := q.Span()
	activity, err := s.store.LoadActivity(ctx, span.Start, span.End, nil)
	if err != nil {
		return in, fmt.Errorf("load activity: %w", err)
	}
	selected := make(map[generic.CostCenterID]bool)
	for _, a := range activity {
		if q.keepStore(a.Store) && q.keepCostCenter(a.CostCenter) {
			selected[a.CostCenter] = true
		}
	}
	for _, a := range activity {
		if selected[a.CostCenter] {
			in.activity = append(in.activity, a)
		}
	}

	scores, err := s.store.LoadShiftScores(ctx, q.From, q.To, q.Stores)
	if err != nil {
		return in, fmt.Errorf("load shift scores: %w", err)
	}
	// A cost-center filter keeps the ratings of the stores it selected.
	var stores map[generic.StoreID]bool
	if q.CostCenters != nil {
		stores = make(map[generic.StoreID]bool)
		for _, a := range in.activity {
			stores[a.Store] = true
		}
	}
	for _, sc := range scores {
		if q.inView(sc.Store, sc.Date) && (stores == nil || stores[sc.Store]) {
			in.scores = append(in.scores, sc)
		}
	}

	months := q.Months()
	if len(months) > 0 {
		in.hours, err = s.store.LoadEmployeeHours(ctx, months[0], months[len(months)-1], q.CostCenters)
		if err != nil {
			return in, fmt.Errorf("load employee hours: %w", err)
		}
	}
	return in, nil
}

// =============================================================================
// MONTH CLOSE
// =============================================================================

// CloseMonth computes month as a whole and records the run in runs.
func (s *Service) CloseMonth(ctx context.Context, month generic.Month, runs generic.RunLog) (generic.ReportRun, *Report, error) {
	run := generic.ReportRun{
		ID:        uuid.NewString(),
		Month:     month,
		Status:    generic.RunStatusRunning,
		StartedAt: s.now().UTC(),
	}
	if err := runs.SaveRun(ctx, run); err != nil {
		return run, nil, fmt.Errorf("record run start: %w", err)
	}
	s.logger.Info("month close started", zap.String("run_id", run.ID), zap.String("month", month.String()))

	rep, err := s.Run(ctx, MonthQuery(month))
	run.CompletedAt = s.now().UTC()
	if err != nil {
		run.Status = generic.RunStatusFailed
		run.Error = err.Error()
		if saveErr := runs.SaveRun(ctx, run); saveErr != nil {
			s.logger.Error("record run failure failed", zap.String("run_id", run.ID), zap.Error(saveErr))
		}
		s.logger.Error("month close failed", zap.String("run_id", run.ID), zap.Error(err))
		return run, nil, err
	}

	run.Status = generic.RunStatusCompleted
	run.TotalComputed = rep.Totals.Computed
	run.TotalActual = rep.Totals.Actual
	run.TotalSurplus = rep.Totals.Surplus
	run.TotalAllocated = rep.Totals.Allocated
	run.TotalUnallocated = rep.Totals.Unallocated
	run.FailureCount = len(rep.Failures)
	if err := runs.SaveRun(ctx, run); err != nil {
		return run, rep, fmt.Errorf("record run completion: %w", err)
	}
	s.logger.Info("month close completed",
		zap.String("run_id", run.ID),
		zap.String("month", month.String()),
		zap.String("surplus", run.TotalSurplus.Value.String()),
		zap.String("allocated", run.TotalAllocated.Value.String()),
		zap.Int("failures", run.FailureCount),
	)
	return run, rep, nil
}
