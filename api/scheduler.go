/*
scheduler.go - Automated month close

PURPOSE:
  Periodically closes the previous calendar month: computes its full
  report and records a run with the headline totals, so payroll finds
  every finished month reconciled without anyone pressing a button.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - On every tick looks only at the month before the current one
  - Skips months that already have a completed run
  - A failed run is retried on the next tick
  - Records runs for audit and UI display (GET /api/runs)

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMonthCloseScheduler(store, reports, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CloseMonth endpoint (manual close)
  - report/service.go: Service.CloseMonth
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/report"
)

// MonthCloseScheduler closes finished months in the background.
type MonthCloseScheduler struct {
	Runs          generic.RunLog
	Reports       *report.Service
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	now    func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMonthCloseScheduler creates a new scheduler.
func NewMonthCloseScheduler(runs generic.RunLog, reports *report.Service, logger ...*zap.Logger) *MonthCloseScheduler {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &MonthCloseScheduler{
		Runs:          runs,
		Reports:       reports,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		logger:        l.Named("scheduler"),
		now:           time.Now,
	}
}

// Start begins the scheduler. A stopped scheduler can be started again.
func (s *MonthCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.logger.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight close to finish.
func (s *MonthCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("stopped")
	}
}

func (s *MonthCloseScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	s.checkAndClose(ctx)

	for {
		select {
		case <-ticker.C:
			s.checkAndClose(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow closes the previous month if it is still open and reports
// whether a run was made.
func (s *MonthCloseScheduler) RunNow(ctx context.Context) (bool, error) {
	month := generic.DateOf(s.now()).CalendarMonth().Prev()

	closed, err := s.Runs.IsMonthClosed(ctx, month)
	if err != nil {
		return false, err
	}
	if closed {
		s.logger.Debug("month already closed", zap.String("month", month.String()))
		return false, nil
	}

	if _, _, err := s.Reports.CloseMonth(ctx, month, s.Runs); err != nil {
		return true, err
	}
	return true, nil
}

func (s *MonthCloseScheduler) checkAndClose(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil {
		s.logger.Error("month close failed", zap.Error(err))
	}
}

// NextRunTime returns when the next scheduled check will occur.
func (s *MonthCloseScheduler) NextRunTime() time.Time {
	return s.now().Add(s.CheckInterval)
}
