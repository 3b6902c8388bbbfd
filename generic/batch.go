package generic

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// BATCH - Partial success over independent units
// =============================================================================

// Failure records why one unit (store, store-day, cost-center-month) could
// not be computed.
type Failure struct {
	Unit string
	Err  error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Unit, f.Err) }
func (f Failure) Unwrap() error { return f.Err }

// Batch holds the successful results and the per-unit failures of a batch.
type Batch[T any] struct {
	Results  []T
	Failures []Failure
}

// OK reports whether every unit succeeded.
func (b Batch[T]) OK() bool { return len(b.Failures) == 0 }

// Merge appends other's results and failures.
func (b *Batch[T]) Merge(other Batch[T]) {
	b.Results = append(b.Results, other.Results...)
	b.Failures = append(b.Failures, other.Failures...)
}

// Fail records a unit failure.
func (b *Batch[T]) Fail(unit string, err error) {
	b.Failures = append(b.Failures, Failure{Unit: unit, Err: err})
}

// DefaultWorkers bounds data-parallel batches when no limit is configured.
func DefaultWorkers() int { return runtime.GOMAXPROCS(0) }

// RunUnits evaluates fn for every unit, at most workers at a time. A unit
// error becomes a Failure and the other units keep running. Results are
// merged in unit order, so the output does not depend on scheduling.
// The only error returned is ctx cancellation.
func RunUnits[U any, T any](
	ctx context.Context,
	workers int,
	units []U,
	name func(U) string,
	fn func(context.Context, U) ([]T, error),
) (Batch[T], error) {
	return RunBatches(ctx, workers, units, func(ctx context.Context, u U) Batch[T] {
		res, err := fn(ctx, u)
		if err != nil {
			var b Batch[T]
			b.Fail(name(u), err)
			return b
		}
		return Batch[T]{Results: res}
	})
}

// RunBatches is RunUnits for units that report finer-grained failures
// themselves (a store whose individual days may fail).
func RunBatches[U any, T any](
	ctx context.Context,
	workers int,
	units []U,
	fn func(context.Context, U) Batch[T],
) (Batch[T], error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	slots := make([]Batch[T], len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = fn(gctx, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch[T]{}, err
	}
	if err := ctx.Err(); err != nil {
		return Batch[T]{}, err
	}

	var out Batch[T]
	for _, s := range slots {
		out.Merge(s)
	}
	return out, nil
}
