/*
errors.go - Centralized error types for the wage engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every kind here fails ONE unit of work (a store, a store-day, or a
  cost-center-month). Batch operations collect them as Failures and keep
  going; they never abort the whole batch.

ERROR CATEGORIES:
  1. Reference data errors - Missing or malformed tier schedules
  2. Computation errors - Granularity mismatch, cross-month aggregation
  3. Allocation errors - No allocation base, unknown employee category

USAGE:
  Callers inspect errors with errors.Is / errors.As:

    var missing *generic.MissingTierDataError
    if errors.As(err, &missing) {
        // exclude or flag missing.Store, never guess a tier
    }

SEE ALSO:
  - batch.go: Failure collection
  - tier/resolver.go: Returns MissingTierDataError
  - allocation/engine.go: Returns NoAllocationBaseError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingTierData is returned when no tier schedule exists for a store.
	ErrMissingTierData = errors.New("missing tier data")

	// ErrNoAllocationBase is returned when a cost-center-month has surplus but
	// zero total weighted hours to spread it over.
	ErrNoAllocationBase = errors.New("no allocation base")

	// ErrGranularityMismatch is returned when daily and monthly quantities meet.
	ErrGranularityMismatch = errors.New("granularity mismatch")

	// ErrInvalidSchedule is returned when tier rows do not partition the TC axis.
	ErrInvalidSchedule = errors.New("invalid tier schedule")

	// ErrNegativeTC is returned for a TC count below zero.
	ErrNegativeTC = errors.New("tc must be non-negative")

	// ErrCrossMonth is returned when a variance input spans calendar months.
	ErrCrossMonth = errors.New("aggregation crosses calendar months")

	// ErrCostCenterMismatch is returned when a row belongs to another cost center.
	ErrCostCenterMismatch = errors.New("row belongs to another cost center")

	// ErrUnknownCategory is returned when an employee category has no weight.
	ErrUnknownCategory = errors.New("unknown employee category")

	// ErrNegativeHours is returned for negative employee hours.
	ErrNegativeHours = errors.New("hours must be non-negative")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidInput is returned for malformed caller input (unknown TC
	// basis, negative category weight, unparsable numbers).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a stored record does not exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingTierDataError names the store that has no reference tiers.
type MissingTierDataError struct {
	Store StoreID
}

func (e *MissingTierDataError) Error() string {
	return fmt.Sprintf("missing tier data for store %q", e.Store)
}

func (e *MissingTierDataError) Unwrap() error {
	return ErrMissingTierData
}

// NoAllocationBaseError carries the surplus that could not be distributed.
// The caller must surface Surplus as unallocated.
type NoAllocationBaseError struct {
	CostCenter CostCenterID
	Month      Month
	Surplus    Amount
}

func (e *NoAllocationBaseError) Error() string {
	return fmt.Sprintf("no allocation base for %s %s: surplus %v left unallocated",
		e.CostCenter, e.Month, e.Surplus.Value)
}

func (e *NoAllocationBaseError) Unwrap() error {
	return ErrNoAllocationBase
}

// GranularityMismatchError reports a daily/monthly mix-up.
type GranularityMismatchError struct {
	Expected Granularity
	Got      Granularity
	Reason   string
}

func (e *GranularityMismatchError) Error() string {
	if e.Reason != "" {
		return "granularity mismatch: " + e.Reason
	}
	return fmt.Sprintf("granularity mismatch: expected %s, got %s", e.Expected, e.Got)
}

func (e *GranularityMismatchError) Unwrap() error {
	return ErrGranularityMismatch
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsUnitFailure returns true for errors that fail one unit of a batch and
// must be collected rather than propagated.
func IsUnitFailure(err error) bool {
	return errors.Is(err, ErrMissingTierData) ||
		errors.Is(err, ErrNoAllocationBase) ||
		errors.Is(err, ErrGranularityMismatch) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrNegativeTC) ||
		errors.Is(err, ErrNegativeHours) ||
		errors.Is(err, ErrCrossMonth) ||
		errors.Is(err, ErrCostCenterMismatch)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrGranularityMismatch) ||
		errors.Is(err, ErrNegativeTC)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMissingTierData)
}
