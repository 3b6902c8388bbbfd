/*
Package generic provides the core primitives of the wage engine.

PURPOSE:
  This package contains domain-agnostic types shared by the tier resolver,
  the wage calculator, the variance engine and the allocation engine. It
  knows nothing about tiers or bonuses; it defines quantities, identifiers,
  calendar helpers, the input records read from the reference tables, and
  the batch machinery that lets a computation partially succeed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 1,800,000 VND)
  - StoreID / CostCenterID / EmployeeID: Type-safe identifiers
  - Granularity: daily or monthly computation basis

DESIGN PRINCIPLES:
  1. Immutability: Input records are never modified, only derived from
  2. Precision: Uses decimal.Decimal so sums over many store-days do not drift
  3. Type Safety: Strong typing for IDs prevents mixing stores and cost centers

USAGE:
  base := generic.NewMoneyFromInt(1_800_000)
  rate := generic.NewMoneyFromInt(40_000)
  total := base.Add(rate.Mul(decimal.NewFromInt(50)))

SEE ALSO:
  - records.go: Input tables (tier rows, activity, employee hours)
  - errors.go: Error kinds and per-unit failures
  - batch.go: Partial-success batch execution
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

// UnitVND is the only currency the engine computes in.
const UnitVND Unit = "VND"

func NewAmountFromInt(value int64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: unit}
}

// NewMoney returns an amount in the smallest currency unit.
func NewMoney(value decimal.Decimal) Amount { return Amount{Value: value, Unit: UnitVND} }

func NewMoneyFromInt(value int64) Amount { return NewAmountFromInt(value, UnitVND) }

// ZeroMoney is 0 VND.
func ZeroMoney() Amount { return Amount{Value: decimal.Zero, Unit: UnitVND} }

// MustParseDecimal parses s, treating malformed text as zero.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.unit(b)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.unit(b)} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) Abs() Amount                  { return Amount{Value: a.Value.Abs(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ClampZero returns max(0, a).
func (a Amount) ClampZero() Amount {
	if a.IsNegative() {
		return a.Zero()
	}
	return a
}

// Round rounds half away from zero to places decimal places. Display
// only: arithmetic keeps full precision.
func (a Amount) Round(places int32) Amount {
	return Amount{Value: a.Value.Round(places), Unit: a.Unit}
}

// Float64 is for display and JSON only.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

func (a Amount) String() string {
	return a.Value.String() + " " + string(a.Unit)
}

// unit keeps the receiver's unit unless it is empty, so that zero values
// accumulate cleanly into a typed sum.
func (a Amount) unit(b Amount) Unit {
	if a.Unit == "" {
		return b.Unit
	}
	return a.Unit
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StoreID string
type CostCenterID string
type EmployeeID string

// =============================================================================
// GRANULARITY - Daily vs monthly computation basis
// =============================================================================

// Granularity selects which bound set of a tier row applies. A wage computed
// at one granularity must never be compared against the other bound set.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

func (g Granularity) Valid() bool {
	return g == GranularityDaily || g == GranularityMonthly
}

// ParseGranularity accepts "daily"/"day" and "monthly"/"month".
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily", "day":
		return GranularityDaily, nil
	case "monthly", "month":
		return GranularityMonthly, nil
	default:
		return "", &GranularityMismatchError{Got: Granularity(s), Reason: fmt.Sprintf("unknown granularity %q", s)}
	}
}
