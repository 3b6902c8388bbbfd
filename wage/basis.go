package wage

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/generic"
)

// TCBasis selects which TC series feeds the wage formula.
//
//	actual:      the recorded TC of the day
//	forecast:    the forecast TC of the day
//	mtd_average: mean actual TC from the first recorded day of the month up
//	             to and including the day, rounded half-up to a whole TC
type TCBasis string

const (
	BasisActual     TCBasis = "actual"
	BasisForecast   TCBasis = "forecast"
	BasisMTDAverage TCBasis = "mtd_average"
)

func (b TCBasis) Valid() bool {
	switch b {
	case BasisActual, BasisForecast, BasisMTDAverage:
		return true
	}
	return false
}

// ParseBasis maps an empty string to BasisActual.
func ParseBasis(s string) (TCBasis, error) {
	b := TCBasis(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BasisActual, nil
	}
	if !b.Valid() {
		return "", fmt.Errorf("%w: unknown tc basis %q", generic.ErrInvalidInput, s)
	}
	return b, nil
}

// Apply returns the TC of each record under the basis. records must belong
// to one store and be sorted by date.
func (b TCBasis) Apply(records []generic.ActivityRecord) ([]int64, error) {
	out := make([]int64, len(records))
	switch b {
	case BasisActual, "":
		for i, r := range records {
			out[i] = r.TCActual
		}
	case BasisForecast:
		for i, r := range records {
			out[i] = r.TCForecast
		}
	case BasisMTDAverage:
		var (
			month generic.Month
			sum   int64
			n     int64
		)
		for i, r := range records {
			if m := r.Date.CalendarMonth(); m != month {
				month, sum, n = m, 0, 0
			}
			sum += r.TCActual
			n++
			// Round is half away from zero; TC sums are non-negative.
			out[i] = decimal.NewFromInt(sum).Div(decimal.NewFromInt(n)).Round(0).IntPart()
		}
	default:
		return nil, fmt.Errorf("unknown tc basis %q", b)
	}
	return out, nil
}
