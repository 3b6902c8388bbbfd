package allocation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/generic"
)

// Weights maps an employee category to its hour coefficient.
type Weights map[string]decimal.Decimal

// DefaultWeights: group 1.1 counts double, group 1.2 once, group 2 at 0.7.
func DefaultWeights() Weights {
	return Weights{
		"1.1": decimal.NewFromInt(2),
		"1.2": decimal.NewFromInt(1),
		"2":   decimal.RequireFromString("0.7"),
	}
}

// Lookup returns the weight of category. Surrounding whitespace and a
// "group"/"nhóm" prefix are ignored, so "Nhóm 1.1" and "1.1" are the same
// category.
func (w Weights) Lookup(category string) (decimal.Decimal, error) {
	key := NormalizeCategory(category)
	v, ok := w[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", generic.ErrUnknownCategory, category)
	}
	return v, nil
}

// NormalizeCategory reduces a category label to its table key.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, prefix := range []string{"nhóm", "group"} {
		if strings.HasPrefix(c, prefix) {
			c = strings.TrimSpace(strings.TrimPrefix(c, prefix))
			break
		}
	}
	return c
}

// Validate rejects negative coefficients.
func (w Weights) Validate() error {
	for _, k := range w.Categories() {
		if w[k].IsNegative() {
			return fmt.Errorf("%w: category %q has negative weight %s", generic.ErrInvalidInput, k, w[k])
		}
	}
	return nil
}

// Categories returns the known categories, sorted.
func (w Weights) Categories() []string {
	out := make([]string, 0, len(w))
	for k := range w {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseWeights builds a table from string-valued coefficients, as found in
// config files and JSON bodies.
func ParseWeights(raw map[string]string) (Weights, error) {
	w := make(Weights, len(raw))
	for k, v := range raw {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: category %q: invalid weight %q: %v", generic.ErrInvalidInput, k, v, err)
		}
		w[NormalizeCategory(k)] = d
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// FromFloats builds a table from float coefficients (TOML numbers).
func FromFloats(raw map[string]float64) (Weights, error) {
	w := make(Weights, len(raw))
	for k, v := range raw {
		w[NormalizeCategory(k)] = decimal.NewFromFloat(v)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}
