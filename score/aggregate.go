/*
Package score summarizes marketplace shift ratings per candidate.

PURPOSE:
  Marketplace workers are rated after every shift. A rating carries a
  weight and a score already multiplied by it, so the average of a
  candidate over any set of shifts is

    average = sum(weighted score) / sum(weight)

  Candidates are summarized over the whole window and per ISO week. A
  candidate whose weights add up to zero has no average.

SEE ALSO:
  - generic/records.go: ShiftScore
  - report/service.go: Loads the ratings of the report window
*/
package score

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/generic"
)

// Candidate is one candidate's ratings over the window or over one week.
type Candidate struct {
	ID      string
	Name    string
	Segment string
	// Week is the ISO week ("2025-W10"); empty for the whole window.
	Week string

	Shifts        int
	WeightedScore decimal.Decimal
	Weight        decimal.Decimal
	Hours         decimal.Decimal
	// Average is nil when Weight is zero.
	Average *decimal.Decimal
}

// Validate rejects ratings that cannot be averaged.
func Validate(s generic.ShiftScore) error {
	if s.CandidateID == "" {
		return fmt.Errorf("%w: candidate is required", generic.ErrInvalidInput)
	}
	if s.Weight.IsNegative() {
		return fmt.Errorf("%w: candidate %s has negative weight %s", generic.ErrInvalidInput, s.CandidateID, s.Weight)
	}
	if s.Hours.IsNegative() {
		return fmt.Errorf("%w: candidate %s", generic.ErrNegativeHours, s.CandidateID)
	}
	return nil
}

// Week labels the ISO week of d.
func Week(d generic.TimePoint) string {
	y, w := d.Time.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// ByCandidate summarizes each candidate over every rating given.
func ByCandidate(scores []generic.ShiftScore) []Candidate {
	return aggregate(scores, func(generic.TimePoint) string { return "" })
}

// ByCandidateWeek summarizes each candidate per ISO week.
func ByCandidateWeek(scores []generic.ShiftScore) []Candidate {
	return aggregate(scores, Week)
}

func aggregate(scores []generic.ShiftScore, week func(generic.TimePoint) string) []Candidate {
	type key struct {
		id, segment, name, week string
	}
	groups := make(map[key]*Candidate)
	for _, s := range scores {
		k := key{id: s.CandidateID, segment: s.Segment, name: s.Name, week: week(s.Date)}
		c, ok := groups[k]
		if !ok {
			c = &Candidate{
				ID:            k.id,
				Name:          k.name,
				Segment:       k.segment,
				Week:          k.week,
				WeightedScore: decimal.Zero,
				Weight:        decimal.Zero,
				Hours:         decimal.Zero,
			}
			groups[k] = c
		}
		c.Shifts++
		c.WeightedScore = c.WeightedScore.Add(s.WeightedScore)
		c.Weight = c.Weight.Add(s.Weight)
		c.Hours = c.Hours.Add(s.Hours)
	}

	out := make([]Candidate, 0, len(groups))
	for _, c := range groups {
		if !c.Weight.IsZero() {
			avg := c.WeightedScore.Div(c.Weight)
			c.Average = &avg
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.Segment != b.Segment {
			return a.Segment < b.Segment
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Week < b.Week
	})
	return out
}
