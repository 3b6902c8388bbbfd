package generic

// =============================================================================
// PERIOD - The query window supplied by the caller
// =============================================================================

// Period is an inclusive date range [Start, End]. Every computation runs over
// a caller-supplied period; nothing carries over between periods.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Validate rejects periods whose end precedes their start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Months returns every calendar month the period touches, ascending.
func (p Period) Months() []Month {
	var months []Month
	if p.End.Before(p.Start) {
		return months
	}
	last := p.End.CalendarMonth()
	for m := p.Start.CalendarMonth(); !last.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
