package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day (activity is recorded per store-day)
// =============================================================================

type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

// CalendarMonth returns the month containing tp.
func (tp TimePoint) CalendarMonth() Month { return NewMonth(tp.Year(), tp.Month()) }

func (tp TimePoint) String() string {
	return tp.Time.Format("2006-01-02")
}

// =============================================================================
// MONTH - The reconciliation unit. Tier bounds reset every calendar month.
// =============================================================================

type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// ParseMonth parses YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return NewMonth(t.Year(), t.Month()), nil
}

func (m Month) Start() TimePoint { return NewTimePoint(m.Year, m.Month, 1) }
func (m Month) End() TimePoint   { return m.Start().AddMonths(1).AddDays(-1) }
func (m Month) Days() int        { return m.End().Day() }
func (m Month) Next() Month      { return m.Start().AddMonths(1).CalendarMonth() }
func (m Month) Prev() Month      { return m.Start().AddMonths(-1).CalendarMonth() }
func (m Month) IsZero() bool     { return m.Year == 0 && m.Month == 0 }

func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m Month) Contains(tp TimePoint) bool {
	return tp.Year() == m.Year && tp.Month() == m.Month
}

// Period returns [first day, last day] of the month.
func (m Month) Period() Period { return Period{Start: m.Start(), End: m.End()} }

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// Label renders MM/YYYY for report tables.
func (m Month) Label() string { return fmt.Sprintf("%02d/%04d", int(m.Month), m.Year) }
