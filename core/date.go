/*
Package core provides the shared kernel for the leave engine.

PURPOSE:
  Domain-agnostic building blocks used by every other package: calendar
  dates and ranges, decimal day quantities, the error taxonomy, and the
  acting principal (who is performing an operation, with which roles).

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: a calendar day (UTC midnight), the only time granularity the
    leave domain needs
  - DateRange: an inclusive [From, To] span with duration and overlap
    arithmetic

DESIGN PRINCIPLES:
  1. Day granularity only: leave is booked in days, never wall-clock time
  2. Inclusive ranges: a one-day request has From == To and duration 1
  3. No ambient state: principals are passed explicitly, never read from
     globals

SEE ALSO:
  - days.go: decimal day quantities and rounding rules
  - errors.go: sentinel and structured errors
  - principal.go: roles and permission predicates
*/
package core

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - A calendar day (UTC midnight)
// =============================================================================

type Date struct {
	Time time.Time
}

// NewDate constructs a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses the wire format YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q (use YYYY-MM-DD)", s)}
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool         { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool         { return d.Time.Equal(o.Time) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }
func (d Date) IsZero() bool              { return d.Time.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{Time: d.Time.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DaysBetween returns the signed number of whole days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.Time.Sub(a.Time).Hours() / 24)
}

// =============================================================================
// DATE RANGE - Inclusive [From, To]
// =============================================================================

type DateRange struct {
	From Date
	To   Date
}

// NewDateRange validates and constructs an inclusive range.
func NewDateRange(from, to Date) (DateRange, error) {
	if to.Before(from) {
		return DateRange{}, &ValidationError{Field: "to", Message: "end date before start date"}
	}
	return DateRange{From: from, To: to}, nil
}

// DurationDays returns the inclusive day count: From == To yields 1.
func (r DateRange) DurationDays() int {
	return DaysBetween(r.From, r.To) + 1
}

// Contains reports whether the date falls within [From, To].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.From) && d.BeforeOrEqual(r.To)
}

// Overlaps reports whether two inclusive ranges share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.From.BeforeOrEqual(o.To) && o.From.BeforeOrEqual(r.To)
}

// Days returns every day in the range, in order.
func (r DateRange) Days() []Date {
	var days []Date
	for d := r.From; d.BeforeOrEqual(r.To); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) String() string {
	return "[" + r.From.String() + ", " + r.To.String() + "]"
}
