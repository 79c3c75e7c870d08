// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"math"
	"time"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM" or "MM-YYYY".
func ParseMonth(s string) (Month, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return MonthOf(t), nil
	}
	if t, err := time.Parse("01-2006", s); err == nil {
		return MonthOf(t), nil
	}
	return Month{}, fmt.Errorf("invalid month %q", s)
}

// String returns the month formatted as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns midnight UTC on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Value is a cell that may hold no data. The zero Value is "no data".
type Value struct {
	V     float64
	Valid bool
}

// Some wraps v as a valid value.
func Some(v float64) Value {
	return Value{V: v, Valid: true}
}

// None returns a value holding no data.
func None() Value {
	return Value{}
}

// Or returns the value or def when there is no data.
func (v Value) Or(def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.V
}

// Add sums two cells. The result has no data only if neither operand has data.
func (v Value) Add(o Value) Value {
	switch {
	case v.Valid && o.Valid:
		return Some(v.V + o.V)
	case v.Valid:
		return v
	default:
		return o
	}
}

// Float returns the value, or NaN when there is no data.
func (v Value) Float() float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.V
}
