// Package daterange normalizes the bounds of a reporting interval.
package daterange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

// Layout is the DD-MM-YYYY form the accounting tool expects.
const Layout = "02-01-2006"

var (
	// ErrInvalidDateFormat is returned for a bound that cannot be read as a date.
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrInvalidDateType is returned for a bound that is neither a year nor a string.
	ErrInvalidDateType = errors.New("invalid date type")
	// ErrEmptyInterval is returned when start falls after end.
	ErrEmptyInterval = errors.New("start date is after end date")
)

// Interval is a closed range of calendar days.
type Interval struct {
	Start time.Time
	End   time.Time
}

// StartString returns the start bound as DD-MM-YYYY.
func (iv Interval) StartString() string {
	return iv.Start.Format(Layout)
}

// EndString returns the end bound as DD-MM-YYYY.
func (iv Interval) EndString() string {
	return iv.End.Format(Layout)
}

// Months returns every calendar month touched by the interval, both ends included.
func (iv Interval) Months() []models.Month {
	first := models.MonthOf(iv.Start)
	last := models.MonthOf(iv.End)

	var months []models.Month
	for m := first; !last.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months
}

func (iv Interval) String() string {
	return iv.StartString() + " - " + iv.EndString()
}

// Resolver turns partial bounds into a concrete interval.
type Resolver struct {
	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time
}

// Resolve normalizes start and end. Each bound may be nil, an int year,
// or a string in YYYY, MM-YYYY or DD-MM-YYYY form.
func (r Resolver) Resolve(start, end any) (Interval, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	today := now()

	s, err := parseBound(start)
	if err != nil {
		return Interval{}, fmt.Errorf("start: %w", err)
	}
	e, err := parseBound(end)
	if err != nil {
		return Interval{}, fmt.Errorf("end: %w", err)
	}

	var iv Interval
	if s == nil {
		iv.Start = date(today.Year(), time.January, 1)
	} else {
		if s.month == 0 {
			s.month = time.January
		}
		if s.day == 0 {
			s.day = 1
		}
		if iv.Start, err = s.resolve(); err != nil {
			return Interval{}, fmt.Errorf("start: %w", err)
		}
	}

	if e == nil {
		iv.End = lastDay(today.Year(), today.Month())
	} else {
		if e.month == 0 {
			e.month = time.December
		}
		if e.day == 0 {
			e.day = lastDay(e.year, e.month).Day()
		}
		if iv.End, err = e.resolve(); err != nil {
			return Interval{}, fmt.Errorf("end: %w", err)
		}
	}

	if iv.Start.After(iv.End) {
		return Interval{}, fmt.Errorf("%w: %s", ErrEmptyInterval, iv)
	}
	return iv, nil
}

// Resolve normalizes start and end against the current clock.
func Resolve(start, end any) (Interval, error) {
	return Resolver{}.Resolve(start, end)
}

// bound holds the fields given for one side; zero means unspecified.
type bound struct {
	year  int
	month time.Month
	day   int
	raw   string
}

func (b *bound) resolve() (time.Time, error) {
	t := date(b.year, b.month, b.day)
	if t.Year() != b.year || t.Month() != b.month || t.Day() != b.day {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDateFormat, b.raw)
	}
	return t, nil
}

func parseBound(v any) (*bound, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		return yearBound(x, strconv.Itoa(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		return parseString(s)
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidDateType, v)
	}
}

func yearBound(year int, raw string) (*bound, error) {
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: year %q out of range", ErrInvalidDateFormat, raw)
	}
	return &bound{year: year, raw: raw}, nil
}

func parseString(s string) (*bound, error) {
	parts := strings.Split(s, "-")
	if len(parts) > 3 {
		return nil, fmt.Errorf("%w: %q has too many fields", ErrInvalidDateFormat, s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		if !allDigits(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
		}
		nums[i] = n
	}

	// The year is always the last field.
	b, err := yearBound(nums[len(nums)-1], s)
	if err != nil {
		return nil, err
	}
	b.raw = s

	if len(nums) >= 2 {
		month := nums[len(nums)-2]
		if month < 1 || month > 12 {
			return nil, fmt.Errorf("%w: %q has no month %d", ErrInvalidDateFormat, s, month)
		}
		b.month = time.Month(month)
	}
	if len(nums) == 3 {
		if nums[0] < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
		}
		b.day = nums[0]
	}
	return b, nil
}

// allDigits rejects empty fields and the signs strconv.Atoi would accept.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func lastDay(year int, month time.Month) time.Time {
	return date(year, month+1, 0)
}
