// Package date provides a small, comparable calendar-date value type used
// throughout the simulation core. A plain struct (rather than time.Time) keeps
// day arithmetic exact and free of timezone/DST concerns the simulator never
// needs to reason about.
package date

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day or timezone component.
type Date struct {
	Year  int
	Month int // 1-12
	Day   int // 1-31
}

// Zero is the unset/"not-a-date" sentinel. Valid dates never equal Zero.
var Zero = Date{}

// New constructs a Date and validates it.
func New(year, month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if !d.Valid() {
		return Zero, fmt.Errorf("date: invalid date %04d-%02d-%02d", year, month, day)
	}
	return d, nil
}

// MustNew is New but panics on an invalid date; intended for literals in
// tests and static configuration, never for externally supplied values.
func MustNew(year, month, day int) Date {
	d, err := New(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// Valid reports whether d refers to an actual calendar day.
func (d Date) Valid() bool {
	if d.Month < 1 || d.Month > 12 {
		return false
	}
	if d.Day < 1 || d.Day > daysInMonth(d.Year, d.Month) {
		return false
	}
	return true
}

// IsZero reports whether d is the not-a-date sentinel.
func (d Date) IsZero() bool {
	return d == Zero
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

func isLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func (d Date) toTime() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

func fromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// Compare returns -1, 0, or 1 as d is before, equal to, or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(d.Month - other.Month)
	default:
		return sign(d.Day - other.Day)
	}
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	default:
		return 0
	}
}

// AddDays returns d shifted by n days (n may be negative).
func (d Date) AddDays(n int) Date {
	return fromTime(d.toTime().AddDate(0, 0, n))
}

// AddMonths returns d shifted by n months (n may be negative), clamping the
// day of month when the target month is shorter.
func (d Date) AddMonths(n int) Date {
	y, m := d.Year, d.Month-1+n
	y += m / 12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	day := d.Day
	if last := daysInMonth(y, m+1); day > last {
		day = last
	}
	return Date{Year: y, Month: m + 1, Day: day}
}

// AddYears returns d shifted by n years.
func (d Date) AddYears(n int) Date {
	return fromTime(d.toTime().AddDate(n, 0, 0))
}

// DaysSince returns the number of days between other and d (d - other).
func (d Date) DaysSince(other Date) int {
	return int(d.toTime().Sub(other.toTime()).Hours() / 24)
}

// YearsFraction returns the age of something born on d, as of asOf, expressed
// as a year fraction (no rounding).
func (d Date) YearsFraction(asOf Date) float64 {
	if asOf.Before(d) {
		return 0
	}
	return float64(asOf.DaysSince(d)) / 365.2425
}

// AgeInYears returns the whole number of years elapsed since d as of asOf,
// rounded down to the last birthday. Returns 0 if asOf is before d.
func (d Date) AgeInYears(asOf Date) int {
	if asOf.Before(d) {
		return 0
	}
	years := asOf.Year - d.Year
	if asOf.Month < d.Month || (asOf.Month == d.Month && asOf.Day < d.Day) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}

// String renders d as an ISO-like YYYY-MM-DD string.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Parse parses an ISO-like YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	if s == "" {
		return Zero, nil
	}
	var y, m, day int
	if _, err := fmt.Sscanf(s, "%04d-%02d-%02d", &y, &m, &day); err != nil {
		return Zero, fmt.Errorf("date: cannot parse %q: %w", s, err)
	}
	return New(y, m, day)
}
