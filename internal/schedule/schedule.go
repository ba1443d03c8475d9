// Package schedule defines the simulation's period structure (§4.A): the
// strictly increasing sequence of dates that bound each simulated period.
package schedule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rilwen/microsimulation-sub000/internal/date"
)

// ErrEmpty is a domain error: a schedule needs at least one date.
var ErrEmpty = errors.New("schedule: needs at least one date")

// ErrNotStrictlyIncreasing is a domain error: schedule dates must be unique
// and sorted.
var ErrNotStrictlyIncreasing = errors.New("schedule: dates must be strictly increasing")

// ErrNotInSchedule is an out-of-range error: a date lookup missed.
var ErrNotInSchedule = errors.New("schedule: date not found")

// Period is a half-open simulation period [Begin, End).
type Period struct {
	Begin date.Date
	End   date.Date
}

// Schedule is the ordered sequence of dates bounding the simulation periods.
// A Schedule built from N dates has N-1 periods (or exactly one degenerate
// period with Begin == End when built from a single date).
type Schedule struct {
	dates []date.Date
}

// New builds a Schedule from a strictly increasing, non-empty slice of dates.
func New(dates []date.Date) (Schedule, error) {
	if len(dates) == 0 {
		return Schedule{}, ErrEmpty
	}
	cp := make([]date.Date, len(dates))
	copy(cp, dates)
	for i := 1; i < len(cp); i++ {
		if !cp[i].After(cp[i-1]) {
			return Schedule{}, fmt.Errorf("%w: %s is not after %s", ErrNotStrictlyIncreasing, cp[i], cp[i-1])
		}
	}
	return Schedule{dates: cp}, nil
}

// NewFromStep builds a Schedule of dates start, start+step, ..., covering at
// least through end (the last generated date is >= end).
func NewFromStep(start, end date.Date, addStep func(date.Date) date.Date) (Schedule, error) {
	if !end.After(start) {
		return New([]date.Date{start})
	}
	var dates []date.Date
	for d := start; ; d = addStep(d) {
		dates = append(dates, d)
		if !d.Before(end) {
			break
		}
	}
	return New(dates)
}

// NbrDates returns the number of boundary dates (Size()+1 for a schedule with
// more than one date, or 1 for a degenerate single-date schedule).
func (s Schedule) NbrDates() int {
	return len(s.dates)
}

// Size returns the number of periods.
func (s Schedule) Size() int {
	if len(s.dates) <= 1 {
		return 1
	}
	return len(s.dates) - 1
}

// Empty reports whether the schedule has no dates.
func (s Schedule) Empty() bool {
	return len(s.dates) == 0
}

// Date returns the i'th boundary date, 0 <= i < NbrDates().
func (s Schedule) Date(i int) date.Date {
	return s.dates[i]
}

// StartDate returns the first boundary date.
func (s Schedule) StartDate() date.Date {
	return s.dates[0]
}

// EndDate returns the last boundary date.
func (s Schedule) EndDate() date.Date {
	return s.dates[len(s.dates)-1]
}

// Period returns the idx'th period, 0 <= idx < Size().
func (s Schedule) Period(idx int) Period {
	if len(s.dates) <= 1 {
		return Period{Begin: s.dates[0], End: s.dates[0]}
	}
	return Period{Begin: s.dates[idx], End: s.dates[idx+1]}
}

// Index returns the position of d among the schedule's boundary dates.
func (s Schedule) Index(d date.Date) (int, error) {
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(d) })
	if i < len(s.dates) && s.dates[i] == d {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNotInSchedule, d)
}

// Contains reports whether d is one of the schedule's boundary dates.
func (s Schedule) Contains(d date.Date) bool {
	_, err := s.Index(d)
	return err == nil
}

// ContainsSchedule reports whether every date in other also appears in s.
func (s Schedule) ContainsSchedule(other Schedule) bool {
	for i := 0; i < other.NbrDates(); i++ {
		if !s.Contains(other.Date(i)) {
			return false
		}
	}
	return true
}

// FindContainingPeriod returns the index i such that Date(i) <= d < Date(i+1).
func (s Schedule) FindContainingPeriod(d date.Date) (int, error) {
	if len(s.dates) == 0 || d.Before(s.dates[0]) {
		return 0, fmt.Errorf("%w: %s precedes schedule start", ErrNotInSchedule, d)
	}
	if len(s.dates) == 1 {
		if d == s.dates[0] {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %s", ErrNotInSchedule, d)
	}
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(d) })
	if i == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotInSchedule, d)
	}
	if i-1 >= len(s.dates)-1 {
		return 0, fmt.Errorf("%w: %s is beyond schedule end", ErrNotInSchedule, d)
	}
	return i - 1, nil
}

// Years returns the distinct calendar years the schedule's boundary dates
// fall in, in increasing order.
func (s Schedule) Years() []int {
	var years []int
	for _, d := range s.dates {
		if len(years) == 0 || d.Year > years[len(years)-1] {
			years = append(years, d.Year)
		}
	}
	return years
}
