// Package history implements the per-actor, per-variable time series store
// (§3, §4.B): an ordered sequence of (date, value) observations queried by
// "last value on or before date", with a dense variant that records every
// change and a sparse variant that additionally elides repeated values.
package history

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rilwen/microsimulation-sub000/internal/date"
)

// ErrOutOfOrder is a logic error: an append supplied a date that does not
// strictly follow the history's current last date. Histories are write-once,
// forward-only — violating this indicates a scheduling bug upstream, not bad
// input, so it aborts the run rather than being recovered from.
var ErrOutOfOrder = errors.New("history: append date is not strictly after the last recorded date")

// ErrKindMismatch is a domain error: a Value was presented to a History whose
// Kind it does not match.
var ErrKindMismatch = errors.New("history: value kind does not match history kind")

// ErrEmpty is a domain error: Correct was called on a History with no
// entries to correct.
var ErrEmpty = errors.New("history: cannot correct an empty history")

// History is a single variable's observation sequence for one actor.
type History interface {
	// Kind reports the concrete numeric representation backing this history.
	Kind() Kind

	// Empty reports whether the history has never received an observation.
	Empty() bool

	// FirstDate returns the date of the earliest recorded observation, or
	// date.Zero if Empty.
	FirstDate() date.Date

	// LastDate returns the date of the most recent logical append (even one
	// elided by a sparse history), or date.Zero if Empty.
	LastDate() date.Date

	// Size returns the number of distinct stored (date, value) entries.
	Size() int

	// LastAsDouble returns the last stored value on or before asOf, widened to
	// float64, and whether such a value exists.
	LastAsDouble(asOf date.Date) (float64, bool)

	// LastAsInt returns the last stored value on or before asOf, narrowed to
	// int64, and whether such a value exists.
	LastAsInt(asOf date.Date) (int64, bool)

	// Append records an observation. d must be strictly after LastDate, else
	// ErrOutOfOrder. v must match Kind, else ErrKindMismatch.
	Append(d date.Date, v Value) error

	// Correct replaces the most recently stored value in place, without
	// shifting LastDate or adding a new entry. Used by operators that sample
	// a provisional value and then rescale it within the same period.
	Correct(v Value) error

	// FirstIndex returns the smallest entry index i with DateAt(i) >= d, or
	// Size() if none exists.
	FirstIndex(d date.Date) int

	// LastIndex returns the largest entry index i with DateAt(i) <= d, or -1
	// if none exists.
	LastIndex(d date.Date) int

	// DateAt and ValueAt expose the i'th stored entry directly, 0 <= i < Size().
	DateAt(i int) date.Date
	ValueAt(i int) Value
}

// Factory builds a fresh, empty History of a fixed Kind and storage
// discipline (dense or sparse). The variable registry (§4.D) holds one
// Factory per registered variable and calls it once per actor that variable
// applies to.
type Factory func() History

// NewDenseFactory returns a Factory producing dense histories of T, recording
// every distinct append.
func NewDenseFactory[T Number]() Factory {
	k := kindFor[T]()
	return func() History {
		return &dense[T]{kind: k}
	}
}

// NewSparseFactory returns a Factory producing sparse histories of T, eliding
// appends whose value equals the immediately preceding stored value.
func NewSparseFactory[T Number]() Factory {
	k := kindFor[T]()
	return func() History {
		return &sparse[T]{dense: dense[T]{kind: k}}
	}
}

func searchFirstIndex(dates []date.Date, d date.Date) int {
	return sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(d)
	})
}

func searchLastIndex(dates []date.Date, d date.Date) int {
	i := sort.Search(len(dates), func(i int) bool {
		return dates[i].After(d)
	})
	return i - 1
}

// AppendOrCorrect appends v at d if d is strictly after h's last date (or h
// is empty), or corrects the existing entry in place if d equals the last
// date. Any other relationship (d strictly before last date) is an
// ErrOutOfOrder.
func AppendOrCorrect(h History, d date.Date, v Value) error {
	if h.Empty() || h.LastDate().Before(d) {
		return h.Append(d, v)
	}
	if h.LastDate() == d {
		return h.Correct(v)
	}
	return outOfOrderErr(d, h.LastDate())
}

func outOfOrderErr(d, last date.Date) error {
	return fmt.Errorf("%w: %s is not after %s", ErrOutOfOrder, d, last)
}
