package history

import (
	"github.com/rilwen/microsimulation-sub000/internal/date"
)

// dense stores every distinct (date, value) append, with no elision.
type dense[T Number] struct {
	kind   Kind
	dates  []date.Date
	values []T
}

func (h *dense[T]) Kind() Kind { return h.kind }

func (h *dense[T]) Empty() bool { return len(h.dates) == 0 }

func (h *dense[T]) FirstDate() date.Date {
	if h.Empty() {
		return date.Zero
	}
	return h.dates[0]
}

func (h *dense[T]) LastDate() date.Date {
	if h.Empty() {
		return date.Zero
	}
	return h.dates[len(h.dates)-1]
}

func (h *dense[T]) Size() int { return len(h.dates) }

func (h *dense[T]) lastValueIndex(asOf date.Date) (int, bool) {
	i := searchLastIndex(h.dates, asOf)
	if i < 0 {
		return 0, false
	}
	return i, true
}

func (h *dense[T]) LastAsDouble(asOf date.Date) (float64, bool) {
	i, ok := h.lastValueIndex(asOf)
	if !ok {
		return 0, false
	}
	return float64(h.values[i]), true
}

func (h *dense[T]) LastAsInt(asOf date.Date) (int64, bool) {
	i, ok := h.lastValueIndex(asOf)
	if !ok {
		return 0, false
	}
	return int64(h.values[i]), true
}

func (h *dense[T]) Append(d date.Date, v Value) error {
	if v.Kind() != h.kind {
		return ErrKindMismatch
	}
	if !h.Empty() && !d.After(h.LastDate()) {
		return outOfOrderErr(d, h.LastDate())
	}
	h.dates = append(h.dates, d)
	h.values = append(h.values, valueAsT[T](v))
	return nil
}

// appendRaw appends an already-typed value without the Value-kind round trip;
// used internally by sparse, which performs its own ordering checks.
func (h *dense[T]) appendRaw(d date.Date, x T) {
	h.dates = append(h.dates, d)
	h.values = append(h.values, x)
}

func (h *dense[T]) Correct(v Value) error {
	if v.Kind() != h.kind {
		return ErrKindMismatch
	}
	if h.Empty() {
		return ErrEmpty
	}
	h.values[len(h.values)-1] = valueAsT[T](v)
	return nil
}

func (h *dense[T]) FirstIndex(d date.Date) int {
	return searchFirstIndex(h.dates, d)
}

func (h *dense[T]) LastIndex(d date.Date) int {
	return searchLastIndex(h.dates, d)
}

func (h *dense[T]) DateAt(i int) date.Date { return h.dates[i] }

func (h *dense[T]) ValueAt(i int) Value { return ValueOf(h.values[i]) }
