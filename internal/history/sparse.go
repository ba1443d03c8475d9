package history

import "github.com/rilwen/microsimulation-sub000/internal/date"

// sparse stores only dates of change: an append whose value equals the
// immediately preceding stored value is elided, while the logical LastDate
// still advances so ordering is enforced against every append attempt, not
// just the ones that produced a new entry (§4.B).
type sparse[T Number] struct {
	dense    dense[T]
	lastDate date.Date
	hasLast  bool
}

func (h *sparse[T]) Kind() Kind { return h.dense.kind }

func (h *sparse[T]) Empty() bool { return !h.hasLast }

func (h *sparse[T]) FirstDate() date.Date { return h.dense.FirstDate() }

func (h *sparse[T]) LastDate() date.Date {
	if !h.hasLast {
		return date.Zero
	}
	return h.lastDate
}

func (h *sparse[T]) Size() int { return h.dense.Size() }

func (h *sparse[T]) LastAsDouble(asOf date.Date) (float64, bool) {
	return h.dense.LastAsDouble(asOf)
}

func (h *sparse[T]) LastAsInt(asOf date.Date) (int64, bool) {
	return h.dense.LastAsInt(asOf)
}

func (h *sparse[T]) Append(d date.Date, v Value) error {
	if v.Kind() != h.dense.kind {
		return ErrKindMismatch
	}
	if h.hasLast && !d.After(h.lastDate) {
		return outOfOrderErr(d, h.lastDate)
	}
	h.lastDate = d
	h.hasLast = true

	x := valueAsT[T](v)
	if n := h.dense.Size(); n > 0 && h.dense.values[n-1] == x {
		return nil
	}
	h.dense.appendRaw(d, x)
	return nil
}

func (h *sparse[T]) Correct(v Value) error {
	return h.dense.Correct(v)
}

func (h *sparse[T]) FirstIndex(d date.Date) int { return h.dense.FirstIndex(d) }

func (h *sparse[T]) LastIndex(d date.Date) int { return h.dense.LastIndex(d) }

func (h *sparse[T]) DateAt(i int) date.Date { return h.dense.DateAt(i) }

func (h *sparse[T]) ValueAt(i int) Value { return h.dense.ValueAt(i) }
