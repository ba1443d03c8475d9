package codec

import (
	"fmt"
	"strconv"

	"github.com/rilwen/microsimulation-sub000/internal/history"
)

// EncodeHistory renders h as a §6.2 literal: "" for an empty history,
// otherwise "D[...]" for a float-backed history or "I[...]" for an
// int-backed one, with dates rendered ISO-like and values formatted to round
// trip exactly through DecodeHistory.
func EncodeHistory(h history.History) string {
	if h.Empty() {
		return ""
	}
	prefix := byte('I')
	if isFloatKind(h.Kind()) {
		prefix = 'D'
	}
	entries := make([]rawEntry, h.Size())
	for i := 0; i < h.Size(); i++ {
		v := h.ValueAt(i)
		var raw string
		if prefix == 'D' {
			raw = strconv.FormatFloat(v.AsFloat64(), 'g', -1, 64)
		} else {
			raw = strconv.FormatInt(v.AsInt64(), 10)
		}
		entries[i] = rawEntry{date: h.DateAt(i), raw: raw}
	}
	return formatLiteral(prefix, entries)
}

// DecodeHistory parses a §6.2 literal and replays it onto a freshly built,
// empty History (typically h := factory()), appending entries in literal
// order. An empty literal leaves h untouched.
func DecodeHistory(s string, h history.History) error {
	prefix, entries, err := parseLiteral(s)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	wantFloat := isFloatKind(h.Kind())
	if (prefix == 'D') != wantFloat {
		return fmt.Errorf("%w: literal prefix %q does not match history kind %s", ErrInvalidLiteral, string(prefix), h.Kind().Tag())
	}
	for _, e := range entries {
		var v history.Value
		if wantFloat {
			f, err := strconv.ParseFloat(e.raw, 64)
			if err != nil {
				return fmt.Errorf("%w: value %q: %v", ErrInvalidLiteral, e.raw, err)
			}
			if h.Kind() == history.KindFloat32 {
				v = history.FromFloat32(float32(f))
			} else {
				v = history.FromFloat64(f)
			}
		} else {
			n, err := strconv.ParseInt(e.raw, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: value %q: %v", ErrInvalidLiteral, e.raw, err)
			}
			v = history.FromInt(h.Kind(), n)
		}
		if err := h.Append(e.date, v); err != nil {
			return fmt.Errorf("codec: replaying history entry at %s: %w", e.date, err)
		}
	}
	return nil
}

func isFloatKind(k history.Kind) bool {
	return k == history.KindFloat64 || k == history.KindFloat32
}
