package codec

import (
	"fmt"
	"strconv"

	"github.com/rilwen/microsimulation-sub000/internal/date"
)

// EncodeUnlinkedChildbirths renders a sequence of historical birth dates
// (already in non-decreasing order, as actor.Person.ChildBirthDate yields
// them) as a §6.3 literal: consecutive equal dates collapse into one entry
// carrying their multiplicity.
func EncodeUnlinkedChildbirths(dates []date.Date) string {
	if len(dates) == 0 {
		return ""
	}
	var entries []rawEntry
	for _, d := range dates {
		if n := len(entries); n > 0 && entries[n-1].date == d {
			count, _ := strconv.Atoi(entries[n-1].raw)
			entries[n-1].raw = strconv.Itoa(count + 1)
			continue
		}
		entries = append(entries, rawEntry{date: d, raw: "1"})
	}
	return formatLiteral('I', entries)
}

// DecodeUnlinkedChildbirths parses a §6.3 literal into an expanded sequence
// of birth dates: each (date, multiplicity) entry yields multiplicity copies
// of date, one per unlinked birth event, in literal order.
func DecodeUnlinkedChildbirths(s string) ([]date.Date, error) {
	prefix, entries, err := parseLiteral(s)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	if prefix != 'I' {
		return nil, fmt.Errorf("%w: unlinked childbirths literal must use the int prefix, got %q", ErrInvalidLiteral, string(prefix))
	}
	var out []date.Date
	for _, e := range entries {
		n, err := strconv.Atoi(e.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: multiplicity %q: %v", ErrInvalidLiteral, e.raw, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%w: non-positive multiplicity %d at %s", ErrInvalidLiteral, n, e.date)
		}
		for i := 0; i < n; i++ {
			out = append(out, e.date)
		}
	}
	return out, nil
}
