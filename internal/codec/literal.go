// Package codec implements the text formats simulator inputs and outputs are
// exchanged in (§6): history literals, unlinked-childbirth literals, person
// records, and variable-declaration records.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/rilwen/microsimulation-sub000/internal/date"
)

// formatDate renders d the way the rest of §6's literal grammar expects
// (YYYY-MM-DD), via strftime so the text boundary does not depend on
// date.Date's own String method staying in that exact shape.
func formatDate(d date.Date) string {
	if d.IsZero() {
		return ""
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return strftime.Format("%Y-%m-%d", t)
}

// ErrInvalidLiteral is a data error: malformed history/childbirth literal text.
var ErrInvalidLiteral = errors.New("codec: malformed literal")

// ErrDatesNotIncreasing is a data error: a literal's dates are not strictly
// increasing, violating the §6.2/§6.3 canonical form.
var ErrDatesNotIncreasing = errors.New("codec: literal dates are not strictly increasing")

// rawEntry is one (date, raw value text) pair parsed out of a literal, before
// the value text is interpreted as a float or an int.
type rawEntry struct {
	date date.Date
	raw  string
}

// parseLiteral splits a §6.2/§6.3-shaped literal into its prefix byte ('D' or
// 'I') and its ordered (date, raw value) entries. An empty string is the
// canonical empty-history/empty-childbirth-list literal and parses to a zero
// prefix with no entries.
func parseLiteral(s string) (byte, []rawEntry, error) {
	if s == "" {
		return 0, nil, nil
	}
	if len(s) < 3 {
		return 0, nil, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}
	prefix := s[0]
	if prefix != 'D' && prefix != 'I' {
		return 0, nil, fmt.Errorf("%w: unknown prefix %q", ErrInvalidLiteral, s[:1])
	}
	body := s[1:]
	if !strings.HasPrefix(body, "[") || !strings.HasSuffix(body, "]") {
		return 0, nil, fmt.Errorf("%w: missing brackets in %q", ErrInvalidLiteral, s)
	}
	body = body[1 : len(body)-1]
	if body == "" {
		return prefix, nil, nil
	}

	var entries []rawEntry
	var prev date.Date
	for i, field := range strings.Split(body, "|") {
		parts := strings.SplitN(field, ",", 2)
		if len(parts) != 2 {
			return 0, nil, fmt.Errorf("%w: entry %q missing comma", ErrInvalidLiteral, field)
		}
		d, err := date.Parse(parts[0])
		if err != nil {
			return 0, nil, fmt.Errorf("%w: entry %q: %v", ErrInvalidLiteral, field, err)
		}
		if i > 0 && !d.After(prev) {
			return 0, nil, fmt.Errorf("%w: %s does not follow %s", ErrDatesNotIncreasing, d, prev)
		}
		prev = d
		entries = append(entries, rawEntry{date: d, raw: parts[1]})
	}
	return prefix, entries, nil
}

// formatLiteral renders entries as a §6.2/§6.3-shaped literal with the given
// prefix, or the empty string if there are no entries.
func formatLiteral(prefix byte, entries []rawEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte(prefix)
	sb.WriteByte('[')
	for i, e := range entries {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(formatDate(e.date))
		sb.WriteByte(',')
		sb.WriteString(e.raw)
	}
	sb.WriteByte(']')
	return sb.String()
}
