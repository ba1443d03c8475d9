// Package predicate implements the Boolean selector algebra actors are
// tested against (§4.C component D): sex/age/ethnicity/variable-range
// filters, pregnancy-state checks, and the And/Or/Not combinators with their
// short-circuiting identities.
package predicate

import (
	"strings"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
)

// Context is the context a predicate evaluates against: the immutable
// context (for variable-index lookups) plus the date being evaluated.
type Context struct {
	Immutable simcontext.ImmutableContext
	AsOf      date.Date
}

// Predicate selects actors by some criterion. Implementations are immutable
// and safe for concurrent read-only use.
type Predicate interface {
	// Select decides whether p qualifies as of ctx.AsOf.
	Select(p *actor.Person, ctx Context) bool

	// SelectAlive is Select under the assumption p is already known alive;
	// implementations may skip a redundant aliveness check but must never be
	// stricter than Select.
	SelectAlive(p *actor.Person, ctx Context) bool

	// SelectOutOfContext performs a context-free, "wide" selection: anything
	// Select accepts, this must also accept.
	SelectOutOfContext(p *actor.Person) bool

	// Active is a lower bound: if false, the predicate cannot select anyone
	// on d.
	Active(d date.Date) bool

	// AlwaysTrue reports whether Select always returns true.
	AlwaysTrue() bool

	// AlwaysTrueOutOfContext reports whether SelectOutOfContext always
	// returns true. Must be true whenever AlwaysTrue is true.
	AlwaysTrueOutOfContext() bool

	// SelectsAliveOnly reports whether this predicate only ever selects
	// live actors.
	SelectsAliveOnly() bool

	// Negate, Sum (logical or), and Product (logical and) build new
	// Predicates respecting the short-circuiting identities.
	Negate() Predicate
	Sum(other Predicate) Predicate
	Product(other Predicate) Predicate

	// String renders a human-readable description.
	String() string
}

// base supplies the defaults shared by every predicate: Active is always
// true, and AlwaysTrue, AlwaysTrueOutOfContext and SelectsAliveOnly are
// false. Each predicate type implements Select, SelectAlive,
// SelectOutOfContext, Negate, Sum, Product and String itself.
type base struct{}

func (base) Active(date.Date) bool           { return true }
func (base) AlwaysTrue() bool                { return false }
func (base) AlwaysTrueOutOfContext() bool    { return false }
func (base) SelectsAliveOnly() bool          { return false }

func sum(p, other Predicate) Predicate {
	if p.AlwaysTrue() || other.AlwaysTrue() {
		return True{}
	}
	return newOr(p, other)
}

func product(p, other Predicate) Predicate {
	if p.AlwaysTrue() {
		return other
	}
	if other.AlwaysTrue() {
		return p
	}
	return newAnd(p, other)
}

// True selects everything unconditionally.
type True struct{ base }

func (True) Select(*actor.Person, Context) bool       { return true }
func (True) SelectAlive(*actor.Person, Context) bool   { return true }
func (True) SelectOutOfContext(*actor.Person) bool     { return true }
func (True) AlwaysTrue() bool                          { return true }
func (True) AlwaysTrueOutOfContext() bool              { return true }
func (t True) Negate() Predicate                       { return notOf(t) }
func (t True) Sum(other Predicate) Predicate           { return True{} }
func (t True) Product(other Predicate) Predicate       { return other }
func (True) String() string                            { return "True" }

// And is the conjunction of a flattened list of predicates.
type And struct {
	base
	terms []Predicate
}

func newAnd(terms ...Predicate) And {
	var flat []Predicate
	for _, t := range terms {
		if inner, ok := t.(And); ok {
			flat = append(flat, inner.terms...)
		} else if !t.AlwaysTrue() {
			flat = append(flat, t)
		}
	}
	if len(flat) == 0 {
		flat = []Predicate{True{}}
	}
	return And{terms: flat}
}

func (a And) Select(p *actor.Person, ctx Context) bool {
	for _, t := range a.terms {
		if !t.Select(p, ctx) {
			return false
		}
	}
	return true
}

func (a And) SelectAlive(p *actor.Person, ctx Context) bool {
	for _, t := range a.terms {
		if !t.SelectAlive(p, ctx) {
			return false
		}
	}
	return true
}

func (a And) SelectOutOfContext(p *actor.Person) bool {
	for _, t := range a.terms {
		if !t.SelectOutOfContext(p) {
			return false
		}
	}
	return true
}

func (a And) Active(d date.Date) bool {
	for _, t := range a.terms {
		if !t.Active(d) {
			return false
		}
	}
	return true
}

func (a And) AlwaysTrue() bool {
	for _, t := range a.terms {
		if !t.AlwaysTrue() {
			return false
		}
	}
	return true
}

func (a And) AlwaysTrueOutOfContext() bool {
	for _, t := range a.terms {
		if !t.AlwaysTrueOutOfContext() {
			return false
		}
	}
	return true
}

func (a And) SelectsAliveOnly() bool {
	for _, t := range a.terms {
		if t.SelectsAliveOnly() {
			return true
		}
	}
	return false
}

func (a And) Negate() Predicate                 { return notOf(a) }
func (a And) Sum(other Predicate) Predicate     { return sum(a, other) }
func (a And) Product(other Predicate) Predicate { return product(a, other) }

func (a And) String() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

// Or is the disjunction of a flattened list of predicates.
type Or struct {
	base
	terms []Predicate
}

func newOr(terms ...Predicate) Or {
	var flat []Predicate
	for _, t := range terms {
		if inner, ok := t.(Or); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, t)
		}
	}
	return Or{terms: flat}
}

func (o Or) Select(p *actor.Person, ctx Context) bool {
	for _, t := range o.terms {
		if t.Select(p, ctx) {
			return true
		}
	}
	return false
}

func (o Or) SelectAlive(p *actor.Person, ctx Context) bool {
	for _, t := range o.terms {
		if t.SelectAlive(p, ctx) {
			return true
		}
	}
	return false
}

func (o Or) SelectOutOfContext(p *actor.Person) bool {
	for _, t := range o.terms {
		if t.SelectOutOfContext(p) {
			return true
		}
	}
	return false
}

func (o Or) Active(d date.Date) bool {
	for _, t := range o.terms {
		if t.Active(d) {
			return true
		}
	}
	return false
}

func (o Or) AlwaysTrue() bool {
	for _, t := range o.terms {
		if t.AlwaysTrue() {
			return true
		}
	}
	return false
}

func (o Or) AlwaysTrueOutOfContext() bool {
	for _, t := range o.terms {
		if t.AlwaysTrueOutOfContext() {
			return true
		}
	}
	return false
}

func (o Or) SelectsAliveOnly() bool {
	for _, t := range o.terms {
		if !t.SelectsAliveOnly() {
			return false
		}
	}
	return len(o.terms) > 0
}

func (o Or) Negate() Predicate                 { return notOf(o) }
func (o Or) Product(other Predicate) Predicate { return product(o, other) }
func (o Or) Sum(other Predicate) Predicate     { return sum(o, other) }

func (o Or) String() string {
	parts := make([]string, len(o.terms))
	for i, t := range o.terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// Not negates an inner predicate, collapsing Not(Not(p)) to p.
type Not struct {
	base
	inner Predicate
}

func notOf(p Predicate) Predicate {
	if inner, ok := p.(Not); ok {
		return inner.inner
	}
	return Not{inner: p}
}

func (n Not) Select(p *actor.Person, ctx Context) bool     { return !n.inner.Select(p, ctx) }
func (n Not) SelectAlive(p *actor.Person, ctx Context) bool { return !n.inner.SelectAlive(p, ctx) }
func (n Not) SelectOutOfContext(p *actor.Person) bool       { return !n.inner.SelectOutOfContext(p) }
func (n Not) Negate() Predicate                             { return n.inner }
func (n Not) Sum(other Predicate) Predicate                 { return sum(n, other) }
func (n Not) Product(other Predicate) Predicate             { return product(n, other) }
func (n Not) String() string                                { return "NOT " + n.inner.String() }
