package predicate

import (
	"fmt"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
)

func aliveGuard(alive bool, p *actor.Person, asOf date.Date) bool {
	return !alive || p.IsAlive(asOf)
}

// Sex selects persons of a given sex, optionally requiring aliveness.
type Sex struct {
	base
	Sex   actor.Sex
	Alive bool
}

func (s Sex) test(p *actor.Person) bool { return p.Sex() == s.Sex }

func (s Sex) Select(p *actor.Person, ctx Context) bool {
	return aliveGuard(s.Alive, p, ctx.AsOf) && s.test(p)
}
func (s Sex) SelectAlive(p *actor.Person, ctx Context) bool { return s.test(p) }
func (s Sex) SelectOutOfContext(p *actor.Person) bool       { return s.test(p) }
func (s Sex) SelectsAliveOnly() bool                        { return s.Alive }
func (s Sex) Negate() Predicate                             { return notOf(s) }
func (s Sex) Sum(other Predicate) Predicate                 { return sum(s, other) }
func (s Sex) Product(other Predicate) Predicate             { return product(s, other) }
func (s Sex) String() string                                { return fmt.Sprintf("Sex(%s, alive=%v)", s.Sex, s.Alive) }

// Age selects persons whose age in years as of ctx.AsOf falls in [Min, Max].
type Age struct {
	base
	Min, Max int
	Alive    bool
}

func (a Age) Select(p *actor.Person, ctx Context) bool {
	if !aliveGuard(a.Alive, p, ctx.AsOf) {
		return false
	}
	age := p.Age(ctx.AsOf)
	return age >= a.Min && age <= a.Max
}
func (a Age) SelectAlive(p *actor.Person, ctx Context) bool {
	age := p.Age(ctx.AsOf)
	return age >= a.Min && age <= a.Max
}
func (a Age) SelectOutOfContext(*actor.Person) bool { return true }
func (a Age) AlwaysTrueOutOfContext() bool          { return true }
func (a Age) SelectsAliveOnly() bool                { return a.Alive }
func (a Age) Negate() Predicate                     { return notOf(a) }
func (a Age) Sum(other Predicate) Predicate         { return sum(a, other) }
func (a Age) Product(other Predicate) Predicate     { return product(a, other) }
func (a Age) String() string {
	return fmt.Sprintf("Age(%d,%d, alive=%v)", a.Min, a.Max, a.Alive)
}

// YearOfBirth selects persons born in calendar years [Min, Max].
type YearOfBirth struct {
	base
	Min, Max int
	Alive    bool
}

func (y YearOfBirth) test(p *actor.Person) bool {
	yob := p.YearOfBirth()
	return yob >= y.Min && yob <= y.Max
}
func (y YearOfBirth) Select(p *actor.Person, ctx Context) bool {
	return aliveGuard(y.Alive, p, ctx.AsOf) && y.test(p)
}
func (y YearOfBirth) SelectAlive(p *actor.Person, ctx Context) bool { return y.test(p) }
func (y YearOfBirth) SelectOutOfContext(p *actor.Person) bool       { return y.test(p) }
func (y YearOfBirth) AlwaysTrueOutOfContext() bool                  { return false }
func (y YearOfBirth) SelectsAliveOnly() bool                        { return y.Alive }
func (y YearOfBirth) Negate() Predicate                             { return notOf(y) }
func (y YearOfBirth) Sum(other Predicate) Predicate                 { return sum(y, other) }
func (y YearOfBirth) Product(other Predicate) Predicate             { return product(y, other) }
func (y YearOfBirth) String() string {
	return fmt.Sprintf("YearOfBirth(%d,%d, alive=%v)", y.Min, y.Max, y.Alive)
}

// EthnicitySingle selects persons of exactly one ethnicity group.
type EthnicitySingle struct {
	base
	Group uint8
	Alive bool
}

func (e EthnicitySingle) test(p *actor.Person) bool { return p.Ethnicity() == e.Group }
func (e EthnicitySingle) Select(p *actor.Person, ctx Context) bool {
	return aliveGuard(e.Alive, p, ctx.AsOf) && e.test(p)
}
func (e EthnicitySingle) SelectAlive(p *actor.Person, ctx Context) bool { return e.test(p) }
func (e EthnicitySingle) SelectOutOfContext(p *actor.Person) bool       { return e.test(p) }
func (e EthnicitySingle) SelectsAliveOnly() bool                        { return e.Alive }
func (e EthnicitySingle) Negate() Predicate                             { return notOf(e) }
func (e EthnicitySingle) Sum(other Predicate) Predicate                 { return sum(e, other) }
func (e EthnicitySingle) Product(other Predicate) Predicate             { return product(e, other) }
func (e EthnicitySingle) String() string {
	return fmt.Sprintf("EthnicitySingle(%d, alive=%v)", e.Group, e.Alive)
}

// EthnicityRange selects persons whose ethnicity group falls in [Min, Max].
type EthnicityRange struct {
	base
	Min, Max uint8
	Alive    bool
}

func (e EthnicityRange) test(p *actor.Person) bool {
	g := p.Ethnicity()
	return g >= e.Min && g <= e.Max
}
func (e EthnicityRange) Select(p *actor.Person, ctx Context) bool {
	return aliveGuard(e.Alive, p, ctx.AsOf) && e.test(p)
}
func (e EthnicityRange) SelectAlive(p *actor.Person, ctx Context) bool { return e.test(p) }
func (e EthnicityRange) SelectOutOfContext(p *actor.Person) bool       { return e.test(p) }
func (e EthnicityRange) SelectsAliveOnly() bool                        { return e.Alive }
func (e EthnicityRange) Negate() Predicate                             { return notOf(e) }
func (e EthnicityRange) Sum(other Predicate) Predicate                 { return sum(e, other) }
func (e EthnicityRange) Product(other Predicate) Predicate             { return product(e, other) }
func (e EthnicityRange) String() string {
	return fmt.Sprintf("EthnicityRange(%d,%d, alive=%v)", e.Min, e.Max, e.Alive)
}

// EthnicitySet selects persons whose ethnicity group is in Groups.
type EthnicitySet struct {
	base
	Groups map[uint8]struct{}
	Alive  bool
}

// NewEthnicitySet builds an EthnicitySet from a list of group indices.
func NewEthnicitySet(alive bool, groups ...uint8) EthnicitySet {
	set := make(map[uint8]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return EthnicitySet{Groups: set, Alive: alive}
}

func (e EthnicitySet) test(p *actor.Person) bool {
	_, ok := e.Groups[p.Ethnicity()]
	return ok
}
func (e EthnicitySet) Select(p *actor.Person, ctx Context) bool {
	return aliveGuard(e.Alive, p, ctx.AsOf) && e.test(p)
}
func (e EthnicitySet) SelectAlive(p *actor.Person, ctx Context) bool { return e.test(p) }
func (e EthnicitySet) SelectOutOfContext(p *actor.Person) bool       { return e.test(p) }
func (e EthnicitySet) SelectsAliveOnly() bool                        { return e.Alive }
func (e EthnicitySet) Negate() Predicate                             { return notOf(e) }
func (e EthnicitySet) Sum(other Predicate) Predicate                 { return sum(e, other) }
func (e EthnicitySet) Product(other Predicate) Predicate             { return product(e, other) }
func (e EthnicitySet) String() string {
	return fmt.Sprintf("EthnicitySet(%d groups, alive=%v)", len(e.Groups), e.Alive)
}

// Asof selects actors only within the half-open window [Begin, End) of the
// simulation date itself; it does not look at actor state at all.
type Asof struct {
	base
	Begin, End date.Date
}

func (a Asof) inWindow(d date.Date) bool {
	return !d.Before(a.Begin) && d.Before(a.End)
}
func (a Asof) Select(_ *actor.Person, ctx Context) bool     { return a.inWindow(ctx.AsOf) }
func (a Asof) SelectAlive(_ *actor.Person, ctx Context) bool { return a.inWindow(ctx.AsOf) }
func (a Asof) SelectOutOfContext(*actor.Person) bool        { return true }
func (a Asof) AlwaysTrueOutOfContext() bool                 { return true }
func (a Asof) Active(d date.Date) bool                      { return a.inWindow(d) }
func (a Asof) Negate() Predicate                            { return notOf(a) }
func (a Asof) Sum(other Predicate) Predicate                { return sum(a, other) }
func (a Asof) Product(other Predicate) Predicate            { return product(a, other) }
func (a Asof) String() string {
	return fmt.Sprintf("Asof[%s,%s)", a.Begin, a.End)
}
