package predicate

import (
	"fmt"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
)

// ImmigrationDate selects persons whose last immigration date falls in
// [From, To). Non-immigrants (ImmigrationDate unset) are selected only if
// AllowNonImmigrants is set. Active(d) is a lower bound: the predicate
// cannot possibly select anyone before From unless non-immigrants are
// allowed too.
type ImmigrationDate struct {
	base
	From, To           date.Date
	AllowNonImmigrants bool
	RequireAlive       bool
}

func (im ImmigrationDate) test(p *actor.Person) bool {
	d := p.ImmigrationDate()
	if d.IsZero() {
		return im.AllowNonImmigrants
	}
	return !d.Before(im.From) && d.Before(im.To)
}

func (im ImmigrationDate) Select(p *actor.Person, ctx Context) bool {
	return aliveGuard(im.RequireAlive, p, ctx.AsOf) && im.test(p)
}
func (im ImmigrationDate) SelectAlive(p *actor.Person, ctx Context) bool { return im.test(p) }
func (im ImmigrationDate) SelectOutOfContext(p *actor.Person) bool       { return im.test(p) }
func (im ImmigrationDate) SelectsAliveOnly() bool                        { return im.RequireAlive }
func (im ImmigrationDate) Active(d date.Date) bool {
	return im.AllowNonImmigrants || !d.Before(im.From)
}
func (im ImmigrationDate) Negate() Predicate             { return notOf(im) }
func (im ImmigrationDate) Sum(other Predicate) Predicate { return sum(im, other) }
func (im ImmigrationDate) Product(other Predicate) Predicate {
	return product(im, other)
}
func (im ImmigrationDate) String() string {
	return fmt.Sprintf("ImmigrationDate[%s,%s), allow_non_immigrants=%v, alive=%v", im.From, im.To, im.AllowNonImmigrants, im.RequireAlive)
}
