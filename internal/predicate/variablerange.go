package predicate

import (
	"fmt"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
)

// VariableRange selects persons whose named history's last value (as of
// ctx.AsOf) falls in [Min, Max]. AcceptMissing controls whether persons with
// no such history (or no value yet) are selected. Context-free: Active and
// SelectOutOfContext are always true, since the variable index resolves at
// evaluation time from the immutable context, not from actor state alone.
type VariableRange struct {
	base
	Variable      string
	Min, Max      float64
	AcceptMissing bool
}

func (v VariableRange) Select(p *actor.Person, ctx Context) bool {
	idx, err := ctx.Immutable.Registry.VariableIndex(v.Variable)
	if err != nil {
		return v.AcceptMissing
	}
	h := p.History(int(idx))
	if h == nil || h.Empty() {
		return v.AcceptMissing
	}
	val, ok := h.LastAsDouble(ctx.AsOf)
	if !ok {
		return v.AcceptMissing
	}
	return val >= v.Min && val <= v.Max
}

func (v VariableRange) SelectAlive(p *actor.Person, ctx Context) bool { return v.Select(p, ctx) }
func (v VariableRange) SelectOutOfContext(*actor.Person) bool         { return true }
func (v VariableRange) AlwaysTrueOutOfContext() bool                  { return true }
func (v VariableRange) Negate() Predicate                             { return notOf(v) }
func (v VariableRange) Sum(other Predicate) Predicate                 { return sum(v, other) }
func (v VariableRange) Product(other Predicate) Predicate             { return product(v, other) }
func (v VariableRange) String() string {
	return fmt.Sprintf("VariableRange(%s, %g, %g, accept_missing=%v)", v.Variable, v.Min, v.Max, v.AcceptMissing)
}
