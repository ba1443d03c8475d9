package predicate

import (
	"fmt"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
)

// PregnancyEventVariable is the history variable the pregnancy operator
// (§4.E.9) writes its cascade of event codes to: CONCEPTION, any number of
// intermediate stage codes, then a terminating BIRTH or MISCARRIAGE.
const PregnancyEventVariable = "PREGNANCY_EVENT"

// PregnancyEvent is the code stored in PregnancyEventVariable's history.
type PregnancyEvent int8

const (
	EventConception  PregnancyEvent = 0
	EventMiscarriage PregnancyEvent = 1
	EventBirth       PregnancyEvent = 2
	// Values >= FirstIntermediateEvent denote intermediate cascade stages
	// between conception and a terminating event; they are non-terminating.
	FirstIntermediateEvent PregnancyEvent = 3
)

// Terminating reports whether e ends a pregnancy.
func (e PregnancyEvent) Terminating() bool {
	return e == EventMiscarriage || e == EventBirth
}

// PregnancyState is the coarse state the Pregnancy predicate tests for.
type PregnancyState int

const (
	NotPregnant PregnancyState = iota
	Pregnant
)

// Pregnancy selects female persons in a given pregnancy state, determined
// from the last recorded PregnancyEventVariable entry as of the evaluation
// date. AtStart tests the state at the *start* of the period (strictly
// before ctx.AsOf); otherwise it tests at the end (on or before ctx.AsOf).
// Selects only females.
type Pregnancy struct {
	base
	State   PregnancyState
	Alive   bool
	AtStart bool
}

func (pr Pregnancy) stateAt(p *actor.Person, ctx Context, asOf date.Date) PregnancyState {
	if p.Sex() != actor.Female {
		return NotPregnant
	}
	idx, err := ctx.Immutable.Registry.VariableIndex(PregnancyEventVariable)
	if err != nil {
		return NotPregnant
	}
	h := p.History(int(idx))
	if h == nil || h.Empty() {
		return NotPregnant
	}
	queryDate := asOf
	if pr.AtStart {
		queryDate = asOf.AddDays(-1)
	}
	v, ok := h.LastAsInt(queryDate)
	if !ok {
		return NotPregnant
	}
	if PregnancyEvent(v).Terminating() {
		return NotPregnant
	}
	return Pregnant
}

func (pr Pregnancy) is(p *actor.Person, ctx Context) bool {
	return p.Sex() == actor.Female && pr.stateAt(p, ctx, ctx.AsOf) == pr.State
}

func (pr Pregnancy) Select(p *actor.Person, ctx Context) bool {
	return aliveGuard(pr.Alive, p, ctx.AsOf) && pr.is(p, ctx)
}
func (pr Pregnancy) SelectAlive(p *actor.Person, ctx Context) bool { return pr.is(p, ctx) }
func (pr Pregnancy) SelectOutOfContext(p *actor.Person) bool       { return p.Sex() == actor.Female }
func (pr Pregnancy) SelectsAliveOnly() bool                        { return pr.Alive }
func (pr Pregnancy) Negate() Predicate                             { return notOf(pr) }
func (pr Pregnancy) Sum(other Predicate) Predicate                 { return sum(pr, other) }
func (pr Pregnancy) Product(other Predicate) Predicate             { return product(pr, other) }
func (pr Pregnancy) String() string {
	return fmt.Sprintf("Pregnancy(state=%d, alive=%v, at_start=%v)", pr.State, pr.Alive, pr.AtStart)
}
