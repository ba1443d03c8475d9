package operator

import (
	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
)

// CohortHazardCurve maps a birth year (and sex, for sex-specific tables) to
// its mortality hazard curve.
type CohortHazardCurve func(p *actor.Person) HazardCurve

// NewMortalityOperator specializes HazardModelOperator over the two-state
// {alive, dead} chain (§4.E.6): the hazard curve is anchored to each actor's
// date of birth (MoveToBirthDate), so breakpoints are read as ages. Reaching
// the jump records the actor's date of death via actor.Person.Die, after
// which the state is absorbing and aliveness predicates naturally exclude
// the actor from further selection.
func NewMortalityOperator(name string, alive predicate.Predicate, curveFor CohortHazardCurve, relativeRisks func(p *actor.Person, ctx Contexts, asOf date.Date) []RelativeRisk, provides, requires feature.Set) *HazardModelOperator {
	return &HazardModelOperator{
		OpName:        name,
		Pred:          alive,
		CurveFor:      curveFor,
		RelativeRisks: relativeRisks,
		CurrentState: func(p *actor.Person, ctx Contexts) int {
			if p.Died() {
				return 1
			}
			return 0
		},
		NextState: func(state int) int { return 1 },
		SetNextState: func(p *actor.Person, jumpDate date.Date, newState int, ctx Contexts) {
			_ = p.Die(jumpDate)
		},
		MoveToBirthDate: true,
		ProvidesSet:     provides,
		RequiresSet:     requires,
	}
}
