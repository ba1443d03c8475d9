package operator

import (
	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// EthnicityTransition derives a child's ethnicity group from its mother's,
// allowing admixture models instead of straight inheritance.
type EthnicityTransition func(motherEthnicity uint8, ctx Contexts, asOf date.Date) uint8

// FetusGenerationOperator turns each conception event recorded in the just
// elapsed period into one or more Fetus records on the mother (§4.E.8): a
// multiplicity draw decides twins/triplets, and each fetus independently
// draws its sex from a date-indexed female-probability series and its
// ethnicity from EthnicityFor (mother's own group if nil).
type FetusGenerationOperator struct {
	OpName            string
	Pred              predicate.Predicate
	Variable          registry.VarIndex
	Multiplicity      func(p *actor.Person, ctx Contexts, conceived date.Date) int
	FemaleProbability func(asOf date.Date) float64
	EthnicityFor      EthnicityTransition
	ProvidesSet       feature.Set
	RequiresSet       feature.Set
}

func (f *FetusGenerationOperator) Name() string                  { return f.OpName }
func (f *FetusGenerationOperator) Predicate() predicate.Predicate { return f.Pred }
func (f *FetusGenerationOperator) IsActive(d date.Date) bool      { return f.Pred.Active(d) }
func (f *FetusGenerationOperator) Provides() feature.Set          { return f.ProvidesSet }
func (f *FetusGenerationOperator) Requires() feature.Set          { return f.RequiresSet }

func (f *FetusGenerationOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	for _, p := range actors {
		f.applyOne(p, period, ctx)
	}
}

func (f *FetusGenerationOperator) applyOne(p *actor.Person, period schedule.Period, ctx Contexts) {
	h := p.History(int(f.Variable))
	if h == nil {
		return
	}
	start := h.FirstIndex(period.Begin)
	end := h.LastIndex(period.End.AddDays(-1))
	for i := start; i <= end; i++ {
		if i < 0 || i >= h.Size() {
			continue
		}
		if predicate.PregnancyEvent(h.ValueAt(i).AsInt64()) != predicate.EventConception {
			continue
		}
		conceived := h.DateAt(i)
		if f.alreadyGenerated(p, conceived) {
			continue
		}
		n := 1
		if f.Multiplicity != nil {
			n = f.Multiplicity(p, ctx, conceived)
		}
		for k := 0; k < n; k++ {
			ethnicity := p.Ethnicity()
			if f.EthnicityFor != nil {
				ethnicity = f.EthnicityFor(p.Ethnicity(), ctx, conceived)
			}
			sex := actor.Male
			if f.FemaleProbability != nil && ctx.Mutable.RNG.NextUniform() < f.FemaleProbability(conceived) {
				sex = actor.Female
			}
			_ = p.AddFetus(actor.Fetus{
				Attributes: actor.Attributes{Sex: sex, Ethnicity: ethnicity},
				Conceived:  conceived,
			})
		}
	}
}

func (f *FetusGenerationOperator) alreadyGenerated(p *actor.Person, conceived date.Date) bool {
	for _, ft := range p.Fetuses() {
		if ft.Conceived == conceived {
			return true
		}
	}
	return false
}
