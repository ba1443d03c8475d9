package operator

import (
	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// IndependentDistribution returns the categorical distribution to draw from
// at a given one of the operator's own schedule dates.
type IndependentDistribution func(asOf date.Date) []float64

// DiscreteIndependentOperator draws a fresh category at each date of its own
// schedule, independent of the previous state (§4.E.5) — distinct from
// MarkovOperator, which conditions the draw on the prior state. Its own
// schedule need not coincide with the simulation's main schedule; only the
// subset of its dates that fall within the period being applied are drawn.
// When RecordPercentile is set, the uniform deviate used for each draw is
// also written to PercentileVariable, letting a later operator (e.g. an
// enforcer deriving a correlated continuous value) recover rank information.
type DiscreteIndependentOperator struct {
	OpName             string
	Pred               predicate.Predicate
	Variable           registry.VarIndex
	OwnSchedule        schedule.Schedule
	Dist               IndependentDistribution
	RecordPercentile   bool
	PercentileVariable registry.VarIndex
	ProvidesSet        feature.Set
	RequiresSet        feature.Set
}

func (d *DiscreteIndependentOperator) Name() string                  { return d.OpName }
func (d *DiscreteIndependentOperator) Predicate() predicate.Predicate { return d.Pred }
func (d *DiscreteIndependentOperator) IsActive(dt date.Date) bool     { return d.Pred.Active(dt) }
func (d *DiscreteIndependentOperator) Provides() feature.Set          { return d.ProvidesSet }
func (d *DiscreteIndependentOperator) Requires() feature.Set          { return d.RequiresSet }

func (d *DiscreteIndependentOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	for _, p := range actors {
		h := p.History(int(d.Variable))
		if h == nil {
			continue
		}
		for i := 0; i < d.OwnSchedule.NbrDates(); i++ {
			dt := d.OwnSchedule.Date(i)
			if dt.Before(period.Begin) || !dt.Before(period.End) {
				continue
			}
			probs := d.Dist(dt)
			u := ctx.Mutable.RNG.NextUniform()
			state := SampleCategory(u, probs)
			if err := history.AppendOrCorrect(h, dt, history.ValueOf(int32(state))); err != nil {
				continue
			}
			if d.RecordPercentile {
				if ph := p.History(int(d.PercentileVariable)); ph != nil {
					_ = history.AppendOrCorrect(ph, dt, history.FromFloat64(u))
				}
			}
		}
	}
}
