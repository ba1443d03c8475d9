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

// ConceptionOperator draws conception events for eligible females (§4.E.7):
// a cohort hazard curve gated by a childbearing age window and a
// post-pregnancy zero-fertility cooldown measured from the last terminating
// pregnancy event. A conception writes a single EventConception entry to
// the PREGNANCY_EVENT-style history; once written the actor is expected to
// fall out of the operator's own selection predicate (it should select only
// not-currently-pregnant actors), so at most one conception is drawn per
// period.
type ConceptionOperator struct {
	OpName                          string
	Pred                            predicate.Predicate
	Variable                        registry.VarIndex
	CurveFor                        func(p *actor.Person) HazardCurve
	RelativeRisks                   func(p *actor.Person, ctx Contexts, asOf date.Date) []RelativeRisk
	MinAge                          func(p *actor.Person) float64
	MaxAge                          func(p *actor.Person) float64
	PostPregnancyZeroFertilityDays  int
	ProvidesSet                     feature.Set
	RequiresSet                     feature.Set
}

func (c *ConceptionOperator) Name() string                  { return c.OpName }
func (c *ConceptionOperator) Predicate() predicate.Predicate { return c.Pred }
func (c *ConceptionOperator) IsActive(d date.Date) bool      { return c.Pred.Active(d) }
func (c *ConceptionOperator) Provides() feature.Set          { return c.ProvidesSet }
func (c *ConceptionOperator) Requires() feature.Set          { return c.RequiresSet }

func (c *ConceptionOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	for _, p := range actors {
		c.applyOne(p, period, ctx)
	}
}

func (c *ConceptionOperator) applyOne(p *actor.Person, period schedule.Period, ctx Contexts) {
	if p.Sex() != actor.Female {
		return
	}
	h := p.History(int(c.Variable))
	if h == nil {
		return
	}
	asof := period.Begin
	end := period.End
	for asof.Before(end) {
		if age := p.AgeFraction(asof); age < c.MinAge(p) || age > c.MaxAge(p) {
			return
		}
		if li := h.LastIndex(asof); li >= 0 {
			lastEvent := predicate.PregnancyEvent(h.ValueAt(li).AsInt64())
			if !lastEvent.Terminating() {
				return // currently pregnant; selection predicate should already exclude this
			}
			cooldownUntil := h.DateAt(li).AddDays(c.PostPregnancyZeroFertilityDays)
			if cooldownUntil.After(asof) {
				asof = cooldownUntil
				continue
			}
		}

		curve := c.CurveFor(p)
		risks := c.RelativeRisks(p, ctx, asof)
		multiplier := CombinedMultiplier(risks, asof)
		u := ctx.Mutable.RNG.NextUniform()
		jump, ok := curve.FirstJumpDate(asof, end, multiplier, u)
		if !ok {
			return
		}
		_ = history.AppendOrCorrect(h, jump, history.FromInt(history.KindInt8, int64(predicate.EventConception)))
		return
	}
}

// BackdateConceptionDate computes the conception date assigned to a female
// found already pregnant at bootstrap time, whose true conception date is
// unknown: nine months before the first simulation date.
func BackdateConceptionDate(firstSimulationDate date.Date) date.Date {
	return firstSimulationDate.AddMonths(-9)
}
