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

// PregnancyStageOperator advances an in-progress pregnancy through a
// cascade of intermediate stages to a terminating Miscarriage or Birth
// event (§4.E.9), reusing the PREGNANCY_EVENT conventions from package
// predicate. At each step the candidate next events and their probabilities
// are supplied together (index-aligned), so a single step can transition
// straight from an early stage to Miscarriage without visiting every
// intermediate one. An actor whose last recorded event already terminates
// (or who has no events at all) is not currently pregnant and is skipped —
// a fresh conception recorded earlier in the same period by
// ConceptionOperator becomes this actor's new last event before this
// operator runs, so it seeds off it correctly.
type PregnancyStageOperator struct {
	OpName          string
	Pred            predicate.Predicate
	Variable        registry.VarIndex
	StepYears       float64
	NextStates      func(current predicate.PregnancyEvent, asOf date.Date) []predicate.PregnancyEvent
	TransitionProbs func(current predicate.PregnancyEvent, asOf date.Date) []float64
	ProvidesSet     feature.Set
	RequiresSet     feature.Set
}

func (s *PregnancyStageOperator) Name() string                  { return s.OpName }
func (s *PregnancyStageOperator) Predicate() predicate.Predicate { return s.Pred }
func (s *PregnancyStageOperator) IsActive(d date.Date) bool      { return s.Pred.Active(d) }
func (s *PregnancyStageOperator) Provides() feature.Set          { return s.ProvidesSet }
func (s *PregnancyStageOperator) Requires() feature.Set          { return s.RequiresSet }

func (s *PregnancyStageOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	for _, p := range actors {
		s.applyOne(p, period, ctx)
	}
}

func (s *PregnancyStageOperator) applyOne(p *actor.Person, period schedule.Period, ctx Contexts) {
	h := p.History(int(s.Variable))
	if h == nil || h.Empty() {
		return
	}
	asof := h.LastDate()
	lastVal, _ := h.LastAsInt(asof)
	event := predicate.PregnancyEvent(lastVal)
	if event.Terminating() {
		return
	}

	for {
		next := advanceYears(asof, s.StepYears)
		if next.After(period.End) {
			return
		}
		candidates := s.NextStates(event, asof)
		probs := s.TransitionProbs(event, asof)
		u := ctx.Mutable.RNG.NextUniform()
		idx := SampleCategory(u, probs)
		if idx < 0 || idx >= len(candidates) {
			return
		}
		newEvent := candidates[idx]
		if err := history.AppendOrCorrect(h, next, history.FromInt(history.KindInt8, int64(newEvent))); err != nil {
			return
		}
		event = newEvent
		asof = next
		if event.Terminating() {
			return
		}
	}
}
