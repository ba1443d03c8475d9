package operator

import (
	"sort"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// TargetDistribution supplies the inverse CDF the enforcer maps empirical
// percentiles through, as of a given date.
type TargetDistribution struct {
	InverseCDF func(asOf date.Date, p float64) float64
}

// EnforcerOperator rescales a selected population's variable so its marginal
// distribution matches Target at each period's begin date, without
// perturbing ranks (§4.E.3). An actor with an empty history is first given a
// raw sample via Sample (default: a fresh uniform draw); an actor with an
// existing value is read as-is. Both are then ranked, turned into empirical
// percentiles, and mapped through Target.InverseCDF, written back with
// append-or-correct semantics so repeated application at the same date is
// idempotent.
type EnforcerOperator struct {
	OpName      string
	Pred        predicate.Predicate
	Variable    registry.VarIndex
	Target      TargetDistribution
	Sample      func(p *actor.Person, ctx Contexts, asOf date.Date) float64
	ProvidesSet feature.Set
	RequiresSet feature.Set
}

func (e *EnforcerOperator) Name() string                  { return e.OpName }
func (e *EnforcerOperator) Predicate() predicate.Predicate { return e.Pred }
func (e *EnforcerOperator) IsActive(d date.Date) bool      { return e.Pred.Active(d) }
func (e *EnforcerOperator) Provides() feature.Set          { return e.ProvidesSet }
func (e *EnforcerOperator) Requires() feature.Set          { return e.RequiresSet }

type enforcerSample struct {
	hist history.History
	raw  float64
}

func (e *EnforcerOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	asOf := period.Begin
	samples := make([]enforcerSample, 0, len(actors))
	for _, p := range actors {
		h := p.History(int(e.Variable))
		if h == nil {
			continue
		}
		var raw float64
		if h.Empty() {
			raw = e.sampleFor(p, ctx, asOf)
		} else {
			v, ok := h.LastAsDouble(asOf)
			if !ok {
				raw = e.sampleFor(p, ctx, asOf)
			} else {
				raw = v
			}
		}
		samples = append(samples, enforcerSample{hist: h, raw: raw})
	}
	if len(samples) == 0 {
		return
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return samples[order[a]].raw < samples[order[b]].raw
	})

	n := float64(len(samples))
	for rank, idx := range order {
		percentile := (float64(rank) + 0.5) / n
		mapped := e.Target.InverseCDF(asOf, percentile)
		_ = history.AppendOrCorrect(samples[idx].hist, asOf, history.FromFloat64(mapped))
	}
}

func (e *EnforcerOperator) sampleFor(p *actor.Person, ctx Contexts, asOf date.Date) float64 {
	if e.Sample != nil {
		return e.Sample(p, ctx, asOf)
	}
	return ctx.Mutable.RNG.NextUniform()
}
