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

// SampleCategory draws a category index from a probability vector given a
// uniform deviate u in [0,1), via inverse-CDF (cumulative sum) sampling.
func SampleCategory(u float64, probs []float64) int {
	acc := 0.0
	for i, p := range probs {
		acc += p
		if u < acc {
			return i
		}
	}
	return len(probs) - 1
}

// ModulateAndRenormalize multiplies each category probability by its
// relative-risk multiplier, then renormalizes to sum to 1.
func ModulateAndRenormalize(probs, multipliers []float64) []float64 {
	out := make([]float64, len(probs))
	total := 0.0
	for i, p := range probs {
		m := 1.0
		if i < len(multipliers) {
			m = multipliers[i]
		}
		out[i] = p * m
		total += out[i]
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}

// MarkovModel is a discrete-state chain: an as-of initial distribution plus
// a per-state transition row, both possibly date-dependent.
type MarkovModel struct {
	StepYears     float64
	InitialDist   func(asOf date.Date) []float64
	TransitionRow func(state int, asOf date.Date) []float64
}

// MarkovOperator drives a category-valued history with a MarkovModel
// (§4.E.2).
type MarkovOperator struct {
	OpName      string
	Pred        predicate.Predicate
	Variable    registry.VarIndex
	Model       MarkovModel
	Initialize  bool
	RiskMultipliers func(p *actor.Person, ctx Contexts, state int, asOf date.Date) []float64
	ProvidesSet feature.Set
	RequiresSet feature.Set
}

func (m *MarkovOperator) Name() string                  { return m.OpName }
func (m *MarkovOperator) Predicate() predicate.Predicate { return m.Pred }
func (m *MarkovOperator) IsActive(d date.Date) bool      { return m.Pred.Active(d) }
func (m *MarkovOperator) Provides() feature.Set          { return m.ProvidesSet }
func (m *MarkovOperator) Requires() feature.Set          { return m.RequiresSet }

func (m *MarkovOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	for _, p := range actors {
		m.applyOne(p, period, ctx)
	}
}

func (m *MarkovOperator) multipliers(p *actor.Person, ctx Contexts, state int, asOf date.Date, n int) []float64 {
	if m.RiskMultipliers == nil {
		mult := make([]float64, n)
		for i := range mult {
			mult[i] = 1
		}
		return mult
	}
	return m.RiskMultipliers(p, ctx, state, asOf)
}

func (m *MarkovOperator) applyOne(p *actor.Person, period schedule.Period, ctx Contexts) {
	h := p.History(int(m.Variable))
	if h == nil {
		return
	}
	if h.Empty() {
		if !m.Initialize {
			return
		}
		dist := m.Model.InitialDist(period.Begin)
		dist = ModulateAndRenormalize(dist, m.multipliers(p, ctx, -1, period.Begin, len(dist)))
		u := ctx.Mutable.RNG.NextUniform()
		state := SampleCategory(u, dist)
		_ = h.Append(period.Begin, history.ValueOf(int32(state)))
		return
	}

	cur := h.LastDate()
	lastInt, _ := h.LastAsInt(cur)
	state := int(lastInt)
	for {
		next := advanceYears(cur, m.Model.StepYears)
		if next.After(period.End) || !next.After(cur) {
			break
		}
		row := m.Model.TransitionRow(state, cur)
		row = ModulateAndRenormalize(row, m.multipliers(p, ctx, state, cur, len(row)))
		u := ctx.Mutable.RNG.NextUniform()
		state = SampleCategory(u, row)
		if err := h.Append(next, history.ValueOf(int32(state))); err != nil {
			return
		}
		cur = next
	}
}

func advanceYears(d date.Date, years float64) date.Date {
	whole := int(years)
	frac := years - float64(whole)
	out := d.AddYears(whole)
	if frac > 0 {
		out = out.AddDays(int(frac * 365.2425))
	}
	return out
}
