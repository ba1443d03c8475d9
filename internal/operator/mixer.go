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

// PopulationMixerOperator moves a scalar value between contiguous range bins
// via a transition matrix, over a single period (§4.E.12): Bins must be
// sorted ascending and partition the value domain; TransitionMatrix[i] gives
// the probability of moving from bin i to each bin j at the period's end.
// Unlike MarkovOperator's open-ended category chain, this operator applies
// exactly once per call and writes the post-transition bin midpoint (the
// lower bound for the last, unbounded bin; or, with BinValue set, a
// caller-supplied representative value) directly.
type PopulationMixerOperator struct {
	OpName           string
	Pred             predicate.Predicate
	Variable         registry.VarIndex
	Bins             []float64 // ascending lower bounds, len(Bins) bins, last extends to +inf
	TransitionMatrix func(asOf date.Date) [][]float64
	BinValue         func(bin int, asOf date.Date) float64
	ProvidesSet      feature.Set
	RequiresSet      feature.Set
}

func (m *PopulationMixerOperator) Name() string                  { return m.OpName }
func (m *PopulationMixerOperator) Predicate() predicate.Predicate { return m.Pred }
func (m *PopulationMixerOperator) IsActive(d date.Date) bool      { return m.Pred.Active(d) }
func (m *PopulationMixerOperator) Provides() feature.Set          { return m.ProvidesSet }
func (m *PopulationMixerOperator) Requires() feature.Set          { return m.RequiresSet }

func (m *PopulationMixerOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	matrix := m.TransitionMatrix(period.End)
	for _, p := range actors {
		h := p.History(int(m.Variable))
		if h == nil {
			continue
		}
		v, ok := h.LastAsDouble(period.Begin)
		if !ok {
			continue
		}
		bin := m.binOf(v)
		if bin < 0 || bin >= len(matrix) {
			continue
		}
		u := ctx.Mutable.RNG.NextUniform()
		next := SampleCategory(u, matrix[bin])
		var newVal float64
		if m.BinValue != nil {
			newVal = m.BinValue(next, period.End)
		} else {
			newVal = m.midpoint(next)
		}
		_ = history.AppendOrCorrect(h, period.End, history.FromFloat64(newVal))
	}
}

func (m *PopulationMixerOperator) binOf(v float64) int {
	bin := -1
	for i, lower := range m.Bins {
		if v >= lower {
			bin = i
		} else {
			break
		}
	}
	return bin
}

func (m *PopulationMixerOperator) midpoint(bin int) float64 {
	if bin < 0 || bin >= len(m.Bins) {
		return 0
	}
	if bin == len(m.Bins)-1 {
		return m.Bins[bin]
	}
	return (m.Bins[bin] + m.Bins[bin+1]) / 2
}
