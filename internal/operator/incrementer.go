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

// DeltaDistribution draws a per-actor increment at a schedule date.
type DeltaDistribution func(p *actor.Person, ctx Contexts, asOf date.Date) float64

// IncrementerOperator advances a variable by last + delta at the period's
// end date (§4.E.4). Deltas is indexed by schedule position; the caller must
// supply at least one delta per period it applies the operator over.
type IncrementerOperator struct {
	OpName      string
	Pred        predicate.Predicate
	Variable    registry.VarIndex
	Deltas      []DeltaDistribution
	ProvidesSet feature.Set
	RequiresSet feature.Set
}

func (n *IncrementerOperator) Name() string                  { return n.OpName }
func (n *IncrementerOperator) Predicate() predicate.Predicate { return n.Pred }
func (n *IncrementerOperator) IsActive(d date.Date) bool      { return n.Pred.Active(d) }
func (n *IncrementerOperator) Provides() feature.Set          { return n.ProvidesSet }
func (n *IncrementerOperator) Requires() feature.Set          { return n.RequiresSet }

func (n *IncrementerOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	dateIdx := ctx.Mutable.DateIndex()
	if dateIdx >= len(n.Deltas) {
		return
	}
	draw := n.Deltas[dateIdx]
	for _, p := range actors {
		h := p.History(int(n.Variable))
		if h == nil {
			continue
		}
		last, ok := h.LastAsDouble(period.Begin)
		if !ok {
			last = 0
		}
		delta := draw(p, ctx, period.End)
		_ = history.AppendOrCorrect(h, period.End, history.FromFloat64(last+delta))
	}
}
