package migration

import (
	"math"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// ReturnGenerator draws from the emigrant shadow population during a fixed
// window and re-admits them as immigrants with fresh IDs but preserved
// attributes and date of birth (§4.F).
type ReturnGenerator struct {
	GenName  string
	Pred     predicate.Predicate
	From, To date.Date
	Fraction float64
	Selector Selector
}

func (r *ReturnGenerator) Name() string { return r.GenName }

func (r *ReturnGenerator) Apply(population []*actor.Person, period schedule.Period, ctx operator.Contexts) (removed, added []*actor.Person) {
	if period.End.Before(r.From) || !period.Begin.Before(r.To) {
		return nil, nil
	}
	candidates := selectCandidates(ctx.Mutable.ShadowPopulation(), r.Pred, ctx, period.Begin)
	n := int(math.Round(r.Fraction * float64(len(candidates))))
	if n <= 0 {
		return nil, nil
	}
	selector := r.Selector
	if selector == nil {
		selector = RandomSelector
	}
	selected := selector(candidates, n, ctx)
	if len(selected) == 0 {
		return nil, nil
	}

	returningDate := period.Begin
	ids := make(map[actor.ID]bool, len(selected))
	for _, s := range selected {
		ids[s.ID()] = true
		id := ctx.Mutable.GenID()
		clone, err := actor.New(id, s.Attributes(), s.DateOfBirth())
		if err != nil {
			continue
		}
		_ = clone.SetImmigrationDate(returningDate)
		added = append(added, clone)
	}
	ctx.Mutable.RemoveFromShadow(ids)
	return nil, added
}
