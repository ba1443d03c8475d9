package migration

import (
	"math"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// ExodusGenerator fractionally removes a predicate-selected subset of the
// population during a fixed window, restricted to those whose immigration
// date precedes ImmigrationCutoff (§4.F).
type ExodusGenerator struct {
	GenName           string
	Pred              predicate.Predicate
	From, To          date.Date
	ImmigrationCutoff date.Date
	Fraction          float64
	Selector          Selector
	ChildAgeLimit     float64
}

func (e *ExodusGenerator) Name() string { return e.GenName }

func (e *ExodusGenerator) Apply(population []*actor.Person, period schedule.Period, ctx operator.Contexts) (removed, added []*actor.Person) {
	if period.End.Before(e.From) || !period.Begin.Before(e.To) {
		return nil, nil
	}
	base := selectCandidates(population, e.Pred, ctx, period.Begin)
	var candidates []*actor.Person
	for _, p := range base {
		if im := p.ImmigrationDate(); !im.IsZero() && im.Before(e.ImmigrationCutoff) {
			candidates = append(candidates, p)
		}
	}
	n := int(math.Round(e.Fraction * float64(len(candidates))))
	if n <= 0 {
		return nil, nil
	}
	selector := e.Selector
	if selector == nil {
		selector = LatestImmigrantsFirstSelector
	}
	selected := selector(candidates, n, ctx)
	removed = append(removed, selected...)
	removed = append(removed, coMigrateChildren(selected, e.ChildAgeLimit, period.Begin)...)
	return removed, nil
}
