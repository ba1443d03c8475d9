package operator

import (
	"math"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// InheritanceOperator transfers a continuous trait from mother to child via
// a bivariate Gaussian copula (§4.E.11): the mother's current value is
// mapped to a percentile through her own marginal distribution and on to a
// Z-score; the child's Z-score is that value scaled by the target
// correlation plus an independent residual, mapped back through the
// child's own marginal distribution. Runs once, at a newborn's birth date.
type InheritanceOperator struct {
	OpName           string
	Pred             predicate.Predicate
	MotherVariable   registry.VarIndex
	ChildVariable    registry.VarIndex
	Correlation      float64
	MotherInverseCDF func(asOf date.Date, p float64) float64
	MotherCDF        func(asOf date.Date, v float64) float64
	ChildInverseCDF  func(asOf date.Date, p float64) float64
	ProvidesSet      feature.Set
	RequiresSet      feature.Set
}

func (i *InheritanceOperator) Name() string                  { return i.OpName }
func (i *InheritanceOperator) Predicate() predicate.Predicate { return i.Pred }
func (i *InheritanceOperator) IsActive(d date.Date) bool      { return i.Pred.Active(d) }
func (i *InheritanceOperator) Provides() feature.Set          { return i.ProvidesSet }
func (i *InheritanceOperator) Requires() feature.Set          { return i.RequiresSet }

func (i *InheritanceOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	for _, child := range actors {
		i.applyOne(child, period, ctx)
	}
}

func (i *InheritanceOperator) applyOne(child *actor.Person, period schedule.Period, ctx Contexts) {
	mother := child.Mother()
	if mother == nil {
		return
	}
	mh := mother.History(int(i.MotherVariable))
	ch := child.History(int(i.ChildVariable))
	if mh == nil || ch == nil || !ch.Empty() {
		return
	}
	asOf := child.DateOfBirth()
	motherVal, ok := mh.LastAsDouble(asOf)
	if !ok {
		return
	}
	motherPercentile := i.MotherCDF(asOf, motherVal)
	motherZ := InverseNormalCDF(motherPercentile)

	// Conditional draw under a bivariate Gaussian copula: the child's
	// Z-score is a correlation-weighted combination of the mother's
	// already-realized Z-score and a fresh independent normal deviate.
	residualStdev := sqrtOneMinusSquare(i.Correlation)
	childZ := i.Correlation*motherZ + residualStdev*ctx.Mutable.RNG.NextGaussian()
	childPercentile := NormalCDF(childZ)
	childVal := i.ChildInverseCDF(asOf, childPercentile)
	_ = history.AppendOrCorrect(ch, asOf, history.FromFloat64(childVal))
}

func sqrtOneMinusSquare(r float64) float64 {
	v := 1 - r*r
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}
