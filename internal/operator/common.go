// Package operator implements the twelve per-period transition operators
// (§4.E): hazard-model and Markov-chain state machines, the enforcer and
// incrementer calibration operators, discrete-independent draws, mortality,
// conception, fetus generation, pregnancy, birth, inheritance, and the
// population mixer.
package operator

import (
	"math"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
)

// Contexts bundles the immutable and mutable context an operator needs,
// mirroring the upstream "Contexts" convenience aggregate.
type Contexts struct {
	Immutable simcontext.ImmutableContext
	Mutable   *simcontext.MutableContext
}

// predicateContext builds a predicate.Context for asOf from ctx.
func predicateContext(ctx Contexts, asOf date.Date) predicate.Context {
	return predicate.Context{Immutable: ctx.Immutable, AsOf: asOf}
}

// Operator is the common contract every per-period transition implements
// (§4.E). Period gives the [begin, end) window the operator should advance
// actors across.
type Operator interface {
	Name() string
	Predicate() predicate.Predicate
	IsActive(d date.Date) bool
	Provides() feature.Set
	Requires() feature.Set
	Apply(actors []*actor.Person, period schedule.Period, ctx Contexts)
}

// RelativeRisk is a dimensionless hazard-rate multiplier with a validity
// window; outside its window it does not apply (multiplier 1).
type RelativeRisk struct {
	Value      float64
	ValidFrom  date.Date
	ValidTo    date.Date // exclusive; zero means "no upper bound"
}

// AppliesAt reports whether the relative risk is in force on d.
func (r RelativeRisk) AppliesAt(d date.Date) bool {
	if !r.ValidFrom.IsZero() && d.Before(r.ValidFrom) {
		return false
	}
	if !r.ValidTo.IsZero() && !d.Before(r.ValidTo) {
		return false
	}
	return true
}

// CombinedMultiplier multiplies together every risk in force on d.
func CombinedMultiplier(risks []RelativeRisk, d date.Date) float64 {
	m := 1.0
	for _, r := range risks {
		if r.AppliesAt(d) {
			m *= r.Value
		}
	}
	return m
}

// InverseNormalCDF returns Φ⁻¹(p), the standard normal quantile function.
func InverseNormalCDF(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// NormalCDF returns Φ(x), the standard normal cumulative distribution.
func NormalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
