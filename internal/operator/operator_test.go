package operator_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/rng"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
)

func newTestContexts(t *testing.T, dates []date.Date, seed int64, declare func(reg *registry.Registry)) (operator.Contexts, *registry.Registry) {
	t.Helper()
	sched, err := schedule.New(dates)
	require.NoError(t, err)
	reg := registry.New()
	declare(reg)
	immut := simcontext.NewImmutableContext(sched, reg, simcontext.EthnicityClassification{})
	mut := simcontext.NewMutableContext(rng.New(seed))
	return operator.Contexts{Immutable: immut, Mutable: mut}, reg
}

func TestHazardCurveFirstJumpDate(t *testing.T) {
	curve := operator.HazardCurve{Rates: []float64{0.1}}
	from := date.MustNew(2020, 1, 1)
	to := date.MustNew(2030, 1, 1)
	jump, ok := curve.FirstJumpDate(from, to, 1.0, 0.5)
	require.True(t, ok)
	require.True(t, jump.After(from))
	require.True(t, jump.Before(to))

	_, ok = curve.FirstJumpDate(from, to, 1.0, 0.0000000001)
	require.True(t, ok, "a tiny u should still jump, just very soon after from")
}

func TestHazardModelOperatorMortalityMarksDeath(t *testing.T) {
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2021, 1, 1)}
	ctx, reg := newTestContexts(t, dates, 1, func(reg *registry.Registry) {})
	_ = reg

	p, err := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)

	op := operator.NewMortalityOperator(
		"mortality",
		predicate.Age{Min: 0, Max: 200},
		func(p *actor.Person) operator.HazardCurve {
			return operator.HazardCurve{Rates: []float64{1000.0}} // very high rate: should die within the period
		},
		func(p *actor.Person, ctx operator.Contexts, asOf date.Date) []operator.RelativeRisk { return nil },
		feature.NewSet("ALIVE"),
		feature.Set{},
	)

	period := schedule.Period{Begin: dates[0], End: dates[1]}
	op.Apply([]*actor.Person{p}, period, ctx)
	require.True(t, p.Died())
	require.False(t, p.DateOfDeath().Before(period.Begin))
	require.True(t, p.DateOfDeath().Before(period.End))
}

func TestMarkovOperatorInitializesThenAdvances(t *testing.T) {
	var varIdx registry.VarIndex
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2025, 1, 1)}
	ctx, reg := newTestContexts(t, dates, 7, func(reg *registry.Registry) {
		idx, err := reg.RegisterCommon("STATE", history.NewDenseFactory[int32](), nil, nil)
		require.NoError(t, err)
		varIdx = idx
	})

	p, err := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)
	reg.InstallHistories(p)

	model := operator.MarkovModel{
		StepYears:   1,
		InitialDist: func(asOf date.Date) []float64 { return []float64{1, 0} }, // always starts in state 0
		TransitionRow: func(state int, asOf date.Date) []float64 {
			if state == 0 {
				return []float64{0, 1} // always flips to state 1 on any step
			}
			return []float64{0, 1}
		},
	}
	op := &operator.MarkovOperator{
		OpName:     "markov",
		Pred:       predicate.True{},
		Variable:   varIdx,
		Model:      model,
		Initialize: true,
	}

	period := schedule.Period{Begin: dates[0], End: dates[1]}
	op.Apply([]*actor.Person{p}, period, ctx)
	// The first application only draws the initial state; the second
	// advances it across the period.
	op.Apply([]*actor.Person{p}, period, ctx)

	h := p.History(int(varIdx))
	require.False(t, h.Empty())
	last, ok := h.LastAsInt(period.End)
	require.True(t, ok)
	require.Equal(t, int64(1), last, "should have advanced from the initial state 0 to state 1")
	require.GreaterOrEqual(t, h.Size(), 2, "should have recorded the initial draw plus at least one transition")
}

func TestEnforcerMatchesTargetDistributionAndIsIdempotent(t *testing.T) {
	var varIdx registry.VarIndex
	dates := []date.Date{date.MustNew(2012, 1, 1), date.MustNew(2012, 6, 1)}
	ctx, reg := newTestContexts(t, dates, 3, func(reg *registry.Registry) {
		idx, err := reg.RegisterCommon("X", history.NewDenseFactory[float64](), nil, nil)
		require.NoError(t, err)
		varIdx = idx
	})

	p1, err := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1980, 1, 1))
	require.NoError(t, err)
	p2, err := actor.New(2, actor.Attributes{Sex: actor.Male}, date.MustNew(1980, 1, 1))
	require.NoError(t, err)
	reg.InstallHistories(p1)
	reg.InstallHistories(p2)

	target := operator.TargetDistribution{
		InverseCDF: func(asOf date.Date, p float64) float64 {
			return 0.1 + operator.InverseNormalCDF(p)
		},
	}

	uStream := []float64{0.4, 0.41}
	call := 0
	op := &operator.EnforcerOperator{
		OpName:   "enforce-x",
		Pred:     predicate.True{},
		Variable: varIdx,
		Target:   target,
		Sample: func(p *actor.Person, ctx operator.Contexts, asOf date.Date) float64 {
			u := uStream[call]
			call++
			return u
		},
	}

	period := schedule.Period{Begin: dates[0], End: dates[1]}
	op.Apply([]*actor.Person{p1, p2}, period, ctx)

	h1 := p1.History(int(varIdx))
	h2 := p2.History(int(varIdx))
	v1, ok := h1.LastAsDouble(period.Begin)
	require.True(t, ok)
	v2, ok := h2.LastAsDouble(period.Begin)
	require.True(t, ok)

	sorted := []float64{v1, v2}
	sort.Float64s(sorted)
	require.InDelta(t, 0.1+operator.InverseNormalCDF(0.25), sorted[0], 1e-9)
	require.InDelta(t, 0.1+operator.InverseNormalCDF(0.75), sorted[1], 1e-9)

	// Re-apply with a different (unused, since histories are no longer
	// empty) u-stream: the written values must not change.
	op.Sample = func(p *actor.Person, ctx operator.Contexts, asOf date.Date) float64 {
		t.Fatal("Sample must not be called once histories are non-empty")
		return 0
	}
	op.Apply([]*actor.Person{p1, p2}, period, ctx)
	v1b, _ := h1.LastAsDouble(period.Begin)
	v2b, _ := h2.LastAsDouble(period.Begin)
	require.Equal(t, v1, v1b)
	require.Equal(t, v2, v2b)
}

func TestConceptionOperatorWritesConceptionEvent(t *testing.T) {
	var varIdx registry.VarIndex
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2021, 1, 1)}
	ctx, reg := newTestContexts(t, dates, 11, func(reg *registry.Registry) {
		idx, err := reg.RegisterCommon(predicate.PregnancyEventVariable, history.NewDenseFactory[int8](), nil, nil)
		require.NoError(t, err)
		varIdx = idx
	})

	mother, err := actor.New(1, actor.Attributes{Sex: actor.Female}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)
	reg.InstallHistories(mother)

	op := &operator.ConceptionOperator{
		OpName:   "conception",
		Pred:     predicate.Sex{Sex: actor.Female, Alive: true},
		Variable: varIdx,
		CurveFor: func(p *actor.Person) operator.HazardCurve {
			return operator.HazardCurve{Rates: []float64{1000.0}}
		},
		RelativeRisks:                  func(p *actor.Person, ctx operator.Contexts, asOf date.Date) []operator.RelativeRisk { return nil },
		MinAge:                         func(p *actor.Person) float64 { return 15 },
		MaxAge:                         func(p *actor.Person) float64 { return 45 },
		PostPregnancyZeroFertilityDays: 270,
	}

	period := schedule.Period{Begin: dates[0], End: dates[1]}
	op.Apply([]*actor.Person{mother}, period, ctx)

	h := mother.History(int(varIdx))
	require.False(t, h.Empty())
	last, ok := h.LastAsInt(period.End.AddDays(-1))
	require.True(t, ok)
	require.Equal(t, int64(predicate.EventConception), last)
}

func TestBirthOperatorMaterializesNewborn(t *testing.T) {
	var pregIdx registry.VarIndex
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2020, 12, 1)}
	ctx, reg := newTestContexts(t, dates, 5, func(reg *registry.Registry) {
		idx, err := reg.RegisterCommon(predicate.PregnancyEventVariable, history.NewDenseFactory[int8](), nil, nil)
		require.NoError(t, err)
		pregIdx = idx
	})

	mother, err := actor.New(1, actor.Attributes{Sex: actor.Female}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)
	reg.InstallHistories(mother)

	conceived := date.MustNew(2020, 3, 1)
	birthDate := date.MustNew(2020, 11, 1)
	h := mother.History(int(pregIdx))
	require.NoError(t, h.Append(conceived, history.FromInt(history.KindInt8, int64(predicate.EventConception))))
	require.NoError(t, h.Append(birthDate, history.FromInt(history.KindInt8, int64(predicate.EventBirth))))
	require.NoError(t, mother.AddFetus(actor.Fetus{Attributes: actor.Attributes{Sex: actor.Male, Ethnicity: 2}, Conceived: conceived}))

	op := &operator.BirthOperator{
		OpName:   "birth",
		Pred:     predicate.Sex{Sex: actor.Female, Alive: true},
		Variable: pregIdx,
		Registry: reg,
	}
	period := schedule.Period{Begin: dates[0], End: dates[1]}
	op.Apply([]*actor.Person{mother}, period, ctx)

	require.Equal(t, 0, mother.NbrFetuses())
	require.Equal(t, 1, mother.NbrChildren())
	child, err := mother.Child(0)
	require.NoError(t, err)
	require.NotNil(t, child)
	require.Equal(t, birthDate, child.DateOfBirth())
	require.Equal(t, uint8(2), child.Ethnicity())
	require.True(t, mother.IsParentOf(child))
	require.Len(t, ctx.Mutable.Newborns(), 1)
}

func TestPopulationMixerMovesBetweenBins(t *testing.T) {
	var varIdx registry.VarIndex
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2021, 1, 1)}
	ctx, reg := newTestContexts(t, dates, 9, func(reg *registry.Registry) {
		idx, err := reg.RegisterCommon("INCOME_BAND", history.NewDenseFactory[float64](), nil, nil)
		require.NoError(t, err)
		varIdx = idx
	})

	p, err := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1980, 1, 1))
	require.NoError(t, err)
	reg.InstallHistories(p)
	h := p.History(int(varIdx))
	require.NoError(t, h.Append(dates[0], history.FromFloat64(5))) // falls in bin 0 ([0,10))

	op := &operator.PopulationMixerOperator{
		OpName:   "mix",
		Pred:     predicate.True{},
		Variable: varIdx,
		Bins:     []float64{0, 10, 20},
		TransitionMatrix: func(asOf date.Date) [][]float64 {
			return [][]float64{
				{0, 1, 0}, // bin 0 always moves to bin 1
				{0, 1, 0},
				{0, 0, 1},
			}
		},
	}
	period := schedule.Period{Begin: dates[0], End: dates[1]}
	op.Apply([]*actor.Person{p}, period, ctx)

	v, ok := h.LastAsDouble(period.End)
	require.True(t, ok)
	require.InDelta(t, 15.0, v, 1e-9) // midpoint of bin [10,20)
}
