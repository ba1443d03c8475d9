package predicate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
)

func newContext(t *testing.T, asOf date.Date, declare func(reg *registry.Registry)) (predicate.Context, *registry.Registry) {
	t.Helper()
	sched, err := schedule.New([]date.Date{date.MustNew(2000, 1, 1), date.MustNew(2030, 1, 1)})
	require.NoError(t, err)
	reg := registry.New()
	if declare != nil {
		declare(reg)
	}
	ic := simcontext.NewImmutableContext(sched, reg, simcontext.EthnicityClassification{})
	return predicate.Context{Immutable: ic, AsOf: asOf}, reg
}

func TestAndOrIdentities(t *testing.T) {
	p := predicate.Sex{Sex: actor.Male}
	require.Equal(t, predicate.Predicate(p), predicate.True{}.Product(p))
	require.Equal(t, predicate.Predicate(predicate.True{}), predicate.True{}.Sum(p))
	require.Equal(t, predicate.Predicate(predicate.True{}), p.Sum(predicate.True{}))
}

func TestNotNotCollapses(t *testing.T) {
	p := predicate.Sex{Sex: actor.Male}
	require.Equal(t, predicate.Predicate(p), p.Negate().Negate())
}

func TestSexAgeAlive(t *testing.T) {
	ctx, _ := newContext(t, date.MustNew(2020, 1, 1), nil)
	p, err := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)

	require.True(t, predicate.Sex{Sex: actor.Male}.Select(p, ctx))
	require.False(t, predicate.Sex{Sex: actor.Female}.Select(p, ctx))

	agePred := predicate.Age{Min: 25, Max: 35}
	require.True(t, agePred.Select(p, ctx))

	require.NoError(t, p.Die(date.MustNew(2015, 1, 1)))
	aliveSex := predicate.Sex{Sex: actor.Male, Alive: true}
	require.False(t, aliveSex.Select(p, ctx), "dead person must not be selected when alive=true")
}

func TestPregnancyScenario(t *testing.T) {
	var idx registry.VarIndex
	ctx, _ := newContext(t, date.MustNew(2012, 1, 1), func(reg *registry.Registry) {
		i, err := reg.RegisterCommon(predicate.PregnancyEventVariable, history.NewDenseFactory[int8](), nil, nil)
		require.NoError(t, err)
		idx = i
	})

	mother, err := actor.New(1, actor.Attributes{Sex: actor.Female}, date.MustNew(2001, 1, 1))
	require.NoError(t, err)
	h := history.NewDenseFactory[int8]()()
	require.NoError(t, h.Append(date.MustNew(2012, 1, 1), history.FromInt(history.KindInt8, int64(predicate.EventConception))))
	require.NoError(t, h.Append(date.MustNew(2020, 6, 1), history.FromInt(history.KindInt8, int64(predicate.EventBirth))))
	mother.SetHistory(int(idx), h)

	notPregnant := predicate.Pregnancy{State: predicate.NotPregnant, Alive: true, AtStart: true}
	pregnant := predicate.Pregnancy{State: predicate.Pregnant, Alive: true, AtStart: true}

	require.True(t, notPregnant.Select(mother, ctx))
	require.False(t, pregnant.Select(mother, ctx))

	ctx2 := predicate.Context{Immutable: ctx.Immutable, AsOf: date.MustNew(2020, 6, 1)}
	require.True(t, pregnant.Select(mother, ctx2), "pregnant should flip to true at the next conception-covered date")
}

func TestVariableRangeAcceptMissing(t *testing.T) {
	var idx registry.VarIndex
	ctx, _ := newContext(t, date.MustNew(2020, 1, 1), func(reg *registry.Registry) {
		i, err := reg.RegisterCommon("weight", history.NewDenseFactory[float64](), nil, nil)
		require.NoError(t, err)
		idx = i
	})

	p, err := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)

	accept := predicate.VariableRange{Variable: "weight", Min: 0, Max: 100, AcceptMissing: true}
	reject := predicate.VariableRange{Variable: "weight", Min: 0, Max: 100, AcceptMissing: false}
	require.True(t, accept.Select(p, ctx))
	require.False(t, reject.Select(p, ctx))

	h := history.NewDenseFactory[float64]()()
	require.NoError(t, h.Append(date.MustNew(2019, 1, 1), history.FromFloat64(70)))
	p.SetHistory(int(idx), h)
	require.True(t, reject.Select(p, ctx))
}

func TestImmigrationDateActiveLowerBound(t *testing.T) {
	from := date.MustNew(2010, 1, 1)
	to := date.MustNew(2020, 1, 1)
	im := predicate.ImmigrationDate{From: from, To: to}
	require.False(t, im.Active(date.MustNew(2005, 1, 1)))
	require.True(t, im.Active(date.MustNew(2015, 1, 1)))

	imAllow := predicate.ImmigrationDate{From: from, To: to, AllowNonImmigrants: true}
	require.True(t, imAllow.Active(date.MustNew(2005, 1, 1)))
}
