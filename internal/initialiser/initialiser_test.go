package initialiser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/initialiser"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/rng"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
)

func newTestContexts(t *testing.T, reg *registry.Registry, seed int64) operator.Contexts {
	t.Helper()
	immut := simcontext.ImmutableContext{Registry: reg}
	mut := simcontext.NewMutableContext(rng.New(seed))
	return operator.Contexts{Immutable: immut, Mutable: mut}
}

func mustPerson(t *testing.T, id actor.ID, sex actor.Sex, dob date.Date) *actor.Person {
	t.Helper()
	p, err := actor.New(id, actor.Attributes{Sex: sex}, dob)
	require.NoError(t, err)
	return p
}

func TestBootstrapUnlinkedClonesWithoutLinksAndFreshIDs(t *testing.T) {
	reg := registry.New()
	reg.Freeze()
	ctx := newTestContexts(t, reg, 7)

	reference := []*actor.Person{
		mustPerson(t, 1, actor.Male, date.MustNew(1980, 5, 17)),
		mustPerson(t, 2, actor.Female, date.MustNew(1975, 11, 3)),
	}
	ctx.Mutable.ReserveExternalID(2) // keep clone ids from colliding with the reference sample's own ids

	clones, err := initialiser.BootstrapUnlinked(reference, 5, reg, ctx)
	require.NoError(t, err)
	require.Len(t, clones, 5)

	seen := map[actor.ID]bool{}
	for _, c := range clones {
		require.False(t, seen[c.ID()], "cloned ids must be unique")
		seen[c.ID()] = true
		require.Nil(t, c.Mother())
		require.False(t, c.ID() == 1 || c.ID() == 2, "clone must not reuse a reference id")
	}
}

func TestPerturbDateOfBirthDayStaysWithinSameMonth(t *testing.T) {
	reg := registry.New()
	reg.Freeze()
	ctx := newTestContexts(t, reg, 42)

	reference := []*actor.Person{mustPerson(t, 1, actor.Male, date.MustNew(2000, 2, 10))}
	clones, err := initialiser.BootstrapUnlinked(reference, 20, reg, ctx, initialiser.PerturbDateOfBirthDay{})
	require.NoError(t, err)

	for _, c := range clones {
		require.Equal(t, 2000, c.DateOfBirth().Year)
		require.Equal(t, 2, c.DateOfBirth().Month)
		require.GreaterOrEqual(t, c.DateOfBirth().Day, 1)
		require.LessOrEqual(t, c.DateOfBirth().Day, 29) // 2000 is a leap year
	}
}

func TestPerturbDateOfBirthMonthStaysWithinSameYear(t *testing.T) {
	reg := registry.New()
	reg.Freeze()
	ctx := newTestContexts(t, reg, 99)

	reference := []*actor.Person{mustPerson(t, 1, actor.Male, date.MustNew(2001, 6, 15))}
	clones, err := initialiser.BootstrapUnlinked(reference, 20, reg, ctx, initialiser.PerturbDateOfBirthMonth{})
	require.NoError(t, err)

	for _, c := range clones {
		require.Equal(t, 2001, c.DateOfBirth().Year)
		require.GreaterOrEqual(t, c.DateOfBirth().Month, 1)
		require.LessOrEqual(t, c.DateOfBirth().Month, 12)
	}
}

func TestPerturbHistoryValuesLinearClampsToBounds(t *testing.T) {
	reg := registry.New()
	idx, err := reg.RegisterCommon("WAGE", history.NewDenseFactory[float64](), nil, nil)
	require.NoError(t, err)
	reg.Freeze()
	ctx := newTestContexts(t, reg, 3)

	seed := mustPerson(t, 1, actor.Male, date.MustNew(1990, 1, 1))
	reg.InstallHistories(seed)
	h := seed.History(int(idx))
	require.NoError(t, h.Append(date.MustNew(2010, 1, 1), history.FromFloat64(100.0)))

	pert := initialiser.PerturbHistoryValuesLinear{
		Variable:   idx,
		LowerBound: 0,
		UpperBound: 120,
		Noise:      func(operator.Contexts) float64 { return 1000 },
	}
	clones, err := initialiser.BootstrapUnlinked([]*actor.Person{seed}, 1, reg, ctx, pert)
	require.NoError(t, err)

	clone := clones[0]
	v, ok := clone.History(int(idx)).LastAsDouble(date.MustNew(2010, 1, 1))
	require.True(t, ok)
	require.Equal(t, 120.0, v)
}

func TestPerturbHistoryValuesLogarithmicKeepsValuePositive(t *testing.T) {
	reg := registry.New()
	idx, err := reg.RegisterCommon("WAGE", history.NewDenseFactory[float64](), nil, nil)
	require.NoError(t, err)
	reg.Freeze()
	ctx := newTestContexts(t, reg, 11)

	seed := mustPerson(t, 1, actor.Male, date.MustNew(1990, 1, 1))
	reg.InstallHistories(seed)
	h := seed.History(int(idx))
	require.NoError(t, h.Append(date.MustNew(2010, 1, 1), history.FromFloat64(50.0)))

	pert := initialiser.PerturbHistoryValuesLogarithmic{
		Variable:   idx,
		LowerBound: 0,
		UpperBound: 1000,
		Noise:      func(operator.Contexts) float64 { return 0 },
	}
	clones, err := initialiser.BootstrapUnlinked([]*actor.Person{seed}, 1, reg, ctx, pert)
	require.NoError(t, err)

	clone := clones[0]
	v, ok := clone.History(int(idx)).LastAsDouble(date.MustNew(2010, 1, 1))
	require.True(t, ok)
	require.InDelta(t, 50.0, v, 1e-9)
}

func TestBootstrapWithLinksClonesWholeFamilyWhenQuotaAllows(t *testing.T) {
	reg := registry.New()
	reg.Freeze()
	ctx := newTestContexts(t, reg, 5)

	mother := mustPerson(t, 1, actor.Female, date.MustNew(1980, 1, 1))
	child := mustPerson(t, 2, actor.Male, date.MustNew(2005, 6, 1))
	require.NoError(t, actor.SetParents(child, mother, date.MustNew(2004, 9, 1)))
	ctx.Mutable.ReserveExternalID(2)

	clones, err := initialiser.BootstrapWithLinks([]*actor.Person{mother, child}, 10, 2, reg, ctx)
	require.NoError(t, err)
	require.Len(t, clones, 2)

	var clonedMother, clonedChild *actor.Person
	for _, c := range clones {
		if c.Sex() == actor.Female {
			clonedMother = c
		} else {
			clonedChild = c
		}
	}
	require.NotNil(t, clonedMother)
	require.NotNil(t, clonedChild)
	require.NotNil(t, clonedChild.Mother())
	require.Equal(t, clonedMother.ID(), clonedChild.Mother().ID())
	require.True(t, clonedMother.ID() != mother.ID() && clonedChild.ID() != child.ID())
}

func TestBootstrapWithLinksClonesOnlySeedWhenFamilyExceedsQuota(t *testing.T) {
	reg := registry.New()
	reg.Freeze()
	ctx := newTestContexts(t, reg, 6)

	mother := mustPerson(t, 1, actor.Female, date.MustNew(1980, 1, 1))
	child := mustPerson(t, 2, actor.Male, date.MustNew(2005, 6, 1))
	require.NoError(t, actor.SetParents(child, mother, date.MustNew(2004, 9, 1)))
	ctx.Mutable.ReserveExternalID(2)

	clones, err := initialiser.BootstrapWithLinks([]*actor.Person{mother, child}, 1, 2, reg, ctx)
	require.NoError(t, err)
	require.Len(t, clones, 1)
	require.Nil(t, clones[0].Mother())
}
