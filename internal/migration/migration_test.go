package migration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/rng"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
)

func newTestCtx(t *testing.T, seed int64) operator.Contexts {
	t.Helper()
	sched, err := schedule.New([]date.Date{date.MustNew(2020, 1, 1), date.MustNew(2021, 1, 1)})
	require.NoError(t, err)
	reg := registry.New()
	immut := simcontext.NewImmutableContext(sched, reg, simcontext.EthnicityClassification{})
	mut := simcontext.NewMutableContext(rng.New(seed))
	return operator.Contexts{Immutable: immut, Mutable: mut}
}

// TestCoMigrationScenario reproduces spec.md Scenario 4: adults A, B, C at
// ages 27, 45, 79, and a child CH at age 0 linked to A via mother. With age
// limit 10 and A, B, C selected for emigration, coMigrateChildren adds
// exactly CH, so the removed set is {A, B, C, CH}. C, who only recorded a
// past childbirth without a linked Person, contributes no additional removal.
func TestCoMigrationScenario(t *testing.T) {
	asOf := date.MustNew(2020, 1, 1)
	a, err := actor.New(1, actor.Attributes{Sex: actor.Female}, asOf.AddYears(-27))
	require.NoError(t, err)
	b, err := actor.New(2, actor.Attributes{Sex: actor.Male}, asOf.AddYears(-45))
	require.NoError(t, err)
	c, err := actor.New(3, actor.Attributes{Sex: actor.Female}, asOf.AddYears(-79))
	require.NoError(t, err)
	ch, err := actor.New(4, actor.Attributes{Sex: actor.Male}, asOf)
	require.NoError(t, err)

	require.NoError(t, actor.SetParents(ch, a, asOf.AddDays(-270)))
	require.NoError(t, c.AddChildBirth(asOf.AddYears(-50))) // historical birth, no linked Person

	selected := []*actor.Person{a, b, c}
	removed := coMigrateChildren(selected, 10, asOf)

	require.Len(t, removed, 1)
	require.Equal(t, ch.ID(), removed[0].ID())
}

func TestRandomSelectorPicksDistinctSubset(t *testing.T) {
	ctx := newTestCtx(t, 42)
	var people []*actor.Person
	for i := 1; i <= 5; i++ {
		p, err := actor.New(actor.ID(i), actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
		require.NoError(t, err)
		people = append(people, p)
	}
	selected := RandomSelector(people, 3, ctx)
	require.Len(t, selected, 3)
	seen := map[actor.ID]bool{}
	for _, p := range selected {
		require.False(t, seen[p.ID()], "selector must not repeat a candidate")
		seen[p.ID()] = true
	}
}

func TestLatestImmigrantsFirstSelectorOrdersDescendingNonImmigrantsLast(t *testing.T) {
	ctx := newTestCtx(t, 1)
	p1, _ := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
	p2, _ := actor.New(2, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
	p3, _ := actor.New(3, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1)) // non-immigrant
	require.NoError(t, p1.SetImmigrationDate(date.MustNew(2010, 1, 1)))
	require.NoError(t, p2.SetImmigrationDate(date.MustNew(2015, 1, 1)))

	selected := LatestImmigrantsFirstSelector([]*actor.Person{p1, p2, p3}, 3, ctx)
	require.Equal(t, []actor.ID{2, 1, 3}, []actor.ID{selected[0].ID(), selected[1].ID(), selected[2].ID()})
}

func TestModelDrivenGeneratorGrowsPopulation(t *testing.T) {
	ctx := newTestCtx(t, 3)
	var pop []*actor.Person
	for i := 1; i <= 10; i++ {
		p, err := actor.New(actor.ID(i), actor.Attributes{Sex: actor.Male, Ethnicity: 1}, date.MustNew(1990, 1, 1))
		require.NoError(t, err)
		pop = append(pop, p)
	}
	gen := &ModelDrivenGenerator{
		GenName: "grow",
		Pred:    predicate.True{},
		Model:   MigrationModel{RatePerYear: func(d date.Date) float64 { return 5 }}, // +5/yr, one-year period
	}
	period := schedule.Period{Begin: date.MustNew(2020, 1, 1), End: date.MustNew(2021, 1, 1)}
	removed, added := gen.Apply(pop, period, ctx)
	require.Nil(t, removed)
	require.Len(t, added, 5)
	for _, p := range added {
		require.False(t, p.ImmigrationDate().IsZero())
	}
}

func TestModelDrivenGeneratorShrinksPopulation(t *testing.T) {
	ctx := newTestCtx(t, 3)
	var pop []*actor.Person
	for i := 1; i <= 10; i++ {
		p, err := actor.New(actor.ID(i), actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
		require.NoError(t, err)
		pop = append(pop, p)
	}
	gen := &ModelDrivenGenerator{
		GenName: "shrink",
		Pred:    predicate.True{},
		Model:   MigrationModel{RatePerYear: func(d date.Date) float64 { return -4 }},
	}
	period := schedule.Period{Begin: date.MustNew(2020, 1, 1), End: date.MustNew(2021, 1, 1)}
	removed, added := gen.Apply(pop, period, ctx)
	require.Nil(t, added)
	require.Len(t, removed, 4)
}

func TestReturnGeneratorReadmitsFromShadow(t *testing.T) {
	ctx := newTestCtx(t, 9)
	shadow, err := actor.New(100, actor.Attributes{Sex: actor.Female, Ethnicity: 3}, date.MustNew(1980, 1, 1))
	require.NoError(t, err)
	ctx.Mutable.AddEmigrant(date.MustNew(2019, 6, 1), shadow)
	require.Len(t, ctx.Mutable.ShadowPopulation(), 1)

	gen := &ReturnGenerator{
		GenName:  "return",
		Pred:     predicate.True{},
		From:     date.MustNew(2020, 1, 1),
		To:       date.MustNew(2022, 1, 1),
		Fraction: 1.0,
	}
	period := schedule.Period{Begin: date.MustNew(2020, 1, 1), End: date.MustNew(2021, 1, 1)}
	removed, added := gen.Apply(nil, period, ctx)
	require.Nil(t, removed)
	require.Len(t, added, 1)
	require.Equal(t, uint8(3), added[0].Ethnicity())
	require.Empty(t, ctx.Mutable.ShadowPopulation(), "readmitted person must leave the shadow population")
}
