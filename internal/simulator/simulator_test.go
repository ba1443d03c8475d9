package simulator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/migration"
	"github.com/rilwen/microsimulation-sub000/internal/observer"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/rng"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
	"github.com/rilwen/microsimulation-sub000/internal/simulator"
)

func newHarness(t *testing.T, dates []date.Date, seed int64, people []*actor.Person, declare func(*registry.Registry)) simulator.Builder {
	t.Helper()
	sched, err := schedule.New(dates)
	require.NoError(t, err)
	reg := registry.New()
	if declare != nil {
		declare(reg)
	}
	immut := simcontext.NewImmutableContext(sched, reg, simcontext.EthnicityClassification{})
	mut := simcontext.NewMutableContext(rng.New(seed))
	for _, p := range people {
		reg.InstallHistories(p)
	}
	return simulator.Builder{
		Immutable:         immut,
		Mutable:           mut,
		InitialPopulation: people,
	}
}

func TestStepAdvancesDateIndexToScheduleSize(t *testing.T) {
	dates := []date.Date{
		date.MustNew(2020, 1, 1),
		date.MustNew(2021, 1, 1),
		date.MustNew(2022, 1, 1),
	}
	p, err := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)

	b := newHarness(t, dates, 1, []*actor.Person{p}, nil)
	sim, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, sim.Run())
	require.Equal(t, sim.Immutable.Schedule.Size(), sim.Mutable.DateIndex())
}

func TestStepIntegratesNewbornsKeepingPopulationIDOrdered(t *testing.T) {
	var pregIdx registry.VarIndex
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2020, 12, 1)}
	mother, err := actor.New(1, actor.Attributes{Sex: actor.Female}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)

	b := newHarness(t, dates, 1, []*actor.Person{mother}, func(reg *registry.Registry) {
		idx, err := reg.RegisterCommon(predicate.PregnancyEventVariable, history.NewDenseFactory[int8](), nil, nil)
		require.NoError(t, err)
		pregIdx = idx
	})

	birthOp := &operator.BirthOperator{
		OpName:   "birth",
		Pred:     predicate.Sex{Sex: actor.Female, Alive: true},
		Variable: pregIdx,
		Registry: b.Immutable.Registry,
	}

	conceived := date.MustNew(2020, 3, 1)
	birthDate := date.MustNew(2020, 11, 1)
	h := mother.History(int(pregIdx))
	require.NoError(t, h.Append(conceived, history.FromInt(history.KindInt8, int64(predicate.EventConception))))
	require.NoError(t, h.Append(birthDate, history.FromInt(history.KindInt8, int64(predicate.EventBirth))))
	require.NoError(t, mother.AddFetus(actor.Fetus{Attributes: actor.Attributes{Sex: actor.Male}, Conceived: conceived}))

	b.Operators = []operator.Operator{birthOp}
	sim, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, sim.Step())

	require.Len(t, sim.MainPopulation, 2)
	require.Less(t, sim.MainPopulation[0].ID(), sim.MainPopulation[1].ID(), "newborn must sort after the mother by strictly increasing id")
	require.Equal(t, birthDate, sim.MainPopulation[1].DateOfBirth())
}

func TestStepExodusWithoutImmigrantsLeavesShadowPopulationEmpty(t *testing.T) {
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2021, 1, 1)}
	var people []*actor.Person
	for i := 1; i <= 4; i++ {
		p, err := actor.New(actor.ID(i), actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
		require.NoError(t, err)
		people = append(people, p)
	}

	b := newHarness(t, dates, 2, people, nil)
	b.MigrationGenerators = []migration.Generator{
		&migration.ExodusGenerator{
			GenName:          "exodus",
			Pred:             predicate.True{},
			From:             date.MustNew(2020, 1, 1),
			To:               date.MustNew(2021, 1, 1),
			Fraction:         1.0,
			ImmigrationCutoff: date.MustNew(2019, 1, 1),
		},
	}
	sim, err := b.Build()
	require.NoError(t, err)

	// No one has an immigration date yet, so the exodus generator (which only
	// selects existing immigrants) should remove nobody.
	require.NoError(t, sim.Step())
	require.Len(t, sim.MainPopulation, 4)
	require.Empty(t, sim.Mutable.ShadowPopulation())
}

func TestStepRejectsUnsatisfiedFeatureRequirement(t *testing.T) {
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2021, 1, 1)}
	p, err := actor.New(1, actor.Attributes{Sex: actor.Male}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)

	b := newHarness(t, dates, 1, []*actor.Person{p}, nil)
	b.Operators = []operator.Operator{
		&operator.MarkovOperator{
			OpName:      "needs-missing",
			Pred:        predicate.True{},
			RequiresSet: feature.NewSet("SOME_UPSTREAM_FEATURE"),
		},
	}
	sim, err := b.Build()
	require.NoError(t, err)

	err = sim.Step()
	require.ErrorIs(t, err, feature.ErrUnsatisfied)
}

func TestDemographicsObserverBindingReadsImmigrantsProducedThisStep(t *testing.T) {
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2021, 1, 1)}
	p, err := actor.New(1, actor.Attributes{Sex: actor.Male, Ethnicity: 0}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)

	b := newHarness(t, dates, 1, []*actor.Person{p}, nil)
	b.MigrationGenerators = []migration.Generator{
		&migration.ModelDrivenGenerator{
			GenName: "growth",
			Pred:    predicate.True{},
			Model:   migration.MigrationModel{RatePerYear: func(date.Date) float64 { return 3 }},
		},
	}
	obs := observer.NewDemographicsObserver("immigrants", []observer.AgeRange{{Min: 0, Max: 200}})
	b.Demographics = []simulator.DemographicsBinding{{Observer: obs, Target: simulator.TargetImmigrants}}
	sim, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, sim.Step())

	counts := obs.Counts(0, 0, 0, actor.Male)
	require.Positive(t, counts.Population, "immigrant demographics binding must see the arrivals migration produced this step")
	require.Len(t, sim.Mutable.Immigrants(), 0, "immigrant buffer is cleared once this period has been observed")
}

func TestDemographicsObserverBindingReadsMainPopulation(t *testing.T) {
	dates := []date.Date{date.MustNew(2020, 1, 1), date.MustNew(2021, 1, 1)}
	p, err := actor.New(1, actor.Attributes{Sex: actor.Male, Ethnicity: 0}, date.MustNew(1990, 1, 1))
	require.NoError(t, err)

	b := newHarness(t, dates, 1, []*actor.Person{p}, nil)
	obs := observer.NewDemographicsObserver("main", []observer.AgeRange{{Min: 0, Max: 200}})
	b.Demographics = []simulator.DemographicsBinding{{Observer: obs, Target: simulator.TargetMain}}
	sim, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, sim.Step())
	counts := obs.Counts(0, 0, 0, actor.Male)
	require.Equal(t, 1, counts.Population)
}
