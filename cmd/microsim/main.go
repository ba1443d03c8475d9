// Command microsim runs a demographic microsimulation from a SQLite
// snapshot: it loads a previously saved population (or bootstraps a fresh
// one from a tiny synthetic reference sample), steps it year by year through
// the core fertility/mortality operator chain, and saves population and
// observer state back to the snapshot after every period.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/initialiser"
	"github.com/rilwen/microsimulation-sub000/internal/migration"
	"github.com/rilwen/microsimulation-sub000/internal/observer"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/rng"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
	"github.com/rilwen/microsimulation-sub000/internal/simulator"
	"github.com/rilwen/microsimulation-sub000/internal/snapshot"
)

var (
	pregnancyVar registry.VarIndex
	wageVar      registry.VarIndex
)

func declareVariables(reg *registry.Registry) error {
	var err error
	pregnancyVar, err = reg.RegisterCommon("PREGNANCY_EVENT", history.NewSparseFactory[int8](), nil, nil)
	if err != nil {
		return err
	}
	wageVar, err = reg.RegisterCommon("WAGE", history.NewDenseFactory[float64](), nil, nil)
	return err
}

func mortalityCurve(*actor.Person) operator.HazardCurve {
	return operator.HazardCurve{
		// Ages 60 and 80 as offsets from year 0; the mortality operator
		// re-anchors them at each person's date of birth.
		Breakpoints: []date.Date{date.MustNew(60, 1, 1), date.MustNew(80, 1, 1)},
		Rates:       []float64{0.002, 0.02, 0.12},
	}
}

func conceptionCurve(*actor.Person) operator.HazardCurve {
	return operator.HazardCurve{Rates: []float64{0.18}}
}

func noRelativeRisks(*actor.Person, operator.Contexts, date.Date) []operator.RelativeRisk { return nil }

func buildOperators(reg *registry.Registry) []operator.Operator {
	mortality := operator.NewMortalityOperator(
		"mortality",
		predicate.Age{Min: 0, Max: 130, Alive: true},
		mortalityCurve,
		noRelativeRisks,
		feature.NewSet("mortality"),
		nil,
	)

	conception := &operator.ConceptionOperator{
		OpName:                         "conception",
		Pred:                           predicate.Sex{Sex: actor.Female, Alive: true},
		Variable:                       pregnancyVar,
		CurveFor:                       conceptionCurve,
		RelativeRisks:                  noRelativeRisks,
		MinAge:                         func(*actor.Person) float64 { return 18 },
		MaxAge:                         func(*actor.Person) float64 { return 42 },
		PostPregnancyZeroFertilityDays: 270,
		ProvidesSet:                    feature.NewSet("conception"),
		RequiresSet:                    feature.NewSet("mortality"),
	}

	fetus := &operator.FetusGenerationOperator{
		OpName:            "fetus-generation",
		Pred:              predicate.Sex{Sex: actor.Female, Alive: true},
		Variable:          pregnancyVar,
		Multiplicity:      func(*actor.Person, operator.Contexts, date.Date) int { return 1 },
		FemaleProbability: func(date.Date) float64 { return 0.49 },
		ProvidesSet:       feature.NewSet("fetus-generation"),
		RequiresSet:       feature.NewSet("conception"),
	}

	pregnancy := &operator.PregnancyStageOperator{
		OpName:    "pregnancy-stage",
		Pred:      predicate.Sex{Sex: actor.Female, Alive: true},
		Variable:  pregnancyVar,
		StepYears: 9.0 / 12.0,
		NextStates: func(current predicate.PregnancyEvent, asOf date.Date) []predicate.PregnancyEvent {
			return []predicate.PregnancyEvent{predicate.EventBirth, predicate.EventMiscarriage}
		},
		TransitionProbs: func(current predicate.PregnancyEvent, asOf date.Date) []float64 {
			return []float64{0.92, 0.08}
		},
		ProvidesSet: feature.NewSet("pregnancy-stage"),
		RequiresSet: feature.NewSet("fetus-generation"),
	}

	birth := &operator.BirthOperator{
		OpName:      "birth",
		Pred:        predicate.Sex{Sex: actor.Female, Alive: true},
		Variable:    pregnancyVar,
		Registry:    reg,
		ProvidesSet: feature.NewSet("birth"),
		RequiresSet: feature.NewSet("pregnancy-stage"),
	}

	return []operator.Operator{mortality, conception, fetus, pregnancy, birth}
}

// buildMigrationGenerators returns a single steady-growth net-immigration
// generator: the working-age population drifts upward by a fixed annual
// rate, with new arrivals cloned from existing working-age cohort members.
func buildMigrationGenerators() []migration.Generator {
	netGrowth := &migration.ModelDrivenGenerator{
		GenName:        "net-immigration",
		Pred:           predicate.Age{Min: 18, Max: 64, Alive: true},
		Model:          migration.MigrationModel{RatePerYear: func(date.Date) float64 { return 15 }},
		Selector:       migration.RandomSelector,
		ChildAgeLimit:  12,
		DateConvention: migration.MigrationDateMidpoint,
	}
	return []migration.Generator{netGrowth}
}

// syntheticReferenceSample builds a small hand-rolled population to seed
// BootstrapUnlinked with, for runs that start with no prior snapshot.
func syntheticReferenceSample(seedAt date.Date) []*actor.Person {
	src := rand.New(rand.NewSource(1))
	var out []*actor.Person
	var id actor.ID
	for age := 0; age < 90; age += 2 {
		for _, sex := range []actor.Sex{actor.Female, actor.Male} {
			id++
			dob := seedAt.AddYears(-age)
			eth := uint8(src.Intn(4))
			p, err := actor.New(id, actor.Attributes{Sex: sex, Ethnicity: eth}, dob)
			if err != nil {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

func main() {
	logFormat := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(logFormat))

	dbPath := flag.String("db", "data/microsim.db", "path to the snapshot SQLite database")
	populationSize := flag.Int("population", 2000, "initial population size when bootstrapping a fresh run")
	years := flag.Int("years", 20, "number of one-year periods to simulate")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	runID := uuid.New().String()
	slog.Info("microsim starting", "run_id", runID, "db", *dbPath, "years", *years)

	if err := os.MkdirAll("data", 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	store, err := snapshot.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	reg := registry.New()
	if err := declareVariables(reg); err != nil {
		slog.Error("failed to declare variables", "error", err)
		os.Exit(1)
	}
	reg.Freeze()

	startDate := date.MustNew(2020, 1, 1)
	sched, err := schedule.NewFromStep(startDate, startDate.AddYears(*years), func(d date.Date) date.Date { return d.AddYears(1) })
	if err != nil {
		slog.Error("failed to build schedule", "error", err)
		os.Exit(1)
	}

	var initialPop []*actor.Person
	var resumeFromIndex int
	if priorIndex, err := store.GetMeta("date_index"); err == nil && priorIndex != "" {
		if _, scanErr := fmt.Sscanf(priorIndex, "%d", &resumeFromIndex); scanErr != nil {
			slog.Error("failed to parse saved date index", "error", scanErr)
			os.Exit(1)
		}
		slog.Info("resuming from saved snapshot", "date_index", resumeFromIndex)
		initialPop, err = store.LoadPopulation(reg)
		if err != nil {
			slog.Error("failed to load population", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("no saved snapshot found, bootstrapping fresh population", "size", *populationSize)
		mutForBootstrap := simcontext.NewMutableContext(rng.New(*seed))
		immutForBootstrap := simcontext.NewImmutableContext(sched, reg, simcontext.EthnicityClassification{})
		bootstrapCtx := operator.Contexts{Immutable: immutForBootstrap, Mutable: mutForBootstrap}
		reference := syntheticReferenceSample(startDate)
		initialPop, err = initialiser.BootstrapUnlinked(reference, *populationSize, reg, bootstrapCtx,
			initialiser.PerturbDateOfBirthDay{ShiftHistoryDates: false})
		if err != nil {
			slog.Error("failed to bootstrap population", "error", err)
			os.Exit(1)
		}
	}

	mut := simcontext.NewMutableContext(rng.New(*seed))
	for i := 0; i < resumeFromIndex; i++ {
		mut.AdvanceDateIndex()
	}
	immut := simcontext.NewImmutableContext(sched, reg, simcontext.EthnicityClassification{})

	demographics := observer.NewDemographicsObserver("population", []observer.AgeRange{
		{Min: 0, Max: 18}, {Min: 18, Max: 65}, {Min: 65, Max: 200},
	})
	statistics := observer.NewStatisticsObserver("wages", map[string]observer.Quantity{
		"wage": func(p *actor.Person, ctx operator.Contexts, asOf date.Date) (float64, bool) {
			h := p.History(int(wageVar))
			if h == nil || h.Empty() {
				return 0, false
			}
			return h.LastAsDouble(asOf)
		},
	}, false)

	builder := simulator.Builder{
		Immutable:           immut,
		Mutable:             mut,
		Operators:           buildOperators(reg),
		MigrationGenerators: buildMigrationGenerators(),
		Demographics:        []simulator.DemographicsBinding{{Observer: demographics, Target: simulator.TargetMain}},
		Statistics:          []*observer.StatisticsObserver{statistics},
		InitialPopulation:   initialPop,
	}
	sim, err := builder.Build()
	if err != nil {
		slog.Error("failed to build simulator", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stopped := false
	go func() {
		<-sigCh
		slog.Info("received shutdown signal")
		stopped = true
	}()

	interactive := isatty.IsTerminal(os.Stdout.Fd())

	for !stopped {
		dateIndex := sim.Mutable.DateIndex()
		if err := sim.Step(); err != nil {
			if err == simulator.ErrScheduleExhausted {
				break
			}
			slog.Error("simulation step failed", "error", err)
			os.Exit(1)
		}

		if err := store.SavePopulation(sim.MainPopulation, reg); err != nil {
			slog.Error("failed to save population", "error", err)
		}
		if err := store.SaveDemographics(demographics, dateIndex); err != nil {
			slog.Error("failed to save demographics", "error", err)
		}
		if err := store.SaveStatistics(statistics, dateIndex); err != nil {
			slog.Error("failed to save statistics", "error", err)
		}
		if err := store.SaveMeta("date_index", fmt.Sprintf("%d", sim.Mutable.DateIndex())); err != nil {
			slog.Error("failed to save meta", "error", err)
		}

		msg := fmt.Sprintf("period %d complete, population %s", dateIndex, humanize.Comma(int64(len(sim.MainPopulation))))
		if interactive {
			fmt.Println(msg)
		}
		slog.Info("period complete", "date_index", dateIndex, "population", len(sim.MainPopulation))
	}

	slog.Info("microsim finished", "final_population", len(sim.MainPopulation))
}
