package simulator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/migration"
	"github.com/rilwen/microsimulation-sub000/internal/observer"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
)

// ErrEmptyPopulation is a configuration error: a simulator needs at least one
// starting person.
var ErrEmptyPopulation = errors.New("simulator: initial population is empty")

// ErrUnsortedPopulation is a configuration error: the initial population must
// be sorted by strictly increasing ID, matching the invariant the step loop
// maintains thereafter.
var ErrUnsortedPopulation = errors.New("simulator: initial population is not sorted by strictly increasing id")

// Builder assembles a Simulator, checking the invariants the step loop
// depends on before the run starts.
type Builder struct {
	Immutable simcontext.ImmutableContext
	Mutable   *simcontext.MutableContext

	Operators           []operator.Operator
	MigrationGenerators []migration.Generator
	Demographics        []DemographicsBinding
	Statistics          []*observer.StatisticsObserver

	InitialPopulation []*actor.Person
	DisableNewborns   bool
}

// Build validates the assembled configuration and returns a ready-to-run
// Simulator.
func (b Builder) Build() (*Simulator, error) {
	if len(b.InitialPopulation) == 0 {
		return nil, ErrEmptyPopulation
	}
	for i := 1; i < len(b.InitialPopulation); i++ {
		if b.InitialPopulation[i].ID() <= b.InitialPopulation[i-1].ID() {
			return nil, fmt.Errorf("%w: position %d", ErrUnsortedPopulation, i)
		}
	}
	maxID := b.InitialPopulation[len(b.InitialPopulation)-1].ID()
	for _, p := range b.InitialPopulation {
		if p.ID() > maxID {
			maxID = p.ID()
		}
	}
	b.Mutable.ReserveExternalID(maxID)

	pop := make([]*actor.Person, len(b.InitialPopulation))
	copy(pop, b.InitialPopulation)
	sort.SliceStable(pop, func(i, j int) bool { return pop[i].ID() < pop[j].ID() })

	return &Simulator{
		Immutable:           b.Immutable,
		Mutable:             b.Mutable,
		Operators:           b.Operators,
		MigrationGenerators: b.MigrationGenerators,
		Demographics:        b.Demographics,
		Statistics:          b.Statistics,
		MainPopulation:      pop,
		DisableNewborns:     b.DisableNewborns,
	}, nil
}
