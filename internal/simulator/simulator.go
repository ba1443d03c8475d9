// Package simulator assembles the per-period step loop (§4.H): operator
// application in feature-topological order, newborn integration, migration,
// and observer invocation, over an immutable and a mutable context.
package simulator

import (
	"errors"
	"fmt"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/migration"
	"github.com/rilwen/microsimulation-sub000/internal/observer"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
	"github.com/rilwen/microsimulation-sub000/internal/simcontext"
)

// ErrScheduleExhausted signals Step was called after the schedule was fully
// advanced; Run treats it as a normal stopping condition.
var ErrScheduleExhausted = errors.New("simulator: schedule exhausted")

// DemographicsTarget picks which population a DemographicsObserver binding
// tallies: the live main population, or the mutable context's
// immigrant/emigrant buffers for the period just elapsed (§4.G).
type DemographicsTarget int

const (
	TargetMain DemographicsTarget = iota
	TargetImmigrants
	TargetEmigrants
)

// DemographicsBinding pairs a DemographicsObserver with the population it
// tallies.
type DemographicsBinding struct {
	Observer *observer.DemographicsObserver
	Target   DemographicsTarget
}

// Simulator holds everything the step loop needs: the two contexts, the
// operator/migration/observer sets, and the main population it steps. The
// emigrant shadow population lives inside the mutable context.
type Simulator struct {
	Immutable simcontext.ImmutableContext
	Mutable   *simcontext.MutableContext

	Operators           []operator.Operator
	MigrationGenerators []migration.Generator
	Demographics        []DemographicsBinding
	Statistics          []*observer.StatisticsObserver

	MainPopulation []*actor.Person

	// DisableNewborns makes the step loop unlink, rather than integrate,
	// child records dated on or after the step date (§4.H step 3).
	DisableNewborns bool

	// IgnoreFeatures and ExternallyProvided pass through to the per-actor
	// feature-consistency check (§4.D): features satisfied outside the
	// operator set (e.g. by the initialiser before period zero) belong in
	// ExternallyProvided.
	IgnoreFeatures     feature.Set
	ExternallyProvided feature.Set
}

func (s *Simulator) contexts() operator.Contexts {
	return operator.Contexts{Immutable: s.Immutable, Mutable: s.Mutable}
}

// Step advances the simulation by exactly one period: d_k -> d_{k+1}. It
// steps the shadow (emigrant) population first, then the main population
// (§4.H); only on the main population does it additionally run migration
// generators and then observers, so demographics bound to TargetImmigrants
// or TargetEmigrants see the arrivals/departures migration just produced for
// this period, before the mutable context's date index advances.
func (s *Simulator) Step() error {
	k := s.Mutable.DateIndex()
	if k >= s.Immutable.Schedule.Size() {
		return ErrScheduleExhausted
	}
	period := s.Immutable.Schedule.Period(k)

	shadow, err := s.stepPopulation(s.Mutable.ShadowPopulation(), period)
	if err != nil {
		return fmt.Errorf("simulator: stepping shadow population: %w", err)
	}
	s.Mutable.ReplaceShadowPopulation(shadow)

	main, err := s.stepPopulation(s.MainPopulation, period)
	if err != nil {
		return fmt.Errorf("simulator: stepping main population: %w", err)
	}
	s.MainPopulation = main

	if period.End.After(period.Begin) {
		if err := s.runMigration(period); err != nil {
			return fmt.Errorf("simulator: migration: %w", err)
		}
		s.observe(period, k)
	}

	s.Mutable.ClearImmigrants()
	s.Mutable.AdvanceDateIndex()
	return nil
}

// Run steps the simulator until the schedule is exhausted.
func (s *Simulator) Run() error {
	for {
		err := s.Step()
		if errors.Is(err, ErrScheduleExhausted) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// stepPopulation runs §4.H step 1-3 over one population: assemble and order
// the active operators, check per-actor feature consistency, apply each
// operator to the actors its predicate selects, then integrate or unlink
// newborns.
func (s *Simulator) stepPopulation(pop []*actor.Person, period schedule.Period) ([]*actor.Person, error) {
	asof := period.Begin

	var active []operator.Operator
	for _, op := range s.Operators {
		if op.IsActive(asof) {
			active = append(active, op)
		}
	}
	nodes := make([]feature.Node, len(active))
	for i, op := range active {
		nodes[i] = op
	}

	sorted, err := feature.TopoSort(nodes)
	if err != nil {
		return nil, err
	}

	pctx := predicate.Context{Immutable: s.Immutable, AsOf: asof}
	selects := func(n feature.Node, p *actor.Person) bool {
		return n.(operator.Operator).Predicate().Select(p, pctx)
	}
	if err := feature.CheckActorSubsetConsistency[*actor.Person](nodes, selects, pop, s.IgnoreFeatures, s.ExternallyProvided); err != nil {
		return nil, err
	}

	live := alivePersons(pop, asof)
	ctx := s.contexts()
	for _, n := range sorted {
		op := n.(operator.Operator)
		pool := pop
		if op.Predicate().SelectsAliveOnly() {
			pool = live
		}
		var selected []*actor.Person
		for _, p := range pool {
			if op.Predicate().Select(p, pctx) {
				selected = append(selected, p)
			}
		}
		if len(selected) > 0 {
			op.Apply(selected, period, ctx)
		}
	}

	if s.DisableNewborns {
		for _, p := range pop {
			p.UnlinkChildren(asof)
		}
	} else {
		pop = append(pop, s.Mutable.Newborns()...)
	}
	s.Mutable.ClearNewborns()

	return pop, nil
}

// observe runs every bound demographics/statistics observer over the
// population just stepped and migrated, for the period about to be recorded
// as d_k (§4.H step 4, second half — runMigration is the first half).
func (s *Simulator) observe(period schedule.Period, dateIndex int) {
	for _, b := range s.Demographics {
		switch b.Target {
		case TargetMain:
			b.Observer.Observe(s.MainPopulation, period, dateIndex)
		case TargetImmigrants:
			b.Observer.Observe(s.Mutable.Immigrants(), period, dateIndex)
		case TargetEmigrants:
			b.Observer.Observe(s.Mutable.EmigrantsOn(period.Begin), period, dateIndex)
		}
	}
	ctx := s.contexts()
	for _, st := range s.Statistics {
		st.Observe(s.MainPopulation, ctx, period.Begin, dateIndex)
	}
}

// runMigration runs every migration generator in order over the main
// population, splicing removed persons into the emigrant shadow buffer and
// newly added persons into the main population as fresh immigrants (§4.H
// step 4, first half; §4.F).
func (s *Simulator) runMigration(period schedule.Period) error {
	ctx := s.contexts()
	for _, gen := range s.MigrationGenerators {
		removed, added := gen.Apply(s.MainPopulation, period, ctx)
		if len(removed) > 0 {
			s.MainPopulation = removeByID(s.MainPopulation, removed)
			for _, p := range removed {
				s.Mutable.AddEmigrant(period.Begin, p)
			}
		}
		for _, p := range added {
			s.Immutable.Registry.InstallHistories(p)
			s.Mutable.AddImmigrant(p)
			s.MainPopulation = append(s.MainPopulation, p)
		}
	}
	return nil
}

func removeByID(pop []*actor.Person, removed []*actor.Person) []*actor.Person {
	drop := make(map[actor.ID]bool, len(removed))
	for _, p := range removed {
		drop[p.ID()] = true
	}
	out := pop[:0]
	for _, p := range pop {
		if !drop[p.ID()] {
			out = append(out, p)
		}
	}
	return out
}

func alivePersons(pop []*actor.Person, asof date.Date) []*actor.Person {
	var out []*actor.Person
	for _, p := range pop {
		if p.IsAlive(asof) {
			out = append(out, p)
		}
	}
	return out
}
