package migration

import (
	"math"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// MigrationModel supplies the absolute (not per-capita) annualized rate of
// population change for a cohort, as of a date; ModelDrivenGenerator
// integrates it over the period to get the target headcount delta.
type MigrationModel struct {
	RatePerYear func(asOf date.Date) float64
}

// Delta integrates RatePerYear over the period using its rate at the
// period's start date — the rate is expected to vary slowly relative to one
// period's length.
func (m MigrationModel) Delta(period schedule.Period) float64 {
	years := float64(period.End.DaysSince(period.Begin)) / 365.2425
	return m.RatePerYear(period.Begin) * years
}

// MigrationDateConvention picks the date stamped on new immigrants'
// ImmigrationDate (§4.F, migration_generator_model.cpp in the original).
type MigrationDateConvention int

const (
	MigrationDateBoundary MigrationDateConvention = iota // period.Begin
	MigrationDateMidpoint                                // period.Begin + (period.End-period.Begin)/2
)

func (c MigrationDateConvention) Resolve(period schedule.Period) date.Date {
	if c == MigrationDateMidpoint {
		halfDays := period.End.DaysSince(period.Begin) / 2
		return period.Begin.AddDays(halfDays)
	}
	return period.Begin
}

// ModelDrivenGenerator grows or shrinks a predicate-selected cohort toward
// a model-implied target headcount each period (§4.F): shrinking removes via
// Selector, growing bootstraps new persons by cloning existing cohort
// members with replacement.
type ModelDrivenGenerator struct {
	GenName        string
	Pred           predicate.Predicate
	Model          MigrationModel
	Selector       Selector
	ChildAgeLimit  float64
	DateConvention MigrationDateConvention
}

func (m *ModelDrivenGenerator) Name() string { return m.GenName }

func (m *ModelDrivenGenerator) Apply(population []*actor.Person, period schedule.Period, ctx operator.Contexts) (removed, added []*actor.Person) {
	candidates := selectCandidates(population, m.Pred, ctx, period.Begin)
	x0 := len(candidates)
	if x0 == 0 {
		return nil, nil
	}
	delta := m.Model.Delta(period)
	x1 := int(math.Round(float64(x0) + delta))

	if x1 < x0 {
		selector := m.Selector
		if selector == nil {
			selector = RandomSelector
		}
		selected := selector(candidates, x0-x1, ctx)
		removed = append(removed, selected...)
		removed = append(removed, coMigrateChildren(selected, m.ChildAgeLimit, period.Begin)...)
		return removed, nil
	}
	if x1 > x0 {
		migrationDate := m.DateConvention.Resolve(period)
		nAdd := x1 - x0
		for i := 0; i < nAdd; i++ {
			source := candidates[ctx.Mutable.RNG.NextUniformInt(len(candidates)-1)]
			added = append(added, cloneWithImmigration(source, migrationDate, m.ChildAgeLimit, ctx)...)
		}
		return nil, added
	}
	return nil, nil
}

// cloneWithImmigration clones source (and any of its children strictly
// below the cohort's child age limit) as fresh immigrant Persons dated to
// migrationDate, preserving attributes and date of birth.
func cloneWithImmigration(source *actor.Person, migrationDate date.Date, childAgeLimit float64, ctx operator.Contexts) []*actor.Person {
	var out []*actor.Person
	if clone := mustClone(source, migrationDate, ctx); clone != nil {
		out = append(out, clone)
	}
	for i := 0; i < source.NbrChildren(); i++ {
		child, err := source.Child(i)
		if err != nil || child == nil || child.AgeFraction(migrationDate) >= childAgeLimit {
			continue
		}
		if clone := mustClone(child, migrationDate, ctx); clone != nil {
			out = append(out, clone)
		}
	}
	return out
}

func mustClone(source *actor.Person, migrationDate date.Date, ctx operator.Contexts) *actor.Person {
	id := ctx.Mutable.GenID()
	clone, err := actor.New(id, source.Attributes(), source.DateOfBirth())
	if err != nil {
		return nil
	}
	_ = clone.SetImmigrationDate(migrationDate)
	return clone
}
