// Package migration implements the three demographic flow generators
// (§4.F): model-driven, exodus, and return migration, plus the selector
// policies that decide which persons move.
package migration

import (
	"sort"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// Generator computes, for one period, the persons to remove from the
// population (which the simulator splices into the emigrant buffer) and the
// persons to add (fresh immigrants, already assigned IDs).
type Generator interface {
	Name() string
	Apply(population []*actor.Person, period schedule.Period, ctx operator.Contexts) (removed, added []*actor.Person)
}

// Selector picks n persons out of candidates for migration.
type Selector func(candidates []*actor.Person, n int, ctx operator.Contexts) []*actor.Person

// RandomSelector picks n distinct candidates uniformly without replacement.
func RandomSelector(candidates []*actor.Person, n int, ctx operator.Contexts) []*actor.Person {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	pool := make([]*actor.Person, len(candidates))
	copy(pool, candidates)
	for i := len(pool) - 1; i > 0; i-- {
		j := ctx.Mutable.RNG.NextUniformInt(i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// LatestImmigrantsFirstSelector picks the n candidates with the most recent
// immigration date, non-immigrants (zero immigration date) last.
func LatestImmigrantsFirstSelector(candidates []*actor.Person, n int, ctx operator.Contexts) []*actor.Person {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	sorted := make([]*actor.Person, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].ImmigrationDate(), sorted[j].ImmigrationDate()
		if di.IsZero() && dj.IsZero() {
			return false
		}
		if di.IsZero() {
			return false // non-immigrants sort last
		}
		if dj.IsZero() {
			return true
		}
		return dj.Before(di) // descending by immigration date
	})
	return sorted[:n]
}

// coMigrateChildren appends, once per child, every child of a selected
// mother who is strictly below ageLimit as of asOf and not already in the
// selection — the "up to once per child" rule for a child linked to more
// than one migrating parent.
func coMigrateChildren(selected []*actor.Person, ageLimit float64, asOf date.Date) []*actor.Person {
	migrated := make(map[actor.ID]bool, len(selected))
	for _, p := range selected {
		migrated[p.ID()] = true
	}
	var extra []*actor.Person
	for _, parent := range selected {
		if parent.Sex() != actor.Female {
			continue
		}
		for i := 0; i < parent.NbrChildren(); i++ {
			child, err := parent.Child(i)
			if err != nil || child == nil || migrated[child.ID()] {
				continue
			}
			if child.AgeFraction(asOf) < ageLimit {
				migrated[child.ID()] = true
				extra = append(extra, child)
			}
		}
	}
	return extra
}

// selectCandidates filters population by pred, evaluated as of asOf.
func selectCandidates(population []*actor.Person, pred predicate.Predicate, ctx operator.Contexts, asOf date.Date) []*actor.Person {
	pctx := predicate.Context{Immutable: ctx.Immutable, AsOf: asOf}
	var out []*actor.Person
	for _, p := range population {
		if pred.Select(p, pctx) {
			out = append(out, p)
		}
	}
	return out
}
