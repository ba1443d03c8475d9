// Package simcontext holds the two context objects operators and the
// simulator thread through every call: the ImmutableContext (schedule,
// variable registry, ethnicity metadata — fixed once the builder assembles
// the run) and the MutableContext (RNG stream, per-period bookkeeping
// buffers — the only state the step loop is allowed to mutate).
package simcontext

import (
	"errors"
	"sort"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/rng"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// ImmutableContext is the fixed part of a simulation run: assembled by the
// builder, frozen, and shared read-only by every operator.
type ImmutableContext struct {
	Schedule  schedule.Schedule
	Registry  *registry.Registry
	Ethnicity EthnicityClassification
}

// NewImmutableContext builds an ImmutableContext and freezes the registry.
func NewImmutableContext(sched schedule.Schedule, reg *registry.Registry, ethnicity EthnicityClassification) ImmutableContext {
	reg.Freeze()
	return ImmutableContext{Schedule: sched, Registry: reg, Ethnicity: ethnicity}
}

// ErrIDCollision is a logic error: an externally assigned ID collides with
// one already issued.
var ErrIDCollision = errors.New("simcontext: id already issued")

// MutableContext holds everything the simulation loop is allowed to change
// step to step: the RNG stream, the current period index, ID allocation
// state, and the per-period newborn/immigrant/emigrant bookkeeping buffers.
type MutableContext struct {
	RNG *rng.Stream

	dateIndex int
	maxID     actor.ID

	newborns   []*actor.Person // sorted by ID, cleared each period
	immigrants []*actor.Person // sorted by ID, cleared each period

	emigrants map[date.Date][]*actor.Person // emigration_date -> persons, each slice sorted by ID
	shadow    []*actor.Person               // emigrant shadow population, kept alive for further stepping
}

// NewMutableContext builds a fresh MutableContext seeded with stream.
func NewMutableContext(stream *rng.Stream) *MutableContext {
	return &MutableContext{
		RNG:       stream,
		emigrants: make(map[date.Date][]*actor.Person),
	}
}

// DateIndex returns the current period index k. Only the simulator advances
// it, via AdvanceDateIndex.
func (c *MutableContext) DateIndex() int { return c.dateIndex }

// AdvanceDateIndex moves k forward by one period.
func (c *MutableContext) AdvanceDateIndex() { c.dateIndex++ }

// GenID returns the next strictly-increasing actor ID.
func (c *MutableContext) GenID() actor.ID {
	c.maxID++
	return c.maxID
}

// MaxID returns the highest ID issued or reserved so far.
func (c *MutableContext) MaxID() actor.ID { return c.maxID }

// ReserveExternalID registers an externally-assigned ID (e.g. loaded from a
// snapshot) so GenID never reissues it. Raising the max is allowed only
// upward; ids at or below the current max are accepted without effect
// unless they collide with one already tracked as live, which callers must
// check separately via the population index.
func (c *MutableContext) ReserveExternalID(id actor.ID) {
	if id > c.maxID {
		c.maxID = id
	}
}

// AddNewborn appends a just-born person to the current period's newborn
// buffer, keeping it sorted by ID.
func (c *MutableContext) AddNewborn(p *actor.Person) {
	c.newborns = insertSortedByID(c.newborns, p)
}

// Newborns returns the current period's newborn buffer.
func (c *MutableContext) Newborns() []*actor.Person { return c.newborns }

// ClearNewborns empties the newborn buffer; called once newborns are merged
// into the main population.
func (c *MutableContext) ClearNewborns() { c.newborns = nil }

// AddImmigrant appends a just-arrived person to the current period's
// immigrant buffer, keeping it sorted by ID.
func (c *MutableContext) AddImmigrant(p *actor.Person) {
	c.immigrants = insertSortedByID(c.immigrants, p)
}

// Immigrants returns the current period's immigrant buffer.
func (c *MutableContext) Immigrants() []*actor.Person { return c.immigrants }

// ClearImmigrants empties the immigrant buffer.
func (c *MutableContext) ClearImmigrants() { c.immigrants = nil }

// AddEmigrant records p as emigrating on d, moving it into the shadow
// population so mortality/fertility can keep stepping it.
func (c *MutableContext) AddEmigrant(d date.Date, p *actor.Person) {
	c.emigrants[d] = insertSortedByID(c.emigrants[d], p)
	c.shadow = insertSortedByID(c.shadow, p)
}

// EmigrantsOn returns the persons recorded as emigrating on d.
func (c *MutableContext) EmigrantsOn(d date.Date) []*actor.Person { return c.emigrants[d] }

// EmigrationDates returns the dates with at least one recorded emigrant, in
// increasing order.
func (c *MutableContext) EmigrationDates() []date.Date {
	dates := make([]date.Date, 0, len(c.emigrants))
	for d := range c.emigrants {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ShadowPopulation returns the emigrant shadow population kept alive for
// continued stepping.
func (c *MutableContext) ShadowPopulation() []*actor.Person { return c.shadow }

// RemoveFromShadow drops the named persons from the emigrant shadow
// population, used once a return-migration generator re-admits them.
func (c *MutableContext) RemoveFromShadow(ids map[actor.ID]bool) {
	kept := c.shadow[:0]
	for _, p := range c.shadow {
		if !ids[p.ID()] {
			kept = append(kept, p)
		}
	}
	c.shadow = kept
}

// ReplaceShadowPopulation overwrites the emigrant shadow population wholesale,
// used by the simulator once it has stepped the shadow population (merging
// in any newborns it produced) for the next period.
func (c *MutableContext) ReplaceShadowPopulation(pop []*actor.Person) {
	c.shadow = pop
}

func insertSortedByID(list []*actor.Person, p *actor.Person) []*actor.Person {
	i := sort.Search(len(list), func(i int) bool { return list[i].ID() >= p.ID() })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = p
	return list
}

