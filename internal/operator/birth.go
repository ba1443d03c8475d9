package operator

import (
	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// BirthOperator materializes fetuses into newborn Persons, or discards them
// on miscarriage (§4.E.10). It scans each mother's PREGNANCY_EVENT history
// for Birth/Miscarriage entries recorded in the period just elapsed (by
// ConceptionOperator's downstream PregnancyStageOperator, which runs earlier
// in the same period under feature ordering). On Birth, every fetus still
// on the mother is turned into a new Person dated to the birth day, linked
// via actor.SetParents, given a fresh ID from the mutable context, staged
// via MutableContext.AddNewborn for merge into the population at period end,
// and has its variable histories installed from the registry. On
// Miscarriage, the fetuses are simply dropped.
type BirthOperator struct {
	OpName      string
	Pred        predicate.Predicate
	Variable    registry.VarIndex
	Registry    *registry.Registry
	ProvidesSet feature.Set
	RequiresSet feature.Set
}

func (b *BirthOperator) Name() string                  { return b.OpName }
func (b *BirthOperator) Predicate() predicate.Predicate { return b.Pred }
func (b *BirthOperator) IsActive(d date.Date) bool      { return b.Pred.Active(d) }
func (b *BirthOperator) Provides() feature.Set          { return b.ProvidesSet }
func (b *BirthOperator) Requires() feature.Set          { return b.RequiresSet }

func (b *BirthOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	for _, p := range actors {
		b.applyOne(p, period, ctx)
	}
}

func (b *BirthOperator) applyOne(mother *actor.Person, period schedule.Period, ctx Contexts) {
	h := mother.History(int(b.Variable))
	if h == nil {
		return
	}
	start := h.FirstIndex(period.Begin)
	end := h.LastIndex(period.End.AddDays(-1))
	for i := start; i <= end; i++ {
		if i < 0 || i >= h.Size() {
			continue
		}
		event := predicate.PregnancyEvent(h.ValueAt(i).AsInt64())
		eventDate := h.DateAt(i)
		switch event {
		case predicate.EventMiscarriage:
			mother.RemoveFetuses(eventDate.AddDays(1))
		case predicate.EventBirth:
			b.deliver(mother, eventDate, ctx)
		}
	}
}

func (b *BirthOperator) deliver(mother *actor.Person, birthDate date.Date, ctx Contexts) {
	fetuses := mother.Fetuses()
	for _, f := range fetuses {
		id := ctx.Mutable.GenID()
		child, err := actor.New(id, f.Attributes, birthDate)
		if err != nil {
			continue
		}
		if err := actor.SetParents(child, mother, f.Conceived); err != nil {
			continue
		}
		if b.Registry != nil {
			b.Registry.InstallHistories(child)
		}
		ctx.Mutable.AddNewborn(child)
	}
	mother.RemoveFetuses(birthDate.AddDays(1))
}
