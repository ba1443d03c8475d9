package codec

import (
	"fmt"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
)

// DecodePopulation constructs a population of Persons from decoded §6.4
// records in two passes: every person is built and its histories installed
// and replayed first, then mother/child links are wired from MOTHER_ID, so
// records do not need to list mothers before their children. nextID is
// called once per record that arrives without an explicit ID.
func DecodePopulation(records []PersonRecord, reg *registry.Registry, nextID func() actor.ID) ([]*actor.Person, error) {
	out := make([]*actor.Person, len(records))
	ids := make([]actor.ID, len(records))
	byID := make(map[actor.ID]*actor.Person, len(records))

	for i, rec := range records {
		id := rec.ID
		if id == 0 {
			id = nextID()
		}
		p, err := actor.New(id, actor.Attributes{Sex: rec.Sex, Ethnicity: rec.Ethnicity}, rec.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("codec: record %d: %w", i, err)
		}
		reg.InstallHistories(p)

		if !rec.DateOfDeath.IsZero() {
			if err := p.Die(rec.DateOfDeath); err != nil {
				return nil, fmt.Errorf("codec: record %d: %w", i, err)
			}
		}

		if rec.UnlinkedChildbirths != "" {
			dates, err := DecodeUnlinkedChildbirths(rec.UnlinkedChildbirths)
			if err != nil {
				return nil, fmt.Errorf("codec: record %d: %w", i, err)
			}
			for _, d := range dates {
				if err := p.AddChildBirth(d); err != nil {
					return nil, fmt.Errorf("codec: record %d: %w", i, err)
				}
			}
		}

		for name, lit := range rec.Histories {
			idx, err := reg.VariableIndex(name)
			if err != nil {
				continue // column names an unregistered variable; ignore it
			}
			h := p.History(int(idx))
			if h == nil {
				continue
			}
			if err := DecodeHistory(lit, h); err != nil {
				return nil, fmt.Errorf("codec: record %d variable %q: %w", i, name, err)
			}
		}

		ids[i] = id
		byID[id] = p
		out[i] = p
	}

	for i, rec := range records {
		if rec.MotherID == 0 {
			continue
		}
		mother, ok := byID[rec.MotherID]
		if !ok {
			return nil, fmt.Errorf("%w: record %d references unknown mother id %d", ErrInvalidLiteral, i, rec.MotherID)
		}
		if err := actor.SetParents(out[i], mother, rec.ConceptionDate); err != nil {
			return nil, fmt.Errorf("codec: record %d: %w", i, err)
		}
	}
	return out, nil
}

// EncodePopulation renders every person in pop as a §6.4 column map.
func EncodePopulation(pop []*actor.Person, reg *registry.Registry) ([]map[string]string, error) {
	out := make([]map[string]string, len(pop))
	for i, p := range pop {
		cols, err := EncodePersonRecord(p, reg)
		if err != nil {
			return nil, fmt.Errorf("codec: encoding person %d: %w", p.ID(), err)
		}
		out[i] = cols
	}
	return out, nil
}
