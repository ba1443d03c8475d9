// Package initialiser builds starting populations for a simulation run
// (§4.I): unlinked bootstrapping from a reference sample, family-preserving
// bootstrapping that walks the mother/children graph, and perturbations
// applied to a batch before it is turned into live Persons.
package initialiser

import (
	"fmt"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
)

// draftHistory is a mutable, pre-construction copy of one history variable's
// recorded (date, value) pairs. Perturbations rewrite dates/values in place;
// materialize replays them onto a real history.History via Append.
type draftHistory struct {
	kind   history.Kind
	dates  []date.Date
	values []history.Value
}

// draft is a mutable, pre-construction copy of a Person: everything a
// perturbation might need to rewrite before the clone is materialized.
// Dates of birth cannot be changed after actor.New, and mother/child links
// cannot be rewired after SetParents, so perturbation and re-linking both
// have to happen on this intermediate representation instead.
type draft struct {
	attribs   actor.Attributes
	dob       date.Date
	histories []*draftHistory // indexed by registry.VarIndex, nil entries for unset variables

	motherIdx int       // index into the sibling drafts slice, or -1 if unlinked
	conceived date.Date // valid only when motherIdx >= 0
}

// buildDraft copies p's attributes, DOB and histories into a draft, dropping
// all links (mother, children, fetuses). nbrVars is the registry's variable
// count, so the draft's histories slice lines up with VarIndex regardless of
// which variables p happens to have populated.
func buildDraft(p *actor.Person, nbrVars int) draft {
	d := draft{
		attribs:   p.Attributes(),
		dob:       p.DateOfBirth(),
		histories: make([]*draftHistory, nbrVars),
		motherIdx: -1,
	}
	for i := 0; i < nbrVars && i < p.NbrHistories(); i++ {
		h := p.History(i)
		if h == nil || h.Empty() {
			continue
		}
		dh := &draftHistory{kind: h.Kind()}
		for j := 0; j < h.Size(); j++ {
			dh.dates = append(dh.dates, h.DateAt(j))
			dh.values = append(dh.values, h.ValueAt(j))
		}
		d.histories[i] = dh
	}
	return d
}

// materialize constructs a live Person from a draft: a fresh id, the
// (possibly perturbed) attributes/DOB, histories installed from the registry
// and replayed from the draft's recorded entries. Mother/child links are not
// set here; callers re-link family clones afterwards via actor.SetParents.
func materialize(d draft, id actor.ID, reg *registry.Registry) (*actor.Person, error) {
	p, err := actor.New(id, d.attribs, d.dob)
	if err != nil {
		return nil, fmt.Errorf("initialiser: materializing clone: %w", err)
	}
	reg.InstallHistories(p)
	for i, dh := range d.histories {
		if dh == nil {
			continue
		}
		h := p.History(i)
		if h == nil {
			continue
		}
		for j, dt := range dh.dates {
			if err := h.Append(dt, dh.values[j]); err != nil {
				return nil, fmt.Errorf("initialiser: replaying history %d for clone %d: %w", i, id, err)
			}
		}
	}
	return p, nil
}
