package initialiser

import (
	"errors"
	"sort"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
)

// ErrEmptyReferenceSample is a domain error: bootstrapping needs at least one
// person to sample from.
var ErrEmptyReferenceSample = errors.New("initialiser: reference sample is empty")

// BootstrapUnlinked draws n persons uniformly, with replacement, from
// reference and clones each one without any mother/child links, assigning
// fresh ids (§4.I, "Bootstrapping (unlinked)"). Perturbations run on the
// whole batch of drafts before any of them is materialized.
func BootstrapUnlinked(reference []*actor.Person, n int, reg *registry.Registry, ctx operator.Contexts, perturbations ...Perturbation) ([]*actor.Person, error) {
	if len(reference) == 0 {
		return nil, ErrEmptyReferenceSample
	}
	nbrVars := reg.NbrVariables()
	drafts := make([]draft, n)
	for i := 0; i < n; i++ {
		src := reference[ctx.Mutable.RNG.NextUniformInt(len(reference)-1)]
		drafts[i] = buildDraft(src, nbrVars)
	}
	for _, pert := range perturbations {
		pert.Apply(drafts, ctx)
	}

	clones := make([]*actor.Person, 0, n)
	for _, d := range drafts {
		p, err := materialize(d, ctx.Mutable.GenID(), reg)
		if err != nil {
			return nil, err
		}
		clones = append(clones, p)
	}
	return clones, nil
}

// BootstrapWithLinks samples one seed person uniformly from reference and
// walks its mother/children graph up to maxDepth hops. If the reachable
// family fits within quotaRemaining, the whole family is cloned with fresh
// ids, preserving parent-child links and conception dates; otherwise only the
// seed is cloned (§4.I, "Bootstrapping (with links)"). Perturbations run on
// the cloned batch before linking, so PerturbDateOfBirth{Day,Month} can tell
// a linked draft from an unlinked one.
func BootstrapWithLinks(reference []*actor.Person, quotaRemaining, maxDepth int, reg *registry.Registry, ctx operator.Contexts, perturbations ...Perturbation) ([]*actor.Person, error) {
	if len(reference) == 0 {
		return nil, ErrEmptyReferenceSample
	}
	if quotaRemaining <= 0 {
		return nil, nil
	}
	if maxDepth < 0 {
		maxDepth = 0
	}

	seed := reference[ctx.Mutable.RNG.NextUniformInt(len(reference)-1)]
	family := reachableFamily(seed, maxDepth)
	if len(family) > quotaRemaining {
		family = []*actor.Person{seed}
	}

	indexByID := make(map[actor.ID]int, len(family))
	for i, p := range family {
		indexByID[p.ID()] = i
	}

	nbrVars := reg.NbrVariables()
	drafts := make([]draft, len(family))
	for i, p := range family {
		d := buildDraft(p, nbrVars)
		if m := p.Mother(); m != nil {
			if mi, ok := indexByID[m.ID()]; ok {
				d.motherIdx = mi
				d.conceived = p.ConceptionDate()
			}
		}
		drafts[i] = d
	}

	for _, pert := range perturbations {
		pert.Apply(drafts, ctx)
	}

	clones := make([]*actor.Person, len(drafts))
	for i, d := range drafts {
		p, err := materialize(d, ctx.Mutable.GenID(), reg)
		if err != nil {
			return nil, err
		}
		clones[i] = p
	}
	for i, d := range drafts {
		if d.motherIdx < 0 {
			continue
		}
		if err := actor.SetParents(clones[i], clones[d.motherIdx], d.conceived); err != nil {
			return nil, err
		}
	}
	return clones, nil
}

// reachableFamily walks the mother/children graph from seed breadth-first,
// treating both edges as undirected hops and bounding the walk to maxDepth
// hops from the seed, mirroring the original "walk the link graph up to
// recursion depth D" rule. The result is sorted by id for determinism.
func reachableFamily(seed *actor.Person, maxDepth int) []*actor.Person {
	type queued struct {
		p     *actor.Person
		depth int
	}
	visited := map[actor.ID]*actor.Person{seed.ID(): seed}
	queue := []queued{{seed, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, nb := range neighborsOf(cur.p) {
			if nb == nil {
				continue
			}
			if _, ok := visited[nb.ID()]; ok {
				continue
			}
			visited[nb.ID()] = nb
			queue = append(queue, queued{nb, cur.depth + 1})
		}
	}
	out := make([]*actor.Person, 0, len(visited))
	for _, p := range visited {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func neighborsOf(p *actor.Person) []*actor.Person {
	var out []*actor.Person
	if m := p.Mother(); m != nil {
		out = append(out, m)
	}
	for i := 0; i < p.NbrChildren(); i++ {
		if c, err := p.Child(i); err == nil && c != nil {
			out = append(out, c)
		}
	}
	return out
}
