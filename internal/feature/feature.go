// Package feature defines the string tags operators use to declare what
// state they provide and depend on (§4.D), plus the topological ordering and
// consistency checks the scheduler runs over them.
package feature

import (
	"errors"
	"fmt"
	"sort"
)

// Feature is a named piece of simulation state an operator provides or
// requires (e.g. "mortality_status", "conception").
type Feature string

// Set is a feature tag set with convenience operations.
type Set map[Feature]struct{}

// NewSet builds a Set from a slice of tags.
func NewSet(tags ...Feature) Set {
	s := make(Set, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether f is in the set.
func (s Set) Contains(f Feature) bool {
	_, ok := s[f]
	return ok
}

// Union returns the union of s and other, leaving both inputs unmodified.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for f := range s {
		out[f] = struct{}{}
	}
	for f := range other {
		out[f] = struct{}{}
	}
	return out
}

// Minus returns s with every feature in other removed.
func (s Set) Minus(other Set) Set {
	out := make(Set, len(s))
	for f := range s {
		if !other.Contains(f) {
			out[f] = struct{}{}
		}
	}
	return out
}

// Sorted returns the set's members in a deterministic order, for stable
// error messages and logging.
func (s Set) Sorted() []Feature {
	out := make([]Feature, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Node is anything the scheduler can order: an operator (or variable
// producer) that provides and requires feature tags.
type Node interface {
	Name() string
	Provides() Set
	Requires() Set
}

// ErrCycle is a logic error: the provides/requires graph is not a DAG.
var ErrCycle = errors.New("feature: operator dependency graph has a cycle")

// ErrUnsatisfied is a logic error: some active operator's requirement is not
// met by the active set's combined provision.
var ErrUnsatisfied = errors.New("feature: requirement not satisfied by any active operator")

// TopoSort orders nodes so that any node requiring a feature another node
// provides comes after it. Ties are broken by input order for determinism.
func TopoSort(nodes []Node) ([]Node, error) {
	n := len(nodes)
	providedBy := make(map[Feature][]int, n)
	for i, node := range nodes {
		for f := range node.Provides() {
			providedBy[f] = append(providedBy[f], i)
		}
	}

	indegree := make([]int, n)
	edges := make([][]int, n) // edges[i] = nodes that must come after i
	for i, node := range nodes {
		for f := range node.Requires() {
			for _, j := range providedBy[f] {
				if j == i {
					continue
				}
				edges[j] = append(edges[j], i)
				indegree[i]++
			}
		}
	}

	var queue []int
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]Node, 0, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, nodes[i])
		for _, j := range edges[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if len(order) != n {
		return nil, ErrCycle
	}
	return order, nil
}

// CheckActiveCoverage verifies that the combined Provides() of the active
// node subset covers every active node's Requires(), after subtracting
// ignore (typically instantaneous requirements satisfiable within the same
// period) and externallyProvided (features the simulator itself guarantees,
// e.g. "alive" bookkeeping).
func CheckActiveCoverage(active []Node, ignore, externallyProvided Set) error {
	combined := externallyProvided
	for _, node := range active {
		combined = combined.Union(node.Provides())
	}
	for _, node := range active {
		missing := node.Requires().Minus(ignore).Minus(combined)
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s needs %v", ErrUnsatisfied, node.Name(), missing.Sorted())
		}
	}
	return nil
}

// CheckActorSubsetConsistency verifies the per-actor obligation (§4.D.3): for
// every distinct subset of nodes whose out-of-context selector accepts the
// same actor, that subset's combined Provides() must satisfy each member's
// Requires() (after the same ignore/external adjustments). selects maps a
// node to its out-of-context actor test; actors enumerates the representative
// actors to check subsets against.
func CheckActorSubsetConsistency[A any](nodes []Node, selects func(Node, A) bool, actors []A, ignore, externallyProvided Set) error {
	seen := make(map[string]bool)
	for _, a := range actors {
		var subset []Node
		var key string
		for _, node := range nodes {
			if selects(node, a) {
				subset = append(subset, node)
				key += node.Name() + "|"
			}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := CheckActiveCoverage(subset, ignore, externallyProvided); err != nil {
			return err
		}
	}
	return nil
}
