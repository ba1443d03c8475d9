package feature_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rilwen/microsimulation-sub000/internal/feature"
)

type node struct {
	name     string
	provides feature.Set
	requires feature.Set
}

func (n node) Name() string         { return n.name }
func (n node) Provides() feature.Set { return n.provides }
func (n node) Requires() feature.Set { return n.requires }

func TestTopoSortOrdersProducerBeforeConsumer(t *testing.T) {
	producer := node{name: "mortality", provides: feature.NewSet("alive_flag")}
	consumer := node{name: "conception", requires: feature.NewSet("alive_flag")}

	order, err := feature.TopoSort([]feature.Node{consumer, producer})
	require.NoError(t, err)
	require.Equal(t, []feature.Node{producer, consumer}, order)
}

func TestTopoSortDetectsCycle(t *testing.T) {
	a := node{name: "a", provides: feature.NewSet("x"), requires: feature.NewSet("y")}
	b := node{name: "b", provides: feature.NewSet("y"), requires: feature.NewSet("x")}

	_, err := feature.TopoSort([]feature.Node{a, b})
	require.ErrorIs(t, err, feature.ErrCycle)
}

func TestCheckActiveCoverage(t *testing.T) {
	producer := node{name: "mortality", provides: feature.NewSet("alive_flag")}
	consumer := node{name: "conception", requires: feature.NewSet("alive_flag")}

	require.NoError(t, feature.CheckActiveCoverage([]feature.Node{producer, consumer}, feature.NewSet(), feature.NewSet()))

	orphan := node{name: "orphan", requires: feature.NewSet("missing")}
	err := feature.CheckActiveCoverage([]feature.Node{orphan}, feature.NewSet(), feature.NewSet())
	require.ErrorIs(t, err, feature.ErrUnsatisfied)

	// An ignored (instantaneous) requirement is not considered missing.
	require.NoError(t, feature.CheckActiveCoverage([]feature.Node{orphan}, feature.NewSet("missing"), feature.NewSet()))

	// Externally-provided features also satisfy requirements.
	require.NoError(t, feature.CheckActiveCoverage([]feature.Node{orphan}, feature.NewSet(), feature.NewSet("missing")))
}

func TestCheckActorSubsetConsistency(t *testing.T) {
	producer := node{name: "mortality", provides: feature.NewSet("alive_flag")}
	consumer := node{name: "conception", requires: feature.NewSet("alive_flag")}
	nodes := []feature.Node{producer, consumer}

	selects := func(n feature.Node, actorIsFemale bool) bool {
		if n.Name() == "conception" {
			return actorIsFemale
		}
		return true
	}

	require.NoError(t, feature.CheckActorSubsetConsistency(nodes, selects, []bool{true, false}, feature.NewSet(), feature.NewSet()))
}
