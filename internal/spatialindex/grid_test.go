package spatialindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marikina-frc/floodcore/internal/graphenv"
	"github.com/marikina-frc/floodcore/internal/spatialindex"
)

func buildGraph(t *testing.T) *graphenv.Graph {
	t.Helper()
	g := graphenv.New()
	g.AddNode(0, 121.1029, 14.6507) // reference point
	g.AddNode(1, 121.1009, 14.6507) // ~200m west
	g.AddNode(2, 121.1500, 14.7000) // far away
	require.NoError(t, g.AddEdge(0, 1, "a", 10, "x", "y"))
	require.NoError(t, g.AddEdge(1, 2, "a", 10, "x", "y"))
	return g
}

func TestNearestNode_FindsClosestWithinCap(t *testing.T) {
	g := buildGraph(t)
	idx := spatialindex.New(g, 0)

	id, ok := idx.NearestNode(14.6507, 121.1028, 500)
	require.True(t, ok)
	assert.Equal(t, graphenv.NodeID(0), id)
}

func TestNearestNode_NoneWithinCap(t *testing.T) {
	g := buildGraph(t)
	idx := spatialindex.New(g, 0)

	_, ok := idx.NearestNode(0, 0, 100)
	assert.False(t, ok)
}

func TestNodesWithinRadius(t *testing.T) {
	g := buildGraph(t)
	idx := spatialindex.New(g, 0)

	hits := idx.NodesWithinRadius(14.6507, 121.1029, 800)
	assert.Contains(t, hits, graphenv.NodeID(0))
	assert.Contains(t, hits, graphenv.NodeID(1))
	assert.NotContains(t, hits, graphenv.NodeID(2))
}
