package graphenv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marikina-frc/floodcore/internal/graphenv"
)

// buildTriangle builds three nodes with a directed edge A->B->C->A, each
// 100m, so weight/risk math has a round number to check against.
func buildTriangle(t *testing.T) *graphenv.Graph {
	t.Helper()
	g := graphenv.New()
	g.AddNode(0, 121.10, 14.65)
	g.AddNode(1, 121.11, 14.65)
	g.AddNode(2, 121.11, 14.66)

	require.NoError(t, g.AddEdge(0, 1, "fwd", 100, "Test Ave", "residential"))
	require.NoError(t, g.AddEdge(1, 2, "fwd", 100, "Test Ave", "residential"))
	require.NoError(t, g.AddEdge(2, 0, "fwd", 100, "Test Ave", "residential"))
	return g
}

func TestAddEdge_RejectsBadLengthAndDuplicates(t *testing.T) {
	g := buildTriangle(t)

	err := g.AddEdge(0, 1, "bad-length", -1, "x", "y")
	assert.ErrorIs(t, err, graphenv.ErrBadLength)

	err = g.AddEdge(0, 1, "fwd", 50, "x", "y")
	assert.ErrorIs(t, err, graphenv.ErrDuplicateKey)

	err = g.AddEdge(0, 99, "fwd2", 50, "x", "y")
	assert.ErrorIs(t, err, graphenv.ErrNodeNotFound)
}

func TestUpdateEdgeRisk_ClampsAndRecomputesWeight(t *testing.T) {
	g := buildTriangle(t)

	require.NoError(t, g.UpdateEdgeRisk(0, 1, "fwd", 0.5))
	e, ok := g.Edge(0, 1, "fwd")
	require.True(t, ok)
	assert.InDelta(t, 0.5, e.RiskScore, 1e-9)
	assert.InDelta(t, 150.0, e.Weight, 1e-9) // 100 * (1 + 1*0.5)

	require.NoError(t, g.UpdateEdgeRisk(0, 1, "fwd", 5))
	e, _ = g.Edge(0, 1, "fwd")
	assert.Equal(t, 1.0, e.RiskScore)

	require.NoError(t, g.UpdateEdgeRisk(0, 1, "fwd", -5))
	e, _ = g.Edge(0, 1, "fwd")
	assert.Equal(t, 0.0, e.RiskScore)
}

func TestWeightNeverBelowLength(t *testing.T) {
	g := buildTriangle(t)
	for _, risk := range []float64{0, 0.1, 0.5, 0.99, 1} {
		require.NoError(t, g.UpdateEdgeRisk(0, 1, "fwd", risk))
		e, _ := g.Edge(0, 1, "fwd")
		assert.GreaterOrEqual(t, e.Weight, e.LengthM)
	}
}

func TestResetRisk_ZeroesEveryEdge(t *testing.T) {
	g := buildTriangle(t)
	for _, e := range g.Edges() {
		require.NoError(t, g.UpdateEdgeRisk(e.From, e.To, e.Key, 0.9))
	}
	g.ResetRisk()
	for _, e := range g.Edges() {
		assert.Equal(t, 0.0, e.RiskScore)
		assert.Equal(t, e.LengthM, e.Weight)
	}
}

func TestEdgesSortedDeterministically(t *testing.T) {
	g := buildTriangle(t)
	edges := g.Edges()
	for i := 1; i < len(edges); i++ {
		prev, cur := edges[i-1], edges[i]
		less := prev.From < cur.From ||
			(prev.From == cur.From && prev.To < cur.To) ||
			(prev.From == cur.From && prev.To == cur.To && prev.Key < cur.Key)
		assert.True(t, less, "edges not sorted: %+v then %+v", prev, cur)
	}
}

func TestOutEdges(t *testing.T) {
	g := buildTriangle(t)
	out := g.OutEdges(0)
	require.Len(t, out, 1)
	assert.Equal(t, graphenv.NodeID(1), out[0].To)
}
