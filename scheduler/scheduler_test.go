package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchesRespectsDependencyOrder(t *testing.T) {
	g := New()
	g.AddEdge("tax", "subtotal")
	g.AddEdge("total", "subtotal")
	g.AddEdge("total", "tax")

	batches, err := g.Batches()
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"subtotal"}, batches[0])
	assert.Equal(t, []string{"tax"}, batches[1])
	assert.Equal(t, []string{"total"}, batches[2])
}

func TestBatchesGroupsIndependentNodes(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddEdge("c", "a")
	g.AddEdge("c", "b")

	batches, err := g.Batches()
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"c"}, batches[1])
}

func TestBatchesDeterministicTieBreak(t *testing.T) {
	g := New()
	g.AddNode("z")
	g.AddNode("a")
	g.AddNode("m")

	batches, err := g.Batches()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"z", "a", "m"}, batches[0])
}

func TestCycleDetection(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	_, err := g.Batches()
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, cycleErr.Paths, "a")
	assert.Contains(t, cycleErr.Paths, "b")
}
