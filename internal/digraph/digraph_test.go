package digraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGraph = Graph[string, int, string]

func newTestGraph(t *testing.T, keys ...string) *testGraph {
	t.Helper()
	g := New[string, int, string]()
	for i, k := range keys {
		require.NoError(t, g.AddVertex(k, i))
	}
	return g
}

func TestNew(t *testing.T) {
	g := New[string, int, string]()
	require.NotNil(t, g)
	assert.NotNil(t, g.vertices)
	assert.Zero(t, g.Len())
	assert.Zero(t, g.ArcLen())
}

func TestAddVertex(t *testing.T) {
	g := newTestGraph(t, "a")
	assert.Equal(t, 1, g.Len())

	err := g.AddVertex("a", 5)
	assert.ErrorIs(t, err, ErrVertexExists)

	val, ok := g.Vertex("a")
	require.True(t, ok)
	assert.Equal(t, 0, val, "duplicate add must not replace the payload")

	require.NoError(t, g.SetVertex("a", 9))
	val, _ = g.Vertex("a")
	assert.Equal(t, 9, val)
	assert.ErrorIs(t, g.SetVertex("dne", 1), ErrVertexNotFound)
}

func TestVerticesKeepInsertionOrder(t *testing.T) {
	g := newTestGraph(t, "c", "a", "b")
	assert.Equal(t, []string{"c", "a", "b"}, g.Vertices())

	_, err := g.RemoveVertex("a")
	require.NoError(t, err)
	require.NoError(t, g.AddVertexAt("z", 0, 1))
	assert.Equal(t, []string{"c", "z", "b"}, g.Vertices())

	require.NoError(t, g.AddVertex("tail", 0))
	assert.Equal(t, []string{"c", "z", "b", "tail"}, g.Vertices())
}

func TestAddArc(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := newTestGraph(t, "a", "b")

		require.NoError(t, g.AddArc("a", "b", "t0")) // b depends on a

		assert.Equal(t, []string{"b"}, g.Successors("a"))
		assert.Equal(t, []string{"a"}, g.Predecessors("b"))
		val, ok := g.Arc("a", "b")
		require.True(t, ok)
		assert.Equal(t, "t0", val)
		assert.Equal(t, 1, g.ArcLen())
	})

	t.Run("error cases", func(t *testing.T) {
		g := newTestGraph(t, "a", "b", "c")
		require.NoError(t, g.AddArc("a", "b", ""))
		require.NoError(t, g.AddArc("b", "c", ""))

		assert.ErrorIs(t, g.AddArc("dne", "a", ""), ErrVertexNotFound)
		assert.ErrorIs(t, g.AddArc("a", "dne", ""), ErrVertexNotFound)
		assert.ErrorIs(t, g.AddArc("a", "a", ""), ErrSelfLoop)
		assert.ErrorIs(t, g.AddArc("a", "b", ""), ErrArcExists)
		assert.ErrorIs(t, g.AddArc("c", "a", ""), ErrCycle)
		assert.Equal(t, 2, g.ArcLen())
	})
}

func TestRemoveArc(t *testing.T) {
	g := newTestGraph(t, "a", "b")
	require.NoError(t, g.AddArc("a", "b", "x"))

	val, err := g.RemoveArc("a", "b")
	require.NoError(t, err)
	assert.Equal(t, "x", val)
	assert.Empty(t, g.Successors("a"))
	assert.Empty(t, g.Predecessors("b"))

	_, err = g.RemoveArc("a", "b")
	assert.ErrorIs(t, err, ErrArcNotFound)
}

func TestRemoveVertex(t *testing.T) {
	g := newTestGraph(t, "a", "b", "c")
	require.NoError(t, g.AddArc("a", "b", "ab"))
	require.NoError(t, g.AddArc("b", "c", "bc"))

	removed, err := g.RemoveVertex("b")
	require.NoError(t, err)
	assert.Equal(t, []Arc[string, string]{
		{From: "a", To: "b", Value: "ab"},
		{From: "b", To: "c", Value: "bc"},
	}, removed)
	assert.False(t, g.HasVertex("b"))
	assert.Empty(t, g.Successors("a"))
	assert.Empty(t, g.Predecessors("c"))
	assert.Zero(t, g.ArcLen())

	_, err = g.RemoveVertex("b")
	assert.ErrorIs(t, err, ErrVertexNotFound)
}

func TestArcsAreOrdered(t *testing.T) {
	g := newTestGraph(t, "a", "b", "c", "d")
	require.NoError(t, g.AddArc("a", "c", "ac"))
	require.NoError(t, g.AddArc("a", "b", "ab"))
	require.NoError(t, g.AddArc("b", "d", "bd"))
	require.NoError(t, g.AddArc("c", "d", "cd"))

	var got []string
	for _, arc := range g.Arcs() {
		got = append(got, arc.Value)
	}
	assert.Equal(t, []string{"ac", "ab", "bd", "cd"}, got)
	assert.Equal(t, 2, g.InDegree("d"))
	assert.Equal(t, 2, g.OutDegree("a"))
	assert.Equal(t, []Arc[string, string]{{From: "b", To: "d", Value: "bd"}, {From: "c", To: "d", Value: "cd"}}, g.InArcs("d"))
}

func TestReachable(t *testing.T) {
	g := newTestGraph(t, "a", "b", "c", "x")
	require.NoError(t, g.AddArc("a", "b", ""))
	require.NoError(t, g.AddArc("b", "c", ""))

	assert.True(t, g.Reachable("a", "c"))
	assert.True(t, g.Reachable("a", "a"))
	assert.False(t, g.Reachable("c", "a"))
	assert.False(t, g.Reachable("a", "x"))
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		g := New[string, int, string]()
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("diamond has no cycles", func(t *testing.T) {
		g := newTestGraph(t, "a", "b", "c", "d")
		require.NoError(t, g.AddArc("a", "b", ""))
		require.NoError(t, g.AddArc("a", "c", ""))
		require.NoError(t, g.AddArc("b", "d", ""))
		require.NoError(t, g.AddArc("c", "d", ""))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("cycle injected behind the API is reported", func(t *testing.T) {
		g := newTestGraph(t, "a", "b")
		require.NoError(t, g.AddArc("a", "b", ""))
		// Bypass AddArc to simulate a corrupted graph.
		g.vertices["b"].out = append(g.vertices["b"].out, "a")
		g.vertices["b"].outArcs["a"] = ""
		g.vertices["a"].in = append(g.vertices["a"].in, "b")

		assert.ErrorIs(t, g.DetectCycles(), ErrCycle)
	})
}

func TestCloneIsIndependent(t *testing.T) {
	g := newTestGraph(t, "a", "b")
	require.NoError(t, g.AddArc("a", "b", "ab"))

	c := g.Clone(func(v int) int { return v * 10 }, nil)
	require.NoError(t, c.AddVertex("c", 0))
	require.NoError(t, c.AddArc("b", "c", "bc"))
	_, err := c.RemoveArc("a", "b")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, g.Vertices())
	assert.Equal(t, []string{"b"}, g.Successors("a"))
	assert.Empty(t, g.Successors("b"))

	val, _ := c.Vertex("b")
	assert.Equal(t, 10, val)
	seq, ok := c.Seq("c")
	require.True(t, ok)
	assert.Equal(t, uint64(2), seq)
}
