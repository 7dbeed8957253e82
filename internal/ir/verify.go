package ir

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/specialistvlad/infergraph/internal/gerr"
)

// Verify checks the structural invariants of g: edge payloads agree with
// their endpoints, registered edges, boundary nodes and fused nodes exist,
// and the graph is acyclic. Acyclicity is checked with gonum's topological
// sort, independently of the container's own bookkeeping.
func (g *Graph) Verify() error {
	for _, a := range g.dag.Arcs() {
		if a.Value == nil || a.Value.From != a.From || a.Value.To != a.To {
			return gerr.New(gerr.InvalidGraph, "edge payload disagrees with arc %s", ArcID(a.From, a.To))
		}
	}
	for id := range g.registered {
		if _, ok := g.EdgeByID(id); !ok {
			return gerr.New(gerr.InvalidGraph, "registered edge %s does not exist", id)
		}
	}
	for _, names := range [][]string{g.ins, g.outs} {
		for _, n := range names {
			if !g.HasNode(n) {
				return gerr.New(gerr.InvalidGraph, "boundary node %q does not exist", n)
			}
		}
	}
	for _, r := range g.merges {
		if !g.HasNode(r.Fused) {
			return gerr.New(gerr.InvalidGraph, "fused node %q does not exist", r.Fused)
		}
	}

	keys := g.dag.Vertices()
	ids := make(map[string]int64, len(keys))
	dg := simple.NewDirectedGraph()
	for i, k := range keys {
		ids[k] = int64(i)
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, a := range g.dag.Arcs() {
		dg.SetEdge(dg.NewEdge(simple.Node(ids[a.From]), simple.Node(ids[a.To])))
	}
	if _, err := topo.Sort(dg); err != nil {
		return gerr.Wrap(gerr.InvalidGraph, err, "graph %q is cyclic", g.name)
	}
	return nil
}
