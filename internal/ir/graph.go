package ir

import (
	"errors"
	"sort"

	"github.com/specialistvlad/infergraph/internal/digraph"
	"github.com/specialistvlad/infergraph/internal/gerr"
)

// MergeRecord is the provenance of one fused node.
type MergeRecord struct {
	Fused     string
	Pattern   string
	Originals []string
	// Keep lists the originals whose outputs must stay externally
	// addressable after fusion. Originals not listed may be removed.
	Keep []string
}

// Clone returns a copy of r.
func (r MergeRecord) Clone() MergeRecord {
	return MergeRecord{
		Fused:     r.Fused,
		Pattern:   r.Pattern,
		Originals: append([]string(nil), r.Originals...),
		Keep:      append([]string(nil), r.Keep...),
	}
}

// Graph is the owning DAG of nodes and edges.
type Graph struct {
	name string
	dag  *digraph.Graph[string, *Node, *Edge]

	ins  []string
	outs []string

	merges     []MergeRecord
	registered map[EdgeID]struct{}

	frozen    bool
	optimized bool
	// version is bumped by every committed topology change.
	version uint64
}

// New returns an empty, open graph.
func New(name string) *Graph {
	return &Graph{
		name:       name,
		dag:        digraph.New[string, *Node, *Edge](),
		registered: make(map[EdgeID]struct{}),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// SetName renames the graph.
func (g *Graph) SetName(name string) { g.name = name }

// Version returns the topology version.
func (g *Graph) Version() uint64 { return g.version }

// Frozen reports whether the topology is fixed.
func (g *Graph) Frozen() bool { return g.frozen }

// Optimized reports whether an optimization has been committed.
func (g *Graph) Optimized() bool { return g.optimized }

// Freeze fixes the topology. It is one-way.
func (g *Graph) Freeze() { g.frozen = true }

// MarkOptimized records that an optimization pass completed.
func (g *Graph) MarkOptimized() { g.optimized = true }

// AddNode inserts an empty node of the given type.
func (g *Graph) AddNode(name, opType string) error {
	return g.InsertNode(NewNode(name, opType))
}

// InsertNode inserts a fully described node. The graph takes ownership of n.
func (g *Graph) InsertNode(n *Node) error {
	if g.frozen {
		return gerr.New(gerr.FrozenViolation, "can not add node %q to a frozen graph", n.Name)
	}
	if n.Name == "" {
		return gerr.New(gerr.InvalidGraph, "node name is empty")
	}
	if err := g.dag.AddVertex(n.Name, n); err != nil {
		return gerr.New(gerr.AlreadyExists, "node %q", n.Name)
	}
	return nil
}

// AddEdge connects producer's output slot to consumer's input slot. The
// carried variable is taken from the producer's outputs when the slot is
// known.
func (g *Graph) AddEdge(producer string, fromSlot int, consumer string, toSlot int) error {
	e := &Edge{From: producer, To: consumer, FromSlot: fromSlot, ToSlot: toSlot}
	if n, ok := g.dag.Vertex(producer); ok && fromSlot >= 0 && fromSlot < len(n.Outputs) {
		e.Var = n.Outputs[fromSlot]
	}
	return g.Connect(e)
}

// Connect inserts e. The graph takes ownership of e.
func (g *Graph) Connect(e *Edge) error {
	if g.frozen {
		return gerr.New(gerr.FrozenViolation, "can not add edge %s to a frozen graph", e.ID())
	}
	if e.FromSlot < 0 || e.ToSlot < 0 {
		return gerr.New(gerr.InvalidGraph, "edge %s has a negative slot", e.ID())
	}
	return arcError(g.dag.AddArc(e.From, e.To, e), e.ID())
}

// RemoveNode deletes name and every edge touching it. It refuses to remove a
// node with a registered edge.
func (g *Graph) RemoveNode(name string) error {
	if !g.dag.HasVertex(name) {
		return gerr.New(gerr.NotFound, "node %q", name)
	}
	for _, a := range append(g.dag.InArcs(name), g.dag.OutArcs(name)...) {
		if g.IsRegistered(a.Value.ID()) {
			return gerr.New(gerr.FusionConflict, "node %q carries registered edge %s", name, a.Value.ID())
		}
	}
	_, _ = g.dag.RemoveVertex(name)
	return nil
}

// HasNode reports whether name exists.
func (g *Graph) HasNode(name string) bool { return g.dag.HasVertex(name) }

// Node returns the named node. The pointer is owned by the graph; callers
// mutate it only within the rules of the build phase.
func (g *Graph) Node(name string) (*Node, bool) { return g.dag.Vertex(name) }

// Seq returns the insertion position of a node.
func (g *Graph) Seq(name string) (uint64, bool) { return g.dag.Seq(name) }

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	keys := g.dag.Vertices()
	nodes := make([]*Node, len(keys))
	for i, k := range keys {
		nodes[i], _ = g.dag.Vertex(k)
	}
	return nodes
}

// Vertices returns every node name in insertion order.
func (g *Graph) Vertices() []string { return g.dag.Vertices() }

// Len returns the node count.
func (g *Graph) Len() int { return g.dag.Len() }

// EdgeLen returns the edge count.
func (g *Graph) EdgeLen() int { return g.dag.ArcLen() }

// Edge returns the edge between two nodes.
func (g *Graph) Edge(from, to string) (*Edge, bool) { return g.dag.Arc(from, to) }

// EdgeByID returns the edge with the given identity.
func (g *Graph) EdgeByID(id EdgeID) (*Edge, bool) {
	from, to, ok := id.Endpoints()
	if !ok {
		return nil, false
	}
	return g.dag.Arc(from, to)
}

// Edges returns every edge grouped by producer in insertion order.
func (g *Graph) Edges() []*Edge {
	arcs := g.dag.Arcs()
	edges := make([]*Edge, len(arcs))
	for i, a := range arcs {
		edges[i] = a.Value
	}
	return edges
}

// EdgesCarrying returns the edges that carry variable v.
func (g *Graph) EdgesCarrying(v string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges() {
		if e.Var == v {
			out = append(out, e)
		}
	}
	return out
}

// OutEdges returns the edges leaving name.
func (g *Graph) OutEdges(name string) []*Edge { return arcValues(g.dag.OutArcs(name)) }

// InEdges returns the edges entering name.
func (g *Graph) InEdges(name string) []*Edge { return arcValues(g.dag.InArcs(name)) }

// Successors returns the consumers of name's outputs.
func (g *Graph) Successors(name string) []string { return g.dag.Successors(name) }

// Predecessors returns the producers of name's inputs.
func (g *Graph) Predecessors(name string) []string { return g.dag.Predecessors(name) }

// InDegree returns the number of edges entering name.
func (g *Graph) InDegree(name string) int { return g.dag.InDegree(name) }

// Ins returns the boundary input node names.
func (g *Graph) Ins() []string { return append([]string(nil), g.ins...) }

// Outs returns the boundary output node names.
func (g *Graph) Outs() []string { return append([]string(nil), g.outs...) }

// SetBoundary records the boundary input and output node names.
func (g *Graph) SetBoundary(ins, outs []string) {
	g.ins = append([]string(nil), ins...)
	g.outs = append([]string(nil), outs...)
}

// IsBoundaryOutput reports whether name is a declared output node.
func (g *Graph) IsBoundaryOutput(name string) bool {
	for _, o := range g.outs {
		if o == name {
			return true
		}
	}
	return false
}

// RegisterOutput marks the edge from `from` to `to` as externally
// observable.
func (g *Graph) RegisterOutput(from, to string) error {
	if _, ok := g.dag.Arc(from, to); !ok {
		return gerr.New(gerr.NotFound, "edge %s", ArcID(from, to))
	}
	g.registered[ArcID(from, to)] = struct{}{}
	return nil
}

// RegisterAllOutputs marks every edge as externally observable.
func (g *Graph) RegisterAllOutputs() {
	for _, e := range g.Edges() {
		g.registered[e.ID()] = struct{}{}
	}
}

// IsRegistered reports whether id is a registered output.
func (g *Graph) IsRegistered(id EdgeID) bool {
	_, ok := g.registered[id]
	return ok
}

// Registered returns the registered edge IDs, sorted.
func (g *Graph) Registered() []EdgeID {
	ids := make([]EdgeID, 0, len(g.registered))
	for id := range g.registered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Merges returns the merge records in the order they were committed.
func (g *Graph) Merges() []MergeRecord {
	out := make([]MergeRecord, len(g.merges))
	for i, r := range g.merges {
		out[i] = r.Clone()
	}
	return out
}

// Merge returns the record of a fused node.
func (g *Graph) Merge(fused string) (MergeRecord, bool) {
	for _, r := range g.merges {
		if r.Fused == fused {
			return r.Clone(), true
		}
	}
	return MergeRecord{}, false
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		name:       g.name,
		dag:        g.dag.Clone((*Node).Clone, (*Edge).Clone),
		ins:        append([]string(nil), g.ins...),
		outs:       append([]string(nil), g.outs...),
		merges:     g.Merges(),
		registered: make(map[EdgeID]struct{}, len(g.registered)),
		frozen:     g.frozen,
		optimized:  g.optimized,
		version:    g.version,
	}
	for id := range g.registered {
		c.registered[id] = struct{}{}
	}
	return c
}

func arcValues(arcs []digraph.Arc[string, *Edge]) []*Edge {
	out := make([]*Edge, len(arcs))
	for i, a := range arcs {
		out[i] = a.Value
	}
	return out
}

// arcError maps container errors onto graph error kinds.
func arcError(err error, id EdgeID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, digraph.ErrVertexNotFound):
		return gerr.Wrap(gerr.NotFound, err, "edge %s", id)
	case errors.Is(err, digraph.ErrArcExists):
		return gerr.Wrap(gerr.AlreadyExists, err, "edge %s", id)
	default:
		return gerr.Wrap(gerr.InvalidGraph, err, "edge %s", id)
	}
}
