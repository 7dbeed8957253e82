// Package vgraph provides the detached sandbox that optimization passes
// rewrite before anything touches the real graph.
//
// # Why Virtual Graph Exists
//
// Fusion rewrites many nodes in one pass and must be all-or-nothing. Doing
// the rewrite in place would make a half-finished graph observable, and any
// failure halfway through would need an undo log. Instead:
//   - **Snapshot** copies the topology (and node payloads, never tensor data)
//     of the whole graph or of a region of it.
//   - **MergeNodes / DropNode** mutate only the copy and record a diff.
//   - **Commit** turns the diff into an ir.Patch and lets the graph apply it
//     atomically. If validation fails the graph is untouched.
//
// Nodes outside a requested region but adjacent to it are copied as anchors:
// they are visible so edges into and out of the region have both endpoints,
// but they can not be merged or dropped.
package vgraph

import (
	"sort"
	"strconv"

	"github.com/specialistvlad/infergraph/internal/digraph"
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// VirtualGraph is a detached, mutable copy of (part of) an ir.Graph.
type VirtualGraph struct {
	name string
	base uint64
	dag  *digraph.Graph[string, *ir.Node, *ir.Edge]

	anchors    map[string]bool
	taken      map[string]bool
	registered map[ir.EdgeID]struct{}
	ins        map[string]bool
	outs       map[string]bool

	// merges holds the records of fused nodes known to the sandbox, both
	// committed ones copied from the graph and ones created here.
	merges map[string]ir.MergeRecord

	diff      diff
	committed bool
}

type diff struct {
	baseEdges    map[ir.EdgeID]bool
	removedEdges []ir.EdgeID
	removedNodes []string
	added        map[string]bool
	addedOrder   []string
	modified     map[string]bool

	// origin maps the current ID of a rewired edge back to the base edge it
	// replaces; renamed is its inverse.
	origin  map[ir.EdgeID]ir.EdgeID
	renamed map[ir.EdgeID]ir.EdgeID

	boundary   map[string]string
	supersedes []string
	newMerges  []string
}

// Snapshot copies region of g into a new VirtualGraph. A nil region copies
// the whole graph. Every name in region must exist.
func Snapshot(g *ir.Graph, region []string) (*VirtualGraph, error) {
	vg := &VirtualGraph{
		name:       g.Name(),
		base:       g.Version(),
		dag:        digraph.New[string, *ir.Node, *ir.Edge](),
		anchors:    make(map[string]bool),
		taken:      make(map[string]bool, g.Len()),
		registered: make(map[ir.EdgeID]struct{}),
		ins:        make(map[string]bool),
		outs:       make(map[string]bool),
		merges:     make(map[string]ir.MergeRecord),
		diff: diff{
			baseEdges: make(map[ir.EdgeID]bool),
			added:     make(map[string]bool),
			modified:  make(map[string]bool),
			origin:    make(map[ir.EdgeID]ir.EdgeID),
			renamed:   make(map[ir.EdgeID]ir.EdgeID),
			boundary:  make(map[string]string),
		},
	}
	for _, name := range g.Vertices() {
		vg.taken[name] = true
	}

	include := make(map[string]bool)
	if region == nil {
		for _, name := range g.Vertices() {
			include[name] = true
		}
	} else {
		for _, name := range region {
			if !g.HasNode(name) {
				return nil, gerr.New(gerr.NotFound, "snapshot region node %q", name)
			}
			include[name] = true
		}
		for _, name := range region {
			for _, n := range append(g.Predecessors(name), g.Successors(name)...) {
				if !include[n] {
					vg.anchors[n] = true
				}
			}
		}
		for n := range vg.anchors {
			include[n] = true
		}
	}

	for _, name := range g.Vertices() {
		if !include[name] {
			continue
		}
		n, _ := g.Node(name)
		seq, _ := g.Seq(name)
		_ = vg.dag.AddVertexAt(name, n.Clone(), seq)
	}
	for _, e := range g.Edges() {
		if !include[e.From] || !include[e.To] {
			continue
		}
		if vg.anchors[e.From] && vg.anchors[e.To] {
			continue
		}
		_ = vg.dag.AddArc(e.From, e.To, e.Clone())
		vg.diff.baseEdges[e.ID()] = true
	}
	for _, id := range g.Registered() {
		vg.registered[id] = struct{}{}
	}
	for _, i := range g.Ins() {
		vg.ins[i] = true
	}
	for _, o := range g.Outs() {
		vg.outs[o] = true
	}
	for _, r := range g.Merges() {
		vg.merges[r.Fused] = r
	}
	return vg, nil
}

// Name returns the name of the graph the snapshot was taken from.
func (vg *VirtualGraph) Name() string { return vg.name }

// BaseVersion returns the graph version the snapshot was taken at.
func (vg *VirtualGraph) BaseVersion() uint64 { return vg.base }

// Changed reports whether the sandbox holds uncommitted changes.
func (vg *VirtualGraph) Changed() bool {
	return len(vg.diff.removedEdges) > 0 || len(vg.diff.removedNodes) > 0 ||
		len(vg.diff.addedOrder) > 0 || len(vg.diff.modified) > 0
}

// Len returns the number of nodes in the sandbox, anchors included.
func (vg *VirtualGraph) Len() int { return vg.dag.Len() }

// Vertices returns the node names in insertion order.
func (vg *VirtualGraph) Vertices() []string { return vg.dag.Vertices() }

// Nodes returns the nodes in insertion order.
func (vg *VirtualGraph) Nodes() []*ir.Node {
	keys := vg.dag.Vertices()
	out := make([]*ir.Node, len(keys))
	for i, k := range keys {
		out[i], _ = vg.dag.Vertex(k)
	}
	return out
}

// Node returns the sandbox copy of a node.
func (vg *VirtualGraph) Node(name string) (*ir.Node, bool) { return vg.dag.Vertex(name) }

// Successors returns the consumers of name.
func (vg *VirtualGraph) Successors(name string) []string { return vg.dag.Successors(name) }

// Predecessors returns the producers feeding name.
func (vg *VirtualGraph) Predecessors(name string) []string { return vg.dag.Predecessors(name) }

// InDegree returns the number of edges entering name.
func (vg *VirtualGraph) InDegree(name string) int { return vg.dag.InDegree(name) }

// OutEdges returns the edges leaving name.
func (vg *VirtualGraph) OutEdges(name string) []*ir.Edge { return values(vg.dag.OutArcs(name)) }

// InEdges returns the edges entering name.
func (vg *VirtualGraph) InEdges(name string) []*ir.Edge { return values(vg.dag.InArcs(name)) }

// Edges returns every edge grouped by producer.
func (vg *VirtualGraph) Edges() []*ir.Edge { return values(vg.dag.Arcs()) }

// Edge returns the edge between two nodes.
func (vg *VirtualGraph) Edge(from, to string) (*ir.Edge, bool) { return vg.dag.Arc(from, to) }

// IsAnchor reports whether name is a read-only neighbour of the region.
func (vg *VirtualGraph) IsAnchor(name string) bool { return vg.anchors[name] }

// IsRegistered reports whether the edge with the given current ID is a
// registered output.
func (vg *VirtualGraph) IsRegistered(id ir.EdgeID) bool {
	_, ok := vg.registered[id]
	return ok
}

// IsBoundaryOutput reports whether name is a declared graph output.
func (vg *VirtualGraph) IsBoundaryOutput(name string) bool { return vg.outs[name] }

// Merge returns the provenance record of a fused node.
func (vg *VirtualGraph) Merge(fused string) (ir.MergeRecord, bool) {
	r, ok := vg.merges[fused]
	return r, ok
}

// UniqueName returns base if no node in the graph or the sandbox uses it,
// otherwise the first free "base_N".
func (vg *VirtualGraph) UniqueName(base string) string {
	if !vg.taken[base] {
		return base
	}
	for i := 1; ; i++ {
		name := base + "_" + strconv.Itoa(i)
		if !vg.taken[name] {
			return name
		}
	}
}

// UpdateNode replaces the payload of an existing node. Only attributes,
// precision and the variable lists may change; topology is untouched.
func (vg *VirtualGraph) UpdateNode(n *ir.Node) error {
	if _, ok := vg.dag.Vertex(n.Name); !ok {
		return gerr.New(gerr.NotFound, "node %q", n.Name)
	}
	if vg.anchors[n.Name] {
		return gerr.New(gerr.FusionConflict, "node %q is outside the snapshot region", n.Name)
	}
	_ = vg.dag.SetVertex(n.Name, n)
	if !vg.diff.added[n.Name] {
		vg.diff.modified[n.Name] = true
	}
	return nil
}

func values(arcs []digraph.Arc[string, *ir.Edge]) []*ir.Edge {
	out := make([]*ir.Edge, len(arcs))
	for i, a := range arcs {
		out[i] = a.Value
	}
	return out
}

func sortedIDs(m map[ir.EdgeID]ir.EdgeID) []ir.EdgeID {
	ids := make([]ir.EdgeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
