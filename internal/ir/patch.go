package ir

import (
	"fmt"

	"github.com/specialistvlad/infergraph/internal/gerr"
)

// Patch is a topology diff computed on a detached copy of a Graph. Apply
// lands it as a whole or not at all.
type Patch struct {
	// BaseVersion is the graph version the diff was computed against.
	BaseVersion uint64

	RemoveEdges []EdgeID
	RemoveNodes []string
	AddNodes    []PlacedNode
	AddEdges    []*Edge
	// ReplaceNodes swaps the payload of surviving nodes, for attribute-only
	// rewrites.
	ReplaceNodes []*Node

	// Renamed maps registered edges that were rewired to their new IDs.
	Renamed map[EdgeID]EdgeID
	// Boundary maps boundary node names that were absorbed to their
	// replacement.
	Boundary map[string]string

	// Supersedes lists fused nodes whose merge records are replaced by the
	// flattened records in Merges.
	Supersedes []string
	Merges     []MergeRecord
}

// PlacedNode is a node with an explicit position in the insertion order.
type PlacedNode struct {
	Node *Node
	Seq  uint64
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return len(p.RemoveEdges) == 0 && len(p.RemoveNodes) == 0 &&
		len(p.AddNodes) == 0 && len(p.AddEdges) == 0 &&
		len(p.ReplaceNodes) == 0 && len(p.Merges) == 0
}

// Apply validates p against g and swaps the result in. On error g is left
// untouched. A patch that validates but yields a graph failing Verify is a
// bug in the code that computed it, and Apply panics.
func (g *Graph) Apply(p *Patch) error {
	if p.BaseVersion != g.version {
		return gerr.New(gerr.FusionConflict, "graph changed since snapshot (base %d, current %d)", p.BaseVersion, g.version)
	}
	for _, id := range p.RemoveEdges {
		if !g.IsRegistered(id) {
			continue
		}
		if _, ok := p.Renamed[id]; !ok {
			return gerr.New(gerr.FusionConflict, "patch removes registered edge %s", id)
		}
	}
	if p.Empty() {
		return nil
	}

	next := g.Clone()
	if err := next.applyTopology(p); err != nil {
		return err
	}

	for oldID, newID := range p.Renamed {
		if _, ok := next.registered[oldID]; !ok {
			continue
		}
		delete(next.registered, oldID)
		next.registered[newID] = struct{}{}
	}
	next.ins = renameAll(next.ins, p.Boundary)
	next.outs = renameAll(next.outs, p.Boundary)

	if len(p.Supersedes) > 0 {
		gone := make(map[string]bool, len(p.Supersedes))
		for _, s := range p.Supersedes {
			gone[s] = true
		}
		kept := next.merges[:0]
		for _, r := range next.merges {
			if !gone[r.Fused] {
				kept = append(kept, r)
			}
		}
		next.merges = kept
	}
	for _, r := range p.Merges {
		next.merges = append(next.merges, r.Clone())
	}
	next.version++

	if err := next.Verify(); err != nil {
		panic(fmt.Sprintf("ir: committed graph %q violates invariants: %v", g.name, err))
	}
	*g = *next
	return nil
}

func (g *Graph) applyTopology(p *Patch) error {
	for _, id := range p.RemoveEdges {
		from, to, ok := id.Endpoints()
		if !ok {
			return gerr.New(gerr.InvalidGraph, "patch removes synthetic edge %s", id)
		}
		if _, err := g.dag.RemoveArc(from, to); err != nil {
			return gerr.Wrap(gerr.NotFound, err, "patch removes edge %s", id)
		}
	}
	for _, name := range p.RemoveNodes {
		if !g.dag.HasVertex(name) {
			return gerr.New(gerr.NotFound, "patch removes node %q", name)
		}
		if g.dag.InDegree(name)+g.dag.OutDegree(name) > 0 {
			return gerr.New(gerr.InvalidGraph, "patch removes node %q but leaves its edges", name)
		}
		_, _ = g.dag.RemoveVertex(name)
	}
	for _, pn := range p.AddNodes {
		if err := g.dag.AddVertexAt(pn.Node.Name, pn.Node.Clone(), pn.Seq); err != nil {
			return gerr.Wrap(gerr.AlreadyExists, err, "patch adds node %q", pn.Node.Name)
		}
	}
	for _, n := range p.ReplaceNodes {
		if err := g.dag.SetVertex(n.Name, n.Clone()); err != nil {
			return gerr.Wrap(gerr.NotFound, err, "patch replaces node %q", n.Name)
		}
	}
	for _, e := range p.AddEdges {
		if err := arcError(g.dag.AddArc(e.From, e.To, e.Clone()), e.ID()); err != nil {
			return err
		}
	}
	return nil
}

func renameAll(names []string, m map[string]string) []string {
	if len(m) == 0 {
		return names
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if r, ok := m[n]; ok {
			n = r
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
