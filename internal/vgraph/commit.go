package vgraph

import (
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// CommitResult describes what a commit changed.
type CommitResult struct {
	// Renamed maps the IDs of rewired base edges to their new IDs, so stores
	// keyed by edge ID can follow.
	Renamed map[ir.EdgeID]ir.EdgeID
	// Added and Removed list node names.
	Added   []string
	Removed []string
	// Merges are the provenance records appended by the commit.
	Merges []ir.MergeRecord
}

// Patch returns the diff the sandbox would apply to the graph it was taken
// from.
func (vg *VirtualGraph) Patch() *ir.Patch {
	p := &ir.Patch{
		BaseVersion: vg.base,
		RemoveEdges: append([]ir.EdgeID(nil), vg.diff.removedEdges...),
		RemoveNodes: append([]string(nil), vg.diff.removedNodes...),
		Renamed:     make(map[ir.EdgeID]ir.EdgeID, len(vg.diff.renamed)),
		Boundary:    make(map[string]string, len(vg.diff.boundary)),
		Supersedes:  append([]string(nil), vg.diff.supersedes...),
	}
	for _, name := range vg.diff.addedOrder {
		n, _ := vg.dag.Vertex(name)
		seq, _ := vg.dag.Seq(name)
		p.AddNodes = append(p.AddNodes, ir.PlacedNode{Node: n, Seq: seq})
	}
	for _, name := range vg.Vertices() {
		if vg.diff.modified[name] {
			n, _ := vg.dag.Vertex(name)
			p.ReplaceNodes = append(p.ReplaceNodes, n)
		}
	}
	for _, e := range vg.Edges() {
		if !vg.diff.baseEdges[e.ID()] {
			p.AddEdges = append(p.AddEdges, e)
		}
	}
	for _, base := range sortedIDs(vg.diff.renamed) {
		p.Renamed[base] = vg.diff.renamed[base]
	}
	for orig, cur := range vg.diff.boundary {
		p.Boundary[orig] = cur
	}
	for _, name := range vg.diff.newMerges {
		p.Merges = append(p.Merges, vg.merges[name].Clone())
	}
	return p
}

// Commit validates the sandbox against g and atomically applies its diff.
// On failure g is untouched and the returned error is a FusionConflict.
// A sandbox can be committed once.
func Commit(g *ir.Graph, vg *VirtualGraph) (*CommitResult, error) {
	if vg.committed {
		return nil, gerr.New(gerr.InvalidGraph, "sandbox already committed")
	}
	if g.Name() != vg.name {
		return nil, gerr.New(gerr.FusionConflict, "sandbox of %q committed to %q", vg.name, g.Name())
	}

	p := vg.Patch()
	if err := g.Apply(p); err != nil {
		if gerr.KindOf(err) == gerr.FusionConflict {
			return nil, err
		}
		return nil, gerr.Wrap(gerr.FusionConflict, err, "commit rejected")
	}
	vg.committed = true

	res := &CommitResult{
		Renamed: p.Renamed,
		Removed: p.RemoveNodes,
		Merges:  p.Merges,
	}
	for _, pn := range p.AddNodes {
		res.Added = append(res.Added, pn.Node.Name)
	}
	return res, nil
}
