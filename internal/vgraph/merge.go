package vgraph

import (
	"errors"

	"github.com/specialistvlad/infergraph/internal/attr"
	"github.com/specialistvlad/infergraph/internal/digraph"
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// MergeNodes replaces the nodes in names with one fused node.
//
// The fused node takes the position of names[0]. Its attribute store is the
// union of the members' stores with keys qualified by the member name; a
// member that is itself a fused node contributes its already qualified keys
// unchanged. Edges entering or leaving the set are rewired to the fused
// node, and the provenance record lists the original nodes, flattened
// through any earlier fusion.
//
// The merge fails without changing the sandbox if a member is missing or an
// anchor, if an edge inside the set is registered, if the fused name is
// taken, or if contracting the set would close a cycle.
func (vg *VirtualGraph) MergeNodes(names []string, fusedName, fusedType, pattern string) (*ir.Node, error) {
	if vg.committed {
		return nil, gerr.New(gerr.InvalidGraph, "sandbox already committed")
	}
	if len(names) < 2 {
		return nil, gerr.New(gerr.InvalidGraph, "merge needs at least two nodes, have %d", len(names))
	}
	if vg.taken[fusedName] {
		return nil, gerr.New(gerr.AlreadyExists, "fused node %q", fusedName)
	}

	members := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := vg.dag.Vertex(name); !ok {
			return nil, gerr.New(gerr.NotFound, "merge member %q", name)
		}
		if vg.anchors[name] {
			return nil, gerr.New(gerr.FusionConflict, "merge member %q is outside the snapshot region", name)
		}
		if members[name] {
			return nil, gerr.New(gerr.InvalidGraph, "merge member %q listed twice", name)
		}
		members[name] = true
	}

	var inbound, outbound []*ir.Edge
	for _, name := range names {
		for _, e := range vg.InEdges(name) {
			if members[e.From] {
				if vg.IsRegistered(e.ID()) {
					return nil, gerr.New(gerr.FusionConflict, "merge would consume registered edge %s", e.ID())
				}
				continue
			}
			inbound = append(inbound, e)
		}
		for _, e := range vg.OutEdges(name) {
			if !members[e.To] {
				outbound = append(outbound, e)
			}
		}
	}
	for _, out := range outbound {
		for _, in := range inbound {
			if vg.dag.Reachable(out.To, in.From) {
				return nil, gerr.New(gerr.FusionConflict, "merging %v would create a cycle through %s", names, out.To)
			}
		}
	}

	fused, err := vg.fusedNode(names, inbound, outbound, fusedName, fusedType)
	if err != nil {
		return nil, err
	}
	record := vg.provenance(names, outbound, fusedName, pattern)

	seq, _ := vg.dag.Seq(names[0])
	for _, name := range names {
		vg.removeVertex(name)
	}
	_ = vg.dag.AddVertexAt(fusedName, fused, seq)
	vg.taken[fusedName] = true
	vg.diff.added[fusedName] = true
	vg.diff.addedOrder = append(vg.diff.addedOrder, fusedName)

	for _, e := range inbound {
		ne := &ir.Edge{From: e.From, To: fusedName, FromSlot: e.FromSlot, ToSlot: indexOf(fused.Inputs, e.Var, e.ToSlot), Var: e.Var}
		vg.rewire(e, ne)
	}
	for _, e := range outbound {
		ne := &ir.Edge{From: fusedName, To: e.To, FromSlot: indexOf(fused.Outputs, e.Var, e.FromSlot), ToSlot: e.ToSlot, Var: e.Var}
		vg.rewire(e, ne)
	}

	for _, name := range names {
		if !vg.ins[name] && !vg.outs[name] {
			continue
		}
		for _, set := range []map[string]bool{vg.ins, vg.outs} {
			if set[name] {
				delete(set, name)
				set[fusedName] = true
			}
		}
		vg.redirectBoundary(name, fusedName)
	}
	vg.merges[fusedName] = record
	vg.diff.newMerges = append(vg.diff.newMerges, fusedName)
	vg.pruneRenames()
	return fused, nil
}

// DropNode splices a pass-through node out of the sandbox: its single
// producer is connected straight to each of its consumers, which read the
// producer's variable instead.
func (vg *VirtualGraph) DropNode(name string) error {
	if vg.committed {
		return gerr.New(gerr.InvalidGraph, "sandbox already committed")
	}
	n, ok := vg.dag.Vertex(name)
	if !ok {
		return gerr.New(gerr.NotFound, "node %q", name)
	}
	if vg.anchors[name] {
		return gerr.New(gerr.FusionConflict, "node %q is outside the snapshot region", name)
	}
	if vg.outs[name] {
		return gerr.New(gerr.FusionConflict, "node %q is a declared output", name)
	}
	in := vg.InEdges(name)
	if len(in) != 1 {
		return gerr.New(gerr.InvalidGraph, "node %q has %d inputs, want 1", name, len(in))
	}
	src := in[0]
	if vg.IsRegistered(src.ID()) {
		return gerr.New(gerr.FusionConflict, "drop would consume registered edge %s", src.ID())
	}
	outs := vg.OutEdges(name)
	for _, e := range outs {
		if vg.anchors[e.To] {
			return gerr.New(gerr.FusionConflict, "consumer %q of %q is outside the snapshot region", e.To, name)
		}
		if vg.IsRegistered(e.ID()) {
			return gerr.New(gerr.FusionConflict, "drop would consume registered edge %s", e.ID())
		}
		if _, dup := vg.dag.Arc(src.From, e.To); dup {
			return gerr.New(gerr.FusionConflict, "%q already feeds %q directly", src.From, e.To)
		}
	}

	consumers := make([]*ir.Node, 0, len(outs))
	for _, e := range outs {
		c, _ := vg.dag.Vertex(e.To)
		c = c.Clone()
		for i, v := range c.Inputs {
			if v == e.Var {
				c.Inputs[i] = src.Var
			}
		}
		consumers = append(consumers, c)
	}

	vg.removeVertex(n.Name)
	for i, e := range outs {
		_ = vg.UpdateNode(consumers[i])
		ne := &ir.Edge{From: src.From, To: e.To, FromSlot: src.FromSlot, ToSlot: e.ToSlot, Var: src.Var}
		vg.rewire(e, ne)
	}
	vg.pruneRenames()
	return nil
}

// fusedNode builds the payload of a fused node.
func (vg *VirtualGraph) fusedNode(names []string, inbound, outbound []*ir.Edge, name, typ string) (*ir.Node, error) {
	head, _ := vg.dag.Vertex(names[0])
	fused := ir.NewNode(name, typ)
	fused.Precision = head.Precision

	produced := make(map[string]bool)
	for _, m := range names {
		n, _ := vg.dag.Vertex(m)
		for _, v := range n.Outputs {
			produced[v] = true
		}
	}
	seen := make(map[string]bool)
	for _, m := range names {
		n, _ := vg.dag.Vertex(m)
		for _, v := range n.Inputs {
			if !produced[v] && !seen[v] {
				seen[v] = true
				fused.Inputs = append(fused.Inputs, v)
			}
		}
	}
	for _, e := range inbound {
		if !seen[e.Var] && e.Var != "" {
			seen[e.Var] = true
			fused.Inputs = append(fused.Inputs, e.Var)
		}
	}

	seen = make(map[string]bool)
	for _, e := range outbound {
		if e.Var != "" && !seen[e.Var] {
			seen[e.Var] = true
			fused.Outputs = append(fused.Outputs, e.Var)
		}
	}
	tail, _ := vg.dag.Vertex(names[len(names)-1])
	if len(fused.Outputs) == 0 || vg.outs[tail.Name] {
		for _, v := range tail.Outputs {
			if !seen[v] {
				seen[v] = true
				fused.Outputs = append(fused.Outputs, v)
			}
		}
	}

	for _, m := range names {
		n, _ := vg.dag.Vertex(m)
		if _, wasFused := vg.merges[m]; wasFused {
			if err := mergeFlat(fused.Attrs, n.Attrs); err != nil {
				return nil, err
			}
			continue
		}
		if err := fused.Attrs.MergeQualified(m, n.Attrs); err != nil {
			return nil, err
		}
	}
	return fused, nil
}

// provenance builds the merge record of a fused node and retires the records
// of members that were fused before.
func (vg *VirtualGraph) provenance(names []string, outbound []*ir.Edge, fusedName, pattern string) ir.MergeRecord {
	exposed := make(map[string]bool)
	for _, e := range outbound {
		if vg.IsRegistered(e.ID()) {
			exposed[e.From] = true
		}
	}
	for _, m := range names {
		if vg.outs[m] {
			exposed[m] = true
		}
	}

	record := ir.MergeRecord{Fused: fusedName, Pattern: pattern}
	for _, m := range names {
		prev, wasFused := vg.merges[m]
		if !wasFused {
			record.Originals = append(record.Originals, m)
			if exposed[m] {
				record.Keep = append(record.Keep, m)
			}
			continue
		}
		record.Originals = append(record.Originals, prev.Originals...)
		record.Keep = appendUnique(record.Keep, prev.Keep...)
		if exposed[m] && len(prev.Originals) > 0 {
			record.Keep = appendUnique(record.Keep, prev.Originals[len(prev.Originals)-1])
		}
		delete(vg.merges, m)
		if vg.diff.added[m] {
			vg.diff.newMerges = remove(vg.diff.newMerges, m)
		} else {
			vg.diff.supersedes = append(vg.diff.supersedes, m)
		}
	}
	return record
}

// removeVertex deletes a node and its edges from the sandbox and records the
// removal of whatever existed in the base graph.
func (vg *VirtualGraph) removeVertex(name string) {
	arcs, err := vg.dag.RemoveVertex(name)
	if err != nil {
		return
	}
	for _, a := range arcs {
		vg.dropEdge(a)
	}
	if vg.diff.added[name] {
		delete(vg.diff.added, name)
		vg.diff.addedOrder = remove(vg.diff.addedOrder, name)
	} else {
		vg.diff.removedNodes = append(vg.diff.removedNodes, name)
		delete(vg.diff.modified, name)
	}
}

// dropEdge records that an edge left the sandbox.
func (vg *VirtualGraph) dropEdge(a digraph.Arc[string, *ir.Edge]) {
	id := ir.ArcID(a.From, a.To)
	if vg.diff.baseEdges[id] {
		vg.diff.removedEdges = append(vg.diff.removedEdges, id)
		delete(vg.diff.baseEdges, id)
	}
}

// pruneRenames forgets rewired edges that a later rewrite consumed.
func (vg *VirtualGraph) pruneRenames() {
	for id, base := range vg.diff.origin {
		from, to, _ := id.Endpoints()
		if _, ok := vg.dag.Arc(from, to); ok {
			continue
		}
		delete(vg.diff.origin, id)
		if vg.diff.renamed[base] == id {
			delete(vg.diff.renamed, base)
		}
	}
}

// rewire replaces a removed edge with its replacement and carries the
// registration and the rename chain across. Two removed edges from the same
// producer collapse onto one replacement arc.
func (vg *VirtualGraph) rewire(old, replacement *ir.Edge) {
	oldID, newID := old.ID(), replacement.ID()
	err := vg.dag.AddArc(replacement.From, replacement.To, replacement)
	if err != nil && !errors.Is(err, digraph.ErrArcExists) {
		return
	}

	base := oldID
	if b, ok := vg.diff.origin[oldID]; ok {
		base = b
		delete(vg.diff.origin, oldID)
	}
	if err == nil {
		vg.diff.origin[newID] = base
	}
	vg.diff.renamed[base] = newID

	if _, ok := vg.registered[oldID]; ok {
		delete(vg.registered, oldID)
		vg.registered[newID] = struct{}{}
	}
}

func (vg *VirtualGraph) redirectBoundary(from, to string) {
	redirected := false
	for orig, cur := range vg.diff.boundary {
		if cur == from {
			vg.diff.boundary[orig] = to
			redirected = true
		}
	}
	if !redirected {
		vg.diff.boundary[from] = to
	}
}

func mergeFlat(dst, src *attr.Store) error {
	for _, k := range src.Keys() {
		v, _ := src.Lookup(k)
		if dst.Has(k) {
			return gerr.New(gerr.AlreadyExists, "attribute %q", k)
		}
		if err := dst.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func indexOf(vars []string, v string, fallback int) int {
	for i, x := range vars {
		if x == v {
			return i
		}
	}
	return fallback
}

func appendUnique(dst []string, vs ...string) []string {
	for _, v := range vs {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
