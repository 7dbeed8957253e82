package fusion

import (
	"github.com/specialistvlad/infergraph/internal/attr"
	"github.com/specialistvlad/infergraph/internal/calib"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/vgraph"
)

// LayoutAttr is the node attribute that pins the layout of a node's outputs.
const LayoutAttr = "layout"

// Normalize canonicalizes layouts. Node "layout" attributes are rewritten to
// their canonical spelling, and every edge without a known layout gets the
// layout of its producer: the producer's pinned layout, NC for dense and
// softmax producers, NCHW otherwise. It returns the layouts to add; edges
// present in known are never reassigned.
//
// Normalize never adds or removes nodes and a second call with the result
// merged into known returns nothing.
func Normalize(vg *vgraph.VirtualGraph, known map[ir.EdgeID]calib.Layout) (map[ir.EdgeID]calib.Layout, error) {
	pinned := make(map[string]calib.Layout)
	for _, n := range vg.Nodes() {
		raw, err := attr.Get[string](n.Attrs, LayoutAttr)
		if err != nil {
			continue
		}
		l, err := calib.ParseLayout(raw)
		if err != nil {
			return nil, err
		}
		pinned[n.Name] = l
		if raw == l.String() || vg.IsAnchor(n.Name) {
			continue
		}
		c := n.Clone()
		if err := c.Attrs.Set(LayoutAttr, attr.String(l.String())); err != nil {
			return nil, err
		}
		if err := vg.UpdateNode(c); err != nil {
			return nil, err
		}
	}

	out := make(map[ir.EdgeID]calib.Layout)
	for _, e := range vg.Edges() {
		id := e.ID()
		if _, ok := known[id]; ok {
			continue
		}
		if l, ok := pinned[e.From]; ok {
			out[id] = l
			continue
		}
		n, _ := vg.Node(e.From)
		switch n.Type {
		case ir.OpDense, ir.OpSoftmax:
			out[id] = calib.NC
		default:
			out[id] = calib.DefaultLayout
		}
	}
	return out, nil
}
