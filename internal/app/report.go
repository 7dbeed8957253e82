package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/infergraph/internal/fusion"
	"github.com/specialistvlad/infergraph/internal/graph"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// Report is what the compile run hands to an execution engine.
type Report struct {
	Graph      string         `json:"graph"`
	State      string         `json:"state"`
	Target     string         `json:"target"`
	RunID      string         `json:"run_id"`
	Fusion     bool           `json:"fusion"`
	Iterations int            `json:"iterations"`
	Fused      int            `json:"fused"`
	Dropped    int            `json:"dropped"`
	Rejected   int            `json:"rejected"`
	Inputs     []string       `json:"inputs"`
	Outputs    []string       `json:"outputs"`
	Order      []NodeReport   `json:"order"`
	Merges     []MergeReport  `json:"merges,omitempty"`
	Scales     []ScaleReport  `json:"scales,omitempty"`
	Layouts    []LayoutReport `json:"layouts,omitempty"`
	Blocks     []string       `json:"blocks,omitempty"`
}

// NodeReport is one entry of the execution order.
type NodeReport struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Precision string   `json:"precision"`
	Inputs    []string `json:"inputs,omitempty"`
	Outputs   []string `json:"outputs,omitempty"`
}

// MergeReport is the provenance of a fused node.
type MergeReport struct {
	Fused     string   `json:"fused"`
	Pattern   string   `json:"pattern"`
	Originals []string `json:"originals"`
}

// ScaleReport is the quantization scale of an edge.
type ScaleReport struct {
	Edge   string    `json:"edge"`
	Values []float32 `json:"values"`
	Bias   bool      `json:"bias,omitempty"`
}

// LayoutReport is the memory layout of an edge.
type LayoutReport struct {
	Edge   string `json:"edge"`
	Layout string `json:"layout"`
}

func newReport(m *graph.Manager, nodes []*ir.Node, stats fusion.Stats, cfg *Config) *Report {
	rep := &Report{
		Graph:      m.Name(),
		State:      m.State().String(),
		Target:     cfg.Target,
		RunID:      stats.RunID,
		Fusion:     !cfg.NoFusion,
		Iterations: stats.Iterations,
		Fused:      stats.Fused,
		Dropped:    stats.Dropped,
		Rejected:   stats.Rejected,
		Inputs:     m.Ins(),
		Outputs:    m.Outs(),
		Order:      make([]NodeReport, len(nodes)),
		Blocks:     m.Blocks(),
	}
	for i, n := range nodes {
		rep.Order[i] = NodeReport{
			Name:      n.Name,
			Type:      n.Type,
			Precision: string(n.Precision),
			Inputs:    n.Inputs,
			Outputs:   n.Outputs,
		}
	}
	for _, r := range m.Merges() {
		rep.Merges = append(rep.Merges, MergeReport{Fused: r.Fused, Pattern: r.Pattern, Originals: r.Originals})
	}

	scales := m.ScaleMap()
	for _, id := range sortedIDs(scales) {
		s := scales[id]
		rep.Scales = append(rep.Scales, ScaleReport{Edge: string(id), Values: s.Values, Bias: s.IsBias})
	}
	layouts := m.LayoutMap()
	for _, id := range sortedIDs(layouts) {
		rep.Layouts = append(rep.Layouts, LayoutReport{Edge: string(id), Layout: layouts[id].String()})
	}
	return rep
}

func sortedIDs[V any](m map[ir.EdgeID]V) []ir.EdgeID {
	ids := make([]ir.EdgeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Report) write(w io.Writer, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return r.writeText(w)
}

func (r *Report) writeText(w io.Writer) error {
	fmt.Fprintf(w, "graph %s (%s, target %s, run %s)\n", r.Graph, r.State, r.Target, r.RunID)
	if r.Fusion {
		fmt.Fprintf(w, "fusion: %d fused, %d dropped, %d rejected in %d iterations\n", r.Fused, r.Dropped, r.Rejected, r.Iterations)
	} else {
		fmt.Fprintln(w, "fusion: disabled")
	}
	fmt.Fprintf(w, "inputs: %s\noutputs: %s\n", strings.Join(r.Inputs, ", "), strings.Join(r.Outputs, ", "))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "order:")
	for i, n := range r.Order {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", i+1, n.Name, n.Type, n.Precision)
	}
	if len(r.Merges) > 0 {
		fmt.Fprintln(tw, "merges:")
		for _, mr := range r.Merges {
			fmt.Fprintf(tw, "  %s\t<- %s\n", mr.Fused, strings.Join(mr.Originals, ", "))
		}
	}
	if len(r.Scales) > 0 {
		fmt.Fprintln(tw, "scales:")
		for _, s := range r.Scales {
			fmt.Fprintf(tw, "  %s\t%v\n", s.Edge, s.Values)
		}
	}
	if len(r.Layouts) > 0 {
		fmt.Fprintln(tw, "layouts:")
		for _, l := range r.Layouts {
			fmt.Fprintf(tw, "  %s\t%s\n", l.Edge, l.Layout)
		}
	}
	if len(r.Blocks) > 0 {
		fmt.Fprintf(tw, "blocks: %s\n", strings.Join(r.Blocks, ", "))
	}
	return tw.Flush()
}
