package graph

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/infergraph/internal/ctxlog"
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/scheduler"
)

type producer struct {
	node string
	slot int
}

// Freeze implements Graph. Variables are resolved into edges on a copy of the
// graph, which replaces the build-phase graph only when every step succeeded.
func (m *Manager) Freeze(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Open {
		return gerr.New(gerr.FrozenViolation, "graph is already %s", m.state).WithOp("Freeze")
	}

	g := m.g.Clone()
	for _, v := range m.build.vars {
		n := ir.NewNode(v, ir.OpInput)
		n.Outputs = []string{v}
		if err := g.InsertNode(n); err != nil {
			return gerr.Annotate("Freeze", err)
		}
	}
	if err := connect(g); err != nil {
		return gerr.Annotate("Freeze", err)
	}

	var ins, outs []string
	for _, name := range g.Vertices() {
		if g.InDegree(name) == 0 {
			ins = append(ins, name)
		}
		if len(g.Successors(name)) == 0 {
			outs = append(outs, name)
		}
	}
	g.SetBoundary(ins, outs)

	for _, o := range m.build.outs {
		if err := g.RegisterOutput(o[0], o[1]); err != nil {
			return gerr.Annotate("Freeze", err)
		}
	}
	if m.build.registerAll {
		g.RegisterAllOutputs()
	}

	order, err := scheduler.Order[string](g)
	if err != nil {
		return gerr.Annotate("Freeze", err)
	}
	g.Freeze()
	if err := g.Verify(); err != nil {
		return gerr.Annotate("Freeze", err)
	}

	cs := m.calib.Clone()
	for _, vs := range m.build.varScales {
		if err := applyVarScale(g, cs, vs.variable, vs.scale); err != nil {
			return gerr.Annotate("Freeze", err)
		}
	}

	m.g = g
	m.calib = cs
	m.order = order
	m.state = Frozen
	m.build = buildState{}
	m.epoch++

	m.log(ctx).Info("Graph frozen.",
		"graph", g.Name(), "nodes", g.Len(), "edges", g.EdgeLen(),
		"inputs", len(ins), "outputs", len(outs), "registered", len(g.Registered()))
	return nil
}

// connect adds one edge per (producer, consumer) variable use. A consumer
// reading two outputs of the same producer keeps the first edge.
func connect(g *ir.Graph) error {
	producers := make(map[string]producer)
	for _, n := range g.Nodes() {
		for slot, v := range n.Outputs {
			if p, ok := producers[v]; ok {
				return gerr.New(gerr.InvalidGraph, "variable %q is written by both %q and %q", v, p.node, n.Name)
			}
			producers[v] = producer{node: n.Name, slot: slot}
		}
	}
	for _, n := range g.Nodes() {
		for slot, v := range n.Inputs {
			p, ok := producers[v]
			if !ok {
				return gerr.New(gerr.NotFound, "op %q reads undefined variable %q", n.Name, v)
			}
			if p.node == n.Name {
				return gerr.New(gerr.InvalidGraph, "op %q reads its own output %q", n.Name, v)
			}
			e := &ir.Edge{From: p.node, To: n.Name, FromSlot: p.slot, ToSlot: slot, Var: v}
			if err := g.Connect(e); err != nil && gerr.KindOf(err) != gerr.AlreadyExists {
				return err
			}
		}
	}
	return nil
}

// log returns the logger carried by ctx, or the Manager's own.
func (m *Manager) log(ctx context.Context) *slog.Logger {
	if logger, ok := ctxlog.Lookup(ctx); ok {
		return logger
	}
	return m.logger
}
