package builder

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/infergraph/internal/config"
	"github.com/specialistvlad/infergraph/internal/ctxlog"
	"github.com/specialistvlad/infergraph/internal/fusion"
	"github.com/specialistvlad/infergraph/internal/graph"
	"github.com/specialistvlad/infergraph/internal/weights"
)

// DefaultName is used for a model whose graph block has no name.
const DefaultName = "graph"

// Build creates and freezes a graph from a model description. Weight blocks
// are registered with blocks, which may be nil when the model declares none.
func Build(ctx context.Context, g *config.Graph, conv config.Converter, blocks *weights.Registry, opts ...graph.Option) (*graph.Manager, error) {
	logger := ctxlog.FromContext(ctx)
	if g == nil {
		return nil, fmt.Errorf("model declares no graph")
	}
	name := g.Name
	if name == "" {
		name = DefaultName
	}
	logger.Debug("Building graph from model.", "graph", name, "ops", len(g.Ops), "vars", len(g.Vars))

	m := graph.New(name, opts...)
	if err := build(ctx, m, g, conv, blocks); err != nil {
		m.Clean()
		return nil, err
	}
	logger.Debug("Graph built.", "graph", name, "nodes", len(m.NodesInOrder()))
	return m, nil
}

func build(ctx context.Context, m *graph.Manager, g *config.Graph, conv config.Converter, blocks *weights.Registry) error {
	if err := declare(m, g, conv); err != nil {
		return err
	}
	if err := register(m, g, blocks); err != nil {
		return err
	}
	if err := m.Freeze(ctx); err != nil {
		return fmt.Errorf("failed to freeze graph: %w", err)
	}
	for _, l := range g.Layouts {
		if err := m.SetLayout(l.From, l.To, l.Value); err != nil {
			return fmt.Errorf("layout %s->%s: %w", l.From, l.To, err)
		}
	}
	return nil
}

// declare adds the patterns, variables and ops.
func declare(m *graph.Manager, g *config.Graph, conv config.Converter) error {
	for _, p := range g.Patterns {
		if err := m.RegisterPattern(toPattern(p)); err != nil {
			return fmt.Errorf("pattern %q: %w", p.Name, err)
		}
	}
	for _, v := range g.Vars {
		if err := m.RegistVar(v); err != nil {
			return fmt.Errorf("var %q: %w", v, err)
		}
	}
	for _, op := range g.Ops {
		if err := m.AddOp(op.Name, op.Type, op.Inputs, op.Outputs); err != nil {
			return fmt.Errorf("op %q: %w", op.Name, err)
		}
		if op.Precision != "" {
			if err := m.SetOpPrecision(op.Name, op.Precision); err != nil {
				return fmt.Errorf("op %q: %w", op.Name, err)
			}
		}
		names := make([]string, 0, len(op.Attrs))
		for name := range op.Attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v, err := conv.ToAttr(op.Attrs[name])
			if err != nil {
				return fmt.Errorf("op %q, attribute %q: %w", op.Name, name, err)
			}
			if err := m.AddOpAttr(op.Name, name, v); err != nil {
				return fmt.Errorf("op %q, attribute %q: %w", op.Name, name, err)
			}
		}
	}
	return nil
}

// register records outputs, scales and weight blocks.
func register(m *graph.Manager, g *config.Graph, blocks *weights.Registry) error {
	for _, o := range g.Outs {
		if err := m.RegistOut(o.Bottom, o.Top); err != nil {
			return fmt.Errorf("out %s->%s: %w", o.Bottom, o.Top, err)
		}
	}
	if g.RegisterAllOuts {
		if err := m.RegistAllOut(); err != nil {
			return err
		}
	}
	for _, vs := range g.VarScales {
		if err := m.SetVarScale(vs.Var, float32(vs.Scale)); err != nil {
			return fmt.Errorf("var_scale %q: %w", vs.Var, err)
		}
	}
	for _, ws := range g.WeightsScales {
		if err := m.SetWeightsScale(ws.Op, toFloat32(ws.Scales), ws.Bias); err != nil {
			return fmt.Errorf("weights_scale %q: %w", ws.Op, err)
		}
	}
	if len(g.Blocks) > 0 && blocks == nil {
		return fmt.Errorf("model declares %d weight blocks but no weights registry was given", len(g.Blocks))
	}
	for _, cb := range g.Blocks {
		var data []float32
		if cb.Data != nil {
			data = toFloat32(cb.Data)
		}
		b, err := weights.NewBlock(cb.ID, cb.Op, cb.Shape, data)
		if err != nil {
			return fmt.Errorf("block %q: %w", cb.ID, err)
		}
		// The Manager's reference makes Clean drop the block from blocks
		// when a later step fails.
		if err := m.RegistBlock(b); err != nil {
			return fmt.Errorf("block %q: %w", cb.ID, err)
		}
		if err := blocks.Register(b); err != nil {
			return fmt.Errorf("block %q: %w", cb.ID, err)
		}
	}
	return nil
}

func toPattern(p *config.Pattern) fusion.Pattern {
	fp := fusion.Chain(p.Name, p.Chain...)
	for i, a := range p.Arity {
		if i < len(fp.Ops) {
			fp.Ops[i].Arity = a
		}
	}
	return fp
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}
