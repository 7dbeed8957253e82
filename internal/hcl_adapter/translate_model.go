// This file contains the logic for translating HCL schema structs into the
// format-agnostic model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/specialistvlad/infergraph/internal/config"
	"github.com/specialistvlad/infergraph/internal/ctxlog"
)

// translateGraph merges the graph blocks of one file into g.
func translateGraph(ctx context.Context, g *config.Graph, root *fileRoot) error {
	logger := ctxlog.FromContext(ctx)

	for _, gb := range root.Graphs {
		if g.Name != "" && g.Name != gb.Name {
			return fmt.Errorf("graph is named both %q and %q", g.Name, gb.Name)
		}
		g.Name = gb.Name
		if gb.RegisterAllOuts != nil && *gb.RegisterAllOuts {
			g.RegisterAllOuts = true
		}
	}
	for _, v := range root.Vars {
		g.Vars = append(g.Vars, v.Name)
	}
	for _, o := range root.Ops {
		op, err := translateOp(ctx, o)
		if err != nil {
			return err
		}
		g.Ops = append(g.Ops, op)
	}
	for _, o := range root.Outs {
		g.Outs = append(g.Outs, &config.Out{Bottom: o.Bottom, Top: o.Top})
	}
	for _, p := range root.Patterns {
		if len(p.Arity) > 0 && len(p.Arity) != len(p.Chain) {
			return fmt.Errorf("pattern %q: arity has %d entries for a chain of %d", p.Name, len(p.Arity), len(p.Chain))
		}
		g.Patterns = append(g.Patterns, &config.Pattern{Name: p.Name, Chain: p.Chain, Arity: p.Arity})
	}
	for _, s := range root.VarScales {
		g.VarScales = append(g.VarScales, &config.VarScale{Var: s.Var, Scale: s.Scale})
	}
	for _, s := range root.WeightsScales {
		g.WeightsScales = append(g.WeightsScales, &config.WeightsScale{Op: s.Op, Scales: s.Scales, Bias: s.Bias})
	}
	for _, l := range root.Layouts {
		g.Layouts = append(g.Layouts, &config.Layout{From: l.From, To: l.To, Value: l.Value})
	}
	for _, b := range root.Blocks {
		g.Blocks = append(g.Blocks, &config.Block{ID: b.ID, Op: b.Op, Shape: b.Shape, Data: b.Data})
	}

	logger.Debug("Translated graph blocks.", "graph", g.Name, "ops", len(root.Ops), "vars", len(root.Vars))
	return nil
}

// translateOp converts an op block, evaluating its attributes. Attribute
// expressions must be constant.
func translateOp(ctx context.Context, o *OpBlock) (*config.Op, error) {
	logger := ctxlog.FromContext(ctx).With("node_id", o.Name)

	op := &config.Op{
		Name:      o.Name,
		Type:      o.Type,
		Inputs:    o.Inputs,
		Outputs:   o.Outputs,
		Precision: o.Precision,
		Attrs:     make(map[string]cty.Value),
	}
	exprs, diags := bodyAttributes(o.Attrs)
	if diags.HasErrors() {
		return nil, fmt.Errorf("op %q: %w", o.Name, diags)
	}
	for name, expr := range exprs {
		val, diags := expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("op %q, attribute %q: %w", o.Name, name, diags)
		}
		if val.IsNull() {
			logger.Debug("Skipping null attribute.", "attribute", name)
			continue
		}
		op.Attrs[name] = val
	}
	return op, nil
}

// translateKernelDefinition converts a kernel manifest into the agnostic
// model.
func translateKernelDefinition(ctx context.Context, k *KernelDefinition) (*config.KernelDefinition, error) {
	def := &config.KernelDefinition{
		OpType:      k.OpType,
		Target:      k.Target,
		Description: k.Description,
		Precisions:  k.Precisions,
		Params:      make(map[string]*config.ParamDefinition, len(k.Params)),
	}
	for _, p := range k.Params {
		if _, dup := def.Params[p.Name]; dup {
			return nil, fmt.Errorf("kernel %s/%s declares param %q twice", k.OpType, k.Target, p.Name)
		}
		param, err := translateParamDefinition(ctx, p, k.OpType+"/"+k.Target)
		if err != nil {
			return nil, err
		}
		def.Params[p.Name] = param
	}
	return def, nil
}

// translateParamDefinition processes a single param block, handling its type
// and default value. A param with a default is optional.
func translateParamDefinition(ctx context.Context, p *ParamDefinition, kernel string) (*config.ParamDefinition, error) {
	ty, err := typeExprToCtyType(ctx, p.Type)
	if err != nil {
		return nil, fmt.Errorf("in kernel %s, param %q: %w", kernel, p.Name, err)
	}

	param := &config.ParamDefinition{
		Name:        p.Name,
		Type:        ty,
		Description: p.Description,
		Optional:    p.Optional,
	}
	if isExprDefined(ctx, p.Default, "default") {
		val, diags := p.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value for param %q in kernel %s: %w", p.Name, kernel, diags)
		}
		if !val.IsNull() {
			conv, err := convert.Convert(val, ty)
			if err != nil {
				return nil, fmt.Errorf("default value for param %q in kernel %s does not match type %s: %w",
					p.Name, kernel, ty.FriendlyName(), err)
			}
			param.Default = &conv
			param.Optional = true
		}
	}
	return param, nil
}
