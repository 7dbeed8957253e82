package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block a model or manifest file may hold.
// Unknown blocks are reported as errors.
type fileRoot struct {
	Graphs        []*GraphBlock        `hcl:"graph,block"`
	Vars          []*VarBlock          `hcl:"var,block"`
	Ops           []*OpBlock           `hcl:"op,block"`
	Outs          []*OutBlock          `hcl:"out,block"`
	Patterns      []*PatternBlock      `hcl:"pattern,block"`
	VarScales     []*VarScaleBlock     `hcl:"var_scale,block"`
	WeightsScales []*WeightsScaleBlock `hcl:"weights_scale,block"`
	Layouts       []*LayoutBlock       `hcl:"layout,block"`
	Blocks        []*WeightBlock       `hcl:"block,block"`
	Kernels       []*KernelDefinition  `hcl:"kernel,block"`
}

// --- Model Graph Schemas ---

// GraphBlock names the graph. At most one name may be used across files.
type GraphBlock struct {
	Name            string `hcl:"name,label"`
	RegisterAllOuts *bool  `hcl:"register_all_outs,optional"`
}

// VarBlock declares a graph input variable.
type VarBlock struct {
	Name string `hcl:"name,label"`
}

// AttrsBlock holds the free-form attributes of an op.
type AttrsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// OpBlock declares an operator.
type OpBlock struct {
	Name      string      `hcl:"name,label"`
	Type      string      `hcl:"type"`
	Inputs    []string    `hcl:"inputs,optional"`
	Outputs   []string    `hcl:"outputs,optional"`
	Precision string      `hcl:"precision,optional"`
	Attrs     *AttrsBlock `hcl:"attrs,block"`
}

// OutBlock registers the edge from Bottom to Top as an output.
type OutBlock struct {
	Bottom string `hcl:"bottom,label"`
	Top    string `hcl:"top,label"`
}

// PatternBlock declares a fusion pattern.
type PatternBlock struct {
	Name  string   `hcl:"name,label"`
	Chain []string `hcl:"chain"`
	Arity []int    `hcl:"arity,optional"`
}

// VarScaleBlock sets the scale of every edge carrying a variable.
type VarScaleBlock struct {
	Var   string  `hcl:"var,label"`
	Scale float64 `hcl:"scale"`
}

// WeightsScaleBlock sets the per-channel scales of an op's weights or bias.
type WeightsScaleBlock struct {
	Op     string    `hcl:"op,label"`
	Scales []float64 `hcl:"scales"`
	Bias   bool      `hcl:"bias,optional"`
}

// LayoutBlock pins the layout of an edge.
type LayoutBlock struct {
	From  string `hcl:"from,label"`
	To    string `hcl:"to,label"`
	Value string `hcl:"value"`
}

// WeightBlock declares a weight block owned by an op.
type WeightBlock struct {
	ID    string    `hcl:"id,label"`
	Op    string    `hcl:"op"`
	Shape []int     `hcl:"shape"`
	Data  []float64 `hcl:"data,optional"`
}

// --- Kernel Manifest Schemas ---

// ParamDefinition declares an attribute a kernel reads.
type ParamDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Optional    bool           `hcl:"optional,optional"`
}

// KernelDefinition is the manifest of one operator type on one target.
type KernelDefinition struct {
	OpType      string             `hcl:"op_type,label"`
	Target      string             `hcl:"target,label"`
	Description string             `hcl:"description,optional"`
	Precisions  []string           `hcl:"precisions,optional"`
	Params      []*ParamDefinition `hcl:"param,block"`
}
