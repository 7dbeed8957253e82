package config

import (
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of everything a
// loader read: at most one graph and any number of kernel manifests.
type Model struct {
	Graph   *Graph
	Kernels []*KernelDefinition
}

// Graph is the description of an inference graph.
type Graph struct {
	Name string
	// RegisterAllOuts marks every edge as externally observable.
	RegisterAllOuts bool

	Vars          []string
	Ops           []*Op
	Outs          []*Out
	Patterns      []*Pattern
	VarScales     []*VarScale
	WeightsScales []*WeightsScale
	Layouts       []*Layout
	Blocks        []*Block
}

// Op is the format-agnostic representation of an `op` block.
type Op struct {
	Name      string
	Type      string
	Inputs    []string
	Outputs   []string
	Precision string
	Attrs     map[string]cty.Value
}

// Out marks the edge from Bottom to Top as a registered output.
type Out struct {
	Bottom string
	Top    string
}

// Pattern is a fusion pattern declared next to the graph. Arity, when set,
// has one entry per chain element; zero means any in-degree.
type Pattern struct {
	Name  string
	Chain []string
	Arity []int
}

// VarScale is the quantization scale of every edge carrying Var.
type VarScale struct {
	Var   string
	Scale float64
}

// WeightsScale holds per-channel scales of an op's weights or bias.
type WeightsScale struct {
	Op     string
	Scales []float64
	Bias   bool
}

// Layout pins the memory layout of the edge from From to To.
type Layout struct {
	From  string
	To    string
	Value string
}

// Block describes a weight block referenced by an op. Data may be empty for
// blocks whose storage is provided at run time.
type Block struct {
	ID    string
	Op    string
	Shape []int
	Data  []float64
}

// --- Kernel Manifest Models ---

// KernelDefinition is the format-agnostic representation of a kernel
// manifest: the contract of one operator type on one execution target.
type KernelDefinition struct {
	OpType      string
	Target      string
	Description string
	// Precisions lists the supported precisions. Empty means any.
	Precisions []string
	Params     map[string]*ParamDefinition
}

// ParamDefinition defines a single attribute a kernel reads.
type ParamDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}
