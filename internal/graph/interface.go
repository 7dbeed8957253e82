package graph

import (
	"context"

	"github.com/specialistvlad/infergraph/internal/calib"
	"github.com/specialistvlad/infergraph/internal/fusion"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/weights"
)

// Graph is the Build API of a compiled inference graph.
//
// Implementations MUST be safe for concurrent use.
type Graph interface {
	// AddOp declares an operator reading the inputs variables and writing the
	// outputs variables. It fails with FrozenViolation after Freeze.
	AddOp(name, opType string, inputs, outputs []string) error
	// AddOpAttr sets an attribute. Legal in every state.
	AddOpAttr(op, name string, value any) error
	// SetOpPrecision sets the numeric precision of an op.
	SetOpPrecision(op, precision string) error
	// SetWeightsScale records the quantization scales of an op's weights or
	// bias.
	SetWeightsScale(op string, scales []float32, isBias bool) error
	// SetVarScale records the scale of every edge carrying a variable.
	SetVarScale(variable string, scale float32) error
	// SetLayout records the layout of the edge between two ops.
	SetLayout(from, to, layout string) error
	// RegistVar declares a graph input variable. Build phase only.
	RegistVar(name string) error
	// RegistOut marks the edge from bottom to top as externally observable.
	// Build phase only; the edge is resolved at Freeze.
	RegistOut(bottom, top string) error
	// RegistAllOut marks every edge as externally observable.
	RegistAllOut() error
	// RegistBlock references an externally owned weight block.
	RegistBlock(b *weights.Block) error

	// Freeze resolves the build phase into a fixed topology.
	Freeze(ctx context.Context) error
	// Optimize runs normalization, and fusion when withFusion is set.
	Optimize(ctx context.Context, withFusion bool) (fusion.Stats, error)

	NodesInOrder() []string
	ScaleMap() map[ir.EdgeID]calib.Scale
	LayoutMap() map[ir.EdgeID]calib.Layout
	Merges() []ir.MergeRecord
	State() State
}

// State is the lifecycle stage of a Manager.
type State int

const (
	Open State = iota
	Frozen
	Optimized
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Frozen:
		return "frozen"
	case Optimized:
		return "optimized"
	default:
		return "unknown"
	}
}

var _ Graph = (*Manager)(nil)
