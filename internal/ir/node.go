package ir

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/infergraph/internal/attr"
)

// Well-known operator types. The type tag is an open string; these are the
// ones the default fusion library and the loaders know about.
const (
	OpInput     = "Input"
	OpOutput    = "Output"
	OpConv      = "conv"
	OpDeconv    = "deconv"
	OpBatchNorm = "batchnorm"
	OpScale     = "scale"
	OpRelu      = "relu"
	OpPool      = "pool"
	OpEltwise   = "eltwise"
	OpDense     = "dense"
	OpSoftmax   = "softmax"
	OpConcat    = "concat"
	OpSplit     = "split"
	OpIdentity  = "Identity"
	OpDropout   = "Dropout"
)

// Precision is the numeric precision a node runs at.
type Precision string

const (
	FP32  Precision = "fp32"
	FP16  Precision = "fp16"
	INT8  Precision = "int8"
	UINT8 Precision = "uint8"
)

// ParsePrecision converts a precision tag, case-insensitively.
func ParsePrecision(s string) (Precision, error) {
	switch p := Precision(strings.ToLower(strings.TrimSpace(s))); p {
	case FP32, FP16, INT8, UINT8:
		return p, nil
	case "":
		return FP32, nil
	default:
		return "", fmt.Errorf("unknown precision %q", s)
	}
}

// Node is an operator instance. Nodes are owned by a Graph; edges refer to
// them by name.
type Node struct {
	Name      string
	Type      string
	Precision Precision
	Attrs     *attr.Store
	// Inputs and Outputs are the tensor variable names the node consumes and
	// produces, indexed by slot.
	Inputs  []string
	Outputs []string
}

// NewNode returns a node with an empty attribute store at FP32.
func NewNode(name, opType string) *Node {
	return &Node{
		Name:      name,
		Type:      opType,
		Precision: FP32,
		Attrs:     attr.NewStore(),
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	return &Node{
		Name:      n.Name,
		Type:      n.Type,
		Precision: n.Precision,
		Attrs:     n.Attrs.Clone(),
		Inputs:    append([]string(nil), n.Inputs...),
		Outputs:   append([]string(nil), n.Outputs...),
	}
}

// Equal reports whether n and o describe the same operator.
func (n *Node) Equal(o *Node) bool {
	return n.Name == o.Name &&
		n.Type == o.Type &&
		n.Precision == o.Precision &&
		equalStrings(n.Inputs, o.Inputs) &&
		equalStrings(n.Outputs, o.Outputs) &&
		n.Attrs.Equal(o.Attrs)
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Name, n.Type)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
