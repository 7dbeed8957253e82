package ir

import (
	"strings"
)

const (
	arcSep       = "->"
	weightsSuffix = "#weights"
	biasSuffix   = "#bias"
)

// EdgeID identifies an edge. Real edges are keyed by their endpoints
// ("conv1->bn1"); weight tensors use synthetic keys ("conv1#weights").
type EdgeID string

// ArcID returns the ID of the edge from `from` to `to`.
func ArcID(from, to string) EdgeID {
	return EdgeID(from + arcSep + to)
}

// WeightsID returns the synthetic ID of a node's weight or bias tensor.
func WeightsID(op string, bias bool) EdgeID {
	if bias {
		return EdgeID(op + biasSuffix)
	}
	return EdgeID(op + weightsSuffix)
}

// Endpoints splits an arc ID into its endpoints. ok is false for synthetic
// IDs.
func (id EdgeID) Endpoints() (from, to string, ok bool) {
	from, to, ok = strings.Cut(string(id), arcSep)
	return from, to, ok
}

// IsSynthetic reports whether id names a weight tensor rather than an arc.
func (id EdgeID) IsSynthetic() bool {
	_, _, ok := id.Endpoints()
	return !ok
}

// Edge is a directed link from a producer's output slot to a consumer's
// input slot. It refers to both nodes by name and owns neither.
type Edge struct {
	From     string
	To       string
	FromSlot int
	ToSlot   int
	// Var is the tensor variable carried by the edge.
	Var string
	// Shape is filled in by shape inference in the execution engine; the
	// core only carries it.
	Shape []int
}

// ID returns the identity of e.
func (e *Edge) ID() EdgeID {
	return ArcID(e.From, e.To)
}

// Clone returns a copy of e.
func (e *Edge) Clone() *Edge {
	c := *e
	c.Shape = append([]int(nil), e.Shape...)
	return &c
}

// Equal reports whether e and o connect the same slots with the same var.
func (e *Edge) Equal(o *Edge) bool {
	return e.From == o.From && e.To == o.To &&
		e.FromSlot == o.FromSlot && e.ToSlot == o.ToSlot &&
		e.Var == o.Var
}
