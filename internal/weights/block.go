// Package weights owns raw parameter storage that graph nodes refer to.
//
// A Block is reference counted. Every graph that references a block holds
// one reference; copying a graph retains the block instead of duplicating
// its data, and cleaning a graph releases it. The registry drops a block once
// its last reference is released.
package weights

import (
	"sync/atomic"

	"github.com/specialistvlad/infergraph/internal/gerr"
)

// Block is an externally registered parameter tensor.
type Block struct {
	ID    string
	Op    string
	Shape []int
	Data  []float32

	refs      atomic.Int32
	onRelease func(*Block)
}

// NewBlock returns a block holding data. data may be nil for a block whose
// storage is filled in later; otherwise its length must match shape.
func NewBlock(id, op string, shape []int, data []float32) (*Block, error) {
	if id == "" {
		return nil, gerr.New(gerr.InvalidGraph, "weight block has no id")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, gerr.New(gerr.SizeMismatch, "block %q has non-positive dimension %d", id, d)
		}
		n *= d
	}
	if data != nil && len(data) != n {
		return nil, gerr.New(gerr.SizeMismatch, "block %q holds %d values, shape wants %d", id, len(data), n)
	}
	return &Block{
		ID:    id,
		Op:    op,
		Shape: append([]int(nil), shape...),
		Data:  data,
	}, nil
}

// Retain adds a reference and returns b.
func (b *Block) Retain() *Block {
	b.refs.Add(1)
	return b
}

// Release drops a reference. The last release hands the block back to the
// registry that owns it.
func (b *Block) Release() {
	if n := b.refs.Add(-1); n == 0 && b.onRelease != nil {
		b.onRelease(b)
	} else if n < 0 {
		panic("weights: block " + b.ID + " released more often than retained")
	}
}

// Refs returns the current reference count.
func (b *Block) Refs() int {
	return int(b.refs.Load())
}

// Len returns the number of elements described by the shape.
func (b *Block) Len() int {
	n := 1
	for _, d := range b.Shape {
		n *= d
	}
	return n
}
