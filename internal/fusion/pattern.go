package fusion

import (
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// Constraint describes one position of a pattern.
type Constraint struct {
	// Type is the operator type the node must have.
	Type string
	// Arity is the exact number of incoming edges the node must have. Zero
	// accepts any number.
	Arity int
}

// Pattern is a linear chain of operator types that fuses into one node.
type Pattern struct {
	Name string
	Ops  []Constraint
}

// Chain builds a pattern from a list of operator types with no arity
// constraints.
func Chain(name string, types ...string) Pattern {
	p := Pattern{Name: name, Ops: make([]Constraint, len(types))}
	for i, t := range types {
		p.Ops[i] = Constraint{Type: t}
	}
	return p
}

// Types returns the operator types of the chain.
func (p Pattern) Types() []string {
	out := make([]string, len(p.Ops))
	for i, c := range p.Ops {
		out[i] = c.Type
	}
	return out
}

// String renders the pattern as "name{a, b, c}".
func (p Pattern) String() string {
	return p.Name + "{" + strings.Join(p.Types(), ", ") + "}"
}

// Validate checks that the pattern can be registered.
func (p Pattern) Validate() error {
	if p.Name == "" {
		return gerr.New(gerr.InvalidGraph, "pattern has no name")
	}
	if len(p.Ops) < 2 {
		return gerr.New(gerr.InvalidGraph, "pattern %q needs at least two ops, has %d", p.Name, len(p.Ops))
	}
	for i, c := range p.Ops {
		if c.Type == "" {
			return gerr.New(gerr.InvalidGraph, "pattern %q position %d has no type", p.Name, i)
		}
		if c.Arity < 0 {
			return gerr.New(gerr.InvalidGraph, "pattern %q position %d has negative arity", p.Name, i)
		}
	}
	return nil
}

func (p Pattern) clone() Pattern {
	return Pattern{Name: p.Name, Ops: append([]Constraint(nil), p.Ops...)}
}

// Library is an ordered, extensible set of patterns. It is safe for
// concurrent use.
type Library struct {
	mu       sync.RWMutex
	patterns []Pattern
}

// NewLibrary returns a library holding the given patterns, registered in
// order.
func NewLibrary(patterns ...Pattern) (*Library, error) {
	l := &Library{}
	for _, p := range patterns {
		if err := l.Register(p); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// DefaultLibrary returns the built-in conv, deconv and eltwise fusions.
func DefaultLibrary() *Library {
	l, err := NewLibrary(
		Chain("fused_cbsr", ir.OpConv, ir.OpBatchNorm, ir.OpScale, ir.OpRelu),
		Chain("fused_cbr", ir.OpConv, ir.OpBatchNorm, ir.OpRelu),
		Chain("fused_cbs", ir.OpConv, ir.OpBatchNorm, ir.OpScale),
		Chain("fused_crp", ir.OpConv, ir.OpRelu, ir.OpPool),
		Chain("fused_cb", ir.OpConv, ir.OpBatchNorm),
		Chain("fused_cr", ir.OpConv, ir.OpRelu),
		Chain("fused_dr", ir.OpDeconv, ir.OpRelu),
		Chain("fused_er", ir.OpEltwise, ir.OpRelu),
	)
	if err != nil {
		panic(err)
	}
	return l
}

// Register appends p. Names are unique.
func (l *Library) Register(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, have := range l.patterns {
		if have.Name == p.Name {
			return gerr.New(gerr.AlreadyExists, "pattern %q", p.Name)
		}
	}
	l.patterns = append(l.patterns, p.clone())
	return nil
}

// Patterns returns the patterns in priority order: longer chains first,
// ties broken by registration order.
func (l *Library) Patterns() []Pattern {
	l.mu.RLock()
	out := make([]Pattern, len(l.patterns))
	for i, p := range l.patterns {
		out[i] = p.clone()
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Ops) > len(out[j].Ops) })
	return out
}

// Len returns the number of registered patterns.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.patterns)
}

// Clone returns an independent copy of l.
func (l *Library) Clone() *Library {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := &Library{patterns: make([]Pattern, len(l.patterns))}
	for i, p := range l.patterns {
		c.patterns[i] = p.clone()
	}
	return c
}
