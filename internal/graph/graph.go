package graph

import (
	"log/slog"
	"sync"

	"github.com/specialistvlad/infergraph/internal/attr"
	"github.com/specialistvlad/infergraph/internal/calib"
	"github.com/specialistvlad/infergraph/internal/fusion"
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/weights"
)

// Manager is the reference implementation of Graph. It is caller-owned;
// nothing in this package keeps a global instance.
type Manager struct {
	mu sync.RWMutex
	// optimizeMu serializes whole Optimize calls.
	optimizeMu sync.Mutex

	logger *slog.Logger
	lib    *fusion.Library
	engine fusion.Engine

	state State
	g     *ir.Graph
	calib *calib.Store
	order []string
	// epoch counts payload mutations that do not change topology, so an
	// optimization computed on an older snapshot is not committed over them.
	epoch uint64

	build  buildState
	blocks []*weights.Block
	stats  fusion.Stats
}

// buildState holds declarations that are resolved at Freeze.
type buildState struct {
	vars        []string
	outs        [][2]string
	registerAll bool
	varScales   []varScale
}

type varScale struct {
	variable string
	scale    float32
}

func (b buildState) clone() buildState {
	return buildState{
		vars:        append([]string(nil), b.vars...),
		outs:        append([][2]string(nil), b.outs...),
		registerAll: b.registerAll,
		varScales:   append([]varScale(nil), b.varScales...),
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used outside of a request context.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithLibrary replaces the default pattern library.
func WithLibrary(lib *fusion.Library) Option {
	return func(m *Manager) { m.lib = lib }
}

// WithMaxIterations caps the fusion passes of one Optimize call.
func WithMaxIterations(n int) Option {
	return func(m *Manager) { m.engine.MaxIterations = n }
}

// WithElide sets the pass-through operator types removed in fusion mode.
func WithElide(types ...string) Option {
	return func(m *Manager) { m.engine.Elide = append([]string{}, types...) }
}

// New creates an empty, open graph.
func New(name string, opts ...Option) *Manager {
	m := &Manager{
		logger: slog.Default(),
		g:      ir.New(name),
		calib:  calib.NewStore(),
		engine: fusion.Engine{MaxIterations: fusion.DefaultMaxIterations},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.lib == nil {
		m.lib = fusion.DefaultLibrary()
	}
	m.engine.Library = m.lib
	return m
}

// Name returns the graph name.
func (m *Manager) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g.Name()
}

// State returns the lifecycle stage.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// AddOp implements Graph.
func (m *Manager) AddOp(name, opType string, inputs, outputs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Open {
		return gerr.New(gerr.FrozenViolation, "can not add op %q to a %s graph", name, m.state).WithOp("AddOp")
	}
	if opType == "" {
		return gerr.New(gerr.InvalidGraph, "op %q has no type", name).WithOp("AddOp")
	}
	n := ir.NewNode(name, opType)
	n.Inputs = append([]string(nil), inputs...)
	n.Outputs = append([]string(nil), outputs...)
	return gerr.Annotate("AddOp", m.g.InsertNode(n))
}

// AddOpAttr implements Graph. value is converted with attr.Of.
func (m *Manager) AddOpAttr(op, name string, value any) error {
	v, err := attr.Of(value)
	if err != nil {
		return gerr.Annotate("AddOpAttr", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.g.Node(op)
	if !ok {
		return gerr.New(gerr.NotFound, "op %q", op).WithOp("AddOpAttr")
	}
	if err := n.Attrs.Set(name, v); err != nil {
		return gerr.Annotate("AddOpAttr", err)
	}
	m.epoch++
	return nil
}

// SetOpPrecision implements Graph.
func (m *Manager) SetOpPrecision(op, precision string) error {
	p, err := ir.ParsePrecision(precision)
	if err != nil {
		return gerr.Wrap(gerr.TypeMismatch, err, "op %q", op).WithOp("SetOpPrecision")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.g.Node(op)
	if !ok {
		return gerr.New(gerr.NotFound, "op %q", op).WithOp("SetOpPrecision")
	}
	n.Precision = p
	m.epoch++
	return nil
}

// SetWeightsScale implements Graph. The scale is stored under the synthetic
// edge key "op#weights" or "op#bias".
func (m *Manager) SetWeightsScale(op string, scales []float32, isBias bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.g.HasNode(op) {
		return gerr.New(gerr.NotFound, "op %q", op).WithOp("SetWeightsScale")
	}
	return gerr.Annotate("SetWeightsScale", m.calib.SetScale(ir.WeightsID(op, isBias), scales, isBias))
}

// SetVarScale implements Graph. While the graph is open the scale is kept
// and applied to the variable's edges at Freeze.
func (m *Manager) SetVarScale(variable string, scale float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Open {
		m.build.varScales = append(m.build.varScales, varScale{variable: variable, scale: scale})
		return nil
	}
	return gerr.Annotate("SetVarScale", applyVarScale(m.g, m.calib, variable, scale))
}

// SetLayout implements Graph. The edge must exist, so this is only useful
// after Freeze.
func (m *Manager) SetLayout(from, to, layout string) error {
	l, err := calib.ParseLayout(layout)
	if err != nil {
		return gerr.Annotate("SetLayout", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.g.Edge(from, to); !ok {
		return gerr.New(gerr.NotFound, "edge %s", ir.ArcID(from, to)).WithOp("SetLayout")
	}
	return gerr.Annotate("SetLayout", m.calib.SetLayout(ir.ArcID(from, to), l))
}

// RegistVar implements Graph. An Input op named after the variable is
// created at Freeze.
func (m *Manager) RegistVar(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Open {
		return gerr.New(gerr.FrozenViolation, "can not declare variable %q on a %s graph", name, m.state).WithOp("RegistVar")
	}
	if name == "" {
		return gerr.New(gerr.InvalidGraph, "variable name is empty").WithOp("RegistVar")
	}
	for _, v := range m.build.vars {
		if v == name {
			return gerr.New(gerr.AlreadyExists, "variable %q", name).WithOp("RegistVar")
		}
	}
	m.build.vars = append(m.build.vars, name)
	return nil
}

// RegistOut implements Graph.
func (m *Manager) RegistOut(bottom, top string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Open {
		return gerr.New(gerr.FrozenViolation, "can not register output %s on a %s graph", ir.ArcID(bottom, top), m.state).WithOp("RegistOut")
	}
	m.build.outs = append(m.build.outs, [2]string{bottom, top})
	return nil
}

// RegistAllOut implements Graph.
func (m *Manager) RegistAllOut() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Open {
		return gerr.New(gerr.FrozenViolation, "can not register outputs on a %s graph", m.state).WithOp("RegistAllOut")
	}
	m.build.registerAll = true
	return nil
}

// RegistBlock implements Graph. The Manager holds one reference on b until
// Clean.
func (m *Manager) RegistBlock(b *weights.Block) error {
	if b == nil {
		return gerr.New(gerr.InvalidGraph, "nil weight block").WithOp("RegistBlock")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Op != "" && !m.g.HasNode(b.Op) {
		if _, fused := m.fusedInto(b.Op); !fused {
			return gerr.New(gerr.NotFound, "op %q of weight block %q", b.Op, b.ID).WithOp("RegistBlock")
		}
	}
	for _, have := range m.blocks {
		if have.ID == b.ID {
			return gerr.New(gerr.AlreadyExists, "weight block %q", b.ID).WithOp("RegistBlock")
		}
	}
	m.blocks = append(m.blocks, b.Retain())
	return nil
}

// Blocks returns the IDs of the referenced weight blocks in registration
// order.
func (m *Manager) Blocks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.blocks))
	for i, b := range m.blocks {
		ids[i] = b.ID
	}
	return ids
}

// RegisterPattern adds a fusion pattern to this graph's library.
func (m *Manager) RegisterPattern(p fusion.Pattern) error {
	return gerr.Annotate("RegisterPattern", m.library().Register(p))
}

// Patterns returns the fusion patterns in priority order.
func (m *Manager) Patterns() []fusion.Pattern {
	return m.library().Patterns()
}

// library loads the pattern library pointer, which CopyFrom replaces.
func (m *Manager) library() *fusion.Library {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lib
}

// fusedInto returns the fused node that absorbed an original op. The caller
// holds the lock.
func (m *Manager) fusedInto(op string) (string, bool) {
	for _, r := range m.g.Merges() {
		for _, o := range r.Originals {
			if o == op {
				return r.Fused, true
			}
		}
	}
	return "", false
}

func applyVarScale(g *ir.Graph, store *calib.Store, variable string, scale float32) error {
	edges := g.EdgesCarrying(variable)
	if len(edges) == 0 {
		return gerr.New(gerr.NotFound, "no edge carries variable %q", variable)
	}
	for _, e := range edges {
		if err := store.SetScale(e.ID(), []float32{scale}, false); err != nil {
			return err
		}
	}
	return nil
}
