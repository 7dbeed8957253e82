package graph

import (
	"github.com/specialistvlad/infergraph/internal/calib"
	"github.com/specialistvlad/infergraph/internal/fusion"
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/weights"
)

// NodesInOrder implements Graph. Before Freeze there are no edges and the
// insertion order is returned.
func (m *Manager) NodesInOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.order == nil {
		return m.g.Vertices()
	}
	return append([]string(nil), m.order...)
}

// ScaleMap implements Graph.
func (m *Manager) ScaleMap() map[ir.EdgeID]calib.Scale {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calib.ScaleMap()
}

// LayoutMap implements Graph.
func (m *Manager) LayoutMap() map[ir.EdgeID]calib.Layout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calib.LayoutMap()
}

// Merges implements Graph.
func (m *Manager) Merges() []ir.MergeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g.Merges()
}

// Node returns a copy of the named node.
func (m *Manager) Node(name string) (*ir.Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.g.Node(name)
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Ins returns the boundary input nodes. Empty before Freeze.
func (m *Manager) Ins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g.Ins()
}

// Outs returns the boundary output nodes. Empty before Freeze.
func (m *Manager) Outs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g.Outs()
}

// Graph returns a detached copy of the current topology.
func (m *Manager) Graph() *ir.Graph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g.Clone()
}

// LastStats returns the statistics of the last successful Optimize.
func (m *Manager) LastStats() fusion.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// CopyFrom replaces m with a deep copy of other. Weight blocks are shared and
// retained, not duplicated. The pattern library is copied so later
// registrations on either graph stay local.
func (m *Manager) CopyFrom(other *Manager) error {
	if other == nil {
		return gerr.New(gerr.InvalidGraph, "nil source graph").WithOp("CopyFrom")
	}
	if other == m {
		return nil
	}

	other.mu.RLock()
	g := other.g.Clone()
	cs := other.calib.Clone()
	order := append([]string(nil), other.order...)
	state := other.state
	build := other.build.clone()
	stats := other.stats
	engine := other.engine
	src := other.lib
	blocks := make([]*weights.Block, len(other.blocks))
	for i, b := range other.blocks {
		blocks[i] = b.Retain()
	}
	other.mu.RUnlock()

	lib := src.Clone()
	engine.Library = lib

	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseBlocks()
	m.g = g
	m.calib = cs
	m.order = order
	m.state = state
	m.build = build
	m.stats = stats
	m.lib = lib
	m.engine = engine
	m.blocks = blocks
	m.epoch++
	return nil
}

// Clean releases every weight block and resets m to an empty open graph
// with the same name and pattern library. The result is a new build, not a
// return of the old topology to Open: nothing of it survives.
func (m *Manager) Clean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseBlocks()
	m.g = ir.New(m.g.Name())
	m.calib = calib.NewStore()
	m.order = nil
	m.state = Open
	m.build = buildState{}
	m.stats = fusion.Stats{}
	m.epoch++
}

// releaseBlocks drops m's references. The caller holds the lock.
func (m *Manager) releaseBlocks() {
	for _, b := range m.blocks {
		b.Release()
	}
	m.blocks = nil
}
