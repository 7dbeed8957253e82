package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/specialistvlad/infergraph/internal/ctxlog"
	"github.com/specialistvlad/infergraph/internal/fusion"
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/scheduler"
	"github.com/specialistvlad/infergraph/internal/vgraph"
)

// maxOptimizeAttempts bounds the retries of an optimization whose snapshot
// went stale because attributes changed while it ran.
const maxOptimizeAttempts = 3

// Optimize implements Graph. Calls are serialized; the state lock is held
// only to take the snapshot and to commit. On error the graph is unchanged.
func (m *Manager) Optimize(ctx context.Context, withFusion bool) (fusion.Stats, error) {
	m.optimizeMu.Lock()
	defer m.optimizeMu.Unlock()

	for attempt := 1; ; attempt++ {
		stats, stale, err := m.optimize(ctx, withFusion)
		if !stale {
			return stats, err
		}
		if attempt == maxOptimizeAttempts {
			return stats, gerr.New(gerr.FusionConflict, "graph changed during each of %d optimization attempts", attempt).WithOp("Optimize")
		}
		m.log(ctx).Debug("Graph changed during optimization, retrying.", "run_id", stats.RunID, "attempt", attempt)
	}
}

// optimize runs one attempt. stale reports that the graph was mutated after
// the snapshot was taken and nothing was committed.
func (m *Manager) optimize(ctx context.Context, withFusion bool) (fusion.Stats, bool, error) {
	m.mu.RLock()
	if m.state == Open {
		m.mu.RUnlock()
		return fusion.Stats{}, false, gerr.New(gerr.InvalidGraph, "graph must be frozen before optimization").WithOp("Optimize")
	}
	base, epoch := m.g, m.epoch
	vg, err := vgraph.Snapshot(m.g, nil)
	known := m.calib.LayoutMap()
	engine := m.engine
	m.mu.RUnlock()
	if err != nil {
		return fusion.Stats{}, false, gerr.Annotate("Optimize", err)
	}

	ctx = ctxlog.WithLogger(ctx, m.log(ctx).With("graph", vg.Name()))
	var stats fusion.Stats
	if withFusion {
		stats, err = engine.Run(ctx, vg)
		if err != nil {
			return stats, false, gerr.Annotate("Optimize", err)
		}
	} else {
		stats.RunID = uuid.NewString()
	}
	logger := ctxlog.FromContext(ctx).With("run_id", stats.RunID)

	layouts, err := fusion.Normalize(vg, known)
	if err != nil {
		return stats, false, gerr.Annotate("Optimize", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.g != base || m.epoch != epoch {
		return stats, true, nil
	}
	res, err := vgraph.Commit(m.g, vg)
	if err != nil {
		return stats, false, gerr.Annotate("Optimize", err)
	}

	cs := m.calib.Clone()
	cs.Rename(res.Renamed)
	for id, l := range layouts {
		if _, ok := cs.Layout(id); ok {
			continue
		}
		if err := cs.SetLayout(id, l); err != nil {
			return stats, false, gerr.Annotate("Optimize", err)
		}
	}
	cs.Retain(func(id ir.EdgeID) bool {
		if id.IsSynthetic() {
			return true
		}
		_, ok := m.g.EdgeByID(id)
		return ok
	})

	order, err := scheduler.Order[string](m.g)
	if err != nil {
		return stats, false, gerr.Annotate("Optimize", err)
	}
	m.calib = cs
	m.order = order
	// Optimized means fusion ran. A normalization-only run keeps the state.
	if withFusion {
		m.state = Optimized
		m.g.MarkOptimized()
	}
	m.stats = stats

	logger.Info("Graph optimized.",
		"fusion", withFusion, "nodes", m.g.Len(), "edges", m.g.EdgeLen(),
		"added", len(res.Added), "removed", len(res.Removed), "renamed", len(res.Renamed))
	return stats, false, nil
}
