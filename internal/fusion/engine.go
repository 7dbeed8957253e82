package fusion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/specialistvlad/infergraph/internal/ctxlog"
	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
	"github.com/specialistvlad/infergraph/internal/scheduler"
	"github.com/specialistvlad/infergraph/internal/vgraph"
)

// DefaultMaxIterations caps the number of passes of one run.
const DefaultMaxIterations = 8

// DefaultElide lists the pass-through operator types removed in fusion mode.
var DefaultElide = []string{ir.OpIdentity, ir.OpDropout}

// Engine runs fusion passes over a virtual graph.
type Engine struct {
	Library *Library
	// MaxIterations caps the number of passes, the final no-change pass
	// included. Zero means DefaultMaxIterations.
	MaxIterations int
	// Elide lists the operator types spliced out before fusing. A nil slice
	// means DefaultElide; an empty one disables elision.
	Elide []string
}

// Stats summarizes a run.
type Stats struct {
	RunID      string
	Iterations int
	Fused      int
	Dropped    int
	// Rejected counts chains that matched by type but failed a safety rule.
	Rejected int
}

// NewEngine returns an engine with the default limits over lib.
func NewEngine(lib *Library) *Engine {
	return &Engine{Library: lib, MaxIterations: DefaultMaxIterations, Elide: DefaultElide}
}

// Run fuses vg to a fixpoint. On IterationLimit the sandbox holds a partial
// rewrite and must be discarded.
func (e *Engine) Run(ctx context.Context, vg *vgraph.VirtualGraph) (Stats, error) {
	stats := Stats{RunID: uuid.NewString()}
	ctx = ctxlog.With(ctx, "run_id", stats.RunID, "graph", vg.Name())
	logger := ctxlog.FromContext(ctx)

	limit := e.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}
	elide := e.Elide
	if elide == nil {
		elide = DefaultElide
	}
	var patterns []Pattern
	if e.Library != nil {
		patterns = e.Library.Patterns()
	}

	for stats.Iterations < limit {
		stats.Iterations++
		changed, err := e.pass(ctx, vg, patterns, elide, &stats)
		if err != nil {
			return stats, err
		}
		logger.Debug("Fusion pass finished.", "iteration", stats.Iterations, "changed", changed, "nodes", vg.Len())
		if !changed {
			logger.Info("Fusion reached a fixpoint.",
				"iterations", stats.Iterations, "fused", stats.Fused, "dropped", stats.Dropped, "rejected", stats.Rejected)
			return stats, nil
		}
	}
	return stats, gerr.New(gerr.IterationLimit, "fusion did not converge in %d passes", limit)
}

func (e *Engine) pass(ctx context.Context, vg *vgraph.VirtualGraph, patterns []Pattern, elide []string, stats *Stats) (bool, error) {
	logger := ctxlog.FromContext(ctx)
	changed := false

	if len(elide) > 0 {
		drop := make(map[string]bool, len(elide))
		for _, t := range elide {
			drop[t] = true
		}
		for _, n := range vg.Nodes() {
			if !drop[n.Type] || vg.IsAnchor(n.Name) {
				continue
			}
			if err := vg.DropNode(n.Name); err != nil {
				logger.Debug("Kept pass-through node.", "node_id", n.Name, "reason", err)
				continue
			}
			stats.Dropped++
			changed = true
		}
	}

	order, err := scheduler.Order[string](vg)
	if err != nil {
		return false, err
	}
	visited := make(map[string]bool, len(order))
	for _, head := range order {
		if visited[head] || vg.IsAnchor(head) {
			continue
		}
		if _, ok := vg.Node(head); !ok {
			continue
		}
		for _, p := range patterns {
			chain, reason := match(vg, head, p)
			if reason != "" {
				stats.Rejected++
				logger.Debug("Rejected fusion candidate.", "node_id", head, "pattern", p.Name, "reason", reason)
				continue
			}
			if chain == nil {
				continue
			}
			name := vg.UniqueName(p.Name)
			if _, err := vg.MergeNodes(chain, name, p.Name, p.Name); err != nil {
				stats.Rejected++
				logger.Debug("Rejected fusion candidate.", "node_id", head, "pattern", p.Name, "reason", err)
				continue
			}
			for _, m := range chain {
				visited[m] = true
			}
			visited[name] = true
			stats.Fused++
			changed = true
			logger.Debug("Fused chain.", "node_id", name, "pattern", p.Name, "members", chain)
			break
		}
	}
	return changed, nil
}

// match walks the chain of p starting at head. It returns the member names
// on success. A chain that matches by type but breaks a safety rule yields a
// non-empty reason instead.
func match(vg *vgraph.VirtualGraph, head string, p Pattern) ([]string, string) {
	chain := make([]string, 0, len(p.Ops))
	cur := head
	for i, c := range p.Ops {
		n, ok := vg.Node(cur)
		if !ok || n.Type != c.Type {
			return nil, ""
		}
		if c.Arity > 0 && vg.InDegree(cur) != c.Arity {
			return nil, ""
		}
		chain = append(chain, cur)
		if i == len(p.Ops)-1 {
			break
		}

		succ := vg.Successors(cur)
		if len(succ) == 1 {
			cur = succ[0]
			continue
		}
		for _, s := range succ {
			if n, ok := vg.Node(s); ok && n.Type == p.Ops[i+1].Type {
				return nil, fmt.Sprintf("%s fans out to %d consumers", cur, len(succ))
			}
		}
		return nil, ""
	}

	for i, name := range chain {
		if vg.IsAnchor(name) {
			return nil, fmt.Sprintf("%s is outside the snapshot region", name)
		}
		if i == len(chain)-1 {
			break
		}
		if vg.IsBoundaryOutput(name) {
			return nil, fmt.Sprintf("%s is a declared output", name)
		}
		if id := ir.ArcID(name, chain[i+1]); vg.IsRegistered(id) {
			return nil, fmt.Sprintf("edge %s is registered", id)
		}
	}
	return chain, ""
}
