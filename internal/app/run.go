package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/infergraph/internal/builder"
	"github.com/specialistvlad/infergraph/internal/ctxlog"
	"github.com/specialistvlad/infergraph/internal/graph"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// Run compiles the loaded model: it builds and freezes the graph, optimizes
// it, checks every node against the kernel registry and prints the report.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.model.Graph != nil {
		if n := a.registry.ApplyDefaults(a.model.Graph, a.cfg.Target); n > 0 {
			a.logger.Debug("Kernel param defaults applied.", "count", n)
		}
	}

	opts := []graph.Option{graph.WithLogger(a.logger)}
	if a.cfg.MaxIterations > 0 {
		opts = append(opts, graph.WithMaxIterations(a.cfg.MaxIterations))
	}
	m, err := builder.Build(ctx, a.model.Graph, a.converter, a.weights, opts...)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}
	defer m.Clean()

	stats, err := m.Optimize(ctx, !a.cfg.NoFusion)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	order := m.NodesInOrder()
	nodes := make([]*ir.Node, 0, len(order))
	for _, name := range order {
		n, ok := m.Node(name)
		if !ok {
			return fmt.Errorf("node %q of the execution order is missing", name)
		}
		nodes = append(nodes, n)
	}
	if err := a.registry.Validate(ctx, nodes, a.cfg.Target); err != nil {
		return fmt.Errorf("graph can not run on target %q: %w", a.cfg.Target, err)
	}

	rep := newReport(m, nodes, stats, a.cfg)
	a.logger.Info("Graph compiled.", "graph", rep.Graph, "run_id", rep.RunID, "nodes", len(rep.Order), "fused", rep.Fused)
	if err := rep.write(a.outW, a.cfg.PrintFormat); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
