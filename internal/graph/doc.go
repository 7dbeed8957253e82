// Package graph provides the Build API: the controlled mutation surface that
// turns a model description into a frozen, optimized and execution-ordered
// graph.
//
// # Why Graph Package Exists
//
// The IR packages underneath (ir, vgraph, fusion, calib, scheduler) each own
// one concern and trust their callers. Manager is the facade that enforces
// the lifecycle across all of them:
//
//	   Open ──Freeze──▶ Frozen ──Optimize──▶ Optimized ──Optimize──▶ ...
//	(add ops,        (topology fixed;      (fusion committed;
//	 declare vars,    attributes and        re-running is a no-op
//	 register outs)   calibration mutable)  without new mutation)
//
// # Responsibilities
//
//   - **Build phase:** ops are declared with the variable names they read and
//     write; edges do not exist until Freeze resolves those names.
//   - **Freeze:** resolves variables into edges, registers outputs, computes
//     the boundary and the first execution order. It is atomic: on error the
//     Manager is still Open and unchanged.
//   - **Optimize:** snapshots the graph, fuses on the detached copy and
//     commits the result as a whole. Calibration entries follow rewired edges.
//     Without fusion only layouts are normalized and the state stays Frozen.
//   - **Clean:** releases weight blocks and starts over with an empty Open
//     graph.
//   - **Queries:** execution order, scale and layout maps, merge provenance.
//
// # Thread-Safety
//
// One RWMutex guards the whole Manager. Mutations take it exclusively and
// queries take it shared, so a half-applied rewrite is never observable.
// Optimize holds the lock only to snapshot and to commit; concurrent Optimize
// calls are serialized by a second mutex.
package graph
