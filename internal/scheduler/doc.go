// Package scheduler computes execution orders for the graph.
//
// # Why Scheduler Exists
//
// The execution engine needs a linear order in which every node comes after
// the nodes it depends on. The graph itself only knows adjacency; the
// scheduler turns that into an order, and does it deterministically so the
// same graph always yields the same order:
//   - **Kahn's algorithm:** nodes with no pending dependencies enter a FIFO
//     ready queue; the queue is seeded in node insertion order.
//   - **Tie breaking:** among ready nodes, the one that became ready first
//     goes first. No map iteration order leaks into the result.
//   - **Cycle reporting:** a graph that can not be fully ordered is reported
//     as an InvalidGraph error rather than a partial order.
//
// # Relationship with Other Components
//
//   - **ir.Graph:** satisfies Topology directly.
//   - **graph.Manager:** orders the graph at freeze and after every commit.
//   - **fusion.Engine:** scans candidates in the order returned here.
package scheduler
