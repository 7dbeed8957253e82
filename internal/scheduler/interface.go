package scheduler

// Topology is the read-only view of a DAG the scheduler works on.
//
// Vertices must return every vertex in a stable order; it seeds the ready
// queue. Successors must return a vertex's dependents in a stable order.
type Topology[K comparable] interface {
	Vertices() []K
	Successors(K) []K
	InDegree(K) int
}
