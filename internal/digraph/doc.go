// Package digraph is the generic adjacency-list container underneath the
// graph IR.
//
// It is parameterized over a vertex key type, a vertex payload type and an
// arc payload type. Vertices iterate in insertion order and every vertex keeps
// ordered successor and predecessor lists, so traversal is O(1) per neighbour
// and every walk over the graph is deterministic. AddArc refuses arcs that
// would close a cycle, which keeps the container a DAG at all times.
package digraph
