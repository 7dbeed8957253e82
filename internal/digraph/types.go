package digraph

import "errors"

// Graph is a directed acyclic graph keyed by K, carrying a V payload per
// vertex and an E payload per arc. At most one arc exists per ordered pair
// of vertices.
//
// A Graph is not safe for concurrent mutation. Owners wrap the whole graph
// in a single lock instead of locking individual fields.
type Graph[K comparable, V any, E any] struct {
	// vertices stores all vertices, keyed by their unique ID.
	vertices map[K]*vertex[K, V, E]
	// nextSeq is the sequence number given to the next added vertex.
	nextSeq uint64
	// arcs counts the arcs currently in the graph.
	arcs int
}

// vertex is a single node of the graph. It is un-exported so callers go
// through the Graph API using keys, not by direct struct manipulation.
type vertex[K comparable, V any, E any] struct {
	key K
	val V
	// seq orders vertices by insertion; a replacement vertex may inherit the
	// sequence number of the one it replaces.
	seq uint64
	// out holds successor keys in arc insertion order.
	out []K
	// in holds predecessor keys in arc insertion order.
	in []K
	// outArcs holds the payload of each outgoing arc.
	outArcs map[K]E
}

// Arc is a directed arc with its payload.
type Arc[K comparable, E any] struct {
	From  K
	To    K
	Value E
}

// Errors returned by graph mutations. They are wrapped with the offending
// keys, so compare with errors.Is.
var (
	ErrVertexNotFound = errors.New("vertex not found")
	ErrVertexExists   = errors.New("vertex already exists")
	ErrArcNotFound    = errors.New("arc not found")
	ErrArcExists      = errors.New("arc already exists")
	ErrSelfLoop       = errors.New("self-referential arc not allowed")
	ErrCycle          = errors.New("arc would create a cycle")
)
