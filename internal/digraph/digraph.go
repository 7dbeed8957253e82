package digraph

import (
	"fmt"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New[K comparable, V any, E any]() *Graph[K, V, E] {
	return &Graph[K, V, E]{
		vertices: make(map[K]*vertex[K, V, E]),
	}
}

// AddVertex adds a vertex with the given key and payload at the end of the
// insertion order.
func (g *Graph[K, V, E]) AddVertex(key K, val V) error {
	seq := g.nextSeq
	return g.AddVertexAt(key, val, seq)
}

// AddVertexAt adds a vertex with an explicit sequence number. It is used to
// put a replacement vertex at the position of the vertex it replaces.
func (g *Graph[K, V, E]) AddVertexAt(key K, val V, seq uint64) error {
	if _, ok := g.vertices[key]; ok {
		return fmt.Errorf("%w: %v", ErrVertexExists, key)
	}
	g.vertices[key] = &vertex[K, V, E]{
		key:     key,
		val:     val,
		seq:     seq,
		outArcs: make(map[K]E),
	}
	if seq >= g.nextSeq {
		g.nextSeq = seq + 1
	}
	return nil
}

// HasVertex reports whether key is in the graph.
func (g *Graph[K, V, E]) HasVertex(key K) bool {
	_, ok := g.vertices[key]
	return ok
}

// Vertex returns the payload of key.
func (g *Graph[K, V, E]) Vertex(key K) (V, bool) {
	v, ok := g.vertices[key]
	if !ok {
		var zero V
		return zero, false
	}
	return v.val, true
}

// SetVertex replaces the payload of an existing vertex.
func (g *Graph[K, V, E]) SetVertex(key K, val V) error {
	v, ok := g.vertices[key]
	if !ok {
		return fmt.Errorf("%w: %v", ErrVertexNotFound, key)
	}
	v.val = val
	return nil
}

// Seq returns the sequence number of key.
func (g *Graph[K, V, E]) Seq(key K) (uint64, bool) {
	v, ok := g.vertices[key]
	if !ok {
		return 0, false
	}
	return v.seq, true
}

// RemoveVertex removes key and every arc touching it. The removed arcs are
// returned, incoming first.
func (g *Graph[K, V, E]) RemoveVertex(key K) ([]Arc[K, E], error) {
	v, ok := g.vertices[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrVertexNotFound, key)
	}

	removed := make([]Arc[K, E], 0, len(v.in)+len(v.out))
	for _, from := range append([]K(nil), v.in...) {
		e, _ := g.RemoveArc(from, key)
		removed = append(removed, Arc[K, E]{From: from, To: key, Value: e})
	}
	for _, to := range append([]K(nil), v.out...) {
		e, _ := g.RemoveArc(key, to)
		removed = append(removed, Arc[K, E]{From: key, To: to, Value: e})
	}
	delete(g.vertices, key)
	return removed, nil
}

// AddArc creates a directed arc from `from` to `to`, meaning `to` depends on
// `from`. It fails if either vertex is missing, if the arc is a self loop,
// if the pair is already connected, or if the arc would close a cycle.
func (g *Graph[K, V, E]) AddArc(from, to K, val E) error {
	if from == to {
		return fmt.Errorf("%w: %v -> %v", ErrSelfLoop, from, to)
	}

	fromV, ok := g.vertices[from]
	if !ok {
		return fmt.Errorf("%w: source %v", ErrVertexNotFound, from)
	}
	toV, ok := g.vertices[to]
	if !ok {
		return fmt.Errorf("%w: destination %v", ErrVertexNotFound, to)
	}
	if _, exists := fromV.outArcs[to]; exists {
		return fmt.Errorf("%w: %v -> %v", ErrArcExists, from, to)
	}
	if g.Reachable(to, from) {
		return fmt.Errorf("%w: %v -> %v", ErrCycle, from, to)
	}

	fromV.out = append(fromV.out, to)
	fromV.outArcs[to] = val
	toV.in = append(toV.in, from)
	g.arcs++
	return nil
}

// RemoveArc deletes the arc from `from` to `to` and returns its payload.
func (g *Graph[K, V, E]) RemoveArc(from, to K) (E, error) {
	var zero E
	fromV, ok := g.vertices[from]
	if !ok {
		return zero, fmt.Errorf("%w: %v -> %v", ErrArcNotFound, from, to)
	}
	val, ok := fromV.outArcs[to]
	if !ok {
		return zero, fmt.Errorf("%w: %v -> %v", ErrArcNotFound, from, to)
	}

	delete(fromV.outArcs, to)
	fromV.out = without(fromV.out, to)
	if toV, ok := g.vertices[to]; ok {
		toV.in = without(toV.in, from)
	}
	g.arcs--
	return val, nil
}

// Arc returns the payload of the arc from `from` to `to`.
func (g *Graph[K, V, E]) Arc(from, to K) (E, bool) {
	v, ok := g.vertices[from]
	if !ok {
		var zero E
		return zero, false
	}
	val, ok := v.outArcs[to]
	return val, ok
}

// SetArc replaces the payload of an existing arc.
func (g *Graph[K, V, E]) SetArc(from, to K, val E) error {
	v, ok := g.vertices[from]
	if !ok {
		return fmt.Errorf("%w: %v -> %v", ErrArcNotFound, from, to)
	}
	if _, ok := v.outArcs[to]; !ok {
		return fmt.Errorf("%w: %v -> %v", ErrArcNotFound, from, to)
	}
	v.outArcs[to] = val
	return nil
}

// Successors returns the keys of the vertices that depend on key, in arc
// insertion order.
func (g *Graph[K, V, E]) Successors(key K) []K {
	v, ok := g.vertices[key]
	if !ok {
		return nil
	}
	return append([]K(nil), v.out...)
}

// Predecessors returns the keys of the vertices key depends on, in arc
// insertion order.
func (g *Graph[K, V, E]) Predecessors(key K) []K {
	v, ok := g.vertices[key]
	if !ok {
		return nil
	}
	return append([]K(nil), v.in...)
}

// OutArcs returns the arcs leaving key, in insertion order.
func (g *Graph[K, V, E]) OutArcs(key K) []Arc[K, E] {
	v, ok := g.vertices[key]
	if !ok {
		return nil
	}
	arcs := make([]Arc[K, E], len(v.out))
	for i, to := range v.out {
		arcs[i] = Arc[K, E]{From: key, To: to, Value: v.outArcs[to]}
	}
	return arcs
}

// InArcs returns the arcs entering key, in insertion order.
func (g *Graph[K, V, E]) InArcs(key K) []Arc[K, E] {
	v, ok := g.vertices[key]
	if !ok {
		return nil
	}
	arcs := make([]Arc[K, E], len(v.in))
	for i, from := range v.in {
		arcs[i] = Arc[K, E]{From: from, To: key, Value: g.vertices[from].outArcs[key]}
	}
	return arcs
}

// InDegree returns the number of arcs entering key.
func (g *Graph[K, V, E]) InDegree(key K) int {
	if v, ok := g.vertices[key]; ok {
		return len(v.in)
	}
	return 0
}

// OutDegree returns the number of arcs leaving key.
func (g *Graph[K, V, E]) OutDegree(key K) int {
	if v, ok := g.vertices[key]; ok {
		return len(v.out)
	}
	return 0
}

// Len returns the number of vertices.
func (g *Graph[K, V, E]) Len() int {
	return len(g.vertices)
}

// ArcLen returns the number of arcs.
func (g *Graph[K, V, E]) ArcLen() int {
	return g.arcs
}

// Vertices returns every key in insertion order.
func (g *Graph[K, V, E]) Vertices() []K {
	vs := make([]*vertex[K, V, E], 0, len(g.vertices))
	for _, v := range g.vertices {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].seq < vs[j].seq })

	keys := make([]K, len(vs))
	for i, v := range vs {
		keys[i] = v.key
	}
	return keys
}

// Arcs returns every arc, grouped by source vertex in insertion order.
func (g *Graph[K, V, E]) Arcs() []Arc[K, E] {
	arcs := make([]Arc[K, E], 0, g.arcs)
	for _, k := range g.Vertices() {
		arcs = append(arcs, g.OutArcs(k)...)
	}
	return arcs
}

// Reachable reports whether `to` can be reached from `from` by following
// arcs. A vertex always reaches itself.
func (g *Graph[K, V, E]) Reachable(from, to K) bool {
	if from == to {
		return g.HasVertex(from)
	}
	seen := map[K]bool{from: true}
	stack := []K{from}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		v, ok := g.vertices[k]
		if !ok {
			continue
		}
		for _, next := range v.out {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// naming the first vertex found on a cycle. AddArc keeps the graph acyclic,
// so a failure here points at a bug in a caller that bypassed it.
func (g *Graph[K, V, E]) DetectCycles() error {
	// Classic depth-first search with three sets of vertices:
	// permanent: fully visited and not part of a cycle.
	// temporary: on the recursion stack of the current traversal.
	// unvisited: everything else.
	permanent := make(map[K]bool)
	temporary := make(map[K]bool)

	var visit func(v *vertex[K, V, E]) error
	visit = func(v *vertex[K, V, E]) error {
		if permanent[v.key] {
			return nil
		}
		if temporary[v.key] {
			return fmt.Errorf("%w: involving vertex %v", ErrCycle, v.key)
		}

		temporary[v.key] = true
		for _, next := range v.out {
			if err := visit(g.vertices[next]); err != nil {
				return err
			}
		}
		delete(temporary, v.key)
		permanent[v.key] = true
		return nil
	}

	for _, k := range g.Vertices() {
		if err := visit(g.vertices[k]); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of g. cloneV and cloneE copy payloads; nil
// functions copy payloads by value.
func (g *Graph[K, V, E]) Clone(cloneV func(V) V, cloneE func(E) E) *Graph[K, V, E] {
	c := &Graph[K, V, E]{
		vertices: make(map[K]*vertex[K, V, E], len(g.vertices)),
		nextSeq:  g.nextSeq,
		arcs:     g.arcs,
	}
	for k, v := range g.vertices {
		nv := &vertex[K, V, E]{
			key:     k,
			val:     v.val,
			seq:     v.seq,
			out:     append([]K(nil), v.out...),
			in:      append([]K(nil), v.in...),
			outArcs: make(map[K]E, len(v.outArcs)),
		}
		if cloneV != nil {
			nv.val = cloneV(v.val)
		}
		for to, e := range v.outArcs {
			if cloneE != nil {
				e = cloneE(e)
			}
			nv.outArcs[to] = e
		}
		c.vertices[k] = nv
	}
	return c
}

// without returns keys with the first occurrence of k removed.
func without[K comparable](keys []K, k K) []K {
	for i, x := range keys {
		if x == k {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}
