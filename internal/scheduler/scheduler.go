package scheduler

import (
	"github.com/specialistvlad/infergraph/internal/gerr"
)

// Order returns the vertices of t in topological order. It returns an
// InvalidGraph error naming the number of vertices left unordered when t has
// a cycle.
func Order[K comparable](t Topology[K]) ([]K, error) {
	order, _, err := kahn(t)
	return order, err
}

// Levels groups the topological order into dependency levels: every vertex
// in level i depends only on vertices in levels below i. Vertices in the same
// level are independent and may run concurrently.
func Levels[K comparable](t Topology[K]) ([][]K, error) {
	order, depth, err := kahn(t)
	if err != nil {
		return nil, err
	}
	var levels [][]K
	for _, k := range order {
		d := depth[k]
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], k)
	}
	return levels, nil
}

func kahn[K comparable](t Topology[K]) ([]K, map[K]int, error) {
	vertices := t.Vertices()
	pending := make(map[K]int, len(vertices))
	depth := make(map[K]int, len(vertices))
	queue := make([]K, 0, len(vertices))

	for _, v := range vertices {
		pending[v] = t.InDegree(v)
		if pending[v] == 0 {
			queue = append(queue, v)
		}
	}

	order := make([]K, 0, len(vertices))
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		order = append(order, v)
		for _, next := range t.Successors(v) {
			if depth[v]+1 > depth[next] {
				depth[next] = depth[v] + 1
			}
			pending[next]--
			if pending[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(vertices) {
		return nil, nil, gerr.New(gerr.InvalidGraph, "graph has a cycle: %d of %d nodes can not be ordered",
			len(vertices)-len(order), len(vertices))
	}
	return order, depth, nil
}
