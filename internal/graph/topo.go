package graph

import "fmt"

// TopologicalOrder returns the nodes of g ordered so that every arc goes from
// an earlier node to a later one (Kahn's algorithm; ties keep node order).
// If g has a cycle, including a self-loop, ErrCyclic is returned.
//
// Complexity: O(V + E) time, O(V) memory.
func (g *Graph) TopologicalOrder() ([]int, error) {
	inDegree := make([]int, len(g.nodes))
	for i := range g.nodes {
		inDegree[i] = len(g.nodes[i].in)
	}
	queue := make([]int, 0, len(g.nodes))
	for n, d := range inDegree {
		if d == 0 {
			queue = append(queue, n)
		}
	}
	order := make([]int, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, a := range g.nodes[n].out {
			dst := g.arcs[a].dst
			inDegree[dst]--
			if inDegree[dst] == 0 {
				queue = append(queue, dst)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("%w: %d of %d nodes lie on or behind a cycle",
			ErrCyclic, len(g.nodes)-len(order), len(g.nodes))
	}
	return order, nil
}

// IsAcyclic reports whether g has no directed cycle.
func (g *Graph) IsAcyclic() bool {
	_, err := g.TopologicalOrder()
	return err == nil
}
