package graph

import (
	"cmp"
	"slices"
)

// arcKey is an arc seen from one endpoint: the other endpoint plus its labels
// and weight.
type arcKey struct {
	node   int
	ilabel int
	olabel int
	weight float64
}

func compareArcKeys(a, b arcKey) int {
	if c := cmp.Compare(a.node, b.node); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ilabel, b.ilabel); c != 0 {
		return c
	}
	if c := cmp.Compare(a.olabel, b.olabel); c != 0 {
		return c
	}
	return cmp.Compare(a.weight, b.weight)
}

// Equal reports whether g1 and g2 are the same graph under the same node
// numbering: identical start/accept flags per node and, per node, the same
// multiset of outgoing (destination, ilabel, olabel, weight) arcs.
func Equal(g1, g2 *Graph) bool {
	if g1.NumNodes() != g2.NumNodes() || g1.NumArcs() != g2.NumArcs() {
		return false
	}
	for n := range g1.nodes {
		if g1.nodes[n].start != g2.nodes[n].start || g1.nodes[n].accept != g2.nodes[n].accept {
			return false
		}
		if !slices.Equal(outKeys(g1, n, nil), outKeys(g2, n, nil)) {
			return false
		}
	}
	return true
}

// outKeys returns the sorted outgoing arcs of n. When mapped is non-nil only
// arcs whose destination has an entry >= 0 are kept, keyed by that entry.
func outKeys(g *Graph, n int, mapped []int) []arcKey {
	keys := make([]arcKey, 0, len(g.nodes[n].out))
	for _, a := range g.nodes[n].out {
		dst := g.arcs[a].dst
		if mapped != nil {
			if mapped[dst] < 0 {
				continue
			}
			dst = mapped[dst]
		}
		keys = append(keys, arcKey{node: dst, ilabel: g.arcs[a].ilabel, olabel: g.arcs[a].olabel, weight: g.arcs[a].weight})
	}
	slices.SortFunc(keys, compareArcKeys)
	return keys
}

// inKeys mirrors outKeys for incoming arcs.
func inKeys(g *Graph, n int, mapped []int) []arcKey {
	keys := make([]arcKey, 0, len(g.nodes[n].in))
	for _, a := range g.nodes[n].in {
		src := g.arcs[a].src
		if mapped != nil {
			if mapped[src] < 0 {
				continue
			}
			src = mapped[src]
		}
		keys = append(keys, arcKey{node: src, ilabel: g.arcs[a].ilabel, olabel: g.arcs[a].olabel, weight: g.arcs[a].weight})
	}
	slices.SortFunc(keys, compareArcKeys)
	return keys
}

// signature summarizes a node independently of numbering.
type signature struct {
	start, accept bool
	in, out       []arcKey // node field zeroed
}

func nodeSignature(g *Graph, n int) signature {
	strip := func(keys []arcKey) []arcKey {
		for i := range keys {
			keys[i].node = 0
		}
		slices.SortFunc(keys, compareArcKeys)
		return keys
	}
	return signature{
		start:  g.nodes[n].start,
		accept: g.nodes[n].accept,
		in:     strip(inKeys(g, n, nil)),
		out:    strip(outKeys(g, n, nil)),
	}
}

func (s signature) equal(o signature) bool {
	return s.start == o.start && s.accept == o.accept && slices.Equal(s.in, o.in) && slices.Equal(s.out, o.out)
}

// Isomorphic reports whether g1 and g2 are equal up to a renumbering of
// nodes. It backtracks over node assignments, pruning by per-node signature
// and by arcs between already-assigned nodes.
func Isomorphic(g1, g2 *Graph) bool {
	if g1.NumNodes() != g2.NumNodes() || g1.NumArcs() != g2.NumArcs() ||
		g1.NumStart() != g2.NumStart() || g1.NumAccept() != g2.NumAccept() {
		return false
	}
	n := g1.NumNodes()
	sig1 := make([]signature, n)
	sig2 := make([]signature, n)
	for i := 0; i < n; i++ {
		sig1[i] = nodeSignature(g1, i)
		sig2[i] = nodeSignature(g2, i)
	}
	candidates := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if sig1[i].equal(sig2[j]) {
				candidates[i] = append(candidates[i], j)
			}
		}
		if len(candidates[i]) == 0 {
			return false
		}
	}

	m := &isoMatcher{
		g1: g1, g2: g2,
		order:      connectedOrder(g1),
		candidates: candidates,
		fwd:        filled(n, -1),
		inv:        filled(n, -1),
	}
	return m.assign(0)
}

type isoMatcher struct {
	g1, g2     *Graph
	order      []int
	candidates [][]int
	fwd, inv   []int
}

func (m *isoMatcher) assign(depth int) bool {
	if depth == len(m.order) {
		return true
	}
	u := m.order[depth]
	for _, v := range m.candidates[u] {
		if m.inv[v] >= 0 {
			continue
		}
		m.fwd[u], m.inv[v] = v, u
		if m.consistent(u, v) && m.assign(depth+1) {
			return true
		}
		m.fwd[u], m.inv[v] = -1, -1
	}
	return false
}

// consistent checks the arcs between u and every assigned node against the
// arcs between v and their images.
func (m *isoMatcher) consistent(u, v int) bool {
	identity := make([]int, len(m.inv))
	for i, x := range m.inv {
		if x >= 0 {
			identity[i] = i
		} else {
			identity[i] = -1
		}
	}
	return slices.Equal(outKeys(m.g1, u, m.fwd), outKeys(m.g2, v, identity)) &&
		slices.Equal(inKeys(m.g1, u, m.fwd), inKeys(m.g2, v, identity))
}

// connectedOrder lists nodes breadth-first over arcs in both directions,
// starting from start nodes, so each node is assigned next to its
// neighbours.
func connectedOrder(g *Graph) []int {
	seen := make([]bool, g.NumNodes())
	order := make([]int, 0, g.NumNodes())
	visit := func(root int) {
		if seen[root] {
			return
		}
		seen[root] = true
		queue := []int{root}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			order = append(order, n)
			for _, a := range g.nodes[n].out {
				if d := g.arcs[a].dst; !seen[d] {
					seen[d] = true
					queue = append(queue, d)
				}
			}
			for _, a := range g.nodes[n].in {
				if s := g.arcs[a].src; !seen[s] {
					seen[s] = true
					queue = append(queue, s)
				}
			}
		}
	}
	for _, s := range g.start {
		visit(s)
	}
	for n := range g.nodes {
		visit(n)
	}
	return order
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
