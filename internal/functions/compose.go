package functions

import (
	"time"

	"github.com/gtn-go/gtn/internal/graph"
	"github.com/gtn-go/gtn/internal/logging"
	"github.com/gtn-go/gtn/internal/metrics"
)

// Epsilon filter states. A composed state is (n1, n2, filter); the filter
// forbids the redundant orderings of epsilon moves so every path of the
// result corresponds to exactly one pair of paths of the operands.
const (
	filterNone   = 0 // last move was a real match or an epsilon:epsilon match
	filterFirst  = 1 // last move advanced the first graph alone
	filterSecond = 2 // last move advanced the second graph alone
)

// composeOp remembers, for every arc of the composed graph, the arc of each
// operand it came from (-1 when that operand did not move).
type composeOp struct {
	name   string
	first  []int
	second []int
}

func (op composeOp) Name() string { return op.name }

// Backward: composed weight is w(a1) + w(a2), so each delta flows unchanged
// to both source arcs.
func (op composeOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	scatter := func(in *graph.Graph, origin []int) error {
		if !in.CalcGrad() {
			return nil
		}
		grad := make([]float64, in.NumArcs())
		for i, a := range origin {
			if a >= 0 {
				grad[a] += deltas[i]
			}
		}
		return in.AddGrad(grad)
	}
	if err := scatter(inputs[0], op.first); err != nil {
		return err
	}
	return scatter(inputs[1], op.second)
}

// Compose returns the composition of transducers g1 and g2: an arc for every
// pair whose first output label equals the second input label, plus epsilon
// moves on either side. Composed weights add.
func Compose(g1, g2 *graph.Graph) (*graph.Graph, error) {
	return ComposeWithMatcher(g1, g2, MatcherAuto)
}

// ComposeWithMatcher is Compose with an explicit arc matching strategy.
func ComposeWithMatcher(g1, g2 *graph.Graph, kind MatcherKind) (*graph.Graph, error) {
	first := matchSide{g: g1, key: g1.OLabel}
	second := matchSide{g: g2, key: g2.ILabel}
	return compose(opCompose, g1, g2, first, second, kind)
}

// Intersect returns the intersection of acceptors g1 and g2, matching arcs
// with equal labels.
func Intersect(g1, g2 *graph.Graph) (*graph.Graph, error) {
	return IntersectWithMatcher(g1, g2, MatcherAuto)
}

// IntersectWithMatcher is Intersect with an explicit arc matching strategy.
func IntersectWithMatcher(g1, g2 *graph.Graph, kind MatcherKind) (*graph.Graph, error) {
	first := matchSide{g: g1, key: g1.ILabel}
	second := matchSide{g: g2, key: g2.ILabel}
	return compose(opIntersect, g1, g2, first, second, kind)
}

type composeState struct {
	n1, n2, filter int
}

type composeArc struct {
	src, dst       int
	ilabel, olabel int
	weight         float64
	a1, a2         int
}

// composer holds the product automaton while it is explored.
type composer struct {
	first, second matchSide
	ids           map[composeState]int
	states        []composeState
	start         []bool
	arcs          []composeArc
	queue         []int
}

func (c *composer) node(s composeState, isStart bool) int {
	if id, ok := c.ids[s]; ok {
		return id
	}
	id := len(c.states)
	c.ids[s] = id
	c.states = append(c.states, s)
	c.start = append(c.start, isStart)
	c.queue = append(c.queue, id)
	return id
}

func (c *composer) accept(id int) bool {
	s := c.states[id]
	return c.first.g.IsAccept(s.n1) && c.second.g.IsAccept(s.n2)
}

func (c *composer) addArc(src int, dst composeState, ilabel, olabel int, weight float64, a1, a2 int) {
	c.arcs = append(c.arcs, composeArc{
		src: src, dst: c.node(dst, false),
		ilabel: ilabel, olabel: olabel, weight: weight,
		a1: a1, a2: a2,
	})
}

// compose explores the product automaton from the start pairs with a
// worklist, then drops states that cannot reach an accepting pair.
//
// Arc order: states are expanded in discovery order; within a state, matched
// pairs in matcher order, then first-side epsilon moves, then second-side
// epsilon moves.
func compose(op string, g1, g2 *graph.Graph, first, second matchSide, kind MatcherKind) (*graph.Graph, error) {
	defer observe(op, time.Now())
	matcher, kind, err := newMatcher(op, kind, first, second)
	if err != nil {
		return nil, err
	}

	c := &composer{first: first, second: second, ids: make(map[composeState]int)}
	for _, s1 := range g1.Start() {
		for _, s2 := range g2.Start() {
			c.node(composeState{n1: s1, n2: s2, filter: filterNone}, true)
		}
	}

	for len(c.queue) > 0 {
		cur := c.queue[0]
		c.queue = c.queue[1:]
		s := c.states[cur]

		for a1, a2 := range matcher.Matches(s.n1, s.n2) {
			if first.key(a1) == graph.Epsilon && s.filter != filterNone {
				continue
			}
			dst := composeState{n1: g1.DstNode(a1), n2: g2.DstNode(a2), filter: filterNone}
			c.addArc(cur, dst, g1.ILabel(a1), g2.OLabel(a2), g1.Weight(a1)+g2.Weight(a2), a1, a2)
		}
		if s.filter != filterSecond {
			for _, a1 := range g1.Out(s.n1) {
				if first.key(a1) != graph.Epsilon {
					continue
				}
				dst := composeState{n1: g1.DstNode(a1), n2: s.n2, filter: filterFirst}
				c.addArc(cur, dst, g1.ILabel(a1), graph.Epsilon, g1.Weight(a1), a1, -1)
			}
		}
		if s.filter != filterFirst {
			for _, a2 := range g2.Out(s.n2) {
				if second.key(a2) != graph.Epsilon {
					continue
				}
				dst := composeState{n1: s.n1, n2: g2.DstNode(a2), filter: filterSecond}
				c.addArc(cur, dst, graph.Epsilon, g2.OLabel(a2), g2.Weight(a2), -1, a2)
			}
		}
	}
	metrics.ComposeStates.Add(float64(len(c.states)))

	return c.trimmed(op, g1, g2, kind), nil
}

// trimmed materializes the explored states that can reach an accepting
// state, keeping discovery order for nodes and arcs.
func (c *composer) trimmed(op string, g1, g2 *graph.Graph, kind MatcherKind) *graph.Graph {
	incoming := make([][]int, len(c.states))
	for i, a := range c.arcs {
		incoming[a.dst] = append(incoming[a.dst], i)
	}
	live := make([]bool, len(c.states))
	var stack []int
	for id := range c.states {
		if c.accept(id) {
			live[id] = true
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, i := range incoming[id] {
			if src := c.arcs[i].src; !live[src] {
				live[src] = true
				stack = append(stack, src)
			}
		}
	}

	cop := composeOp{name: op}
	out := graph.NewDerived(&cop, g1.WithoutWeights(), g2.WithoutWeights())
	newID := make([]int, len(c.states))
	for id := range c.states {
		newID[id] = -1
		if live[id] {
			newID[id] = out.AddNode(c.start[id], c.accept(id))
		}
	}
	for _, a := range c.arcs {
		if !live[a.src] || !live[a.dst] {
			continue
		}
		out.MustAddArc(newID[a.src], newID[a.dst], a.ilabel, a.olabel, a.weight)
		cop.first = append(cop.first, a.a1)
		cop.second = append(cop.second, a.a2)
	}
	logging.Logger().Debug("composed graphs",
		"op", op, "matcher", kind.String(),
		"explored", len(c.states), "nodes", out.NumNodes(), "arcs", out.NumArcs())
	return out
}
