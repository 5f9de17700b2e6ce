// Package graph implements the weighted automaton data model together with
// its reverse-mode differentiation bookkeeping.
//
// Architecture:
//   - Graph owns ordered nodes and arcs. Arc insertion order is part of the
//     contract: gradient rules slice deltas by it.
//   - Every graph points to an autograd record: gradient tracking flag,
//     gradient accumulator, input graphs and the Operation that built it.
//   - Operation: one implementation per derived-graph kind, carrying the
//     auxiliary data its backward rule needs (see internal/functions).
//   - Backward walks the provenance DAG once, dependents before inputs.
//
// Usage:
//
//	g := graph.New(true)
//	g.AddNode(true, false)
//	g.AddNode(false, true)
//	g.MustAddArc(0, 1, 0, 0, 1.5)
//	score, _ := functions.ForwardScore(g)
//	_ = graph.Backward(score)
//	fmt.Println(g.Grad()) // [1]
package graph

import (
	"cmp"
	"fmt"
	"slices"
	"sync/atomic"
)

// Epsilon is the label of an arc that consumes or emits no symbol.
const Epsilon = -1

type node struct {
	start  bool
	accept bool
	in     []int // incoming arc indices
	out    []int // outgoing arc indices
}

type arc struct {
	src    int
	dst    int
	ilabel int
	olabel int
	weight float64
}

// Graph is a weighted finite-state transducer with gradient tracking.
//
// A Graph is built either as a leaf (explicit AddNode/AddArc calls) or by an
// operation in internal/functions. Once a graph has been used as the input of
// an operation its nodes and arcs are frozen; only its gradient keeps
// accumulating.
type Graph struct {
	nodes  []node
	arcs   []arc
	start  []int
	accept []int
	frozen atomic.Bool // set concurrently when a shared leaf feeds several operations
	ag     *autograd   // shared with WithoutWeights copies
}

// New creates an empty leaf graph. calcGrad enables gradient tracking.
func New(calcGrad bool) *Graph {
	return &Graph{ag: &autograd{calcGrad: calcGrad}}
}

// NewDerived creates an empty graph produced by op from inputs.
//
// The result tracks gradients when any input does. Inputs are frozen, and
// are only retained when the result tracks gradients, since nothing else
// reads them.
func NewDerived(op Operation, inputs ...*Graph) *Graph {
	calcGrad := false
	for _, in := range inputs {
		in.frozen.Store(true)
		calcGrad = calcGrad || in.CalcGrad()
	}
	g := New(calcGrad)
	if calcGrad {
		g.ag.op = op
		g.ag.inputs = inputs
	}
	return g
}

// AddNode appends a node and returns its index.
// It panics if the graph is frozen.
func (g *Graph) AddNode(isStart, isAccept bool) int {
	if g.frozen.Load() {
		panic(&OpError{Op: "Graph.AddNode", Err: ErrFrozen})
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, node{start: isStart, accept: isAccept})
	if isStart {
		g.start = append(g.start, idx)
	}
	if isAccept {
		g.accept = append(g.accept, idx)
	}
	return idx
}

// AddArc appends an arc from src to dst and returns its index.
func (g *Graph) AddArc(src, dst, ilabel, olabel int, weight float64) (int, error) {
	if g.frozen.Load() {
		return -1, &OpError{Op: "Graph.AddArc", Err: ErrFrozen}
	}
	if src < 0 || src >= len(g.nodes) {
		return -1, Errorf("Graph.AddArc", ErrInvalidNode, "src %d, graph has %d nodes", src, len(g.nodes))
	}
	if dst < 0 || dst >= len(g.nodes) {
		return -1, Errorf("Graph.AddArc", ErrInvalidNode, "dst %d, graph has %d nodes", dst, len(g.nodes))
	}
	idx := len(g.arcs)
	g.arcs = append(g.arcs, arc{src: src, dst: dst, ilabel: ilabel, olabel: olabel, weight: weight})
	g.nodes[src].out = append(g.nodes[src].out, idx)
	g.nodes[dst].in = append(g.nodes[dst].in, idx)
	return idx, nil
}

// MustAddArc is like AddArc but panics on error.
func (g *Graph) MustAddArc(src, dst, ilabel, olabel int, weight float64) int {
	idx, err := g.AddArc(src, dst, ilabel, olabel, weight)
	if err != nil {
		panic(err)
	}
	return idx
}

// MakeAccept marks node n as accepting. It is a no-op if n already accepts.
func (g *Graph) MakeAccept(n int) {
	if g.frozen.Load() {
		panic(&OpError{Op: "Graph.MakeAccept", Err: ErrFrozen})
	}
	if g.nodes[n].accept {
		return
	}
	g.nodes[n].accept = true
	g.accept = append(g.accept, n)
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumArcs returns the number of arcs.
func (g *Graph) NumArcs() int { return len(g.arcs) }

// NumStart returns the number of start nodes.
func (g *Graph) NumStart() int { return len(g.start) }

// NumAccept returns the number of accept nodes.
func (g *Graph) NumAccept() int { return len(g.accept) }

// Start returns the start node indices in insertion order.
// The slice is owned by the graph and must not be modified.
func (g *Graph) Start() []int { return g.start }

// Accept returns the accept node indices in the order they became accepting.
// The slice is owned by the graph and must not be modified.
func (g *Graph) Accept() []int { return g.accept }

// IsStart reports whether node n is a start node.
func (g *Graph) IsStart(n int) bool { return g.nodes[n].start }

// IsAccept reports whether node n is an accept node.
func (g *Graph) IsAccept(n int) bool { return g.nodes[n].accept }

// In returns the incoming arc indices of node n (owned by the graph).
func (g *Graph) In(n int) []int { return g.nodes[n].in }

// Out returns the outgoing arc indices of node n (owned by the graph).
func (g *Graph) Out(n int) []int { return g.nodes[n].out }

// NumIn returns the number of arcs entering node n.
func (g *Graph) NumIn(n int) int { return len(g.nodes[n].in) }

// NumOut returns the number of arcs leaving node n.
func (g *Graph) NumOut(n int) int { return len(g.nodes[n].out) }

// SrcNode returns the source node of arc a.
func (g *Graph) SrcNode(a int) int { return g.arcs[a].src }

// DstNode returns the destination node of arc a.
func (g *Graph) DstNode(a int) int { return g.arcs[a].dst }

// ILabel returns the input label of arc a.
func (g *Graph) ILabel(a int) int { return g.arcs[a].ilabel }

// OLabel returns the output label of arc a.
func (g *Graph) OLabel(a int) int { return g.arcs[a].olabel }

// Label returns the input label of arc a; for acceptors it is the only label.
func (g *Graph) Label(a int) int { return g.arcs[a].ilabel }

// Weight returns the weight of arc a.
func (g *Graph) Weight(a int) float64 { return g.arcs[a].weight }

// Weights returns a copy of all arc weights in arc order.
func (g *Graph) Weights() []float64 {
	w := make([]float64, len(g.arcs))
	for i := range g.arcs {
		w[i] = g.arcs[i].weight
	}
	return w
}

// SetWeights overwrites all arc weights. Only leaf graphs that have not been
// used as an input may be reweighted.
func (g *Graph) SetWeights(weights []float64) error {
	if g.frozen.Load() {
		return &OpError{Op: "Graph.SetWeights", Err: ErrFrozen}
	}
	if len(weights) != len(g.arcs) {
		return Errorf("Graph.SetWeights", ErrArcCount, "got %d weights for %d arcs", len(weights), len(g.arcs))
	}
	for i := range g.arcs {
		g.arcs[i].weight = weights[i]
	}
	return nil
}

// LabelsToSlice returns the input (or output) label of every arc in arc order.
func (g *Graph) LabelsToSlice(input bool) []int {
	labels := make([]int, len(g.arcs))
	for i := range g.arcs {
		if input {
			labels[i] = g.arcs[i].ilabel
		} else {
			labels[i] = g.arcs[i].olabel
		}
	}
	return labels
}

// Item returns the weight of the only arc of g.
func (g *Graph) Item() (float64, error) {
	if len(g.arcs) != 1 {
		return 0, Errorf("Graph.Item", ErrArcCount, "graph has %d arcs, want 1", len(g.arcs))
	}
	return g.arcs[0].weight, nil
}

// Frozen reports whether g has been used as an operation input.
func (g *Graph) Frozen() bool { return g.frozen.Load() }

// WithoutWeights returns a copy of g with the same topology and zero weights.
//
// The copy shares g's gradient accumulator and provenance: a gradient added
// to the copy is a gradient of g. Copies are meant to be stored as operation
// inputs, so both g and the copy are frozen.
func (g *Graph) WithoutWeights() *Graph {
	g.frozen.Store(true)
	out := &Graph{
		nodes:  make([]node, len(g.nodes)),
		arcs:   make([]arc, len(g.arcs)),
		start:  slices.Clone(g.start),
		accept: slices.Clone(g.accept),
		ag:     g.ag,
	}
	out.frozen.Store(true)
	for i, n := range g.nodes {
		out.nodes[i] = node{start: n.start, accept: n.accept, in: slices.Clone(n.in), out: slices.Clone(n.out)}
	}
	for i, a := range g.arcs {
		a.weight = 0
		out.arcs[i] = a
	}
	return out
}

// ArcSort orders every node's incoming and outgoing arc lists by output
// label (olabel true) or input label. Arc indices do not change. It panics
// with ErrFrozen once g has been used as an input.
func (g *Graph) ArcSort(olabel bool) {
	if g.frozen.Load() {
		panic(&OpError{Op: "Graph.ArcSort", Err: ErrFrozen})
	}
	key := func(a int) int { return g.arcs[a].ilabel }
	if olabel {
		key = func(a int) int { return g.arcs[a].olabel }
	}
	byKey := func(a, b int) int { return cmp.Compare(key(a), key(b)) }
	for i := range g.nodes {
		slices.SortStableFunc(g.nodes[i].in, byKey)
		slices.SortStableFunc(g.nodes[i].out, byKey)
	}
}

// ILabelSorted reports whether every node's outgoing arcs are ordered by
// input label.
func (g *Graph) ILabelSorted() bool {
	return g.outSorted(func(a int) int { return g.arcs[a].ilabel })
}

// OLabelSorted reports whether every node's outgoing arcs are ordered by
// output label.
func (g *Graph) OLabelSorted() bool {
	return g.outSorted(func(a int) int { return g.arcs[a].olabel })
}

func (g *Graph) outSorted(key func(int) int) bool {
	for i := range g.nodes {
		out := g.nodes[i].out
		for j := 1; j < len(out); j++ {
			if key(out[j-1]) > key(out[j]) {
				return false
			}
		}
	}
	return true
}

// String returns a short summary for logs.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph(nodes=%d, arcs=%d, start=%d, accept=%d, calcGrad=%t)",
		len(g.nodes), len(g.arcs), len(g.start), len(g.accept), g.CalcGrad())
}
