package functions

import (
	"time"

	"github.com/gtn-go/gtn/internal/graph"
)

// sliceOp hands each input the contiguous run of deltas that holds its arcs.
//
// Layout of the derived graph's arcs: for input i, offsets[i] is the first
// arc copied from it; its arcs are contiguous. Arcs that are not covered by
// any run (inserted epsilon arcs) receive no gradient.
type sliceOp struct {
	name    string
	offsets []int
}

func (op sliceOp) Name() string { return op.name }

func (op sliceOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	for i, in := range inputs {
		if !in.CalcGrad() {
			continue
		}
		start := op.offsets[i]
		if err := in.AddGrad(deltas[start : start+in.NumArcs()]); err != nil {
			return err
		}
	}
	return nil
}

// copyArcs appends every arc of g to out with node indices shifted by offset.
func copyArcs(out, g *graph.Graph, offset int) {
	for a := 0; a < g.NumArcs(); a++ {
		out.MustAddArc(offset+g.SrcNode(a), offset+g.DstNode(a), g.ILabel(a), g.OLabel(a), g.Weight(a))
	}
}

func withoutWeights(graphs []*graph.Graph) []*graph.Graph {
	out := make([]*graph.Graph, len(graphs))
	for i, g := range graphs {
		out[i] = g.WithoutWeights()
	}
	return out
}

// Concat returns the concatenation of g1 and g2.
func Concat(g1, g2 *graph.Graph) *graph.Graph {
	return ConcatAll([]*graph.Graph{g1, g2})
}

// ConcatAll returns the sequential composition of graphs.
//
// Only the first graph's start nodes stay start and only the last graph's
// accept nodes stay accept. Between consecutive graphs every accept node of
// the earlier one gets an epsilon arc to every start node of the later one.
// Arc order: arcs of graph 0, then for each i > 0 the arcs of graph i
// followed by the connecting arcs from graph i-1.
//
// The concatenation of no graphs accepts only the empty string: one node
// that is both start and accept.
func ConcatAll(graphs []*graph.Graph) *graph.Graph {
	defer observe(opConcat, time.Now())
	op := sliceOp{name: opConcat, offsets: make([]int, len(graphs))}
	out := graph.NewDerived(op, withoutWeights(graphs)...)
	if len(graphs) == 0 {
		out.AddNode(true, true)
		return out
	}

	nodeOffset := 0
	for i, g := range graphs {
		for n := 0; n < g.NumNodes(); n++ {
			out.AddNode(i == 0 && g.IsStart(n), i == len(graphs)-1 && g.IsAccept(n))
		}
		op.offsets[i] = out.NumArcs()
		copyArcs(out, g, nodeOffset)
		if i > 0 {
			prev := graphs[i-1]
			prevOffset := nodeOffset - prev.NumNodes()
			for _, a := range prev.Accept() {
				for _, s := range g.Start() {
					out.MustAddArc(prevOffset+a, nodeOffset+s, graph.Epsilon, graph.Epsilon, 0)
				}
			}
		}
		nodeOffset += g.NumNodes()
	}
	return out
}

// Closure returns the Kleene closure of g.
//
// A new node 0, both start and accept, is added and every original node is
// shifted by one. Arc order: g's arcs, then epsilon arcs from node 0 to each
// original start, then epsilon arcs from each original accept back to 0.
func Closure(g *graph.Graph) *graph.Graph {
	defer observe(opClosure, time.Now())
	out := graph.NewDerived(sliceOp{name: opClosure, offsets: []int{0}}, g.WithoutWeights())
	out.AddNode(true, true)
	for n := 0; n < g.NumNodes(); n++ {
		out.AddNode(false, false)
	}
	copyArcs(out, g, 1)
	for _, s := range g.Start() {
		out.MustAddArc(0, s+1, graph.Epsilon, graph.Epsilon, 0)
	}
	for _, a := range g.Accept() {
		out.MustAddArc(a+1, 0, graph.Epsilon, graph.Epsilon, 0)
	}
	return out
}

// Union returns the disjoint union of graphs. Start and accept flags are
// kept; arcs appear input by input.
func Union(graphs []*graph.Graph) *graph.Graph {
	defer observe(opUnion, time.Now())
	op := sliceOp{name: opUnion, offsets: make([]int, len(graphs))}
	out := graph.NewDerived(op, withoutWeights(graphs)...)
	nodeOffset := 0
	for i, g := range graphs {
		for n := 0; n < g.NumNodes(); n++ {
			out.AddNode(g.IsStart(n), g.IsAccept(n))
		}
		op.offsets[i] = out.NumArcs()
		copyArcs(out, g, nodeOffset)
		nodeOffset += g.NumNodes()
	}
	return out
}
