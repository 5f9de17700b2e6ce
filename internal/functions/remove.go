package functions

import (
	"time"

	"github.com/gtn-go/gtn/internal/graph"
)

type removeOp struct{}

func (removeOp) Name() string { return opRemove }

func (removeOp) Backward([]*graph.Graph, []float64) error {
	return graph.Errorf(opRemove, graph.ErrNotImplemented, "arcs are re-attached across removed chains")
}

// Remove deletes arcs whose input and output labels both equal label
// (usually graph.Epsilon). See RemoveLabels.
func Remove(g *graph.Graph, label int) *graph.Graph {
	return RemoveLabels(g, label, label)
}

// RemoveLabels deletes arcs labeled ilabel:olabel while keeping the paths
// through them.
//
// A node survives when it is a start node or has an incoming arc that is not
// removed. From each survivor, a breadth-first search over removed arcs finds
// the nodes it reaches for free: the survivor accepts if any of them accepts,
// and every kept arc leaving one of them is re-attached to the survivor,
// keeping its labels and weight. Arc order follows survivors in node order,
// then the search order.
//
// The result has no gradient rule; Backward through it fails with
// ErrNotImplemented.
func RemoveLabels(g *graph.Graph, ilabel, olabel int) *graph.Graph {
	defer observe(opRemove, time.Now())
	removed := func(a int) bool {
		return g.ILabel(a) == ilabel && g.OLabel(a) == olabel
	}

	out := graph.NewDerived(removeOp{}, g.WithoutWeights())
	nodes := filled(g.NumNodes(), -1)
	for n := 0; n < g.NumNodes(); n++ {
		keep := g.IsStart(n)
		for _, a := range g.In(n) {
			keep = keep || !removed(a)
		}
		if keep {
			nodes[n] = out.AddNode(g.IsStart(n), false)
		}
	}

	reached := filled(g.NumNodes(), -1) // survivor whose search last reached each node
	for n := 0; n < g.NumNodes(); n++ {
		cur := nodes[n]
		if cur < 0 {
			continue
		}
		reached[n] = n
		queue := []int{n}
		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			if g.IsAccept(next) {
				out.MakeAccept(cur)
			}
			for _, a := range g.Out(next) {
				dst := g.DstNode(a)
				if !removed(a) {
					out.MustAddArc(cur, nodes[dst], g.ILabel(a), g.OLabel(a), g.Weight(a))
					continue
				}
				if reached[dst] != n {
					reached[dst] = n
					queue = append(queue, dst)
				}
			}
		}
	}
	return out
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
