package functions

import (
	"math"
	"slices"
	"time"

	"github.com/gtn-go/gtn/internal/graph"
)

// logAdd returns log(exp(a) + exp(b)) without overflow.
func logAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	m := math.Max(a, b)
	return m + math.Log1p(math.Exp(-math.Abs(a-b)))
}

// distances holds per-node shortest distances of an acyclic graph.
type distances struct {
	order  []int     // topological node order
	scores []float64 // -Inf for unreachable nodes
	best   []int     // tropical only: best incoming arc, -1 at the path origin
	total  float64
	final  int // tropical only: accept node ending the best path, -1 if none
}

// shortestDistance propagates scores from the start nodes in topological
// order. Start nodes begin at 0 (the semiring one); every other node at -Inf.
// With tropical set, paths combine by max and backpointers record the first
// strictly best incoming arc; otherwise they combine by log-add.
func shortestDistance(op string, g *graph.Graph, tropical bool) (*distances, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, &graph.OpError{Op: op, Err: err}
	}
	d := &distances{
		order:  order,
		scores: make([]float64, g.NumNodes()),
		total:  math.Inf(-1),
		final:  -1,
	}
	if tropical {
		d.best = make([]int, g.NumNodes())
	}
	for _, n := range order {
		score := math.Inf(-1)
		if g.IsStart(n) {
			score = 0
		}
		bp := -1
		for _, a := range g.In(n) {
			cand := d.scores[g.SrcNode(a)] + g.Weight(a)
			switch {
			case !tropical:
				score = logAdd(score, cand)
			case cand > score:
				score, bp = cand, a
			}
		}
		d.scores[n] = score
		if tropical {
			d.best[n] = bp
		}
	}
	for _, n := range g.Accept() {
		switch {
		case !tropical:
			d.total = logAdd(d.total, d.scores[n])
		case d.scores[n] > d.total:
			d.total, d.final = d.scores[n], n
		}
	}
	return d, nil
}

// path returns the arcs of the best path in order from its start node.
func (d *distances) path(g *graph.Graph) []int {
	var arcs []int
	for n := d.final; n >= 0 && d.best[n] >= 0; {
		a := d.best[n]
		arcs = append(arcs, a)
		n = g.SrcNode(a)
	}
	slices.Reverse(arcs)
	return arcs
}

// forwardScoreOp distributes the gradient of the total over arcs by their
// posterior: exp(score[src] + w - score[dst]) at every node.
type forwardScoreOp struct {
	order   []int
	scores  []float64
	weights []float64
	total   float64
}

func (forwardScoreOp) Name() string { return opForwardScore }

func (op forwardScoreOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	g := inputs[0]
	if !g.CalcGrad() {
		return nil
	}
	grad := make([]float64, g.NumArcs())
	if math.IsInf(op.total, -1) {
		return g.AddGrad(grad)
	}
	nodeGrad := make([]float64, g.NumNodes())
	for _, n := range g.Accept() {
		if !math.IsInf(op.scores[n], -1) {
			nodeGrad[n] += deltas[0] * math.Exp(op.scores[n]-op.total)
		}
	}
	for i := len(op.order) - 1; i >= 0; i-- {
		n := op.order[i]
		if nodeGrad[n] == 0 || math.IsInf(op.scores[n], -1) {
			continue
		}
		for _, a := range g.In(n) {
			src := g.SrcNode(a)
			share := nodeGrad[n] * math.Exp(op.scores[src]+op.weights[a]-op.scores[n])
			grad[a] += share
			nodeGrad[src] += share
		}
	}
	return g.AddGrad(grad)
}

// viterbiScoreOp passes the gradient of the best score to every arc of the
// best path.
type viterbiScoreOp struct {
	path []int
}

func (viterbiScoreOp) Name() string { return opViterbiScore }

func (op viterbiScoreOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	g := inputs[0]
	if !g.CalcGrad() {
		return nil
	}
	grad := make([]float64, g.NumArcs())
	for _, a := range op.path {
		grad[a] += deltas[0]
	}
	return g.AddGrad(grad)
}

// viterbiPathOp maps each arc of the path graph back to the arc it copies.
type viterbiPathOp struct {
	path []int
}

func (viterbiPathOp) Name() string { return opViterbiPath }

func (op viterbiPathOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	g := inputs[0]
	if !g.CalcGrad() {
		return nil
	}
	grad := make([]float64, g.NumArcs())
	for i, a := range op.path {
		grad[a] += deltas[i]
	}
	return g.AddGrad(grad)
}

// ForwardScore returns a single-arc graph whose weight is the log-sum-exp of
// the weights of all accepting paths of g. The result is -Inf when g accepts
// nothing.
//
// g must be acyclic; a cycle fails with ErrCyclic.
func ForwardScore(g *graph.Graph) (*graph.Graph, error) {
	defer observe(opForwardScore, time.Now())
	d, err := shortestDistance(opForwardScore, g, false)
	if err != nil {
		return nil, err
	}
	op := forwardScoreOp{order: d.order, scores: d.scores, weights: g.Weights(), total: d.total}
	return scalarGraph(graph.NewDerived(op, g.WithoutWeights()), d.total), nil
}

// ViterbiScore returns a single-arc graph whose weight is the largest weight
// of an accepting path of g, or -Inf when g accepts nothing.
//
// g must be acyclic; a cycle fails with ErrCyclic.
func ViterbiScore(g *graph.Graph) (*graph.Graph, error) {
	defer observe(opViterbiScore, time.Now())
	d, err := shortestDistance(opViterbiScore, g, true)
	if err != nil {
		return nil, err
	}
	op := viterbiScoreOp{}
	if d.final >= 0 {
		op.path = d.path(g)
	}
	return scalarGraph(graph.NewDerived(op, g.WithoutWeights()), d.total), nil
}

// ViterbiPath returns the best accepting path of g as a linear graph: node 0
// start, the last node accept, and one arc per path arc carrying its labels
// and weight. Ties go to the earliest arc. When g accepts nothing the result
// has no nodes.
//
// g must be acyclic; a cycle fails with ErrCyclic.
func ViterbiPath(g *graph.Graph) (*graph.Graph, error) {
	defer observe(opViterbiPath, time.Now())
	d, err := shortestDistance(opViterbiPath, g, true)
	if err != nil {
		return nil, err
	}
	op := viterbiPathOp{}
	if d.final >= 0 {
		op.path = d.path(g)
	}
	out := graph.NewDerived(op, g.WithoutWeights())
	if d.final < 0 {
		return out, nil
	}
	out.AddNode(true, len(op.path) == 0)
	for i, a := range op.path {
		out.AddNode(false, i == len(op.path)-1)
		out.MustAddArc(i, i+1, g.ILabel(a), g.OLabel(a), g.Weight(a))
	}
	return out, nil
}
