package graph

import (
	"sync"

	"github.com/gtn-go/gtn/internal/logging"
	"github.com/gtn-go/gtn/internal/metrics"
)

// Operation is the gradient rule of a derived graph.
//
// Each operation kind is its own type holding whatever auxiliary data its
// backward pass needs (arc provenance, node scores, best-path arcs...).
type Operation interface {
	// Name identifies the operation in errors, logs and metrics.
	Name() string

	// Backward adds the gradient contribution of deltas (one entry per arc
	// of the derived graph) to each input that tracks gradients.
	//
	// Example for add:
	//   inputs: [g1, g2]
	//   deltas: [d]
	//   effect: g1.grad += [d], g2.grad += [d]
	Backward(inputs []*Graph, deltas []float64) error
}

// autograd is the differentiation state of a graph. WithoutWeights copies
// share it with their original.
type autograd struct {
	calcGrad bool
	op       Operation // nil for leaves
	inputs   []*Graph

	mu   sync.Mutex // guards grad
	grad []float64  // allocated on first AddGrad
}

// CalcGrad reports whether g tracks gradients.
func (g *Graph) CalcGrad() bool { return g.ag.calcGrad }

// SetCalcGrad toggles gradient tracking. Turning it off drops any
// accumulated gradient.
func (g *Graph) SetCalcGrad(calcGrad bool) {
	g.ag.calcGrad = calcGrad
	if !calcGrad {
		g.ZeroGrad()
	}
}

// IsLeaf reports whether g has no recorded gradient rule.
func (g *Graph) IsLeaf() bool { return g.ag.op == nil }

// Op returns the operation that produced g, or nil for leaves and for
// derived graphs whose provenance was released.
func (g *Graph) Op() Operation { return g.ag.op }

// Inputs returns the graphs g was computed from (nil for leaves).
func (g *Graph) Inputs() []*Graph { return g.ag.inputs }

// AddGrad accumulates deltas into g's gradient, one entry per arc.
//
// It is a no-op when g does not track gradients. Accumulation is additive
// and serialized by a per-accumulator lock, so contributions may arrive in
// any order and from concurrent backward passes over independent results
// that share g as a leaf.
func (g *Graph) AddGrad(deltas []float64) error {
	if !g.ag.calcGrad {
		return nil
	}
	if len(deltas) != len(g.arcs) {
		return Errorf("Graph.AddGrad", ErrGradSize, "got %d deltas for %d arcs", len(deltas), len(g.arcs))
	}
	g.ag.mu.Lock()
	defer g.ag.mu.Unlock()
	if g.ag.grad == nil {
		g.ag.grad = make([]float64, len(deltas))
	}
	for i, d := range deltas {
		g.ag.grad[i] += d
	}
	return nil
}

// Grad returns a copy of the accumulated gradient, or nil if nothing has
// been accumulated yet.
func (g *Graph) Grad() []float64 {
	g.ag.mu.Lock()
	defer g.ag.mu.Unlock()
	if g.ag.grad == nil {
		return nil
	}
	out := make([]float64, len(g.ag.grad))
	copy(out, g.ag.grad)
	return out
}

// ZeroGrad clears the accumulated gradient.
func (g *Graph) ZeroGrad() {
	g.ag.mu.Lock()
	g.ag.grad = nil
	g.ag.mu.Unlock()
}

// BackwardOption configures Backward.
type BackwardOption func(*backwardOptions)

type backwardOptions struct {
	seed   []float64
	retain bool
}

// WithSeed sets the gradient of the result itself (default: 1 for every arc).
func WithSeed(deltas []float64) BackwardOption {
	return func(o *backwardOptions) { o.seed = deltas }
}

// WithRetainGraph keeps the provenance of visited graphs so that Backward can
// be called again. By default it is released once each rule has run.
func WithRetainGraph(retain bool) BackwardOption {
	return func(o *backwardOptions) { o.retain = retain }
}

// Backward computes the gradient of g with respect to every upstream graph
// that tracks gradients.
//
// Algorithm:
//  1. Seed g's gradient (ones unless WithSeed is given)
//  2. Order the provenance DAG by an iterative post-order DFS, visiting
//     each graph once, then reverse it so dependents precede their inputs
//  3. Run each derived graph's gradient rule with its accumulated gradient
//
// A graph whose rule is not implemented fails here, not at construction.
func Backward(g *Graph, opts ...BackwardOption) error {
	o := backwardOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if !g.CalcGrad() {
		return nil
	}
	seed := o.seed
	if seed == nil {
		seed = make([]float64, g.NumArcs())
		for i := range seed {
			seed[i] = 1
		}
	}
	if err := g.AddGrad(seed); err != nil {
		return err
	}

	order := topoProvenance(g)
	metrics.BackwardTotal.Inc()
	metrics.BackwardGraphs.Observe(float64(len(order)))
	logging.Logger().Debug("backward pass", "graphs", len(order), "retain", o.retain)

	for i := len(order) - 1; i >= 0; i-- {
		cur := order[i]
		ag := cur.ag
		if ag.op == nil {
			continue
		}
		deltas := cur.Grad()
		if deltas != nil {
			if err := ag.op.Backward(ag.inputs, deltas); err != nil {
				return &OpError{Op: ag.op.Name(), Err: err}
			}
		}
		if !o.retain {
			ag.op = nil
			ag.inputs = nil
		}
	}
	return nil
}

// topoProvenance returns the graphs reachable from root through inputs that
// track gradients, in post-order (inputs before dependents). Graphs are
// identified by their autograd record so WithoutWeights copies count once.
func topoProvenance(root *Graph) []*Graph {
	type frame struct {
		g    *Graph
		done bool
	}
	var order []*Graph
	visited := make(map[*autograd]bool)
	stack := []frame{{g: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.done {
			order = append(order, top.g)
			continue
		}
		if visited[top.g.ag] {
			continue
		}
		visited[top.g.ag] = true
		stack = append(stack, frame{g: top.g, done: true})
		for _, in := range top.g.ag.inputs {
			if in.CalcGrad() && !visited[in.ag] {
				stack = append(stack, frame{g: in})
			}
		}
	}
	return order
}
