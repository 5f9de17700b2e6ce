package functions

import (
	"time"

	"github.com/gtn-go/gtn/internal/graph"
)

// negateOp: d(-w)/dw = -1.
type negateOp struct{}

func (negateOp) Name() string { return opNegate }

func (negateOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	return addGradIfTracked(inputs[0], negated(deltas))
}

// addOp: d(w1+w2)/dw1 = d(w1+w2)/dw2 = 1.
type addOp struct{}

func (addOp) Name() string { return opAdd }

func (addOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	if err := addGradIfTracked(inputs[0], deltas); err != nil {
		return err
	}
	return addGradIfTracked(inputs[1], deltas)
}

// subtractOp: d(w1-w2)/dw1 = 1, d(w1-w2)/dw2 = -1.
type subtractOp struct{}

func (subtractOp) Name() string { return opSubtract }

func (subtractOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	if err := addGradIfTracked(inputs[0], deltas); err != nil {
		return err
	}
	if !inputs[1].CalcGrad() {
		return nil
	}
	return inputs[1].AddGrad(negated(deltas))
}

func requireScalar(op string, graphs ...*graph.Graph) error {
	for _, g := range graphs {
		if g.NumArcs() != 1 {
			return graph.Errorf(op, graph.ErrArcCount, "inputs must have exactly one arc, got %d", g.NumArcs())
		}
	}
	return nil
}

// Negate returns a single-arc graph with weight -w for the single-arc graph g.
func Negate(g *graph.Graph) (*graph.Graph, error) {
	defer observe(opNegate, time.Now())
	if err := requireScalar(opNegate, g); err != nil {
		return nil, err
	}
	return scalarGraph(graph.NewDerived(negateOp{}, g), -g.Weight(0)), nil
}

// Add returns a single-arc graph with weight w1+w2.
func Add(g1, g2 *graph.Graph) (*graph.Graph, error) {
	defer observe(opAdd, time.Now())
	if err := requireScalar(opAdd, g1, g2); err != nil {
		return nil, err
	}
	weight := g1.Weight(0) + g2.Weight(0)
	return scalarGraph(graph.NewDerived(addOp{}, g1, g2), weight), nil
}

// Subtract returns a single-arc graph with weight w1-w2.
func Subtract(g1, g2 *graph.Graph) (*graph.Graph, error) {
	defer observe(opSubtract, time.Now())
	if err := requireScalar(opSubtract, g1, g2); err != nil {
		return nil, err
	}
	weight := g1.Weight(0) - g2.Weight(0)
	return scalarGraph(graph.NewDerived(subtractOp{}, g1, g2), weight), nil
}
