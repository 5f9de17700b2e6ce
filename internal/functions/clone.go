package functions

import (
	"time"

	"github.com/gtn-go/gtn/internal/graph"
)

// Projection selects which labels a clone keeps.
type Projection int

const (
	// ProjectNone keeps both labels.
	ProjectNone Projection = iota
	// ProjectInput copies the input label onto the output label.
	ProjectInput
	// ProjectOutput copies the output label onto the input label.
	ProjectOutput
)

// cloneOp passes deltas through unchanged; arc order is preserved 1:1.
type cloneOp struct{}

func (cloneOp) Name() string { return opClone }

func (cloneOp) Backward(inputs []*graph.Graph, deltas []float64) error {
	return addGradIfTracked(inputs[0], deltas)
}

// Clone copies g node for node and arc for arc, applying projection.
func Clone(g *graph.Graph, projection Projection) *graph.Graph {
	defer observe(opClone, time.Now())
	out := graph.NewDerived(cloneOp{}, g.WithoutWeights())
	for n := 0; n < g.NumNodes(); n++ {
		out.AddNode(g.IsStart(n), g.IsAccept(n))
	}
	for a := 0; a < g.NumArcs(); a++ {
		ilabel, olabel := g.ILabel(a), g.OLabel(a)
		switch projection {
		case ProjectInput:
			olabel = ilabel
		case ProjectOutput:
			ilabel = olabel
		}
		out.MustAddArc(g.SrcNode(a), g.DstNode(a), ilabel, olabel, g.Weight(a))
	}
	return out
}

// ProjectInputLabels returns the acceptor of g's input labels.
func ProjectInputLabels(g *graph.Graph) *graph.Graph {
	return Clone(g, ProjectInput)
}

// ProjectOutputLabels returns the acceptor of g's output labels.
func ProjectOutputLabels(g *graph.Graph) *graph.Graph {
	return Clone(g, ProjectOutput)
}
