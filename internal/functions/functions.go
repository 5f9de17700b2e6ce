// Package functions implements the automaton algebra over graph.Graph.
//
// Every operation builds a fresh derived graph and records an Operation with
// the auxiliary data its gradient rule needs:
//   - negateOp, addOp, subtractOp: scalar arithmetic on single-arc graphs
//   - cloneOp: identity on arc order (clone and projections)
//   - sliceOp: contiguous delta slices per input (concat, closure, union)
//   - composeOp: per-arc (first, second) source arcs (compose, intersect)
//   - forwardScoreOp, viterbiScoreOp, viterbiPathOp: shortest distance/path
//   - removeOp: gradient not implemented
//
// Arc order of every result is deterministic and documented per operation,
// because gradient rules depend on it.
package functions

import (
	"time"

	"github.com/gtn-go/gtn/internal/graph"
	"github.com/gtn-go/gtn/internal/metrics"
)

// Operation names used in errors, logs and metrics.
const (
	opNegate       = "negate"
	opAdd          = "add"
	opSubtract     = "subtract"
	opClone        = "clone"
	opConcat       = "concat"
	opClosure      = "closure"
	opUnion        = "union"
	opCompose      = "compose"
	opIntersect    = "intersect"
	opForwardScore = "forwardScore"
	opViterbiScore = "viterbiScore"
	opViterbiPath  = "viterbiPath"
	opRemove       = "remove"
	opMinimize     = "minimizeAcyclicFST"
)

// observe records one finished operation.
func observe(op string, start time.Time) {
	metrics.ObserveOp(op, start)
}

// scalarGraph fills g with the canonical one-arc graph carrying weight.
func scalarGraph(g *graph.Graph, weight float64) *graph.Graph {
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.MustAddArc(0, 1, 0, 0, weight)
	return g
}

// addGradIfTracked adds deltas to g when it tracks gradients.
func addGradIfTracked(g *graph.Graph, deltas []float64) error {
	if !g.CalcGrad() {
		return nil
	}
	return g.AddGrad(deltas)
}

func negated(deltas []float64) []float64 {
	out := make([]float64, len(deltas))
	for i, d := range deltas {
		out[i] = -d
	}
	return out
}
