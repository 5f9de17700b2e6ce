// Copyright 2025 GTN Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import "github.com/gtn-go/gtn/internal/graph"

// Graph is a weighted finite-state transducer with gradient tracking.
type Graph = graph.Graph

// Operation is the gradient rule of a derived graph.
type Operation = graph.Operation

// OpError records the operation that rejected its input.
type OpError = graph.OpError

// BackwardOption configures Backward.
type BackwardOption = graph.BackwardOption

// Epsilon is the label of an arc that consumes or emits no symbol.
const Epsilon = graph.Epsilon

// Errors returned by graph operations. Use errors.Is to test for them.
var (
	ErrPrecondition   = graph.ErrPrecondition
	ErrInvalidNode    = graph.ErrInvalidNode
	ErrArcCount       = graph.ErrArcCount
	ErrGradSize       = graph.ErrGradSize
	ErrNotImplemented = graph.ErrNotImplemented
	ErrCyclic         = graph.ErrCyclic
	ErrFrozen         = graph.ErrFrozen
)

// New creates an empty leaf graph. calcGrad enables gradient tracking.
//
// Example:
//
//	g := graph.New(true)
//	s := g.AddNode(true, false)
//	f := g.AddNode(false, true)
//	g.MustAddArc(s, f, 0, 0, 1.0)
func New(calcGrad bool) *Graph {
	return graph.New(calcGrad)
}

// NewDerived creates an empty graph produced by op from inputs. It is the
// building block for operations defined outside package functions.
func NewDerived(op Operation, inputs ...*Graph) *Graph {
	return graph.NewDerived(op, inputs...)
}

// Backward accumulates the gradient of g into every upstream graph that
// tracks gradients.
func Backward(g *Graph, opts ...BackwardOption) error {
	return graph.Backward(g, opts...)
}

// WithSeed sets the gradient of the result itself (default: 1 for every arc).
func WithSeed(deltas []float64) BackwardOption {
	return graph.WithSeed(deltas)
}

// WithRetainGraph keeps provenance so Backward can run again.
func WithRetainGraph(retain bool) BackwardOption {
	return graph.WithRetainGraph(retain)
}

// Equal reports whether g1 and g2 are identical under the same node numbering.
func Equal(g1, g2 *Graph) bool {
	return graph.Equal(g1, g2)
}

// Isomorphic reports whether g1 and g2 are identical up to node renumbering.
func Isomorphic(g1, g2 *Graph) bool {
	return graph.Isomorphic(g1, g2)
}
