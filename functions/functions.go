// Copyright 2025 GTN Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package functions provides the differentiable automaton operations.
//
// Every operation returns a new graph that records its inputs, so gradients
// flow back through it when graph.Backward is called on a result. Arc order
// of every result is deterministic.
//
// Example (CTC-style loss over an emissions lattice):
//
//	emissions, _ := utils.LinearGraph(frames, labels, true)
//	aligned, _ := functions.Intersect(emissions, target)
//	num, _ := functions.ForwardScore(aligned)
//	den, _ := functions.ForwardScore(emissions)
//	loss, _ := functions.Subtract(den, num)
//	_ = graph.Backward(loss)
package functions

import (
	"github.com/gtn-go/gtn/graph"
	"github.com/gtn-go/gtn/internal/functions"
)

// Projection selects which labels Clone keeps.
type Projection = functions.Projection

// Projection constants.
const (
	ProjectNone   Projection = functions.ProjectNone
	ProjectInput  Projection = functions.ProjectInput
	ProjectOutput Projection = functions.ProjectOutput
)

// MatcherKind selects the arc pairing strategy of Compose and Intersect.
type MatcherKind = functions.MatcherKind

// Matcher constants.
const (
	MatcherAuto         MatcherKind = functions.MatcherAuto
	MatcherUnsorted     MatcherKind = functions.MatcherUnsorted
	MatcherSinglySorted MatcherKind = functions.MatcherSinglySorted
	MatcherDoublySorted MatcherKind = functions.MatcherDoublySorted
)

// Scalar arithmetic on single-arc graphs.

// Negate returns a scalar graph with weight -w.
func Negate(g *graph.Graph) (*graph.Graph, error) { return functions.Negate(g) }

// Add returns a scalar graph with weight w1+w2.
func Add(g1, g2 *graph.Graph) (*graph.Graph, error) { return functions.Add(g1, g2) }

// Subtract returns a scalar graph with weight w1-w2.
func Subtract(g1, g2 *graph.Graph) (*graph.Graph, error) { return functions.Subtract(g1, g2) }

// Structure.

// Clone copies g arc for arc, applying projection.
func Clone(g *graph.Graph, projection Projection) *graph.Graph {
	return functions.Clone(g, projection)
}

// ProjectInputLabels returns the acceptor of g's input labels.
func ProjectInputLabels(g *graph.Graph) *graph.Graph { return functions.ProjectInputLabels(g) }

// ProjectOutputLabels returns the acceptor of g's output labels.
func ProjectOutputLabels(g *graph.Graph) *graph.Graph { return functions.ProjectOutputLabels(g) }

// Concat returns the concatenation of g1 and g2.
func Concat(g1, g2 *graph.Graph) *graph.Graph { return functions.Concat(g1, g2) }

// ConcatAll returns the concatenation of graphs in order.
func ConcatAll(graphs []*graph.Graph) *graph.Graph { return functions.ConcatAll(graphs) }

// Closure returns the Kleene closure of g.
func Closure(g *graph.Graph) *graph.Graph { return functions.Closure(g) }

// Union returns the union of graphs.
func Union(graphs []*graph.Graph) *graph.Graph { return functions.Union(graphs) }

// Composition.

// Compose returns the composition of transducers g1 and g2.
func Compose(g1, g2 *graph.Graph) (*graph.Graph, error) { return functions.Compose(g1, g2) }

// ComposeWithMatcher is Compose with an explicit arc matching strategy.
func ComposeWithMatcher(g1, g2 *graph.Graph, kind MatcherKind) (*graph.Graph, error) {
	return functions.ComposeWithMatcher(g1, g2, kind)
}

// Intersect returns the intersection of acceptors g1 and g2.
func Intersect(g1, g2 *graph.Graph) (*graph.Graph, error) { return functions.Intersect(g1, g2) }

// IntersectWithMatcher is Intersect with an explicit arc matching strategy.
func IntersectWithMatcher(g1, g2 *graph.Graph, kind MatcherKind) (*graph.Graph, error) {
	return functions.IntersectWithMatcher(g1, g2, kind)
}

// Shortest distance.

// ForwardScore returns the log-sum-exp of all accepting path weights.
func ForwardScore(g *graph.Graph) (*graph.Graph, error) { return functions.ForwardScore(g) }

// ViterbiScore returns the weight of the best accepting path.
func ViterbiScore(g *graph.Graph) (*graph.Graph, error) { return functions.ViterbiScore(g) }

// ViterbiPath returns the best accepting path as a linear graph.
func ViterbiPath(g *graph.Graph) (*graph.Graph, error) { return functions.ViterbiPath(g) }

// Rewriting.

// Remove deletes arcs labeled label:label while keeping paths through them.
func Remove(g *graph.Graph, label int) *graph.Graph { return functions.Remove(g, label) }

// RemoveLabels deletes arcs labeled ilabel:olabel while keeping paths
// through them.
func RemoveLabels(g *graph.Graph, ilabel, olabel int) *graph.Graph {
	return functions.RemoveLabels(g, ilabel, olabel)
}

// MinimizeAcyclicFST returns an equivalent acyclic transducer with merged
// states.
func MinimizeAcyclicFST(g *graph.Graph) (*graph.Graph, error) {
	return functions.MinimizeAcyclicFST(g)
}
