// Package lattice builds the frame by label graphs used as emission inputs.
package lattice

import (
	"fmt"

	"github.com/gtn-go/gtn/internal/graph"
)

// Linear returns a chain of m frames over n labels: nodes 0..m, node 0 start
// and node m accept, and for every frame i and label j an arc i -> i+1 with
// label j and weight 0. Arcs are ordered frame-major, so arc i*n+j carries
// frame i and label j, matching a row-major m x n emissions matrix.
func Linear(m, n int, calcGrad bool) (*graph.Graph, error) {
	if m < 0 || n < 0 {
		return nil, graph.Errorf("linear", graph.ErrPrecondition, "negative size %dx%d", m, n)
	}
	g := graph.New(calcGrad)
	g.AddNode(true, m == 0)
	for i := 1; i <= m; i++ {
		g.AddNode(false, i == m)
		for j := 0; j < n; j++ {
			g.MustAddArc(i-1, i, j, j, 0)
		}
	}
	return g, nil
}

// FromEmissions returns Linear(m, n, calcGrad) with the row-major emission
// scores as arc weights.
func FromEmissions(m, n int, emissions []float64, calcGrad bool) (*graph.Graph, error) {
	if len(emissions) != m*n {
		return nil, graph.Errorf("linear", graph.ErrPrecondition,
			"%d emissions for a %dx%d lattice", len(emissions), m, n)
	}
	g, err := Linear(m, n, calcGrad)
	if err != nil {
		return nil, err
	}
	if err := g.SetWeights(emissions); err != nil {
		return nil, fmt.Errorf("failed to set emissions: %w", err)
	}
	return g, nil
}

// Chain returns the acceptor of a single label sequence: nodes 0..len(labels)
// with arc i -> i+1 labelled labels[i]. An empty sequence accepts the empty
// string.
func Chain(labels []int, calcGrad bool) *graph.Graph {
	g := graph.New(calcGrad)
	g.AddNode(true, len(labels) == 0)
	for i, label := range labels {
		g.AddNode(false, i == len(labels)-1)
		g.MustAddArc(i, i+1, label, label, 0)
	}
	return g
}
