package functions_test

import (
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/gtn-go/gtn/internal/graph"
	"github.com/stretchr/testify/require"
)

// arcSpec is one arc of a test graph.
type arcSpec struct {
	src, dst       int
	ilabel, olabel int
	weight         float64
}

// build creates a graph with nodes [0, numNodes) and the given flags and arcs.
func build(t *testing.T, calcGrad bool, numNodes int, start, accept []int, arcs []arcSpec) *graph.Graph {
	t.Helper()
	g := graph.New(calcGrad)
	for n := 0; n < numNodes; n++ {
		g.AddNode(slices.Contains(start, n), slices.Contains(accept, n))
	}
	for _, a := range arcs {
		_, err := g.AddArc(a.src, a.dst, a.ilabel, a.olabel, a.weight)
		require.NoError(t, err)
	}
	return g
}

// acceptor is a shorthand for arcs whose input and output labels agree.
func acceptor(src, dst, label int, weight float64) arcSpec {
	return arcSpec{src: src, dst: dst, ilabel: label, olabel: label, weight: weight}
}

func scalar(w float64) *graph.Graph {
	g := graph.New(true)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.MustAddArc(0, 1, 0, 0, w)
	return g
}

// paths lists every accepting path of an acyclic graph as "in|out", with
// epsilons dropped from both label strings. Duplicates are kept.
func paths(t *testing.T, g *graph.Graph) []string {
	t.Helper()
	require.True(t, g.IsAcyclic(), "paths needs an acyclic graph")
	var out []string
	var walk func(n int, in, outLabels []string)
	walk = func(n int, in, outLabels []string) {
		if g.IsAccept(n) {
			out = append(out, strings.Join(in, " ")+"|"+strings.Join(outLabels, " "))
		}
		for _, a := range g.Out(n) {
			nextIn, nextOut := in, outLabels
			if l := g.ILabel(a); l != graph.Epsilon {
				nextIn = append(slices.Clone(in), strconv.Itoa(l))
			}
			if l := g.OLabel(a); l != graph.Epsilon {
				nextOut = append(slices.Clone(outLabels), strconv.Itoa(l))
			}
			walk(g.DstNode(a), nextIn, nextOut)
		}
	}
	for _, s := range g.Start() {
		walk(s, nil, nil)
	}
	slices.Sort(out)
	return out
}

// language is paths without duplicates.
func language(t *testing.T, g *graph.Graph) []string {
	t.Helper()
	return slices.Compact(paths(t, g))
}

func countLabel(g *graph.Graph, ilabel, olabel int) int {
	count := 0
	for a := 0; a < g.NumArcs(); a++ {
		if g.ILabel(a) == ilabel && g.OLabel(a) == olabel {
			count++
		}
	}
	return count
}

// numericalGrad estimates d score(weights) / d weights by central differences.
func numericalGrad(t *testing.T, weights []float64, score func(w []float64) float64) []float64 {
	t.Helper()
	const eps = 1e-5
	grad := make([]float64, len(weights))
	for i := range weights {
		plus := slices.Clone(weights)
		plus[i] += eps
		minus := slices.Clone(weights)
		minus[i] -= eps
		grad[i] = (score(plus) - score(minus)) / (2 * eps)
	}
	return grad
}
