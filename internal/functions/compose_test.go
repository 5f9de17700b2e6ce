package functions_test

import (
	"testing"

	"github.com/gtn-go/gtn/internal/functions"
	"github.com/gtn-go/gtn/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_Simple(t *testing.T) {
	g1 := build(t, true, 2, []int{0}, []int{1}, []arcSpec{
		{src: 0, dst: 1, ilabel: 0, olabel: 1, weight: 1},
		{src: 0, dst: 1, ilabel: 1, olabel: 2, weight: 2},
	})
	g2 := build(t, true, 2, []int{0}, []int{1}, []arcSpec{
		{src: 0, dst: 1, ilabel: 1, olabel: 3, weight: 3},
		{src: 0, dst: 1, ilabel: 2, olabel: 4, weight: 4},
	})

	out, err := functions.Compose(g1, g2)
	require.NoError(t, err)

	want := build(t, false, 2, []int{0}, []int{1}, []arcSpec{
		{src: 0, dst: 1, ilabel: 0, olabel: 3, weight: 4},
		{src: 0, dst: 1, ilabel: 1, olabel: 4, weight: 6},
	})
	assert.True(t, graph.Equal(want, out), "got %v", out)

	require.NoError(t, graph.Backward(out, graph.WithSeed([]float64{1, 10})))
	assert.Equal(t, []float64{1, 10}, g1.Grad())
	assert.Equal(t, []float64{1, 10}, g2.Grad())
}

func TestCompose_EpsilonFilter(t *testing.T) {
	// g1 maps "1 2" to "5"; g2 maps "5" to "7 6".
	g1 := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		{src: 0, dst: 1, ilabel: 1, olabel: graph.Epsilon},
		{src: 1, dst: 2, ilabel: 2, olabel: 5},
	})
	g2 := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		{src: 0, dst: 1, ilabel: graph.Epsilon, olabel: 7},
		{src: 1, dst: 2, ilabel: 5, olabel: 6},
	})

	out, err := functions.Compose(g1, g2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 2|7 6"}, paths(t, out), "exactly one path per pair of operand paths")
	for n := 0; n < out.NumNodes(); n++ {
		assert.True(t, out.NumOut(n) > 0 || out.IsAccept(n), "node %d is a dead end", n)
	}
}

func TestCompose_OneSidedEpsilons(t *testing.T) {
	// Both sides have independent epsilon moves; without a filter the
	// interleavings would yield duplicate paths.
	g1 := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		{src: 0, dst: 1, ilabel: 1, olabel: graph.Epsilon, weight: 1},
		{src: 1, dst: 2, ilabel: 2, olabel: 3, weight: 1},
	})
	g2 := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		{src: 0, dst: 1, ilabel: graph.Epsilon, olabel: 4, weight: 1},
		{src: 1, dst: 2, ilabel: 3, olabel: 5, weight: 1},
		{src: 0, dst: 2, ilabel: 3, olabel: 6, weight: 1},
	})

	out, err := functions.Compose(g1, g2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 2|4 5", "1 2|6"}, paths(t, out))

	score, err := functions.ViterbiScore(out)
	require.NoError(t, err)
	got, err := score.Item()
	require.NoError(t, err)
	assert.InDelta(t, 4, got, 1e-12)
}

func TestCompose_TrimsDeadStates(t *testing.T) {
	g1 := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		acceptor(0, 1, 1, 0),
		acceptor(0, 2, 2, 0),
	})
	g2 := build(t, true, 2, []int{0}, []int{1}, []arcSpec{
		acceptor(0, 0, 1, 0),
		acceptor(0, 1, 2, 0),
	})

	out, err := functions.Compose(g1, g2)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumNodes())
	assert.Equal(t, 1, out.NumArcs())
	assert.Equal(t, 2, out.ILabel(0))
}

func TestCompose_EmptyResult(t *testing.T) {
	g1 := build(t, true, 2, []int{0}, []int{1}, []arcSpec{acceptor(0, 1, 1, 0)})
	g2 := build(t, true, 2, []int{0}, []int{1}, []arcSpec{acceptor(0, 1, 2, 0)})

	out, err := functions.Intersect(g1, g2)
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumNodes())
	assert.Equal(t, 0, out.NumArcs())

	require.NoError(t, graph.Backward(out))
	assert.Equal(t, []float64{0}, g1.Grad())
}

func TestIntersect(t *testing.T) {
	g1 := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		acceptor(0, 1, 1, 0.5),
		acceptor(1, 2, 2, 0.25),
		acceptor(1, 2, 3, 0.75),
	})
	g2 := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		acceptor(0, 1, 1, 1),
		acceptor(1, 2, 2, 1),
	})

	out, err := functions.Intersect(g1, g2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 2|1 2"}, language(t, out))
	assert.Equal(t, []float64{1.5, 1.25}, out.Weights())

	require.NoError(t, graph.Backward(out))
	assert.Equal(t, []float64{1, 1, 0}, g1.Grad())
	assert.Equal(t, []float64{1, 1}, g2.Grad())
}

// matcherInputs builds the same pair of cyclic transducers twice: unsorted,
// and arc-sorted on the labels compose matches on.
func matcherInputs(t *testing.T, sorted bool) (*graph.Graph, *graph.Graph) {
	g1 := build(t, false, 3, []int{0}, []int{2}, []arcSpec{
		{src: 0, dst: 1, ilabel: 0, olabel: 2, weight: 1},
		{src: 0, dst: 1, ilabel: 1, olabel: 1, weight: 2},
		{src: 0, dst: 2, ilabel: 2, olabel: graph.Epsilon, weight: 3},
		{src: 1, dst: 2, ilabel: 0, olabel: 1, weight: 4},
		{src: 1, dst: 2, ilabel: 1, olabel: 2, weight: 5},
		{src: 1, dst: 1, ilabel: 2, olabel: graph.Epsilon, weight: 6},
		{src: 0, dst: 2, ilabel: 1, olabel: 0, weight: 7},
		{src: 1, dst: 2, ilabel: 2, olabel: 1, weight: 8},
	})
	g2 := build(t, false, 2, []int{0}, []int{1}, []arcSpec{
		{src: 0, dst: 0, ilabel: 1, olabel: 1, weight: 10},
		{src: 0, dst: 1, ilabel: 2, olabel: 2, weight: 20},
		{src: 0, dst: 1, ilabel: graph.Epsilon, olabel: 3, weight: 30},
		{src: 1, dst: 1, ilabel: 1, olabel: 0, weight: 40},
		{src: 0, dst: 1, ilabel: 0, olabel: 0, weight: 50},
	})
	if sorted {
		g1.ArcSort(true)
		g2.ArcSort(false)
	}
	return g1, g2
}

func TestCompose_MatchersAgree(t *testing.T) {
	u1, u2 := matcherInputs(t, false)
	require.False(t, u1.OLabelSorted())
	require.False(t, u2.ILabelSorted())
	want, err := functions.ComposeWithMatcher(u1, u2, functions.MatcherUnsorted)
	require.NoError(t, err)
	require.Positive(t, want.NumArcs())

	tests := []struct {
		name         string
		sort1, sort2 bool
		kind         functions.MatcherKind
	}{
		{"unsorted on sorted", true, true, functions.MatcherUnsorted},
		{"singly sorted first", true, false, functions.MatcherSinglySorted},
		{"singly sorted second", false, true, functions.MatcherSinglySorted},
		{"doubly sorted", true, true, functions.MatcherDoublySorted},
		{"auto", true, true, functions.MatcherAuto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s1, _ := matcherInputs(t, tt.sort1)
			_, s2 := matcherInputs(t, tt.sort2)
			got, err := functions.ComposeWithMatcher(s1, s2, tt.kind)
			require.NoError(t, err)
			assert.True(t, graph.Isomorphic(want, got))
		})
	}
}

func TestCompose_MatcherPrecondition(t *testing.T) {
	g1, g2 := matcherInputs(t, false)

	_, err := functions.ComposeWithMatcher(g1, g2, functions.MatcherDoublySorted)
	assert.ErrorIs(t, err, graph.ErrPrecondition)

	_, err = functions.ComposeWithMatcher(g1, g2, functions.MatcherSinglySorted)
	assert.ErrorIs(t, err, graph.ErrPrecondition)
}

func TestCompose_MatcherKindString(t *testing.T) {
	assert.Equal(t, "auto", functions.MatcherAuto.String())
	assert.Equal(t, "unsorted", functions.MatcherUnsorted.String())
	assert.Equal(t, "singly-sorted", functions.MatcherSinglySorted.String())
	assert.Equal(t, "doubly-sorted", functions.MatcherDoublySorted.String())
}

func TestCompose_GradientThroughForwardScore(t *testing.T) {
	arcs1 := []arcSpec{
		{src: 0, dst: 1, ilabel: 1, olabel: 1},
		{src: 0, dst: 1, ilabel: 2, olabel: 2},
		{src: 1, dst: 2, ilabel: 1, olabel: graph.Epsilon},
		{src: 1, dst: 2, ilabel: 3, olabel: 1},
	}
	arcs2 := []arcSpec{
		{src: 0, dst: 1, ilabel: 1, olabel: 1},
		{src: 0, dst: 1, ilabel: 2, olabel: 2},
		{src: 1, dst: 1, ilabel: 1, olabel: 1},
	}
	weights := []float64{0.1, -0.4, 0.7, 0.2}
	weights2 := []float64{0.3, -0.2, 0.5}

	score := func(w1 []float64) (*graph.Graph, *graph.Graph) {
		for i := range arcs1 {
			arcs1[i].weight = w1[i]
		}
		for i := range arcs2 {
			arcs2[i].weight = weights2[i]
		}
		g1 := build(t, true, 3, []int{0}, []int{2}, arcs1)
		g2 := build(t, true, 2, []int{0}, []int{1}, arcs2)
		composed, err := functions.Compose(g1, g2)
		require.NoError(t, err)
		total, err := functions.ForwardScore(composed)
		require.NoError(t, err)
		return g1, total
	}

	g1, total := score(weights)
	require.NoError(t, graph.Backward(total))
	numeric := numericalGrad(t, weights, func(w []float64) float64 {
		_, total := score(w)
		v, err := total.Item()
		require.NoError(t, err)
		return v
	})
	assert.InDeltaSlice(t, numeric, g1.Grad(), 1e-6)
}
