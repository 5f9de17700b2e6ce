package functions_test

import (
	"testing"

	"github.com/gtn-go/gtn/internal/functions"
	"github.com/gtn-go/gtn/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemove_Epsilon(t *testing.T) {
	g := build(t, true, 4, []int{0}, []int{3}, []arcSpec{
		acceptor(0, 1, graph.Epsilon, 0),
		acceptor(1, 2, 1, 0.5),
		acceptor(1, 3, graph.Epsilon, 0),
		acceptor(2, 3, 2, 0.25),
	})

	out := functions.Remove(g, graph.Epsilon)
	assert.Equal(t, 3, out.NumNodes())
	assert.Equal(t, 2, out.NumArcs())
	assert.Zero(t, countLabel(out, graph.Epsilon, graph.Epsilon))
	assert.True(t, out.IsAccept(0), "accept reached through an epsilon chain")
	assert.Equal(t, language(t, g), language(t, out))
	assert.Equal(t, []float64{0.5, 0.25}, out.Weights())
}

func TestRemove_EpsilonChainToAccept(t *testing.T) {
	g := build(t, true, 5, []int{0}, []int{4}, []arcSpec{
		acceptor(0, 1, 1, 0),
		acceptor(1, 2, graph.Epsilon, 0),
		acceptor(2, 3, graph.Epsilon, 0),
		acceptor(3, 4, graph.Epsilon, 0),
		acceptor(2, 4, 2, 0),
	})

	out := functions.Remove(g, graph.Epsilon)
	assert.Zero(t, countLabel(out, graph.Epsilon, graph.Epsilon))
	assert.Equal(t, []string{"1 2|1 2", "1|1"}, language(t, out))
	assert.Equal(t, language(t, g), language(t, out))
}

func TestRemoveLabels_Pair(t *testing.T) {
	g := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		{src: 0, dst: 1, ilabel: 5, olabel: graph.Epsilon},
		{src: 1, dst: 2, ilabel: 1, olabel: 2},
		{src: 0, dst: 1, ilabel: 5, olabel: 6},
	})

	out := functions.RemoveLabels(g, 5, graph.Epsilon)
	assert.Zero(t, countLabel(out, 5, graph.Epsilon))
	assert.Equal(t, 1, countLabel(out, 5, 6))
	assert.Equal(t, []string{"1|2", "5 1|6 2"}, language(t, out))
}

func TestRemove_NoMatchingArcs(t *testing.T) {
	g := build(t, true, 3, []int{0}, []int{2}, []arcSpec{
		acceptor(0, 1, 1, 1),
		acceptor(1, 2, 2, 2),
	})

	out := functions.Remove(g, graph.Epsilon)
	assert.True(t, graph.Equal(g, out))
}

func TestRemove_BackwardNotImplemented(t *testing.T) {
	g := build(t, true, 2, []int{0}, []int{1}, []arcSpec{acceptor(0, 1, 1, 0)})
	out := functions.Remove(g, graph.Epsilon)

	err := graph.Backward(out)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrNotImplemented)
	assert.Contains(t, err.Error(), "remove")
}
