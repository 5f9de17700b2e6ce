package functions

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gtn-go/gtn/internal/graph"
	"github.com/gtn-go/gtn/internal/logging"
)

// minimizer merges the states of an acyclic graph bottom-up.
type minimizer struct {
	g         *graph.Graph
	out       *graph.Graph
	oldToNew  []int
	processed []bool
}

// transitionKey identifies a node by its flags and the multiset of its
// outgoing (ilabel, olabel, merged destination) transitions.
func (m *minimizer) transitionKey(n int) string {
	type transition struct{ ilabel, olabel, dst int }
	ts := make([]transition, 0, m.g.NumOut(n))
	for _, a := range m.g.Out(n) {
		ts = append(ts, transition{m.g.ILabel(a), m.g.OLabel(a), m.oldToNew[m.g.DstNode(a)]})
	}
	slices.SortFunc(ts, func(x, y transition) int {
		if c := cmp.Compare(x.ilabel, y.ilabel); c != 0 {
			return c
		}
		if c := cmp.Compare(x.olabel, y.olabel); c != 0 {
			return c
		}
		return cmp.Compare(x.dst, y.dst)
	})

	var b strings.Builder
	b.WriteString(strconv.FormatBool(m.g.IsStart(n)))
	b.WriteByte('/')
	b.WriteString(strconv.FormatBool(m.g.IsAccept(n)))
	for _, t := range ts {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(t.ilabel))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(t.olabel))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(t.dst))
	}
	return b.String()
}

func (m *minimizer) ready(n int) bool {
	if m.processed[n] {
		return false
	}
	for _, a := range m.g.Out(n) {
		if !m.processed[m.g.DstNode(a)] {
			return false
		}
	}
	return true
}

// merge maps every node of class to one new node and copies the outgoing
// arcs of the first member. Predecessors of the class are added to next.
func (m *minimizer) merge(class []int, next map[int]struct{}) {
	first := class[0]
	merged := m.out.AddNode(m.g.IsStart(first), m.g.IsAccept(first))
	for _, n := range class {
		m.oldToNew[n] = merged
		m.processed[n] = true
		for _, a := range m.g.In(n) {
			next[m.g.SrcNode(a)] = struct{}{}
		}
	}
	for _, a := range m.g.Out(first) {
		m.out.MustAddArc(merged, m.oldToNew[m.g.DstNode(a)], m.g.ILabel(a), m.g.OLabel(a), m.g.Weight(a))
	}
}

// MinimizeAcyclicFST returns an equivalent acyclic transducer with merged
// states.
//
// Sinks are merged by (start, accept) status. Then, wave by wave, the
// predecessors whose successors are all merged are grouped by status and
// outgoing transitions under the mapping so far, and each group becomes one
// node. Weights are taken from the first member of each group, so only
// unweighted language equivalence is guaranteed. The result is a new leaf
// that does not track gradients.
//
// g must be acyclic; a cycle fails with ErrCyclic.
func MinimizeAcyclicFST(g *graph.Graph) (*graph.Graph, error) {
	defer observe(opMinimize, time.Now())
	if _, err := g.TopologicalOrder(); err != nil {
		return nil, &graph.OpError{Op: opMinimize, Err: err}
	}

	m := &minimizer{
		g:         g,
		out:       graph.New(false),
		oldToNew:  filled(g.NumNodes(), -1),
		processed: make([]bool, g.NumNodes()),
	}

	next := make(map[int]struct{})
	sinks := make(map[[2]bool][]int)
	var sinkOrder [][2]bool
	for n := 0; n < g.NumNodes(); n++ {
		if g.NumOut(n) != 0 {
			continue
		}
		status := [2]bool{g.IsStart(n), g.IsAccept(n)}
		if _, ok := sinks[status]; !ok {
			sinkOrder = append(sinkOrder, status)
		}
		sinks[status] = append(sinks[status], n)
	}
	for _, status := range sinkOrder {
		m.merge(sinks[status], next)
	}

	waves := 0
	for len(next) > 0 {
		waves++
		candidates := make([]int, 0, len(next))
		for n := range next {
			candidates = append(candidates, n)
		}
		slices.Sort(candidates)
		clear(next)

		classes := make(map[string]int)
		var groups [][]int
		for _, n := range candidates {
			if !m.ready(n) {
				continue
			}
			key := m.transitionKey(n)
			i, ok := classes[key]
			if !ok {
				i = len(groups)
				classes[key] = i
				groups = append(groups, nil)
			}
			groups[i] = append(groups[i], n)
		}
		for _, class := range groups {
			m.merge(class, next)
		}
	}

	logging.Logger().Debug("minimized acyclic graph",
		"nodes_before", g.NumNodes(), "nodes_after", m.out.NumNodes(), "waves", waves)
	return m.out, nil
}
