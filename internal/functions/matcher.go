package functions

import (
	"iter"
	"sort"

	"github.com/gtn-go/gtn/internal/graph"
)

// MatcherKind selects the strategy compose uses to pair arcs. Every kind
// yields the same set of arc pairs; only the cost and the order differ.
type MatcherKind int

const (
	// MatcherAuto picks by sortedness: doubly sorted when both sides are
	// sorted on their matching label, singly sorted when one is, else unsorted.
	MatcherAuto MatcherKind = iota
	// MatcherUnsorted compares every pair of outgoing arcs.
	MatcherUnsorted
	// MatcherSinglySorted binary-searches the sorted side for each arc of
	// the other side.
	MatcherSinglySorted
	// MatcherDoublySorted merge-joins two sorted arc lists.
	MatcherDoublySorted
)

// String returns the matcher name.
func (k MatcherKind) String() string {
	switch k {
	case MatcherUnsorted:
		return "unsorted"
	case MatcherSinglySorted:
		return "singly-sorted"
	case MatcherDoublySorted:
		return "doubly-sorted"
	default:
		return "auto"
	}
}

// arcMatcher yields pairs (a1, a2) of outgoing arcs of n1 in the first graph
// and n2 in the second whose matching labels are equal.
type arcMatcher interface {
	Matches(n1, n2 int) iter.Seq2[int, int]
}

// matchSide is one operand of a composition with the label it matches on.
type matchSide struct {
	g   *graph.Graph
	key func(a int) int
}

func (s matchSide) sorted() bool {
	for n := 0; n < s.g.NumNodes(); n++ {
		out := s.g.Out(n)
		for j := 1; j < len(out); j++ {
			if s.key(out[j-1]) > s.key(out[j]) {
				return false
			}
		}
	}
	return true
}

// labelRange returns the sub-slice of the sorted arc list arcs whose key is label.
func (s matchSide) labelRange(arcs []int, label int) []int {
	lo := sort.Search(len(arcs), func(i int) bool { return s.key(arcs[i]) >= label })
	hi := lo
	for hi < len(arcs) && s.key(arcs[hi]) == label {
		hi++
	}
	return arcs[lo:hi]
}

type unsortedMatcher struct {
	first, second matchSide
}

func (m unsortedMatcher) Matches(n1, n2 int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for _, a1 := range m.first.g.Out(n1) {
			k := m.first.key(a1)
			for _, a2 := range m.second.g.Out(n2) {
				if m.second.key(a2) == k && !yield(a1, a2) {
					return
				}
			}
		}
	}
}

// singlySortedMatcher requires the outgoing arcs of the sorted side to be
// ordered by its key. firstSorted tells which side that is.
type singlySortedMatcher struct {
	first, second matchSide
	firstSorted   bool
}

func (m singlySortedMatcher) Matches(n1, n2 int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		if m.firstSorted {
			sortedArcs := m.first.g.Out(n1)
			for _, a2 := range m.second.g.Out(n2) {
				for _, a1 := range m.first.labelRange(sortedArcs, m.second.key(a2)) {
					if !yield(a1, a2) {
						return
					}
				}
			}
			return
		}
		sortedArcs := m.second.g.Out(n2)
		for _, a1 := range m.first.g.Out(n1) {
			for _, a2 := range m.second.labelRange(sortedArcs, m.first.key(a1)) {
				if !yield(a1, a2) {
					return
				}
			}
		}
	}
}

// doublySortedMatcher merge-joins two sorted outgoing arc lists.
type doublySortedMatcher struct {
	first, second matchSide
}

func (m doublySortedMatcher) Matches(n1, n2 int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		out1, out2 := m.first.g.Out(n1), m.second.g.Out(n2)
		i, j := 0, 0
		for i < len(out1) && j < len(out2) {
			k1, k2 := m.first.key(out1[i]), m.second.key(out2[j])
			switch {
			case k1 < k2:
				i++
			case k1 > k2:
				j++
			default:
				iEnd, jEnd := i, j
				for iEnd < len(out1) && m.first.key(out1[iEnd]) == k1 {
					iEnd++
				}
				for jEnd < len(out2) && m.second.key(out2[jEnd]) == k2 {
					jEnd++
				}
				for _, a1 := range out1[i:iEnd] {
					for _, a2 := range out2[j:jEnd] {
						if !yield(a1, a2) {
							return
						}
					}
				}
				i, j = iEnd, jEnd
			}
		}
	}
}

// newMatcher builds the matcher of the requested kind. Forcing a sorted
// strategy on unsorted operands is a precondition violation.
func newMatcher(op string, kind MatcherKind, first, second matchSide) (arcMatcher, MatcherKind, error) {
	firstSorted, secondSorted := first.sorted(), second.sorted()
	if kind == MatcherAuto {
		switch {
		case firstSorted && secondSorted:
			kind = MatcherDoublySorted
		case firstSorted || secondSorted:
			kind = MatcherSinglySorted
		default:
			kind = MatcherUnsorted
		}
	}
	switch kind {
	case MatcherDoublySorted:
		if !firstSorted || !secondSorted {
			return nil, kind, graph.Errorf(op, graph.ErrPrecondition, "doubly-sorted matcher needs both inputs arc-sorted")
		}
		return doublySortedMatcher{first: first, second: second}, kind, nil
	case MatcherSinglySorted:
		if !firstSorted && !secondSorted {
			return nil, kind, graph.Errorf(op, graph.ErrPrecondition, "singly-sorted matcher needs one input arc-sorted")
		}
		return singlySortedMatcher{first: first, second: second, firstSorted: firstSorted}, kind, nil
	default:
		return unsortedMatcher{first: first, second: second}, MatcherUnsorted, nil
	}
}
