package nfa

import (
	"slices"

	"github.com/coregx/gfpa/internal/sparse"
)

// Match is a matched sub-path, as half-open label offsets [Start, End).
type Match struct {
	Start int
	End   int
}

// Len returns the number of labels in the match
func (m Match) Len() int {
	return m.End - m.Start
}

// groupPhase is the state of a GroupMatcher
type groupPhase uint8

const (
	// phaseStepping consumes the next offset and queues its matches
	phaseStepping groupPhase = iota

	// phaseEmitting hands out queued matches
	phaseEmitting

	// phaseExhausted is terminal: every offset has been consumed and the
	// queue is empty
	phaseExhausted
)

// GroupMatcher enumerates every sub-path of one query path that the
// automaton accepts.
//
// It runs all starting offsets in a single pass: alongside each active state
// it keeps the sorted set of offsets a run could have started from. At every
// offset p a fresh run is seeded with origin p, and one Match is queued per
// origin whose run accepts at p. A sub-path [s,e) is rooted only when s == 0
// and the query is rooted; it is terminal and carries the leaf value only
// when e == len(labels). Find therefore returns exactly the sub-paths that
// Matches accepts, ordered by End, then Start, without duplicates.
//
// A GroupMatcher is single-use and NOT safe for concurrent use.
type GroupMatcher struct {
	a      *Automaton
	labels []string

	rooted   bool
	terminal bool
	value    string
	hasValue bool

	phase groupPhase
	pos   int

	// offsets maps entered states to their origin offsets. Origin slices are
	// sorted, duplicate-free and never modified in place.
	offsets map[StateID][]int

	queue []Match
	last  Match
	found bool

	filter  func(int) bool
	closure *sparse.Set
	scratch *sparse.Set
	one     []StateID
}

// NewGroupMatcher creates a matcher over the labels of in
func (a *Automaton) NewGroupMatcher(in Input) *GroupMatcher {
	value, hasValue := in.LeafValue()
	return &GroupMatcher{
		a:        a,
		labels:   in.Labels(),
		rooted:   in.IsRooted(),
		terminal: in.IsTerminal(),
		value:    value,
		hasValue: hasValue,
		offsets:  make(map[StateID][]int),
		closure:  sparse.New(len(a.states)),
		scratch:  sparse.New(a.scratchCap()),
		one:      make([]StateID, 1),
	}
}

// SetStartFilter restricts the offsets at which runs are seeded. Runs are
// seeded at p only when filter(p) is true. The filter must not reject an
// offset where an accepted sub-path starts; see prefilter.Labels.
// Must be called before the first Find.
func (m *GroupMatcher) SetStartFilter(filter func(int) bool) {
	m.filter = filter
}

// Find returns the next match. ok is false once the matcher is exhausted;
// every later call returns false as well.
func (m *GroupMatcher) Find() (match Match, ok bool) {
	for {
		switch m.phase {
		case phaseEmitting:
			if len(m.queue) > 0 {
				m.last = m.queue[0]
				m.found = true
				m.queue = m.queue[1:]
				return m.last, true
			}
			if m.pos > len(m.labels) {
				m.phase = phaseExhausted
				continue
			}
			m.phase = phaseStepping
		case phaseStepping:
			m.round()
			m.phase = phaseEmitting
		default:
			return Match{}, false
		}
	}
}

// Last returns the most recent match returned by Find
func (m *GroupMatcher) Last() (Match, bool) {
	return m.last, m.found
}

// round queues the matches ending at the current offset, then consumes the
// label there.
func (m *GroupMatcher) round() {
	p := m.pos
	n := len(m.labels)
	m.pos++

	var seeds []StateID
	var seedMask anchorMask
	if m.filter == nil || m.filter(p) {
		seeds, seedMask = m.a.start(p == 0 && m.rooted)
	}

	m.emit(p, seeds, seedMask)
	if p == n {
		m.offsets = nil
		return
	}

	label := m.labels[p]
	next := make(map[StateID][]int, len(m.offsets))
	for id, origins := range m.offsets {
		m.one[0] = id
		m.step(next, m.one, 0, label, origins)
	}
	if len(seeds) > 0 {
		m.step(next, seeds, seedMask, label, []int{p})
	}
	m.offsets = next
}

// emit queues one match per accepting origin at offset p
func (m *GroupMatcher) emit(p int, seeds []StateID, seedMask anchorMask) {
	terminal := p == len(m.labels) && m.terminal
	value, hasValue := "", false
	if p == len(m.labels) {
		value, hasValue = m.value, m.hasValue
	}

	var starts []int
	for id, origins := range m.offsets {
		m.one[0] = id
		if m.a.accepts(m.one, 0, terminal, value, hasValue, m.scratch) {
			starts = mergeOffsets(starts, origins)
		}
	}
	if len(seeds) > 0 && m.a.accepts(seeds, seedMask, terminal, value, hasValue, m.scratch) {
		starts = mergeOffsets(starts, []int{p})
	}
	for _, s := range starts {
		m.queue = append(m.queue, Match{Start: s, End: p})
	}
}

// step follows label from the closure of from and adds origins to every
// state reached.
func (m *GroupMatcher) step(next map[StateID][]int, from []StateID, mask anchorMask, label string, origins []int) {
	m.closure.Clear()
	m.a.closure(m.closure, from, mask)
	for _, v := range m.closure.Values() {
		for _, e := range m.a.out[v] {
			if e.IsEpsilon() || !e.Cond.Test(label) {
				continue
			}
			next[e.To] = mergeOffsets(next[e.To], origins)
		}
	}
}

// mergeOffsets returns the sorted union of two sorted, duplicate-free
// slices. Neither argument is modified; when one side adds nothing the other
// is returned as is.
func mergeOffsets(a, b []int) []int {
	switch {
	case len(b) == 0:
		return a
	case len(a) == 0:
		return b
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	if slices.Equal(out, a) {
		return a
	}
	return out
}
