package nfa

import (
	"github.com/coregx/gfpa/internal/sparse"
)

// Stepper runs an Automaton over one query path, one label at a time.
//
// A run is Init, then Step per label, then Accepts. Rooted states are cut
// from the first closure when the query is not rooted; terminal states are
// cut from the last closure when it is not terminal.
//
// Thread safety: a Stepper is NOT safe for concurrent use. Create one per
// goroutine with Automaton.NewStepper; the Automaton itself is shared.
type Stepper struct {
	a *Automaton

	// entries are the states entered by the last transition (or the start
	// states before the first one), before epsilon closure.
	entries []StateID
	mask    anchorMask

	active  *sparse.Set
	next    *sparse.Set
	scratch *sparse.Set

	terminal bool
	value    string
	hasValue bool
}

// NewStepper creates a stepper for the automaton
func (a *Automaton) NewStepper() *Stepper {
	n := len(a.states)
	return &Stepper{
		a:       a,
		active:  sparse.New(n),
		next:    sparse.New(n),
		scratch: sparse.New(a.scratchCap()),
	}
}

// Init starts a new run for a query with the given anchors and leaf value.
func (s *Stepper) Init(in Input) {
	start, mask := s.a.start(in.IsRooted())
	s.entries = append(s.entries[:0], start...)
	s.mask = mask
	s.terminal = in.IsTerminal()
	s.value, s.hasValue = in.LeafValue()
}

// Step consumes one label and reports whether any run is still alive.
func (s *Stepper) Step(label string) bool {
	s.active.Clear()
	s.a.closure(s.active, s.entries, s.mask)
	s.next.Clear()
	s.a.advance(s.next, s.active.Values(), label)

	s.entries = s.entries[:0]
	for _, id := range s.next.Values() {
		s.entries = append(s.entries, StateID(id))
	}
	s.mask = 0
	return len(s.entries) > 0
}

// Active returns the epsilon closure of the current states, anchors applied.
func (s *Stepper) Active() []StateID {
	s.active.Clear()
	s.a.closure(s.active, s.entries, s.mask)
	ids := make([]StateID, 0, s.active.Len())
	for _, id := range s.active.Values() {
		ids = append(ids, StateID(id))
	}
	return ids
}

// Accepts finalizes the run: it reports whether a final state is reachable
// whose value conditions accept the leaf value.
func (s *Stepper) Accepts() bool {
	return s.a.accepts(s.entries, s.mask, s.terminal, s.value, s.hasValue, s.scratch)
}

// Matches reports whether the automaton accepts the whole query path.
func (a *Automaton) Matches(in Input) bool {
	s := a.NewStepper()
	s.Init(in)
	for _, label := range in.Labels() {
		if !s.Step(label) {
			return false
		}
	}
	return s.Accepts()
}
