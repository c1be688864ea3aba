package nfa

import (
	"fmt"
	"strings"

	"github.com/coregx/gfpa/internal/sparse"
)

// StateID identifies a state inside one Chunk or Automaton.
// IDs are arena indices: equality and hashing are by handle, never by content.
type StateID uint32

// InvalidState represents an invalid/uninitialized state ID
const InvalidState StateID = 0xFFFFFFFF

// Flags holds the four independent state flags.
type Flags uint8

const (
	// FlagInitial marks a state where runs begin
	FlagInitial Flags = 1 << iota

	// FlagFinal marks an accepting state
	FlagFinal

	// FlagRooted marks a state that may sit at the root of the data
	FlagRooted

	// FlagTerminal marks a state that may sit at a leaf of the data
	FlagTerminal
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String returns a human-readable representation of the flags
func (f Flags) String() string {
	var parts []string
	if f.Has(FlagInitial) {
		parts = append(parts, "initial")
	}
	if f.Has(FlagFinal) {
		parts = append(parts, "final")
	}
	if f.Has(FlagRooted) {
		parts = append(parts, "rooted")
	}
	if f.Has(FlagTerminal) {
		parts = append(parts, "terminal")
	}
	return strings.Join(parts, "|")
}

// State is an automaton vertex.
type State struct {
	id    StateID
	flags Flags
	value Condition
}

// ID returns the state's handle
func (s *State) ID() StateID {
	return s.id
}

// Flags returns the state's flags
func (s *State) Flags() Flags {
	return s.flags
}

// IsInitial returns true if runs may begin at this state
func (s *State) IsInitial() bool {
	return s.flags.Has(FlagInitial)
}

// IsFinal returns true if this is an accepting state
func (s *State) IsFinal() bool {
	return s.flags.Has(FlagFinal)
}

// IsRooted returns true if the state may only begin a rooted query
func (s *State) IsRooted() bool {
	return s.flags.Has(FlagRooted)
}

// IsTerminal returns true if the state may only end a terminal query
func (s *State) IsTerminal() bool {
	return s.flags.Has(FlagTerminal)
}

// Value returns the condition on the leaf value checked when a run ends here
func (s *State) Value() Condition {
	return s.value
}

// String returns a human-readable representation of the state
func (s *State) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "State(%d", s.id)
	if s.flags != 0 {
		sb.WriteString(", ")
		sb.WriteString(s.flags.String())
	}
	if s.value.Kind() != CondAny {
		sb.WriteString(", value=")
		sb.WriteString(s.value.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Edge is a transition guarded by a label condition.
// Multi-edges and self-loops are allowed.
type Edge struct {
	From StateID
	To   StateID
	Cond Condition
}

// IsEpsilon reports whether the edge is a free transition
func (e Edge) IsEpsilon() bool {
	return e.Cond.IsEpsilon()
}

// String returns a human-readable representation of the edge
func (e Edge) String() string {
	return fmt.Sprintf("%d -%s-> %d", e.From, e.Cond, e.To)
}

// Properties describes structural guarantees of a chunk or automaton.
type Properties struct {
	// Synchronous is true when there are no epsilon edges.
	Synchronous bool

	// Deterministic is true when every state has at most one edge per label
	// and there is a single start state. It is tracked, never enforced.
	Deterministic bool
}

// Input is a query path as seen by the automaton.
type Input interface {
	IsRooted() bool
	IsTerminal() bool
	Labels() []string
	LeafValue() (string, bool)
}

// anchorMask selects anchored states excluded from an epsilon closure.
type anchorMask uint8

const (
	excludeRooted anchorMask = 1 << iota
	excludeTerminal
)

// syncOrigin records the state of the epsilon automaton, and the anchor
// mask of its closure, that a synchronized state was built from.
type syncOrigin struct {
	state StateID
	mask  anchorMask
}

// Automaton is a frozen, queryable GFPA.
//
// Thread safety: an Automaton is immutable after creation and may be shared
// by any number of Steppers and GroupMatchers running concurrently.
type Automaton struct {
	states []State

	// out holds the edges of each state, indexed by source StateID
	out [][]Edge

	// initial holds the start states for rooted queries. For automata that are
	// not synchronized by CreateSync it also serves unrooted queries, with rooted states excluded.
	initial []StateID

	// open holds the start states for unrooted queries of a CreateSync automaton.
	open []StateID

	// base is set when epsilon closures were folded in by CreateSync.
	// Closures are then identities and acceptance is delegated to the
	// epsilon automaton through origin.
	base   *Automaton
	origin []syncOrigin

	props Properties
}

// States returns the total number of states
func (a *Automaton) States() int {
	return len(a.states)
}

// State returns the state with the given ID.
// Returns nil if the ID is invalid.
func (a *Automaton) State(id StateID) *State {
	if id == InvalidState || int(id) >= len(a.states) {
		return nil
	}
	return &a.states[id]
}

// Edges returns the outgoing edges of a state. The slice must not be modified.
func (a *Automaton) Edges(id StateID) []Edge {
	if id == InvalidState || int(id) >= len(a.out) {
		return nil
	}
	return a.out[id]
}

// EdgeCount returns the total number of edges
func (a *Automaton) EdgeCount() int {
	n := 0
	for _, edges := range a.out {
		n += len(edges)
	}
	return n
}

// Properties returns the automaton's structural properties
func (a *Automaton) Properties() Properties {
	return a.props
}

// IsSynchronous returns true if the automaton has no epsilon edges
func (a *Automaton) IsSynchronous() bool {
	return a.props.Synchronous
}

// InitialStates returns the IDs of all initial states
func (a *Automaton) InitialStates() []StateID {
	return a.filter(FlagInitial)
}

// FinalStates returns the IDs of all final states
func (a *Automaton) FinalStates() []StateID {
	return a.filter(FlagFinal)
}

// RootedStates returns the IDs of all rooted states
func (a *Automaton) RootedStates() []StateID {
	return a.filter(FlagRooted)
}

// TerminalStates returns the IDs of all terminal states
func (a *Automaton) TerminalStates() []StateID {
	return a.filter(FlagTerminal)
}

func (a *Automaton) filter(f Flags) []StateID {
	var ids []StateID
	for i := range a.states {
		if a.states[i].flags.Has(f) {
			ids = append(ids, a.states[i].id)
		}
	}
	return ids
}

// Nullable reports whether some query could be accepted without consuming
// a label, ignoring anchors and leaf values.
func (a *Automaton) Nullable() bool {
	if a.base != nil {
		return a.base.Nullable()
	}
	set := sparse.New(len(a.states))
	a.closure(set, a.initial, 0)
	for _, v := range set.Values() {
		if a.states[v].IsFinal() {
			return true
		}
	}
	return false
}

// FirstLabels returns the labels a non-empty match can begin with. ok is
// false when some edge leaving the start closure is not an Equals test.
func (a *Automaton) FirstLabels() (labels []string, ok bool) {
	set := sparse.New(len(a.states))
	a.closure(set, a.initial, 0)
	a.closure(set, a.open, 0)
	seen := make(map[string]bool)
	for _, v := range set.Values() {
		for _, e := range a.out[v] {
			if e.IsEpsilon() {
				continue
			}
			lit, isLit := e.Cond.Literal()
			if !isLit {
				return nil, false
			}
			if !seen[lit] {
				seen[lit] = true
				labels = append(labels, lit)
			}
		}
	}
	return labels, true
}

// excluded reports whether a state is cut from closures under mask.
func (a *Automaton) excluded(id StateID, mask anchorMask) bool {
	if mask == 0 || a.base != nil {
		return false
	}
	f := a.states[id].flags
	return (mask&excludeRooted != 0 && f.Has(FlagRooted)) ||
		(mask&excludeTerminal != 0 && f.Has(FlagTerminal))
}

// closure adds to set the epsilon closure of seeds. States excluded by mask
// are neither added nor followed. The set's dense order doubles as the BFS queue.
func (a *Automaton) closure(set *sparse.Set, seeds []StateID, mask anchorMask) {
	a.closeOver(set, seeds, func(id StateID) bool {
		return !a.excluded(id, mask)
	})
}

// closeOver is closure with an arbitrary admission test.
func (a *Automaton) closeOver(set *sparse.Set, seeds []StateID, admit func(StateID) bool) {
	from := set.Len()
	for _, id := range seeds {
		if admit(id) {
			set.Insert(uint32(id))
		}
	}
	if a.props.Synchronous {
		return
	}
	for i := from; i < set.Len(); i++ {
		id := set.At(i)
		for _, e := range a.out[id] {
			if e.IsEpsilon() && admit(e.To) {
				set.Insert(uint32(e.To))
			}
		}
	}
}

// start returns the entry states of a run and the mask for its first closure.
func (a *Automaton) start(rooted bool) ([]StateID, anchorMask) {
	if a.base != nil {
		if rooted {
			return a.initial, 0
		}
		return a.open, 0
	}
	if rooted {
		return a.initial, 0
	}
	return a.initial, excludeRooted
}

// advance adds to dst every state reached from the (closed) active set by an
// edge accepting label.
func (a *Automaton) advance(dst *sparse.Set, active []uint32, label string) {
	for _, id := range active {
		for _, e := range a.out[id] {
			if !e.IsEpsilon() && e.Cond.Test(label) {
				dst.Insert(uint32(e.To))
			}
		}
	}
}

// accepts reports whether a run whose last transition entered entries ends
// in an accepting state. A state's value condition must accept the leaf
// value for the run to end at it or pass through it on the way to a final
// state. scratch is clobbered and must hold scratchCap() values.
func (a *Automaton) accepts(entries []StateID, mask anchorMask, terminal bool, value string, hasValue bool, scratch *sparse.Set) bool {
	if a.base != nil {
		for _, id := range entries {
			o := a.origin[id]
			if a.base.accepts([]StateID{o.state}, o.mask|mask, terminal, value, hasValue, scratch) {
				return true
			}
		}
		return false
	}

	if !terminal {
		mask |= excludeTerminal
	}
	scratch.Clear()
	a.closeOver(scratch, entries, func(id StateID) bool {
		return !a.excluded(id, mask) && a.states[id].value.TestValue(value, hasValue)
	})
	for _, id := range scratch.Values() {
		if a.states[id].IsFinal() {
			return true
		}
	}
	return false
}

// scratchCap returns the capacity of the scratch set accepts needs.
func (a *Automaton) scratchCap() int {
	if a.base != nil && len(a.base.states) > len(a.states) {
		return len(a.base.states)
	}
	return len(a.states)
}

// String returns a human-readable representation of the automaton
func (a *Automaton) String() string {
	return fmt.Sprintf("Automaton{states: %d, edges: %d, initial: %v, synchronous: %v, deterministic: %v}",
		len(a.states), a.EdgeCount(), a.InitialStates(), a.props.Synchronous, a.props.Deterministic)
}

// Dump returns a multi-line listing of states and edges, for debugging.
func (a *Automaton) Dump() string {
	var sb strings.Builder
	for i := range a.states {
		sb.WriteString(a.states[i].String())
		sb.WriteByte('\n')
		for _, e := range a.out[i] {
			sb.WriteString("  ")
			sb.WriteString(e.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
