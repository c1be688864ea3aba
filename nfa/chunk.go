package nfa

import (
	"fmt"

	"github.com/coregx/gfpa/internal/conv"
)

// Chunk is a mutable automaton fragment under construction: an arena of
// states, a multiset of edges, and one distinguished start and end state.
//
// Chunks are created bottom-up by the Compiler, mutated in place by Concat,
// Union and the quantifier helpers, and discarded once absorbed into a parent.
// A Chunk exclusively owns its states and edges; absorbing another chunk
// copies them into fresh IDs.
//
// Every chunk built by the Compiler keeps one invariant: unless start == end,
// no edge enters the start state and no edge leaves the end state. Identity
// merges in Concat and Union depend on it.
type Chunk struct {
	states []State
	edges  []Edge
	start  StateID
	end    StateID
	props  Properties
}

// NewChunk creates a one-state chunk whose start and end coincide.
// It accepts exactly the empty path.
func NewChunk() *Chunk {
	c := &Chunk{props: Properties{Synchronous: true, Deterministic: true}}
	id := c.AddState(0, Any())
	c.start, c.end = id, id
	return c
}

// newKeyChunk creates a two-state chunk with one edge guarded by cond.
func newKeyChunk(cond Condition) *Chunk {
	c := NewChunk()
	end := c.AddState(0, Any())
	c.AddEdge(c.start, end, cond)
	c.end = end
	return c
}

// AddState appends a state and returns its ID
func (c *Chunk) AddState(flags Flags, value Condition) StateID {
	id := StateID(conv.Handle(len(c.states)))
	c.states = append(c.states, State{id: id, flags: flags, value: value})
	return id
}

// AddEdge appends an edge. Adding an epsilon edge clears the synchronous property.
func (c *Chunk) AddEdge(from, to StateID, cond Condition) {
	c.edges = append(c.edges, Edge{From: from, To: to, Cond: cond})
	if cond.IsEpsilon() {
		c.props.Synchronous = false
		c.props.Deterministic = false
	}
}

// Start returns the start state
func (c *Chunk) Start() StateID {
	return c.start
}

// End returns the end state
func (c *Chunk) End() StateID {
	return c.end
}

// States returns the number of states
func (c *Chunk) States() int {
	return len(c.states)
}

// State returns the state with the given ID, or nil.
func (c *Chunk) State(id StateID) *State {
	if id == InvalidState || int(id) >= len(c.states) {
		return nil
	}
	return &c.states[id]
}

// Edges returns all edges. The slice must not be modified.
func (c *Chunk) Edges() []Edge {
	return c.edges
}

// Properties returns the chunk's structural properties
func (c *Chunk) Properties() Properties {
	return c.props
}

// SetFlags ORs flags into a state.
func (c *Chunk) SetFlags(id StateID, flags Flags) {
	c.states[id].flags |= flags
}

// SetValue sets the leaf-value condition of a state.
func (c *Chunk) SetValue(id StateID, value Condition) {
	c.states[id].value = value
}

// Copy returns a deep copy with independent state and edge identities.
func (c *Chunk) Copy() *Chunk {
	return &Chunk{
		states: append([]State(nil), c.states...),
		edges:  append([]Edge(nil), c.edges...),
		start:  c.start,
		end:    c.end,
		props:  c.props,
	}
}

// Clone returns a chunk sharing c's states and edges. Appending to either
// chunk reallocates, but flag and value updates through one are visible
// through the other. Use Copy when independent identities are needed.
func (c *Chunk) Clone() *Chunk {
	return &Chunk{
		states: c.states[:len(c.states):len(c.states)],
		edges:  c.edges[:len(c.edges):len(c.edges)],
		start:  c.start,
		end:    c.end,
		props:  c.props,
	}
}

// Concat appends o after c: o's start is merged into c's end (state identity
// merge, no epsilon edge) and c's end becomes o's end. o must not be used
// afterwards.
func (c *Chunk) Concat(o *Chunk) {
	remap := c.absorb(o, map[StateID]StateID{o.start: c.end})
	c.end = remap[o.end]
}

// Union makes c accept everything o accepts. When the boundary states of
// both chunks are interchangeable they are merged into shared pivots;
// otherwise fresh pivot states are glued in with epsilon edges. o must not be
// used afterwards.
func (c *Chunk) Union(o *Chunk) {
	if c.mergeable(o) {
		c.absorb(o, map[StateID]StateID{o.start: c.start, o.end: c.end})
		return
	}

	start := c.AddState(0, Any())
	end := c.AddState(0, Any())
	c.AddEdge(start, c.start, Epsilon())
	c.AddEdge(c.end, end, Epsilon())
	remap := c.absorb(o, nil)
	c.AddEdge(start, remap[o.start], Epsilon())
	c.AddEdge(remap[o.end], end, Epsilon())
	c.start, c.end = start, end
}

// mergeable reports whether o's start and end can be identified with c's.
func (c *Chunk) mergeable(o *Chunk) bool {
	if c.start == c.end || o.start == o.end {
		return false
	}
	if !c.isolatedBoundaries() || !o.isolatedBoundaries() {
		return false
	}
	return sameState(c.states[c.start], o.states[o.start]) && sameState(c.states[c.end], o.states[o.end])
}

// isolatedBoundaries checks the chunk invariant: nothing enters start, nothing leaves end.
func (c *Chunk) isolatedBoundaries() bool {
	for _, e := range c.edges {
		if e.To == c.start || e.From == c.end {
			return false
		}
	}
	return true
}

func sameState(a, b State) bool {
	return a.flags == b.flags && a.value.Equal(b.value)
}

// absorb copies o's states and edges into c. States listed in merge are
// folded into existing states of c instead of being copied. Returns the ID
// mapping from o to c.
func (c *Chunk) absorb(o *Chunk, merge map[StateID]StateID) []StateID {
	remap := make([]StateID, len(o.states))
	for i := range o.states {
		src := o.states[i]
		if dst, ok := merge[src.id]; ok {
			c.mergeState(dst, src)
			remap[i] = dst
			continue
		}
		remap[i] = c.AddState(src.flags, src.value)
	}
	for _, e := range o.edges {
		c.AddEdge(remap[e.From], remap[e.To], e.Cond)
	}
	c.props.Deterministic = c.props.Deterministic && o.props.Deterministic
	return remap
}

// mergeState folds src into dst: flags are OR-ed and the first non-Any
// value condition is kept.
func (c *Chunk) mergeState(dst StateID, src State) {
	d := &c.states[dst]
	d.flags |= src.flags
	if d.value.Kind() == CondAny {
		d.value = src.value
	}
}

// loop turns c into one-or-more repetitions of itself (zero-or-more when
// skippable is set). The epsilon back edge is wrapped in fresh entry and exit
// states so that later identity merges cannot leak into the loop.
func (c *Chunk) loop(skippable bool) {
	entry := c.AddState(0, Any())
	exit := c.AddState(0, Any())
	c.AddEdge(c.end, c.start, Epsilon())
	c.AddEdge(entry, c.start, Epsilon())
	c.AddEdge(c.end, exit, Epsilon())
	if skippable {
		c.AddEdge(entry, exit, Epsilon())
	}
	c.start, c.end = entry, exit
}

// Validate checks that the chunk is well-formed:
// - start and end are members of the arena
// - every edge endpoint is a member of the arena
func (c *Chunk) Validate() error {
	n := len(c.states)
	if c.start == InvalidState || int(c.start) >= n {
		return &BuildError{Message: "start state not in chunk", StateID: c.start}
	}
	if c.end == InvalidState || int(c.end) >= n {
		return &BuildError{Message: "end state not in chunk", StateID: c.end}
	}
	for i, e := range c.edges {
		if int(e.From) >= n {
			return &BuildError{Message: fmt.Sprintf("edge %d has invalid source", i), StateID: e.From}
		}
		if int(e.To) >= n {
			return &BuildError{Message: fmt.Sprintf("edge %d has invalid target", i), StateID: e.To}
		}
	}
	return nil
}

// String returns a human-readable representation of the chunk
func (c *Chunk) String() string {
	return fmt.Sprintf("Chunk{states: %d, edges: %d, start: %d, end: %d, synchronous: %v}",
		len(c.states), len(c.edges), c.start, c.end, c.props.Synchronous)
}
