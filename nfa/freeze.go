package nfa

import (
	"github.com/coregx/gfpa/internal/conv"
	"github.com/coregx/gfpa/internal/sparse"
)

// Create freezes a chunk into an Automaton. The chunk's start state becomes
// the single initial state and its end state the single final state.
// Epsilon edges are kept; the Stepper resolves them with closures.
//
// The chunk may be reused afterwards: the automaton owns its own copy.
func Create(c *Chunk) (*Automaton, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	states := append([]State(nil), c.states...)
	states[c.start].flags |= FlagInitial
	states[c.end].flags |= FlagFinal

	out := make([][]Edge, len(states))
	for _, e := range c.edges {
		out[e.From] = append(out[e.From], e)
	}

	a := &Automaton{
		states:  states,
		out:     out,
		initial: []StateID{c.start},
		props:   Properties{Synchronous: c.props.Synchronous},
	}
	a.props.Deterministic = a.props.Synchronous && computeDeterministic(a)
	return a, nil
}

// CreateSync freezes a chunk into a synchronous Automaton: one without
// epsilon edges.
//
// Every state of the result stands for one state of the epsilon automaton
// together with the anchor context it is entered in. Its edges are the
// non-epsilon edges leaving that state's epsilon closure, redirected to the
// states standing for their targets. States are discovered breadth-first
// from the initial closures and each (state, context) pair is processed
// once, so construction terminates on cyclic graphs.
//
// This is closure folding, not subset construction: several edges of one
// state may still accept the same label. Properties().Deterministic reports
// whether they do. Leaf acceptance is delegated to the epsilon automaton so
// anchor and value semantics are identical to Create.
func CreateSync(c *Chunk) (*Automaton, error) {
	base, err := Create(c)
	if err != nil {
		return nil, err
	}
	if base.props.Synchronous {
		return base, nil
	}
	return synchronize(base), nil
}

// synchronize folds the epsilon closures of base into its edges.
func synchronize(base *Automaton) *Automaton {
	a := &Automaton{
		base:  base,
		props: Properties{Synchronous: true},
	}

	index := make(map[syncOrigin]StateID)
	var queue []syncOrigin
	closure := sparse.New(len(base.states))

	// visit returns the state for key, creating it when new. Keys whose
	// closure is empty (an excluded anchored state) yield InvalidState.
	visit := func(key syncOrigin) StateID {
		if id, ok := index[key]; ok {
			return id
		}
		if base.excluded(key.state, key.mask) {
			return InvalidState
		}
		id := StateID(conv.Handle(len(a.states)))
		src := base.states[key.state]
		a.states = append(a.states, State{id: id, flags: src.flags &^ FlagInitial, value: src.value})
		a.out = append(a.out, nil)
		a.origin = append(a.origin, key)
		index[key] = id
		queue = append(queue, key)
		return id
	}

	for _, s := range base.initial {
		if id := visit(syncOrigin{state: s}); id != InvalidState {
			a.initial = append(a.initial, id)
		}
	}
	for _, s := range base.initial {
		open := syncOrigin{state: s, mask: excludeRooted}
		if closureLen(base, closure, s, excludeRooted) == closureLen(base, closure, s, 0) {
			open.mask = 0
		}
		if id := visit(open); id != InvalidState {
			a.open = append(a.open, id)
		}
	}

	type edgeKey struct {
		cond string
		to   StateID
	}
	for i := 0; i < len(queue); i++ {
		key := queue[i]
		id := index[key]

		closure.Clear()
		base.closure(closure, []StateID{key.state}, key.mask)
		seen := make(map[edgeKey]bool)
		for _, v := range closure.Values() {
			if base.states[v].IsFinal() {
				a.states[id].flags |= FlagFinal
			}
			for _, e := range base.out[v] {
				if e.IsEpsilon() {
					continue
				}
				to := visit(syncOrigin{state: e.To})
				k := edgeKey{cond: e.Cond.key(), to: to}
				if seen[k] {
					continue
				}
				seen[k] = true
				a.out[id] = append(a.out[id], Edge{From: id, To: to, Cond: e.Cond})
			}
		}
	}

	for _, id := range a.initial {
		a.states[id].flags |= FlagInitial
	}
	for _, id := range a.open {
		a.states[id].flags |= FlagInitial
	}
	a.props.Deterministic = computeDeterministic(a)
	return a
}

// closureLen returns the size of the epsilon closure of s under mask.
func closureLen(a *Automaton, set *sparse.Set, s StateID, mask anchorMask) int {
	set.Clear()
	a.closure(set, []StateID{s}, mask)
	return set.Len()
}

// computeDeterministic reports whether a run never has a choice: one start
// state per anchor context and, per state, pairwise disjoint literal edges.
// Any and Regex edges are only deterministic when they are alone.
func computeDeterministic(a *Automaton) bool {
	if len(a.initial) > 1 || len(a.open) > 1 {
		return false
	}
	for _, edges := range a.out {
		if len(edges) < 2 {
			if len(edges) == 1 && edges[0].IsEpsilon() {
				return false
			}
			continue
		}
		seen := make(map[string]bool, len(edges))
		for _, e := range edges {
			lit, ok := e.Cond.Literal()
			if !ok || seen[lit] {
				return false
			}
			seen[lit] = true
		}
	}
	return true
}
