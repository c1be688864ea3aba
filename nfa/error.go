// Package nfa implements graph finite path automata (GFPA): Thompson-style
// nondeterministic automata over labeled paths, generalized with rooted and
// terminal anchors.
//
// Element trees from package syntax are compiled into Chunk fragments
// (mutable multigraphs with one start and one end state), glued together per
// sequence, disjunction and quantifier semantics, and frozen into an
// immutable Automaton. An Automaton answers whole-path questions through a
// Stepper and enumerates matching sub-paths through a GroupMatcher.
package nfa

import (
	"errors"
	"fmt"

	"github.com/coregx/gfpa/syntax"
)

// Common automaton errors
var (
	// ErrInvalidQuantifier indicates a quantifier with Min < 0, Max == 0 or Max < Min
	ErrInvalidQuantifier = syntax.ErrInvalidQuantifier

	// ErrUnsupportedShape indicates an element a path automaton cannot represent
	ErrUnsupportedShape = errors.New("unsupported element shape")

	// ErrTooComplex indicates the element tree exceeds compilation limits
	ErrTooComplex = errors.New("pattern too complex")

	// ErrInvalidCondition indicates a label or value test that cannot be built
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrInvalidState indicates a state ID outside the automaton
	ErrInvalidState = errors.New("invalid automaton state")
)

// CompileError wraps compilation errors with the element being compiled
type CompileError struct {
	Pattern string
	Err     error
}

// Error implements the error interface
func (e *CompileError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("GFPA compilation failed for %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("GFPA compilation failed: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *CompileError) Unwrap() error {
	return e.Err
}

// BuildError reports a malformed chunk found while freezing it
type BuildError struct {
	Message string
	StateID StateID
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.StateID != InvalidState {
		return fmt.Sprintf("GFPA build error at state %d: %s", e.StateID, e.Message)
	}
	return fmt.Sprintf("GFPA build error: %s", e.Message)
}

// Unwrap returns ErrInvalidState
func (e *BuildError) Unwrap() error {
	return ErrInvalidState
}
