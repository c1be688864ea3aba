// Package conv provides checked integer conversions for automaton arenas.
//
// State IDs are uint32 arena indices and the maximum uint32 is reserved for
// nfa.InvalidState. Narrowing an index silently would alias two states, so
// these helpers panic instead: an arena that large means a compilation limit
// was bypassed, which is a programming error.
package conv

import "math"

// Handle converts an arena index to a uint32 handle.
// Panics if n < 0 or n >= math.MaxUint32.
//
//go:inline
func Handle(n int) uint32 {
	// Use uint for comparison to avoid overflow on 32-bit platforms
	if n < 0 || uint(n) >= math.MaxUint32 {
		panic("integer overflow: arena index out of handle range")
	}
	return uint32(n)
}
