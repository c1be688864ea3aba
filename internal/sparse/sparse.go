// Package sparse provides a sparse set of automaton state IDs.
//
// A sparse set supports O(1) insertion, membership testing and clearing while
// keeping a dense list of members in insertion order. The dense list lets an
// epsilon closure use the set itself as its BFS queue.
package sparse

// Set is a set of uint32 values below a fixed capacity.
type Set struct {
	sparse []uint32 // value -> index in dense
	dense  []uint32 // members in insertion order
}

// New creates a set able to hold values in [0, capacity).
func New(capacity int) *Set {
	if capacity < 0 {
		capacity = 0
	}
	return &Set{
		sparse: make([]uint32, capacity),
		dense:  make([]uint32, 0, capacity),
	}
}

// Capacity returns the exclusive upper bound of storable values.
func (s *Set) Capacity() int {
	return len(s.sparse)
}

// Insert adds a value and reports whether it was absent.
// Panics if value >= Capacity().
func (s *Set) Insert(value uint32) bool {
	if s.Contains(value) {
		return false
	}
	s.sparse[value] = uint32(len(s.dense))
	s.dense = append(s.dense, value)
	return true
}

// Contains returns true if the value is in the set
func (s *Set) Contains(value uint32) bool {
	if uint64(value) >= uint64(len(s.sparse)) {
		return false
	}
	idx := s.sparse[value]
	return int(idx) < len(s.dense) && s.dense[idx] == value
}

// At returns the i-th member in insertion order.
func (s *Set) At(i int) uint32 {
	return s.dense[i]
}

// Clear removes all elements in O(1) time
func (s *Set) Clear() {
	s.dense = s.dense[:0]
}

// Len returns the number of elements in the set
func (s *Set) Len() int {
	return len(s.dense)
}

// IsEmpty returns true if the set contains no elements
func (s *Set) IsEmpty() bool {
	return len(s.dense) == 0
}

// Values returns the members in insertion order.
// The returned slice is valid until the next mutation.
func (s *Set) Values() []uint32 {
	return s.dense
}
