// Package path provides the labeled path data model that automata are
// matched against.
//
// A Path is a finite sequence of labels read from some position of a tree
// towards a leaf. It may be rooted (it starts at the true root of the tree),
// terminal (it ends at a true leaf) and may carry the value stored at its
// last node.
//
// Paths are immutable once built.
package path

import (
	"errors"
	"fmt"
	"strings"
)

// Path errors
var (
	// ErrIndexOutOfRange indicates sub-path offsets outside [0, Len()]
	ErrIndexOutOfRange = errors.New("path index out of range")

	// ErrSyntax indicates a malformed path string
	ErrSyntax = errors.New("invalid path syntax")
)

// RangeError reports invalid sub-path offsets.
type RangeError struct {
	Start, End, Len int
}

// Error implements the error interface
func (e *RangeError) Error() string {
	return fmt.Sprintf("sub-path [%d,%d) out of range for path of length %d", e.Start, e.End, e.Len)
}

// Unwrap returns ErrIndexOutOfRange
func (e *RangeError) Unwrap() error {
	return ErrIndexOutOfRange
}

// Path is a labeled path.
type Path struct {
	labels   []string
	rooted   bool
	terminal bool
	value    string
	hasValue bool
}

// Option configures a Path built with New.
type Option func(*Path)

// Rooted marks the path as starting at the root.
func Rooted() Option {
	return func(p *Path) { p.rooted = true }
}

// Terminal marks the path as ending at a leaf.
func Terminal() Option {
	return func(p *Path) { p.terminal = true }
}

// WithValue sets the value held by the last node of the path.
func WithValue(v string) Option {
	return func(p *Path) {
		p.value = v
		p.hasValue = true
	}
}

// New builds a path from labels. The labels slice is copied.
func New(labels []string, opts ...Option) *Path {
	p := &Path{labels: append([]string(nil), labels...)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Labels returns the labels of the path. The slice must not be modified.
func (p *Path) Labels() []string {
	return p.labels
}

// Len returns the number of labels.
func (p *Path) Len() int {
	return len(p.labels)
}

// Label returns the i-th label.
func (p *Path) Label(i int) string {
	return p.labels[i]
}

// IsRooted reports whether the path starts at the root of its tree.
func (p *Path) IsRooted() bool {
	return p.rooted
}

// IsTerminal reports whether the path ends at a leaf of its tree.
func (p *Path) IsTerminal() bool {
	return p.terminal
}

// LeafValue returns the value held by the last node, if any.
func (p *Path) LeafValue() (string, bool) {
	return p.value, p.hasValue
}

// SubPath returns the labels in [start, end).
//
// The sub-path is rooted only if it starts at offset 0 of a rooted path, and
// terminal only if it ends at the end of a terminal path. The leaf value is
// kept only when the sub-path ends where the path ends.
func (p *Path) SubPath(start, end int) (*Path, error) {
	if start < 0 || end < start || end > len(p.labels) {
		return nil, &RangeError{Start: start, End: end, Len: len(p.labels)}
	}
	sub := &Path{
		labels:   p.labels[start:end:end],
		rooted:   p.rooted && start == 0,
		terminal: p.terminal && end == len(p.labels),
	}
	if end == len(p.labels) {
		sub.value, sub.hasValue = p.value, p.hasValue
	}
	return sub, nil
}

// Equal reports whether both paths have the same labels, anchors and value.
func (p *Path) Equal(o *Path) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.rooted != o.rooted || p.terminal != o.terminal || p.hasValue != o.hasValue || p.value != o.value {
		return false
	}
	if len(p.labels) != len(o.labels) {
		return false
	}
	for i := range p.labels {
		if p.labels[i] != o.labels[i] {
			return false
		}
	}
	return true
}

// Includes reports whether sub is a window of p: its labels appear
// contiguously in p, and its anchors and value are consistent with where the
// window sits.
func (p *Path) Includes(sub *Path) bool {
	n, m := len(p.labels), len(sub.labels)
	for start := 0; start+m <= n; start++ {
		if sub.rooted && start != 0 {
			break
		}
		window, _ := p.SubPath(start, start+m)
		if window.Equal(sub) {
			return true
		}
	}
	return false
}

// String formats the path in the syntax accepted by Parse.
func (p *Path) String() string {
	var sb strings.Builder
	if p.rooted {
		sb.WriteByte('^')
	}
	for i, l := range p.labels {
		if i > 0 {
			sb.WriteByte('.')
		}
		writeEscaped(&sb, l)
	}
	if p.hasValue {
		sb.WriteByte('=')
		writeEscaped(&sb, p.value)
	}
	if p.terminal {
		sb.WriteByte('$')
	}
	return sb.String()
}

const special = `.^$=\`

func writeEscaped(sb *strings.Builder, s string) {
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
}
