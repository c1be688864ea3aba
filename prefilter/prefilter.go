// Package prefilter provides fast candidate filtering for path search using
// the literal labels a match must begin with.
//
// A prefilter is used to quickly reject label offsets of a path where no
// match can start. GroupMatcher seeds a new run at every offset; with a
// prefilter it only seeds runs at candidate offsets.
//
// Labels are searched with an Aho-Corasick automaton over an encoding of the
// path in which every label is framed by separator bytes, so a pattern hit
// is always a whole label:
//
//	path  users.42.name   ->  \x1eusers\x1f\x1e42\x1f\x1ename\x1f
//	literal "42"          ->  \x1e42\x1f
//
// Example usage:
//
//	a, _ := nfa.NewDefaultCompiler().Compile("users._.name")
//	pf := prefilter.ForAutomaton(a)
//	if pf != nil {
//	    candidates := pf.Candidates(p.Labels()) // [true false false]
//	}
package prefilter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/gfpa/nfa"
)

const (
	labelStart = '\x1e'
	labelEnd   = '\x1f'
)

// ErrUnsupportedLiteral indicates a literal the label encoding cannot frame
var ErrUnsupportedLiteral = errors.New("unsupported prefilter literal")

// Prefilter is used to quickly find label offsets where a match may start.
//
// Key methods:
//   - Candidates: marks each offset where a match may start
//   - IsMatch: reports whether any offset is a candidate
//   - LiteralCount: number of distinct start labels
type Prefilter interface {
	// Candidates returns one flag per label offset. A false flag guarantees
	// that no non-empty match starts at that offset.
	Candidates(labels []string) []bool

	// IsMatch reports whether some label is a candidate start.
	IsMatch(labels []string) bool

	// LiteralCount returns the number of literals searched for
	LiteralCount() int
}

// Labels is a Prefilter over a fixed set of start labels.
//
// Thread safety: a Labels prefilter is immutable and safe for concurrent use.
type Labels struct {
	auto     *ahocorasick.Automaton
	literals []string
}

// New builds a prefilter matching offsets whose label is one of literals.
func New(literals []string) (*Labels, error) {
	if len(literals) == 0 {
		return nil, fmt.Errorf("%w: no literals", ErrUnsupportedLiteral)
	}

	builder := ahocorasick.NewBuilder()
	for _, lit := range literals {
		if hasSeparator(lit) {
			return nil, fmt.Errorf("%w: %q contains a separator byte", ErrUnsupportedLiteral, lit)
		}
		builder.AddPattern(frame(lit))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &Labels{auto: auto, literals: append([]string(nil), literals...)}, nil
}

// ForAutomaton builds the prefilter for an automaton, or returns nil when
// no prefilter applies: when the automaton accepts the empty path, when a
// match may begin with a non-literal label test, or when a start label
// cannot be encoded.
func ForAutomaton(a *nfa.Automaton) Prefilter {
	if a.Nullable() {
		return nil
	}
	literals, ok := a.FirstLabels()
	if !ok || len(literals) == 0 {
		return nil
	}
	pf, err := New(literals)
	if err != nil {
		return nil
	}
	return pf
}

// Candidates implements Prefilter.
func (l *Labels) Candidates(labels []string) []bool {
	out := make([]bool, len(labels))
	if len(labels) == 0 {
		return out
	}
	if anySeparator(labels) {
		for i := range out {
			out[i] = true
		}
		return out
	}

	haystack, starts := encode(labels)
	at := 0
	for at < len(haystack) {
		m := l.auto.Find(haystack, at)
		if m == nil {
			break
		}
		// starts is sorted; a hit always begins at a label boundary
		i := sort.SearchInts(starts, m.Start)
		if i < len(starts) && starts[i] == m.Start {
			out[i] = true
		}
		at = m.End
	}
	return out
}

// IsMatch implements Prefilter.
func (l *Labels) IsMatch(labels []string) bool {
	if len(labels) == 0 {
		return false
	}
	if anySeparator(labels) {
		return true
	}
	haystack, _ := encode(labels)
	return l.auto.IsMatch(haystack)
}

// LiteralCount implements Prefilter.
func (l *Labels) LiteralCount() int {
	return len(l.literals)
}

// Literals returns the start labels
func (l *Labels) Literals() []string {
	return append([]string(nil), l.literals...)
}

// encode frames every label and returns the byte offset of each frame.
func encode(labels []string) ([]byte, []int) {
	n := 0
	for _, s := range labels {
		n += len(s) + 2
	}
	haystack := make([]byte, 0, n)
	starts := make([]int, len(labels))
	for i, s := range labels {
		starts[i] = len(haystack)
		haystack = append(haystack, labelStart)
		haystack = append(haystack, s...)
		haystack = append(haystack, labelEnd)
	}
	return haystack, starts
}

func frame(s string) []byte {
	b := make([]byte, 0, len(s)+2)
	b = append(b, labelStart)
	b = append(b, s...)
	return append(b, labelEnd)
}

func hasSeparator(s string) bool {
	return strings.ContainsAny(s, "\x1e\x1f")
}

func anySeparator(labels []string) bool {
	for _, s := range labels {
		if hasSeparator(s) {
			return true
		}
	}
	return false
}
