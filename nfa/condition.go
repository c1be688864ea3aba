package nfa

import (
	"fmt"

	"github.com/coregx/coregex"

	"github.com/coregx/gfpa/syntax"
)

// ConditionKind identifies the test a Condition performs.
type ConditionKind uint8

const (
	// CondAny accepts every label and every value (including a missing value).
	CondAny ConditionKind = iota

	// CondEpsilon consumes no label. It never accepts a real label.
	CondEpsilon

	// CondEquals accepts exactly one label or value.
	CondEquals

	// CondRegex accepts labels or values fully matched by a regular expression.
	CondRegex
)

// String returns a human-readable representation of the ConditionKind
func (k ConditionKind) String() string {
	switch k {
	case CondAny:
		return "Any"
	case CondEpsilon:
		return "Epsilon"
	case CondEquals:
		return "Equals"
	case CondRegex:
		return "Regex"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Condition is a test against a label (on edges) or a leaf value (on states).
// The zero value is the Any condition.
//
// Conditions are immutable and compared structurally: two Regex conditions
// are equal when their patterns are equal.
type Condition struct {
	kind ConditionKind
	text string
	re   *coregex.Regex
}

// Any returns the condition accepting everything.
func Any() Condition {
	return Condition{kind: CondAny}
}

// Epsilon returns the free-transition condition.
func Epsilon() Condition {
	return Condition{kind: CondEpsilon}
}

// Equals returns the condition accepting exactly s.
func Equals(s string) Condition {
	return Condition{kind: CondEquals, text: s}
}

// Regex returns a condition accepting strings fully matched by pattern.
func Regex(pattern string) (Condition, error) {
	re, err := coregex.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return Condition{}, fmt.Errorf("%w: regex %q: %v", ErrInvalidCondition, pattern, err)
	}
	return Condition{kind: CondRegex, text: pattern, re: re}, nil
}

// ConditionFor builds the condition described by a syntax test.
func ConditionFor(t syntax.Test) (Condition, error) {
	switch t.Kind {
	case syntax.TestAny:
		return Any(), nil
	case syntax.TestLiteral:
		return Equals(t.Text), nil
	case syntax.TestRegex:
		return Regex(t.Text)
	default:
		return Condition{}, fmt.Errorf("%w: unknown test kind %d", ErrInvalidCondition, t.Kind)
	}
}

// Kind returns the condition's variant.
func (c Condition) Kind() ConditionKind {
	return c.kind
}

// IsEpsilon reports whether the condition is a free transition.
func (c Condition) IsEpsilon() bool {
	return c.kind == CondEpsilon
}

// Literal returns the accepted string of an Equals condition.
func (c Condition) Literal() (string, bool) {
	if c.kind == CondEquals {
		return c.text, true
	}
	return "", false
}

// Test reports whether an edge guarded by c can consume label.
func (c Condition) Test(label string) bool {
	switch c.kind {
	case CondAny:
		return true
	case CondEquals:
		return label == c.text
	case CondRegex:
		return c.re.MatchString(label)
	default:
		return false
	}
}

// TestValue reports whether a leaf value satisfies c. ok is false when the
// path has no value; only Any (and Epsilon, which tests nothing) accept that.
func (c Condition) TestValue(v string, ok bool) bool {
	switch c.kind {
	case CondAny, CondEpsilon:
		return true
	case CondEquals:
		return ok && v == c.text
	case CondRegex:
		return ok && c.re.MatchString(v)
	default:
		return false
	}
}

// Equal reports structural equality.
func (c Condition) Equal(o Condition) bool {
	return c.kind == o.kind && c.text == o.text
}

// key is a map key with the same equality as Equal.
func (c Condition) key() string {
	return string(rune('0'+c.kind)) + c.text
}

// String formats the condition in pattern syntax.
func (c Condition) String() string {
	switch c.kind {
	case CondAny:
		return "_"
	case CondEpsilon:
		return "ε"
	case CondEquals:
		return syntax.Literal(c.text).String()
	case CondRegex:
		return syntax.Regex(c.text).String()
	default:
		return c.kind.String()
	}
}
