// Package syntax defines the element tree consumed by the automaton compiler
// and a parser for the textual path-regex syntax.
//
// An element tree is built from four path shapes:
//   - EMPTY: matches the empty path (optionally anchored, optionally with a value test)
//   - KEY: matches exactly one label
//   - SEQUENCE: concatenation of sub-elements
//   - DISJUNCTION: alternation of sub-elements
//
// Every element carries rooted/terminal anchors (like ^ and $) and a
// quantifier {Min,Max}. The NODE kind describes branching tree shapes; it is
// part of the tree so that path-only consumers can reject it explicitly.
//
// Textual syntax:
//
//	^a.b{1,3}|c$        rooted "a" then 1-3 "b", or terminal "c"
//	users._.name=/x.*/  wildcard key and a regex value test on the leaf
//	(a|b)*.c            groups and quantifiers * + ? {n} {n,} {n,m}
package syntax

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of an element.
type Kind uint8

const (
	// KindEmpty matches the empty path.
	KindEmpty Kind = iota

	// KindKey matches a single label.
	KindKey

	// KindSequence matches its sub-elements one after another.
	KindSequence

	// KindDisjunction matches any one of its sub-elements.
	KindDisjunction

	// KindNode is a branching tree shape (a node with several child paths).
	// Path automata cannot represent it.
	KindNode
)

// String returns a human-readable representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "EMPTY"
	case KindKey:
		return "KEY"
	case KindSequence:
		return "SEQUENCE"
	case KindDisjunction:
		return "DISJUNCTION"
	case KindNode:
		return "NODE"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// TestKind selects how a key or value is tested.
type TestKind uint8

const (
	// TestAny accepts every label (the wildcard key "_").
	TestAny TestKind = iota

	// TestLiteral accepts exactly one label.
	TestLiteral

	// TestRegex accepts labels fully matched by a regular expression.
	TestRegex
)

// Test describes a label or value test.
type Test struct {
	Kind TestKind
	Text string
}

// Any returns the wildcard test.
func Any() Test { return Test{Kind: TestAny} }

// Literal returns an equality test.
func Literal(s string) Test { return Test{Kind: TestLiteral, Text: s} }

// Regex returns a full-match regular expression test.
func Regex(pattern string) Test { return Test{Kind: TestRegex, Text: pattern} }

// String formats the test in pattern syntax.
func (t Test) String() string {
	switch t.Kind {
	case TestAny:
		return "_"
	case TestRegex:
		return "/" + strings.ReplaceAll(t.Text, "/", `\/`) + "/"
	default:
		return escapeLiteral(t.Text)
	}
}

// Element is one node of the element tree.
type Element struct {
	Kind Kind

	// Rooted anchors the element at the root of the data (^).
	Rooted bool

	// Terminal anchors the element at a leaf of the data ($).
	Terminal bool

	// Key is the label test of a KEY element.
	Key Test

	// Value is an optional test on the leaf value reached by the element.
	Value *Test

	Quantifier Quantifier

	// Sub holds the children of SEQUENCE, DISJUNCTION and NODE elements.
	Sub []*Element
}

// Empty returns an EMPTY element.
func Empty() *Element {
	return &Element{Kind: KindEmpty, Quantifier: One}
}

// Key returns a KEY element testing a single label.
func Key(t Test) *Element {
	return &Element{Kind: KindKey, Key: t, Quantifier: One}
}

// Label is shorthand for Key(Literal(s)).
func Label(s string) *Element {
	return Key(Literal(s))
}

// Sequence returns a SEQUENCE element.
func Sequence(sub ...*Element) *Element {
	return &Element{Kind: KindSequence, Sub: sub, Quantifier: One}
}

// Disjunction returns a DISJUNCTION element.
func Disjunction(sub ...*Element) *Element {
	return &Element{Kind: KindDisjunction, Sub: sub, Quantifier: One}
}

// Node returns a NODE element with one child path per sub-element.
func Node(sub ...*Element) *Element {
	return &Element{Kind: KindNode, Sub: sub, Quantifier: One}
}

// Repeat sets the quantifier and returns the element.
func (e *Element) Repeat(min, max int) *Element {
	e.Quantifier = Quantifier{Min: min, Max: max}
	return e
}

// Anchor sets the rooted and terminal flags and returns the element.
func (e *Element) Anchor(rooted, terminal bool) *Element {
	e.Rooted = rooted
	e.Terminal = terminal
	return e
}

// WithValue attaches a leaf value test and returns the element.
func (e *Element) WithValue(t Test) *Element {
	e.Value = &t
	return e
}

// String formats the element in pattern syntax.
func (e *Element) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Element) write(sb *strings.Builder) {
	if e == nil {
		sb.WriteString("<nil>")
		return
	}
	grouped := !e.Quantifier.IsOne() && (e.Kind == KindSequence || e.Kind == KindDisjunction)
	if e.Rooted {
		sb.WriteByte('^')
	}
	if grouped {
		sb.WriteByte('(')
	}
	switch e.Kind {
	case KindEmpty:
		sb.WriteString("()")
	case KindKey:
		sb.WriteString(e.Key.String())
	case KindSequence, KindDisjunction:
		sep := "."
		if e.Kind == KindDisjunction {
			sep = "|"
		}
		for i, sub := range e.Sub {
			if i > 0 {
				sb.WriteString(sep)
			}
			nested := sub != nil && (sub.Kind == KindDisjunction || (e.Kind == KindDisjunction && sub.Kind == KindSequence)) &&
				sub.Quantifier.IsOne()
			if nested {
				sb.WriteByte('(')
			}
			sub.write(sb)
			if nested {
				sb.WriteByte(')')
			}
		}
	case KindNode:
		sb.WriteString("node[")
		for i, sub := range e.Sub {
			if i > 0 {
				sb.WriteString(", ")
			}
			sub.write(sb)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString(e.Kind.String())
	}
	if grouped {
		sb.WriteByte(')')
	}
	if e.Value != nil {
		sb.WriteByte('=')
		sb.WriteString(e.Value.String())
	}
	if !e.Quantifier.IsOne() {
		sb.WriteString(e.Quantifier.String())
	}
	if e.Terminal {
		sb.WriteByte('$')
	}
}

const metaChars = `.|()^${}*+?=/\`

func escapeLiteral(s string) string {
	if s == "_" {
		return `\_`
	}
	if !strings.ContainsAny(s, metaChars) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(metaChars, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
