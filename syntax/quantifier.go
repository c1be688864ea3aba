package syntax

import (
	"errors"
	"fmt"
)

// Unbounded is the Max value of a quantifier without upper limit.
const Unbounded = -1

// ErrInvalidQuantifier indicates a quantifier with Min < 0, Max == 0 or Max < Min.
var ErrInvalidQuantifier = errors.New("invalid quantifier")

// Quantifier is a repetition range {Min,Max}. Max == Unbounded means no
// upper limit. Quantifiers are plain values compared with ==.
type Quantifier struct {
	Min int
	Max int
}

// Common quantifiers
var (
	One        = Quantifier{Min: 1, Max: 1}
	Optional   = Quantifier{Min: 0, Max: 1}
	ZeroOrMore = Quantifier{Min: 0, Max: Unbounded}
	OneOrMore  = Quantifier{Min: 1, Max: Unbounded}
)

// IsOne reports whether the quantifier is {1,1}.
func (q Quantifier) IsOne() bool {
	return q == One
}

// IsUnbounded reports whether the quantifier has no upper limit.
func (q Quantifier) IsUnbounded() bool {
	return q.Max == Unbounded
}

// Validate checks the quantifier range.
func (q Quantifier) Validate() error {
	switch {
	case q.Min < 0:
		return fmt.Errorf("%w: negative minimum in %s", ErrInvalidQuantifier, q)
	case q.Max == 0:
		return fmt.Errorf("%w: zero maximum in %s", ErrInvalidQuantifier, q)
	case q.Max != Unbounded && q.Max < q.Min:
		return fmt.Errorf("%w: maximum below minimum in %s", ErrInvalidQuantifier, q)
	case q.Max < Unbounded:
		return fmt.Errorf("%w: negative maximum in %s", ErrInvalidQuantifier, q)
	}
	return nil
}

// String formats the quantifier in pattern syntax.
func (q Quantifier) String() string {
	switch q {
	case One:
		return ""
	case Optional:
		return "?"
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	}
	if q.Max == Unbounded {
		return fmt.Sprintf("{%d,}", q.Min)
	}
	if q.Min == q.Max {
		return fmt.Sprintf("{%d}", q.Min)
	}
	return fmt.Sprintf("{%d,%d}", q.Min, q.Max)
}
