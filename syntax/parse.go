package syntax

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrSyntax indicates a malformed pattern.
var ErrSyntax = errors.New("syntax error")

// Error describes a parse failure at a byte offset of the pattern.
type Error struct {
	Pattern string
	Pos     int
	Msg     string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at offset %d in %q: %s", e.Pos, e.Pattern, e.Msg)
}

// Unwrap returns ErrSyntax
func (e *Error) Unwrap() error {
	return ErrSyntax
}

// MaxRepeat limits the bounds accepted in {n,m} quantifiers.
const MaxRepeat = 1000

// Parse parses a pattern into an element tree.
//
// The empty pattern parses to an EMPTY element.
func Parse(pattern string) (*Element, error) {
	p := &parser{src: pattern}
	el, err := p.parseAlternation()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	return el, nil
}

// MustParse is like Parse but panics on error.
func MustParse(pattern string) *Element {
	el, err := Parse(pattern)
	if err != nil {
		panic("syntax: Parse(`" + pattern + "`): " + err.Error())
	}
	return el
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() rune {
	if p.eof() {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

func (p *parser) next() rune {
	r, n := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += n
	return r
}

func (p *parser) accept(r rune) bool {
	if !p.eof() && p.peek() == r {
		p.pos += utf8.RuneLen(r)
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return &Error{Pattern: p.src, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

// parseAlternation parses seq ('|' seq)*
func (p *parser) parseAlternation() (*Element, error) {
	first, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if p.eof() || p.peek() != '|' {
		return first, nil
	}
	alts := []*Element{first}
	for p.accept('|') {
		alt, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	return Disjunction(alts...), nil
}

// parseSequence parses ['^'] [item ('.' item)*] ['$']
func (p *parser) parseSequence() (*Element, error) {
	rooted := p.accept('^')
	var items []*Element
	for !p.atSequenceEnd() {
		if len(items) > 0 {
			if !p.accept('.') {
				return nil, p.errorf("expected '.' between elements, got %q", p.peek())
			}
			if p.atSequenceEnd() {
				return nil, p.errorf("missing element after '.'")
			}
		}
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	terminal := p.accept('$')
	if !p.eof() && p.peek() != '|' && p.peek() != ')' {
		return nil, p.errorf("unexpected %q after '$'", p.peek())
	}

	switch len(items) {
	case 0:
		return Empty().Anchor(rooted, terminal), nil
	case 1:
		el := items[0]
		el.Rooted = el.Rooted || rooted
		el.Terminal = el.Terminal || terminal
		return el, nil
	default:
		return Sequence(items...).Anchor(rooted, terminal), nil
	}
}

func (p *parser) atSequenceEnd() bool {
	if p.eof() {
		return true
	}
	switch p.peek() {
	case '|', ')', '$':
		return true
	}
	return false
}

// parseItem parses an atom followed by any number of quantifiers.
func (p *parser) parseItem() (*Element, error) {
	el, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		q, ok, err := p.parseQuantifier()
		if err != nil {
			return nil, err
		}
		if !ok {
			return el, nil
		}
		if !el.Quantifier.IsOne() {
			el = Sequence(el)
		}
		el.Quantifier = q
	}
}

func (p *parser) parseQuantifier() (Quantifier, bool, error) {
	if p.eof() {
		return Quantifier{}, false, nil
	}
	switch p.peek() {
	case '*':
		p.next()
		return ZeroOrMore, true, nil
	case '+':
		p.next()
		return OneOrMore, true, nil
	case '?':
		p.next()
		return Optional, true, nil
	case '{':
		p.next()
	default:
		return Quantifier{}, false, nil
	}

	lo, err := p.parseInt()
	if err != nil {
		return Quantifier{}, false, err
	}
	q := Quantifier{Min: lo, Max: lo}
	if p.accept(',') {
		if p.accept('}') {
			q.Max = Unbounded
			return q, true, nil
		}
		hi, err := p.parseInt()
		if err != nil {
			return Quantifier{}, false, err
		}
		q.Max = hi
	}
	if !p.accept('}') {
		return Quantifier{}, false, p.errorf("missing '}' in quantifier")
	}
	return q, true, nil
}

func (p *parser) parseInt() (int, error) {
	start := p.pos
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		p.next()
	}
	if start == p.pos {
		return 0, p.errorf("expected number in quantifier")
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil || n > MaxRepeat {
		return 0, &Error{Pattern: p.src, Pos: start, Msg: fmt.Sprintf("repeat count %s exceeds %d", p.src[start:p.pos], MaxRepeat)}
	}
	return n, nil
}

// parseAtom parses '(' alternation ')' | '()' | key ['=' value]
func (p *parser) parseAtom() (*Element, error) {
	if p.accept('(') {
		if p.accept(')') {
			return Empty(), nil
		}
		el, err := p.parseAlternation()
		if err != nil {
			return nil, err
		}
		if !p.accept(')') {
			return nil, p.errorf("missing ')'")
		}
		return el, nil
	}

	key, err := p.parseTest("key")
	if err != nil {
		return nil, err
	}
	el := Key(key)
	if p.accept('=') {
		val, err := p.parseTest("value")
		if err != nil {
			return nil, err
		}
		el.WithValue(val)
	}
	return el, nil
}

// parseTest parses '_' | '/' regex '/' | literal
func (p *parser) parseTest(what string) (Test, error) {
	if p.eof() {
		return Test{}, p.errorf("expected %s", what)
	}
	switch p.peek() {
	case '/':
		return p.parseRegex()
	case '_':
		save := p.pos
		p.next()
		if p.eof() || strings.ContainsRune(metaChars, p.peek()) {
			return Any(), nil
		}
		p.pos = save
	}

	var sb strings.Builder
	for !p.eof() {
		r := p.peek()
		if r == '\\' {
			p.next()
			if p.eof() {
				return Test{}, p.errorf("trailing backslash")
			}
			sb.WriteRune(p.next())
			continue
		}
		if strings.ContainsRune(metaChars, r) {
			break
		}
		sb.WriteRune(p.next())
	}
	if sb.Len() == 0 {
		return Test{}, p.errorf("expected %s, got %q", what, p.peek())
	}
	return Literal(sb.String()), nil
}

func (p *parser) parseRegex() (Test, error) {
	start := p.pos
	p.next()
	var sb strings.Builder
	for !p.eof() {
		r := p.next()
		switch r {
		case '/':
			return Regex(sb.String()), nil
		case '\\':
			if p.eof() {
				return Test{}, p.errorf("trailing backslash in regex")
			}
			esc := p.next()
			if esc != '/' {
				sb.WriteRune('\\')
			}
			sb.WriteRune(esc)
		default:
			sb.WriteRune(r)
		}
	}
	return Test{}, &Error{Pattern: p.src, Pos: start, Msg: "unterminated regex"}
}
