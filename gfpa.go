// Package gfpa provides path regular expressions over labeled paths, matched
// with graph finite path automata.
//
// A path is a finite sequence of labels read from a tree, such as the keys
// leading from a document root to one of its values. A path pattern is a
// regular expression whose letters are label tests:
//
//	^users._.name$          rooted: users, any label, then name as a leaf
//	(a|b.c)*.d              groups, alternation and repetition
//	config.port=/[0-9]+/    a regex test on the leaf value
//
// Patterns compile to Thompson-style automata generalized with rooted and
// terminal anchors. Match answers whether a whole path is accepted; a
// Matcher enumerates every accepted sub-path with its [start, end) label
// offsets.
//
// Basic usage:
//
//	p, err := gfpa.Compile(`users._.name`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	in := path.MustParse("^users.42.name=alice$")
//	fmt.Println(p.Match(in)) // true
//
//	m := p.Matcher(path.MustParse("a.users.7.name.b"))
//	for m.Find() {
//	    fmt.Println(m.Start(), m.End()) // 1 4
//	}
//
// Advanced usage:
//
//	config := gfpa.DefaultConfig()
//	config.Sync = false
//	p, err := gfpa.CompileWithConfig("(a*)*.b", config)
package gfpa

import (
	"errors"

	"github.com/coregx/gfpa/nfa"
	"github.com/coregx/gfpa/path"
	"github.com/coregx/gfpa/prefilter"
	"github.com/coregx/gfpa/syntax"
)

// ErrNoMatch is returned by Matcher.SubPath when there is no current match
var ErrNoMatch = errors.New("gfpa: no current match")

// Pattern is a compiled path pattern.
//
// A Pattern is safe to use concurrently from multiple goroutines. Each
// Matcher it creates is not.
//
// Example:
//
//	p := gfpa.MustCompile(`a.b`)
//	if p.Match(path.MustParse("a.b")) {
//	    println("matched!")
//	}
type Pattern struct {
	auto    *nfa.Automaton
	pattern string

	// tracker is nil when the pattern has no prefilter
	tracker *prefilter.Tracker
}

// Compile compiles a path pattern with the default configuration.
//
// Example:
//
//	p, err := gfpa.Compile(`^users./[0-9]+/$`)
//	if err != nil {
//	    log.Fatal(err)
//	}
func Compile(pattern string) (*Pattern, error) {
	return CompileWithConfig(pattern, DefaultConfig())
}

// MustCompile compiles a path pattern and panics if it fails.
//
// This is useful for patterns known to be valid at compile time.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic("gfpa: Compile(`" + pattern + "`): " + err.Error())
	}
	return p
}

// CompileWithConfig compiles a pattern with custom configuration.
func CompileWithConfig(pattern string, config Config) (*Pattern, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	auto, err := nfa.NewCompiler(config.compilerConfig()).Compile(pattern)
	if err != nil {
		return nil, err
	}
	return newPattern(auto, pattern, config), nil
}

// CompileElement compiles an element tree built with package syntax.
func CompileElement(el *syntax.Element, config Config) (*Pattern, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	auto, err := nfa.NewCompiler(config.compilerConfig()).CompileElement(el)
	if err != nil {
		return nil, err
	}
	return newPattern(auto, el.String(), config), nil
}

func newPattern(auto *nfa.Automaton, pattern string, config Config) *Pattern {
	p := &Pattern{auto: auto, pattern: pattern}
	if config.EnablePrefilter {
		p.tracker = prefilter.NewTracker(prefilter.ForAutomaton(auto))
	}
	return p
}

// String returns the source text used to compile the pattern.
func (p *Pattern) String() string {
	return p.pattern
}

// Automaton returns the compiled automaton.
func (p *Pattern) Automaton() *nfa.Automaton {
	return p.auto
}

// Prefilter returns the start-label prefilter searches use, or nil when the
// pattern has none or it was disabled in the Config.
func (p *Pattern) Prefilter() prefilter.Prefilter {
	if p.tracker == nil {
		return nil
	}
	return p.tracker.Inner()
}

// Match reports whether the pattern accepts the whole path, anchors and
// leaf value included.
func (p *Pattern) Match(in *path.Path) bool {
	return p.auto.Matches(in)
}

// MatchString parses s with path.Parse and reports whether the pattern
// accepts it.
func (p *Pattern) MatchString(s string) (bool, error) {
	in, err := path.Parse(s)
	if err != nil {
		return false, err
	}
	return p.Match(in), nil
}

// Matcher returns an iterator over the sub-paths of in that the pattern
// accepts, ordered by end offset, then start offset.
func (p *Pattern) Matcher(in *path.Path) *Matcher {
	m := &Matcher{
		pattern: p,
		in:      in,
		gm:      p.auto.NewGroupMatcher(in),
	}
	if p.tracker != nil {
		if filter := p.tracker.StartFilter(in.Labels()); filter != nil {
			m.gm.SetStartFilter(filter)
			m.confirmed = make(map[int]bool)
		}
	}
	return m
}

// FindAllIndex returns the [start, end) offsets of the accepted sub-paths of
// in. If n >= 0, at most n results are returned. Returns nil when nothing
// matches.
func (p *Pattern) FindAllIndex(in *path.Path, n int) [][]int {
	var out [][]int
	m := p.Matcher(in)
	for (n < 0 || len(out) < n) && m.Find() {
		out = append(out, []int{m.Start(), m.End()})
	}
	return out
}

// FindAll returns the accepted sub-paths of in. If n >= 0, at most n results
// are returned.
func (p *Pattern) FindAll(in *path.Path, n int) []*path.Path {
	var out []*path.Path
	m := p.Matcher(in)
	for (n < 0 || len(out) < n) && m.Find() {
		sub, err := m.SubPath()
		if err != nil {
			break
		}
		out = append(out, sub)
	}
	return out
}

// Count returns the number of accepted sub-paths of in.
func (p *Pattern) Count(in *path.Path) int {
	n := 0
	m := p.Matcher(in)
	for m.Find() {
		n++
	}
	return n
}

// Matcher iterates over the accepted sub-paths of one path.
//
// Example:
//
//	m := p.Matcher(in)
//	for m.Find() {
//	    sub, _ := m.SubPath()
//	    fmt.Println(m.Start(), m.End(), sub)
//	}
type Matcher struct {
	pattern *Pattern
	in      *path.Path
	gm      *nfa.GroupMatcher

	cur nfa.Match
	ok  bool

	// confirmed holds the start offsets reported to the prefilter tracker;
	// nil when no prefilter is in use
	confirmed map[int]bool
}

// Find advances to the next match and reports whether there is one.
func (m *Matcher) Find() bool {
	m.cur, m.ok = m.gm.Find()
	if m.ok && m.confirmed != nil && !m.confirmed[m.cur.Start] {
		m.confirmed[m.cur.Start] = true
		m.pattern.tracker.ConfirmMatch()
	}
	return m.ok
}

// Start returns the start offset of the current match, or -1.
func (m *Matcher) Start() int {
	if !m.ok {
		return -1
	}
	return m.cur.Start
}

// End returns the end offset of the current match, or -1.
func (m *Matcher) End() int {
	if !m.ok {
		return -1
	}
	return m.cur.End
}

// Match returns the current match offsets.
func (m *Matcher) Match() (nfa.Match, bool) {
	return m.cur, m.ok
}

// SubPath returns the current match as a path. Its anchors and leaf value
// are those of the matched range of the searched path.
func (m *Matcher) SubPath() (*path.Path, error) {
	if !m.ok {
		return nil, ErrNoMatch
	}
	return m.in.SubPath(m.cur.Start, m.cur.End)
}
