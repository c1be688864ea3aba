package nfa

import (
	"fmt"

	"github.com/coregx/gfpa/syntax"
)

// CompilerConfig configures element tree compilation
type CompilerConfig struct {
	// Sync selects CreateSync over Create when compiling to an Automaton.
	// Synchronous automata have no epsilon edges and step faster.
	Sync bool

	// MaxRecursionDepth limits element tree nesting to prevent stack overflow
	// Default: 100
	MaxRecursionDepth int

	// MaxStates limits the number of chunk states, which quantifier
	// expansion multiplies.
	// Default: 100000
	MaxStates int
}

// DefaultCompilerConfig returns a compiler configuration with sensible defaults
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		Sync:              true,
		MaxRecursionDepth: 100,
		MaxStates:         100000,
	}
}

// Compiler translates element trees into chunks
type Compiler struct {
	config CompilerConfig
	depth  int // current recursion depth
}

// NewCompiler creates a new compiler with the given configuration
func NewCompiler(config CompilerConfig) *Compiler {
	if config.MaxRecursionDepth == 0 {
		config.MaxRecursionDepth = 100
	}
	if config.MaxStates == 0 {
		config.MaxStates = 100000
	}
	return &Compiler{config: config}
}

// NewDefaultCompiler creates a new compiler with default configuration
func NewDefaultCompiler() *Compiler {
	return NewCompiler(DefaultCompilerConfig())
}

// Compile parses a pattern and compiles it into an Automaton
func (c *Compiler) Compile(pattern string) (*Automaton, error) {
	el, err := syntax.Parse(pattern)
	if err != nil {
		return nil, &CompileError{
			Pattern: pattern,
			Err:     err,
		}
	}
	return c.CompileElement(el)
}

// CompileElement compiles an element tree into an Automaton, frozen with
// CreateSync or Create depending on the configuration.
func (c *Compiler) CompileElement(el *syntax.Element) (*Automaton, error) {
	chunk, err := c.BuildChunk(el)
	if err != nil {
		return nil, err
	}

	freeze := Create
	if c.config.Sync {
		freeze = CreateSync
	}
	a, err := freeze(chunk)
	if err != nil {
		return nil, &CompileError{Pattern: el.String(), Err: err}
	}
	return a, nil
}

// BuildChunk compiles an element tree into a Chunk without freezing it.
func (c *Compiler) BuildChunk(el *syntax.Element) (*Chunk, error) {
	c.depth = 0
	chunk, err := c.compile(el)
	if err != nil {
		pattern := ""
		if el != nil {
			pattern = el.String()
		}
		return nil, &CompileError{Pattern: pattern, Err: err}
	}
	return chunk, nil
}

// compile recursively compiles one element.
// Value tests apply to the element before its quantifier, anchors after it.
func (c *Compiler) compile(el *syntax.Element) (*Chunk, error) {
	c.depth++
	if c.depth > c.config.MaxRecursionDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrTooComplex, c.config.MaxRecursionDepth)
	}
	defer func() { c.depth-- }()

	if el == nil {
		return nil, fmt.Errorf("%w: nil element", ErrUnsupportedShape)
	}
	if err := el.Quantifier.Validate(); err != nil {
		return nil, err
	}

	var (
		chunk *Chunk
		err   error
	)
	switch el.Kind {
	case syntax.KindEmpty:
		chunk = NewChunk()
	case syntax.KindKey:
		chunk, err = c.compileKey(el.Key)
	case syntax.KindSequence:
		chunk, err = c.compileSequence(el.Sub)
	case syntax.KindDisjunction:
		chunk, err = c.compileDisjunction(el.Sub)
	default:
		return nil, fmt.Errorf("%w: %s element", ErrUnsupportedShape, el.Kind)
	}
	if err != nil {
		return nil, err
	}

	if el.Value != nil {
		cond, err := ConditionFor(*el.Value)
		if err != nil {
			return nil, err
		}
		chunk.SetValue(chunk.end, cond)
	}

	chunk, err = c.repeat(chunk, el.Quantifier)
	if err != nil {
		return nil, err
	}

	if el.Rooted {
		chunk.SetFlags(chunk.start, FlagRooted)
	}
	if el.Terminal {
		chunk.SetFlags(chunk.end, FlagTerminal)
	}
	return chunk, c.checkBudget(chunk.States())
}

// compileKey compiles a single label test
func (c *Compiler) compileKey(key syntax.Test) (*Chunk, error) {
	cond, err := ConditionFor(key)
	if err != nil {
		return nil, err
	}
	return newKeyChunk(cond), nil
}

// compileSequence concatenates sub-elements left to right
func (c *Compiler) compileSequence(subs []*syntax.Element) (*Chunk, error) {
	chunk := NewChunk()
	for _, sub := range subs {
		next, err := c.compile(sub)
		if err != nil {
			return nil, err
		}
		chunk.Concat(next)
		if err := c.checkBudget(chunk.States()); err != nil {
			return nil, err
		}
	}
	return chunk, nil
}

// compileDisjunction unions sub-elements
func (c *Compiler) compileDisjunction(subs []*syntax.Element) (*Chunk, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: empty disjunction", ErrUnsupportedShape)
	}
	chunk, err := c.compile(subs[0])
	if err != nil {
		return nil, err
	}
	for _, sub := range subs[1:] {
		next, err := c.compile(sub)
		if err != nil {
			return nil, err
		}
		chunk.Union(next)
		if err := c.checkBudget(chunk.States()); err != nil {
			return nil, err
		}
	}
	return chunk, nil
}

// repeat expands a quantifier over base. Every repetition is a fresh Copy.
//
//	{1,1}  base itself
//	{n,n}  n copies concatenated
//	{n,m}  n copies, then m-n copies each of which may be skipped
//	{n,}   n-1 copies, then a one-or-more loop ({0,} is a zero-or-more loop)
func (c *Compiler) repeat(base *Chunk, q syntax.Quantifier) (*Chunk, error) {
	if q.IsOne() {
		return base, nil
	}

	copies := q.Max
	if q.IsUnbounded() {
		copies = max(q.Min, 1)
	}
	if err := c.checkBudget(base.States() * copies); err != nil {
		return nil, err
	}

	out := NewChunk()
	mandatory := q.Min
	if q.IsUnbounded() && mandatory > 0 {
		mandatory--
	}
	for i := 0; i < mandatory; i++ {
		out.Concat(base.Copy())
	}

	if q.IsUnbounded() {
		loop := base.Copy()
		loop.loop(q.Min == 0)
		loop.SetValue(loop.end, base.states[base.end].value)
		out.Concat(loop)
		return out, nil
	}

	skips := make([]StateID, 0, q.Max-q.Min)
	for i := q.Min; i < q.Max; i++ {
		skips = append(skips, out.end)
		out.Concat(base.Copy())
	}
	for _, from := range skips {
		if from != out.end {
			out.AddEdge(from, out.end, Epsilon())
		}
	}
	return out, nil
}

// checkBudget fails once a chunk would exceed the state limit
func (c *Compiler) checkBudget(states int) error {
	if states > c.config.MaxStates {
		return fmt.Errorf("%w: more than %d states", ErrTooComplex, c.config.MaxStates)
	}
	return nil
}
