package nfa

import (
	"errors"
	"strings"
	"testing"

	"github.com/coregx/gfpa/syntax"
)

func TestCompiler_Errors(t *testing.T) {
	deep := syntax.Label("a")
	for i := 0; i < 120; i++ {
		deep = syntax.Sequence(deep)
	}

	tests := []struct {
		name string
		el   *syntax.Element
		want error
	}{
		{"negative min", syntax.Label("a").Repeat(-1, 2), ErrInvalidQuantifier},
		{"zero max", syntax.Label("a").Repeat(0, 0), ErrInvalidQuantifier},
		{"max below min", syntax.Label("a").Repeat(3, 2), ErrInvalidQuantifier},
		{"nested invalid quantifier", syntax.Sequence(syntax.Label("a"), syntax.Label("b").Repeat(2, 1)), ErrInvalidQuantifier},
		{"node", syntax.Node(syntax.Label("a"), syntax.Label("b")), ErrUnsupportedShape},
		{"node inside sequence", syntax.Sequence(syntax.Label("a"), syntax.Node(syntax.Label("b"))), ErrUnsupportedShape},
		{"empty disjunction", syntax.Disjunction(), ErrUnsupportedShape},
		{"nil", nil, ErrUnsupportedShape},
		{"too deep", deep, ErrTooComplex},
		{"bad regex key", syntax.Key(syntax.Regex(`(`)), ErrInvalidCondition},
		{"bad regex value", syntax.Label("a").WithValue(syntax.Regex(`[`)), ErrInvalidCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewDefaultCompiler().CompileElement(tt.el)
			if a != nil {
				t.Error("expected no automaton on error")
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Errorf("error %T is not a *CompileError", err)
			}
		})
	}
}

func TestCompiler_StateBudget(t *testing.T) {
	c := NewCompiler(CompilerConfig{MaxStates: 50})

	if _, err := c.CompileElement(syntax.Label("a").Repeat(10, 20)); err != nil {
		t.Errorf("a{10,20} within budget: %v", err)
	}
	_, err := c.CompileElement(syntax.Label("a").Repeat(100, 100))
	if !errors.Is(err, ErrTooComplex) {
		t.Errorf("a{100}: error = %v, want ErrTooComplex", err)
	}
	_, err = c.Compile("(a{10}){10}")
	if !errors.Is(err, ErrTooComplex) {
		t.Errorf("(a{10}){10}: error = %v, want ErrTooComplex", err)
	}
}

func TestCompiler_SyntaxError(t *testing.T) {
	_, err := NewDefaultCompiler().Compile("a.(b")
	if !errors.Is(err, syntax.ErrSyntax) {
		t.Fatalf("error = %v, want syntax.ErrSyntax", err)
	}
	if !strings.Contains(err.Error(), `"a.(b"`) {
		t.Errorf("error %q does not name the pattern", err)
	}
}

func TestCompiler_BuildChunk(t *testing.T) {
	tests := []struct {
		pattern string
		states  int
		sync    bool
	}{
		{"()", 1, true},
		{"a", 2, true},
		{"a.b.c", 4, true},
		{"a|b|c", 2, true},
		{"a{3}", 4, true},
		{"a?", 2, false},
		{"a{1,3}", 4, false},
		{"a*", 4, false},
		{"a+", 4, false},
		{"a|^b", 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			c, err := NewDefaultCompiler().BuildChunk(syntax.MustParse(tt.pattern))
			if err != nil {
				t.Fatalf("BuildChunk: %v", err)
			}
			if c.States() != tt.states {
				t.Errorf("States() = %d, want %d", c.States(), tt.states)
			}
			if c.Properties().Synchronous != tt.sync {
				t.Errorf("Synchronous = %v, want %v", c.Properties().Synchronous, tt.sync)
			}
		})
	}
}

func TestCompiler_Anchors(t *testing.T) {
	c, err := NewDefaultCompiler().BuildChunk(syntax.MustParse("^a.b$"))
	if err != nil {
		t.Fatalf("BuildChunk: %v", err)
	}
	if !c.State(c.Start()).IsRooted() {
		t.Error("start should be rooted")
	}
	if !c.State(c.End()).IsTerminal() {
		t.Error("end should be terminal")
	}
}

func TestCompileError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *CompileError
		want string
	}{
		{
			name: "with pattern",
			err:  &CompileError{Pattern: "a{2,1}", Err: ErrInvalidQuantifier},
			want: `GFPA compilation failed for "a{2,1}": invalid quantifier`,
		},
		{
			name: "without pattern",
			err:  &CompileError{Err: ErrTooComplex},
			want: "GFPA compilation failed: pattern too complex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildError_Error(t *testing.T) {
	err := &BuildError{Message: "bad edge", StateID: 3}
	if got, want := err.Error(), "GFPA build error at state 3: bad edge"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err = &BuildError{Message: "empty", StateID: InvalidState}
	if got, want := err.Error(), "GFPA build error: empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
