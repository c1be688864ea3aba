package gfpa

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coregx/gfpa/nfa"
	"github.com/coregx/gfpa/path"
	"github.com/coregx/gfpa/prefilter"
	"github.com/coregx/gfpa/syntax"
)

// configs returns every configuration a search result must not depend on.
func configs() map[string]Config {
	out := make(map[string]Config)
	for _, sync := range []bool{false, true} {
		for _, pf := range []bool{false, true} {
			c := DefaultConfig()
			c.Sync = sync
			c.EnablePrefilter = pf
			name := "nosync"
			if sync {
				name = "sync"
			}
			if pf {
				name += "+prefilter"
			}
			out[name] = c
		}
	}
	return out
}

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{`^a.b$`, `^a.b$`, true},
		{`^a.b$`, `a.b`, false},
		{`a|b.c`, `b.c`, true},
		{`a|b.c`, `b`, false},
		{`a*`, ``, true},
		{`a+`, ``, false},
		{`users._.name=/[a-z]+/`, `^users.42.name=alice$`, true},
		{`users._.name=/[a-z]+/`, `users.42.name=Alice`, false},
	}

	for _, tt := range tests {
		for name, cfg := range configs() {
			t.Run(tt.pattern+"/"+tt.path+"/"+name, func(t *testing.T) {
				p, err := CompileWithConfig(tt.pattern, cfg)
				if err != nil {
					t.Fatalf("CompileWithConfig: %v", err)
				}
				if got := p.Match(path.MustParse(tt.path)); got != tt.want {
					t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
				}
			})
		}
	}
}

func TestPattern_MatchString(t *testing.T) {
	p := MustCompile("a.b")
	ok, err := p.MatchString("a.b")
	if err != nil || !ok {
		t.Errorf("MatchString(a.b) = %v, %v", ok, err)
	}
	if _, err := p.MatchString("a..b"); !errors.Is(err, path.ErrSyntax) {
		t.Errorf("MatchString(a..b) error = %v, want path.ErrSyntax", err)
	}
}

func TestPattern_FindAllIndex(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		n       int
		want    [][]int
	}{
		{"a{1,2}", "a.a.a", -1, [][]int{{0, 1}, {0, 2}, {1, 2}, {1, 3}, {2, 3}}},
		{"a{1,2}", "a.a.a", 2, [][]int{{0, 1}, {0, 2}}},
		{"a{1,2}", "a.a.a", 0, nil},
		{"users._", "x.users.1.users.2", -1, [][]int{{1, 3}, {3, 5}}},
		{"b|c", "a.b.a.c", -1, [][]int{{1, 2}, {3, 4}}},
		{"^a", "a.a", -1, nil},
		{"a$", "a.a$", -1, [][]int{{1, 2}}},
		{"x", "a.b", -1, nil},
	}

	for _, tt := range tests {
		for name, cfg := range configs() {
			t.Run(tt.pattern+"/"+tt.path+"/"+name, func(t *testing.T) {
				p, err := CompileWithConfig(tt.pattern, cfg)
				if err != nil {
					t.Fatalf("CompileWithConfig: %v", err)
				}
				got := p.FindAllIndex(path.MustParse(tt.path), tt.n)
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("FindAllIndex() mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

// TestPattern_FindAllAreSubPaths checks that every result equals the
// corresponding sub-path of the input and is included in it.
func TestPattern_FindAllAreSubPaths(t *testing.T) {
	patterns := []string{"a{1,2}", "a.b*", "^a", "b$", "_=1", "(a|b)+"}
	inputs := []string{"a.a.a", "^a.b.b$", "a.b=1", "^b.a.b$", "a"}

	for _, pattern := range patterns {
		p := MustCompile(pattern)
		for _, s := range inputs {
			in := path.MustParse(s)
			subs := p.FindAll(in, -1)
			idx := p.FindAllIndex(in, -1)
			if len(subs) != len(idx) {
				t.Fatalf("%s on %s: %d paths, %d indexes", pattern, s, len(subs), len(idx))
			}
			if p.Count(in) != len(idx) {
				t.Errorf("%s on %s: Count() = %d, want %d", pattern, s, p.Count(in), len(idx))
			}
			for i, sub := range subs {
				want, err := in.SubPath(idx[i][0], idx[i][1])
				if err != nil {
					t.Fatalf("SubPath: %v", err)
				}
				if !sub.Equal(want) {
					t.Errorf("%s on %s: result %d = %s, want %s", pattern, s, i, sub, want)
				}
				if !in.Includes(sub) {
					t.Errorf("%s on %s: %s is not included in the input", pattern, s, sub)
				}
				if !p.Match(sub) {
					t.Errorf("%s on %s: found %s that Match rejects", pattern, s, sub)
				}
			}
		}
	}
}

// TestPattern_PrefilterAgrees checks that the prefilter never changes results.
func TestPattern_PrefilterAgrees(t *testing.T) {
	patterns := []string{"a.b", "a|b.c", "a*.b", "users._.name", "b+"}
	inputs := []string{"a.b.a.b", "b.c.a", "a.a.b", "users.1.name.users.2.name", "c.c.c", "b.b"}

	with := DefaultConfig()
	without := DefaultConfig()
	without.EnablePrefilter = false

	for _, pattern := range patterns {
		pw, err := CompileWithConfig(pattern, with)
		if err != nil {
			t.Fatal(err)
		}
		po, err := CompileWithConfig(pattern, without)
		if err != nil {
			t.Fatal(err)
		}
		// Enough searches to get past the tracker warmup.
		for i := 0; i < 50; i++ {
			for _, s := range inputs {
				in := path.MustParse(s)
				if diff := cmp.Diff(po.FindAllIndex(in, -1), pw.FindAllIndex(in, -1)); diff != "" {
					t.Fatalf("%s on %s: prefilter changed results (-without +with):\n%s", pattern, s, diff)
				}
			}
		}
	}
}

// TestPattern_LimitedSearchKeepsPrefilter checks that searches stopping at
// their first match do not retire a prefilter whose every candidate starts
// a match.
func TestPattern_LimitedSearchKeepsPrefilter(t *testing.T) {
	p := MustCompile("a")
	if p.tracker == nil {
		t.Fatal("expected a prefilter for a literal pattern")
	}
	in := path.MustParse(strings.Repeat("a.", 19) + "a")

	for i := 0; i < 200; i++ {
		if got := p.FindAllIndex(in, 1); len(got) != 1 {
			t.Fatalf("FindAllIndex(n=1) returned %d results", len(got))
		}
	}

	candidates, confirms, eff, active := p.tracker.Stats()
	if !active {
		t.Errorf("prefilter retired: candidates=%d confirms=%d efficiency=%.2f", candidates, confirms, eff)
	}
	if candidates > 2*confirms {
		t.Errorf("counted %d candidates for %d confirmed starts", candidates, confirms)
	}
}

// TestPattern_ConcurrentUse shares one Pattern between goroutines. Run with -race.
func TestPattern_ConcurrentUse(t *testing.T) {
	inputs := []string{"a.d", "b.c.a.d", "x.a.b.c.d", "a.a.a", "b.c.d.a.d"}

	for name, cfg := range configs() {
		t.Run(name, func(t *testing.T) {
			p, err := CompileWithConfig("(a|b.c)+.d", cfg)
			if err != nil {
				t.Fatal(err)
			}

			want := make(map[string][][]int)
			wantMatch := make(map[string]bool)
			for _, s := range inputs {
				want[s] = p.FindAllIndex(path.MustParse(s), -1)
				wantMatch[s] = p.Match(path.MustParse(s))
			}

			var wg sync.WaitGroup
			errs := make(chan string, 16)
			for g := 0; g < 16; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						s := inputs[(g+i)%len(inputs)]
						in := path.MustParse(s)
						got := p.FindAllIndex(in, -1)
						if !cmp.Equal(want[s], got) || p.Count(in) != len(got) || p.Match(in) != wantMatch[s] {
							errs <- s
							return
						}
					}
				}(g)
			}
			wg.Wait()
			close(errs)
			for s := range errs {
				t.Errorf("concurrent search on %s disagreed with the sequential result", s)
			}
		})
	}
}

func TestPattern_Prefilter(t *testing.T) {
	pf, ok := MustCompile("b|a.c").Prefilter().(*prefilter.Labels)
	if !ok {
		t.Fatal("expected a *prefilter.Labels for a literal alternation")
	}
	if diff := cmp.Diff([]string{"a", "b"}, slices.Sorted(slices.Values(pf.Literals()))); diff != "" {
		t.Errorf("Literals() mismatch (-want +got):\n%s", diff)
	}

	for _, pattern := range []string{"a*", "_.b", "/x+/"} {
		if got := MustCompile(pattern).Prefilter(); got != nil {
			t.Errorf("%s: Prefilter() = %v, want nil", pattern, got)
		}
	}

	cfg := DefaultConfig()
	cfg.EnablePrefilter = false
	p, err := CompileWithConfig("a", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.Prefilter() != nil {
		t.Error("Prefilter() should be nil when disabled in the config")
	}
}

func TestMatcher(t *testing.T) {
	p := MustCompile("b")
	m := p.Matcher(path.MustParse("a.b=1"))

	if m.Start() != -1 || m.End() != -1 {
		t.Error("offsets before Find should be -1")
	}
	if _, err := m.SubPath(); !errors.Is(err, ErrNoMatch) {
		t.Errorf("SubPath() before Find error = %v, want ErrNoMatch", err)
	}

	if !m.Find() {
		t.Fatal("Find() = false")
	}
	if m.Start() != 1 || m.End() != 2 {
		t.Errorf("match = [%d,%d), want [1,2)", m.Start(), m.End())
	}
	if got, ok := m.Match(); !ok || got != (nfa.Match{Start: 1, End: 2}) {
		t.Errorf("Match() = %v, %v", got, ok)
	}
	sub, err := m.SubPath()
	if err != nil {
		t.Fatalf("SubPath: %v", err)
	}
	if sub.String() != "b=1" {
		t.Errorf("SubPath() = %s, want b=1", sub)
	}

	if m.Find() {
		t.Error("second Find() should be false")
	}
	if _, err := m.SubPath(); !errors.Is(err, ErrNoMatch) {
		t.Errorf("SubPath() after exhaustion error = %v, want ErrNoMatch", err)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		pattern string
		want    error
	}{
		{"a{2,1}", nfa.ErrInvalidQuantifier},
		{"a.(b", syntax.ErrSyntax},
		{"/(/", nfa.ErrInvalidCondition},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			if p != nil {
				t.Error("expected nil pattern on error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileElement(t *testing.T) {
	el := syntax.Sequence(syntax.Label("a"), syntax.Key(syntax.Any()).Repeat(0, syntax.Unbounded), syntax.Label("z"))
	el.Terminal = true

	p, err := CompileElement(el, DefaultConfig())
	if err != nil {
		t.Fatalf("CompileElement: %v", err)
	}
	if p.String() != el.String() {
		t.Errorf("String() = %q, want %q", p.String(), el.String())
	}
	if !p.Match(path.MustParse("a.b.c.z$")) {
		t.Error("expected a.b.c.z$ to match")
	}
	if p.Match(path.MustParse("a.b.c.z")) {
		t.Error("terminal pattern matched a non-terminal path")
	}

	_, err = CompileElement(syntax.Node(syntax.Label("a")), DefaultConfig())
	if !errors.Is(err, nfa.ErrUnsupportedShape) {
		t.Errorf("CompileElement(NODE) error = %v, want ErrUnsupportedShape", err)
	}
}

func TestMustCompile_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile did not panic on an invalid pattern")
		}
	}()
	MustCompile("a{")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"default", func(*Config) {}, ""},
		{"depth too low", func(c *Config) { c.MaxRecursionDepth = 5 }, "MaxRecursionDepth"},
		{"depth too high", func(c *Config) { c.MaxRecursionDepth = 5000 }, "MaxRecursionDepth"},
		{"states too low", func(c *Config) { c.MaxStates = 1 }, "MaxStates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("Validate() = %v, want ConfigError for %s", err, tt.field)
			}
			if _, err := CompileWithConfig("a", c); !errors.As(err, &ce) {
				t.Errorf("CompileWithConfig accepted an invalid config: %v", err)
			}
		})
	}
}
