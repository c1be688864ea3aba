package rules

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coregx/gfpa/internal/ctxlog"
	"github.com/coregx/gfpa/nfa"
	"github.com/coregx/gfpa/path"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), ctxlog.Discard())
}

func TestLoadSource_VariablesAndRules(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := `
variable "id" {
  default = "/[0-9]+/"
}

variable "depth" {
  default = 2
}

rule "user" {
  pattern = "^users.${var.id}$"
}

rule "pairs" {
  pattern   = "a{1,${var.depth}}"
  mode      = "find"
  limit     = 3
  sync      = false
  prefilter = false
}
`

	// --- Act ---
	set, err := NewLoader().LoadSource(testContext(), []byte(src), "rules.hcl")

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	user := set.Rules[0]
	require.Equal(t, "user", user.Name)
	require.Equal(t, "^users./[0-9]+/$", user.Source)
	require.Equal(t, ModeMatch, user.Mode)
	require.Equal(t, -1, user.Limit)
	require.True(t, user.Pattern.Match(path.MustParse("^users.42$")))
	require.False(t, user.Pattern.Match(path.MustParse("^users.bob$")))

	pairs := set.Rules[1]
	require.Equal(t, "a{1,2}", pairs.Source)
	require.Equal(t, ModeFind, pairs.Mode)
	require.Equal(t, 3, pairs.Limit)
	require.False(t, pairs.Pattern.Automaton().Properties().Synchronous)
	require.Len(t, pairs.Pattern.FindAllIndex(path.MustParse("a.a.a"), -1), 5)
}

func TestLoadSource_LogsPrefilterLiterals(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	src := "rule \"lit\" {\n  pattern = \"users.name\"\n}\n\nrule \"wild\" {\n  pattern = \"_.name\"\n}\n"

	// --- Act ---
	_, err := NewLoader().LoadSource(ctx, []byte(src), "rules.hcl")

	// --- Assert ---
	require.NoError(t, err)
	var lit, wild string
	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.Contains(line, "rule=lit"):
			lit = line
		case strings.Contains(line, "rule=wild"):
			wild = line
		}
	}
	require.Contains(t, lit, "prefilter=[users]")
	require.NotEmpty(t, wild)
	require.NotContains(t, wild, "prefilter=")
}

func TestLoadSource_DefaultMode(t *testing.T) {
	t.Parallel()

	l := NewLoader()
	l.DefaultMode = ModeFind

	set, err := l.LoadSource(testContext(), []byte(`rule "r" { pattern = "a" }`), "r.hcl")

	require.NoError(t, err)
	require.Equal(t, ModeFind, set.Rules[0].Mode)
}

func TestLoadSource_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		target error
		substr string
	}{
		{
			name:   "syntax",
			src:    `rule "r" {`,
			substr: "failed to parse rule file",
		},
		{
			name:   "missing pattern",
			src:    `rule "r" {}`,
			substr: "failed to decode rules",
		},
		{
			name:   "unknown block",
			src:    `pattern "r" { pattern = "a" }`,
			substr: "failed to decode rules",
		},
		{
			name:   "undefined variable",
			src:    `rule "r" { pattern = "${var.nope}" }`,
			substr: "failed to decode rules",
		},
		{
			name:   "bad mode",
			src:    "rule \"r\" {\n  pattern = \"a\"\n  mode = \"grep\"\n}",
			target: ErrInvalidMode,
		},
		{
			name:   "negative limit",
			src:    "rule \"r\" {\n  pattern = \"a\"\n  limit = -1\n}",
			substr: "limit must not be negative",
		},
		{
			name:   "duplicate rule",
			src:    `rule "r" { pattern = "a" }` + "\n" + `rule "r" { pattern = "b" }`,
			target: ErrDuplicate,
		},
		{
			name:   "duplicate variable",
			src:    `variable "v" { default = "a" }` + "\n" + `variable "v" { default = "b" }`,
			target: ErrDuplicate,
		},
		{
			name:   "bad pattern",
			src:    `rule "r" { pattern = "a{2,1}" }`,
			target: nfa.ErrInvalidQuantifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewLoader().LoadSource(testContext(), []byte(tt.src), "bad.hcl")

			require.Error(t, err)
			if tt.target != nil {
				require.True(t, errors.Is(err, tt.target), "got %v, want %v", err, tt.target)
			}
			if tt.substr != "" {
				require.Contains(t, err.Error(), tt.substr)
			}
		})
	}
}

func TestLoad_Directory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Variables declared in one file are visible in the others.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_vars.hcl"), []byte(`variable "k" { default = "name" }`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_rules.hcl"), []byte(`rule "names" { pattern = "_.${var.k}" }`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not hcl`), 0600))

	// --- Act ---
	set, err := NewLoader().Load(testContext(), dir)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	require.Equal(t, "_.name", set.Rules[0].Source)
}

func TestLoad_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(testContext(), filepath.Join(t.TempDir(), "missing.hcl"))

	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFromPattern(t *testing.T) {
	t.Parallel()

	set, err := FromPattern("expr", "a.b", ModeFind)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	require.Equal(t, ModeFind, set.Rules[0].Mode)
	require.Equal(t, -1, set.Rules[0].Limit)

	_, err = FromPattern("expr", "a.(", ModeMatch)
	require.Error(t, err)
	require.Contains(t, err.Error(), `rule "expr"`)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("find")
	require.NoError(t, err)
	require.Equal(t, ModeFind, m)

	_, err = ParseMode("FIND")
	require.ErrorIs(t, err, ErrInvalidMode)
}
