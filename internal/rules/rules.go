// Package rules loads named path patterns from HCL rule files.
//
// A rule file declares variables and rules:
//
//	variable "id" {
//	  default = "/[0-9]+/"
//	}
//
//	rule "user" {
//	  pattern   = "^users.${var.id}$"
//	  mode      = "find"
//	  limit     = 10
//	  sync      = false
//	  prefilter = true
//	}
//
// Variables are decoded first, across every file, and exposed to rule
// attributes as var.<name>.
package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/coregx/gfpa"
	"github.com/coregx/gfpa/internal/ctxlog"
	"github.com/coregx/gfpa/prefilter"
)

// Mode selects how a rule is evaluated against a path.
type Mode string

const (
	// ModeMatch tests the whole path.
	ModeMatch Mode = "match"
	// ModeFind enumerates matching sub-paths.
	ModeFind Mode = "find"
)

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeMatch, ModeFind:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidMode, s, ModeMatch, ModeFind)
}

var (
	// ErrInvalidMode is returned for a mode other than match or find.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrDuplicate is returned when a variable or rule name is declared twice.
	ErrDuplicate = errors.New("duplicate declaration")
)

// Rule is a named, compiled pattern.
type Rule struct {
	Name    string
	Source  string
	Mode    Mode
	Limit   int // find mode: results per path, -1 for all
	Pattern *gfpa.Pattern
}

// Set is an ordered collection of rules.
type Set struct {
	Rules []*Rule
}

// Len returns the number of rules.
func (s *Set) Len() int {
	return len(s.Rules)
}

// FromPattern builds a single-rule set for an inline pattern.
func FromPattern(name, pattern string, mode Mode) (*Set, error) {
	p, err := gfpa.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", name, err)
	}
	return &Set{Rules: []*Rule{{Name: name, Source: pattern, Mode: mode, Limit: -1, Pattern: p}}}, nil
}

type variableBlock struct {
	Name    string    `hcl:"name,label"`
	Default cty.Value `hcl:"default"`
}

type ruleBlock struct {
	Name      string    `hcl:"name,label"`
	Pattern   string    `hcl:"pattern"`
	Mode      *string   `hcl:"mode,optional"`
	Limit     cty.Value `hcl:"limit,optional"`
	Sync      *bool     `hcl:"sync,optional"`
	Prefilter *bool     `hcl:"prefilter,optional"`
}

// variablesRoot is the first decoding pass: rule blocks stay in Remain
// until the variables are known.
type variablesRoot struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type rulesRoot struct {
	Rules []*ruleBlock `hcl:"rule,block"`
}

// Loader reads rule files. Rules without a mode attribute get DefaultMode.
type Loader struct {
	DefaultMode Mode
}

// NewLoader creates a loader whose rules default to match mode.
func NewLoader() *Loader {
	return &Loader{DefaultMode: ModeMatch}
}

// Load reads every .hcl file named by paths. Directories are walked.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Set, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered rule files.", "count", len(files))

	parser := hclparse.NewParser()
	var parsed []*hcl.File
	for _, name := range files {
		f, diags := parser.ParseHCLFile(name)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse rule file %s: %w", name, diags)
		}
		parsed = append(parsed, f)
	}
	return l.decode(ctx, parsed)
}

// LoadSource parses a single rule file held in memory.
func (l *Loader) LoadSource(ctx context.Context, src []byte, filename string) (*Set, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", filename, diags)
	}
	return l.decode(ctx, []*hcl.File{f})
}

func (l *Loader) decode(ctx context.Context, files []*hcl.File) (*Set, error) {
	logger := ctxlog.FromContext(ctx)

	vars := make(map[string]cty.Value)
	remains := make([]hcl.Body, 0, len(files))
	for _, f := range files {
		var root variablesRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode variables: %w", diags)
		}
		for _, v := range root.Variables {
			if _, ok := vars[v.Name]; ok {
				return nil, fmt.Errorf("%w: variable %q", ErrDuplicate, v.Name)
			}
			val, err := convert.Convert(v.Default, cty.String)
			if err != nil {
				return nil, fmt.Errorf("variable %q: default must be a string or number: %w", v.Name, err)
			}
			vars[v.Name] = val
		}
		remains = append(remains, root.Remain)
	}
	logger.Debug("Rule variables decoded.", "count", len(vars))

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(vars)},
	}

	set := &Set{}
	seen := make(map[string]bool)
	for _, body := range remains {
		var root rulesRoot
		if diags := gohcl.DecodeBody(body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode rules: %w", diags)
		}
		for _, b := range root.Rules {
			if seen[b.Name] {
				return nil, fmt.Errorf("%w: rule %q", ErrDuplicate, b.Name)
			}
			seen[b.Name] = true

			r, err := l.compile(b)
			if err != nil {
				return nil, err
			}
			attrs := []any{"rule", r.Name, "pattern", r.Source, "mode", r.Mode}
			if pf, ok := r.Pattern.Prefilter().(*prefilter.Labels); ok {
				attrs = append(attrs, "prefilter", pf.Literals())
			}
			logger.Debug("Rule compiled.", attrs...)
			set.Rules = append(set.Rules, r)
		}
	}
	return set, nil
}

func (l *Loader) compile(b *ruleBlock) (*Rule, error) {
	r := &Rule{Name: b.Name, Source: b.Pattern, Mode: l.DefaultMode, Limit: -1}
	if b.Mode != nil {
		m, err := ParseMode(*b.Mode)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", b.Name, err)
		}
		r.Mode = m
	}
	if !b.Limit.IsNull() {
		if err := gocty.FromCtyValue(b.Limit, &r.Limit); err != nil {
			return nil, fmt.Errorf("rule %q: limit: %w", b.Name, err)
		}
		if r.Limit < 0 {
			return nil, fmt.Errorf("rule %q: limit must not be negative", b.Name)
		}
	}

	config := gfpa.DefaultConfig()
	if b.Sync != nil {
		config.Sync = *b.Sync
	}
	if b.Prefilter != nil {
		config.EnablePrefilter = *b.Prefilter
	}
	p, err := gfpa.CompileWithConfig(b.Pattern, config)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", b.Name, err)
	}
	r.Pattern = p
	return r, nil
}

// findHCLFiles expands paths into a sorted, duplicate-free list of .hcl files.
// A path that is a file is used as is, whatever its extension.
func findHCLFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		var found []string
		err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return files, nil
}
