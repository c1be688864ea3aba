package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coregx/gfpa/internal/ctxlog"
	"github.com/coregx/gfpa/internal/rules"
	"github.com/coregx/gfpa/path"
)

// Stats summarizes one run.
type Stats struct {
	Lines   int
	Skipped int // lines that failed to parse as paths
	Results int
}

// Run reads the configured paths file, or stdin when it is empty or "-".
func (a *App) Run(ctx context.Context, stdin io.Reader) (Stats, error) {
	in := stdin
	if name := a.config.PathsFile; name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to open paths file: %w", err)
		}
		defer f.Close()
		in = f
	}
	return a.Process(ctx, in)
}

// maxLineSize bounds one path line.
const maxLineSize = 16 << 20

// Process evaluates every rule against each path read from r, one per line.
// Blank lines and lines starting with # are ignored. Lines that do not parse
// are logged and skipped. Results written before an error or cancellation
// are flushed.
func (a *App) Process(ctx context.Context, r io.Reader) (stats Stats, err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)

	out := bufio.NewWriter(a.outW)
	defer func() {
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for lineNo := 1; sc.Scan(); lineNo++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.Lines++

		p, err := path.Parse(line)
		if err != nil {
			stats.Skipped++
			logger.Warn("Skipping invalid path.", "line", lineNo, "error", err)
			continue
		}
		for _, rule := range a.rules.Rules {
			n, err := evaluate(out, rule, p)
			stats.Results += n
			if err != nil {
				return stats, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("failed to read paths: %w", err)
	}
	logger.Debug("Run finished.", "lines", stats.Lines, "skipped", stats.Skipped, "results", stats.Results)
	return stats, nil
}

// evaluate prints the results of one rule on one path and returns how many
// lines it wrote.
func evaluate(w io.Writer, rule *rules.Rule, p *path.Path) (int, error) {
	if rule.Mode == rules.ModeMatch {
		if !rule.Pattern.Match(p) {
			return 0, nil
		}
		_, err := fmt.Fprintf(w, "%s\t%s\n", rule.Name, p)
		return 1, err
	}

	n := 0
	m := rule.Pattern.Matcher(p)
	for (rule.Limit < 0 || n < rule.Limit) && m.Find() {
		sub, err := m.SubPath()
		if err != nil {
			return n, err
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t[%d,%d)\t%s\n", rule.Name, p, m.Start(), m.End(), sub); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
