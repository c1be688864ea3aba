package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/coregx/gfpa/internal/ctxlog"
	"github.com/coregx/gfpa/internal/rules"
)

// exprRuleName names the rule built from -e.
const exprRuleName = "expr"

// App holds the loaded rules and the output streams.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	rules  *rules.Set
}

// NewApp loads the configured rules. Logs go to logW, results to outW.
func NewApp(outW, logW io.Writer, config *Config) (*App, error) {
	logger := newLogger(config.LogLevel, config.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var (
		set *rules.Set
		err error
	)
	if config.Expr != "" {
		set, err = rules.FromPattern(exprRuleName, config.Expr, config.Mode)
	} else {
		loader := rules.NewLoader()
		loader.DefaultMode = config.Mode
		set, err = loader.Load(ctx, config.RulesPaths...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("failed to load rules: no rule declared in %v", config.RulesPaths)
	}
	logger.Debug("Rules loaded.", "count", set.Len())

	return &App{
		outW:   outW,
		logger: logger,
		config: config,
		rules:  set,
	}, nil
}

// Rules returns the loaded rule set.
func (a *App) Rules() *rules.Set {
	return a.rules
}
