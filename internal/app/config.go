package app

import (
	"errors"

	"github.com/coregx/gfpa/internal/rules"
)

// Config holds everything an App needs to run.
type Config struct {
	RulesPaths []string // HCL rule files or directories
	Expr       string   // inline pattern, exclusive with RulesPaths
	PathsFile  string   // empty or "-" reads standard input
	Mode       rules.Mode

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.RulesPaths) == 0 && cfg.Expr == "" {
		return nil, errors.New("one of -rules or -e is required")
	}
	if len(cfg.RulesPaths) > 0 && cfg.Expr != "" {
		return nil, errors.New("-rules and -e are mutually exclusive")
	}
	if cfg.Mode == "" {
		cfg.Mode = rules.ModeMatch
	}
	if _, err := rules.ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	return &cfg, nil
}
