package gfpa

import (
	"github.com/coregx/gfpa/nfa"
)

// Config controls pattern compilation and search behavior.
//
// Example:
//
//	config := gfpa.DefaultConfig()
//	config.Sync = false // keep epsilon edges, compile faster
//	p, err := gfpa.CompileWithConfig("a*.b", config)
type Config struct {
	// Sync folds epsilon closures into the automaton at compile time
	// (nfa.CreateSync). Stepping is faster; compilation is slower.
	// Default: true
	Sync bool

	// EnablePrefilter enables start-label prefiltering for searches.
	// Only patterns whose matches begin with literal labels get a prefilter.
	// Default: true
	EnablePrefilter bool

	// MaxRecursionDepth limits element tree nesting during compilation.
	// Default: 100
	MaxRecursionDepth int

	// MaxStates limits the number of automaton states built during
	// compilation, which bounded quantifiers multiply.
	// Default: 100000
	MaxStates int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Sync:              true,
		EnablePrefilter:   true,
		MaxRecursionDepth: 100,
		MaxStates:         100_000,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any parameter is out of range.
//
// Valid ranges:
//   - MaxRecursionDepth: 10 to 1,000
//   - MaxStates: 16 to 10,000,000
func (c Config) Validate() error {
	if c.MaxRecursionDepth < 10 || c.MaxRecursionDepth > 1_000 {
		return &ConfigError{
			Field:   "MaxRecursionDepth",
			Message: "must be between 10 and 1,000",
		}
	}
	if c.MaxStates < 16 || c.MaxStates > 10_000_000 {
		return &ConfigError{
			Field:   "MaxStates",
			Message: "must be between 16 and 10,000,000",
		}
	}
	return nil
}

func (c Config) compilerConfig() nfa.CompilerConfig {
	return nfa.CompilerConfig{
		Sync:              c.Sync,
		MaxRecursionDepth: c.MaxRecursionDepth,
		MaxStates:         c.MaxStates,
	}
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "gfpa: invalid config: " + e.Field + ": " + e.Message
}
