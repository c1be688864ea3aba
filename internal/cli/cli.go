// Package cli parses pathgrep's command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/coregx/gfpa/internal/app"
	"github.com/coregx/gfpa/internal/rules"
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns the app configuration,
// whether the program should exit cleanly (help was printed), or an
// *ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("pathgrep", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
pathgrep - evaluate path patterns against labeled paths.

Usage:
  pathgrep [-rules FILE]... [-e PATTERN] [options] [PATHS_FILE]

Arguments:
  PATHS_FILE
    File with one path per line, such as ^users.42.name=alice$.
    Standard input is read when omitted or "-".

Options:
`)
		flagSet.PrintDefaults()
	}

	var rulesFlag multiFlag
	flagSet.Var(&rulesFlag, "rules", "HCL rule file or directory. May be repeated.")
	exprFlag := flagSet.String("e", "", "Inline pattern, evaluated as the rule named \"expr\".")
	modeFlag := flagSet.String("mode", string(rules.ModeMatch), "Default rule mode. Options: 'match' or 'find'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}

	if len(rulesFlag) == 0 && *exprFlag == "" {
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, usageError("at most one PATHS_FILE is accepted, got %d", flagSet.NArg())
	}

	mode, err := rules.ParseMode(strings.ToLower(*modeFlag))
	if err != nil {
		return nil, false, usageError("invalid mode: must be 'match' or 'find'")
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	config, err := app.NewConfig(app.Config{
		RulesPaths: rulesFlag,
		Expr:       *exprFlag,
		PathsFile:  flagSet.Arg(0),
		Mode:       mode,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}
	return config, false, nil
}
