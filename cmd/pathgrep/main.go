// Command pathgrep evaluates path patterns against labeled paths.
//
//	pathgrep -e 'users._.name' paths.txt
//	pathgrep -rules rules.hcl -mode find < paths.txt
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/coregx/gfpa/internal/app"
	"github.com/coregx/gfpa/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run is main without the process globals.
func run(ctx context.Context, stdin io.Reader, outW, errW io.Writer, args []string) error {
	config, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	a, err := app.NewApp(outW, errW, config)
	if err != nil {
		return err
	}
	_, err = a.Run(ctx, stdin)
	return err
}
