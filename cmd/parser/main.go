// Package main provides the parser CLI entrypoint.
//
// Usage:
//
//	parser --artifact-id <uuid> [--dry-run]
//
// Exit codes:
//   - 0: success (snapshot id printed to stdout, empty for dry runs)
//   - 1: internal error (storage, database)
//   - 2: input-shape error (schema ambiguity, row validation, unknown
//     metric, duplicate parse)
//   - 3: integrity error (blob bytes no longer match the content hash)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/IANewCool/estado-transparente-portal/cli/cmd"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	parse := cmd.ParseCommand()

	app := &cli.App{
		Name:           "parser",
		Usage:          "Estado Transparente artifact parser",
		UsageText:      parse.UsageText,
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          parse.Flags,
		Action:         parse.Action,
		ExitErrHandler: exitErrHandler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		os.Exit(cmd.ExitInternal)
	}
}

// exitErrHandler preserves exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(cmd.ExitInternal)
}
