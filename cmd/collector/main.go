// Package main provides the collector CLI entrypoint.
//
// Usage:
//
//	collector --source-id <id> --url <url>
//
// Exit codes:
//   - 0: success (artifact id printed to stdout)
//   - 1: internal error (network, storage, database)
//   - 2: input-shape error
//   - 3: integrity error
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
	collect := cmd.CollectCommand()

	app := &cli.App{
		Name:           "collector",
		Usage:          "Estado Transparente source collector",
		UsageText:      collect.UsageText,
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          collect.Flags,
		Action:         collect.Action,
		ExitErrHandler: exitErrHandler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		// ExitErrHandler already handled cli.ExitCoder errors.
		os.Exit(cmd.ExitInternal)
	}
}

// exitErrHandler preserves exit codes from cli.Exit(), so the error-class
// contract survives urfave/cli's default handling.
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
