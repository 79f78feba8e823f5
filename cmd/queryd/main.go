// Package main provides the query service entrypoint.
//
// Usage:
//
//	queryd [--listen :8080]
//
// The service shuts down gracefully on SIGINT/SIGTERM.
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
	serve := cmd.ServeCommand()

	app := &cli.App{
		Name:           "queryd",
		Usage:          "Estado Transparente query API service",
		UsageText:      serve.UsageText,
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          serve.Flags,
		Action:         serve.Action,
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
