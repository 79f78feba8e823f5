package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/IANewCool/estado-transparente-portal/log"
	"github.com/IANewCool/estado-transparente-portal/parser"
	"github.com/IANewCool/estado-transparente-portal/store"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// ParseCommand returns the parser command: normalize one artifact into a
// snapshot of canonical facts. On success the snapshot id prints to stdout.
func ParseCommand() *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Parse a registered artifact into a snapshot of facts",
		UsageText: `parser --artifact-id <uuid> [--dry-run]

EXAMPLES:
  # Parse an ingested artifact
  parser --artifact-id 6fa1c0de-...

  # Validate and aggregate without writing anything
  parser --artifact-id 6fa1c0de-... --dry-run`,
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:     "artifact-id",
				Usage:    "Artifact to parse",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Run validation and aggregation, write nothing",
			},
		},
		Action: runParse,
	}
}

func runParse(c *cli.Context) error {
	cfg, err := LoadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("config: %v", err), ExitInternal)
	}

	logger := log.NewLogger(types.ComponentParser, "")

	st, err := store.New(c.Context, cfg.DBURL)
	if err != nil {
		return cli.Exit(fmt.Sprintf("store: %v", err), ExitInternal)
	}
	defer st.Close()

	blobs, err := BuildBlobStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("blob store: %v", err), ExitInternal)
	}
	reg, err := BuildRegistry(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("registry: %v", err), ExitInternal)
	}

	var opts []parser.Option
	notifier, err := BuildNotifier(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("notifier: %v", err), ExitInternal)
	}
	if notifier != nil {
		defer func() { _ = notifier.Close() }()
		opts = append(opts, parser.WithNotifier(notifier))
	}

	p := parser.New(st, blobs, reg, logger, opts...)
	snapshotID, err := p.Parse(c.Context, c.String("artifact-id"), c.Bool("dry-run"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("parse: %v", err), ExitCodeFor(err))
	}

	if snapshotID != "" {
		fmt.Fprintln(c.App.Writer, snapshotID)
	}
	return nil
}
