package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/IANewCool/estado-transparente-portal/collector"
	"github.com/IANewCool/estado-transparente-portal/log"
	"github.com/IANewCool/estado-transparente-portal/store"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// CollectCommand returns the collector command: fetch one source artifact
// and register it. On success the artifact id prints to stdout.
func CollectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Fetch a source URL, hash it and register the artifact",
		UsageText: `collector --source-id <id> --url <url>

EXAMPLES:
  # Ingest the 2026 budget law CSV
  collector --source-id dipres_ley_2026 \
    --url https://www.dipres.gob.cl/597/articles-ley-2026.csv

  # Re-ingest: identical bytes reuse the existing artifact
  collector --source-id dipres_ley_2026 --url file:///data/fixtures/ley-2026.csv`,
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:     "source-id",
				Usage:    "Registered source identifier",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "url",
				Usage:    "Absolute source URL (http, https or file)",
				Required: true,
			},
		},
		Action: runCollect,
	}
}

func runCollect(c *cli.Context) error {
	cfg, err := LoadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("config: %v", err), ExitInternal)
	}

	sourceID := c.String("source-id")
	logger := log.NewLogger(types.ComponentCollector, sourceID)

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

	var opts []collector.Option
	notifier, err := BuildNotifier(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("notifier: %v", err), ExitInternal)
	}
	if notifier != nil {
		defer func() { _ = notifier.Close() }()
		opts = append(opts, collector.WithNotifier(notifier))
	}

	col := collector.New(st, blobs, reg, logger, opts...)
	artifactID, err := col.Ingest(c.Context, sourceID, c.String("url"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("ingest: %v", err), ExitCodeFor(err))
	}

	fmt.Fprintln(c.App.Writer, artifactID)
	return nil
}
