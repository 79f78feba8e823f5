package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/IANewCool/estado-transparente-portal/log"
	"github.com/IANewCool/estado-transparente-portal/query"
	"github.com/IANewCool/estado-transparente-portal/store"
)

// ServeCommand returns the query service command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the public query API",
		UsageText: `queryd [--listen :8080]

The service is a strict reader over the canonical store; it performs no
writes and no authentication.`,
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Bind address (overrides LISTEN_ADDR)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := LoadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("config: %v", err), ExitInternal)
	}
	if addr := c.String("listen"); addr != "" {
		cfg.ListenAddr = addr
	}

	logger := log.NewLogger("query", "")

	st, err := store.New(c.Context, cfg.DBURL)
	if err != nil {
		return cli.Exit(fmt.Sprintf("store: %v", err), ExitInternal)
	}
	defer st.Close()

	blobs, err := BuildBlobStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("blob store: %v", err), ExitInternal)
	}

	srv := query.NewServer(st, blobs, logger, cfg.HeadlineMetric)
	if err := srv.ListenAndServe(c.Context, cfg.ListenAddr); err != nil {
		return cli.Exit(fmt.Sprintf("serve: %v", err), ExitInternal)
	}
	return nil
}
