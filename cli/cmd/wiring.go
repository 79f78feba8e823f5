// Package cmd provides the CLI commands for the pipeline binaries.
package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/IANewCool/estado-transparente-portal/blob"
	"github.com/IANewCool/estado-transparente-portal/cli/config"
	"github.com/IANewCool/estado-transparente-portal/notify"
	"github.com/IANewCool/estado-transparente-portal/registry"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// Exit codes shared by the pipeline CLIs. Input-shape failures (the source
// changed under us) are distinct from integrity failures and from
// unexpected internal errors so operators can branch on them.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInputShape = 2
	ExitIntegrity  = 3
)

// ExitCodeFor maps a pipeline error onto the CLI exit code contract.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if types.IsIntegrity(err) {
		return ExitIntegrity
	}
	if types.IsInputShape(err) {
		return ExitInputShape
	}
	return ExitInternal
}

// ConfigFlag is the shared --config flag.
var ConfigFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "Path to YAML config file (environment variables override it)",
}

// LoadConfig builds the effective configuration for a command.
func LoadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildBlobStore constructs the configured blob backend.
func BuildBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.RawStore {
	case "fs":
		return blob.NewFSStore(cfg.RawFSRoot)
	case "minio":
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:       cfg.Minio.Bucket,
			Region:       cfg.Minio.Region,
			Endpoint:     cfg.Minio.Endpoint,
			AccessKey:    cfg.Minio.AccessKey,
			SecretKey:    cfg.Minio.SecretKey,
			UsePathStyle: true,
		})
	default:
		return nil, fmt.Errorf("unsupported raw store %q", cfg.RawStore)
	}
}

// BuildRegistry constructs the source registry, extended by the optional
// sources file.
func BuildRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg := registry.New()
	if cfg.SourcesFile != "" {
		if err := reg.LoadFile(cfg.SourcesFile); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// BuildNotifier constructs the configured job-event publishers, or nil
// when none are configured.
func BuildNotifier(cfg *config.Config) (notify.Notifier, error) {
	var publishers notify.Multi
	if cfg.Notify.WebhookURL != "" {
		wh, err := notify.NewWebhook(notify.WebhookConfig{URL: cfg.Notify.WebhookURL})
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, wh)
	}
	if cfg.Notify.RedisURL != "" {
		rd, err := notify.NewRedis(notify.RedisConfig{
			URL:     cfg.Notify.RedisURL,
			Channel: cfg.Notify.RedisChannel,
		})
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, rd)
	}
	if len(publishers) == 0 {
		return nil, nil
	}
	return publishers, nil
}
