package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// MinioConfig holds the object-store backend settings.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// NotifyConfig holds the optional job-event fan-out settings.
type NotifyConfig struct {
	WebhookURL   string `yaml:"webhook_url"`
	RedisURL     string `yaml:"redis_url"`
	RedisChannel string `yaml:"redis_channel"`
}

// Config is the process configuration shared by the three binaries.
// Precedence: CLI flags over environment over file over defaults.
type Config struct {
	// DBURL is the Postgres connection string (DB_URL).
	DBURL string `yaml:"db_url"`
	// RawStore selects the blob backend: "fs" or "minio" (RAW_STORE).
	RawStore string `yaml:"raw_store"`
	// RawFSRoot is the root directory for the fs backend (RAW_FS_ROOT).
	RawFSRoot string `yaml:"raw_fs_root"`
	// Minio configures the object-store backend (MINIO_*).
	Minio MinioConfig `yaml:"minio"`
	// ListenAddr is the query service bind address (LISTEN_ADDR).
	ListenAddr string `yaml:"listen_addr"`
	// HeadlineMetric is the metric key the dashboard totals (HEADLINE_METRIC).
	HeadlineMetric string `yaml:"headline_metric"`
	// SourcesFile optionally extends the built-in source registry (SOURCES_FILE).
	SourcesFile string `yaml:"sources_file"`
	// Notify configures optional job-event publishers (NOTIFY_*).
	Notify NotifyConfig `yaml:"notify"`
}

// Defaults returns the baseline configuration.
func Defaults() *Config {
	return &Config{
		RawStore:       "fs",
		RawFSRoot:      ".",
		ListenAddr:     ":8080",
		HeadlineMetric: "presupuesto_ley",
		Notify: NotifyConfig{
			RedisChannel: "estado:job_completed",
		},
	}
}

// Load builds the effective configuration: defaults, then the optional YAML
// file at path (empty skips it), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.mergeEnv()
	return cfg, nil
}

// mergeFile overlays values from a YAML file. Unknown keys are rejected
// and environment references are expanded strictly before decoding, so a
// typo'd or forgotten variable fails here instead of downstream.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded, err := ExpandStrict(string(data))
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

// mergeEnv overlays the recognized environment variables.
func (c *Config) mergeEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.DBURL, "DB_URL")
	set(&c.RawStore, "RAW_STORE")
	set(&c.RawFSRoot, "RAW_FS_ROOT")
	set(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	set(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	set(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	set(&c.Minio.Bucket, "MINIO_BUCKET")
	set(&c.Minio.Region, "MINIO_REGION")
	set(&c.ListenAddr, "LISTEN_ADDR")
	set(&c.HeadlineMetric, "HEADLINE_METRIC")
	set(&c.SourcesFile, "SOURCES_FILE")
	set(&c.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL")
	set(&c.Notify.RedisURL, "NOTIFY_REDIS_URL")
	set(&c.Notify.RedisChannel, "NOTIFY_REDIS_CHANNEL")
}

// Validate checks that the configuration can actually run a binary.
func (c *Config) Validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is required")
	}
	switch c.RawStore {
	case "fs":
		if c.RawFSRoot == "" {
			return errors.New("RAW_FS_ROOT is required for the fs backend")
		}
	case "minio":
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio backend")
		}
	default:
		return fmt.Errorf("RAW_STORE must be fs or minio, got %q", c.RawStore)
	}
	return nil
}
