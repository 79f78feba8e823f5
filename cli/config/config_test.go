package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RawStore != "fs" {
		t.Errorf("RawStore = %q, want fs", cfg.RawStore)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.HeadlineMetric != "presupuesto_ley" {
		t.Errorf("HeadlineMetric = %q", cfg.HeadlineMetric)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
db_url: postgres://file-host/app
raw_store: minio
minio:
  endpoint: http://minio:9000
  bucket: raw
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DB_URL", "postgres://env-host/app")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBURL != "postgres://env-host/app" {
		t.Errorf("DBURL = %q, env should win over file", cfg.DBURL)
	}
	if cfg.RawStore != "minio" {
		t.Errorf("RawStore = %q, want minio from file", cfg.RawStore)
	}
	if cfg.Minio.Bucket != "raw" {
		t.Errorf("Minio.Bucket = %q", cfg.Minio.Bucket)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("db_url: ${ET_TEST_DB:-postgres://default/app}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBURL != "postgres://default/app" {
		t.Errorf("DBURL = %q", cfg.DBURL)
	}
}

func TestLoadRejectsUnsetReferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("db_url: ${ET_NEVER_SET_DB}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load accepted an unset default-less reference")
	}
	if !strings.Contains(err.Error(), "ET_NEVER_SET_DB") {
		t.Errorf("error %q does not name the variable", err.Error())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("db_uri: oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "fs ok",
			mutate: func(c *Config) { c.DBURL = "postgres://h/app" },
		},
		{
			name:    "missing db url",
			mutate:  func(*Config) {},
			wantErr: "DB_URL",
		},
		{
			name: "minio missing endpoint",
			mutate: func(c *Config) {
				c.DBURL = "postgres://h/app"
				c.RawStore = "minio"
			},
			wantErr: "MINIO_ENDPOINT",
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.DBURL = "postgres://h/app"
				c.RawStore = "tape"
			},
			wantErr: "RAW_STORE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
