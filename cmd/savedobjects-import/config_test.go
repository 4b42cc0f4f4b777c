package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("SAVEDOBJECTS_DB_DRIVER", "postgres")
	t.Setenv("SAVEDOBJECTS_DB_DSN", "postgres://localhost/savedobjects")
	t.Setenv("SAVEDOBJECTS_NAMESPACE", "team-a")
	t.Setenv("SAVEDOBJECTS_S3_ENDPOINT", "localhost:9000")
	t.Setenv("SAVEDOBJECTS_S3_BUCKET", "exports")
	t.Setenv("SAVEDOBJECTS_S3_USE_SSL", "true")
	t.Setenv("SAVEDOBJECTS_CACHE_TTL", "5m")

	cfg, err := parseConfig(context.Background(), []string{
		"--namespace", "team-b",
		"--overwrite",
		"--workspaces", "ws-1, ws-2,",
		"--data-source-id", "ds-1",
		"--object-limit", "25",
		"s3://exports/objects.ndjson",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Driver != "postgres" || cfg.GetServer() != "postgres://localhost/savedobjects" {
		t.Fatalf("expected database settings from environment, got %+v", cfg)
	}
	if cfg.Namespace != "team-b" || !cfg.Overwrite || cfg.ObjectLimit != 25 {
		t.Fatalf("expected flags to win over environment, got %+v", cfg)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("expected cache ttl from environment, got %s", cfg.CacheTTL)
	}
	if strings.Join(cfg.workspaces(), ",") != "ws-1,ws-2" {
		t.Fatalf("expected trimmed workspaces, got %v", cfg.workspaces())
	}
	s3 := cfg.s3Config()
	if !cfg.dataSourceEnabled() || !cfg.s3Enabled() || !s3.UseSSL || s3.Bucket != "exports" {
		t.Fatalf("expected data source and s3 settings, got %+v", cfg)
	}
	if cfg.Location != "s3://exports/objects.ndjson" {
		t.Fatalf("unexpected location %q", cfg.Location)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(context.Background(), []string{"export.ndjson"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	defaults := defaultCLIConfig()
	if cfg.Driver != defaults.Driver || cfg.DSN != defaults.DSN || cfg.CacheTTL != time.Minute {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Overwrite || cfg.Debug || cfg.s3Enabled() || cfg.dataSourceEnabled() {
		t.Fatalf("expected optional settings to be off, got %+v", cfg)
	}
}

func TestParseConfigRejectsInvalidInput(t *testing.T) {
	cases := map[string][]string{
		"missing location": {},
		"two locations":    {"a.ndjson", "b.ndjson"},
		"exclusive modes":  {"--overwrite", "--create-new-copies", "a.ndjson"},
		"unknown flag":     {"--bogus", "a.ndjson"},
		"unknown driver":   {"--db-driver", "oracle", "a.ndjson"},
		"negative limit":   {"--object-limit=-1", "a.ndjson"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseConfig(context.Background(), args, &bytes.Buffer{}); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := defaultCLIConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing location to fail validation")
	}
	cfg.Location = "export.ndjson"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cfg.DSN = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected blank dsn to fail validation")
	}
}

func TestLoadRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retries.json")
	content := `[{"type":"dashboard","id":"d1","overwrite":true},{"type":"search","id":"s1","destinationId":"s2"}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write retries: %v", err)
	}
	retries, err := loadRetries(path)
	if err != nil {
		t.Fatalf("load retries: %v", err)
	}
	if len(retries) != 2 || !retries[0].Overwrite || retries[1].DestinationID != "s2" {
		t.Fatalf("unexpected retries %+v", retries)
	}
	if _, err := loadRetries(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestRunImportsIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	export := filepath.Join(dir, "export.ndjson")
	objects := `{"type":"index-pattern","id":"ip","attributes":{"title":"logs-*"},"references":[]}
{"type":"dashboard","id":"dash","attributes":{"title":"Overview"},"references":[]}
`
	if err := os.WriteFile(export, []byte(objects), 0o600); err != nil {
		t.Fatalf("write export: %v", err)
	}
	dsn := "file:" + filepath.Join(dir, "savedobjects.db") + "?cache=shared&_foreign_keys=on"
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--db-dsn", dsn, "--namespace", "team-a", export}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, stderr.String())
	}
	var result struct {
		Success      bool `json:"success"`
		SuccessCount int  `json:"successCount"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if !result.Success || result.SuccessCount != 2 {
		t.Fatalf("unexpected result %s", stdout.String())
	}

	stdout.Reset()
	code = run(context.Background(), []string{"--db-dsn", dsn, "--namespace", "team-a", export}, &stdout, &stderr)
	if code != 3 {
		t.Fatalf("expected conflicts to exit with 3, got %d", code)
	}
}
