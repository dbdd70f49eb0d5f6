package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"followarr/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Webhook.Bind != "0.0.0.0:3000" {
		t.Fatalf("unexpected default bind %q", cfg.Webhook.Bind)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"

[tvdb]
api_key = "abc123"
base_url = "https://tvdb.example/v4/"

[webhook]
bind = " 127.0.0.1:9999 "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.TVDB.BaseURL != "https://tvdb.example/v4" {
		t.Fatalf("base url not trimmed: %q", cfg.TVDB.BaseURL)
	}
	if cfg.Webhook.Bind != "127.0.0.1:9999" {
		t.Fatalf("bind not trimmed: %q", cfg.Webhook.Bind)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "data", "followarr.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadEnvOverridesCredentials(t *testing.T) {
	t.Setenv("TVDB_API_KEY", "env-key")
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TVDB.APIKey != "env-key" {
		t.Fatalf("tvdb key = %q, want env override", cfg.TVDB.APIKey)
	}
	if cfg.Discord.BotToken != "env-token" {
		t.Fatalf("bot token = %q, want env override", cfg.Discord.BotToken)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty bind", func(c *config.Config) { c.Webhook.Bind = "" }, "webhook.bind"},
		{"zero queue", func(c *config.Config) { c.Webhook.QueueSize = 0 }, "queue_size"},
		{"zero timeout", func(c *config.Config) { c.TVDB.RequestTimeout = 0 }, "request_timeout"},
		{"negative ttl", func(c *config.Config) { c.TVDB.CacheTTLMinutes = -1 }, "cache_ttl_minutes"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q should mention %q", tc.name, err, tc.want)
		}
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireCredentials(); err == nil {
		t.Fatal("expected error without tvdb key")
	}
	cfg.TVDB.APIKey = "abc"
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := os.WriteFile(path, []byte(config.SampleConfig()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}
