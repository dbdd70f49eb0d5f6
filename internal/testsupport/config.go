// Package testsupport provides helpers shared by followarr's tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"followarr/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.TVDB.APIKey = "test"
	cfg.Webhook.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithDiscordToken sets the Discord bot token on the test config.
func WithDiscordToken(token string) ConfigOption {
	return func(c *config.Config) {
		c.Discord.BotToken = token
	}
}

// WithCacheTTLMinutes overrides the resolver cache TTL on the test config.
func WithCacheTTLMinutes(minutes int) ConfigOption {
	return func(c *config.Config) {
		c.TVDB.CacheTTLMinutes = minutes
	}
}
