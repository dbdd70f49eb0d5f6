package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Discord contains chat platform delivery settings.
type Discord struct {
	BotToken       string `toml:"bot_token"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// TVDB contains configuration for the show metadata catalog.
type TVDB struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Language        string `toml:"language"`
	RequestTimeout  int    `toml:"request_timeout"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
}

// Webhook contains the inbound event listener settings.
type Webhook struct {
	Bind      string `toml:"bind"`
	QueueSize int    `toml:"queue_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for followarr.
//
// Sections by subsystem:
//   - Paths: data directory (follow database, lock file) and log directory
//   - Discord: bot credential and DM delivery settings
//   - TVDB: metadata catalog credential and resolver cache tuning
//   - Webhook: inbound media-monitor event listener
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Discord Discord `toml:"discord"`
	TVDB    TVDB    `toml:"tvdb"`
	Webhook Webhook `toml:"webhook"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/followarr/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and environment credential overrides
// applied. The second return reports the resolved path, the third whether a
// file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("followarr.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) applyEnvOverrides() {
	if token := strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")); token != "" {
		c.Discord.BotToken = token
	}
	if key := strings.TrimSpace(os.Getenv("TVDB_API_KEY")); key != "" {
		c.TVDB.APIKey = key
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Discord.BaseURL = strings.TrimRight(strings.TrimSpace(c.Discord.BaseURL), "/")
	c.TVDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TVDB.BaseURL), "/")
	c.Webhook.Bind = strings.TrimSpace(c.Webhook.Bind)
	return nil
}

// Validate checks configuration invariants shared by every subcommand.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("config: paths.data_dir must not be empty")
	}
	if c.Webhook.Bind == "" {
		return errors.New("config: webhook.bind must not be empty")
	}
	if c.Webhook.QueueSize <= 0 {
		return fmt.Errorf("config: webhook.queue_size must be positive, got %d", c.Webhook.QueueSize)
	}
	if c.TVDB.BaseURL == "" {
		return errors.New("config: tvdb.base_url must not be empty")
	}
	if c.TVDB.RequestTimeout <= 0 {
		return fmt.Errorf("config: tvdb.request_timeout must be positive, got %d", c.TVDB.RequestTimeout)
	}
	if c.Discord.RequestTimeout <= 0 {
		return fmt.Errorf("config: discord.request_timeout must be positive, got %d", c.Discord.RequestTimeout)
	}
	if c.TVDB.CacheTTLMinutes < 0 {
		return fmt.Errorf("config: tvdb.cache_ttl_minutes must not be negative, got %d", c.TVDB.CacheTTLMinutes)
	}
	return nil
}

// RequireCredentials validates the secrets the daemon needs to serve traffic.
// Separated from Validate so offline subcommands (config show, follows) work
// without credentials.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.TVDB.APIKey) == "" {
		return errors.New("config: tvdb.api_key is required (or set TVDB_API_KEY)")
	}
	return nil
}

// EnsureDirectories creates the directories the process writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite follow database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "followarr.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "followarr.lock")
}

// SampleConfig returns the annotated sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves a leading tilde and returns an absolute cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
