package main

import (
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/spf13/cobra"

	"followarr/internal/bot"
	"followarr/internal/calendar"
	"followarr/internal/catalog/tvdb"
	"followarr/internal/config"
	"followarr/internal/logging"
	"followarr/internal/resolver"
	"followarr/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, err := logging.New(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			LogDir: cfg.Paths.LogDir,
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger, nil
}

// openStore opens the follow store for one-shot CLI operations.
func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg)
}

// commandService assembles the follow/unfollow/list/calendar surface for
// one-shot CLI use. The caller closes the returned store.
func (c *commandContext) commandService() (*bot.Service, *store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	catalog, err := tvdb.New(
		cfg.TVDB.APIKey,
		cfg.TVDB.BaseURL,
		cfg.TVDB.Language,
		time.Duration(cfg.TVDB.RequestTimeout)*time.Second,
	)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	cacheTTL := time.Duration(cfg.TVDB.CacheTTLMinutes) * time.Minute
	res := resolver.New(catalog, cacheTTL, logger)
	cal := calendar.New(st, catalog, logger)
	return bot.New(st, res, catalog, cal, logger), st, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
