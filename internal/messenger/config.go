package messenger

import (
	"time"

	"followarr/internal/config"
)

// NewFromConfig builds the configured messenger. Without a bot token the
// noop messenger is returned so the pipeline runs end to end in dry setups.
func NewFromConfig(cfg *config.Config) (Messenger, error) {
	if cfg.Discord.BotToken == "" {
		return Noop{}, nil
	}
	timeout := time.Duration(cfg.Discord.RequestTimeout) * time.Second
	return NewDiscord(cfg.Discord.BotToken, cfg.Discord.BaseURL, timeout)
}
