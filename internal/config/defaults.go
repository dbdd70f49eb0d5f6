package config

const (
	defaultDataDir         = "~/.local/share/followarr"
	defaultLogDir          = "~/.local/share/followarr/logs"
	defaultDiscordBaseURL  = "https://discord.com/api/v10"
	defaultDiscordTimeout  = 10
	defaultTVDBBaseURL     = "https://api4.thetvdb.com/v4"
	defaultTVDBLanguage    = "eng"
	defaultTVDBTimeout     = 10
	defaultCacheTTLMinutes = 10
	defaultWebhookBind     = "0.0.0.0:3000"
	defaultQueueSize       = 64
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Discord: Discord{
			BaseURL:        defaultDiscordBaseURL,
			RequestTimeout: defaultDiscordTimeout,
		},
		TVDB: TVDB{
			BaseURL:         defaultTVDBBaseURL,
			Language:        defaultTVDBLanguage,
			RequestTimeout:  defaultTVDBTimeout,
			CacheTTLMinutes: defaultCacheTTLMinutes,
		},
		Webhook: Webhook{
			Bind:      defaultWebhookBind,
			QueueSize: defaultQueueSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
