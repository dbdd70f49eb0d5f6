// Package config loads and validates followarr's TOML configuration.
//
// Configuration is read once at process start, normalized (tilde expansion,
// trailing-slash trimming), validated, and then passed explicitly into every
// component constructor. Credentials may be supplied through the environment
// (DISCORD_BOT_TOKEN, TVDB_API_KEY) instead of the config file so secrets can
// stay out of version-controlled config.
package config
