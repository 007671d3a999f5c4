package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func LoadConfig() {
	viper.SetConfigName("config")          // name of config file (without extension)
	viper.SetConfigType("yaml")            // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath("/etc/pkgshield/") // path to look for the config file in
	viper.AddConfigPath(".")               // optionally look for config in the working directory
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Warn().Msg("Config file not found")
		} else {
			log.Panic().Err(err).Msg("Fatal error reading config file")
		}
	}
	SetDefaultConfig()
}

func SetDefaultConfig() {
	// Database
	viper.SetDefault("db.type", "sqlite")
	viper.SetDefault("db.sqlite_path", "pkgshield.db")
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.pool.persistent", 15)
	viper.SetDefault("db.pool.max", 30)

	// Job dispatch
	viper.SetDefault("jobs.timeout", 120)
	viper.SetDefault("jobs.cache_size", 0)
	viper.SetDefault("jobs.maintenance_schedule", "@every 1m")

	// Score at which a finished scan counts as malicious
	viper.SetDefault("scans.score_threshold", 7)

	// Rule bundle
	viper.SetDefault("rules.github_token", "")
	viper.SetDefault("rules.repo_owner", "")
	viper.SetDefault("rules.repo_name", "")
	viper.SetDefault("rules.branch", "main")
	viper.SetDefault("rules.refresh_schedule", "")

	// Upstream services
	viper.SetDefault("pypi.base_url", "https://pypi.org")
	viper.SetDefault("reporter.url", "")

	// API
	viper.SetDefault("api.listen.host", "")
	viper.SetDefault("api.listen.port", 8000)
	viper.SetDefault("api.cors.origins", []string{"*"})
	viper.SetDefault("api.auth.jwt_secret_key", "")
	viper.SetDefault("api.auth.jwks_url", "")
	viper.SetDefault("api.metrics.enabled", true)

	// Reported by the root endpoint next to the rule commit
	viper.SetDefault("server.commit", "development")
}
