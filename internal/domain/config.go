package domain

import "time"

// DatabaseType selects the SQL driver backing the store
type DatabaseType string

const (
	// DatabaseTypeSqlite - embedded database file (default)
	DatabaseTypeSqlite DatabaseType = "sqlite"
	// DatabaseTypePostgres - external PostgreSQL server, DSN required
	DatabaseTypePostgres DatabaseType = "postgres"
)

type Config struct {
	WatchlistURL        string        `toml:"watchlist_url" mapstructure:"watchlist_url"`
	TmdbApiKey          string        `toml:"tmdb_api_key" mapstructure:"tmdb_api_key"`
	TmdbBaseURL         string        `toml:"tmdb_base_url" mapstructure:"tmdb_base_url"`
	TmdbRegion          string        `toml:"tmdb_region" mapstructure:"tmdb_region"`
	TmdbRequestsPerSec  float64       `toml:"tmdb_requests_per_second" mapstructure:"tmdb_requests_per_second"`
	EnrichConcurrency   int           `toml:"enrich_concurrency" mapstructure:"enrich_concurrency"`
	RequestTimeout      time.Duration `toml:"request_timeout" mapstructure:"request_timeout"`
	ScrapeRetries       int           `toml:"scrape_retries" mapstructure:"scrape_retries"`
	ScrapeRetryDelay    time.Duration `toml:"scrape_retry_delay" mapstructure:"scrape_retry_delay"`
	ScrapeMaxPages      int           `toml:"scrape_max_pages" mapstructure:"scrape_max_pages"`
	AllowEmptyWatchlist bool          `toml:"allow_empty_watchlist" mapstructure:"allow_empty_watchlist"`
	DatabaseType        DatabaseType  `toml:"database_type" mapstructure:"database_type"`
	DatabaseDSN         string        `toml:"database_dsn" mapstructure:"database_dsn"`
	DiscordWebhookURL   string        `toml:"discord_webhook_url" mapstructure:"discord_webhook_url"`
	LogLevel            string        `toml:"log_level" mapstructure:"log_level"`
}
