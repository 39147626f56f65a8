package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/varoOP/watchlistdb/internal/domain"
)

const (
	defaultTmdbBaseURL       = "https://api.themoviedb.org/3"
	defaultTmdbRegion        = "US"
	defaultEnrichConcurrency = 5
	defaultRequestTimeout    = 15 * time.Second
	defaultScrapeRetries     = 3
	defaultScrapeRetryDelay  = 2 * time.Second
	defaultScrapeMaxPages    = 200
)

// SetDefaults registers default values with viper
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tmdb_base_url", defaultTmdbBaseURL)
	v.SetDefault("tmdb_region", defaultTmdbRegion)
	v.SetDefault("enrich_concurrency", defaultEnrichConcurrency)
	v.SetDefault("request_timeout", defaultRequestTimeout)
	v.SetDefault("scrape_retries", defaultScrapeRetries)
	v.SetDefault("scrape_retry_delay", defaultScrapeRetryDelay)
	v.SetDefault("scrape_max_pages", defaultScrapeMaxPages)
	v.SetDefault("database_type", string(domain.DatabaseTypeSqlite))
	v.SetDefault("database_dsn", "watchlistdb.db")
	v.SetDefault("log_level", "info")
}

// Load loads configuration from multiple sources:
// 1. Config file (config.yaml, optional)
// 2. Environment variables (WATCHLISTDB_*)
func Load() (*domain.Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v
func LoadFrom(v *viper.Viper) (*domain.Config, error) {
	SetDefaults(v)

	cfg := &domain.Config{
		WatchlistURL:        strings.TrimRight(strings.TrimSpace(v.GetString("watchlist_url")), "/"),
		TmdbApiKey:          strings.TrimSpace(v.GetString("tmdb_api_key")),
		TmdbBaseURL:         strings.TrimRight(v.GetString("tmdb_base_url"), "/"),
		TmdbRegion:          strings.ToUpper(v.GetString("tmdb_region")),
		TmdbRequestsPerSec:  v.GetFloat64("tmdb_requests_per_second"),
		EnrichConcurrency:   v.GetInt("enrich_concurrency"),
		RequestTimeout:      v.GetDuration("request_timeout"),
		ScrapeRetries:       v.GetInt("scrape_retries"),
		ScrapeRetryDelay:    v.GetDuration("scrape_retry_delay"),
		ScrapeMaxPages:      v.GetInt("scrape_max_pages"),
		AllowEmptyWatchlist: v.GetBool("allow_empty_watchlist"),
		DatabaseType:        domain.DatabaseType(strings.ToLower(v.GetString("database_type"))),
		DatabaseDSN:         v.GetString("database_dsn"),
		DiscordWebhookURL:   v.GetString("discord_webhook_url"),
		LogLevel:            v.GetString("log_level"),
	}

	if cfg.DatabaseType != domain.DatabaseTypeSqlite && cfg.DatabaseType != domain.DatabaseTypePostgres {
		return nil, fmt.Errorf("invalid database_type: %s (must be 'sqlite' or 'postgres')", cfg.DatabaseType)
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("database_dsn is required (set via config.yaml or WATCHLISTDB_DATABASE_DSN environment variable)")
	}

	if cfg.EnrichConcurrency <= 0 {
		return nil, fmt.Errorf("enrich_concurrency must be positive, got %d", cfg.EnrichConcurrency)
	}

	if cfg.ScrapeRetries < 0 {
		cfg.ScrapeRetries = 0
	}

	return cfg, nil
}

// Validate checks the settings a sync run needs beyond what every command needs
func Validate(cfg *domain.Config) error {
	if cfg.WatchlistURL == "" {
		return fmt.Errorf("watchlist_url is required (set via config.yaml or WATCHLISTDB_WATCHLIST_URL environment variable)")
	}

	u, err := url.Parse(cfg.WatchlistURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("watchlist_url is not an absolute url: %q", cfg.WatchlistURL)
	}

	if cfg.TmdbApiKey == "" {
		return fmt.Errorf("tmdb_api_key is required (set via config.yaml or WATCHLISTDB_TMDB_API_KEY environment variable)")
	}

	return nil
}
