// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Stats strategies.
const (
	StatsStrategyGrouped = "grouped"
	StatsStrategyPerLink = "per_link"
)

const minSiteTokenLength = 8

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Link store, domain allow-list and access-log stream (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Analytics store (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`
	Dataset     string `env:"DATASET" envDefault:"access_logs"`

	// Redirect behaviour
	HomeURL            string        `env:"HOME_URL"`
	RedirectStatusCode int           `env:"REDIRECT_STATUS_CODE" envDefault:"301"`
	RedirectWithQuery  bool          `env:"REDIRECT_WITH_QUERY" envDefault:"false"`
	CaseSensitive      bool          `env:"CASE_SENSITIVE" envDefault:"false"`
	LinkCacheTTL       time.Duration `env:"LINK_CACHE_TTL" envDefault:"60s"`
	DomainCacheTTL     time.Duration `env:"DOMAIN_CACHE_TTL" envDefault:"10s"`
	SlugPattern        string        `env:"SLUG_PATTERN" envDefault:"^[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*$"`
	ReservedSlugs      []string      `env:"RESERVED_SLUGS" envDefault:"dashboard" envSeparator:","`
	Timezone           string        `env:"TIMEZONE"`

	// API auth. SiteTokenHash (argon2id PHC string) takes precedence.
	SiteToken     string `env:"SITE_TOKEN"`
	SiteTokenHash string `env:"SITE_TOKEN_HASH"`

	// Reporting
	StatsStrategy         string `env:"STATS_STRATEGY" envDefault:"grouped"`
	StatsListPageLimit    int    `env:"STATS_LIST_PAGE_LIMIT" envDefault:"500"`
	StatsMaxLinks         int    `env:"STATS_MAX_LINKS" envDefault:"10000"`
	StatsQueryConcurrency int    `env:"STATS_QUERY_CONCURRENCY" envDefault:"8"`

	// Access-log ingest worker
	AccessLogWorkerEnabled bool `env:"ACCESS_LOG_WORKER_ENABLED" envDefault:"true"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting on the redirect path (per client IP)
	RateLimitRedirectEnabled bool `env:"RATE_LIMIT_REDIRECT_ENABLED" envDefault:"true"`
	RateLimitRedirectRPS     int  `env:"RATE_LIMIT_REDIRECT_RPS" envDefault:"100"`
	RateLimitRedirectBurst   int  `env:"RATE_LIMIT_REDIRECT_BURST" envDefault:"20"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ReservedSlugSet returns the reserved slugs as a lookup set.
func (c *Config) ReservedSlugSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ReservedSlugs))
	for _, slug := range c.ReservedSlugs {
		trimmed := strings.TrimSpace(slug)
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

// Location returns the time zone used for date keys and report windows.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks settings that env tags cannot express.
func (c *Config) Validate() error {
	switch c.RedirectStatusCode {
	case http.StatusMovedPermanently, http.StatusFound,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return fmt.Errorf("REDIRECT_STATUS_CODE must be 301, 302, 307 or 308, got %d", c.RedirectStatusCode)
	}

	if _, err := regexp.Compile(c.SlugPattern); err != nil {
		return fmt.Errorf("invalid SLUG_PATTERN: %w", err)
	}

	if c.StatsStrategy != StatsStrategyGrouped && c.StatsStrategy != StatsStrategyPerLink {
		return fmt.Errorf("STATS_STRATEGY must be %q or %q, got %q", StatsStrategyGrouped, StatsStrategyPerLink, c.StatsStrategy)
	}

	if c.StatsListPageLimit <= 0 || c.StatsMaxLinks <= 0 || c.StatsQueryConcurrency <= 0 {
		return errors.New("STATS_LIST_PAGE_LIMIT, STATS_MAX_LINKS and STATS_QUERY_CONCURRENCY must be positive")
	}

	if c.LinkCacheTTL < 0 || c.DomainCacheTTL < 0 {
		return errors.New("cache TTLs must not be negative")
	}

	if c.SiteTokenHash == "" && len(c.SiteToken) < minSiteTokenLength {
		return fmt.Errorf("SITE_TOKEN must be at least %d characters (or set SITE_TOKEN_HASH)", minSiteTokenLength)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Load parses environment variables and returns a Config.
// A .env file in the working directory is read first when present;
// variables already set in the environment take precedence.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
