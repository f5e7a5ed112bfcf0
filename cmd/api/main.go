// Package main is the entrypoint for the LinkRelay server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/linkrelay/linkrelay/internal/analytics"
	"github.com/linkrelay/linkrelay/internal/auth"
	"github.com/linkrelay/linkrelay/internal/config"
	"github.com/linkrelay/linkrelay/internal/handler"
	"github.com/linkrelay/linkrelay/internal/kv"
	"github.com/linkrelay/linkrelay/internal/metrics"
	"github.com/linkrelay/linkrelay/internal/middleware"
	"github.com/linkrelay/linkrelay/internal/migrations"
	"github.com/linkrelay/linkrelay/internal/repository"
	"github.com/linkrelay/linkrelay/internal/server"
	"github.com/linkrelay/linkrelay/internal/service"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	logger := initLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		return err
	}

	migrator, err := migrations.New(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
		return err
	}
	if err := migrator.Up(); err != nil {
		logger.Error("failed to apply migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
		_ = migrator.Close()
		return err
	}
	_ = migrator.Close()

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	defer repo.Close()
	logger.Info("connected to database")

	store, err := kv.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return err
	}
	defer store.Close()
	logger.Info("connected to Redis")

	verifier, err := auth.NewTokenVerifier(cfg.SiteToken, cfg.SiteTokenHash)
	if err != nil {
		logger.Error("invalid site token configuration", "error", err)
		return err
	}

	recorder := metrics.NewInMemory()

	links := kv.NewCachedLinks(store, cfg.LinkCacheTTL)
	domains := kv.NewCachedDomains(store, cfg.DomainCacheTTL)
	accessLogs := repository.NewAccessLogRepository(repo, cfg.Dataset)
	publisher := analytics.NewPublisher(store.Client(), logger, recorder)

	resolver := service.NewSlugResolver(links, service.SlugPolicy{
		Reserved:      cfg.ReservedSlugSet(),
		Pattern:       regexp.MustCompile(cfg.SlugPattern),
		CaseSensitive: cfg.CaseSensitive,
	})
	redirects := service.NewRedirectService(
		resolver,
		domains,
		publisher,
		service.NewSubdomainRotator(loc, nil),
		service.RedirectConfig{
			HomeURL:    cfg.HomeURL,
			StatusCode: cfg.RedirectStatusCode,
			WithQuery:  cfg.RedirectWithQuery,
		},
		logger,
		recorder,
	)
	stats := service.NewStatsService(links, domains, accessLogs, service.StatsConfig{
		Strategy:         cfg.StatsStrategy,
		ListPageLimit:    cfg.StatsListPageLimit,
		MaxLinks:         cfg.StatsMaxLinks,
		QueryConcurrency: cfg.StatsQueryConcurrency,
		Location:         loc,
	}, logger, recorder)

	router := server.NewRouter(server.RouterDeps{
		Logger:        logger,
		IsDevelopment: cfg.IsDevelopment(),
		Verifier:      verifier,
		RateLimiter: middleware.RateLimitConfig{
			Logger:  logger,
			Limiter: store,
			Enabled: cfg.RateLimitRedirectEnabled,
			RPS:     cfg.RateLimitRedirectRPS,
			Burst:   cfg.RateLimitRedirectBurst,
		},
		Health:   handler.NewHealthHandler(map[string]handler.Pinger{"postgres": repo, "redis": store}, logger),
		Verify:   handler.NewVerifyHandler(verifier, cfg.HomeURL),
		Stats:    handler.NewStatsHandler(stats, logger),
		Domains:  handler.NewDomainHandler(domains, logger),
		Metrics:  handler.NewMetricsHandler(recorder),
		Redirect: handler.NewRedirectHandler(redirects, logger),
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if cfg.AccessLogWorkerEnabled {
		worker := analytics.NewWorker(store.Client(), accessLogs, logger, analytics.NewConsumerID(), recorder)
		srv.Background("access_log_worker", worker.Run)
		srv.OnShutdown("access_log_worker", worker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"stats_strategy", cfg.StatsStrategy,
		"access_log_worker", cfg.AccessLogWorkerEnabled,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
