// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/linkrelay/linkrelay/internal/migrations"
	"github.com/linkrelay/linkrelay/internal/model"
)

// RequireIntegration skips unless INTEGRATION=1 and -short is off.
func RequireIntegration(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("INTEGRATION") != "1" {
		t.Skip("INTEGRATION not set")
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Environment is a throwaway Redis and Postgres pair.
type Environment struct {
	Redis       *redis.Client
	Postgres    *pgxpool.Pool
	PostgresDSN string
}

// StartRedis launches a Redis container and returns a connected client.
// The container is terminated on test cleanup.
func StartRedis(t testing.TB) *redis.Client {
	t.Helper()
	RequireIntegration(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         endpoint,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	t.Cleanup(func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	return client
}

// StartPostgres launches a Postgres container, applies the embedded
// migrations and returns a pool plus its DSN.
func StartPostgres(t testing.TB) (*pgxpool.Pool, string) {
	t.Helper()
	RequireIntegration(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("linkrelay"),
		tcpostgres.WithUsername("linkrelay"),
		tcpostgres.WithPassword("linkrelay"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	m, err := migrations.New(dsn, DiscardLogger())
	if err != nil {
		t.Fatalf("create migrator: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	_ = m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create postgres pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool, dsn
}

// StartEnvironment launches both stores.
func StartEnvironment(t testing.TB) *Environment {
	t.Helper()
	pool, dsn := StartPostgres(t)
	return &Environment{
		Redis:       StartRedis(t),
		Postgres:    pool,
		PostgresDSN: dsn,
	}
}

// NewTestLink creates a test link with sensible defaults.
func NewTestLink(t testing.TB, slug string) *model.Link {
	t.Helper()
	now := time.Now().Unix()
	return &model.Link{
		ID:        UniqueID("link"),
		Slug:      slug,
		URL:       "https://example.com/" + slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
