// Package testutil provides shared infrastructure helpers for integration
// tests. Tests are skipped when the backing service is unavailable unless
// TEST_REQUIRE_INFRA forces a failure instead.
package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/commercekit/storefront-identity/internal/adapters/postgres"
)

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...interface{})
	Skipf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Cleanup(func())
}

// TestDBConfig holds configuration for the test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig returns the test database configuration. CI
// environments override the defaults with TEST_DB_* variables.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "5432"),
		User:     getEnvOrDefault("TEST_DB_USER", "storefront"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "storefront"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "storefront_test"),
	}
}

func testDSN(cfg TestDBConfig) string {
	hostPort := net.JoinHostPort(cfg.Host, cfg.Port)
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		cfg.User, cfg.Password, hostPort, cfg.DBName)
}

// SetupTestDB connects a pgx pool to the test database, ensures the schema,
// and truncates the profiles table. The pool is closed via t.Cleanup.
func SetupTestDB(t TestingTB) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, testDSN(DefaultTestDBConfig()))
	if err != nil {
		skipOrFail(t, "test database not available: %v", err)
		return nil
	}
	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		skipOrFail(t, "test database not available: %v", pingErr)
		return nil
	}
	t.Cleanup(pool.Close)

	if schemaErr := postgres.EnsureSchema(ctx, pool); schemaErr != nil {
		t.Fatal("ensure test schema:", schemaErr)
	}
	if _, truncErr := pool.Exec(ctx, "TRUNCATE profiles"); truncErr != nil {
		t.Fatal("truncate profiles:", truncErr)
	}
	return pool
}

// SetupTestRedis creates a Redis client for testing and flushes the selected
// database. The client is closed via t.Cleanup.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr := getEnvOrDefault("TEST_REDIS_ADDR", "localhost:6379")
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   15, // keep test data away from any local dev state
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client after ping error: %v", cerr)
		}
		skipOrFail(t, "redis not available for testing at %s: %v", addr, err)
		return nil
	}
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client: %v", cerr)
		}
	})

	client.FlushDB(ctx)
	return client
}

func skipOrFail(t TestingTB, format string, args ...interface{}) {
	t.Helper()
	if requireInfra() {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

func requireInfra() bool {
	v := strings.ToLower(os.Getenv("TEST_REQUIRE_INFRA"))
	return v == "1" || v == "true" || v == "yes"
}

// getEnvOrDefault returns environment variable value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// StringPtr returns a pointer to the given string value.
func StringPtr(s string) *string {
	return &s
}
