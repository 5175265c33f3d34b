// Package config is Livermore's single process-wide configuration
// singleton. It reads and type-checks every environment variable exactly
// once at boot, before any other subsystem starts, per the "no .env file,
// environment only" contract. Nothing else in the process calls
// os.Getenv directly.
//
// Genuinely sensitive values (the Postgres DSN, the OAuth client secret,
// the Discord webhook) are read through secrets.EnvProvider rather than
// bare os.Getenv, so swapping in a different SecretProvider implementation
// later only touches this one call site.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sawpanic/livermore/internal/secrets"
)

// Config is the validated, immutable configuration for one instance.
type Config struct {
	// Identity
	ExchangeName string // which exchange this instance claims, e.g. "coinbase"
	Hostname     string
	AdminEmail   string
	AdminDisplayName string

	// Postgres
	PGDSN             string
	PGMaxOpenConns    int
	PGMaxIdleConns    int
	PGConnMaxLifetime time.Duration
	PGQueryTimeout    time.Duration

	// Redis
	RedisAddr string
	RedisDB   int
	RedisTLS  bool

	// Identity provider (OAuth), treated as an opaque external collaborator
	IdentityProviderClientID     string
	IdentityProviderClientSecret string

	// Optional Discord webhook for fire-and-forget notifications
	DiscordWebhookURL string

	// Tunables
	HeartbeatInterval time.Duration
	RESTTimeout       time.Duration
	WSIdleTimeout     time.Duration
	HTTPPort          int

	// DailyRESTBudget caps per-exchange REST calls per day; 0 disables
	// budget tracking.
	DailyRESTBudget int64
	BudgetResetHour int
}

// Load reads and validates the environment. It never partially succeeds:
// either every required variable is present and well-typed, or Load
// returns an error describing the first problem found.
func Load() (*Config, error) {
	secretProvider := secrets.NewEnvProvider("")
	ctx := context.Background()

	c := &Config{
		ExchangeName:                 os.Getenv("LIVERMORE_EXCHANGE"),
		Hostname:                     envOr("LIVERMORE_HOSTNAME", mustHostname()),
		AdminEmail:                   os.Getenv("LIVERMORE_ADMIN_EMAIL"),
		AdminDisplayName:             os.Getenv("LIVERMORE_ADMIN_DISPLAY_NAME"),
		RedisAddr:                    os.Getenv("REDIS_ADDR"),
		IdentityProviderClientID:     os.Getenv("IDENTITY_PROVIDER_CLIENT_ID"),
		PGDSN:                        secretOr(ctx, secretProvider, "pg_dsn", ""),
		IdentityProviderClientSecret: secretOr(ctx, secretProvider, "identity_provider_client_secret", ""),
		DiscordWebhookURL:            secretOr(ctx, secretProvider, "discord_webhook_url", ""),
	}

	var err error
	if c.PGMaxOpenConns, err = intOr("PG_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if c.PGMaxIdleConns, err = intOr("PG_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if c.PGConnMaxLifetime, err = durationOr("PG_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}
	if c.PGQueryTimeout, err = durationOr("PG_QUERY_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if c.RedisDB, err = intOr("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if c.RedisTLS, err = boolOr("REDIS_TLS", false); err != nil {
		return nil, err
	}
	if c.HeartbeatInterval, err = durationOr("LIVERMORE_HEARTBEAT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if c.RESTTimeout, err = durationOr("LIVERMORE_REST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if c.WSIdleTimeout, err = durationOr("LIVERMORE_WS_IDLE_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if c.HTTPPort, err = intOr("HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if c.DailyRESTBudget, err = int64Or("LIVERMORE_DAILY_REST_BUDGET", 0); err != nil {
		return nil, err
	}
	if c.BudgetResetHour, err = intOr("LIVERMORE_BUDGET_RESET_HOUR", 0); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the required fields are present and consistent.
func (c *Config) Validate() error {
	if c.ExchangeName == "" {
		return fmt.Errorf("LIVERMORE_EXCHANGE is required")
	}
	if c.PGDSN == "" {
		return fmt.Errorf("PG_DSN is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.PGMaxIdleConns > c.PGMaxOpenConns {
		return fmt.Errorf("PG_MAX_IDLE_CONNS cannot exceed PG_MAX_OPEN_CONNS")
	}
	if c.PGQueryTimeout <= 0 {
		return fmt.Errorf("PG_QUERY_TIMEOUT must be positive")
	}
	return nil
}

// HeartbeatTTL returns the presence-key TTL: three heartbeat intervals.
func (c *Config) HeartbeatTTL() time.Duration {
	return 3 * c.HeartbeatInterval
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func int64Or(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolOr(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// secretOr reads one secret through the provider, returning fallback if
// the provider reports it unset rather than failing the whole boot — a
// missing optional secret (e.g. the Discord webhook) is not fatal.
func secretOr(ctx context.Context, provider *secrets.EnvProvider, key, fallback string) string {
	secret, err := provider.GetSecret(ctx, key)
	if err != nil {
		return fallback
	}
	return secret.String()
}

func mustHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown-host"
	}
	return h
}
