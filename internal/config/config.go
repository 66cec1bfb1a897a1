// Package config defines service configuration and its loading.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Index drivers.
const (
	IndexMemory = "memory"
	IndexRedis  = "redis"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreSQLite   = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// ClientOrigin is the allowed CORS origin.
	ClientOrigin string `koanf:"client_origin"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of index writers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the in-memory deduplication window.
	DedupeSize int `koanf:"dedupe_size"`
	// DedupeTTL is how long Redis remembers an event id.
	DedupeTTL time.Duration `koanf:"dedupe_ttl"`

	// MaxLeaderboardLimit caps ?limit on the ranked endpoints.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
	// EnrichConcurrency bounds parallel record lookups per request.
	EnrichConcurrency int `koanf:"enrich_concurrency"`
	// StoreTimeoutMS bounds each index and store call made by queries.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`
	// Collation is the BCP 47 tag used to order countries.
	Collation string `koanf:"collation"`

	IndexDriver   string `koanf:"index_driver"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisKey      string `koanf:"redis_key"`

	StoreDriver string `koanf:"store_driver"`
	DatabaseDSN string `koanf:"database_dsn"`

	// SettlementPeriod is the interval between settlements.
	SettlementPeriod time.Duration `koanf:"settlement_period"`
	// SettlementEnabled turns the in-process scheduler on.
	SettlementEnabled bool `koanf:"settlement_enabled"`

	// SeedSource is a local path or s3://bucket/key.
	SeedSource         string `koanf:"seed_source"`
	SeedOnStart        bool   `koanf:"seed_on_start"`
	ReseedOnSettlement bool   `koanf:"reseed_on_settlement"`

	S3Region          string `koanf:"s3_region"`
	S3Endpoint        string `koanf:"s3_endpoint"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
}

// New returns a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":5000",
		ClientOrigin:        "*",
		EventQueueSize:      100_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          500_000,
		DedupeTTL:           24 * time.Hour,
		MaxLeaderboardLimit: 100,
		EnrichConcurrency:   16,
		StoreTimeoutMS:      2000,
		Collation:           "und",
		IndexDriver:         IndexMemory,
		RedisAddr:           "localhost:6379",
		RedisKey:            "leaderboard",
		StoreDriver:         StoreMemory,
		SettlementPeriod:    7 * 24 * time.Hour,
		SettlementEnabled:   true,
	}
}

// StoreTimeout returns StoreTimeoutMS as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.EnrichConcurrency <= 0:
		return fmt.Errorf("%w: enrich_concurrency must be positive", ErrInvalidConfig)
	case c.StoreTimeoutMS <= 0:
		return fmt.Errorf("%w: store_timeout_ms must be positive", ErrInvalidConfig)
	case c.SettlementPeriod <= 0:
		return fmt.Errorf("%w: settlement_period must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.IndexDriver) {
	case IndexMemory:
	case IndexRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis index needs redis_addr", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown index_driver %q", ErrInvalidConfig, c.IndexDriver)
	}

	switch strings.ToLower(c.StoreDriver) {
	case StoreMemory:
	case StorePostgres, StoreMySQL, StoreSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: %s store needs database_dsn", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	if (c.SeedOnStart || c.ReseedOnSettlement) && c.SeedSource == "" {
		return fmt.Errorf("%w: seeding needs seed_source", ErrInvalidConfig)
	}
	return nil
}
