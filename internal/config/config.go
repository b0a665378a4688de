/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
	DatabaseNone     DatabaseBackend = "none" // run history disabled
)

// EventBusBackend selects where optimization events are forwarded.
type EventBusBackend string

const (
	EventBusNone  EventBusBackend = "none"
	EventBusNATS  EventBusBackend = "nats"
	EventBusRedis EventBusBackend = "redis"
)

// MinProductionKeyLength is the shortest JWT signing key accepted in production.
const MinProductionKeyLength = 32

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment    string
	HTTPBind       string
	HTTPPort       int
	MetricsBind    string
	RequestTimeout time.Duration
	MaxBodyMB      int
	MaxContracts   int

	// Rate limiting (0 RPS disables it)
	RateLimitRPS   float64
	RateLimitBurst int

	JWTSigningKey string

	// Run history
	DBBackend         DatabaseBackend
	DBDSN             string
	RunsRetention     time.Duration
	RunsPruneSchedule string

	// LeaderElection restricts pruning to the replica holding a Redis lease.
	LeaderElection bool

	// Result cache
	CacheEnabled  bool
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Event forwarding
	EventBus EventBusBackend
	NATSURL  string

	// S3 object storage for payload files
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:    getEnv("SPACESHIP_ENV", "development"),
		HTTPBind:       getEnv("SPACESHIP_HTTP_BIND", "0.0.0.0"),
		HTTPPort:       getEnvInt("SPACESHIP_HTTP_PORT", 8080),
		MetricsBind:    getEnv("SPACESHIP_METRICS_BIND", "127.0.0.1:9000"),
		RequestTimeout: time.Duration(getEnvInt("SPACESHIP_REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxBodyMB:      getEnvInt("SPACESHIP_MAX_BODY_MB", 64),
		MaxContracts:   getEnvInt("SPACESHIP_MAX_CONTRACTS", 1_000_000),

		RateLimitRPS:   getEnvFloatAny([]string{"SPACESHIP_RATE_LIMIT_RPS"}, 0),
		RateLimitBurst: getEnvInt("SPACESHIP_RATE_LIMIT_BURST", 20),

		JWTSigningKey: getEnv("SPACESHIP_JWT_SIGNING_KEY", ""),

		DBBackend:         DatabaseBackend(strings.ToLower(getEnv("SPACESHIP_DB_BACKEND", string(DatabaseSQLite)))),
		DBDSN:             getEnv("SPACESHIP_DB_DSN", "spaceship.db"),
		RunsRetention:     time.Duration(getEnvInt("SPACESHIP_RUNS_RETENTION_HOURS", 168)) * time.Hour,
		RunsPruneSchedule: getEnv("SPACESHIP_RUNS_PRUNE_SCHEDULE", "@hourly"),
		LeaderElection:    getEnvBoolAny([]string{"SPACESHIP_LEADER_ELECTION"}, false),

		CacheEnabled:  getEnvBoolAny([]string{"SPACESHIP_CACHE_ENABLED"}, false),
		CacheTTL:      time.Duration(getEnvInt("SPACESHIP_CACHE_TTL_SECONDS", 3600)) * time.Second,
		RedisAddr:     getEnv("SPACESHIP_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("SPACESHIP_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SPACESHIP_REDIS_DB", 0),

		EventBus: EventBusBackend(strings.ToLower(getEnv("SPACESHIP_EVENTBUS", string(EventBusNone)))),
		NATSURL:  getEnv("SPACESHIP_NATS_URL", "nats://localhost:4222"),

		S3Region:          getEnvAny([]string{"SPACESHIP_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Endpoint:        getEnvAny([]string{"SPACESHIP_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3AccessKeyID:     getEnvAny([]string{"SPACESHIP_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"SPACESHIP_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"SPACESHIP_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		TracingEnabled:    getEnvBoolAny([]string{"SPACESHIP_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnv("SPACESHIP_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"SPACESHIP_TRACING_SAMPLE_RATE"}, 1.0),
	}

	switch cfg.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite, DatabaseNone:
	default:
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBBackend != DatabaseNone && cfg.DBDSN == "" {
		return nil, fmt.Errorf("SPACESHIP_DB_DSN must be provided for the %s backend", cfg.DBBackend)
	}

	switch cfg.EventBus {
	case EventBusNone, EventBusNATS, EventBusRedis:
	default:
		return nil, fmt.Errorf("unsupported event bus %q", cfg.EventBus)
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("SPACESHIP_HTTP_PORT out of range: %d", cfg.HTTPPort)
	}

	if cfg.MaxContracts <= 0 {
		return nil, fmt.Errorf("SPACESHIP_MAX_CONTRACTS must be positive")
	}

	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("SPACESHIP_RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < MinProductionKeyLength {
		return nil, fmt.Errorf("SPACESHIP_JWT_SIGNING_KEY must be at least %d bytes in production", MinProductionKeyLength)
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"JWT_SIGNING_KEY": "use SPACESHIP_JWT_SIGNING_KEY",
		"REDIS_ADDR":      "use SPACESHIP_REDIS_ADDR",
		"NATS_URL":        "use SPACESHIP_NATS_URL",
		"DATABASE_URL":    "use SPACESHIP_DB_DSN",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("unsupported env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// MaxBodyBytes returns the request body limit in bytes.
func (c *Config) MaxBodyBytes() int64 {
	if c == nil || c.MaxBodyMB <= 0 {
		return 0
	}
	return int64(c.MaxBodyMB) * 1024 * 1024
}

// HTTPAddr returns the API listen address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
