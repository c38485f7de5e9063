// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup. Empty Postgres,
// Redis, or Kafka settings select the in-process fallbacks (memory stores,
// no cache, memory event sink).
type Config struct {
	Addr          string
	PostgresDSN   string
	Redis         RedisConfig
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string
	AdminAPIKey   string
	CacheTTL      time.Duration
	EventBuffer   int
}

// RedisConfig carries the Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv reads configuration from the environment with development
// defaults. The JWT signing key default must be overridden in production.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("FACEPAY_ADDR", ":8080"),
		PostgresDSN:   os.Getenv("FACEPAY_POSTGRES_DSN"),
		JWTSigningKey: envOr("FACEPAY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminAPIKey:   os.Getenv("FACEPAY_ADMIN_API_KEY"),
		KafkaTopic:    os.Getenv("FACEPAY_KAFKA_TOPIC"),
		CacheTTL:      envDuration("FACEPAY_CACHE_TTL", 5*time.Minute),
		EventBuffer:   envInt("FACEPAY_EVENT_BUFFER", 256),
		Redis: RedisConfig{
			URL:          os.Getenv("FACEPAY_REDIS_URL"),
			PoolSize:     envInt("FACEPAY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("FACEPAY_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("FACEPAY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("FACEPAY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("FACEPAY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if brokers := os.Getenv("FACEPAY_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
