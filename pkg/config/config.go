// Package config loads service configuration from the environment. Every
// knob has a usable default so a bare `switchboard` starts an in-memory
// instance suitable for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apembroke/switchboard/pkg/storage"
)

// Config is the complete service configuration.
type Config struct {
	// Server
	ListenAddr      string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	CORSOrigins     []string

	// Storage
	Storage storage.Config

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Engine
	RoutePrefix       string
	ResolveCacheSize  int
	ReconcileSchedule string

	// Rate limiting
	RateLimitEnabled bool
	RateLimitPerMin  int
	RateLimitBurst   int
	RedisURL         string

	// Bootstrap
	SeedFile string

	// Observability
	LogLevel string
}

// Load reads configuration from SWB_* environment variables.
func Load() *Config {
	return &Config{
		ListenAddr:      getEnv("SWB_LISTEN_ADDR", ":8080"),
		ShutdownTimeout: getDuration("SWB_SHUTDOWN_TIMEOUT", 15*time.Second),
		MaxBodyBytes:    int64(getInt("SWB_MAX_BODY_BYTES", 1<<20)),
		CORSOrigins:     getList("SWB_CORS_ORIGINS"),

		Storage: storage.Config{
			Type:           getEnv("SWB_STORAGE_TYPE", "memory"),
			FilesystemRoot: getEnv("SWB_STORAGE_ROOT", "/var/lib/switchboard"),
			MongoURI:       getEnv("SWB_MONGO_URI", ""),
			MongoDatabase:  getEnv("SWB_MONGO_DATABASE", "switchboard"),
			MongoTimeout:   getDuration("SWB_MONGO_TIMEOUT", 10*time.Second),
		},

		JWTSecret: getEnv("SWB_JWT_SECRET", ""),
		TokenTTL:  getDuration("SWB_TOKEN_TTL", 7*24*time.Hour),

		RoutePrefix:       getEnv("SWB_ROUTE_PREFIX", "/api"),
		ResolveCacheSize:  getInt("SWB_RESOLVE_CACHE_SIZE", 4096),
		ReconcileSchedule: getEnv("SWB_RECONCILE_SCHEDULE", "@every 5m"),

		RateLimitEnabled: getBool("SWB_RATE_LIMIT_ENABLED", false),
		RateLimitPerMin:  getInt("SWB_RATE_LIMIT_PER_MIN", 300),
		RateLimitBurst:   getInt("SWB_RATE_LIMIT_BURST", 50),
		RedisURL:         getEnv("SWB_REDIS_URL", ""),

		SeedFile: getEnv("SWB_SEED_FILE", ""),

		LogLevel: getEnv("SWB_LOG_LEVEL", "info"),
	}
}

// Validate rejects unusable configuration before startup.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "filesystem", "mongo":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Storage.Type == "mongo" && c.Storage.MongoURI == "" {
		return fmt.Errorf("SWB_MONGO_URI is required for mongo storage")
	}
	if c.Storage.Type == "filesystem" && c.Storage.FilesystemRoot == "" {
		return fmt.Errorf("SWB_STORAGE_ROOT is required for filesystem storage")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("SWB_JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("SWB_TOKEN_TTL must be positive")
	}
	if c.ResolveCacheSize <= 0 {
		return fmt.Errorf("SWB_RESOLVE_CACHE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
