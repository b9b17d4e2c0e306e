// Package config provides application configuration management from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dsjohal14/cinestack/internal/libs/jobs"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendWAL      = "wal"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Queue pacing policies
const (
	PacingFixed       = jobs.PacingFixed
	PacingTokenBucket = jobs.PacingTokenBucket
	PacingNone        = jobs.PacingNone
)

// Config holds application configuration
type Config struct {
	Env      string
	APIPort  string
	APIHost  string
	LogLevel string

	StoreBackend  string
	DataDir       string
	DatabaseURL   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string

	WALDir             string
	WALSyncImmediate   bool
	WALSegmentBytes    int64
	WALCheckpointEvery int

	JWTSecret string
	JWTTTL    time.Duration

	QueuePacing     string
	QueueDelay      time.Duration
	QueueRate       float64
	QueueBurst      int
	DeadLetterLimit int

	RedisAddr     string
	RedisDB       int
	DeadLetterKey string

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", filepath.Join(".", "data"))

	cfg := &Config{
		Env:      getEnv("ENV", "production"),
		APIPort:  getEnv("API_PORT", "8080"),
		APIHost:  getEnv("API_HOST", "0.0.0.0"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
		DataDir:       dataDir,
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", filepath.Join(dataDir, "cinestack.db")),
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "cinestack"),

		WALDir:             getEnv("WAL_DIR", filepath.Join(dataDir, "wal")),
		WALSyncImmediate:   getEnvBool("WAL_SYNC_IMMEDIATE", true),
		WALSegmentBytes:    int64(getEnvInt("WAL_SEGMENT_MB", 64)) * 1024 * 1024,
		WALCheckpointEvery: getEnvInt("WAL_CHECKPOINT_EVERY", 1000),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 7*24*time.Hour),

		QueuePacing:     strings.ToLower(getEnv("QUEUE_PACING", PacingFixed)),
		QueueDelay:      getEnvDuration("QUEUE_DELAY", 100*time.Millisecond),
		QueueRate:       getEnvFloat("QUEUE_RATE", 10),
		QueueBurst:      getEnvInt("QUEUE_BURST", 1),
		DeadLetterLimit: getEnvInt("DEAD_LETTER_LIMIT", 100),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		DeadLetterKey: getEnv("DEAD_LETTER_KEY", "cinestack:dead-letters"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDev reports whether the process runs in development mode
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendFile, BackendWAL, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.QueuePacing {
	case PacingFixed:
		if c.QueueDelay <= 0 {
			return fmt.Errorf("QUEUE_DELAY must be positive, got %s", c.QueueDelay)
		}
	case PacingTokenBucket:
		if c.QueueRate <= 0 {
			return fmt.Errorf("QUEUE_RATE must be positive, got %v", c.QueueRate)
		}
	case PacingNone:
	default:
		return fmt.Errorf("unknown QUEUE_PACING %q", c.QueuePacing)
	}

	if c.JWTSecret == "" {
		if !c.IsDev() {
			return fmt.Errorf("JWT_SECRET is required")
		}
		c.JWTSecret = "dev-secret-change-me"
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
