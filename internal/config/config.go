// Package config loads runtime settings from the environment (optionally
// seeded from a .env file) and holds the chat constants.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting the server and the admin CLI need.
type Config struct {
	HTTPAddr  string
	APIPrefix string

	DBDriver    string
	DatabaseDSN string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SecretKey      string
	AccessTokenTTL time.Duration

	// SecretKeyGenerated is set when SECRET_KEY was empty and a random key
	// was made up for this process.
	SecretKeyGenerated bool

	LogLevel        slog.Level
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		APIPrefix:     getEnv("API_PREFIX", "/api/v1"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		SQLitePath:    getEnv("SQLITE_PATH", "roomchat.db"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	minutes, err := getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", int(DefaultAccessTokenTTL/time.Minute))
	if err != nil {
		return nil, err
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", minutes)
	}
	cfg.AccessTokenTTL = time.Duration(minutes) * time.Minute

	seconds, err := getEnvInt("SHUTDOWN_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}
	cfg.ShutdownTimeout = time.Duration(seconds) * time.Second

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DatabaseDSN, err = postgresDSN(); err != nil {
			return nil, err
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.SecretKey == "" {
		// Tokens issued with a random key do not survive a restart.
		if cfg.SecretKey, err = randomSecret(); err != nil {
			return nil, err
		}
		cfg.SecretKeyGenerated = true
	}

	return cfg, nil
}

// NewLogger builds the structured logger described by the config.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// postgresDSN prefers DATABASE_URL and falls back to the DB_* variables.
func postgresDSN() (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		dsn, err := pq.ParseURL(url)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		return dsn, nil
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "user"),
		getEnv("DB_PASSWORD", "password"),
		getEnv("DB_NAME", "roomchat"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	), nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
