package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds every runtime setting of the API process.
type Config struct {
	Port          string
	DatabaseURL   string
	StorageDriver string

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL string
	CacheTTL time.Duration

	LogLevel  string
	LogFormat string

	RateLimitRPS   int
	RateLimitBurst int

	SESFromEmail string
	AWSRegion    string

	TempDir         string
	TempFileMaxAge  time.Duration
	ReminderDays    int
	CronExpiry      string
	CronReminder    string
	CronTempCleanup string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getenv("APP_PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StorageDriver:   getenv("STORAGE_DRIVER", StoragePostgres),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisURL:        os.Getenv("REDIS_URL"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		SESFromEmail:    os.Getenv("SES_FROM_EMAIL"),
		AWSRegion:       os.Getenv("AWS_REGION"),
		TempDir:         getenv("TEMP_DIR", filepath.Join(os.TempDir(), "shopdesk")),
		CronExpiry:      getenv("CRON_EXPIRY", "0 1 * * *"),
		CronReminder:    getenv("CRON_REMINDER", "0 9 * * *"),
		CronTempCleanup: getenv("CRON_CLEANUP", "@every 1h"),
	}

	var err error
	if cfg.JWTTTL, err = durationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TempFileMaxAge, err = durationEnv("TEMP_FILE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = intEnv("RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 40); err != nil {
		return nil, err
	}
	if cfg.ReminderDays, err = intEnv("REMINDER_DAYS", 3); err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required for the postgres storage driver")
		}
	case StorageMemory:
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = "dev-secret"
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
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
