package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port        string
	Env         string   // development, staging, production
	CORSOrigins []string // empty = CORS off

	// Brokerage
	IBKR IBKRConfig

	// Stock data cache
	Cache CacheConfig

	// Ranking run history (optional)
	Database DatabaseConfig

	// Redis (optional cache backend)
	Redis RedisConfig

	// Strategy
	StrategyPath string // YAML with ranker bindings and manual overrides
	Schedule     string // cron spec for the scheduler (with seconds)

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   LogFileConfig

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// IBKRConfig holds Interactive Brokers Client Portal gateway configuration
type IBKRConfig struct {
	BaseURL           string
	AccountID         string
	InsecureTLS       bool // gateway ships a self-signed certificate
	RequestsPerSecond int
	Timeout           time.Duration
}

// CacheConfig holds the stock data cache configuration
type CacheConfig struct {
	Enabled bool
	Backend string // file, redis
	Path    string
	MaxAge  time.Duration
}

// LogFileConfig holds rotating log file configuration
type LogFileConfig struct {
	Dir           string // empty = file logging off
	RotationSize  int    // MB
	RetentionDays int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	QueryLog bool // trace every query at debug level
}

// Enabled reports whether run history persistence is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		IBKR: IBKRConfig{
			BaseURL:           getEnv("IBKR_BASE_URL", "https://localhost:5000/v1/api"),
			AccountID:         getEnv("IBKR_ACCOUNT_ID", ""),
			InsecureTLS:       getEnvAsBool("IBKR_INSECURE_TLS", true),
			RequestsPerSecond: getEnvAsInt("IBKR_REQUESTS_PER_SECOND", 10),
			Timeout:           getEnvAsDuration("IBKR_TIMEOUT", "30s"),
		},

		Cache: CacheConfig{
			Enabled: getEnvAsBool("CACHE_ENABLED", true),
			Backend: getEnv("CACHE_BACKEND", "file"),
			Path:    getEnv("CACHE_PATH", filepath.Join(os.TempDir(), "stockrank-cache.json")),
			MaxAge:  getEnvAsDuration("CACHE_MAX_AGE", "24h"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
			QueryLog:        getEnvAsBool("DB_QUERY_LOG", false),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		StrategyPath: getEnv("STRATEGY_PATH", ""),
		Schedule:     getEnv("RANKING_SCHEDULE", "0 30 22 * * 1-5"), // 미국장 마감 후

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		LogFile: LogFileConfig{
			Dir:           getEnv("LOG_FILE_DIR", ""),
			RotationSize:  getEnvAsInt("LOG_ROTATION_SIZE_MB", 50),
			RetentionDays: getEnvAsInt("LOG_RETENTION_DAYS", 14),
		},

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", false),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Cache.Backend != "file" && c.Cache.Backend != "redis" {
		return fmt.Errorf("CACHE_BACKEND must be one of: file, redis")
	}

	if c.Cache.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ENABLED=true")
	}

	if c.IBKR.RequestsPerSecond <= 0 {
		return fmt.Errorf("IBKR_REQUESTS_PER_SECOND must be > 0")
	}

	return nil
}

// RequireAccount fails when no brokerage account is configured
func (c *Config) RequireAccount() error {
	if c.IBKR.AccountID == "" {
		return fmt.Errorf("IBKR_ACCOUNT_ID is required")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "stockrank", ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
