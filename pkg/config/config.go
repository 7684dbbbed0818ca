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
	Port string
	Env  string // development, staging, production

	// Database (cache backend = postgres 일 때만 필수)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Local bar cache
	Cache CacheConfig

	// Market data providers
	Providers ProvidersConfig

	// Scanner
	Scan ScanConfig

	// Strategy YAML (universe / presets / schedule)
	StrategyPath string

	// Logging
	LogLevel  string
	LogFormat string
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
}

// CacheConfig holds the price cache configuration
type CacheConfig struct {
	Backend       string // sqlite, postgres
	SQLitePath    string
	RetentionDays int
	InitialDays   int // 최초 적재 기간
}

// ProvidersConfig holds market data source configuration
type ProvidersConfig struct {
	VCIBaseURL   string
	YahooBaseURL string
	CafeFBaseURL string
	DemoFallback bool

	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	RatePerSec   float64
}

// ScanConfig holds market scanner configuration
type ScanConfig struct {
	Workers    int
	RatePerSec float64
	MaxSymbols int
	MinBars    int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("CACHE_BACKEND", "sqlite")),
			SQLitePath:    getEnv("CACHE_SQLITE_PATH", "data/stock_cache.db"),
			RetentionDays: getEnvAsInt("CACHE_RETENTION_DAYS", 1095),
			InitialDays:   getEnvAsInt("CACHE_INITIAL_DAYS", 730),
		},

		Providers: ProvidersConfig{
			VCIBaseURL:   getEnv("VCI_BASE_URL", "https://trading.vietcap.com.vn/api"),
			YahooBaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			CafeFBaseURL: getEnv("CAFEF_BASE_URL", "https://s.cafef.vn"),
			DemoFallback: getEnvAsBool("PROVIDER_DEMO_FALLBACK", true),
			Timeout:      getEnvAsDuration("PROVIDER_TIMEOUT", "30s"),
			MaxRetries:   getEnvAsInt("PROVIDER_MAX_RETRIES", 3),
			InitialDelay: getEnvAsDuration("PROVIDER_RETRY_DELAY", "1s"),
			MaxDelay:     getEnvAsDuration("PROVIDER_RETRY_MAX_DELAY", "10s"),
			RatePerSec:   getEnvAsFloat("PROVIDER_RATE_PER_SEC", 5),
		},

		Scan: ScanConfig{
			Workers:    getEnvAsInt("SCAN_WORKERS", 8),
			RatePerSec: getEnvAsFloat("SCAN_RATE_PER_SEC", 10),
			MaxSymbols: getEnvAsInt("SCAN_MAX_SYMBOLS", 50),
			MinBars:    getEnvAsInt("SCAN_MIN_BARS", 20),
		},

		StrategyPath: getEnv("STRATEGY_PATH", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Cache.Backend {
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("CACHE_SQLITE_PATH is required for sqlite backend")
		}
	case "postgres":
		// postgres 캐시는 DATABASE_URL 필수
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres backend")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: sqlite, postgres")
	}

	if c.Scan.Workers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be >= 1")
	}
	if c.Cache.RetentionDays < 1 {
		return fmt.Errorf("CACHE_RETENTION_DAYS must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
