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

	// Timezone used to derive the trading day (funds are priced on UTC+8)
	Timezone string

	// Document store
	Store StoreConfig

	// Database (STORE_BACKEND=postgres)
	Database DatabaseConfig

	// Redis (STORE_BACKEND=redis, official cache, rate limit)
	Redis RedisConfig

	// Outbound HTTP
	HTTP HTTPConfig

	// External sources
	Quote    QuoteConfig
	Official OfficialConfig

	// Live monitor
	Monitor MonitorConfig

	// Cron expressions (with seconds)
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// StoreConfig selects the durable document store
type StoreConfig struct {
	Backend string // file, postgres, redis, memory
	Dir     string // STORE_BACKEND=file
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

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// HTTPConfig holds defaults for the shared HTTP client
type HTTPConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
}

// QuoteConfig holds the realtime quote feed (qt.gtimg.cn) configuration
type QuoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OfficialConfig holds official NAV source configuration
type OfficialConfig struct {
	FundAPIBaseURL   string
	EastmoneyBaseURL string
	Timeout          time.Duration
	RatePerSecond    float64
	CacheTTL         time.Duration

	// Codes maps fund display name to official 6-digit code.
	// Used when the fund document has no official_code.
	Codes map[string]string
}

// MonitorConfig holds live monitor configuration
type MonitorConfig struct {
	Interval      time.Duration
	RetryInterval time.Duration
	Indices       []IndexConfig
}

// IndexConfig is a market index shown on the live board
type IndexConfig struct {
	Code string
	Name string
}

// ScheduleConfig holds cron expressions for the operator actions
type ScheduleConfig struct {
	Snapshot string
	Audit    string
}

const defaultIndices = "sh000001=上证指数;sz399006=创业板指;hkHSTECH=恒生科技"

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	indices, err := parseIndices(getEnv("MARKET_INDICES", defaultIndices))
	if err != nil {
		return nil, fmt.Errorf("MARKET_INDICES: %w", err)
	}

	codes, err := parsePairs(getEnv("OFFICIAL_CODES", ""))
	if err != nil {
		return nil, fmt.Errorf("OFFICIAL_CODES: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8089"),
		Env:      getEnv("ENV", "development"),
		Timezone: getEnv("TIMEZONE", "Asia/Shanghai"),

		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", "file")),
			Dir:     getEnv("STORE_DIR", "data"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "hawkeye"),
		},

		HTTP: HTTPConfig{
			Timeout:    getEnvAsDuration("HTTP_TIMEOUT", "10s"),
			MaxRetries: getEnvAsInt("HTTP_MAX_RETRIES", 2),
			RetryDelay: getEnvAsDuration("HTTP_RETRY_DELAY", "500ms"),
			UserAgent:  getEnv("HTTP_USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"),
		},

		Quote: QuoteConfig{
			BaseURL: getEnv("QUOTE_BASE_URL", "http://qt.gtimg.cn"),
			Timeout: getEnvAsDuration("QUOTE_TIMEOUT", "3s"),
		},

		Official: OfficialConfig{
			FundAPIBaseURL:   getEnv("FUNDAPI_BASE_URL", "https://api.doctorxiong.club"),
			EastmoneyBaseURL: getEnv("EASTMONEY_BASE_URL", "https://fundf10.eastmoney.com"),
			Timeout:          getEnvAsDuration("OFFICIAL_TIMEOUT", "5s"),
			RatePerSecond:    getEnvAsFloat("OFFICIAL_RATE_PER_SEC", 2),
			CacheTTL:         getEnvAsDuration("OFFICIAL_CACHE_TTL", "10m"),
			Codes:            codes,
		},

		Monitor: MonitorConfig{
			Interval:      getEnvAsDuration("MONITOR_INTERVAL", "30s"),
			RetryInterval: getEnvAsDuration("MONITOR_RETRY_INTERVAL", "2s"),
			Indices:       indices,
		},

		Schedule: ScheduleConfig{
			Snapshot: getEnv("SNAPSHOT_SCHEDULE", "0 5 15 * * 1-5"),
			Audit:    getEnv("AUDIT_SCHEDULE", "0 30 22 * * *"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Location returns the trading-day timezone. Falls back to a fixed UTC+8 zone
// when the tz database is unavailable.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("UTC+8", 8*60*60)
	}
	return loc
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Store.Backend {
	case "file":
		if c.Store.Dir == "" {
			return fmt.Errorf("STORE_DIR is required for file store")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres store")
		}
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("REDIS_ENABLED must be true for redis store")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: file, postgres, redis, memory")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}

	if c.Monitor.Interval <= 0 || c.Monitor.RetryInterval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL and MONITOR_RETRY_INTERVAL must be positive")
	}

	if c.Official.RatePerSecond <= 0 {
		return fmt.Errorf("OFFICIAL_RATE_PER_SEC must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

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

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// parsePairs parses "key=value;key=value" into a map
func parsePairs(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("invalid pair %q", part)
		}
		out[k] = v
	}
	return out, nil
}

// parseIndices keeps declaration order, unlike parsePairs
func parseIndices(s string) ([]IndexConfig, error) {
	var out []IndexConfig
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, name, ok := strings.Cut(part, "=")
		code, name = strings.TrimSpace(code), strings.TrimSpace(name)
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid index %q", part)
		}
		if name == "" {
			name = code
		}
		out = append(out, IndexConfig{Code: code, Name: name})
	}
	return out, nil
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
