// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Expense ceiling policies of the fallback ranking
const (
	ExpensePolicyReward = "reward"
	ExpensePolicyFilter = "filter"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory holding funds.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool
	Feed     FeedConfig
	Oracle   OracleConfig
	Refresh  RefreshConfig
	Metrics  MetricsConfig
	Ranking  RecommendationConfig
}

// FeedConfig configures the daily NAV feed pull
type FeedConfig struct {
	URL     string
	Timeout time.Duration
}

// OracleConfig configures the external scoring service
type OracleConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RefreshConfig configures the daily refresh timer
type RefreshConfig struct {
	Time     string // HH:MM wall-clock
	Timezone string // IANA zone name
	Enabled  bool
}

// MetricsConfig bounds the metrics engine
type MetricsConfig struct {
	BatchSize   int
	Concurrency int
}

// RecommendationConfig controls ranking output
type RecommendationConfig struct {
	ExpensePolicy string
	TopK          int
	UniverseLimit int
	HistoryLimit  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("FUNDS_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  dataDir,
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Feed: FeedConfig{
			URL:     getEnv("FEED_URL", "https://www.amfiindia.com/spages/NAVAll.txt"),
			Timeout: getEnvAsDuration("FEED_TIMEOUT", 60*time.Second),
		},
		Oracle: OracleConfig{
			BaseURL: getEnv("ORACLE_URL", "http://localhost:8000"),
			Timeout: getEnvAsDuration("ORACLE_TIMEOUT", 30*time.Second),
		},
		Refresh: RefreshConfig{
			Time:     getEnv("REFRESH_TIME", "13:00"),
			Timezone: getEnv("REFRESH_TIMEZONE", "UTC"),
			Enabled:  getEnvAsBool("REFRESH_ENABLED", true),
		},
		Metrics: MetricsConfig{
			BatchSize:   getEnvAsInt("METRICS_BATCH_SIZE", 100),
			Concurrency: getEnvAsInt("METRICS_CONCURRENCY", 4),
		},
		Ranking: RecommendationConfig{
			ExpensePolicy: getEnv("RECOMMENDATION_EXPENSE_POLICY", ExpensePolicyReward),
			TopK:          getEnvAsInt("RECOMMENDATION_TOP_K", 10),
			UniverseLimit: getEnvAsInt("RECOMMENDATION_UNIVERSE_LIMIT", 500),
			HistoryLimit:  getEnvAsInt("RECOMMENDATION_HISTORY_LIMIT", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("FEED_URL must not be empty")
	}
	if c.Oracle.BaseURL == "" {
		return fmt.Errorf("ORACLE_URL must not be empty")
	}
	if c.Feed.Timeout <= 0 || c.Oracle.Timeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if _, _, err := c.Refresh.Clock(); err != nil {
		return err
	}
	if _, err := c.Refresh.Location(); err != nil {
		return err
	}
	if c.Metrics.BatchSize <= 0 || c.Metrics.Concurrency <= 0 {
		return fmt.Errorf("metrics batch size and concurrency must be positive")
	}
	if c.Ranking.TopK <= 0 || c.Ranking.UniverseLimit <= 0 || c.Ranking.HistoryLimit <= 0 {
		return fmt.Errorf("recommendation limits must be positive")
	}
	switch c.Ranking.ExpensePolicy {
	case ExpensePolicyReward, ExpensePolicyFilter:
	default:
		return fmt.Errorf("RECOMMENDATION_EXPENSE_POLICY must be %q or %q, got %q",
			ExpensePolicyReward, ExpensePolicyFilter, c.Ranking.ExpensePolicy)
	}
	return nil
}

// DatabasePath returns the location of the SQLite database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "funds.db")
}

// Clock parses Time into hour and minute
func (r RefreshConfig) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", r.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("REFRESH_TIME must be HH:MM, got %q", r.Time)
	}
	return t.Hour(), t.Minute(), nil
}

// Location resolves Timezone
func (r RefreshConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TIMEZONE %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// CronSpec renders the daily schedule as a five-field cron expression
func (r RefreshConfig) CronSpec() (string, error) {
	hour, minute, err := r.Clock()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
