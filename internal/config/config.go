package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted for COMPS_SNAPSHOT_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendCSV      = "csv"
	BackendJSON     = "json"
)

// Config carries process-level settings for the resale value estimator.
type Config struct {
	// MaxResults caps accepted prices per query.
	MaxResults int
	// Concurrency is the batch parallelism; 1 evaluates queries sequentially.
	Concurrency int
	// BaseURL is the marketplace search endpoint.
	BaseURL string
	// HTTPTimeout bounds each page fetch.
	HTTPTimeout time.Duration
	// MaxRedirects caps redirect following; negative disables it.
	MaxRedirects int
	// RequestsPerSecond paces fetches; 0 disables pacing.
	RequestsPerSecond float64
	// RateJitter stretches the pacing interval by up to this factor (0..1).
	RateJitter float64
	// RespectRobots gates search fetches on the host's robots.txt.
	RespectRobots bool
	// SaveSnapshots archives every fetched page to the snapshot backend.
	SaveSnapshots bool
	// SnapshotBackend selects the snapshot store: sqlite, postgres, csv, json.
	SnapshotBackend string
	// SnapshotDSN is the backend DSN or file path.
	SnapshotDSN string
	// MetricsPort exposes /metrics when non-zero.
	MetricsPort int
	// LogLevel is the slog level for the pipeline logger.
	LogLevel slog.Level
}

// Load reads an optional .env file and then the environment. Validation
// failures are returned, never logged-and-ignored.
func Load() (*Config, error) {
	// A missing .env is fine; deployments usually set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:         getEnvString("COMPS_BASE_URL", "https://www.ebay.com/sch/i.html"),
		SnapshotBackend: getEnvString("COMPS_SNAPSHOT_BACKEND", BackendSQLite),
		SnapshotDSN:     getEnvString("COMPS_SNAPSHOT_DSN", "comps_snapshots.db"),
	}

	var err error
	if cfg.MaxResults, err = getEnvInt("COMPS_MAX_RESULTS", 5); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = getEnvInt("COMPS_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	timeoutSeconds, err := getEnvInt("COMPS_HTTP_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second
	if cfg.MaxRedirects, err = getEnvInt("COMPS_MAX_REDIRECTS", 5); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = getEnvFloat("COMPS_REQUESTS_PER_SECOND", 0); err != nil {
		return nil, err
	}
	if cfg.RateJitter, err = getEnvFloat("COMPS_RATE_JITTER", 0.3); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = getEnvBool("COMPS_RESPECT_ROBOTS", false); err != nil {
		return nil, err
	}
	if cfg.SaveSnapshots, err = getEnvBool("COMPS_SAVE_SNAPSHOTS", false); err != nil {
		return nil, err
	}
	if cfg.MetricsPort, err = getEnvInt("COMPS_METRICS_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLogLevel(getEnvString("COMPS_LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("COMPS_MAX_RESULTS must be positive, got %d", c.MaxResults)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("COMPS_CONCURRENCY must be positive, got %d", c.Concurrency)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("COMPS_HTTP_TIMEOUT_SECONDS must be positive, got %s", c.HTTPTimeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("COMPS_REQUESTS_PER_SECOND must not be negative, got %g", c.RequestsPerSecond)
	}
	if c.RateJitter < 0 || c.RateJitter > 1 {
		return fmt.Errorf("COMPS_RATE_JITTER must be between 0 and 1, got %g", c.RateJitter)
	}
	switch c.SnapshotBackend {
	case BackendSQLite, BackendPostgres, BackendCSV, BackendJSON:
	default:
		return fmt.Errorf("COMPS_SNAPSHOT_BACKEND must be one of sqlite, postgres, csv, json; got %q", c.SnapshotBackend)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("COMPS_METRICS_PORT must be a valid port, got %d", c.MetricsPort)
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("COMPS_LOG_LEVEL: unknown level %q", s)
}
