// Package config sources runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for the throughput knobs. Batch size bounds concurrent lookups
// within a batch; the inter-batch delay throttles aggregate request rate
// against the directory service.
const (
	DefaultCoreAPIURL      = "https://core.blockstack.org"
	DefaultBatchSize       = 50
	DefaultProfileCacheTTL = 24 * time.Hour
)

// Config carries every knob the pipeline needs, threaded explicitly into
// constructors rather than read from globals.
type Config struct {
	// CoreAPIURL is the base URL of the directory and lookup service.
	CoreAPIURL string
	// DatabaseURL is the PostgreSQL connection URL for the document store.
	DatabaseURL string
	// RedisURL enables the profile lookup cache when non-empty.
	RedisURL string
	// MetricsAddr enables the ops HTTP server when non-empty.
	MetricsAddr string
	// DumpDir is where dump/replay files live unless overridden per run.
	DumpDir string
	// BatchSize is the number of concurrent profile lookups per batch.
	BatchSize int
	// PageCap limits enumeration pages per listing; negative fetches
	// everything, zero fetches nothing (useful for partial test runs).
	PageCap int
	// InterBatchDelay is the pause between resolution batches.
	InterBatchDelay time.Duration
	// RequestsPerSecond rate-limits outbound directory requests; zero
	// disables the limiter.
	RequestsPerSecond float64
	// ProfileCacheTTL bounds how long cached profiles are reused.
	ProfileCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables. Unset or unparsable
// values fall back to the defaults above.
func FromEnv() Config {
	return Config{
		CoreAPIURL:        getenv("SEARCH_CORE_API_URL", DefaultCoreAPIURL),
		DatabaseURL:       os.Getenv("SEARCH_DATABASE_URL"),
		RedisURL:          os.Getenv("SEARCH_REDIS_URL"),
		MetricsAddr:       os.Getenv("SEARCH_METRICS_ADDR"),
		DumpDir:           getenv("SEARCH_DUMP_DIR", "/var/tmp/search-indexer"),
		BatchSize:         getint("SEARCH_BATCH_SIZE", DefaultBatchSize),
		PageCap:           getint("SEARCH_PAGE_CAP", -1),
		InterBatchDelay:   getduration("SEARCH_BATCH_DELAY", 0),
		RequestsPerSecond: getfloat("SEARCH_REQUESTS_PER_SECOND", 0),
		ProfileCacheTTL:   getduration("SEARCH_PROFILE_CACHE_TTL", DefaultProfileCacheTTL),
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getint(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getfloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getduration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
