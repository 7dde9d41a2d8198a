package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	MetricsAddr string
	Storage     string
	DatabaseURL string
	// Provider
	Provider        string
	ProviderBaseURL string
	ProviderAPIKey  string
	CallTimeout     time.Duration
	// Ingestion
	ProbeDelay          time.Duration
	ProbeIndexMarkers   []string
	ProbeDefaultSymbol  string
	BackfillWindows     []int
	BackfillConcurrency int
	// Worker
	WorkerPoll        time.Duration
	WorkerBatchSize   int
	WorkerConcurrency int
	// Redis (idempotency)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func msDef(key string, def int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, ""), def)) * time.Millisecond
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ints drops entries that do not parse.
func ints(s string) []int {
	var out []int
	for _, p := range splitList(s) {
		if i, err := strconv.Atoi(p); err == nil {
			out = append(out, i)
		}
	}
	return out
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                 getEnv("ENV", "local"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnv("PORT", "8080"),
		MetricsAddr:         getEnv("METRICS_ADDR", ":9091"),
		Storage:             getEnv("STORAGE", "pg"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		Provider:            getEnv("PROVIDER", "http"),
		ProviderBaseURL:     getEnv("PROVIDER_BASE_URL", "http://localhost:9000"),
		ProviderAPIKey:      getEnv("PROVIDER_API_KEY", ""),
		CallTimeout:         msDef("PROVIDER_CALL_TIMEOUT_MS", 10000),
		ProbeDelay:          msDef("PROBE_DELAY_MS", 1000),
		ProbeIndexMarkers:   splitList(getEnv("PROBE_INDEX_MARKERS", "^")),
		ProbeDefaultSymbol:  getEnv("PROBE_DEFAULT_SYMBOL", "^GSPC"),
		BackfillWindows:     ints(getEnv("BACKFILL_WINDOWS_DAYS", "30,90,180,365")),
		BackfillConcurrency: atoiDef(getEnv("BACKFILL_CONCURRENCY", "4"), 4),
		WorkerPoll:          msDef("WORKER_POLL_MS", 250),
		WorkerBatchSize:     atoiDef(getEnv("WORKER_BATCH_LIMIT", "10"), 10),
		WorkerConcurrency:   atoiDef(getEnv("WORKER_CONCURRENCY", "2"), 2),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:            msDef("IDEMPOTENCY_TTL_MS", 86400000),
	}
}
