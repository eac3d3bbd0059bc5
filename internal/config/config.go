package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Registry API
	OSSBaseURL       string
	OSSPublicBaseURL string
	OSSAtomBaseURL   string
	RequestTimeout   time.Duration
	RateLimitEvery   time.Duration
	MaxRetries       int

	// GIS cache
	CacheDir        string
	DownloadTimeout time.Duration

	// Batch
	BatchContinueOnError bool
	BatchWarmWorkers     int

	// Mock registry server
	MockListenAddr string
	MockDataDir    string

	// MCP server
	MCPServerName    string
	MCPServerVersion string
}

func Load() (*Config, error) {
	// Load .env when present
	_ = godotenv.Load()

	cfg := &Config{
		OSSBaseURL:       getEnv("OSS_BASE_URL", "http://localhost:8000"),
		OSSPublicBaseURL: getEnv("OSS_PUBLIC_BASE_URL", "https://oss.uredjenazemlja.hr"),
		OSSAtomBaseURL:   getEnv("OSS_ATOM_BASE_URL", "https://oss.uredjenazemlja.hr/oss/public/atom"),
		RequestTimeout:   getEnvAsDuration("OSS_TIMEOUT", 10*time.Second),
		RateLimitEvery:   getEnvAsDuration("OSS_RATE_LIMIT_INTERVAL", 750*time.Millisecond),
		MaxRetries:       getEnvAsInt("OSS_MAX_RETRIES", 3),

		CacheDir:        getEnv("GIS_CACHE_DIR", defaultCacheDir()),
		DownloadTimeout: getEnvAsDuration("GIS_DOWNLOAD_TIMEOUT", 2*time.Minute),

		BatchContinueOnError: getEnvAsBool("BATCH_CONTINUE_ON_ERROR", true),
		BatchWarmWorkers:     getEnvAsInt("BATCH_WARM_WORKERS", 4),

		MockListenAddr: getEnv("MOCK_LISTEN_ADDR", ":8000"),
		MockDataDir:    getEnv("MOCK_DATA_DIR", "./data"),

		MCPServerName:    getEnv("MCP_SERVER_NAME", "katastar-mcp"),
		MCPServerVersion: getEnv("MCP_SERVER_VERSION", "1.0.0"),
	}

	return cfg, nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".katastar-cache"
	}
	return filepath.Join(home, ".katastar-cache")
}

// Env var helpers
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
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
