package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	StoragePath    string
	StorageBaseURL string
	GeoIPDBPath    string
	DefaultLocale  string
	AllowedOrigins []string

	PexelsAPIKey     string
	PexelsBaseURL    string
	OpenverseBaseURL string

	GenAPIKey  string
	GenBaseURL string
	GenModel   string

	DownloadAllowedHosts []string
	DownloadMaxBytes     int64
	DownloadTimeout      time.Duration

	QueueMinSpacing     time.Duration
	QueueBackoffInitial time.Duration
	QueueMaxRetries     int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "en"),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		PexelsAPIKey:     os.Getenv("PEXELS_API_KEY"),
		PexelsBaseURL:    getEnv("PEXELS_BASE_URL", "https://api.pexels.com/v1"),
		OpenverseBaseURL: getEnv("OPENVERSE_BASE_URL", "https://api.openverse.org/v1"),

		GenAPIKey:  os.Getenv("GEN_API_KEY"),
		GenBaseURL: getEnv("GEN_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GenModel:   getEnv("GEN_MODEL", "gemini-2.5-flash"),

		DownloadAllowedHosts: getEnvList("DOWNLOAD_HOST_ALLOWLIST"),
		DownloadMaxBytes:     int64(getEnvInt("DOWNLOAD_MAX_MEGABYTES", 64)) << 20,
		DownloadTimeout:      time.Second * time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 60)),

		QueueMinSpacing:     time.Second * time.Duration(getEnvInt("QUEUE_MIN_SPACING_SECONDS", 2)),
		QueueBackoffInitial: time.Second * time.Duration(getEnvInt("QUEUE_BACKOFF_INITIAL_SECONDS", 5)),
		QueueMaxRetries:     getEnvInt("QUEUE_MAX_RETRIES", 3),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
