package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port           string
	MaxUploadBytes int64

	// Blob storage
	DataBackend        string
	DataDirectory      string
	SQLiteDBPath       string
	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsJSON string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Campaign
	CampaignConfigPath string

	// Report cache
	ReportCacheTTL  time.Duration
	ReportCacheSize int

	// Observability
	LogLevel          string
	LogFormat         string
	TelemetryExporter string
	TelemetryInterval time.Duration
}

var (
	validBackends  = []string{"memory", "sqlite", "gcs"}
	validLevels    = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json"}
	validExporters = []string{"none", "stdout"}
)

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),

		DataBackend:        getEnv("DATA_BACKEND", "memory"),
		DataDirectory:      getEnv("DATA_DIRECTORY", ""),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/campanha.db"),
		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSPrefix:          getEnv("GCS_PREFIX", ""),
		GCSCredentialsJSON: getEnv("GCS_CREDENTIALS_JSON", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "campanha"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_exports"),

		CampaignConfigPath: getEnv("CAMPAIGN_CONFIG", ""),

		ReportCacheTTL:  getEnvDuration("REPORT_CACHE_TTL", 30*time.Second),
		ReportCacheSize: getEnvInt("REPORT_CACHE_SIZE", 64),

		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		TelemetryExporter: strings.ToLower(getEnv("TELEMETRY_EXPORTER", "none")),
		TelemetryInterval: getEnvDuration("TELEMETRY_INTERVAL", time.Minute),
	}
}

// AMQPEnabled reports whether publish events should be sent.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate returns an error listing every configuration problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload bytes %d: must be at least 1024", c.MaxUploadBytes))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "gcs":
		if c.GCSBucket == "" {
			errors = append(errors, "GCS bucket is required when using gcs backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CampaignConfigPath != "" {
		if _, err := os.Stat(c.CampaignConfigPath); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("campaign config file does not exist: %s", c.CampaignConfigPath))
		}
	}

	if c.ReportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must not be negative", c.ReportCacheTTL))
	}
	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}

	if !slices.Contains(validLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	if !slices.Contains(validFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}
	if !slices.Contains(validExporters, c.TelemetryExporter) {
		errors = append(errors, fmt.Sprintf("invalid telemetry exporter '%s': must be one of %v", c.TelemetryExporter, validExporters))
	}
	if c.TelemetryExporter != "none" && c.TelemetryInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid telemetry interval %v: must be at least 1 second", c.TelemetryInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
