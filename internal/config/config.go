package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // EXPORT_TIMEZONE must resolve in images without zoneinfo
)

type Config struct {
	// HTTP Server
	Port string
	// GRPCAddr serves the gRPC health service when non-empty (e.g. ":9090").
	GRPCAddr string

	// Backend selection: memory, sqlite or postgres
	DataBackend    string
	SQLiteDBPath   string
	PostgresDSN    string
	MemorySeedFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Authentication: static or google
	AuthMode                string
	GoogleOAuthClientID     string
	GoogleOAuthClientSecret string
	GoogleOAuthRedirectURL  string
	SessionEncryptionKey    string
	SessionSigningKey       string
	SessionTTL              time.Duration
	SessionCacheSize        int

	// Export and mirrors
	ExportLocale        string
	ExportTimezone      string
	ExportDir           string
	GoogleSpreadsheetID string
	GoogleSheetName     string
	ElasticsearchURL    string
	ElasticsearchIndex  string
	ResyncInterval      time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		GRPCAddr: getEnv("GRPC_ADDR", ""),

		DataBackend:    getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/budget.db"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_transactions"),

		AuthMode:                getEnv("AUTH_MODE", "static"),
		GoogleOAuthClientID:     getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
		GoogleOAuthClientSecret: getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		GoogleOAuthRedirectURL:  getEnv("GOOGLE_OAUTH_REDIRECT_URL", ""),
		SessionEncryptionKey:    getEnv("SESSION_ENCRYPTION_KEY", ""),
		SessionSigningKey:       getEnv("SESSION_SIGNING_KEY", ""),
		SessionTTL:              getEnvDuration("SESSION_TTL", 12*time.Hour),
		SessionCacheSize:        getEnvInt("SESSION_CACHE_SIZE", 1000),

		ExportLocale:        getEnv("EXPORT_LOCALE", "vi-VN"),
		ExportTimezone:      getEnv("EXPORT_TIMEZONE", "Asia/Ho_Chi_Minh"),
		ExportDir:           getEnv("EXPORT_DIR", ""),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		ElasticsearchURL:    getEnv("ELASTICSEARCH_URL", ""),
		ElasticsearchIndex:  getEnv("ELASTICSEARCH_INDEX", "budget-transactions"),
		ResyncInterval:      getEnvDuration("MIRROR_RESYNC_INTERVAL", 15*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite", "postgres"}
	if !contains(validBackends, c.DataBackend) {
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
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
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

	switch c.AuthMode {
	case "static":
	case "google":
		if c.GoogleOAuthClientID == "" || c.GoogleOAuthClientSecret == "" {
			errors = append(errors, "GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET are required when AUTH_MODE is google")
		}
		if c.GoogleOAuthRedirectURL == "" {
			errors = append(errors, "GOOGLE_OAUTH_REDIRECT_URL is required when AUTH_MODE is google")
		}
		if c.SessionEncryptionKey == "" || c.SessionSigningKey == "" {
			errors = append(errors, "SESSION_ENCRYPTION_KEY and SESSION_SIGNING_KEY are required when AUTH_MODE is google")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid auth mode '%s': must be 'static' or 'google'", c.AuthMode))
	}

	for _, k := range []struct{ name, value string }{
		{"SESSION_ENCRYPTION_KEY", c.SessionEncryptionKey},
		{"SESSION_SIGNING_KEY", c.SessionSigningKey},
	} {
		if k.value != "" && len(k.value) < 32 {
			errors = append(errors, fmt.Sprintf("%s must be at least 32 characters", k.name))
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}
	if c.SessionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}

	if c.ElasticsearchURL != "" {
		if u, err := url.Parse(c.ElasticsearchURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid Elasticsearch URL '%s': must be http or https", c.ElasticsearchURL))
		}
	}

	if _, err := time.LoadLocation(c.ExportTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid export timezone '%s': %v", c.ExportTimezone, err))
	}

	if c.ResyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid resync interval %v: must be at least 1 second", c.ResyncInterval))
	} else if c.ResyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid resync interval %v: must be at most 24 hours", c.ResyncInterval))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ExportLocation is the zone export dates are written in. Validate has
// already rejected unknown zones; an empty zone is UTC.
func (c *Config) ExportLocation() *time.Location {
	loc, err := time.LoadLocation(c.ExportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MirrorsConfigured reports whether the worker has any sink to write to.
func (c *Config) MirrorsConfigured() bool {
	return c.GoogleSpreadsheetID != "" || c.ElasticsearchURL != "" || c.ExportDir != ""
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
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
