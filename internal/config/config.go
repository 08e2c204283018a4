package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	validBackends         = []string{"memory", "sqlite"}
	validAnalysisBackends = []string{"mock", "gemini"}
	validLogLevels        = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// DevOwnerID is used for requests without X-Owner-ID. Empty means such
	// requests are rejected.
	DevOwnerID string
	// TrustedProxies are CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// Transaction list cache
	CacheMaxOwners int
	CacheTTL       time.Duration

	// AMQP, disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets month reports
	GoogleSpreadsheetID string
	ReportSheetName     string

	// Worker
	ReportConcurrency     int
	ReportRefreshInterval time.Duration

	// Conversation analysis
	AnalysisBackend string
	GeminiModel     string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		DevOwnerID:         getEnv("DEV_OWNER_ID", ""),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/salesbook.db"),

		CacheMaxOwners: getEnvInt("CACHE_MAX_OWNERS", 256),
		CacheTTL:       getEnvDuration("CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "salesbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changed"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		ReportSheetName:     getEnv("REPORT_SHEET_NAME", "Report"),

		ReportConcurrency:     getEnvInt("REPORT_CONCURRENCY", 4),
		ReportRefreshInterval: getEnvDuration("REPORT_REFRESH_INTERVAL", time.Hour),

		AnalysisBackend: strings.ToLower(getEnv("ANALYSIS_BACKEND", "mock")),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
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
	}

	if c.CacheMaxOwners < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheMaxOwners))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	// Validate AMQP URL if provided
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

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.ReportSheetName) == "" {
		errors = append(errors, "report sheet name cannot be empty when GOOGLE_SPREADSHEET_ID is provided")
	}

	if c.ReportConcurrency < 1 || c.ReportConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid report concurrency %d: must be between 1 and 32", c.ReportConcurrency))
	}
	if c.ReportRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid report refresh interval %v: must be at least 1 minute", c.ReportRefreshInterval))
	} else if c.ReportRefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid report refresh interval %v: must be at most 24 hours", c.ReportRefreshInterval))
	}

	if !slices.Contains(validAnalysisBackends, c.AnalysisBackend) {
		errors = append(errors, fmt.Sprintf("invalid analysis backend '%s': must be one of %v", c.AnalysisBackend, validAnalysisBackends))
	}
	if c.AnalysisBackend == "gemini" && c.GeminiModel == "" {
		errors = append(errors, "Gemini model cannot be empty when using gemini analysis backend")
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
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

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
