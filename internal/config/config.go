package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	MaxUploadMB        int
	RateLimitPerMinute int
	// TrustedProxies are CIDRs, besides loopback and private ranges, whose
	// X-Forwarded-For header names the client.
	TrustedProxies []string

	// Sessions
	SessionTTL             time.Duration
	MaxSessions            int
	SessionCleanupInterval time.Duration

	// Pipeline
	ColumnRulesFile string
	DefaultPeriod   string
	TopCategories   int
	CurrencySymbol  string
	DateMonthFirst  bool
	MaxRowErrors    int

	// Google Sheets import (optional)
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleSheetsRange        string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadMB:        getEnvInt("MAX_UPLOAD_MB", 10),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		SessionTTL:             getEnvDuration("SESSION_TTL", 2*time.Hour),
		MaxSessions:            getEnvInt("MAX_SESSIONS", 500),
		SessionCleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),

		ColumnRulesFile: getEnv("COLUMN_RULES_FILE", ""),
		DefaultPeriod:   getEnv("DEFAULT_PERIOD", "month"),
		TopCategories:   getEnvInt("TOP_CATEGORIES", 10),
		CurrencySymbol:  getEnv("CURRENCY_SYMBOL", "R$"),
		DateMonthFirst:  getEnvBool("DATE_MONTH_FIRST", false),
		MaxRowErrors:    getEnvInt("MAX_ROW_ERRORS", 20),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleSheetsRange:        getEnv("GOOGLE_SHEETS_RANGE", "A:Z"),
	}
}

// SheetsEnabled reports whether service account credentials were provided.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !oneOf(strings.ToLower(c.LogLevel), validLevels) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if c.MaxUploadMB < 1 || c.MaxUploadMB > 100 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %dMB: must be between 1 and 100", c.MaxUploadMB))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 7 days", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}
	if c.SessionCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid session cleanup interval %v: must be at least 1 second", c.SessionCleanupInterval))
	}

	validPeriods := []string{"day", "week", "month"}
	if !oneOf(c.DefaultPeriod, validPeriods) {
		errors = append(errors, fmt.Sprintf("invalid default period '%s': must be one of %v", c.DefaultPeriod, validPeriods))
	}
	if c.TopCategories < 1 || c.TopCategories > 100 {
		errors = append(errors, fmt.Sprintf("invalid top categories %d: must be between 1 and 100", c.TopCategories))
	}
	if c.MaxRowErrors < 1 {
		errors = append(errors, fmt.Sprintf("invalid max row errors %d: must be at least 1", c.MaxRowErrors))
	}

	if c.ColumnRulesFile != "" {
		if _, err := os.Stat(c.ColumnRulesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("column rules file does not exist: %s", c.ColumnRulesFile))
		}
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
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

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
