// Package config loads dashboard configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Server
	Port string

	// Source selection and locator
	SourceBackend string
	SourceURL     string
	SourceLocator string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Snapshot store
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Refresh worker
	RefreshInterval time.Duration

	// Report cache
	ReportCacheTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first, without overriding variables already set.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		SourceBackend: getEnv("SOURCE_BACKEND", "memory"),
		SourceURL:     getEnv("SOURCE_URL", ""),
		SourceLocator: getEnv("SOURCE_LOCATOR", "bookings"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/flightdash.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "flightdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_dataset"),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 15*time.Minute),
		ReportCacheTTL:  getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
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

	validBackends := []string{"memory", "http", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.SourceBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid source backend '%s': must be one of %v", c.SourceBackend, validBackends))
	}

	if c.SourceBackend == "http" {
		if c.SourceURL == "" {
			errors = append(errors, "SOURCE_URL is required when using the http backend")
		} else if parsedURL, err := url.Parse(c.SourceURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid source URL '%s': %v", c.SourceURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid source URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.SourceBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using the sheets backend")
	}

	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
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

	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if c.ReportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must not be negative", c.ReportCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Locator returns the source locator resolved for the selected backend.
func (c *Config) Locator() string {
	switch c.SourceBackend {
	case "http":
		return c.SourceURL
	case "sheets":
		if c.GoogleSheetName != "" {
			return c.GoogleSpreadsheetID + "#" + c.GoogleSheetName
		}
		return c.GoogleSpreadsheetID
	default:
		return c.SourceLocator
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
