package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Plaid-style aggregator environments and their API base URLs.
var aggregatorEnvironments = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Supabase (hosted backend)
	SupabaseURL string
	SupabaseKey string

	// Auth (JWT issued by the external auth provider)
	AuthJWTSecret string

	// Aggregator (bank data)
	PlaidEnv        string
	PlaidBaseURL    string // overrides PlaidEnv when set
	PlaidClientID   string
	PlaidSecret     string
	PlaidClientName string
	PlaidTimeout    time.Duration

	// Category resolver
	CategoryMapFile string

	// AMQP (optional event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budget.db"),

		SupabaseURL: getEnv("SUPABASE_URL", ""),
		SupabaseKey: getEnv("SUPABASE_KEY", ""),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		PlaidEnv:        getEnv("PLAID_ENV", "sandbox"),
		PlaidBaseURL:    getEnv("PLAID_BASE_URL", ""),
		PlaidClientID:   getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:     getEnv("PLAID_SECRET", ""),
		PlaidClientName: getEnv("PLAID_CLIENT_NAME", "Family Budget App"),
		PlaidTimeout:    getEnvDuration("PLAID_TIMEOUT", 15*time.Second),

		CategoryMapFile: getEnv("CATEGORY_MAP_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_events"),
	}

	return cfg
}

// AggregatorBaseURL resolves the aggregator API base URL from the explicit
// override or the named environment.
func (c *Config) AggregatorBaseURL() string {
	if c.PlaidBaseURL != "" {
		return c.PlaidBaseURL
	}
	return aggregatorEnvironments[c.PlaidEnv]
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

	// Validate data backend
	validBackends := []string{"sqlite", "supabase"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
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

	// Validate Supabase configuration if backend is supabase
	if c.DataBackend == "supabase" {
		if c.SupabaseURL == "" {
			errors = append(errors, "SUPABASE_URL is required when using supabase backend")
		}
		if c.SupabaseKey == "" {
			errors = append(errors, "SUPABASE_KEY is required when using supabase backend")
		}
	}

	if c.AuthJWTSecret == "" {
		errors = append(errors, "AUTH_JWT_SECRET is required")
	}

	// Validate aggregator configuration
	if c.PlaidBaseURL == "" {
		if _, ok := aggregatorEnvironments[c.PlaidEnv]; !ok {
			errors = append(errors, fmt.Sprintf("invalid PLAID_ENV '%s': must be sandbox, development or production", c.PlaidEnv))
		}
	}
	if c.PlaidTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid aggregator timeout %v: must be at least 1 second", c.PlaidTimeout))
	} else if c.PlaidTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid aggregator timeout %v: must be at most 1 minute", c.PlaidTimeout))
	}

	// Validate category map file if provided
	if c.CategoryMapFile != "" {
		if _, err := os.Stat(c.CategoryMapFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("category map file does not exist: %s", c.CategoryMapFile))
		}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
