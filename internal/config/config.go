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

	"finledger/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP; an empty URL disables messaging
	AMQPURL          string
	AMQPExchange     string
	AMQPQueue        string
	AMQPConfirmedKey string

	// Import validation
	DefaultCompanyID string
	DefaultCurrency  string
	Currencies       []string
	MaxCategoryDepth int
	NaturalKeys      core.KeySpec

	// Summaries
	SummaryDefaultDepth int
	SummaryCacheSize    int
	SummaryCacheTTL     time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// keyErrors collects unparsable NATURAL_KEY_<KIND> values for Validate.
	keyErrors []string
}

// LoadDotEnv loads a .env file when present. Variables already set in the
// environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load %s: %w", strings.Join(existing, ","), err)
	}
	return nil
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finledger.db"),

		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "finledger"),
		AMQPQueue:        getEnv("AMQP_QUEUE", "candidate_batches"),
		AMQPConfirmedKey: getEnv("AMQP_CONFIRMED_KEY", "import.confirmed"),

		DefaultCompanyID: getEnv("DEFAULT_COMPANY_ID", "company-unknown"),
		DefaultCurrency:  strings.ToUpper(getEnv("DEFAULT_CURRENCY", "CNY")),
		Currencies:       getEnvList("CURRENCIES"),
		MaxCategoryDepth: getEnvInt("MAX_CATEGORY_DEPTH", 4),

		SummaryDefaultDepth: getEnvInt("SUMMARY_DEFAULT_DEPTH", 2),
		SummaryCacheSize:    getEnvInt("SUMMARY_CACHE_SIZE", 256),
		SummaryCacheTTL:     getEnvDuration("SUMMARY_CACHE_TTL", 10*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	cfg.NaturalKeys = core.DefaultKeySpec()
	for _, kind := range []core.RecordKind{core.Revenue, core.Expense, core.AccountBalance, core.IncomeForecast, core.ExpenseForecast} {
		key := "NATURAL_KEY_" + strings.ToUpper(string(kind))
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		fields, err := core.ParseKeyFields(value)
		if err != nil {
			cfg.keyErrors = append(cfg.keyErrors, fmt.Sprintf("invalid %s '%s': %v", key, value, err))
			continue
		}
		cfg.NaturalKeys[kind] = fields
	}

	return cfg
}

// Rules returns the candidate validation rules derived from the configuration.
func (c *Config) Rules() core.Rules {
	return core.Rules{
		DefaultCompanyID: c.DefaultCompanyID,
		DefaultCurrency:  c.DefaultCurrency,
		Currencies:       c.Currencies,
		MaxCategoryDepth: c.MaxCategoryDepth,
	}
}

// MessagingEnabled reports whether an AMQP broker is configured.
func (c *Config) MessagingEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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
		if c.AMQPConfirmedKey == "" {
			errors = append(errors, "AMQP confirmed routing key cannot be empty when AMQP URL is provided")
		}
	}

	if strings.TrimSpace(c.DefaultCompanyID) == "" {
		errors = append(errors, "default company id cannot be empty")
	}
	if !core.KnownCurrency(c.DefaultCurrency) {
		errors = append(errors, fmt.Sprintf("unknown default currency '%s'", c.DefaultCurrency))
	}
	for _, cur := range c.Currencies {
		if !core.KnownCurrency(cur) {
			errors = append(errors, fmt.Sprintf("unknown currency '%s' in CURRENCIES", cur))
		}
	}
	if len(c.Currencies) > 0 && !containsFold(c.Currencies, c.DefaultCurrency) {
		errors = append(errors, fmt.Sprintf("default currency '%s' is not listed in CURRENCIES", c.DefaultCurrency))
	}

	if c.MaxCategoryDepth < 1 || c.MaxCategoryDepth > 10 {
		errors = append(errors, fmt.Sprintf("invalid max category depth %d: must be between 1 and 10", c.MaxCategoryDepth))
	}
	if c.SummaryDefaultDepth < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary default depth %d: must be at least 1", c.SummaryDefaultDepth))
	} else if c.SummaryDefaultDepth > c.MaxCategoryDepth {
		errors = append(errors, fmt.Sprintf("invalid summary default depth %d: must not exceed max category depth %d", c.SummaryDefaultDepth, c.MaxCategoryDepth))
	}

	if c.SummaryCacheSize < 1 || c.SummaryCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be between 1 and 100000", c.SummaryCacheSize))
	}
	if c.SummaryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be at least 1 second", c.SummaryCacheTTL))
	} else if c.SummaryCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be at most 24 hours", c.SummaryCacheTTL))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	errors = append(errors, c.keyErrors...)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
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

// getEnvList splits a comma-separated variable into upper-cased, non-empty items.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
