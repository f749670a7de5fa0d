package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel string
	LogJSON  bool

	// Pipeline
	ClickTolerance int64
	DetailRowLimit int
	MaxUploadBytes int64

	// HTTP hardening
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int

	// Events (optional; empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),

		ClickTolerance: int64(getEnvInt("CLICK_TOLERANCE", 5)),
		DetailRowLimit: getEnvInt("DETAIL_ROW_LIMIT", 100),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_RPM", 120),
		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize:          getEnvInt("CACHE_SIZE", 200),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetviz"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_events"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.ClickTolerance < 0 {
		errs = append(errs, fmt.Sprintf("invalid click tolerance %d: must not be negative", c.ClickTolerance))
	}
	if c.DetailRowLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid detail row limit %d: must be positive", c.DetailRowLimit))
	}
	if c.MaxUploadBytes < 1 {
		errs = append(errs, fmt.Sprintf("invalid max upload bytes %d: must be positive", c.MaxUploadBytes))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be positive", c.RateLimitPerMinute))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %s: must be positive", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be positive", c.CacheSize))
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange must be set when AMQP_URL is configured")
	}
	if c.AMQPURL != "" && c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue must be set when AMQP_URL is configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// EventsEnabled reports whether an AMQP broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
