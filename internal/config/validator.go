package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	var errors []string

	if c.Endpoint == "" {
		errors = append(errors, "normalizer endpoint is required")
	} else if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		errors = append(errors, fmt.Sprintf("endpoint must start with http:// or https://, got %q", c.Endpoint))
	}
	if c.Model == "" {
		errors = append(errors, "model identifier is required")
	}

	if c.ChunkSize < 1 {
		errors = append(errors, "chunk size must be at least 1")
	}
	if c.MaxConcurrency < 1 {
		errors = append(errors, "max concurrency must be at least 1")
	}
	if c.RetryAttempts < 1 {
		errors = append(errors, "retry attempts must be at least 1")
	}
	if c.RetryBaseDelay < time.Millisecond {
		errors = append(errors, "retry base delay must be at least 1ms")
	}
	if c.RequestTimeout < time.Second {
		errors = append(errors, "request timeout must be at least 1 second")
	}
	if c.RateLimitRPS < 0 {
		errors = append(errors, "rate limit must not be negative")
	}

	if c.TempDir == "" {
		errors = append(errors, "temp dir is required")
	}
	if c.ReferenceDBPath == "" {
		errors = append(errors, "reference database path is required")
	}
	if c.PartyPromptPath == "" {
		errors = append(errors, "party prompt path is required")
	}
	if c.CityPromptPath == "" {
		errors = append(errors, "city prompt path is required")
	}

	if c.IDColumn == "" {
		errors = append(errors, "id column is required")
	}
	if len(c.PartyColumns) == 0 && len(c.AddressColumns) == 0 {
		errors = append(errors, "at least one party or address column is required")
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errors = append(errors, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// SlogLevel переводит текстовый уровень в значение для slog-обработчика.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
