package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	if c.LLM.BaseURL == "" {
		errs = append(errs, "LLM_BASE_URL is required")
	}

	// Timeouts must gate, not hang
	if c.LLM.ClassifierTimeout <= 0 {
		errs = append(errs, "LLM_CLASSIFIER_TIMEOUT must be positive")
	}
	if c.LLM.RetrievalTimeout <= 0 {
		errs = append(errs, "LLM_RETRIEVAL_TIMEOUT must be positive")
	}
	if c.LLM.GeneratorTimeout <= 0 {
		errs = append(errs, "LLM_GENERATOR_TIMEOUT must be positive")
	}

	// Warn only: the service still answers requests but every question that
	// needs the completion service degrades to the fixed refusal.
	if c.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is empty; classifier and generator calls will fail closed")
	}

	// Warn only: claims are decoded without signature verification.
	if c.JWT.Secret == "" {
		slog.Warn("JWT_SECRET is empty; session tokens are decoded without signature verification")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
