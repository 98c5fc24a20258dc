// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/symbology/internal/logging"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validatePipelines(); err != nil {
		return err
	}

	if err := c.validateClient(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("HTTP timeouts must not be negative")
	}
	if c.Server.RunRateLimit < 0 {
		return fmt.Errorf("RUN_RATE_LIMIT must not be negative, got: %d", c.Server.RunRateLimit)
	}
	if c.Server.RunRateLimit > 0 && c.Server.RunRateWindow <= 0 {
		return fmt.Errorf("RUN_RATE_WINDOW must be positive when RUN_RATE_LIMIT is set")
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin, "CORS_ORIGINS"); err != nil {
			return err
		}
	}
	return nil
}

// validatePipelines validates the pipelines file settings and defaults
func (c *Config) validatePipelines() error {
	if strings.TrimSpace(c.Pipelines.File) == "" {
		return fmt.Errorf("PIPELINES_FILE is required")
	}
	if c.Pipelines.Timezone != "" {
		if _, err := time.LoadLocation(c.Pipelines.Timezone); err != nil {
			return fmt.Errorf("PIPELINES_TIMEZONE %q is invalid: %w", c.Pipelines.Timezone, err)
		}
	}
	if c.Pipelines.RegFormSubmissionChunks < 1 {
		return fmt.Errorf("REG_FORM_SUBMISSION_CHUNKS must be at least 1, got: %d", c.Pipelines.RegFormSubmissionChunks)
	}
	if c.Pipelines.EditSubmissionChunks < 1 {
		return fmt.Errorf("EDIT_SUBMISSION_CHUNKS must be at least 1, got: %d", c.Pipelines.EditSubmissionChunks)
	}
	if c.Pipelines.BaselineColor == "" {
		return fmt.Errorf("SYMBOLOGY_BASELINE_COLOR must not be empty")
	}
	return nil
}

// validateClient validates Ona client retry, rate and breaker settings
func (c *Config) validateClient() error {
	if c.Client.RetryAttempts < 1 {
		return fmt.Errorf("ONA_RETRY_ATTEMPTS must be at least 1, got: %d", c.Client.RetryAttempts)
	}
	if c.Client.RetryDelay < 0 {
		return fmt.Errorf("ONA_RETRY_DELAY must not be negative, got: %v", c.Client.RetryDelay)
	}
	if c.Client.RateLimit < 0 {
		return fmt.Errorf("ONA_RATE_LIMIT must not be negative, got: %v", c.Client.RateLimit)
	}
	if c.Client.RateLimit > 0 && c.Client.RateBurst < 1 {
		return fmt.Errorf("ONA_RATE_BURST must be at least 1 when ONA_RATE_LIMIT is set")
	}

	cb := c.Client.CircuitBreaker
	if !cb.Enabled {
		return nil
	}
	if cb.FailureRatio <= 0 || cb.FailureRatio > 1 {
		return fmt.Errorf("ONA_BREAKER_FAILURE_RATIO must be in (0, 1], got: %v", cb.FailureRatio)
	}
	if cb.Timeout <= 0 {
		return fmt.Errorf("ONA_BREAKER_TIMEOUT must be positive, got: %v", cb.Timeout)
	}
	return nil
}

// validateStore validates report store settings
func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH is required when STORE_BACKEND=badger")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be 'badger' or 'memory', got: %s", c.Store.Backend)
	}
	if c.Store.Retention < 0 {
		return fmt.Errorf("STORE_RETENTION must not be negative, got: %v", c.Store.Retention)
	}
	if c.Store.HistoryLimit < 1 {
		return fmt.Errorf("STORE_HISTORY_LIMIT must be at least 1, got: %d", c.Store.HistoryLimit)
	}
	return nil
}

// validateEvents validates event bus settings (only if enabled)
func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.Buffer < 0 {
		return fmt.Errorf("EVENTS_BUFFER must not be negative, got: %d", c.Events.Buffer)
	}
	if c.Events.RetryCount < 0 {
		return fmt.Errorf("EVENTS_RETRY_COUNT must not be negative, got: %d", c.Events.RetryCount)
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got: %s", c.Logging.Format)
	}
}
