// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/onadata"
	"github.com/tomtom215/symbology/internal/store"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/symbology/config.yaml",
	"/etc/symbology/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	breaker := onadata.DefaultBreakerSettings()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3858,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			RunRateLimit:    10,
			RunRateWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Pipelines: PipelinesConfig{
			File:                    "/etc/symbology/pipelines.yaml",
			Watch:                   true,
			Timezone:                "UTC",
			RegFormSubmissionChunks: models.DefaultRegFormSubmissionChunks,
			EditSubmissionChunks:    models.DefaultEditSubmissionChunks,
			BaselineColor:           models.DefaultBaselineColor,
		},
		Client: ClientConfig{
			RetryAttempts: onadata.DefaultMaxAttempts,
			RetryDelay:    onadata.DefaultRetryDelay,
			HTTPTimeout:   onadata.DefaultTimeout,
			RateLimit:     0, // Unlimited
			RateBurst:     1,
			CircuitBreaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  breaker.MaxRequests,
				Interval:     breaker.Interval,
				Timeout:      breaker.Timeout,
				MinRequests:  breaker.MinRequests,
				FailureRatio: breaker.FailureRatio,
			},
		},
		Store: StoreConfig{
			Backend:      "badger",
			Path:         "/data/symbology",
			Retention:    30 * 24 * time.Hour,
			HistoryLimit: store.DefaultHistoryLimit,
			SyncWrites:   false,
			GCInterval:   10 * time.Minute,
		},
		Events: EventsConfig{
			Enabled:              true,
			Buffer:               256,
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
			CloseTimeout:         30 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// HTTP_PORT -> server.port, ONA_RETRY_DELAY -> client.retry_delay
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"run_rate_limit":        "server.run_rate_limit",
	"run_rate_window":       "server.run_rate_window",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Pipelines mappings
	"pipelines_file":             "pipelines.file",
	"pipelines_watch":            "pipelines.watch",
	"pipelines_timezone":         "pipelines.timezone",
	"tz_schedule":                "pipelines.timezone",
	"reg_form_submission_chunks": "pipelines.reg_form_submission_chunks",
	"edit_submission_chunks":     "pipelines.edit_submission_chunks",
	"symbology_baseline_color":   "pipelines.baseline_color",

	// Ona client mappings
	"ona_retry_attempts":        "client.retry_attempts",
	"ona_retry_delay":           "client.retry_delay",
	"ona_http_timeout":          "client.http_timeout",
	"ona_rate_limit":            "client.rate_limit",
	"ona_rate_burst":            "client.rate_burst",
	"ona_circuit_breaker":       "client.circuit_breaker.enabled",
	"ona_breaker_max_requests":  "client.circuit_breaker.max_requests",
	"ona_breaker_interval":      "client.circuit_breaker.interval",
	"ona_breaker_timeout":       "client.circuit_breaker.timeout",
	"ona_breaker_min_requests":  "client.circuit_breaker.min_requests",
	"ona_breaker_failure_ratio": "client.circuit_breaker.failure_ratio",

	// Report store mappings
	"store_backend":       "store.backend",
	"store_path":          "store.path",
	"store_retention":     "store.retention",
	"store_history_limit": "store.history_limit",
	"store_sync_writes":   "store.sync_writes",
	"store_gc_interval":   "store.gc_interval",

	// Event bus mappings
	"events_enabled":        "events.enabled",
	"events_buffer":         "events.buffer",
	"events_retry_count":    "events.retry_count",
	"events_retry_interval": "events.retry_initial_interval",
	"events_close_timeout":  "events.close_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - LOG_LEVEL -> logging.level
//   - PIPELINES_FILE -> pipelines.file
//   - ONA_RETRY_ATTEMPTS -> client.retry_attempts
//   - STORE_BACKEND -> store.backend
func envTransformFunc(key string) string {
	// Unmapped keys return "" and are skipped, so unrelated environment
	// variables never reach the config.
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile watches path and calls callback after every change. The
// returned function stops the watcher.
//
// Example usage:
//
//	stop, err := WatchConfigFile(cfg.Pipelines.File, func() {
//	    if _, err := controller.Reload(ctx); err != nil {
//	        logging.Error().Err(err).Msg("Pipelines reload failed")
//	    }
//	})
func WatchConfigFile(path string, callback func()) (func() error, error) {
	provider := file.Provider(path)

	err := provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return provider.Unwatch, nil
}
