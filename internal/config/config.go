// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package config

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/symbology/internal/events"
	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/onadata"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Pipelines PipelinesConfig `koanf:"pipelines"`
	Client    ClientConfig    `koanf:"client"`
	Store     StoreConfig     `koanf:"store"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`

	// RunRateLimit caps manual run requests per client IP within RunRateWindow.
	// Zero disables the limit.
	RunRateLimit  int           `koanf:"run_rate_limit"`
	RunRateWindow time.Duration `koanf:"run_rate_window"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// PipelinesConfig locates the pipelines file and holds the defaults applied
// to every pipeline that leaves them unset.
type PipelinesConfig struct {
	File string `koanf:"file"`

	// Watch reloads the pipelines file when it changes.
	Watch bool `koanf:"watch"`

	// Timezone is the IANA zone cron schedules are evaluated in.
	Timezone string `koanf:"timezone"`

	RegFormSubmissionChunks int    `koanf:"reg_form_submission_chunks"`
	EditSubmissionChunks    int    `koanf:"edit_submission_chunks"`
	BaselineColor           string `koanf:"baseline_color"`
}

// ClientConfig tunes the Ona API client shared by every pipeline.
type ClientConfig struct {
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
	HTTPTimeout   time.Duration `koanf:"http_timeout"`

	// RateLimit is requests per second per pipeline. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	CircuitBreaker BreakerConfig `koanf:"circuit_breaker"`
}

// BreakerConfig configures the per-host circuit breakers.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// StoreConfig selects and tunes the report store.
type StoreConfig struct {
	// Backend is badger or memory.
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"`

	// Retention is the TTL of closed reports kept in history.
	Retention    time.Duration `koanf:"retention"`
	HistoryLimit int           `koanf:"history_limit"`
	SyncWrites   bool          `koanf:"sync_writes"`
	GCInterval   time.Duration `koanf:"gc_interval"`
}

// EventsConfig configures the report event bus. When disabled, snapshots are
// written to the store directly.
type EventsConfig struct {
	Enabled              bool          `koanf:"enabled"`
	Buffer               int64         `koanf:"buffer"`
	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// LoggingSettings converts the section into logging.Config.
func (c *Config) LoggingSettings() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	return lc
}

// Location returns the time zone for cron schedules. An empty or unknown
// zone yields UTC.
func (c *Config) Location() *time.Location {
	if c.Pipelines.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Pipelines.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClientOptions builds the onadata options shared by every pipeline. breakers
// may be nil when the circuit breaker is disabled.
func (c *Config) ClientOptions(breakers *onadata.BreakerSet) []onadata.Option {
	opts := []onadata.Option{
		onadata.WithRetryPolicy(c.Client.RetryAttempts, c.Client.RetryDelay),
	}
	if c.Client.HTTPTimeout > 0 {
		opts = append(opts, onadata.WithHTTPClient(&http.Client{Timeout: c.Client.HTTPTimeout}))
	}
	if c.Client.RateLimit > 0 {
		opts = append(opts, onadata.WithRateLimit(rate.Limit(c.Client.RateLimit), c.Client.RateBurst))
	}
	if breakers != nil {
		opts = append(opts, onadata.WithBreakers(breakers))
	}
	return opts
}

// BreakerSettings converts the circuit breaker section.
func (c *Config) BreakerSettings() onadata.BreakerSettings {
	b := c.Client.CircuitBreaker
	return onadata.BreakerSettings{
		MaxRequests:  b.MaxRequests,
		Interval:     b.Interval,
		Timeout:      b.Timeout,
		MinRequests:  b.MinRequests,
		FailureRatio: b.FailureRatio,
	}
}

// RouterConfig converts the events section.
func (c *Config) RouterConfig() events.RouterConfig {
	rc := events.DefaultRouterConfig()
	rc.RetryMaxRetries = c.Events.RetryCount
	if c.Events.RetryInitialInterval > 0 {
		rc.RetryInitialInterval = c.Events.RetryInitialInterval
	}
	if c.Events.CloseTimeout > 0 {
		rc.CloseTimeout = c.Events.CloseTimeout
	}
	return rc
}
