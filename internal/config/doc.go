// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package config provides centralized configuration management for Symbology.

Two files are involved. The application config holds process settings and
is loaded once at startup. The pipelines file lists the pipeline configs and
is re-read on every controller reload, optionally on file change.

# Configuration Sources

LoadWithKoanf layers three sources, later ones winning:
  - Built-in defaults (defaultConfig)
  - An optional YAML file: $CONFIG_PATH, ./config.yaml, /etc/symbology/config.yaml
  - Environment variables mapped by envTransformFunc

# Configuration Structure

  - ServerConfig: HTTP listener, timeouts, CORS and the manual-run rate limit
  - LoggingConfig: level, format and caller
  - PipelinesConfig: pipelines file, watch flag, cron time zone and the
    defaults for chunk sizes and baseline color
  - ClientConfig: Ona retry budget, HTTP timeout, rate limit and circuit breaker
  - StoreConfig: report store backend (badger or memory), path and retention
  - EventsConfig: report event bus buffer and router retry policy

# Environment Variables

HTTP Server:
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 3858)
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - RUN_RATE_LIMIT / RUN_RATE_WINDOW: Manual runs per IP (default: 10 per 1m)

Pipelines:
  - PIPELINES_FILE: Pipelines file (default: /etc/symbology/pipelines.yaml)
  - PIPELINES_WATCH: Reload on change (default: true)
  - PIPELINES_TIMEZONE: Cron time zone (default: UTC)
  - REG_FORM_SUBMISSION_CHUNKS / EDIT_SUBMISSION_CHUNKS: Default page and
    batch sizes (default: 1000 / 100)

Ona Client:
  - ONA_RETRY_ATTEMPTS: Attempts per request (default: 5)
  - ONA_RETRY_DELAY: Linear backoff base (default: 20s)
  - ONA_RATE_LIMIT / ONA_RATE_BURST: Requests per second (default: unlimited)
  - ONA_CIRCUIT_BREAKER: Enable per-host breakers (default: true)

Report Store:
  - STORE_BACKEND: badger or memory (default: badger)
  - STORE_PATH: Badger directory (default: /data/symbology)
  - STORE_RETENTION: History TTL (default: 720h)

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)

# Pipelines File

LoadPipelines parses a YAML or JSON document with a top-level "pipelines"
list using the field names of models.PipelineConfig. PipelineSource wraps it
as an evaluator.ConfigSource, and WatchConfigFile drives reloads.
*/
package config
