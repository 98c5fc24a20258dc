// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package metrics provides Prometheus instrumentation for Symbology.

All collectors register with the default registry through promauto and are
exposed at /metrics by the HTTP API.

# Available Metrics

Pipelines:
  - symbology_pipeline_runs_total{pipeline, trigger, outcome}
  - symbology_pipeline_run_duration_seconds{pipeline}
  - symbology_pipeline_runs_in_progress
  - symbology_pipeline_triggers_rejected_total{pipeline, reason}
  - symbology_facility_outcomes_total{pipeline, code, category}
  - symbology_marker_updates_total{pipeline, color}
  - symbology_configured_pipelines
  - symbology_config_reloads_total{result}

Upstream API:
  - symbology_upstream_requests_total{method, operation, status_code}
  - symbology_upstream_request_duration_seconds{method, operation}
  - symbology_upstream_retries_total{method, operation}
  - symbology_circuit_breaker_* {name}

Storage and HTTP:
  - symbology_report_writes_total{backend, result}
  - symbology_report_events_published_total{result}
  - symbology_api_requests_total{method, endpoint, status_code}
  - symbology_api_request_duration_seconds{method, endpoint}
*/
package metrics
