// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline run metrics
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_pipeline_runs_total",
			Help: "Total number of completed pipeline runs",
		},
		[]string{"pipeline", "trigger", "outcome"}, // outcome: "completed", "aborted", "form_fetch_failed"
	)

	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "symbology_pipeline_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"pipeline"},
	)

	PipelineRunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "symbology_pipeline_runs_in_progress",
			Help: "Number of pipeline runs currently executing",
		},
	)

	PipelineTriggersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_pipeline_triggers_rejected_total",
			Help: "Triggers rejected before a run started",
		},
		[]string{"pipeline", "reason"}, // reason: "already_running", "invalid_config"
	)

	FacilityOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_facility_outcomes_total",
			Help: "Facility evaluation outcomes by result code",
		},
		[]string{"pipeline", "code", "category"},
	)

	MarkerUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_marker_updates_total",
			Help: "Marker colors written to the upstream API",
		},
		[]string{"pipeline", "color"},
	)

	ConfiguredPipelines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "symbology_configured_pipelines",
			Help: "Number of pipelines currently held by the controller",
		},
	)

	ConfigReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_config_reloads_total",
			Help: "Pipeline config reloads",
		},
		[]string{"result"}, // result: "success", "failure"
	)

	// Upstream (Ona API) metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_upstream_requests_total",
			Help: "HTTP requests sent to the upstream data API, per attempt",
		},
		[]string{"method", "operation", "status_code"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "symbology_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds, per attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "operation"},
	)

	UpstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_upstream_retries_total",
			Help: "Upstream request retries",
		},
		[]string{"method", "operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "symbology_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "symbology_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Report store and event bus
	ReportWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_report_writes_total",
			Help: "Report snapshots written to the report store",
		},
		[]string{"backend", "result"},
	)

	ReportEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_report_events_published_total",
			Help: "Report snapshots published on the event bus",
		},
		[]string{"result"},
	)

	// HTTP API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbology_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "symbology_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records an HTTP API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one upstream attempt. A status of 0 means
// the request failed before a response arrived.
func RecordUpstreamRequest(method, operation string, status int, duration time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(method, operation, code).Inc()
	UpstreamRequestDuration.WithLabelValues(method, operation).Observe(duration.Seconds())
}

// RecordUpstreamRetry records a retry of an upstream request.
func RecordUpstreamRetry(method, operation string) {
	UpstreamRetriesTotal.WithLabelValues(method, operation).Inc()
}

// RecordPipelineRun records a finished run.
func RecordPipelineRun(pipeline, trigger, outcome string, duration time.Duration) {
	PipelineRunsTotal.WithLabelValues(pipeline, trigger, outcome).Inc()
	PipelineRunDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// RecordTriggerRejected records a trigger that did not start a run.
func RecordTriggerRejected(pipeline, reason string) {
	PipelineTriggersRejected.WithLabelValues(pipeline, reason).Inc()
}

// TrackRunInProgress adjusts the in-progress gauge.
func TrackRunInProgress(inc bool) {
	if inc {
		PipelineRunsInProgress.Inc()
	} else {
		PipelineRunsInProgress.Dec()
	}
}

// RecordFacilityOutcome records one tallied facility outcome.
func RecordFacilityOutcome(pipeline, code, category string) {
	FacilityOutcomes.WithLabelValues(pipeline, code, category).Inc()
}

// RecordMarkerUpdate records a successful marker write.
func RecordMarkerUpdate(pipeline, color string) {
	MarkerUpdates.WithLabelValues(pipeline, color).Inc()
}

// RecordConfigReload records a pipeline config reload.
func RecordConfigReload(err error) {
	if err != nil {
		ConfigReloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	ConfigReloadsTotal.WithLabelValues("success").Inc()
}

// RecordReportWrite records a report store write.
func RecordReportWrite(backend string, err error) {
	if err != nil {
		ReportWritesTotal.WithLabelValues(backend, "failure").Inc()
		return
	}
	ReportWritesTotal.WithLabelValues(backend, "success").Inc()
}

// RecordReportPublish records a report event publish.
func RecordReportPublish(err error) {
	if err != nil {
		ReportEventsPublished.WithLabelValues("failure").Inc()
		return
	}
	ReportEventsPublished.WithLabelValues("success").Inc()
}
