// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package api provides the HTTP REST API layer for Symbology.

The API exposes the state of the configured pipelines, lets operators start
and cancel runs by hand, and serves the stored run reports.

Key Components:

  - Router: chi route configuration and the middleware stack
  - Handler: request handlers over the pipeline controller and report store
  - ChiMiddleware: CORS (go-chi/cors) and per-IP rate limiting (go-chi/httprate)
  - Response formatting: the models.APIResponse envelope with metadata

Endpoints:

	GET  /api/v1/health/live             liveness
	GET  /api/v1/health/ready            readiness and pipeline count
	GET  /api/v1/pipelines               status of every pipeline
	GET  /api/v1/pipelines/{id}          status of one pipeline
	POST /api/v1/pipelines/{id}/run      start a manual run (rate limited)
	POST /api/v1/pipelines/{id}/cancel   cancel the in-flight run
	GET  /api/v1/pipelines/{id}/report   latest report
	GET  /api/v1/pipelines/{id}/reports  closed reports, newest first
	GET  /metrics                        Prometheus metrics

Run admission maps onto status codes: 202 when the run started, 404 for an
unknown pipeline, 409 when a run is already in flight and 422 when the
pipeline config is invalid.

Usage Example:

	handler := api.NewHandler(controller, reports)
	router := api.NewRouter(handler, api.DefaultChiMiddlewareConfig())
	srv := &http.Server{Addr: ":3858", Handler: router.SetupChi()}
*/
package api
