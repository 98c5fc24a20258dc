// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/symbology/internal/middleware"
)

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	metrics       http.Handler
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMetricsHandler replaces the /metrics handler.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(r *Router) {
		r.metrics = h
	}
}

// NewRouter creates a router over handler.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig, opts ...RouterOption) *Router {
	router := &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
		metrics:       promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Route("/health", func(r chi.Router) {
			r.Get("/live", router.handler.HealthLive)
			r.Get("/ready", router.handler.HealthReady)
		})

		r.Route("/pipelines", func(r chi.Router) {
			r.Get("/", router.handler.ListPipelines)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", router.handler.GetPipeline)
				r.With(router.chiMiddleware.RateLimitRuns()).Post("/run", router.handler.RunPipeline)
				r.Post("/cancel", router.handler.CancelPipeline)
				r.Get("/report", router.handler.LatestReport)
				r.Get("/reports", router.handler.ReportHistory)
			})
		})
	})

	r.Handle("/metrics", router.metrics)

	return r
}
