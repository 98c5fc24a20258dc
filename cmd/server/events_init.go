// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package main

import (
	"fmt"
	"time"

	"github.com/tomtom215/symbology/internal/config"
	"github.com/tomtom215/symbology/internal/events"
	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/store"
)

// storeHookTimeout bounds a single store call made from a pipeline hook.
const storeHookTimeout = 5 * time.Second

// reportHooks are the store hooks attached to every pipeline. router is nil
// when the event bus is disabled and snapshots go to the store directly.
type reportHooks struct {
	write  models.WriteMetricFunc
	read   models.ReadMetricFunc
	router *events.Router
	close  func() error
}

// initReportHooks builds the write and read hooks for st. With events
// enabled, writes are published on the in-process bus and persisted by the
// router; reads always hit the store.
func initReportHooks(cfg *config.Config, st store.ReportStore) (*reportHooks, error) {
	write, read := store.Hooks(st, storeHookTimeout)
	hooks := &reportHooks{write: write, read: read, close: func() error { return nil }}

	if !cfg.Events.Enabled {
		logging.Info().Msg("Report event bus disabled, writing snapshots to the store directly")
		return hooks, nil
	}

	wmLogger := events.NewLogger()
	pubsub := events.NewPubSub(cfg.Events.Buffer, wmLogger)
	router, err := events.NewRouter(cfg.RouterConfig(), pubsub, st, wmLogger)
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("create report router: %w", err)
	}

	hooks.write = events.NewPublisher(pubsub).WriteMetric()
	hooks.router = router
	hooks.close = pubsub.Close

	logging.Info().
		Int64("buffer", cfg.Events.Buffer).
		Int("retries", cfg.Events.RetryCount).
		Msg("Report event bus initialized")
	return hooks, nil
}

// attach returns the function that wires the hooks and a pipeline-scoped
// logger into every loaded config.
func (h *reportHooks) attach() func(*models.PipelineConfig) {
	return func(cfg *models.PipelineConfig) {
		logger := logging.WithComponent("pipeline").With().
			Str("config_id", cfg.UUID).
			Logger()
		cfg.Logger = logging.ZerologSink(logger)
		cfg.WriteMetric = h.write
		cfg.ReadMetric = h.read
	}
}
