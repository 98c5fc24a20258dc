// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/store"
)

// RouterConfig holds configuration for the report router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// Router consumes report snapshots and writes them to a store.
type Router struct {
	router *message.Router
	store  store.ReportStore
	logger watermill.LoggerAdapter
}

// NewRouter creates a router whose single handler persists every message on
// ReportsTopic read from sub.
func NewRouter(cfg RouterConfig, sub message.Subscriber, s store.ReportStore, logger watermill.LoggerAdapter) (*Router, error) {
	if sub == nil || s == nil {
		return nil, errors.New("subscriber and store are required")
	}
	if logger == nil {
		logger = NewLogger()
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Recoverer: Convert panics to errors
	wmRouter.AddMiddleware(middleware.Recoverer)

	// Ack after retries are exhausted. Publishers block until ack, so a
	// nacked snapshot would stall the run that produced it.
	wmRouter.AddMiddleware(dropAfterRetries)

	// Retry: Exponential backoff for transient store failures
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	r := &Router{router: wmRouter, store: s, logger: logger}
	wmRouter.AddConsumerHandler("report_store", ReportsTopic, sub, r.handleReport)
	return r, nil
}

func dropAfterRetries(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := h(msg)
		if err != nil {
			logging.Error().Err(err).
				Str("message_uuid", msg.UUID).
				Str("config_id", msg.Metadata.Get(MetadataConfigID)).
				Msg("Dropping report after failed retries")
			return nil, nil
		}
		return msgs, nil
	}
}

func (r *Router) handleReport(msg *message.Message) error {
	var rep models.Report
	if err := json.Unmarshal(msg.Payload, &rep); err != nil {
		// Malformed payloads are acked and dropped.
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable report")
		return nil
	}

	ctx, cancel := context.WithTimeout(msg.Context(), 10*time.Second)
	defer cancel()
	if err := r.store.Write(ctx, rep); err != nil {
		return fmt.Errorf("store report %s: %w", rep.ConfigID, err)
	}
	return nil
}

// Run starts the router and blocks until ctx is cancelled or Close is called.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether the router is processing messages.
func (r *Router) IsRunning() bool {
	return r.router.IsRunning()
}

// Close gracefully stops the router.
func (r *Router) Close() error {
	return r.router.Close()
}
