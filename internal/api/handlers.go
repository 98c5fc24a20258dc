// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package api

import (
	"context"
	"time"

	"github.com/tomtom215/symbology/internal/evaluator"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/store"
)

// PipelineController is the part of the pipelines controller the API drives.
type PipelineController interface {
	Statuses() []models.PipelineStatus
	Status(id string) (models.PipelineStatus, bool)
	Trigger(id string) error
	Cancel(id string) (bool, error)
}

// ReportReader is the read side of the report store.
type ReportReader interface {
	Latest(ctx context.Context, configID string) (*models.Report, error)
	History(ctx context.Context, configID string, limit int) ([]models.Report, error)
}

var (
	_ PipelineController = (*evaluator.Controller)(nil)
	_ ReportReader       = (store.ReportStore)(nil)
)

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: response and parameter helpers
//   - handlers_health.go: health endpoints
//   - handlers_pipelines.go: pipeline and report endpoints
type Handler struct {
	pipelines    PipelineController
	reports      ReportReader
	historyLimit int
	startTime    time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHistoryLimit sets the default number of reports returned by the
// history endpoint.
func WithHistoryLimit(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.historyLimit = n
		}
	}
}

// NewHandler creates a new API handler. reports may be nil, in which case
// the report endpoints answer 503.
func NewHandler(pipelines PipelineController, reports ReportReader, opts ...HandlerOption) *Handler {
	h := &Handler{
		pipelines:    pipelines,
		reports:      reports,
		historyLimit: store.DefaultHistoryLimit,
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
