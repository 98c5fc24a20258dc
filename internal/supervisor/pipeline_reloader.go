// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/symbology/internal/evaluator"
	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/metrics"
	"github.com/tomtom215/symbology/internal/models"
)

// Errors for PipelineReloader
var (
	ErrNilConfigSource     = errors.New("config source cannot be nil")
	ErrNilPipelineManager  = errors.New("pipeline manager cannot be nil")
	ErrReloadAlreadyActive = errors.New("reload already in progress")
)

// PipelineManager is the part of the pipelines controller a reload drives.
type PipelineManager interface {
	Refresh(configs []*models.PipelineConfig) evaluator.RefreshSummary
	UpdateConfig(cfg *models.PipelineConfig) error
}

// PipelineReloader applies a re-read pipelines file to the controller.
//
// Refresh only diffs by UUID, so a reload also pushes the new config into
// every runner whose content changed. That cancels the runner's in-flight
// run and re-registers its schedule.
type PipelineReloader struct {
	source  evaluator.ConfigSource
	manager PipelineManager
	logger  zerolog.Logger

	mu sync.Mutex
}

// NewPipelineReloader creates a reloader over source and manager.
func NewPipelineReloader(source evaluator.ConfigSource, manager PipelineManager) (*PipelineReloader, error) {
	if source == nil {
		return nil, ErrNilConfigSource
	}
	if manager == nil {
		return nil, ErrNilPipelineManager
	}
	return &PipelineReloader{
		source:  source,
		manager: manager,
		logger:  logging.WithComponent("pipeline-reloader"),
	}, nil
}

// Reload loads the configs, refreshes the controller and updates changed
// runners. Concurrent calls are rejected with ErrReloadAlreadyActive.
func (r *PipelineReloader) Reload(ctx context.Context) (evaluator.RefreshSummary, error) {
	if !r.mu.TryLock() {
		return evaluator.RefreshSummary{}, ErrReloadAlreadyActive
	}
	defer r.mu.Unlock()

	configs, err := r.source.Load(ctx)
	metrics.RecordConfigReload(err)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to load pipeline configs, keeping current pipelines")
		return evaluator.RefreshSummary{}, fmt.Errorf("load pipeline configs: %w", err)
	}

	summary := r.manager.Refresh(configs)

	// First occurrence wins, matching Refresh.
	byID := make(map[string]*models.PipelineConfig, len(configs))
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if _, seen := byID[cfg.UUID]; !seen {
			byID[cfg.UUID] = cfg
		}
	}

	var errs []error
	for _, id := range summary.Changed {
		cfg, ok := byID[id]
		if !ok {
			continue
		}
		if err := r.manager.UpdateConfig(cfg); err != nil {
			errs = append(errs, fmt.Errorf("update %s: %w", id, err))
		}
	}

	r.logger.Info().
		Strs("added", summary.Added).
		Strs("removed", summary.Removed).
		Strs("changed", summary.Changed).
		Int("unchanged", len(summary.Unchanged)).
		Msg("Pipelines reloaded")

	return summary, errors.Join(errs...)
}
