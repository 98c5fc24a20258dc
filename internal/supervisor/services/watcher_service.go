// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/symbology/internal/logging"
)

// WatchFunc starts watching path and returns a function that stops it.
// config.WatchConfigFile satisfies it.
type WatchFunc func(path string, callback func()) (func() error, error)

// ReloadFunc applies the watched file.
type ReloadFunc func(ctx context.Context) error

// DefaultDebounce collapses bursts of file events from editors that
// write in several steps.
const DefaultDebounce = 500 * time.Millisecond

// WatcherService reloads the pipelines whenever the pipelines file changes.
type WatcherService struct {
	path     string
	watch    WatchFunc
	reload   ReloadFunc
	debounce time.Duration
	logger   zerolog.Logger
	name     string
}

// NewWatcherService creates a watcher for path. debounce <= 0 uses
// DefaultDebounce.
//
//	svc := services.NewWatcherService(cfg.Pipelines.File, config.WatchConfigFile, reload, 0)
//	tree.AddPipelineService(svc)
func NewWatcherService(path string, watch WatchFunc, reload ReloadFunc, debounce time.Duration) *WatcherService {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &WatcherService{
		path:     path,
		watch:    watch,
		reload:   reload,
		debounce: debounce,
		logger:   logging.WithComponent("config-watcher"),
		name:     "pipelines-watcher",
	}
}

// Serve implements suture.Service. Reload errors are logged and the watch
// continues; a failure to start the watch is returned for restart.
func (s *WatcherService) Serve(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	stop, err := s.watch(s.path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("pipelines watcher start failed: %w", err)
	}
	defer func() {
		if err := stop(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to stop file watch")
		}
	}()

	s.logger.Info().Str("path", s.path).Msg("Watching pipelines file")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}

		// Wait for the writes to settle, absorbing further events.
		timer := time.NewTimer(s.debounce)
	settle:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-changed:
				timer.Reset(s.debounce)
			case <-timer.C:
				break settle
			}
		}

		if err := s.reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Str("path", s.path).Msg("Pipelines reload failed")
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *WatcherService) String() string {
	return s.name
}
