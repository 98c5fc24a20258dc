// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package services

import (
	"context"
	"time"

	"github.com/tomtom215/symbology/internal/logging"
)

// GarbageCollector is satisfied by *store.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// GCService runs store garbage collection on a fixed interval.
type GCService struct {
	gc       GarbageCollector
	interval time.Duration
	name     string
}

// NewGCService creates a GC service. interval <= 0 defaults to ten minutes.
func NewGCService(gc GarbageCollector, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{
		gc:       gc,
		interval: interval,
		name:     "store-gc",
	}
}

// Serve implements suture.Service. GC errors are logged, not returned.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.gc.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Report store GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *GCService) String() string {
	return s.name
}
