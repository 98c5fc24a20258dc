// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
)

// ErrReportNotFound is returned when a pipeline has no stored report.
var ErrReportNotFound = errors.New("report not found")

// DefaultHistoryLimit caps History when the caller passes no limit.
const DefaultHistoryLimit = 20

// ReportStore persists run reports.
type ReportStore interface {
	// Write stores r as the latest report of its pipeline. Closed reports
	// are also appended to the pipeline's history. A report that does not
	// supersede the stored one is dropped without error.
	Write(ctx context.Context, r models.Report) error
	// Latest returns the newest report, or ErrReportNotFound.
	Latest(ctx context.Context, configID string) (*models.Report, error)
	// History returns closed reports, newest first.
	History(ctx context.Context, configID string, limit int) ([]models.Report, error)
	// Delete removes every report of a pipeline.
	Delete(ctx context.Context, configID string) error
	// Close releases the backend.
	Close() error
}

// supersedes reports whether next may replace current as the latest report.
// A report from an older run never replaces a newer one, and a closed run is
// never reopened by one of its own in-progress snapshots.
func supersedes(current, next models.Report) bool {
	if next.Trigger.From != current.Trigger.From {
		return next.Trigger.From > current.Trigger.From
	}
	return !next.InProgress() || current.InProgress()
}

// Hooks adapts s to the pipeline config hooks. Write failures are logged
// and dropped; a run never fails because its report could not be stored.
func Hooks(s ReportStore, timeout time.Duration) (models.WriteMetricFunc, models.ReadMetricFunc) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	write := func(r models.Report) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Write(ctx, r); err != nil {
			logging.Error().Err(err).Str("config_id", r.ConfigID).Msg("Failed to store report")
		}
	}

	read := func(configID string) (*models.Report, bool) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		r, err := s.Latest(ctx, configID)
		if err != nil {
			if !errors.Is(err, ErrReportNotFound) {
				logging.Warn().Err(err).Str("config_id", configID).Msg("Failed to read report")
			}
			return nil, false
		}
		return r, true
	}

	return write, read
}
