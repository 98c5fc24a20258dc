// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package evaluator reconciles facility registrations against their most
recent visits and keeps each registration's marker color current.

Key Components:

  - ColorDecider: maps days since the last visit to a marker color using a
    pipeline's priority rules
  - Reporter: per-run accumulator that renders models.Report snapshots
  - Runner: owns one pipeline config; validation, single-flight runs,
    cancellation and schedule registration
  - Controller: owns the set of runners keyed by pipeline UUID and keeps it
    in step with a ConfigSource

A run pulls registration pages lazily from the Ona API. Each page is split
into batches of EditSubmissionChunks records; records inside a batch are
evaluated concurrently and batches run one after another. A snapshot of the
report is handed to the config's WriteMetric hook after every page and once
more when the run closes.

Cancellation is observed between pages. Work already dispatched for a batch
runs to completion so every remote edit ends with a recorded outcome.

Usage:

	ctrl, err := evaluator.NewController(source, evaluator.SchedulerFunc(schedule))
	if err != nil {
	    return err
	}
	if err := ctrl.RunOnSchedule(); err != nil {
	    logging.Warn().Err(err).Msg("some pipelines could not be scheduled")
	}
	defer ctrl.CancelAll()
*/
package evaluator
