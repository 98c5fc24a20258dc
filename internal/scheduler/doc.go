// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

// Package scheduler parses cron expressions and fires callbacks on them.
//
// The evaluator treats scheduling as a capability: it hands a schedule
// string and a zero-argument callback to a scheduler and keeps the returned
// handle to stop it later. CronScheduler is the in-process implementation
// used by the server.
package scheduler
