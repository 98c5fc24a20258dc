// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package store persists pipeline run reports.

Two backends implement ReportStore:

  - BadgerStore: durable storage in BadgerDB. The newest snapshot of each
    pipeline lives under "report:latest:<id>"; every closed report is also
    kept under "report:history:<id>:<start-ms>" with a TTL.
  - MemoryStore: a map for tests and for deployments that do not need
    reports to survive a restart.

Hooks adapts a store to the WriteMetric and ReadMetric hooks carried by a
pipeline config.
*/
package store
