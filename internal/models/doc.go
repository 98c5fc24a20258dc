// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package models defines the data structures shared across Symbology.

Key Components:

  - PipelineConfig: one reconciliation unit (form pair, priority rules,
    credentials, schedule, batch sizes and hooks)
  - PriorityRule / Overflow: per-priority-level day thresholds to colors
  - Submission: a dynamic Ona data record with typed accessors
  - Form: form metadata carrying the authoritative submission count
  - Report: the per-run metric report, with flattened breakdown JSON
  - APIResponse: the HTTP response envelope

JSON keys follow the field names used by existing pipeline config files
(regFormId, symbolConfig, overFlowDays, ...), so a config written for an
earlier deployment loads unchanged. The same names are used as koanf keys.
*/
package models
