// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

// Package validation wraps go-playground/validator v10 with a shared
// instance, a cron tag and readable error messages.
//
//	if err := validation.ValidatePipeline(&cfg); err != nil {
//	    // "schedule must be a valid cron expression; regFormId is required"
//	}
package validation
