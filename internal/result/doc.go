// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

// Package result defines the outcome type shared by the evaluation engine and
// the closed catalogue of result codes tallied in reports.
//
// Every remote call, record transform and page fetch returns a Result[T].
// Record- and page-level problems are values, never panics; the only panics
// in this package guard contract violations such as Fail(nil).
//
//	r := result.Fail[string](err, result.Detail{Code: result.NetworkError})
//	if r.IsFailure() {
//	    report.Tally(r.Code())
//	}
package result
