// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

// Package onadata is a resilient client for the Ona data API.
//
// It exposes the three calls the evaluator needs:
//
//   - FetchForm: form metadata, including the authoritative submission count
//   - FetchSubmissionsPaginated: a lazy, single-use iter.Seq of pages
//   - EditSubmission / UploadMarkerColor: replace one submission, stamping a
//     fresh instance id and keeping the previous one as deprecatedID
//
// Every call goes through the same retry policy: at most 5 attempts, a linear
// delay of attempt x base (20s by default), transport errors retried only for
// GET, and HTTP 5xx/429 retried for any method. Calls can optionally pass
// through an x/time/rate limiter and a gobreaker circuit breaker shared per
// API host.
//
// Results are result.Result values tagged with result codes, so callers can
// tally failures without inspecting errors.
package onadata
