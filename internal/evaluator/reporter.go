// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package evaluator

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/result"
)

// Reporter accumulates the outcome of one run. It is safe for concurrent
// use; records inside a batch tally into it in parallel. Once a closing
// snapshot has been taken every further update is ignored.
type Reporter struct {
	configID string
	now      func() time.Time
	logger   logging.LogFn

	mu            sync.Mutex
	by            models.TriggeredBy
	from          time.Time
	to            time.Time
	closed        bool
	total         *int
	evaluated     int
	modified      map[string]int
	notModified   map[result.Code]int
	notEvaluated  map[result.Code]int
	warnings      map[result.Code]int
	generalErrors []string
}

// NewReporter creates a reporter for configID. now defaults to time.Now.
func NewReporter(configID string, now func() time.Time, logger logging.LogFn) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{
		configID:     configID,
		now:          now,
		logger:       logger,
		modified:     make(map[string]int),
		notModified:  make(map[result.Code]int),
		notEvaluated: make(map[result.Code]int),
		warnings:     make(map[result.Code]int),
	}
}

// Start stamps the trigger and start time.
func (r *Reporter) Start(by models.TriggeredBy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.by = by
	r.from = r.now()
}

// SetTotal records the registration form's submission count.
func (r *Reporter) SetTotal(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.total = &n
}

// Evaluated counts one record picked up for evaluation.
func (r *Reporter) Evaluated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.evaluated++
	}
}

// NotEvaluated adds n records that could not be evaluated under code.
// Counts for the same code accumulate across pages.
func (r *Reporter) NotEvaluated(code result.Code, n int) {
	if n <= 0 {
		return
	}
	code = r.normalize(code, result.UnknownTransformError)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.notEvaluated[code] += n
	}
}

// NotModified counts one evaluated record whose color was left as is and
// returns the code it was tallied under.
func (r *Reporter) NotModified(code, fallback result.Code) result.Code {
	code = r.normalize(code, fallback)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.notModified[code]++
	}
	return code
}

// Modified counts one record whose marker was updated to color.
func (r *Reporter) Modified(color string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.modified[color]++
	}
}

// Warning counts one warning raised while evaluating a record.
func (r *Reporter) Warning(code result.Code) {
	if !code.Valid() {
		r.logger.Emit(logging.WarnEntry("Dropping unknown warning code %q", code))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.warnings[code]++
	}
}

// GeneralError records a run-level error verbatim.
func (r *Reporter) GeneralError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.generalErrors = append(r.generalErrors, msg)
	}
}

// normalize maps an empty code to fallback and an unknown one to the
// unknown code of fallback's category.
func (r *Reporter) normalize(code, fallback result.Code) result.Code {
	if code == "" {
		return fallback
	}
	if code.Valid() {
		return code
	}
	r.logger.Emit(logging.WarnEntry("Unknown result code %q tallied as %s", code, fallback))
	return fallback
}

// Snapshot renders the current state. With close set the end time is
// stamped and the reporter stops accepting updates; later snapshots repeat
// the closed report.
func (r *Reporter) Snapshot(closeReport bool) models.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	if closeReport && !r.closed {
		r.to = r.now()
		r.closed = true
	}

	rep := models.Report{
		ConfigID: r.configID,
		Trigger: models.Trigger{
			By:   r.by,
			From: r.from.UnixMilli(),
		},
		TotalFacilitiesEvaluated: r.evaluated,
		FacilitiesNotEvaluated:   codeBreakdown(r.notEvaluated),
		Warnings:                 codeBreakdown(r.warnings),
		GeneralErrors:            slices.Clone(r.generalErrors),
	}
	if r.closed {
		to := r.to.UnixMilli()
		took := r.to.Sub(r.from).Milliseconds()
		rep.Trigger.To = &to
		rep.Trigger.TookMills = &took
	}
	if r.total != nil {
		total := *r.total
		rep.TotalFacilities = &total
	}

	modified := models.ColorBreakdown{Colors: maps.Clone(r.modified)}
	for _, n := range r.modified {
		modified.Total += n
	}
	notModified := codeBreakdown(r.notModified)
	rep.FacilitiesEvaluated = models.EvaluatedBreakdown{
		Total:       modified.Total + notModified.Total,
		Modified:    modified,
		NotModified: notModified,
	}
	return rep
}

func codeBreakdown(counts map[result.Code]int) models.CodeBreakdown {
	b := models.CodeBreakdown{Codes: make(map[result.Code]models.CodeCount, len(counts))}
	for code, n := range counts {
		b.Total += n
		b.Codes[code] = models.CodeCount{Total: n, Description: code.Description()}
	}
	return b
}
