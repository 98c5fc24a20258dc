// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package evaluator

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/onadata"
	"github.com/tomtom215/symbology/internal/result"
)

// API is the part of the Ona client a run needs.
type API interface {
	FetchForm(ctx context.Context, formID string) result.Result[*models.Form]
	FetchPage(ctx context.Context, formID string, page, pageSize int, extra map[string]string) result.Result[onadata.Page]
	FetchSubmissionsPaginated(ctx context.Context, formID string, totalCount int, extra map[string]string, pageSize int) iter.Seq[result.Result[onadata.Page]]
	UploadMarkerColor(ctx context.Context, formID string, submission models.Submission, color string) result.Result[map[string]any]
}

var _ API = (*onadata.Client)(nil)

// latestVisitSort orders visits newest first.
var latestVisitSort = mustJSON(map[string]int{models.FieldVisitTime: -1})

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// facilityJob is everything needed to reconcile one registration record.
type facilityJob struct {
	api         API
	decider     *ColorDecider
	regFormID   string
	visitFormID string
	now         func() time.Time
	logger      logging.LogFn
}

// transform reconciles one registration record. The success value is the
// decided color; Detail.Color is set only when the marker was rewritten.
func (j *facilityJob) transform(ctx context.Context, record models.Submission) result.Result[string] {
	visit := j.latestVisit(ctx, record)
	if visit.IsFailure() {
		return result.Bubble[string](visit)
	}

	days := NoVisitDays
	var warning result.Code
	if last := visit.Value(); last == nil {
		warning = result.NoVisitSubmissions
	} else if at, err := last.VisitTime(); err != nil {
		j.logger.Emit(logging.WarnEntry("Visit %s for facility %s has unreadable %s: %v", last.ID(), record.ID(), models.FieldVisitTime, err))
		warning = result.NoVisitSubmissions
	} else {
		days = DaysSince(at, j.now())
	}

	decided := j.decider.Decide(days, record)
	if warning != "" {
		decided = decided.WithWarning(warning)
	}
	if decided.IsFailure() {
		j.logger.Emit(logging.VerboseEntry("Facility %s not evaluated: %v", record.ID(), decided.Err()))
		return decided
	}

	color := decided.Value()
	warnings := detailWarnings(decided)
	if color == record.MarkerColor() {
		return result.Ok(color, result.Detail{Code: result.NoSymbologyChangeNeeded, Warnings: warnings})
	}

	edit := j.api.UploadMarkerColor(ctx, j.regFormID, record, color)
	if edit.IsFailure() {
		out := result.Bubble[string](edit)
		for _, w := range warnings {
			out = out.WithWarning(w)
		}
		return out
	}
	j.logger.Emit(logging.VerboseEntry("Facility %s marker changed from %q to %q", record.ID(), record.MarkerColor(), color))
	return result.Ok(color, result.Detail{Code: result.MarkerColorUpdated, Color: color, Warnings: warnings})
}

// latestVisit returns the newest visit for record, or nil when it has none.
func (j *facilityJob) latestVisit(ctx context.Context, record models.Submission) result.Result[models.Submission] {
	query, err := json.Marshal(map[string]any{models.FieldVisitFacility: record[models.FieldID]})
	if err != nil {
		return result.Fail[models.Submission](fmt.Errorf("encode visit query: %w", err),
			result.Detail{Code: result.UnknownTransformError})
	}

	page := j.api.FetchPage(ctx, j.visitFormID, 1, 1, map[string]string{
		"query": string(query),
		"sort":  latestVisitSort,
	})
	if page.IsFailure() {
		return result.Bubble[models.Submission](page)
	}
	if visits := page.Value(); len(visits) > 0 {
		return result.Ok(visits[0])
	}
	return result.Ok[models.Submission](nil)
}

func detailWarnings[T any](r result.Result[T]) []result.Code {
	d, _ := r.Detail()
	return d.Warnings
}
