// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/symbology/internal/evaluator"
	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/store"
)

// HistoryRequest holds the query parameters of the history endpoint.
type HistoryRequest struct {
	ConfigID string `json:"id" validate:"required,max=128"`
	Limit    int    `json:"limit" validate:"min=1,max=500"`
}

// RunAccepted is the body of a successful run request.
type RunAccepted struct {
	UUID      string `json:"uuid"`
	Triggered bool   `json:"triggered"`
}

// CancelResult is the body of a cancel request.
type CancelResult struct {
	UUID      string `json:"uuid"`
	Cancelled bool   `json:"cancelled"`
}

// ListPipelines returns the status of every configured pipeline.
func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	statuses := h.pipelines.Statuses()
	respondSuccess(w, http.StatusOK, statuses, intPtr(len(statuses)))
}

// GetPipeline returns the status of one pipeline.
func (h *Handler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, ok := h.pipelines.Status(id)
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Pipeline not found", nil)
		return
	}
	respondSuccess(w, http.StatusOK, status, nil)
}

// RunPipeline starts a manual run. The run continues in the background
// after the response is written.
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.pipelines.Trigger(id)
	switch {
	case err == nil:
		logging.Ctx(r.Context()).Info().Str("config_id", sanitizeLogValue(id)).Msg("Manual run requested")
		respondSuccess(w, http.StatusAccepted, RunAccepted{UUID: id, Triggered: true}, nil)
	case errors.Is(err, evaluator.ErrUnknownPipeline):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Pipeline not found", nil)
	case errors.Is(err, evaluator.ErrAlreadyRunning):
		respondError(w, http.StatusConflict, ErrCodePipelineRunning, err.Error(), nil)
	case errors.Is(err, evaluator.ErrInvalidConfig):
		respondError(w, http.StatusUnprocessableEntity, ErrCodeInvalidConfig, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to start run", err)
	}
}

// CancelPipeline cancels the in-flight run of a pipeline.
func (h *Handler) CancelPipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cancelled, err := h.pipelines.Cancel(id)
	if errors.Is(err, evaluator.ErrUnknownPipeline) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Pipeline not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to cancel run", err)
		return
	}
	respondSuccess(w, http.StatusOK, CancelResult{UUID: id, Cancelled: cancelled}, nil)
}

// LatestReport returns the newest stored report of a pipeline, which may
// belong to a run still in progress.
func (h *Handler) LatestReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.checkReports(w, id) {
		return
	}

	report, err := h.reports.Latest(r.Context(), id)
	if errors.Is(err, store.ErrReportNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeReportNotFound, "No report stored for pipeline", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read report", err)
		return
	}
	respondSuccess(w, http.StatusOK, report, nil)
}

// ReportHistory returns closed reports of a pipeline, newest first.
func (h *Handler) ReportHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.checkReports(w, id) {
		return
	}

	limit, ok := getIntParam(r, "limit", h.historyLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
		return
	}
	req := HistoryRequest{ConfigID: id, Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	reports, err := h.reports.History(r.Context(), req.ConfigID, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read report history", err)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	respondSuccess(w, http.StatusOK, reports, intPtr(len(reports)))
}

// checkReports answers 503 when no store is configured and 404 when the
// pipeline is unknown.
func (h *Handler) checkReports(w http.ResponseWriter, id string) bool {
	if h.reports == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Report store not configured", nil)
		return false
	}
	if _, ok := h.pipelines.Status(id); !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Pipeline not found", nil)
		return false
	}
	return true
}
