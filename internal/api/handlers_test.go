// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/evaluator"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/store"
)

// fakeController serves fixed statuses and records triggers.
type fakeController struct {
	mu         sync.Mutex
	statuses   []models.PipelineStatus
	triggerErr map[string]error
	triggered  []string
	running    map[string]bool
}

func newFakeController(ids ...string) *fakeController {
	c := &fakeController{triggerErr: map[string]error{}, running: map[string]bool{}}
	for _, id := range ids {
		c.statuses = append(c.statuses, models.PipelineStatus{UUID: id, Valid: true, Schedule: "*/15 * * * *"})
	}
	return c
}

func (c *fakeController) Statuses() []models.PipelineStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.PipelineStatus, len(c.statuses))
	copy(out, c.statuses)
	for i := range out {
		out[i].Running = c.running[out[i].UUID]
	}
	return out
}

func (c *fakeController) Status(id string) (models.PipelineStatus, bool) {
	for _, s := range c.Statuses() {
		if s.UUID == id {
			return s, true
		}
	}
	return models.PipelineStatus{}, false
}

func (c *fakeController) Trigger(id string) error {
	if _, ok := c.Status(id); !ok {
		return fmt.Errorf("%w: %s", evaluator.ErrUnknownPipeline, id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.triggerErr[id]; err != nil {
		return err
	}
	c.triggered = append(c.triggered, id)
	c.running[id] = true
	return nil
}

func (c *fakeController) Cancel(id string) (bool, error) {
	if _, ok := c.Status(id); !ok {
		return false, fmt.Errorf("%w: %s", evaluator.ErrUnknownPipeline, id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.running[id]
	c.running[id] = false
	return was, nil
}

// apiResponse mirrors models.APIResponse with raw data for decoding.
type apiResponse struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func closedReport(id string, from int64) models.Report {
	to := from + 1000
	took := int64(1000)
	return models.Report{
		ConfigID: id,
		Trigger: models.Trigger{
			By:        models.TriggeredBySchedule,
			From:      from,
			To:        &to,
			TookMills: &took,
		},
		TotalFacilitiesEvaluated: 3,
	}
}

func newTestServer(t *testing.T, ctrl PipelineController, reports ReportReader) http.Handler {
	t.Helper()
	cfg := DefaultChiMiddlewareConfig()
	cfg.RunRateLimit = 0
	return NewRouter(NewHandler(ctrl, reports), cfg).SetupChi()
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthLive_Success(t *testing.T) {
	t.Parallel()

	handler := NewHandler(newFakeController(), nil)
	handler.startTime = time.Now().Add(-time.Hour)

	rec := httptest.NewRecorder()
	handler.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	var health HealthStatus
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Status != "alive" || health.Uptime < 3600 {
		t.Errorf("health = %+v", health)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	handler := NewHandler(newFakeController(), nil)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HealthLive(rec, httptest.NewRequest(method, "/api/v1/health/live", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("HealthLive: expected status 405 for %s, got %d", method, rec.Code)
			}

			rec = httptest.NewRecorder()
			handler.HealthReady(rec, httptest.NewRequest(method, "/api/v1/health/ready", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("HealthReady: expected status 405 for %s, got %d", method, rec.Code)
			}
		})
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController("a", "b")
	ctrl.running["b"] = true
	srv := newTestServer(t, ctrl, nil)

	rec := serve(srv, http.MethodGet, "/api/v1/health/ready")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var health HealthStatus
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Pipelines == nil || *health.Pipelines != 2 {
		t.Errorf("Pipelines = %v, want 2", health.Pipelines)
	}
	if health.Running == nil || *health.Running != 1 {
		t.Errorf("Running = %v, want 1", health.Running)
	}

	notReady := NewHandler(nil, nil)
	rec = httptest.NewRecorder()
	notReady.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 without controller, got %d", rec.Code)
	}
}

func TestListAndGetPipelines(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newFakeController("a", "b"), nil)

	rec := serve(srv, http.MethodGet, "/api/v1/pipelines")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != StatusSuccess {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if resp.Metadata.Count == nil || *resp.Metadata.Count != 2 {
		t.Errorf("metadata count = %v, want 2", resp.Metadata.Count)
	}
	var statuses []models.PipelineStatus
	if err := json.Unmarshal(resp.Data, &statuses); err != nil {
		t.Fatalf("Failed to decode statuses: %v", err)
	}
	if len(statuses) != 2 || statuses[0].UUID != "a" {
		t.Errorf("statuses = %+v", statuses)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("Expected ETag header")
	}

	rec = serve(srv, http.MethodGet, "/api/v1/pipelines/b")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var status models.PipelineStatus
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.UUID != "b" {
		t.Errorf("UUID = %q, want b", status.UUID)
	}

	rec = serve(srv, http.MethodGet, "/api/v1/pipelines/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", resp.Error)
	}
}

func TestRunPipeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		id         string
		triggerErr error
		wantStatus int
		wantCode   string
	}{
		{name: "accepted", id: "a", wantStatus: http.StatusAccepted},
		{name: "unknown pipeline", id: "missing", wantStatus: http.StatusNotFound, wantCode: ErrCodeNotFound},
		{name: "already running", id: "a", triggerErr: evaluator.ErrAlreadyRunning, wantStatus: http.StatusConflict, wantCode: ErrCodePipelineRunning},
		{
			name:       "invalid config",
			id:         "a",
			triggerErr: fmt.Errorf("%w, %v", evaluator.ErrInvalidConfig, errors.New("symbolConfig is required")),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrCodeInvalidConfig,
		},
		{name: "unexpected error", id: "a", triggerErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := newFakeController("a")
			if tt.triggerErr != nil {
				ctrl.triggerErr["a"] = tt.triggerErr
			}
			srv := newTestServer(t, ctrl, nil)

			rec := serve(srv, http.MethodPost, "/api/v1/pipelines/"+tt.id+"/run")
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			resp := decodeResponse(t, rec)
			if tt.wantCode == "" {
				if len(ctrl.triggered) != 1 {
					t.Errorf("triggered = %v, want one run", ctrl.triggered)
				}
				return
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestRunPipeline_InvalidConfigMessage(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController("a")
	ctrl.triggerErr["a"] = fmt.Errorf("%w, %v", evaluator.ErrInvalidConfig, errors.New("symbolConfig is required"))
	srv := newTestServer(t, ctrl, nil)

	resp := decodeResponse(t, serve(srv, http.MethodPost, "/api/v1/pipelines/a/run"))
	if resp.Error == nil || !strings.Contains(resp.Error.Message, "Configuration is not valid") {
		t.Errorf("error = %+v, want the invalid configuration message", resp.Error)
	}
}

func TestRunPipeline_RateLimited(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.RunRateLimit = 1
	cfg.RunRateWindow = time.Hour
	ctrl := newFakeController("a")
	ctrl.triggerErr["a"] = evaluator.ErrAlreadyRunning
	srv := NewRouter(NewHandler(ctrl, nil), cfg).SetupChi()

	if rec := serve(srv, http.MethodPost, "/api/v1/pipelines/a/run"); rec.Code != http.StatusConflict {
		t.Fatalf("first request: expected status 409, got %d", rec.Code)
	}
	rec := serve(srv, http.MethodPost, "/api/v1/pipelines/a/run")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected status 429, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v, want TOO_MANY_REQUESTS", resp.Error)
	}

	// Reads are not limited
	if rec := serve(srv, http.MethodGet, "/api/v1/pipelines/a"); rec.Code != http.StatusOK {
		t.Errorf("status read: expected status 200, got %d", rec.Code)
	}
}

func TestCancelPipeline(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController("a")
	ctrl.running["a"] = true
	srv := newTestServer(t, ctrl, nil)

	for _, want := range []bool{true, false} {
		rec := serve(srv, http.MethodPost, "/api/v1/pipelines/a/cancel")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
		var result CancelResult
		if err := json.Unmarshal(decodeResponse(t, rec).Data, &result); err != nil {
			t.Fatalf("Failed to decode cancel result: %v", err)
		}
		if result.Cancelled != want {
			t.Errorf("cancelled = %v, want %v", result.Cancelled, want)
		}
	}

	if rec := serve(srv, http.MethodPost, "/api/v1/pipelines/missing/cancel"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestLatestReport(t *testing.T) {
	t.Parallel()

	reports := store.NewMemoryStore(10)
	if err := reports.Write(context.Background(), closedReport("a", 1_700_000_000_000)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	srv := newTestServer(t, newFakeController("a", "b"), reports)

	rec := serve(srv, http.MethodGet, "/api/v1/pipelines/a/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var report models.Report
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.ConfigID != "a" || report.TotalFacilitiesEvaluated != 3 {
		t.Errorf("report = %+v", report)
	}

	rec = serve(srv, http.MethodGet, "/api/v1/pipelines/b/report")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 for pipeline without report, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error == nil || resp.Error.Code != ErrCodeReportNotFound {
		t.Errorf("error = %+v, want REPORT_NOT_FOUND", resp.Error)
	}

	if rec := serve(srv, http.MethodGet, "/api/v1/pipelines/missing/report"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown pipeline, got %d", rec.Code)
	}
}

func TestReportHistory(t *testing.T) {
	t.Parallel()

	reports := store.NewMemoryStore(10)
	for i := range 5 {
		if err := reports.Write(context.Background(), closedReport("a", int64(1_700_000_000_000+i*60_000))); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	srv := newTestServer(t, newFakeController("a", "b"), reports)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
	}{
		{name: "default limit", target: "/api/v1/pipelines/a/reports", wantStatus: http.StatusOK, wantCount: 5},
		{name: "explicit limit", target: "/api/v1/pipelines/a/reports?limit=2", wantStatus: http.StatusOK, wantCount: 2},
		{name: "empty history", target: "/api/v1/pipelines/b/reports", wantStatus: http.StatusOK, wantCount: 0},
		{name: "non-integer limit", target: "/api/v1/pipelines/a/reports?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "zero limit", target: "/api/v1/pipelines/a/reports?limit=0", wantStatus: http.StatusBadRequest},
		{name: "limit too large", target: "/api/v1/pipelines/a/reports?limit=501", wantStatus: http.StatusBadRequest},
		{name: "unknown pipeline", target: "/api/v1/pipelines/missing/reports", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, http.MethodGet, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var history []models.Report
			if err := json.Unmarshal(decodeResponse(t, rec).Data, &history); err != nil {
				t.Fatalf("Failed to decode history: %v", err)
			}
			if len(history) != tt.wantCount {
				t.Fatalf("len(history) = %d, want %d", len(history), tt.wantCount)
			}
			for i := 1; i < len(history); i++ {
				if history[i-1].Trigger.From < history[i].Trigger.From {
					t.Errorf("history not newest first: %d before %d", history[i-1].Trigger.From, history[i].Trigger.From)
				}
			}
		})
	}
}

func TestReportEndpoints_NoStore(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newFakeController("a"), nil)
	for _, target := range []string{"/api/v1/pipelines/a/report", "/api/v1/pipelines/a/reports"} {
		if rec := serve(srv, http.MethodGet, target); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503, got %d", target, rec.Code)
		}
	}
}

func TestRealControllerAdmission(t *testing.T) {
	t.Parallel()

	invalid := &models.PipelineConfig{UUID: "bad", BaseURL: "not a url", Schedule: "* * * * *"}
	source := evaluator.ConfigSourceFunc(func(context.Context) ([]*models.PipelineConfig, error) {
		return []*models.PipelineConfig{invalid}, nil
	})
	ctrl, err := evaluator.NewController(source, nil)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	srv := newTestServer(t, ctrl, nil)

	if rec := serve(srv, http.MethodPost, "/api/v1/pipelines/bad/run"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid config: expected status 422, got %d", rec.Code)
	}
	if rec := serve(srv, http.MethodPost, "/api/v1/pipelines/other/run"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown pipeline: expected status 404, got %d", rec.Code)
	}

	rec := serve(srv, http.MethodGet, "/api/v1/pipelines/bad")
	var status models.PipelineStatus
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.Valid || status.ValidationError == "" {
		t.Errorf("status = %+v, want invalid with a validation error", status)
	}
}
