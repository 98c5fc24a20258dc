// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package evaluator

import (
	"context"
	"iter"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/onadata"
	"github.com/tomtom215/symbology/internal/result"
)

const (
	testRegFormID   = "3623"
	testVisitFormID = "3624"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// fakeOna serves the three Ona endpoints a run uses from in-memory data.
type fakeOna struct {
	t *testing.T

	mu            sync.Mutex
	registrations []models.Submission
	visits        map[string]time.Time // facility _id -> last visit
	edits         []map[string]any
	formStatus    int
	editStatus    int
	pageStatus    map[int]int // registration page -> status

	requests     atomic.Int32
	formRequests atomic.Int32
	pageRequests atomic.Int32
	editRequests atomic.Int32

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	// onPage, when set, runs before a registration page is served.
	onPage func(page int)
	// onForm, when set, runs before the form is served.
	onForm func()
}

func newFakeOna(t *testing.T) *fakeOna {
	t.Helper()
	return &fakeOna{t: t, visits: make(map[string]time.Time)}
}

func (f *fakeOna) addFacility(id int, priority, color string, lastVisit *time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := models.Submission{
		models.FieldID:          json.Number(strconv.Itoa(id)),
		models.FieldInstanceID:  "uuid:reg-" + strconv.Itoa(id),
		models.FieldMarkerColor: color,
	}
	if priority != "" {
		rec[models.FieldPriorityLevel] = priority
	}
	f.registrations = append(f.registrations, rec)
	if lastVisit != nil {
		f.visits[strconv.Itoa(id)] = *lastVisit
	}
}

func (f *fakeOna) start() *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	f.t.Cleanup(srv.Close)
	return srv
}

func (f *fakeOna) serve(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	path := strings.TrimPrefix(r.URL.Path, "/")

	switch {
	case r.Method == http.MethodGet && path == onadata.FormEndpoint+"/"+testRegFormID:
		f.formRequests.Add(1)
		if f.onForm != nil {
			f.onForm()
		}
		if f.formStatus != 0 {
			http.Error(w, "form unavailable", f.formStatus)
			return
		}
		f.mu.Lock()
		n := len(f.registrations)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"formid": 3623, "num_of_submissions": n})

	case r.Method == http.MethodGet && path == onadata.DataEndpoint+"/"+testRegFormID:
		f.pageRequests.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		if f.onPage != nil {
			f.onPage(page)
		}
		if status, ok := f.pageStatus[page]; ok {
			http.Error(w, "page unavailable", status)
			return
		}
		f.mu.Lock()
		lo := min((page-1)*size, len(f.registrations))
		hi := min(lo+size, len(f.registrations))
		out := f.registrations[lo:hi]
		f.mu.Unlock()
		writeJSON(w, out)

	case r.Method == http.MethodGet && path == onadata.DataEndpoint+"/"+testVisitFormID:
		cur := f.inFlight.Add(1)
		defer f.inFlight.Add(-1)
		for {
			prev := f.maxInFlight.Load()
			if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}

		var query map[string]json.Number
		if err := json.Unmarshal([]byte(r.URL.Query().Get("query")), &query); err != nil {
			f.t.Errorf("bad visit query %q: %v", r.URL.Query().Get("query"), err)
		}
		if got := r.URL.Query().Get("sort"); got != `{"endtime":-1}` {
			f.t.Errorf("unexpected visit sort %q", got)
		}
		if r.URL.Query().Get("page_size") != "1" {
			f.t.Errorf("visit lookup should request a single record")
		}
		f.mu.Lock()
		at, ok := f.visits[query[models.FieldVisitFacility].String()]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, []any{})
			return
		}
		writeJSON(w, []map[string]any{{
			models.FieldID:            json.Number("9" + query[models.FieldVisitFacility].String()),
			models.FieldVisitFacility: query[models.FieldVisitFacility],
			models.FieldVisitTime:     at.Format(time.RFC3339),
		}})

	case r.Method == http.MethodPost && path == onadata.EditSubmissionEndpoint:
		f.editRequests.Add(1)
		if f.editStatus != 0 {
			http.Error(w, "edit failed", f.editStatus)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			f.t.Errorf("decode edit: %v", err)
		}
		f.mu.Lock()
		f.edits = append(f.edits, payload)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"message": "Successful submission."})

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.String())
		http.NotFound(w, r)
	}
}

func (f *fakeOna) editedColors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.edits))
	for _, e := range f.edits {
		sub := e["submission"].(map[string]any)
		out[models.Submission(sub).ID()] = sub[models.FieldMarkerColor].(string)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func daysAgo(n int) *time.Time {
	t := testNow.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

// reportSink collects every snapshot handed to the write hook.
type reportSink struct {
	mu      sync.Mutex
	reports []models.Report
}

func (s *reportSink) write(r models.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

func (s *reportSink) all() []models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Report(nil), s.reports...)
}

// logSink collects engine log entries.
type logSink struct {
	mu      sync.Mutex
	entries []logging.Entry
}

func (s *logSink) log(e logging.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *logSink) contains(level logging.EntryLevel, substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func veryHighRules() []models.PriorityRule {
	return []models.PriorityRule{
		{
			PriorityLevel: "Very_High",
			Frequency:     "Monthly",
			SymbologyOnOverflow: []models.Overflow{
				{OverflowDays: 5, Color: "red"},
				{OverflowDays: 4, Color: "yellow"},
			},
		},
		{
			PriorityLevel: "Low",
			Frequency:     "Quarterly",
			SymbologyOnOverflow: []models.Overflow{
				{OverflowDays: 30, Color: "yellow"},
				{OverflowDays: 90, Color: "red"},
			},
		},
	}
}

func testConfig(baseURL string) *models.PipelineConfig {
	return &models.PipelineConfig{
		UUID:         "cfg-1",
		BaseURL:      baseURL,
		RegFormID:    testRegFormID,
		VisitFormID:  testVisitFormID,
		APIToken:     "token",
		SymbolConfig: veryHighRules(),
		Schedule:     "*/5 * * * *",
	}
}

func fastClient() RunnerOption {
	return WithClientOptions(onadata.WithRetryPolicy(onadata.DefaultMaxAttempts, 0))
}

// fakeAPI is an in-memory API for tests that do not need HTTP.
type fakeAPI struct {
	total int
	calls atomic.Int32
	block chan struct{}
}

func (f *fakeAPI) FetchForm(ctx context.Context, _ string) result.Result[*models.Form] {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return result.Ok(&models.Form{NumOfSubmissions: f.total})
}

func (f *fakeAPI) FetchPage(context.Context, string, int, int, map[string]string) result.Result[onadata.Page] {
	f.calls.Add(1)
	return result.Ok(onadata.Page{})
}

func (f *fakeAPI) FetchSubmissionsPaginated(ctx context.Context, formID string, _ int, extra map[string]string, pageSize int) iter.Seq[result.Result[onadata.Page]] {
	return func(yield func(result.Result[onadata.Page]) bool) {
		yield(f.FetchPage(ctx, formID, 1, pageSize, extra))
	}
}

func (f *fakeAPI) UploadMarkerColor(context.Context, string, models.Submission, string) result.Result[map[string]any] {
	f.calls.Add(1)
	return result.Ok(map[string]any{})
}
