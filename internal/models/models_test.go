// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/result"
)

func TestReportJSONShape(t *testing.T) {
	t.Parallel()

	total := 10
	to := int64(2000)
	took := int64(1000)
	r := Report{
		ConfigID:                 "cfg-1",
		Trigger:                  Trigger{By: TriggeredByManual, From: 1000, To: &to, TookMills: &took},
		TotalFacilities:          &total,
		TotalFacilitiesEvaluated: 10,
		FacilitiesEvaluated: EvaluatedBreakdown{
			Total:    10,
			Modified: ColorBreakdown{Total: 8, Colors: map[string]int{"red": 8}},
			NotModified: CodeBreakdown{Total: 2, Codes: map[result.Code]CodeCount{
				result.MissingPriorityLevel: {Total: 2, Description: result.MissingPriorityLevel.Description()},
			}},
		},
		FacilitiesNotEvaluated: CodeBreakdown{},
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	evaluated := generic["facilitiesEvaluated"].(map[string]any)
	modified := evaluated["modified"].(map[string]any)
	if modified["red"].(float64) != 8 || modified["total"].(float64) != 8 {
		t.Errorf("unexpected modified breakdown %v", modified)
	}
	notModified := evaluated["notModified"].(map[string]any)
	ecode2 := notModified["ECODE2"].(map[string]any)
	if ecode2["total"].(float64) != 2 || ecode2["description"] != "Facility does not have a priority level" {
		t.Errorf("unexpected notModified breakdown %v", notModified)
	}
	notEvaluated := generic["facilitiesNotEvaluated"].(map[string]any)
	if notEvaluated["total"].(float64) != 0 || len(notEvaluated) != 1 {
		t.Errorf("unexpected notEvaluated breakdown %v", notEvaluated)
	}
	if _, ok := generic["generalErrors"]; ok {
		t.Error("generalErrors should be omitted when empty")
	}

	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if back.FacilitiesEvaluated.Modified.Colors["red"] != 8 {
		t.Errorf("colors lost: %+v", back.FacilitiesEvaluated.Modified)
	}
	if back.FacilitiesEvaluated.NotModified.Count(result.MissingPriorityLevel) != 2 {
		t.Errorf("codes lost: %+v", back.FacilitiesEvaluated.NotModified)
	}
	if back.InProgress() {
		t.Error("closed report reported as in progress")
	}
}

func TestOpenReportOmitsEnd(t *testing.T) {
	t.Parallel()

	r := Report{ConfigID: "c", Trigger: Trigger{By: TriggeredBySchedule, From: 5}}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, key := range []string{`"to"`, `"tookMills"`, `"totalFacilities"`} {
		if strings.Contains(s, key) {
			t.Errorf("open report should omit %s: %s", key, s)
		}
	}
	if !r.InProgress() {
		t.Error("expected in progress")
	}
}

func TestSubmissionAccessors(t *testing.T) {
	t.Parallel()

	var s Submission
	raw := `{"_id": 3137, "marker-color": "red", "priority_level": "Very_High",
		"meta/instanceID": "uuid:abc", "endtime": "2024-03-01T10:00:00.000+03:00"}`
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&s); err != nil {
		t.Fatal(err)
	}

	if s.ID() != "3137" {
		t.Errorf("ID = %q", s.ID())
	}
	if s.MarkerColor() != "red" || s.PriorityLevel() != "Very_High" || s.InstanceID() != "uuid:abc" {
		t.Errorf("unexpected accessors on %v", s)
	}
	visit, err := s.VisitTime()
	if err != nil {
		t.Fatalf("VisitTime: %v", err)
	}
	if !visit.Equal(time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected visit time %v", visit)
	}

	clone := s.Clone()
	clone[FieldMarkerColor] = "green"
	if s.MarkerColor() != "red" {
		t.Error("Clone shares storage")
	}

	if _, err := (Submission{"endtime": "yesterday"}).VisitTime(); err == nil {
		t.Error("expected parse error")
	}
	if _, err := (Submission{}).VisitTime(); err == nil {
		t.Error("expected missing field error")
	}
	if (Submission{"_id": 12.0}).ID() != "12" {
		t.Error("float ids should render without exponent")
	}
}

func TestPipelineConfigDefaults(t *testing.T) {
	t.Parallel()

	var c PipelineConfig
	if c.PageSize() != DefaultRegFormSubmissionChunks {
		t.Errorf("PageSize = %d", c.PageSize())
	}
	if c.EditBatchSize() != DefaultEditSubmissionChunks {
		t.Errorf("EditBatchSize = %d", c.EditBatchSize())
	}
	if c.Baseline() != "green" {
		t.Errorf("Baseline = %q", c.Baseline())
	}

	c.RegFormSubmissionChunks = 50
	c.EditSubmissionChunks = 5
	c.BaselineColor = "blue"
	if c.PageSize() != 50 || c.EditBatchSize() != 5 || c.Baseline() != "blue" {
		t.Error("explicit values not honoured")
	}
}

func TestPipelineConfigFingerprint(t *testing.T) {
	t.Parallel()

	a := PipelineConfig{UUID: "x", RegFormID: "1", Schedule: "* * * * *"}
	b := a
	b.Logger = func(logging.Entry) {}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("hooks must not affect fingerprint")
	}
	b.Schedule = "0 * * * *"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("schedule change must change fingerprint")
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"regFormId":"1"`) {
		t.Errorf("unexpected JSON %s", data)
	}
}
