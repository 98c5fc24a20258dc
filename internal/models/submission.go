// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package models

import (
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Field names on Ona submissions.
const (
	FieldID            = "_id"
	FieldMarkerColor   = "marker-color"
	FieldPriorityLevel = "priority_level"
	FieldInstanceID    = "meta/instanceID"
	FieldVisitTime     = "endtime"
	FieldVisitFacility = "facility"
)

// Submission is one Ona data record. Numbers are kept as json.Number so that
// ids and counters survive an edit round trip unchanged.
type Submission map[string]any

// Clone returns a shallow copy of s.
func (s Submission) Clone() Submission {
	return maps.Clone(s)
}

// ID returns the record id as a string.
func (s Submission) ID() string {
	return s.String(FieldID)
}

// MarkerColor returns the current marker color, or "".
func (s Submission) MarkerColor() string {
	return s.String(FieldMarkerColor)
}

// PriorityLevel returns the priority label, or "".
func (s Submission) PriorityLevel() string {
	return s.String(FieldPriorityLevel)
}

// InstanceID returns the current version id, or "".
func (s Submission) InstanceID() string {
	return s.String(FieldInstanceID)
}

// VisitTime parses the visit timestamp.
func (s Submission) VisitTime() (time.Time, error) {
	raw := s.String(FieldVisitTime)
	if raw == "" {
		return time.Time{}, fmt.Errorf("submission %s has no %s", s.ID(), FieldVisitTime)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-07:00", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("submission %s has unparseable %s %q", s.ID(), FieldVisitTime, raw)
}

// String renders field key as a string regardless of its JSON type.
func (s Submission) String(key string) string {
	switch v := s[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Form is Ona form metadata. NumOfSubmissions is the authoritative record
// count used to bound pagination.
type Form struct {
	FormID           int    `json:"formid"`
	Title            string `json:"title"`
	IDString         string `json:"id_string"`
	NumOfSubmissions int    `json:"num_of_submissions"`
}
