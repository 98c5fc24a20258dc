// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package models

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/result"
)

// TriggeredBy records what started a run.
type TriggeredBy string

const (
	TriggeredBySchedule TriggeredBy = "schedule"
	TriggeredByManual   TriggeredBy = "manual"
)

// Valid reports whether t is a known trigger.
func (t TriggeredBy) Valid() bool {
	return t == TriggeredBySchedule || t == TriggeredByManual
}

// Trigger holds run timing in epoch milliseconds. To and TookMills stay nil
// while the run is open.
type Trigger struct {
	By        TriggeredBy `json:"by"`
	From      int64       `json:"from"`
	To        *int64      `json:"to,omitempty"`
	TookMills *int64      `json:"tookMills,omitempty"`
}

// Report is the metric report of one run. A report is built by the
// evaluator's reporter and handed out as an independent snapshot.
type Report struct {
	ConfigID                 string             `json:"configId"`
	Trigger                  Trigger            `json:"trigger"`
	TotalFacilities          *int               `json:"totalFacilities,omitempty"`
	TotalFacilitiesEvaluated int                `json:"totalFacilitiesEvaluated"`
	FacilitiesEvaluated      EvaluatedBreakdown `json:"facilitiesEvaluated"`
	FacilitiesNotEvaluated   CodeBreakdown      `json:"facilitiesNotEvaluated"`
	Warnings                 CodeBreakdown      `json:"warnings"`
	GeneralErrors            []string           `json:"generalErrors,omitempty"`
}

// InProgress reports whether the run had not closed when the snapshot was taken.
func (r *Report) InProgress() bool {
	return r.Trigger.To == nil
}

// StartedAt returns the run start time.
func (r *Report) StartedAt() time.Time {
	return time.UnixMilli(r.Trigger.From)
}

// EvaluatedBreakdown splits evaluated records into modified and not modified.
type EvaluatedBreakdown struct {
	Total       int            `json:"total"`
	Modified    ColorBreakdown `json:"modified"`
	NotModified CodeBreakdown  `json:"notModified"`
}

// ColorBreakdown counts modified records per resulting color. It encodes as
// a flat object: {"total": 8, "red": 6, "yellow": 2}.
type ColorBreakdown struct {
	Total  int
	Colors map[string]int
}

// MarshalJSON implements json.Marshaler.
func (b ColorBreakdown) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, len(b.Colors)+1)
	for color, n := range b.Colors {
		out[color] = n
	}
	out["total"] = b.Total
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *ColorBreakdown) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode color breakdown: %w", err)
	}
	b.Total = raw["total"]
	delete(raw, "total")
	b.Colors = raw
	return nil
}

// CodeCount is one code's tally with its rendered description.
type CodeCount struct {
	Total       int    `json:"total"`
	Description string `json:"description"`
}

// CodeBreakdown counts records per result code. It encodes as a flat object:
// {"total": 2, "ECODE2": {"total": 2, "description": "..."}}.
type CodeBreakdown struct {
	Total int
	Codes map[result.Code]CodeCount
}

// Count returns the tally for code.
func (b CodeBreakdown) Count(code result.Code) int {
	return b.Codes[code].Total
}

// SortedCodes returns the codes present in b in stable order.
func (b CodeBreakdown) SortedCodes() []result.Code {
	return slices.Sorted(maps.Keys(b.Codes))
}

// MarshalJSON implements json.Marshaler.
func (b CodeBreakdown) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Codes)+1)
	for code, c := range b.Codes {
		out[string(code)] = c
	}
	out["total"] = b.Total
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *CodeBreakdown) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode code breakdown: %w", err)
	}
	b.Total = 0
	b.Codes = make(map[result.Code]CodeCount, len(raw))
	for key, val := range raw {
		if key == "total" {
			if err := json.Unmarshal(val, &b.Total); err != nil {
				return fmt.Errorf("decode breakdown total: %w", err)
			}
			continue
		}
		var c CodeCount
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("decode breakdown %s: %w", key, err)
		}
		b.Codes[result.Code(key)] = c
	}
	return nil
}
