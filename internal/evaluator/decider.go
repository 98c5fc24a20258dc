// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package evaluator

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/result"
)

// NoVisitDays is the day count used for a facility that was never visited.
// It exceeds every threshold, so the most severe color applies.
const NoVisitDays = math.MaxInt

// ColorDecider picks a marker color from days since the last visit.
// It holds no mutable state and is safe for concurrent use.
type ColorDecider struct {
	rules    map[string][]models.Overflow
	baseline string
}

// NewColorDecider indexes rules by priority level. Thresholds are sorted
// ascending on a copy; when two rules name the same level the later one wins.
func NewColorDecider(rules []models.PriorityRule, baseline string) *ColorDecider {
	if baseline == "" {
		baseline = models.DefaultBaselineColor
	}
	d := &ColorDecider{rules: make(map[string][]models.Overflow, len(rules)), baseline: baseline}
	for i := range rules {
		pairs := slices.Clone(rules[i].SymbologyOnOverflow)
		slices.SortStableFunc(pairs, func(a, b models.Overflow) int {
			return a.OverflowDays - b.OverflowDays
		})
		d.rules[rules[i].PriorityLevel] = pairs
	}
	return d
}

// Decide returns the color for record given days since its last visit.
func (d *ColorDecider) Decide(days int, record models.Submission) result.Result[string] {
	level := record.PriorityLevel()
	if level == "" {
		return result.Fail[string](
			fmt.Errorf("facility %s has no %s", record.ID(), models.FieldPriorityLevel),
			result.Detail{Code: result.MissingPriorityLevel})
	}

	pairs, ok := d.rules[level]
	if !ok {
		return result.Fail[string](
			fmt.Errorf("facility %s has unrecognized priority level %q", record.ID(), level),
			result.Detail{Code: result.UnrecognizedPriorityLevel})
	}

	color := ""
	for _, p := range pairs {
		if p.OverflowDays <= days {
			color = p.Color
		}
	}
	if color == "" {
		color = d.baseline
	}
	return result.Ok(color)
}

// Baseline returns the color used when no threshold is reached.
func (d *ColorDecider) Baseline() string {
	return d.baseline
}

// DaysSince returns whole days elapsed from visit to now, never negative.
func DaysSince(visit, now time.Time) int {
	elapsed := now.Sub(visit)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}
