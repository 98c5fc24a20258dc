// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Expression is a parsed cron expression.
//
// Five fields (minute hour day-of-month month day-of-week) are standard. A
// sixth leading seconds field is accepted as well; five-field expressions
// fire at second 0.
type Expression struct {
	Seconds     []int // 0-59
	Minutes     []int // 0-59
	Hours       []int // 0-23
	DaysOfMonth []int // 1-31
	Months      []int // 1-12
	DaysOfWeek  []int // 0-6 (0 = Sunday)
}

// field bounds in order: second, minute, hour, dom, month, dow.
var fieldSpecs = []struct {
	name     string
	min, max int
}{
	{"second", 0, 59},
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// Parse parses a 5- or 6-field cron expression.
//
// Supported syntax per field: * (any), n, n-m, lists (n,m), */s and n-m/s.
// Day-of-week accepts 7 as Sunday.
//
//	"0 */6 * * *"   every six hours
//	"30 2 * * 1-5"  weekdays at 02:30
//	"*/10 * * * * *" every ten seconds
func Parse(expr string) (*Expression, error) {
	fields := strings.Fields(expr)
	switch len(fields) {
	case 5:
		fields = append([]string{"0"}, fields...)
	case 6:
	default:
		return nil, fmt.Errorf("cron expression must have 5 or 6 fields, got %d", len(fields))
	}

	parsed := make([][]int, len(fieldSpecs))
	for i, spec := range fieldSpecs {
		values, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", spec.name, err)
		}
		parsed[i] = values
	}

	dow := parsed[5]
	for i, d := range dow {
		if d == 7 {
			dow[i] = 0
		}
	}

	return &Expression{
		Seconds:     parsed[0],
		Minutes:     parsed[1],
		Hours:       parsed[2],
		DaysOfMonth: parsed[3],
		Months:      parsed[4],
		DaysOfWeek:  uniqueSorted(dow),
	}, nil
}

// Validate reports whether expr parses.
func Validate(expr string) error {
	_, err := Parse(expr)
	return err
}

// maxSearchMinutes bounds NextRun to four years.
const maxSearchMinutes = 365 * 24 * 60 * 4

// Next returns the first firing time strictly after the given time, or the
// zero time when none exists within four years. A nil loc means UTC.
func (e *Expression) Next(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc)
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)

	for range maxSearchMinutes {
		if e.matchesMinute(t) {
			for _, sec := range e.Seconds {
				candidate := t.Add(time.Duration(sec) * time.Second)
				if candidate.After(after) {
					return candidate
				}
			}
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

func (e *Expression) matchesMinute(t time.Time) bool {
	if !slices.Contains(e.Minutes, t.Minute()) ||
		!slices.Contains(e.Hours, t.Hour()) ||
		!slices.Contains(e.Months, int(t.Month())) {
		return false
	}

	// Day-of-month and day-of-week are OR'd when both are restricted.
	domMatch := slices.Contains(e.DaysOfMonth, t.Day())
	dowMatch := slices.Contains(e.DaysOfWeek, int(t.Weekday()))
	domAny := len(e.DaysOfMonth) == 31
	dowAny := len(e.DaysOfWeek) == 7

	switch {
	case domAny && dowAny:
		return true
	case domAny:
		return dowMatch
	case dowAny:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

func parseField(field string, minVal, maxVal int) ([]int, error) {
	if field == "*" {
		return rangeInts(minVal, maxVal, 1), nil
	}

	var out []int
	for _, part := range strings.Split(field, ",") {
		values, err := parsePart(part, minVal, maxVal)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return uniqueSorted(out), nil
}

func parsePart(part string, minVal, maxVal int) ([]int, error) {
	base, stepText, hasStep := strings.Cut(part, "/")
	step := 1
	if hasStep {
		s, err := strconv.Atoi(stepText)
		if err != nil || s <= 0 {
			return nil, fmt.Errorf("invalid step value: %s", stepText)
		}
		step = s
	}

	start, end := minVal, maxVal
	switch {
	case base == "*":
	case strings.Contains(base, "-"):
		lo, hi, _ := strings.Cut(base, "-")
		var err error
		if start, err = strconv.Atoi(lo); err != nil {
			return nil, fmt.Errorf("invalid range start: %s", lo)
		}
		if end, err = strconv.Atoi(hi); err != nil {
			return nil, fmt.Errorf("invalid range end: %s", hi)
		}
		if start > end || start < minVal || end > maxVal {
			return nil, fmt.Errorf("invalid range: %d-%d (min=%d, max=%d)", start, end, minVal, maxVal)
		}
	default:
		v, err := strconv.Atoi(base)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %s", base)
		}
		if v < minVal || v > maxVal {
			return nil, fmt.Errorf("value out of range: %d (min=%d, max=%d)", v, minVal, maxVal)
		}
		start = v
		if !hasStep {
			end = v
		}
	}

	return rangeInts(start, end, step), nil
}

func rangeInts(start, end, step int) []int {
	out := make([]int, 0, (end-start)/step+1)
	for i := start; i <= end; i += step {
		out = append(out, i)
	}
	return out
}

func uniqueSorted(values []int) []int {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// NextRun parses expr and returns its next firing time after the given time
// in the named timezone.
func NextRun(expr string, after time.Time, timezone string) (time.Time, error) {
	e, err := Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	var loc *time.Location
	if timezone != "" {
		if loc, err = time.LoadLocation(timezone); err != nil {
			return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
	}
	return e.Next(after, loc), nil
}
