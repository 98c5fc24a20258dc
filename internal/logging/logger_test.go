// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("pipeline", "p1").Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
	if !strings.Contains(output, `"pipeline":"p1"`) {
		t.Errorf("expected pipeline field, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}

	if ValidLevel("bogus") {
		t.Error("bogus should not be a valid level")
	}
	if !ValidLevel("warn") {
		t.Error("warn should be a valid level")
	}
}

func TestCtxAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	ctx := ContextWithRunID(context.Background(), "run12345")
	ctx = ContextWithRequestID(ctx, "req-1")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"run_id":"run12345"`) {
		t.Errorf("missing run_id: %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id: %s", out)
	}
	if RunIDFromContext(context.Background()) != "" {
		t.Error("expected empty run id")
	}
	if len(GenerateRunID()) != 8 {
		t.Error("run id should be 8 characters")
	}
}

func TestZerologSink(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf).Level(zerolog.TraceLevel)
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(prev)

	sink := ZerologSink(logger)
	sink(VerboseEntry("retrying %s", "GET"))
	sink(DebugEntry("noise"))
	sink(ErrorEntry("failed"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %s", len(lines), buf.String())
	}
	checks := []struct{ level, engine, msg string }{
		{"debug", "verbose", "retrying GET"},
		{"trace", "debug", "noise"},
		{"error", "error", "failed"},
	}
	for i, c := range checks {
		if !strings.Contains(lines[i], `"level":"`+c.level+`"`) {
			t.Errorf("line %d: expected level %s: %s", i, c.level, lines[i])
		}
		if !strings.Contains(lines[i], `"engine_level":"`+c.engine+`"`) {
			t.Errorf("line %d: expected engine level %s: %s", i, c.engine, lines[i])
		}
		if !strings.Contains(lines[i], c.msg) {
			t.Errorf("line %d: expected message %q: %s", i, c.msg, lines[i])
		}
	}
}

func TestLogFnEmitNil(t *testing.T) {
	t.Parallel()

	var fn LogFn
	fn.Emit(InfoEntry("ignored"))

	var got []Entry
	fn = func(e Entry) { got = append(got, e) }
	fn.Emit(WarnEntry("100%% sure"))
	if len(got) != 1 || got[0].Message != "100% sure" || got[0].Level != LevelWarn {
		t.Errorf("unexpected entries %+v", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                 "",
		"short":            "***",
		"0123456789abcdef": "0123...cdef",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
	if Truncate("abcdef", 3) != "abc..." {
		t.Error("unexpected truncate result")
	}
}
