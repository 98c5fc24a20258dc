// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// EntryLevel is the severity of an engine log entry.
type EntryLevel string

const (
	LevelDebug   EntryLevel = "debug"
	LevelVerbose EntryLevel = "verbose"
	LevelInfo    EntryLevel = "info"
	LevelWarn    EntryLevel = "warn"
	LevelError   EntryLevel = "error"
)

// Entry is one structured message emitted by the evaluation engine.
type Entry struct {
	Level   EntryLevel `json:"level"`
	Message string     `json:"message"`
}

// LogFn receives engine entries. The engine never formats or routes logs
// itself; whoever supplies the LogFn decides where entries go.
type LogFn func(Entry)

// Emit calls fn with e when fn is non-nil.
func (fn LogFn) Emit(e Entry) {
	if fn != nil {
		fn(e)
	}
}

// DebugEntry builds a debug entry.
func DebugEntry(format string, args ...any) Entry {
	return Entry{Level: LevelDebug, Message: sprintf(format, args)}
}

// VerboseEntry builds a verbose entry.
func VerboseEntry(format string, args ...any) Entry {
	return Entry{Level: LevelVerbose, Message: sprintf(format, args)}
}

// InfoEntry builds an info entry.
func InfoEntry(format string, args ...any) Entry {
	return Entry{Level: LevelInfo, Message: sprintf(format, args)}
}

// WarnEntry builds a warn entry.
func WarnEntry(format string, args ...any) Entry {
	return Entry{Level: LevelWarn, Message: sprintf(format, args)}
}

// ErrorEntry builds an error entry.
func ErrorEntry(format string, args ...any) Entry {
	return Entry{Level: LevelError, Message: sprintf(format, args)}
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// ZerologLevel maps an engine level onto zerolog. Verbose sits between
// debug and info, so engine debug becomes trace.
func (l EntryLevel) ZerologLevel() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.TraceLevel
	case LevelVerbose:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ZerologSink returns a LogFn that writes entries to l.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ZerologSink(l zerolog.Logger) LogFn {
	return func(e Entry) {
		l.WithLevel(e.Level.ZerologLevel()).Str("engine_level", string(e.Level)).Msg(e.Message)
	}
}
