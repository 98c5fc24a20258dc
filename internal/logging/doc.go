// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

// Package logging provides zerolog-based structured logging for Symbology.
//
// There are two logging surfaces:
//
//   - The process logger: a global zerolog.Logger configured once at startup
//     with Init, used by infrastructure (config, store, HTTP, supervisor).
//   - The engine callback: evaluation code never writes logs directly. It
//     emits Entry values ({level, message}) through a LogFn supplied with each
//     pipeline config. ZerologSink adapts a zerolog.Logger into a LogFn.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("pipeline", id).Msg("Pipeline scheduled")
//
//	cfg.Logger = logging.ZerologSink(logging.WithComponent("evaluator"))
//	cfg.Logger(logging.VerboseEntry("Retrying request"))
//
// # Engine levels
//
// Entries use five levels: debug, verbose, info, warn and error. Verbose sits
// between debug and info; the sink maps it to zerolog debug and maps engine
// debug to zerolog trace.
//
// # slog bridge
//
// SlogHandler implements slog.Handler on top of zerolog. It is used by
// sutureslog for supervisor events and by watermill's slog logger adapter.
package logging
