// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package main

import (
	"fmt"

	"github.com/tomtom215/symbology/internal/config"
	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/store"
)

// initStore opens the configured report store. The badger store is also
// returned on its own so the GC service can be wired; it is nil for the
// memory backend.
func initStore(cfg *config.Config) (store.ReportStore, *store.BadgerStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		logging.Info().Int("history_limit", cfg.Store.HistoryLimit).Msg("Using in-memory report store")
		return store.NewMemoryStore(cfg.Store.HistoryLimit), nil, nil
	case "badger", "":
		bs, err := store.OpenBadger(store.BadgerOptions{
			Path:       cfg.Store.Path,
			Retention:  cfg.Store.Retention,
			SyncWrites: cfg.Store.SyncWrites,
		})
		if err != nil {
			return nil, nil, err
		}
		logging.Info().
			Str("path", cfg.Store.Path).
			Dur("retention", cfg.Store.Retention).
			Msg("BadgerDB report store opened")
		return bs, bs, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
