// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package store

import (
	"context"
	"slices"
	"sync"

	"github.com/tomtom215/symbology/internal/metrics"
	"github.com/tomtom215/symbology/internal/models"
)

// MemoryStore keeps reports in memory.
type MemoryStore struct {
	maxHistory int

	mu      sync.RWMutex
	latest  map[string]models.Report
	history map[string][]models.Report // oldest first
}

// NewMemoryStore creates a store keeping at most maxHistory closed reports
// per pipeline. Zero means DefaultHistoryLimit.
func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = DefaultHistoryLimit
	}
	return &MemoryStore{
		maxHistory: maxHistory,
		latest:     make(map[string]models.Report),
		history:    make(map[string][]models.Report),
	}
}

// Write implements ReportStore.
func (m *MemoryStore) Write(ctx context.Context, r models.Report) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordReportWrite("memory", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.latest[r.ConfigID]; ok && !supersedes(cur, r) {
		metrics.RecordReportWrite("memory", nil)
		return nil
	}
	m.latest[r.ConfigID] = r
	if !r.InProgress() {
		h := append(m.history[r.ConfigID], r)
		if len(h) > m.maxHistory {
			h = slices.Clone(h[len(h)-m.maxHistory:])
		}
		m.history[r.ConfigID] = h
	}
	metrics.RecordReportWrite("memory", nil)
	return nil
}

// Latest implements ReportStore.
func (m *MemoryStore) Latest(_ context.Context, configID string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.latest[configID]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &r, nil
}

// History implements ReportStore.
func (m *MemoryStore) History(_ context.Context, configID string, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.history[configID]
	out := make([]models.Report, 0, min(limit, len(h)))
	for i := len(h) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h[i])
	}
	return out, nil
}

// Delete implements ReportStore.
func (m *MemoryStore) Delete(_ context.Context, configID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.latest, configID)
	delete(m.history, configID)
	return nil
}

// Close implements ReportStore.
func (m *MemoryStore) Close() error { return nil }

var _ ReportStore = (*MemoryStore)(nil)
