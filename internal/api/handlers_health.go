// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Pipelines *int    `json:"pipelines,omitempty"`
	Running   *int    `json:"running,omitempty"`
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
		return
	}

	respondSuccess(w, http.StatusOK, HealthStatus{
		Status: "alive",
		Uptime: time.Since(h.startTime).Seconds(),
	}, nil)
}

// HealthReady reports readiness together with the number of configured
// and running pipelines.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
		return
	}
	if h.pipelines == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Pipelines controller not ready", nil)
		return
	}

	statuses := h.pipelines.Statuses()
	running := 0
	for _, s := range statuses {
		if s.Running {
			running++
		}
	}

	respondSuccess(w, http.StatusOK, HealthStatus{
		Status:    "ready",
		Uptime:    time.Since(h.startTime).Seconds(),
		Pipelines: intPtr(len(statuses)),
		Running:   intPtr(running),
	}, nil)
}
