// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package models

import "time"

// APIResponse is the envelope returned by every HTTP endpoint.
//
//	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
//	{"status": "error", "error": {"code": "PIPELINE_RUNNING", "message": "..."}, "metadata": {...}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Count     *int      `json:"count,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PipelineStatus is the status view of one configured pipeline.
type PipelineStatus struct {
	UUID            string  `json:"uuid"`
	Name            string  `json:"name,omitempty"`
	BaseURL         string  `json:"baseUrl"`
	RegFormID       string  `json:"regFormId"`
	VisitFormID     string  `json:"visitFormId"`
	Schedule        string  `json:"schedule"`
	Running         bool    `json:"running"`
	Valid           bool    `json:"valid"`
	ValidationError string  `json:"validationError,omitempty"`
	LastReport      *Report `json:"lastReport,omitempty"`
}
