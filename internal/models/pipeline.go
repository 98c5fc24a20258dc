// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package models

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/logging"
)

// Default batch sizes and baseline color applied when a config leaves them unset.
const (
	DefaultRegFormSubmissionChunks = 1000
	DefaultEditSubmissionChunks    = 100
	DefaultBaselineColor           = "green"
)

// Overflow maps a days-since-last-visit threshold to a marker color.
type Overflow struct {
	OverflowDays int    `json:"overFlowDays" koanf:"overFlowDays" validate:"gte=0"`
	Color        string `json:"color" koanf:"color" validate:"required"`
}

// PriorityRule holds the thresholds for one priority level. Frequency is
// informational only.
type PriorityRule struct {
	PriorityLevel       string     `json:"priorityLevel" koanf:"priorityLevel" validate:"required"`
	Frequency           string     `json:"frequency,omitempty" koanf:"frequency"`
	SymbologyOnOverflow []Overflow `json:"symbologyOnOverflow" koanf:"symbologyOnOverflow" validate:"dive"`
}

// WriteMetricFunc persists a report snapshot.
type WriteMetricFunc func(Report)

// ReadMetricFunc returns the most recent stored report for a config.
type ReadMetricFunc func(configID string) (*Report, bool)

// PipelineConfig describes one reconciliation pipeline.
//
// UUID is the identity of the pipeline across reloads and the single-flight
// key for runs. The hook fields are never serialized.
type PipelineConfig struct {
	UUID                    string         `json:"uuid" koanf:"uuid" validate:"required"`
	Name                    string         `json:"name,omitempty" koanf:"name"`
	BaseURL                 string         `json:"baseUrl" koanf:"baseUrl" validate:"required,url"`
	RegFormID               string         `json:"regFormId" koanf:"regFormId" validate:"required"`
	VisitFormID             string         `json:"visitFormId" koanf:"visitFormId" validate:"required"`
	APIToken                string         `json:"apiToken" koanf:"apiToken" validate:"required"`
	SymbolConfig            []PriorityRule `json:"symbolConfig" koanf:"symbolConfig" validate:"required,min=1,dive"`
	Schedule                string         `json:"schedule" koanf:"schedule" validate:"required,cron"`
	RegFormSubmissionChunks int            `json:"regFormSubmissionChunks,omitempty" koanf:"regFormSubmissionChunks" validate:"gte=0"`
	EditSubmissionChunks    int            `json:"editSubmissionChunks,omitempty" koanf:"editSubmissionChunks" validate:"gte=0"`
	BaselineColor           string         `json:"baselineColor,omitempty" koanf:"baselineColor"`

	Logger      logging.LogFn   `json:"-" koanf:"-"`
	WriteMetric WriteMetricFunc `json:"-" koanf:"-"`
	ReadMetric  ReadMetricFunc  `json:"-" koanf:"-"`
}

// PageSize returns the registration page size, applying the default.
func (c *PipelineConfig) PageSize() int {
	if c.RegFormSubmissionChunks > 0 {
		return c.RegFormSubmissionChunks
	}
	return DefaultRegFormSubmissionChunks
}

// EditBatchSize returns the write batch size, applying the default.
func (c *PipelineConfig) EditBatchSize() int {
	if c.EditSubmissionChunks > 0 {
		return c.EditSubmissionChunks
	}
	return DefaultEditSubmissionChunks
}

// Baseline returns the healthy marker color.
func (c *PipelineConfig) Baseline() string {
	if c.BaselineColor != "" {
		return c.BaselineColor
	}
	return DefaultBaselineColor
}

// Fingerprint hashes the serializable fields. Two configs with the same
// fingerprint evaluate identically.
func (c *PipelineConfig) Fingerprint() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Status builds the status view of c.
func (c *PipelineConfig) Status(running bool, validationErr error) PipelineStatus {
	s := PipelineStatus{
		UUID:        c.UUID,
		Name:        c.Name,
		BaseURL:     c.BaseURL,
		RegFormID:   c.RegFormID,
		VisitFormID: c.VisitFormID,
		Schedule:    c.Schedule,
		Running:     running,
		Valid:       validationErr == nil,
	}
	if validationErr != nil {
		s.ValidationError = validationErr.Error()
	}
	return s
}
