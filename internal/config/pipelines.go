// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package config

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/symbology/internal/evaluator"
	"github.com/tomtom215/symbology/internal/models"
)

// pipelinesKey is the top-level key of the pipelines file.
const pipelinesKey = "pipelines"

// PipelineDefaults are applied to every pipeline that leaves the field unset.
type PipelineDefaults struct {
	RegFormSubmissionChunks int
	EditSubmissionChunks    int
	BaselineColor           string
}

// PipelineDefaults returns the defaults from the pipelines section.
func (c *Config) PipelineDefaults() PipelineDefaults {
	return PipelineDefaults{
		RegFormSubmissionChunks: c.Pipelines.RegFormSubmissionChunks,
		EditSubmissionChunks:    c.Pipelines.EditSubmissionChunks,
		BaselineColor:           c.Pipelines.BaselineColor,
	}
}

func (d PipelineDefaults) apply(cfg *models.PipelineConfig) {
	if cfg.RegFormSubmissionChunks == 0 {
		cfg.RegFormSubmissionChunks = d.RegFormSubmissionChunks
	}
	if cfg.EditSubmissionChunks == 0 {
		cfg.EditSubmissionChunks = d.EditSubmissionChunks
	}
	if cfg.BaselineColor == "" {
		cfg.BaselineColor = d.BaselineColor
	}
}

// LoadPipelines reads the pipelines file at path. The file is YAML (or JSON)
// with a top-level "pipelines" list:
//
//	pipelines:
//	  - uuid: 6d1c...
//	    baseUrl: https://api.ona.io
//	    regFormId: "3623"
//	    visitFormId: "3624"
//	    apiToken: ...
//	    schedule: "*/15 * * * *"
//	    symbolConfig:
//	      - priorityLevel: Very_High
//	        symbologyOnOverflow:
//	          - {overFlowDays: 3, color: yellow}
//	          - {overFlowDays: 7, color: red}
//
// Entries are not validated here. An invalid pipeline still loads and is
// reported as invalid by its runner.
func LoadPipelines(path string, defaults PipelineDefaults) ([]*models.PipelineConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load pipelines file %s: %w", path, err)
	}

	var configs []*models.PipelineConfig
	if k.Exists(pipelinesKey) {
		if err := k.Unmarshal(pipelinesKey, &configs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pipelines from %s: %w", path, err)
		}
	}

	out := configs[:0]
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		defaults.apply(cfg)
		out = append(out, cfg)
	}
	return out, nil
}

// PipelineSource returns a ConfigSource that re-reads the pipelines file on
// every Load. attach, when set, installs the logger and metric hooks on each
// config before it reaches the controller.
func PipelineSource(path string, defaults PipelineDefaults, attach func(*models.PipelineConfig)) evaluator.ConfigSource {
	return evaluator.ConfigSourceFunc(func(ctx context.Context) ([]*models.PipelineConfig, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		configs, err := LoadPipelines(path, defaults)
		if err != nil {
			return nil, err
		}
		if attach != nil {
			for _, cfg := range configs {
				attach(cfg)
			}
		}
		return configs, nil
	})
}
