// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/symbology/internal/models"
)

func validPipeline() models.PipelineConfig {
	return models.PipelineConfig{
		UUID:        "4c0d6e7a",
		BaseURL:     "https://api.ona.io",
		RegFormID:   "3623",
		VisitFormID: "3624",
		APIToken:    "token",
		Schedule:    "0 */6 * * *",
		SymbolConfig: []models.PriorityRule{
			{PriorityLevel: "Very_High", Frequency: "Weekly", SymbologyOnOverflow: []models.Overflow{
				{OverflowDays: 4, Color: "yellow"},
				{OverflowDays: 5, Color: "red"},
			}},
		},
	}
}

func TestValidatePipeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *models.PipelineConfig)
		wantErr string
	}{
		{"valid", func(*models.PipelineConfig) {}, ""},
		{"missing uuid", func(c *models.PipelineConfig) { c.UUID = "" }, "uuid is required"},
		{"bad url", func(c *models.PipelineConfig) { c.BaseURL = "not a url" }, "baseUrl must be a valid URL"},
		{"bad cron", func(c *models.PipelineConfig) { c.Schedule = "every day" }, "schedule must be a valid cron expression"},
		{"no rules", func(c *models.PipelineConfig) { c.SymbolConfig = nil }, "symbolConfig is required"},
		{"negative chunks", func(c *models.PipelineConfig) { c.EditSubmissionChunks = -1 }, "editSubmissionChunks must be greater than or equal to 0"},
		{"missing color", func(c *models.PipelineConfig) { c.SymbolConfig[0].SymbologyOnOverflow[1].Color = "" },
			"symbolConfig[0].symbologyOnOverflow[1].color is required"},
		{"duplicate level", func(c *models.PipelineConfig) {
			c.SymbolConfig = append(c.SymbolConfig, c.SymbolConfig[0])
		}, "defined more than once"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validPipeline()
			tt.mutate(&cfg)
			err := ValidatePipeline(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
			var verr *RequestValidationError
			if !errors.As(err, &verr) || len(verr.Errors()) == 0 {
				t.Errorf("expected *RequestValidationError, got %T", err)
			}
		})
	}
}

func TestValidatePipelineNil(t *testing.T) {
	t.Parallel()

	if ValidatePipeline(nil) == nil {
		t.Error("expected error for nil config")
	}
}

func TestValidationErrorAccessors(t *testing.T) {
	t.Parallel()

	cfg := validPipeline()
	cfg.SymbolConfig = []models.PriorityRule{}
	verr := ValidateStruct(&cfg)
	if verr == nil {
		t.Fatal("expected error")
	}
	fe := verr.Errors()[0]
	if fe.Field() != "symbolConfig" || fe.Tag() != "min" || fe.Param() != "1" {
		t.Errorf("unexpected field error: field=%s tag=%s param=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	if fe.Error() != "symbolConfig must have at least 1 items" {
		t.Errorf("unexpected message %q", fe.Error())
	}
}
