// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package main

import (
	"fmt"

	"github.com/tomtom215/symbology/internal/config"
	"github.com/tomtom215/symbology/internal/evaluator"
	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/onadata"
	"github.com/tomtom215/symbology/internal/scheduler"
)

// cronScheduler adapts the cron scheduler to the controller's Scheduler.
func cronScheduler(s *scheduler.CronScheduler) evaluator.Scheduler {
	return evaluator.SchedulerFunc(func(expr string, fn func()) (evaluator.Task, error) {
		job, err := s.Schedule(expr, fn)
		if err != nil {
			return nil, err
		}
		return job, nil
	})
}

// initPipelines builds the config source and the controller. The controller
// loads the pipelines file once here; schedules are registered on Start.
func initPipelines(cfg *config.Config, sched *scheduler.CronScheduler, attach func(*models.PipelineConfig)) (*evaluator.Controller, evaluator.ConfigSource, error) {
	var breakers *onadata.BreakerSet
	if cfg.Client.CircuitBreaker.Enabled {
		breakers = onadata.NewBreakerSet(cfg.BreakerSettings())
	}

	source := config.PipelineSource(cfg.Pipelines.File, cfg.PipelineDefaults(), attach)
	ctrl, err := evaluator.NewController(source, cronScheduler(sched),
		evaluator.WithRunnerOptions(
			evaluator.WithClientOptions(cfg.ClientOptions(breakers)...),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create pipelines controller: %w", err)
	}

	statuses := ctrl.Statuses()
	invalid := 0
	for _, st := range statuses {
		if !st.Valid {
			invalid++
		}
	}
	logging.Info().
		Str("file", cfg.Pipelines.File).
		Int("pipelines", len(statuses)).
		Int("invalid", invalid).
		Str("timezone", cfg.Location().String()).
		Bool("circuit_breaker", breakers != nil).
		Msg("Pipelines loaded")
	return ctrl, source, nil
}
