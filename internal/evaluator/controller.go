// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package evaluator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/metrics"
	"github.com/tomtom215/symbology/internal/models"
)

// ErrUnknownPipeline is returned for an id the controller does not hold.
var ErrUnknownPipeline = errors.New("unknown pipeline")

// ConfigSource supplies the current set of pipeline configs.
type ConfigSource interface {
	Load(ctx context.Context) ([]*models.PipelineConfig, error)
}

// ConfigSourceFunc adapts a function to ConfigSource.
type ConfigSourceFunc func(ctx context.Context) ([]*models.PipelineConfig, error)

// Load calls f.
func (f ConfigSourceFunc) Load(ctx context.Context) ([]*models.PipelineConfig, error) {
	return f(ctx)
}

// RefreshSummary lists what a Refresh did, by pipeline UUID. Changed is the
// subset of Unchanged whose content differs from the held config; those
// runners keep their old config until UpdateConfig is called.
type RefreshSummary struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
	Changed   []string `json:"changed"`
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRunnerOptions applies opts to every runner the controller creates.
func WithRunnerOptions(opts ...RunnerOption) ControllerOption {
	return func(c *Controller) {
		c.runnerOpts = append(c.runnerOpts, opts...)
	}
}

// Controller owns the runners for a set of pipeline configs, keyed by UUID.
type Controller struct {
	source     ConfigSource
	scheduler  Scheduler
	runnerOpts []RunnerOption
	logger     zerolog.Logger

	mu         sync.RWMutex
	runners    map[string]*Runner
	tasks      map[string]Task
	scheduling bool
	baseCtx    context.Context
}

// NewController creates a controller and loads the initial configs.
// scheduler may be nil when runs are only triggered manually.
func NewController(source ConfigSource, scheduler Scheduler, opts ...ControllerOption) (*Controller, error) {
	if source == nil {
		return nil, errors.New("config source is required")
	}
	c := &Controller{
		source:    source,
		scheduler: scheduler,
		logger:    logging.WithComponent("controller"),
		runners:   make(map[string]*Runner),
		tasks:     make(map[string]Task),
		baseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, err := c.Reload(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload pulls configs from the source and applies them with Refresh.
func (c *Controller) Reload(ctx context.Context) (RefreshSummary, error) {
	configs, err := c.source.Load(ctx)
	metrics.RecordConfigReload(err)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("load pipeline configs: %w", err)
	}
	return c.Refresh(configs), nil
}

// Refresh diffs configs against the held runners by UUID. Runners whose id
// is gone are cancelled and dropped, new ids get a runner (scheduled when
// scheduling is on) and existing runners are left untouched.
func (c *Controller) Refresh(configs []*models.PipelineConfig) RefreshSummary {
	incoming := make(map[string]*models.PipelineConfig, len(configs))
	order := make([]string, 0, len(configs))
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if _, dup := incoming[cfg.UUID]; dup {
			c.logger.Warn().Str("config_id", cfg.UUID).Msg("Duplicate pipeline uuid ignored")
			continue
		}
		incoming[cfg.UUID] = cfg
		order = append(order, cfg.UUID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var summary RefreshSummary
	for id, runner := range c.runners {
		if _, keep := incoming[id]; keep {
			continue
		}
		runner.Cancel()
		c.unscheduleLocked(id)
		delete(c.runners, id)
		summary.Removed = append(summary.Removed, id)
	}

	for _, id := range order {
		cfg := incoming[id]
		if existing, ok := c.runners[id]; ok {
			summary.Unchanged = append(summary.Unchanged, id)
			if held := existing.Config(); held == nil || held.Fingerprint() != cfg.Fingerprint() {
				summary.Changed = append(summary.Changed, id)
			}
			continue
		}

		runner := NewRunner(cfg, c.runnerOpts...)
		if err := runner.ValidationError(); err != nil {
			c.logger.Warn().Str("config_id", id).Err(err).Msg("Pipeline config is invalid")
		}
		c.runners[id] = runner
		summary.Added = append(summary.Added, id)

		if c.scheduling {
			if err := c.scheduleLocked(id, runner); err != nil {
				c.logger.Error().Str("config_id", id).Err(err).Msg("Failed to schedule pipeline")
			}
		}
	}

	sort.Strings(summary.Added)
	sort.Strings(summary.Removed)
	sort.Strings(summary.Unchanged)
	sort.Strings(summary.Changed)

	metrics.ConfiguredPipelines.Set(float64(len(c.runners)))
	c.logger.Info().
		Int("added", len(summary.Added)).
		Int("removed", len(summary.Removed)).
		Int("unchanged", len(summary.Unchanged)).
		Int("changed", len(summary.Changed)).
		Msg("Pipelines refreshed")
	return summary
}

// UpdateConfig replaces the config of an existing runner. A scheduled
// runner is re-registered under the new cron expression.
func (c *Controller) UpdateConfig(cfg *models.PipelineConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	runner, ok := c.runners[cfg.UUID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPipeline, cfg.UUID)
	}
	runner.UpdateConfig(cfg)

	if _, scheduled := c.tasks[cfg.UUID]; scheduled {
		c.unscheduleLocked(cfg.UUID)
		if err := c.scheduleLocked(cfg.UUID, runner); err != nil {
			return err
		}
	}
	return nil
}

// RunOnSchedule registers every runner that is not yet scheduled and keeps
// scheduling on for runners added later.
func (c *Controller) RunOnSchedule() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheduler == nil {
		return errors.New("no scheduler configured")
	}
	c.scheduling = true

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(c.runners)) {
		if _, scheduled := c.tasks[id]; scheduled {
			continue
		}
		if err := c.scheduleLocked(id, c.runners[id]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CancelAll cancels every runner and stops every schedule.
func (c *Controller) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, runner := range c.runners {
		runner.Cancel()
	}
	for id := range c.tasks {
		c.unscheduleLocked(id)
	}
	c.scheduling = false
}

func (c *Controller) scheduleLocked(id string, runner *Runner) error {
	task, err := runner.Schedule(c.baseCtx, c.scheduler)
	if err != nil {
		return fmt.Errorf("schedule pipeline %s: %w", id, err)
	}
	c.tasks[id] = task
	return nil
}

func (c *Controller) unscheduleLocked(id string) {
	if task, ok := c.tasks[id]; ok {
		task.Stop()
		delete(c.tasks, id)
	}
}

// Runner returns the runner for id.
func (c *Controller) Runner(id string) (*Runner, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.runners[id]
	return r, ok
}

// Runners returns a copy of the runner map.
func (c *Controller) Runners() map[string]*Runner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.runners)
}

// Statuses returns the status of every runner ordered by UUID.
func (c *Controller) Statuses() []models.PipelineStatus {
	runners := c.Runners()
	out := make([]models.PipelineStatus, 0, len(runners))
	for _, id := range slices.Sorted(maps.Keys(runners)) {
		out = append(out, runners[id].Status())
	}
	return out
}

// Status returns the status of id.
func (c *Controller) Status(id string) (models.PipelineStatus, bool) {
	runner, ok := c.Runner(id)
	if !ok {
		return models.PipelineStatus{}, false
	}
	return runner.Status(), true
}

// Cancel stops the in-flight run of id and reports whether one was running.
func (c *Controller) Cancel(id string) (bool, error) {
	runner, ok := c.Runner(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPipeline, id)
	}
	return runner.Cancel(), nil
}

// Scheduled reports whether id has a registered schedule.
func (c *Controller) Scheduled(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tasks[id]
	return ok
}

// Trigger starts a manual run of id in the background. Admission errors
// are returned before the run starts.
func (c *Controller) Trigger(id string) error {
	runner, ok := c.Runner(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPipeline, id)
	}

	c.mu.RLock()
	ctx := c.baseCtx
	c.mu.RUnlock()

	runID := logging.GenerateRunID()
	run, err := runner.begin(logging.ContextWithRunID(ctx, runID), models.TriggeredByManual)
	if err != nil {
		return err
	}

	c.logger.Info().Str("config_id", id).Str("run_id", runID).Msg("Manual run started")
	go func() {
		rep := run()
		c.logger.Info().Str("config_id", id).Str("run_id", runID).
			Int("evaluated", rep.TotalFacilitiesEvaluated).
			Int("modified", rep.FacilitiesEvaluated.Modified.Total).
			Msg("Manual run finished")
	}()
	return nil
}

// Start sets the context scheduled and manual runs derive from, reloads
// the configs and turns scheduling on.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	if _, err := c.Reload(ctx); err != nil {
		return err
	}
	if c.scheduler == nil {
		return nil
	}
	if err := c.RunOnSchedule(); err != nil {
		c.logger.Warn().Err(err).Msg("Some pipelines could not be scheduled")
	}
	return nil
}

// Stop cancels all runs and schedules.
func (c *Controller) Stop() error {
	c.CancelAll()
	return nil
}
