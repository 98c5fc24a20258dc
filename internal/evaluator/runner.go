// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package evaluator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/metrics"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/onadata"
	"github.com/tomtom215/symbology/internal/result"
	"github.com/tomtom215/symbology/internal/validation"
)

var (
	// ErrInvalidConfig rejects a trigger for a config that failed validation.
	ErrInvalidConfig = errors.New("Configuration is not valid") //nolint:staticcheck // message is part of the report contract
	// ErrAlreadyRunning rejects a trigger while a run is in flight.
	ErrAlreadyRunning = errors.New("Pipeline is already running.") //nolint:staticcheck // message is part of the report contract
)

// Task is a registered schedule.
type Task interface {
	Stop()
}

// Scheduler registers fn to run on a cron expression.
type Scheduler interface {
	Schedule(expr string, fn func()) (Task, error)
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(expr string, fn func()) (Task, error)

// Schedule calls f.
func (f SchedulerFunc) Schedule(expr string, fn func()) (Task, error) {
	return f(expr, fn)
}

// ClientFactory builds the API client for one run.
type ClientFactory func(cfg *models.PipelineConfig) API

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClientFactory replaces how run clients are built.
func WithClientFactory(f ClientFactory) RunnerOption {
	return func(r *Runner) {
		if f != nil {
			r.newClient = f
		}
	}
}

// WithClientOptions adds options to every client built by the default factory.
func WithClientOptions(opts ...onadata.Option) RunnerOption {
	return func(r *Runner) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// WithClock replaces time.Now for report stamps and day counts.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDefaultWriteMetric sets the write hook used when a config has none.
func WithDefaultWriteMetric(fn models.WriteMetricFunc) RunnerOption {
	return func(r *Runner) {
		r.defaultWrite = fn
	}
}

// Runner owns one pipeline config. At most one run per runner is in
// flight at any time.
type Runner struct {
	running atomic.Bool

	mu            sync.Mutex
	cfg           *models.PipelineConfig
	validationErr error
	cancel        context.CancelFunc

	newClient    ClientFactory
	clientOpts   []onadata.Option
	now          func() time.Time
	defaultWrite models.WriteMetricFunc
}

// NewRunner creates a runner for cfg and validates it. An invalid config
// still yields a runner; its runs are rejected with ErrInvalidConfig.
func NewRunner(cfg *models.PipelineConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:           cfg,
		validationErr: validation.ValidatePipeline(cfg),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newClient == nil {
		r.newClient = defaultClientFactory(r.clientOpts)
	}
	return r
}

func defaultClientFactory(opts []onadata.Option) ClientFactory {
	return func(cfg *models.PipelineConfig) API {
		all := append(slices.Clone(opts), onadata.WithLogger(cfg.Logger))
		return onadata.New(cfg.BaseURL, cfg.APIToken, all...)
	}
}

// Transform runs the pipeline to completion and returns the closed report.
// It fails without side effects when the config is invalid or a run is
// already in flight.
func (r *Runner) Transform(ctx context.Context, by models.TriggeredBy) result.Result[models.Report] {
	run, err := r.begin(ctx, by)
	if err != nil {
		return result.Fail[models.Report](err)
	}
	return result.Ok(run())
}

// begin performs the admission checks and claims the runner. The returned
// function executes the claimed run and must be called exactly once.
func (r *Runner) begin(ctx context.Context, by models.TriggeredBy) (func() models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.id()
	if r.validationErr != nil {
		metrics.RecordTriggerRejected(id, "invalid_config")
		return nil, fmt.Errorf("%w, %v", ErrInvalidConfig, r.validationErr)
	}
	if !r.running.CompareAndSwap(false, true) {
		metrics.RecordTriggerRejected(id, "already_running")
		return nil, ErrAlreadyRunning
	}

	cfg := r.cfg
	scanCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	return func() models.Report {
		defer r.finish(cancel)
		return r.run(ctx, scanCtx, cfg, by)
	}, nil
}

func (r *Runner) finish(cancel context.CancelFunc) {
	cancel()
	r.mu.Lock()
	r.cancel = nil
	r.mu.Unlock()
	r.running.Store(false)
}

// run performs one scan. Pages are pulled on scanCtx so Cancel stops the
// scan at the next page boundary; record work uses ctx so batches already
// dispatched finish.
func (r *Runner) run(ctx, scanCtx context.Context, cfg *models.PipelineConfig, by models.TriggeredBy) models.Report {
	start := r.now()
	metrics.TrackRunInProgress(true)
	defer metrics.TrackRunInProgress(false)

	logger := cfg.Logger
	rep := NewReporter(cfg.UUID, r.now, logger)
	rep.Start(by)

	write := cfg.WriteMetric
	if write == nil {
		write = r.defaultWrite
	}
	emit := func(closeReport bool) models.Report {
		snapshot := rep.Snapshot(closeReport)
		if write != nil {
			write(snapshot)
		}
		return snapshot
	}
	emit(false)

	outcome := "completed"
	defer func() {
		metrics.RecordPipelineRun(cfg.UUID, string(by), outcome, r.now().Sub(start))
	}()

	api := r.newClient(cfg)
	form := api.FetchForm(scanCtx, cfg.RegFormID)
	if form.IsFailure() {
		outcome = "form_error"
		rep.GeneralError(fmt.Sprintf("Fetching form with id %s failed due to : %v", cfg.RegFormID, form.Err()))
		return emit(true)
	}
	total := form.Value().NumOfSubmissions
	rep.SetTotal(total)

	job := &facilityJob{
		api:         api,
		decider:     NewColorDecider(cfg.SymbolConfig, cfg.Baseline()),
		regFormID:   cfg.RegFormID,
		visitFormID: cfg.VisitFormID,
		now:         r.now,
		logger:      logger,
	}

	for page := range api.FetchSubmissionsPaginated(scanCtx, cfg.RegFormID, total, nil, cfg.PageSize()) {
		if page.IsFailure() {
			d, _ := page.Detail()
			rep.NotEvaluated(d.Code, d.RecordsAffected)
			if d.Code == result.EvaluationAborted {
				outcome = "aborted"
				logger.Emit(logging.WarnEntry("Evaluation of config %s aborted", cfg.UUID))
				break
			}
			continue
		}
		r.processPage(ctx, job, rep, cfg, page.Value())
		emit(false)
	}

	logger.Emit(logging.InfoEntry("Finished form pair {regFormId: %s, visitFormId: %s}", cfg.RegFormID, cfg.VisitFormID))
	return emit(true)
}

// processPage evaluates records in batches of EditBatchSize. Records in a
// batch run concurrently; the next batch starts once the previous is done.
func (r *Runner) processPage(ctx context.Context, job *facilityJob, rep *Reporter, cfg *models.PipelineConfig, records onadata.Page) {
	for batch := range slices.Chunk(records, cfg.EditBatchSize()) {
		var wg sync.WaitGroup
		for _, record := range batch {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rep.Evaluated()
				tally(rep, cfg.UUID, r.evaluate(ctx, job, record))
			}()
		}
		wg.Wait()
	}
}

func (r *Runner) evaluate(ctx context.Context, job *facilityJob, record models.Submission) (out result.Result[string]) {
	defer func() {
		if p := recover(); p != nil {
			job.logger.Emit(logging.ErrorEntry("Panic while evaluating facility %s: %v", record.ID(), p))
			out = result.Fail[string](fmt.Errorf("panic: %v", p), result.Detail{Code: result.UnknownTransformError})
		}
	}()
	return job.transform(ctx, record)
}

// tally files one record outcome into the reporter.
func tally(rep *Reporter, pipeline string, out result.Result[string]) {
	d, _ := out.Detail()
	for _, w := range d.Warnings {
		rep.Warning(w)
	}

	var code result.Code
	switch {
	case out.IsFailure():
		code = rep.NotModified(d.Code, result.UnknownTransformError)
	case d.Color == "":
		code = rep.NotModified(d.Code, result.UnknownSuccessReason)
	default:
		rep.Modified(d.Color)
		code = result.MarkerColorUpdated
		metrics.RecordMarkerUpdate(pipeline, d.Color)
	}
	metrics.RecordFacilityOutcome(pipeline, string(code), string(code.Category()))
}

// Cancel asks an in-flight run to stop at the next page boundary. It
// reports whether a run was in flight.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running.Load() || r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

// UpdateConfig cancels any in-flight run, swaps the config and validates it.
func (r *Runner) UpdateConfig(cfg *models.PipelineConfig) {
	r.Cancel()
	verr := validation.ValidatePipeline(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.validationErr = verr
}

// Schedule registers a scheduled run under the config's cron expression.
// Rejected or failed scheduled runs are reported through the config logger.
func (r *Runner) Schedule(ctx context.Context, s Scheduler) (Task, error) {
	if s == nil {
		return nil, errors.New("no scheduler configured")
	}
	cfg := r.Config()
	if cfg == nil {
		return nil, errors.New("runner has no config")
	}

	return s.Schedule(cfg.Schedule, func() {
		res := r.Transform(ctx, models.TriggeredBySchedule)
		if res.IsFailure() {
			if current := r.Config(); current != nil {
				current.Logger.Emit(logging.ErrorEntry("%s", res.Err().Error()))
			}
		}
	})
}

// IsRunning reports whether a run is in flight.
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// IsValid reports whether the current config passed validation.
func (r *Runner) IsValid() bool {
	return r.ValidationError() == nil
}

// ValidationError returns the current config's validation error.
func (r *Runner) ValidationError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.validationErr
}

// Config returns the current config. Callers must not modify it.
func (r *Runner) Config() *models.PipelineConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// LastReport reads the most recent report through the config's read hook.
func (r *Runner) LastReport() (*models.Report, bool) {
	cfg := r.Config()
	if cfg == nil || cfg.ReadMetric == nil {
		return nil, false
	}
	return cfg.ReadMetric(cfg.UUID)
}

// Status summarizes the runner for display.
func (r *Runner) Status() models.PipelineStatus {
	cfg := r.Config()
	if cfg == nil {
		return models.PipelineStatus{Running: r.IsRunning()}
	}
	status := cfg.Status(r.IsRunning(), r.ValidationError())
	if rep, ok := r.LastReport(); ok {
		status.LastReport = rep
	}
	return status
}

// id must be called with mu held.
func (r *Runner) id() string {
	if r.cfg == nil {
		return ""
	}
	return r.cfg.UUID
}
