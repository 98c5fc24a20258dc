// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/symbology/internal/logging"
)

// CronScheduler fires callbacks on cron expressions. Each registered job
// owns one goroutine that sleeps until the next firing time; callbacks run
// in their own goroutine so a slow callback never delays later firings.
type CronScheduler struct {
	loc    *time.Location
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
	logger zerolog.Logger

	mu   sync.Mutex
	jobs map[*Job]struct{}
}

// Option configures a CronScheduler.
type Option func(*CronScheduler)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *CronScheduler) {
		s.now = now
		s.after = after
	}
}

// WithLogger sets the scheduler logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(s *CronScheduler) {
		s.logger = l
	}
}

// New creates a scheduler evaluating expressions in loc (UTC when nil).
func New(loc *time.Location, opts ...Option) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	s := &CronScheduler{
		loc:    loc,
		now:    time.Now,
		after:  time.After,
		logger: logging.WithComponent("scheduler"),
		jobs:   make(map[*Job]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Job is one registered schedule.
type Job struct {
	expr     *Expression
	raw      string
	fn       func()
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Schedule registers fn to run on expr.
func (s *CronScheduler) Schedule(expr string, fn func()) (*Job, error) {
	parsed, err := Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", expr, err)
	}
	if fn == nil {
		return nil, fmt.Errorf("schedule %q: nil callback", expr)
	}

	j := &Job{
		expr:   parsed,
		raw:    expr,
		fn:     fn,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[j] = struct{}{}
	s.mu.Unlock()

	go s.run(j)
	return j, nil
}

func (s *CronScheduler) run(j *Job) {
	defer close(j.doneCh)
	defer func() {
		s.mu.Lock()
		delete(s.jobs, j)
		s.mu.Unlock()
	}()

	for {
		now := s.now()
		next := j.expr.Next(now, s.loc)
		if next.IsZero() {
			s.logger.Warn().Str("schedule", j.raw).Msg("Schedule has no future firing time")
			return
		}

		select {
		case <-s.after(next.Sub(now)):
			go s.fire(j)
		case <-j.stopCh:
			return
		}
	}
}

func (s *CronScheduler) fire(j *Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("schedule", j.raw).Interface("panic", r).Msg("Scheduled callback panicked")
		}
	}()
	j.fn()
}

// Stop deregisters the job. It is safe to call more than once and does not
// interrupt a callback that is already running.
func (j *Job) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// Done is closed once the job goroutine has exited.
func (j *Job) Done() <-chan struct{} {
	return j.doneCh
}

// Expression returns the schedule string the job was registered with.
func (j *Job) Expression() string {
	return j.raw
}

// Len returns the number of active jobs.
func (s *CronScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop stops every registered job.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.Stop()
	}
}
