// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package services

import (
	"context"
	"fmt"
)

// StartStopper is satisfied by *evaluator.Controller:
//   - Start(ctx) reloads the configs and turns scheduling on
//   - Stop() cancels every run and schedule
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// PipelinesService wraps the pipelines controller as a supervised service.
//
// It adapts the Start/Stop lifecycle to suture's Serve pattern:
//  1. Waits for the ready channel, if one is set
//  2. Calls Start(ctx), which schedules every pipeline
//  3. Waits for context cancellation
//  4. Calls Stop()
//
// Runs started by the controller derive from ctx, so canceling the service
// also cancels in-flight runs.
type PipelinesService struct {
	controller StartStopper
	ready      <-chan struct{}
	name       string
}

// PipelinesOption configures a PipelinesService.
type PipelinesOption func(*PipelinesService)

// WithReady delays Start until ready is closed. Used to hold scheduling
// back until the report event router is subscribed.
func WithReady(ready <-chan struct{}) PipelinesOption {
	return func(s *PipelinesService) {
		s.ready = ready
	}
}

// NewPipelinesService creates a new controller service wrapper.
//
//	svc := services.NewPipelinesService(controller, services.WithReady(router.Running()))
//	tree.AddPipelineService(svc)
func NewPipelinesService(controller StartStopper, opts ...PipelinesOption) *PipelinesService {
	s := &PipelinesService{
		controller: controller,
		name:       "pipelines-controller",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve implements suture.Service. A failed Start is returned so suture
// restarts the service with backoff.
func (s *PipelinesService) Serve(ctx context.Context) error {
	if s.ready != nil {
		select {
		case <-s.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := s.controller.Start(ctx); err != nil {
		return fmt.Errorf("pipelines controller start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.controller.Stop(); err != nil {
		return fmt.Errorf("pipelines controller stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *PipelinesService) String() string {
	return s.name
}
