// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// EventRouter is satisfied by *events.Router.
type EventRouter interface {
	Run(ctx context.Context) error
}

// RouterService wraps the report event router as a supervised service.
//
// A Watermill router cannot run again once it has stopped, so an early
// exit removes the service from the tree instead of restarting it.
type RouterService struct {
	router EventRouter
	name   string
}

// NewRouterService creates a new event router service wrapper.
func NewRouterService(router EventRouter) *RouterService {
	return &RouterService{
		router: router,
		name:   "event-router",
	}
}

// Serve implements suture.Service. Run blocks until ctx is canceled and
// the router has closed.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: event router stopped: %w", suture.ErrDoNotRestart, err)
	}
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer for logging.
func (s *RouterService) String() string {
	return s.name
}
