// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package supervisor provides process supervision for Symbology using suture v4.

# Overview

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("symbology")
	├── DataSupervisor ("data-layer")
	│   ├── RouterService (report events into the store)
	│   └── GCService (badger backend only)
	├── PipelinesSupervisor ("pipelines-layer")
	│   ├── PipelinesService (controller Start/Stop)
	│   └── WatcherService (if PIPELINES_WATCH)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crash in the pipelines layer leaves the API serving stored reports, and
an HTTP failure does not interrupt scheduled runs.

# Reloading Pipelines

PipelineReloader applies a re-read pipelines file to the controller. It
refreshes the runner set by UUID and then pushes the new config into every
runner whose content changed. WatcherService calls it on file change.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddDataService(services.NewRouterService(router))
	tree.AddPipelineService(services.NewPipelinesService(controller, services.WithReady(router.Running())))
	tree.AddAPIService(services.NewHTTPServerService(server, 30*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Above FailureThreshold the supervisor waits FailureBackoff before the next
restart. Returning suture.ErrDoNotRestart removes a service from the tree.

# Debugging Shutdown Issues

Services that did not stop within ShutdownTimeout are listed by
UnstoppedServiceReport.
*/
package supervisor
