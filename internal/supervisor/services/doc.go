// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package services adapts Symbology's long-running components to suture.Service.

Each wrapper translates a component lifecycle into Serve(ctx) error:

  - HTTPServerService: ListenAndServe and Shutdown
  - PipelinesService: the controller's Start and Stop
  - RouterService: the report event router's Run
  - WatcherService: file watch callbacks into debounced reloads
  - GCService: periodic store garbage collection

All wrappers implement fmt.Stringer so suture logs them by name.
*/
package services
