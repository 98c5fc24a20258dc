// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package main is the entry point for the Symbology server.

Symbology periodically reconciles facility registrations against facility
visits recorded on an Ona server. For every configured pipeline it pages
through the registration form, finds each facility's latest visit, decides
the marker color from the facility's priority and visit frequency, and
writes the color back as an edit to the registration submission.

# Application Architecture

Services run under a Suture v4 supervisor tree:

	RootSupervisor ("symbology")
	├── DataSupervisor ("data-layer")
	│   ├── Report router (events to the report store)
	│   └── Store GC (badger backend)
	├── PipelinesSupervisor ("pipelines-layer")
	│   ├── Pipelines controller (cron schedules)
	│   └── Pipelines file watcher (PIPELINES_WATCH)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Report store: BadgerDB or in-memory
 4. Report event bus: Watermill gochannel pub/sub and router
 5. Pipelines: config file, cron scheduler and controller
 6. Supervisor tree and HTTP server

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	HTTP_PORT=3858                          # HTTP server port
	LOG_LEVEL=info                          # trace, debug, info, warn, error
	LOG_FORMAT=json                         # json or console
	PIPELINES_FILE=/etc/symbology/pipelines.yaml
	PIPELINES_WATCH=true                    # reload pipelines on file change
	TZ_SCHEDULE=UTC                         # zone cron schedules run in
	STORE_BACKEND=badger                    # badger or memory
	STORE_PATH=/data/symbology
	EVENTS_ENABLED=true
	ONA_RETRY_ATTEMPTS=5
	ONA_RETRY_DELAY=20s

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
HTTP_SHUTDOWN_TIMEOUT, in-flight pipeline runs are cancelled and the report
store is closed last.
*/
package main
