// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

/*
Package events carries run report snapshots from running pipelines to the
report store over an in-process Watermill pub/sub.

A pipeline's WriteMetric hook publishes each snapshot on ReportsTopic; a
Router consumer decodes it and writes it to a store.ReportStore. The
Recoverer and Retry middleware guard the consumer so a transient store
error is retried instead of losing the snapshot.

The GoChannel pub/sub drops messages published while no subscriber is
attached, so the router must be running before pipelines start:

	router, _ := events.NewRouter(events.DefaultRouterConfig(), pubsub, reportStore, logger)
	go router.Run(ctx)
	<-router.Running()
*/
package events
