// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tomtom215/symbology/internal/api"
	"github.com/tomtom215/symbology/internal/config"
	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/scheduler"
	"github.com/tomtom215/symbology/internal/supervisor"
	"github.com/tomtom215/symbology/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Symbology exited with error")
	}
}

// run wires every component and blocks until a shutdown signal arrives and
// the supervisor tree has stopped.
//
//nolint:gocyclo // Sequential setup steps
func run() error {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	logging.Init(cfg.LoggingSettings())

	logging.Info().
		Str("pipelines_file", cfg.Pipelines.File).
		Str("store_backend", cfg.Store.Backend).
		Bool("events_enabled", cfg.Events.Enabled).
		Msg("Starting Symbology with supervisor tree")

	st, badgerStore, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing report store")
		}
	}()

	hooks, err := initReportHooks(cfg, st)
	if err != nil {
		return err
	}
	defer func() {
		if err := hooks.close(); err != nil {
			logging.Error().Err(err).Msg("Error closing report event bus")
		}
	}()

	sched := scheduler.New(cfg.Location())
	defer sched.Stop()

	ctrl, source, err := initPipelines(cfg, sched, hooks.attach())
	if err != nil {
		return err
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}

	// === DATA LAYER ===
	var pipelineOpts []services.PipelinesOption
	if hooks.router != nil {
		tree.AddDataService(services.NewRouterService(hooks.router))
		// Runs start only once snapshots have somewhere to go.
		pipelineOpts = append(pipelineOpts, services.WithReady(hooks.router.Running()))
		logging.Info().Msg("Report router service added")
	}
	if badgerStore != nil {
		tree.AddDataService(services.NewGCService(badgerStore, cfg.Store.GCInterval))
		logging.Info().Dur("interval", cfg.Store.GCInterval).Msg("Store GC service added")
	}

	// === PIPELINES LAYER ===
	tree.AddPipelineService(services.NewPipelinesService(ctrl, pipelineOpts...))
	if cfg.Pipelines.Watch {
		reloader, err := supervisor.NewPipelineReloader(source, ctrl)
		if err != nil {
			return err
		}
		reload := func(ctx context.Context) error {
			_, err := reloader.Reload(ctx)
			return err
		}
		tree.AddPipelineService(services.NewWatcherService(cfg.Pipelines.File, config.WatchConfigFile, reload, services.DefaultDebounce))
		logging.Info().Str("file", cfg.Pipelines.File).Msg("Pipelines file watcher added")
	}

	// === API LAYER ===
	handler := api.NewHandler(ctrl, st, api.WithHistoryLimit(cfg.Store.HistoryLimit))
	router := api.NewRouter(handler, api.NewChiMiddlewareConfig(
		cfg.Server.CORSOrigins,
		cfg.Server.RunRateLimit,
		cfg.Server.RunRateWindow,
	))
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error). The
	// channel receives exactly one value.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
		cancel()
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
