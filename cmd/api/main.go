// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Api is the entry point for the Yomira catalogue API server.

The server aggregates Korean manhwa metadata from an external upstream
catalogue into a locally searchable, cached store, and keeps it fresh with a
background resynchronisation worker.

Usage:

	go run cmd/api/main.go [flags]

The flags/environment variables are:

	SERVER_PORT       Port to listen on (default: 8080)
	ENVIRONMENT       deployment environment (development, production)
	DATABASE_URL      Postgres connection string (required)
	UPSTREAM_API_URL  Base URL of the upstream catalogue (required)

Startup Sequence:

 1. Logger: Initialize structured JSON logging (slog).
 2. Config: Load and validate environment variables.
 3. Storage: Establish the Postgres connection pool.
 4. Migration: Run idempotent schema updates.
 5. Wiring: Inject dependencies into domain services/handlers.
 6. Server: Bind HTTP listener and handle graceful shutdown.

No business logic lives here. This file is strictly for orchestration and wiring.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/yomira/internal/api"
	"github.com/taibuivan/yomira/internal/core/manhwa"
	"github.com/taibuivan/yomira/internal/platform/cache"
	"github.com/taibuivan/yomira/internal/platform/coalesce"
	"github.com/taibuivan/yomira/internal/platform/config"
	"github.com/taibuivan/yomira/internal/platform/constants"
	"github.com/taibuivan/yomira/internal/platform/migration"
	pgstore "github.com/taibuivan/yomira/internal/platform/postgres"
	syncer "github.com/taibuivan/yomira/internal/sync"
	"github.com/taibuivan/yomira/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries for trace correlation
	log := rawLog.With(slog.String("app", "yomira"))
	slog.SetDefault(log)

	log.Info("[Yomira] service_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Adjust log level if debug mode is explicitly enabled
	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "yomira"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. A 30s deadline prevents the app from hanging.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// # 3. PostgreSQL
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// # 4. Migrations
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// # 5. Health Wiring
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
	}, log)

	// # 6. Catalogue Store, Cache, Coalescer, Search
	store := manhwa.NewPostgresStore(pool)

	caches, err := cache.NewTiers(
		startupCtx,
		time.Duration(cfg.CacheTTLDefaultSeconds)*time.Second,
		time.Duration(cfg.CacheTTLSearchSeconds)*time.Second,
		time.Duration(cfg.CacheTTLTagSeconds)*time.Second,
		cfg.CacheMaxKeys,
		log,
	)
	if err != nil {
		return fmt.Errorf("construct cache tiers: %w", err)
	}

	group := coalesce.New()
	engine := manhwa.NewSearchEngine(store)

	// # 7. Upstream Client
	upstreamClient := upstream.NewClient(upstream.Config{
		BaseURL:   cfg.UpstreamAPIURL,
		Username:  cfg.UpstreamUsername,
		Secret:    cfg.UpstreamSecret,
		UserAgent: cfg.UpstreamUserAgent,
	}, log)

	// # 8. Catalogue Service
	// The syncer is attached after construction (below), to break the
	// construction-order cycle between Service and Syncer.
	catalogueSvc := manhwa.NewService(store, engine, caches, group, upstreamClient, nil, cfg.UpstreamAPIURL, log)

	// # 9. Background Syncer
	resync, err := syncer.New(catalogueSvc, store, cfg.SyncBatchSize, cfg.SyncCronSchedule, log)
	if err != nil {
		return fmt.Errorf("construct syncer: %w", err)
	}
	catalogueSvc.SetSyncer(resync)
	resync.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := resync.Stop(stopCtx); err != nil {
			log.Error("syncer_stop_error", slog.Any("error", err))
		}
	}()

	// # 10. Catalogue Handler
	catalogueHdl := manhwa.NewHandler(catalogueSvc, resync.SyncNow, func() any { return resync.Status() })

	// # 11. API Assembly
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Manhwa:    catalogueHdl,
	}

	// Create a background context for the whole application lifecycle
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	server := api.NewServer(appCtx, cfg, log, cfg.AdminAPIToken, handlers)

	// # 12. Lifecycle Handling
	shutdownErr := make(chan error, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr <- fmt.Errorf("http_server_crash: %w", err)
		}
	}()

	log.Info("yomira_api_running", slog.String("port", cfg.ServerPort))

	// Block until signal or error
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-shutdownErr:
		return err
	}

	// Start Graceful Shutdown Sequence
	appCancel() // Signal background workers to stop

	log.Info("shutting_down_api_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("server_shutdown_failed: %w", err)
	}

	log.Info("graceful_shutdown_complete")
	return nil
}
