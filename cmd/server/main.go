// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package main is the entry point for the Albumflow server.
//
// Albumflow tracks construction documentation albums per project and
// pushes status changes to connected table views in real time. The
// server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config.yaml and
//     environment variables (Koanf v2)
//  2. Database: DuckDB album and event storage
//  3. WAL: BadgerDB write-ahead log for event durability (optional)
//  4. Event bus: in-process channels, or NATS JetStream when enabled
//  5. WebSocket hub: real-time fan-out to subscribed table views
//  6. Authentication and authorization: JWT plus Casbin RBAC
//  7. HTTP server: REST API and the /api/v1/ws event channel
//
// Everything long-lived runs under a suture supervisor tree; the
// process handles SIGINT and SIGTERM with graceful shutdown.
//
// For JWT authentication (the default):
//   - ALBUMFLOW_SECURITY__JWT_SECRET: 32+ character signing secret
//   - ALBUMFLOW_SECURITY__ADMIN_USERNAME / __ADMIN_PASSWORD
//
// For development, auth can be disabled:
//   - ALBUMFLOW_SECURITY__AUTH_MODE=none
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/albumflow/albumflow/internal/api"
	"github.com/albumflow/albumflow/internal/auth"
	"github.com/albumflow/albumflow/internal/authz"
	"github.com/albumflow/albumflow/internal/config"
	"github.com/albumflow/albumflow/internal/database"
	"github.com/albumflow/albumflow/internal/eventbus"
	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/supervisor"
	"github.com/albumflow/albumflow/internal/wal"
	ws "github.com/albumflow/albumflow/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

//nolint:gocyclo // sequential initialization steps
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("nats", cfg.NATS.Enabled).
		Bool("wal", cfg.WAL.Enabled).
		Msg("configuration loaded")

	// Root context cancelled by SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()
	logging.Info().Msg("database initialized")

	// Embedded NATS must be up before the bus dials it.
	if cfg.NATS.Enabled && cfg.NATS.EmbeddedServer {
		shutdownNATS, err := startEmbeddedNATS(&cfg.NATS)
		if err != nil {
			return fmt.Errorf("failed to start embedded nats server: %w", err)
		}
		defer shutdownNATS()
	}

	bus, err := eventbus.New(&cfg.NATS)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event bus")
		}
	}()

	var w *wal.WAL
	if cfg.WAL.Enabled {
		w, err = wal.Open(cfg.WAL.Path)
		if err != nil {
			return fmt.Errorf("failed to open wal: %w", err)
		}
		defer func() {
			if err := w.Close(); err != nil {
				logging.Error().Err(err).Msg("error closing wal")
			}
		}()
		w.LogRecovery(ctx)
	}

	hub := ws.NewHub()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("failed to initialize jwt manager: %w", err)
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return fmt.Errorf("failed to initialize authorization: %w", err)
	}

	handler := api.NewHandler(cfg, db, hub, bus, w, jwtManager, enforcer)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.Router(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(treeCfg)

	if w != nil {
		tree.AddDataService(wal.NewForwarder(w, bus, cfg.WAL.RetryInterval, cfg.WAL.MaxAttempts))
	}
	tree.AddMessagingService(supervisor.NewHubService(hub))
	tree.AddMessagingService(ws.NewBridge(bus, hub))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("starting albumflow")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree failed: %w", err)
	}

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop within timeout")
		}
	}

	logging.Info().Msg("shutdown complete")
	return nil
}
