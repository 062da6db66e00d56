// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package api provides the HTTP surface of the Albumflow server:
// album CRUD, status mutations, event history, token issuance and the
// websocket event channel.
package api

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"github.com/albumflow/albumflow/internal/auth"
	"github.com/albumflow/albumflow/internal/authz"
	"github.com/albumflow/albumflow/internal/config"
	"github.com/albumflow/albumflow/internal/database"
	"github.com/albumflow/albumflow/internal/eventbus"
	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/wal"
	"github.com/albumflow/albumflow/internal/websocket"
)

// Handler holds every dependency the HTTP handlers need.
type Handler struct {
	db       *database.DB
	hub      *websocket.Hub
	bus      *eventbus.Bus
	wal      *wal.WAL
	jwt      *auth.JWTManager
	enforcer *authz.Enforcer
	cfg      *config.Config
	upgrader gorillaws.Upgrader
}

// NewHandler wires the handler. wal may be nil when the write-ahead
// log is disabled by configuration.
func NewHandler(cfg *config.Config, db *database.DB, hub *websocket.Hub, bus *eventbus.Bus, w *wal.WAL, jwt *auth.JWTManager, enforcer *authz.Enforcer) *Handler {
	h := &Handler{
		db:       db,
		hub:      hub,
		bus:      bus,
		wal:      w,
		jwt:      jwt,
		enforcer: enforcer,
		cfg:      cfg,
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkWebSocketOrigin,
	}
	return h
}

// checkWebSocketOrigin allows same-origin upgrades plus the configured
// CORS origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients
	}
	for _, allowed := range h.cfg.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket upgrade rejected by origin check")
	return false
}
