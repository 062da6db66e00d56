// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/albumflow/albumflow/internal/auth"
	"github.com/albumflow/albumflow/internal/middleware"
)

// Router builds the full HTTP surface around a Handler.
func Router(h *Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints: permissive rate limit for monitoring probes.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// Auth endpoints: tight limit against brute force.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/login", h.Login)
	})

	// Data endpoints: authenticated, authorized, instrumented.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(h.cfg.Server.RateLimit, time.Minute))
		r.Use(middleware.Metrics)
		if h.cfg.Security.AuthMode == "none" {
			r.Use(auth.PassthroughMiddleware)
		} else {
			r.Use(h.jwt.Middleware)
		}
		r.Use(h.enforcer.Middleware)

		r.Get("/projects/{projectID}/albums", h.ListAlbums)
		r.Post("/projects/{projectID}/albums", h.CreateAlbum)
		r.Get("/albums/{albumID}/events", h.AlbumEvents)
		r.Post("/albums/{albumID}/status", h.ChangeStatus)
		r.Get("/ws", h.WebSocket)
	})

	// Prometheus scrape endpoint, outside the API envelope.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
