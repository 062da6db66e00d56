// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/albumflow/albumflow/internal/metrics"
)

// Metrics instruments every request with count and duration, labeled
// by the chi route pattern rather than the raw path so album ids do
// not explode label cardinality.
//
// The wrapper must keep http.Hijacker reachable: /api/v1/ws lives in
// this middleware group and the websocket upgrade hijacks the
// connection. chi's WrapResponseWriter preserves the underlying
// writer's optional interfaces.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			// Hijacked or header never written.
			status = http.StatusOK
		}

		metrics.APIRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
