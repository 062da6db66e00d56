// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package metrics defines Prometheus instrumentation for Albumflow:
// database query performance, API latency, event pipeline throughput,
// WebSocket connections and projection cache efficiency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "albumflow_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "albumflow_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "albumflow_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "albumflow_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Event pipeline metrics
	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "albumflow_events_published_total",
			Help: "Total number of status events published to the bus",
		},
	)

	EventsBroadcast = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "albumflow_events_broadcast_total",
			Help: "Total number of status events fanned out to WebSocket clients",
		},
	)

	WALPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "albumflow_wal_pending_entries",
			Help: "Current number of unconfirmed WAL entries",
		},
	)

	// WebSocket metrics
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "albumflow_ws_clients",
			Help: "Current number of connected WebSocket clients",
		},
	)

	// Projection metrics
	StatusUpdatesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "albumflow_status_updates_applied_total",
			Help: "Total number of push status updates applied to local projections",
		},
	)

	StatusUpdatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "albumflow_status_updates_skipped_total",
			Help: "Push status updates skipped (unknown code, missing album, wrong scope)",
		},
		[]string{"reason"},
	)

	HistoryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "albumflow_history_cache_hits_total",
			Help: "Event-history cache hits",
		},
	)

	HistoryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "albumflow_history_cache_misses_total",
			Help: "Event-history cache misses",
		},
	)
)

// ObserveDBQuery records a database query duration and outcome.
func ObserveDBQuery(operation, table string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
