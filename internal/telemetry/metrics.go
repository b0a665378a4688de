/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spaceship"

var (
	// APIRequestDuration tracks HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIRequestsTotal counts HTTP requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections is the number of in-flight requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "In-flight HTTP requests.",
	})

	// APIRateLimited counts requests rejected by the rate limiter.
	APIRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	// OptimizeDuration tracks solver time per algorithm.
	OptimizeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "duration_seconds",
		Help:      "Time spent computing the best contract selection.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
	}, []string{"algorithm"})

	// OptimizeContracts tracks input sizes.
	OptimizeContracts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "contracts",
		Help:      "Number of contracts per optimization request.",
		Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
	})

	// OptimizeRejected counts requests refused by validation, by reason.
	OptimizeRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "rejected_total",
		Help:      "Optimization requests rejected by validation.",
	}, []string{"reason"})

	// CacheRequests counts result cache lookups by outcome (hit, miss, error).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Result cache lookups.",
	}, []string{"result"})

	// EventsForwarded counts events relayed to the external bus.
	EventsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "eventbus",
		Name:      "forwarded_total",
		Help:      "Events relayed to the external event bus.",
	}, []string{"backend", "status"})

	// RunsPrunedTotal counts deleted run history rows.
	RunsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "runs",
		Name:      "pruned_total",
		Help:      "Run history entries deleted by retention.",
	})

	// LeaderStatus is 1 while this instance holds the maintenance lease.
	LeaderStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "leader",
		Name:      "status",
		Help:      "Whether this instance is the maintenance leader.",
	})

	// LeaderChanges counts leadership transitions.
	LeaderChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "leader",
		Name:      "changes_total",
		Help:      "Leadership acquisitions and losses.",
	}, []string{"transition"})

	// DatabaseQueryDuration tracks database operation latency.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Database operation duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed database operations.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "errors_total",
		Help:      "Failed database operations.",
	}, []string{"operation"})
)

// Handler exposes metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
