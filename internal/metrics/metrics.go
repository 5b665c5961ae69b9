// Package metrics defines the Prometheus collectors exported by the broker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "logfollow"

// Ingestion Metrics
var (
	// PusherSessionsActive tracks currently connected pusher sessions
	PusherSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "pusher_sessions_active",
			Help:      "Number of connected pusher sessions",
		},
	)

	// ActiveSources tracks log paths with at least one streaming pusher
	ActiveSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "active_sources",
			Help:      "Number of log paths currently being ingested",
		},
	)

	// LinesIngestedTotal tracks lines read from pushers
	LinesIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "lines_total",
			Help:      "Total log lines read from pushers",
		},
	)

	// SessionErrorsTotal tracks pusher sessions that ended with an error, by kind
	SessionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "session_errors_total",
			Help:      "Pusher sessions closed by an error, by kind (header/transport)",
		},
		[]string{"kind"},
	)
)

// Viewer Metrics
var (
	// ViewerSessionsActive tracks connected viewer sessions
	ViewerSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "sessions_active",
			Help:      "Number of connected viewer sessions",
		},
	)

	// CommandsTotal tracks inbound viewer commands by kind
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "commands_total",
			Help:      "Inbound viewer commands by kind (follow/unfollow/unknown)",
		},
		[]string{"kind"},
	)

	// SlowViewersEvictedTotal tracks viewers disconnected because their send queue filled up
	SlowViewersEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "slow_evicted_total",
			Help:      "Viewers disconnected because their send queue was full",
		},
	)
)

// Fan-out Metrics
var (
	// DeliveriesTotal tracks per-viewer deliveries by route and status
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "deliveries_total",
			Help:      "Messages queued for viewers by route (entry/operator) and status (ok/failed)",
		},
		[]string{"route", "status"},
	)
)
