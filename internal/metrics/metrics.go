// Package metrics provides Prometheus metrics for the transit proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Realtime pipeline metrics
	RealtimeFetchesTotal    *prometheus.CounterVec
	FeedDecodeFailuresTotal *prometheus.CounterVec
	CoherenceWarningsTotal  *prometheus.CounterVec
	AppliedUpdatesTotal     *prometheus.CounterVec

	// Base schedule metrics
	DatasetReloadsTotal  *prometheus.CounterVec
	TimetableConnections *prometheus.GaugeVec
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_proxy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transit_proxy_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	realtimeFetchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_proxy_realtime_fetches_total",
			Help: "GTFS-RT fetches by source url and outcome",
		},
		[]string{"url", "outcome"},
	)

	feedDecodeFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_proxy_feed_decode_failures_total",
			Help: "GTFS-RT protobuf payloads that could not be decoded",
		},
		[]string{"dataset"},
	)

	coherenceWarningsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_proxy_coherence_warnings_total",
			Help: "Trip updates whose stop id disagreed with the schedule at that sequence",
		},
		[]string{"dataset"},
	)

	appliedUpdatesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_proxy_applied_updates_total",
			Help: "Connections updated with realtime information",
		},
		[]string{"dataset"},
	)

	datasetReloadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_proxy_dataset_reloads_total",
			Help: "Base schedule reload attempts by outcome",
		},
		[]string{"dataset", "outcome"},
	)

	timetableConnections := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transit_proxy_timetable_connections",
			Help: "Number of connections in the current base timetable",
		},
		[]string{"dataset"},
	)

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		realtimeFetchesTotal,
		feedDecodeFailuresTotal,
		coherenceWarningsTotal,
		appliedUpdatesTotal,
		datasetReloadsTotal,
		timetableConnections,
	)

	return &Metrics{
		Registry:                registry,
		HTTPRequestsTotal:       httpRequestsTotal,
		HTTPRequestDuration:     httpRequestDuration,
		RealtimeFetchesTotal:    realtimeFetchesTotal,
		FeedDecodeFailuresTotal: feedDecodeFailuresTotal,
		CoherenceWarningsTotal:  coherenceWarningsTotal,
		AppliedUpdatesTotal:     appliedUpdatesTotal,
		DatasetReloadsTotal:     datasetReloadsTotal,
		TimetableConnections:    timetableConnections,
	}
}
