package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_cache_hits_total",
			Help: "Total number of target cache hits",
		},
		[]string{"layer"}, // "memory" or "redis"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_cache_misses_total",
			Help: "Total number of target cache misses",
		},
		[]string{"layer"},
	)

	CacheStaleFills = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_cache_stale_fills_total",
			Help: "Cache fills dropped because the code was invalidated during the read",
		},
		[]string{"layer"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qrlink_cache_size",
			Help: "Current number of items in cache",
		},
		[]string{"layer"},
	)

	// Request metrics
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrlink_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_requests_total",
			Help: "Total number of requests",
		},
		[]string{"method", "route", "status"},
	)

	// Registry metrics
	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_links_created_total",
			Help: "Short links created, by category",
		},
		[]string{"category"},
	)

	CodeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrlink_code_collisions_total",
			Help: "Generated codes rejected because they were already taken",
		},
	)

	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_resolutions_total",
			Help: "Short code resolutions, by outcome",
		},
		[]string{"outcome"}, // "found", "not_found", "error"
	)

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrlink_store_op_duration_seconds",
			Help:    "Link store operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Visit recorder metrics
	VisitsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_visits_recorded_total",
			Help: "Visit increments applied, by outcome",
		},
		[]string{"outcome"}, // "ok", "not_found", "error"
	)

	VisitQueueOverflow = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrlink_visit_queue_overflow_total",
			Help: "Visits recorded outside the worker pool because the queue was full",
		},
	)

	VisitQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qrlink_visit_queue_depth",
			Help: "Visits waiting in the recorder queue",
		},
	)
)
