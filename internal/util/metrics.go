package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_accepted_total",
		Help: "Total number of orders accepted by vendors",
	})

	OrdersDeclinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_declined_total",
		Help: "Total number of orders declined by vendors",
	})

	OrdersShippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_shipped_total",
		Help: "Total number of orders shipped via rider delivery",
	})

	OrdersDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_delivered_total",
		Help: "Total number of orders confirmed delivered",
	})

	PickupsScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pickups_scheduled_total",
		Help: "Total number of pickup windows scheduled",
	})

	DuplicateShipAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_ship_attempts_total",
		Help: "Total number of ship/schedule calls resolved as already processed",
	})

	OffersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_submitted_total",
		Help: "Total number of offers submitted",
	})

	OffersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offers_rejected_total",
		Help: "Total number of rejected offer submissions",
	}, []string{"reason"})

	RateLimitExceededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of submissions blocked by the usage guard",
	}, []string{"action"})

	NotifyFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_failures_total",
		Help: "Total number of fire-and-forget notification publish failures",
	}, []string{"kind"})

	StockpileAggregationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockpile_aggregation_latency_seconds",
		Help:    "Latency of stockpile aggregation reads",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
