package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_events_received_total",
			Help: "Events handed to the pipeline, by kind and source",
		},
		[]string{"kind", "source"}, // kind: "event", "admin_event"; source: "kafka", "http"
	)

	EventsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_events_excluded_total",
			Help: "Events dropped by the exclusion policy",
		},
		[]string{"kind", "type"},
	)

	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_pipeline_failures_total",
			Help: "Non-fatal failures collected while processing events",
		},
		[]string{"stage"}, // "resolution", "store_write", "store_query", "notification", "directory", "archive"
	)

	AnomalyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_anomaly_decisions_total",
			Help: "Outcome of the login location check",
		},
		[]string{"decision"},
	)

	// Geolocation
	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_geo_lookups_total",
			Help: "Geolocation lookups by result",
		},
		[]string{"result"}, // "resolved", "unresolved", "rejected", "cache_hit"
	)

	GeoLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "login_guard_geo_lookup_duration_seconds",
			Help:    "Latency of calls to the geolocation API",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "login_guard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Event store
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "login_guard_store_operation_duration_seconds",
			Help:    "Latency of event store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_store_errors_total",
			Help: "Failed event store operations",
		},
		[]string{"operation", "table"},
	)

	// Alerts
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_notifications_total",
			Help: "Suspicious login emails by result",
		},
		[]string{"result"}, // "sent", "skipped", "failed"
	)

	AlertsArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_alerts_archived_total",
			Help: "Alerts copied to archive sinks",
		},
		[]string{"sink", "result"},
	)

	// Consumer
	KafkaMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_guard_kafka_messages_total",
			Help: "Messages read from the inbound topic by result",
		},
		[]string{"result"}, // "processed", "malformed", "panic"
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "login_guard_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveStore records the latency of one store operation and counts it
// as an error when err is non-nil.
func ObserveStore(operation, table string, start time.Time, err error) {
	StoreOperationDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(operation, table).Inc()
	}
}
