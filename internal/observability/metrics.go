package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// capture engine metrics
	TransactionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_transactions_started_total",
		Help: "Observed transaction begins",
	})

	TransactionsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_transactions_ended_total",
		Help: "Observed transaction completions",
	}, []string{"outcome"})

	RecordsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_records_emitted_total",
		Help: "Audit records persisted",
	}, []string{"action"})

	PersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_persist_failures_total",
		Help: "Record batches the store rejected",
	})

	ChangeDetectDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_change_detect_duration_seconds",
		Help:    "Per-entity property diff duration",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	})

	PropertiesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_properties_skipped_total",
		Help: "Properties skipped during diffing",
	}, []string{"reason"})

	CollectionDiffs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_collection_diffs_total",
		Help: "Collection membership diffs recorded",
	})

	CapturePanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_capture_panics_total",
		Help: "Panics recovered at the transaction-end boundary",
	})

	// audit-api metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	ActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audit_active_requests",
		Help: "Current in-flight requests",
	})
)

func RegisterAll(reg prometheus.Registerer) {
	reg.MustRegister(
		TransactionsStarted, TransactionsEnded, RecordsEmitted, PersistFailures,
		ChangeDetectDuration, PropertiesSkipped, CollectionDiffs, CapturePanics,
		HTTPRequestsTotal, HTTPRequestDuration, ActiveRequests,
	)
}
