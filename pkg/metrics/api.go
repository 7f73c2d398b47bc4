package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics contains Prometheus metrics for the HTTP API service.
type APIMetrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec
	StoreOperationsTotal *prometheus.CounterVec
	StoreOperationTime   *prometheus.HistogramVec
	GeofenceEvaluations  *prometheus.CounterVec
	NotificationsEmitted *prometheus.CounterVec
}

// NewAPIMetrics creates and registers API service metrics.
func NewAPIMetrics(namespace string) *APIMetrics {
	m := &APIMetrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
			[]string{"method", "path"},
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of document store operations",
			},
			[]string{"operation", "status"}, // status: success, error
		),
		StoreOperationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Duration of document store operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		GeofenceEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "geofence",
				Name:      "evaluations_total",
				Help:      "Total number of geofence evaluations per ingested position",
			},
			[]string{"result"}, // result: inside, outside, error
		),
		NotificationsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "geofence",
				Name:      "notifications_emitted_total",
				Help:      "Total number of geofence transition notifications emitted",
			},
			[]string{"type"}, // type: enter, exit
		),
	}

	MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.StoreOperationsTotal,
		m.StoreOperationTime,
		m.GeofenceEvaluations,
		m.NotificationsEmitted,
	)

	return m
}
