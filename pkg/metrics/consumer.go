package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics contains Prometheus metrics for the position report consumer.
type ConsumerMetrics struct {
	ReportsTotal       *prometheus.CounterVec
	ReportErrors       *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ActiveConsumers    prometheus.Gauge
}

// NewConsumerMetrics creates and registers consumer metrics.
func NewConsumerMetrics(namespace string) *ConsumerMetrics {
	m := &ConsumerMetrics{
		ReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "reports_total",
				Help:      "Total number of position reports consumed",
			},
			[]string{"queue", "status"}, // status: success, dropped, error
		),
		ReportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "errors_total",
				Help:      "Total number of consumer errors",
			},
			[]string{"queue", "error_type"},
		),
		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "processing_duration_seconds",
				Help:      "Duration of report processing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"queue"},
		),
		ActiveConsumers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "active_consumers",
				Help:      "Number of active report consumers",
			},
		),
	}

	MustRegister(
		m.ReportsTotal,
		m.ReportErrors,
		m.ProcessingDuration,
		m.ActiveConsumers,
	)

	return m
}
