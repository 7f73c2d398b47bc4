package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TrackerMetrics contains Prometheus metrics for the tracker simulator.
type TrackerMetrics struct {
	ReportsGenerated   *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	ActiveTrackers     prometheus.Gauge
}

// NewTrackerMetrics creates and registers tracker simulator metrics.
func NewTrackerMetrics(namespace string) *TrackerMetrics {
	m := &TrackerMetrics{
		ReportsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tracker",
				Name:      "reports_generated_total",
				Help:      "Total number of synthetic position reports generated",
			},
			[]string{"device_type"},
		),
		GenerationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tracker",
				Name:      "generation_failures_total",
				Help:      "Total number of report generation or publish failures",
			},
			[]string{"device_type", "reason"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "tracker",
				Name:      "generation_duration_seconds",
				Help:      "Duration of report generation and publishing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"device_type"},
		),
		ActiveTrackers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "tracker",
				Name:      "active_trackers",
				Help:      "Number of simulated trackers currently publishing",
			},
		),
	}

	MustRegister(
		m.ReportsGenerated,
		m.GenerationFailures,
		m.GenerationDuration,
		m.ActiveTrackers,
	)

	return m
}
