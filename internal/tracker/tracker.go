// Package tracker simulates a fleet of GPS trackers publishing position
// reports and device announcements to RabbitMQ.
package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"geotrack.dev/geotrack/internal/ingest"
	"geotrack.dev/geotrack/internal/tracking"
	"geotrack.dev/geotrack/pkg/metrics"
	"geotrack.dev/geotrack/pkg/mq"
	"geotrack.dev/geotrack/pkg/simulator"
)

// Tracker is one simulated device: its identity, its movement model and
// the MQ clients it publishes through.
type Tracker struct {
	ReportClient mq.ClientInterface
	DeviceClient mq.ClientInterface

	device   *simulator.Tracker
	movement *simulator.Movement
	lastStep time.Time
	metrics  *metrics.TrackerMetrics // Optional metrics
}

// NewTracker creates a tracker around a synthetic device.
func NewTracker(device *simulator.Tracker, reportClient, deviceClient mq.ClientInterface) *Tracker {
	return &Tracker{
		ReportClient: reportClient,
		DeviceClient: deviceClient,
		device:       device,
		movement:     simulator.NewMovement(device),
		lastStep:     time.Now(),
	}
}

// SetMetrics sets the metrics collector for this tracker.
func (t *Tracker) SetMetrics(m *metrics.TrackerMetrics) {
	t.metrics = m
}

// Announce publishes the device announcement so the registry learns the
// tracker before its first report.
func (t *Tracker) Announce(ctx context.Context) error {
	announcement := ingest.DeviceAnnouncement{
		DeviceID: t.device.DeviceID,
		Name:     t.device.Name,
		Type:     t.device.Type,
		OwnerID:  t.device.OwnerID,
	}

	message, err := json.Marshal(announcement)
	if err != nil {
		t.trackFailure("marshal_error")
		return err
	}

	if err := t.DeviceClient.Push(ctx, message); err != nil {
		t.trackFailure("push_error")
		return err
	}

	return nil
}

// Report advances the movement model and publishes one position report.
func (t *Tracker) Report(ctx context.Context) error {
	var timer *prometheus.Timer
	if t.metrics != nil {
		timer = prometheus.NewTimer(t.metrics.GenerationDuration.WithLabelValues(t.device.Type))
		defer timer.ObserveDuration()
	}

	now := time.Now()
	sample := t.movement.Step(now.Sub(t.lastStep))
	t.lastStep = now

	report := tracking.PositionReport{
		DeviceID:     t.device.DeviceID,
		Lat:          &sample.Lat,
		Lng:          &sample.Lng,
		Speed:        &sample.Speed,
		BatteryLevel: &sample.BatteryLevel,
		Accuracy:     &sample.Accuracy,
	}

	message, err := json.Marshal(report)
	if err != nil {
		t.trackFailure("marshal_error")
		return err
	}

	if err := t.ReportClient.Push(ctx, message); err != nil {
		t.trackFailure("push_error")
		return err
	}

	if t.metrics != nil {
		t.metrics.ReportsGenerated.WithLabelValues(t.device.Type).Inc()
	}

	return nil
}

func (t *Tracker) trackFailure(reason string) {
	if t.metrics == nil {
		return
	}
	t.metrics.GenerationFailures.WithLabelValues(t.device.Type, reason).Inc()
}
