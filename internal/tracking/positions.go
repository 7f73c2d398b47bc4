package tracking

import (
	"context"
	"sort"
	"time"
)

// DefaultPositionLimit bounds history queries when the caller does not
// supply a limit.
const DefaultPositionLimit = 100

// PositionReport is a raw position sample from a tracker. Lat and Lng are
// pointers so a missing coordinate is distinguishable from zero, which is
// a legal coordinate.
type PositionReport struct {
	DeviceID     string   `json:"deviceId"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	Altitude     *float64 `json:"altitude,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	BatteryLevel *float64 `json:"batteryLevel,omitempty"`
}

// ReportPosition ingests one position sample: it appends the sample to
// the device's position log and stamps the device live. The three store
// writes are independent; a crash between them leaves a partially
// stamped device, which the next report repairs.
//
// Geofence evaluation runs after the writes. Evaluation failures are
// logged and never surface to the reporter: a lost notification must not
// reject a valid sample.
func (s *Service) ReportPosition(ctx context.Context, report PositionReport) (*Position, error) {
	if report.DeviceID == "" {
		return nil, validationErrorf("deviceId is required")
	}
	if report.Lat == nil || report.Lng == nil {
		return nil, validationErrorf("lat and lng are required")
	}
	if *report.Lat < -90 || *report.Lat > 90 {
		return nil, validationErrorf("lat %v out of range", *report.Lat)
	}
	if *report.Lng < -180 || *report.Lng > 180 {
		return nil, validationErrorf("lng %v out of range", *report.Lng)
	}

	device, err := s.getDevice(ctx, report.DeviceID)
	if err != nil {
		return nil, err
	}

	position := Position{
		Timestamp:    s.timestamp(),
		Lat:          *report.Lat,
		Lng:          *report.Lng,
		Accuracy:     report.Accuracy,
		Altitude:     report.Altitude,
		Speed:        report.Speed,
		BatteryLevel: report.BatteryLevel,
	}

	id, err := s.store.Push(ctx, "positions/"+report.DeviceID, position)
	if err != nil {
		return nil, upstreamErr(err)
	}
	position.ID = id

	err = s.store.Set(ctx, "devices/"+report.DeviceID+"/lastActive", position.Timestamp)
	if err != nil {
		return nil, upstreamErr(err)
	}

	err = s.store.Set(ctx, "devices/"+report.DeviceID+"/isOnline", true)
	if err != nil {
		return nil, upstreamErr(err)
	}

	if err := s.evaluateGeofences(ctx, device, &position); err != nil {
		s.logger.Error("geofence evaluation failed", "device", report.DeviceID, "error", err)
	}

	return &position, nil
}

// Positions returns the most recent limit entries of a device's position
// log, oldest first. A non-positive limit selects the default.
func (s *Service) Positions(ctx context.Context, deviceID string, limit int) ([]Position, error) {
	if deviceID == "" {
		return nil, validationErrorf("device id is required")
	}
	if limit <= 0 {
		limit = DefaultPositionLimit
	}

	nodes, err := s.store.Tail(ctx, "positions/"+deviceID, "timestamp", limit)
	if err != nil {
		return nil, upstreamErr(err)
	}

	positions, err := decodePositions(nodes)
	if err != nil {
		return nil, upstreamErr(err)
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Timestamp < positions[j].Timestamp
	})
	return positions, nil
}

// LastPosition returns the device's newest position, or nil when the log
// is empty.
func (s *Service) LastPosition(ctx context.Context, deviceID string) (*Position, error) {
	positions, err := s.Positions(ctx, deviceID, 1)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, nil
	}
	return &positions[0], nil
}

// Subscribe delivers the device's latest position on the returned channel
// whenever it changes, polling the store every interval. The channel is
// closed when ctx is cancelled. Each delivery is the authoritative stored
// snapshot, not the raw reported sample.
func (s *Service) Subscribe(ctx context.Context, deviceID string, interval time.Duration) (<-chan Position, error) {
	if deviceID == "" {
		return nil, validationErrorf("device id is required")
	}
	if interval <= 0 {
		interval = time.Second
	}

	out := make(chan Position, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastID string
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			latest, err := s.LastPosition(ctx, deviceID)
			if err != nil {
				s.logger.Error("position poll failed", "device", deviceID, "error", err)
				continue
			}
			if latest == nil || latest.ID == lastID {
				continue
			}
			lastID = latest.ID

			select {
			case out <- *latest:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
