package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"geotrack.dev/geotrack/internal/geo"
)

// Notification types emitted by geofence evaluation.
const (
	NotificationEnter = "geofence_enter"
	NotificationExit  = "geofence_exit"
)

// GeofenceInput is the caller-supplied part of a geofence document.
// Coordinates are pointers: zero is a legal value for each of them.
type GeofenceInput struct {
	Name   string   `json:"name"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Radius *float64 `json:"radius"`
}

// Geofences lists a device's zones sorted by ID.
func (s *Service) Geofences(ctx context.Context, deviceID string) ([]Geofence, error) {
	device, err := s.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	zones := make([]Geofence, 0, len(device.Geofences))
	for id, g := range device.Geofences {
		g.ID = id
		zones = append(zones, g)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })
	return zones, nil
}

// AddGeofence attaches a new circular zone to a device. The zone starts
// active with no inside/outside classification; the first evaluated
// position establishes it without emitting a notification.
func (s *Service) AddGeofence(ctx context.Context, deviceID string, in GeofenceInput) (*Geofence, error) {
	if in.Name == "" {
		return nil, validationErrorf("geofence name is required")
	}
	if in.Lat == nil || in.Lng == nil || in.Radius == nil {
		return nil, validationErrorf("lat, lng and radius are required")
	}
	if *in.Radius <= 0 {
		return nil, validationErrorf("radius must be positive")
	}

	if _, err := s.getDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	zone := Geofence{
		Name:      in.Name,
		Lat:       *in.Lat,
		Lng:       *in.Lng,
		Radius:    *in.Radius,
		Active:    true,
		CreatedAt: s.timestamp(),
	}

	id, err := s.store.Push(ctx, "devices/"+deviceID+"/geofences", zone)
	if err != nil {
		return nil, upstreamErr(err)
	}

	zone.ID = id
	s.logger.Info("geofence added", "device", deviceID, "geofence", id)
	return &zone, nil
}

// UpdateGeofence applies a partial update to a zone and stamps updatedAt.
func (s *Service) UpdateGeofence(ctx context.Context, deviceID, geofenceID string, fields map[string]any) error {
	if geofenceID == "" {
		return validationErrorf("geofence id is required")
	}
	if len(fields) == 0 {
		return validationErrorf("no fields to update")
	}
	if r, ok := fields["radius"]; ok {
		radius, isNum := toFloat(r)
		if !isNum || radius <= 0 {
			return validationErrorf("radius must be positive")
		}
	}

	device, err := s.getDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if _, ok := device.Geofences[geofenceID]; !ok {
		return &NotFoundError{Resource: "geofence", ID: geofenceID}
	}

	fields["updatedAt"] = s.timestamp()
	err = s.store.Update(ctx, "devices/"+deviceID+"/geofences/"+geofenceID, fields)
	if err != nil {
		return upstreamErr(err)
	}
	return nil
}

// DeleteGeofence removes a zone from a device.
func (s *Service) DeleteGeofence(ctx context.Context, deviceID, geofenceID string) error {
	if geofenceID == "" {
		return validationErrorf("geofence id is required")
	}

	device, err := s.getDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if _, ok := device.Geofences[geofenceID]; !ok {
		return &NotFoundError{Resource: "geofence", ID: geofenceID}
	}

	err = s.store.Delete(ctx, "devices/"+deviceID+"/geofences/"+geofenceID)
	if err != nil {
		return upstreamErr(err)
	}
	return nil
}

// evaluateGeofences classifies a fresh position against every active zone
// of the device and emits enter/exit notifications on transitions. The
// device snapshot was loaded before the position writes, which is close
// enough: evaluation is advisory and the next report re-evaluates.
func (s *Service) evaluateGeofences(ctx context.Context, device *Device, position *Position) error {
	ids := make([]string, 0, len(device.Geofences))
	for id := range device.Geofences {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		zone := device.Geofences[id]
		if !zone.Active {
			continue
		}

		circle := geo.Circle{Lat: zone.Lat, Lng: zone.Lng, Radius: zone.Radius}
		inside := circle.Contains(position.Lat, position.Lng)
		s.trackGeofence(inside)

		if zone.WasInside != nil && *zone.WasInside != inside {
			kind := NotificationExit
			verb := "left"
			if inside {
				kind = NotificationEnter
				verb = "entered"
			}
			_, err := s.CreateNotification(ctx, device.OwnerID, NotificationInput{
				Type:     kind,
				DeviceID: device.ID,
				Message:  fmt.Sprintf("%s %s zone %q", device.Name, verb, zone.Name),
			})
			if err != nil {
				return err
			}
			if s.metrics != nil {
				label := "exit"
				if inside {
					label = "enter"
				}
				s.metrics.NotificationsEmitted.WithLabelValues(label).Inc()
			}
		}

		if zone.WasInside == nil || *zone.WasInside != inside {
			err := s.store.Set(ctx, "devices/"+device.ID+"/geofences/"+id+"/wasInside", inside)
			if err != nil {
				return upstreamErr(err)
			}
		}
	}
	return nil
}

func (s *Service) trackGeofence(inside bool) {
	if s.metrics == nil {
		return
	}
	result := "outside"
	if inside {
		result = "inside"
	}
	s.metrics.GeofenceEvaluations.WithLabelValues(result).Inc()
}

// toFloat normalizes the numeric types a JSON-decoded update map can carry.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
