package tracking

import (
	"context"
	"encoding/json"
)

// DeviceInput is the caller-supplied part of a device document.
type DeviceInput struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	OwnerID string `json:"ownerId"`
}

func validDeviceType(t string) bool {
	switch t {
	case DeviceTypeChild, DeviceTypeElderly, DeviceTypeObject:
		return true
	}
	return false
}

// ListDevices returns all devices owned by ownerID, in store order.
func (s *Service) ListDevices(ctx context.Context, ownerID string) ([]Device, error) {
	if ownerID == "" {
		return nil, validationErrorf("ownerId is required")
	}

	nodes, err := s.store.ByChild(ctx, "devices", "ownerId", ownerID)
	if err != nil {
		return nil, upstreamErr(err)
	}

	devices := make([]Device, 0, len(nodes))
	for _, n := range nodes {
		var d Device
		if err := json.Unmarshal(n.Raw, &d); err != nil {
			return nil, upstreamErr(err)
		}
		d.ID = n.Key
		devices = append(devices, d)
	}
	return devices, nil
}

// GetDevice returns a single device document.
func (s *Service) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	if deviceID == "" {
		return nil, validationErrorf("device id is required")
	}
	return s.getDevice(ctx, deviceID)
}

// AddDevice registers a new tracker. The device starts offline; liveness
// fields are stamped on its first position report.
func (s *Service) AddDevice(ctx context.Context, in DeviceInput) (*Device, error) {
	if in.Name == "" {
		return nil, validationErrorf("device name is required")
	}
	if !validDeviceType(in.Type) {
		return nil, validationErrorf("invalid device type %q", in.Type)
	}
	if in.OwnerID == "" {
		return nil, validationErrorf("ownerId is required")
	}

	device := Device{
		Name:       in.Name,
		Type:       in.Type,
		OwnerID:    in.OwnerID,
		CreatedAt:  s.timestamp(),
		LastActive: s.timestamp(),
		IsOnline:   false,
	}

	id, err := s.store.Push(ctx, "devices", device)
	if err != nil {
		return nil, upstreamErr(err)
	}

	device.ID = id
	s.logger.Info("device added", "device", id, "owner", in.OwnerID)
	return &device, nil
}

// ImportDevice creates a device document at a caller-chosen identifier,
// for trackers that announce themselves from the field. Importing an
// already known device is a no-op returning the stored document.
func (s *Service) ImportDevice(ctx context.Context, deviceID string, in DeviceInput) (*Device, error) {
	if deviceID == "" {
		return nil, validationErrorf("device id is required")
	}
	if in.Name == "" {
		return nil, validationErrorf("device name is required")
	}
	if !validDeviceType(in.Type) {
		return nil, validationErrorf("invalid device type %q", in.Type)
	}
	if in.OwnerID == "" {
		return nil, validationErrorf("ownerId is required")
	}

	var existing Device
	found, err := s.store.Get(ctx, "devices/"+deviceID, &existing)
	if err != nil {
		return nil, upstreamErr(err)
	}
	if found {
		existing.ID = deviceID
		return &existing, nil
	}

	device := Device{
		Name:       in.Name,
		Type:       in.Type,
		OwnerID:    in.OwnerID,
		CreatedAt:  s.timestamp(),
		LastActive: s.timestamp(),
		IsOnline:   false,
	}

	err = s.store.Set(ctx, "devices/"+deviceID, device)
	if err != nil {
		return nil, upstreamErr(err)
	}

	device.ID = deviceID
	s.logger.Info("device imported", "device", deviceID, "owner", in.OwnerID)
	return &device, nil
}

// UpdateDevice applies a partial update to a device document. Unknown
// devices are reported as not found; only the supplied fields change.
func (s *Service) UpdateDevice(ctx context.Context, deviceID string, fields map[string]any) error {
	if deviceID == "" {
		return validationErrorf("device id is required")
	}
	if len(fields) == 0 {
		return validationErrorf("no fields to update")
	}
	if t, ok := fields["type"]; ok {
		str, isStr := t.(string)
		if !isStr || !validDeviceType(str) {
			return validationErrorf("invalid device type %v", t)
		}
	}

	if _, err := s.getDevice(ctx, deviceID); err != nil {
		return err
	}

	err := s.store.Update(ctx, "devices/"+deviceID, fields)
	if err != nil {
		return upstreamErr(err)
	}
	return nil
}

// DeleteDevice removes a device and its entire position log. The two
// deletions are independent writes: the device disappears first, the
// positions follow.
func (s *Service) DeleteDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return validationErrorf("device id is required")
	}

	if _, err := s.getDevice(ctx, deviceID); err != nil {
		return err
	}

	err := s.store.Delete(ctx, "devices/"+deviceID)
	if err != nil {
		return upstreamErr(err)
	}

	err = s.store.Delete(ctx, "positions/"+deviceID)
	if err != nil {
		return upstreamErr(err)
	}

	s.logger.Info("device deleted", "device", deviceID)
	return nil
}
