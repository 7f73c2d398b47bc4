// Package tracking implements the location-tracking domain: users,
// tracker devices, position ingestion, geofence evaluation, history
// export and notifications. All state lives in the document store; every
// operation is a thin sequence of store round trips.
package tracking

import "time"

// timeFormat is the ISO-8601 millisecond format all timestamps are stored
// in. Timestamp strings are the sole ordering key for positions and
// notifications, so the format must sort lexically.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// Device types supported by the application.
const (
	DeviceTypeChild   = "child"
	DeviceTypeElderly = "elderly"
	DeviceTypeObject  = "object"
)

// Settings holds per-user preferences.
type Settings struct {
	Notifications bool   `json:"notifications"`
	Language      string `json:"language"`
}

// User is the profile document stored next to the identity provider's
// account. The ID is the provider's opaque identifier and is never stored
// inside the document itself.
type User struct {
	ID          string   `json:"id,omitempty"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	CreatedAt   string   `json:"createdAt"`
	LastLogin   string   `json:"lastLogin"`
	Settings    Settings `json:"settings"`
}

// Device is a registered GPS tracker. LastActive and IsOnline are the
// liveness fields stamped on every position report.
type Device struct {
	ID         string              `json:"id,omitempty"`
	Name       string              `json:"name"`
	Type       string              `json:"type"`
	OwnerID    string              `json:"ownerId"`
	CreatedAt  string              `json:"createdAt"`
	LastActive string              `json:"lastActive"`
	IsOnline   bool                `json:"isOnline"`
	Geofences  map[string]Geofence `json:"geofences,omitempty"`
}

// Geofence is a circular zone attached to a device. WasInside is the
// persisted classification from the previous evaluation; it stays unset
// until the first position is evaluated against the zone.
type Geofence struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Radius    float64 `json:"radius"`
	Active    bool    `json:"active"`
	WasInside *bool   `json:"wasInside,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// Position is one entry of a device's append-only position log. Optional
// telemetry fields are pointers: zero is a legal value for all of them,
// so presence is tracked separately from the value.
type Position struct {
	ID           string   `json:"id,omitempty"`
	Timestamp    string   `json:"timestamp"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	Altitude     *float64 `json:"altitude,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	BatteryLevel *float64 `json:"batteryLevel,omitempty"`
}

// Notification is one entry of a user's append-only event log.
type Notification struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	DeviceID  string `json:"deviceId"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	Timestamp string `json:"timestamp"`
}
