// Package simulator generates synthetic GPS trackers and their movement.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Tracker is a synthetic GPS tracker seeded with fake identity data.
type Tracker struct {
	DeviceID  string `fake:"{uuid}"`
	Name      string `fake:"{firstname}'s tracker"`
	Type      string `fake:"{randomstring:[child,elderly,object]}"`
	OwnerID   string `fake:"{uuid}"`
	Latitude  float64
	Longitude float64
}

// NewTracker builds a tracker placed at a random position near the given
// center, within roughly spreadMeters.
func NewTracker(centerLat, centerLng, spreadMeters float64) *Tracker {
	var tracker Tracker
	if err := gofakeit.Struct(&tracker); err != nil {
		return nil
	}

	// Rough meter-to-degree conversion, good enough for a simulation.
	spreadDeg := spreadMeters / 111320.0
	tracker.Latitude = centerLat + (rand.Float64()-0.5)*2*spreadDeg  // #nosec G404 - simulation data
	tracker.Longitude = centerLng + (rand.Float64()-0.5)*2*spreadDeg // #nosec G404 - simulation data
	return &tracker
}

// Movement is a random-walk movement model for one tracker: heading and
// speed drift between readings, battery drains slowly, accuracy jitters.
type Movement struct {
	lat      float64
	lng      float64
	heading  float64 // radians
	speed    float64 // m/s
	battery  float64 // percent
	accuracy float64 // meters
}

// NewMovement creates a movement model starting at the tracker's position.
func NewMovement(t *Tracker) *Movement {
	return &Movement{
		lat:      t.Latitude,
		lng:      t.Longitude,
		heading:  rand.Float64() * 2 * math.Pi, // #nosec G404 - simulation data
		speed:    0.5 + rand.Float64()*2.0,     // walking pace, 0.5-2.5 m/s
		battery:  60 + rand.Float64()*40,       // 60-100%
		accuracy: 5 + rand.Float64()*10,        // 5-15m
	}
}

// Step advances the walk by elapsed and returns the new state. Heading
// drifts a little each step, speed wanders within walking bounds, and the
// tracker occasionally stops.
func (m *Movement) Step(elapsed time.Duration) Sample {
	seconds := elapsed.Seconds()

	// Drift heading up to ~20 degrees per step.
	m.heading += (rand.Float64() - 0.5) * math.Pi / 9

	// Wander speed, clamped to walking pace. 10% chance of a stop.
	m.speed += (rand.Float64() - 0.5) * 0.4
	m.speed = math.Max(0.3, math.Min(3.0, m.speed))
	speed := m.speed
	if rand.Float64() < 0.1 {
		speed = 0
	}

	distance := speed * seconds
	m.lat += distance * math.Cos(m.heading) / 111320.0
	m.lng += distance * math.Sin(m.heading) / (111320.0 * math.Cos(m.lat*math.Pi/180))

	// Battery drains about a percent per half hour of reporting.
	m.battery = math.Max(0, m.battery-seconds/1800)

	// Accuracy jitters between 3 and 30 meters.
	m.accuracy += (rand.Float64() - 0.5) * 4
	m.accuracy = math.Max(3, math.Min(30, m.accuracy))

	return Sample{
		Lat:          m.lat,
		Lng:          m.lng,
		Speed:        speed,
		BatteryLevel: math.Round(m.battery*10) / 10,
		Accuracy:     math.Round(m.accuracy*10) / 10,
	}
}

// Sample is one generated movement reading.
type Sample struct {
	Lat          float64
	Lng          float64
	Speed        float64
	BatteryLevel float64
	Accuracy     float64
}
