// Package geo provides great-circle distance math for geofence checks.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle (haversine) distance in meters between
// two WGS84 coordinates.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Circle is a circular region: a center coordinate and a radius in meters.
type Circle struct {
	Lat    float64
	Lng    float64
	Radius float64
}

// Contains reports whether the given coordinate lies inside the circle.
// Points exactly on the boundary count as inside.
func (c Circle) Contains(lat, lng float64) bool {
	return Distance(c.Lat, c.Lng, lat, lng) <= c.Radius
}
