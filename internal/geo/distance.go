// Package geo provides great-circle distance math for geofence checks.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius (IUGG).
const earthRadiusMeters = 6371008.8

// Distance returns the great-circle distance in meters between two WGS84
// coordinates using the haversine formula. Alert radii are in the sub-10 km
// range where a planar approximation drifts at the margin, so curvature is
// accounted for.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
