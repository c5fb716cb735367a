// Package geo computes great-circle distances between sensor readings and
// monitored locations.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusM is the mean Earth radius used for all distances.
const EarthRadiusM = 6371000.0

// DistanceMeters returns the haversine distance in meters between two
// points given in decimal degrees. Identical inputs yield exactly 0; NaN
// inputs yield NaN.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * EarthRadiusM
}

// RoundMeters rounds a distance to whole meters, half away from zero.
func RoundMeters(d float64) int {
	return int(math.Round(d))
}

// ValidCoords reports whether lat/lon are finite and inside the WGS-84
// degree ranges.
func ValidCoords(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
