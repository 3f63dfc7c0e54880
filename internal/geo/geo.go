// Package geo implements great-circle distance checks between coordinates.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used by the haversine formula.
const EarthRadiusMiles = 3958.8

// LegacyRadiusMiles is the radius the legacy listings endpoint filters by.
const LegacyRadiusMiles = 15.0

// DistanceMiles returns the haversine distance in miles between two points
// given in degrees.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	a := sinLat*sinLat + math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*sinLng*sinLng
	// rounding can push a a hair past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// WithinRadius reports whether the point lies within radiusMiles of the
// origin. The boundary is inclusive.
func WithinRadius(originLat, originLng, pointLat, pointLng, radiusMiles float64) bool {
	return DistanceMiles(originLat, originLng, pointLat, pointLng) <= radiusMiles
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
