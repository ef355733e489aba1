package geo

import "math"

// EarthRadiusMeters is the mean earth radius used by Haversine.
const EarthRadiusMeters = 6371000

// Haversine returns the great-circle distance in meters between two coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// Geofence is a circular boundary around a branch.
type Geofence struct {
	Latitude     float64 `json:"latitude" yaml:"latitude"`
	Longitude    float64 `json:"longitude" yaml:"longitude"`
	RadiusMeters float64 `json:"radius_meters" yaml:"radius_meters"`
}

// Distance returns the distance in meters from the geofence center.
func (g Geofence) Distance(lat, lon float64) float64 {
	return Haversine(g.Latitude, g.Longitude, lat, lon)
}

// Contains reports whether the point lies on or inside the boundary.
func (g Geofence) Contains(lat, lon float64) bool {
	return g.Distance(lat, lon) <= g.RadiusMeters
}

// Evaluate returns membership and distance in one call.
func (g Geofence) Evaluate(lat, lon float64) (within bool, distance float64) {
	distance = g.Distance(lat, lon)
	return distance <= g.RadiusMeters, distance
}
