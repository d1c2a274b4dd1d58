package domain

import "github.com/golang/geo/s2"

// Mean Earth radius used for every great-circle distance in the service.
const EarthRadiusKm = 6371.0

// Immutable geographic coordinates (latitude, longitude) in degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Same reports exact coordinate equality. Clustering relies on exact
// comparison to decide whether two points share a building.
func (c Coordinates) Same(o Coordinates) bool {
	return c.Lat == o.Lat && c.Lon == o.Lon
}

// DistanceKm returns the haversine great-circle distance in kilometers.
func (c Coordinates) DistanceKm(o Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(c.Lat, c.Lon)
	p2 := s2.LatLngFromDegrees(o.Lat, o.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// DistanceMeters returns the haversine great-circle distance in meters.
func (c Coordinates) DistanceMeters(o Coordinates) float64 {
	return c.DistanceKm(o) * 1000
}
