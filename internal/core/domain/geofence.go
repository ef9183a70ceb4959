package domain

import "math"

// GeofenceType discriminates the supported geometries.
type GeofenceType string

const (
	GeofenceCircular GeofenceType = "circular"
	GeofencePolygon  GeofenceType = "polygon"
)

// Geofence is a named virtual boundary used to detect entry/exit.
// Geofences are read-only during evaluation and swapped wholesale on reload.
type Geofence struct {
	ID             string       `json:"id" bson:"_id,omitempty"`
	OrganizationID string       `json:"organization_id" bson:"organization_id"`
	Name           string       `json:"name" bson:"name"`
	Type           GeofenceType `json:"type" bson:"type"`

	// Circular geometry.
	Center       Location `json:"center,omitempty" bson:"center,omitempty"`
	RadiusMeters float64  `json:"radius_meters,omitempty" bson:"radius_meters,omitempty"`

	// Polygon geometry: ordered vertex ring, implicitly closed.
	Vertices []Location `json:"vertices,omitempty" bson:"vertices,omitempty"`

	AlertOnEntry bool `json:"alert_on_entry" bson:"alert_on_entry"`
	AlertOnExit  bool `json:"alert_on_exit" bson:"alert_on_exit"`
	Active       bool `json:"active" bson:"active"`
}

const earthRadiusMeters = 6371000

// Contains reports whether the point lies inside the geofence boundary.
func (g *Geofence) Contains(lat, lng float64) bool {
	switch g.Type {
	case GeofenceCircular:
		return HaversineMeters(lat, lng, g.Center.Lat, g.Center.Lng) <= g.RadiusMeters
	case GeofencePolygon:
		return pointInRing(lat, lng, g.Vertices)
	default:
		return false
	}
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

const metersPerMile = 1609.344

// HaversineMiles returns the great-circle distance in statute miles.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineMeters(lat1, lng1, lat2, lng2) / metersPerMile
}

// pointInRing implements the even-odd ray-casting rule against an ordered
// vertex ring. The ring is traversed with wraparound (last vertex pairs with
// the first), so callers need not repeat the first vertex.
func pointInRing(lat, lng float64, ring []Location) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > lat) != (vj.Lat > lat) &&
			lng < (vj.Lng-vi.Lng)*(lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lng {
			inside = !inside
		}
	}
	return inside
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
