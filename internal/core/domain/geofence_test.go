package domain

import (
	"math"
	"testing"
)

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// San Francisco city hall to the ferry building, roughly 2.3 km.
	d := HaversineMeters(37.7793, -122.4193, 37.7955, -122.3937)
	if d < 2200 || d > 2500 {
		t.Errorf("expected ~2300 m, got %.0f", d)
	}
}

func TestHaversineMeters_ZeroForSamePoint(t *testing.T) {
	if d := HaversineMeters(37.7793, -122.4193, 37.7793, -122.4193); d != 0 {
		t.Errorf("expected 0, got %v", d)
	}
}

func TestHaversineMiles_UnitConversion(t *testing.T) {
	meters := HaversineMeters(37.0, -122.0, 38.0, -122.0)
	miles := HaversineMiles(37.0, -122.0, 38.0, -122.0)
	if math.Abs(miles-meters/1609.344) > 1e-9 {
		t.Errorf("mile conversion mismatch: %v vs %v", miles, meters/1609.344)
	}
}

func TestGeofence_Contains_Circular(t *testing.T) {
	g := Geofence{
		Type:         GeofenceCircular,
		Center:       Location{Lat: 37.7749, Lng: -122.4194},
		RadiusMeters: 1000,
	}

	if !g.Contains(37.7749, -122.4194) {
		t.Error("center must be inside")
	}
	if !g.Contains(37.7790, -122.4194) { // ~450 m north
		t.Error("point within radius must be inside")
	}
	if g.Contains(37.7950, -122.4194) { // ~2.2 km north
		t.Error("point beyond radius must be outside")
	}
}

func TestGeofence_Contains_Polygon(t *testing.T) {
	square := Geofence{
		Type: GeofencePolygon,
		Vertices: []Location{
			{Lat: 0, Lng: 0},
			{Lat: 0, Lng: 10},
			{Lat: 10, Lng: 10},
			{Lat: 10, Lng: 0},
		},
	}

	cases := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"center", 5, 5, true},
		{"near edge inside", 9.99, 5, true},
		{"outside east", 5, 11, false},
		{"outside north", 11, 5, false},
		{"far away", -20, -20, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := square.Contains(tc.lat, tc.lng); got != tc.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tc.lat, tc.lng, got, tc.want)
			}
		})
	}
}

func TestGeofence_Contains_ConcavePolygon(t *testing.T) {
	// L-shape: the notch at the top right is outside.
	lShape := Geofence{
		Type: GeofencePolygon,
		Vertices: []Location{
			{Lat: 0, Lng: 0},
			{Lat: 0, Lng: 10},
			{Lat: 5, Lng: 10},
			{Lat: 5, Lng: 5},
			{Lat: 10, Lng: 5},
			{Lat: 10, Lng: 0},
		},
	}

	if !lShape.Contains(2, 8) {
		t.Error("lower arm must be inside")
	}
	if !lShape.Contains(8, 2) {
		t.Error("upper arm must be inside")
	}
	if lShape.Contains(8, 8) {
		t.Error("notch must be outside")
	}
}

func TestGeofence_Contains_DegeneratePolygon(t *testing.T) {
	g := Geofence{
		Type:     GeofencePolygon,
		Vertices: []Location{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}},
	}
	if g.Contains(0.5, 0.5) {
		t.Error("a ring with fewer than 3 vertices contains nothing")
	}
}

func TestGeofence_Contains_UnknownType(t *testing.T) {
	g := Geofence{Type: GeofenceType("blob")}
	if g.Contains(0, 0) {
		t.Error("unknown geometry contains nothing")
	}
}
