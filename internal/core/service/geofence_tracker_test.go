package service

import (
	"testing"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// downtown is a 500 m circle around a fixed point; events "inside" are placed
// at its center, events "outside" well beyond the radius.
func downtownZone(id string, onEntry, onExit bool) domain.Geofence {
	return domain.Geofence{
		ID:             id,
		OrganizationID: "org_1",
		Name:           "Downtown",
		Type:           domain.GeofenceCircular,
		Center:         domain.Location{Lat: 37.7749, Lng: -122.4194},
		RadiusMeters:   500,
		AlertOnEntry:   onEntry,
		AlertOnExit:    onExit,
		Active:         true,
	}
}

func eventAt(vehicleID string, lat, lng float64) *domain.TelemetryEvent {
	return &domain.TelemetryEvent{
		VehicleID:      vehicleID,
		OrganizationID: "org_1",
		Latitude:       lat,
		Longitude:      lng,
		Timestamp:      time.Now().UTC(),
	}
}

func TestGeofenceTracker_FirstEventIsBaseline(t *testing.T) {
	store := NewStateStore()
	tracker := NewGeofenceTracker(store)
	zone := downtownZone("zone_1", true, true)

	ev := eventAt("veh_1", 37.7749, -122.4194) // inside
	prev, _ := store.Apply(ev)

	transitions := tracker.Track(ev, prev, []*domain.Geofence{&zone})
	if len(transitions) != 0 {
		t.Errorf("expected no transitions on first event, got %v", transitions)
	}

	state, _ := store.Snapshot("veh_1")
	if _, ok := state.GeofenceMembership["zone_1"]; !ok {
		t.Error("expected baseline membership to be recorded")
	}
}

func TestGeofenceTracker_EntryThenExit(t *testing.T) {
	store := NewStateStore()
	tracker := NewGeofenceTracker(store)
	zone := downtownZone("zone_1", true, true)
	fences := []*domain.Geofence{&zone}

	// Baseline outside.
	ev := eventAt("veh_1", 38.0, -122.0)
	prev, _ := store.Apply(ev)
	tracker.Track(ev, prev, fences)

	// Move inside.
	ev = eventAt("veh_1", 37.7749, -122.4194)
	prev, _ = store.Apply(ev)
	transitions := tracker.Track(ev, prev, fences)
	if len(transitions) != 1 || transitions[0].Kind != TransitionEntry {
		t.Fatalf("expected one entry transition, got %v", transitions)
	}
	if transitions[0].Geofence.ID != "zone_1" {
		t.Errorf("unexpected geofence: %s", transitions[0].Geofence.ID)
	}

	// Stay inside: no transition.
	ev = eventAt("veh_1", 37.7750, -122.4195)
	prev, _ = store.Apply(ev)
	if transitions := tracker.Track(ev, prev, fences); len(transitions) != 0 {
		t.Errorf("expected no transition while staying inside, got %v", transitions)
	}

	// Move out.
	ev = eventAt("veh_1", 38.0, -122.0)
	prev, _ = store.Apply(ev)
	transitions = tracker.Track(ev, prev, fences)
	if len(transitions) != 1 || transitions[0].Kind != TransitionExit {
		t.Fatalf("expected one exit transition, got %v", transitions)
	}
}

func TestGeofenceTracker_FlagsGateReportingNotTracking(t *testing.T) {
	store := NewStateStore()
	tracker := NewGeofenceTracker(store)
	zone := downtownZone("zone_1", false, true) // entries silent, exits reported
	fences := []*domain.Geofence{&zone}

	ev := eventAt("veh_1", 38.0, -122.0)
	prev, _ := store.Apply(ev)
	tracker.Track(ev, prev, fences)

	ev = eventAt("veh_1", 37.7749, -122.4194)
	prev, _ = store.Apply(ev)
	if transitions := tracker.Track(ev, prev, fences); len(transitions) != 0 {
		t.Errorf("expected silent entry, got %v", transitions)
	}

	// Membership must still have been tracked, so the exit is detectable.
	ev = eventAt("veh_1", 38.0, -122.0)
	prev, _ = store.Apply(ev)
	transitions := tracker.Track(ev, prev, fences)
	if len(transitions) != 1 || transitions[0].Kind != TransitionExit {
		t.Fatalf("expected exit to be reported, got %v", transitions)
	}
}

func TestGeofenceTracker_PolygonZone(t *testing.T) {
	store := NewStateStore()
	tracker := NewGeofenceTracker(store)
	zone := domain.Geofence{
		ID:             "yard",
		OrganizationID: "org_1",
		Name:           "Depot yard",
		Type:           domain.GeofencePolygon,
		Vertices: []domain.Location{
			{Lat: 37.0, Lng: -122.0},
			{Lat: 37.0, Lng: -121.0},
			{Lat: 38.0, Lng: -121.0},
			{Lat: 38.0, Lng: -122.0},
		},
		AlertOnEntry: true,
		Active:       true,
	}
	fences := []*domain.Geofence{&zone}

	ev := eventAt("veh_1", 36.5, -121.5) // south of the square
	prev, _ := store.Apply(ev)
	tracker.Track(ev, prev, fences)

	ev = eventAt("veh_1", 37.5, -121.5) // inside the square
	prev, _ = store.Apply(ev)
	transitions := tracker.Track(ev, prev, fences)
	if len(transitions) != 1 || transitions[0].Kind != TransitionEntry {
		t.Fatalf("expected polygon entry, got %v", transitions)
	}
}

func TestGeofenceTracker_InactiveZonesIgnored(t *testing.T) {
	store := NewStateStore()
	tracker := NewGeofenceTracker(store)
	zone := downtownZone("zone_1", true, true)
	zone.Active = false
	fences := []*domain.Geofence{&zone}

	ev := eventAt("veh_1", 37.7749, -122.4194)
	prev, _ := store.Apply(ev)
	tracker.Track(ev, prev, fences)

	state, _ := store.Snapshot("veh_1")
	if len(state.GeofenceMembership) != 0 {
		t.Error("expected inactive geofence to be excluded from membership")
	}
}
