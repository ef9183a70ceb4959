package service

import (
	"testing"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

func sampleAt(vehicleID string, ts time.Time, speed float64) *domain.TelemetryEvent {
	return &domain.TelemetryEvent{
		DeviceID:       vehicleID,
		VehicleID:      vehicleID,
		OrganizationID: "org_1",
		Latitude:       37.7749,
		Longitude:      -122.4194,
		SpeedMph:       speed,
		Timestamp:      ts,
		EngineStatus:   domain.EngineOn,
		Provider:       "canonical",
	}
}

func TestStateStore_Apply_FirstEvent(t *testing.T) {
	store := NewStateStore()
	ts := time.Now().UTC()

	prev, cur := store.Apply(sampleAt("veh_1", ts, 10))

	if prev.LastEvent != nil {
		t.Errorf("expected empty previous state, got event %+v", prev.LastEvent)
	}
	if cur.LastEvent == nil || cur.LastEvent.VehicleID != "veh_1" {
		t.Fatalf("expected current state to hold the event")
	}
	if !cur.LastHeartbeat.Equal(ts) {
		t.Errorf("expected heartbeat %v, got %v", ts, cur.LastHeartbeat)
	}
	if !cur.LastMotionAt.Equal(ts) {
		t.Errorf("expected motion marker seeded with first sample, got %v", cur.LastMotionAt)
	}
}

func TestStateStore_Apply_HistoryBounded(t *testing.T) {
	store := NewStateStore()
	base := time.Now().UTC()

	for i := 0; i < domain.HistoryDepth+3; i++ {
		store.Apply(sampleAt("veh_1", base.Add(time.Duration(i)*time.Minute), 20))
	}

	state, ok := store.Snapshot("veh_1")
	if !ok {
		t.Fatal("expected vehicle to be tracked")
	}
	if len(state.History) != domain.HistoryDepth {
		t.Errorf("expected history capped at %d, got %d", domain.HistoryDepth, len(state.History))
	}
	// Newest first.
	if !state.History[0].Timestamp.After(state.History[1].Timestamp) {
		t.Error("expected history ordered newest first")
	}
	if state.History[0] != state.LastEvent {
		t.Error("expected History[0] to be LastEvent")
	}
}

func TestStateStore_Apply_MotionMarkerOnlyAdvancesAboveThreshold(t *testing.T) {
	store := NewStateStore()
	base := time.Now().UTC()

	store.Apply(sampleAt("veh_1", base, 30))
	store.Apply(sampleAt("veh_1", base.Add(time.Minute), 2)) // below threshold

	state, _ := store.Snapshot("veh_1")
	if !state.LastMotionAt.Equal(base) {
		t.Errorf("expected motion marker to stay at %v, got %v", base, state.LastMotionAt)
	}
	if !state.LastHeartbeat.Equal(base.Add(time.Minute)) {
		t.Error("expected heartbeat to advance regardless of speed")
	}
}

func TestStateStore_Snapshot_UntrackedVehicle(t *testing.T) {
	store := NewStateStore()
	if _, ok := store.Snapshot("ghost"); ok {
		t.Error("expected untracked vehicle to report not found")
	}
}

func TestStateStore_Snapshot_IsACopy(t *testing.T) {
	store := NewStateStore()
	store.Apply(sampleAt("veh_1", time.Now().UTC(), 10))

	snap, _ := store.Snapshot("veh_1")
	snap.GeofenceMembership["zone_x"] = struct{}{}

	fresh, _ := store.Snapshot("veh_1")
	if _, leaked := fresh.GeofenceMembership["zone_x"]; leaked {
		t.Error("mutating a snapshot must not affect the stored state")
	}
}

func TestStateStore_ForEach_SkipsEmptyEntries(t *testing.T) {
	store := NewStateStore()
	store.Apply(sampleAt("veh_1", time.Now().UTC(), 10))
	store.Apply(sampleAt("veh_2", time.Now().UTC(), 10))
	store.SetMembership("veh_3", map[string]struct{}{}) // entry without events

	var seen []string
	store.ForEach(func(state *domain.VehicleState) {
		seen = append(seen, state.VehicleID)
	})
	if len(seen) != 2 {
		t.Errorf("expected 2 tracked vehicles, got %v", seen)
	}
}
