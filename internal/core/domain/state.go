package domain

import "time"

// HistoryDepth bounds the per-vehicle rolling event history kept in memory.
// Five samples is enough for the finite-difference rules (harsh driving,
// fuel theft) at typical 10 to 30 second reporting intervals.
const HistoryDepth = 5

// VehicleState is the authoritative in-memory state for one vehicle. It is
// exclusively owned by the vehicle's pipeline lane; consumers only ever see
// snapshot copies.
type VehicleState struct {
	VehicleID      string
	OrganizationID string
	LastEvent      *TelemetryEvent

	// History holds the last HistoryDepth events, newest first. It always
	// includes LastEvent at index 0 once at least one event was applied.
	History []*TelemetryEvent

	// GeofenceMembership is the set of geofence IDs the vehicle is
	// currently inside, derived strictly from the ordered event sequence.
	GeofenceMembership map[string]struct{}

	ActiveTrip *Trip

	// LastHeartbeat is the timestamp of the most recent sample.
	LastHeartbeat time.Time

	// LastMotionAt is the timestamp of the most recent sample with speed
	// above the motion threshold; seeded with the first sample's timestamp
	// so idle duration is measurable from the start of tracking.
	LastMotionAt time.Time
}

// Clone returns a snapshot copy safe to hand outside the owning lane.
// Events are immutable, so pointers into History are shared; the containers
// themselves are copied.
func (s *VehicleState) Clone() *VehicleState {
	if s == nil {
		return nil
	}
	c := *s
	c.History = make([]*TelemetryEvent, len(s.History))
	copy(c.History, s.History)
	c.GeofenceMembership = make(map[string]struct{}, len(s.GeofenceMembership))
	for id := range s.GeofenceMembership {
		c.GeofenceMembership[id] = struct{}{}
	}
	if s.ActiveTrip != nil {
		trip := *s.ActiveTrip
		c.ActiveTrip = &trip
	}
	return &c
}
