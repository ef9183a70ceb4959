package service

import (
	"sync"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// motionThresholdMph is the speed above which a vehicle counts as moving,
// shared by trip segmentation and the idle rule.
const motionThresholdMph = 5.0

// StateStore is the authoritative in-memory per-vehicle state. Updates for a
// single vehicle are serialized by a per-entry mutex; different vehicles
// never contend. All reads return snapshot copies, never the live struct.
type StateStore struct {
	mu      sync.RWMutex
	entries map[string]*stateEntry
}

type stateEntry struct {
	mu    sync.Mutex
	state *domain.VehicleState
}

func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[string]*stateEntry)}
}

func (s *StateStore) entry(vehicleID string) *stateEntry {
	s.mu.RLock()
	e, ok := s.entries[vehicleID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[vehicleID]; ok {
		return e
	}
	e = &stateEntry{state: &domain.VehicleState{
		VehicleID:          vehicleID,
		GeofenceMembership: make(map[string]struct{}),
	}}
	s.entries[vehicleID] = e
	return e
}

// Apply atomically records the event: it replaces LastEvent, pushes onto the
// bounded history (evicting the oldest beyond domain.HistoryDepth), and
// advances the heartbeat and motion markers. It returns snapshots of the
// state before and after the update so callers can diff them.
func (s *StateStore) Apply(event *domain.TelemetryEvent) (prev, cur *domain.VehicleState) {
	e := s.entry(event.VehicleID)
	e.mu.Lock()
	defer e.mu.Unlock()

	prev = e.state.Clone()

	st := e.state
	st.OrganizationID = event.OrganizationID
	st.LastEvent = event
	st.History = append([]*domain.TelemetryEvent{event}, st.History...)
	if len(st.History) > domain.HistoryDepth {
		st.History = st.History[:domain.HistoryDepth]
	}
	st.LastHeartbeat = event.Timestamp
	if event.SpeedMph > motionThresholdMph || st.LastMotionAt.IsZero() {
		st.LastMotionAt = event.Timestamp
	}

	return prev, st.Clone()
}

// SetMembership replaces the vehicle's geofence membership set.
func (s *StateStore) SetMembership(vehicleID string, membership map[string]struct{}) {
	e := s.entry(vehicleID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.GeofenceMembership = membership
}

// SetActiveTrip records (or clears, with nil) the vehicle's active trip.
func (s *StateStore) SetActiveTrip(vehicleID string, trip *domain.Trip) {
	e := s.entry(vehicleID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.ActiveTrip = trip
}

// CloseIdleTrip atomically clears and returns a copy of the vehicle's active
// trip, but only if the trip is still idle past the grace period as of now.
// The re-check and the clear happen under the vehicle's lock: a lane that
// extended the trip after the caller's snapshot was taken wins, and the trip
// stays open.
func (s *StateStore) CloseIdleTrip(vehicleID string, grace time.Duration, now time.Time) *domain.Trip {
	s.mu.RLock()
	e, ok := s.entries[vehicleID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	trip := e.state.ActiveTrip
	if trip == nil || now.Sub(trip.LastMovementAt) <= grace {
		return nil
	}
	e.state.ActiveTrip = nil
	closed := *trip
	return &closed
}

// Seed installs state recovered from durable storage for a vehicle that is
// not yet tracked: history newest first, the open trip if any, and the
// geofence membership derived from the newest sample. It reports whether the
// seed was applied; a vehicle that already has live state is left untouched,
// recovery must never clobber fresher lane updates.
func (s *StateStore) Seed(vehicleID string, history []*domain.TelemetryEvent, trip *domain.Trip, membership map[string]struct{}) bool {
	e := s.entry(vehicleID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.LastEvent != nil {
		return false
	}
	if len(history) == 0 && trip == nil {
		return false
	}

	st := e.state
	if len(history) > domain.HistoryDepth {
		history = history[:domain.HistoryDepth]
	}
	st.History = make([]*domain.TelemetryEvent, len(history))
	copy(st.History, history)
	if len(history) > 0 {
		newest := history[0]
		st.LastEvent = newest
		st.OrganizationID = newest.OrganizationID
		st.LastHeartbeat = newest.Timestamp
		st.LastMotionAt = lastMotion(history)
	}
	st.ActiveTrip = trip
	if trip != nil {
		st.LastMotionAt = trip.LastMovementAt
		if st.OrganizationID == "" {
			st.OrganizationID = trip.OrganizationID
		}
	}
	if membership != nil {
		st.GeofenceMembership = membership
	}
	return true
}

// lastMotion finds the newest sample above the motion threshold; when the
// whole history is stationary the newest timestamp stands in, so idle
// duration never overstates what the samples can prove.
func lastMotion(history []*domain.TelemetryEvent) time.Time {
	for _, sample := range history {
		if sample.SpeedMph > motionThresholdMph {
			return sample.Timestamp
		}
	}
	return history[0].Timestamp
}

// Snapshot returns a copy of the vehicle's state, or false when the vehicle
// has never reported.
func (s *StateStore) Snapshot(vehicleID string) (*domain.VehicleState, bool) {
	s.mu.RLock()
	e, ok := s.entries[vehicleID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.LastEvent == nil {
		return nil, false
	}
	return e.state.Clone(), true
}

// ForEach calls fn with a snapshot of every tracked vehicle. Each snapshot is
// taken under that vehicle's lock, so fn observes the state the pipeline last
// committed, never a half-applied update.
func (s *StateStore) ForEach(fn func(state *domain.VehicleState)) {
	s.mu.RLock()
	entries := make([]*stateEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		snapshot := e.state.Clone()
		e.mu.Unlock()
		if snapshot.LastEvent != nil {
			fn(snapshot)
		}
	}
}
