package service

import (
	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// TransitionKind discriminates geofence boundary crossings.
type TransitionKind string

const (
	TransitionEntry TransitionKind = "entry"
	TransitionExit  TransitionKind = "exit"
)

// Transition is one detected boundary crossing.
type Transition struct {
	Geofence *domain.Geofence
	Kind     TransitionKind
}

// GeofenceTracker detects entry/exit transitions by diffing the membership
// computed for the current event against the membership recorded for the
// immediately preceding event of the same vehicle.
type GeofenceTracker struct {
	store *StateStore
}

func NewGeofenceTracker(store *StateStore) *GeofenceTracker {
	return &GeofenceTracker{store: store}
}

// Track computes the vehicle's new membership set, commits it to the state
// store, and returns the reportable transitions. prev is the state snapshot
// taken before the event was applied; when the vehicle had no prior event the
// new membership is recorded as a baseline and no transitions are emitted.
// Entries are reported only for geofences with AlertOnEntry, exits only with
// AlertOnExit; membership itself is tracked regardless of the flags.
func (t *GeofenceTracker) Track(event *domain.TelemetryEvent, prev *domain.VehicleState, geofences []*domain.Geofence) []Transition {
	membership := make(map[string]struct{})
	byID := make(map[string]*domain.Geofence, len(geofences))
	for _, g := range geofences {
		if !g.Active {
			continue
		}
		byID[g.ID] = g
		if g.Contains(event.Latitude, event.Longitude) {
			membership[g.ID] = struct{}{}
		}
	}
	t.store.SetMembership(event.VehicleID, membership)

	if prev == nil || prev.LastEvent == nil {
		return nil
	}

	var transitions []Transition
	for id := range membership {
		if _, was := prev.GeofenceMembership[id]; !was {
			if g := byID[id]; g != nil && g.AlertOnEntry {
				transitions = append(transitions, Transition{Geofence: g, Kind: TransitionEntry})
			}
		}
	}
	for id := range prev.GeofenceMembership {
		if _, still := membership[id]; !still {
			if g := byID[id]; g != nil && g.AlertOnExit {
				transitions = append(transitions, Transition{Geofence: g, Kind: TransitionExit})
			}
		}
	}
	return transitions
}
