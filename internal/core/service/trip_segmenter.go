package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
	"github.com/fleetpulse/fleet-alerting/internal/core/ports"
)

const (
	defaultTripGrace   = 10 * time.Minute
	tripPersistTimeout = 3 * time.Second
)

// TripEventKind describes what the segmenter did with a trip.
type TripEventKind string

const (
	TripStarted   TripEventKind = "started"
	TripExtended  TripEventKind = "extended"
	TripCompleted TripEventKind = "completed"
)

// TripEvent reports a trip boundary or extension to the caller.
type TripEvent struct {
	Kind TripEventKind
	Trip *domain.Trip
}

// TripSegmenter opens, extends, and closes trips from motion transitions.
// Closure is purely reactive: it happens only through the explicit Tick
// input, never from an internal timer, which keeps the component testable.
type TripSegmenter struct {
	store *StateStore
	repo  ports.TripRepository
	log   zerolog.Logger
	grace time.Duration
}

func NewTripSegmenter(store *StateStore, repo ports.TripRepository, grace time.Duration, log zerolog.Logger) *TripSegmenter {
	if grace <= 0 {
		grace = defaultTripGrace
	}
	return &TripSegmenter{store: store, repo: repo, grace: grace, log: log}
}

// Update applies one event: a stationary vehicle crossing the motion
// threshold opens a trip; an active trip is extended with the new end
// location, the haversine distance delta, and the running max speed.
// prev is the state snapshot from before the event was applied.
func (s *TripSegmenter) Update(ctx context.Context, event *domain.TelemetryEvent, prev *domain.VehicleState) *TripEvent {
	var active *domain.Trip
	if prev != nil {
		active = prev.ActiveTrip
	}

	if active == nil {
		if event.SpeedMph <= motionThresholdMph {
			return nil
		}
		trip := &domain.Trip{
			ID:             uuid.NewString(),
			VehicleID:      event.VehicleID,
			OrganizationID: event.OrganizationID,
			StartLocation:  event.Location(),
			EndLocation:    event.Location(),
			StartTime:      event.Timestamp,
			MaxSpeedMph:    event.SpeedMph,
			Status:         domain.TripInProgress,
			LastMovementAt: event.Timestamp,
		}
		s.store.SetActiveTrip(event.VehicleID, trip)
		s.persist(ctx, trip, true)
		return &TripEvent{Kind: TripStarted, Trip: trip}
	}

	trip := *active
	if prev.LastEvent != nil {
		trip.DistanceMiles += domain.HaversineMiles(
			prev.LastEvent.Latitude, prev.LastEvent.Longitude,
			event.Latitude, event.Longitude,
		)
	}
	trip.EndLocation = event.Location()
	if event.SpeedMph > trip.MaxSpeedMph {
		trip.MaxSpeedMph = event.SpeedMph
	}
	if event.SpeedMph > motionThresholdMph {
		trip.LastMovementAt = event.Timestamp
	}
	s.store.SetActiveTrip(event.VehicleID, &trip)
	s.persist(ctx, &trip, false)
	return &TripEvent{Kind: TripExtended, Trip: &trip}
}

// Tick closes the vehicle's active trip when it has not moved for longer
// than the grace period, as of now. Safe to call from a periodic sweep: the
// idle check and the clear run atomically under the vehicle's lock, so a
// lane that extended the trip after the sweep snapshot was taken keeps it
// open.
func (s *TripSegmenter) Tick(ctx context.Context, state *domain.VehicleState, now time.Time) *TripEvent {
	if state == nil || state.ActiveTrip == nil {
		return nil
	}

	trip := s.store.CloseIdleTrip(state.VehicleID, s.grace, now)
	if trip == nil {
		return nil
	}
	trip.Status = domain.TripCompleted
	trip.EndTime = trip.LastMovementAt
	s.persist(ctx, trip, false)
	return &TripEvent{Kind: TripCompleted, Trip: trip}
}

// ResumeTrip loads the vehicle's open trip from storage, if one exists.
// Used when a vehicle is first seen after a restart.
func (s *TripSegmenter) ResumeTrip(ctx context.Context, vehicleID string) (*domain.Trip, error) {
	trip, err := s.repo.FindActive(ctx, vehicleID)
	if errors.Is(err, domain.ErrTripNotFound) {
		return nil, nil
	}
	return trip, err
}

// persist writes the trip record; failures degrade to a log line so that a
// storage outage never stalls the vehicle lane.
func (s *TripSegmenter) persist(ctx context.Context, trip *domain.Trip, create bool) {
	ctx, cancel := context.WithTimeout(ctx, tripPersistTimeout)
	defer cancel()

	var err error
	if create {
		err = s.repo.Create(ctx, trip)
	} else {
		err = s.repo.Update(ctx, trip)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("vehicle_id", trip.VehicleID).Str("trip_id", trip.ID).Msg("trip persistence failed")
	}
}
