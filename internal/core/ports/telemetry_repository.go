package ports

import (
	"context"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// TelemetryRepository appends normalized location samples to durable storage
// and reads recent history back for state warm-up.
type TelemetryRepository interface {
	// AppendSample persists one normalized sample.
	AppendSample(ctx context.Context, event *domain.TelemetryEvent) error

	// LastSamples returns up to n samples for the vehicle, newest first.
	LastSamples(ctx context.Context, vehicleID string, n int) ([]*domain.TelemetryEvent, error)
}

// TripRepository defines persistence operations for trips.
type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error

	// Update replaces the stored trip record identified by trip.ID.
	Update(ctx context.Context, trip *domain.Trip) error

	// FindActive returns the vehicle's in-progress trip, or
	// domain.ErrTripNotFound when none exists.
	FindActive(ctx context.Context, vehicleID string) (*domain.Trip, error)
}
