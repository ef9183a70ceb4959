package ports

import (
	"context"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// AlertRepository defines persistence operations for materialized alerts.
type AlertRepository interface {
	// Insert persists a new alert record.
	Insert(ctx context.Context, alert *domain.Alert) error

	// RecentExists reports whether an alert with the same
	// (organization, vehicle, type) key was created at or after since.
	// Used as the dedup fallback when the in-memory/redis window is cold.
	RecentExists(ctx context.Context, orgID, vehicleID string, alertType domain.AlertType, since time.Time) (bool, error)
}

// AlertDedup is the sliding-window suppression store. Within the window, at
// most one alert per (organization, vehicle, type) key is materialized.
type AlertDedup interface {
	// Seen reports whether the key was marked within the window.
	Seen(ctx context.Context, orgID, vehicleID string, alertType domain.AlertType) (bool, error)

	// Mark records the key; the mark expires after window.
	Mark(ctx context.Context, orgID, vehicleID string, alertType domain.AlertType, window time.Duration) error
}
