package ports

import (
	"context"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// FleetConfigRepository reads the evaluation configuration: geofences, alert
// rules, and open maintenance records across all organizations. The pipeline
// loads these into an immutable snapshot and re-reads them on reload signals,
// never during evaluation.
type FleetConfigRepository interface {
	ActiveGeofences(ctx context.Context) ([]domain.Geofence, error)
	ActiveRules(ctx context.Context) ([]domain.AlertRule, error)
	OpenMaintenance(ctx context.Context) ([]domain.MaintenanceRecord, error)
}
