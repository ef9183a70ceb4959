package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

const (
	collectionGeofences   = "geofences"
	collectionRules       = "alert_rules"
	collectionMaintenance = "maintenance_records"
)

// FleetConfigRepository reads the evaluation configuration collections.
// It is queried only on startup and reload, never on the event path.
type FleetConfigRepository struct {
	geofences   *mongo.Collection
	rules       *mongo.Collection
	maintenance *mongo.Collection
}

func NewFleetConfigRepository(db *mongo.Database) *FleetConfigRepository {
	return &FleetConfigRepository{
		geofences:   db.Collection(collectionGeofences),
		rules:       db.Collection(collectionRules),
		maintenance: db.Collection(collectionMaintenance),
	}
}

// ActiveGeofences returns all geofences flagged active.
func (r *FleetConfigRepository) ActiveGeofences(ctx context.Context) ([]domain.Geofence, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.geofences.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, err
	}
	var out []domain.Geofence
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveRules returns all enabled alert rules.
func (r *FleetConfigRepository) ActiveRules(ctx context.Context) ([]domain.AlertRule, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.rules.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return nil, err
	}
	var out []domain.AlertRule
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OpenMaintenance returns all maintenance records that are still open.
func (r *FleetConfigRepository) OpenMaintenance(ctx context.Context) ([]domain.MaintenanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.maintenance.Find(ctx, bson.M{"open": true})
	if err != nil {
		return nil, err
	}
	var out []domain.MaintenanceRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
