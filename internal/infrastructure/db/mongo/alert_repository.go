package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

const collectionAlerts = "alerts"

type AlertRepository struct {
	col *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{col: db.Collection(collectionAlerts)}
}

// Insert persists a new alert document.
func (r *AlertRepository) Insert(ctx context.Context, alert *domain.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, alert)
	return err
}

// RecentExists reports whether an alert with the same dedup key was created
// at or after since. Used as the fallback when the Redis window is cold.
func (r *AlertRepository) RecentExists(ctx context.Context, orgID, vehicleID string, alertType domain.AlertType, since time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"organization_id": orgID,
		"vehicle_id":      vehicleID,
		"type":            alertType,
		"created_at":      bson.M{"$gte": since},
	}
	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureIndexes creates necessary indexes on the alerts collection.
func (r *AlertRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "organization_id", Value: 1},
			{Key: "vehicle_id", Value: 1},
			{Key: "type", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
