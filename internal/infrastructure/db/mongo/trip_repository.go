package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

const collectionTrips = "trips"

type TripRepository struct {
	col *mongo.Collection
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{col: db.Collection(collectionTrips)}
}

// Create inserts a new trip document.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, trip)
	return err
}

// Update replaces the stored trip document identified by trip.ID.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": trip.ID}, trip)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrTripNotFound
	}
	return nil
}

// FindActive retrieves the vehicle's in-progress trip.
func (r *TripRepository) FindActive(ctx context.Context, vehicleID string) (*domain.Trip, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"vehicle_id": vehicleID, "status": domain.TripInProgress}

	var trip domain.Trip
	err := r.col.FindOne(ctx, filter).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTripNotFound
		}
		return nil, err
	}
	return &trip, nil
}

// EnsureIndexes creates necessary indexes on the trips collection.
func (r *TripRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "start_time", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
