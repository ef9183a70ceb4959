package domain

import "time"

// TripStatus represents the lifecycle state of a trip.
type TripStatus string

const (
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// Trip is a contiguous interval of vehicle motion bounded by start/stop
// transitions. EndLocation and the running aggregates are updated as the
// trip progresses; EndTime is set only when the trip closes.
type Trip struct {
	ID             string     `json:"id" bson:"_id,omitempty"`
	VehicleID      string     `json:"vehicle_id" bson:"vehicle_id"`
	OrganizationID string     `json:"organization_id" bson:"organization_id"`
	StartLocation  Location   `json:"start_location" bson:"start_location"`
	EndLocation    Location   `json:"end_location" bson:"end_location"`
	StartTime      time.Time  `json:"start_time" bson:"start_time"`
	EndTime        time.Time  `json:"end_time,omitempty" bson:"end_time,omitempty"`
	DistanceMiles  float64    `json:"distance_miles" bson:"distance_miles"`
	MaxSpeedMph    float64    `json:"max_speed_mph" bson:"max_speed_mph"`
	Status         TripStatus `json:"status" bson:"status"`

	// LastMovementAt is the timestamp of the most recent sample above the
	// motion threshold; trip closure measures the grace period from here.
	LastMovementAt time.Time `json:"last_movement_at" bson:"last_movement_at"`
}
