package domain

import "time"

// EngineStatus represents the reported engine state of a vehicle.
type EngineStatus string

const (
	EngineOn   EngineStatus = "on"
	EngineOff  EngineStatus = "off"
	EngineIdle EngineStatus = "idle"
)

// Location represents a geographic point.
type Location struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// TelemetryEvent is one normalized position/status sample for a vehicle.
// All provider-specific units and field names have already been resolved:
// speed is mph, heading is degrees [0,360), timestamps are UTC.
// Events are immutable once normalized.
type TelemetryEvent struct {
	DeviceID       string       `json:"device_id" bson:"device_id"`
	VehicleID      string       `json:"vehicle_id" bson:"vehicle_id"`
	OrganizationID string       `json:"organization_id" bson:"organization_id"`
	Latitude       float64      `json:"latitude" bson:"latitude"`
	Longitude      float64      `json:"longitude" bson:"longitude"`
	SpeedMph       float64      `json:"speed_mph" bson:"speed_mph"`
	Heading        int          `json:"heading" bson:"heading"`
	Timestamp      time.Time    `json:"timestamp" bson:"timestamp"`
	EngineStatus   EngineStatus `json:"engine_status" bson:"engine_status"`

	// Optional sensor readings; nil when the provider did not report them.
	FuelLevel *float64 `json:"fuel_level,omitempty" bson:"fuel_level,omitempty"` // 0 to 100 percent
	Odometer  *float64 `json:"odometer,omitempty" bson:"odometer,omitempty"`     // miles

	DiagnosticCodes []string `json:"diagnostic_codes,omitempty" bson:"diagnostic_codes,omitempty"`

	Provider   string    `json:"provider" bson:"provider"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}

// Location returns the event's coordinates as a Location value.
func (e *TelemetryEvent) Location() Location {
	return Location{Lat: e.Latitude, Lng: e.Longitude}
}
