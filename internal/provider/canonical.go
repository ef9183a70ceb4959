package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// canonicalPayload is the native wire format: already mph, degrees, UTC.
type canonicalPayload struct {
	DeviceID        string    `json:"device_id" validate:"required"`
	VehicleID       string    `json:"vehicle_id"`
	Latitude        *float64  `json:"latitude" validate:"required"`
	Longitude       *float64  `json:"longitude" validate:"required"`
	SpeedMph        float64   `json:"speed_mph" validate:"gte=0"`
	Heading         float64   `json:"heading"`
	Timestamp       time.Time `json:"timestamp" validate:"required"`
	EngineStatus    string    `json:"engine_status" validate:"omitempty,oneof=on off idle"`
	FuelLevel       *float64  `json:"fuel_level" validate:"omitempty,gte=0,lte=100"`
	Odometer        *float64  `json:"odometer"`
	DiagnosticCodes []string  `json:"diagnostic_codes"`
}

// CanonicalAdapter accepts payloads already expressed in canonical units.
// Sources that pre-normalize (simulators, replay tools) use this kind.
type CanonicalAdapter struct {
	validate *validator.Validate
}

func NewCanonicalAdapter() *CanonicalAdapter {
	return &CanonicalAdapter{validate: validator.New()}
}

func (a *CanonicalAdapter) Kind() string { return "canonical" }

func (a *CanonicalAdapter) Normalize(payload []byte) (*domain.TelemetryEvent, error) {
	var p canonicalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("canonical: %w: %v", domain.ErrMalformedPayload, err)
	}
	if err := a.validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("canonical: %w: %v", domain.ErrMalformedPayload, err)
	}

	vehicleID := p.VehicleID
	if vehicleID == "" {
		vehicleID = p.DeviceID
	}
	status := domain.EngineStatus(p.EngineStatus)
	if p.EngineStatus == "" {
		status = engineStatusFrom(p.SpeedMph > 0, p.SpeedMph)
	}

	return &domain.TelemetryEvent{
		DeviceID:        p.DeviceID,
		VehicleID:       vehicleID,
		Latitude:        *p.Latitude,
		Longitude:       *p.Longitude,
		SpeedMph:        p.SpeedMph,
		Heading:         normalizeHeading(p.Heading),
		Timestamp:       p.Timestamp.UTC(),
		EngineStatus:    status,
		FuelLevel:       p.FuelLevel,
		Odometer:        p.Odometer,
		DiagnosticCodes: p.DiagnosticCodes,
	}, nil
}

// engineStatusFrom derives an engine status for providers that only report
// an ignition flag: ignition on while effectively stationary reads as idle.
func engineStatusFrom(ignition bool, speedMph float64) domain.EngineStatus {
	switch {
	case !ignition:
		return domain.EngineOff
	case speedMph <= 1:
		return domain.EngineIdle
	default:
		return domain.EngineOn
	}
}
