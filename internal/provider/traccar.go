package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// traccarPayload mirrors the position JSON emitted by Traccar-compatible
// trackers: speed in knots, course in degrees for bearing, fixTime in epoch
// milliseconds, fuel in percent and odometer in metres under attributes.
type traccarPayload struct {
	UniqueID   string   `json:"uniqueId"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Speed      float64  `json:"speed"`
	Course     float64  `json:"course"`
	FixTime    int64    `json:"fixTime"`
	Attributes struct {
		Ignition *bool    `json:"ignition"`
		Motion   bool     `json:"motion"`
		Fuel     *float64 `json:"fuel"`
		Odometer *float64 `json:"odometer"`
		Alarm    string   `json:"alarm"`
		DTCs     []string `json:"dtcs"`
	} `json:"attributes"`
}

// TraccarAdapter normalizes Traccar position payloads.
type TraccarAdapter struct{}

func NewTraccarAdapter() *TraccarAdapter { return &TraccarAdapter{} }

func (a *TraccarAdapter) Kind() string { return "traccar" }

func (a *TraccarAdapter) Normalize(payload []byte) (*domain.TelemetryEvent, error) {
	var p traccarPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("traccar: %w: %v", domain.ErrMalformedPayload, err)
	}
	if p.UniqueID == "" || p.Latitude == nil || p.Longitude == nil || p.FixTime == 0 {
		return nil, fmt.Errorf("traccar: %w: missing device id, coordinates, or fix time", domain.ErrMalformedPayload)
	}

	speedMph := p.Speed * knotsToMph
	ignition := p.Attributes.Ignition != nil && *p.Attributes.Ignition

	var odometer *float64
	if p.Attributes.Odometer != nil {
		miles := *p.Attributes.Odometer / metersPerMile
		odometer = &miles
	}

	return &domain.TelemetryEvent{
		DeviceID:        p.UniqueID,
		VehicleID:       p.UniqueID,
		Latitude:        *p.Latitude,
		Longitude:       *p.Longitude,
		SpeedMph:        speedMph,
		Heading:         normalizeHeading(p.Course),
		Timestamp:       time.UnixMilli(p.FixTime).UTC(),
		EngineStatus:    engineStatusFrom(ignition, speedMph),
		FuelLevel:       p.Attributes.Fuel,
		Odometer:        odometer,
		DiagnosticCodes: p.Attributes.DTCs,
	}, nil
}

const metersPerMile = 1609.344
