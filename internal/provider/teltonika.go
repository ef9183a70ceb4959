package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// teltonikaPayload mirrors the decoded AVL record forwarded by Teltonika
// gateways: speed in m/s, angle for bearing, ts in epoch seconds, odometer
// in kilometres.
type teltonikaPayload struct {
	IMEI       string   `json:"imei"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Speed      float64  `json:"speed"` // m/s
	Angle      float64  `json:"angle"` // degrees
	Ts         int64    `json:"ts"`    // epoch seconds
	Ignition   int      `json:"ignition"`
	Movement   int      `json:"movement"`
	FuelLevel  *float64 `json:"fuel_level"`  // percent
	OdometerKm *float64 `json:"odometer_km"` // kilometres
	FaultCodes []string `json:"fault_codes"`
}

// TeltonikaAdapter normalizes decoded Teltonika AVL payloads.
type TeltonikaAdapter struct{}

func NewTeltonikaAdapter() *TeltonikaAdapter { return &TeltonikaAdapter{} }

func (a *TeltonikaAdapter) Kind() string { return "teltonika" }

func (a *TeltonikaAdapter) Normalize(payload []byte) (*domain.TelemetryEvent, error) {
	var p teltonikaPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("teltonika: %w: %v", domain.ErrMalformedPayload, err)
	}
	if p.IMEI == "" || p.Lat == nil || p.Lng == nil || p.Ts == 0 {
		return nil, fmt.Errorf("teltonika: %w: missing imei, coordinates, or timestamp", domain.ErrMalformedPayload)
	}

	speedMph := p.Speed * msToMph

	var odometer *float64
	if p.OdometerKm != nil {
		miles := *p.OdometerKm * kmToMiles
		odometer = &miles
	}

	return &domain.TelemetryEvent{
		DeviceID:        p.IMEI,
		VehicleID:       p.IMEI,
		Latitude:        *p.Lat,
		Longitude:       *p.Lng,
		SpeedMph:        speedMph,
		Heading:         normalizeHeading(p.Angle),
		Timestamp:       time.Unix(p.Ts, 0).UTC(),
		EngineStatus:    engineStatusFrom(p.Ignition == 1, speedMph),
		FuelLevel:       p.FuelLevel,
		Odometer:        odometer,
		DiagnosticCodes: p.FaultCodes,
	}, nil
}
