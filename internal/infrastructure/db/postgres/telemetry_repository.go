package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

var sampleColumns = []string{
	"timestamp",
	"device_id",
	"vehicle_id",
	"organization_id",
	"latitude",
	"longitude",
	"speed_mph",
	"heading",
	"engine_status",
	"fuel_level",
	"odometer",
	"diagnostic_codes",
	"provider",
	"received_at",
}

// TelemetryRepository is the wire-level store for the location_samples
// table: batched COPY writes in, recent history out, newest first. The
// BatchWriter wraps it into the pipeline-facing repository port.
type TelemetryRepository struct {
	pool *pgxpool.Pool
}

func NewTelemetryRepository(pool *pgxpool.Pool) *TelemetryRepository {
	return &TelemetryRepository{pool: pool}
}

// AppendBatch persists a batch of samples with COPY; per-row INSERTs would
// dominate write load at fleet ingest rates.
func (r *TelemetryRepository) AppendBatch(ctx context.Context, events []*domain.TelemetryEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(events))
	for i, e := range events {
		rows[i] = []interface{}{
			e.Timestamp,
			e.DeviceID,
			e.VehicleID,
			e.OrganizationID,
			e.Latitude,
			e.Longitude,
			e.SpeedMph,
			e.Heading,
			string(e.EngineStatus),
			e.FuelLevel,
			e.Odometer,
			e.DiagnosticCodes,
			e.Provider,
			e.ReceivedAt,
		}
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"location_samples"},
		sampleColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy batch of %d: %w", len(events), err)
	}
	return nil
}

// LastSamples returns up to n samples for the vehicle, newest first.
func (r *TelemetryRepository) LastSamples(ctx context.Context, vehicleID string, n int) ([]*domain.TelemetryEvent, error) {
	query := `
		SELECT timestamp, device_id, vehicle_id, organization_id, latitude, longitude,
		       speed_mph, heading, engine_status, fuel_level, odometer, diagnostic_codes,
		       provider, received_at
		FROM location_samples
		WHERE vehicle_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, vehicleID, n)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []*domain.TelemetryEvent
	for rows.Next() {
		var e domain.TelemetryEvent
		var status string
		if err := rows.Scan(
			&e.Timestamp,
			&e.DeviceID,
			&e.VehicleID,
			&e.OrganizationID,
			&e.Latitude,
			&e.Longitude,
			&e.SpeedMph,
			&e.Heading,
			&status,
			&e.FuelLevel,
			&e.Odometer,
			&e.DiagnosticCodes,
			&e.Provider,
			&e.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		e.EngineStatus = domain.EngineStatus(status)
		out = append(out, &e)
	}
	return out, rows.Err()
}
