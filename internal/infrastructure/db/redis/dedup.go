package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// AlertDedup implements the sliding suppression window on Redis key TTLs.
// Key format: dedup:<organization_id>:<vehicle_id>:<alert_type>
//
// The window opens when the key is written and later candidates leave no
// trace, which is exactly the suppress-only policy: duplicates are dropped,
// never merged, and never extend the window.
type AlertDedup struct {
	client *redis.Client
}

// NewAlertDedup creates an AlertDedup wrapping the given Redis client.
func NewAlertDedup(client *redis.Client) *AlertDedup {
	return &AlertDedup{client: client}
}

// Seen reports whether an alert of this type was created for the vehicle
// inside the current window.
func (d *AlertDedup) Seen(ctx context.Context, orgID, vehicleID string, alertType domain.AlertType) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(orgID, vehicleID, alertType)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark opens a suppression window of the given duration.
func (d *AlertDedup) Mark(ctx context.Context, orgID, vehicleID string, alertType domain.AlertType, window time.Duration) error {
	return d.client.Set(ctx, d.key(orgID, vehicleID, alertType), "1", window).Err()
}

func (d *AlertDedup) key(orgID, vehicleID string, alertType domain.AlertType) string {
	return fmt.Sprintf("dedup:%s:%s:%s", orgID, vehicleID, alertType)
}
