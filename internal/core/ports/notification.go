package ports

import (
	"context"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// NotificationChannel delivers an alert to recipients over one transport
// (email, SMS, webhook, ...). Implementations live outside the core and must
// not retry internally; a failed send is reported back and isolated by the
// dispatcher.
type NotificationChannel interface {
	Kind() domain.ChannelKind
	Send(ctx context.Context, alert *domain.Alert, recipients []string) error
}
