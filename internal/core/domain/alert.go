package domain

import "time"

// AlertType is the closed set of alert kinds the pipeline can produce.
// Adding a kind means extending the rule evaluator's exhaustive dispatch,
// so the compiler keeps rule handling and alert kinds in sync.
type AlertType string

const (
	AlertSpeeding          AlertType = "speeding"
	AlertGeofenceEntry     AlertType = "geofence_entry"
	AlertGeofenceExit      AlertType = "geofence_exit"
	AlertHarshAcceleration AlertType = "harsh_acceleration"
	AlertHarshBraking      AlertType = "harsh_braking"
	AlertExcessiveIdle     AlertType = "excessive_idle"
	AlertDeviceOffline     AlertType = "device_offline"
	AlertFuelTheft         AlertType = "fuel_theft"
	AlertMaintenanceDue    AlertType = "maintenance_due"
)

// Severity ranks how urgent an alert is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a comparable ordering for severities; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// CandidateAlert is a provisional alert produced by rule evaluation. It is
// transient: after the dedup check it is either materialized into an Alert
// or discarded.
type CandidateAlert struct {
	OrganizationID string
	VehicleID      string
	Type           AlertType
	Severity       Severity
	Title          string
	Message        string
	Location       *Location
	Timestamp      time.Time
	// Metadata carries rule-specific numeric evidence (observed speed,
	// computed acceleration, fuel delta, ...).
	Metadata map[string]float64
	// Targets are the notification destinations configured on the rule
	// that produced this candidate.
	Targets []NotificationTarget
}

// Alert is the persisted record created from a candidate that survived
// deduplication. Acknowledge/resolve mutations happen outside the pipeline.
type Alert struct {
	ID             string             `json:"id" bson:"_id,omitempty"`
	OrganizationID string             `json:"organization_id" bson:"organization_id"`
	VehicleID      string             `json:"vehicle_id" bson:"vehicle_id"`
	Type           AlertType          `json:"type" bson:"type"`
	Severity       Severity           `json:"severity" bson:"severity"`
	Title          string             `json:"title" bson:"title"`
	Message        string             `json:"message" bson:"message"`
	Location       *Location          `json:"location,omitempty" bson:"location,omitempty"`
	Timestamp      time.Time          `json:"timestamp" bson:"timestamp"`
	Metadata       map[string]float64 `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Acknowledged   bool               `json:"acknowledged" bson:"acknowledged"`
	Resolved       bool               `json:"resolved" bson:"resolved"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// ChannelKind identifies a notification channel implementation.
type ChannelKind string

const (
	ChannelEmail   ChannelKind = "email"
	ChannelSMS     ChannelKind = "sms"
	ChannelWebhook ChannelKind = "webhook"
)

// NotificationTarget is one destination an alert should be delivered to.
type NotificationTarget struct {
	Channel   ChannelKind `json:"channel" bson:"channel"`
	Recipient string      `json:"recipient" bson:"recipient"`
}
