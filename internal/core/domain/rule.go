package domain

// RuleType is the closed set of rule kinds the evaluator dispatches on.
type RuleType string

const (
	RuleSpeeding       RuleType = "speeding"
	RuleGeofence       RuleType = "geofence"
	RuleHarshDriving   RuleType = "harsh_driving"
	RuleIdle           RuleType = "idle"
	RuleDeviceOffline  RuleType = "device_offline"
	RuleFuelTheft      RuleType = "fuel_theft"
	RuleMaintenanceDue RuleType = "maintenance_due"
)

// RuleConditions holds free-form numeric thresholds keyed by rule type
// (e.g. "tolerance_mph" for speeding, "idle_minutes" for idle).
type RuleConditions map[string]float64

// Threshold returns the configured value for key, or def when absent.
func (c RuleConditions) Threshold(key string, def float64) float64 {
	if c == nil {
		return def
	}
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// AlertRule configures one operational rule for an organization.
// Rules are read-only during evaluation and swapped wholesale on reload.
type AlertRule struct {
	ID             string               `json:"id" bson:"_id,omitempty"`
	OrganizationID string               `json:"organization_id" bson:"organization_id"`
	Type           RuleType             `json:"type" bson:"type"`
	Conditions     RuleConditions       `json:"conditions,omitempty" bson:"conditions,omitempty"`
	Severity       Severity             `json:"severity" bson:"severity"`
	Enabled        bool                 `json:"enabled" bson:"enabled"`
	Targets        []NotificationTarget `json:"targets,omitempty" bson:"targets,omitempty"`
}

// MaintenanceRecord is an open maintenance task with a target odometer
// reading, used by the maintenance-due rule.
type MaintenanceRecord struct {
	ID             string  `json:"id" bson:"_id,omitempty"`
	OrganizationID string  `json:"organization_id" bson:"organization_id"`
	VehicleID      string  `json:"vehicle_id" bson:"vehicle_id"`
	Description    string  `json:"description" bson:"description"`
	TargetOdometer float64 `json:"target_odometer" bson:"target_odometer"` // miles
	Open           bool    `json:"open" bson:"open"`
}
