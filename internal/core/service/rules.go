package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// Default thresholds, overridable per rule through RuleConditions.
const (
	defaultSpeedToleranceMph = 5.0
	defaultHarshAccelMphS    = 8.0
	defaultIdleMinutes       = 15.0
	defaultOfflineMinutes    = 5.0
	defaultFuelDropPct       = 20.0
	defaultFuelWindowMinutes = 30.0
	defaultMaintWarnMiles    = 500.0
	defaultMaintUrgentMiles  = 100.0

	// speedSlackMph absorbs GPS speed jitter on top of the configured
	// tolerance, so a reading a hair over the tolerance does not alert.
	speedSlackMph = 1.0
)

// RuleEvaluator runs every enabled rule of the event's organization against
// one event plus the previous vehicle state. Rules are pure with respect to
// pipeline state; the only external call is the speed limit lookup, which is
// already bounded and fallback-protected by the resolver. A failure in one
// rule is logged and isolated; the remaining rules still run.
type RuleEvaluator struct {
	resolver *SpeedLimitResolver
	log      zerolog.Logger
	now      func() time.Time
}

func NewRuleEvaluator(resolver *SpeedLimitResolver, log zerolog.Logger) *RuleEvaluator {
	return &RuleEvaluator{resolver: resolver, log: log, now: time.Now}
}

// Evaluate runs the event-driven rules and returns all candidate alerts.
// transitions carries the geofence crossings already detected for this event.
func (e *RuleEvaluator) Evaluate(
	ctx context.Context,
	event *domain.TelemetryEvent,
	prev *domain.VehicleState,
	transitions []Transition,
	snap *ConfigSnapshot,
) []domain.CandidateAlert {
	var out []domain.CandidateAlert
	for _, rule := range snap.RulesFor(event.OrganizationID) {
		candidates, err := e.evaluateRule(ctx, rule, event, prev, transitions, snap)
		if err != nil {
			e.log.Warn().Err(err).
				Str("rule_id", rule.ID).
				Str("rule_type", string(rule.Type)).
				Str("vehicle_id", event.VehicleID).
				Msg("rule evaluation failed")
			continue
		}
		out = append(out, candidates...)
	}
	return out
}

// EvaluateOffline runs the clock-driven device-offline rules against a
// committed state snapshot. Invoked by the periodic sweeper, independent of
// event arrival.
func (e *RuleEvaluator) EvaluateOffline(state *domain.VehicleState, snap *ConfigSnapshot, now time.Time) []domain.CandidateAlert {
	var out []domain.CandidateAlert
	for _, rule := range snap.RulesFor(state.OrganizationID) {
		if rule.Type != domain.RuleDeviceOffline {
			continue
		}
		out = append(out, e.deviceOffline(rule, state, now)...)
	}
	return out
}

// evaluateRule dispatches on the closed rule-kind set. An unhandled kind is
// an error, not a silent skip, so new kinds cannot be forgotten here.
func (e *RuleEvaluator) evaluateRule(
	ctx context.Context,
	rule *domain.AlertRule,
	event *domain.TelemetryEvent,
	prev *domain.VehicleState,
	transitions []Transition,
	snap *ConfigSnapshot,
) ([]domain.CandidateAlert, error) {
	switch rule.Type {
	case domain.RuleSpeeding:
		return e.speeding(ctx, rule, event), nil
	case domain.RuleGeofence:
		return e.geofence(rule, event, transitions), nil
	case domain.RuleHarshDriving:
		return e.harshDriving(rule, event, prev), nil
	case domain.RuleIdle:
		return e.idle(rule, event, prev), nil
	case domain.RuleDeviceOffline:
		return e.deviceOffline(rule, stateForOffline(event, prev), e.now()), nil
	case domain.RuleFuelTheft:
		return e.fuelTheft(rule, event, prev), nil
	case domain.RuleMaintenanceDue:
		return e.maintenanceDue(rule, event, snap.MaintenanceFor(event.VehicleID)), nil
	default:
		return nil, fmt.Errorf("unhandled rule type %q", rule.Type)
	}
}

// stateForOffline lets the event path share the clock-driven rule: the
// freshly applied event is the heartbeat being judged.
func stateForOffline(event *domain.TelemetryEvent, prev *domain.VehicleState) *domain.VehicleState {
	return &domain.VehicleState{
		VehicleID:      event.VehicleID,
		OrganizationID: event.OrganizationID,
		LastEvent:      event,
		LastHeartbeat:  event.Timestamp,
	}
}

func (e *RuleEvaluator) speeding(ctx context.Context, rule *domain.AlertRule, event *domain.TelemetryEvent) []domain.CandidateAlert {
	limit := e.resolver.Resolve(ctx, event.Latitude, event.Longitude)
	tolerance := rule.Conditions.Threshold("tolerance_mph", defaultSpeedToleranceMph)

	if event.SpeedMph <= limit+tolerance+speedSlackMph {
		return nil
	}

	excess := event.SpeedMph - limit
	severity := domain.SeverityLow
	switch {
	case excess >= 20:
		severity = domain.SeverityHigh
	case excess >= 10:
		severity = domain.SeverityMedium
	}

	loc := event.Location()
	return []domain.CandidateAlert{{
		OrganizationID: event.OrganizationID,
		VehicleID:      event.VehicleID,
		Type:           domain.AlertSpeeding,
		Severity:       severity,
		Title:          "Speeding violation",
		Message:        fmt.Sprintf("Vehicle %s travelling %.0f mph in a %.0f mph zone", event.VehicleID, event.SpeedMph, limit),
		Location:       &loc,
		Timestamp:      event.Timestamp,
		Metadata: map[string]float64{
			"speed_mph":  event.SpeedMph,
			"limit_mph":  limit,
			"excess_mph": excess,
		},
		Targets: rule.Targets,
	}}
}

func (e *RuleEvaluator) geofence(rule *domain.AlertRule, event *domain.TelemetryEvent, transitions []Transition) []domain.CandidateAlert {
	out := make([]domain.CandidateAlert, 0, len(transitions))
	for _, tr := range transitions {
		alertType := domain.AlertGeofenceEntry
		verb := "entered"
		if tr.Kind == TransitionExit {
			alertType = domain.AlertGeofenceExit
			verb = "exited"
		}
		loc := event.Location()
		out = append(out, domain.CandidateAlert{
			OrganizationID: event.OrganizationID,
			VehicleID:      event.VehicleID,
			Type:           alertType,
			Severity:       domain.SeverityMedium,
			Title:          fmt.Sprintf("Geofence %s", tr.Kind),
			Message:        fmt.Sprintf("Vehicle %s %s geofence %q", event.VehicleID, verb, tr.Geofence.Name),
			Location:       &loc,
			Timestamp:      event.Timestamp,
			Metadata:       map[string]float64{"lat": event.Latitude, "lng": event.Longitude},
			Targets:        rule.Targets,
		})
	}
	return out
}

func (e *RuleEvaluator) harshDriving(rule *domain.AlertRule, event *domain.TelemetryEvent, prev *domain.VehicleState) []domain.CandidateAlert {
	if prev == nil || prev.LastEvent == nil {
		return nil
	}
	last := prev.LastEvent
	dt := event.Timestamp.Sub(last.Timestamp).Seconds()
	if dt <= 0 {
		return nil
	}
	accel := (event.SpeedMph - last.SpeedMph) / dt
	threshold := rule.Conditions.Threshold("accel_mph_s", defaultHarshAccelMphS)

	var alertType domain.AlertType
	var title string
	switch {
	case accel > threshold:
		alertType = domain.AlertHarshAcceleration
		title = "Harsh acceleration"
	case accel < -threshold:
		alertType = domain.AlertHarshBraking
		title = "Harsh braking"
	default:
		return nil
	}

	severity := rule.Severity
	if severity == "" {
		severity = domain.SeverityMedium
	}
	loc := event.Location()
	return []domain.CandidateAlert{{
		OrganizationID: event.OrganizationID,
		VehicleID:      event.VehicleID,
		Type:           alertType,
		Severity:       severity,
		Title:          title,
		Message:        fmt.Sprintf("Vehicle %s changed speed at %.1f mph/s", event.VehicleID, accel),
		Location:       &loc,
		Timestamp:      event.Timestamp,
		Metadata: map[string]float64{
			"acceleration_mph_s": accel,
			"from_mph":           last.SpeedMph,
			"to_mph":             event.SpeedMph,
			"delta_seconds":      dt,
		},
		Targets: rule.Targets,
	}}
}

func (e *RuleEvaluator) idle(rule *domain.AlertRule, event *domain.TelemetryEvent, prev *domain.VehicleState) []domain.CandidateAlert {
	if event.SpeedMph > motionThresholdMph || event.EngineStatus != domain.EngineIdle {
		return nil
	}
	if prev == nil || prev.LastMotionAt.IsZero() {
		return nil
	}
	elapsed := event.Timestamp.Sub(prev.LastMotionAt)
	threshold := time.Duration(rule.Conditions.Threshold("idle_minutes", defaultIdleMinutes) * float64(time.Minute))
	if elapsed <= threshold {
		return nil
	}

	loc := event.Location()
	return []domain.CandidateAlert{{
		OrganizationID: event.OrganizationID,
		VehicleID:      event.VehicleID,
		Type:           domain.AlertExcessiveIdle,
		Severity:       domain.SeverityLow,
		Title:          "Excessive idling",
		Message:        fmt.Sprintf("Vehicle %s idling for %.0f minutes", event.VehicleID, elapsed.Minutes()),
		Location:       &loc,
		Timestamp:      event.Timestamp,
		Metadata:       map[string]float64{"idle_minutes": elapsed.Minutes()},
		Targets:        rule.Targets,
	}}
}

func (e *RuleEvaluator) deviceOffline(rule *domain.AlertRule, state *domain.VehicleState, now time.Time) []domain.CandidateAlert {
	if state == nil || state.LastHeartbeat.IsZero() {
		return nil
	}
	silence := now.Sub(state.LastHeartbeat)
	threshold := time.Duration(rule.Conditions.Threshold("offline_minutes", defaultOfflineMinutes) * float64(time.Minute))
	if silence <= threshold {
		return nil
	}

	var loc *domain.Location
	if state.LastEvent != nil {
		l := state.LastEvent.Location()
		loc = &l
	}
	return []domain.CandidateAlert{{
		OrganizationID: state.OrganizationID,
		VehicleID:      state.VehicleID,
		Type:           domain.AlertDeviceOffline,
		Severity:       domain.SeverityHigh,
		Title:          "Device offline",
		Message:        fmt.Sprintf("Vehicle %s silent for %.0f minutes", state.VehicleID, silence.Minutes()),
		Location:       loc,
		Timestamp:      now,
		Metadata:       map[string]float64{"silence_minutes": silence.Minutes()},
		Targets:        rule.Targets,
	}}
}

func (e *RuleEvaluator) fuelTheft(rule *domain.AlertRule, event *domain.TelemetryEvent, prev *domain.VehicleState) []domain.CandidateAlert {
	if event.FuelLevel == nil || event.SpeedMph >= motionThresholdMph || prev == nil {
		return nil
	}
	dropThreshold := rule.Conditions.Threshold("drop_pct", defaultFuelDropPct)
	window := time.Duration(rule.Conditions.Threshold("window_minutes", defaultFuelWindowMinutes) * float64(time.Minute))

	var maxDrop float64
	for _, sample := range prev.History {
		if sample.FuelLevel == nil {
			continue
		}
		if event.Timestamp.Sub(sample.Timestamp) > window {
			continue
		}
		if drop := *sample.FuelLevel - *event.FuelLevel; drop > maxDrop {
			maxDrop = drop
		}
	}
	if maxDrop <= dropThreshold {
		return nil
	}

	loc := event.Location()
	return []domain.CandidateAlert{{
		OrganizationID: event.OrganizationID,
		VehicleID:      event.VehicleID,
		Type:           domain.AlertFuelTheft,
		Severity:       domain.SeverityCritical,
		Title:          "Possible fuel theft",
		Message:        fmt.Sprintf("Vehicle %s lost %.0f%% fuel while stationary", event.VehicleID, maxDrop),
		Location:       &loc,
		Timestamp:      event.Timestamp,
		Metadata:       map[string]float64{"fuel_drop_pct": maxDrop, "fuel_level_pct": *event.FuelLevel},
		Targets:        rule.Targets,
	}}
}

func (e *RuleEvaluator) maintenanceDue(rule *domain.AlertRule, event *domain.TelemetryEvent, records []*domain.MaintenanceRecord) []domain.CandidateAlert {
	if event.Odometer == nil {
		return nil
	}
	warnMiles := rule.Conditions.Threshold("warn_miles", defaultMaintWarnMiles)
	urgentMiles := rule.Conditions.Threshold("urgent_miles", defaultMaintUrgentMiles)

	var out []domain.CandidateAlert
	for _, record := range records {
		remaining := record.TargetOdometer - *event.Odometer
		if remaining > warnMiles {
			continue
		}
		severity := domain.SeverityMedium
		if remaining <= urgentMiles {
			severity = domain.SeverityHigh
		}
		out = append(out, domain.CandidateAlert{
			OrganizationID: event.OrganizationID,
			VehicleID:      event.VehicleID,
			Type:           domain.AlertMaintenanceDue,
			Severity:       severity,
			Title:          "Maintenance due",
			Message:        fmt.Sprintf("Vehicle %s within %.0f miles of %q", event.VehicleID, remaining, record.Description),
			Timestamp:      event.Timestamp,
			Metadata: map[string]float64{
				"remaining_miles": remaining,
				"target_odometer": record.TargetOdometer,
				"odometer":        *event.Odometer,
			},
			Targets: rule.Targets,
		})
	}
	return out
}
