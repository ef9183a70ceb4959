package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
	"github.com/fleetpulse/fleet-alerting/internal/core/ports"
)

// ConfigSnapshot is an immutable view of the evaluation configuration.
// Snapshots are shared freely across lanes and replaced wholesale on reload;
// nothing ever mutates one in place.
type ConfigSnapshot struct {
	geofencesByOrg   map[string][]*domain.Geofence
	rulesByOrg       map[string][]*domain.AlertRule
	maintenanceByVeh map[string][]*domain.MaintenanceRecord
	LoadedAt         time.Time
}

// GeofencesFor returns the active geofences of an organization.
func (s *ConfigSnapshot) GeofencesFor(orgID string) []*domain.Geofence {
	return s.geofencesByOrg[orgID]
}

// RulesFor returns the enabled rules of an organization.
func (s *ConfigSnapshot) RulesFor(orgID string) []*domain.AlertRule {
	return s.rulesByOrg[orgID]
}

// MaintenanceFor returns the open maintenance records of a vehicle.
func (s *ConfigSnapshot) MaintenanceFor(vehicleID string) []*domain.MaintenanceRecord {
	return s.maintenanceByVeh[vehicleID]
}

func emptySnapshot() *ConfigSnapshot {
	return &ConfigSnapshot{
		geofencesByOrg:   map[string][]*domain.Geofence{},
		rulesByOrg:       map[string][]*domain.AlertRule{},
		maintenanceByVeh: map[string][]*domain.MaintenanceRecord{},
	}
}

// SnapshotFromConfig builds a snapshot directly from already-loaded slices.
// Used by tests and by callers that bypass the repository.
func SnapshotFromConfig(geofences []domain.Geofence, rules []domain.AlertRule, maintenance []domain.MaintenanceRecord) *ConfigSnapshot {
	snap := emptySnapshot()
	snap.LoadedAt = time.Now().UTC()
	for i := range geofences {
		g := geofences[i]
		if !g.Active {
			continue
		}
		snap.geofencesByOrg[g.OrganizationID] = append(snap.geofencesByOrg[g.OrganizationID], &g)
	}
	for i := range rules {
		r := rules[i]
		if !r.Enabled {
			continue
		}
		snap.rulesByOrg[r.OrganizationID] = append(snap.rulesByOrg[r.OrganizationID], &r)
	}
	for i := range maintenance {
		m := maintenance[i]
		if !m.Open {
			continue
		}
		snap.maintenanceByVeh[m.VehicleID] = append(snap.maintenanceByVeh[m.VehicleID], &m)
	}
	return snap
}

// SnapshotHolder owns the current configuration snapshot and swaps it
// atomically on reload, so reloads can run concurrently with in-flight
// evaluation without locks on the read path.
type SnapshotHolder struct {
	repo ports.FleetConfigRepository
	log  zerolog.Logger
	cur  atomic.Pointer[ConfigSnapshot]
}

func NewSnapshotHolder(repo ports.FleetConfigRepository, log zerolog.Logger) *SnapshotHolder {
	h := &SnapshotHolder{repo: repo, log: log}
	h.cur.Store(emptySnapshot())
	return h
}

// Current returns the active snapshot; never nil.
func (h *SnapshotHolder) Current() *ConfigSnapshot {
	return h.cur.Load()
}

// Reload reads the full configuration and swaps it in. On failure the
// previous snapshot stays active.
func (h *SnapshotHolder) Reload(ctx context.Context) error {
	geofences, err := h.repo.ActiveGeofences(ctx)
	if err != nil {
		return fmt.Errorf("reload geofences: %w", err)
	}
	rules, err := h.repo.ActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("reload rules: %w", err)
	}
	maintenance, err := h.repo.OpenMaintenance(ctx)
	if err != nil {
		return fmt.Errorf("reload maintenance: %w", err)
	}

	snap := SnapshotFromConfig(geofences, rules, maintenance)
	h.cur.Store(snap)
	h.log.Info().
		Int("geofences", len(geofences)).
		Int("rules", len(rules)).
		Int("maintenance", len(maintenance)).
		Msg("configuration snapshot reloaded")
	return nil
}
