package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
	"github.com/fleetpulse/fleet-alerting/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubConfigRepo struct {
	geofences   []domain.Geofence
	rules       []domain.AlertRule
	maintenance []domain.MaintenanceRecord
	err         error
}

func (r *stubConfigRepo) ActiveGeofences(_ context.Context) ([]domain.Geofence, error) {
	return r.geofences, r.err
}

func (r *stubConfigRepo) ActiveRules(_ context.Context) ([]domain.AlertRule, error) {
	return r.rules, r.err
}

func (r *stubConfigRepo) OpenMaintenance(_ context.Context) ([]domain.MaintenanceRecord, error) {
	return r.maintenance, r.err
}

type stubSampleRepo struct {
	appendErr  error
	historyErr error
	appended   []*domain.TelemetryEvent
	history    []*domain.TelemetryEvent
}

func (r *stubSampleRepo) AppendSample(_ context.Context, event *domain.TelemetryEvent) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.appended = append(r.appended, event)
	return nil
}

func (r *stubSampleRepo) LastSamples(_ context.Context, _ string, n int) ([]*domain.TelemetryEvent, error) {
	if r.historyErr != nil {
		return nil, r.historyErr
	}
	if len(r.history) > n {
		return r.history[:n], nil
	}
	return r.history, nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type pipelineFixture struct {
	pipeline  *Pipeline
	store     *StateStore
	alertRepo *stubAlertRepo
	tripRepo  *stubTripRepo
	samples   *stubSampleRepo
	dedup     *stubAlertDedup
	email     *stubChannel
}

func newPipelineFixture(t *testing.T, cfg *stubConfigRepo) *pipelineFixture {
	t.Helper()

	store := NewStateStore()
	tripRepo := &stubTripRepo{}
	alertRepo := &stubAlertRepo{}
	samples := &stubSampleRepo{}
	dedup := &stubAlertDedup{}
	email := &stubChannel{kind: domain.ChannelEmail}

	resolver := NewSpeedLimitResolver(&stubSpeedLimitAPI{limit: 35}, zerolog.Nop())
	snapshots := NewSnapshotHolder(cfg, zerolog.Nop())
	if err := snapshots.Reload(context.Background()); err != nil {
		t.Fatalf("snapshot load: %v", err)
	}

	pipeline := NewPipeline(
		store,
		NewGeofenceTracker(store),
		NewTripSegmenter(store, tripRepo, 10*time.Minute, zerolog.Nop()),
		NewRuleEvaluator(resolver, zerolog.Nop()),
		NewAlertService(dedup, alertRepo, []ports.NotificationChannel{email}, time.Minute, zerolog.Nop()),
		snapshots,
		samples,
		domain.HistoryDepth,
		zerolog.Nop(),
	)
	return &pipelineFixture{
		pipeline:  pipeline,
		store:     store,
		alertRepo: alertRepo,
		tripRepo:  tripRepo,
		samples:   samples,
		dedup:     dedup,
		email:     email,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPipeline_Process_EndToEnd(t *testing.T) {
	cfg := &stubConfigRepo{
		rules: []domain.AlertRule{enabledRule(domain.RuleSpeeding, nil)},
	}
	fx := newPipelineFixture(t, cfg)
	ts := time.Now().UTC()

	// 60 mph against a 35 limit: trip opens, speeding alert fires.
	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts, 60)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fx.alertRepo.inserted) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(fx.alertRepo.inserted))
	}
	if fx.alertRepo.inserted[0].Type != domain.AlertSpeeding {
		t.Errorf("expected speeding alert, got %s", fx.alertRepo.inserted[0].Type)
	}
	if len(fx.tripRepo.created) != 1 {
		t.Errorf("expected trip opened, got %d", len(fx.tripRepo.created))
	}
	if len(fx.samples.appended) != 1 {
		t.Errorf("expected sample persisted, got %d", len(fx.samples.appended))
	}

	state, ok := fx.store.Snapshot("veh_1")
	if !ok || state.LastEvent.SpeedMph != 60 {
		t.Error("expected state updated with the event")
	}
}

func TestPipeline_Process_StaleEventDropped(t *testing.T) {
	cfg := &stubConfigRepo{}
	fx := newPipelineFixture(t, cfg)
	ts := time.Now().UTC()

	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts.Add(-time.Minute), 90))
	if !errors.Is(err, domain.ErrStaleEvent) {
		t.Fatalf("expected ErrStaleEvent, got %v", err)
	}

	state, _ := fx.store.Snapshot("veh_1")
	if state.LastEvent.SpeedMph != 10 {
		t.Error("stale event must not replace state")
	}
	if len(fx.samples.appended) != 1 {
		t.Error("stale event must not be persisted")
	}
}

func TestPipeline_Process_GeofenceEntryAlert(t *testing.T) {
	zone := downtownZone("zone_1", true, true)
	cfg := &stubConfigRepo{
		geofences: []domain.Geofence{zone},
		rules:     []domain.AlertRule{enabledRule(domain.RuleGeofence, nil)},
	}
	fx := newPipelineFixture(t, cfg)
	ts := time.Now().UTC()

	// Baseline outside, then drive in.
	outside := sampleAt("veh_1", ts, 10)
	outside.Latitude, outside.Longitude = 38.0, -122.0
	if err := fx.pipeline.Process(context.Background(), outside); err != nil {
		t.Fatal(err)
	}
	inside := sampleAt("veh_1", ts.Add(time.Minute), 10)
	if err := fx.pipeline.Process(context.Background(), inside); err != nil {
		t.Fatal(err)
	}

	if len(fx.alertRepo.inserted) != 1 || fx.alertRepo.inserted[0].Type != domain.AlertGeofenceEntry {
		t.Fatalf("expected a geofence entry alert, got %v", fx.alertRepo.inserted)
	}
}

func TestPipeline_Process_SamplePersistenceFailureNonFatal(t *testing.T) {
	cfg := &stubConfigRepo{}
	fx := newPipelineFixture(t, cfg)
	fx.samples.appendErr = errors.New("postgres down")

	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", time.Now().UTC(), 10)); err != nil {
		t.Fatalf("expected storage failure to be absorbed, got %v", err)
	}
}

func TestPipeline_Sweep_OfflineAndTripClosure(t *testing.T) {
	cfg := &stubConfigRepo{
		rules: []domain.AlertRule{enabledRule(domain.RuleDeviceOffline, domain.RuleConditions{"offline_minutes": 5})},
	}
	fx := newPipelineFixture(t, cfg)
	ts := time.Now().UTC()

	// Moving vehicle opens a trip, then goes silent.
	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts, 30)); err != nil {
		t.Fatal(err)
	}

	fx.pipeline.Sweep(context.Background(), ts.Add(20*time.Minute))

	var offline int
	for _, a := range fx.alertRepo.inserted {
		if a.Type == domain.AlertDeviceOffline {
			offline++
		}
	}
	if offline != 1 {
		t.Errorf("expected one offline alert, got %d", offline)
	}

	state, _ := fx.store.Snapshot("veh_1")
	if state.ActiveTrip != nil {
		t.Error("expected stale trip closed by sweep")
	}
	if len(fx.tripRepo.updated) == 0 || fx.tripRepo.updated[len(fx.tripRepo.updated)-1].Status != domain.TripCompleted {
		t.Error("expected completed trip persisted")
	}
}

func TestPipeline_ReloadConfig_SwapsSnapshot(t *testing.T) {
	cfg := &stubConfigRepo{}
	fx := newPipelineFixture(t, cfg)
	ts := time.Now().UTC()

	// No rules: no alerts.
	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts, 90)); err != nil {
		t.Fatal(err)
	}
	if len(fx.alertRepo.inserted) != 0 {
		t.Fatal("expected no alerts before rules exist")
	}

	cfg.rules = []domain.AlertRule{enabledRule(domain.RuleSpeeding, nil)}
	if err := fx.pipeline.ReloadConfig(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts.Add(time.Minute), 90)); err != nil {
		t.Fatal(err)
	}
	if len(fx.alertRepo.inserted) != 1 {
		t.Errorf("expected speeding alert after reload, got %d", len(fx.alertRepo.inserted))
	}
}

func TestPipeline_Process_WarmupRestoresStaleGate(t *testing.T) {
	cfg := &stubConfigRepo{}
	fx := newPipelineFixture(t, cfg)
	ts := time.Now().UTC()

	// Durable history from before a restart: the newest persisted sample
	// defines the ordering gate for the first live event.
	fx.samples.history = []*domain.TelemetryEvent{sampleAt("veh_1", ts, 30)}

	err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts.Add(-time.Minute), 50))
	if !errors.Is(err, domain.ErrStaleEvent) {
		t.Fatalf("expected ErrStaleEvent against recovered history, got %v", err)
	}

	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts.Add(time.Minute), 50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, _ := fx.store.Snapshot("veh_1")
	if len(state.History) != 2 {
		t.Errorf("expected recovered history plus the new event, got %d samples", len(state.History))
	}
}

func TestPipeline_Process_WarmupResumesOpenTrip(t *testing.T) {
	cfg := &stubConfigRepo{}
	fx := newPipelineFixture(t, cfg)
	ts := time.Now().UTC()

	fx.tripRepo.active = &domain.Trip{
		ID:             "trip_1",
		VehicleID:      "veh_1",
		OrganizationID: "org_1",
		Status:         domain.TripInProgress,
		StartTime:      ts.Add(-5 * time.Minute),
		LastMovementAt: ts,
	}
	fx.samples.history = []*domain.TelemetryEvent{sampleAt("veh_1", ts, 30)}

	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts.Add(time.Minute), 30)); err != nil {
		t.Fatal(err)
	}

	if len(fx.tripRepo.created) != 0 {
		t.Errorf("expected no duplicate trip, got %d creates", len(fx.tripRepo.created))
	}
	state, _ := fx.store.Snapshot("veh_1")
	if state.ActiveTrip == nil || state.ActiveTrip.ID != "trip_1" {
		t.Fatalf("expected the resumed trip extended, got %v", state.ActiveTrip)
	}
	if len(fx.tripRepo.updated) == 0 {
		t.Error("expected extension persisted")
	}
}

func TestPipeline_Process_WarmupSeedsGeofenceMembership(t *testing.T) {
	zone := downtownZone("zone_1", true, true)
	cfg := &stubConfigRepo{
		geofences: []domain.Geofence{zone},
		rules:     []domain.AlertRule{enabledRule(domain.RuleGeofence, nil)},
	}
	fx := newPipelineFixture(t, cfg)
	ts := time.Now().UTC()

	// The vehicle was already inside the zone before the restart; the next
	// sample inside must not look like a fresh entry.
	fx.samples.history = []*domain.TelemetryEvent{sampleAt("veh_1", ts, 10)}

	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", ts.Add(time.Minute), 10)); err != nil {
		t.Fatal(err)
	}
	if len(fx.alertRepo.inserted) != 0 {
		t.Fatalf("expected no entry alert after recovery, got %v", fx.alertRepo.inserted)
	}
}

func TestPipeline_Process_WarmupFailureStartsCold(t *testing.T) {
	cfg := &stubConfigRepo{}
	fx := newPipelineFixture(t, cfg)
	fx.samples.historyErr = errors.New("postgres down")

	if err := fx.pipeline.Process(context.Background(), sampleAt("veh_1", time.Now().UTC(), 30)); err != nil {
		t.Fatalf("expected recovery failure absorbed, got %v", err)
	}
}
