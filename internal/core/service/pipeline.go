package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
	"github.com/fleetpulse/fleet-alerting/internal/core/ports"
	"github.com/fleetpulse/fleet-alerting/internal/observability/metrics"
)

const (
	samplePersistTimeout = 3 * time.Second
	warmupTimeout        = 3 * time.Second
)

// Pipeline runs the full telemetry-to-alert flow for one normalized event:
// state update, geofence transition detection, trip segmentation, rule
// evaluation, and candidate submission. Process is always invoked from the
// event's vehicle lane, so all per-vehicle work is strictly serialized.
type Pipeline struct {
	store       *StateStore
	tracker     *GeofenceTracker
	segmenter   *TripSegmenter
	evaluator   *RuleEvaluator
	alerts      *AlertService
	snapshots   *SnapshotHolder
	samples     ports.TelemetryRepository
	warmupDepth int
	log         zerolog.Logger
}

func NewPipeline(
	store *StateStore,
	tracker *GeofenceTracker,
	segmenter *TripSegmenter,
	evaluator *RuleEvaluator,
	alerts *AlertService,
	snapshots *SnapshotHolder,
	samples ports.TelemetryRepository,
	warmupDepth int,
	log zerolog.Logger,
) *Pipeline {
	if warmupDepth <= 0 {
		warmupDepth = domain.HistoryDepth
	}
	return &Pipeline{
		store:       store,
		tracker:     tracker,
		segmenter:   segmenter,
		evaluator:   evaluator,
		alerts:      alerts,
		snapshots:   snapshots,
		samples:     samples,
		warmupDepth: warmupDepth,
		log:         log,
	}
}

// Process applies one event. Events whose timestamp regresses behind the
// vehicle's last processed sample are discarded; state transitions must be
// derived from the ordered sequence only.
func (p *Pipeline) Process(ctx context.Context, event *domain.TelemetryEvent) error {
	prior, tracked := p.store.Snapshot(event.VehicleID)
	if !tracked {
		p.warmup(ctx, event)
		prior, tracked = p.store.Snapshot(event.VehicleID)
	}
	if tracked && event.Timestamp.Before(prior.LastEvent.Timestamp) {
		metrics.EventsStaleTotal.Inc()
		p.log.Debug().
			Str("vehicle_id", event.VehicleID).
			Time("event_ts", event.Timestamp).
			Time("last_ts", prior.LastEvent.Timestamp).
			Msg("stale event dropped")
		return domain.ErrStaleEvent
	}

	prev, _ := p.store.Apply(event)

	snap := p.snapshots.Current()
	transitions := p.tracker.Track(event, prev, snap.GeofencesFor(event.OrganizationID))
	p.segmenter.Update(ctx, event, prev)

	candidates := p.evaluator.Evaluate(ctx, event, prev, transitions, snap)
	for _, candidate := range candidates {
		if _, _, err := p.alerts.Submit(ctx, candidate); err != nil {
			p.log.Error().Err(err).
				Str("vehicle_id", candidate.VehicleID).
				Str("alert_type", string(candidate.Type)).
				Msg("candidate submission failed")
		}
	}

	p.appendSample(ctx, event)
	metrics.EventsProcessedTotal.Inc()
	return nil
}

// ReloadConfig swaps in a fresh configuration snapshot. Safe to call while
// events are in flight.
func (p *Pipeline) ReloadConfig(ctx context.Context) error {
	return p.snapshots.Reload(ctx)
}

// Sweep runs the clock-driven checks against every tracked vehicle: the
// device-offline rule and stale-trip closure. It reads only committed state,
// so it never observes a half-applied event.
func (p *Pipeline) Sweep(ctx context.Context, now time.Time) {
	snap := p.snapshots.Current()
	p.store.ForEach(func(state *domain.VehicleState) {
		for _, candidate := range p.evaluator.EvaluateOffline(state, snap, now) {
			if _, _, err := p.alerts.Submit(ctx, candidate); err != nil {
				p.log.Error().Err(err).
					Str("vehicle_id", candidate.VehicleID).
					Msg("offline candidate submission failed")
			}
		}
		p.segmenter.Tick(ctx, state, now)
	})
}

// warmup rehydrates a vehicle first seen since startup from durable storage:
// recent location samples seed the rolling history and the stale-event gate,
// and an in-progress trip is resumed so the lane extends or closes it instead
// of opening a duplicate. Geofence membership is rebuilt from the newest
// recovered sample so a re-entry after restart is not misreported as a fresh
// entry. Recovery is best effort; on any storage error the vehicle simply
// starts cold.
func (p *Pipeline) warmup(ctx context.Context, event *domain.TelemetryEvent) {
	ctx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	history, err := p.samples.LastSamples(ctx, event.VehicleID, p.warmupDepth)
	if err != nil {
		p.log.Warn().Err(err).Str("vehicle_id", event.VehicleID).Msg("history warmup failed")
	}
	trip, err := p.segmenter.ResumeTrip(ctx, event.VehicleID)
	if err != nil {
		p.log.Warn().Err(err).Str("vehicle_id", event.VehicleID).Msg("trip warmup failed")
	}
	if len(history) == 0 && trip == nil {
		return
	}

	var membership map[string]struct{}
	if len(history) > 0 {
		newest := history[0]
		membership = make(map[string]struct{})
		for _, g := range p.snapshots.Current().GeofencesFor(newest.OrganizationID) {
			if g.Active && g.Contains(newest.Latitude, newest.Longitude) {
				membership[g.ID] = struct{}{}
			}
		}
	}

	if p.store.Seed(event.VehicleID, history, trip, membership) {
		p.log.Info().
			Str("vehicle_id", event.VehicleID).
			Int("samples", len(history)).
			Bool("trip_resumed", trip != nil).
			Msg("vehicle state recovered")
	}
}

// appendSample writes the event to durable location history; failures are
// logged and absorbed so storage trouble never stalls the lane.
func (p *Pipeline) appendSample(ctx context.Context, event *domain.TelemetryEvent) {
	ctx, cancel := context.WithTimeout(ctx, samplePersistTimeout)
	defer cancel()
	if err := p.samples.AppendSample(ctx, event); err != nil {
		p.log.Warn().Err(err).Str("vehicle_id", event.VehicleID).Msg("sample persistence failed")
	}
}
