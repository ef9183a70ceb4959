package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
	"github.com/fleetpulse/fleet-alerting/internal/observability/metrics"
)

const (
	defaultWorkers = 8
	laneBuffer     = 256
)

// EventProcessor consumes one normalized event. The pipeline implements it;
// tests substitute a recorder.
type EventProcessor interface {
	Process(ctx context.Context, event *domain.TelemetryEvent) error
}

// Dispatcher routes events to a fixed set of worker lanes using consistent
// hashing on the vehicle id. Every event of a vehicle lands in the same lane,
// so all pipeline stages for event N finish before event N+1 of that vehicle
// starts; distinct vehicles run in parallel.
type Dispatcher struct {
	lanes     []chan *domain.TelemetryEvent
	processor EventProcessor
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded lanes.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, processor EventProcessor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		lanes:     make([]chan *domain.TelemetryEvent, numWorkers),
		processor: processor,
		log:       log,
	}
	for i := range d.lanes {
		d.lanes[i] = make(chan *domain.TelemetryEvent, laneBuffer)
	}
	return d
}

// Start launches all lane goroutines. Lanes stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.lanes {
		go d.runLane(ctx, i, ch)
	}
}

// Enqueue sends an event to the lane responsible for its vehicle.
// The call is non-blocking up to laneBuffer capacity.
func (d *Dispatcher) Enqueue(event *domain.TelemetryEvent) {
	lane := d.laneIndex(event.VehicleID)
	d.lanes[lane] <- event
	metrics.QueueDepth.WithLabelValues(strconv.Itoa(lane)).Set(float64(len(d.lanes[lane])))
}

// EnqueueBatch enqueues multiple events preserving per-vehicle ordering.
func (d *Dispatcher) EnqueueBatch(events []*domain.TelemetryEvent) {
	for _, e := range events {
		d.Enqueue(e)
	}
}

// laneIndex maps a vehicle id deterministically to a lane index.
func (d *Dispatcher) laneIndex(vehicleID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(vehicleID))
	return int(h.Sum32()) % len(d.lanes)
}

func (d *Dispatcher) runLane(ctx context.Context, id int, ch <-chan *domain.TelemetryEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := d.processor.Process(ctx, event); err != nil && !errors.Is(err, domain.ErrStaleEvent) {
				d.log.Error().Err(err).
					Str("vehicle_id", event.VehicleID).
					Int("worker_id", id).
					Msg("event processing failed")
			}
			metrics.QueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
		}
	}
}
