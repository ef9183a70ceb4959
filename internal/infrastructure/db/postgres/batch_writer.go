package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

const (
	flushInterval = 5 * time.Second
	flushLimit    = 100
	flushTimeout  = 5 * time.Second
)

// sampleStore is the slice of TelemetryRepository the writer needs.
type sampleStore interface {
	AppendBatch(ctx context.Context, events []*domain.TelemetryEvent) error
	LastSamples(ctx context.Context, vehicleID string, n int) ([]*domain.TelemetryEvent, error)
}

// BatchWriter absorbs per-event sample appends into a buffer and flushes it
// with a single COPY, either when the buffer fills or on a fixed interval.
// Per-row INSERTs from every vehicle lane would dominate write load at fleet
// ingest rates; the buffer amortizes them.
type BatchWriter struct {
	store sampleStore
	log   zerolog.Logger

	mu  sync.Mutex
	buf []*domain.TelemetryEvent
}

// NewBatchWriter wraps the repository with buffered batch writes. Call Run
// to start the periodic flush.
func NewBatchWriter(repo *TelemetryRepository, log zerolog.Logger) *BatchWriter {
	return newBatchWriter(repo, log)
}

func newBatchWriter(store sampleStore, log zerolog.Logger) *BatchWriter {
	return &BatchWriter{
		store: store,
		log:   log,
		buf:   make([]*domain.TelemetryEvent, 0, flushLimit),
	}
}

// AppendSample buffers the event. When the buffer reaches the flush limit it
// is written out inline; the error, if any, belongs to the whole batch.
func (w *BatchWriter) AppendSample(ctx context.Context, event *domain.TelemetryEvent) error {
	w.mu.Lock()
	w.buf = append(w.buf, event)
	full := len(w.buf) >= flushLimit
	w.mu.Unlock()

	if full {
		return w.Flush(ctx)
	}
	return nil
}

// LastSamples flushes pending events first so recovery reads see everything
// that was accepted, then delegates to the repository.
func (w *BatchWriter) LastSamples(ctx context.Context, vehicleID string, n int) ([]*domain.TelemetryEvent, error) {
	if err := w.Flush(ctx); err != nil {
		w.log.Warn().Err(err).Msg("flush before history read failed")
	}
	return w.store.LastSamples(ctx, vehicleID, n)
}

// Flush writes out all buffered events in one batch.
func (w *BatchWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	pending := w.buf
	w.buf = make([]*domain.TelemetryEvent, 0, flushLimit)
	w.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	return w.store.AppendBatch(ctx, pending)
}

// Run flushes on a fixed interval until ctx is cancelled, then drains the
// buffer one last time so accepted samples survive shutdown.
func (w *BatchWriter) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			if err := w.Flush(drainCtx); err != nil {
				w.log.Error().Err(err).Msg("final sample flush failed")
			}
			cancel()
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.log.Warn().Err(err).Msg("sample flush failed")
			}
		}
	}
}
