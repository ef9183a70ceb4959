package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
	"github.com/fleetpulse/fleet-alerting/internal/core/ports"
	"github.com/fleetpulse/fleet-alerting/internal/observability/metrics"
)

const (
	defaultDedupWindow     = 30 * time.Minute
	alertPersistTimeout    = 5 * time.Second
	channelDispatchTimeout = 5 * time.Second
)

// AlertService materializes candidate alerts: within the sliding dedup
// window at most one alert per (organization, vehicle, type) is created;
// later candidates in the window are discarded, not merged or escalated.
// Surviving alerts are persisted and fanned out to notification channels.
type AlertService struct {
	dedup    ports.AlertDedup
	repo     ports.AlertRepository
	channels map[domain.ChannelKind]ports.NotificationChannel
	window   time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewAlertService(
	dedup ports.AlertDedup,
	repo ports.AlertRepository,
	channels []ports.NotificationChannel,
	window time.Duration,
	log zerolog.Logger,
) *AlertService {
	if window <= 0 {
		window = defaultDedupWindow
	}
	byKind := make(map[domain.ChannelKind]ports.NotificationChannel, len(channels))
	for _, ch := range channels {
		byKind[ch.Kind()] = ch
	}
	return &AlertService{
		dedup:    dedup,
		repo:     repo,
		channels: byKind,
		window:   window,
		log:      log,
		now:      time.Now,
	}
}

// Submit runs a candidate through dedup, persistence, and dispatch.
// It returns the materialized alert, or (nil, true, nil) when the candidate
// was suppressed by the window. A dedup store error is treated as a miss:
// a duplicate alert beats a silently dropped one.
func (s *AlertService) Submit(ctx context.Context, candidate domain.CandidateAlert) (*domain.Alert, bool, error) {
	seen, err := s.dedup.Seen(ctx, candidate.OrganizationID, candidate.VehicleID, candidate.Type)
	if err != nil {
		s.log.Warn().Err(err).
			Str("vehicle_id", candidate.VehicleID).
			Str("alert_type", string(candidate.Type)).
			Msg("dedup check failed, processing anyway")
	} else if seen {
		metrics.AlertsSuppressedTotal.WithLabelValues(string(candidate.Type)).Inc()
		return nil, true, nil
	}

	// Mark before writing so a crash between persist and mark cannot cause
	// a burst of duplicates on restart.
	if err := s.dedup.Mark(ctx, candidate.OrganizationID, candidate.VehicleID, candidate.Type, s.window); err != nil {
		s.log.Warn().Err(err).
			Str("vehicle_id", candidate.VehicleID).
			Str("alert_type", string(candidate.Type)).
			Msg("failed to set dedup key")
	}

	alert := &domain.Alert{
		ID:             uuid.NewString(),
		OrganizationID: candidate.OrganizationID,
		VehicleID:      candidate.VehicleID,
		Type:           candidate.Type,
		Severity:       candidate.Severity,
		Title:          candidate.Title,
		Message:        candidate.Message,
		Location:       candidate.Location,
		Timestamp:      candidate.Timestamp,
		Metadata:       candidate.Metadata,
		CreatedAt:      s.now().UTC(),
	}

	persistCtx, cancel := context.WithTimeout(ctx, alertPersistTimeout)
	err = s.repo.Insert(persistCtx, alert)
	cancel()
	if err != nil {
		// Persistence failure degrades, it does not abort: the alert is
		// still dispatched from memory and left for an external retry job.
		s.log.Error().Err(err).
			Str("alert_id", alert.ID).
			Str("vehicle_id", alert.VehicleID).
			Msg("alert persistence failed, dispatching from memory")
	}

	s.dispatch(ctx, alert, candidate.Targets)

	metrics.AlertsCreatedTotal.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
	s.log.Info().
		Str("alert_id", alert.ID).
		Str("vehicle_id", alert.VehicleID).
		Str("alert_type", string(alert.Type)).
		Str("severity", string(alert.Severity)).
		Msg("alert created")
	return alert, false, nil
}

// dispatch fans the alert out to every configured target. Channels run
// concurrently; a failure or timeout on one channel never blocks the others,
// and no channel is retried here.
func (s *AlertService) dispatch(ctx context.Context, alert *domain.Alert, targets []domain.NotificationTarget) {
	recipients := make(map[domain.ChannelKind][]string)
	for _, t := range targets {
		recipients[t.Channel] = append(recipients[t.Channel], t.Recipient)
	}

	var wg sync.WaitGroup
	for kind, rcpts := range recipients {
		channel, ok := s.channels[kind]
		if !ok {
			s.log.Warn().Str("channel", string(kind)).Msg("no channel implementation configured")
			continue
		}
		wg.Add(1)
		go func(channel ports.NotificationChannel, rcpts []string) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, channelDispatchTimeout)
			defer cancel()
			if err := channel.Send(sendCtx, alert, rcpts); err != nil {
				metrics.DispatchFailuresTotal.WithLabelValues(string(channel.Kind())).Inc()
				s.log.Error().Err(err).
					Str("channel", string(channel.Kind())).
					Str("alert_id", alert.ID).
					Msg("notification dispatch failed")
			}
		}(channel, rcpts)
	}
	wg.Wait()
}
