package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/fleetpulse/fleet-alerting/internal/observability/metrics"
	"github.com/fleetpulse/fleet-alerting/internal/provider"
)

// Message headers understood by the consumer. Messages without a provider
// header fall back to the consumer's default provider; the organization
// header stamps the tenant the same way the HTTP boundary does from JWT
// claims.
const (
	providerHeader = "provider"
	orgHeader      = "organization_id"
)

// Consumer reads raw provider payloads from a Kafka topic, normalizes them,
// and hands the resulting events to the dispatcher. Offsets are committed
// only after the event has been enqueued, so a crash re-delivers instead of
// losing data; the dedup window absorbs the resulting duplicates.
type Consumer struct {
	reader          *kafka.Reader
	registry        *provider.Registry
	dispatcher      *Dispatcher
	defaultProvider string
	log             zerolog.Logger
}

// ConsumerConfig carries the Kafka connection settings.
type ConsumerConfig struct {
	Brokers         []string
	Topic           string
	GroupID         string
	DefaultProvider string
}

// NewConsumer builds a consumer with manual offset commits.
func NewConsumer(cfg ConsumerConfig, registry *provider.Registry, dispatcher *Dispatcher, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     cfg.GroupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		}),
		registry:        registry,
		dispatcher:      dispatcher,
		defaultProvider: cfg.DefaultProvider,
		log:             log,
	}
}

// Run consumes until ctx is cancelled. Malformed payloads are logged,
// counted, and committed; they are never retried.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("kafka consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		kind := c.providerKind(msg)
		metrics.EventsIngestedTotal.WithLabelValues(kind).Inc()

		event, err := c.registry.Normalize(msg.Value, kind)
		if err != nil {
			metrics.EventsMalformedTotal.WithLabelValues(kind).Inc()
			c.log.Warn().Err(err).
				Str("provider", kind).
				Int64("offset", msg.Offset).
				Msg("dropping unparseable payload")
		} else {
			event.OrganizationID = headerValue(msg, orgHeader)
			c.dispatcher.Enqueue(event)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("commit offset: %w", err)
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) providerKind(msg kafka.Message) string {
	if kind := headerValue(msg, providerHeader); kind != "" {
		return kind
	}
	if c.defaultProvider != "" {
		return c.defaultProvider
	}
	return "canonical"
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
