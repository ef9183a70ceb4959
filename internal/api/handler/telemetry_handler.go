package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
	"github.com/fleetpulse/fleet-alerting/internal/observability/metrics"
	"github.com/fleetpulse/fleet-alerting/internal/provider"
)

// maxPayloadBytes bounds a single raw provider payload.
const maxPayloadBytes = 1 << 20

// EventDispatcher is the interface the handler uses to enqueue events.
type EventDispatcher interface {
	Enqueue(event *domain.TelemetryEvent)
	EnqueueBatch(events []*domain.TelemetryEvent)
}

// TelemetryHandler handles raw telemetry ingestion. Payloads stay in the
// provider's native shape on the wire; the adapter registry normalizes them
// before anything touches the pipeline.
type TelemetryHandler struct {
	registry   *provider.Registry
	dispatcher EventDispatcher
}

// NewTelemetryHandler creates a TelemetryHandler backed by the given
// registry and dispatcher.
func NewTelemetryHandler(registry *provider.Registry, dispatcher EventDispatcher) *TelemetryHandler {
	return &TelemetryHandler{registry: registry, dispatcher: dispatcher}
}

// Receive handles POST /v1/telemetry/:provider. It normalizes and enqueues a
// single payload, returns 202.
func (h *TelemetryHandler) Receive(c echo.Context) error {
	orgID, err := ctxOrgID(c)
	if err != nil {
		return err
	}
	kind := c.Param("provider")

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable payload")
	}

	metrics.EventsIngestedTotal.WithLabelValues(kind).Inc()
	event, err := h.registry.Normalize(payload, kind)
	if err != nil {
		metrics.EventsMalformedTotal.WithLabelValues(kind).Inc()
		return err
	}
	event.OrganizationID = orgID

	h.dispatcher.Enqueue(event)
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "event accepted"})
}

// ReceiveBatch handles POST /v1/telemetry/:provider/batch. It normalizes each
// payload independently, enqueues the valid ones, returns 202 with counts.
// Malformed entries are dropped and reported, never fail the batch.
func (h *TelemetryHandler) ReceiveBatch(c echo.Context) error {
	orgID, err := ctxOrgID(c)
	if err != nil {
		return err
	}
	kind := c.Param("provider")

	var reqs batchRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}

	resp := batchResponse{}
	events := make([]*domain.TelemetryEvent, 0, len(reqs))
	for i, raw := range reqs {
		metrics.EventsIngestedTotal.WithLabelValues(kind).Inc()
		event, err := h.registry.Normalize(raw, kind)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownProvider) {
				return err
			}
			metrics.EventsMalformedTotal.WithLabelValues(kind).Inc()
			resp.Rejected++
			resp.Errors = append(resp.Errors, fmt.Sprintf("event[%d]: %s", i, err.Error()))
			continue
		}
		event.OrganizationID = orgID
		events = append(events, event)
	}

	h.dispatcher.EnqueueBatch(events)
	resp.Accepted = len(events)
	return c.JSON(http.StatusAccepted, resp)
}
