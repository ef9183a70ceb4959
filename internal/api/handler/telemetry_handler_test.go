package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
	"github.com/fleetpulse/fleet-alerting/internal/provider"
)

type stubDispatcher struct {
	mu       sync.Mutex
	enqueued []*domain.TelemetryEvent
}

func (d *stubDispatcher) Enqueue(event *domain.TelemetryEvent) {
	d.mu.Lock()
	d.enqueued = append(d.enqueued, event)
	d.mu.Unlock()
}

func (d *stubDispatcher) EnqueueBatch(events []*domain.TelemetryEvent) {
	d.mu.Lock()
	d.enqueued = append(d.enqueued, events...)
	d.mu.Unlock()
}

func telemetryContext(e *echo.Echo, method, target, body, providerKind string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues(providerKind)
	c.Set("org_id", "org_1")
	return c, rec
}

func TestTelemetryHandler_Receive_Success(t *testing.T) {
	e := echo.New()
	dispatcher := &stubDispatcher{}
	handler := NewTelemetryHandler(provider.DefaultRegistry(), dispatcher)

	body := `{"device_id":"dev_1","vehicle_id":"veh_1","latitude":37.7749,"longitude":-122.4194,"speed_mph":42,"timestamp":"2025-06-01T11:59:00Z"}`
	c, rec := telemetryContext(e, http.MethodPost, "/v1/telemetry/canonical", body, "canonical")

	if err := handler.Receive(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(dispatcher.enqueued) != 1 {
		t.Fatalf("expected 1 event enqueued, got %d", len(dispatcher.enqueued))
	}
	if dispatcher.enqueued[0].OrganizationID != "org_1" {
		t.Errorf("expected organization stamped from token, got %q", dispatcher.enqueued[0].OrganizationID)
	}
}

func TestTelemetryHandler_Receive_UnknownProvider(t *testing.T) {
	e := echo.New()
	dispatcher := &stubDispatcher{}
	handler := NewTelemetryHandler(provider.DefaultRegistry(), dispatcher)

	c, _ := telemetryContext(e, http.MethodPost, "/v1/telemetry/mystery", `{}`, "mystery")

	err := handler.Receive(c)
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if len(dispatcher.enqueued) != 0 {
		t.Error("nothing must be enqueued for an unknown provider")
	}
}

func TestTelemetryHandler_Receive_MalformedPayload(t *testing.T) {
	e := echo.New()
	dispatcher := &stubDispatcher{}
	handler := NewTelemetryHandler(provider.DefaultRegistry(), dispatcher)

	c, _ := telemetryContext(e, http.MethodPost, "/v1/telemetry/canonical", `{"latitude": 1}`, "canonical")

	err := handler.Receive(c)
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if len(dispatcher.enqueued) != 0 {
		t.Error("malformed event must not be enqueued")
	}
}

func TestTelemetryHandler_Receive_MissingOrgClaim(t *testing.T) {
	e := echo.New()
	handler := NewTelemetryHandler(provider.DefaultRegistry(), &stubDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/v1/telemetry/canonical", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues("canonical")

	err := handler.Receive(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestTelemetryHandler_ReceiveBatch_PartialAccept(t *testing.T) {
	e := echo.New()
	dispatcher := &stubDispatcher{}
	handler := NewTelemetryHandler(provider.DefaultRegistry(), dispatcher)

	body := `[
		{"device_id":"dev_1","latitude":1,"longitude":2,"timestamp":"2025-06-01T11:59:00Z"},
		{"latitude": 1},
		{"device_id":"dev_2","latitude":3,"longitude":4,"timestamp":"2025-06-01T11:59:05Z"}
	]`
	c, rec := telemetryContext(e, http.MethodPost, "/v1/telemetry/canonical/batch", body, "canonical")

	if err := handler.ReceiveBatch(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Accepted != 2 || resp.Rejected != 1 {
		t.Fatalf("expected 2 accepted / 1 rejected, got %+v", resp)
	}
	if len(resp.Errors) != 1 || !strings.HasPrefix(resp.Errors[0], "event[1]:") {
		t.Errorf("expected indexed error for the malformed entry, got %v", resp.Errors)
	}
	if len(dispatcher.enqueued) != 2 {
		t.Errorf("expected 2 events enqueued, got %d", len(dispatcher.enqueued))
	}
}

func TestTelemetryHandler_ReceiveBatch_EmptyBatch(t *testing.T) {
	e := echo.New()
	handler := NewTelemetryHandler(provider.DefaultRegistry(), &stubDispatcher{})

	c, _ := telemetryContext(e, http.MethodPost, "/v1/telemetry/canonical/batch", `[]`, "canonical")

	err := handler.ReceiveBatch(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %v", err)
	}
}

func TestTelemetryHandler_ReceiveBatch_UnknownProviderFailsWholeBatch(t *testing.T) {
	e := echo.New()
	dispatcher := &stubDispatcher{}
	handler := NewTelemetryHandler(provider.DefaultRegistry(), dispatcher)

	c, _ := telemetryContext(e, http.MethodPost, "/v1/telemetry/mystery/batch", `[{}]`, "mystery")

	if err := handler.ReceiveBatch(c); !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if len(dispatcher.enqueued) != 0 {
		t.Error("nothing must be enqueued for an unknown provider")
	}
}
