// Package notify implements the outbound notification channels. Each channel
// is a thin transport adapter: rendering is minimal, there are no retries,
// and a failed delivery is reported back to the caller for accounting.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

const webhookTimeout = 10 * time.Second

// webhookEnvelope is the JSON document POSTed to each recipient URL.
type webhookEnvelope struct {
	ID             string             `json:"id"`
	OrganizationID string             `json:"organization_id"`
	VehicleID      string             `json:"vehicle_id"`
	Type           domain.AlertType   `json:"type"`
	Severity       domain.Severity    `json:"severity"`
	Title          string             `json:"title"`
	Message        string             `json:"message"`
	Location       *domain.Location   `json:"location,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
	Metadata       map[string]float64 `json:"metadata,omitempty"`
}

// WebhookChannel POSTs alerts as JSON to recipient URLs.
type WebhookChannel struct {
	client *http.Client
}

// WebhookOption configures the webhook channel.
type WebhookOption func(*WebhookChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(ch *WebhookChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// NewWebhookChannel constructs a webhook channel.
func NewWebhookChannel(opts ...WebhookOption) *WebhookChannel {
	channel := &WebhookChannel{
		client: &http.Client{Timeout: webhookTimeout},
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel
}

func (w *WebhookChannel) Kind() domain.ChannelKind { return domain.ChannelWebhook }

// Send posts the alert to every recipient URL. Delivery stops at the first
// failing recipient; the dispatcher accounts the whole send as failed.
func (w *WebhookChannel) Send(ctx context.Context, alert *domain.Alert, recipients []string) error {
	body, err := json.Marshal(webhookEnvelope{
		ID:             alert.ID,
		OrganizationID: alert.OrganizationID,
		VehicleID:      alert.VehicleID,
		Type:           alert.Type,
		Severity:       alert.Severity,
		Title:          alert.Title,
		Message:        alert.Message,
		Location:       alert.Location,
		Timestamp:      alert.Timestamp,
		Metadata:       alert.Metadata,
	})
	if err != nil {
		return err
	}

	for _, url := range recipients {
		if err := w.post(ctx, url, body); err != nil {
			return fmt.Errorf("webhook %s: %w", url, err)
		}
	}
	return nil
}

func (w *WebhookChannel) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
