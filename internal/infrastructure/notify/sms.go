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

const (
	smsTimeout = 10 * time.Second
	// smsMaxRunes caps the rendered body to a single concatenated segment.
	smsMaxRunes = 320
)

// SMSConfig carries the settings for the SMS gateway channel.
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	Sender     string
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// SMSChannel delivers alerts through an HTTP SMS gateway, one request per
// recipient phone number.
type SMSChannel struct {
	cfg    SMSConfig
	client *http.Client
}

// NewSMSChannel constructs an SMS channel.
func NewSMSChannel(cfg SMSConfig) *SMSChannel {
	return &SMSChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: smsTimeout},
	}
}

func (s *SMSChannel) Kind() domain.ChannelKind { return domain.ChannelSMS }

// Send delivers a truncated alert summary to each recipient.
func (s *SMSChannel) Send(ctx context.Context, alert *domain.Alert, recipients []string) error {
	text := fmt.Sprintf("[%s] %s: %s", alert.Severity, alert.Title, alert.Message)
	if runes := []rune(text); len(runes) > smsMaxRunes {
		text = string(runes[:smsMaxRunes])
	}

	for _, to := range recipients {
		body, err := json.Marshal(smsRequest{From: s.cfg.Sender, To: to, Body: text})
		if err != nil {
			return err
		}
		if err := s.post(ctx, body); err != nil {
			return fmt.Errorf("sms to %s: %w", to, err)
		}
	}
	return nil
}

func (s *SMSChannel) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
