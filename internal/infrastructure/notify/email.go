package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// SMTPConfig carries the settings for the email channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var alertEmailTmpl = template.Must(template.New("alert").Parse(`Fleet Alert: {{.Title}}
==================

Vehicle:   {{.VehicleID}}
Type:      {{.Type}}
Severity:  {{.Severity}}
Time:      {{.Timestamp}}
{{if .Location}}Location:  {{.Location.Lat}}, {{.Location.Lng}}
{{end}}
{{.Message}}
`))

// EmailChannel delivers alerts over SMTP.
type EmailChannel struct {
	cfg SMTPConfig

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel constructs an email channel.
func NewEmailChannel(cfg SMTPConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg, send: smtp.SendMail}
}

func (e *EmailChannel) Kind() domain.ChannelKind { return domain.ChannelEmail }

// Send renders the alert body and mails it to all recipients in one message.
func (e *EmailChannel) Send(ctx context.Context, alert *domain.Alert, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	body, err := renderAlertEmail(alert)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: [%s] %s\r\n", alert.Severity, alert.Title)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	// smtp.SendMail has no context support; honor cancellation around it.
	done := make(chan error, 1)
	go func() {
		done <- e.send(addr, auth, e.cfg.From, recipients, msg.Bytes())
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	}
}

func renderAlertEmail(alert *domain.Alert) (string, error) {
	var buf bytes.Buffer
	if err := alertEmailTmpl.Execute(&buf, alert); err != nil {
		return "", err
	}
	return buf.String(), nil
}
