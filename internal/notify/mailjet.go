package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/telemetry"
)

// MailjetConfig holds the Mailjet v3.1 send API credentials.
type MailjetConfig struct {
	BaseURL     string
	APIKey      string
	SecretKey   string
	SenderEmail string
	SenderName  string
}

// MailjetMailer sends email through the Mailjet HTTP API.
type MailjetMailer struct {
	cfg    MailjetConfig
	client *http.Client
}

// NewMailjetMailer constructs a MailjetMailer. A nil client gets a 10s timeout.
func NewMailjetMailer(cfg MailjetConfig, client *http.Client) *MailjetMailer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MailjetMailer{cfg: cfg, client: client}
}

type mailjetPayload struct {
	Messages []mailjetMessage `json:"Messages"`
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetMessage struct {
	From     mailjetAddress   `json:"From"`
	To       []mailjetAddress `json:"To"`
	Subject  string           `json:"Subject"`
	TextPart string           `json:"TextPart,omitempty"`
	HTMLPart string           `json:"HTMLPart,omitempty"`
	CustomID string           `json:"CustomID,omitempty"`
}

// Send posts the message to {BaseURL}/v3.1/send.
func (m *MailjetMailer) Send(ctx context.Context, msg Message) (err error) {
	defer func() { metrics.IncEmail(msg.Template, err) }()

	if msg.To == "" {
		return ErrNoRecipient
	}
	payload := mailjetPayload{Messages: []mailjetMessage{{
		From:     mailjetAddress{Email: m.cfg.SenderEmail, Name: m.cfg.SenderName},
		To:       []mailjetAddress{{Email: msg.To, Name: msg.ToName}},
		Subject:  msg.Subject,
		TextPart: msg.Text,
		HTMLPart: msg.HTML,
		CustomID: msg.Template,
	}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mailjet payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/v3.1/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(m.cfg.APIKey, m.cfg.SecretKey)

	res, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailjet send: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	telemetry.Warn("email.mailjet_rejected", map[string]any{
		"status":   res.StatusCode,
		"template": msg.Template,
		"body":     string(respBody),
	})
	return fmt.Errorf("mailjet returned status %d", res.StatusCode)
}

var _ Mailer = (*MailjetMailer)(nil)
