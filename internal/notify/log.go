package notify

import (
	"context"

	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/telemetry"
)

// LogMailer writes messages to the structured log instead of sending them.
type LogMailer struct{}

// Send logs the message envelope.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return ErrNoRecipient
	}
	telemetry.Info("email.logged", map[string]any{
		"to":       msg.To,
		"subject":  msg.Subject,
		"template": msg.Template,
		"bytes":    len(msg.HTML),
	})
	metrics.IncEmail(msg.Template, nil)
	return nil
}

var _ Mailer = LogMailer{}
