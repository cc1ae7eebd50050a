package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/pkg/config"
)

// Message describes one outbound notification email.
type Message struct {
	To      []string
	BCC     []string
	Subject string
	HTML    string
}

// Sender delivers notification email. Implementations must be safe to call
// with a nil-configured backend; the workflow never depends on delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendGridSender builds a sender from mail configuration. A disabled or
// unconfigured mailer returns a no-op sender so callers need no nil checks.
func NewSendGridSender(cfg config.MailConfig, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || cfg.APIKey == "" {
		return &noopSender{logger: logger}
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger,
	}
}

// Send submits the message. Errors are returned for logging only; callers
// must not fail their own operation on a delivery error.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail requires at least one recipient")
	}

	message := sgmail.NewV3Mail()
	message.SetFrom(s.from)
	message.Subject = msg.Subject
	message.AddContent(sgmail.NewContent("text/html", msg.HTML))

	personalization := sgmail.NewPersonalization()
	for _, to := range msg.To {
		personalization.AddTos(sgmail.NewEmail("", to))
	}
	for _, bcc := range msg.BCC {
		personalization.AddBCCs(sgmail.NewEmail("", bcc))
	}
	message.AddPersonalizations(personalization)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	s.logger.Debug("mail sent", zap.String("subject", msg.Subject), zap.Int("recipients", len(msg.To)))
	return nil
}

type noopSender struct {
	logger *zap.Logger
}

func (s *noopSender) Send(_ context.Context, msg Message) error {
	s.logger.Debug("mail disabled, dropping message", zap.String("subject", msg.Subject))
	return nil
}
