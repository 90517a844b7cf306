package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// SendGridClient is the subset of *sendgrid.Client the sender uses.
type SendGridClient interface {
	SendWithContext(ctx context.Context, m *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers email through the SendGrid v3 API.
type SendGridSender struct {
	client SendGridClient
	cfg    SenderConfig
	logger *logging.Logger
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(apiKey string, cfg SenderConfig, logger *logging.Logger) *SendGridSender {
	if apiKey == "" {
		return nil
	}
	return NewSendGridSenderWithClient(sendgrid.NewSendClient(apiKey), cfg, logger)
}

func NewSendGridSenderWithClient(client SendGridClient, cfg SenderConfig, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{client: client, cfg: cfg.withDefaults(), logger: logger}
}

func (s *SendGridSender) Send(ctx context.Context, e Email) error {
	if s == nil || s.client == nil {
		return errors.New("notify: sendgrid client not configured")
	}
	resp, err := s.client.SendWithContext(ctx, sendGridMessage(s.cfg, e))
	if err != nil {
		return sendError("sendgrid", e, err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "event", e.Event, "appointment_id", e.AppointmentID, "status", resp.StatusCode, "body", resp.Body)
		return sendError("sendgrid", e, fmt.Errorf("status %d", resp.StatusCode))
	}
	s.logger.Info("email sent", "provider", "sendgrid", "event", e.Event, "appointment_id", e.AppointmentID)
	return nil
}

// sendGridMessage tags each email with its event as a category and carries
// the appointment id as a custom arg, so webhook events map back to bookings.
func sendGridMessage(cfg SenderConfig, e Email) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(cfg.FromName, cfg.FromEmail))
	m.Subject = e.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(e.ToName, e.To))
	if e.AppointmentID != uuid.Nil {
		p.SetCustomArg("appointment_id", e.AppointmentID.String())
	}
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", e.Text))
	if e.Event != "" {
		m.AddCategories(e.Event)
	}
	if cfg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", cfg.ReplyTo))
	}
	return m
}

var _ Sender = (*SendGridSender)(nil)
