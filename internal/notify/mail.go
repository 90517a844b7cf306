package notify

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"

	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Sender delivers one rendered email. SendGrid and SES implement it.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Email is a rendered patient notification.
type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
	// Event is one of the Event constants. Providers tag the message with it
	// so bounces and opens can be traced back to the appointment flow.
	Event         string
	AppointmentID uuid.UUID
}

// SenderConfig is the From identity every provider sends as.
type SenderConfig struct {
	FromEmail string
	FromName  string
	// ReplyTo routes patient replies to the clinic desk. Optional.
	ReplyTo string
}

func (c SenderConfig) withDefaults() SenderConfig {
	if c.FromName == "" {
		c.FromName = "DocConsult"
	}
	return c
}

// From formats the sender as an RFC 5322 address.
func (c SenderConfig) From() string {
	c = c.withDefaults()
	return (&mail.Address{Name: c.FromName, Address: c.FromEmail}).String()
}

// LogSender logs emails instead of sending them. It backs NOTIFY_PROVIDER=stub.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, e Email) error {
	s.logger.Info("email not sent (stub provider)",
		"event", e.Event,
		"appointment_id", e.AppointmentID,
		"to", e.To,
		"subject", e.Subject,
	)
	return nil
}

func sendError(provider string, e Email, err error) error {
	return fmt.Errorf("notify: %s %s for appointment %s: %w", provider, e.Event, e.AppointmentID, err)
}
