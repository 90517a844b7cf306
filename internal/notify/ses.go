package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"

	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// SESClient is the subset of *sesv2.Client the sender uses.
type SESClient interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers email through Amazon SES v2.
type SESSender struct {
	client SESClient
	cfg    SenderConfig
	logger *logging.Logger
}

// NewSESSender returns nil without a client.
func NewSESSender(client SESClient, cfg SenderConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SESSender{client: client, cfg: cfg.withDefaults(), logger: logger}
}

func (s *SESSender) Send(ctx context.Context, e Email) error {
	if s == nil || s.client == nil {
		return errors.New("notify: ses client not configured")
	}
	out, err := s.client.SendEmail(ctx, sesInput(s.cfg, e))
	if err != nil {
		return sendError("ses", e, err)
	}
	s.logger.Info("email sent", "provider", "ses", "event", e.Event, "appointment_id", e.AppointmentID, "message_id", aws.ToString(out.MessageId))
	return nil
}

func sesInput(cfg SenderConfig, e Email) *sesv2.SendEmailInput {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(cfg.From()),
		Destination:      &types.Destination{ToAddresses: []string{e.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(e.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if cfg.ReplyTo != "" {
		in.ReplyToAddresses = []string{cfg.ReplyTo}
	}
	if e.Event != "" {
		in.EmailTags = append(in.EmailTags, types.MessageTag{Name: aws.String("event"), Value: aws.String(sesTagValue(e.Event))})
	}
	if e.AppointmentID != uuid.Nil {
		in.EmailTags = append(in.EmailTags, types.MessageTag{Name: aws.String("appointment_id"), Value: aws.String(e.AppointmentID.String())})
	}
	return in
}

// sesTagValue maps an event name onto the tag alphabet SES accepts
// (letters, digits, '_' and '-').
func sesTagValue(v string) string {
	return strings.ReplaceAll(v, ".", "_")
}

var _ Sender = (*SESSender)(nil)
