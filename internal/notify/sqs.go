package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// SQSSender is the subset of *sqs.Client the notifier uses.
type SQSSender interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier enqueues notification events for a mail worker. Bodies are the
// same Envelope the Kafka notifier publishes.
type SQSNotifier struct {
	client   SQSSender
	queueURL string
	fifo     bool
	logger   *logging.Logger
	now      func() time.Time
}

func NewSQSNotifier(client SQSSender, queueURL string, logger *logging.Logger) *SQSNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &SQSNotifier{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
		logger:   logger,
		now:      time.Now,
	}
}

func (n *SQSNotifier) NotifyBookingConfirmed(ctx context.Context, b Booking) error {
	return n.enqueue(ctx, EventAppointmentBooked, b.AppointmentID, b)
}

func (n *SQSNotifier) NotifyPaymentConfirmed(ctx context.Context, b Booking) error {
	return n.enqueue(ctx, EventAppointmentPaid, b.AppointmentID, b)
}

func (n *SQSNotifier) NotifyConsultationSummary(ctx context.Context, s ConsultationSummary) error {
	return n.enqueue(ctx, EventConsultationCompleted, s.AppointmentID, s)
}

// enqueue groups FIFO messages by appointment so one appointment's events are
// delivered in order, and dedupes a repeated event for the same appointment.
func (n *SQSNotifier) enqueue(ctx context.Context, event string, appointmentID uuid.UUID, payload any) error {
	if n.client == nil || n.queueURL == "" {
		return errors.New("notify: sqs queue not configured")
	}
	body, err := encodeEnvelope(event, n.now(), payload)
	if err != nil {
		return err
	}
	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event":          {DataType: aws.String("String"), StringValue: aws.String(event)},
			"appointment_id": {DataType: aws.String("String"), StringValue: aws.String(appointmentID.String())},
		},
	}
	if n.fifo {
		in.MessageGroupId = aws.String(appointmentID.String())
		in.MessageDeduplicationId = aws.String(event + ":" + appointmentID.String())
	}
	out, err := n.client.SendMessage(ctx, in)
	if err != nil {
		return fmt.Errorf("notify: enqueue %s: %w", event, err)
	}
	n.logger.Info("notification event enqueued", "event", event, "appointment_id", appointmentID, "message_id", aws.ToString(out.MessageId))
	return nil
}

var _ Notifier = (*SQSNotifier)(nil)
