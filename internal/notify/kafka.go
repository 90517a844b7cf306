package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes notification events for a downstream mailer.
type KafkaNotifier struct {
	writer MessageWriter
	logger *logging.Logger
	now    func() time.Time
}

// KafkaConfig holds the producer settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaWriter builds a producer for cfg. Returns nil without brokers.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	if cfg.Topic == "" {
		cfg.Topic = "appointment_topic"
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaNotifier creates a notifier on writer.
func NewKafkaNotifier(writer MessageWriter, logger *logging.Logger) *KafkaNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &KafkaNotifier{writer: writer, logger: logger, now: time.Now}
}

func (n *KafkaNotifier) NotifyBookingConfirmed(ctx context.Context, b Booking) error {
	return n.publish(ctx, EventAppointmentBooked, b.AppointmentID, b)
}

func (n *KafkaNotifier) NotifyPaymentConfirmed(ctx context.Context, b Booking) error {
	return n.publish(ctx, EventAppointmentPaid, b.AppointmentID, b)
}

func (n *KafkaNotifier) NotifyConsultationSummary(ctx context.Context, s ConsultationSummary) error {
	return n.publish(ctx, EventConsultationCompleted, s.AppointmentID, s)
}

// publish keys messages by appointment id so one appointment's events stay ordered.
func (n *KafkaNotifier) publish(ctx context.Context, event string, appointmentID uuid.UUID, payload any) error {
	if n.writer == nil {
		return fmt.Errorf("notify: kafka writer not configured")
	}
	value, err := encodeEnvelope(event, n.now(), payload)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(appointmentID.String()),
		Value:   value,
		Headers: []kafka.Header{{Key: "event", Value: []byte(event)}},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notify: publish %s: %w", event, err)
	}
	n.logger.Info("notification event published", "event", event, "appointment_id", appointmentID)
	return nil
}

var _ Notifier = (*KafkaNotifier)(nil)
