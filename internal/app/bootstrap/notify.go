package bootstrap

import (
	"context"
	"fmt"
	"io"

	appconfig "github.com/wolfman30/doconsult-api/internal/config"
	"github.com/wolfman30/doconsult-api/internal/notify"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// BuildNotifier selects the notification provider from NOTIFY_PROVIDER. The
// returned closer releases provider resources (the Kafka producer) and is
// never nil. Missing credentials fall back to the stub sender so booking keeps
// working.
func BuildNotifier(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.Notifier, io.Closer, string, error) {
	if cfg == nil {
		return nil, nopCloser{}, "", fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	stub := func(reason string) (notify.Notifier, io.Closer, string, error) {
		if reason != "" {
			logger.Warn("notification provider unavailable; using stub", "provider", cfg.NotifyProvider, "reason", reason)
		}
		return notify.NewEmailNotifier(notify.NewLogSender(logger), logger), nopCloser{}, "stub", nil
	}

	switch cfg.NotifyProvider {
	case "", "stub":
		return stub("")
	case "sendgrid":
		sender := notify.NewSendGridSender(cfg.SendGridAPIKey, senderConfig(cfg, cfg.SendGridFromEmail), logger)
		if sender == nil {
			return stub("SENDGRID_API_KEY not set")
		}
		return notify.NewEmailNotifier(sender, logger), nopCloser{}, "sendgrid", nil
	case "ses":
		if cfg.SESFromEmail == "" {
			return stub("SES_FROM_EMAIL not set")
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nopCloser{}, "", fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		sender := notify.NewSESSender(NewSESClient(awsCfg, cfg.AWSEndpointOverride), senderConfig(cfg, cfg.SESFromEmail), logger)
		return notify.NewEmailNotifier(sender, logger), nopCloser{}, "ses", nil
	case "sqs":
		if cfg.SQSQueueURL == "" {
			return stub("SQS_QUEUE_URL not set")
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nopCloser{}, "", fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		return notify.NewSQSNotifier(NewSQSClient(awsCfg, cfg.AWSEndpointOverride), cfg.SQSQueueURL, logger), nopCloser{}, "sqs", nil
	case "kafka":
		writer := notify.NewKafkaWriter(notify.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if writer == nil {
			return stub("KAFKA_BROKERS not set")
		}
		return notify.NewKafkaNotifier(writer, logger), writer, "kafka", nil
	default:
		return nil, nopCloser{}, "", fmt.Errorf("bootstrap: unknown NOTIFY_PROVIDER %q", cfg.NotifyProvider)
	}
}

func senderConfig(cfg *appconfig.Config, fromEmail string) notify.SenderConfig {
	return notify.SenderConfig{
		FromEmail: fromEmail,
		FromName:  cfg.SendGridFromName,
		ReplyTo:   cfg.NotifyReplyTo,
	}
}
