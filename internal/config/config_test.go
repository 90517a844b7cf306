package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SWEEPER_SCHEDULE", "")
	t.Setenv("NOTIFY_PROVIDER", "")
	t.Setenv("KAFKA_BROKERS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SweeperSchedule != "0 0 * * *" {
		t.Fatalf("expected midnight sweeper schedule, got %q", cfg.SweeperSchedule)
	}
	if !cfg.SweeperEnabled {
		t.Fatalf("expected sweeper enabled by default")
	}
	if cfg.NotifyProvider != "stub" {
		t.Fatalf("expected stub notify provider, got %q", cfg.NotifyProvider)
	}
	if cfg.NotifyTimeout != 10*time.Second {
		t.Fatalf("expected default notify timeout, got %s", cfg.NotifyTimeout)
	}
	if cfg.BookingEnforceAvailability {
		t.Fatalf("expected availability enforcement disabled by default")
	}
	if cfg.KafkaBrokers != nil {
		t.Fatalf("expected no kafka brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("NOTIFY_PROVIDER", " Kafka ")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, ,broker-2:9092")
	t.Setenv("SWEEPER_CHUNK_SIZE", "50")
	t.Setenv("SWEEPER_TIMEZONE", "Asia/Kolkata")
	t.Setenv("DOCTOR_CACHE_TTL", "90s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("BOOKING_ENFORCE_AVAILABILITY", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
	t.Setenv("SQS_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/123456789012/appointment-events")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.NotifyProvider != "kafka" {
		t.Fatalf("expected normalized provider, got %q", cfg.NotifyProvider)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.SweeperChunkSize != 50 {
		t.Fatalf("expected chunk override, got %d", cfg.SweeperChunkSize)
	}
	if cfg.SweeperTimezone != "Asia/Kolkata" {
		t.Fatalf("expected timezone override, got %s", cfg.SweeperTimezone)
	}
	if cfg.DoctorCacheTTL != 90*time.Second {
		t.Fatalf("expected cache ttl override, got %s", cfg.DoctorCacheTTL)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.RateLimitRPS)
	}
	if !cfg.BookingEnforceAvailability {
		t.Fatalf("expected availability enforcement enabled")
	}
	if cfg.SQSQueueURL != "https://sqs.us-east-1.amazonaws.com/123456789012/appointment-events" {
		t.Fatalf("expected sqs queue override, got %q", cfg.SQSQueueURL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}
