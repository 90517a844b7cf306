package notify

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/doconsult-api/internal/observability/metrics"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Async delivers notifications on background goroutines with a bounded timeout.
// Delivery errors are logged and counted, never returned.
type Async struct {
	next    Notifier
	timeout time.Duration
	metrics *metrics.NotifyMetrics
	logger  *logging.Logger
	wg      sync.WaitGroup
}

// NewAsync wraps next. A nil next drops notifications.
func NewAsync(next Notifier, timeout time.Duration, m *metrics.NotifyMetrics, logger *logging.Logger) *Async {
	if next == nil {
		next = Nop{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Async{next: next, timeout: timeout, metrics: m, logger: logger.Component("notify")}
}

func (a *Async) BookingConfirmed(b Booking) {
	a.run(EventAppointmentBooked, "appointment_id", b.AppointmentID.String(), func(ctx context.Context) error {
		return a.next.NotifyBookingConfirmed(ctx, b)
	})
}

func (a *Async) PaymentConfirmed(b Booking) {
	a.run(EventAppointmentPaid, "appointment_id", b.AppointmentID.String(), func(ctx context.Context) error {
		return a.next.NotifyPaymentConfirmed(ctx, b)
	})
}

func (a *Async) ConsultationSummary(s ConsultationSummary) {
	a.run(EventConsultationCompleted, "consultation_id", s.ConsultationID.String(), func(ctx context.Context) error {
		return a.next.NotifyConsultationSummary(ctx, s)
	})
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (a *Async) Wait() {
	a.wg.Wait()
}

func (a *Async) run(event, idKey, id string, deliver func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("notification panicked", "event", event, idKey, id, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		err := deliver(ctx)
		a.metrics.ObserveDelivery(event, err)
		if err != nil {
			a.logger.Warn("notification delivery failed", "event", event, idKey, id, "error", err)
			return
		}
		a.logger.Debug("notification delivered", "event", event, idKey, id)
	}()
}
