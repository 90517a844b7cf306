package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/doconsult-api/internal/observability/metrics"
)

type countingNotifier struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (c *countingNotifier) NotifyBookingConfirmed(ctx context.Context, b Booking) error {
	c.calls.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.err
}

func (c *countingNotifier) NotifyPaymentConfirmed(ctx context.Context, b Booking) error {
	c.calls.Add(1)
	return c.err
}

func (c *countingNotifier) NotifyConsultationSummary(ctx context.Context, s ConsultationSummary) error {
	if s.ConsultationID.ID() == 0 {
		panic("boom")
	}
	c.calls.Add(1)
	return c.err
}

func TestAsyncSwallowsErrors(t *testing.T) {
	next := &countingNotifier{err: errors.New("smtp down")}
	a := NewAsync(next, time.Second, metrics.NewNotifyMetrics(prometheus.NewRegistry()), nil)

	a.BookingConfirmed(sampleBooking())
	a.PaymentConfirmed(sampleBooking())
	a.Wait()
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestAsyncDoesNotBlockCaller(t *testing.T) {
	next := &countingNotifier{block: make(chan struct{})}
	a := NewAsync(next, 50*time.Millisecond, nil, nil)

	start := time.Now()
	a.BookingConfirmed(sampleBooking())
	assert.Less(t, time.Since(start), 40*time.Millisecond)
	a.Wait()
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestAsyncRecoversPanics(t *testing.T) {
	a := NewAsync(&countingNotifier{}, time.Second, nil, nil)
	a.ConsultationSummary(ConsultationSummary{})
	a.Wait()
}

func TestAsyncNilNextIsNop(t *testing.T) {
	a := NewAsync(nil, 0, nil, nil)
	a.BookingConfirmed(sampleBooking())
	a.Wait()
}
