package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "doconsult"

// BookingMetrics counts booking attempts by outcome.
type BookingMetrics struct {
	attempts *prometheus.CounterVec
	latency  prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome (ok, conflict, validation, not_found, forbidden, transient)",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "Latency of booking requests",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attempts, m.latency)
	return m
}

func (m *BookingMetrics) ObserveAttempt(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.latency.Observe(seconds)
}

// LifecycleMetrics counts applied status transitions.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
}

func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	m := &LifecycleMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Appointment status transitions applied",
		}, []string{"action", "from", "to"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions)
	return m
}

func (m *LifecycleMetrics) ObserveTransition(action, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, from, to).Inc()
}

// SweeperMetrics tracks expiration sweeps.
type SweeperMetrics struct {
	cancelled    prometheus.Counter
	failures     prometheus.Counter
	lastDuration prometheus.Gauge
}

func NewSweeperMetrics(reg prometheus.Registerer) *SweeperMetrics {
	m := &SweeperMetrics{
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "cancelled_total",
			Help:      "Appointments auto-cancelled because their date passed",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "chunk_failures_total",
			Help:      "Sweeper chunks that failed",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "last_duration_seconds",
			Help:      "Duration of the most recent sweep",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.cancelled, m.failures, m.lastDuration)
	return m
}

func (m *SweeperMetrics) ObserveSweep(cancelled, failures int, seconds float64) {
	if m == nil {
		return
	}
	m.cancelled.Add(float64(cancelled))
	m.failures.Add(float64(failures))
	m.lastDuration.Set(seconds)
}

// NotifyMetrics counts notification deliveries.
type NotifyMetrics struct {
	deliveries *prometheus.CounterVec
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by event and status",
		}, []string{"event", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.deliveries)
	return m
}

func (m *NotifyMetrics) ObserveDelivery(event string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.deliveries.WithLabelValues(event, status).Inc()
}
