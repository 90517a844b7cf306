package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event names used for logs, metrics and published messages.
const (
	EventAppointmentBooked     = "appointment.booked"
	EventAppointmentPaid       = "appointment.paid"
	EventConsultationCompleted = "consultation.completed"
)

// Notifier delivers patient-facing notifications. Implementations may fail;
// callers wrap them in Async so failures never reach the caller.
type Notifier interface {
	NotifyBookingConfirmed(ctx context.Context, b Booking) error
	NotifyPaymentConfirmed(ctx context.Context, b Booking) error
	NotifyConsultationSummary(ctx context.Context, s ConsultationSummary) error
}

// Booking describes an appointment for notification purposes.
type Booking struct {
	AppointmentID    uuid.UUID       `json:"appointment_id"`
	PatientID        uuid.UUID       `json:"patient_id"`
	PatientName      string          `json:"patient_name"`
	PatientEmail     string          `json:"patient_email"`
	DoctorID         uuid.UUID       `json:"doctor_id"`
	DoctorName       string          `json:"doctor_name"`
	Date             string          `json:"appointment_date"`
	SlotTime         string          `json:"slot_time"`
	ConsultationType string          `json:"consultation_type"`
	Fee              decimal.Decimal `json:"fee_amount"`
	PaymentID        string          `json:"payment_id,omitempty"`
	MeetingLink      string          `json:"meeting_link,omitempty"`
}

// ConsultationSummary is sent to the patient after a consultation is recorded.
type ConsultationSummary struct {
	ConsultationID uuid.UUID  `json:"consultation_id"`
	AppointmentID  uuid.UUID  `json:"appointment_id"`
	PatientName    string     `json:"patient_name"`
	PatientEmail   string     `json:"patient_email"`
	DoctorName     string     `json:"doctor_name"`
	Diagnosis      string     `json:"diagnosis"`
	Prescriptions  []string   `json:"prescriptions,omitempty"`
	FollowUpDate   *time.Time `json:"follow_up_date,omitempty"`
}

// Nop drops every notification.
type Nop struct{}

func (Nop) NotifyBookingConfirmed(context.Context, Booking) error { return nil }

func (Nop) NotifyPaymentConfirmed(context.Context, Booking) error { return nil }

func (Nop) NotifyConsultationSummary(context.Context, ConsultationSummary) error { return nil }
