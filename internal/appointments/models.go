package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/doconsult-api/internal/clock"
	"github.com/wolfman30/doconsult-api/internal/doctors"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
)

// ParseStatus accepts any casing.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	default:
		return "", fmt.Errorf("appointments: unknown status %q", s)
	}
}

// Live reports whether the appointment still holds its slot and can progress.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ConsultationType is how the consultation takes place.
type ConsultationType string

const (
	TypeOnline ConsultationType = "ONLINE"
	TypeClinic ConsultationType = "CLINIC"
)

func ParseConsultationType(s string) (ConsultationType, error) {
	switch t := ConsultationType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeOnline, TypeClinic:
		return t, nil
	default:
		return "", fmt.Errorf("appointments: unknown consultation type %q", s)
	}
}

// Appointment is a booked slot. Rows are never deleted.
type Appointment struct {
	ID                 uuid.UUID        `json:"id"`
	DoctorID           uuid.UUID        `json:"doctor_id"`
	PatientID          uuid.UUID        `json:"patient_id"`
	Date               clock.Date       `json:"appointment_date"`
	SlotTime           clock.TimeOfDay  `json:"slot_time"`
	ConsultationType   ConsultationType `json:"consultation_type"`
	Status             Status           `json:"status"`
	Reason             string           `json:"reason,omitempty"`
	Symptoms           string           `json:"symptoms,omitempty"`
	FeeAmount          decimal.Decimal  `json:"fee_amount"`
	Paid               bool             `json:"is_paid"`
	PaymentID          *string          `json:"payment_id,omitempty"`
	CancellationReason *string          `json:"cancellation_reason,omitempty"`
	MeetingLink        *string          `json:"meeting_link,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// View is the appointment projection returned to clients.
type View struct {
	Appointment
	Doctor  doctors.Summary        `json:"doctor"`
	Patient doctors.PatientSummary `json:"patient"`
}

// BookRequest is a patient's booking request.
type BookRequest struct {
	DoctorID         uuid.UUID        `json:"doctor_id"`
	Date             *clock.Date      `json:"appointment_date"`
	SlotTime         *clock.TimeOfDay `json:"slot_time"`
	ConsultationType string           `json:"consultation_type"`
	Reason           string           `json:"reason"`
	Symptoms         string           `json:"symptoms"`
}

// ListFilter pages through appointments, optionally by status.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// ExpiryReason is recorded on appointments cancelled because their date passed.
const ExpiryReason = "system: auto-cancelled, date passed"
