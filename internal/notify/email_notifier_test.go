package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []Email
	err  error
}

func (r *recordingSender) Send(ctx context.Context, e Email) error {
	r.sent = append(r.sent, e)
	return r.err
}

func sampleBooking() Booking {
	return Booking{
		AppointmentID:    uuid.New(),
		PatientName:      "Ravi Kumar",
		PatientEmail:     "ravi@example.com",
		DoctorName:       "Dr. Asha Rao",
		Date:             "2024-06-15",
		SlotTime:         "10:30",
		ConsultationType: "ONLINE",
		Fee:              decimal.RequireFromString("500"),
	}
}

func TestEmailNotifierBookingConfirmed(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, nil)

	require.NoError(t, n.NotifyBookingConfirmed(context.Background(), sampleBooking()))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ravi@example.com", msg.To)
	assert.Equal(t, "Appointment Confirmation - DocConsult", msg.Subject)
	assert.Equal(t, EventAppointmentBooked, msg.Event)
	assert.Equal(t, sampleBooking().PatientName, msg.ToName)
	assert.Contains(t, msg.Text, "Doctor: Dr. Asha Rao")
	assert.Contains(t, msg.Text, "Date: 2024-06-15")
	assert.Contains(t, msg.Text, "Fee: ₹500.00")
}

func TestEmailNotifierTagsEvents(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, nil)
	b := sampleBooking()
	s := ConsultationSummary{AppointmentID: b.AppointmentID, PatientEmail: b.PatientEmail, PatientName: b.PatientName}

	require.NoError(t, n.NotifyBookingConfirmed(context.Background(), b))
	require.NoError(t, n.NotifyPaymentConfirmed(context.Background(), b))
	require.NoError(t, n.NotifyConsultationSummary(context.Background(), s))
	require.Len(t, sender.sent, 3)
	for i, event := range []string{EventAppointmentBooked, EventAppointmentPaid, EventConsultationCompleted} {
		assert.Equal(t, event, sender.sent[i].Event)
		assert.Equal(t, b.AppointmentID, sender.sent[i].AppointmentID)
	}
}

func TestEmailNotifierSkipsMissingEmail(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, nil)
	b := sampleBooking()
	b.PatientEmail = ""

	require.NoError(t, n.NotifyBookingConfirmed(context.Background(), b))
	require.NoError(t, n.NotifyPaymentConfirmed(context.Background(), b))
	assert.Empty(t, sender.sent)
}

func TestEmailNotifierWrapsSenderError(t *testing.T) {
	n := NewEmailNotifier(&recordingSender{err: errors.New("quota exceeded")}, nil)
	err := n.NotifyPaymentConfirmed(context.Background(), sampleBooking())
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestConsultationSummaryBody(t *testing.T) {
	follow := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	body := ConsultationSummaryBody(ConsultationSummary{
		PatientName:   "Ravi Kumar",
		DoctorName:    "Dr. Asha Rao",
		Diagnosis:     "Seasonal allergy",
		Prescriptions: []string{"Cetirizine 10mg, once daily, 5 days"},
		FollowUpDate:  &follow,
	})
	assert.Contains(t, body, "Diagnosis: Seasonal allergy")
	assert.Contains(t, body, "1. Cetirizine 10mg")
	assert.Contains(t, body, "Follow-up: 2024-07-01")
	assert.True(t, strings.HasPrefix(body, "Dear Ravi Kumar"))
}
