package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// EmailNotifier renders plain-text emails and hands them to a Sender.
type EmailNotifier struct {
	sender Sender
	logger *logging.Logger
}

// NewEmailNotifier creates an email notifier.
func NewEmailNotifier(sender Sender, logger *logging.Logger) *EmailNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailNotifier{sender: sender, logger: logger}
}

func (n *EmailNotifier) NotifyBookingConfirmed(ctx context.Context, b Booking) error {
	if b.PatientEmail == "" {
		n.logger.Debug("notify: patient has no email, skipping booking confirmation", "appointment_id", b.AppointmentID)
		return nil
	}
	return n.send(ctx, Email{
		To:            b.PatientEmail,
		ToName:        b.PatientName,
		Subject:       "Appointment Confirmation - DocConsult",
		Text:          BookingConfirmationBody(b),
		Event:         EventAppointmentBooked,
		AppointmentID: b.AppointmentID,
	})
}

func (n *EmailNotifier) NotifyPaymentConfirmed(ctx context.Context, b Booking) error {
	if b.PatientEmail == "" {
		return nil
	}
	return n.send(ctx, Email{
		To:            b.PatientEmail,
		ToName:        b.PatientName,
		Subject:       "Payment Confirmed - DocConsult",
		Text:          PaymentConfirmationBody(b),
		Event:         EventAppointmentPaid,
		AppointmentID: b.AppointmentID,
	})
}

func (n *EmailNotifier) NotifyConsultationSummary(ctx context.Context, s ConsultationSummary) error {
	if s.PatientEmail == "" {
		return nil
	}
	return n.send(ctx, Email{
		To:            s.PatientEmail,
		ToName:        s.PatientName,
		Subject:       "Consultation Summary - DocConsult",
		Text:          ConsultationSummaryBody(s),
		Event:         EventConsultationCompleted,
		AppointmentID: s.AppointmentID,
	})
}

func (n *EmailNotifier) send(ctx context.Context, e Email) error {
	if n.sender == nil {
		return fmt.Errorf("notify: email sender not configured")
	}
	return n.sender.Send(ctx, e)
}

// BookingConfirmationBody renders the booking email.
func BookingConfirmationBody(b Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dear %s,\n\n", b.PatientName)
	sb.WriteString("Your appointment has been booked!\n\n")
	fmt.Fprintf(&sb, "Doctor: %s\n", b.DoctorName)
	fmt.Fprintf(&sb, "Date: %s\n", b.Date)
	fmt.Fprintf(&sb, "Time: %s\n", b.SlotTime)
	fmt.Fprintf(&sb, "Type: %s\n", b.ConsultationType)
	fmt.Fprintf(&sb, "Fee: ₹%s\n\n", b.Fee.StringFixed(2))
	sb.WriteString("Thank you!\nDocConsult Team")
	return sb.String()
}

// PaymentConfirmationBody renders the payment receipt email.
func PaymentConfirmationBody(b Booking) string {
	body := fmt.Sprintf("Dear %s,\n\nPayment of ₹%s for your appointment with %s on %s at %s is confirmed.",
		b.PatientName, b.Fee.StringFixed(2), b.DoctorName, b.Date, b.SlotTime)
	if b.PaymentID != "" {
		body += "\nPayment reference: " + b.PaymentID
	}
	if b.MeetingLink != "" {
		body += "\nJoin online: " + b.MeetingLink
	}
	return body + "\n\nDocConsult Team"
}

// ConsultationSummaryBody renders the post-consultation summary.
func ConsultationSummaryBody(s ConsultationSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dear %s,\n\n", s.PatientName)
	fmt.Fprintf(&sb, "Summary of your consultation with %s.\n\n", s.DoctorName)
	fmt.Fprintf(&sb, "Diagnosis: %s\n", s.Diagnosis)
	if len(s.Prescriptions) > 0 {
		sb.WriteString("\nPrescriptions:\n")
		for i, p := range s.Prescriptions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
		}
	}
	if s.FollowUpDate != nil {
		fmt.Fprintf(&sb, "\nFollow-up: %s\n", s.FollowUpDate.Format("2006-01-02"))
	}
	sb.WriteString("\nDocConsult Team")
	return sb.String()
}

var _ Notifier = (*EmailNotifier)(nil)
