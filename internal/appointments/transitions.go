package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/identity"
)

// ConfirmPayment records a payment and confirms the appointment. Paying an
// already confirmed appointment again replaces the payment reference.
func (s *Service) ConfirmPayment(ctx context.Context, caller identity.Caller, id uuid.UUID, paymentID string) (*View, error) {
	const op = "appointments.confirm_payment"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("doconsult.appointment_id", id.String())))
	defer span.End()

	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, apperr.Validation(op, "payment_id is required")
	}
	if !RoleMayAct(caller.Role, ActionConfirmPayment) {
		return nil, apperr.Forbidden(op, "only the patient can pay for an appointment")
	}
	a, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == identity.RolePatient && caller.ID != a.PatientID {
		return nil, apperr.Forbidden(op, "not your appointment")
	}
	if !Allowed(a.Status, StatusConfirmed, caller.Role, ActionConfirmPayment) {
		return nil, apperr.Conflict(op, fmt.Sprintf("cannot pay for a %s appointment", a.Status))
	}
	updated, err := s.store.ConfirmPayment(ctx, id, a.Status, paymentID)
	if err != nil {
		span.RecordError(err)
		return nil, guardError(op, err)
	}
	s.lifecycle.ObserveTransition(string(ActionConfirmPayment), string(a.Status), string(updated.Status))
	s.logger.Info("appointment paid", "appointment_id", id, "payment_id", paymentID)

	v := s.viewOrBare(ctx, updated)
	s.events.PaymentConfirmed(bookingEvent(&v.Appointment, v.Doctor, v.Patient))
	return v, nil
}

// SetStatus is the privileged status change used by doctors and admins.
// Completion is not reachable here; it happens when a consultation is recorded.
func (s *Service) SetStatus(ctx context.Context, caller identity.Caller, id uuid.UUID, to Status, reason string) (*View, error) {
	const op = "appointments.set_status"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("doconsult.appointment_id", id.String()),
		attribute.String("doconsult.status", string(to)),
	))
	defer span.End()

	if !RoleMayAct(caller.Role, ActionSetStatus) {
		return nil, apperr.Forbidden(op, "only doctors and admins can change appointment status")
	}
	a, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == identity.RoleDoctor && caller.ID != a.DoctorID {
		return nil, apperr.Forbidden(op, "not your appointment")
	}
	if to == StatusCompleted {
		return nil, apperr.Conflict(op, "appointments are completed by recording a consultation")
	}
	if !Allowed(a.Status, to, caller.Role, ActionSetStatus) {
		return nil, apperr.Conflict(op, fmt.Sprintf("cannot change a %s appointment to %s", a.Status, to))
	}
	var why *string
	if to == StatusCancelled {
		why = reasonOr(reason, "cancelled by "+strings.ToLower(string(caller.Role)))
	}
	updated, err := s.store.UpdateStatus(ctx, id, a.Status, to, why)
	if err != nil {
		span.RecordError(err)
		return nil, guardError(op, err)
	}
	s.lifecycle.ObserveTransition(string(ActionSetStatus), string(a.Status), string(to))
	s.logger.Info("appointment status changed", "appointment_id", id, "from", a.Status, "to", to, "role", caller.Role)
	return s.viewOrBare(ctx, updated), nil
}

// Cancel lets the booking patient cancel. Cancelling twice succeeds.
func (s *Service) Cancel(ctx context.Context, caller identity.Caller, id uuid.UUID, reason string) (*View, error) {
	const op = "appointments.cancel"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("doconsult.appointment_id", id.String())))
	defer span.End()

	a, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != identity.RolePatient || caller.ID != a.PatientID {
		return nil, apperr.Forbidden(op, "only the booking patient can cancel")
	}
	if a.Status == StatusCancelled {
		return s.viewOrBare(ctx, a), nil
	}
	if !Allowed(a.Status, StatusCancelled, caller.Role, ActionCancel) {
		return nil, apperr.Conflict(op, fmt.Sprintf("cannot cancel a %s appointment", a.Status))
	}
	updated, err := s.store.UpdateStatus(ctx, id, a.Status, StatusCancelled, reasonOr(reason, "cancelled by patient"))
	if err != nil {
		span.RecordError(err)
		return nil, guardError(op, err)
	}
	s.lifecycle.ObserveTransition(string(ActionCancel), string(a.Status), string(StatusCancelled))
	s.logger.Info("appointment cancelled", "appointment_id", id, "from", a.Status)
	return s.viewOrBare(ctx, updated), nil
}

// viewOrBare enriches a after a committed write. A failed lookup must not turn
// a successful write into an error, so the bare appointment is returned instead.
func (s *Service) viewOrBare(ctx context.Context, a *Appointment) *View {
	v, err := s.view(ctx, a)
	if err != nil {
		s.logger.Warn("appointment projection lookup failed", "appointment_id", a.ID, "error", err)
		return &View{Appointment: *a}
	}
	return v
}

func guardError(op string, err error) error {
	if errors.Is(err, ErrStatusChanged) {
		return apperr.Conflict(op, "appointment changed concurrently, retry")
	}
	return apperr.FromStore(op, err, "appointment not found", "")
}

func reasonOr(reason, fallback string) *string {
	r := strings.TrimSpace(reason)
	if r == "" {
		r = fallback
	}
	return &r
}
