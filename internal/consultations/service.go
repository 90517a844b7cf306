package consultations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/appointments"
	"github.com/wolfman30/doconsult-api/internal/doctors"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/internal/notify"
	"github.com/wolfman30/doconsult-api/internal/observability/metrics"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

var tracer = otel.Tracer("doconsult.internal.consultations")

// AppointmentReader loads the appointment a consultation belongs to.
type AppointmentReader interface {
	Get(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
}

// Directory resolves names and emails for the summary notification.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error)
	Patient(ctx context.Context, id uuid.UUID) (*doctors.Patient, error)
}

// Events receives the consultation summary. Must not block.
type Events interface {
	ConsultationSummary(s notify.ConsultationSummary)
}

type Service struct {
	store        *Store
	appointments AppointmentReader
	directory    Directory
	events       Events
	lifecycle    *metrics.LifecycleMetrics
	logger       *logging.Logger
}

// NewService creates a consultation service. directory and events may be nil,
// in which case no summary is sent.
func NewService(store *Store, appts AppointmentReader, directory Directory, events Events, lifecycle *metrics.LifecycleMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:        store,
		appointments: appts,
		directory:    directory,
		events:       events,
		lifecycle:    lifecycle,
		logger:       logger.Component("consultations"),
	}
}

// Create records the consultation and completes the appointment atomically.
func (s *Service) Create(ctx context.Context, caller identity.Caller, req CreateRequest) (*Consultation, error) {
	const op = "consultations.create"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("doconsult.appointment_id", req.AppointmentID.String())))
	defer span.End()

	if caller.Role != identity.RoleDoctor {
		return nil, apperr.Forbidden(op, "only doctors can record consultations")
	}
	if req.AppointmentID == uuid.Nil {
		return nil, apperr.Validation(op, "appointment_id is required")
	}
	prescriptions, err := ValidatePrescriptions(req.Prescriptions)
	if err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	c := &Consultation{
		AppointmentID: req.AppointmentID,
		Symptoms:      strings.TrimSpace(req.Symptoms),
		Diagnosis:     strings.TrimSpace(req.Diagnosis),
		Notes:         strings.TrimSpace(req.Notes),
		Vitals:        strings.TrimSpace(req.Vitals),
		FollowUpDate:  req.FollowUpDate,
		Prescriptions: prescriptions,
	}

	prior, err := s.store.Create(ctx, c, func(a *appointments.Appointment, exists bool) error {
		if a.DoctorID != caller.ID {
			return apperr.Forbidden(op, "not your appointment")
		}
		if exists {
			return apperr.Conflict(op, "consultation already recorded for this appointment")
		}
		if !appointments.Allowed(a.Status, appointments.StatusCompleted, caller.Role, appointments.ActionComplete) {
			return apperr.Conflict(op, "cannot complete a "+string(a.Status)+" appointment")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, appointments.ErrStatusChanged) {
			return nil, apperr.Conflict(op, "appointment changed concurrently, retry")
		}
		return nil, apperr.FromStore(op, err, "appointment not found", "consultation already recorded for this appointment")
	}

	s.lifecycle.ObserveTransition(string(appointments.ActionComplete), string(prior.Status), string(appointments.StatusCompleted))
	s.logger.Info("consultation recorded",
		"consultation_id", c.ID,
		"appointment_id", c.AppointmentID,
		"doctor_id", caller.ID,
		"prescriptions", len(c.Prescriptions),
	)
	s.sendSummary(ctx, c, prior)
	return c, nil
}

// Update lets the owning doctor revise a consultation.
func (s *Service) Update(ctx context.Context, caller identity.Caller, id uuid.UUID, req UpdateRequest) (*Consultation, error) {
	const op = "consultations.update"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("doconsult.consultation_id", id.String())))
	defer span.End()

	if caller.Role != identity.RoleDoctor {
		return nil, apperr.Forbidden(op, "only doctors can edit consultations")
	}
	c, a, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != caller.ID {
		return nil, apperr.Forbidden(op, "not your consultation")
	}
	replace := req.Prescriptions != nil
	if replace {
		if c.Prescriptions, err = ValidatePrescriptions(req.Prescriptions); err != nil {
			return nil, apperr.Validation(op, err.Error())
		}
	}
	c.Symptoms = strings.TrimSpace(req.Symptoms)
	c.Diagnosis = strings.TrimSpace(req.Diagnosis)
	c.Notes = strings.TrimSpace(req.Notes)
	c.Vitals = strings.TrimSpace(req.Vitals)
	c.FollowUpDate = req.FollowUpDate

	if err := s.store.Update(ctx, c, replace); err != nil {
		span.RecordError(err)
		return nil, apperr.FromStore(op, err, "consultation not found", "")
	}
	s.logger.Info("consultation updated", "consultation_id", id, "prescriptions_replaced", replace)
	return c, nil
}

// Get returns a consultation to the appointment's patient, its doctor or an admin.
func (s *Service) Get(ctx context.Context, caller identity.Caller, id uuid.UUID) (*Consultation, error) {
	const op = "consultations.get"
	c, a, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, a) {
		return nil, apperr.Forbidden(op, "not your consultation")
	}
	return c, nil
}

// GetByAppointment is Get keyed by appointment.
func (s *Service) GetByAppointment(ctx context.Context, caller identity.Caller, appointmentID uuid.UUID) (*Consultation, error) {
	const op = "consultations.get_by_appointment"
	a, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, apperr.FromStore(op, err, "appointment not found", "")
	}
	if !canView(caller, a) {
		return nil, apperr.Forbidden(op, "not your consultation")
	}
	c, err := s.store.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperr.FromStore(op, err, "no consultation recorded for this appointment", "")
	}
	return c, nil
}

func (s *Service) load(ctx context.Context, op string, id uuid.UUID) (*Consultation, *appointments.Appointment, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, apperr.FromStore(op, err, "consultation not found", "")
	}
	a, err := s.appointments.Get(ctx, c.AppointmentID)
	if err != nil {
		return nil, nil, apperr.FromStore(op, err, "appointment not found", "")
	}
	return c, a, nil
}

func (s *Service) sendSummary(ctx context.Context, c *Consultation, a *appointments.Appointment) {
	if s.events == nil || s.directory == nil {
		return
	}
	summary := notify.ConsultationSummary{
		ConsultationID: c.ID,
		AppointmentID:  c.AppointmentID,
		Diagnosis:      c.Diagnosis,
		Prescriptions:  Names(c.Prescriptions),
	}
	if c.FollowUpDate != nil {
		t := c.FollowUpDate.Time()
		summary.FollowUpDate = &t
	}
	if d, err := s.directory.Get(ctx, a.DoctorID); err == nil {
		summary.DoctorName = d.FullName()
	} else {
		s.logger.Warn("summary doctor lookup failed", "appointment_id", a.ID, "error", err)
	}
	p, err := s.directory.Patient(ctx, a.PatientID)
	if err != nil {
		s.logger.Warn("summary patient lookup failed", "appointment_id", a.ID, "error", err)
		return
	}
	ps := p.Summary()
	summary.PatientName, summary.PatientEmail = ps.Name, ps.Email
	s.events.ConsultationSummary(summary)
}

func canView(caller identity.Caller, a *appointments.Appointment) bool {
	switch caller.Role {
	case identity.RoleAdmin:
		return true
	case identity.RoleDoctor:
		return caller.ID == a.DoctorID
	case identity.RolePatient:
		return caller.ID == a.PatientID
	default:
		return false
	}
}
