package appointments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/clock"
	"github.com/wolfman30/doconsult-api/internal/doctors"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/internal/notify"
	"github.com/wolfman30/doconsult-api/internal/observability/metrics"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

var tracer = otel.Tracer("doconsult.internal.appointments")

// Directory resolves the doctors and patients an appointment refers to. Errors
// are already classified.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error)
	Patient(ctx context.Context, id uuid.UUID) (*doctors.Patient, error)
	ActiveBlocksFor(ctx context.Context, doctorID uuid.UUID) ([]doctors.Availability, error)
}

// Events receives best-effort appointment notifications. Implementations must
// not block.
type Events interface {
	BookingConfirmed(b notify.Booking)
	PaymentConfirmed(b notify.Booking)
}

// Options tunes the appointment service.
type Options struct {
	// EnforceAvailability rejects slots outside the doctor's active schedule.
	EnforceAvailability bool
	Clock               clock.Clock
	BookingMetrics      *metrics.BookingMetrics
	LifecycleMetrics    *metrics.LifecycleMetrics
}

// Service books appointments and drives their lifecycle.
type Service struct {
	store     *Store
	directory Directory
	events    Events
	clock     clock.Clock
	enforce   bool
	booking   *metrics.BookingMetrics
	lifecycle *metrics.LifecycleMetrics
	logger    *logging.Logger
}

// NewService creates an appointment service. events may be nil.
func NewService(store *Store, directory Directory, events Events, opts Options, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if events == nil {
		events = nopEvents{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	return &Service{
		store:     store,
		directory: directory,
		events:    events,
		clock:     opts.Clock,
		enforce:   opts.EnforceAvailability,
		booking:   opts.BookingMetrics,
		lifecycle: opts.LifecycleMetrics,
		logger:    logger.Component("appointments"),
	}
}

// Book reserves a slot for the calling patient. The appointment starts PENDING
// and unpaid with the doctor's current fee frozen on it.
func (s *Service) Book(ctx context.Context, caller identity.Caller, req BookRequest) (view *View, err error) {
	const op = "appointments.book"
	started := time.Now()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("doconsult.doctor_id", req.DoctorID.String()),
		attribute.String("doconsult.patient_id", caller.ID.String()),
	))
	defer span.End()
	defer func() {
		s.booking.ObserveAttempt(bookingOutcome(err), time.Since(started).Seconds())
	}()

	if caller.Role != identity.RolePatient {
		return nil, apperr.Forbidden(op, "only patients can book appointments")
	}
	if req.DoctorID == uuid.Nil {
		return nil, apperr.Validation(op, "doctor_id is required")
	}
	if req.Date == nil || req.Date.IsZero() {
		return nil, apperr.Validation(op, "appointment_date is required")
	}
	if req.SlotTime == nil {
		return nil, apperr.Validation(op, "slot_time is required")
	}
	ctype, err := ParseConsultationType(req.ConsultationType)
	if err != nil {
		return nil, apperr.Validation(op, "consultation_type must be ONLINE or CLINIC")
	}
	date, slot := *req.Date, *req.SlotTime
	if date.Before(clock.Today(s.clock)) {
		return nil, apperr.Validation(op, "appointment_date is in the past")
	}

	patient, err := s.directory.Patient(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.directory.Get(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Verified {
		return nil, apperr.Conflict(op, "doctor is not verified")
	}
	if ctype == TypeOnline && !doctor.AvailableOnline {
		return nil, apperr.Conflict(op, "doctor does not offer online consultations")
	}
	if ctype == TypeClinic && !doctor.AvailableClinic {
		return nil, apperr.Conflict(op, "doctor does not offer clinic consultations")
	}
	if s.enforce {
		blocks, err := s.directory.ActiveBlocksFor(ctx, doctor.ID)
		if err != nil {
			return nil, err
		}
		if !doctors.Covers(blocks, date.Weekday(), slot) {
			return nil, apperr.Conflict(op, "slot is outside the doctor's availability")
		}
	}

	taken, err := s.store.SlotTaken(ctx, doctor.ID, date, slot)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Transient(op, err)
	}
	if taken {
		return nil, apperr.Conflict(op, "slot already booked")
	}

	fee := doctor.FeeClinic
	if ctype == TypeOnline {
		fee = doctor.FeeOnline
	}
	a := &Appointment{
		DoctorID:         doctor.ID,
		PatientID:        patient.ID,
		Date:             date,
		SlotTime:         slot,
		ConsultationType: ctype,
		Status:           StatusPending,
		Reason:           strings.TrimSpace(req.Reason),
		Symptoms:         strings.TrimSpace(req.Symptoms),
		FeeAmount:        fee,
	}
	// the partial unique index decides concurrent bookings of the same slot
	if err := s.store.Insert(ctx, a); err != nil {
		span.RecordError(err)
		return nil, apperr.FromStore(op, err, "", "slot already booked")
	}

	s.events.BookingConfirmed(bookingEvent(a, doctor.Summary(), patient.Summary()))
	s.logger.Info("appointment booked",
		"appointment_id", a.ID,
		"doctor_id", a.DoctorID,
		"patient_id", a.PatientID,
		"date", a.Date.String(),
		"slot", a.SlotTime.String(),
	)
	return &View{Appointment: *a, Doctor: doctor.Summary(), Patient: patient.Summary()}, nil
}

// Get returns one appointment to its patient, its doctor or an admin.
func (s *Service) Get(ctx context.Context, caller identity.Caller, id uuid.UUID) (*View, error) {
	const op = "appointments.get"
	a, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, a) {
		return nil, apperr.Forbidden(op, "not your appointment")
	}
	return s.view(ctx, a)
}

// ListMine lists the caller's appointments: a patient's bookings or a doctor's
// schedule.
func (s *Service) ListMine(ctx context.Context, caller identity.Caller, f ListFilter) ([]View, error) {
	const op = "appointments.list"
	var (
		list []Appointment
		err  error
	)
	switch caller.Role {
	case identity.RolePatient:
		list, err = s.store.ListForPatient(ctx, caller.ID, f)
	case identity.RoleDoctor:
		list, err = s.store.ListForDoctor(ctx, caller.ID, f)
	default:
		return nil, apperr.Forbidden(op, "only patients and doctors have appointments")
	}
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	return s.views(ctx, list)
}

// TodayForDoctor lists the calling doctor's confirmed appointments for today.
func (s *Service) TodayForDoctor(ctx context.Context, caller identity.Caller) ([]View, error) {
	const op = "appointments.today"
	if caller.Role != identity.RoleDoctor {
		return nil, apperr.Forbidden(op, "doctors only")
	}
	list, err := s.store.TodayForDoctor(ctx, caller.ID, clock.Today(s.clock))
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	return s.views(ctx, list)
}

// BookedSlots lists held slot times for a doctor on date.
func (s *Service) BookedSlots(ctx context.Context, doctorID uuid.UUID, date clock.Date) ([]clock.TimeOfDay, error) {
	out, err := s.store.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, apperr.Transient("appointments.booked_slots", err)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, op string, id uuid.UUID) (*Appointment, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(op, err, "appointment not found", "")
	}
	return a, nil
}

func (s *Service) view(ctx context.Context, a *Appointment) (*View, error) {
	doctor, err := s.directory.Get(ctx, a.DoctorID)
	if err != nil {
		return nil, err
	}
	patient, err := s.directory.Patient(ctx, a.PatientID)
	if err != nil {
		return nil, err
	}
	return &View{Appointment: *a, Doctor: doctor.Summary(), Patient: patient.Summary()}, nil
}

func (s *Service) views(ctx context.Context, list []Appointment) ([]View, error) {
	out := make([]View, 0, len(list))
	for i := range list {
		v, err := s.view(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func canView(caller identity.Caller, a *Appointment) bool {
	switch caller.Role {
	case identity.RoleAdmin, identity.RoleSystem:
		return true
	case identity.RolePatient:
		return caller.ID == a.PatientID
	case identity.RoleDoctor:
		return caller.ID == a.DoctorID
	default:
		return false
	}
}

func bookingOutcome(err error) string {
	if err == nil {
		return "booked"
	}
	if k := apperr.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

func bookingEvent(a *Appointment, doctor doctors.Summary, patient doctors.PatientSummary) notify.Booking {
	b := notify.Booking{
		AppointmentID:    a.ID,
		PatientID:        a.PatientID,
		PatientName:      patient.Name,
		PatientEmail:     patient.Email,
		DoctorID:         a.DoctorID,
		DoctorName:       doctor.Name,
		Date:             a.Date.String(),
		SlotTime:         a.SlotTime.String(),
		ConsultationType: string(a.ConsultationType),
		Fee:              a.FeeAmount,
	}
	if a.PaymentID != nil {
		b.PaymentID = *a.PaymentID
	}
	if a.MeetingLink != nil {
		b.MeetingLink = *a.MeetingLink
	}
	return b
}

type nopEvents struct{}

func (nopEvents) BookingConfirmed(notify.Booking) {}
func (nopEvents) PaymentConfirmed(notify.Booking) {}
