package reviews

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/appointments"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

var tracer = otel.Tracer("doconsult.internal.reviews")

// AppointmentReader loads the reviewed appointment.
type AppointmentReader interface {
	Get(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
}

// CacheInvalidator drops a cached doctor profile.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, doctorID uuid.UUID) error
}

type Service struct {
	store        *Store
	appointments AppointmentReader
	cache        CacheInvalidator
	logger       *logging.Logger
}

// NewService creates a review service. cache may be nil.
func NewService(store *Store, appts AppointmentReader, cache CacheInvalidator, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, appointments: appts, cache: cache, logger: logger.Component("reviews")}
}

// Create stores the patient's single review of a completed appointment and
// returns it with the doctor's new aggregate.
func (s *Service) Create(ctx context.Context, caller identity.Caller, req CreateRequest) (*Review, Rating, error) {
	const op = "reviews.create"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("doconsult.appointment_id", req.AppointmentID.String())))
	defer span.End()

	if caller.Role != identity.RolePatient {
		return nil, Rating{}, apperr.Forbidden(op, "only patients can leave reviews")
	}
	if req.Rating < MinRating || req.Rating > MaxRating {
		return nil, Rating{}, apperr.Validation(op, "rating must be between 1 and 5")
	}
	a, err := s.appointments.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, Rating{}, apperr.FromStore(op, err, "appointment not found", "")
	}
	if a.PatientID != caller.ID {
		return nil, Rating{}, apperr.Conflict(op, "this appointment does not belong to you")
	}
	if a.Status != appointments.StatusCompleted {
		return nil, Rating{}, apperr.Conflict(op, "you can only review after the consultation is completed")
	}
	exists, err := s.store.ExistsForAppointment(ctx, a.ID)
	if err != nil {
		return nil, Rating{}, apperr.Transient(op, err)
	}
	if exists {
		return nil, Rating{}, apperr.Conflict(op, "you have already reviewed this appointment")
	}

	r := &Review{
		DoctorID:      a.DoctorID,
		PatientID:     caller.ID,
		AppointmentID: a.ID,
		Rating:        req.Rating,
		Comment:       strings.TrimSpace(req.Comment),
	}
	s.invalidate(ctx, r.DoctorID)
	agg, err := s.store.Create(ctx, r)
	if err != nil {
		span.RecordError(err)
		return nil, Rating{}, apperr.FromStore(op, err, "doctor not found", "you have already reviewed this appointment")
	}
	s.invalidate(ctx, r.DoctorID)
	s.logger.Info("review created", "review_id", r.ID, "doctor_id", r.DoctorID, "average", agg.Average.StringFixed(1), "total", agg.Total)
	return r, agg, nil
}

// Delete removes the caller's own review and recomputes the aggregate.
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id uuid.UUID) (Rating, error) {
	const op = "reviews.delete"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("doconsult.review_id", id.String())))
	defer span.End()

	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Rating{}, apperr.FromStore(op, err, "review not found", "")
	}
	if caller.Role != identity.RolePatient || caller.ID != r.PatientID {
		return Rating{}, apperr.Forbidden(op, "you can only delete your own reviews")
	}
	s.invalidate(ctx, r.DoctorID)
	agg, err := s.store.Delete(ctx, r)
	if err != nil {
		span.RecordError(err)
		return Rating{}, apperr.FromStore(op, err, "review not found", "")
	}
	s.invalidate(ctx, r.DoctorID)
	s.logger.Info("review deleted", "review_id", id, "doctor_id", r.DoctorID, "average", agg.Average.StringFixed(1), "total", agg.Total)
	return agg, nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Review, error) {
	out, err := s.store.ListForDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, apperr.Transient("reviews.list", err)
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, doctorID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, doctorID); err != nil {
		s.logger.Warn("doctor cache invalidate failed", "doctor_id", doctorID, "error", err)
	}
}
