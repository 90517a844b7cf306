package doctors

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

var tracer = otel.Tracer("doconsult.internal.doctors")

// Service exposes the doctor directory and availability store.
type Service struct {
	store  *Store
	cache  *Cache
	logger *logging.Logger
}

// NewService creates a doctor service. cache may be nil.
func NewService(store *Store, cache *Cache, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, cache: cache, logger: logger.Component("doctors")}
}

// Get returns a doctor profile, served from cache when possible.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	const op = "doctors.get"
	if cached, err := s.cache.Get(ctx, id); err != nil {
		s.logger.Warn("doctor cache read failed", "doctor_id", id, "error", err)
	} else if cached != nil {
		return cached, nil
	}
	gen, genErr := s.cache.Generation(ctx, id)
	if genErr != nil {
		s.logger.Warn("doctor cache generation read failed", "doctor_id", id, "error", genErr)
	}
	d, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(op, err, "doctor not found", "")
	}
	if genErr == nil {
		if stored, err := s.cache.Set(ctx, d, gen); err != nil {
			s.logger.Warn("doctor cache write failed", "doctor_id", id, "error", err)
		} else if !stored && s.cache != nil {
			s.logger.Debug("doctor changed during read, not caching", "doctor_id", id)
		}
	}
	return d, nil
}

func (s *Service) ListVerified(ctx context.Context, limit, offset int) ([]Doctor, error) {
	out, err := s.store.ListVerified(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Transient("doctors.list", err)
	}
	return out, nil
}

// ListAll pages every doctor for admins, including those awaiting
// verification.
func (s *Service) ListAll(ctx context.Context, caller identity.Caller, q DoctorQuery) ([]Doctor, error) {
	const op = "doctors.list_all"
	if caller.Role != identity.RoleAdmin {
		return nil, apperr.Forbidden(op, "admin only")
	}
	out, err := s.store.ListAll(ctx, q)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	return out, nil
}

func (s *Service) TopRated(ctx context.Context, limit int) ([]Doctor, error) {
	out, err := s.store.TopRated(ctx, limit)
	if err != nil {
		return nil, apperr.Transient("doctors.top_rated", err)
	}
	return out, nil
}

func (s *Service) Search(ctx context.Context, f SearchFilter) ([]Doctor, error) {
	const op = "doctors.search"
	if f.MinFee != nil && f.MaxFee != nil && f.MinFee.GreaterThan(*f.MaxFee) {
		return nil, apperr.Validation(op, "min_fee must not exceed max_fee")
	}
	out, err := s.store.Search(ctx, f)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	return out, nil
}

func (s *Service) Specializations(ctx context.Context) ([]string, error) {
	out, err := s.store.Specializations(ctx)
	if err != nil {
		return nil, apperr.Transient("doctors.specializations", err)
	}
	return out, nil
}

// ActiveBlocksFor returns the doctor's active schedule.
func (s *Service) ActiveBlocksFor(ctx context.Context, doctorID uuid.UUID) ([]Availability, error) {
	if _, err := s.Get(ctx, doctorID); err != nil {
		return nil, err
	}
	blocks, err := s.store.ActiveBlocksFor(ctx, doctorID)
	if err != nil {
		return nil, apperr.Transient("doctors.availability", err)
	}
	return blocks, nil
}

// ReplaceAvailability validates and atomically replaces a doctor's schedule.
// Doctors may edit their own schedule; admins may edit any.
func (s *Service) ReplaceAvailability(ctx context.Context, caller identity.Caller, doctorID uuid.UUID, inputs []AvailabilityInput) ([]Availability, error) {
	const op = "doctors.replace_availability"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("doconsult.doctor_id", doctorID.String())))
	defer span.End()

	if !canEditDoctor(caller, doctorID) {
		return nil, apperr.Forbidden(op, "cannot edit another doctor's availability")
	}
	blocks, err := ValidateBlocks(inputs)
	if err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	s.invalidate(ctx, doctorID)
	if err := s.store.ReplaceAvailability(ctx, doctorID, blocks); err != nil {
		span.RecordError(err)
		return nil, apperr.FromStore(op, err, "doctor not found", "")
	}
	s.invalidate(ctx, doctorID)
	s.logger.Info("availability replaced", "doctor_id", doctorID, "blocks", len(blocks))
	return blocks, nil
}

// UpdateProfile edits the calling doctor's profile.
func (s *Service) UpdateProfile(ctx context.Context, caller identity.Caller, u ProfileUpdate) (*Doctor, error) {
	const op = "doctors.update_profile"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if caller.Role != identity.RoleDoctor {
		return nil, apperr.Forbidden(op, "only doctors can edit a profile")
	}
	if strings.TrimSpace(u.FirstName) == "" || strings.TrimSpace(u.LastName) == "" || strings.TrimSpace(u.Specialization) == "" {
		return nil, apperr.Validation(op, "first_name, last_name and specialization are required")
	}
	if u.ExperienceYears < 0 {
		return nil, apperr.Validation(op, "experience_years cannot be negative")
	}
	if u.FeeOnline.IsNegative() || u.FeeClinic.IsNegative() {
		return nil, apperr.Validation(op, "fees cannot be negative")
	}
	var blocks []Availability
	if u.Availabilities != nil {
		var err error
		if blocks, err = ValidateBlocks(u.Availabilities); err != nil {
			return nil, apperr.Validation(op, err.Error())
		}
	}
	s.invalidate(ctx, caller.ID)
	if err := s.store.UpdateProfile(ctx, caller.ID, u, blocks); err != nil {
		span.RecordError(err)
		return nil, apperr.FromStore(op, err, "doctor profile not found", "")
	}
	s.invalidate(ctx, caller.ID)
	s.logger.Info("doctor profile updated", "doctor_id", caller.ID, "availability_replaced", blocks != nil)
	return s.Get(ctx, caller.ID)
}

// Verify marks a doctor as verified. Admin only.
func (s *Service) Verify(ctx context.Context, caller identity.Caller, doctorID uuid.UUID) (*Doctor, error) {
	const op = "doctors.verify"
	if caller.Role != identity.RoleAdmin {
		return nil, apperr.Forbidden(op, "admin only")
	}
	s.invalidate(ctx, doctorID)
	if err := s.store.Verify(ctx, doctorID); err != nil {
		return nil, apperr.FromStore(op, err, "doctor not found", "")
	}
	s.invalidate(ctx, doctorID)
	s.logger.Info("doctor verified", "doctor_id", doctorID)
	return s.Get(ctx, doctorID)
}

func (s *Service) invalidate(ctx context.Context, doctorID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, doctorID); err != nil {
		s.logger.Warn("doctor cache invalidate failed", "doctor_id", doctorID, "error", err)
	}
}

func canEditDoctor(caller identity.Caller, doctorID uuid.UUID) bool {
	switch caller.Role {
	case identity.RoleAdmin:
		return true
	case identity.RoleDoctor:
		return caller.ID == doctorID
	default:
		return false
	}
}
