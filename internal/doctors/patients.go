package doctors

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/identity"
)

const patientColumns = `id, user_id, first_name, last_name, email, phone, date_of_birth, gender,
	blood_group, address, emergency_contact, allergies, medical_conditions, created_at`

// patientSorts maps accepted sortBy values onto columns.
var patientSorts = map[string]string{
	"":           "created_at",
	"createdAt":  "created_at",
	"created_at": "created_at",
	"firstName":  "first_name",
	"first_name": "first_name",
	"lastName":   "last_name",
	"last_name":  "last_name",
	"email":      "email",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GetPatient loads a patient profile.
func (s *Store) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(s.db.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("doctors: get patient: %w", err)
	}
	return p, nil
}

// UpsertPatient creates the profile or replaces its editable fields. Empty
// email and phone keep the stored values.
func (s *Store) UpsertPatient(ctx context.Context, p *Patient) (*Patient, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO patients (id, user_id, first_name, last_name, email, phone, date_of_birth, gender,
			blood_group, address, emergency_contact, allergies, medical_conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = COALESCE(NULLIF(EXCLUDED.email, ''), patients.email),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), patients.phone),
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			blood_group = EXCLUDED.blood_group,
			address = EXCLUDED.address,
			emergency_contact = EXCLUDED.emergency_contact,
			allergies = EXCLUDED.allergies,
			medical_conditions = EXCLUDED.medical_conditions
		RETURNING `+patientColumns,
		p.ID, p.UserID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, string(p.Gender),
		p.BloodGroup, p.Address, p.EmergencyContact, p.Allergies, p.MedicalConditions,
	)
	saved, err := scanPatient(row)
	if err != nil {
		return nil, fmt.Errorf("doctors: upsert patient: %w", err)
	}
	return saved, nil
}

// ListPatients pages the patient directory.
func (s *Store) ListPatients(ctx context.Context, q PatientQuery) ([]Patient, error) {
	limit, offset := pageBounds(q.Limit, q.Offset)
	col, ok := patientSorts[q.SortBy]
	if !ok {
		return nil, fmt.Errorf("doctors: list patients: unknown sort %q", q.SortBy)
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	sql := `SELECT ` + patientColumns + ` FROM patients`
	var args []any
	if search := strings.TrimSpace(q.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		sql += ` WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1`
	}
	sql += fmt.Sprintf(` ORDER BY %s %s, id LIMIT $%d OFFSET $%d`, col, dir, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("doctors: list patients: %w", err)
	}
	defer rows.Close()
	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("doctors: scan patient: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: list patients: %w", err)
	}
	return out, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var (
		p      Patient
		gender string
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth, &gender,
		&p.BloodGroup, &p.Address, &p.EmergencyContact, &p.Allergies, &p.MedicalConditions, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Gender = Gender(gender)
	return &p, nil
}

// Patient returns a patient profile.
func (s *Service) Patient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("doctors.patient", err, "patient not found", "")
	}
	return p, nil
}

// PatientFor returns a patient profile to the patient themself, their
// doctors or an admin.
func (s *Service) PatientFor(ctx context.Context, caller identity.Caller, id uuid.UUID) (*Patient, error) {
	const op = "doctors.patient_for"
	switch {
	case caller.Is(identity.RoleAdmin, identity.RoleDoctor):
	case caller.Role == identity.RolePatient && caller.ID == id:
	default:
		return nil, apperr.Forbidden(op, "cannot view another patient's profile")
	}
	return s.Patient(ctx, id)
}

// SavePatientProfile creates or updates the caller's own patient profile.
func (s *Service) SavePatientProfile(ctx context.Context, caller identity.Caller, req PatientProfileRequest) (*Patient, error) {
	const op = "doctors.save_patient_profile"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("patient_id", caller.ID.String())))
	defer span.End()

	if caller.Role != identity.RolePatient {
		return nil, apperr.Forbidden(op, "only patients have a patient profile")
	}
	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return nil, apperr.Validation(op, "first_name and last_name are required")
	}
	gender, err := ParseGender(req.Gender)
	if err != nil {
		return nil, apperr.Validation(op, "gender must be MALE, FEMALE or OTHER")
	}
	if req.DateOfBirth != nil && req.DateOfBirth.IsZero() {
		req.DateOfBirth = nil
	}

	p, err := s.store.UpsertPatient(ctx, &Patient{
		ID:                caller.ID,
		UserID:            caller.ID,
		FirstName:         first,
		LastName:          last,
		Email:             strings.TrimSpace(req.Email),
		Phone:             strings.TrimSpace(req.Phone),
		DateOfBirth:       req.DateOfBirth,
		Gender:            gender,
		BloodGroup:        strings.TrimSpace(req.BloodGroup),
		Address:           strings.TrimSpace(req.Address),
		EmergencyContact:  strings.TrimSpace(req.EmergencyContact),
		Allergies:         strings.TrimSpace(req.Allergies),
		MedicalConditions: strings.TrimSpace(req.MedicalConditions),
	})
	if err != nil {
		return nil, apperr.FromStore(op, err, "", "patient profile conflicts with an existing account")
	}
	s.logger.Info("patient profile saved", "patient_id", p.ID)
	return p, nil
}

// ListPatients pages the patient directory for admins.
func (s *Service) ListPatients(ctx context.Context, caller identity.Caller, q PatientQuery) ([]Patient, error) {
	const op = "doctors.list_patients"
	if caller.Role != identity.RoleAdmin {
		return nil, apperr.Forbidden(op, "admin only")
	}
	if _, ok := patientSorts[q.SortBy]; !ok {
		return nil, apperr.Validation(op, "sortBy must be createdAt, firstName, lastName or email")
	}
	out, err := s.store.ListPatients(ctx, q)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	return out, nil
}
