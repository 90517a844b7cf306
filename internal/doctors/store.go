package doctors

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx pool for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store persists doctors, patients and availability blocks in postgres.
type Store struct {
	db DB
}

// NewStore creates a doctor store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const doctorColumns = `id, user_id, first_name, last_name, email, specialization, qualification,
	experience_years, consultation_fee_online, consultation_fee_clinic, license_number, bio,
	clinic_name, clinic_address, is_verified, is_available_online, is_available_clinic,
	average_rating, total_reviews, created_at`

const availabilityColumns = `id, doctor_id, day_of_week, start_time, end_time, slot_duration_minutes, is_active`

// GetDoctor loads a doctor with its active availability blocks.
func (s *Store) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := s.db.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	d, err := scanDoctor(row)
	if err != nil {
		return nil, fmt.Errorf("doctors: get doctor: %w", err)
	}
	blocks, err := s.ActiveBlocksFor(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Availabilities = blocks
	return d, nil
}

// ListVerified pages through verified doctors by name.
func (s *Store) ListVerified(ctx context.Context, limit, offset int) ([]Doctor, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.db.Query(ctx, `
		SELECT `+doctorColumns+` FROM doctors
		WHERE is_verified = true
		ORDER BY last_name, first_name, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("doctors: list verified: %w", err)
	}
	defer rows.Close()
	return scanDoctors(rows)
}

// ListAll pages every doctor, newest first. Verified narrows to one state.
func (s *Store) ListAll(ctx context.Context, q DoctorQuery) ([]Doctor, error) {
	limit, offset := pageBounds(q.Limit, q.Offset)
	rows, err := s.db.Query(ctx, `
		SELECT `+doctorColumns+` FROM doctors
		WHERE $1::boolean IS NULL OR is_verified = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, q.Verified, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("doctors: list all: %w", err)
	}
	defer rows.Close()
	return scanDoctors(rows)
}

// TopRated returns verified doctors by descending average rating.
func (s *Store) TopRated(ctx context.Context, limit int) ([]Doctor, error) {
	limit, _ = pageBounds(limit, 0)
	rows, err := s.db.Query(ctx, `
		SELECT `+doctorColumns+` FROM doctors
		WHERE is_verified = true
		ORDER BY average_rating DESC, total_reviews DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("doctors: top rated: %w", err)
	}
	defer rows.Close()
	return scanDoctors(rows)
}

// Search filters verified doctors. Fee bounds apply to the online fee.
func (s *Store) Search(ctx context.Context, f SearchFilter) ([]Doctor, error) {
	limit, offset := pageBounds(f.Limit, f.Offset)
	var spec *string
	if trimmed := strings.TrimSpace(f.Specialization); trimmed != "" {
		spec = &trimmed
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+doctorColumns+` FROM doctors
		WHERE is_verified = true
		  AND ($1::text IS NULL OR specialization ILIKE '%' || $1 || '%')
		  AND ($2::numeric IS NULL OR consultation_fee_online >= $2)
		  AND ($3::numeric IS NULL OR consultation_fee_online <= $3)
		  AND ($4::numeric IS NULL OR average_rating >= $4)
		ORDER BY average_rating DESC, id
		LIMIT $5 OFFSET $6`, spec, f.MinFee, f.MaxFee, f.MinRating, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("doctors: search: %w", err)
	}
	defer rows.Close()
	return scanDoctors(rows)
}

// Specializations lists the distinct specializations of verified doctors.
func (s *Store) Specializations(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT specialization FROM doctors
		WHERE is_verified = true AND specialization <> ''
		ORDER BY specialization`)
	if err != nil {
		return nil, fmt.Errorf("doctors: specializations: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var spec string
		if err := rows.Scan(&spec); err != nil {
			return nil, fmt.Errorf("doctors: scan specialization: %w", err)
		}
		out = append(out, spec)
	}
	return out, rows.Err()
}

// ActiveBlocksFor returns a doctor's active blocks ordered by weekday and start.
func (s *Store) ActiveBlocksFor(ctx context.Context, doctorID uuid.UUID) ([]Availability, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+availabilityColumns+` FROM availabilities
		WHERE doctor_id = $1 AND is_active = true
		ORDER BY array_position(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY','SATURDAY','SUNDAY'], day_of_week), start_time`,
		doctorID)
	if err != nil {
		return nil, fmt.Errorf("doctors: list availability: %w", err)
	}
	defer rows.Close()
	var out []Availability
	for rows.Next() {
		var a Availability
		var day string
		if err := rows.Scan(&a.ID, &a.DoctorID, &day, &a.StartTime, &a.EndTime, &a.SlotDurationMinutes, &a.Active); err != nil {
			return nil, fmt.Errorf("doctors: scan availability: %w", err)
		}
		a.DayOfWeek = DayOfWeek(day)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReplaceAvailability swaps the doctor's whole schedule in one transaction.
// A missing doctor returns pgx.ErrNoRows.
func (s *Store) ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, blocks []Availability) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("doctors: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM doctors WHERE id = $1 FOR UPDATE`, doctorID).Scan(&locked); err != nil {
		return fmt.Errorf("doctors: lock doctor: %w", err)
	}
	if err := replaceBlocks(ctx, tx, doctorID, blocks); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("doctors: commit availability: %w", err)
	}
	return nil
}

// UpdateProfile writes profile fields and, when blocks is non-nil, replaces the
// schedule in the same transaction.
func (s *Store) UpdateProfile(ctx context.Context, doctorID uuid.UUID, u ProfileUpdate, blocks []Availability) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("doctors: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE doctors SET
			first_name = $2, last_name = $3, specialization = $4, qualification = $5,
			experience_years = $6, consultation_fee_online = $7, consultation_fee_clinic = $8,
			license_number = $9, bio = $10, clinic_name = $11, clinic_address = $12,
			is_available_online = COALESCE($13, is_available_online),
			is_available_clinic = COALESCE($14, is_available_clinic)
		WHERE id = $1`,
		doctorID, u.FirstName, u.LastName, u.Specialization, u.Qualification,
		u.ExperienceYears, u.FeeOnline, u.FeeClinic, u.LicenseNumber, u.Bio,
		u.ClinicName, u.ClinicAddress, u.AvailableOnline, u.AvailableClinic,
	)
	if err != nil {
		return fmt.Errorf("doctors: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("doctors: update profile: %w", pgx.ErrNoRows)
	}
	if blocks != nil {
		if err := replaceBlocks(ctx, tx, doctorID, blocks); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("doctors: commit profile: %w", err)
	}
	return nil
}

// Verify marks a doctor as verified.
func (s *Store) Verify(ctx context.Context, doctorID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `UPDATE doctors SET is_verified = true WHERE id = $1`, doctorID)
	if err != nil {
		return fmt.Errorf("doctors: verify: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("doctors: verify: %w", pgx.ErrNoRows)
	}
	return nil
}

func replaceBlocks(ctx context.Context, tx pgx.Tx, doctorID uuid.UUID, blocks []Availability) error {
	if _, err := tx.Exec(ctx, `DELETE FROM availabilities WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("doctors: clear availability: %w", err)
	}
	for i := range blocks {
		b := &blocks[i]
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.DoctorID = doctorID
		_, err := tx.Exec(ctx, `
			INSERT INTO availabilities (`+availabilityColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			b.ID, doctorID, string(b.DayOfWeek), b.StartTime, b.EndTime, b.SlotDurationMinutes, b.Active,
		)
		if err != nil {
			return fmt.Errorf("doctors: insert availability: %w", err)
		}
	}
	return nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Email, &d.Specialization, &d.Qualification,
		&d.ExperienceYears, &d.FeeOnline, &d.FeeClinic, &d.LicenseNumber, &d.Bio,
		&d.ClinicName, &d.ClinicAddress, &d.Verified, &d.AvailableOnline, &d.AvailableClinic,
		&d.AverageRating, &d.TotalReviews, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDoctors(rows pgx.Rows) ([]Doctor, error) {
	var out []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("doctors: scan doctor: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
