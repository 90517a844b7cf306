package reviews

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts r and recomputes the doctor's aggregate in one transaction.
// The doctor row lock serialises concurrent review writes for that doctor.
func (s *Store) Create(ctx context.Context, r *Review) (Rating, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now().UTC()
	return s.mutate(ctx, r.DoctorID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO reviews (id, doctor_id, patient_id, appointment_id, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.DoctorID, r.PatientID, r.AppointmentID, r.Rating, r.Comment, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("reviews: insert: %w", err)
		}
		return nil
	})
}

// Delete removes r and recomputes the doctor's aggregate in one transaction.
func (s *Store) Delete(ctx context.Context, r *Review) (Rating, error) {
	return s.mutate(ctx, r.DoctorID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, r.ID)
		if err != nil {
			return fmt.Errorf("reviews: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("reviews: delete: %w", pgx.ErrNoRows)
		}
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, doctorID uuid.UUID, write func(pgx.Tx) error) (Rating, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Rating{}, fmt.Errorf("reviews: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM doctors WHERE id = $1 FOR UPDATE`, doctorID).Scan(&locked); err != nil {
		return Rating{}, fmt.Errorf("reviews: lock doctor: %w", err)
	}
	if err := write(tx); err != nil {
		return Rating{}, err
	}

	rows, err := tx.Query(ctx, `SELECT rating FROM reviews WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return Rating{}, fmt.Errorf("reviews: read ratings: %w", err)
	}
	var ratings []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return Rating{}, fmt.Errorf("reviews: scan rating: %w", err)
		}
		ratings = append(ratings, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Rating{}, fmt.Errorf("reviews: read ratings: %w", err)
	}

	agg := Aggregate(ratings)
	if _, err := tx.Exec(ctx, `UPDATE doctors SET average_rating = $2, total_reviews = $3 WHERE id = $1`,
		doctorID, agg.Average, agg.Total); err != nil {
		return Rating{}, fmt.Errorf("reviews: update aggregate: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Rating{}, fmt.Errorf("reviews: commit: %w", err)
	}
	return agg, nil
}

// Get loads one review.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Review, error) {
	var r Review
	err := s.db.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, appointment_id, rating, comment, created_at
		FROM reviews WHERE id = $1`, id).
		Scan(&r.ID, &r.DoctorID, &r.PatientID, &r.AppointmentID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reviews: get: %w", err)
	}
	return &r, nil
}

// ExistsForAppointment reports whether the appointment was already reviewed.
func (s *Store) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE appointment_id = $1)`, appointmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("reviews: exists: %w", err)
	}
	return exists, nil
}

// ListForDoctor returns a doctor's reviews, newest first.
func (s *Store) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.doctor_id, r.patient_id, r.appointment_id, r.rating, r.comment, r.created_at,
			p.first_name || ' ' || p.last_name
		FROM reviews r
		JOIN patients p ON p.id = r.patient_id
		WHERE r.doctor_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("reviews: list: %w", err)
	}
	defer rows.Close()
	var out []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.DoctorID, &r.PatientID, &r.AppointmentID, &r.Rating, &r.Comment, &r.CreatedAt, &r.PatientName); err != nil {
			return nil, fmt.Errorf("reviews: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
