package consultations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/doconsult-api/internal/appointments"
)

// DB is the pgx surface the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Guard inspects the locked appointment before a consultation is written.
// exists reports whether the appointment already has a consultation.
type Guard func(a *appointments.Appointment, exists bool) error

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

const consultationColumns = `id, appointment_id, symptoms, diagnosis, notes, vitals, follow_up_date, created_at`

// Create locks the appointment, runs guard, inserts the consultation with its
// prescriptions and marks the appointment COMPLETED, all in one transaction.
// It returns the appointment as it was before completion.
func (s *Store) Create(ctx context.Context, c *Consultation, guard Guard) (*appointments.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("consultations: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := appointments.LockForUpdate(ctx, tx, c.AppointmentID)
	if err != nil {
		return nil, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM consultations WHERE appointment_id = $1)`, a.ID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("consultations: check existing: %w", err)
	}
	if err := guard(a, exists); err != nil {
		return nil, err
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO consultations (`+consultationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.AppointmentID, c.Symptoms, c.Diagnosis, c.Notes, c.Vitals, c.FollowUpDate, c.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("consultations: insert: %w", err)
	}
	if err := insertPrescriptions(ctx, tx, c.ID, c.Prescriptions); err != nil {
		return nil, err
	}
	if _, err := appointments.UpdateStatusWith(ctx, tx, a.ID, a.Status, appointments.StatusCompleted, nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("consultations: commit: %w", err)
	}
	return a, nil
}

// Update replaces the consultation fields and, when replace is set, its
// prescription list.
func (s *Store) Update(ctx context.Context, c *Consultation, replace bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("consultations: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE consultations
		SET symptoms = $2, diagnosis = $3, notes = $4, vitals = $5, follow_up_date = $6
		WHERE id = $1`,
		c.ID, c.Symptoms, c.Diagnosis, c.Notes, c.Vitals, c.FollowUpDate,
	)
	if err != nil {
		return fmt.Errorf("consultations: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("consultations: update: %w", pgx.ErrNoRows)
	}
	if replace {
		if _, err := tx.Exec(ctx, `DELETE FROM prescriptions WHERE consultation_id = $1`, c.ID); err != nil {
			return fmt.Errorf("consultations: clear prescriptions: %w", err)
		}
		if err := insertPrescriptions(ctx, tx, c.ID, c.Prescriptions); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("consultations: commit: %w", err)
	}
	return nil
}

// Get loads a consultation with its prescriptions in order.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.getBy(ctx, "id", id)
}

// GetByAppointment loads the consultation recorded for an appointment.
func (s *Store) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	return s.getBy(ctx, "appointment_id", appointmentID)
}

func (s *Store) getBy(ctx context.Context, column string, id uuid.UUID) (*Consultation, error) {
	var c Consultation
	err := s.db.QueryRow(ctx, `SELECT `+consultationColumns+` FROM consultations WHERE `+column+` = $1`, id).Scan(
		&c.ID, &c.AppointmentID, &c.Symptoms, &c.Diagnosis, &c.Notes, &c.Vitals, &c.FollowUpDate, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("consultations: get by %s: %w", column, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, medication_name, dosage, frequency, duration, instructions, position
		FROM prescriptions WHERE consultation_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("consultations: prescriptions: %w", err)
	}
	defer rows.Close()
	c.Prescriptions = []Prescription{}
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ID, &p.MedicationName, &p.Dosage, &p.Frequency, &p.Duration, &p.Instructions, &p.Position); err != nil {
			return nil, fmt.Errorf("consultations: scan prescription: %w", err)
		}
		c.Prescriptions = append(c.Prescriptions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultations: prescriptions: %w", err)
	}
	return &c, nil
}

func insertPrescriptions(ctx context.Context, tx pgx.Tx, consultationID uuid.UUID, list []Prescription) error {
	for _, p := range list {
		if _, err := tx.Exec(ctx, `
			INSERT INTO prescriptions (id, consultation_id, medication_name, dosage, frequency, duration, instructions, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, consultationID, p.MedicationName, p.Dosage, p.Frequency, p.Duration, p.Instructions, p.Position,
		); err != nil {
			return fmt.Errorf("consultations: insert prescription %d: %w", p.Position, err)
		}
	}
	return nil
}
