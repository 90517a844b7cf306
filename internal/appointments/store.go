package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/doconsult-api/internal/clock"
)

// Querier is satisfied by the pgx pool and by pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrStatusChanged means a guarded update found the row in a different status
// than the one it was read in.
var ErrStatusChanged = errors.New("appointments: status changed concurrently")

// Store persists appointments.
type Store struct {
	db Querier
}

// NewStore creates an appointment store.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

const columns = `id, doctor_id, patient_id, appointment_date, slot_time, consultation_type, status,
	reason, symptoms, fee_amount, is_paid, payment_id, cancellation_reason, meeting_link,
	created_at, updated_at`

// Insert writes a new appointment. The partial unique index on
// (doctor_id, appointment_date, slot_time) rejects a second live booking with
// a unique violation.
func (s *Store) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.DoctorID, a.PatientID, a.Date, a.SlotTime, string(a.ConsultationType), string(a.Status),
		a.Reason, a.Symptoms, a.FeeAmount, a.Paid, a.PaymentID, a.CancellationReason, a.MeetingLink,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// Get loads one appointment.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(s.db.QueryRow(ctx, `SELECT `+columns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

// SlotTaken reports whether a non-cancelled appointment holds the slot.
func (s *Store) SlotTaken(ctx context.Context, doctorID uuid.UUID, date clock.Date, slot clock.TimeOfDay) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND slot_time = $3 AND status <> 'CANCELLED'
		)`, doctorID, date, slot).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("appointments: slot taken: %w", err)
	}
	return taken, nil
}

// ListForPatient returns a patient's appointments, newest date first.
func (s *Store) ListForPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return s.list(ctx, "patient_id", patientID, f)
}

// ListForDoctor returns a doctor's appointments, newest date first.
func (s *Store) ListForDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return s.list(ctx, "doctor_id", doctorID, f)
}

// owner is a column name chosen by the caller, never user input.
func (s *Store) list(ctx context.Context, owner string, id uuid.UUID, f ListFilter) ([]Appointment, error) {
	limit, offset := f.Limit, f.Offset
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var status *string
	if f.Status != nil {
		st := string(*f.Status)
		status = &st
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+columns+` FROM appointments
		WHERE `+owner+` = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY appointment_date DESC, slot_time DESC
		LIMIT $3 OFFSET $4`, id, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by %s: %w", owner, err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// TodayForDoctor returns the doctor's confirmed appointments dated today.
func (s *Store) TodayForDoctor(ctx context.Context, doctorID uuid.UUID, today clock.Date) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+columns+` FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status = 'CONFIRMED'
		ORDER BY slot_time`, doctorID, today)
	if err != nil {
		return nil, fmt.Errorf("appointments: today for doctor: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// BookedSlots lists slot times on date held by non-cancelled appointments.
func (s *Store) BookedSlots(ctx context.Context, doctorID uuid.UUID, date clock.Date) ([]clock.TimeOfDay, error) {
	rows, err := s.db.Query(ctx, `
		SELECT slot_time FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status <> 'CANCELLED'
		ORDER BY slot_time`, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: booked slots: %w", err)
	}
	defer rows.Close()
	var out []clock.TimeOfDay
	for rows.Next() {
		var t clock.TimeOfDay
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("appointments: scan slot: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateStatus moves an appointment from expected to next. reason, when
// non-nil, replaces the cancellation reason. Returns ErrStatusChanged when the
// row is no longer in expected.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status, reason *string) (*Appointment, error) {
	return UpdateStatusWith(ctx, s.db, id, expected, next, reason)
}

// UpdateStatusWith is UpdateStatus on an arbitrary querier, typically a transaction.
func UpdateStatusWith(ctx context.Context, q Querier, id uuid.UUID, expected, next Status, reason *string) (*Appointment, error) {
	a, err := scanAppointment(q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, cancellation_reason = COALESCE($4, cancellation_reason), updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+columns, id, string(expected), string(next), reason))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return a, nil
}

// ConfirmPayment marks the appointment paid and CONFIRMED if it is still in expected.
func (s *Store) ConfirmPayment(ctx context.Context, id uuid.UUID, expected Status, paymentID string) (*Appointment, error) {
	a, err := scanAppointment(s.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CONFIRMED', is_paid = true, payment_id = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+columns, id, string(expected), paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: confirm payment: %w", err)
	}
	return a, nil
}

// LockForUpdate reads an appointment with a row lock inside tx.
func LockForUpdate(ctx context.Context, tx Querier, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(tx.QueryRow(ctx, `SELECT `+columns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("appointments: lock: %w", err)
	}
	return a, nil
}

// ExpireBefore cancels one chunk of live appointments dated before today and
// returns their ids. SKIP LOCKED lets a concurrent lifecycle write win; the
// outer status guard keeps terminal rows untouched.
func (s *Store) ExpireBefore(ctx context.Context, today clock.Date, chunk int) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED', cancellation_reason = $2, updated_at = now()
		WHERE id IN (
			SELECT id FROM appointments
			WHERE appointment_date < $1 AND status IN ('PENDING', 'CONFIRMED')
			ORDER BY appointment_date
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		) AND status IN ('PENDING', 'CONFIRMED')
		RETURNING id`, today, ExpiryReason, chunk)
	if err != nil {
		return nil, fmt.Errorf("appointments: expire: %w", err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("appointments: scan expired id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var consultationType, status string
	err := row.Scan(
		&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.SlotTime, &consultationType, &status,
		&a.Reason, &a.Symptoms, &a.FeeAmount, &a.Paid, &a.PaymentID, &a.CancellationReason, &a.MeetingLink,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ConsultationType = ConsultationType(consultationType)
	a.Status = Status(status)
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
