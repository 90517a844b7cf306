// Package analytics serves read-only dashboard counters.
package analytics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/doconsult-api/internal/clock"
)

// AdminDashboard holds platform-wide counters.
type AdminDashboard struct {
	VerifiedDoctors       int `json:"verified_doctors"`
	Patients              int `json:"patients"`
	Appointments          int `json:"appointments"`
	TodayAppointments     int `json:"today_appointments"`
	PendingAppointments   int `json:"pending_appointments"`
	CompletedAppointments int `json:"completed_appointments"`
	CancelledAppointments int `json:"cancelled_appointments"`
}

// DoctorDashboard holds one doctor's counters.
type DoctorDashboard struct {
	TodayConfirmed int             `json:"today_confirmed"`
	Completed      int             `json:"completed"`
	Patients       int             `json:"patients"`
	AverageRating  decimal.Decimal `json:"average_rating"`
	TotalReviews   int             `json:"total_reviews"`
}

// Repository runs the dashboard queries on a database/sql handle.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Admin(ctx context.Context, today clock.Date) (AdminDashboard, error) {
	var d AdminDashboard
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM doctors WHERE is_verified),
			(SELECT COUNT(*) FROM patients),
			COUNT(*),
			COUNT(*) FILTER (WHERE appointment_date = $1),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED')
		FROM appointments`, today.String()).Scan(
		&d.VerifiedDoctors, &d.Patients, &d.Appointments, &d.TodayAppointments,
		&d.PendingAppointments, &d.CompletedAppointments, &d.CancelledAppointments,
	)
	if err != nil {
		return AdminDashboard{}, fmt.Errorf("analytics: admin: %w", err)
	}
	return d, nil
}

// Doctor returns sql.ErrNoRows (wrapped) for an unknown doctor.
func (r *Repository) Doctor(ctx context.Context, doctorID uuid.UUID, today clock.Date) (DoctorDashboard, error) {
	var d DoctorDashboard
	err := r.db.QueryRowContext(ctx, `SELECT average_rating, total_reviews FROM doctors WHERE id = $1`, doctorID.String()).
		Scan(&d.AverageRating, &d.TotalReviews)
	if err != nil {
		return DoctorDashboard{}, fmt.Errorf("analytics: doctor rating: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE appointment_date = $2 AND status = 'CONFIRMED'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(DISTINCT patient_id)
		FROM appointments
		WHERE doctor_id = $1`, doctorID.String(), today.String()).
		Scan(&d.TodayConfirmed, &d.Completed, &d.Patients)
	if err != nil {
		return DoctorDashboard{}, fmt.Errorf("analytics: doctor counts: %w", err)
	}
	return d, nil
}
