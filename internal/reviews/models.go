// Package reviews stores patient reviews and keeps each doctor's rating
// aggregate in step with them.
package reviews

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Review struct {
	ID            uuid.UUID `json:"id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
	PatientName   string    `json:"patient_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateRequest is a patient's review of a completed appointment.
type CreateRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
}

// Rating is a doctor's aggregate: mean to one decimal place and review count.
type Rating struct {
	Average decimal.Decimal `json:"average_rating"`
	Total   int             `json:"total_reviews"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// Aggregate computes the mean of ratings rounded half-up to one decimal.
// No ratings yields 0.0 and 0.
func Aggregate(ratings []int) Rating {
	if len(ratings) == 0 {
		return Rating{Average: decimal.New(0, -1), Total: 0}
	}
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	avg := decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(int64(len(ratings))), 1)
	return Rating{Average: avg, Total: len(ratings)}
}
