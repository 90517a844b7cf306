// Package consultations records the outcome of an appointment. Recording a
// consultation is the only way an appointment becomes COMPLETED.
package consultations

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/doconsult-api/internal/clock"
)

type Consultation struct {
	ID            uuid.UUID      `json:"id"`
	AppointmentID uuid.UUID      `json:"appointment_id"`
	Symptoms      string         `json:"symptoms,omitempty"`
	Diagnosis     string         `json:"diagnosis,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Vitals        string         `json:"vitals,omitempty"`
	FollowUpDate  *clock.Date    `json:"follow_up_date,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Prescriptions []Prescription `json:"prescriptions"`
}

// Prescription is one medication line. Position keeps submission order.
type Prescription struct {
	ID             uuid.UUID `json:"id"`
	MedicationName string    `json:"medication_name"`
	Dosage         string    `json:"dosage"`
	Frequency      string    `json:"frequency"`
	Duration       string    `json:"duration"`
	Instructions   string    `json:"instructions,omitempty"`
	Position       int       `json:"-"`
}

// PrescriptionInput is a prescription line as submitted.
type PrescriptionInput struct {
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Duration       string `json:"duration"`
	Instructions   string `json:"instructions"`
}

// CreateRequest records a consultation for an appointment.
type CreateRequest struct {
	AppointmentID uuid.UUID           `json:"appointment_id"`
	Symptoms      string              `json:"symptoms"`
	Diagnosis     string              `json:"diagnosis"`
	Notes         string              `json:"notes"`
	Vitals        string              `json:"vitals"`
	FollowUpDate  *clock.Date         `json:"follow_up_date"`
	Prescriptions []PrescriptionInput `json:"prescriptions"`
}

// UpdateRequest replaces a consultation's fields. A nil Prescriptions keeps
// the existing list; an empty one clears it.
type UpdateRequest struct {
	Symptoms      string              `json:"symptoms"`
	Diagnosis     string              `json:"diagnosis"`
	Notes         string              `json:"notes"`
	Vitals        string              `json:"vitals"`
	FollowUpDate  *clock.Date         `json:"follow_up_date"`
	Prescriptions []PrescriptionInput `json:"prescriptions"`
}

// ValidatePrescriptions checks every line and assigns positions.
func ValidatePrescriptions(inputs []PrescriptionInput) ([]Prescription, error) {
	out := make([]Prescription, 0, len(inputs))
	for i, in := range inputs {
		p := Prescription{
			ID:             uuid.New(),
			MedicationName: strings.TrimSpace(in.MedicationName),
			Dosage:         strings.TrimSpace(in.Dosage),
			Frequency:      strings.TrimSpace(in.Frequency),
			Duration:       strings.TrimSpace(in.Duration),
			Instructions:   strings.TrimSpace(in.Instructions),
			Position:       i,
		}
		var missing []string
		if p.MedicationName == "" {
			missing = append(missing, "medication_name")
		}
		if p.Dosage == "" {
			missing = append(missing, "dosage")
		}
		if p.Frequency == "" {
			missing = append(missing, "frequency")
		}
		if p.Duration == "" {
			missing = append(missing, "duration")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("prescription %d: %s required", i+1, strings.Join(missing, ", "))
		}
		out = append(out, p)
	}
	return out, nil
}

// Names renders prescriptions as "name dosage, frequency for duration".
func Names(list []Prescription) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, fmt.Sprintf("%s %s, %s for %s", p.MedicationName, p.Dosage, p.Frequency, p.Duration))
	}
	return out
}
