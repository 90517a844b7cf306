package doctors

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/doconsult-api/internal/clock"
)

// DayOfWeek is the weekday an availability block repeats on.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdays = map[DayOfWeek]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// ParseDayOfWeek accepts any casing of the weekday name.
func ParseDayOfWeek(s string) (DayOfWeek, error) {
	d := DayOfWeek(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := weekdays[d]; !ok {
		return "", fmt.Errorf("doctors: unknown day of week %q", s)
	}
	return d, nil
}

// Weekday maps d onto time.Weekday.
func (d DayOfWeek) Weekday() time.Weekday { return weekdays[d] }

// DayOf returns the DayOfWeek for a weekday.
func DayOf(w time.Weekday) DayOfWeek {
	for d, wd := range weekdays {
		if wd == w {
			return d
		}
	}
	return ""
}

// DefaultSlotMinutes applies when a block omits its slot duration.
const DefaultSlotMinutes = 30

// Availability is a recurring weekly block a doctor accepts bookings in.
type Availability struct {
	ID                  uuid.UUID       `json:"id"`
	DoctorID            uuid.UUID       `json:"doctor_id"`
	DayOfWeek           DayOfWeek       `json:"day_of_week"`
	StartTime           clock.TimeOfDay `json:"start_time"`
	EndTime             clock.TimeOfDay `json:"end_time"`
	SlotDurationMinutes int             `json:"slot_duration_minutes"`
	Active              bool            `json:"active"`
}

// Doctor is a doctor profile with its rating aggregate.
type Doctor struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Email           string          `json:"email,omitempty"`
	Specialization  string          `json:"specialization"`
	Qualification   string          `json:"qualification,omitempty"`
	ExperienceYears int             `json:"experience_years"`
	FeeOnline       decimal.Decimal `json:"consultation_fee_online"`
	FeeClinic       decimal.Decimal `json:"consultation_fee_clinic"`
	LicenseNumber   string          `json:"license_number,omitempty"`
	Bio             string          `json:"bio,omitempty"`
	ClinicName      string          `json:"clinic_name,omitempty"`
	ClinicAddress   string          `json:"clinic_address,omitempty"`
	Verified        bool            `json:"verified"`
	AvailableOnline bool            `json:"available_online"`
	AvailableClinic bool            `json:"available_clinic"`
	AverageRating   decimal.Decimal `json:"average_rating"`
	TotalReviews    int             `json:"total_reviews"`
	CreatedAt       time.Time       `json:"created_at"`
	Availabilities  []Availability  `json:"availabilities,omitempty"`
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace("Dr. " + d.FirstName + " " + d.LastName)
}

// Summary is the doctor projection embedded in appointment responses.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	ClinicName     string    `json:"clinic_name,omitempty"`
	ClinicAddress  string    `json:"clinic_address,omitempty"`
	Email          string    `json:"-"`
}

func (d *Doctor) Summary() Summary {
	return Summary{
		ID:             d.ID,
		Name:           d.FullName(),
		Specialization: d.Specialization,
		ClinicName:     d.ClinicName,
		ClinicAddress:  d.ClinicAddress,
		Email:          d.Email,
	}
}

// Patient is the patient profile referenced by appointments.
type Patient struct {
	ID                uuid.UUID   `json:"id"`
	UserID            uuid.UUID   `json:"user_id"`
	FirstName         string      `json:"first_name"`
	LastName          string      `json:"last_name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone,omitempty"`
	DateOfBirth       *clock.Date `json:"date_of_birth,omitempty"`
	Gender            Gender      `json:"gender,omitempty"`
	BloodGroup        string      `json:"blood_group,omitempty"`
	Address           string      `json:"address,omitempty"`
	EmergencyContact  string      `json:"emergency_contact,omitempty"`
	Allergies         string      `json:"allergies,omitempty"`
	MedicalConditions string      `json:"medical_conditions,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Gender is optional on a patient profile.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// ParseGender accepts any casing; empty means not given.
func ParseGender(s string) (Gender, error) {
	g := Gender(strings.ToUpper(strings.TrimSpace(s)))
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return g, nil
	}
	return "", fmt.Errorf("doctors: unknown gender %q", s)
}

// PatientSummary is the patient projection embedded in appointment responses.
type PatientSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`
}

func (p *Patient) Summary() PatientSummary {
	return PatientSummary{
		ID:    p.ID,
		Name:  strings.TrimSpace(p.FirstName + " " + p.LastName),
		Email: p.Email,
		Phone: p.Phone,
	}
}

// ProfileUpdate carries the editable doctor fields. A nil Availabilities leaves
// the schedule untouched; a non-nil slice replaces it.
type ProfileUpdate struct {
	FirstName       string              `json:"first_name"`
	LastName        string              `json:"last_name"`
	Specialization  string              `json:"specialization"`
	Qualification   string              `json:"qualification"`
	ExperienceYears int                 `json:"experience_years"`
	FeeOnline       decimal.Decimal     `json:"consultation_fee_online"`
	FeeClinic       decimal.Decimal     `json:"consultation_fee_clinic"`
	LicenseNumber   string              `json:"license_number"`
	Bio             string              `json:"bio"`
	ClinicName      string              `json:"clinic_name"`
	ClinicAddress   string              `json:"clinic_address"`
	AvailableOnline *bool               `json:"available_online"`
	AvailableClinic *bool               `json:"available_clinic"`
	Availabilities  []AvailabilityInput `json:"availabilities"`
}

// AvailabilityInput is an unvalidated availability block as submitted.
type AvailabilityInput struct {
	DayOfWeek           string `json:"day_of_week"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
}

// PatientProfileRequest is the body of PUT /patients/profile. Email and
// phone keep their stored values when left empty.
type PatientProfileRequest struct {
	FirstName         string      `json:"first_name"`
	LastName          string      `json:"last_name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone"`
	DateOfBirth       *clock.Date `json:"date_of_birth"`
	Gender            string      `json:"gender"`
	BloodGroup        string      `json:"blood_group"`
	Address           string      `json:"address"`
	EmergencyContact  string      `json:"emergency_contact"`
	Allergies         string      `json:"allergies"`
	MedicalConditions string      `json:"medical_conditions"`
}

// PatientQuery pages the admin patient directory. Search matches first name,
// last name or email, case-insensitively.
type PatientQuery struct {
	Search string
	SortBy string
	Desc   bool
	Limit  int
	Offset int
}

// DoctorQuery pages every doctor for admins, verified or not.
type DoctorQuery struct {
	Verified *bool
	Limit    int
	Offset   int
}

// SearchFilter narrows the verified doctor directory. Nil bounds are ignored.
type SearchFilter struct {
	Specialization string
	MinFee         *decimal.Decimal
	MaxFee         *decimal.Decimal
	MinRating      *decimal.Decimal
	Limit          int
	Offset         int
}
