package appointments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/clock"
	"github.com/wolfman30/doconsult-api/internal/doctors"
	"github.com/wolfman30/doconsult-api/internal/notify"
)

var appointmentColumnNames = []string{
	"id", "doctor_id", "patient_id", "appointment_date", "slot_time", "consultation_type", "status",
	"reason", "symptoms", "fee_amount", "is_paid", "payment_id", "cancellation_reason", "meeting_link",
	"created_at", "updated_at",
}

// June 10th 2024, a Monday.
var today = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func appointmentRow(rows *pgxmock.Rows, a Appointment) *pgxmock.Rows {
	return rows.AddRow(
		a.ID, a.DoctorID, a.PatientID, a.Date, a.SlotTime, string(a.ConsultationType), string(a.Status),
		a.Reason, a.Symptoms, a.FeeAmount, a.Paid, a.PaymentID, a.CancellationReason, a.MeetingLink,
		a.CreatedAt, a.UpdatedAt,
	)
}

func sampleAppointment(doctorID, patientID uuid.UUID, status Status) Appointment {
	return Appointment{
		ID:               uuid.New(),
		DoctorID:         doctorID,
		PatientID:        patientID,
		Date:             clock.MustDate("2024-06-12"),
		SlotTime:         clock.MustTime("10:00"),
		ConsultationType: TypeOnline,
		Status:           status,
		FeeAmount:        decimal.NewFromInt(500),
		PaymentID:        (*string)(nil),
		CreatedAt:        today,
		UpdatedAt:        today,
	}
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

type stubDirectory struct {
	doctor  *doctors.Doctor
	patient *doctors.Patient
	blocks  []doctors.Availability
}

func (s *stubDirectory) Get(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error) {
	if s.doctor == nil || s.doctor.ID != id {
		return nil, apperr.NotFound("stub.doctor", "doctor not found")
	}
	d := *s.doctor
	return &d, nil
}

func (s *stubDirectory) Patient(ctx context.Context, id uuid.UUID) (*doctors.Patient, error) {
	if s.patient == nil || s.patient.ID != id {
		return nil, apperr.NotFound("stub.patient", "patient not found")
	}
	p := *s.patient
	return &p, nil
}

func (s *stubDirectory) ActiveBlocksFor(ctx context.Context, doctorID uuid.UUID) ([]doctors.Availability, error) {
	return s.blocks, nil
}

func newDirectory() *stubDirectory {
	return &stubDirectory{
		doctor: &doctors.Doctor{
			ID:              uuid.New(),
			FirstName:       "Asha",
			LastName:        "Rao",
			Specialization:  "Cardiology",
			FeeOnline:       decimal.NewFromInt(500),
			FeeClinic:       decimal.NewFromInt(800),
			Verified:        true,
			AvailableOnline: true,
			AvailableClinic: true,
		},
		patient: &doctors.Patient{
			ID:        uuid.New(),
			FirstName: "Ravi",
			LastName:  "Menon",
			Email:     "ravi@example.com",
		},
	}
}

type recordingEvents struct {
	mu       sync.Mutex
	booked   []notify.Booking
	payments []notify.Booking
}

func (r *recordingEvents) BookingConfirmed(b notify.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.booked = append(r.booked, b)
}

func (r *recordingEvents) PaymentConfirmed(b notify.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, b)
}

func newTestService(t *testing.T, dir *stubDirectory, enforce bool) (*Service, pgxmock.PgxPoolIface, *recordingEvents) {
	t.Helper()
	store, mock := newMockStore(t)
	events := &recordingEvents{}
	svc := NewService(store, dir, events, Options{EnforceAvailability: enforce, Clock: clock.Fixed(today)}, nil)
	return svc, mock, events
}

func datePtr(s string) *clock.Date {
	d := clock.MustDate(s)
	return &d
}

func timePtr(s string) *clock.TimeOfDay {
	t := clock.MustTime(s)
	return &t
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = pgxmock.AnyArg()
	}
	return out
}

// decimalArg matches a decimal argument by value.
type decimalArg string

func (d decimalArg) Match(v any) bool {
	got, ok := v.(decimal.Decimal)
	return ok && got.Equal(decimal.RequireFromString(string(d)))
}

// insertArgs matches the row Store.Insert writes for a new booking by dir's
// patient with dir's doctor.
func insertArgs(dir *stubDirectory, date, slot string, ctype ConsultationType, fee string) []any {
	return []any{
		pgxmock.AnyArg(), dir.doctor.ID, dir.patient.ID, clock.MustDate(date), clock.MustTime(slot),
		string(ctype), string(StatusPending), pgxmock.AnyArg(), pgxmock.AnyArg(), decimalArg(fee), false,
		pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
	}
}
