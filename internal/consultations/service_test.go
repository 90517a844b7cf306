package consultations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/appointments"
	"github.com/wolfman30/doconsult-api/internal/clock"
	"github.com/wolfman30/doconsult-api/internal/doctors"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/internal/notify"
)

var appointmentColumnNames = []string{
	"id", "doctor_id", "patient_id", "appointment_date", "slot_time", "consultation_type", "status",
	"reason", "symptoms", "fee_amount", "is_paid", "payment_id", "cancellation_reason", "meeting_link",
	"created_at", "updated_at",
}

var consultationColumnNames = []string{"id", "appointment_id", "symptoms", "diagnosis", "notes", "vitals", "follow_up_date", "created_at"}

var prescriptionColumnNames = []string{"id", "medication_name", "dosage", "frequency", "duration", "instructions", "position"}

func appointmentRows(a appointments.Appointment) *pgxmock.Rows {
	return pgxmock.NewRows(appointmentColumnNames).AddRow(
		a.ID, a.DoctorID, a.PatientID, a.Date, a.SlotTime, string(a.ConsultationType), string(a.Status),
		a.Reason, a.Symptoms, a.FeeAmount, a.Paid, a.PaymentID, a.CancellationReason, a.MeetingLink,
		a.CreatedAt, a.UpdatedAt,
	)
}

func sampleAppointment(doctorID, patientID uuid.UUID, status appointments.Status) appointments.Appointment {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	return appointments.Appointment{
		ID:               uuid.New(),
		DoctorID:         doctorID,
		PatientID:        patientID,
		Date:             clock.MustDate("2024-06-10"),
		SlotTime:         clock.MustTime("10:00"),
		ConsultationType: appointments.TypeClinic,
		Status:           status,
		FeeAmount:        decimal.NewFromInt(800),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

type stubDirectory struct {
	doctor  doctors.Doctor
	patient doctors.Patient
}

func (s stubDirectory) Get(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error) {
	d := s.doctor
	return &d, nil
}

func (s stubDirectory) Patient(ctx context.Context, id uuid.UUID) (*doctors.Patient, error) {
	p := s.patient
	return &p, nil
}

type recordingEvents struct {
	summaries []notify.ConsultationSummary
}

func (r *recordingEvents) ConsultationSummary(s notify.ConsultationSummary) {
	r.summaries = append(r.summaries, s)
}

type fixture struct {
	svc     *Service
	mock    pgxmock.PgxPoolIface
	events  *recordingEvents
	doctor  identity.Caller
	patient identity.Caller
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	doctorID, patientID := uuid.New(), uuid.New()
	dir := stubDirectory{
		doctor:  doctors.Doctor{ID: doctorID, FirstName: "Asha", LastName: "Rao"},
		patient: doctors.Patient{ID: patientID, FirstName: "Ravi", LastName: "Menon", Email: "ravi@example.com"},
	}
	events := &recordingEvents{}
	svc := NewService(NewStore(mock), appointments.NewStore(mock), dir, events, nil, nil)
	return fixture{
		svc:     svc,
		mock:    mock,
		events:  events,
		doctor:  identity.Caller{ID: doctorID, Role: identity.RoleDoctor},
		patient: identity.Caller{ID: patientID, Role: identity.RolePatient},
	}
}

func createRequest(appointmentID uuid.UUID) CreateRequest {
	follow := clock.MustDate("2024-06-24")
	return CreateRequest{
		AppointmentID: appointmentID,
		Diagnosis:     "Seasonal allergy",
		FollowUpDate:  &follow,
		Prescriptions: []PrescriptionInput{
			{MedicationName: "Cetirizine", Dosage: "10mg", Frequency: "once daily", Duration: "7 days"},
			{MedicationName: "Saline spray", Dosage: "2 puffs", Frequency: "twice daily", Duration: "14 days"},
		},
	}
}

func TestCreateCompletesAppointment(t *testing.T) {
	f := newFixture(t)
	a := sampleAppointment(f.doctor.ID, f.patient.ID, appointments.StatusConfirmed)
	completed := a
	completed.Status = appointments.StatusCompleted

	f.mock.ExpectBegin()
	f.mock.ExpectQuery("FOR UPDATE").WithArgs(a.ID).WillReturnRows(appointmentRows(a))
	f.mock.ExpectQuery("SELECT EXISTS").WithArgs(a.ID).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	f.mock.ExpectExec("INSERT INTO consultations").
		WithArgs(pgxmock.AnyArg(), a.ID, pgxmock.AnyArg(), "Seasonal allergy", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectExec("INSERT INTO prescriptions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "Cetirizine", "10mg", "once daily", "7 days", "", 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectExec("INSERT INTO prescriptions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "Saline spray", "2 puffs", "twice daily", "14 days", "", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectQuery("UPDATE appointments").WithArgs(a.ID, "CONFIRMED", "COMPLETED", pgxmock.AnyArg()).
		WillReturnRows(appointmentRows(completed))
	f.mock.ExpectCommit()

	c, err := f.svc.Create(context.Background(), f.doctor, createRequest(a.ID))
	require.NoError(t, err)
	assert.Equal(t, a.ID, c.AppointmentID)
	require.Len(t, c.Prescriptions, 2)
	assert.Equal(t, 1, c.Prescriptions[1].Position)

	require.Len(t, f.events.summaries, 1)
	s := f.events.summaries[0]
	assert.Equal(t, "Dr. Asha Rao", s.DoctorName)
	assert.Equal(t, "ravi@example.com", s.PatientEmail)
	assert.Equal(t, []string{"Cetirizine 10mg, once daily for 7 days", "Saline spray 2 puffs, twice daily for 14 days"}, s.Prescriptions)
	require.NotNil(t, s.FollowUpDate)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateGuardFailuresRollBack(t *testing.T) {
	cases := []struct {
		name   string
		status appointments.Status
		owner  bool
		exists bool
		kind   apperr.Kind
	}{
		{"other doctor", appointments.StatusConfirmed, false, false, apperr.KindForbidden},
		{"already recorded", appointments.StatusConfirmed, true, true, apperr.KindConflict},
		{"cancelled", appointments.StatusCancelled, true, false, apperr.KindConflict},
		{"completed", appointments.StatusCompleted, true, false, apperr.KindConflict},
		{"no show", appointments.StatusNoShow, true, false, apperr.KindConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			doctorID := uuid.New()
			if tc.owner {
				doctorID = f.doctor.ID
			}
			a := sampleAppointment(doctorID, f.patient.ID, tc.status)

			f.mock.ExpectBegin()
			f.mock.ExpectQuery("FOR UPDATE").WithArgs(a.ID).WillReturnRows(appointmentRows(a))
			f.mock.ExpectQuery("SELECT EXISTS").WithArgs(a.ID).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tc.exists))
			f.mock.ExpectRollback()

			_, err := f.svc.Create(context.Background(), f.doctor, createRequest(a.ID))
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Empty(t, f.events.summaries)
			require.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestCreateMissingAppointmentIsNotFound(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("FOR UPDATE").WithArgs(id).WillReturnRows(pgxmock.NewRows(appointmentColumnNames))
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), f.doctor, createRequest(id))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.patient, createRequest(uuid.New()))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	req := createRequest(uuid.New())
	req.Prescriptions[1].Dosage = " "
	_, err = f.svc.Create(context.Background(), f.doctor, req)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "prescription 2")
}

func TestUpdateReplacesPrescriptions(t *testing.T) {
	f := newFixture(t)
	a := sampleAppointment(f.doctor.ID, f.patient.ID, appointments.StatusCompleted)
	cid := uuid.New()

	f.mock.ExpectQuery("FROM consultations WHERE id").WithArgs(cid).
		WillReturnRows(pgxmock.NewRows(consultationColumnNames).
			AddRow(cid, a.ID, "", "Old", "", "", (*clock.Date)(nil), a.CreatedAt))
	f.mock.ExpectQuery("FROM prescriptions").WithArgs(cid).
		WillReturnRows(pgxmock.NewRows(prescriptionColumnNames).
			AddRow(uuid.New(), "Old med", "1", "daily", "1 day", "", 0))
	f.mock.ExpectQuery("FROM appointments WHERE id").WithArgs(a.ID).WillReturnRows(appointmentRows(a))
	f.mock.ExpectBegin()
	f.mock.ExpectExec("UPDATE consultations").
		WithArgs(cid, pgxmock.AnyArg(), "New", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectExec("DELETE FROM prescriptions").WithArgs(cid).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	f.mock.ExpectExec("INSERT INTO prescriptions").
		WithArgs(pgxmock.AnyArg(), cid, "New med", "5mg", "daily", "3 days", "", 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectCommit()

	c, err := f.svc.Update(context.Background(), f.doctor, cid, UpdateRequest{
		Diagnosis:     "New",
		Prescriptions: []PrescriptionInput{{MedicationName: "New med", Dosage: "5mg", Frequency: "daily", Duration: "3 days"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "New", c.Diagnosis)
	require.Len(t, c.Prescriptions, 1)
	assert.Equal(t, "New med", c.Prescriptions[0].MedicationName)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateByOtherDoctorIsForbidden(t *testing.T) {
	f := newFixture(t)
	a := sampleAppointment(uuid.New(), f.patient.ID, appointments.StatusCompleted)
	cid := uuid.New()
	f.mock.ExpectQuery("FROM consultations WHERE id").WithArgs(cid).
		WillReturnRows(pgxmock.NewRows(consultationColumnNames).
			AddRow(cid, a.ID, "", "", "", "", (*clock.Date)(nil), a.CreatedAt))
	f.mock.ExpectQuery("FROM prescriptions").WithArgs(cid).WillReturnRows(pgxmock.NewRows(prescriptionColumnNames))
	f.mock.ExpectQuery("FROM appointments WHERE id").WithArgs(a.ID).WillReturnRows(appointmentRows(a))

	_, err := f.svc.Update(context.Background(), f.doctor, cid, UpdateRequest{})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestGetByAppointmentVisibility(t *testing.T) {
	f := newFixture(t)
	a := sampleAppointment(f.doctor.ID, f.patient.ID, appointments.StatusCompleted)

	f.mock.ExpectQuery("FROM appointments WHERE id").WithArgs(a.ID).WillReturnRows(appointmentRows(a))
	_, err := f.svc.GetByAppointment(context.Background(), identity.Caller{ID: uuid.New(), Role: identity.RolePatient}, a.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	cid := uuid.New()
	f.mock.ExpectQuery("FROM appointments WHERE id").WithArgs(a.ID).WillReturnRows(appointmentRows(a))
	f.mock.ExpectQuery("FROM consultations WHERE appointment_id").WithArgs(a.ID).
		WillReturnRows(pgxmock.NewRows(consultationColumnNames).
			AddRow(cid, a.ID, "", "Flu", "", "", (*clock.Date)(nil), a.CreatedAt))
	f.mock.ExpectQuery("FROM prescriptions").WithArgs(cid).WillReturnRows(pgxmock.NewRows(prescriptionColumnNames))

	c, err := f.svc.GetByAppointment(context.Background(), f.patient, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flu", c.Diagnosis)
	assert.Empty(t, c.Prescriptions)
	require.NoError(t, f.mock.ExpectationsWereMet())
}
