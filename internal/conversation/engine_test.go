package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/booking"
	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/internal/intent"
)

// memStore is an in-memory appointment store serving every persistence
// interface the engine touches, so end-to-end tests run without postgres.
type memStore struct {
	mu    sync.Mutex
	appts []appointments.Appointment
}

func (s *memStore) Create(_ context.Context, a *appointments.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.appts = append(s.appts, *a)
	return nil
}

func (s *memStore) ListForPatient(_ context.Context, patientID uuid.UUID, statuses []appointments.Status) ([]appointments.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []appointments.Appointment
	for _, a := range s.appts {
		if a.PatientID == patientID && statusIn(a.Status, statuses) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) HasPendingRequest(_ context.Context, patientID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appts {
		if a.PatientID == patientID && statusIn(a.Status, appointments.PendingRequestStatuses) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CountActiveInWeek(_ context.Context, patientID uuid.UUID, weekStart, weekEnd time.Time, exclude uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.appts {
		if a.PatientID == patientID && a.ID != exclude &&
			statusIn(a.Status, appointments.ActiveStatuses) &&
			!a.Date.Before(weekStart) && a.Date.Before(weekEnd) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) DentistSlotTaken(_ context.Context, dentistID uuid.UUID, date time.Time, t appointments.TimeOfDay, exclude uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appts {
		if a.DentistID == dentistID && a.ID != exclude && a.Date.Equal(date) && a.Time == t &&
			statusIn(a.Status, appointments.ActiveStatuses) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) PatientSlotTaken(_ context.Context, patientID uuid.UUID, date time.Time, t appointments.TimeOfDay) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appts {
		if a.PatientID == patientID && a.Date.Equal(date) && a.Time == t &&
			statusIn(a.Status, appointments.ActiveStatuses) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id string, from, to appointments.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appts {
		if s.appts[i].ID.String() == id && s.appts[i].Status == from {
			s.appts[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) StageReschedule(_ context.Context, id string, from appointments.Status, newDate time.Time, newTime appointments.TimeOfDay) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appts {
		if s.appts[i].ID.String() == id && s.appts[i].Status == from {
			s.appts[i].Status = appointments.StatusRescheduleRequested
			s.appts[i].RescheduleDate = &newDate
			s.appts[i].RescheduleTime = &newTime
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) StageCancel(_ context.Context, id string, from appointments.Status, reason string, requestedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appts {
		if s.appts[i].ID.String() == id && s.appts[i].Status == from {
			s.appts[i].Status = appointments.StatusCancelRequested
			s.appts[i].CancelReason = reason
			s.appts[i].CancelRequestedAt = &requestedAt
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) RecordTransition(_ context.Context, _ string, _, _ appointments.Status, _, _ string) error {
	return nil
}

func (s *memStore) DentistDayTimes(_ context.Context, dentistID uuid.UUID, date time.Time) ([]appointments.TimeOfDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []appointments.TimeOfDay
	for _, a := range s.appts {
		if a.DentistID == dentistID && a.Date.Equal(date) && statusIn(a.Status, appointments.ActiveStatuses) {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func statusIn(s appointments.Status, set []appointments.Status) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

// fakeSlots serves a 9:00-12:00 grid minus whatever is booked in the store.
type fakeSlots struct{ store *memStore }

func (f *fakeSlots) OpenSlots(ctx context.Context, dentistID uuid.UUID, date time.Time) ([]appointments.TimeOfDay, error) {
	if date.Weekday() == time.Sunday {
		return nil, nil
	}
	taken, _ := f.store.DentistDayTimes(ctx, dentistID, date)
	var out []appointments.TimeOfDay
	for m := 9 * 60; m < 12*60; m += 30 {
		slot := appointments.TimeOfDay{Hour: m / 60, Minute: m % 60}
		free := true
		for _, t := range taken {
			if t == slot {
				free = false
			}
		}
		if free {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (f *fakeSlots) WorksOnDay(_ context.Context, _ uuid.UUID, day time.Weekday) (bool, error) {
	return day != time.Sunday, nil
}

type fakeDirectory struct {
	clinics  []directory.Clinic
	dentists []directory.Dentist
	services []directory.Service
}

func (f *fakeDirectory) ListClinics(context.Context) ([]directory.Clinic, error) {
	return f.clinics, nil
}
func (f *fakeDirectory) ListDentists(context.Context) ([]directory.Dentist, error) {
	return f.dentists, nil
}
func (f *fakeDirectory) ListServices(context.Context) ([]directory.Service, error) {
	return f.services, nil
}

type fakeNotifier struct {
	booked, resched, cancelled int
}

func (f *fakeNotifier) BookingConfirmed(context.Context, *directory.Patient, *appointments.Appointment) error {
	f.booked++
	return nil
}
func (f *fakeNotifier) RescheduleRequested(context.Context, *directory.Patient, *appointments.Appointment) error {
	f.resched++
	return nil
}
func (f *fakeNotifier) CancelRequested(context.Context, *directory.Patient, *appointments.Appointment) error {
	f.cancelled++
	return nil
}

// The fixed clock is Tuesday 2026-08-25 10:00.
var testClock = func() time.Time {
	return time.Date(2026, time.August, 25, 10, 0, 0, 0, time.UTC)
}

type fixture struct {
	engine     *Engine
	store      *memStore
	notifier   *fakeNotifier
	patient    *directory.Patient
	dentist    directory.Dentist
	altDentist directory.Dentist
	clinic     directory.Clinic
	service    directory.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clinic := directory.Clinic{ID: uuid.New(), Name: "Dorotheo Dental Makati", Address: "123 Ayala Ave", Phone: "+63 2 8123 4567"}
	dentist := directory.Dentist{ID: uuid.New(), FirstName: "Anna", LastName: "Dorotheo", Role: directory.RoleDentist}
	altDentist := directory.Dentist{ID: uuid.New(), FirstName: "Jose", LastName: "Reyes", Role: directory.RoleDentist}
	service := directory.Service{ID: uuid.New(), Name: "Teeth Cleaning", DurationMinutes: 30}

	store := &memStore{}
	notifier := &fakeNotifier{}
	dir := &fakeDirectory{
		clinics:  []directory.Clinic{clinic},
		dentists: []directory.Dentist{dentist, altDentist},
		services: []directory.Service{service, {ID: uuid.New(), Name: "Tooth Extraction"}},
	}
	classifier := intent.NewClassifier(nil, intent.WithDentistNames([]string{"Anna Dorotheo"}))
	validator := booking.NewEngine(store, nil).WithClock(testClock)
	lifecycle := appointments.NewLifecycle(store, nil)

	engine := NewEngine(classifier, dir, store, &fakeSlots{store: store}, validator, lifecycle, notifier, nil,
		WithClock(testClock))

	return &fixture{
		engine:     engine,
		store:      store,
		notifier:   notifier,
		patient:    &directory.Patient{ID: uuid.New(), FirstName: "Maria", LastName: "Santos"},
		dentist:    dentist,
		altDentist: altDentist,
		clinic:     clinic,
		service:    service,
	}
}

// converse drives a whole conversation, appending each exchange to the
// transcript the way a real client would.
func (f *fixture) converse(t *testing.T, messages []string) []Reply {
	t.Helper()
	var history []ChatMessage
	var replies []Reply
	for _, msg := range messages {
		r := f.engine.ProcessMessage(context.Background(), f.patient, msg, history)
		require.NotEmpty(t, r.Text, "empty reply for %q", msg)
		history = append(history, user(msg), assistant(r.Text))
		replies = append(replies, r)
	}
	return replies
}

func TestScenarioFullBooking(t *testing.T) {
	f := newFixture(t)
	replies := f.converse(t, []string{
		"I want to book an appointment",
		"Dorotheo Dental Makati",
		"Dr. Anna Dorotheo",
		"August 27, 2026",
		"9:30 AM",
		"Teeth Cleaning",
		"Yes, Confirm",
	})

	assert.Contains(t, replies[0].Text, "[BOOK_STEP_1]")
	assert.Contains(t, replies[0].QuickReplies, "Dorotheo Dental Makati")
	assert.Contains(t, replies[1].Text, "[BOOK_STEP_2]")
	assert.Contains(t, replies[1].QuickReplies, "Dr. Anna Dorotheo")
	assert.Contains(t, replies[2].Text, "[BOOK_STEP_3]")
	assert.Contains(t, replies[3].Text, "[BOOK_STEP_4]")
	assert.Contains(t, replies[3].QuickReplies, "9:30 AM")
	assert.Contains(t, replies[4].Text, "[BOOK_STEP_5]")
	assert.Contains(t, replies[5].Text, "[BOOK_STEP_6]")
	assert.Contains(t, replies[5].QuickReplies, "Yes, Confirm")

	final := replies[6]
	assert.Contains(t, final.Text, "[FLOW_COMPLETE]")
	assert.True(t, final.AppointmentCreated)
	assert.Equal(t, 1, f.notifier.booked)

	require.Len(t, f.store.appts, 1)
	appt := f.store.appts[0]
	assert.Equal(t, appointments.StatusConfirmed, appt.Status)
	assert.Equal(t, f.patient.ID, appt.PatientID)
	assert.Equal(t, f.dentist.ID, appt.DentistID)
	assert.Equal(t, f.service.ID, appt.ServiceID)
	assert.Equal(t, "2026-08-27", appt.Date.Format("2006-01-02"))
	assert.Equal(t, appointments.TimeOfDay{Hour: 9, Minute: 30}, appt.Time)
}

func TestScenarioWeeklyCapRejected(t *testing.T) {
	f := newFixture(t)
	f.converse(t, []string{
		"I want to book an appointment",
		"Dorotheo Dental Makati",
		"Dr. Anna Dorotheo",
		"August 27, 2026",
		"9:30 AM",
		"Teeth Cleaning",
		"Yes, Confirm",
	})
	require.Len(t, f.store.appts, 1)

	// Second booking in the same ISO week must be rejected before any
	// appointment is created.
	replies := f.converse(t, []string{
		"book another appointment",
		"Dorotheo Dental Makati",
		"Dr. Anna Dorotheo",
		"August 28, 2026",
		"10:00 AM",
		"Teeth Cleaning",
		"Yes, Confirm",
	})
	final := replies[len(replies)-1]
	assert.Contains(t, final.Text, "one booking per week")
	assert.Contains(t, final.Text, "[BOOK_STEP_3]", "weekly cap returns to date selection")
	assert.False(t, final.AppointmentCreated)
	assert.Len(t, f.store.appts, 1)
}

func TestScenarioInjectionRefused(t *testing.T) {
	f := newFixture(t)
	r := f.engine.ProcessMessage(context.Background(), f.patient,
		"'; DROP TABLE appointments; --", nil)
	assert.NotContains(t, r.Text, "STEP")
	assert.Empty(t, f.store.appts)
	assert.Contains(t, r.Text, "book")
}

func TestScenarioCancelRequestAndPendingLock(t *testing.T) {
	f := newFixture(t)
	f.store.appts = append(f.store.appts, appointments.Appointment{
		ID:          uuid.New(),
		PatientID:   f.patient.ID,
		DentistID:   f.dentist.ID,
		ServiceID:   f.service.ID,
		ClinicID:    f.clinic.ID,
		Date:        time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC),
		Time:        appointments.TimeOfDay{Hour: 10},
		Status:      appointments.StatusConfirmed,
		DentistName: "Anna Dorotheo",
		ServiceName: "Teeth Cleaning",
		ClinicName:  "Dorotheo Dental Makati",
	})

	replies := f.converse(t, []string{
		"I need to cancel my appointment",
		"Yes, Confirm",
	})

	// Single candidate: the flow skips straight to confirmation.
	assert.Contains(t, replies[0].Text, "[CANCEL_STEP_2]")
	assert.Contains(t, replies[0].Text, "Teeth Cleaning")

	assert.Contains(t, replies[1].Text, "[FLOW_COMPLETE]")
	assert.True(t, replies[1].RequestStaged)
	assert.Equal(t, 1, f.notifier.cancelled)

	appt := f.store.appts[0]
	assert.Equal(t, appointments.StatusCancelRequested, appt.Status)
	require.NotNil(t, appt.CancelRequestedAt)

	// A second cancel attempt before staff act hits the pending lock.
	r := f.engine.ProcessMessage(context.Background(), f.patient,
		"cancel my appointment", nil)
	assert.Contains(t, r.Text, "[PENDING_BLOCK]")
}

func TestScenarioRescheduleStagesRequest(t *testing.T) {
	f := newFixture(t)
	f.store.appts = append(f.store.appts, appointments.Appointment{
		ID:          uuid.New(),
		PatientID:   f.patient.ID,
		DentistID:   f.dentist.ID,
		ServiceID:   f.service.ID,
		ClinicID:    f.clinic.ID,
		Date:        time.Date(2026, time.August, 27, 0, 0, 0, 0, time.UTC),
		Time:        appointments.TimeOfDay{Hour: 10},
		Status:      appointments.StatusConfirmed,
		DentistName: "Anna Dorotheo",
		ServiceName: "Teeth Cleaning",
		ClinicName:  "Dorotheo Dental Makati",
	})

	replies := f.converse(t, []string{
		"I need to move my appointment",
		"September 3, 2026",
		"9:00 AM",
	})

	assert.Contains(t, replies[0].Text, "[RESCHED_STEP_2]")
	assert.Contains(t, replies[1].Text, "[RESCHED_STEP_3]")
	assert.Contains(t, replies[1].QuickReplies, "9:00 AM")

	final := replies[2]
	assert.Contains(t, final.Text, "[FLOW_COMPLETE]")
	assert.True(t, final.RequestStaged)
	assert.Equal(t, 1, f.notifier.resched)

	appt := f.store.appts[0]
	assert.Equal(t, appointments.StatusRescheduleRequested, appt.Status)
	require.NotNil(t, appt.RescheduleDate)
	assert.Equal(t, "2026-09-03", appt.RescheduleDate.Format("2006-01-02"))
	require.NotNil(t, appt.RescheduleTime)
	assert.Equal(t, appointments.TimeOfDay{Hour: 9}, *appt.RescheduleTime)
	// The original slot is untouched until staff approve.
	assert.Equal(t, "2026-08-27", appt.Date.Format("2006-01-02"))
}

func TestUnauthenticatedUserCannotEnterFlows(t *testing.T) {
	f := newFixture(t)
	r := f.engine.ProcessMessage(context.Background(), nil, "book an appointment", nil)
	assert.Contains(t, strings.ToLower(r.Text), "log in")
	assert.NotContains(t, r.Text, "STEP")
}

func TestGreetingAndClinicInfo(t *testing.T) {
	f := newFixture(t)

	r := f.engine.ProcessMessage(context.Background(), f.patient, "hello!", nil)
	assert.Contains(t, r.Text, "Maria")
	assert.Contains(t, r.QuickReplies, "Book an appointment")

	r = f.engine.ProcessMessage(context.Background(), f.patient, "where is your clinic located?", nil)
	assert.Contains(t, r.Text, "123 Ayala Ave")
}

func TestDentalAdviceMatchesTagalogSymptoms(t *testing.T) {
	f := newFixture(t)

	r := f.engine.ProcessMessage(context.Background(), f.patient,
		"masakit po ang ngipin ko", nil)
	assert.Contains(t, r.Text, "pasensya na sa sakit", "normalized query should hit the pain topic")
	assert.Contains(t, r.QuickReplies, "Book an appointment")

	r = f.engine.ProcessMessage(context.Background(), f.patient,
		"my gums are bleeding when I brush", nil)
	assert.Contains(t, r.Text, "Bleeding gums")
}

func TestTagalogBookingGetsTagalogPrompts(t *testing.T) {
	f := newFixture(t)
	r := f.engine.ProcessMessage(context.Background(), f.patient,
		"magpapa-appointment po sana ako", nil)
	assert.Contains(t, r.Text, "[BOOK_STEP_1]")
	assert.Contains(t, r.Text, "branch po kayo")
}

// seedConfirmed inserts a confirmed appointment for the fixture patient.
func (f *fixture) seedConfirmed(date time.Time, tod appointments.TimeOfDay) {
	f.store.appts = append(f.store.appts, appointments.Appointment{
		ID:          uuid.New(),
		PatientID:   f.patient.ID,
		DentistID:   f.dentist.ID,
		ServiceID:   f.service.ID,
		ClinicID:    f.clinic.ID,
		Date:        date,
		Time:        tod,
		Status:      appointments.StatusConfirmed,
		DentistName: "Anna Dorotheo",
		ServiceName: "Teeth Cleaning",
		ClinicName:  "Dorotheo Dental Makati",
	})
}

func TestRescheduleCurrentDateIdentifiesAppointmentOnly(t *testing.T) {
	f := newFixture(t)
	f.seedConfirmed(time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC),
		appointments.TimeOfDay{Hour: 10})

	// Naming the appointment by its current date must not be read as the
	// new target date.
	replies := f.converse(t, []string{
		"I want to reschedule my September 3 appointment",
	})
	assert.Contains(t, replies[0].Text, "[RESCHED_STEP_2]", "flow must ask for the new date")
	assert.Contains(t, replies[0].Text, "What new date")
	assert.NotContains(t, replies[0].Text, "[RESCHED_STEP_3]")
}

func TestRescheduleDateAfterCurrentDateMention(t *testing.T) {
	f := newFixture(t)
	f.seedConfirmed(time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC),
		appointments.TimeOfDay{Hour: 10})

	replies := f.converse(t, []string{
		"please move my September 3 appointment to September 10",
		"9:00 AM",
	})

	// The second date in the message is the target; the first identifies.
	assert.Contains(t, replies[0].Text, "[RESCHED_STEP_3]")
	assert.Contains(t, replies[0].Text, "September 10, 2026")

	final := replies[1]
	assert.Contains(t, final.Text, "[FLOW_COMPLETE]")
	assert.True(t, final.RequestStaged)

	appt := f.store.appts[0]
	assert.Equal(t, appointments.StatusRescheduleRequested, appt.Status)
	require.NotNil(t, appt.RescheduleDate)
	assert.Equal(t, "2026-09-10", appt.RescheduleDate.Format("2006-01-02"))
}

func TestScheduleSundayDateRejectedImmediately(t *testing.T) {
	f := newFixture(t)
	replies := f.converse(t, []string{
		"I want to book an appointment",
		"Dorotheo Dental Makati",
		"Dr. Anna Dorotheo",
		"September 6, 2026", // a Sunday
		"September 7, 2026",
	})

	sunday := replies[3]
	assert.Contains(t, sunday.Text, "closed on Sundays")
	assert.Contains(t, sunday.Text, "[BOOK_STEP_3]", "re-asks the date, not the time")

	assert.Contains(t, replies[4].Text, "[BOOK_STEP_4]", "a weekday recovers the flow")
}

func TestRescheduleSundayDateRejectedImmediately(t *testing.T) {
	f := newFixture(t)
	f.seedConfirmed(time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC),
		appointments.TimeOfDay{Hour: 10})

	replies := f.converse(t, []string{
		"I need to move my appointment",
		"September 6, 2026", // a Sunday
	})
	assert.Contains(t, replies[1].Text, "closed on Sundays")
	assert.Contains(t, replies[1].Text, "[RESCHED_STEP_2]")
}

func TestAnotherDateReopensDateQuestion(t *testing.T) {
	f := newFixture(t)
	// Fill every slot Anna has on August 27 so the flow offers alternatives.
	other := uuid.New()
	for m := 9 * 60; m < 12*60; m += 30 {
		f.store.appts = append(f.store.appts, appointments.Appointment{
			ID:        uuid.New(),
			PatientID: other,
			DentistID: f.dentist.ID,
			Date:      time.Date(2026, time.August, 27, 0, 0, 0, 0, time.UTC),
			Time:      appointments.TimeOfDay{Hour: m / 60, Minute: m % 60},
			Status:    appointments.StatusConfirmed,
		})
	}

	replies := f.converse(t, []string{
		"I want to book an appointment",
		"Dorotheo Dental Makati",
		"Dr. Anna Dorotheo",
		"August 27, 2026",
		"Another date",
		"August 28, 2026",
	})

	offer := replies[3]
	assert.Contains(t, offer.Text, "Dr. Jose Reyes", "the free dentist is offered")
	assert.Contains(t, offer.QuickReplies, "Another date")

	assert.Contains(t, replies[4].Text, "[BOOK_STEP_3]", "tapping Another date re-asks the date")
	assert.Contains(t, replies[4].Text, "What date works for you")

	assert.Contains(t, replies[5].Text, "[BOOK_STEP_4]", "the new date gets Anna's open slots")
}

func TestConfirmStepChangeRoutesToReschedule(t *testing.T) {
	f := newFixture(t)
	replies := f.converse(t, []string{
		"I want to book an appointment",
		"Dorotheo Dental Makati",
		"Dr. Anna Dorotheo",
		"August 27, 2026",
		"9:30 AM",
		"Teeth Cleaning",
		"change my appointment",
	})

	// "change my appointment" at the confirm step is a reschedule request,
	// not a No. With nothing booked yet the reschedule flow says so.
	final := replies[len(replies)-1]
	assert.NotContains(t, final.Text, "won't book anything")
	assert.Contains(t, final.Text, "confirmed appointments to move")
	assert.Empty(t, f.store.appts)
}

func TestConfirmStepNoAbortsBooking(t *testing.T) {
	f := newFixture(t)
	replies := f.converse(t, []string{
		"I want to book an appointment",
		"Dorotheo Dental Makati",
		"Dr. Anna Dorotheo",
		"August 27, 2026",
		"9:30 AM",
		"Teeth Cleaning",
		"No, Cancel",
	})
	final := replies[len(replies)-1]
	assert.Contains(t, final.Text, "[FLOW_COMPLETE]")
	assert.False(t, final.AppointmentCreated)
	assert.Empty(t, f.store.appts)
}
