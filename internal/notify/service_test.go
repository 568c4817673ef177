package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/directory"
)

type captureSender struct {
	sent []EmailMessage
	fail map[string]error
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	if err, ok := c.fail[msg.To]; ok {
		return err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func testPatient() *directory.Patient {
	return &directory.Patient{
		ID:        uuid.New(),
		FirstName: "Maria",
		LastName:  "Santos",
		Email:     "maria@example.com",
	}
}

func testAppointment() *appointments.Appointment {
	return &appointments.Appointment{
		ID:          uuid.New(),
		Date:        time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC),
		Time:        appointments.TimeOfDay{Hour: 9, Minute: 30},
		Status:      appointments.StatusConfirmed,
		DentistName: "Anna Dorotheo",
		ServiceName: "Teeth Cleaning",
		ClinicName:  "Dorotheo Dental Makati",
	}
}

func TestBookingConfirmedFansOut(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, []string{"frontdesk@dorotheodental.ph"}, nil)

	err := svc.BookingConfirmed(context.Background(), testPatient(), testAppointment())
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "maria@example.com", sender.sent[0].To)
	assert.Equal(t, "frontdesk@dorotheodental.ph", sender.sent[1].To)
	assert.Contains(t, sender.sent[0].Subject, "Appointment Confirmed")
	assert.Contains(t, sender.sent[0].Body, "September 3, 2026")
	assert.Contains(t, sender.sent[0].Body, "9:30 AM")
	assert.Contains(t, sender.sent[0].HTML, "Teeth Cleaning")
}

func TestBookingConfirmedSkipsEmptyPatientEmail(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, []string{"frontdesk@dorotheodental.ph"}, nil)

	patient := testPatient()
	patient.Email = ""
	require.NoError(t, svc.BookingConfirmed(context.Background(), patient, testAppointment()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "frontdesk@dorotheodental.ph", sender.sent[0].To)
}

func TestRescheduleRequestedIncludesBothSlots(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, nil, nil)

	appt := testAppointment()
	appt.Status = appointments.StatusRescheduleRequested
	newDate := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)
	newTime := appointments.TimeOfDay{Hour: 14, Minute: 0}
	appt.RescheduleDate = &newDate
	appt.RescheduleTime = &newTime

	require.NoError(t, svc.RescheduleRequested(context.Background(), testPatient(), appt))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Body, "September 3, 2026")
	assert.Contains(t, sender.sent[0].Body, "September 10, 2026")
	assert.Contains(t, sender.sent[0].Body, "2:00 PM")
	assert.Contains(t, sender.sent[0].Body, "stays booked until staff approve")
}

func TestCancelRequestedCarriesReason(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, []string{"frontdesk@dorotheodental.ph"}, nil)

	appt := testAppointment()
	appt.Status = appointments.StatusCancelRequested
	appt.CancelReason = "patient requested via chat"

	require.NoError(t, svc.CancelRequested(context.Background(), testPatient(), appt))

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].Body, "patient requested via chat")
	assert.Contains(t, sender.sent[1].Subject, "Cancellation Request")
}

func TestDeliverCollectsFailures(t *testing.T) {
	sender := &captureSender{fail: map[string]error{
		"maria@example.com": errors.New("bounce"),
	}}
	svc := NewService(sender, []string{"frontdesk@dorotheodental.ph"}, nil)

	err := svc.BookingConfirmed(context.Background(), testPatient(), testAppointment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 notification(s) failed")

	// The staff copy still goes out despite the patient bounce.
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "frontdesk@dorotheodental.ph", sender.sent[0].To)
}

func TestNewServiceRequiresSender(t *testing.T) {
	assert.Panics(t, func() { NewService(nil, nil, nil) })
}
