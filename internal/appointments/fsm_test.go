package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTransitionsMatrix(t *testing.T) {
	all := []Status{
		StatusPending, StatusConfirmed, StatusWaiting, StatusRejected,
		StatusRescheduleRequested, StatusCancelRequested,
		StatusCancelled, StatusCompleted, StatusMissed,
	}

	allowed := map[Status]map[Status]bool{
		StatusPending:             {StatusConfirmed: true, StatusRejected: true, StatusCancelled: true},
		StatusConfirmed:           {StatusWaiting: true, StatusRescheduleRequested: true, StatusCancelRequested: true, StatusCompleted: true, StatusMissed: true, StatusCancelled: true},
		StatusWaiting:             {StatusCompleted: true, StatusCancelled: true, StatusMissed: true},
		StatusRescheduleRequested: {StatusConfirmed: true, StatusRejected: true, StatusCancelled: true},
		StatusCancelRequested:     {StatusCancelled: true, StatusConfirmed: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			assert.Equal(t, want, from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusCancelled, StatusCompleted, StatusMissed} {
		assert.Empty(t, ValidTransitions[s], "status %s should be terminal", s)
	}
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusConfirmed.IsValid())
	assert.True(t, StatusMissed.IsValid())
	assert.False(t, Status("archived").IsValid())
	assert.False(t, Status("").IsValid())
}

type fakeTransitionStore struct {
	updateOK     bool
	updateErr    error
	auditErr     error
	updatedFrom  Status
	updatedTo    Status
	staged       bool
	stagedDate   time.Time
	stagedTime   TimeOfDay
	stagedReason string
	audited      bool
}

func (f *fakeTransitionStore) UpdateStatus(_ context.Context, _ string, from, to Status) (bool, error) {
	f.updatedFrom, f.updatedTo = from, to
	return f.updateOK, f.updateErr
}

func (f *fakeTransitionStore) StageReschedule(_ context.Context, _ string, _ Status, newDate time.Time, newTime TimeOfDay) (bool, error) {
	f.staged = true
	f.stagedDate, f.stagedTime = newDate, newTime
	return f.updateOK, f.updateErr
}

func (f *fakeTransitionStore) StageCancel(_ context.Context, _ string, _ Status, reason string, _ time.Time) (bool, error) {
	f.staged = true
	f.stagedReason = reason
	return f.updateOK, f.updateErr
}

func (f *fakeTransitionStore) RecordTransition(_ context.Context, _ string, _, _ Status, _, _ string) error {
	f.audited = true
	return f.auditErr
}

func newTestAppointment(status Status) *Appointment {
	return &Appointment{ID: uuid.New(), Status: status}
}

func TestTransitionHappyPath(t *testing.T) {
	store := &fakeTransitionStore{updateOK: true}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusPending)

	err := lc.Transition(context.Background(), appt, StatusConfirmed, "staff", "approved")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, StatusPending, store.updatedFrom)
	assert.Equal(t, StatusConfirmed, store.updatedTo)
	assert.True(t, store.audited)
}

func TestTransitionRejectsDisallowedMove(t *testing.T) {
	store := &fakeTransitionStore{updateOK: true}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusCompleted)

	err := lc.Transition(context.Background(), appt, StatusConfirmed, "staff", "")
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Equal(t, StatusCompleted, appt.Status)
	assert.False(t, store.audited)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	store := &fakeTransitionStore{updateOK: true}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(Status("limbo"))

	err := lc.Transition(context.Background(), appt, StatusConfirmed, "staff", "")
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestTransitionConcurrentLoserGetsNotEligible(t *testing.T) {
	// Guarded update reports zero rows: another request changed the status
	// first. The loser must not see a success.
	store := &fakeTransitionStore{updateOK: false}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusConfirmed)

	err := lc.Transition(context.Background(), appt, StatusCancelRequested, "patient", "")
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Equal(t, StatusConfirmed, appt.Status)
}

func TestTransitionPropagatesStoreError(t *testing.T) {
	store := &fakeTransitionStore{updateErr: errors.New("connection reset")}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusConfirmed)

	err := lc.Transition(context.Background(), appt, StatusCompleted, "staff", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotEligible)
}

func TestTransitionSurvivesAuditFailure(t *testing.T) {
	store := &fakeTransitionStore{updateOK: true, auditErr: errors.New("audit table gone")}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusConfirmed)

	err := lc.Transition(context.Background(), appt, StatusCompleted, "staff", "visit done")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, appt.Status)
}

func TestRequestReschedule(t *testing.T) {
	store := &fakeTransitionStore{updateOK: true}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusConfirmed)
	newDate := time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC)
	newTime := TimeOfDay{Hour: 14, Minute: 30}

	err := lc.RequestReschedule(context.Background(), appt, newDate, newTime, "patient")
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduleRequested, appt.Status)
	require.NotNil(t, appt.RescheduleDate)
	assert.Equal(t, newDate, *appt.RescheduleDate)
	require.NotNil(t, appt.RescheduleTime)
	assert.Equal(t, newTime, *appt.RescheduleTime)
	assert.Equal(t, newDate, store.stagedDate)
	assert.True(t, store.audited)
}

func TestRequestRescheduleRejectsPendingAppointment(t *testing.T) {
	store := &fakeTransitionStore{updateOK: true}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusPending)

	err := lc.RequestReschedule(context.Background(), appt,
		time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 10}, "patient")
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.False(t, store.staged)
}

func TestRequestCancel(t *testing.T) {
	store := &fakeTransitionStore{updateOK: true}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusConfirmed)

	err := lc.RequestCancel(context.Background(), appt, "out of town", "patient")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelRequested, appt.Status)
	assert.Equal(t, "out of town", appt.CancelReason)
	require.NotNil(t, appt.CancelRequestedAt)
	assert.Equal(t, "out of town", store.stagedReason)
}

func TestRequestCancelRejectsAlreadyStagedAppointment(t *testing.T) {
	store := &fakeTransitionStore{updateOK: true}
	lc := NewLifecycle(store, nil)
	appt := newTestAppointment(StatusCancelRequested)

	err := lc.RequestCancel(context.Background(), appt, "changed my mind", "patient")
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.False(t, store.staged)
}

func TestISOWeekBounds(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		mon  string
	}{
		{"wednesday", time.Date(2026, time.August, 26, 15, 0, 0, 0, time.UTC), "2026-08-24"},
		{"monday itself", time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC), "2026-08-24"},
		{"sunday belongs to prior monday", time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC), "2026-08-24"},
		{"year boundary", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), "2025-12-29"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mon, next := ISOWeekBounds(tc.in)
			assert.Equal(t, tc.mon, mon.Format("2006-01-02"))
			assert.Equal(t, mon.AddDate(0, 0, 7), next)
		})
	}
}

func TestTimeOfDayRendering(t *testing.T) {
	assert.Equal(t, "2:30 PM", TimeOfDay{Hour: 14, Minute: 30}.String())
	assert.Equal(t, "12:00 PM", TimeOfDay{Hour: 12}.String())
	assert.Equal(t, "12:15 AM", TimeOfDay{Hour: 0, Minute: 15}.String())
	assert.Equal(t, "9:00 AM", TimeOfDay{Hour: 9}.String())
	assert.Equal(t, "09:00", TimeOfDay{Hour: 9}.Format24())
	assert.True(t, TimeOfDay{Hour: 9}.Before(TimeOfDay{Hour: 9, Minute: 30}))
	assert.False(t, TimeOfDay{Hour: 10}.Before(TimeOfDay{Hour: 10}))
}
