package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorotheo-dental/sage/internal/appointments"
)

type fakeSchedule struct {
	windows map[time.Weekday][]Window
	blocked []BlockedSlot
}

func (f *fakeSchedule) WindowsForDay(_ context.Context, _ uuid.UUID, day time.Weekday) ([]Window, error) {
	return f.windows[day], nil
}

func (f *fakeSchedule) BlockedForDate(_ context.Context, _ uuid.UUID, _ time.Time) ([]BlockedSlot, error) {
	return f.blocked, nil
}

type fakeBooked struct {
	times []appointments.TimeOfDay
}

func (f *fakeBooked) DentistDayTimes(_ context.Context, _ uuid.UUID, _ time.Time) ([]appointments.TimeOfDay, error) {
	return f.times, nil
}

func tod(h, m int) appointments.TimeOfDay { return appointments.TimeOfDay{Hour: h, Minute: m} }

var (
	// 2026-08-26 is a Wednesday, 2026-08-29 a Saturday, 2026-08-30 a Sunday.
	wednesday = time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	saturday  = time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)
	sunday    = time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
)

func TestClinicHours(t *testing.T) {
	w, open := ClinicHours(time.Wednesday)
	require.True(t, open)
	assert.Equal(t, tod(8, 0), w.Start)
	assert.Equal(t, tod(18, 0), w.End)

	w, open = ClinicHours(time.Saturday)
	require.True(t, open)
	assert.Equal(t, tod(9, 0), w.Start)
	assert.Equal(t, tod(15, 0), w.End)

	_, open = ClinicHours(time.Sunday)
	assert.False(t, open)
}

func TestOpenSlotsFullDay(t *testing.T) {
	sched := &fakeSchedule{windows: map[time.Weekday][]Window{
		time.Wednesday: {{Start: tod(9, 0), End: tod(12, 0)}},
	}}
	svc := NewService(sched, &fakeBooked{}, nil)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), wednesday)
	require.NoError(t, err)
	assert.Equal(t, []appointments.TimeOfDay{
		tod(9, 0), tod(9, 30), tod(10, 0), tod(10, 30), tod(11, 0), tod(11, 30),
	}, slots)
}

func TestOpenSlotsExcludesBookedAndBlocked(t *testing.T) {
	sched := &fakeSchedule{
		windows: map[time.Weekday][]Window{
			time.Wednesday: {{Start: tod(9, 0), End: tod(12, 0)}},
		},
		blocked: []BlockedSlot{{Window: Window{Start: tod(10, 0), End: tod(11, 0)}, Reason: "training"}},
	}
	booked := &fakeBooked{times: []appointments.TimeOfDay{tod(9, 30)}}
	svc := NewService(sched, booked, nil)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), wednesday)
	require.NoError(t, err)
	assert.Equal(t, []appointments.TimeOfDay{tod(9, 0), tod(11, 0), tod(11, 30)}, slots)
}

func TestOpenSlotsClampedToClinicHours(t *testing.T) {
	// Dentist window spills past closing on Saturday; slots stop at 15:00.
	sched := &fakeSchedule{windows: map[time.Weekday][]Window{
		time.Saturday: {{Start: tod(13, 0), End: tod(17, 0)}},
	}}
	svc := NewService(sched, &fakeBooked{}, nil)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), saturday)
	require.NoError(t, err)
	assert.Equal(t, []appointments.TimeOfDay{
		tod(13, 0), tod(13, 30), tod(14, 0), tod(14, 30),
	}, slots)
}

func TestOpenSlotsSundayClosed(t *testing.T) {
	sched := &fakeSchedule{windows: map[time.Weekday][]Window{
		time.Sunday: {{Start: tod(9, 0), End: tod(12, 0)}},
	}}
	svc := NewService(sched, &fakeBooked{}, nil)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), sunday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestOpenSlotsDentistNotWorking(t *testing.T) {
	svc := NewService(&fakeSchedule{windows: map[time.Weekday][]Window{}}, &fakeBooked{}, nil)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), wednesday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestOpenSlotsSplitWindows(t *testing.T) {
	sched := &fakeSchedule{windows: map[time.Weekday][]Window{
		time.Wednesday: {
			{Start: tod(8, 0), End: tod(9, 0)},
			{Start: tod(16, 30), End: tod(18, 0)},
		},
	}}
	svc := NewService(sched, &fakeBooked{}, nil)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), wednesday)
	require.NoError(t, err)
	assert.Equal(t, []appointments.TimeOfDay{
		tod(8, 0), tod(8, 30), tod(16, 30), tod(17, 0), tod(17, 30),
	}, slots)
}

func TestSlotIsOpen(t *testing.T) {
	sched := &fakeSchedule{windows: map[time.Weekday][]Window{
		time.Wednesday: {{Start: tod(9, 0), End: tod(12, 0)}},
	}}
	booked := &fakeBooked{times: []appointments.TimeOfDay{tod(10, 0)}}
	svc := NewService(sched, booked, nil)

	open, err := svc.SlotIsOpen(context.Background(), uuid.New(), wednesday, tod(9, 30))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = svc.SlotIsOpen(context.Background(), uuid.New(), wednesday, tod(10, 0))
	require.NoError(t, err)
	assert.False(t, open)

	// Off-grid time is never open.
	open, err = svc.SlotIsOpen(context.Background(), uuid.New(), wednesday, tod(9, 15))
	require.NoError(t, err)
	assert.False(t, open)
}

func TestWorksOnDay(t *testing.T) {
	sched := &fakeSchedule{windows: map[time.Weekday][]Window{
		time.Wednesday: {{Start: tod(9, 0), End: tod(12, 0)}},
	}}
	svc := NewService(sched, &fakeBooked{}, nil)

	works, err := svc.WorksOnDay(context.Background(), uuid.New(), time.Wednesday)
	require.NoError(t, err)
	assert.True(t, works)

	works, err = svc.WorksOnDay(context.Background(), uuid.New(), time.Thursday)
	require.NoError(t, err)
	assert.False(t, works)

	works, err = svc.WorksOnDay(context.Background(), uuid.New(), time.Sunday)
	require.NoError(t, err)
	assert.False(t, works)
}

func TestWindowOverlaps(t *testing.T) {
	w := Window{Start: tod(10, 0), End: tod(11, 0)}
	assert.True(t, w.Overlaps(tod(10, 0)))
	assert.True(t, w.Overlaps(tod(10, 30)))
	assert.True(t, w.Overlaps(tod(9, 45)))
	assert.False(t, w.Overlaps(tod(9, 30)))
	assert.False(t, w.Overlaps(tod(11, 0)))
}
