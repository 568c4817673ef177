// Package appointments holds the appointment lifecycle: the status state
// machine, the postgres repository, and the staging fields used while a
// reschedule or cancellation awaits staff approval.
package appointments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDay is a clock time without a date, minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// MinuteOfDay returns minutes since midnight, for ordering comparisons.
func (t TimeOfDay) MinuteOfDay() int { return t.Hour*60 + t.Minute }

// Before reports whether t is earlier than o.
func (t TimeOfDay) Before(o TimeOfDay) bool { return t.MinuteOfDay() < o.MinuteOfDay() }

// String renders the 12-hour display form ("2:30 PM"). Quick replies use
// this exact rendering, and the time parser accepts it back verbatim.
func (t TimeOfDay) String() string {
	h := t.Hour % 12
	if h == 0 {
		h = 12
	}
	meridiem := "AM"
	if t.Hour >= 12 {
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute, meridiem)
}

// Format24 renders "15:04" for persistence.
func (t TimeOfDay) Format24() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Appointment is one booked visit. Rows are never deleted; cancellation is a
// status, not a removal.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DentistID uuid.UUID
	ServiceID uuid.UUID
	ClinicID  uuid.UUID

	Date   time.Time // date component only, local clinic time
	Time   TimeOfDay
	Status Status

	// Staging fields, meaningful only while Status is RescheduleRequested.
	RescheduleDate *time.Time
	RescheduleTime *TimeOfDay

	// Staging fields, meaningful only while Status is CancelRequested.
	CancelReason      string
	CancelRequestedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Denormalized display names, filled by list queries for chat rendering.
	DentistName string
	ServiceName string
	ClinicName  string
}

// DateString renders the quick-reply date form ("January 5, 2026"). The
// appointment matcher accepts this rendering back verbatim.
func (a Appointment) DateString() string {
	return a.Date.Format("January 2, 2006")
}

// Describe renders the one-line summary used in selection lists.
func (a Appointment) Describe() string {
	return fmt.Sprintf("%s on %s at %s with %s", a.ServiceName, a.DateString(), a.Time, a.DentistName)
}

// ISOWeekBounds returns the Monday and the following Monday of the ISO week
// containing d, in d's location. The one-booking-per-week rule counts
// appointments with Date in [monday, nextMonday).
func ISOWeekBounds(d time.Time) (time.Time, time.Time) {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 7)
}
