// Package availability derives open booking slots from clinic hours, each
// dentist's weekly schedule, blocked periods, and existing bookings. Slots
// are always derived fresh from the database, never cached, so a booking
// committed a moment ago is reflected immediately.
package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/dorotheo-dental/sage/internal/appointments"
)

// SlotMinutes is the grid the schedule runs on. Every appointment starts on
// a half-hour boundary.
const SlotMinutes = 30

// Window is a half-open interval [Start, End) within one day.
type Window struct {
	Start appointments.TimeOfDay
	End   appointments.TimeOfDay
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t appointments.TimeOfDay) bool {
	m := t.MinuteOfDay()
	return m >= w.Start.MinuteOfDay() && m < w.End.MinuteOfDay()
}

// Overlaps reports whether the slot starting at t overlaps the window.
func (w Window) Overlaps(t appointments.TimeOfDay) bool {
	start := t.MinuteOfDay()
	end := start + SlotMinutes
	return start < w.End.MinuteOfDay() && end > w.Start.MinuteOfDay()
}

// DentistAvailability is one recurring weekly working window for a dentist.
type DentistAvailability struct {
	DentistID uuid.UUID
	Weekday   time.Weekday
	Window    Window
}

// BlockedSlot is a one-off period a dentist is unavailable on a specific
// date (leave, training, an emergency case).
type BlockedSlot struct {
	DentistID uuid.UUID
	Date      time.Time
	Window    Window
	Reason    string
}

// ClinicHours returns the clinic-wide working window for a weekday. The
// second return is false on Sunday, when the clinic is closed.
func ClinicHours(day time.Weekday) (Window, bool) {
	switch day {
	case time.Sunday:
		return Window{}, false
	case time.Saturday:
		return Window{
			Start: appointments.TimeOfDay{Hour: 9},
			End:   appointments.TimeOfDay{Hour: 15},
		}, true
	default:
		return Window{
			Start: appointments.TimeOfDay{Hour: 8},
			End:   appointments.TimeOfDay{Hour: 18},
		}, true
	}
}
