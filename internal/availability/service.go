package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

var tracer = otel.Tracer("sage/availability")

// ScheduleReader is the persistence surface the service needs.
type ScheduleReader interface {
	WindowsForDay(ctx context.Context, dentistID uuid.UUID, day time.Weekday) ([]Window, error)
	BlockedForDate(ctx context.Context, dentistID uuid.UUID, date time.Time) ([]BlockedSlot, error)
}

// BookedReader reports the dentist's already-taken start times on a date.
type BookedReader interface {
	DentistDayTimes(ctx context.Context, dentistID uuid.UUID, date time.Time) ([]appointments.TimeOfDay, error)
}

// Service derives open slots for a dentist on a date.
type Service struct {
	schedule ScheduleReader
	booked   BookedReader
	logger   *logging.Logger
}

// NewService constructs the availability service.
func NewService(schedule ScheduleReader, booked BookedReader, logger *logging.Logger) *Service {
	if schedule == nil {
		panic("availability: schedule reader required")
	}
	if booked == nil {
		panic("availability: booked reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{schedule: schedule, booked: booked, logger: logger}
}

// OpenSlots returns the free slot start times for the dentist on the date,
// soonest first. A slot is open when it sits on the half-hour grid inside
// both the clinic hours and one of the dentist's windows, is not blocked,
// and has no active booking.
func (s *Service) OpenSlots(ctx context.Context, dentistID uuid.UUID, date time.Time) ([]appointments.TimeOfDay, error) {
	ctx, span := tracer.Start(ctx, "availability.open_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("dentist.id", dentistID.String()),
		attribute.String("date", date.Format("2006-01-02")),
	)

	clinic, open := ClinicHours(date.Weekday())
	if !open {
		return nil, nil
	}

	windows, err := s.schedule.WindowsForDay(ctx, dentistID, date.Weekday())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: open slots: %w", err)
	}
	if len(windows) == 0 {
		return nil, nil
	}

	blocked, err := s.schedule.BlockedForDate(ctx, dentistID, date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: open slots: %w", err)
	}
	taken, err := s.booked.DentistDayTimes(ctx, dentistID, date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: open slots: %w", err)
	}

	takenSet := make(map[int]bool, len(taken))
	for _, t := range taken {
		takenSet[t.MinuteOfDay()] = true
	}

	var out []appointments.TimeOfDay
	for m := clinic.Start.MinuteOfDay(); m+SlotMinutes <= clinic.End.MinuteOfDay(); m += SlotMinutes {
		slot := appointments.TimeOfDay{Hour: m / 60, Minute: m % 60}
		if !slotInsideAny(slot, windows) {
			continue
		}
		if takenSet[m] {
			continue
		}
		if slotBlocked(slot, blocked) {
			continue
		}
		out = append(out, slot)
	}
	s.logger.Debug("derived open slots",
		"dentist_id", dentistID, "date", date.Format("2006-01-02"), "count", len(out))
	return out, nil
}

// SlotIsOpen reports whether one specific slot is bookable for the dentist.
// It reuses the same derivation as OpenSlots so the two can never disagree.
func (s *Service) SlotIsOpen(ctx context.Context, dentistID uuid.UUID, date time.Time, t appointments.TimeOfDay) (bool, error) {
	slots, err := s.OpenSlots(ctx, dentistID, date)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot == t {
			return true, nil
		}
	}
	return false, nil
}

// WorksOnDay reports whether the dentist has any recurring window on the
// weekday at all, regardless of bookings.
func (s *Service) WorksOnDay(ctx context.Context, dentistID uuid.UUID, day time.Weekday) (bool, error) {
	if _, open := ClinicHours(day); !open {
		return false, nil
	}
	windows, err := s.schedule.WindowsForDay(ctx, dentistID, day)
	if err != nil {
		return false, fmt.Errorf("availability: works on day: %w", err)
	}
	return len(windows) > 0, nil
}

func slotInsideAny(t appointments.TimeOfDay, windows []Window) bool {
	end := t.MinuteOfDay() + SlotMinutes
	for _, w := range windows {
		if t.MinuteOfDay() >= w.Start.MinuteOfDay() && end <= w.End.MinuteOfDay() {
			return true
		}
	}
	return false
}

func slotBlocked(t appointments.TimeOfDay, blocked []BlockedSlot) bool {
	for _, b := range blocked {
		if b.Window.Overlaps(t) {
			return true
		}
	}
	return false
}
