package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/availability"
	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

var tracer = otel.Tracer("sage/booking")

// AppointmentReader is the persistence surface the engine checks against.
type AppointmentReader interface {
	HasPendingRequest(ctx context.Context, patientID uuid.UUID) (bool, error)
	CountActiveInWeek(ctx context.Context, patientID uuid.UUID, weekStart, weekEnd time.Time, exclude uuid.UUID) (int, error)
	DentistSlotTaken(ctx context.Context, dentistID uuid.UUID, date time.Time, t appointments.TimeOfDay, exclude uuid.UUID) (bool, error)
	PatientSlotTaken(ctx context.Context, patientID uuid.UUID, date time.Time, t appointments.TimeOfDay) (bool, error)
}

// NewBookingRequest carries the resolved entities for a booking attempt.
// Resolution happens upstream; nil fields here mean the entity could not be
// resolved and fail the corresponding check.
type NewBookingRequest struct {
	PatientID uuid.UUID
	Clinic    *directory.Clinic
	Dentist   *directory.Dentist
	Service   *directory.Service
	Date      time.Time
	Time      appointments.TimeOfDay
}

// Engine runs the ordered validation pipelines.
type Engine struct {
	appts  AppointmentReader
	logger *logging.Logger
	now    func() time.Time
}

// NewEngine constructs the validation engine.
func NewEngine(appts AppointmentReader, logger *logging.Logger) *Engine {
	if appts == nil {
		panic("booking: appointment reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{appts: appts, logger: logger, now: time.Now}
}

// WithClock overrides the engine's clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ValidateNewBooking runs the new-booking pipeline. A non-nil Violation is a
// business-rule rejection; a non-nil error is an infrastructure failure.
func (e *Engine) ValidateNewBooking(ctx context.Context, req NewBookingRequest) (*Violation, error) {
	ctx, span := tracer.Start(ctx, "booking.validate_new")
	defer span.End()

	if v, err := e.checkNoPendingRequest(ctx, req.PatientID); v != nil || err != nil {
		return e.record(span, v), err
	}
	if v, err := e.checkWeeklyCap(ctx, req.PatientID, req.Date, uuid.Nil); v != nil || err != nil {
		return e.record(span, v), err
	}
	if v := e.checkDate(req.Date); v != nil {
		return e.record(span, v), nil
	}
	if v := e.checkTime(req.Date, req.Time); v != nil {
		return e.record(span, v), nil
	}
	if req.Dentist == nil || req.Dentist.Role != directory.RoleDentist {
		return e.record(span, violation(RuleUnknownDentist)), nil
	}
	if req.Service == nil {
		return e.record(span, violation(RuleUnknownService)), nil
	}
	if req.Clinic == nil {
		return e.record(span, violation(RuleUnknownClinic)), nil
	}
	if v, err := e.checkDentistSlot(ctx, req.Dentist.ID, req.Date, req.Time, uuid.Nil); v != nil || err != nil {
		return e.record(span, v), err
	}
	if v, err := e.checkPatientSlot(ctx, req.PatientID, req.Date, req.Time); v != nil || err != nil {
		return e.record(span, v), err
	}
	return nil, nil
}

// ValidateReschedule runs the reschedule pipeline for moving appt to a new
// date and time. The appointment itself is excluded from conflict checks.
func (e *Engine) ValidateReschedule(ctx context.Context, appt *appointments.Appointment, newDate time.Time, newTime appointments.TimeOfDay) (*Violation, error) {
	ctx, span := tracer.Start(ctx, "booking.validate_reschedule")
	defer span.End()

	if appt.Status != appointments.StatusConfirmed {
		return e.record(span, violation(RuleNotModifiable)), nil
	}
	if v, err := e.checkNoPendingRequest(ctx, appt.PatientID); v != nil || err != nil {
		return e.record(span, v), err
	}
	if v := e.checkDate(newDate); v != nil {
		return e.record(span, v), nil
	}
	if v := e.checkTime(newDate, newTime); v != nil {
		return e.record(span, v), nil
	}
	if v, err := e.checkDentistSlot(ctx, appt.DentistID, newDate, newTime, appt.ID); v != nil || err != nil {
		return e.record(span, v), err
	}
	if v, err := e.checkWeeklyCap(ctx, appt.PatientID, newDate, appt.ID); v != nil || err != nil {
		return e.record(span, v), err
	}
	return nil, nil
}

// ValidateCancel runs the cancellation pipeline.
func (e *Engine) ValidateCancel(ctx context.Context, appt *appointments.Appointment) (*Violation, error) {
	ctx, span := tracer.Start(ctx, "booking.validate_cancel")
	defer span.End()

	if appt.Status != appointments.StatusConfirmed {
		return e.record(span, violation(RuleNotModifiable)), nil
	}
	if v, err := e.checkNoPendingRequest(ctx, appt.PatientID); v != nil || err != nil {
		return e.record(span, v), err
	}
	return nil, nil
}

func (e *Engine) checkNoPendingRequest(ctx context.Context, patientID uuid.UUID) (*Violation, error) {
	locked, err := e.appts.HasPendingRequest(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("booking: pending request check: %w", err)
	}
	if locked {
		return violation(RulePendingLock), nil
	}
	return nil, nil
}

func (e *Engine) checkWeeklyCap(ctx context.Context, patientID uuid.UUID, date time.Time, exclude uuid.UUID) (*Violation, error) {
	weekStart, weekEnd := appointments.ISOWeekBounds(date)
	n, err := e.appts.CountActiveInWeek(ctx, patientID, weekStart, weekEnd, exclude)
	if err != nil {
		return nil, fmt.Errorf("booking: weekly cap check: %w", err)
	}
	if n >= 1 {
		return violation(RuleWeeklyCap), nil
	}
	return nil, nil
}

func (e *Engine) checkDate(date time.Time) *Violation {
	now := e.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, date.Location())
	if date.Before(today) {
		return violation(RulePastDate)
	}
	if date.Weekday() == time.Sunday {
		return violation(RuleSundayClosed)
	}
	return nil
}

func (e *Engine) checkTime(date time.Time, t appointments.TimeOfDay) *Violation {
	hours, open := availability.ClinicHours(date.Weekday())
	if !open {
		return violation(RuleSundayClosed)
	}
	if t.MinuteOfDay() < hours.Start.MinuteOfDay() ||
		t.MinuteOfDay()+availability.SlotMinutes > hours.End.MinuteOfDay() {
		return violation(RuleOutsideHours)
	}
	now := e.now()
	sameDay := date.Year() == now.Year() && date.YearDay() == now.YearDay()
	if sameDay && t.MinuteOfDay() <= now.Hour()*60+now.Minute() {
		return violation(RulePastTimeToday)
	}
	return nil
}

func (e *Engine) checkDentistSlot(ctx context.Context, dentistID uuid.UUID, date time.Time, t appointments.TimeOfDay, exclude uuid.UUID) (*Violation, error) {
	taken, err := e.appts.DentistSlotTaken(ctx, dentistID, date, t, exclude)
	if err != nil {
		return nil, fmt.Errorf("booking: dentist slot check: %w", err)
	}
	if taken {
		return violation(RuleDentistSlotTaken), nil
	}
	return nil, nil
}

func (e *Engine) checkPatientSlot(ctx context.Context, patientID uuid.UUID, date time.Time, t appointments.TimeOfDay) (*Violation, error) {
	taken, err := e.appts.PatientSlotTaken(ctx, patientID, date, t)
	if err != nil {
		return nil, fmt.Errorf("booking: patient slot check: %w", err)
	}
	if taken {
		return violation(RulePatientSlotTaken), nil
	}
	return nil, nil
}

// record annotates the span and log when a rule rejects the attempt.
func (e *Engine) record(span trace.Span, v *Violation) *Violation {
	if v == nil {
		return nil
	}
	span.SetAttributes(attribute.String("booking.violation", string(v.Rule)))
	e.logger.Debug("booking validation rejected", "rule", v.Rule)
	return v
}
