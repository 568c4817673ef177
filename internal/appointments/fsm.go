package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dorotheo-dental/sage/pkg/logging"
)

var fsmTracer = otel.Tracer("sage/appointments")

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending             Status = "pending"
	StatusConfirmed           Status = "confirmed"
	StatusWaiting             Status = "waiting"
	StatusRejected            Status = "rejected"
	StatusRescheduleRequested Status = "reschedule_requested"
	StatusCancelRequested     Status = "cancel_requested"
	StatusCancelled           Status = "cancelled"
	StatusCompleted           Status = "completed"
	StatusMissed              Status = "missed"
)

// ValidTransitions is the full transition table. Terminal states map to an
// empty set.
var ValidTransitions = map[Status][]Status{
	StatusPending:             {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed:           {StatusWaiting, StatusRescheduleRequested, StatusCancelRequested, StatusCompleted, StatusMissed, StatusCancelled},
	StatusWaiting:             {StatusCompleted, StatusCancelled, StatusMissed},
	StatusRescheduleRequested: {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusCancelRequested:     {StatusCancelled, StatusConfirmed},
	StatusRejected:            {},
	StatusCancelled:           {},
	StatusCompleted:           {},
	StatusMissed:              {},
}

// ActiveStatuses are the states that occupy a slot and count against the
// weekly cap.
var ActiveStatuses = []Status{StatusConfirmed, StatusPending}

// PendingRequestStatuses trigger the per-patient lock that blocks all new
// booking, reschedule, and cancel actions until staff resolve the request.
var PendingRequestStatuses = []Status{StatusRescheduleRequested, StatusCancelRequested}

// IsValid reports whether s is a recognized status.
func (s Status) IsValid() bool {
	_, ok := ValidTransitions[s]
	return ok
}

// CanTransitionTo reports whether the move s -> to is in the table.
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range ValidTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ErrNotEligible is the only transition error callers may show to patients.
// The precise rule violation is logged internally, never surfaced to chat.
var ErrNotEligible = errors.New("appointment is not eligible for that action right now")

// TransitionStore is the persistence surface the lifecycle needs.
type TransitionStore interface {
	// UpdateStatus moves an appointment from one status to another, guarded
	// by the current status. Returns false if the row was not in `from`
	// (concurrent mover or stale read).
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)
	// StageReschedule stores the requested slot and moves the row into
	// reschedule_requested in one guarded statement.
	StageReschedule(ctx context.Context, id string, from Status, newDate time.Time, newTime TimeOfDay) (bool, error)
	// StageCancel stores the cancellation reason and moves the row into
	// cancel_requested in one guarded statement.
	StageCancel(ctx context.Context, id string, from Status, reason string, requestedAt time.Time) (bool, error)
	// RecordTransition appends an audit row. Failures are the caller's to
	// handle; the status change has already committed.
	RecordTransition(ctx context.Context, id string, from, to Status, actor, reason string) error
}

// Lifecycle applies state-machine transitions and writes the audit trail.
type Lifecycle struct {
	store  TransitionStore
	logger *logging.Logger
}

// NewLifecycle constructs the transition service.
func NewLifecycle(store TransitionStore, logger *logging.Logger) *Lifecycle {
	if store == nil {
		panic("appointments: transition store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{store: store, logger: logger}
}

// Transition moves appt to the new status if the state machine allows it,
// persists the change atomically, and records the actor and reason. On any
// rule violation the caller receives ErrNotEligible; the specifics go to the
// log only.
func (l *Lifecycle) Transition(ctx context.Context, appt *Appointment, to Status, actor, reason string) error {
	ctx, span := fsmTracer.Start(ctx, "appointments.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("appointment.id", appt.ID.String()),
		attribute.String("appointment.from", string(appt.Status)),
		attribute.String("appointment.to", string(to)),
	)

	from := appt.Status
	if !from.IsValid() || !to.IsValid() {
		l.logger.Warn("transition rejected: unrecognized status",
			"appointment_id", appt.ID, "from", from, "to", to, "actor", actor)
		return ErrNotEligible
	}
	if !from.CanTransitionTo(to) {
		l.logger.Warn("transition rejected: not allowed by state machine",
			"appointment_id", appt.ID, "from", from, "to", to, "actor", actor)
		return ErrNotEligible
	}

	moved, err := l.store.UpdateStatus(ctx, appt.ID.String(), from, to)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: persist transition: %w", err)
	}
	if !moved {
		// Row was no longer in `from`: a concurrent request won the race.
		l.logger.Warn("transition rejected: status changed concurrently",
			"appointment_id", appt.ID, "from", from, "to", to, "actor", actor)
		return ErrNotEligible
	}

	if err := l.store.RecordTransition(ctx, appt.ID.String(), from, to, actor, reason); err != nil {
		// Audit failure must not undo a committed status change.
		l.logger.Error("transition audit write failed",
			"appointment_id", appt.ID, "from", from, "to", to, "error", err)
	}

	appt.Status = to
	l.logger.Info("appointment transitioned",
		"appointment_id", appt.ID, "from", from, "to", to, "actor", actor, "reason", reason)
	return nil
}

// RequestReschedule stages the requested new slot and moves the appointment
// into reschedule_requested. The original slot stays untouched until staff
// approve.
func (l *Lifecycle) RequestReschedule(ctx context.Context, appt *Appointment, newDate time.Time, newTime TimeOfDay, actor string) error {
	ctx, span := fsmTracer.Start(ctx, "appointments.request_reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", appt.ID.String()))

	from := appt.Status
	if !from.CanTransitionTo(StatusRescheduleRequested) {
		l.logger.Warn("reschedule request rejected: not allowed by state machine",
			"appointment_id", appt.ID, "from", from, "actor", actor)
		return ErrNotEligible
	}

	moved, err := l.store.StageReschedule(ctx, appt.ID.String(), from, newDate, newTime)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: stage reschedule: %w", err)
	}
	if !moved {
		l.logger.Warn("reschedule request rejected: status changed concurrently",
			"appointment_id", appt.ID, "from", from, "actor", actor)
		return ErrNotEligible
	}

	if err := l.store.RecordTransition(ctx, appt.ID.String(), from, StatusRescheduleRequested, actor, "patient requested reschedule"); err != nil {
		l.logger.Error("transition audit write failed",
			"appointment_id", appt.ID, "from", from, "to", StatusRescheduleRequested, "error", err)
	}

	appt.Status = StatusRescheduleRequested
	appt.RescheduleDate = &newDate
	appt.RescheduleTime = &newTime
	l.logger.Info("reschedule requested",
		"appointment_id", appt.ID, "new_date", newDate.Format("2006-01-02"), "new_time", newTime.Format24())
	return nil
}

// RequestCancel stages the cancellation reason and moves the appointment into
// cancel_requested. The slot stays held until staff approve.
func (l *Lifecycle) RequestCancel(ctx context.Context, appt *Appointment, reason, actor string) error {
	ctx, span := fsmTracer.Start(ctx, "appointments.request_cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", appt.ID.String()))

	from := appt.Status
	if !from.CanTransitionTo(StatusCancelRequested) {
		l.logger.Warn("cancel request rejected: not allowed by state machine",
			"appointment_id", appt.ID, "from", from, "actor", actor)
		return ErrNotEligible
	}

	requestedAt := time.Now().UTC()
	moved, err := l.store.StageCancel(ctx, appt.ID.String(), from, reason, requestedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: stage cancel: %w", err)
	}
	if !moved {
		l.logger.Warn("cancel request rejected: status changed concurrently",
			"appointment_id", appt.ID, "from", from, "actor", actor)
		return ErrNotEligible
	}

	if err := l.store.RecordTransition(ctx, appt.ID.String(), from, StatusCancelRequested, actor, reason); err != nil {
		l.logger.Error("transition audit write failed",
			"appointment_id", appt.ID, "from", from, "to", StatusCancelRequested, "error", err)
	}

	appt.Status = StatusCancelRequested
	appt.CancelReason = reason
	appt.CancelRequestedAt = &requestedAt
	l.logger.Info("cancellation requested", "appointment_id", appt.ID, "reason", reason)
	return nil
}
