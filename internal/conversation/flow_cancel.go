package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/booking"
	"github.com/dorotheo-dental/sage/internal/intent"
)

// cancelFlow stages a cancellation request: pick the appointment, confirm
// yes/no, then hand it to staff. The slot stays held until they approve.
func (e *Engine) cancelFlow(ctx context.Context, t *turn) (Reply, error) {
	candidates, err := e.appts.ListForPatient(ctx, t.patient.ID, []appointments.Status{appointments.StatusConfirmed})
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: list appointments: %w", err)
	}
	if len(candidates) == 0 {
		return e.textReply(bilingual{
			en: "You don't have any confirmed appointments to cancel.",
			tl: "Wala po kayong confirmed na appointment na puwedeng ikansela.",
		}.pick(t.lang), TagFlowComplete), nil
	}

	appt := e.selectAppointment(t, candidates)
	if appt == nil {
		return e.askWhichAppointment(t, candidates, FlowCancel), nil
	}

	atConfirm := t.active && t.marker.Flow == FlowCancel && t.marker.Step == StepCancelConfirm
	if atConfirm && intent.IsNo(t.text) {
		return e.textReply(bilingual{
			en: "Okay, I'll keep your appointment as is.",
			tl: "Sige po, mananatili po ang inyong appointment.",
		}.pick(t.lang), TagFlowComplete), nil
	}
	if atConfirm && intent.IsYes(t.text) {
		return e.submitCancel(ctx, t, appt)
	}

	e.metrics.ObserveFlowStep(string(FlowCancel), strconv.Itoa(StepCancelConfirm))
	msg := bilingual{
		en: fmt.Sprintf("You'd like to cancel your %s. Is that right?", appt.Describe()),
		tl: fmt.Sprintf("Gusto n'yo pong ikansela ang inyong %s. Tama po ba?", appt.Describe()),
	}
	return Reply{
		Text:         e.format(msg.pick(t.lang) + "\n\n" + Marker{Flow: FlowCancel, Step: StepCancelConfirm}.Tag()),
		QuickReplies: []string{"Yes, Confirm", "No, Keep it"},
	}, nil
}

func (e *Engine) submitCancel(ctx context.Context, t *turn, appt *appointments.Appointment) (Reply, error) {
	violation, err := e.validator.ValidateCancel(ctx, appt)
	if err != nil {
		return Reply{}, err
	}
	if violation != nil {
		e.metrics.ObserveRejection(string(violation.Rule))
		if violation.Rule == booking.RulePendingLock {
			return e.textReply(violation.Text(t.lang), TagPendingBlock), nil
		}
		return e.textReply(violation.Text(t.lang), TagFlowComplete), nil
	}

	if err := e.lifecycle.RequestCancel(ctx, appt, "patient requested via chat", t.patient.ID.String()); err != nil {
		if errors.Is(err, appointments.ErrNotEligible) {
			return e.textReply(booking.NotModifiableText(t.lang), TagFlowComplete), nil
		}
		return Reply{}, err
	}

	if e.notifier != nil {
		if err := e.notifier.CancelRequested(ctx, t.patient, appt); err != nil {
			e.logger.Error("cancel notification failed", "appointment_id", appt.ID, "error", err)
		}
	}
	if e.sessions != nil {
		if err := e.sessions.Reset(ctx, t.patient.ID.String()); err != nil {
			e.logger.Warn("session reset failed", "error", err)
		}
	}

	msg := bilingual{
		en: fmt.Sprintf("I've sent your cancellation request for the %s to our staff. You'll be notified once it's processed.",
			appt.Describe()),
		tl: fmt.Sprintf("Naipadala ko na po sa staff namin ang inyong cancellation request para sa %s. Aabisuhan po kayo kapag naproseso na.",
			appt.Describe()),
	}
	reply := e.textReply(msg.pick(t.lang), TagFlowComplete)
	reply.RequestStaged = true
	return reply, nil
}
