package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/booking"
	"github.com/dorotheo-dental/sage/internal/entities"
)

// rescheduleFlow moves an existing appointment to a new date and time. The
// dentist and service never change here. Selecting a concrete time submits
// the request; there is no second confirmation step.
func (e *Engine) rescheduleFlow(ctx context.Context, t *turn) (Reply, error) {
	candidates, err := e.appts.ListForPatient(ctx, t.patient.ID, []appointments.Status{appointments.StatusConfirmed})
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: list appointments: %w", err)
	}
	if len(candidates) == 0 {
		return e.textReply(bilingual{
			en: "You don't have any confirmed appointments to move. Would you like to book a new one?",
			tl: "Wala po kayong confirmed na appointment na puwedeng ilipat. Gusto n'yo po bang mag-book ng bago?",
		}.pick(t.lang), TagFlowComplete), nil
	}

	appt := e.selectAppointment(t, candidates)
	if appt == nil {
		return e.askWhichAppointment(t, candidates, FlowReschedule), nil
	}

	newDate, newTime := e.gatherNewSlot(t, appt)

	if newDate == nil {
		// A bare weekday lists all of its upcoming dates.
		if day, ok := entities.ParseWeekday(t.text); ok && day != time.Sunday {
			dates := upcomingDatesFor(day, e.now(), 4)
			e.metrics.ObserveFlowStep(string(FlowReschedule), strconv.Itoa(StepNewDate))
			prompt := bilingual{
				en: "Which of these dates did you mean?",
				tl: "Alin po sa mga petsang ito ang ibig n'yong sabihin?",
			}
			return e.choiceReply(prompt.pick(t.lang), dates, Marker{Flow: FlowReschedule, Step: StepNewDate}, t.lang, false), nil
		}
		e.metrics.ObserveFlowStep(string(FlowReschedule), strconv.Itoa(StepNewDate))
		msg := bilingual{
			en: fmt.Sprintf("Moving your %s. What new date would you like?", appt.Describe()),
			tl: fmt.Sprintf("Ililipat po ang inyong %s. Anong bagong petsa po ang gusto n'yo?", appt.Describe()),
		}
		return e.textReply(msg.pick(t.lang), Marker{Flow: FlowReschedule, Step: StepNewDate}.Tag()), nil
	}

	if newDate.Weekday() == time.Sunday {
		e.metrics.ObserveFlowStep(string(FlowReschedule), strconv.Itoa(StepNewDate))
		return e.textReply(booking.SundayClosedText(t.lang),
			Marker{Flow: FlowReschedule, Step: StepNewDate}.Tag()), nil
	}

	if newTime == nil {
		slots, err := e.slots.OpenSlots(ctx, appt.DentistID, *newDate)
		if err != nil {
			return Reply{}, fmt.Errorf("conversation: open slots: %w", err)
		}
		if len(slots) == 0 {
			e.metrics.ObserveFlowStep(string(FlowReschedule), strconv.Itoa(StepNewDate))
			msg := bilingual{
				en: fmt.Sprintf("There are no open slots on %s. Could you pick another date?", newDate.Format("January 2, 2006")),
				tl: fmt.Sprintf("Wala pong bakanteng oras sa %s. Pumili po kaya kayo ng ibang petsa?", newDate.Format("January 2, 2006")),
			}
			return e.textReply(msg.pick(t.lang), Marker{Flow: FlowReschedule, Step: StepNewDate}.Tag()), nil
		}
		options := make([]string, len(slots))
		for i, s := range slots {
			options[i] = s.String()
		}
		e.metrics.ObserveFlowStep(string(FlowReschedule), strconv.Itoa(StepNewTime))
		prompt := bilingual{
			en: fmt.Sprintf("Open slots on %s. What time would you like?", newDate.Format("January 2, 2006")),
			tl: fmt.Sprintf("Mga bakanteng oras sa %s. Anong oras po ang gusto n'yo?", newDate.Format("January 2, 2006")),
		}
		return e.choiceReply(prompt.pick(t.lang), options, Marker{Flow: FlowReschedule, Step: StepNewTime}, t.lang, wantsMore(t.text)), nil
	}

	return e.submitReschedule(ctx, t, appt, *newDate, *newTime)
}

// gatherNewSlot pulls the requested date and time from the window plus the
// current message. Mentions of the appointment's existing date identify it
// ("move my September 3 appointment") and never read as the new target, so
// they are stripped before date extraction.
func (e *Engine) gatherNewSlot(t *turn, appt *appointments.Appointment) (*time.Time, *appointments.TimeOfDay) {
	var date *time.Time
	var tod *appointments.TimeOfDay

	now := e.now()
	texts := make([]string, 0, len(t.window)+1)
	for _, msg := range t.window {
		texts = append(texts, msg.Content)
	}
	texts = append(texts, t.text)

	for i, text := range texts {
		if d, ok := entities.ParseDate(stripCurrentDate(text, appt.Date), now); ok {
			date = &d
		}
		current := i == len(texts)-1
		if current && t.active && t.marker.Flow == FlowReschedule && t.marker.Step == StepNewTime {
			if v, ok := entities.ParseTime(text); ok {
				tod = &v
			}
		} else if v, ok := entities.ParseTimeExplicit(text); ok {
			tod = &v
		}
	}
	return date, tod
}

// stripCurrentDate removes the renderings of the appointment's current date
// that appointment matching recognizes. Longest rendering first, so the
// shorter form cannot leave a dangling year behind.
func stripCurrentDate(text string, current time.Time) string {
	for _, layout := range []string{"January 2, 2006", "January 2", "1/2/2006"} {
		text = removeFold(text, current.Format(layout))
	}
	return text
}

func removeFold(text, sub string) string {
	lower := strings.ToLower(text)
	sub = strings.ToLower(sub)
	for {
		i := strings.Index(lower, sub)
		if i < 0 {
			return text
		}
		text = text[:i] + text[i+len(sub):]
		lower = lower[:i] + lower[i+len(sub):]
	}
}

func (e *Engine) submitReschedule(ctx context.Context, t *turn, appt *appointments.Appointment, newDate time.Time, newTime appointments.TimeOfDay) (Reply, error) {
	violation, err := e.validator.ValidateReschedule(ctx, appt, newDate, newTime)
	if err != nil {
		return Reply{}, err
	}
	if violation != nil {
		return e.rescheduleViolationReply(t, violation), nil
	}

	if err := e.lifecycle.RequestReschedule(ctx, appt, newDate, newTime, t.patient.ID.String()); err != nil {
		if errors.Is(err, appointments.ErrNotEligible) {
			return e.textReply(booking.NotModifiableText(t.lang), TagFlowComplete), nil
		}
		return Reply{}, err
	}

	if e.notifier != nil {
		if err := e.notifier.RescheduleRequested(ctx, t.patient, appt); err != nil {
			e.logger.Error("reschedule notification failed", "appointment_id", appt.ID, "error", err)
		}
	}
	if e.sessions != nil {
		if err := e.sessions.Reset(ctx, t.patient.ID.String()); err != nil {
			e.logger.Warn("session reset failed", "error", err)
		}
	}

	msg := bilingual{
		en: fmt.Sprintf("Got it! I've asked our staff to move your %s to %s at %s. You'll be notified once they approve it.",
			appt.ServiceName, newDate.Format("January 2, 2006"), newTime),
		tl: fmt.Sprintf("Sige po! Hiniling ko na sa staff namin na ilipat ang inyong %s sa %s nang %s. Aabisuhan po kayo kapag na-aprubahan na.",
			appt.ServiceName, newDate.Format("January 2, 2006"), newTime),
	}
	reply := e.textReply(msg.pick(t.lang), TagFlowComplete)
	reply.RequestStaged = true
	return reply, nil
}

func (e *Engine) rescheduleViolationReply(t *turn, v *booking.Violation) Reply {
	e.metrics.ObserveRejection(string(v.Rule))
	text := v.Text(t.lang)
	switch v.Hint {
	case booking.HintDate:
		return e.textReply(text, Marker{Flow: FlowReschedule, Step: StepNewDate}.Tag())
	case booking.HintTime:
		return e.textReply(text, Marker{Flow: FlowReschedule, Step: StepNewTime}.Tag())
	default:
		if v.Rule == booking.RulePendingLock {
			return e.textReply(text, TagPendingBlock)
		}
		return e.textReply(text, TagFlowComplete)
	}
}

// askWhichAppointment lists the patient's modifiable appointments for
// selection, shared by the reschedule and cancel flows.
func (e *Engine) askWhichAppointment(t *turn, candidates []appointments.Appointment, flow Flow) Reply {
	options := make([]string, len(candidates))
	for i, a := range candidates {
		options[i] = a.Describe()
	}
	e.metrics.ObserveFlowStep(string(flow), strconv.Itoa(StepPickAppointment))
	var prompt bilingual
	if flow == FlowCancel {
		prompt = bilingual{
			en: "Which appointment would you like to cancel?",
			tl: "Aling appointment po ang gusto n'yong ikansela?",
		}
	} else {
		prompt = bilingual{
			en: "Which appointment would you like to move?",
			tl: "Aling appointment po ang gusto n'yong ilipat?",
		}
	}
	return e.choiceReply(prompt.pick(t.lang), options, Marker{Flow: flow, Step: StepPickAppointment}, t.lang, wantsMore(t.text))
}
