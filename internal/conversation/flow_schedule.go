package conversation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/booking"
	"github.com/dorotheo-dental/sage/internal/entities"
	"github.com/dorotheo-dental/sage/internal/intent"
)

// scheduleFlow walks the booking dialogue: clinic, dentist, date, time,
// service, then an explicit yes/no confirmation. Every turn re-derives the
// draft from the transcript, asks for the first missing value, and tags the
// reply with the step it asked.
func (e *Engine) scheduleFlow(ctx context.Context, t *turn) (Reply, error) {
	draft, err := e.gatherSchedule(ctx, t)
	if err != nil {
		return Reply{}, err
	}

	// Confirmation answers are meaningful only right after the summary.
	if t.active && t.marker.Flow == FlowSchedule && t.marker.Step == StepConfirm {
		if intent.IsNo(t.text) {
			return e.textReply(bilingual{
				en: "No problem, I won't book anything. Just tell me when you'd like to try again.",
				tl: "Sige po, hindi ko po ibu-book. Sabihin n'yo lang po kapag gusto n'yong subukan ulit.",
			}.pick(t.lang), TagFlowComplete), nil
		}
		if intent.IsYes(t.text) {
			return e.submitBooking(ctx, t, draft)
		}
		// Neither yes nor no: re-show the summary.
		return e.confirmReply(t, draft), nil
	}

	showAll := wantsMore(t.text) && t.active && t.marker.Flow == FlowSchedule

	// "Another date" from the fully-booked alternative offer reopens the
	// date question instead of re-parsing as a dentist answer.
	if t.active && t.marker.Flow == FlowSchedule && t.marker.Step == StepDentist && wantsAnotherDate(t.text) {
		return e.askDate(t, showAll)
	}

	switch {
	case draft.clinic == nil:
		return e.askClinic(ctx, t, showAll)
	case draft.dentist == nil:
		return e.askDentist(ctx, t, showAll)
	case draft.date == nil:
		return e.askDate(t, showAll)
	case draft.date.Weekday() == time.Sunday:
		e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepDate))
		return e.textReply(booking.SundayClosedText(t.lang),
			Marker{Flow: FlowSchedule, Step: StepDate}.Tag()), nil
	case draft.timeOD == nil:
		return e.askTime(ctx, t, draft, showAll)
	case draft.service == nil:
		return e.askService(ctx, t, showAll)
	default:
		e.rememberScheduleDraft(ctx, t, draft)
		return e.confirmReply(t, draft), nil
	}
}

func (e *Engine) askClinic(ctx context.Context, t *turn, showAll bool) (Reply, error) {
	clinics, err := e.directory.ListClinics(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: list clinics: %w", err)
	}
	if len(clinics) == 0 {
		return e.textReply(bilingual{
			en: "I'm sorry, I can't find any open branches right now. Please call the clinic directly.",
			tl: "Pasensya na po, wala po akong makitang bukas na branch ngayon. Tumawag po nang direkta sa clinic.",
		}.pick(t.lang), TagFlowComplete), nil
	}
	names := make([]string, len(clinics))
	for i, c := range clinics {
		names[i] = c.Name
	}
	e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepClinic))
	prompt := bilingual{
		en: "Great, let's book you an appointment! Which branch would you like to visit?",
		tl: "Sige po, mag-book po tayo ng appointment! Saang branch po kayo gustong pumunta?",
	}
	return e.choiceReply(prompt.pick(t.lang), names, Marker{Flow: FlowSchedule, Step: StepClinic}, t.lang, showAll), nil
}

func (e *Engine) askDentist(ctx context.Context, t *turn, showAll bool) (Reply, error) {
	dentists, err := e.directory.ListDentists(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: list dentists: %w", err)
	}
	if len(dentists) == 0 {
		return e.textReply(bilingual{
			en: "I'm sorry, no dentists are available for booking right now. Please call the clinic directly.",
			tl: "Pasensya na po, walang dentistang puwedeng i-book sa ngayon. Tumawag po nang direkta sa clinic.",
		}.pick(t.lang), TagFlowComplete), nil
	}
	names := make([]string, len(dentists))
	for i, d := range dentists {
		names[i] = d.DisplayName()
	}
	e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepDentist))
	prompt := bilingual{
		en: "Which dentist would you like to see?",
		tl: "Sinong dentista po ang gusto n'yong puntahan?",
	}
	return e.choiceReply(prompt.pick(t.lang), names, Marker{Flow: FlowSchedule, Step: StepDentist}, t.lang, showAll), nil
}

func (e *Engine) askDate(t *turn, showAll bool) (Reply, error) {
	// A bare weekday answer lists all of its upcoming dates instead of
	// silently taking the nearest one.
	if day, ok := entities.ParseWeekday(t.text); ok {
		if day == time.Sunday {
			return e.textReply(booking.SundayClosedText(t.lang),
				Marker{Flow: FlowSchedule, Step: StepDate}.Tag()), nil
		}
		dates := upcomingDatesFor(day, e.now(), 4)
		e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepDate))
		prompt := bilingual{
			en: "Which of these dates did you mean?",
			tl: "Alin po sa mga petsang ito ang ibig n'yong sabihin?",
		}
		return e.choiceReply(prompt.pick(t.lang), dates, Marker{Flow: FlowSchedule, Step: StepDate}, t.lang, showAll), nil
	}

	e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepDate))
	prompt := bilingual{
		en: `What date works for you? You can say things like "tomorrow", "September 3", or "next Friday".`,
		tl: `Anong petsa po ang okay sa inyo? Puwede pong "bukas", "Setyembre 3", o "sa Biyernes".`,
	}
	dates := []string{
		e.now().AddDate(0, 0, 1).Format("January 2, 2006"),
		e.now().AddDate(0, 0, 2).Format("January 2, 2006"),
		e.now().AddDate(0, 0, 3).Format("January 2, 2006"),
	}
	return e.choiceReply(prompt.pick(t.lang), dates, Marker{Flow: FlowSchedule, Step: StepDate}, t.lang, showAll), nil
}

func (e *Engine) askTime(ctx context.Context, t *turn, draft *scheduleDraft, showAll bool) (Reply, error) {
	slots, err := e.slots.OpenSlots(ctx, draft.dentist.ID, *draft.date)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: open slots: %w", err)
	}
	if len(slots) == 0 {
		return e.offerTimeAlternative(ctx, t, draft)
	}
	options := make([]string, len(slots))
	for i, s := range slots {
		options[i] = s.String()
	}
	e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepTime))
	prompt := bilingual{
		en: fmt.Sprintf("Here are %s's open slots on %s. What time suits you?",
			draft.dentist.DisplayName(), draft.date.Format("January 2, 2006")),
		tl: fmt.Sprintf("Narito po ang mga bakanteng oras ni %s sa %s. Anong oras po ang okay sa inyo?",
			draft.dentist.DisplayName(), draft.date.Format("January 2, 2006")),
	}
	return e.choiceReply(prompt.pick(t.lang), options, Marker{Flow: FlowSchedule, Step: StepTime}, t.lang, showAll), nil
}

// offerTimeAlternative handles a fully booked dentist: another dentist with
// openings on the same date if one exists, otherwise another date.
func (e *Engine) offerTimeAlternative(ctx context.Context, t *turn, draft *scheduleDraft) (Reply, error) {
	dentists, err := e.directory.ListDentists(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: list dentists: %w", err)
	}
	for _, d := range dentists {
		if d.ID == draft.dentist.ID {
			continue
		}
		slots, err := e.slots.OpenSlots(ctx, d.ID, *draft.date)
		if err != nil {
			e.logger.Warn("alternative dentist slot lookup failed", "dentist_id", d.ID, "error", err)
			continue
		}
		if len(slots) > 0 {
			e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepDentist))
			msg := bilingual{
				en: fmt.Sprintf("%s is fully booked on %s, but %s has openings that day. Would you like to see %s instead, or pick another date?",
					draft.dentist.DisplayName(), draft.date.Format("January 2, 2006"), d.DisplayName(), d.DisplayName()),
				tl: fmt.Sprintf("Puno na po ang schedule ni %s sa %s, pero may bakante po si %s sa araw na iyon. Gusto n'yo po ba kay %s na lang, o pipili ng ibang petsa?",
					draft.dentist.DisplayName(), draft.date.Format("January 2, 2006"), d.DisplayName(), d.DisplayName()),
			}
			return Reply{
				Text:         e.format(msg.pick(t.lang) + "\n\n" + Marker{Flow: FlowSchedule, Step: StepDentist}.Tag()),
				QuickReplies: []string{d.DisplayName(), "Another date"},
			}, nil
		}
	}
	e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepDate))
	msg := bilingual{
		en: fmt.Sprintf("I'm sorry, there are no open slots on %s. Could you pick another date?",
			draft.date.Format("January 2, 2006")),
		tl: fmt.Sprintf("Pasensya na po, wala nang bakanteng oras sa %s. Pumili po kaya kayo ng ibang petsa?",
			draft.date.Format("January 2, 2006")),
	}
	return e.textReply(msg.pick(t.lang), Marker{Flow: FlowSchedule, Step: StepDate}.Tag()), nil
}

func (e *Engine) askService(ctx context.Context, t *turn, showAll bool) (Reply, error) {
	services, err := e.directory.ListServices(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: list services: %w", err)
	}
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = s.Name
	}
	e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepService))
	prompt := bilingual{
		en: "What service do you need?",
		tl: "Anong serbisyo po ang kailangan n'yo?",
	}
	return e.choiceReply(prompt.pick(t.lang), names, Marker{Flow: FlowSchedule, Step: StepService}, t.lang, showAll), nil
}

func (e *Engine) confirmReply(t *turn, draft *scheduleDraft) Reply {
	e.metrics.ObserveFlowStep(string(FlowSchedule), strconv.Itoa(StepConfirm))
	header := bilingual{
		en: "Here's your appointment. Shall I book it?",
		tl: "Narito po ang inyong appointment. Iku-confirm ko na po ba?",
	}
	body := fmt.Sprintf("\n\n%s\n%s\n%s\n%s %s",
		draft.service.Name,
		draft.dentist.DisplayName(),
		draft.clinic.Name,
		draft.date.Format("January 2, 2006"), draft.timeOD.String())
	return Reply{
		Text:         e.format(header.pick(t.lang) + body + "\n\n" + Marker{Flow: FlowSchedule, Step: StepConfirm}.Tag()),
		QuickReplies: []string{"Yes, Confirm", "No, Cancel"},
	}
}

func (e *Engine) submitBooking(ctx context.Context, t *turn, draft *scheduleDraft) (Reply, error) {
	if draft.clinic == nil || draft.dentist == nil || draft.service == nil || draft.date == nil || draft.timeOD == nil {
		// The transcript no longer supports a full draft; start over.
		return e.scheduleFlow(ctx, &turn{
			patient: t.patient, text: t.text, window: t.window, lang: t.lang,
		})
	}

	req := booking.NewBookingRequest{
		PatientID: t.patient.ID,
		Clinic:    draft.clinic,
		Dentist:   draft.dentist,
		Service:   draft.service,
		Date:      *draft.date,
		Time:      *draft.timeOD,
	}
	violation, err := e.validator.ValidateNewBooking(ctx, req)
	if err != nil {
		return Reply{}, err
	}
	if violation != nil {
		return e.violationReply(t, violation), nil
	}

	appt := &appointments.Appointment{
		PatientID:   t.patient.ID,
		DentistID:   draft.dentist.ID,
		ServiceID:   draft.service.ID,
		ClinicID:    draft.clinic.ID,
		Date:        *draft.date,
		Time:        *draft.timeOD,
		Status:      appointments.StatusConfirmed,
		DentistName: draft.dentist.FullName(),
		ServiceName: draft.service.Name,
		ClinicName:  draft.clinic.Name,
	}
	if err := e.appts.Create(ctx, appt); err != nil {
		return Reply{}, fmt.Errorf("conversation: create appointment: %w", err)
	}
	e.logger.Info("appointment booked",
		"appointment_id", appt.ID, "patient_id", t.patient.ID, "dentist_id", appt.DentistID,
		"date", appt.Date.Format("2006-01-02"), "time", appt.Time.Format24())

	if e.notifier != nil {
		if err := e.notifier.BookingConfirmed(ctx, t.patient, appt); err != nil {
			e.logger.Error("booking notification failed", "appointment_id", appt.ID, "error", err)
		}
	}
	if e.sessions != nil {
		if err := e.sessions.Reset(ctx, t.patient.ID.String()); err != nil {
			e.logger.Warn("session reset failed", "error", err)
		}
	}

	msg := bilingual{
		en: fmt.Sprintf("You're booked! %s with %s at %s on %s at %s. See you then!",
			appt.ServiceName, draft.dentist.DisplayName(), appt.ClinicName,
			appt.DateString(), appt.Time),
		tl: fmt.Sprintf("Naka-book na po kayo! %s kay %s sa %s sa %s nang %s. Kita-kits po!",
			appt.ServiceName, draft.dentist.DisplayName(), appt.ClinicName,
			appt.DateString(), appt.Time),
	}
	reply := e.textReply(msg.pick(t.lang), TagFlowComplete)
	reply.AppointmentCreated = true
	return reply, nil
}

// violationReply surfaces a business-rule rejection and re-shows the step
// where the conflicting value was supplied.
func (e *Engine) violationReply(t *turn, v *booking.Violation) Reply {
	e.metrics.ObserveRejection(string(v.Rule))
	text := v.Text(t.lang)
	switch v.Hint {
	case booking.HintDate:
		return e.textReply(text, Marker{Flow: FlowSchedule, Step: StepDate}.Tag())
	case booking.HintTime:
		return e.textReply(text, Marker{Flow: FlowSchedule, Step: StepTime}.Tag())
	default:
		if v.Rule == booking.RulePendingLock {
			return e.textReply(text, TagPendingBlock)
		}
		return e.textReply(text, TagFlowComplete)
	}
}

func (e *Engine) rememberScheduleDraft(ctx context.Context, t *turn, draft *scheduleDraft) {
	if e.sessions == nil || t.patient == nil {
		return
	}
	e.rememberDraftField(ctx, t, "clinic", draft.clinic.Name)
	e.rememberDraftField(ctx, t, "dentist", draft.dentist.FullName())
	e.rememberDraftField(ctx, t, "service", draft.service.Name)
	e.rememberDraftField(ctx, t, "date", draft.date.Format("2006-01-02"))
	e.rememberDraftField(ctx, t, "time", draft.timeOD.Format24())
}
