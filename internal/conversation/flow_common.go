package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/internal/entities"
	"github.com/dorotheo-dental/sage/internal/language"
)

// DirectoryReader supplies the clinic's reference data.
type DirectoryReader interface {
	ListClinics(ctx context.Context) ([]directory.Clinic, error)
	ListDentists(ctx context.Context) ([]directory.Dentist, error)
	ListServices(ctx context.Context) ([]directory.Service, error)
}

// AppointmentStore is the appointment persistence the flows touch directly.
type AppointmentStore interface {
	Create(ctx context.Context, a *appointments.Appointment) error
	ListForPatient(ctx context.Context, patientID uuid.UUID, statuses []appointments.Status) ([]appointments.Appointment, error)
	HasPendingRequest(ctx context.Context, patientID uuid.UUID) (bool, error)
}

// SlotFinder derives open slots for a dentist and date.
type SlotFinder interface {
	OpenSlots(ctx context.Context, dentistID uuid.UUID, date time.Time) ([]appointments.TimeOfDay, error)
	WorksOnDay(ctx context.Context, dentistID uuid.UUID, day time.Weekday) (bool, error)
}

// Notifier delivers fire-and-forget notifications. Failures are logged by
// the flows, never propagated into the chat reply.
type Notifier interface {
	BookingConfirmed(ctx context.Context, patient *directory.Patient, appt *appointments.Appointment) error
	RescheduleRequested(ctx context.Context, patient *directory.Patient, appt *appointments.Appointment) error
	CancelRequested(ctx context.Context, patient *directory.Patient, appt *appointments.Appointment) error
}

// turn bundles everything the flow controllers need for one inbound message.
type turn struct {
	patient *directory.Patient
	text    string
	window  []ChatMessage // user turns since the last completed flow
	lang    language.Language
	marker  Marker
	active  bool
}

// bilingual is a message pair; Taglish speakers get the Tagalog rendering.
type bilingual struct {
	en string
	tl string
}

func (b bilingual) pick(lang language.Language) string {
	if lang == language.English {
		return b.en
	}
	return b.tl
}

var showMoreWords = []string{
	"show more", "more options", "iba pa", "marami pa", "ipakita pa", "see more",
}

// wantsMore reports whether the message asks to reveal options past the
// display cap.
func wantsMore(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range showMoreWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return strings.TrimSpace(lower) == "more"
}

var anotherDateWords = []string{
	"another date", "different date", "other date", "ibang petsa",
}

// wantsAnotherDate matches the "Another date" quick reply offered when a
// dentist is fully booked, so tapping it reopens the date question.
func wantsAnotherDate(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range anotherDateWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// choiceReply builds a step reply listing options as quick replies. Options
// past the cap are hidden behind a "Show more" entry unless showAll is set.
func (e *Engine) choiceReply(prompt string, options []string, m Marker, lang language.Language, showAll bool) Reply {
	display := options
	truncated := false
	if !showAll && len(options) > e.quickReplyCap {
		display = options[:e.quickReplyCap]
		truncated = true
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n")
	for _, opt := range display {
		sb.WriteString("\n• ")
		sb.WriteString(opt)
	}
	if truncated {
		sb.WriteString("\n\n")
		sb.WriteString(bilingual{
			en: `Say "show more" to see the rest.`,
			tl: `Sabihin po ang "iba pa" para makita ang iba.`,
		}.pick(lang))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.Tag())

	quick := append([]string{}, display...)
	if truncated {
		quick = append(quick, "Show more")
	}
	return Reply{Text: e.format(sb.String()), QuickReplies: quick}
}

// textReply builds a plain reply, optionally tagged.
func (e *Engine) textReply(text string, tags ...string) Reply {
	for _, tag := range tags {
		text = text + "\n\n" + tag
	}
	return Reply{Text: e.format(text)}
}

func (e *Engine) format(text string) string {
	return formatForMobile(text, e.replyMaxLines)
}

// scheduleDraft is the re-derived slot-filling state for the schedule flow.
type scheduleDraft struct {
	clinic  *directory.Clinic
	dentist *directory.Dentist
	service *directory.Service
	date    *time.Time
	timeOD  *appointments.TimeOfDay
}

// gatherSchedule re-derives the draft from the flow window plus the current
// message. Later mentions override earlier ones. Times are only read from
// older turns when written explicitly; the bare-number reading is reserved
// for the message answering the time question.
func (e *Engine) gatherSchedule(ctx context.Context, t *turn) (*scheduleDraft, error) {
	clinics, err := e.directory.ListClinics(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: gather draft: %w", err)
	}
	dentists, err := e.directory.ListDentists(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: gather draft: %w", err)
	}
	services, err := e.directory.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: gather draft: %w", err)
	}

	draft := &scheduleDraft{}
	texts := make([]string, 0, len(t.window)+1)
	for _, msg := range t.window {
		texts = append(texts, msg.Content)
	}
	texts = append(texts, t.text)

	now := e.now()
	for i, text := range texts {
		if c := entities.FindClinic(text, clinics); c != nil {
			draft.clinic = c
		}
		if d := entities.FindDentist(text, dentists); d != nil {
			draft.dentist = d
		}
		if s := entities.FindService(text, services); s != nil {
			draft.service = s
		}
		if d, ok := entities.ParseDate(text, now); ok {
			draft.date = &d
		}
		current := i == len(texts)-1
		if current && t.active && t.marker.Step == StepTime {
			if tod, ok := entities.ParseTime(text); ok {
				draft.timeOD = &tod
			}
		} else if tod, ok := entities.ParseTimeExplicit(text); ok {
			draft.timeOD = &tod
		}
	}
	return draft, nil
}

// selectAppointment resolves which modifiable appointment the patient means,
// reading the window newest-first so the latest selection wins.
func (e *Engine) selectAppointment(t *turn, candidates []appointments.Appointment) *appointments.Appointment {
	if a := entities.MatchAppointment(t.text, candidates); a != nil {
		return a
	}
	for i := len(t.window) - 1; i >= 0; i-- {
		if a := entities.MatchAppointment(t.window[i].Content, candidates); a != nil {
			return a
		}
	}
	return nil
}

// upcomingDatesFor renders the next occurrences of a weekday as quick-reply
// dates, skipping nothing: the clinic is open every day but Sunday, and
// Sunday never reaches here because it cannot be chosen as a weekday option.
func upcomingDatesFor(day time.Weekday, now time.Time, count int) []string {
	out := make([]string, 0, count)
	d := now
	for len(out) < count {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == day {
			out = append(out, d.Format("January 2, 2006"))
		}
	}
	return out
}

var loginRequired = bilingual{
	en: "Please log in to your patient account first so I can help you with appointments.",
	tl: "Mag-login muna po kayo sa inyong patient account para matulungan ko kayo sa appointment.",
}

var pendingBlocked = bilingual{
	en: "You have a request our staff are still reviewing. I can't make new changes until they finish processing it.",
	tl: "May request pa po kayong nirereview ng staff namin. Hindi po ako makakagawa ng bagong pagbabago hangga't hindi pa ito naproseso.",
}

// pendingLockReply is the tagged immediate response when the per-patient
// lock is active.
func (e *Engine) pendingLockReply(lang language.Language) Reply {
	return e.textReply(pendingBlocked.pick(lang), TagPendingBlock)
}

func (e *Engine) loginReply(lang language.Language) Reply {
	return e.textReply(loginRequired.pick(lang))
}
