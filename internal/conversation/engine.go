package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/booking"
	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/internal/intent"
	"github.com/dorotheo-dental/sage/internal/language"
	"github.com/dorotheo-dental/sage/internal/observability/metrics"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

var tracer = otel.Tracer("sage/conversation")

// Engine processes one chat turn at a time. Everything it needs to answer is
// in the arguments: the transcript carries flow position, the database
// carries appointments, and the optional session store only accelerates
// draft display.
type Engine struct {
	classifier *intent.Classifier
	directory  DirectoryReader
	appts      AppointmentStore
	slots      SlotFinder
	validator  *booking.Engine
	lifecycle  *appointments.Lifecycle
	notifier   Notifier
	sessions   *SessionStore
	metrics    *metrics.ConversationMetrics
	logger     *logging.Logger

	quickReplyCap int
	replyMaxLines int
	now           func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithSessionStore enables the optional redis draft memory.
func WithSessionStore(s *SessionStore) Option {
	return func(e *Engine) { e.sessions = s }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.ConversationMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithQuickReplyCap overrides the display cap for choice lists.
func WithQuickReplyCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.quickReplyCap = n
		}
	}
}

// WithReplyMaxLines overrides the mobile line cap.
func WithReplyMaxLines(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.replyMaxLines = n
		}
	}
}

// WithClock overrides the engine's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine constructs the chat engine.
func NewEngine(
	classifier *intent.Classifier,
	dir DirectoryReader,
	appts AppointmentStore,
	slots SlotFinder,
	validator *booking.Engine,
	lifecycle *appointments.Lifecycle,
	notifier Notifier,
	logger *logging.Logger,
	opts ...Option,
) *Engine {
	if classifier == nil {
		panic("conversation: intent classifier required")
	}
	if dir == nil || appts == nil || slots == nil || validator == nil || lifecycle == nil {
		panic("conversation: directory, appointments, slots, validator, and lifecycle are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		classifier:    classifier,
		directory:     dir,
		appts:         appts,
		slots:         slots,
		validator:     validator,
		lifecycle:     lifecycle,
		notifier:      notifier,
		logger:        logger,
		quickReplyCap: 6,
		replyMaxLines: 18,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessMessage answers one inbound message. A nil patient means the user
// is not logged in; informational intents still work, appointment flows do
// not. The engine always returns a reply; collaborator failures degrade the
// answer instead of aborting the turn.
func (e *Engine) ProcessMessage(ctx context.Context, patient *directory.Patient, text string, history []ChatMessage) Reply {
	start := e.now()
	ctx, span := tracer.Start(ctx, "conversation.process_message")
	defer span.End()
	defer func() {
		e.metrics.ObserveTurnLatency(time.Since(start).Seconds())
	}()

	lang := e.detectLanguage(ctx, patient, text)
	span.SetAttributes(attribute.String("conversation.language", string(lang)))
	e.metrics.ObserveLanguage(string(lang))

	if looksLikeInjection(text) {
		e.metrics.ObserveInjection()
		e.logger.Warn("injection attempt refused", "length", len(text))
		return e.safeAssistReply(lang)
	}

	marker, active := Reconstruct(history)
	t := &turn{
		patient: patient,
		text:    text,
		window:  flowWindow(history),
		lang:    lang,
		marker:  marker,
		active:  active,
	}

	res := e.classifier.Classify(ctx, text)
	e.metrics.ObserveIntent(string(res.Intent), res.Source)
	span.SetAttributes(
		attribute.String("conversation.intent", string(res.Intent)),
		attribute.Bool("conversation.flow_active", active),
	)

	// A confirmation answer always belongs to the flow that asked for it;
	// "No, Cancel" at a confirm step must not start the cancel flow.
	if active && (intent.IsYes(text) || intent.IsNo(text)) {
		return e.runFlow(ctx, marker.Flow, t)
	}

	// Otherwise a flow-starting intent wins, even mid-flow: "cancel my
	// appointment" during booking switches to the cancel flow.
	if flow, ok := flowForIntent(res.Intent); ok && (!active || flow != marker.Flow) {
		t.marker = Marker{Flow: flow}
		t.active = false
		return e.runFlow(ctx, flow, t)
	}
	if active {
		return e.runFlow(ctx, marker.Flow, t)
	}
	return e.answerIntent(ctx, t, res.Intent)
}

func flowForIntent(i intent.Intent) (Flow, bool) {
	switch i {
	case intent.Schedule:
		return FlowSchedule, true
	case intent.Reschedule:
		return FlowReschedule, true
	case intent.Cancel:
		return FlowCancel, true
	}
	return "", false
}

func (e *Engine) runFlow(ctx context.Context, flow Flow, t *turn) Reply {
	if t.patient == nil {
		return e.loginReply(t.lang)
	}

	locked, err := e.appts.HasPendingRequest(ctx, t.patient.ID)
	if err != nil {
		e.logger.Error("pending lock check failed", "error", err)
		return e.degradedReply(t.lang)
	}
	if locked {
		return e.pendingLockReply(t.lang)
	}

	var reply Reply
	switch flow {
	case FlowSchedule:
		reply, err = e.scheduleFlow(ctx, t)
	case FlowReschedule:
		reply, err = e.rescheduleFlow(ctx, t)
	case FlowCancel:
		reply, err = e.cancelFlow(ctx, t)
	}
	if err != nil {
		e.logger.Error("flow failed", "flow", flow, "error", err)
		return e.degradedReply(t.lang)
	}
	return reply
}

func (e *Engine) detectLanguage(ctx context.Context, patient *directory.Patient, text string) language.Language {
	det := language.Detect(text)
	lang := det.Language

	if e.sessions == nil || patient == nil {
		return lang
	}
	// Low-confidence detection leans on the language remembered for this
	// patient; either way the draft keeps the latest confident reading.
	draft, err := e.sessions.Get(ctx, patient.ID.String())
	if err != nil {
		e.logger.Warn("session load failed", "error", err)
		return lang
	}
	if draft == nil {
		draft = &BookingDraft{}
	}
	if det.Confidence < 0.6 && draft.Language != "" {
		lang = language.Language(draft.Language)
	} else {
		draft.Language = string(lang)
	}
	if err := e.sessions.Save(ctx, patient.ID.String(), draft); err != nil {
		e.logger.Warn("session save failed", "error", err)
	}
	return lang
}

// rememberDraftField records a confirmed slot value in the session draft,
// best effort.
func (e *Engine) rememberDraftField(ctx context.Context, t *turn, field, value string) {
	if e.sessions == nil || t.patient == nil {
		return
	}
	id := t.patient.ID.String()
	draft, err := e.sessions.Get(ctx, id)
	if err != nil || draft == nil {
		draft = &BookingDraft{Language: string(t.lang)}
	}
	draft.SetField(field, value, 1.0)
	if err := e.sessions.Save(ctx, id, draft); err != nil {
		e.logger.Warn("session save failed", "error", err)
	}
}

func (e *Engine) answerIntent(ctx context.Context, t *turn, it intent.Intent) Reply {
	switch it {
	case intent.Greeting:
		return e.greetingReply(t)
	case intent.ClinicInfo:
		return e.clinicInfoReply(ctx, t)
	case intent.DentalAdvice:
		return e.dentalAdviceReply(t)
	case intent.OutOfScope:
		return e.outOfScopeReply(t.lang)
	default:
		return e.safeAssistReply(t.lang)
	}
}

func (e *Engine) greetingReply(t *turn) Reply {
	name := ""
	if t.patient != nil {
		name = " " + t.patient.FirstName
	}
	msg := bilingual{
		en: fmt.Sprintf("Hello%s! I'm Sage, the Dorotheo Dental Clinic assistant. I can book, move, or cancel appointments and answer questions about the clinic.", name),
		tl: fmt.Sprintf("Kumusta%s! Ako po si Sage, ang assistant ng Dorotheo Dental Clinic. Puwede po akong mag-book, maglipat, o magkansela ng appointment, at sumagot ng tanong tungkol sa clinic.", name),
	}
	return Reply{
		Text: e.format(msg.pick(t.lang)),
		QuickReplies: []string{
			"Book an appointment", "Clinic hours", "Our services",
		},
	}
}

func (e *Engine) clinicInfoReply(ctx context.Context, t *turn) Reply {
	clinics, err := e.directory.ListClinics(ctx)
	if err != nil {
		e.logger.Error("clinic info lookup failed", "error", err)
		return e.degradedReply(t.lang)
	}

	var sb strings.Builder
	sb.WriteString(bilingual{
		en: "Here's our clinic information:",
		tl: "Narito po ang impormasyon ng aming clinic:",
	}.pick(t.lang))
	sb.WriteString("\n")
	for _, c := range clinics {
		sb.WriteString(fmt.Sprintf("\n%s\n%s\n%s\n", c.Name, c.Address, c.Phone))
	}
	sb.WriteString("\n")
	sb.WriteString(bilingual{
		en: "Hours: Mon-Fri 8:00 AM-6:00 PM, Sat 9:00 AM-3:00 PM, closed Sundays.",
		tl: "Oras: Lun-Biy 8:00 AM-6:00 PM, Sab 9:00 AM-3:00 PM, sarado tuwing Linggo.",
	}.pick(t.lang))
	return Reply{
		Text:         e.format(sb.String()),
		QuickReplies: []string{"Book an appointment", "Our services"},
	}
}

// adviceLeads match against the normalized (Tagalog-to-English) query so
// "masakit ang ngipin ko" lands in the same bucket as "my tooth hurts".
var adviceLeads = []struct {
	keywords []string
	lead     bilingual
}{
	{[]string{"pain", "painful", "toothache"}, bilingual{
		en: "I'm sorry to hear about the pain.",
		tl: "Naku po, pasensya na sa sakit na nararamdaman n'yo.",
	}},
	{[]string{"bleeding", "gums"}, bilingual{
		en: "Bleeding gums can have many causes.",
		tl: "Maraming posibleng dahilan po ang pagdurugo ng gilagid.",
	}},
	{[]string{"swelling", "swollen"}, bilingual{
		en: "Swelling should be checked soon.",
		tl: "Dapat po mapatingnan agad ang pamamaga.",
	}},
}

func (e *Engine) dentalAdviceReply(t *turn) Reply {
	query := " " + language.NormalizeQuery(t.text) + " "

	var sb strings.Builder
	for _, topic := range adviceLeads {
		matched := false
		for _, kw := range topic.keywords {
			if strings.Contains(query, " "+kw+" ") {
				matched = true
				break
			}
		}
		if matched {
			sb.WriteString(topic.lead.pick(t.lang))
			sb.WriteString(" ")
			break
		}
	}
	sb.WriteString(bilingual{
		en: "Dental concerns are best looked at by a dentist in person rather than diagnosed over chat. Would you like me to book you a consultation?",
		tl: "Mas mabuti pong ipatingin nang personal sa dentista ang mga concern sa ngipin kaysa sa chat lang. Gusto n'yo po bang i-book ko kayo para sa konsultasyon?",
	}.pick(t.lang))

	return Reply{
		Text:         formatForMobile(sb.String(), 0),
		QuickReplies: []string{"Book an appointment"},
	}
}

func (e *Engine) outOfScopeReply(lang language.Language) Reply {
	msg := bilingual{
		en: "I can only help with Dorotheo Dental Clinic matters: appointments, services, hours, and dental concerns.",
		tl: "Tungkol lang po sa Dorotheo Dental Clinic ang matutulungan ko: appointment, serbisyo, oras ng clinic, at mga concern sa ngipin.",
	}
	return Reply{
		Text:         msg.pick(lang),
		QuickReplies: []string{"Book an appointment", "Clinic hours"},
	}
}

func (e *Engine) safeAssistReply(lang language.Language) Reply {
	msg := bilingual{
		en: "I'm not sure I understood that. I can help you book, move, or cancel an appointment, or answer questions about the clinic.",
		tl: "Hindi ko po sigurado kung naintindihan ko iyon. Puwede ko po kayong tulungang mag-book, maglipat, o magkansela ng appointment, o sumagot ng tanong tungkol sa clinic.",
	}
	return Reply{
		Text:         msg.pick(lang),
		QuickReplies: []string{"Book an appointment", "Clinic hours", "Our services"},
	}
}

func (e *Engine) degradedReply(lang language.Language) Reply {
	msg := bilingual{
		en: "Something went wrong on our side. Please try again in a moment, or call the clinic directly.",
		tl: "May problema po sa aming sistema. Pakisubukan po ulit mamaya, o tumawag nang direkta sa clinic.",
	}
	return Reply{Text: msg.pick(lang)}
}
