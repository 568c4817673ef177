// Package intent classifies freeform patient messages into transactional and
// informational intents without an LLM round-trip. Classification is a
// priority-ordered cascade of keyword and regex rules over spell-corrected,
// lowercased text; the first matching rule wins.
package intent

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dorotheo-dental/sage/pkg/logging"
)

var tracer = otel.Tracer("sage/intent")

// Intent is the classified purpose of a patient message.
type Intent string

const (
	Schedule     Intent = "schedule"
	Reschedule   Intent = "reschedule"
	Cancel       Intent = "cancel"
	ClinicInfo   Intent = "clinic_information"
	Greeting     Intent = "greeting"
	DentalAdvice Intent = "dental_advice"
	OutOfScope   Intent = "out_of_scope"
	Fallback     Intent = "fallback"
)

// Result is the outcome of classification.
type Result struct {
	Intent     Intent
	Confidence float64
	// Source names the rule that fired, for logs and metrics.
	Source string
}

// message is the pre-processed view every rule sees.
type message struct {
	text   string // spell-corrected, lowercased
	tokens map[string]bool
}

func (m *message) hasWord(w string) bool { return m.tokens[w] }

func (m *message) hasAnyWord(words ...string) bool {
	for _, w := range words {
		if m.tokens[w] {
			return true
		}
	}
	return false
}

func (m *message) hasPhrase(p string) bool { return strings.Contains(m.text, p) }

func (m *message) hasAnyPhrase(phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(m.text, p) {
			return true
		}
	}
	return false
}

// has matches a keyword the way the rule tables expect: multi-word phrases by
// substring containment, single words on a word boundary.
func (m *message) has(keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return m.hasPhrase(keyword)
	}
	return m.hasWord(keyword)
}

func (m *message) hasAny(keywords ...string) bool {
	for _, k := range keywords {
		if m.has(k) {
			return true
		}
	}
	return false
}

// rule is one entry in the priority cascade.
type rule struct {
	name       string
	intent     Intent
	confidence float64
	match      func(m *message) bool
}

// Classifier runs the rule cascade. Safe for concurrent use.
type Classifier struct {
	logger *logging.Logger
	rules  []rule

	// dentistNames lowers clinic-hours questions that actually name a
	// dentist into availability questions. Surnames and given names.
	dentistNames []string
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithDentistNames registers known dentist names so "is Dr. Cruz open on
// Monday" routes to availability rather than clinic hours.
func WithDentistNames(names []string) Option {
	return func(c *Classifier) {
		for _, n := range names {
			n = strings.ToLower(strings.TrimSpace(n))
			if n != "" {
				c.dentistNames = append(c.dentistNames, n)
			}
		}
	}
}

// NewClassifier builds the rule cascade in strict priority order.
func NewClassifier(logger *logging.Logger, opts ...Option) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Classifier{logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	c.rules = []rule{
		{"out_of_scope", OutOfScope, 0.9, c.matchOutOfScope},
		{"cancel_keywords", Cancel, 0.9, c.matchCancel},
		{"reschedule_keywords", Reschedule, 0.9, c.matchReschedule},
		{"clinic_hours_question", ClinicInfo, 0.85, c.matchClinicHours},
		{"dentist_availability_question", ClinicInfo, 0.85, c.matchDentistAvailability},
		{"booking_keywords", Schedule, 0.9, c.matchBooking},
		{"dental_symptom", DentalAdvice, 0.85, c.matchSymptom},
		{"hygiene_advice", DentalAdvice, 0.8, c.matchHygieneAdvice},
		{"clinic_information", ClinicInfo, 0.8, c.matchClinicInfo},
		{"greeting", Greeting, 0.9, c.matchGreeting},
	}
	return c
}

// Classify spell-corrects the raw message and walks the cascade, returning
// the first rule that matches or the fallback result.
func (c *Classifier) Classify(ctx context.Context, raw string) Result {
	_, span := tracer.Start(ctx, "intent.classify")
	defer span.End()

	m := newMessage(raw)
	for _, r := range c.rules {
		if r.match(m) {
			span.SetAttributes(
				attribute.String("intent", string(r.intent)),
				attribute.String("intent.source", r.name),
			)
			c.logger.Debug("intent classified", "intent", r.intent, "source", r.name)
			return Result{Intent: r.intent, Confidence: r.confidence, Source: r.name}
		}
	}
	span.SetAttributes(attribute.String("intent", string(Fallback)))
	return Result{Intent: Fallback, Confidence: 0.5, Source: "fallback"}
}

func newMessage(raw string) *message {
	text := correctSpelling(raw)
	tokens := make(map[string]bool)
	for _, tok := range tokenizeWords(text) {
		tokens[tok] = true
	}
	return &message{text: text, tokens: tokens}
}

var letterRunRE = regexp.MustCompile(`[a-zñ-]+`)

func tokenizeWords(lower string) []string {
	return letterRunRE.FindAllString(lower, -1)
}

// ---- rule 1: out of scope ----

var offTopicKeywords = []string{
	"weather", "ulan", "bagyo", "forecast",
	"joke", "funny", "patawa",
	"recipe", "cook", "lutuin",
	"lottery", "lotto", "bitcoin", "crypto", "stock market",
	"basketball", "football", "nba",
	"president", "election", "politics",
	"programming", "python", "javascript", "code",
	"homework", "essay", "math problem",
	"movie", "song", "lyrics",
	"horoscope", "zodiac",
}

var offTopicRE = []*regexp.Regexp{
	regexp.MustCompile(`\bwhat is \d+\s*[-+*/x]\s*\d+`),
	regexp.MustCompile(`\b(solve|compute|calculate)\b.*\d`),
	regexp.MustCompile(`\btell me a (joke|story)\b`),
	regexp.MustCompile(`\bcapital of\b`),
	regexp.MustCompile(`\bwrite (me )?(a|an|some)\b`),
}

var dentalTerms = []string{
	"tooth", "teeth", "ngipin", "gums", "gilagid", "dental", "dentist",
	"doctor", "clinic", "appointment", "cleaning", "linis", "paglinis",
	"extraction", "bunot", "braces", "filling", "pasta", "whitening",
	"dentures", "pustiso", "toothache", "cavity", "checkup", "check-up",
	"consultation", "konsulta", "root canal", "wisdom",
}

func (c *Classifier) matchOutOfScope(m *message) bool {
	// Dental context wins: "tooth extraction procedure" is on-topic even
	// though "procedure" questions can look like trivia.
	if m.hasAny(dentalTerms...) {
		return false
	}
	if m.hasAny(offTopicKeywords...) {
		return true
	}
	for _, re := range offTopicRE {
		if re.MatchString(m.text) {
			return true
		}
	}
	return false
}

// ---- rule 2: cancel ----

var cancelKeywords = []string{
	"cancel", "cancelled", "cancellation", "i-cancel", "icancel",
	"kanselahin", "ikansela", "i-kansela", "ayoko na sa appointment",
	"huwag na ituloy", "wag na ituloy", "di na ako sasama",
	"hindi na ako pupunta", "call it off",
}

func (c *Classifier) matchCancel(m *message) bool {
	if !m.hasAny(cancelKeywords...) {
		return false
	}
	// Crossover guard: "cancel my booking and book a new one" or messages
	// that also ask to reschedule route to the other flows first.
	if m.hasWord("book") || m.hasWord("reschedule") {
		return false
	}
	return true
}

// ---- rule 3: reschedule ----

var rescheduleKeywords = []string{
	"reschedule", "resched", "re-schedule", "move my appointment",
	"change my appointment", "change the date", "change the time",
	"move the date", "move the time", "ilipat", "ilipat ang appointment",
	"lipat ng schedule", "ibang araw na lang", "ibang oras na lang",
	"another day instead", "different time instead",
}

func (c *Classifier) matchReschedule(m *message) bool {
	// "move"/"change"/"ilipat" plus a booking noun covers phrasings the
	// fixed list misses, like "please move my September 3 appointment".
	hit := m.hasAny(rescheduleKeywords...) ||
		(m.hasAnyWord("move", "change", "ilipat", "lipat") &&
			m.hasAnyWord("appointment", "booking", "schedule", "sched"))
	if !hit {
		return false
	}
	if m.hasWord("cancel") || m.hasPhrase("i-cancel") {
		return false
	}
	return true
}

// ---- rule 4: clinic hours question ----

var weekdayWords = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
	"sunday", "lunes", "martes", "miyerkules", "huwebes", "biyernes",
	"sabado", "linggo", "weekend", "weekday", "holidays", "holiday",
}

var openClosedWords = []string{
	"open", "close", "closed", "closing", "opening", "hours", "bukas ba",
	"sarado", "hanggang anong oras", "until what time", "open ba",
}

var honorificRE = regexp.MustCompile(`\b(dr\.?|doc|doctor|dra\.?)\s+[a-zñ]+`)

func (c *Classifier) matchClinicHours(m *message) bool {
	if !m.hasAny(openClosedWords...) {
		return false
	}
	if !m.hasAny(weekdayWords...) && !m.hasAnyPhrase("today", "tomorrow", "ngayon", "bukas") {
		return false
	}
	// A named dentist turns this into an availability question (rule 5).
	if c.namesDentist(m) {
		return false
	}
	return true
}

func (c *Classifier) namesDentist(m *message) bool {
	if honorificRE.MatchString(m.text) {
		return true
	}
	for _, n := range c.dentistNames {
		if m.has(n) {
			return true
		}
	}
	return false
}

// ---- rule 5: dentist availability question ----

var availabilityRE = []*regexp.Regexp{
	regexp.MustCompile(`\b(dr\.?|doc|doctor|dra\.?)\s+[a-zñ]+.*\b(available|schedule|sched|free|open|slots?)\b`),
	regexp.MustCompile(`\b(when|kailan|kelan)\b.*\b(available|free|pwede|puwede)\b`),
	regexp.MustCompile(`\b(available|free)\b.*\b(next month|next year|this month|susunod na buwan)\b`),
	regexp.MustCompile(`\b(what time|anong oras)\b.*\b(available|free|pwede|puwede|slot)\b`),
	regexp.MustCompile(`\bany (open )?slots?\b`),
}

func (c *Classifier) matchDentistAvailability(m *message) bool {
	for _, re := range availabilityRE {
		if re.MatchString(m.text) {
			return true
		}
	}
	return false
}

// ---- rule 6: booking ----

var bookingKeywords = []string{
	"book", "booking", "schedule an appointment", "make an appointment",
	"set an appointment", "magpa-appointment", "magpaappointment",
	"pa-appointment", "paappointment", "magpaschedule", "pa-sched",
	"pasched", "magpalinis", "magpabunot", "magpakonsulta", "magpatingin",
	"patingin", "pacheck", "pa-check", "appointment please", "new appointment",
	"gusto ko magpa", "set ako ng appointment", "kumuha ng appointment",
}

// Tagalog causative verb forms for requesting a procedure or appointment,
// including reduplicated future tense ("magpapa-appointment").
var bookingRE = regexp.MustCompile(`\b(mag)?pa(pa)?-?(appointment|sched(ule)?|linis|bunot|konsulta|tingin|check(up)?)`)

var howToBookPhrases = []string{
	"how do i book", "how to book", "how can i book", "paano mag book",
	"paano magpa-appointment", "paano magpaappointment", "paano mag-appointment",
	"how do i make an appointment", "how do i schedule",
}

func (c *Classifier) matchBooking(m *message) bool {
	// "How do I book" is a question about the process, not a booking.
	if m.hasAnyPhrase(howToBookPhrases...) {
		return false
	}
	if !m.hasAny(bookingKeywords...) && !bookingRE.MatchString(m.text) {
		return false
	}
	if m.hasWord("reschedule") || m.hasWord("cancel") {
		return false
	}
	return true
}

// ---- rule 7: dental symptom ----

var symptomRE = []*regexp.Regexp{
	// first-person + body part + symptom, English
	regexp.MustCompile(`\bmy\s+(tooth|teeth|gum|gums|jaw|molar|wisdom tooth)\b.*\b(hurt|hurts|hurting|ache|aches|aching|pain|painful|bleed|bleeds|bleeding|swollen|swelling|sensitive|loose|broke|broken|chipped|cracked|infected)\b`),
	regexp.MustCompile(`\b(hurt|hurts|ache|aching|pain|painful|bleeding|swollen|sensitive|broken|chipped|cracked)\b.*\b(tooth|teeth|gum|gums|jaw|molar)\b`),
	regexp.MustCompile(`\bi have\s+(a\s+)?(toothache|cavity|abscess|mouth sore|gum problem)\b`),
	// Tagalog / Taglish
	regexp.MustCompile(`\b(masakit|sumasakit|makirot|kumikirot|namamaga|dumudugo)\b.*\b(ngipin|gilagid|panga|bagang)\b`),
	regexp.MustCompile(`\b(ngipin|gilagid|panga|bagang)\b.*\b(masakit|sumasakit|makirot|kumikirot|dumudugo|namamaga|gumagalaw|nabasag|nabutas|may butas)\b`),
	regexp.MustCompile(`\bmay\s+(sira|butas|impeksyon)\b.*\bngipin\b`),
	regexp.MustCompile(`\bsobrang sakit\b`),
}

func (c *Classifier) matchSymptom(m *message) bool {
	for _, re := range symptomRE {
		if re.MatchString(m.text) {
			return true
		}
	}
	return false
}

// ---- rule 8: hygiene advice ----

var hygieneRE = []*regexp.Regexp{
	regexp.MustCompile(`\bhow (often|many times)\b.*\b(brush|floss|mouthwash)\b`),
	regexp.MustCompile(`\b(brush|floss)\b.*\b(how often|everyday|every day|twice)\b`),
	regexp.MustCompile(`\b(prevent|avoid|iwasan)\b.*\b(cavities|cavity|plaque|gingivitis|tooth decay|bad breath)\b`),
	regexp.MustCompile(`\bfirst (dental )?(visit|checkup|check-up)\b`),
	regexp.MustCompile(`\b(ilang beses|gaano kadalas)\b.*\b(magsipilyo|mag-floss|magmumog)\b`),
	regexp.MustCompile(`\bis it (ok|okay|normal)\b.*\b(gums?|teeth|tooth)\b`),
}

func (c *Classifier) matchHygieneAdvice(m *message) bool {
	for _, re := range hygieneRE {
		if re.MatchString(m.text) {
			return true
		}
	}
	return false
}

// ---- rule 9: clinic information ----

var clinicInfoKeywords = []string{
	// services & pricing
	"services", "service", "offer", "price", "prices", "pricing", "cost",
	"how much", "magkano", "rate", "rates", "promo", "package",
	// hours & location
	"hours", "location", "address", "where", "saan", "nasaan", "directions",
	"malapit", "branch", "branches",
	// contact & people
	"contact", "phone number", "telephone", "email", "dentists", "doctors",
	"sino ang dentista", "who are the dentists",
	// payment & insurance
	"insurance", "hmo", "philhealth", "maxicare", "medicard", "intellicare",
	"installment", "gcash", "credit card", "payment", "bayad", "hulugan",
	// social
	"facebook", "instagram", "website", "page",
	// process questions
	"how do i book", "how to book", "paano mag book", "walk-in", "walk in",
	"requirements",
}

func (c *Classifier) matchClinicInfo(m *message) bool {
	return m.hasAny(clinicInfoKeywords...)
}

// ---- rule 10: greeting / farewell / thanks ----

var greetingKeywords = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"kumusta", "kamusta", "musta", "magandang umaga", "magandang hapon",
	"magandang gabi", "thank you", "thanks", "salamat", "maraming salamat",
	"bye", "goodbye", "paalam", "ingat", "see you", "good day",
}

func (c *Classifier) matchGreeting(m *message) bool {
	return m.hasAny(greetingKeywords...)
}
