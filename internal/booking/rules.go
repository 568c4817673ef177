// Package booking is the validation engine guarding every appointment
// mutation. Checks are small and composable, assembled into three ordered
// pipelines that stop at the first violation. Flow controllers call the
// pipeline before any state change and never mutate on a violation.
package booking

import (
	"github.com/dorotheo-dental/sage/internal/language"
)

// Rule identifies which check failed. Metrics and logs key on it.
type Rule string

const (
	RulePendingLock      Rule = "pending_request_lock"
	RuleWeeklyCap        Rule = "weekly_cap"
	RulePastDate         Rule = "past_date"
	RuleSundayClosed     Rule = "sunday_closed"
	RuleOutsideHours     Rule = "outside_working_hours"
	RulePastTimeToday    Rule = "past_time_today"
	RuleUnknownDentist   Rule = "unknown_dentist"
	RuleUnknownService   Rule = "unknown_service"
	RuleUnknownClinic    Rule = "unknown_clinic"
	RuleDentistSlotTaken Rule = "dentist_slot_taken"
	RulePatientSlotTaken Rule = "patient_slot_taken"
	RuleNotModifiable    Rule = "not_modifiable"
)

// StepHint tells the flow which step to re-show after a violation.
type StepHint int

const (
	HintNone StepHint = iota
	HintDate
	HintTime
)

// Violation is one failed business rule, with user-readable text in both
// languages. It is a value, not an error: infrastructure failures travel on
// the error return instead.
type Violation struct {
	Rule     Rule
	Hint     StepHint
	english  string
	tagalog  string
}

// Text renders the message for the detected conversation language. Taglish
// speakers get the Tagalog rendering.
func (v *Violation) Text(lang language.Language) string {
	if lang == language.English {
		return v.english
	}
	return v.tagalog
}

var violations = map[Rule]*Violation{
	RulePendingLock: {
		Rule: RulePendingLock, Hint: HintNone,
		english: "You already have a request waiting for our staff to review. Please wait for that to be processed before making another change.",
		tagalog: "May hinihintay pa po kayong request na nirereview ng staff namin. Pakihintay muna po itong maproseso bago gumawa ng panibagong request.",
	},
	RuleWeeklyCap: {
		Rule: RuleWeeklyCap, Hint: HintDate,
		english: "You already have an appointment that week. We allow one booking per week, so please pick a date on another week.",
		tagalog: "May appointment na po kayo sa linggong iyon. Isang booking lang po kada linggo, kaya pumili po ng petsa sa ibang linggo.",
	},
	RulePastDate: {
		Rule: RulePastDate, Hint: HintDate,
		english: "That date has already passed. Please choose a future date.",
		tagalog: "Lumipas na po ang petsang iyon. Pumili po ng darating na petsa.",
	},
	RuleSundayClosed: {
		Rule: RuleSundayClosed, Hint: HintDate,
		english: "The clinic is closed on Sundays. Please choose another day.",
		tagalog: "Sarado po ang clinic tuwing Linggo. Pumili po ng ibang araw.",
	},
	RuleOutsideHours: {
		Rule: RuleOutsideHours, Hint: HintTime,
		english: "That time is outside our clinic hours (Mon-Fri 8:00 AM-6:00 PM, Sat 9:00 AM-3:00 PM). Please pick a time within those hours.",
		tagalog: "Wala po sa oras ng clinic ang oras na iyon (Lun-Biy 8:00 AM-6:00 PM, Sab 9:00 AM-3:00 PM). Pumili po ng oras sa loob ng mga oras na iyon.",
	},
	RulePastTimeToday: {
		Rule: RulePastTimeToday, Hint: HintTime,
		english: "That time has already passed today. Please pick a later time or another date.",
		tagalog: "Lumipas na po ang oras na iyon ngayong araw. Pumili po ng mas huling oras o ibang petsa.",
	},
	RuleUnknownDentist: {
		Rule: RuleUnknownDentist, Hint: HintNone,
		english: "I couldn't find that dentist. Please choose one from the list.",
		tagalog: "Hindi ko po mahanap ang dentistang iyon. Pumili po mula sa listahan.",
	},
	RuleUnknownService: {
		Rule: RuleUnknownService, Hint: HintNone,
		english: "I couldn't find that service. Please choose one from the list.",
		tagalog: "Hindi ko po mahanap ang serbisyong iyon. Pumili po mula sa listahan.",
	},
	RuleUnknownClinic: {
		Rule: RuleUnknownClinic, Hint: HintNone,
		english: "I couldn't find that clinic branch. Please choose one from the list.",
		tagalog: "Hindi ko po mahanap ang branch na iyon. Pumili po mula sa listahan.",
	},
	RuleDentistSlotTaken: {
		Rule: RuleDentistSlotTaken, Hint: HintTime,
		english: "That slot was just taken for this dentist. Please pick another time.",
		tagalog: "Kakakuha lang po ng slot na iyon para sa dentistang ito. Pumili po ng ibang oras.",
	},
	RulePatientSlotTaken: {
		Rule: RulePatientSlotTaken, Hint: HintTime,
		english: "You already have an appointment at that exact time. Please pick another time.",
		tagalog: "May appointment na po kayo sa eksaktong oras na iyon. Pumili po ng ibang oras.",
	},
	RuleNotModifiable: {
		Rule: RuleNotModifiable, Hint: HintNone,
		english: "That appointment is not eligible for changes right now.",
		tagalog: "Hindi po puwedeng baguhin ang appointment na iyon sa ngayon.",
	},
}

func violation(r Rule) *Violation { return violations[r] }

// SundayClosedText is the closed-on-Sunday message, exposed so flows can
// reuse the exact wording when a Sunday is chosen before validation runs.
func SundayClosedText(lang language.Language) string {
	return violation(RuleSundayClosed).Text(lang)
}

// NotModifiableText is the generic not-eligible message, reused when a
// state-machine transition is refused after validation passed.
func NotModifiableText(lang language.Language) string {
	return violation(RuleNotModifiable).Text(lang)
}
