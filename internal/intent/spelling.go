package intent

import (
	"strings"
)

// corrections maps common misspellings (and texting shorthand) to their
// canonical form. Correction runs token-by-token; tokens outside the table
// pass through untouched.
var corrections = map[string]string{
	"appointmnet": "appointment",
	"appoinment":  "appointment",
	"apointment":  "appointment",
	"appt":        "appointment",
	"shedule":     "schedule",
	"schedual":    "schedule",
	"scedule":     "schedule",
	"sked":        "schedule",
	"bok":         "book",
	"bookk":       "book",
	"cancell":     "cancel",
	"cancle":      "cancel",
	"cansel":      "cancel",
	"kansel":      "cancel",
	"resched":     "reschedule",
	"reskedule":   "reschedule",
	"reshedule":   "reschedule",
	"dentis":      "dentist",
	"dentista":    "dentist",
	"doktor":      "doctor",
	"clinik":      "clinic",
	"cleening":    "cleaning",
	"clining":     "cleaning",
	"extration":   "extraction",
	"estraction":  "extraction",
	"brases":      "braces",
	"witening":    "whitening",
	"tooths":      "teeth",
	"tomorow":     "tomorrow",
	"tommorow":    "tomorrow",
	"tommorrow":   "tomorrow",
	"avalable":    "available",
	"avaliable":   "available",
	"availble":    "available",
	"insurence":   "insurance",
	"payed":       "paid",
}

// correctSpelling rewrites known misspellings token-by-token, preserving
// everything it does not recognize. Lookup is case-insensitive; output is
// lowercased since every downstream matcher works on lowercase text.
func correctSpelling(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	for i, f := range fields {
		// Strip punctuation glued to the token for lookup only.
		core := strings.Trim(f, ".,!?;:\"'()")
		if fixed, ok := corrections[core]; ok {
			fields[i] = strings.Replace(f, core, fixed, 1)
		}
	}
	return strings.Join(fields, " ")
}
