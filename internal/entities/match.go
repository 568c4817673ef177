package entities

import (
	"regexp"
	"strings"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/directory"
)

var honorificRE = regexp.MustCompile(`(?i)\b(dra?\.?|doctor|doc)\b`)

// FindDentist matches a dentist mentioned in the text. An honorific followed
// by any part of the name always matches; bare name tokens match only when
// an honorific or the Tagalog "si NAME" pattern signals a person reference.
func FindDentist(text string, dentists []directory.Dentist) *directory.Dentist {
	lower := strings.ToLower(text)
	hasHonorific := honorificRE.MatchString(lower)

	for i := range dentists {
		d := &dentists[i]
		first := strings.ToLower(d.FirstName)
		last := strings.ToLower(d.LastName)
		full := strings.ToLower(d.FullName())

		for _, name := range []string{full, last, first} {
			if name == "" {
				continue
			}
			if regexp.MustCompile(`(?i)\b(dra?\.?|doctor|doc)\s+`+regexp.QuoteMeta(name)+`\b`).MatchString(lower) {
				return d
			}
			if regexp.MustCompile(`\bsi\s+` + regexp.QuoteMeta(name) + `\b`).MatchString(lower) {
				return d
			}
		}
		if hasHonorific {
			for _, name := range []string{last, first} {
				if len(name) > 3 && wordBoundaryMatch(lower, name) {
					return d
				}
			}
		}
	}
	return nil
}

// genericClinicWords never identify a branch on their own.
var genericClinicWords = map[string]bool{
	"dental": true, "clinic": true, "dorotheo": true,
}

// FindClinic matches a clinic branch by full name, then by any distinctive
// word of its name.
func FindClinic(text string, clinics []directory.Clinic) *directory.Clinic {
	lower := strings.ToLower(text)
	for i := range clinics {
		if strings.Contains(lower, strings.ToLower(clinics[i].Name)) {
			return &clinics[i]
		}
	}
	for i := range clinics {
		for _, w := range strings.Fields(strings.ToLower(clinics[i].Name)) {
			w = strings.Trim(w, ".,-")
			if len(w) < 3 || genericClinicWords[w] {
				continue
			}
			if wordBoundaryMatch(lower, w) {
				return &clinics[i]
			}
		}
	}
	return nil
}

// serviceAliases maps colloquial and Tagalog terms to a fragment of the
// canonical service name they should resolve to.
var serviceAliases = []struct {
	alias  string
	lookup string
}{
	{"linis", "cleaning"},
	{"paglinis", "cleaning"},
	{"clean", "cleaning"},
	{"cleaning", "cleaning"},
	{"prophylaxis", "cleaning"},
	{"bunot", "extraction"},
	{"pabunot", "extraction"},
	{"extract", "extraction"},
	{"pull", "extraction"},
	{"pasta", "filling"},
	{"fill", "filling"},
	{"filling", "filling"},
	{"extraction", "extraction"},
	{"whitening", "whitening"},
	{"pampaputi", "whitening"},
	{"whiten", "whitening"},
	{"root canal", "root canal"},
	{"ugat", "root canal"},
	{"pustiso", "denture"},
	{"denture", "denture"},
	{"braces", "braces"},
	{"konsulta", "consultation"},
	{"check up", "consultation"},
	{"checkup", "consultation"},
	{"tingin", "consultation"},
	{"x-ray", "x-ray"},
	{"xray", "x-ray"},
}

// FindService matches a bookable service by alias, then by literal name.
func FindService(text string, services []directory.Service) *directory.Service {
	lower := strings.ToLower(text)
	for _, a := range serviceAliases {
		if !containsAlias(lower, a.alias) {
			continue
		}
		for i := range services {
			if strings.Contains(strings.ToLower(services[i].Name), a.lookup) {
				return &services[i]
			}
		}
	}
	for i := range services {
		name := strings.ToLower(services[i].Name)
		if wordBoundaryMatch(lower, name) {
			return &services[i]
		}
	}
	return nil
}

// MatchAppointment resolves which of the patient's appointments a message
// refers to, by service-name or formatted-date mention. A single candidate
// matches unconditionally.
func MatchAppointment(text string, candidates []appointments.Appointment) *appointments.Appointment {
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return &candidates[0]
	}
	lower := strings.ToLower(text)
	for i := range candidates {
		a := &candidates[i]
		if a.ServiceName != "" && strings.Contains(lower, strings.ToLower(a.ServiceName)) {
			return a
		}
		// Three renderings so zero-padding differences still match.
		for _, layout := range []string{"January 2, 2006", "January 2", "1/2/2006"} {
			if strings.Contains(lower, strings.ToLower(a.Date.Format(layout))) {
				return a
			}
		}
	}
	return nil
}

func containsAlias(text, alias string) bool {
	if strings.Contains(alias, " ") || strings.Contains(alias, "-") {
		return strings.Contains(text, alias)
	}
	return wordBoundaryMatch(text, alias)
}

func wordBoundaryMatch(text, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(text)
}
