package language

import "strings"

// translations maps Tagalog tokens to English equivalents for search-side
// query normalization. This is never used for user-facing text.
var translations = map[string]string{
	"ngipin":      "tooth",
	"gilagid":     "gums",
	"bunot":       "extraction",
	"magpabunot":  "extraction",
	"pasta":       "filling",
	"linis":       "cleaning",
	"paglinis":    "cleaning",
	"magpalinis":  "cleaning",
	"sakit":       "pain",
	"masakit":     "painful",
	"bukas":       "tomorrow",
	"ngayon":      "today",
	"umaga":       "morning",
	"tanghali":    "noon",
	"hapon":       "afternoon",
	"gabi":        "evening",
	"magkano":     "price",
	"bayad":       "payment",
	"saan":        "where",
	"kailan":      "when",
	"kelan":       "when",
	"paano":       "how",
	"anong":       "what",
	"ano":         "what",
	"oras":        "time",
	"araw":        "day",
	"lunes":       "monday",
	"martes":      "tuesday",
	"miyerkules":  "wednesday",
	"huwebes":     "thursday",
	"biyernes":    "friday",
	"sabado":      "saturday",
	"linggo":      "sunday",
	"doktor":      "doctor",
	"dentista":    "dentist",
	"gusto":       "want",
	"pwede":       "can",
	"puwede":      "can",
	"magpagawa":   "procedure",
	"pustiso":     "dentures",
	"brace":       "braces",
	"pagbubunot":  "extraction",
	"pagpapasta":  "filling",
	"konsulta":    "consultation",
	"magpakonsulta": "consultation",
}

// fillerParticles are dropped entirely during normalization; they carry no
// search signal.
var fillerParticles = map[string]bool{
	"po": true, "opo": true, "ho": true, "oho": true,
	"ba": true, "na": true, "pa": true, "nga": true,
	"lang": true, "naman": true, "daw": true, "raw": true,
	"din": true, "rin": true, "kasi": true, "ang": true,
	"ng": true, "mga": true, "sa": true, "si": true, "ay": true,
	"yung": true, "yan": true, "yun": true,
}

// NormalizeQuery rewrites known Tagalog tokens to English and drops filler
// particles so the informational search index only needs English terms. The
// original message is never modified; callers keep using it for display.
func NormalizeQuery(text string) string {
	var out []string
	for _, tok := range tokenRE.FindAllString(strings.ToLower(text), -1) {
		if fillerParticles[tok] {
			continue
		}
		if eng, ok := translations[tok]; ok {
			out = append(out, eng)
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
