// Package language classifies chat messages as English, Tagalog, or Taglish
// and exposes a query normalizer for the informational search path.
package language

import (
	"regexp"
	"strings"
)

// Language is the detected language of a message.
type Language string

const (
	English Language = "english"
	Tagalog Language = "tagalog"
	Taglish Language = "taglish"
)

// Style is the register of a message, used to pick reply phrasing.
type Style string

const (
	StyleFormal Style = "formal"
	StyleCasual Style = "casual"
	StyleMixed  Style = "mixed"
)

// Result is the outcome of language detection.
type Result struct {
	Language   Language
	Confidence float64
	Style      Style
}

// tokenRE matches runs of letters, including accented Latin used in Filipino
// names and loanwords.
var tokenRE = regexp.MustCompile(`[a-zA-ZÀ-ÖØ-öø-ÿñÑ]+`)

// sharedWords appear in both languages (or are proper nouns common to both)
// and carry no signal either way.
var sharedWords = map[string]bool{
	"ok": true, "okay": true, "no": true, "oo": true, "dental": true, "clinic": true, "doc": true, "dr": true,
	"sage": true, "dorotheo": true, "am": true, "pm": true,
	"a": true, "i": true, "o": true, "e": true,
}

var tagalogWords = map[string]bool{
	"ako": true, "ikaw": true, "siya": true, "kami": true, "tayo": true,
	"kayo": true, "sila": true, "ko": true, "mo": true, "niya": true,
	"namin": true, "natin": true, "ninyo": true, "nila": true,
	"ang": true, "ng": true, "mga": true, "sa": true, "kay": true,
	"si": true, "ay": true, "na": true, "pa": true, "ba": true,
	"po": true, "opo": true, "ho": true, "oho": true, "din": true,
	"rin": true, "daw": true, "raw": true, "lang": true, "naman": true,
	"kasi": true, "pero": true, "para": true, "kung": true, "kapag": true,
	"hindi": true, "wala": true, "meron": true, "mayroon": true,
	"gusto": true, "ayaw": true, "pwede": true, "puwede": true,
	"paano": true, "saan": true, "kailan": true, "kelan": true,
	"sino": true, "ano": true, "anong": true, "bakit": true, "ilan": true,
	"magkano": true, "bukas": true, "ngayon": true, "kahapon": true,
	"mamaya": true, "umaga": true, "tanghali": true, "hapon": true,
	"gabi": true, "linggo": true, "lunes": true, "martes": true,
	"miyerkules": true, "huwebes": true, "biyernes": true, "sabado": true,
	"araw": true, "oras": true, "salamat": true, "pasensya": true,
	"sige": true, "cge": true, "ayos": true, "tara": true,
	"magpa": true, "gagawin": true, "gawin": true, "punta": true,
	"pupunta": true, "sakit": true, "masakit": true, "ngipin": true,
	"gilagid": true, "bunot": true, "pasta": true, "linis": true,
	"paglinis": true, "magpalinis": true, "magpabunot": true,
	"ipa": true, "niyo": true, "nyo": true,
	"dito": true, "diyan": true, "doon": true, "malapit": true,
	"malayo": true, "maganda": true, "mabuti": true, "mahal": true,
	"mura": true, "libre": true, "bayad": true, "hulog": true,
	"magandang": true, "kumusta": true, "musta": true, "paalam": true,
	"ito": true, "iyan": true, "iyon": true, "yun": true, "yan": true,
	"may": true, "ngunit": true, "nasaan": true, "nasa": true, "galing": true, "talaga": true,
	"sobra": true, "medyo": true, "konti": true, "dami": true,
}

var englishWords = map[string]bool{
	"the": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"can": true, "could": true, "should": true, "you": true, "he": true, "she": true, "it": true,
	"we": true, "they": true, "my": true, "your": true, "his": true,
	"her": true, "our": true, "their": true, "me": true, "him": true,
	"them": true, "us": true, "this": true, "that": true, "these": true,
	"those": true, "what": true, "when": true, "where": true, "who": true,
	"why": true, "how": true, "which": true, "an": true,
	"and": true, "or": true, "but": true, "if": true, "because": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true, "from": true, "about": true, "into": true,
	"by": true, "not": true, "yes": true, "please": true, "thanks": true,
	"thank": true, "hello": true, "hi": true, "hey": true, "good": true,
	"morning": true, "afternoon": true, "evening": true, "today": true,
	"tomorrow": true, "next": true, "week": true, "month": true,
	"year": true, "day": true, "time": true, "schedule": true,
	"book": true, "booking": true, "cancel": true,
	"reschedule": true, "available": true, "open": true, "closed": true,
	"tooth": true, "teeth": true, "dentist": true, "cleaning": true,
	"extraction": true, "braces": true, "filling": true, "whitening": true,
	"pain": true, "hurts": true, "want": true, "need": true, "like": true,
	"see": true, "get": true, "go": true, "come": true, "make": true,
	"much": true, "many": true, "price": true, "cost": true, "pay": true,
}

// Tagalog verb morphology, used only when no dictionary marker matched.
var tagalogAffixRE = regexp.MustCompile(`\b(mag|magpa|nagpa|nag|ipa|ipina)[a-z]{2,}|\bpa[a-z]{2,}in\b|\bi[a-z]{3,}in\b|[a-z]um[a-z]{2,}|\bna[a-z]{2,}an\b`)

var politenessMarkers = []string{"po", "opo", "ho", "oho"}

var casualMarkers = []string{
	"haha", "hehe", "lol", "lmao", "hahaha", "sige", "cge", "tara",
	"yo", "sup", "dude", "bro", "pre", "tol", "uy", "oi",
}

// Detect classifies text into English, Tagalog, or Taglish with a confidence
// score and a register. Pure function, never mutates its input.
func Detect(text string) Result {
	lower := strings.ToLower(text)
	tokens := tokenRE.FindAllString(lower, -1)

	var tagalogCount, englishCount int
	for _, tok := range tokens {
		if sharedWords[tok] {
			continue
		}
		if tagalogWords[tok] {
			tagalogCount++
			continue
		}
		if englishWords[tok] {
			englishCount++
		}
	}

	total := tagalogCount + englishCount
	if total == 0 {
		// Dictionary said nothing; fall back to verb morphology.
		if tagalogAffixRE.MatchString(lower) {
			return Result{Language: Tagalog, Confidence: 0.6, Style: styleFor(Tagalog, lower)}
		}
		return Result{Language: English, Confidence: 0.5, Style: styleFor(English, lower)}
	}

	ratio := float64(tagalogCount) / float64(total)

	switch {
	case ratio >= 0.7:
		conf := 0.6 + ratio*0.35
		if conf > 0.95 {
			conf = 0.95
		}
		return Result{Language: Tagalog, Confidence: conf, Style: styleFor(Tagalog, lower)}
	case ratio <= 0.2:
		conf := 0.6 + (1-ratio)*0.35
		if conf > 0.95 {
			conf = 0.95
		}
		return Result{Language: English, Confidence: conf, Style: styleFor(English, lower)}
	default:
		dist := ratio - 0.5
		if dist < 0 {
			dist = -dist
		}
		return Result{Language: Taglish, Confidence: 0.7 + dist*0.3, Style: StyleMixed}
	}
}

// styleFor classifies the register of a message given its detected language.
func styleFor(lang Language, lower string) Style {
	if containsWord(lower, politenessMarkers) {
		return StyleFormal
	}
	if containsAny(lower, casualMarkers) {
		return StyleCasual
	}
	if lang == Tagalog {
		// Tagalog without a politeness particle reads as casual.
		return StyleCasual
	}
	return StyleFormal
}

// containsWord matches any of the needles on a word boundary.
func containsWord(text string, needles []string) bool {
	for _, tok := range tokenRE.FindAllString(text, -1) {
		for _, n := range needles {
			if tok == n {
				return true
			}
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
