package intent

import (
	"strings"
)

// yesWords covers English, Tagalog, and texting slang affirmatives.
var yesWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "ya": true,
	"sure": true, "ok": true, "okay": true, "okey": true, "oki": true,
	"alright": true, "confirm": true, "confirmed": true, "correct": true,
	"right": true, "proceed": true, "go": true, "game": true, "g": true,
	"oo": true, "opo": true, "oho": true, "sige": true, "cge": true,
	"sge": true, "tama": true, "ayos": true, "pwede": true, "puwede": true,
	"tara": true, "yes po": true, "sige po": true, "oo naman": true,
	"yes please": true, "ok po": true, "okay po": true, "sakto": true,
	"tuloy": true, "ituloy": true, "gora": true,
}

// noWords covers the corresponding negatives. "cancel" is deliberately not
// here: a cancel keyword at a confirmation step is an intent, not a no.
var noWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "na-ah": true, "never": true,
	"hindi": true, "hinde": true, "di": true, "dili": true, "ayaw": true,
	"ayoko": true, "wag": true, "huwag": true, "wait": true, "teka": true,
	"not yet": true, "hindi po": true, "no po": true, "wag muna": true,
	"huwag muna": true, "stop": true, "back": true, "bawiin": true,
	"change": true, "mali": true, "wrong": true,
}

// collapseRuns caps consecutive repeats of the same rune at max, so
// "cgeeee" collapses to "cgee" (max 2) or "cge" (max 1).
func collapseRuns(text string, max int) string {
	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run <= max {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeConfirmation collapses runs of 3+ repeated letters down to 2
// ("cgeeee" → "cgee" → matched via the collapsed single form below) and
// strips trailing punctuation noise.
func normalizeConfirmation(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimRight(text, ".!?~… ")
	return collapseRuns(text, 2)
}

// matchesVocabulary checks the whole normalized message, then the message
// with doubled letters collapsed to singles, against the vocabulary.
func matchesVocabulary(text string, vocab map[string]bool) bool {
	if vocab[text] {
		return true
	}
	// "cgee" → "cge", "okk" → "ok"
	if vocab[collapseRuns(text, 1)] {
		return true
	}
	// Short messages led by a vocabulary word: "sige po!", "yes, confirm"
	fields := strings.Fields(text)
	if len(fields) > 0 && len(fields) <= 3 {
		if vocab[strings.Trim(fields[0], ".,!?")] {
			return true
		}
	}
	return false
}

// IsYes reports whether the message is an affirmative confirmation.
func IsYes(text string) bool {
	norm := normalizeConfirmation(text)
	if norm == "" {
		return false
	}
	if matchesVocabulary(norm, noWords) {
		return false
	}
	return matchesVocabulary(norm, yesWords)
}

// IsNo reports whether the message is a rejection. A multi-word message that
// names the appointment itself ("change my appointment") is a request about
// it, not a No, and is left for the intent classifier.
func IsNo(text string) bool {
	norm := normalizeConfirmation(text)
	if norm == "" {
		return false
	}
	if strings.ContainsRune(norm, ' ') &&
		(strings.Contains(norm, "appointment") || strings.Contains(norm, "booking")) {
		return false
	}
	return matchesVocabulary(norm, noWords)
}
