package conversation

import (
	"regexp"
	"strings"
)

// injectionPatterns catch text that tries to smuggle SQL, script, or
// instruction-override payloads through the chat box. A hit short-circuits
// the turn before any classification or entity extraction runs, so the
// payload can never become an entity value or reach persistence.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(drop|truncate|alter)\s+table\b`),
	regexp.MustCompile(`(?i)\bunion\s+select\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b`),
	regexp.MustCompile(`(?i)\binsert\s+into\b`),
	regexp.MustCompile(`(?i)\bupdate\s+\w+\s+set\b`),
	regexp.MustCompile(`(?i)'\s*or\s+'?1'?\s*=\s*'?1`),
	regexp.MustCompile(`(?i);\s*--`),
	regexp.MustCompile(`(?i)<\s*script\b`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`\{\{.*\}\}`),
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts)`),
	regexp.MustCompile(`(?i)\bsystem\s+prompt\b`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an)\b`),
}

// looksLikeInjection reports whether the raw message should be refused.
func looksLikeInjection(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
