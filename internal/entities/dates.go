// Package entities extracts typed values from raw chat text: dates, times,
// weekday names, dentists, clinics, services, and appointment references.
// Every function is pure and returns a not-found result instead of guessing.
package entities

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January, "enero": time.January,
	"february": time.February, "feb": time.February, "pebrero": time.February,
	"march": time.March, "mar": time.March, "marso": time.March,
	"april": time.April, "apr": time.April, "abril": time.April,
	"may": time.May, "mayo": time.May,
	"june": time.June, "jun": time.June, "hunyo": time.June,
	"july": time.July, "jul": time.July, "hulyo": time.July,
	"august": time.August, "aug": time.August, "agosto": time.August,
	"september": time.September, "sep": time.September, "sept": time.September, "setyembre": time.September,
	"october": time.October, "oct": time.October, "oktubre": time.October,
	"november": time.November, "nov": time.November, "nobyembre": time.November,
	"december": time.December, "dec": time.December, "disyembre": time.December,
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "lunes": time.Monday,
	"tuesday": time.Tuesday, "martes": time.Tuesday,
	"wednesday": time.Wednesday, "miyerkules": time.Wednesday, "miyerkoles": time.Wednesday,
	"thursday": time.Thursday, "huwebes": time.Thursday,
	"friday": time.Friday, "biyernes": time.Friday, "byernes": time.Friday,
	"saturday": time.Saturday, "sabado": time.Saturday,
	"sunday": time.Sunday, "linggo": time.Sunday,
}

var (
	// "January 5" but not "January 2026": \b cannot sit between two digits,
	// so a 4-digit year never yields a day match.
	monthDayRE = regexp.MustCompile(`(?i)\b([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	yearRE     = regexp.MustCompile(`\b(20\d{2})\b`)
	numericRE  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
	weekdayRE  = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|lunes|martes|miyerkules|miyerkoles|huwebes|biyernes|byernes|sabado|linggo)\b`)
)

// ParseDate extracts a calendar date from text relative to now. Priority:
// month-name + day, relative keywords, MM/DD numerics, bare weekday name.
// Bare weekday always advances to the next occurrence, never today.
func ParseDate(text string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(text)
	today := midnight(now)

	// "next month"/"next year" ask for a range, not a date. A separate
	// range parser owns those, so they must not fall through to the
	// month-name matcher.
	if strings.Contains(lower, "next month") || strings.Contains(lower, "next year") ||
		strings.Contains(lower, "susunod na buwan") || strings.Contains(lower, "susunod na taon") {
		return time.Time{}, false
	}

	if d, ok := parseMonthDay(lower, today); ok {
		return d, true
	}
	if d, ok := parseRelative(lower, today); ok {
		return d, true
	}
	if d, ok := parseNumericDate(lower, today); ok {
		return d, true
	}
	if m := weekdayRE.FindString(lower); m != "" {
		target := weekdayNames[strings.ToLower(m)]
		return nextWeekday(today, target), true
	}
	return time.Time{}, false
}

// ParseWeekday reports whether the message is essentially just a day name,
// after stripping filler words. Used to offer all matching dates instead of
// jumping to the first occurrence.
func ParseWeekday(text string) (time.Weekday, bool) {
	fillers := map[string]bool{
		"next": true, "this": true, "on": true, "po": true, "sa": true,
		"ng": true, "ang": true, "na": true, "susunod": true,
	}
	var kept []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,!?")
		if f == "" || fillers[f] {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) != 1 {
		return 0, false
	}
	day, ok := weekdayNames[kept[0]]
	return day, ok
}

func parseMonthDay(lower string, today time.Time) (time.Time, bool) {
	for _, m := range monthDayRE.FindAllStringSubmatch(lower, -1) {
		month, ok := monthNames[m[1]]
		if !ok {
			continue
		}
		day, err := strconv.Atoi(m[2])
		if err != nil || day < 1 || day > 31 {
			continue
		}
		year := today.Year()
		explicitYear := false
		if ym := yearRE.FindStringSubmatch(lower); ym != nil {
			year, _ = strconv.Atoi(ym[1])
			explicitYear = true
		}
		d := time.Date(year, month, day, 0, 0, 0, 0, today.Location())
		if d.Month() != month || d.Day() != day {
			continue // Feb 30 and friends normalize away
		}
		if !explicitYear && d.Before(today) {
			d = d.AddDate(1, 0, 0)
		}
		return d, true
	}
	return time.Time{}, false
}

func parseRelative(lower string, today time.Time) (time.Time, bool) {
	switch {
	case containsAnyPhrase(lower, "day after tomorrow", "samakalawa", "sa makalawa"):
		return today.AddDate(0, 0, 2), true
	case containsAnyPhrase(lower, "tomorrow", "bukas"):
		return today.AddDate(0, 0, 1), true
	case containsAnyPhrase(lower, "today", "ngayon"):
		return today, true
	case containsAnyPhrase(lower, "next week", "susunod na linggo"):
		return nextWeekday(today, time.Monday), true
	}
	return time.Time{}, false
}

func parseNumericDate(lower string, today time.Time) (time.Time, bool) {
	m := numericRE.FindStringSubmatch(lower)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	year := today.Year()
	explicitYear := false
	if m[3] != "" {
		y, _ := strconv.Atoi(m[3])
		if y < 100 {
			y += 2000
		}
		year = y
		explicitYear = true
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	if !explicitYear && d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

// nextWeekday returns the next occurrence of target strictly after today.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	ahead := (int(target) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return today.AddDate(0, 0, ahead)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func containsAnyPhrase(s string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
