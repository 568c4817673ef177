package entities

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dorotheo-dental/sage/internal/appointments"
)

var (
	clockMeridiemRE = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm|a\.m\.|p\.m\.)`)
	hourMeridiemRE  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm|a\.m\.|p\.m\.)`)
	tagalogTimeRE   = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(?:ng|sa)\s+(umaga|tanghali|hapon|gabi)\b`)
	bareClockRE     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	bareHourRE      = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// ParseTime extracts a clock time from text. Patterns in priority order:
// explicit am/pm forms, Tagalog day-part forms ("3 ng hapon"), literal
// "tanghali" (noon), then bare clock values. A bare hour with no meridiem is
// resolved by the clinic's convention: 1-6 reads as afternoon, 7-12 as
// morning. This is a booking-context policy, not general time parsing.
func ParseTime(text string) (appointments.TimeOfDay, bool) {
	if t, ok := ParseTimeExplicit(text); ok {
		return t, true
	}
	if m := bareHourRE.FindStringSubmatch(strings.ToLower(text)); m != nil {
		return bareClock(m[1], "0")
	}
	return appointments.TimeOfDay{}, false
}

// ParseTimeExplicit is ParseTime without the bare-hour fallback. Flow
// controllers use it when scanning older turns, where a lone digit is far
// more likely a date fragment than a time.
func ParseTimeExplicit(text string) (appointments.TimeOfDay, bool) {
	lower := strings.ToLower(text)

	if m := clockMeridiemRE.FindStringSubmatch(lower); m != nil {
		return meridiemTime(m[1], m[2], m[3])
	}
	if m := hourMeridiemRE.FindStringSubmatch(lower); m != nil {
		return meridiemTime(m[1], "0", m[2])
	}
	if m := tagalogTimeRE.FindStringSubmatch(lower); m != nil {
		return tagalogTime(m[1], m[2], m[3])
	}
	if strings.Contains(lower, "tanghali") {
		return appointments.TimeOfDay{Hour: 12}, true
	}
	if m := bareClockRE.FindStringSubmatch(lower); m != nil {
		return bareClock(m[1], m[2])
	}
	return appointments.TimeOfDay{}, false
}

func meridiemTime(hourStr, minStr, meridiem string) (appointments.TimeOfDay, bool) {
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minStr)
	if hour < 1 || hour > 12 || minute > 59 {
		return appointments.TimeOfDay{}, false
	}
	pm := strings.HasPrefix(meridiem, "p")
	if pm && hour != 12 {
		hour += 12
	}
	if !pm && hour == 12 {
		hour = 0
	}
	return appointments.TimeOfDay{Hour: hour, Minute: minute}, true
}

func tagalogTime(hourStr, minStr, part string) (appointments.TimeOfDay, bool) {
	hour, _ := strconv.Atoi(hourStr)
	minute := 0
	if minStr != "" {
		minute, _ = strconv.Atoi(minStr)
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return appointments.TimeOfDay{}, false
	}
	switch part {
	case "umaga":
		if hour == 12 {
			hour = 0
		}
	case "tanghali":
		hour = 12
	default: // hapon, gabi
		if hour != 12 {
			hour += 12
		}
	}
	return appointments.TimeOfDay{Hour: hour, Minute: minute}, true
}

// bareClock resolves a time with no meridiem. Hours 13-23 and 0 read as
// 24-hour literals; 1-6 lean afternoon, 7-12 lean morning.
func bareClock(hourStr, minStr string) (appointments.TimeOfDay, bool) {
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minStr)
	if hour > 23 || minute > 59 {
		return appointments.TimeOfDay{}, false
	}
	switch {
	case hour == 0 || hour >= 13:
		// explicit 24-hour form
	case hour >= 1 && hour <= 6:
		hour += 12
	case hour == 12:
		// noon stays noon
	default:
		// 7-11 stays morning
	}
	return appointments.TimeOfDay{Hour: hour, Minute: minute}, true
}
