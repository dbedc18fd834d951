// Package temporal interprets Spanish relative date and time phrases
// ("el próximo viernes a las 3pm") against a reference instant. Unrecognized
// or ambiguous phrases resolve to nil so callers can ask the user to
// clarify instead of guessing.
package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Resolution carries the parsed calendar parts. Either field may be nil when
// the phrase does not pin it down.
type Resolution struct {
	Date *time.Time
	Time *string // 24-hour "HH:MM"
}

var weekdays = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
	"domingo":   time.Sunday,
}

var months = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var (
	weekdayRe  = regexp.MustCompile(`(?:\b(proximo|próximo|este|el)\s+)*\b(lunes|martes|miercoles|jueves|viernes|sabado|domingo)\b`)
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})\s+de\s+([a-z]+)\b`)
	numericRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	bareDayRe  = regexp.MustCompile(`\bel\s+(\d{1,2})\b`)

	atTimeRe     = regexp.MustCompile(`\ba\s+las?\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	meridiemRe   = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	periodTimeRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s+de\s+la\s+(manana|tarde|noche)\b`)
	clockRe      = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

// Resolve extracts a date and a time from free text. ref anchors relative
// phrases; only its calendar day matters.
func Resolve(text string, ref time.Time) Resolution {
	var res Resolution
	if d, ok := ResolveDate(text, ref); ok {
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, ref.Location())
		res.Date = &d
	}
	if t, ok := ResolveTime(text); ok {
		res.Time = &t
	}
	return res
}

// ResolveDate extracts a calendar date from free text relative to ref.
func ResolveDate(text string, ref time.Time) (time.Time, bool) {
	norm := normalize(text)
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	switch {
	case strings.Contains(norm, "pasado manana"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(norm, "manana"):
		// "de la manana" is a time-of-day qualifier, not a date.
		if !periodTimeRe.MatchString(norm) || !strings.Contains(norm, "de la manana") {
			return today.AddDate(0, 0, 1), true
		}
		if stripped := periodTimeRe.ReplaceAllString(norm, ""); strings.Contains(stripped, "manana") {
			return today.AddDate(0, 0, 1), true
		}
	case strings.Contains(norm, "hoy"):
		return today, true
	case strings.Contains(norm, "proxima semana") || strings.Contains(norm, "semana que viene"):
		return today.AddDate(0, 0, 7), true
	}

	if m := weekdayRe.FindStringSubmatch(norm); m != nil {
		target := weekdays[m[2]]
		days := int(target-today.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		if strings.Contains(norm, "proximo "+m[2]) {
			days += 7
		}
		return today.AddDate(0, 0, days), true
	}

	if m := dayMonthRe.FindStringSubmatch(norm); m != nil {
		if month, ok := months[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			if day >= 1 && day <= 31 {
				candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, ref.Location())
				if candidate.Before(today) {
					candidate = candidate.AddDate(1, 0, 0)
				}
				return candidate, true
			}
		}
	}

	if m := numericRe.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := today.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if day >= 1 && day <= 31 && month >= 1 && month <= 12 {
			candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, ref.Location())
			if m[3] == "" && candidate.Before(today) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, true
		}
	}

	// "el 15" with no month rolls into next month once the day has passed.
	if m := bareDayRe.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[1])
		if day >= 1 && day <= 31 {
			candidate := time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, ref.Location())
			if candidate.Before(today) {
				candidate = candidate.AddDate(0, 1, 0)
			}
			return candidate, true
		}
	}

	return time.Time{}, false
}

// ResolveTime extracts a 24-hour "HH:MM" time of day from free text.
func ResolveTime(text string) (string, bool) {
	norm := normalize(text)

	if m := atTimeRe.FindStringSubmatch(norm); m != nil {
		return buildTime(m[1], m[2], m[3])
	}
	if m := meridiemRe.FindStringSubmatch(norm); m != nil {
		return buildTime(m[1], m[2], m[3])
	}
	if m := periodTimeRe.FindStringSubmatch(norm); m != nil {
		period := ""
		if m[3] == "tarde" || m[3] == "noche" {
			period = "pm"
		}
		return buildTime(m[1], m[2], period)
	}
	if m := clockRe.FindStringSubmatch(norm); m != nil {
		return buildTime(m[1], m[2], "")
	}
	return "", false
}

func buildTime(hourStr, minuteStr, meridiem string) (string, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return "", false
	}
	minute := 0
	if minuteStr != "" {
		minute, err = strconv.Atoi(minuteStr)
		if err != nil {
			return "", false
		}
	}
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	return accentReplacer.Replace(s)
}
