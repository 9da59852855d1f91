// Package schedule extracts appointment start times from Spanish free text
// and derives the calendar window a booking occupies.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when a matched service does not provide its own values.
const (
	DefaultDurationMinutes = 30
	DefaultBufferMinutes   = 10
)

// Window is the span a booking occupies on the calendar, buffer included.
type Window struct {
	Start time.Time
	End   time.Time
}

// BuildWindow computes the calendar window for a booking starting at start.
// The buffer keeps back-to-back bookings from starving turnover time.
func BuildWindow(start time.Time, durationMinutes, bufferMinutes int) Window {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	if bufferMinutes < 0 {
		bufferMinutes = DefaultBufferMinutes
	}
	return Window{
		Start: start,
		End:   start.Add(time.Duration(durationMinutes+bufferMinutes) * time.Minute),
	}
}

var weekdays = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miércoles": time.Wednesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sábado":    time.Saturday,
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
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var (
	// "a las 10", "a la 1:30", "sobre las 17.45"
	atTimeRe = regexp.MustCompile(`(?:a|sobre) las? (\d{1,2})(?:[:.](\d{2}))?`)
	// bare clock time: "17:30", "9.15h"
	clockRe = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})h?\b`)
	// "12/05", "12/05/2025"
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	// "el 12 de mayo", "12 de mayo de 2025"
	monthDateRe = regexp.MustCompile(`\b(\d{1,2}) de ([a-záéíóú]+)(?: de (\d{4}))?`)

	pmRe = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(?:pm|p\.m\.)`)
	amRe = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(?:am|a\.m\.)`)
)

// "mañana" is tomorrow unless it names the morning. The morning phrasings
// are rewritten to a marker first so the day scan cannot misread them.
var morningPhrases = []string{"por la mañana", "de la mañana", "esta mañana", "a la mañana"}

// Resolve extracts a single concrete start instant from free text. It
// returns ok=false when the text holds no interpretable temporal
// expression; callers must treat that as "ask the user", never as "now".
func Resolve(text string, now time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = now.Location()
	}
	now = now.In(loc)
	lowered := strings.ToLower(text)

	morning := false
	for _, phrase := range morningPhrases {
		if strings.Contains(lowered, phrase) {
			morning = true
			lowered = strings.ReplaceAll(lowered, phrase, " madrugada-ref ")
		}
	}

	day, dayFound := resolveDay(lowered, now)
	hour, minute, timeFound := resolveClock(lowered)

	if !dayFound && !timeFound {
		return time.Time{}, false
	}

	if !timeFound {
		// Day-only mentions book the middle of day, nudged by daypart.
		hour, minute = 12, 0
		switch {
		case morning:
			hour = 10
		case strings.Contains(lowered, "noche"):
			hour = 20
		case strings.Contains(lowered, "tarde"):
			hour = 17
		}
	} else if hour < 12 && isAfternoon(lowered) {
		hour += 12
	}

	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	if !dayFound {
		day = now
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	if !dayFound && !start.After(now) {
		// A bare clock time that already passed today means tomorrow.
		start = start.AddDate(0, 0, 1)
	}
	return start, true
}

func resolveDay(lowered string, now time.Time) (time.Time, bool) {
	if strings.Contains(lowered, "pasado mañana") || strings.Contains(lowered, "pasado manana") {
		return now.AddDate(0, 0, 2), true
	}
	if strings.Contains(lowered, "mañana") || strings.Contains(lowered, "manana") {
		return now.AddDate(0, 0, 1), true
	}
	if strings.Contains(lowered, "hoy") {
		return now, true
	}

	for name, wd := range weekdays {
		if !strings.Contains(lowered, name) {
			continue
		}
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead), true
	}

	if m := monthDateRe.FindStringSubmatch(lowered); m != nil {
		if month, ok := months[m[2]]; ok {
			dayNum, _ := strconv.Atoi(m[1])
			year := now.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			candidate := time.Date(year, month, dayNum, 0, 0, 0, 0, now.Location())
			if m[3] == "" && candidate.Before(now.Truncate(24*time.Hour)) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, true
		}
	}

	if m := slashDateRe.FindStringSubmatch(lowered); m != nil {
		dayNum, _ := strconv.Atoi(m[1])
		monthNum, _ := strconv.Atoi(m[2])
		if monthNum >= 1 && monthNum <= 12 && dayNum >= 1 && dayNum <= 31 {
			year := now.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
				if year < 100 {
					year += 2000
				}
			}
			candidate := time.Date(year, time.Month(monthNum), dayNum, 0, 0, 0, 0, now.Location())
			if m[3] == "" && candidate.Before(now.Truncate(24*time.Hour)) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, true
		}
	}

	return time.Time{}, false
}

func resolveClock(lowered string) (hour, minute int, ok bool) {
	if m := pmRe.FindStringSubmatch(lowered); m != nil {
		hour, minute = atoiPair(m[1], m[2])
		if hour < 12 {
			hour += 12
		}
		return hour, minute, true
	}
	if m := amRe.FindStringSubmatch(lowered); m != nil {
		hour, minute = atoiPair(m[1], m[2])
		return hour, minute, true
	}
	if m := atTimeRe.FindStringSubmatch(lowered); m != nil {
		hour, minute = atoiPair(m[1], m[2])
		return hour, minute, true
	}
	if m := clockRe.FindStringSubmatch(lowered); m != nil {
		hour, minute = atoiPair(m[1], m[2])
		return hour, minute, true
	}
	if strings.Contains(lowered, "mediodía") || strings.Contains(lowered, "mediodia") {
		return 12, 0, true
	}
	if strings.Contains(lowered, "medianoche") {
		return 0, 0, true
	}
	return 0, 0, false
}

func isAfternoon(lowered string) bool {
	return strings.Contains(lowered, "de la tarde") ||
		strings.Contains(lowered, "por la tarde") ||
		strings.Contains(lowered, "de la noche") ||
		strings.Contains(lowered, "por la noche")
}

func atoiPair(h, m string) (int, int) {
	hour, _ := strconv.Atoi(h)
	minute := 0
	if m != "" {
		minute, _ = strconv.Atoi(m)
	}
	return hour, minute
}
