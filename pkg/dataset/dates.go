package dataset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rolplay-assistant-be/pkg/apperror"
)

// DisplayLayout is how every date is rendered back to users.
const DisplayLayout = "02/01/06 15:04"

var strictLayouts = []string{
	"02/01/06 15:04",
	"02/01/2006 15:04",
	"2006-01-02 15:04:05",
	"02/01/06",
	"02/01/2006",
	"2006-01-02",
	"02-01-2006 15:04",
	"2006/01/02 15:04",
	"02.01.2006 15:04",
}

var lenientLayouts = []string{
	"2/1/2006 15:04", "2/1/2006 15:04:05", "2/1/2006", "2/1/06 15:04", "2/1/06",
	"2-1-2006 15:04", "2-1-2006", "2006-1-2 15:04", "2006-1-2", "2006/1/2", "2006-01-02T15:04:05",
	"2 1 2006 15:04", "2 1 2006", "2 1 06", "1 2 2006 15:04", "15:04", "15",
}

var (
	fillerWords = regexp.MustCompile(`\b(del?|año|a las)\b`)
	pmMarker    = regexp.MustCompile(`\s*(p\.?\s?m\.?)\s*$|\bp\.?m\.?\b`)
	amMarker    = regexp.MustCompile(`\s*(a\.?\s?m\.?)\s*$|\ba\.?m\.?\b`)
	spaces      = regexp.MustCompile(`\s+`)
)

var monthNames = map[string]string{
	"enero": "1", "febrero": "2", "marzo": "3", "abril": "4", "mayo": "5", "junio": "6",
	"julio": "7", "agosto": "8", "septiembre": "9", "setiembre": "9", "octubre": "10",
	"noviembre": "11", "diciembre": "12",
}

// ParseFlexibleDate accepts the fixed layouts first, then a cleaned-up
// free-form variant ("15 de marzo de 2024 a las 3 pm").
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range strictLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	cleaned := strings.ToLower(s)
	cleaned = fillerWords.ReplaceAllString(cleaned, " ")
	for name, num := range monthNames {
		cleaned = strings.ReplaceAll(cleaned, name, num)
	}

	pm := pmMarker.MatchString(cleaned)
	if pm {
		cleaned = pmMarker.ReplaceAllString(cleaned, " ")
	} else {
		cleaned = amMarker.ReplaceAllString(cleaned, " ")
	}
	cleaned = strings.TrimSpace(spaces.ReplaceAllString(cleaned, " "))

	t, err := parseLenient(cleaned)
	if err != nil {
		return time.Time{}, apperror.Value("fecha", "No se pudo interpretar la fecha: %s", cleaned)
	}
	if pm && t.Hour() < 12 {
		t = t.Add(12 * time.Hour)
	}
	return t, nil
}

func parseLenient(s string) (time.Time, error) {
	for _, layout := range lenientLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if layout == "15:04" || layout == "15" {
				now := time.Now()
				t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
			}
			return t, nil
		}
	}
	// "15 1 2024 3" style: date followed by a bare hour.
	if parts := strings.Fields(s); len(parts) == 4 {
		if h, err := strconv.Atoi(parts[3]); err == nil && h >= 0 && h < 24 {
			if t, err := time.Parse("2 1 2006", strings.Join(parts[:3], " ")); err == nil {
				return t.Add(time.Duration(h) * time.Hour), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// HasClock reports whether t carries a time of day.
func HasClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}

// SameDay compares calendar dates only.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func FormatDisplay(t time.Time) string {
	return t.Format(DisplayLayout)
}
