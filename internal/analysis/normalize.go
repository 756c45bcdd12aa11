package analysis

import (
	"regexp"
	"strings"
	"time"
)

const (
	isoDate   = "2006-01-02"
	clockTime = "15:04"
)

var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)

// dateLayouts tried after ordinal suffixes are stripped. The model is
// inconsistent about day/month order.
var dateLayouts = []string{
	isoDate,
	"2 January 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2 2006",
	"02/01/2006",
}

// NormalizeDate maps a free-form date phrase to YYYY-MM-DD, anchored
// at now for relative phrases. Unrecognized input falls back to the
// current date; the upstream producer is a language model and cannot
// be trusted to emit exact formats, so this never fails.
func NormalizeDate(phrase string, now time.Time) string {
	cleaned := strings.TrimSpace(phrase)
	switch strings.ToLower(cleaned) {
	case "", "today", "none", "not specified":
		return now.Format(isoDate)
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(isoDate)
	}

	cleaned = ordinalSuffix.ReplaceAllString(cleaned, "$1")
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed.Format(isoDate)
		}
	}
	return now.Format(isoDate)
}

// NormalizeTime maps a free-form time phrase to 24-hour HH:MM,
// anchored at now when the phrase is relative or absent.
func NormalizeTime(phrase string, now time.Time) string {
	cleaned := strings.TrimSpace(phrase)
	lower := strings.ToLower(cleaned)

	switch lower {
	case "", "none", "now", "not specified":
		return now.Format(clockTime)
	}

	if strings.Contains(lower, "o'clock") || strings.Contains(lower, "oclock") {
		return normalizeOClock(lower, now)
	}

	if strings.Contains(lower, "pm") || strings.Contains(lower, "am") {
		for _, layout := range []string{"3:04 PM", "3:04PM", "3 PM", "3PM"} {
			if parsed, err := time.Parse(layout, strings.ToUpper(cleaned)); err == nil {
				return parsed.Format(clockTime)
			}
		}
		return now.Format(clockTime)
	}

	// Assume the value is already close to HH:MM.
	for _, layout := range []string{clockTime, "15.04", "3:04"} {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed.Format(clockTime)
		}
	}
	return now.Format(clockTime)
}

// normalizeOClock handles phrases like "9 o'clock at night": the
// leading digits are the hour, shifted to the evening when the phrase
// says so.
func normalizeOClock(lower string, now time.Time) string {
	digits := firstDigitRun(lower)
	if digits == "" {
		return now.Format(clockTime)
	}
	hour := 0
	for _, r := range digits {
		hour = hour*10 + int(r-'0')
	}
	if hour > 23 {
		return now.Format(clockTime)
	}

	for _, word := range []string{"night", "evening", "pm"} {
		if strings.Contains(lower, word) {
			if hour != 12 {
				hour += 12
			}
			break
		}
	}
	if hour > 23 {
		hour -= 24
	}
	return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format(clockTime)
}

func firstDigitRun(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			return s[start:i]
		}
	}
	if start != -1 {
		return s[start:]
	}
	return ""
}
