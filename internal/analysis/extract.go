package analysis

import (
	"strings"
	"time"

	"github.com/znz-systems/inboxpilot/internal/models"
)

const (
	defaultMeetingMinutes  = "60"
	defaultReminderMinutes = "30"
)

// actionDataAnchors locate the action-data block inside raw model
// output. The section header is canonical; the prose marker shows up
// when the combined-insights text is re-parsed.
var actionDataAnchors = []string{"### ACTION_DATA", "ACTION_DATA:", "Action Data:"}

// Extractor parses the ACTION_DATA section into a typed field mapping.
// The clock is injectable so date/time normalization is testable.
type Extractor struct {
	now func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// ActionData returns the parsed field mapping for the given kind, or
// nil when the section is absent or, for calendar kinds, a required
// field is missing. Callers must treat nil as "do not dispatch", never
// synthesize a record around it.
func (e *Extractor) ActionData(raw string, kind models.ActionKind) models.ActionData {
	body, ok := actionDataBody(raw)
	if !ok {
		return nil
	}

	pairs := parsePairs(body)
	if len(pairs) == 0 {
		return nil
	}

	now := e.now()
	data := make(models.ActionData, len(pairs))
	for key, value := range pairs {
		switch key {
		case "participants":
			data[key] = parseParticipants(value)
		case "duration_minutes":
			data[key] = parseDuration(value, kind)
		case "date":
			data[key] = NormalizeDate(value, now)
		case "time":
			data[key] = NormalizeTime(value, now)
		default:
			data[key] = value
		}
	}

	if kind.NeedsCalendar() {
		for _, required := range []string{"date", "time", "title", "description"} {
			if data.String(required) == "" {
				return nil
			}
		}
		if data.String("duration_minutes") == "" {
			data["duration_minutes"] = parseDuration("", kind)
		}
	}

	return data
}

func actionDataBody(raw string) (string, bool) {
	for _, anchor := range actionDataAnchors {
		_, after, found := strings.Cut(raw, anchor)
		if !found {
			continue
		}
		for _, terminator := range []string{"###", "\nTHREAD_CONTEXT:"} {
			if end := strings.Index(after, terminator); end >= 0 {
				after = after[:end]
			}
		}
		body := strings.TrimSpace(after)
		if body == "" || body == NoActionData {
			return "", false
		}
		return body, true
	}
	return "", false
}

// parseParticipants turns "[a@x.com, b@x.com]" into a list, dropping
// any token that is not address-shaped.
func parseParticipants(value string) []string {
	value = strings.Trim(value, "[]")
	participants := []string{}
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		if strings.Contains(token, "@") {
			participants = append(participants, token)
		}
	}
	return participants
}

// parseDuration keeps the first run of digits; the model likes to
// annotate the number ("60 (about an hour)").
func parseDuration(value string, kind models.ActionKind) string {
	if digits := firstDigitRun(value); digits != "" {
		return digits
	}
	if kind == models.ActionSetReminder {
		return defaultReminderMinutes
	}
	return defaultMeetingMinutes
}
