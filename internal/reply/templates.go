// Package reply renders and sends auto-replies for analyzed emails,
// with bounded retry.
package reply

import (
	"fmt"
	"strings"

	"github.com/znz-systems/inboxpilot/internal/models"
)

// Rendered is a generated reply ready to store and send.
type Rendered struct {
	Subject string
	Body    string
}

// Generate renders the reply for one email/analysis pair. The template
// is selected by action kind.
func Generate(email *models.Email, analysis *models.Analysis) Rendered {
	name := email.SenderName
	if name == "" {
		name = "there"
	}
	subject := email.Subject
	if subject == "" {
		subject = "Your Email"
	}

	var body string
	switch analysis.ActionKind {
	case models.ActionScheduleMeeting:
		body = meetingBody(name, subject, analysis.ActionData)
	case models.ActionSetReminder:
		body = reminderBody(name, analysis.ActionData)
	default:
		body = generalBody(name, subject, analysis.ActionData)
	}

	return Rendered{
		Subject: "Re: " + subject,
		Body:    body,
	}
}

func meetingBody(name, subject string, data models.ActionData) string {
	return fmt.Sprintf(`Dear %s,

Thank you for your email regarding %s.

I have scheduled the meeting as requested:
- Date: %s
- Time: %s
- Duration: %s minutes
- Location: %s

Please let me know if you need to make any changes to the schedule.

Best regards`,
		name, subject,
		data.String("date"), data.String("time"),
		orDefault(data.String("duration_minutes"), "60"),
		orDefault(data.String("location"), "virtual"))
}

func reminderBody(name string, data models.ActionData) string {
	return fmt.Sprintf(`Dear %s,

Thank you for your email. I have set up a reminder as requested:
- Date: %s
- Time: %s
- Title: %s
- Description: %s

You will receive a notification at the specified time.

Best regards`,
		name,
		data.String("date"), data.String("time"),
		data.String("title"), data.String("description"))
}

func generalBody(name, subject string, data models.ActionData) string {
	content := data.String("message")
	if content == "" {
		content = "I have received your email and will follow up shortly."
	}
	return fmt.Sprintf(`Dear %s,

Thank you for your email regarding %s.

%s

Please let me know if you need any further assistance.

Best regards`,
		name, subject, content)
}

// ErrorBody is sent when processing the sender's request failed.
func ErrorBody(name, errorMessage string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`Dear %s,

Thank you for your email. I encountered an issue while processing your request:

%s

I will retry the operation and keep you updated.

Best regards`,
		name, errorMessage)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
