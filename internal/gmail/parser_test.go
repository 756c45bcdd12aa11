package gmail

import (
	"encoding/base64"
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestParseMessagePlainText(t *testing.T) {
	msg := &gmailapi.Message{
		Id:           "msg-1",
		ThreadId:     "thread-1",
		InternalDate: 1712345678000,
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "Alice Example <alice@example.com>"},
				{Name: "To", Value: "bob@example.com, Carol <carol@example.com>"},
				{Name: "Cc", Value: "dave@example.com"},
				{Name: "Subject", Value: "Quarterly review"},
			},
			Body: &gmailapi.MessagePartBody{Data: encode("Let's meet tomorrow at 3pm.")},
		},
	}

	parsed, err := ParseMessage(msg, nil)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	if parsed.MessageID != "msg-1" || parsed.ThreadID != "thread-1" {
		t.Errorf("got ids %q/%q", parsed.MessageID, parsed.ThreadID)
	}
	if parsed.Sender != "alice@example.com" {
		t.Errorf("expected sender alice@example.com, got %q", parsed.Sender)
	}
	if parsed.SenderName != "Alice Example" {
		t.Errorf("expected sender name Alice Example, got %q", parsed.SenderName)
	}
	if parsed.Subject != "Quarterly review" {
		t.Errorf("unexpected subject %q", parsed.Subject)
	}
	if parsed.BodyText != "Let's meet tomorrow at 3pm." {
		t.Errorf("unexpected body %q", parsed.BodyText)
	}
	if len(parsed.Recipients) != 3 {
		t.Fatalf("expected 3 recipients, got %d", len(parsed.Recipients))
	}
	if parsed.ReceivedAt.IsZero() {
		t.Error("expected non-zero received time")
	}
}

func TestParseMessageMultipartPrefersPlainText(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-2",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
			},
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: encode("plain body")},
				},
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: encode("<p>html body</p>")},
				},
			},
		},
	}

	parsed, err := ParseMessage(msg, nil)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}
	if parsed.BodyText != "plain body" {
		t.Errorf("expected plain body, got %q", parsed.BodyText)
	}
}

func TestParseMessageHTMLStripped(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-3",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/html",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
			},
			Body: &gmailapi.MessagePartBody{
				Data: encode("<html><body><p>Hello world</p><script>alert(1)</script></body></html>"),
			},
		},
	}

	parsed, err := ParseMessage(msg, nil)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}
	if parsed.BodyText != "Hello world" {
		t.Errorf("expected stripped HTML body, got %q", parsed.BodyText)
	}
}

func TestParseMessageAttachments(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-4",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
			},
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: encode("see attached")},
				},
				{
					MimeType: "application/pdf",
					Filename: "report.pdf",
					Body:     &gmailapi.MessagePartBody{AttachmentId: "att-1"},
				},
			},
		},
	}

	fetched := false
	parsed, err := ParseMessage(msg, func(attachmentID string) ([]byte, error) {
		if attachmentID != "att-1" {
			t.Errorf("unexpected attachment id %q", attachmentID)
		}
		fetched = true
		return []byte("pdf-bytes"), nil
	})
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}
	if !fetched {
		t.Fatal("expected attachment fetch callback to be invoked")
	}
	if len(parsed.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(parsed.Attachments))
	}
	att := parsed.Attachments[0]
	if att.FileName != "report.pdf" || att.ContentType != "application/pdf" {
		t.Errorf("unexpected attachment metadata %+v", att)
	}
	if string(att.Content) != "pdf-bytes" {
		t.Errorf("unexpected attachment content %q", att.Content)
	}
}

func TestParseMessageNoSender(t *testing.T) {
	msg := &gmailapi.Message{
		Id:      "msg-5",
		Payload: &gmailapi.MessagePart{MimeType: "text/plain"},
	}
	if _, err := ParseMessage(msg, nil); err == nil {
		t.Fatal("expected error for message without sender")
	}
}
