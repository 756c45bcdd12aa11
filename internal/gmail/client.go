package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/znz-systems/inboxpilot/internal/models"
)

// Message is a fully parsed inbound mail message ready for persistence.
type Message struct {
	MessageID  string
	ThreadID   string
	Sender     string
	SenderName string
	Subject    string
	BodyText   string
	ReceivedAt time.Time
	Recipients []models.RecipientParams
	Attachments []AttachmentData
}

// AttachmentData carries one downloaded attachment blob.
type AttachmentData struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Client wraps the Gmail API for fetching inbox messages and sending
// replies.
type Client struct {
	svc *gmailapi.Service
}

func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Fetch lists inbox messages matching the query and returns them fully
// parsed. Messages that fail to parse are logged and skipped.
func (c *Client) Fetch(ctx context.Context, query string, maxResults int64) ([]Message, error) {
	call := c.svc.Users.Messages.List("me").LabelIds("INBOX").MaxResults(maxResults).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	listed, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	messages := make([]Message, 0, len(listed.Messages))
	for _, ref := range listed.Messages {
		full, err := c.svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			slog.Error("failed to fetch message", "message_id", ref.Id, "error", err)
			continue
		}
		parsed, err := ParseMessage(full, func(attachmentID string) ([]byte, error) {
			return c.fetchAttachment(ctx, ref.Id, attachmentID)
		})
		if err != nil {
			slog.Error("failed to parse message", "message_id", ref.Id, "error", err)
			continue
		}
		messages = append(messages, *parsed)
	}
	return messages, nil
}

func (c *Client) fetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	body, err := c.svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return decodeBase64(body.Data)
}

// Send transmits a raw RFC 822 message, threading it onto threadID when
// non-empty, and returns the provider message id.
func (c *Client) Send(ctx context.Context, raw []byte, threadID string) (string, error) {
	msg := &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}
	if threadID != "" {
		msg.ThreadId = threadID
	}
	sent, err := c.svc.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}
	return sent.Id, nil
}
