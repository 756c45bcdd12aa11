package gmail

import (
	"encoding/base64"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/net/html"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/znz-systems/inboxpilot/internal/models"
)

const imagePlaceholder = "[Image-based content]"

// ParseMessage extracts the fields the pipeline persists from a full
// Gmail message. fetchAttachment is called for each attachment part
// that only carries an attachment ID.
func ParseMessage(msg *gmailapi.Message, fetchAttachment func(attachmentID string) ([]byte, error)) (*Message, error) {
	if msg == nil || msg.Payload == nil {
		return nil, errors.New("message has no payload")
	}

	headers := headerMap(msg.Payload.Headers)

	senderName, senderAddr := parseAddress(headers["From"])
	if senderAddr == "" {
		return nil, errors.New("message has no sender")
	}

	parsed := &Message{
		MessageID:  msg.Id,
		ThreadID:   msg.ThreadId,
		Sender:     senderAddr,
		SenderName: senderName,
		Subject:    headers["Subject"],
		BodyText:   extractBody(msg.Payload),
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}

	for headerName, recipientType := range map[string]models.RecipientType{
		"To":  models.RecipientTo,
		"Cc":  models.RecipientCc,
		"Bcc": models.RecipientBcc,
	} {
		for _, addr := range splitAddresses(headers[headerName]) {
			parsed.Recipients = append(parsed.Recipients, models.RecipientParams{
				Address: addr,
				Type:    recipientType,
			})
		}
	}

	parsed.Attachments = extractAttachments(msg.Payload, fetchAttachment)
	return parsed, nil
}

func headerMap(headers []*gmailapi.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}

func parseAddress(raw string) (name, address string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		// Not RFC-compliant; keep the raw value as the address.
		return "", raw
	}
	return addr.Name, addr.Address
}

func splitAddresses(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	addrs := make([]string, 0, len(parts))
	for _, part := range parts {
		_, addr := parseAddress(part)
		if addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// extractBody walks the MIME tree and returns the first usable text
// body: text/plain preferred, text/html stripped of tags, image parts
// reduced to a placeholder.
func extractBody(payload *gmailapi.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" && !strings.HasPrefix(payload.MimeType, "multipart/") {
		if text, err := decodeBase64(payload.Body.Data); err == nil {
			if payload.MimeType == "text/html" {
				return stripHTML(string(text))
			}
			return string(text)
		}
	}

	for _, part := range payload.Parts {
		switch {
		case part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "":
			if text, err := decodeBase64(part.Body.Data); err == nil {
				return string(text)
			}
		case part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "":
			if text, err := decodeBase64(part.Body.Data); err == nil {
				return stripHTML(string(text))
			}
		case strings.HasPrefix(part.MimeType, "image/"):
			return imagePlaceholder
		}
		if len(part.Parts) > 0 {
			if body := extractBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

func extractAttachments(payload *gmailapi.MessagePart, fetch func(attachmentID string) ([]byte, error)) []AttachmentData {
	var attachments []AttachmentData
	for _, part := range payload.Parts {
		if part.Filename != "" && part.Body != nil {
			var (
				content []byte
				err     error
			)
			if part.Body.Data != "" {
				content, err = decodeBase64(part.Body.Data)
			} else if part.Body.AttachmentId != "" && fetch != nil {
				content, err = fetch(part.Body.AttachmentId)
			}
			if err != nil || len(content) == 0 {
				continue
			}
			contentType := part.MimeType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			attachments = append(attachments, AttachmentData{
				FileName:    part.Filename,
				ContentType: contentType,
				Content:     content,
			})
		}
		if len(part.Parts) > 0 {
			attachments = append(attachments, extractAttachments(part, fetch)...)
		}
	}
	return attachments
}

func decodeBase64(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

// stripHTML returns the visible text of an HTML document.
func stripHTML(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return strings.TrimSpace(sb.String())
}
