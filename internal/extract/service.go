package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/znz-systems/inboxpilot/internal/blob"
	"github.com/znz-systems/inboxpilot/internal/store"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// TextRecognizer turns a document or image into text. Implemented by
// OCRClient.
type TextRecognizer interface {
	Extract(ctx context.Context, filename string, content []byte) (string, error)
}

// Digester condenses the extracted attachment texts of one email into
// a short summary.
type Digester interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service extracts text from pending attachments and rolls the results
// up into per-email attachment summaries.
type Service struct {
	emails      store.EmailStore
	attachments store.AttachmentStore
	blobs       blob.Store
	recognizer  TextRecognizer
	digester    Digester
}

func NewService(
	emails store.EmailStore,
	attachments store.AttachmentStore,
	blobs blob.Store,
	recognizer TextRecognizer,
	digester Digester,
) *Service {
	return &Service{
		emails:      emails,
		attachments: attachments,
		blobs:       blobs,
		recognizer:  recognizer,
		digester:    digester,
	}
}

// Run processes up to limit attachments whose text has not been
// extracted yet, then refreshes the attachment summary of every email
// that gained new text. Per-attachment failures are logged and
// skipped.
func (s *Service) Run(ctx context.Context, limit int) error {
	pending, err := s.attachments.ListUnextractedAttachments(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing unextracted attachments: %w", err)
	}
	if len(pending) == 0 {
		slog.Info("no attachments awaiting extraction")
		return nil
	}

	slog.Info("extracting attachment text", "count", len(pending))
	touched := make(map[int64]bool)
	for _, att := range pending {
		text, err := s.extractOne(ctx, att.BlobKey, att.FileName, att.ContentType)
		if err != nil {
			slog.Error("attachment extraction failed",
				"attachment_id", att.ID,
				"filename", att.FileName,
				"error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			slog.Info("attachment yielded no text",
				"attachment_id", att.ID, "filename", att.FileName)
			continue
		}
		if err := s.attachments.UpdateAttachmentText(ctx, att.ID, text); err != nil {
			slog.Error("failed to store extracted text",
				"attachment_id", att.ID, "error", err)
			continue
		}
		touched[att.EmailID] = true
	}

	for emailID := range touched {
		if err := s.refreshSummary(ctx, emailID); err != nil {
			slog.Error("failed to refresh attachment summary",
				"email_id", emailID, "error", err)
		}
	}
	return nil
}

func (s *Service) extractOne(ctx context.Context, blobKey, filename, contentType string) (string, error) {
	content, err := s.blobs.Get(ctx, blobKey)
	if err != nil {
		return "", fmt.Errorf("fetching blob %s: %w", blobKey, err)
	}

	switch {
	case contentType == docxContentType:
		return ExtractDocx(content)
	case contentType == "application/pdf" || strings.HasPrefix(contentType, "image/"):
		if s.recognizer == nil {
			return "", fmt.Errorf("no text recognizer configured for %s", contentType)
		}
		return s.recognizer.Extract(ctx, filename, content)
	default:
		slog.Debug("unsupported attachment type", "content_type", contentType, "filename", filename)
		return "", nil
	}
}

// refreshSummary condenses all extracted texts of the email into one
// summary written to the email row.
func (s *Service) refreshSummary(ctx context.Context, emailID int64) error {
	attachments, err := s.attachments.ListAttachmentsByEmailID(ctx, emailID)
	if err != nil {
		return fmt.Errorf("listing attachments: %w", err)
	}

	var texts []string
	for _, att := range attachments {
		if att.ExtractedText != nil && strings.TrimSpace(*att.ExtractedText) != "" {
			texts = append(texts, fmt.Sprintf("Attachment %q:\n%s", att.FileName, *att.ExtractedText))
		}
	}
	if len(texts) == 0 {
		return nil
	}

	summary := strings.Join(texts, "\n\n")
	if s.digester != nil {
		prompt := "Summarize the key information from the following email attachments in a short paragraph:\n\n" + summary
		digested, err := s.digester.Complete(ctx, prompt)
		if err != nil {
			slog.Error("attachment digest failed, storing raw text", "email_id", emailID, "error", err)
		} else if strings.TrimSpace(digested) != "" {
			summary = digested
		}
	}

	return s.emails.UpdateAttachmentSummary(ctx, emailID, summary)
}
