// Package ingest fetches provider messages and persists them with
// their attachments. It is the only writer of new email rows.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/znz-systems/inboxpilot/internal/blob"
	"github.com/znz-systems/inboxpilot/internal/gmail"
	"github.com/znz-systems/inboxpilot/internal/models"
	"github.com/znz-systems/inboxpilot/internal/store"
)

// MailFetcher lists parsed provider messages. Implemented by the Gmail
// client.
type MailFetcher interface {
	Fetch(ctx context.Context, query string, maxResults int64) ([]gmail.Message, error)
}

// SeenFilter short-circuits messages already ingested recently,
// before the database existence check. A nil filter disables the
// fast path.
type SeenFilter interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
}

// Service runs one ingestion pass.
type Service struct {
	fetcher     MailFetcher
	seen        SeenFilter
	emails      store.EmailStore
	attachments store.AttachmentStore
	blobs       blob.Store
	query       string
}

func NewService(
	fetcher MailFetcher,
	seen SeenFilter,
	emails store.EmailStore,
	attachments store.AttachmentStore,
	blobs blob.Store,
	query string,
) *Service {
	return &Service{
		fetcher:     fetcher,
		seen:        seen,
		emails:      emails,
		attachments: attachments,
		blobs:       blobs,
		query:       query,
	}
}

// Run fetches up to batchSize messages and stores the new ones.
// Failures are isolated per message.
func (s *Service) Run(ctx context.Context, batchSize int) error {
	messages, err := s.fetcher.Fetch(ctx, s.query, int64(batchSize))
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}
	if len(messages) == 0 {
		slog.Info("no messages fetched")
		return nil
	}

	stored := 0
	for i := range messages {
		ok, err := s.storeMessage(ctx, &messages[i])
		if err != nil {
			slog.Error("failed to store message",
				"message_id", messages[i].MessageID, "error", err)
			continue
		}
		if ok {
			stored++
		}
	}
	slog.Info("ingestion pass complete", "fetched", len(messages), "stored", stored)
	return nil
}

// storeMessage persists one message. Returns false without error when
// the message was already ingested.
func (s *Service) storeMessage(ctx context.Context, msg *gmail.Message) (bool, error) {
	if s.seen != nil {
		isNew, err := s.seen.IsNew(ctx, msg.MessageID)
		if err != nil {
			// The filter is an optimization; fall through to the
			// database check when it is unavailable.
			slog.Warn("dedup filter unavailable", "error", err)
		} else if !isNew {
			slog.Debug("message seen recently, skipping", "message_id", msg.MessageID)
			return false, nil
		}
	}

	exists, err := s.emails.EmailExists(ctx, msg.MessageID)
	if err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}
	if exists {
		slog.Debug("message already stored, skipping", "message_id", msg.MessageID)
		return false, nil
	}

	email, err := s.emails.CreateEmail(ctx, models.EmailCreateParams{
		MessageID:  msg.MessageID,
		ThreadID:   msg.ThreadID,
		Sender:     msg.Sender,
		SenderName: msg.SenderName,
		Subject:    msg.Subject,
		BodyText:   msg.BodyText,
		ReceivedAt: msg.ReceivedAt,
		Recipients: msg.Recipients,
	})
	if err != nil {
		return false, fmt.Errorf("creating email: %w", err)
	}

	for _, att := range msg.Attachments {
		if err := s.storeAttachment(ctx, email.ID, msg.MessageID, att); err != nil {
			slog.Error("failed to store attachment",
				"email_id", email.ID,
				"filename", att.FileName,
				"error", err)
		}
	}

	slog.Info("email ingested",
		"email_id", email.ID,
		"message_id", msg.MessageID,
		"attachments", len(msg.Attachments))
	return true, nil
}

func (s *Service) storeAttachment(ctx context.Context, emailID int64, messageID string, att gmail.AttachmentData) error {
	key := messageID + "/" + att.FileName
	url, err := s.blobs.Put(ctx, key, att.ContentType, att.Content)
	if err != nil {
		return fmt.Errorf("uploading blob: %w", err)
	}

	_, err = s.attachments.CreateAttachment(ctx, models.AttachmentCreateParams{
		EmailID:     emailID,
		FileName:    att.FileName,
		ContentType: att.ContentType,
		SizeBytes:   int64(len(att.Content)),
		BlobKey:     key,
		StorageURL:  url,
	})
	if err != nil {
		return fmt.Errorf("creating attachment row: %w", err)
	}
	return nil
}
